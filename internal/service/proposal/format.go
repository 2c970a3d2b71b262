package proposal

// Supported document formats. Unknown tags fall back to FormatDetailed.
const (
	FormatBrief     = "brief"
	FormatDetailed  = "detailed"
	FormatExecutive = "executive"
	FormatFormal    = "formal"
)

// Formats lists the supported format tags.
func Formats() []string {
	return []string{FormatBrief, FormatDetailed, FormatExecutive, FormatFormal}
}

// NormalizeFormat maps unknown tags to the detailed format.
func NormalizeFormat(format string) string {
	switch format {
	case FormatBrief, FormatDetailed, FormatExecutive, FormatFormal:
		return format
	default:
		return FormatDetailed
	}
}

var templates = map[string]string{
	FormatBrief: `Generate a comprehensive proposal with these requirements:
%s

Include detailed sections for:
1. Executive Summary (at least 150 words) - Provide a compelling overview of the proposal's key points
2. Project Scope (at least 200 words) - Detail specific deliverables, services, and features
3. Budget (at least 100 words) - Break down costs by category with justification
4. Timeline (at least 150 words) - Include detailed milestones with dates
5. Expected Outcomes (at least 150 words) - Describe measurable results

Ensure the proposal is at least ONE FULL PAGE (minimum 800 words total).
Use professional language throughout and provide specific, actionable details rather than vague statements.`,

	FormatDetailed: `Generate a comprehensive proposal with these requirements:
%s

Include detailed sections for (each section must be thorough and well-developed):
1. Executive Summary (200+ words) - Compelling overview that captures key selling points
2. Project Background & Goals (250+ words) - Thorough analysis of the situation and objectives
3. Scope of Work (300+ words) - Comprehensive breakdown of all deliverables with specifics
4. Detailed Budget (200+ words) - Line-item breakdown with justification for each cost
5. Timeline with milestones (200+ words) - Detailed schedule with specific dates and dependencies
6. Team & Resources (150+ words) - Key personnel, expertise, and resources committed
7. Risks & Mitigations (150+ words) - Potential challenges and planned solutions
8. Evaluation Criteria (150+ words) - How success will be measured

The proposal MUST be at least 1600 words in total (approximately 3+ pages).
Include specific details, examples, and quantifiable metrics where possible.
Use professional language and formal business writing style throughout.`,

	FormatExecutive: `Generate an executive summary proposal with these requirements:
%s

Focus on strategic value, ROI, and key business benefits.
Include fully developed sections for:
1. Executive Overview (200+ words) - High-impact summary tailored for C-level executives
2. Strategic Background (150+ words) - Brief but substantive context and rationale
3. Solution Overview (200+ words) - Clear explanation of the proposed solution
4. Business Impact Analysis (200+ words) - Detailed ROI and strategic advantages
5. Financial Summary (150+ words) - Clear cost-benefit analysis with key metrics
6. Timeline Overview (150+ words) - Critical path and key milestones
7. Recommendation & Next Steps (150+ words) - Clear action items

The proposal MUST be at least 1200 words total (minimum 2 pages).
Use executive-appropriate language focusing on business value rather than technical details.
Include specific metrics, KPIs, and financial projections wherever possible.`,

	FormatFormal: `Generate a formal RFP-style proposal with these requirements:
%s

Structure according to standard formal proposal format with fully developed sections:
1. Cover Page (include title, date, company information)
2. Executive Summary (250+ words) - Comprehensive yet concise overview
3. Company Background (200+ words) - Relevant organizational history and qualifications
4. Understanding of Requirements (250+ words) - Demonstrate clear grasp of client needs
5. Proposed Solution (300+ words) - Detailed description of recommended approach
6. Implementation Approach (250+ words) - Step-by-step methodology
7. Timeline (200+ words) - Detailed timeline with specific dates and deliverables
8. Budget & Pricing (200+ words) - Comprehensive breakdown with justifications
9. Terms & Conditions (150+ words) - Clear legal and business terms
10. Appendices (as needed) - Supporting documentation and details

The proposal MUST be at least 2000 words total (approximately 4+ pages).
Use formal business language and structure throughout.
Follow standard business proposal formatting with appropriate headings, subheadings, and professional tone.`,
}
