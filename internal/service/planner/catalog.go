package planner

// StandardQuestion is one entry of the fixed intake catalog. Importance
// ranks what gets asked first; ties keep catalog order.
type StandardQuestion struct {
	ID           string `json:"id"`
	Question     string `json:"question"`
	QuestionType string `json:"questionType"`
	Importance   int    `json:"importance"`
}

// Catalog returns the standard proposal questions: the subjects a
// proposal always needs covered, ranked by importance.
func Catalog() []StandardQuestion {
	return []StandardQuestion{
		{
			ID:           "project_name",
			Question:     "What is the name of the project?",
			QuestionType: "GENERAL",
			Importance:   10,
		},
		{
			ID:           "project_goals",
			Question:     "What are the main goals and objectives of this project?",
			QuestionType: "GENERAL",
			Importance:   9,
		},
		{
			ID:           "budget",
			Question:     "What is the estimated budget for this project?",
			QuestionType: "BUDGET",
			Importance:   8,
		},
		{
			ID:           "timeline",
			Question:     "What is the desired timeline or deadline for this project?",
			QuestionType: "TIMELINE",
			Importance:   8,
		},
		{
			ID:           "stakeholders",
			Question:     "Who are the key stakeholders for this project?",
			QuestionType: "GENERAL",
			Importance:   7,
		},
		{
			ID:           "success_criteria",
			Question:     "What are the success criteria for this project?",
			QuestionType: "GENERAL",
			Importance:   7,
		},
		{
			ID:           "scope",
			Question:     "What is the scope of work for this project?",
			QuestionType: "GENERAL",
			Importance:   9,
		},
	}
}
