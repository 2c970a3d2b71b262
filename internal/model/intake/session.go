package intake

import "time"

// Question type tags recognized by the validator. Any other value is
// treated as GENERAL.
const (
	TypeGeneral  = "GENERAL"
	TypeBudget   = "BUDGET"
	TypeTimeline = "TIMELINE"
)

// User identifies who a session belongs to. The id is caller-supplied and
// not required to be globally unique.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Answer is one question/answer pair. The question text is the unique key
// within a session; re-submitting the same question updates the entry.
type Answer struct {
	Question     string         `json:"question"`
	Answer       string         `json:"answer"`
	QuestionType string         `json:"questionType"`
	CreatedAt    time.Time      `json:"createdAt"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Session aggregates one user's accumulating answers.
type Session struct {
	ID        string            `json:"id"`
	User      User              `json:"user"`
	Answers   map[string]Answer `json:"answers"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
}

// Clone returns a deep copy so callers never share mutable state with a
// store's internal representation.
func (s Session) Clone() Session {
	out := s
	out.Answers = make(map[string]Answer, len(s.Answers))
	for q, a := range s.Answers {
		out.Answers[q] = a.Clone()
	}
	out.Metadata = cloneMetadata(s.Metadata)
	return out
}

// Clone copies the answer including its metadata map.
func (a Answer) Clone() Answer {
	out := a
	out.Metadata = cloneMetadata(a.Metadata)
	return out
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
