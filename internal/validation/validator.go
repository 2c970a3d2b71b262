// Package validation gates what may enter the session store. The rule table
// is pure and synchronous; the LLM plausibility check is a separate
// best-effort pass that never blocks storage on its own failure.
package validation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/quillforge/proposalgen/internal/model/intake"
)

// Rejection reports a rule violation with a human-readable reason. It is a
// normal domain outcome, surfaced to the submitter, never logged as an
// error.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string {
	return r.Reason
}

const (
	budgetMax        = 10_000_000
	generalMinLength = 3
	generalMaxLength = 5000
	timelineMinChars = 5
)

type ruleSet struct {
	required  bool
	minLength int
	maxLength int
}

// Keyed by question type; unrecognized types use the GENERAL rules.
var rules = map[string]ruleSet{
	intake.TypeBudget:   {required: true, maxLength: 1_000_000},
	intake.TypeTimeline: {required: true, maxLength: 1_000_000},
	intake.TypeGeneral:  {minLength: generalMinLength, maxLength: generalMaxLength},
}

// Validate checks the answer against the rule table for its question type.
// The first failing rule returns a *Rejection; nil means the answer may be
// stored.
func Validate(answer intake.Answer) error {
	ruleSet, ok := rules[answer.QuestionType]
	if !ok {
		ruleSet = rules[intake.TypeGeneral]
	}

	value := answer.Answer

	switch answer.QuestionType {
	case intake.TypeBudget:
		amount, err := parseBudget(value)
		if err != nil {
			return &Rejection{Reason: "budget must be a valid number"}
		}
		if amount < 0 {
			return &Rejection{Reason: "budget must be positive"}
		}
		if amount > budgetMax {
			return &Rejection{Reason: fmt.Sprintf("budget exceeds the maximum allowed value of $%d", budgetMax)}
		}
	case intake.TypeTimeline:
		if utf8.RuneCountInString(value) < timelineMinChars {
			return &Rejection{Reason: "timeline description is too short"}
		}
	}

	if ruleSet.required && value == "" {
		return &Rejection{Reason: fmt.Sprintf("answer for %q is required", answer.Question)}
	}

	// Length rules count characters, not bytes.
	length := utf8.RuneCountInString(value)
	if length < ruleSet.minLength {
		return &Rejection{Reason: fmt.Sprintf("answer is too short, minimum %d characters", ruleSet.minLength)}
	}
	if length > ruleSet.maxLength {
		return &Rejection{Reason: fmt.Sprintf("answer is too long, maximum %d characters", ruleSet.maxLength)}
	}

	return nil
}

// parseBudget strips currency symbols, separators and whitespace before
// parsing the remainder as a number.
func parseBudget(value string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', ',', ' ', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(value))

	return strconv.ParseFloat(cleaned, 64)
}
