// Package planner chooses the next intake question: standard catalog
// entries ranked by importance first, then LLM-generated contextual
// follow-ups once the catalog is exhausted.
package planner

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/quillforge/proposalgen/internal/model/intake"
	"github.com/quillforge/proposalgen/internal/store"
)

// FallbackQuestion is returned whenever the contextual path is unavailable
// or fails; the planner never errors out of Next.
const FallbackQuestion = "Is there any additional information you would like to provide for the proposal?"

const contextualSystemPrompt = `You are a proposal specialist helping gather information for a project proposal.
Based on the previous questions and answers, identify the most important missing information
and ask ONE specific follow-up question to help create a comprehensive proposal.
Focus on gaps in: scope details, budget clarification, timeline specifics, requirements,
key deliverables, or success criteria.`

const contextualClosingDirective = "Based on our conversation so far, what's the most important question I should answer next for the proposal?"

// Generated replies longer than this are reduced to a single question.
const maxQuestionLength = 200

// MatchPolicy decides whether a stored answer's question text counts as
// answering a catalog question.
type MatchPolicy func(standard, existing string) bool

// ContainsFold marks a catalog question answered when any stored question
// contains its text, case-insensitively. Loose on purpose: it tolerates
// paraphrased restatement at the cost of occasional false positives.
func ContainsFold(standard, existing string) bool {
	return strings.Contains(strings.ToLower(existing), strings.ToLower(standard))
}

// ExactFold requires the stored question to equal the catalog text,
// case-insensitively.
func ExactFold(standard, existing string) bool {
	return strings.EqualFold(standard, existing)
}

// Service plans question progression for intake sessions.
type Service struct {
	store   store.SessionStore
	catalog []StandardQuestion
	match   MatchPolicy
	chain   compose.Runnable[map[string]any, *schema.Message]
}

// Option customizes the planner.
type Option func(*Service)

// WithCatalog replaces the standard question catalog.
func WithCatalog(catalog []StandardQuestion) Option {
	return func(s *Service) {
		s.catalog = append([]StandardQuestion(nil), catalog...)
	}
}

// WithMatchPolicy replaces the answered-question matching policy.
func WithMatchPolicy(match MatchPolicy) Option {
	return func(s *Service) {
		s.match = match
	}
}

// NewService builds the planner. chatModel may be nil, in which case the
// contextual path always returns FallbackQuestion.
func NewService(ctx context.Context, sessions store.SessionStore, chatModel model.BaseChatModel, opts ...Option) (*Service, error) {
	svc := &Service{
		store:   sessions,
		catalog: Catalog(),
		match:   ContainsFold,
	}
	for _, opt := range opts {
		opt(svc)
	}

	if chatModel != nil {
		promptTemplate := prompt.FromMessages(
			schema.FString,
			schema.SystemMessage(contextualSystemPrompt),
			schema.MessagesPlaceholder("history", true),
			schema.UserMessage(contextualClosingDirective),
		)

		chain := compose.NewChain[map[string]any, *schema.Message]()
		chain.AppendChatTemplate(promptTemplate)
		chain.AppendChatModel(chatModel)

		runnable, err := chain.Compile(ctx)
		if err != nil {
			return nil, fmt.Errorf("compile contextual question chain: %w", err)
		}
		svc.chain = runnable
	}

	return svc, nil
}

// StandardQuestions exposes the catalog in its fixed order.
func (s *Service) StandardQuestions() []StandardQuestion {
	return append([]StandardQuestion(nil), s.catalog...)
}

// Unanswered returns the catalog questions not yet covered by the session,
// most important first; equal importance keeps catalog order.
func (s *Service) Unanswered(ctx context.Context, sessionID string) []StandardQuestion {
	answers := s.store.Answers(ctx, sessionID)

	var unanswered []StandardQuestion
	for _, q := range s.catalog {
		answered := false
		for existing := range answers {
			if s.match(q.Question, existing) {
				answered = true
				break
			}
		}
		if !answered {
			unanswered = append(unanswered, q)
		}
	}

	sort.SliceStable(unanswered, func(i, j int) bool {
		return unanswered[i].Importance > unanswered[j].Importance
	})
	return unanswered
}

// Next picks the question to ask. The planner has no terminal state: once
// the catalog is exhausted it keeps delegating to the contextual path.
func (s *Service) Next(ctx context.Context, sessionID string) string {
	unanswered := s.Unanswered(ctx, sessionID)
	if len(unanswered) > 0 {
		return unanswered[0].Question
	}
	return s.Contextual(ctx, sessionID)
}

// Contextual asks the model for one follow-up question derived from the
// accumulated transcript. Any failure degrades to FallbackQuestion.
func (s *Service) Contextual(ctx context.Context, sessionID string) string {
	if s.chain == nil {
		log.Printf("[planner] no chat model configured for contextual questions")
		return FallbackQuestion
	}

	response, err := s.chain.Invoke(ctx, map[string]any{
		"history": s.transcript(ctx, sessionID),
	})
	if err != nil {
		log.Printf("[planner] contextual question generation failed: %v", err)
		return FallbackQuestion
	}

	return extractQuestion(response.Content)
}

// transcript renders stored answers as alternating user/assistant turns,
// ordered by first submission time for a stable conversation.
func (s *Service) transcript(ctx context.Context, sessionID string) []*schema.Message {
	answers := s.store.Answers(ctx, sessionID)

	ordered := make([]intake.Answer, 0, len(answers))
	for _, a := range answers {
		ordered = append(ordered, a)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].Question < ordered[j].Question
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	history := make([]*schema.Message, 0, len(ordered)*2)
	for _, a := range ordered {
		history = append(history, schema.UserMessage(a.Question))
		history = append(history, schema.AssistantMessage(a.Answer, nil))
	}
	return history
}

// extractQuestion isolates a single question from a verbose model reply.
func extractQuestion(content string) string {
	question := strings.TrimSpace(content)
	if utf8.RuneCountInString(question) <= maxQuestionLength {
		return question
	}

	for _, sentence := range strings.Split(question, ".") {
		if strings.Contains(sentence, "?") {
			return strings.TrimSpace(sentence)
		}
	}

	runes := []rune(question)
	if len(runes) > maxQuestionLength {
		runes = runes[:maxQuestionLength]
	}
	return string(runes) + "..."
}
