// Package proposal turns a session's validated answers into a narrative
// document via the configured chat model, either as one response or as a
// token stream.
package proposal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/quillforge/proposalgen/internal/model/intake"
	"github.com/quillforge/proposalgen/internal/store"
)

var (
	ErrModelUnavailable = errors.New("no chat model configured for proposal generation")
	ErrSessionNotFound  = errors.New("session not found")
)

// Result is a generated document plus synthesis metadata.
type Result struct {
	Proposal  string         `json:"proposal"`
	Format    string         `json:"format"`
	SessionID string         `json:"sessionId"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Service generates proposals from session answers.
type Service struct {
	store store.SessionStore
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the synthesis chain. A nil chat model yields a
// disabled service; Generate and Stream return ErrModelUnavailable.
func NewService(ctx context.Context, sessions store.SessionStore, chatModel model.BaseChatModel) (*Service, error) {
	svc := &Service{store: sessions}

	if chatModel != nil {
		promptTemplate := prompt.FromMessages(
			schema.FString,
			schema.SystemMessage("{instructions}"),
			schema.UserMessage("{query}"),
		)

		chain := compose.NewChain[map[string]any, *schema.Message]()
		chain.AppendChatTemplate(promptTemplate)
		chain.AppendChatModel(chatModel)

		runnable, err := chain.Compile(ctx)
		if err != nil {
			return nil, fmt.Errorf("compile proposal chain: %w", err)
		}
		svc.chain = runnable
	}

	return svc, nil
}

// Enabled reports whether a chat model backs the service.
func (s *Service) Enabled() bool {
	return s != nil && s.chain != nil
}

// Generate produces the full document in one call.
func (s *Service) Generate(ctx context.Context, sessionID, format string) (Result, error) {
	input, format, count, err := s.buildInput(ctx, sessionID, format)
	if err != nil {
		return Result{}, err
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return Result{}, fmt.Errorf("generate proposal: %w", err)
	}

	log.Printf("[proposal] generated %s proposal for session=%s, length=%d", format, sessionID, len(response.Content))
	return Result{
		Proposal:  response.Content,
		Format:    format,
		SessionID: sessionID,
		Metadata: map[string]any{
			"answerCount": count,
			"generatedAt": time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

// Stream produces the document as incremental chunks.
func (s *Service) Stream(ctx context.Context, sessionID, format string) (*schema.StreamReader[*schema.Message], error) {
	input, _, _, err := s.buildInput(ctx, sessionID, format)
	if err != nil {
		return nil, err
	}

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("stream proposal: %w", err)
	}
	return stream, nil
}

func (s *Service) buildInput(ctx context.Context, sessionID, format string) (map[string]any, string, int, error) {
	if !s.Enabled() {
		return nil, "", 0, ErrModelUnavailable
	}

	session, ok := s.store.Get(ctx, sessionID)
	if !ok {
		return nil, "", 0, ErrSessionNotFound
	}

	format = NormalizeFormat(format)
	instructions := fmt.Sprintf(templates[format], renderRequirements(session.Answers))
	query := fmt.Sprintf("Generate a comprehensive %s proposal based on the provided answers. Ensure it's at least a full page in length with detailed sections.", format)

	return map[string]any{
		"instructions": instructions,
		"query":        query,
	}, format, len(session.Answers), nil
}

// renderRequirements lists the Q&A pairs ordered by first submission time so
// repeated generations see the same prompt.
func renderRequirements(answers map[string]intake.Answer) string {
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

	var b strings.Builder
	for _, a := range ordered {
		fmt.Fprintf(&b, "- %s: %s\n", a.Question, a.Answer)
	}
	return b.String()
}
