package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/quillforge/proposalgen/internal/model/intake"
)

const evaluatorSystemPrompt = `You review answers collected for a project proposal.
Judge whether the answer is a plausible, faithful response to the question it was given for.
Respond with a single JSON object holding two fields: "pass", a boolean verdict,
and "reason", a short explanation. Do not add any other text.`

const evaluatorUserPrompt = `Question: {question}
Answer: {answer}`

// Evaluator runs the optional LLM plausibility pass. It is advisory: any
// evaluator failure counts as a pass with a warning annotation, and a
// negative verdict is returned to the caller rather than raised.
type Evaluator struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewEvaluator compiles the judging chain. A nil chat model yields a
// disabled evaluator whose Check always passes.
func NewEvaluator(ctx context.Context, chatModel model.BaseChatModel) (*Evaluator, error) {
	if chatModel == nil {
		return &Evaluator{}, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(evaluatorSystemPrompt),
		schema.UserMessage(evaluatorUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile evaluator chain: %w", err)
	}

	return &Evaluator{chain: runnable}, nil
}

// Enabled reports whether a chat model backs the evaluator.
func (e *Evaluator) Enabled() bool {
	return e != nil && e.chain != nil
}

type verdict struct {
	Pass   bool   `json:"pass"`
	Reason string `json:"reason"`
}

// Check asks the model whether the answer plausibly responds to its
// question. It returns (false, reason) only on a clean negative verdict;
// every failure mode passes, annotated with a warning.
func (e *Evaluator) Check(ctx context.Context, answer intake.Answer) (bool, string) {
	if !e.Enabled() {
		return true, ""
	}

	response, err := e.chain.Invoke(ctx, map[string]any{
		"question": answer.Question,
		"answer":   answer.Answer,
	})
	if err != nil {
		log.Printf("[validation] plausibility check failed: %v", err)
		return true, fmt.Sprintf("plausibility check error: %v", err)
	}

	v, err := parseVerdict(response.Content)
	if err != nil {
		log.Printf("[validation] unparseable plausibility verdict: %v", err)
		return true, fmt.Sprintf("plausibility verdict unparseable: %v", err)
	}

	if !v.Pass {
		return false, v.Reason
	}
	return true, ""
}

func parseVerdict(content string) (verdict, error) {
	cleaned := strings.TrimSpace(content)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var v verdict
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return verdict{}, err
	}
	return v, nil
}
