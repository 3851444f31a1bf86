package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/lunarhue/promptii/backend/internal/config"
	"github.com/lunarhue/promptii/backend/internal/model/conversation"
)

// ErrAdapter covers every completion failure: the upstream call erroring as
// well as structurally invalid payloads. Callers surface one generic message
// for both so schema details never leak to the user.
var ErrAdapter = errors.New("completion adapter failure")

// Question is one clarifying question proposed by the model.
type Question struct {
	Field    string   `json:"field"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Adapter wraps the two completion backend operations. Both are single-shot:
// no retry, no streaming, treated as atomic by the orchestrator.
type Adapter interface {
	// ProposeQuestions asks the model for clarifying questions covering the
	// prompt structure fields the idea leaves open.
	ProposeQuestions(ctx context.Context, idea string) ([]Question, error)
	// ComposeArtifact generates the final professional prompt. An empty
	// answer set is a deliberate contract: the model infers everything.
	ComposeArtifact(ctx context.Context, idea string, answers conversation.AnswerSet) (string, error)
}

// Service implements Adapter on an eino chain backed by an Ark chat model.
type Service struct {
	questions compose.Runnable[map[string]any, *schema.Message]
	composer  compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the two prompt chains against the configured model.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	questions, err := compileChain(ctx, chatModel, prompt.FromMessages(
		schema.FString,
		schema.UserMessage("{request}"),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to compile question chain: %w", err)
	}

	composer, err := compileChain(ctx, chatModel, prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{request}"),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to compile composer chain: %w", err)
	}

	return &Service{questions: questions, composer: composer}, nil
}

func compileChain(ctx context.Context, chatModel model.ChatModel, tpl prompt.ChatTemplate) (compose.Runnable[map[string]any, *schema.Message], error) {
	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(tpl)
	chain.AppendChatModel(chatModel)
	return chain.Compile(ctx)
}

// ProposeQuestions implements Adapter.
func (s *Service) ProposeQuestions(ctx context.Context, idea string) ([]Question, error) {
	response, err := s.questions.Invoke(ctx, map[string]any{
		"request": buildQuestionRequest(idea),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAdapter, err)
	}

	qs, err := parseQuestions(response.Content)
	if err != nil {
		return nil, err
	}

	log.Printf("[ai] proposed %d clarifying questions", len(qs))
	return qs, nil
}

// ComposeArtifact implements Adapter.
func (s *Service) ComposeArtifact(ctx context.Context, idea string, answers conversation.AnswerSet) (string, error) {
	response, err := s.composer.Invoke(ctx, map[string]any{
		"system":  composerSystemPrompt,
		"request": buildComposeRequest(idea, answers),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAdapter, err)
	}

	text := strings.TrimSpace(response.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty artifact", ErrAdapter)
	}

	log.Printf("[ai] composed artifact, length=%d", len(text))
	return text, nil
}

// parseQuestions decodes and validates the model's JSON payload. Any
// structural defect, including a question without a field, rejects the whole
// batch; callers must not partially use a malformed set.
func parseQuestions(raw string) ([]Question, error) {
	var payload struct {
		Questions []Question `json:"questions"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding questions: %v", ErrAdapter, err)
	}
	if len(payload.Questions) == 0 {
		return nil, fmt.Errorf("%w: no questions in payload", ErrAdapter)
	}
	seen := make(map[string]bool, len(payload.Questions))
	for _, q := range payload.Questions {
		if q.Field == "" || q.Question == "" {
			return nil, fmt.Errorf("%w: question missing field or text", ErrAdapter)
		}
		if seen[q.Field] {
			return nil, fmt.Errorf("%w: duplicate question field %q", ErrAdapter, q.Field)
		}
		seen[q.Field] = true
	}
	return payload.Questions, nil
}

// stripCodeFence removes a surrounding markdown code fence, which some models
// add around JSON output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Unconfigured is the degraded adapter used when no model credentials are
// present. Every call fails with ErrAdapter so the orchestrator surfaces its
// normal failure message instead of crashing.
type Unconfigured struct{}

// ProposeQuestions implements Adapter.
func (Unconfigured) ProposeQuestions(context.Context, string) ([]Question, error) {
	return nil, fmt.Errorf("%w: model credentials not configured", ErrAdapter)
}

// ComposeArtifact implements Adapter.
func (Unconfigured) ComposeArtifact(context.Context, string, conversation.AnswerSet) (string, error) {
	return "", fmt.Errorf("%w: model credentials not configured", ErrAdapter)
}
