package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/certlab/studyguide/internal/curriculum"
)

// ErrNotConfigured is returned by every Tutor operation when no AI
// provider credentials were supplied. Callers surface this as a distinct
// "AI disabled" condition instead of an attempted-and-failed request.
var ErrNotConfigured = errors.New("ai: no provider configured")

// Fallback texts substituted for empty upstream payloads.
const (
	FallbackAnswer   = "I'm sorry, I couldn't process that query."
	FallbackScenario = "Could not generate scenario."
)

const (
	quizQuestionCount = 3
	quizOptionCount   = 4
	defaultTimeout    = 30 * time.Second
)

// quizPayloadSchema is the JSON Schema the upstream quiz payload is
// validated against before it is trusted as []curriculum.QuizQuestion.
const quizPayloadSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"question": {"type": "string"},
			"options": {"type": "array", "items": {"type": "string"}, "minItems": 2},
			"correctAnswer": {"type": "integer", "minimum": 0},
			"explanation": {"type": "string"}
		},
		"required": ["question", "options", "correctAnswer", "explanation"]
	}
}`

// quizResponseSchema is the structured-output descriptor sent upstream.
var quizResponseSchema = &Schema{
	Type: "array",
	Items: &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"question":      {Type: "string"},
			"options":       {Type: "array", Items: &Schema{Type: "string"}},
			"correctAnswer": {Type: "integer", Description: "0-indexed index of the correct option"},
			"explanation":   {Type: "string"},
		},
		Required: []string{"question", "options", "correctAnswer", "explanation"},
	},
}

// Tutor is the study-guide's AI gateway. It exposes the three operations
// the view layer needs — free-form questions, quiz generation and scenario
// generation — and normalizes every upstream failure at this boundary.
type Tutor struct {
	router  *Router
	model   string
	timeout time.Duration
}

// TutorOption configures a Tutor.
type TutorOption func(*Tutor)

// WithModel sets the model id requested from providers.
func WithModel(model string) TutorOption {
	return func(t *Tutor) {
		t.model = model
	}
}

// WithTimeout sets the per-request client-side timeout.
func WithTimeout(d time.Duration) TutorOption {
	return func(t *Tutor) {
		t.timeout = d
	}
}

// NewTutor creates a Tutor over the given provider router. A nil or empty
// router yields a tutor whose operations all return ErrNotConfigured.
func NewTutor(router *Router, opts ...TutorOption) *Tutor {
	t := &Tutor{
		router:  router,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Enabled reports whether at least one provider is available.
func (t *Tutor) Enabled() bool {
	return t.router != nil && t.router.HasProvider()
}

// AskQuestion answers a free-form study question grounded in the given
// context string (typically the current module title). An empty upstream
// payload is replaced with FallbackAnswer; transport failures are returned
// as errors, never as a silently empty success.
func (t *Tutor) AskQuestion(ctx context.Context, query, studyContext string) (string, error) {
	if !t.Enabled() {
		return "", ErrNotConfigured
	}
	if studyContext == "" {
		studyContext = "IT-certification exam preparation"
	}

	prompt := fmt.Sprintf(`You are a certified expert assistant helping a student prepare for an IT-certification exam.
User Query: %q
Current Study Context: %q
Provide a professional, technical, and helpful answer. Use Markdown formatting. If the answer involves paths or commands, use code blocks.`, query, studyContext)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.router.Complete(ctx, CompletionRequest{
		Messages: []Message{{Role: "user", Content: prompt}},
		Model:    t.model,
	})
	if err != nil {
		return "", fmt.Errorf("ask question: %w", err)
	}

	if strings.TrimSpace(resp.Content) == "" {
		return FallbackAnswer, nil
	}
	return resp.Content, nil
}

// GenerateQuiz produces practice questions grounded in the module's
// aggregated content. The upstream payload is schema-validated; a payload
// that fails to parse or validate yields an empty slice with a nil error
// (soft failure) so the caller can fall back to static content. Transport
// failures are returned as errors.
func (t *Tutor) GenerateQuiz(ctx context.Context, moduleTitle, content string) ([]curriculum.QuizQuestion, error) {
	if !t.Enabled() {
		return nil, ErrNotConfigured
	}

	prompt := fmt.Sprintf(`Based on this %q certification module content: %q, generate %d high-quality multiple choice practice questions, each with exactly %d options.
Return the response in valid JSON.`, moduleTitle, content, quizQuestionCount, quizOptionCount)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.router.Complete(ctx, CompletionRequest{
		Messages:       []Message{{Role: "user", Content: prompt}},
		Model:          t.model,
		ResponseSchema: quizResponseSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}

	return parseQuizPayload(resp.Content), nil
}

// parseQuizPayload validates and decodes a quiz payload. Any malformation
// degrades to an empty slice; individually invalid questions are excluded.
func parseQuizPayload(payload string) []curriculum.QuizQuestion {
	payload = stripCodeFences(payload)
	if strings.TrimSpace(payload) == "" {
		return []curriculum.QuizQuestion{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(quizPayloadSchema),
		gojsonschema.NewStringLoader(payload),
	)
	if err != nil {
		slog.Warn("quiz payload is not valid JSON", "error", err)
		return []curriculum.QuizQuestion{}
	}
	if !result.Valid() {
		slog.Warn("quiz payload failed schema validation", "errors", result.Errors())
		return []curriculum.QuizQuestion{}
	}

	var questions []curriculum.QuizQuestion
	if err := json.Unmarshal([]byte(payload), &questions); err != nil {
		slog.Warn("quiz payload failed to decode", "error", err)
		return []curriculum.QuizQuestion{}
	}

	valid := make([]curriculum.QuizQuestion, 0, len(questions))
	for _, q := range questions {
		if !q.Valid() {
			slog.Warn("dropping quiz question with out-of-range answer index",
				"question", q.Question,
				"options", len(q.Options),
				"correct_answer", q.CorrectAnswer,
			)
			continue
		}
		valid = append(valid, q)
	}
	return valid
}

// GenerateScenario produces a practical troubleshooting narrative for a
// module: an overview, a problem statement, guiding questions, then a
// section introduced by the literal marker "Resolution". The marker's
// presence is not enforced here; the caller splits on it and treats its
// absence as overview-only. Empty upstream payloads are replaced with
// FallbackScenario; transport failures are returned as errors.
func (t *Tutor) GenerateScenario(ctx context.Context, moduleTitle string) (string, error) {
	if !t.Enabled() {
		return "", ErrNotConfigured
	}

	prompt := fmt.Sprintf(`Generate a practical "Troubleshooting Scenario" or "Case Study" for an administrator, related to %s.
Describe a problem, ask 2-3 guiding questions, and then provide a "Resolution" section.
Format with nice Markdown headings.`, moduleTitle)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.router.Complete(ctx, CompletionRequest{
		Messages: []Message{{Role: "user", Content: prompt}},
		Model:    t.model,
	})
	if err != nil {
		return "", fmt.Errorf("generate scenario: %w", err)
	}

	if strings.TrimSpace(resp.Content) == "" {
		return FallbackScenario, nil
	}
	return resp.Content, nil
}

// stripCodeFences removes a surrounding markdown code fence, which some
// models emit around JSON even when asked for a raw payload.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
