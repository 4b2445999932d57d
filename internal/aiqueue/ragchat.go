package aiqueue

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/medibrief/api/internal/anonymize"
	"github.com/medibrief/api/internal/apperr"
	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/structuredinput"
)

// ChatService answers ad-hoc questions about a single patient synchronously,
// reusing the same anonymized context as the queued pipeline, but with no
// job, no queue, no event (§4.8 "RAG chat"). Chat calls are not checked
// against, and do not increment, the clinic's monthly AI-call quota.
type ChatService struct {
	builder *structuredinput.Builder
	caller  Caller
}

func NewChatService(builder *structuredinput.Builder, caller Caller) *ChatService {
	return &ChatService{builder: builder, caller: caller}
}

// Ask builds the patient's anonymized structured input and answers
// question from it alone. With no LLM provider configured, it returns a
// deterministic refusal rather than inventing an answer.
func (s *ChatService) Ask(ctx context.Context, tx pgx.Tx, patient *models.Patient, question string) (string, error) {
	input, err := s.builder.Build(ctx, tx, patient)
	if err != nil {
		return "", fmt.Errorf("build structured input: %w", err)
	}

	if s.caller == nil {
		return fallbackChatAnswer(input), nil
	}

	answer, err := s.caller.Complete(ctx, chatSystemPrompt, chatPrompt(input, question))
	if err != nil {
		return "", apperr.Unavailable("AI provider is temporarily unavailable")
	}
	return answer, nil
}

func chatPrompt(input *structuredinput.Input, question string) string {
	var b strings.Builder
	b.WriteString(chatUserPrompt(input, models.RiskFlags{}))
	fmt.Fprintf(&b, "\nQuestion: %s\n", anonymize.NormalizeSymptom(question))
	return b.String()
}

func fallbackChatAnswer(input *structuredinput.Input) string {
	return "No AI provider is configured, so this question cannot be answered automatically. " +
		"Review the patient's recorded vitals, labs, and consultation notes directly. " + Disclaimer
}
