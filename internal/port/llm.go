package port

import (
	"context"

	"chatpdf/internal/domain"
)

// LLM represents a chat completion model.
type LLM interface {
	// Complete sends messages and returns the completion text.
	Complete(ctx context.Context, messages []domain.Message, cfg domain.SamplingConfig) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}

// LLMFactory creates a client bound to one model.
type LLMFactory func(model string) (LLM, error)
