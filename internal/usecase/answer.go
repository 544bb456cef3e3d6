package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chatpdf/internal/domain"
	"chatpdf/internal/port"
)

var tracer = otel.Tracer("chatpdf/usecase")

// Answerer runs retrieve-then-generate over one vector index.
type Answerer struct {
	topK     int
	sampling domain.SamplingConfig
	timeout  time.Duration
	logger   *slog.Logger
}

func NewAnswerer(topK int, sampling domain.SamplingConfig, timeout time.Duration, logger *slog.Logger) *Answerer {
	if topK <= 0 {
		topK = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{
		topK:     topK,
		sampling: sampling,
		timeout:  timeout,
		logger:   logger.With("component", "answerer"),
	}
}

// Stuff puts the top-k chunks into one prompt and makes a single call.
func (a *Answerer) Stuff(ctx context.Context, llm port.LLM, ix port.VectorIndex, question string) (string, error) {
	ctx, span := tracer.Start(ctx, "answer.stuff", trace.WithAttributes(
		attribute.String("chatpdf.doc.id", ix.DocID()),
		attribute.String("chatpdf.model", llm.ModelName()),
	))
	defer span.End()

	chunks, err := a.retrieve(ctx, ix, question)
	if err != nil {
		recordSpanError(span, err)
		return "", err
	}
	span.SetAttributes(attribute.Int("chatpdf.chunks", len(chunks)))

	out, err := a.complete(ctx, llm, stuffPrompt(chunks, question))
	if err != nil {
		recordSpanError(span, err)
		return "", err
	}
	return out, nil
}

// Refine folds the top-k chunks into a draft answer one at a time, best
// match first. Each step costs one call and depends on the previous draft.
// With no chunks a single call is made with empty context.
func (a *Answerer) Refine(ctx context.Context, llm port.LLM, ix port.VectorIndex, question string) (string, error) {
	ctx, span := tracer.Start(ctx, "answer.refine", trace.WithAttributes(
		attribute.String("chatpdf.doc.id", ix.DocID()),
		attribute.String("chatpdf.model", llm.ModelName()),
	))
	defer span.End()

	chunks, err := a.retrieve(ctx, ix, question)
	if err != nil {
		recordSpanError(span, err)
		return "", err
	}
	span.SetAttributes(attribute.Int("chatpdf.chunks", len(chunks)))

	if len(chunks) == 0 {
		out, err := a.complete(ctx, llm, refineInitialPrompt("", question))
		if err != nil {
			recordSpanError(span, err)
		}
		return out, err
	}

	draft := ""
	for i, c := range chunks {
		var prompt string
		if i == 0 {
			prompt = refineInitialPrompt(c.Chunk.Text, question)
		} else {
			prompt = refineStepPrompt(question, draft, c.Chunk.Text)
		}
		next, err := a.complete(ctx, llm, prompt)
		if err != nil {
			recordSpanError(span, err)
			return "", fmt.Errorf("refine step %d of %d: %w", i+1, len(chunks), err)
		}
		draft = next
	}
	return draft, nil
}

func (a *Answerer) retrieve(ctx context.Context, ix port.VectorIndex, question string) ([]domain.ScoredChunk, error) {
	chunks, err := ix.Search(ctx, question, a.topK)
	if err != nil {
		if errors.Is(err, domain.ErrRetrievalFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrievalFailure, err)
	}
	return chunks, nil
}

// complete makes one bounded call. Errors, timeouts and blank completions
// are reported as ErrGenerationFailure.
func (a *Answerer) complete(ctx context.Context, llm port.LLM, prompt string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	out, err := llm.Complete(ctx, []domain.Message{{Role: domain.RoleUser, Content: prompt}}, a.sampling)
	if err != nil {
		a.logger.Error("llm call failed", "model", llm.ModelName(), "error", err)
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationFailure, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: empty completion", domain.ErrGenerationFailure)
	}
	return out, nil
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
