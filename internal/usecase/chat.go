package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"chatpdf/internal/domain"
	"chatpdf/internal/metrics"
)

// ChatUseCase answers free-form messages about one document with the
// running conversation as part of the prompt.
type ChatUseCase struct {
	session  *Session
	ingest   *IngestUseCase
	answerer *Answerer
	convs    *Conversations
	minChars int
	logger   *slog.Logger
}

func NewChatUseCase(session *Session, ingest *IngestUseCase, answerer *Answerer, convs *Conversations, logger *slog.Logger) *ChatUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatUseCase{
		session:  session,
		ingest:   ingest,
		answerer: answerer,
		convs:    convs,
		minChars: session.Config().Retrieve.MinResponseChars,
		logger:   logger.With("component", "chat"),
	}
}

// Respond answers message in refine mode and appends the turn to the
// document's history. Failures are returned and nothing is appended.
func (u *ChatUseCase) Respond(ctx context.Context, ref, message string) (answer string, err error) {
	defer func() { metrics.ChatTurns.WithLabelValues(metrics.Result(err)).Inc() }()

	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("%w: empty message", domain.ErrInvalidInput)
	}

	requestID := uuid.NewString()
	logger := u.logger.With("request_id", requestID, "doc", ref)

	ix, doc, err := u.ingest.Index(ctx, ref)
	if err != nil {
		logger.Error("index unavailable", "error", err)
		return "", err
	}
	llm, err := u.session.LLM()
	if err != nil {
		return "", err
	}
	logger = logger.With("model", llm.ModelName())

	turn, err := u.convs.Exchange(ctx, doc.ID, func(history []domain.Turn) (domain.Turn, error) {
		prompt := ChatPrompt(history, message)
		if u.minChars > 0 {
			prompt = fmt.Sprintf(minLengthTemplate, u.minChars, prompt)
		}
		out, err := u.answerer.Refine(ctx, llm, ix, prompt)
		if err != nil {
			return domain.Turn{}, err
		}
		return domain.Turn{Question: message, Answer: out}, nil
	})
	if err != nil {
		logger.Error("chat turn failed", "error", err)
		return "", err
	}

	logger.Info("chat turn answered", "answer_chars", len(turn.Answer))
	return turn.Answer, nil
}

func (u *ChatUseCase) History(ctx context.Context, ref string) ([]domain.Turn, error) {
	doc, err := u.ingest.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return u.convs.Load(ctx, doc.ID)
}

func (u *ChatUseCase) Clear(ctx context.Context, ref string) error {
	doc, err := u.ingest.Resolve(ref)
	if err != nil {
		return err
	}
	return u.convs.Clear(ctx, doc.ID)
}
