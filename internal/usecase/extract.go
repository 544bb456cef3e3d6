package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"chatpdf/internal/domain"
	"chatpdf/internal/metrics"
	"chatpdf/internal/port"
)

// DefaultFields is the extraction schema in output order.
var DefaultFields = []domain.Field{
	{Name: "CO2", Question: "Answer this question with ONLY a single float value and NO refined Answer: What is the latest CO2 emissions in tons/annum? IMPORTANT: The number is explicitly mentioned in the report!"},
	{Name: "NOX", Question: "Answer this question with ONLY a single float value and NO refined Answer: What is the latest NOX emissions in tons/annum?"},
	{Name: "Number_of_Electric_Vehicles", Question: "Answer this question with ONLY a single integer value, NO WORDS OR DIGITS: How many electric vehicles are mentioned? (if not mentioned in the text write '0')"},
	{Name: "Impact", Question: "Summarize the negative impact on climate change addressed in the report. IMPORTANT: Answer in min 20 and max 50 Words"},
	{Name: "Risks", Question: "What are the material risks related to climate change? IMPORTANT: Answer in min 20 and max 50 Words"},
	{Name: "Opportunities", Question: "Summarize the financial materiality related to climate change. IMPORTANT: Answer in min 20 and max 50 Words"},
	{Name: "Strategy", Question: "Describe the company's strategy and business model for a sustainable economy. IMPORTANT: Answer in min 20 and max 50 Words"},
	{Name: "Actions", Question: "What actions and resources are mentioned in relation to sustainability? IMPORTANT: Answer in min 20 and max 50 Words"},
	{Name: "Adopted_policies", Question: "What policies has the company adopted for sustainability? IMPORTANT: Answer in min 20 and max 50 Words"},
	{Name: "Targets", Question: "What are the company's goals for a sustainable economy? IMPORTANT: Answer in min 20 and max 50 Words"},
}

// FieldProgress is called after each field finishes.
type FieldProgress func(field string, done, total int)

// ExtractUseCase fills the field schema for one document.
type ExtractUseCase struct {
	session     *Session
	ingest      *IngestUseCase
	answerer    *Answerer
	writer      port.RecordWriter
	fields      []domain.Field
	concurrency int
	logger      *slog.Logger
}

func NewExtractUseCase(session *Session, ingest *IngestUseCase, answerer *Answerer, writer port.RecordWriter, logger *slog.Logger) *ExtractUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	n := session.Config().Extract.Concurrency
	if n <= 0 {
		n = 1
	}
	return &ExtractUseCase{
		session:     session,
		ingest:      ingest,
		answerer:    answerer,
		writer:      writer,
		fields:      DefaultFields,
		concurrency: n,
		logger:      logger.With("component", "extract"),
	}
}

func (u *ExtractUseCase) Fields() []domain.Field {
	out := make([]domain.Field, len(u.fields))
	copy(out, u.fields)
	return out
}

// ExtractResult is a completed and persisted record.
type ExtractResult struct {
	Record   domain.Record
	Location string
	Missing  int
}

// ExtractAll answers every field in stuff mode against the document's
// cached index. A failing field gets domain.ValueNotFound; the record is
// written only after all fields finish.
func (u *ExtractUseCase) ExtractAll(ctx context.Context, ref string, progress FieldProgress) (*ExtractResult, error) {
	requestID := uuid.NewString()
	logger := u.logger.With("request_id", requestID, "doc", ref)

	ix, doc, err := u.ingest.Index(ctx, ref)
	if err != nil {
		logger.Error("index unavailable", "error", err)
		return nil, err
	}
	llm, err := u.session.LLM()
	if err != nil {
		return nil, err
	}
	logger = logger.With("model", llm.ModelName())

	values := make([]domain.FieldValue, len(u.fields))
	var (
		mu      sync.Mutex
		done    int
		missing int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for i, f := range u.fields {
		i, f := i, f
		g.Go(func() error {
			value, err := u.answerer.Stuff(gctx, llm, ix, fmt.Sprintf(extractTemplate, f.Question))
			outcome := "ok"
			if err != nil {
				logger.Warn("field not extracted", "field", f.Name, "error", err)
				value = domain.ValueNotFound
				outcome = "not_found"
			}
			metrics.ExtractionFields.WithLabelValues(f.Name, outcome).Inc()

			mu.Lock()
			values[i] = domain.FieldValue{Name: f.Name, Value: value}
			done++
			if err != nil {
				missing++
			}
			n := done
			mu.Unlock()

			if progress != nil {
				progress(f.Name, n, len(u.fields))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extraction of %s interrupted: %w", doc.Name, err)
	}

	rec := domain.Record{Name: doc.Name, Fields: values}
	location, err := u.writer.WriteRecord(ctx, rec)
	if err != nil {
		return nil, err
	}

	logger.Info("record written", "location", location, "missing", missing)
	return &ExtractResult{Record: rec, Location: location, Missing: missing}, nil
}
