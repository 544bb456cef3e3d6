package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatpdf/internal/domain"
)

func TestSetModel(t *testing.T) {
	h := newHarness(t, echoLLM)

	assert.Equal(t, "meta-llama-3-70b-instruct", h.session.Model())
	assert.ErrorIs(t, h.session.SetModel("gpt-2"), domain.ErrUnknownModel)
	assert.Equal(t, "meta-llama-3-70b-instruct", h.session.Model())

	require.NoError(t, h.session.SetModel("mixtral-8x7b-instruct"))
	llm, err := h.session.LLM()
	require.NoError(t, err)
	assert.Equal(t, "mixtral-8x7b-instruct", llm.ModelName())

	again, err := h.session.LLM()
	require.NoError(t, err)
	assert.Same(t, llm, again, "clients are reused per model")
}

func TestModelSwitchDoesNotRewriteThePast(t *testing.T) {
	h := newHarness(t, echoLLM)
	doc := h.upload(t, "report.pdf", "Emissions data and targets.")
	ctx := context.Background()

	before, err := h.extract.ExtractAll(ctx, doc.ID, nil)
	require.NoError(t, err)
	_, err = h.chat.Respond(ctx, doc.ID, "hello")
	require.NoError(t, err)

	recordBefore := domain.Record{Name: before.Record.Name, Fields: append([]domain.FieldValue(nil), before.Record.Fields...)}
	historyBefore, err := h.chat.History(ctx, doc.ID)
	require.NoError(t, err)

	require.NoError(t, h.session.SetModel("mixtral-8x7b-instruct"))

	after, err := h.extract.ExtractAll(ctx, doc.ID, nil)
	require.NoError(t, err)
	_, err = h.chat.Respond(ctx, doc.ID, "again")
	require.NoError(t, err)

	assert.Equal(t, recordBefore, before.Record)
	co2Before, _ := before.Record.Value("CO2")
	co2After, _ := after.Record.Value("CO2")
	assert.Equal(t, "[meta-llama-3-70b-instruct] answer", co2Before)
	assert.Equal(t, "[mixtral-8x7b-instruct] answer", co2After)

	history, err := h.chat.History(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, historyBefore[0], history[0])
	assert.Equal(t, "[mixtral-8x7b-instruct] answer", history[1].Answer)
}

func TestConcurrentModelReadsAndWrites(t *testing.T) {
	h := newHarness(t, echoLLM)
	models := h.session.Models()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.session.SetModel(models[i%len(models)]))
		}()
		go func() {
			defer wg.Done()
			llm, err := h.session.LLM()
			assert.NoError(t, err)
			assert.Contains(t, models, llm.ModelName())
		}()
	}
	wg.Wait()
}
