package domain

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnJSONIsPair(t *testing.T) {
	turns := []Turn{{Question: "q1", Answer: "a1"}, {Question: "q2", Answer: "a2"}}

	data, err := json.Marshal(turns)
	require.NoError(t, err)
	assert.JSONEq(t, `[["q1","a1"],["q2","a2"]]`, string(data))

	var back []Turn
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, turns, back)
}

func TestTurnUnmarshalRejectsWrongArity(t *testing.T) {
	var turn Turn
	err := json.Unmarshal([]byte(`["only one"]`), &turn)
	assert.Error(t, err)
}

func TestRecordKeepsFieldOrder(t *testing.T) {
	rec := Record{
		Name: "report.pdf",
		Fields: []FieldValue{
			{Name: "NOX", Value: "1"},
			{Name: "CO2", Value: "2"},
			{Name: "Actions", Value: "text"},
		},
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"report.pdf","NOX":"1","CO2":"2","Actions":"text"}`, string(data))

	v, ok := rec.Value("CO2")
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	_, ok = rec.Value("missing")
	assert.False(t, ok)
}

func TestIsDegraded(t *testing.T) {
	assert.True(t, IsDegraded(fmt.Errorf("wrap: %w", ErrUnreadableDocument)))
	assert.True(t, IsDegraded(ErrDependencyMissing))
	assert.True(t, IsDegraded(ErrEmptyDocument))
	assert.False(t, IsDegraded(ErrGenerationFailure))
	assert.False(t, IsDegraded(nil))
}
