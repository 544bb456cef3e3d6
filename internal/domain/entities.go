package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Document is an uploaded PDF. ID is the storage path and never changes.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentHash string    `json:"content_hash"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// ExtractedText is the plain text of a document in page order.
type ExtractedText struct {
	Text  string
	Pages int
}

type Chunk struct {
	ID    string
	DocID string
	Index int
	Start int // rune offset into the document text
	End   int
	Text  string
}

type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Turn is one chat exchange. It serializes as a two element array
// [question, answer] so history files stay a plain list of pairs.
type Turn struct {
	Question string
	Answer   string
}

func (t Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{t.Question, t.Answer})
}

func (t *Turn) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("turn: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("turn: expected 2 elements, got %d", len(pair))
	}
	t.Question, t.Answer = pair[0], pair[1]
	return nil
}

// Field is one entry of the extraction schema.
type Field struct {
	Name     string
	Question string
}

type FieldValue struct {
	Name  string
	Value string
}

// Record is the result of one extraction run.
type Record struct {
	Name   string
	Fields []FieldValue
}

// Value returns the value extracted for the named field.
func (r Record) Value(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// MarshalJSON writes "name" first and then every field in schema order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	name, err := json.Marshal(r.Name)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"name":`)
	buf.Write(name)
	for _, f := range r.Fields {
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Message is a single chat message sent to a language model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SamplingConfig controls generation.
type SamplingConfig struct {
	Temperature float64
	MaxTokens   int
}
