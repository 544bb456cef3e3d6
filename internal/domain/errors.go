package domain

import "errors"

var (
	// ErrUnreadableDocument indicates a PDF that cannot be parsed or decrypted.
	// Ingestion continues with empty text.
	ErrUnreadableDocument = errors.New("unreadable document")

	// ErrDependencyMissing indicates the PDF needs a decoder this build does not have.
	ErrDependencyMissing = errors.New("decoding dependency missing")

	// ErrEmptyDocument indicates a document that produced zero chunks.
	ErrEmptyDocument = errors.New("empty document")

	// ErrRetrievalFailure wraps embedding and vector search errors.
	ErrRetrievalFailure = errors.New("retrieval failure")

	// ErrGenerationFailure wraps LLM errors and empty completions.
	ErrGenerationFailure = errors.New("generation failure")

	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnknownModel = errors.New("unknown model")
)

// ValueNotFound is substituted for an extraction field that failed.
const ValueNotFound = "Value not found"

// IsDegraded reports whether err is a document-level condition that
// ingestion absorbs rather than returns.
func IsDegraded(err error) bool {
	return errors.Is(err, ErrUnreadableDocument) ||
		errors.Is(err, ErrDependencyMissing) ||
		errors.Is(err, ErrEmptyDocument)
}
