package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"chatpdf/internal/domain"
)

// Extractor reads the plain text of a PDF page by page.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger.With("component", "pdf")}
}

// Extract returns the concatenated text of all pages. Documents that cannot
// be opened yield an empty result together with ErrUnreadableDocument or
// ErrDependencyMissing; callers are expected to continue with the empty text.
func (e *Extractor) Extract(ctx context.Context, data []byte) (out domain.ExtractedText, err error) {
	if len(data) == 0 {
		return domain.ExtractedText{}, fmt.Errorf("%w: no content", domain.ErrUnreadableDocument)
	}

	defer func() {
		if r := recover(); r != nil {
			out = domain.ExtractedText{}
			err = classifyPanic(r)
		}
	}()

	// NewReader tries the empty password for encrypted files.
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return domain.ExtractedText{}, classify(err)
	}

	pages := r.NumPage()
	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return domain.ExtractedText{}, err
		}
		text, perr := pageText(r, i)
		if perr != nil {
			e.logger.Warn("skipping unreadable page", "page", i, "error", perr)
			continue
		}
		sb.WriteString(text)
	}

	return domain.ExtractedText{Text: sb.String(), Pages: pages}, nil
}

func pageText(r *pdf.Reader, i int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("page %d: %v", i, rec)
		}
	}()
	p := r.Page(i)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

func classify(err error) error {
	if errors.Is(err, pdf.ErrInvalidPassword) {
		return fmt.Errorf("%w: %v", domain.ErrUnreadableDocument, err)
	}
	if strings.Contains(err.Error(), "unsupported") {
		return fmt.Errorf("%w: %v", domain.ErrDependencyMissing, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrUnreadableDocument, err)
}

func classifyPanic(r any) error {
	msg := fmt.Sprint(r)
	if strings.Contains(msg, "unsupported") {
		return fmt.Errorf("%w: %s", domain.ErrDependencyMissing, msg)
	}
	return fmt.Errorf("%w: %s", domain.ErrUnreadableDocument, msg)
}
