package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"chatpdf/internal/domain"
)

// Store keeps uploaded PDFs, per-document history files and extraction
// records on any afs location. Plain local paths work as URLs.
type Store struct {
	fs        afs.Service
	uploadURL string
	outputURL string
}

func New(uploadURL, outputURL string) *Store {
	return &Store{
		fs:        afs.New(),
		uploadURL: uploadURL,
		outputURL: outputURL,
	}
}

// SaveUpload writes data under the upload location using the base of the
// client filename and returns the stored URL, which serves as document id.
func (s *Store) SaveUpload(ctx context.Context, filename string, data []byte) (string, error) {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("%w: empty filename", domain.ErrInvalidInput)
	}
	URL := url.Join(s.uploadURL, name)
	if err := s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("store upload %s: %w", name, err)
	}
	return URL, nil
}

func (s *Store) Read(ctx context.Context, URL string) ([]byte, error) {
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", URL, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", URL, domain.ErrNotFound)
	}
	return s.fs.DownloadWithURL(ctx, URL)
}

// HistoryURL returns the location of the history file of docID.
func HistoryURL(docID string) string {
	return docID + ".history"
}

func (s *Store) LoadHistory(ctx context.Context, docID string) ([]domain.Turn, error) {
	URL := HistoryURL(docID)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("stat history %s: %w", URL, err)
	}
	if !exists {
		return nil, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", URL, err)
	}
	var turns []domain.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", URL, err)
	}
	return turns, nil
}

// SaveHistory replaces the whole history file.
func (s *Store) SaveHistory(ctx context.Context, docID string, turns []domain.Turn) error {
	if turns == nil {
		turns = []domain.Turn{}
	}
	data, err := json.Marshal(turns)
	if err != nil {
		return err
	}
	return s.fs.Upload(ctx, HistoryURL(docID), file.DefaultFileOsMode, bytes.NewReader(data))
}

func (s *Store) DeleteHistory(ctx context.Context, docID string) error {
	URL := HistoryURL(docID)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("stat history %s: %w", URL, err)
	}
	if !exists {
		return nil
	}
	return s.fs.Delete(ctx, URL)
}

// RecordURL returns where the record for a document display name is written.
func (s *Store) RecordURL(name string) string {
	base := path.Base(name)
	base = strings.TrimSuffix(base, path.Ext(base))
	return url.Join(s.outputURL, base+".json")
}

// WriteRecord overwrites the extraction artifact of rec.Name.
func (s *Store) WriteRecord(ctx context.Context, rec domain.Record) (string, error) {
	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return "", err
	}
	URL := s.RecordURL(rec.Name)
	if err := s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("write record %s: %w", URL, err)
	}
	return URL, nil
}
