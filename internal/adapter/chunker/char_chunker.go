package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"chatpdf/internal/domain"
)

// CharChunker splits text into windows of at most size characters. Each
// window after the first starts overlap characters before the end of the
// previous one.
type CharChunker struct {
	size    int
	overlap int
}

func NewCharChunker(size, overlap int) *CharChunker {
	if size <= 0 {
		size = 2000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 10
	}
	return &CharChunker{size: size, overlap: overlap}
}

func (c *CharChunker) Size() int    { return c.size }
func (c *CharChunker) Overlap() int { return c.overlap }

// Split returns the chunk strings. Empty text yields no chunks.
func (c *CharChunker) Split(text string) []string {
	runes := []rune(text)
	spans := c.spans(runes)
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = string(runes[s[0]:s[1]])
	}
	return out
}

func (c *CharChunker) Chunk(docID, text string) []domain.Chunk {
	runes := []rune(text)
	spans := c.spans(runes)
	chunks := make([]domain.Chunk, 0, len(spans))
	for i, s := range spans {
		chunks = append(chunks, domain.Chunk{
			ID:    generateChunkID(docID, s[0], s[1]),
			DocID: docID,
			Index: i,
			Start: s[0],
			End:   s[1],
			Text:  string(runes[s[0]:s[1]]),
		})
	}
	return chunks
}

func (c *CharChunker) spans(runes []rune) [][2]int {
	n := len(runes)
	if n == 0 {
		return nil
	}
	stride := c.size - c.overlap
	var spans [][2]int
	for start := 0; ; start += stride {
		end := start + c.size
		if end > n {
			end = n
		}
		spans = append(spans, [2]int{start, end})
		if end == n {
			break
		}
	}
	return spans
}

// Join reverses Split by dropping the shared prefix of every chunk after the first.
func Join(chunks []string, overlap int) string {
	if len(chunks) == 0 {
		return ""
	}
	out := []rune(chunks[0])
	for _, ch := range chunks[1:] {
		r := []rune(ch)
		if overlap < len(r) {
			out = append(out, r[overlap:]...)
		}
	}
	return string(out)
}

func generateChunkID(docID string, start, end int) string {
	data := fmt.Sprintf("%s:%d-%d", docID, start, end)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
