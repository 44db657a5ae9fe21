// Package chunker splits page text into overlapping, bounded-size
// passages suitable for retrieval indexing.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/quire/internal/core/domain"
)

// DefaultMaxSize is the default maximum passage size in bytes.
const DefaultMaxSize = 1000

// DefaultOverlap is the default overlap between consecutive passages.
const DefaultOverlap = 200

// DefaultMinSize is the default minimum size a buffer must reach
// before it may be sealed.
const DefaultMinSize = 100

// maxSectionLabelLen bounds how long a first line may be to still be
// considered a section header.
const maxSectionLabelLen = 80

var numberedHeading = regexp.MustCompile(`^(\d+|[IVXLCDM]+)\.\s`)

// Chunker accumulates sentences into passages. Consecutive passages
// within a page share an overlap region so no sentence is truncated
// without context on both sides.
type Chunker struct {
	maxSize int
	overlap int
	minSize int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxSize sets the maximum passage size in bytes.
func WithMaxSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.maxSize = size
		}
	}
}

// WithOverlap sets the overlap size in bytes.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithMinSize sets the minimum size a buffer must reach before it may
// be sealed.
func WithMinSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.minSize = size
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxSize: DefaultMaxSize,
		overlap: DefaultOverlap,
		minSize: DefaultMinSize,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room for new content in every passage.
	if c.overlap >= c.maxSize {
		c.overlap = c.maxSize / 4
	}
	if c.minSize > c.maxSize {
		c.minSize = c.maxSize
	}

	return c
}

// ChunkPages chunks every page of a document in order.
func (c *Chunker) ChunkPages(docID, docName string, pages []domain.Page) []domain.Passage {
	var passages []domain.Passage
	for _, page := range pages {
		passages = append(passages, c.ChunkPage(docID, docName, page)...)
	}
	return passages
}

// ChunkPage splits one page's text into passages.
//
// Sentences are accumulated greedily; the buffer is sealed when the
// next sentence would push it past the maximum size and it already
// meets the minimum. A sealed passage seeds the next buffer with its
// overlap tail, trimmed back to the nearest sentence boundary inside
// the tail. The final buffer is always sealed regardless of minimum.
func (c *Chunker) ChunkPage(docID, docName string, page domain.Page) []domain.Passage {
	if strings.TrimSpace(page.Text) == "" {
		return nil
	}

	sentences := splitSentences(page.Text)
	if len(sentences) == 0 {
		return nil
	}

	var passages []domain.Passage

	buf := ""
	seedLen := 0   // leading overlap bytes in buf
	coreStart := 0 // page offset where buf's own (non-overlap) text begins

	seal := func() {
		coreLen := len(buf) - seedLen
		passages = append(passages, c.newPassage(
			docID, docName, page.Number, len(passages),
			buf, coreStart-seedLen, coreStart+coreLen,
		))
		seed := c.overlapTail(buf)
		coreStart += coreLen
		buf = seed
		seedLen = len(seed)
	}

	for _, s := range sentences {
		// Seal only when the buffer holds content of its own beyond
		// the overlap seed, so a passage is never pure duplication.
		if len(buf) > seedLen && len(buf)+len(s) > c.maxSize && len(buf) >= c.minSize {
			seal()
		}
		buf += s
	}
	if len(buf) > seedLen {
		seal()
	}

	return passages
}

func (c *Chunker) newPassage(docID, docName string, pageNum, seq int, text string, start, end int) domain.Passage {
	return domain.Passage{
		ID:           fmt.Sprintf("%s-page%d-chunk%d", docID, pageNum, seq),
		DocumentID:   docID,
		DocumentName: docName,
		Page:         pageNum,
		Text:         text,
		Start:        start,
		End:          end,
		WordCount:    len(strings.Fields(text)),
		Section:      sectionLabel(text),
	}
}

// overlapTail returns the trailing slice of sealed text to seed the
// next buffer with, trimmed back to the nearest preceding sentence
// boundary when one exists inside the slice so a sentence is never
// duplicated from its middle.
func (c *Chunker) overlapTail(sealed string) string {
	if c.overlap <= 0 || len(sealed) <= c.overlap {
		if c.overlap <= 0 {
			return ""
		}
		return trimToBoundary(sealed)
	}

	cut := len(sealed) - c.overlap
	for cut < len(sealed) && !utf8.RuneStart(sealed[cut]) {
		cut++
	}
	return trimToBoundary(sealed[cut:])
}

func trimToBoundary(tail string) string {
	if idx := strings.IndexAny(tail, ".!?"); idx >= 0 {
		end := idx + 1
		for end < len(tail) && isTerminal(tail[end]) {
			end++
		}
		return tail[end:]
	}
	return tail
}

// splitSentences partitions text into sentence-like fragments cut
// immediately after runs of terminal punctuation. Fragments
// concatenate back to exactly the input, which is what makes the
// chunk-coverage guarantee possible.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		if !isTerminal(text[i]) {
			continue
		}
		j := i + 1
		for j < len(text) && isTerminal(text[j]) {
			j++
		}
		out = append(out, text[start:j])
		start = j
		i = j - 1
	}

	if start < len(text) {
		rest := text[start:]
		if strings.TrimSpace(rest) == "" && len(out) > 0 {
			// Trailing whitespace belongs to the last sentence.
			out[len(out)-1] += rest
		} else {
			out = append(out, rest)
		}
	}

	return out
}

func isTerminal(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

// sectionLabel inspects a passage's first line and returns it when it
// looks like a section header: short and either entirely upper-case,
// numbered ("1. ", "IV. "), or ending in a colon. Metadata only.
func sectionLabel(text string) string {
	line := strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if line == "" || len(line) > maxSectionLabelLen {
		return ""
	}

	if strings.HasSuffix(line, ":") {
		return line
	}
	if numberedHeading.MatchString(line) {
		return line
	}
	if isAllUpper(line) {
		return line
	}
	return ""
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}
