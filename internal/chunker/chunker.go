package chunker

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"DealScreener/internal/domain"
)

// DefaultMaxChunkSize bounds one chunk to roughly what the evaluation
// capability accepts in a single prompt.
const DefaultMaxChunkSize = 4000

var htmlTagExpr = regexp.MustCompile(`(?i)<(html|head|body|p|div|br|span|table|li|ul|h[1-6])[\s>/]`)

// Chunker splits raw submission content into bounded segments.
type Chunker struct {
	maxSize int
}

// New builds a chunker; sizes below 1 fall back to DefaultMaxChunkSize.
func New(maxSize int) *Chunker {
	if maxSize < 1 {
		maxSize = DefaultMaxChunkSize
	}
	return &Chunker{maxSize: maxSize}
}

// Split divides content into ordered chunks of at most maxSize runes.
// It prefers paragraph boundaries, falls back to sentence boundaries, and
// hard-splits as a last resort. The function is pure: the same input
// always yields the same chunks, and concatenating the chunk bodies
// reproduces the input exactly. Empty or whitespace-only content yields
// nil; callers treat that as "no content to evaluate".
func (c *Chunker) Split(content string) []domain.Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	var pieces []string
	for _, para := range strings.SplitAfter(content, "\n\n") {
		if para == "" {
			continue
		}
		if runeLen(para) <= c.maxSize {
			pieces = append(pieces, para)
			continue
		}
		pieces = append(pieces, c.splitParagraph(para)...)
	}

	packed := pack(pieces, c.maxSize)
	chunks := make([]domain.Chunk, 0, len(packed))
	for i, body := range packed {
		chunks = append(chunks, domain.Chunk{Index: i, Body: body})
	}
	return chunks
}

// splitParagraph breaks an oversized paragraph on sentence boundaries,
// hard-splitting any sentence that is still too long.
func (c *Chunker) splitParagraph(para string) []string {
	var out []string
	for _, sentence := range strings.SplitAfter(para, ". ") {
		if sentence == "" {
			continue
		}
		if runeLen(sentence) <= c.maxSize {
			out = append(out, sentence)
			continue
		}
		out = append(out, hardSplit(sentence, c.maxSize)...)
	}
	return out
}

// pack greedily merges adjacent pieces while the merged rune length stays
// within maxSize.
func pack(pieces []string, maxSize int) []string {
	var out []string
	var current strings.Builder
	currentLen := 0

	for _, piece := range pieces {
		pieceLen := runeLen(piece)
		if currentLen > 0 && currentLen+pieceLen > maxSize {
			out = append(out, current.String())
			current.Reset()
			currentLen = 0
		}
		current.WriteString(piece)
		currentLen += pieceLen
	}
	if currentLen > 0 {
		out = append(out, current.String())
	}
	return out
}

func hardSplit(s string, maxSize int) []string {
	runes := []rune(s)
	var out []string
	for start := 0; start < len(runes); start += maxSize {
		end := start + maxSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

func runeLen(s string) int {
	return len([]rune(s))
}

// Normalize converts HTML submission bodies to plain text so the splitter
// works on prose. Plain-text content passes through untouched, as does
// anything goquery cannot parse.
func Normalize(content string) string {
	if !htmlTagExpr.MatchString(content) {
		return content
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content
	}

	doc.Find("script, style").Remove()
	var parts []string
	doc.Find("p, li, h1, h2, h3, h4, h5, h6, td").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return strings.TrimSpace(doc.Text())
	}
	return strings.Join(parts, "\n\n")
}
