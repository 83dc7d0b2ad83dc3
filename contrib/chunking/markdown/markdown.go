package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/sweetpotato0/echoflow/rag/chunking"
)

var _ chunking.Chunker = (*Chunker)(nil)

// Chunker splits markdown documents by heading hierarchy using a goldmark AST.
type Chunker struct {
	maxHeadingLevel int
	minCharacters   int
	fallback        *chunking.SimpleChunker
	parser          goldmark.Markdown
}

// Option customises the markdown chunker.
type Option func(*Chunker)

// WithMaxHeadingLevel caps which heading level starts a new chunk (default 3).
func WithMaxHeadingLevel(level int) Option {
	return func(c *Chunker) {
		if level > 0 {
			c.maxHeadingLevel = level
		}
	}
}

// WithMinCharacters merges adjoining sections until they reach the provided size.
func WithMinCharacters(chars int) Option {
	return func(c *Chunker) {
		if chars >= 0 {
			c.minCharacters = chars
		}
	}
}

// WithFallbackChunker sets the chunker that bounds section size. Sections it
// does not fit are split by it.
func WithFallbackChunker(ch *chunking.SimpleChunker) Option {
	return func(c *Chunker) {
		if ch != nil {
			c.fallback = ch
		}
	}
}

// New creates a markdown chunker.
func New(opts ...Option) (*Chunker, error) {
	fallback, err := chunking.NewSimpleChunker()
	if err != nil {
		return nil, err
	}
	ch := &Chunker{
		maxHeadingLevel: 3,
		minCharacters:   240,
		parser:          goldmark.New(),
		fallback:        fallback,
	}
	for _, opt := range opts {
		opt(ch)
	}
	return ch, nil
}

// Chunk implements chunking.Chunker.
func (c *Chunker) Chunk(source, content string) []chunking.Chunk {
	var chunks []chunking.Chunk
	for _, sec := range c.splitSections(content) {
		if c.fallback.Fits(sec.raw) {
			chunks = append(chunks, chunking.Chunk{
				Source:  source,
				Ordinal: len(chunks) + 1,
				Content: sec.raw,
				Section: sec.title,
			})
			continue
		}
		for _, split := range c.fallback.Chunk(source, sec.raw) {
			split.Ordinal = len(chunks) + 1
			split.Section = sec.title
			chunks = append(chunks, split)
		}
	}
	return chunks
}

type section struct {
	raw   string
	title string
}

type heading struct {
	start int
	title string
}

func (c *Chunker) splitSections(content string) []section {
	source := []byte(content)
	root := c.parser.Parser().Parse(text.NewReader(source))

	var headings []heading
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level > c.maxHeadingLevel {
			return ast.WalkContinue, nil
		}
		lines := h.Lines()
		if lines == nil || lines.Len() == 0 {
			return ast.WalkContinue, nil
		}
		// Segments start at the heading text; back up over the ATX markers.
		start := lines.At(0).Start
		start = bytes.LastIndexByte(source[:start], '\n') + 1
		headings = append(headings, heading{
			start: start,
			title: strings.TrimSpace(string(h.Text(source))),
		})
		return ast.WalkSkipChildren, nil
	})

	if len(headings) == 0 {
		raw := strings.TrimSpace(content)
		if raw == "" {
			return nil
		}
		return []section{{raw: raw}}
	}

	var sections []section
	if intro := strings.TrimSpace(string(source[:headings[0].start])); intro != "" {
		sections = append(sections, section{raw: intro})
	}
	for i, h := range headings {
		end := len(source)
		if i+1 < len(headings) {
			end = headings[i+1].start
		}
		raw := strings.TrimSpace(string(source[h.start:end]))
		if raw == "" {
			continue
		}
		sections = append(sections, section{raw: raw, title: h.title})
	}
	return c.mergeShortSections(sections)
}

func (c *Chunker) mergeShortSections(sections []section) []section {
	if c.minCharacters <= 0 || len(sections) == 0 {
		return sections
	}
	merged := make([]section, 0, len(sections))
	var buffer *section
	for idx, sec := range sections {
		current := sec
		if buffer != nil {
			current = combine(*buffer, sec)
			buffer = nil
		}
		if len([]rune(current.raw)) < c.minCharacters && idx < len(sections)-1 {
			tmp := current
			buffer = &tmp
			continue
		}
		merged = append(merged, current)
	}
	return merged
}

func combine(a, b section) section {
	title := a.title
	if title == "" {
		title = b.title
	}
	return section{
		raw:   strings.TrimSpace(fmt.Sprintf("%s\n\n%s", a.raw, b.raw)),
		title: title,
	}
}
