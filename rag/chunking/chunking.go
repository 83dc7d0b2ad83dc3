package chunking

import (
	"fmt"
	"strings"

	errorskg "github.com/sweetpotato0/echoflow/errors"
	"github.com/sweetpotato0/echoflow/rag/tokenizer"
)

// Chunker splits a document into chunks small enough to send to a model.
type Chunker interface {
	Chunk(source, content string) []Chunk
}

var _ Chunker = (*SimpleChunker)(nil)

// Chunk is one bounded piece of a source document.
type Chunk struct {
	Source  string
	Ordinal int
	Content string
	// Section is the heading the chunk falls under, when the source has headings.
	Section string
}

// String renders the chunk with a header naming its source, the form in
// which it is sent to the model.
func (c Chunk) String() string {
	return fmt.Sprintf("[%s #%d]\n%s", c.Source, c.Ordinal, c.Content)
}

type Options struct {
	ChunkSize int
	Overlap   int
	Separator string
	Tokenizer tokenizer.Tokenizer
}

// SimpleChunker splits text by separator, then windows every part that is
// longer than the chunk size.
type SimpleChunker struct {
	size    int
	overlap int
	sep     string
	tok     tokenizer.Tokenizer
}

// Option customizes the simple chunker.
type Option func(*Options)

// WithChunkSize overrides the default chunk size in tokens.
func WithChunkSize(size int) Option {
	return func(o *Options) {
		o.ChunkSize = size
	}
}

// WithOverlap configures overlap (tokens) between consecutive windows of one part.
func WithOverlap(overlap int) Option {
	return func(o *Options) {
		o.Overlap = overlap
	}
}

// WithSeparator sets the logical separator used before windowing.
func WithSeparator(sep string) Option {
	return func(o *Options) {
		if sep != "" {
			o.Separator = sep
		}
	}
}

// WithTokenizer measures chunks in the tokenizer's units instead of runes.
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(o *Options) {
		if t != nil {
			o.Tokenizer = t
		}
	}
}

// NewSimpleChunker constructs a chunker. The overlap must be smaller than
// the chunk size.
func NewSimpleChunker(opts ...Option) (*SimpleChunker, error) {
	cfg := &Options{
		ChunkSize: 800,
		Overlap:   120,
		Separator: "\n\n",
		Tokenizer: tokenizer.Runes{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", errorskg.ErrInvalidInput, cfg.ChunkSize)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", errorskg.ErrInvalidInput, cfg.Overlap, cfg.ChunkSize)
	}
	return &SimpleChunker{
		size:    cfg.ChunkSize,
		overlap: cfg.Overlap,
		sep:     cfg.Separator,
		tok:     cfg.Tokenizer,
	}, nil
}

// Fits reports whether text is within the chunk size.
func (c *SimpleChunker) Fits(text string) bool {
	return tokenizer.Count(c.tok, text) <= c.size
}

// Chunk splits content into pieces of at most the chunk size. Blank parts
// are dropped, so blank content yields no chunks.
func (c *SimpleChunker) Chunk(source, content string) []Chunk {
	var chunks []Chunk
	add := func(ids []int) {
		text := strings.TrimSpace(c.tok.Decode(ids))
		if text == "" {
			return
		}
		chunks = append(chunks, Chunk{Source: source, Ordinal: len(chunks) + 1, Content: text})
	}

	for _, part := range strings.Split(content, c.sep) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ids := c.tok.Encode(part)
		for len(ids) > c.size {
			add(ids[:c.size])
			ids = ids[c.size-c.overlap:]
		}
		add(ids)
	}
	return chunks
}
