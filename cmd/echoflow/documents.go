package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sweetpotato0/echoflow/config"
	"github.com/sweetpotato0/echoflow/contrib/chunking/markdown"
	"github.com/sweetpotato0/echoflow/contrib/tokenizer/tiktoken"
	"github.com/sweetpotato0/echoflow/rag/chunking"
)

// loadDocuments reads every path and splits it into chunks labelled with the
// file name. Markdown files are split at their headings first.
func loadDocuments(cfg config.ChunkConfig, paths []string) ([]string, error) {
	opts := []chunking.Option{
		chunking.WithChunkSize(int(cfg.Size)),
		chunking.WithOverlap(int(cfg.Overlap)),
	}
	if cfg.Tokenizer != "" {
		tk, err := tiktoken.New(cfg.Tokenizer)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chunking.WithTokenizer(tk))
	}
	simple, err := chunking.NewSimpleChunker(opts...)
	if err != nil {
		return nil, err
	}
	md, err := markdown.New(markdown.WithFallbackChunker(simple))
	if err != nil {
		return nil, err
	}

	var docs []string
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		var chunker chunking.Chunker = simple
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".markdown":
			chunker = md
		}
		chunks := chunker.Chunk(filepath.Base(path), string(data))
		if len(chunks) == 0 {
			return nil, fmt.Errorf("document %s is empty", path)
		}
		for _, c := range chunks {
			docs = append(docs, c.String())
		}
	}
	return docs, nil
}
