package tiktoken

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sweetpotato0/echoflow/rag/tokenizer"
)

var _ tokenizer.Tokenizer = (*Tokenizer)(nil)

// Tokenizer counts in the BPE tokens OpenAI models bill for.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New loads the encoding for a model name such as "gpt-4o", or an encoding
// name such as "cl100k_base". The encoding file is fetched on first use
// unless TIKTOKEN_CACHE_DIR already holds it.
func New(name string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, fmt.Errorf("tiktoken encoding %q: %w", name, err)
		}
	}
	return &Tokenizer{enc: enc}, nil
}

func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode may produce replacement characters when ids split a multi-byte rune.
func (t *Tokenizer) Decode(ids []int) string {
	return t.enc.Decode(ids)
}
