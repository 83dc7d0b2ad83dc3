package tiktoken

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweetpotato0/echoflow/rag/tokenizer"
)

func load(t *testing.T) *Tokenizer {
	t.Helper()
	tk, err := New("gpt-4o")
	if err != nil {
		t.Skipf("encoding unavailable: %v", err)
	}
	return tk
}

func TestEncodeDecode(t *testing.T) {
	tk := load(t)
	text := "The quick brown fox jumps over the lazy dog."

	ids := tk.Encode(text)
	require.NotEmpty(t, ids)
	assert.Less(t, len(ids), len(text))
	assert.Equal(t, text, tk.Decode(ids))
	assert.Equal(t, len(ids), tokenizer.Count(tk, text))
}

func TestUnknownEncoding(t *testing.T) {
	_, err := New("no-such-encoding")
	require.Error(t, err)
}
