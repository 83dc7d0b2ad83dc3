package tokenizer

// Tokenizer maps text to token ids and back.
type Tokenizer interface {
	Encode(text string) []int
	Decode(ids []int) string
}

var _ Tokenizer = Runes{}

// Runes treats every rune as one token. It needs no vocabulary and never
// splits a multi-byte character.
type Runes struct{}

func (Runes) Encode(text string) []int {
	runes := []rune(text)
	ids := make([]int, len(runes))
	for i, r := range runes {
		ids[i] = int(r)
	}
	return ids
}

func (Runes) Decode(ids []int) string {
	runes := make([]rune, len(ids))
	for i, id := range ids {
		runes[i] = rune(id)
	}
	return string(runes)
}

// Count returns the number of tokens t produces for text.
func Count(t Tokenizer, text string) int {
	return len(t.Encode(text))
}
