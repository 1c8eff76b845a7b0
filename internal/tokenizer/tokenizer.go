package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Codec turns text into a token stream and back. The chunker windows over
// token ids, so Encode and Decode must round-trip.
type Codec interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenCodec struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads a BPE encoding by name, e.g. "cl100k_base".
func NewTiktoken(encoding string) (Codec, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &tiktokenCodec{enc: enc}, nil
}

func (c *tiktokenCodec) Encode(text string) []int {
	return c.enc.Encode(text, nil, nil)
}

func (c *tiktokenCodec) Decode(tokens []int) string {
	return c.enc.Decode(tokens)
}
