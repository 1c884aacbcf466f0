package query

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// CountTokens estimates the token length of text using the o200k_base
// encoding. Falls back to a bytes-per-token heuristic when the encoding
// cannot be loaded.
func CountTokens(text string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("o200k_base")
		if err == nil {
			encoding = enc
		}
	})
	if encoding == nil {
		return len(text) / 4
	}
	return len(encoding.Encode(text, nil, nil))
}
