package tokenizer

import (
	"errors"

	"github.com/pkoukk/tiktoken-go"
)

// allowAllSpecialTokens makes special-token text such as "<|endoftext|>" count as single tokens.
var allowAllSpecialTokens = []string{"all"}

type openAICounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

func (counter openAICounter) Name() string {
	return counter.name
}

func (counter openAICounter) CountString(input string) (int, error) {
	if counter.encoding == nil {
		return 0, errors.New("nil tiktoken encoder")
	}
	tokenIDs := counter.encoding.Encode(input, allowAllSpecialTokens, nil)
	return len(tokenIDs), nil
}
