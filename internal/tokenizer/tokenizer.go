// Package tokenizer estimates BPE token counts for prompt text.
package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Counter estimates token counts for text content.
type Counter interface {
	Name() string
	CountString(input string) (int, error)
}

// Config captures tokenizer selection parameters.
// An explicit Encoding takes precedence over Model.
type Config struct {
	Model    string
	Encoding string
}

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"
	// DefaultEncodingName is the encoding behind DefaultModel and the fallback for unknown models.
	DefaultEncodingName = "o200k_base"

	errorEncodingFormat = "initialize tokenizer encoding %s: %w"
)

var registerOfflineRanks sync.Once

// useEmbeddedRanks makes tiktoken read BPE ranks bundled with the binary instead of downloading them.
func useEmbeddedRanks() {
	registerOfflineRanks.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
}

// NewCounter returns a Counter for the requested encoding or model along with the resolved name.
// Models unknown to tiktoken fall back to DefaultEncodingName.
func NewCounter(cfg Config) (Counter, string, error) {
	useEmbeddedRanks()
	if encodingName := strings.TrimSpace(cfg.Encoding); encodingName != "" {
		encoding, err := tiktoken.GetEncoding(encodingName)
		if err != nil {
			return nil, "", fmt.Errorf(errorEncodingFormat, encodingName, err)
		}
		return openAICounter{encoding: encoding, name: encodingName}, encodingName, nil
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	lowerModel := strings.ToLower(model)
	encoding, err := tiktoken.EncodingForModel(lowerModel)
	if err == nil && encoding != nil {
		return openAICounter{encoding: encoding, name: lowerModel}, model, nil
	}

	fallback, fallbackErr := tiktoken.GetEncoding(DefaultEncodingName)
	if fallbackErr != nil {
		return nil, "", fmt.Errorf(errorEncodingFormat, DefaultEncodingName, fallbackErr)
	}
	return openAICounter{encoding: fallback, name: DefaultEncodingName}, DefaultEncodingName, nil
}
