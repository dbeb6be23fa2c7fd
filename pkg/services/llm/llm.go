// Package llm streams chat completions from a hosted inference service.
package llm

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"

	"github.com/liut/beeview/pkg/models/aigc"
	"github.com/liut/beeview/pkg/settings"
)

// Request is one completion call.
type Request struct {
	Messages    aigc.Messages
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// Streamer yields response deltas in order. The sequence is single use; stopping
// early releases the upstream stream.
type Streamer interface {
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// Accumulate turns deltas into cumulative snapshots. Empty deltas are skipped.
// On error the snapshot so far is yielded with the error and the sequence ends.
func Accumulate(deltas iter.Seq2[string, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var sb strings.Builder
		for d, err := range deltas {
			if err != nil {
				yield(sb.String(), err)
				return
			}
			if len(d) == 0 {
				continue
			}
			sb.WriteString(d)
			if !yield(sb.String(), nil) {
				return
			}
		}
	}
}

// New builds the Streamer selected by settings.
func New(ctx context.Context) (Streamer, error) {
	cfg := settings.Current
	switch cfg.LLMProvider {
	case "gemini":
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case "openai", "":
		return NewOpenAI(cfg.LLMAPIBase, cfg.LLMAPIKey, cfg.LLMModel, nil), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
}

func logger() *zap.SugaredLogger {
	return zap.S()
}
