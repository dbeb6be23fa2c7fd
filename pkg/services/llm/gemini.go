package llm

import (
	"context"
	"iter"
	"strings"

	"google.golang.org/genai"

	"github.com/liut/beeview/pkg/models/aigc"
)

type geminiStreamer struct {
	gc    *genai.Client
	model string
}

// NewGemini returns a Streamer backed by the Gemini API.
func NewGemini(ctx context.Context, apiKey, model string) (Streamer, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &geminiStreamer{gc: gc, model: model}, nil
}

// splitMessages moves system messages into one instruction and maps the
// assistant role onto Gemini's model role.
func splitMessages(msgs aigc.Messages) (system *genai.Content, contents []*genai.Content) {
	var sys []string
	for _, m := range msgs {
		switch m.Role {
		case aigc.RoleSystem:
			sys = append(sys, m.Content)
		case aigc.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(sys) > 0 {
		system = genai.NewContentFromText(strings.Join(sys, "\n\n"), genai.RoleUser)
	}
	return
}

func (s *geminiStreamer) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		system, contents := splitMessages(req.Messages)
		cfg := &genai.GenerateContentConfig{
			SystemInstruction: system,
			MaxOutputTokens:   int32(req.MaxTokens),
			Temperature:       genai.Ptr(req.Temperature),
			TopP:              genai.Ptr(req.TopP),
		}
		for resp, err := range s.gc.Models.GenerateContentStream(ctx, s.model, contents, cfg) {
			if err != nil {
				logger().Infow("gemini stream fail", "err", err)
				yield("", err)
				return
			}
			if !yield(resp.Text(), nil) {
				return
			}
		}
	}
}
