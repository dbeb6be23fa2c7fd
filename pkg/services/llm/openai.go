package llm

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	openaiTimeout = time.Minute * 5
)

type openaiStreamer struct {
	oc    *openai.Client
	model string
}

// NewOpenAI returns a Streamer for any OpenAI-compatible chat endpoint,
// the Hugging Face router included.
func NewOpenAI(baseURL, apiKey, model string, hc *http.Client) Streamer {
	occ := openai.DefaultConfig(apiKey)
	if len(baseURL) > 0 {
		occ.BaseURL = baseURL
	}
	if hc == nil {
		hc = &http.Client{
			Timeout:   openaiTimeout,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		}
	}
	occ.HTTPClient = hc
	return &openaiStreamer{oc: openai.NewClientWithConfig(occ), model: model}
}

func (s *openaiStreamer) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ccr := openai.ChatCompletionRequest{
			Model:       s.model,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
			TopP:        req.TopP,
			Stream:      true,
		}
		for _, m := range req.Messages {
			ccr.Messages = append(ccr.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
		}
		logger().Debugw("ccs start", "model", s.model, "msgs", len(ccr.Messages))
		ccs, err := s.oc.CreateChatCompletionStream(ctx, ccr)
		if err != nil {
			logger().Infow("call chat stream fail", "err", err)
			yield("", err)
			return
		}
		defer ccs.Close()

		var finishReason string
		for {
			ccsr, err := ccs.Recv()
			if errors.Is(err, io.EOF) {
				logger().Debugw("ccs recv eof", "reason", finishReason)
				return
			}
			if err != nil {
				logger().Infow("ccs recv fail", "err", err)
				yield("", err)
				return
			}
			if len(ccsr.Choices) > 0 {
				finishReason = string(ccsr.Choices[0].FinishReason)
				if !yield(ccsr.Choices[0].Delta.Content, nil) {
					logger().Debugw("ccs abandoned by consumer")
					return
				}
			}
		}
	}
}
