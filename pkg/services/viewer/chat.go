package viewer

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/liut/beeview/pkg/models/aigc"
	"github.com/liut/beeview/pkg/services/llm"
	"github.com/liut/beeview/pkg/services/stores"
)

// ErrEmptyMessage ...
var ErrEmptyMessage = errors.New("empty message")

const contextPrefix = "Here's the context of the conversation: "

// ChatRequest is one message of the chat panel.
type ChatRequest struct {
	Message string `json:"message"`
	// History nil means the turns stored for the session.
	History []aigc.HistoryChatItem `json:"history"`
	// Context empty means the conversation currently displayed.
	Context string          `json:"context"`
	Params  aigc.ChatParams `json:"params"`
}

// BuildMessages orders the prompt: system prompt, conversation context, prior
// turns, then the new user message.
func BuildMessages(systemPrompt, convContext string, history []aigc.HistoryChatItem, message string) aigc.Messages {
	msgs := make(aigc.Messages, 0, 3+2*len(history))
	msgs = append(msgs,
		aigc.Message{Role: aigc.RoleSystem, Content: systemPrompt},
		aigc.Message{Role: aigc.RoleSystem, Content: contextPrefix + convContext},
	)
	for _, turn := range history {
		msgs = append(msgs,
			aigc.Message{Role: aigc.RoleUser, Content: turn.User},
			aigc.Message{Role: aigc.RoleAssistant, Content: turn.Assistant},
		)
	}
	return append(msgs, aigc.Message{Role: aigc.RoleUser, Content: message})
}

// ChatSend yields the growing response, each element the full text so far.
// A completed response is appended to the session history.
func (c *Controller) ChatSend(ctx context.Context, st *stores.State, req ChatRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if len(strings.TrimSpace(req.Message)) == 0 {
			yield("", ErrEmptyMessage)
			return
		}
		h := c.sessions.History(st.ID)
		history := req.History
		if history == nil {
			items, err := h.ListHistory(ctx)
			if err != nil {
				logger().Infow("list history fail", "sid", st.ID, "err", err)
			}
			history = items.Turns()
		}
		convContext := req.Context
		if len(convContext) == 0 {
			convContext = st.Detail
		}
		p := req.Params.Clamped()
		lr := llm.Request{
			Messages:    BuildMessages(p.SystemPrompt, convContext, history, req.Message),
			MaxTokens:   p.MaxTokens,
			Temperature: p.Temperature,
			TopP:        p.TopP,
		}
		logger().Infow("chat", "sid", st.ID, "msgs", len(lr.Messages), "context", len(convContext))

		var answer string
		for snapshot, err := range llm.Accumulate(c.streamer.Stream(ctx, lr)) {
			if err != nil {
				logger().Infow("chat stream fail", "sid", st.ID, "err", err)
				yield(snapshot, err)
				return
			}
			answer = snapshot
			if !yield(snapshot, nil) {
				logger().Debugw("chat abandoned", "sid", st.ID, "got", len(answer))
				return
			}
		}
		if len(answer) == 0 {
			return
		}
		hi := &aigc.HistoryItem{
			Time:     time.Now().Unix(),
			ChatItem: &aigc.HistoryChatItem{User: req.Message, Assistant: answer},
		}
		if err := h.AddHistory(ctx, hi); err != nil {
			logger().Infow("add history fail", "sid", st.ID, "err", err)
		}
	}
}
