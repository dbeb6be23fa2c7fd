package aigc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamped(t *testing.T) {
	p := ChatParams{MaxTokens: 9000, Temperature: 0.01, TopP: 3}.Clamped()
	assert.Equal(t, DefaultSystemPrompt, p.SystemPrompt)
	assert.Equal(t, 2048, p.MaxTokens)
	assert.Equal(t, float32(0.1), p.Temperature)
	assert.Equal(t, float32(1.0), p.TopP)

	assert.Equal(t, DefaultParams(), ChatParams{}.Clamped())

	p = ChatParams{SystemPrompt: "be brief", MaxTokens: -3, Temperature: 5, TopP: 0.5}.Clamped()
	assert.Equal(t, "be brief", p.SystemPrompt)
	assert.Equal(t, 1, p.MaxTokens)
	assert.Equal(t, float32(4.0), p.Temperature)
	assert.Equal(t, float32(0.5), p.TopP)
}

func TestPresetParams(t *testing.T) {
	var nilPreset *Preset
	assert.Equal(t, DefaultParams(), nilPreset.Params())
	assert.Equal(t, DefaultWelcome, nilPreset.WelcomeText())

	p := &Preset{SystemPrompt: "pirate", MaxTokens: 100, Welcome: &Message{Content: "ahoy"}}
	cp := p.Params()
	assert.Equal(t, "pirate", cp.SystemPrompt)
	assert.Equal(t, 100, cp.MaxTokens)
	assert.Equal(t, float32(0.7), cp.Temperature)
	assert.Equal(t, "ahoy", p.WelcomeText())
}

func TestHistoryItems(t *testing.T) {
	items := HistoryItems{
		{Time: 1, ChatItem: &HistoryChatItem{User: "a", Assistant: "b"}},
		{Time: 2},
		{Time: 3, ChatItem: &HistoryChatItem{User: "c", Assistant: "d"}},
	}
	assert.Equal(t, []HistoryChatItem{{"a", "b"}, {"c", "d"}}, items.Turns())
	assert.Len(t, items.Recently(2), 2)
	assert.Equal(t, int64(2), items.Recently(2)[0].Time)
	assert.Len(t, items.Recently(0), 3)

	b, err := items[0].MarshalBinary()
	assert.NoError(t, err)
	var hi HistoryItem
	assert.NoError(t, hi.UnmarshalBinary(b))
	assert.Equal(t, "b", hi.ChatItem.Assistant)
}
