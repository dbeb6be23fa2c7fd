package aigc

// defaults and bounds of the chat panel
const (
	DefaultSystemPrompt = "You are a friendly Chatbot. Analyze and discuss the given conversation context."
	DefaultWelcome      = "Enter your Bee API Key, click 'Load Conversations', then select a conversation to view details here."

	MinMaxTokens   = 1
	MaxMaxTokens   = 2048
	MinTemperature = 0.1
	MaxTemperature = 4.0
	MinTopP        = 0.1
	MaxTopP        = 1.0
)

// ChatParams are the sampling parameters and system prompt of one chat request.
type ChatParams struct {
	SystemPrompt string  `json:"systemPrompt"`
	MaxTokens    int     `json:"maxTokens"`
	Temperature  float32 `json:"temperature"`
	TopP         float32 `json:"topP"`
}

// DefaultParams ...
func DefaultParams() ChatParams {
	return ChatParams{
		SystemPrompt: DefaultSystemPrompt,
		MaxTokens:    512,
		Temperature:  0.7,
		TopP:         0.95,
	}
}

// Clamped returns a copy with every value forced into its allowed range.
// Zero values are replaced by the defaults first.
func (p ChatParams) Clamped() ChatParams {
	d := DefaultParams()
	if len(p.SystemPrompt) == 0 {
		p.SystemPrompt = d.SystemPrompt
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = d.MaxTokens
	}
	if p.Temperature == 0 {
		p.Temperature = d.Temperature
	}
	if p.TopP == 0 {
		p.TopP = d.TopP
	}
	p.MaxTokens = clamp(p.MaxTokens, MinMaxTokens, MaxMaxTokens)
	p.Temperature = clamp(p.Temperature, MinTemperature, MaxTemperature)
	p.TopP = clamp(p.TopP, MinTopP, MaxTopP)
	return p
}

func clamp[T int | float32](v, lo, hi T) T {
	return max(lo, min(v, hi))
}
