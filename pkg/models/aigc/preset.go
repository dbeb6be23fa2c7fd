package aigc

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role,omitempty" yaml:"role,omitempty"`
	Content string `json:"content" yaml:"content"`
}

type Messages []Message

// Preset overrides chat defaults, loaded from a YAML file.
type Preset struct {
	Welcome      *Message `json:"welcome,omitempty" yaml:"welcome,omitempty"`
	SystemPrompt string   `json:"systemPrompt,omitempty" yaml:"systemPrompt,omitempty"`
	MaxTokens    int      `json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`
	Temperature  float32  `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP         float32  `json:"topP,omitempty" yaml:"topP,omitempty"`
}

// Params returns DefaultParams with the preset's non-zero values applied.
func (p *Preset) Params() ChatParams {
	cp := DefaultParams()
	if p == nil {
		return cp
	}
	if len(p.SystemPrompt) > 0 {
		cp.SystemPrompt = p.SystemPrompt
	}
	if p.MaxTokens > 0 {
		cp.MaxTokens = p.MaxTokens
	}
	if p.Temperature > 0 {
		cp.Temperature = p.Temperature
	}
	if p.TopP > 0 {
		cp.TopP = p.TopP
	}
	return cp.Clamped()
}

// WelcomeText ...
func (p *Preset) WelcomeText() string {
	if p != nil && p.Welcome != nil && len(p.Welcome.Content) > 0 {
		return p.Welcome.Content
	}
	return DefaultWelcome
}

// chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
