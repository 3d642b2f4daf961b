package ai

import (
	"context"
	"fmt"
	"time"

	"career-counselor/internal/config"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Completer turns a role-tagged conversation into one model reply. A
// leading system message, if any, carries the instruction for the model.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// NewCompleter builds the completer for the configured provider.
func NewCompleter(ctx context.Context, cfg config.LLMConfig) (Completer, error) {
	chatCfg := ChatConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAICompatibleClient(chatCfg), nil
	case config.ProviderGemini:
		return NewGeminiClient(ctx, chatCfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
