package ai

import (
	"strings"

	"github.com/fdg312/run-coach/internal/config"
)

const (
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
)

func NewProvider(cfg *config.Config) Provider {
	mode := strings.ToLower(strings.TrimSpace(cfg.AIMode))
	if mode == "" {
		mode = ProviderMock
	}

	switch mode {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg)
	default:
		return NewMockProvider()
	}
}
