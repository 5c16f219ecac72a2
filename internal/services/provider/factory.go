// -----------------------------------------------------------------------
// Provider Factory - selects the batch provider from configuration
// -----------------------------------------------------------------------

package provider

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/interfaces"
)

// NewBatchProvider creates the configured batch provider implementation.
// Supported provider names: "anthropic" (default), "openai".
func NewBatchProvider(config *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (interfaces.BatchProvider, error) {
	name := strings.ToLower(strings.TrimSpace(config.Provider.Name))
	if name == "" {
		name = "anthropic"
	}

	switch name {
	case "anthropic", "claude":
		return NewAnthropicProvider(&config.Provider, kvStorage, logger)
	case "openai":
		return NewOpenAIProvider(&config.Provider, kvStorage, logger)
	default:
		return nil, fmt.Errorf("unsupported batch provider: %s (supported: anthropic, openai)", config.Provider.Name)
	}
}
