// -----------------------------------------------------------------------
// Anthropic Provider - Message Batches API implementation
// -----------------------------------------------------------------------

package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/models"
)

// AnthropicProvider implements interfaces.BatchProvider using the Anthropic
// Message Batches API. Anthropic takes the request list inline (no separate
// artifact upload) and processes every batch inside a fixed 24-hour window,
// so the processing mode affects only poll cadence and pricing, not the
// window requested here.
type AnthropicProvider struct {
	config  *common.ProviderConfig
	client  anthropic.Client
	limiter *rate.Limiter
	logger  arbor.ILogger
}

// NewAnthropicProvider creates an Anthropic batch provider.
// The API key resolves KV-first with config fallback (see ResolveAPIKey).
func NewAnthropicProvider(config *common.ProviderConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*AnthropicProvider, error) {
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "anthropic_api_key", config.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Anthropic API key is required for batch provider (set via ANTHROPIC_API_KEY or provider.api_key in config): %w", err)
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	limiter := newProviderLimiter(config.RateLimit)

	logger.Debug().
		Str("model", config.Model).
		Int("max_tokens", config.MaxTokens).
		Msg("Anthropic batch provider initialized")

	return &AnthropicProvider{
		config:  config,
		client:  client,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Name implements interfaces.BatchProvider
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// SubmitBatch implements interfaces.BatchProvider
func (p *AnthropicProvider) SubmitBatch(ctx context.Context, requests []interfaces.BatchRequest, mode models.ProcessingMode) (string, error) {
	if len(requests) == 0 {
		return "", fmt.Errorf("batch requests cannot be empty")
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	batchRequests := make([]anthropic.MessageBatchNewParamsRequest, 0, len(requests))
	for _, req := range requests {
		params := anthropic.MessageBatchNewParamsRequestParams{
			Model:     anthropic.Model(req.Model),
			MaxTokens: int64(req.MaxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
			},
		}
		if req.System != "" {
			params.System = []anthropic.TextBlockParam{
				{Text: req.System},
			}
		}
		batchRequests = append(batchRequests, anthropic.MessageBatchNewParamsRequest{
			CustomID: req.CustomID,
			Params:   params,
		})
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	batch, err := p.client.Messages.Batches.New(timeoutCtx, anthropic.MessageBatchNewParams{
		Requests: batchRequests,
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic batch creation failed: %w", err)
	}

	p.logger.Info().
		Str("batch_id", batch.ID).
		Int("request_count", len(requests)).
		Str("mode", string(mode)).
		Msg("Anthropic message batch created")

	return batch.ID, nil
}

// BatchStatus implements interfaces.BatchProvider
func (p *AnthropicProvider) BatchStatus(ctx context.Context, handle string) (interfaces.RemoteBatchStatus, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	batch, err := p.client.Messages.Batches.Get(timeoutCtx, handle)
	if err != nil {
		return "", fmt.Errorf("Anthropic batch status query failed: %w", err)
	}

	switch batch.ProcessingStatus {
	case anthropic.MessageBatchProcessingStatusInProgress:
		return interfaces.RemoteStatusRunning, nil
	case anthropic.MessageBatchProcessingStatusCanceling:
		return interfaces.RemoteStatusCancelled, nil
	case anthropic.MessageBatchProcessingStatusEnded:
		// Ended means results are available; item-level errors surface per record
		return interfaces.RemoteStatusCompleted, nil
	default:
		return interfaces.RemoteStatusRunning, nil
	}
}

// BatchResults implements interfaces.BatchProvider. Results stream back as
// JSONL in provider order; succeeded entries carry the message text, all
// other result types surface as item-level errors.
func (p *AnthropicProvider) BatchResults(ctx context.Context, handle string) ([]interfaces.BatchResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	stream := p.client.Messages.Batches.ResultsStreaming(timeoutCtx, handle)
	results := make([]interfaces.BatchResult, 0)

	for stream.Next() {
		entry := stream.Current()
		result := interfaces.BatchResult{CustomID: entry.CustomID}

		switch string(entry.Result.Type) {
		case "succeeded":
			result.Body = extractText(&entry.Result.Message)
		default:
			result.Error = fmt.Sprintf("request %s: %s", entry.Result.Type, entry.Result.RawJSON())
		}

		results = append(results, result)
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("Anthropic batch results stream failed: %w", err)
	}

	p.logger.Debug().
		Str("batch_id", handle).
		Int("result_count", len(results)).
		Msg("Anthropic batch results downloaded")

	return results, nil
}

// extractText concatenates the text blocks of a message response
func extractText(msg *anthropic.Message) string {
	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String()
}

// newProviderLimiter parses the configured rate limit into a limiter.
// Falls back to one call per second on a bad duration.
func newProviderLimiter(rateLimit string) *rate.Limiter {
	interval, err := time.ParseDuration(rateLimit)
	if err != nil || interval <= 0 {
		interval = time.Second
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
