// -----------------------------------------------------------------------
// OpenAI Provider - file-artifact batch implementation
// -----------------------------------------------------------------------

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/models"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider implements interfaces.BatchProvider against the OpenAI
// Batch API. Unlike Anthropic, submission is a two-step flow: the request
// set is first uploaded as a JSONL file artifact, then a batch is created
// referencing that file. Results come back as a separate output file.
type OpenAIProvider struct {
	config  *common.ProviderConfig
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  arbor.ILogger
}

// batchFileLine is one JSONL request line in the uploaded input artifact
type batchFileLine struct {
	CustomID string         `json:"custom_id"`
	Method   string         `json:"method"`
	URL      string         `json:"url"`
	Body     chatCompletion `json:"body"`
}

type chatCompletion struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type fileObject struct {
	ID string `json:"id"`
}

type batchObject struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	OutputFileID string `json:"output_file_id"`
	ErrorFileID  string `json:"error_file_id"`
}

// batchOutputLine is one JSONL line in the result artifact
type batchOutputLine struct {
	CustomID string `json:"custom_id"`
	Response *struct {
		StatusCode int `json:"status_code"`
		Body       struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		} `json:"body"`
	} `json:"response"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewOpenAIProvider creates an OpenAI batch provider.
func NewOpenAIProvider(config *common.ProviderConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*OpenAIProvider, error) {
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "openai_api_key", config.APIKey)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API key is required for batch provider (set via OPENAI_API_KEY or provider.api_key in config): %w", err)
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	logger.Debug().
		Str("model", config.Model).
		Str("base_url", baseURL).
		Msg("OpenAI batch provider initialized")

	return &OpenAIProvider{
		config:  config,
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: config.RequestTimeout},
		limiter: newProviderLimiter(config.RateLimit),
		logger:  logger,
	}, nil
}

// Name implements interfaces.BatchProvider
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// SubmitBatch implements interfaces.BatchProvider. Uploads the request set
// as a JSONL artifact, then creates a batch referencing it. The completion
// window is taken from the mode-specific config so immediate jobs get the
// shortest window the provider offers.
func (p *OpenAIProvider) SubmitBatch(ctx context.Context, requests []interfaces.BatchRequest, mode models.ProcessingMode) (string, error) {
	if len(requests) == 0 {
		return "", fmt.Errorf("batch requests cannot be empty")
	}

	fileID, err := p.uploadInputFile(ctx, requests)
	if err != nil {
		return "", err
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	payload := map[string]interface{}{
		"input_file_id":     fileID,
		"endpoint":          "/v1/chat/completions",
		"completion_window": p.config.CompletionWindow(mode),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode batch create payload: %w", err)
	}

	var batch batchObject
	if err := p.doJSON(ctx, http.MethodPost, "/batches", "application/json", bytes.NewReader(body), &batch); err != nil {
		return "", fmt.Errorf("OpenAI batch creation failed: %w", err)
	}

	p.logger.Info().
		Str("batch_id", batch.ID).
		Str("input_file_id", fileID).
		Int("request_count", len(requests)).
		Str("mode", string(mode)).
		Msg("OpenAI batch created")

	return batch.ID, nil
}

// BatchStatus implements interfaces.BatchProvider
func (p *OpenAIProvider) BatchStatus(ctx context.Context, handle string) (interfaces.RemoteBatchStatus, error) {
	batch, err := p.getBatch(ctx, handle)
	if err != nil {
		return "", err
	}
	return mapOpenAIStatus(batch.Status), nil
}

// BatchResults implements interfaces.BatchProvider. Downloads the output
// file artifact and parses it line by line.
func (p *OpenAIProvider) BatchResults(ctx context.Context, handle string) ([]interfaces.BatchResult, error) {
	batch, err := p.getBatch(ctx, handle)
	if err != nil {
		return nil, err
	}
	if batch.OutputFileID == "" {
		return nil, fmt.Errorf("batch %s has no output file (status %s)", handle, batch.Status)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	raw, err := p.download(ctx, "/files/"+batch.OutputFileID+"/content")
	if err != nil {
		return nil, fmt.Errorf("OpenAI result artifact download failed: %w", err)
	}

	results := make([]interfaces.BatchResult, 0)
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var entry batchOutputLine
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			p.logger.Warn().Err(err).Msg("Skipping malformed result line in output artifact")
			continue
		}

		result := interfaces.BatchResult{CustomID: entry.CustomID}
		switch {
		case entry.Error != nil:
			result.Error = fmt.Sprintf("request failed: %s (%s)", entry.Error.Message, entry.Error.Code)
		case entry.Response == nil || len(entry.Response.Body.Choices) == 0:
			result.Error = "request returned no completion choices"
		default:
			result.Body = entry.Response.Body.Choices[0].Message.Content
		}
		results = append(results, result)
	}

	p.logger.Debug().
		Str("batch_id", handle).
		Int("result_count", len(results)).
		Msg("OpenAI batch results downloaded")

	return results, nil
}

// uploadInputFile serializes the requests to JSONL and uploads via the
// multipart files endpoint with purpose=batch.
func (p *OpenAIProvider) uploadInputFile(ctx context.Context, requests []interfaces.BatchRequest) (string, error) {
	var jsonl bytes.Buffer
	encoder := json.NewEncoder(&jsonl)
	for _, req := range requests {
		messages := make([]chatMessage, 0, 2)
		if req.System != "" {
			messages = append(messages, chatMessage{Role: "system", Content: req.System})
		}
		messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

		line := batchFileLine{
			CustomID: req.CustomID,
			Method:   http.MethodPost,
			URL:      "/v1/chat/completions",
			Body: chatCompletion{
				Model:     req.Model,
				MaxTokens: req.MaxTokens,
				Messages:  messages,
			},
		}
		if err := encoder.Encode(line); err != nil {
			return "", fmt.Errorf("failed to encode batch request line: %w", err)
		}
	}

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	if err := writer.WriteField("purpose", "batch"); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("file", "batch_input.jsonl")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(jsonl.Bytes()); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var file fileObject
	if err := p.doJSON(ctx, http.MethodPost, "/files", writer.FormDataContentType(), &form, &file); err != nil {
		return "", fmt.Errorf("OpenAI input artifact upload failed: %w", err)
	}
	return file.ID, nil
}

func (p *OpenAIProvider) getBatch(ctx context.Context, handle string) (*batchObject, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var batch batchObject
	if err := p.doJSON(ctx, http.MethodGet, "/batches/"+handle, "", nil, &batch); err != nil {
		return nil, fmt.Errorf("OpenAI batch status query failed: %w", err)
	}
	return &batch, nil
}

// doJSON performs an authenticated request and decodes the JSON response
func (p *OpenAIProvider) doJSON(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncateBody(data))
	}
	return json.Unmarshal(data, out)
}

// download fetches a file content endpoint and returns the raw bytes
func (p *OpenAIProvider) download(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncateBody(data))
	}
	return data, nil
}

func truncateBody(data []byte) string {
	const limit = 512
	if len(data) > limit {
		return string(data[:limit]) + "..."
	}
	return string(data)
}

// mapOpenAIStatus translates provider batch states to the internal set
func mapOpenAIStatus(status string) interfaces.RemoteBatchStatus {
	switch status {
	case "validating":
		return interfaces.RemoteStatusValidating
	case "in_progress":
		return interfaces.RemoteStatusRunning
	case "finalizing":
		return interfaces.RemoteStatusFinalizing
	case "completed":
		return interfaces.RemoteStatusCompleted
	case "failed":
		return interfaces.RemoteStatusFailed
	case "expired":
		return interfaces.RemoteStatusExpired
	case "cancelling", "cancelled":
		return interfaces.RemoteStatusCancelled
	default:
		return interfaces.RemoteStatusRunning
	}
}
