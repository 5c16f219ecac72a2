package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/models"
)

func testProviderConfig(baseURL string) *common.ProviderConfig {
	return &common.ProviderConfig{
		Name:           "openai",
		APIKey:         "test-key",
		Model:          "gpt-4o-mini",
		MaxTokens:      512,
		RequestTimeout: 5 * time.Second,
		RateLimit:      "1ms",
		BaseURL:        baseURL,
		CompletionWindows: map[string]string{
			string(models.ModeImmediate): "1h",
			string(models.ModeDeferred):  "24h",
		},
	}
}

// fakeOpenAI serves just enough of the files and batches API for the
// provider round trip
type fakeOpenAI struct {
	uploadedJSONL string
	createPayload map[string]interface{}
	batchStatus   string
	outputJSONL   string
}

func (f *fakeOpenAI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/files", func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "Bearer ") {
			t.Errorf("unexpected authorization header: %s", auth)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("upload was not multipart: %v", err)
		}
		if purpose := r.FormValue("purpose"); purpose != "batch" {
			t.Errorf("expected purpose=batch, got %q", purpose)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer file.Close()
		var sb strings.Builder
		if _, err := io.Copy(&sb, file); err != nil {
			t.Fatal(err)
		}
		f.uploadedJSONL = sb.String()
		json.NewEncoder(w).Encode(map[string]string{"id": "file-123"})
	})

	mux.HandleFunc("/batches", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&f.createPayload); err != nil {
			t.Fatalf("bad batch create payload: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "batch-abc", "status": "validating"})
	})

	mux.HandleFunc("/batches/batch-abc", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"id":             "batch-abc",
			"status":         f.batchStatus,
			"output_file_id": "file-out",
		})
	})

	mux.HandleFunc("/files/file-out/content", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(f.outputJSONL))
	})

	return mux
}

func TestOpenAIProvider_SubmitBatch(t *testing.T) {
	fake := &fakeOpenAI{}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	p, err := NewOpenAIProvider(testProviderConfig(server.URL), nil, arbor.NewLogger())
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	handle, err := p.SubmitBatch(context.Background(), []interfaces.BatchRequest{
		{CustomID: "enrich_c1_profile_0", Model: "gpt-4o-mini", MaxTokens: 512, System: "You are a researcher.", Prompt: "Profile Acme."},
		{CustomID: "enrich_c1_role_1", Model: "gpt-4o-mini", MaxTokens: 512, Prompt: "Analyze the role."},
	}, models.ModeDeferred)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if handle != "batch-abc" {
		t.Errorf("expected handle batch-abc, got %s", handle)
	}

	// The batch references the uploaded artifact at the deferred window
	if fake.createPayload["input_file_id"] != "file-123" {
		t.Errorf("batch does not reference uploaded file: %v", fake.createPayload)
	}
	if fake.createPayload["completion_window"] != "24h" {
		t.Errorf("expected deferred completion window, got %v", fake.createPayload["completion_window"])
	}

	// One JSONL line per request; system prompt becomes a system message
	lines := strings.Split(strings.TrimSpace(fake.uploadedJSONL), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSONL lines, got %d", len(lines))
	}
	var first batchFileLine
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("bad JSONL line: %v", err)
	}
	if first.CustomID != "enrich_c1_profile_0" {
		t.Errorf("custom id lost in upload: %s", first.CustomID)
	}
	if len(first.Body.Messages) != 2 || first.Body.Messages[0].Role != "system" {
		t.Errorf("expected system+user messages, got %+v", first.Body.Messages)
	}
	var second batchFileLine
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}
	if len(second.Body.Messages) != 1 || second.Body.Messages[0].Role != "user" {
		t.Errorf("request without system prompt should carry only the user message, got %+v", second.Body.Messages)
	}
}

func TestOpenAIProvider_SubmitBatchRejectsEmpty(t *testing.T) {
	p, err := NewOpenAIProvider(testProviderConfig("http://localhost:1"), nil, arbor.NewLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.SubmitBatch(context.Background(), nil, models.ModeImmediate); err == nil {
		t.Error("expected empty request list to be rejected")
	}
}

func TestOpenAIProvider_BatchStatus(t *testing.T) {
	fake := &fakeOpenAI{batchStatus: "in_progress"}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	p, err := NewOpenAIProvider(testProviderConfig(server.URL), nil, arbor.NewLogger())
	if err != nil {
		t.Fatal(err)
	}

	status, err := p.BatchStatus(context.Background(), "batch-abc")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status != interfaces.RemoteStatusRunning {
		t.Errorf("expected running, got %s", status)
	}
}

func TestOpenAIProvider_BatchResults(t *testing.T) {
	fake := &fakeOpenAI{
		batchStatus: "completed",
		outputJSONL: strings.Join([]string{
			`{"custom_id":"enrich_c1_profile_0","response":{"status_code":200,"body":{"choices":[{"message":{"content":"Acme builds widgets."}}]}}}`,
			`{"custom_id":"enrich_c1_role_1","error":{"code":"server_error","message":"upstream timeout"}}`,
			``,
		}, "\n"),
	}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	p, err := NewOpenAIProvider(testProviderConfig(server.URL), nil, arbor.NewLogger())
	if err != nil {
		t.Fatal(err)
	}

	results, err := p.BatchResults(context.Background(), "batch-abc")
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Body != "Acme builds widgets." || results[0].Error != "" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if results[1].Body != "" || results[1].Error == "" {
		t.Errorf("expected item-level error on second result: %+v", results[1])
	}
}

func TestMapOpenAIStatus(t *testing.T) {
	cases := map[string]interfaces.RemoteBatchStatus{
		"validating":  interfaces.RemoteStatusValidating,
		"in_progress": interfaces.RemoteStatusRunning,
		"finalizing":  interfaces.RemoteStatusFinalizing,
		"completed":   interfaces.RemoteStatusCompleted,
		"failed":      interfaces.RemoteStatusFailed,
		"expired":     interfaces.RemoteStatusExpired,
		"cancelling":  interfaces.RemoteStatusCancelled,
		"cancelled":   interfaces.RemoteStatusCancelled,
	}
	for raw, want := range cases {
		if got := mapOpenAIStatus(raw); got != want {
			t.Errorf("%s: expected %s, got %s", raw, want, got)
		}
	}
}
