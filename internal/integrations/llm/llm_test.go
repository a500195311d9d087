package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"updatestracker/internal/config"
	"updatestracker/internal/domain"
)

const longText = "## Completed\n- Fixed login bug\n\n## In Progress\nNone\n\n## Support\nNone\n"

var testParams = Params{Temperature: 0.2, MaxTokens: 500, TopP: 0.9}

type countingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *countingObserver) ObserveAttempt(provider, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, provider+":"+outcome)
}

func newTestAdapter(t *testing.T, srv *httptest.Server, opts AdapterOptions) *Adapter {
	t.Helper()
	opts.Provider = NewHuggingFaceProvider(srv.Client(), srv.URL, "hf-test", testParams)
	if opts.InitialBackoff == 0 {
		opts.InitialBackoff = time.Millisecond
	}
	return NewAdapter(opts)
}

func TestNormalizeGeneratedText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"array wrapped", `[{"generated_text":"  hello world "}]`, "hello world"},
		{"object wrapped", `{"generated_text":"hello"}`, "hello"},
		{"json string", `"just text"`, "just text"},
		{"raw body", "## Completed\n- done", "## Completed\n- done"},
		{"empty array", `[]`, ""},
		{"object without text", `{"error":"loading"}`, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeGeneratedText([]byte(tc.body)); got != tc.want {
				t.Fatalf("NormalizeGeneratedText(%q) = %q, want %q", tc.body, got, tc.want)
			}
		})
	}
}

func TestErrorMessageTruncatesOnRuneBoundary(t *testing.T) {
	msg := strings.Repeat("é", 250)
	body, _ := json.Marshal(map[string]any{"error": map[string]string{"message": msg}})

	got := errorMessage(body)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated message is not valid UTF-8: %q", got)
	}
	if want := strings.Repeat("é", 200) + "..."; got != want {
		t.Fatalf("errorMessage kept %d runes, want 200 plus ellipsis", utf8.RuneCountInString(got))
	}
	if got := errorMessage([]byte("short failure")); got != "short failure" {
		t.Fatalf("errorMessage(raw) = %q", got)
	}
}

func TestHuggingFaceProviderRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Qwen/Qwen2.5-72B-Instruct" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer hf-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body hfRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Inputs != "the prompt" || body.Parameters.MaxNewTokens != 500 || body.Parameters.ReturnFullText {
			t.Errorf("unexpected request body: %+v", body)
		}
		if body.Parameters.Temperature != 0.2 || body.Parameters.TopP != 0.9 {
			t.Errorf("unexpected sampling params: %+v", body.Parameters)
		}
		fmt.Fprintf(w, `[{"generated_text":%q}]`, longText)
	}))
	defer srv.Close()

	p := NewHuggingFaceProvider(srv.Client(), srv.URL+"/", "hf-test", testParams)
	got, err := p.Complete(context.Background(), "the prompt", "Qwen/Qwen2.5-72B-Instruct")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != strings.TrimSpace(longText) {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestAdapterRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":"Model is currently loading"}`)
			return
		}
		fmt.Fprintf(w, `{"generated_text":%q}`, longText)
	}))
	defer srv.Close()

	obs := &countingObserver{}
	a := newTestAdapter(t, srv, AdapterOptions{Observer: obs})
	got, err := a.Generate(context.Background(), "prompt", "m")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(got, "## Completed") {
		t.Fatalf("unexpected text %q", got)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
	want := []string{"huggingface:error", "huggingface:error", "huggingface:ok"}
	if strings.Join(obs.outcomes, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected observed outcomes %v", obs.outcomes)
	}
}

func TestAdapterRetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		maxTries  int
		wantCalls int32
	}{
		{"bad request is not retried", http.StatusBadRequest, 3, 1},
		{"unauthorized is not retried", http.StatusUnauthorized, 3, 1},
		{"rate limited is retried", http.StatusTooManyRequests, 2, 2},
		{"server error exhausts tries", http.StatusInternalServerError, 3, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tc.status)
				fmt.Fprint(w, `{"error":{"message":"nope"}}`)
			}))
			defer srv.Close()

			a := newTestAdapter(t, srv, AdapterOptions{MaxTries: tc.maxTries})
			_, err := a.Generate(context.Background(), "prompt", "m")
			if !errors.Is(err, domain.ErrGenerationTransport) {
				t.Fatalf("expected transport error, got %v", err)
			}
			var se *StatusError
			if !errors.As(err, &se) || se.Code != tc.status || se.Message != "nope" {
				t.Fatalf("expected StatusError %d, got %v", tc.status, err)
			}
			if calls.Load() != tc.wantCalls {
				t.Fatalf("expected %d calls, got %d", tc.wantCalls, calls.Load())
			}
		})
	}
}

func TestAdapterTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv, AdapterOptions{Timeout: 50 * time.Millisecond})
	started := time.Now()
	_, err := a.Generate(context.Background(), "prompt", "m")
	if !errors.Is(err, domain.ErrGenerationTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if took := time.Since(started); took > time.Second {
		t.Fatalf("timeout not enforced, took %s", took)
	}
}

func TestAdapterShortOutputIsEmpty(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `[{"generated_text":"  ok  "}]`)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv, AdapterOptions{})
	_, err := a.Generate(context.Background(), "prompt", "m")
	if !errors.Is(err, domain.ErrGenerationEmpty) {
		t.Fatalf("expected empty error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("short output must not be retried, got %d calls", calls.Load())
	}
}

func TestAdapterRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"generated_text":%q}`, longText)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv, AdapterOptions{RequestsPerSecond: 10})
	started := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := a.Generate(context.Background(), "prompt", "m"); err != nil {
			t.Fatalf("Generate #%d: %v", i, err)
		}
	}
	if took := time.Since(started); took < 150*time.Millisecond {
		t.Fatalf("rate limit not applied, 3 calls took %s", took)
	}
}

func TestOpenAIProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var body openAIRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Model != "gpt-4o-mini" || len(body.Messages) != 1 || body.MaxTokens != 500 {
			t.Errorf("unexpected request: %+v", body)
		}
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, longText)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.Client(), srv.URL, "sk-test", testParams)
	got, err := p.Complete(context.Background(), "prompt", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != longText {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestOpenAIProviderNoChoicesIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	a := NewAdapter(AdapterOptions{
		Provider:       NewOpenAIProvider(srv.Client(), srv.URL, "sk-test", testParams),
		InitialBackoff: time.Millisecond,
	})
	_, err := a.Generate(context.Background(), "prompt", "gpt-4o-mini")
	if !errors.Is(err, domain.ErrGenerationEmpty) {
		t.Fatalf("expected empty error, got %v", err)
	}
}

func TestAnthropicProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "sk-ant-test" {
			t.Errorf("unexpected api key header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-latest",
			"content":[{"type":"text","text":%q}],"stop_reason":"end_turn",
			"usage":{"input_tokens":10,"output_tokens":20}}`, longText)
	}))
	defer srv.Close()

	p := NewAnthropicProvider(srv.Client(), srv.URL, "sk-ant-test", testParams)
	got, err := p.Complete(context.Background(), "prompt", "claude-3-5-haiku-latest")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != longText {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestAnthropicProviderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer srv.Close()

	p := NewAnthropicProvider(srv.Client(), srv.URL, "sk-ant-test", testParams)
	_, err := p.Complete(context.Background(), "prompt", "claude-3-5-haiku-latest")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests || !se.Retryable() {
		t.Fatalf("expected retryable StatusError, got %v", err)
	}
}

func TestGeminiProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "gemini-2.0-flash:generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":%q}]},"finishReason":"STOP"}]}`, longText)
	}))
	defer srv.Close()

	p, err := NewGeminiProvider(context.Background(), srv.Client(), srv.URL+"/", "gm-test", testParams)
	if err != nil {
		t.Fatalf("NewGeminiProvider: %v", err)
	}
	got, err := p.Complete(context.Background(), "prompt", "gemini-2.0-flash")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != longText {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
	}{
		{config.ProviderHuggingFace, "huggingface"},
		{config.ProviderOpenAI, "openai"},
		{config.ProviderAnthropic, "anthropic"},
		{config.ProviderGemini, "gemini"},
		{config.ProviderNone, ""},
	}
	for _, tc := range tests {
		cfg := config.Config{
			LLMProvider:       tc.provider,
			HuggingFaceAPIKey: "hf",
			OpenAIAPIKey:      "sk",
			AnthropicAPIKey:   "sk-ant",
			GeminiAPIKey:      "gm",
			LLMTemperature:    0.2,
			LLMMaxTokens:      500,
		}
		p, err := NewProvider(context.Background(), cfg, http.DefaultClient)
		if err != nil {
			t.Fatalf("NewProvider(%s): %v", tc.provider, err)
		}
		if tc.wantName == "" {
			if p != nil {
				t.Fatalf("expected no provider for %s", tc.provider)
			}
			continue
		}
		if p.Name() != tc.wantName {
			t.Fatalf("NewProvider(%s).Name() = %s", tc.provider, p.Name())
		}
	}

	if _, err := NewProvider(context.Background(), config.Config{LLMProvider: "bard"}, nil); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestModels(t *testing.T) {
	models := Models(config.ProviderHuggingFace, "Qwen/Qwen2.5-72B-Instruct")
	if len(models) != 3 || !models[0].Default || models[1].Default {
		t.Fatalf("unexpected catalog: %+v", models)
	}

	models = Models(config.ProviderOpenAI, "my-finetune")
	if models[0].ID != "my-finetune" || !models[0].Default || len(models) != 3 {
		t.Fatalf("configured model should be listed first: %+v", models)
	}
}
