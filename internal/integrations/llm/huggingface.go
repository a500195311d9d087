package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultHuggingFaceBaseURL = "https://api-inference.huggingface.co/models"

// HuggingFaceProvider calls the hosted Inference API text-generation task.
type HuggingFaceProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	params  Params
}

func NewHuggingFaceProvider(client *http.Client, baseURL, apiKey string, params Params) *HuggingFaceProvider {
	if baseURL == "" {
		baseURL = defaultHuggingFaceBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HuggingFaceProvider{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		params:  params,
	}
}

func (p *HuggingFaceProvider) Name() string { return "huggingface" }

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	TopP           float64 `json:"top_p"`
	ReturnFullText bool    `json:"return_full_text"`
	DoSample       bool    `json:"do_sample"`
}

func (p *HuggingFaceProvider) Complete(ctx context.Context, prompt, model string) (string, error) {
	bodyBytes, err := json.Marshal(hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			MaxNewTokens:   p.params.MaxTokens,
			Temperature:    p.params.Temperature,
			TopP:           p.params.TopP,
			ReturnFullText: false,
			DoSample:       p.params.Temperature > 0,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/"+model, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HuggingFace API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Provider: p.Name(), Code: resp.StatusCode, Message: errorMessage(respBody)}
	}
	return NormalizeGeneratedText(respBody), nil
}
