package llm

import "updatestracker/internal/config"

type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
}

var modelCatalog = map[string][]ModelInfo{
	config.ProviderHuggingFace: {
		{ID: "Qwen/Qwen2.5-72B-Instruct", Name: "Qwen 2.5 72B Instruct", Description: "Best formatting quality, slower"},
		{ID: "meta-llama/Llama-3.1-8B-Instruct", Name: "Llama 3.1 8B Instruct", Description: "Fast, good for short updates"},
		{ID: "mistralai/Mistral-7B-Instruct-v0.3", Name: "Mistral 7B Instruct", Description: "Fast, lightweight"},
	},
	config.ProviderOpenAI: {
		{ID: "gpt-4o-mini", Name: "GPT-4o mini", Description: "Fast, low cost"},
		{ID: "gpt-4o", Name: "GPT-4o", Description: "Higher quality"},
	},
	config.ProviderAnthropic: {
		{ID: "claude-3-5-haiku-latest", Name: "Claude 3.5 Haiku", Description: "Fast, low cost"},
		{ID: "claude-sonnet-4-5", Name: "Claude Sonnet 4.5", Description: "Higher quality"},
	},
	config.ProviderGemini: {
		{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", Description: "Fast, low cost"},
		{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", Description: "Higher quality"},
	},
}

// Models lists the known models for provider, marking defaultModel. A
// configured model missing from the catalog is listed first.
func Models(provider, defaultModel string) []ModelInfo {
	known := modelCatalog[provider]
	out := make([]ModelInfo, 0, len(known)+1)
	found := false
	for _, m := range known {
		m.Default = m.ID == defaultModel
		found = found || m.Default
		out = append(out, m)
	}
	if !found && defaultModel != "" {
		out = append([]ModelInfo{{ID: defaultModel, Name: defaultModel, Description: "Configured model", Default: true}}, out...)
	}
	return out
}
