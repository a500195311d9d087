package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultExternalHTTPTimeout        = 90 * time.Second
	defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

	DefaultLLMTimeoutSeconds = 90
	MinLLMTimeoutSeconds     = 60
	MaxLLMTimeoutSeconds     = 90
	MaxLLMTemperature        = 0.5
)

// Supported generation providers. ProviderNone disables the generated path.
const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
	ProviderAnthropic   = "anthropic"
	ProviderGemini      = "gemini"
	ProviderNone        = "none"
)

var defaultModels = map[string]string{
	ProviderHuggingFace: "Qwen/Qwen2.5-72B-Instruct",
	ProviderOpenAI:      "gpt-4o-mini",
	ProviderAnthropic:   "claude-3-5-haiku-latest",
	ProviderGemini:      "gemini-2.0-flash",
}

type Config struct {
	LLMProvider          string  `yaml:"llm_provider"`
	LLMModel             string  `yaml:"llm_model"`
	HuggingFaceAPIKey    string  `yaml:"huggingface_api_key"`
	HuggingFaceBaseURL   string  `yaml:"huggingface_base_url"`
	OpenAIAPIKey         string  `yaml:"openai_api_key"`
	OpenAIBaseURL        string  `yaml:"openai_base_url"`
	AnthropicAPIKey      string  `yaml:"anthropic_api_key"`
	GeminiAPIKey         string  `yaml:"gemini_api_key"`
	LLMTemperature       float64 `yaml:"llm_temperature"`
	LLMMaxTokens         int     `yaml:"llm_max_tokens"`
	LLMTimeoutSeconds    int     `yaml:"llm_timeout_seconds"`
	LLMMaxRetries        int     `yaml:"llm_max_retries"`
	LLMRequestsPerSecond float64 `yaml:"llm_requests_per_second"`
	MinGeneratedChars    int     `yaml:"min_generated_chars"`
	PreferGenerated      *bool   `yaml:"prefer_generated"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`

	QualityMaxBullets           int      `yaml:"quality_max_bullets"`
	QualityMaxTicketRepeats     int      `yaml:"quality_max_ticket_repeats"`
	QualityHallucinationMarkers []string `yaml:"quality_hallucination_markers"`
	TaxonomyPath                string   `yaml:"taxonomy_path"`

	DBPath           string `yaml:"db_path"`
	HTTPAddr         string `yaml:"http_addr"`
	LogLevel         string `yaml:"log_level"`
	LogDevelopment   bool   `yaml:"log_development"`
	BatchConcurrency int    `yaml:"batch_concurrency"`

	SlackBotToken   string   `yaml:"slack_bot_token"`
	SlackAppToken   string   `yaml:"slack_app_token"`
	TeamMembers     []string `yaml:"team_members"`
	NudgeSchedule   string   `yaml:"nudge_schedule"`
	ReportChannelID string   `yaml:"report_channel_id"`
	Timezone        string   `yaml:"timezone"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

// Load reads .env (without overriding the environment), then config.yaml or
// CONFIG_PATH, then environment overrides, then applies defaults and
// validates.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config .env skipped err=%v", err)
	}

	var cfg Config
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}

	o := &overrider{}
	o.envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	o.envOverride(&cfg.LLMModel, "LLM_MODEL")
	o.envOverride(&cfg.HuggingFaceAPIKey, "HUGGINGFACE_API_KEY")
	o.envOverride(&cfg.HuggingFaceBaseURL, "HUGGINGFACE_BASE_URL")
	o.envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	o.envOverride(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	o.envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	o.envOverride(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	o.envOverrideFloat(&cfg.LLMTemperature, "LLM_TEMPERATURE")
	o.envOverrideInt(&cfg.LLMMaxTokens, "LLM_MAX_TOKENS")
	o.envOverrideInt(&cfg.LLMTimeoutSeconds, "LLM_TIMEOUT_SECONDS")
	o.envOverrideInt(&cfg.LLMMaxRetries, "LLM_MAX_RETRIES")
	o.envOverrideFloat(&cfg.LLMRequestsPerSecond, "LLM_REQUESTS_PER_SECOND")
	o.envOverrideInt(&cfg.MinGeneratedChars, "MIN_GENERATED_CHARS")
	o.envOverrideBoolPtr(&cfg.PreferGenerated, "PREFER_GENERATED")
	o.envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	o.envOverrideInt(&cfg.QualityMaxBullets, "QUALITY_MAX_BULLETS")
	o.envOverrideInt(&cfg.QualityMaxTicketRepeats, "QUALITY_MAX_TICKET_REPEATS")
	o.envOverrideList(&cfg.QualityHallucinationMarkers, "QUALITY_HALLUCINATION_MARKERS")
	o.envOverrideAllowEmpty(&cfg.TaxonomyPath, "TAXONOMY_PATH")
	o.envOverride(&cfg.DBPath, "DB_PATH")
	o.envOverride(&cfg.HTTPAddr, "HTTP_ADDR")
	o.envOverride(&cfg.LogLevel, "LOG_LEVEL")
	o.envOverrideBool(&cfg.LogDevelopment, "LOG_DEVELOPMENT")
	o.envOverrideInt(&cfg.BatchConcurrency, "BATCH_CONCURRENCY")
	o.envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	o.envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	o.envOverrideList(&cfg.TeamMembers, "TEAM_MEMBERS")
	o.envOverrideAllowEmpty(&cfg.NudgeSchedule, "NUDGE_SCHEDULE")
	o.envOverride(&cfg.ReportChannelID, "REPORT_CHANNEL_ID")
	o.envOverride(&cfg.Timezone, "TIMEZONE")
	if o.err != nil {
		return Config{}, o.err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = ProviderHuggingFace
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultModels[cfg.LLMProvider]
	}
	if cfg.HuggingFaceBaseURL == "" {
		cfg.HuggingFaceBaseURL = "https://api-inference.huggingface.co/models"
	}
	if cfg.OpenAIBaseURL == "" {
		cfg.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLMTemperature == 0 {
		cfg.LLMTemperature = 0.2
	}
	if cfg.LLMMaxTokens == 0 {
		cfg.LLMMaxTokens = 500
	}
	if cfg.LLMTimeoutSeconds == 0 {
		cfg.LLMTimeoutSeconds = DefaultLLMTimeoutSeconds
	}
	if cfg.LLMMaxRetries == 0 {
		cfg.LLMMaxRetries = 3
	}
	if cfg.LLMRequestsPerSecond == 0 {
		cfg.LLMRequestsPerSecond = 2
	}
	if cfg.MinGeneratedChars == 0 {
		cfg.MinGeneratedChars = 20
	}
	if cfg.PreferGenerated == nil {
		prefer := cfg.LLMProvider != ProviderNone
		cfg.PreferGenerated = &prefer
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.QualityMaxBullets == 0 {
		cfg.QualityMaxBullets = 5
	}
	if cfg.QualityMaxTicketRepeats == 0 {
		cfg.QualityMaxTicketRepeats = 1
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./updatestracker.db"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":5000"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.BatchConcurrency == 0 {
		cfg.BatchConcurrency = 4
	}
	if cfg.NudgeSchedule == "" {
		cfg.NudgeSchedule = "0 10 * * 1-5"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
}

func (cfg *Config) validate() error {
	switch cfg.LLMProvider {
	case ProviderHuggingFace:
		if cfg.HuggingFaceAPIKey == "" {
			return fmt.Errorf("huggingface_api_key is required when llm_provider=huggingface")
		}
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return fmt.Errorf("openai_api_key is required when llm_provider=openai")
		}
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return fmt.Errorf("anthropic_api_key is required when llm_provider=anthropic")
		}
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return fmt.Errorf("gemini_api_key is required when llm_provider=gemini")
		}
	case ProviderNone:
	default:
		return fmt.Errorf("llm_provider must be one of huggingface, openai, anthropic, gemini, none; got '%s'", cfg.LLMProvider)
	}

	if cfg.LLMTemperature < 0 || cfg.LLMTemperature > MaxLLMTemperature {
		return fmt.Errorf("invalid llm_temperature '%g': must be between 0 and %g", cfg.LLMTemperature, MaxLLMTemperature)
	}
	if cfg.LLMMaxTokens < 1 {
		return fmt.Errorf("invalid llm_max_tokens '%d': must be >= 1", cfg.LLMMaxTokens)
	}
	if cfg.LLMTimeoutSeconds < MinLLMTimeoutSeconds || cfg.LLMTimeoutSeconds > MaxLLMTimeoutSeconds {
		return fmt.Errorf("invalid llm_timeout_seconds '%d': must be between %d and %d", cfg.LLMTimeoutSeconds, MinLLMTimeoutSeconds, MaxLLMTimeoutSeconds)
	}
	if cfg.LLMMaxRetries < 1 {
		return fmt.Errorf("invalid llm_max_retries '%d': must be >= 1", cfg.LLMMaxRetries)
	}
	if cfg.LLMRequestsPerSecond <= 0 {
		return fmt.Errorf("invalid llm_requests_per_second '%g': must be > 0", cfg.LLMRequestsPerSecond)
	}
	if cfg.MinGeneratedChars < 1 {
		return fmt.Errorf("invalid min_generated_chars '%d': must be >= 1", cfg.MinGeneratedChars)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		return fmt.Errorf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.QualityMaxBullets < 1 {
		return fmt.Errorf("invalid quality_max_bullets '%d': must be >= 1", cfg.QualityMaxBullets)
	}
	if cfg.QualityMaxTicketRepeats < 1 {
		return fmt.Errorf("invalid quality_max_ticket_repeats '%d': must be >= 1", cfg.QualityMaxTicketRepeats)
	}
	if cfg.BatchConcurrency < 1 {
		return fmt.Errorf("invalid batch_concurrency '%d': must be >= 1", cfg.BatchConcurrency)
	}
	if (cfg.SlackBotToken == "") != (cfg.SlackAppToken == "") {
		return fmt.Errorf("slack_bot_token and slack_app_token must be set together")
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
		}
		cfg.Location = loc
	}
	return nil
}

// LLMTimeout is the wall-clock bound of one generation call.
func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

func (c Config) GenerationEnabled() bool {
	return c.LLMProvider != ProviderNone
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackAppToken != ""
}

// DefaultModel returns the model used when llm_model is not set.
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// overrider applies environment variables to config fields and keeps the
// first parse error.
type overrider struct {
	err error
}

func (o *overrider) envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func (o *overrider) envOverrideAllowEmpty(field *string, envKey string) {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = val
	}
}

func (o *overrider) envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			o.fail(fmt.Errorf("invalid %s '%s': %w", envKey, val, err))
			return
		}
		*field = parsed
	}
}

func (o *overrider) envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			o.fail(fmt.Errorf("invalid %s '%s': %w", envKey, val, err))
			return
		}
		*field = parsed
	}
}

func (o *overrider) envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = strings.EqualFold(val, "true") || val == "1"
	}
}

func (o *overrider) envOverrideBoolPtr(field **bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		b := strings.EqualFold(val, "true") || val == "1"
		*field = &b
	}
}

func (o *overrider) envOverrideList(field *[]string, envKey string) {
	val := os.Getenv(envKey)
	if val == "" {
		return
	}
	*field = nil
	for _, item := range strings.Split(val, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			*field = append(*field, item)
		}
	}
}

func (o *overrider) fail(err error) {
	if o.err == nil {
		o.err = err
	}
}
