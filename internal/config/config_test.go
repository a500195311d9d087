package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setMinimalValidConfigEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing-config.yaml"))
	t.Setenv("LLM_PROVIDER", "huggingface")
	t.Setenv("HUGGINGFACE_API_KEY", "hf-test")
	t.Setenv("TIMEZONE", "UTC")
	for _, key := range []string{
		"LLM_MODEL", "LLM_TEMPERATURE", "LLM_TIMEOUT_SECONDS", "PREFER_GENERATED",
		"SLACK_BOT_TOKEN", "SLACK_APP_TOKEN", "TEAM_MEMBERS", "DB_PATH", "TAXONOMY_PATH",
		"NUDGE_SCHEDULE", "QUALITY_MAX_BULLETS", "BATCH_CONCURRENCY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnvWithDefaults(t *testing.T) {
	setMinimalValidConfigEnv(t)
	t.Setenv("TEAM_MEMBERS", "U12345, U67890")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLMProvider != ProviderHuggingFace {
		t.Fatalf("unexpected provider: %q", cfg.LLMProvider)
	}
	if cfg.LLMModel != "Qwen/Qwen2.5-72B-Instruct" {
		t.Fatalf("unexpected default model: %q", cfg.LLMModel)
	}
	if cfg.LLMTemperature != 0.2 || cfg.LLMMaxTokens != 500 {
		t.Fatalf("unexpected generation defaults: temp=%g max_tokens=%d", cfg.LLMTemperature, cfg.LLMMaxTokens)
	}
	if cfg.LLMTimeout() != 90*time.Second {
		t.Fatalf("unexpected llm timeout: %s", cfg.LLMTimeout())
	}
	if cfg.PreferGenerated == nil || !*cfg.PreferGenerated {
		t.Fatalf("generation should be preferred by default")
	}
	if cfg.QualityMaxBullets != 5 || cfg.QualityMaxTicketRepeats != 1 {
		t.Fatalf("unexpected quality defaults: %d %d", cfg.QualityMaxBullets, cfg.QualityMaxTicketRepeats)
	}
	if cfg.DBPath != "./updatestracker.db" {
		t.Fatalf("unexpected db path default: %q", cfg.DBPath)
	}
	if cfg.ExternalHTTPTimeoutSeconds != defaultExternalHTTPTimeoutSeconds {
		t.Fatalf("unexpected external HTTP timeout default: %d", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.NudgeSchedule != "0 10 * * 1-5" {
		t.Fatalf("unexpected nudge schedule: %q", cfg.NudgeSchedule)
	}
	if cfg.Location == nil || cfg.Location.String() != "UTC" {
		t.Fatalf("unexpected location: %v", cfg.Location)
	}
	if len(cfg.TeamMembers) != 2 || cfg.TeamMembers[1] != "U67890" {
		t.Fatalf("unexpected team members: %v", cfg.TeamMembers)
	}
	if cfg.SlackConfigured() {
		t.Fatalf("slack should not be configured")
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	setMinimalValidConfigEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm_provider: "anthropic"
anthropic_api_key: "yaml-anthropic"
llm_model: "claude-yaml"
llm_timeout_seconds: 75
prefer_generated: false
quality_hallucination_markers: ["beep boop"]
db_path: "/tmp/yaml.db"
http_addr: ":9000"
timezone: "America/Los_Angeles"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_PATH", cfgPath)
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("DB_PATH", "/tmp/env.db")
	t.Setenv("TIMEZONE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLMProvider != ProviderOpenAI {
		t.Fatalf("expected provider from env override, got %q", cfg.LLMProvider)
	}
	if cfg.LLMModel != "claude-yaml" {
		t.Fatalf("expected model from yaml, got %q", cfg.LLMModel)
	}
	if cfg.LLMTimeoutSeconds != 75 {
		t.Fatalf("expected timeout from yaml, got %d", cfg.LLMTimeoutSeconds)
	}
	if cfg.PreferGenerated == nil || *cfg.PreferGenerated {
		t.Fatalf("expected prefer_generated=false from yaml")
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Fatalf("expected db path from env override, got %q", cfg.DBPath)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Fatalf("expected http addr from yaml, got %q", cfg.HTTPAddr)
	}
	if len(cfg.QualityHallucinationMarkers) != 1 {
		t.Fatalf("expected markers from yaml, got %v", cfg.QualityHallucinationMarkers)
	}
	if cfg.Location == nil || cfg.Location.String() != "America/Los_Angeles" {
		t.Fatalf("expected timezone from yaml, got %v", cfg.Location)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"unknown provider", map[string]string{"LLM_PROVIDER": "bard"}, "llm_provider must be one of"},
		{"missing key", map[string]string{"HUGGINGFACE_API_KEY": ""}, "huggingface_api_key is required"},
		{"timeout too short", map[string]string{"LLM_TIMEOUT_SECONDS": "30"}, "invalid llm_timeout_seconds"},
		{"timeout too long", map[string]string{"LLM_TIMEOUT_SECONDS": "120"}, "invalid llm_timeout_seconds"},
		{"temperature too high", map[string]string{"LLM_TEMPERATURE": "0.9"}, "invalid llm_temperature"},
		{"bad int", map[string]string{"QUALITY_MAX_BULLETS": "five"}, "invalid QUALITY_MAX_BULLETS"},
		{"negative bullets", map[string]string{"QUALITY_MAX_BULLETS": "-1"}, "invalid quality_max_bullets"},
		{"half slack", map[string]string{"SLACK_BOT_TOKEN": "xoxb-test"}, "must be set together"},
		{"bad timezone", map[string]string{"TIMEZONE": "Mars/Colony"}, "invalid timezone"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setMinimalValidConfigEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestProviderNoneNeedsNoKey(t *testing.T) {
	setMinimalValidConfigEnv(t)
	t.Setenv("LLM_PROVIDER", "none")
	t.Setenv("HUGGINGFACE_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GenerationEnabled() {
		t.Fatalf("generation should be disabled")
	}
	if *cfg.PreferGenerated {
		t.Fatalf("prefer_generated should default to false without a provider")
	}
}

func TestEnvOverrideHelpers(t *testing.T) {
	o := &overrider{}

	s := "initial"
	t.Setenv("UT_TEST_STR", "value")
	o.envOverride(&s, "UT_TEST_STR")
	if s != "value" {
		t.Fatalf("envOverride failed, got %q", s)
	}

	i := 1
	t.Setenv("UT_TEST_INT", "42")
	o.envOverrideInt(&i, "UT_TEST_INT")
	if i != 42 {
		t.Fatalf("envOverrideInt failed, got %d", i)
	}

	f := 0.1
	t.Setenv("UT_TEST_FLOAT", "0.75")
	o.envOverrideFloat(&f, "UT_TEST_FLOAT")
	if f != 0.75 {
		t.Fatalf("envOverrideFloat failed, got %f", f)
	}

	b := false
	t.Setenv("UT_TEST_BOOL", "1")
	o.envOverrideBool(&b, "UT_TEST_BOOL")
	if !b {
		t.Fatalf("envOverrideBool failed, got %v", b)
	}

	var list []string
	t.Setenv("UT_TEST_LIST", " a, ,b ")
	o.envOverrideList(&list, "UT_TEST_LIST")
	if len(list) != 2 || list[0] != "a" || list[1] != "b" {
		t.Fatalf("envOverrideList failed, got %v", list)
	}
	if o.err != nil {
		t.Fatalf("unexpected error: %v", o.err)
	}

	t.Setenv("UT_TEST_BAD_INT", "x")
	o.envOverrideInt(&i, "UT_TEST_BAD_INT")
	t.Setenv("UT_TEST_BAD_FLOAT", "y")
	o.envOverrideFloat(&f, "UT_TEST_BAD_FLOAT")
	if o.err == nil || !strings.Contains(o.err.Error(), "UT_TEST_BAD_INT") {
		t.Fatalf("expected first parse error to be kept, got %v", o.err)
	}
}
