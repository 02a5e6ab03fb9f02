package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"RATEMYFIT_DB", "RATEMYFIT_ADDR", "RATEMYFIT_LOG_LEVEL", "RATEMYFIT_LOG_FORMAT", "RATEMYFIT_ENV",
		"RATEMYFIT_LLM", "RATEMYFIT_LLM_ANALYSIS", "RATEMYFIT_LLM_EXTRACTION", "RATEMYFIT_LLM_RPS",
		"RATEMYFIT_LLM_BURST", "RATEMYFIT_STRATEGY", "RATEMYFIT_MAX_ITEMS", "RATEMYFIT_MATCH_STRATEGY",
		"RATEMYFIT_CATALOG_LIMIT", "OPENROUTER_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestResolveConfig_Precedence_ConfigEnvCLI(t *testing.T) {
	clearEnv(t)
	cfgPath := writeConfig(t, `db_path: ~/.ratemyfit/from-config.db
llm:
  provider: openrouter/openai/gpt-4o-mini
  extraction: openai/gpt-4o-mini
pipeline:
  strategy: advanced
  max_items: 4
`)

	t.Setenv("RATEMYFIT_DB", "~/from-env.db")
	t.Setenv("RATEMYFIT_LLM", "google/gemini-2.5-flash")
	t.Setenv("RATEMYFIT_MAX_ITEMS", "5")

	resolved, err := ResolveConfig(ResolveOptions{
		ConfigPath: cfgPath,
		CLILLM:     "openrouter/google/gemini-2.0-flash-001",
		CLIDBPath:  "~/from-cli.db",
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}

	if resolved.DBPath.Source != SourceCLI {
		t.Fatalf("expected DB path source cli, got %s", resolved.DBPath.Source)
	}
	if resolved.LLMProvider.Source != SourceCLI || resolved.LLMProvider.Value != "openrouter/google/gemini-2.0-flash-001" {
		t.Fatalf("expected llm provider from cli, got %+v", resolved.LLMProvider)
	}
	if resolved.Strategy.Source != SourceConfig || resolved.Strategy.Value != "advanced" {
		t.Fatalf("expected strategy from config, got %+v", resolved.Strategy)
	}
	if resolved.MaxItems.Source != SourceEnv {
		t.Fatalf("expected max items from env, got %s", resolved.MaxItems.Source)
	}
	if n, err := resolved.MaxItems.Int(0); err != nil || n != 5 {
		t.Fatalf("max items = %d, %v; want 5", n, err)
	}
	if resolved.ListenAddr.Source != SourceDefault || resolved.ListenAddr.Value != DefaultListenAddr {
		t.Fatalf("expected default listen addr, got %+v", resolved.ListenAddr)
	}

	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "from-cli.db"); resolved.DBPath.Value != want {
		t.Fatalf("db path = %q, want %q", resolved.DBPath.Value, want)
	}
}

func TestResolveConfig_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	resolved, err := ResolveConfig(ResolveOptions{ConfigPath: filepath.Join(t.TempDir(), "absent.yaml")})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}

	if resolved.Strategy.Source != SourceDefault || resolved.Strategy.Value != DefaultStrategy {
		t.Fatalf("expected default strategy, got %+v", resolved.Strategy)
	}
	if resolved.MatchStrategy.Source != SourceDefault {
		t.Fatalf("expected default match strategy, got %s", resolved.MatchStrategy.Source)
	}
	if limit, err := resolved.CatalogLimit.Int(0); err != nil || limit != DefaultCatalogLimit {
		t.Fatalf("catalog limit = %d, %v; want %d", limit, err, DefaultCatalogLimit)
	}
	if len(resolved.LLMKeys) != 0 {
		t.Fatalf("expected no keys, got %v", resolved.LLMKeys)
	}
}

func TestResolveConfig_InvalidYAML(t *testing.T) {
	clearEnv(t)
	if _, err := ResolveConfig(ResolveOptions{ConfigPath: writeConfig(t, "llm: [unclosed")}); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}

func TestEffectiveLLMModel(t *testing.T) {
	tests := []struct {
		name       string
		cfg        ResolvedConfig
		purpose    string
		wantValue  string
		wantSource ValueSource
	}{
		{
			name:       "purpose override wins",
			cfg:        ResolvedConfig{LLMProvider: ResolvedValue{Value: "google/gemini-2.5-flash", Source: SourceEnv}, LLMExtractionModel: ResolvedValue{Value: "openai/gpt-4o-mini", Source: SourceConfig}},
			purpose:    "extraction",
			wantValue:  "openai/gpt-4o-mini",
			wantSource: SourceConfig,
		},
		{
			name:       "falls back to general provider",
			cfg:        ResolvedConfig{LLMProvider: ResolvedValue{Value: "openrouter/openai/gpt-4o", Source: SourceCLI}},
			purpose:    "analysis",
			wantValue:  "openrouter/openai/gpt-4o",
			wantSource: SourceCLI,
		},
		{
			name:       "bare provider borrows fallback model",
			cfg:        ResolvedConfig{LLMProvider: ResolvedValue{Value: "google", Source: SourceEnv}},
			purpose:    "analysis",
			wantValue:  DefaultLLM,
			wantSource: SourceEnv,
		},
		{
			name:       "nothing set",
			cfg:        ResolvedConfig{},
			purpose:    "analysis",
			wantValue:  DefaultLLM,
			wantSource: SourceDefault,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.EffectiveLLMModel(tt.purpose, "")
			if got.Value != tt.wantValue {
				t.Errorf("value = %q, want %q", got.Value, tt.wantValue)
			}
			if got.Source != tt.wantSource {
				t.Errorf("source = %s, want %s", got.Source, tt.wantSource)
			}
		})
	}
}

func TestAPIKeyForProvider(t *testing.T) {
	clearEnv(t)
	cfgPath := writeConfig(t, `llm:
  provider: google/gemini-2.5-flash
  api_key: cfg-google-key-123
  keys:
    openai: cfg-openai-key-456
`)
	t.Setenv("OPENROUTER_API_KEY", "env-openrouter-key")

	resolved, err := ResolveConfig(ResolveOptions{ConfigPath: cfgPath})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}

	google := resolved.APIKeyForProvider("google/gemini-2.5-flash")
	if google.Value != "cfg-google-key-123" || google.Source != SourceConfig {
		t.Fatalf("unexpected google key %+v", google)
	}
	if got := resolved.APIKeyForProvider("openai").Value; got != "cfg-openai-key-456" {
		t.Fatalf("openai key = %q", got)
	}
	or := resolved.APIKeyForProvider("openrouter/openai/gpt-4o-mini")
	if or.Value != "env-openrouter-key" || or.From != "OPENROUTER_API_KEY" {
		t.Fatalf("unexpected openrouter key %+v", or)
	}
	if got := resolved.APIKeyForProvider("ollama").Value; got != "" {
		t.Fatalf("ollama should have no key, got %q", got)
	}
	if got := resolved.APIKeyForProvider("").Value; got != "" {
		t.Fatalf("empty provider should have no key, got %q", got)
	}

	red := resolved.Redacted()
	if got := red.LLMKeys["google"].Value; got != "cfg-****-123" {
		t.Fatalf("redacted key = %q", got)
	}
	if got := resolved.LLMKeys["google"].Value; got != "cfg-google-key-123" {
		t.Fatalf("Redacted must not mutate, got %q", got)
	}
}

func TestResolvedValueParsing(t *testing.T) {
	n, err := ResolvedValue{}.Int(7)
	if err != nil || n != 7 {
		t.Fatalf("Int default = %d, %v", n, err)
	}

	_, err = ResolvedValue{Value: "six", Source: SourceEnv, From: "RATEMYFIT_MAX_ITEMS"}.Int(0)
	if err == nil || !strings.Contains(err.Error(), "RATEMYFIT_MAX_ITEMS") {
		t.Fatalf("expected error naming the variable, got %v", err)
	}

	f, err := ResolvedValue{Value: "2.5"}.Float(0)
	if err != nil || math.Abs(f-2.5) > 1e-9 {
		t.Fatalf("Float = %v, %v", f, err)
	}
}
