// Package config resolves RateMyFit settings from the YAML config file,
// the environment and CLI flags, in increasing order of precedence. Every
// value records where it came from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// Built-in defaults.
const (
	DefaultDBPath        = "~/.ratemyfit/ratemyfit.db"
	DefaultListenAddr    = ":8080"
	DefaultLogLevel      = "info"
	DefaultEnvironment   = "development"
	DefaultLLM           = "google/gemini-2.5-flash"
	DefaultStrategy      = "standard"
	DefaultMaxItems      = 6
	DefaultMatchStrategy = "first"
	DefaultCatalogLimit  = 3
)

type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// Int parses the value as an integer, returning fallback when empty.
func (v ResolvedValue) Int(fallback int) (int, error) {
	if strings.TrimSpace(v.Value) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v.Value))
	if err != nil {
		return 0, fmt.Errorf("%s (from %s): not an integer: %q", v.Source, v.From, v.Value)
	}
	return n, nil
}

// Float parses the value as a float, returning fallback when empty.
func (v ResolvedValue) Float(fallback float64) (float64, error) {
	if strings.TrimSpace(v.Value) == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
	if err != nil {
		return 0, fmt.Errorf("%s (from %s): not a number: %q", v.Source, v.From, v.Value)
	}
	return f, nil
}

type ResolveOptions struct {
	ConfigPath  string
	CLILLM      string
	CLIDBPath   string
	CLIAddr     string
	CLIStrategy string
	CLILogLevel string
}

type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath      ResolvedValue `json:"db_path"`
	ListenAddr  ResolvedValue `json:"listen_addr"`
	LogLevel    ResolvedValue `json:"log_level"`
	LogFormat   ResolvedValue `json:"log_format"`
	Environment ResolvedValue `json:"environment"`

	LLMProvider        ResolvedValue `json:"llm_provider"`
	LLMAnalysisModel   ResolvedValue `json:"llm_analysis_model"`
	LLMExtractionModel ResolvedValue `json:"llm_extraction_model"`
	LLMRateLimit       ResolvedValue `json:"llm_rate_limit"`
	LLMBurst           ResolvedValue `json:"llm_burst"`

	Strategy      ResolvedValue `json:"strategy"`
	MaxItems      ResolvedValue `json:"max_items"`
	MatchStrategy ResolvedValue `json:"match_strategy"`
	CatalogLimit  ResolvedValue `json:"catalog_limit"`

	LLMKeys map[string]ResolvedValue `json:"llm_keys,omitempty"`
}

type fileConfig struct {
	DBPath      string `yaml:"db_path"`
	Environment string `yaml:"environment"`
	Server      struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	LLM struct {
		Provider   string            `yaml:"provider"`
		APIKey     string            `yaml:"api_key"`
		Keys       map[string]string `yaml:"keys"`
		Analysis   string            `yaml:"analysis"`
		Extraction string            `yaml:"extraction"`
		RateLimit  string            `yaml:"rate_limit"`
		Burst      string            `yaml:"burst"`
	} `yaml:"llm"`
	Pipeline struct {
		Strategy      string `yaml:"strategy"`
		MaxItems      string `yaml:"max_items"`
		MatchStrategy string `yaml:"match_strategy"`
		CatalogLimit  string `yaml:"catalog_limit"`
	} `yaml:"pipeline"`
}

// providerKeyEnv maps provider API key variables to provider names.
var providerKeyEnv = map[string]string{
	"OPENROUTER_API_KEY": "openrouter",
	"OPENAI_API_KEY":     "openai",
	"GEMINI_API_KEY":     "google",
	"GOOGLE_API_KEY":     "google",
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ratemyfit", "config.yaml")
}

func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath:    path,
		DBPath:        defaultValue(DefaultDBPath),
		ListenAddr:    defaultValue(DefaultListenAddr),
		LogLevel:      defaultValue(DefaultLogLevel),
		Environment:   defaultValue(DefaultEnvironment),
		Strategy:      defaultValue(DefaultStrategy),
		MaxItems:      defaultValue(strconv.Itoa(DefaultMaxItems)),
		MatchStrategy: defaultValue(DefaultMatchStrategy),
		CatalogLimit:  defaultValue(strconv.Itoa(DefaultCatalogLimit)),
		LLMKeys:       map[string]ResolvedValue{},
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.Environment, cfg.Environment, SourceConfig, path)
		apply(&out.ListenAddr, cfg.Server.ListenAddr, SourceConfig, path)
		apply(&out.LogLevel, cfg.Log.Level, SourceConfig, path)
		apply(&out.LogFormat, cfg.Log.Format, SourceConfig, path)
		apply(&out.LLMProvider, cfg.LLM.Provider, SourceConfig, path)
		apply(&out.LLMAnalysisModel, cfg.LLM.Analysis, SourceConfig, path)
		apply(&out.LLMExtractionModel, cfg.LLM.Extraction, SourceConfig, path)
		apply(&out.LLMRateLimit, cfg.LLM.RateLimit, SourceConfig, path)
		apply(&out.LLMBurst, cfg.LLM.Burst, SourceConfig, path)
		apply(&out.Strategy, cfg.Pipeline.Strategy, SourceConfig, path)
		apply(&out.MaxItems, cfg.Pipeline.MaxItems, SourceConfig, path)
		apply(&out.MatchStrategy, cfg.Pipeline.MatchStrategy, SourceConfig, path)
		apply(&out.CatalogLimit, cfg.Pipeline.CatalogLimit, SourceConfig, path)

		// A bare api_key applies to every provider named in the file.
		if key := strings.TrimSpace(cfg.LLM.APIKey); key != "" {
			providers := map[string]struct{}{}
			for _, v := range []string{cfg.LLM.Provider, cfg.LLM.Analysis, cfg.LLM.Extraction} {
				if p := providerOf(v); p != "" {
					providers[p] = struct{}{}
				}
			}
			if len(providers) == 0 {
				providers["default"] = struct{}{}
			}
			for p := range providers {
				out.LLMKeys[p] = ResolvedValue{Value: key, Source: SourceConfig, From: path}
			}
		}
		for provider, key := range cfg.LLM.Keys {
			if key = strings.TrimSpace(key); key != "" {
				out.LLMKeys[strings.ToLower(provider)] = ResolvedValue{Value: key, Source: SourceConfig, From: path}
			}
		}
	}

	applyEnv(&out.DBPath, "RATEMYFIT_DB")
	applyEnv(&out.ListenAddr, "RATEMYFIT_ADDR")
	applyEnv(&out.LogLevel, "RATEMYFIT_LOG_LEVEL")
	applyEnv(&out.LogFormat, "RATEMYFIT_LOG_FORMAT")
	applyEnv(&out.Environment, "RATEMYFIT_ENV")
	applyEnv(&out.LLMProvider, "RATEMYFIT_LLM")
	applyEnv(&out.LLMAnalysisModel, "RATEMYFIT_LLM_ANALYSIS")
	applyEnv(&out.LLMExtractionModel, "RATEMYFIT_LLM_EXTRACTION")
	applyEnv(&out.LLMRateLimit, "RATEMYFIT_LLM_RPS")
	applyEnv(&out.LLMBurst, "RATEMYFIT_LLM_BURST")
	applyEnv(&out.Strategy, "RATEMYFIT_STRATEGY")
	applyEnv(&out.MaxItems, "RATEMYFIT_MAX_ITEMS")
	applyEnv(&out.MatchStrategy, "RATEMYFIT_MATCH_STRATEGY")
	applyEnv(&out.CatalogLimit, "RATEMYFIT_CATALOG_LIMIT")

	for env, provider := range providerKeyEnv {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			out.LLMKeys[provider] = ResolvedValue{Value: v, Source: SourceEnv, From: env}
		}
	}

	apply(&out.LLMProvider, opts.CLILLM, SourceCLI, "--llm")
	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.ListenAddr, opts.CLIAddr, SourceCLI, "--addr")
	apply(&out.Strategy, opts.CLIStrategy, SourceCLI, "--strategy")
	apply(&out.LogLevel, opts.CLILogLevel, SourceCLI, "--log-level")

	if out.DBPath.Value != "" {
		out.DBPath.Value = expandUserPath(out.DBPath.Value)
	}

	return out, nil
}

// EffectiveLLMModel returns the provider/model to use for purpose
// ("analysis" or "extraction"). A purpose-specific setting beats the general
// --llm/provider value. A bare provider name only counts when it matches the
// provider of fallback.
func (r ResolvedConfig) EffectiveLLMModel(purpose, fallback string) ResolvedValue {
	purpose = strings.ToLower(strings.TrimSpace(purpose))
	if strings.TrimSpace(fallback) == "" {
		fallback = DefaultLLM
	}

	candidates := []ResolvedValue{}
	switch purpose {
	case "analysis":
		candidates = append(candidates, r.LLMAnalysisModel)
	case "extraction":
		candidates = append(candidates, r.LLMExtractionModel)
	}
	candidates = append(candidates, r.LLMProvider)

	for _, c := range candidates {
		if strings.TrimSpace(c.Value) == "" {
			continue
		}
		if strings.Contains(c.Value, "/") {
			return c
		}
		if strings.HasPrefix(strings.ToLower(fallback), strings.ToLower(strings.TrimSpace(c.Value))+"/") {
			return ResolvedValue{Value: fallback, Source: c.Source, From: c.From}
		}
	}

	return ResolvedValue{Value: fallback, Source: SourceDefault, From: "built-in default"}
}

func (r ResolvedConfig) APIKeyForProvider(providerOrModel string) ResolvedValue {
	provider := providerOf(providerOrModel)
	if provider == "" {
		return ResolvedValue{}
	}
	if v, ok := r.LLMKeys[provider]; ok && strings.TrimSpace(v.Value) != "" {
		return v
	}
	if v, ok := r.LLMKeys["default"]; ok && strings.TrimSpace(v.Value) != "" {
		return v
	}
	return ResolvedValue{}
}

// Redacted returns a copy safe to print: API keys are masked.
func (r ResolvedConfig) Redacted() ResolvedConfig {
	out := r
	out.LLMKeys = make(map[string]ResolvedValue, len(r.LLMKeys))
	for p, v := range r.LLMKeys {
		v.Value = maskKey(v.Value)
		out.LLMKeys[p] = v
	}
	return out
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

func providerOf(providerOrModel string) string {
	v := strings.ToLower(strings.TrimSpace(providerOrModel))
	if v == "" {
		return ""
	}
	if idx := strings.Index(v, "/"); idx > 0 {
		return v[:idx]
	}
	return v
}

func defaultValue(v string) ResolvedValue {
	return ResolvedValue{Value: v, Source: SourceDefault, From: "built-in default"}
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
