package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	LLM      LLMConfig      `toml:"llm"`
	Loop     LoopConfig     `toml:"loop"`
	Database DatabaseConfig `toml:"database"`
	Preview  PreviewConfig  `toml:"preview"`
	Observer ObserverConfig `toml:"observer"`
}

type LLMConfig struct {
	Model   string `toml:"model"`
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

type LoopConfig struct {
	MaxSteps     int    `toml:"max_steps"`
	SystemPrompt string `toml:"system_prompt"`
}

type DatabaseConfig struct {
	// Driver is "memory", "sqlite", or "postgres".
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
	URL    string `toml:"url"`
}

type PreviewConfig struct {
	Enabled bool `toml:"enabled"`
	DelayMs int  `toml:"delay_ms"`
}

type ObserverConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		LLM:      LLMConfig{Model: "gpt-4o-mini", BaseURL: "https://api.openai.com/v1"},
		Loop:     LoopConfig{MaxSteps: 12},
		Database: DatabaseConfig{Driver: "memory", Path: "vitrail.db"},
		Preview:  PreviewConfig{Enabled: true, DelayMs: 150},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "vitrail.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("VITRAIL_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("VITRAIL_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("VITRAIL_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("VITRAIL_DATABASE_URL"); v != "" {
		cfg.Database.Driver = "postgres"
		cfg.Database.URL = v
	}
	if v := os.Getenv("VITRAIL_OBSERVER_ENABLED"); v == "true" || v == "1" {
		cfg.Observer.Enabled = true
	}

	if cfg.Loop.MaxSteps <= 0 {
		cfg.Loop.MaxSteps = 12
	}
	return cfg
}
