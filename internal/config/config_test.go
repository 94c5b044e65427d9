package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Loop.MaxSteps != 12 {
		t.Errorf("expected 12 steps, got %d", cfg.Loop.MaxSteps)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("expected memory driver, got %s", cfg.Database.Driver)
	}
	if !cfg.Preview.Enabled {
		t.Error("expected previews enabled by default")
	}
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.toml")
	os.WriteFile(path, []byte(`
[llm]
model = "gpt-4o"

[loop]
max_steps = 6

[database]
driver = "sqlite"
path = "win.db"
`), 0644)

	cfg := Load(path)
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("expected gpt-4o, got %s", cfg.LLM.Model)
	}
	if cfg.Loop.MaxSteps != 6 {
		t.Errorf("expected 6 steps, got %d", cfg.Loop.MaxSteps)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "win.db" {
		t.Errorf("database = %+v", cfg.Database)
	}
	// Defaults preserved
	if cfg.LLM.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("default base URL should be preserved, got %s", cfg.LLM.BaseURL)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("VITRAIL_API_KEY", "env-key")
	t.Setenv("VITRAIL_MODEL", "env-model")

	cfg := Load("/nonexistent/path.toml")
	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("expected env-key, got %s", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "env-model" {
		t.Errorf("expected env-model, got %s", cfg.LLM.Model)
	}
}

func TestDatabaseURLSwitchesDriver(t *testing.T) {
	t.Setenv("VITRAIL_DATABASE_URL", "postgres://localhost/vitrail")

	cfg := Load("/nonexistent/path.toml")
	if cfg.Database.Driver != "postgres" {
		t.Errorf("expected postgres driver, got %s", cfg.Database.Driver)
	}
	if cfg.Database.URL != "postgres://localhost/vitrail" {
		t.Errorf("url = %s", cfg.Database.URL)
	}
}

func TestMaxStepsFloor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	os.WriteFile(path, []byte("[loop]\nmax_steps = 0\n"), 0644)

	cfg := Load(path)
	if cfg.Loop.MaxSteps != 12 {
		t.Errorf("expected floor to 12, got %d", cfg.Loop.MaxSteps)
	}
}
