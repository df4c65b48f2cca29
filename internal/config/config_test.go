package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Output.Format != OutputConsole {
		t.Errorf("Output.Format = %s, want console", cfg.Output.Format)
	}
	if cfg.Output.Color != ColorAuto {
		t.Errorf("Output.Color = %s, want auto", cfg.Output.Color)
	}
	if cfg.Logging.Level != LogLevelWarn {
		t.Errorf("Logging.Level = %s, want warn", cfg.Logging.Level)
	}
	if len(cfg.Rules.Exclude) != 0 {
		t.Errorf("Rules.Exclude = %v, want empty", cfg.Rules.Exclude)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "stevedore.toml")

	content := `
[output]
format = "json"
color = "never"

[rules]
follow = ["VAR001", "VAR002"]
exclude = ["M001", "WF002"]

[logging]
level = "debug"
format = "json"
`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Output.Format != OutputJSON {
		t.Errorf("Output.Format = %s, want json", cfg.Output.Format)
	}
	if cfg.Output.Color != ColorNever {
		t.Errorf("Output.Color = %s, want never", cfg.Output.Color)
	}
	if len(cfg.Rules.Follow) != 2 || cfg.Rules.Follow[0] != "VAR001" {
		t.Errorf("Rules.Follow = %v", cfg.Rules.Follow)
	}
	if len(cfg.Rules.Exclude) != 2 || cfg.Rules.Exclude[0] != "M001" {
		t.Errorf("Rules.Exclude = %v", cfg.Rules.Exclude)
	}
	if cfg.Logging.Level != LogLevelDebug {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/stevedore.toml")
	if err != nil {
		t.Fatalf("Load should not fail for non-existent file: %v", err)
	}
	if cfg.Output.Format != OutputConsole {
		t.Errorf("should return defaults, got format = %s", cfg.Output.Format)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "stevedore.toml")
	if err := os.WriteFile(configPath, []byte("[[[ not toml"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Load should fail for invalid TOML")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("STEVEDORE_LOG_LEVEL", "error")

	cfg, err := Load("/nonexistent/stevedore.toml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Logging.Level != LogLevelError {
		t.Errorf("Logging.Level = %s, want error", cfg.Logging.Level)
	}
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	hidden := filepath.Join(dir, ".stevedore.toml")
	if err := os.WriteFile(hidden, []byte("[output]\nformat = \"github\"\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("LoadFromDir failed: %v", err)
	}
	if cfg.Output.Format != OutputGitHub {
		t.Errorf("Output.Format = %s, want github", cfg.Output.Format)
	}

	// the unhidden name wins when both exist
	plain := filepath.Join(dir, "stevedore.toml")
	if err := os.WriteFile(plain, []byte("[output]\nformat = \"junit\"\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	cfg, err = LoadFromDir(dir)
	if err != nil {
		t.Fatalf("LoadFromDir failed: %v", err)
	}
	if cfg.Output.Format != OutputJUnit {
		t.Errorf("Output.Format = %s, want junit", cfg.Output.Format)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, true},
		{"bad color", func(c *Config) { c.Output.Color = "sometimes" }, true},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "yaml" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogFile(t *testing.T) {
	cfg := Default()
	if cfg.LogFile("/base") != "" {
		t.Error("LogFile should be empty when unset")
	}

	cfg.Logging.File = "logs/run.log"
	if got := cfg.LogFile("/base"); got != "/base/logs/run.log" {
		t.Errorf("LogFile = %s", got)
	}

	cfg.Logging.File = "/abs/run.log"
	if got := cfg.LogFile("/base"); got != "/abs/run.log" {
		t.Errorf("LogFile = %s", got)
	}
}
