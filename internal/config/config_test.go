package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	t.Setenv("MINECLI_CONFIG", path)
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	useTempConfig(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.IsConfigured() {
		t.Error("fresh config should not be configured")
	}
	if !cfg.ExcludeSubprojects {
		t.Error("exclude_subprojects should default to true")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log_level should default to info, got %q", cfg.LogLevel)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := useTempConfig(t)

	cfg := Default()
	cfg.RedmineURL = "https://redmine.example.com"
	cfg.APIKey = "secret"
	cfg.ExcludeSubprojects = false
	cfg.LogLevel = "debug"

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file should be private, got mode %v", info.Mode().Perm())
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, cfg)
	}
	if !got.IsConfigured() {
		t.Error("saved config should be configured")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := useTempConfig(t)
	if err := os.WriteFile(path, []byte("redmine_url: [broken"), 0600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"empty", Config{}, "redmine_url"},
		{"no scheme", Config{RedmineURL: "redmine.example.com", APIKey: "k"}, "http"},
		{"no key", Config{RedmineURL: "https://redmine.example.com"}, "api_key"},
		{"ok", Config{RedmineURL: "https://redmine.example.com", APIKey: "k"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}
