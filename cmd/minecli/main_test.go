package main

import (
	"testing"

	"github.com/ecugol/minecli/internal/config"
)

func TestResolveCachePath(t *testing.T) {
	cfg := config.Config{CachePath: "/tmp/custom/cache.db"}
	got, err := resolveCachePath(cfg)
	if err != nil {
		t.Fatalf("resolveCachePath: %v", err)
	}
	if got != "/tmp/custom/cache.db" {
		t.Errorf("got %q, want override path", got)
	}

	got, err = resolveCachePath(config.Config{})
	if err != nil {
		t.Fatalf("resolveCachePath default: %v", err)
	}
	if got == "" {
		t.Error("expected a default cache path")
	}
}

func TestRedactKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"empty", "", "(unset)"},
		{"short", "abc123", "****"},
		{"long", "0123456789abcdef", "0123...cdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := redactKey(tt.key); got != tt.want {
				t.Errorf("redactKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
