// Package main provides the CLI entrypoint for minecli.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ecugol/minecli/internal/cache"
	"github.com/ecugol/minecli/internal/config"
	"github.com/ecugol/minecli/internal/logger"
	"github.com/ecugol/minecli/internal/redmine"
	"github.com/ecugol/minecli/internal/tui"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "minecli",
	Short: "Terminal client for Redmine-compatible issue trackers",
	Long: `minecli is an interactive terminal client for Redmine-compatible
issue trackers. It mirrors projects and issues into a local SQLite
cache so browsing is instant and works offline; syncs run in the
background while you navigate.`,
	RunE: runApp,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the configuration file location and current settings",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runApp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.LogFile != "" {
		if err := logger.SetLogFile(cfg.LogFile); err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer logger.Close()
	}
	if cfg.LogLevel != "" {
		level, err := logger.ParseLevel(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		logger.SetLevel(level)
	}

	cachePath, err := resolveCachePath(cfg)
	if err != nil {
		return err
	}

	store, err := cache.Open(cachePath)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer store.Close()

	var client *redmine.Client
	if cfg.IsConfigured() {
		client = redmine.New(cfg.RedmineURL, cfg.APIKey)
	}

	logger.Info("starting minecli, cache at %s", cachePath)
	app := tui.New(cfg, client, store)
	program := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	path, err := config.Path()
	if err != nil {
		return fmt.Errorf("failed to locate config: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cachePath, err := resolveCachePath(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("config file: %s\n", path)
	fmt.Printf("service url: %s\n", orUnset(cfg.RedmineURL))
	fmt.Printf("api key:     %s\n", redactKey(cfg.APIKey))
	fmt.Printf("cache:       %s\n", cachePath)
	fmt.Printf("log level:   %s\n", orUnset(cfg.LogLevel))
	fmt.Printf("log file:    %s\n", orUnset(cfg.LogFile))
	if !cfg.IsConfigured() {
		fmt.Println("\nnot configured yet; run minecli and fill in the settings screen")
	}
	return nil
}

func resolveCachePath(cfg config.Config) (string, error) {
	if cfg.CachePath != "" {
		return cfg.CachePath, nil
	}
	path, err := config.DefaultCachePath()
	if err != nil {
		return "", fmt.Errorf("failed to resolve cache path: %w", err)
	}
	return path, nil
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}

// redactKey keeps just enough of the key to recognize it.
func redactKey(key string) string {
	if key == "" {
		return "(unset)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
