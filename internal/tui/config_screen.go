package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ecugol/minecli/internal/logger"
	"github.com/ecugol/minecli/internal/redmine"
	issuesync "github.com/ecugol/minecli/internal/sync"
)

const (
	settingsFieldURL = iota
	settingsFieldKey
	settingsFieldSubprojects
	settingsFieldCount
)

// settingsModel is the editing state of the settings screen.
type settingsModel struct {
	urlInput textinput.Model
	keyInput textinput.Model
	exclude  bool
	focus    int
}

func (a *App) initConfigScreen() {
	url := textinput.New()
	url.Placeholder = "https://redmine.example.com"
	url.CharLimit = 200
	url.SetValue(a.cfg.RedmineURL)
	url.Focus()

	apiKey := textinput.New()
	apiKey.Placeholder = "API key"
	apiKey.CharLimit = 200
	apiKey.EchoMode = textinput.EchoPassword
	apiKey.SetValue(a.cfg.APIKey)

	a.settings = settingsModel{
		urlInput: url,
		keyInput: apiKey,
		exclude:  a.cfg.ExcludeSubprojects,
	}
}

func (a *App) updateConfigScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := &a.settings

	switch {
	case key.Matches(msg, ConfigKeys.Cancel):
		if a.client == nil {
			return a, tea.Quit
		}
		a.screen = screenMain
		return a, nil

	case key.Matches(msg, ConfigKeys.Save):
		return a.saveConfig()

	case key.Matches(msg, ConfigKeys.Next):
		a.focusSettings((s.focus + 1) % settingsFieldCount)
		return a, nil

	case key.Matches(msg, ConfigKeys.Prev):
		a.focusSettings((s.focus + settingsFieldCount - 1) % settingsFieldCount)
		return a, nil

	case s.focus == settingsFieldSubprojects && key.Matches(msg, ConfigKeys.Toggle):
		s.exclude = !s.exclude
		return a, nil
	}

	var cmd tea.Cmd
	switch s.focus {
	case settingsFieldURL:
		s.urlInput, cmd = s.urlInput.Update(msg)
	case settingsFieldKey:
		s.keyInput, cmd = s.keyInput.Update(msg)
	}
	return a, cmd
}

func (a *App) focusSettings(field int) {
	s := &a.settings
	s.urlInput.Blur()
	s.keyInput.Blur()
	s.focus = field
	switch field {
	case settingsFieldURL:
		s.urlInput.Focus()
	case settingsFieldKey:
		s.keyInput.Focus()
	}
}

// saveConfig validates, persists and rebuilds the client against the new
// service, then kicks the initial sync.
func (a *App) saveConfig() (tea.Model, tea.Cmd) {
	s := &a.settings

	a.cfg.RedmineURL = strings.TrimSpace(s.urlInput.Value())
	a.cfg.APIKey = strings.TrimSpace(s.keyInput.Value())
	a.cfg.ExcludeSubprojects = s.exclude

	if err := a.cfg.Validate(); err != nil {
		return a, a.setStatus(err.Error(), true)
	}
	if err := a.cfg.Save(); err != nil {
		return a, a.setStatus("failed to save config: "+err.Error(), true)
	}

	logger.Info("configuration saved, connecting to %s", a.cfg.RedmineURL)
	a.client = redmine.New(a.cfg.RedmineURL, a.cfg.APIKey)
	a.ctrl = issuesync.NewController(a.client, a.store)
	a.ctrl.IncludeSubprojects(!a.cfg.ExcludeSubprojects)
	a.screen = screenMain
	return a, tea.Batch(
		a.setStatus("Configuration saved", false),
		a.syncProjectsCmd(),
		a.loadMetadataCmd(),
	)
}
