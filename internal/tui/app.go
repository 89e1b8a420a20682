// Package tui is the bubbletea application: the two-pane main screen, the
// issue detail viewport, the create/update/bulk-edit forms and the settings
// screen, wired over the cache, sync controller and view facade.
package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ecugol/minecli/internal/cache"
	"github.com/ecugol/minecli/internal/config"
	"github.com/ecugol/minecli/internal/form"
	"github.com/ecugol/minecli/internal/logger"
	"github.com/ecugol/minecli/internal/redmine"
	issuesync "github.com/ecugol/minecli/internal/sync"
	"github.com/ecugol/minecli/internal/view"
)

type screen int

const (
	screenMain screen = iota
	screenConfig
)

type pane int

const (
	paneProjects pane = iota
	paneIssues
)

type formKind int

const (
	formNone formKind = iota
	formCreate
	formUpdate
	formBulk
)

// App is the top-level tea.Model.
type App struct {
	cfg    config.Config
	client *redmine.Client
	store  *cache.Store
	ctrl   *issuesync.Controller
	views  *view.View

	screen screen
	pane   pane

	state  view.State
	result *view.Result

	// Server metadata for the forms.
	trackers    []redmine.Tracker
	statuses    []redmine.IssueStatus
	priorities  []redmine.Priority
	categories  []redmine.IssueCategory
	members     []redmine.User
	metaProject int64
	currentUser *redmine.User

	searching   bool
	searchInput textinput.Model

	detail     *redmine.Issue
	detailPort viewport.Model
	showDetail bool
	showHelp   bool

	form        *form.Form
	formKind    formKind
	formIssueID int64
	floatBuf    map[string]string

	bulkMode bool
	selected map[int64]bool

	settings settingsModel

	status    string
	statusErr bool
	statusSeq int

	width  int
	height int
}

// New builds the application model. A nil client (unconfigured service)
// starts on the settings screen.
func New(cfg config.Config, client *redmine.Client, store *cache.Store) *App {
	search := textinput.New()
	search.Placeholder = "filter"
	search.Prompt = "/"
	search.CharLimit = 80

	a := &App{
		cfg:    cfg,
		client: client,
		store:  store,
		views:  view.New(store),
		state: view.State{
			GroupByStatus:     true,
			CollapsedGroups:   make(map[string]bool),
			CollapsedProjects: make(map[int64]bool),
		},
		searchInput: search,
		floatBuf:    make(map[string]string),
		selected:    make(map[int64]bool),
		detailPort:  viewport.New(0, 0),
	}
	if client != nil {
		a.ctrl = issuesync.NewController(client, store)
		a.ctrl.IncludeSubprojects(!cfg.ExcludeSubprojects)
	} else {
		a.screen = screenConfig
		a.initConfigScreen()
	}
	a.refresh()
	return a
}

// Init shows the cached lists immediately and kicks off the background
// project sync and metadata load.
func (a *App) Init() tea.Cmd {
	if a.client == nil {
		return textinput.Blink
	}
	return tea.Batch(a.syncProjectsCmd(), a.loadMetadataCmd())
}

// refresh re-runs the view facade with the current state and adopts the
// clamped cursors. Every mutation of filters, sort, sync or issue data is
// followed by a refresh.
func (a *App) refresh() {
	res, err := a.views.Refresh(a.state)
	if err != nil {
		logger.Error("view refresh failed: %v", err)
		return
	}
	a.result = res
	a.state.ProjectCursor = res.ProjectCursor
	a.state.IssueCursor = res.IssueCursor
}

func (a *App) setStatus(text string, isErr bool) tea.Cmd {
	a.status = text
	a.statusErr = isErr
	a.statusSeq++
	if isErr {
		logger.Warn("%s", text)
		return nil
	}
	return expireStatusCmd(a.statusSeq)
}

// assigneePool prefers the selected project's membership users, falling
// back to the globally cached user list.
func (a *App) assigneePool() []redmine.User {
	if a.metaProject != 0 && a.metaProject == a.state.SelectedProjectID && len(a.members) > 0 {
		return a.members
	}
	users, err := a.store.QueryUsers()
	if err != nil {
		logger.Warn("failed to load cached users: %v", err)
		return nil
	}
	return users
}

func (a *App) issueAtCursor() *redmine.Issue {
	if a.result == nil {
		return nil
	}
	if a.state.GroupByStatus {
		return view.IssueAtCursor(a.result.Groups, a.state.CollapsedGroups, a.state.IssueCursor)
	}
	if a.state.IssueCursor >= 0 && a.state.IssueCursor < len(a.result.Issues) {
		return &a.result.Issues[a.state.IssueCursor]
	}
	return nil
}

func (a *App) projectAtCursor() *redmine.Project {
	if a.result == nil {
		return nil
	}
	return view.ProjectAtCursor(a.result.ProjectRows, a.state.ProjectCursor)
}

func (a *App) issueRowCount() int {
	if a.result == nil {
		return 0
	}
	if a.state.GroupByStatus {
		return view.VisibleItemCount(a.result.Groups, a.state.CollapsedGroups)
	}
	return len(a.result.Issues)
}

// Update routes messages to the active screen and overlay.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.detailPort.Width = msg.Width - 8
		a.detailPort.Height = msg.Height - 8
		if a.detail != nil {
			a.detailPort.SetContent(renderIssueDetail(a.detail, a.detailPort.Width))
		}
		return a, nil

	case errMsg:
		return a, a.setStatus(msg.err.Error(), true)

	case clearStatusMsg:
		if msg.seq == a.statusSeq {
			a.status = ""
			a.statusErr = false
		}
		return a, nil

	case projectsSyncedMsg:
		a.refresh()
		return a, a.setStatus("Projects synced", false)

	case metadataLoadedMsg:
		a.trackers = msg.trackers
		a.statuses = msg.statuses
		a.priorities = msg.priorities
		a.currentUser = msg.me
		return a, nil

	case projectMetaMsg:
		a.metaProject = msg.projectID
		a.categories = msg.categories
		a.members = msg.members
		return a, nil

	case syncPageMsg:
		if active, projectID := a.ctrl.Active(); active && projectID == msg.projectID {
			return a, a.advancePageCmd(msg.projectID)
		}
		if msg.done {
			a.refresh()
			return a, a.setStatus("Issues synced", false)
		}
		return a, nil

	case issueLoadedMsg:
		a.detail = msg.issue
		if a.showDetail {
			a.detailPort.SetContent(renderIssueDetail(msg.issue, a.detailPort.Width))
		}
		a.refresh()
		return a, nil

	case issueSavedMsg:
		a.closeForm()
		a.refresh()
		cmd := a.setStatus(msg.text, false)
		if a.state.SelectedProjectID != 0 && a.ctrl != nil {
			if active, _ := a.ctrl.Active(); !active {
				a.ctrl.Begin(a.state.SelectedProjectID)
				return a, tea.Batch(cmd, a.advancePageCmd(a.state.SelectedProjectID))
			}
		}
		return a, cmd

	case bulkDoneMsg:
		a.closeForm()
		a.selected = make(map[int64]bool)
		a.bulkMode = false
		a.refresh()
		if msg.failed > 0 {
			return a, a.setStatus(
				bulkSummary(msg.updated, msg.failed, msg.firstErr), true)
		}
		return a, a.setStatus(bulkSummary(msg.updated, 0, nil), false)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.screen == screenConfig {
		return a.updateConfigScreen(msg)
	}
	if a.form != nil {
		return a.updateForm(msg)
	}
	if a.showDetail {
		return a.updateDetail(msg)
	}
	if a.searching {
		return a.updateSearch(msg)
	}
	if a.showHelp {
		if key.Matches(msg, MainKeys.Quit) {
			return a, tea.Quit
		}
		a.showHelp = false
		return a, nil
	}
	return a.updateMain(msg)
}

func bulkSummary(updated, failed int, firstErr error) string {
	if failed == 0 {
		return pluralize(updated, "issue") + " updated"
	}
	s := pluralize(updated, "issue") + " updated, " + pluralize(failed, "failure")
	if firstErr != nil {
		s += ": " + firstErr.Error()
	}
	return s
}
