package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ecugol/minecli/internal/form"
	"github.com/ecugol/minecli/internal/view"
)

func (a *App) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, MainKeys.Quit):
		return a, tea.Quit

	case key.Matches(msg, MainKeys.Help):
		a.showHelp = true
		return a, nil

	case key.Matches(msg, MainKeys.Config):
		a.screen = screenConfig
		a.initConfigScreen()
		return a, nil

	case key.Matches(msg, MainKeys.Back):
		if a.bulkMode {
			a.bulkMode = false
			a.selected = make(map[int64]bool)
			return a, nil
		}
		if a.state.ProjectFilter != "" || a.state.IssueFilter != "" {
			a.state.ProjectFilter = ""
			a.state.IssueFilter = ""
			a.searchInput.SetValue("")
			a.refresh()
		}
		return a, nil

	case key.Matches(msg, MainKeys.Down):
		a.moveCursor(1)
		return a, nil

	case key.Matches(msg, MainKeys.Up):
		a.moveCursor(-1)
		return a, nil

	case key.Matches(msg, MainKeys.Left):
		a.pane = paneProjects
		return a, nil

	case key.Matches(msg, MainKeys.Right):
		a.pane = paneIssues
		return a, nil

	case key.Matches(msg, MainKeys.Select):
		return a.openSelection()

	case key.Matches(msg, MainKeys.Search):
		a.searching = true
		a.searchInput.SetValue(a.currentFilter())
		a.searchInput.CursorEnd()
		a.searchInput.Focus()
		return a, nil

	case key.Matches(msg, MainKeys.Sort):
		a.state.Sort = a.state.Sort.Next()
		a.refresh()
		return a, a.setStatus("Sort: "+a.state.Sort.String(), false)

	case key.Matches(msg, MainKeys.MyIssues):
		if a.state.AssigneeID != 0 {
			a.state.AssigneeID = 0
		} else if a.currentUser != nil {
			a.state.AssigneeID = a.currentUser.ID
		} else {
			return a, a.setStatus("Current user not known yet", true)
		}
		a.refresh()
		return a, nil

	case key.Matches(msg, MainKeys.Grouping):
		a.state.GroupByStatus = !a.state.GroupByStatus
		a.refresh()
		return a, nil

	case key.Matches(msg, MainKeys.Collapse):
		a.toggleFold()
		return a, nil

	case key.Matches(msg, MainKeys.Refresh):
		return a.triggerRefresh()

	case key.Matches(msg, MainKeys.NewIssue):
		return a.openCreateForm()

	case key.Matches(msg, MainKeys.EditIssue):
		return a.openUpdateForm()

	case key.Matches(msg, MainKeys.BulkMode):
		a.bulkMode = !a.bulkMode
		if !a.bulkMode {
			a.selected = make(map[int64]bool)
		}
		return a, nil

	case a.bulkMode && key.Matches(msg, MainKeys.BulkToggle):
		if issue := a.issueAtCursor(); issue != nil {
			if a.selected[issue.ID] {
				delete(a.selected, issue.ID)
			} else {
				a.selected[issue.ID] = true
			}
			a.moveCursor(1)
		}
		return a, nil

	case a.bulkMode && key.Matches(msg, MainKeys.BulkAll):
		if a.result != nil {
			for _, issue := range a.result.Issues {
				a.selected[issue.ID] = true
			}
		}
		return a, nil

	case a.bulkMode && key.Matches(msg, MainKeys.BulkClear):
		a.selected = make(map[int64]bool)
		return a, nil

	case a.bulkMode && key.Matches(msg, MainKeys.BulkEdit):
		return a.openBulkForm()
	}

	return a, nil
}

func (a *App) moveCursor(delta int) {
	switch a.pane {
	case paneProjects:
		if a.result != nil {
			a.state.ProjectCursor = clampCursor(a.state.ProjectCursor+delta, len(a.result.ProjectRows))
		}
	case paneIssues:
		a.state.IssueCursor = clampCursor(a.state.IssueCursor+delta, a.issueRowCount())
	}
}

func clampCursor(cursor, length int) int {
	if length == 0 {
		return 0
	}
	if cursor < 0 {
		return 0
	}
	if cursor >= length {
		return length - 1
	}
	return cursor
}

// openSelection handles enter: a project starts an incremental issue sync
// for it, an issue opens the detail popup from cache and refreshes it from
// the server in the background.
func (a *App) openSelection() (tea.Model, tea.Cmd) {
	switch a.pane {
	case paneProjects:
		project := a.projectAtCursor()
		if project == nil {
			return a, nil
		}
		a.state.SelectedProjectID = project.ID
		a.state.IssueCursor = 0
		a.pane = paneIssues
		a.refresh()
		if a.ctrl == nil {
			return a, nil
		}
		a.ctrl.Begin(project.ID)
		return a, tea.Batch(
			a.advancePageCmd(project.ID),
			a.loadProjectMetaCmd(project.ID),
		)

	case paneIssues:
		issue := a.issueAtCursor()
		if issue == nil {
			if a.state.GroupByStatus {
				a.toggleFold()
			}
			return a, nil
		}
		a.showDetail = true
		if cached, err := a.store.GetIssueWithJournals(issue.ID); err == nil && cached != nil {
			a.detail = cached
		} else {
			a.detail = issue
		}
		a.detailPort.SetContent(renderIssueDetail(a.detail, a.detailPort.Width))
		a.detailPort.GotoTop()
		if a.ctrl == nil {
			return a, nil
		}
		return a, a.refreshIssueCmd(issue.ID)
	}
	return a, nil
}

// toggleFold collapses/expands the project subtree or status group under
// the cursor.
func (a *App) toggleFold() {
	if a.result == nil {
		return
	}
	switch a.pane {
	case paneProjects:
		project := a.projectAtCursor()
		if project == nil {
			return
		}
		a.state.CollapsedProjects[project.ID] = !a.state.CollapsedProjects[project.ID]
		a.refresh()

	case paneIssues:
		if !a.state.GroupByStatus {
			return
		}
		name, ok := view.GroupAtCursor(a.result.Groups, a.state.CollapsedGroups, a.state.IssueCursor)
		if !ok {
			return
		}
		lower := strings.ToLower(name)
		a.state.CollapsedGroups[lower] = !a.state.CollapsedGroups[lower]
		a.state.IssueCursor = view.HeaderPosition(a.result.Groups, a.state.CollapsedGroups, name)
		a.refresh()
	}
}

func (a *App) triggerRefresh() (tea.Model, tea.Cmd) {
	if a.ctrl == nil {
		return a, a.setStatus("Not configured", true)
	}
	if a.pane == paneIssues && a.state.SelectedProjectID != 0 {
		a.ctrl.Begin(a.state.SelectedProjectID)
		return a, a.advancePageCmd(a.state.SelectedProjectID)
	}
	return a, a.syncProjectsCmd()
}

func (a *App) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		a.searching = false
		a.searchInput.Blur()
		return a, nil
	}

	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	a.setCurrentFilter(a.searchInput.Value())
	a.refresh()
	return a, cmd
}

func (a *App) currentFilter() string {
	if a.pane == paneProjects {
		return a.state.ProjectFilter
	}
	return a.state.IssueFilter
}

func (a *App) setCurrentFilter(text string) {
	if a.pane == paneProjects {
		a.state.ProjectFilter = text
	} else {
		a.state.IssueFilter = text
	}
}

func (a *App) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, DetailKeys.Close):
		a.showDetail = false
		a.detail = nil
		return a, nil

	case key.Matches(msg, DetailKeys.Comment):
		return a.openUpdateForm()
	}

	var cmd tea.Cmd
	a.detailPort, cmd = a.detailPort.Update(msg)
	return a, cmd
}

func (a *App) openCreateForm() (tea.Model, tea.Cmd) {
	if a.state.SelectedProjectID == 0 {
		return a, a.setStatus("Select a project first", true)
	}
	if len(a.trackers) == 0 || len(a.statuses) == 0 || len(a.priorities) == 0 {
		return a, a.setStatus("Metadata still loading, try again shortly", true)
	}
	a.form = form.NewIssueForm(a.trackers, a.statuses, a.priorities, a.assigneePool(), a.categories)
	a.formKind = formCreate
	a.floatBuf = make(map[string]string)
	return a, nil
}

func (a *App) openUpdateForm() (tea.Model, tea.Cmd) {
	issue := a.detail
	if !a.showDetail {
		issue = a.issueAtCursor()
	}
	if issue == nil {
		return a, nil
	}
	if len(a.statuses) == 0 {
		return a, a.setStatus("Metadata still loading, try again shortly", true)
	}
	a.form = form.UpdateIssueForm(a.statuses, a.assigneePool(), a.categories, issue)
	a.formKind = formUpdate
	a.formIssueID = issue.ID
	a.floatBuf = make(map[string]string)
	return a, nil
}

func (a *App) openBulkForm() (tea.Model, tea.Cmd) {
	if len(a.selected) == 0 {
		return a, a.setStatus("No issues selected", true)
	}
	if len(a.statuses) == 0 || len(a.priorities) == 0 {
		return a, a.setStatus("Metadata still loading, try again shortly", true)
	}
	a.form = form.BulkEditForm(a.statuses, a.priorities, a.assigneePool())
	a.formKind = formBulk
	a.floatBuf = make(map[string]string)
	return a, nil
}

func (a *App) closeForm() {
	a.form = nil
	a.formKind = formNone
	a.formIssueID = 0
	a.floatBuf = make(map[string]string)
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
