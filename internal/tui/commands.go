package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ecugol/minecli/internal/redmine"
)

// Messages produced by background commands.

type errMsg struct {
	err error
}

type clearStatusMsg struct {
	seq int
}

type projectsSyncedMsg struct{}

type metadataLoadedMsg struct {
	trackers   []redmine.Tracker
	statuses   []redmine.IssueStatus
	priorities []redmine.Priority
	me         *redmine.User
}

type projectMetaMsg struct {
	projectID  int64
	categories []redmine.IssueCategory
	members    []redmine.User
}

type syncPageMsg struct {
	projectID int64
	done      bool
}

type issueLoadedMsg struct {
	issue *redmine.Issue
}

type issueSavedMsg struct {
	id   int64
	text string
}

type bulkDoneMsg struct {
	updated  int
	failed   int
	firstErr error
}

func (a *App) syncProjectsCmd() tea.Cmd {
	return func() tea.Msg {
		if err := a.ctrl.SyncAllProjects(); err != nil {
			return errMsg{fmt.Errorf("project sync failed: %w", err)}
		}
		return projectsSyncedMsg{}
	}
}

// advancePageCmd fetches one page of the active issue sync. The controller
// flushes to cache only when the final page lands, so intermediate messages
// just update the progress indicator.
func (a *App) advancePageCmd(projectID int64) tea.Cmd {
	return func() tea.Msg {
		done, err := a.ctrl.AdvanceOnePage()
		if err != nil {
			return errMsg{fmt.Errorf("issue sync failed: %w", err)}
		}
		return syncPageMsg{projectID: projectID, done: done}
	}
}

func (a *App) loadMetadataCmd() tea.Cmd {
	return func() tea.Msg {
		trackers, err := a.client.ListTrackers()
		if err != nil {
			return errMsg{fmt.Errorf("failed to load trackers: %w", err)}
		}
		statuses, err := a.client.ListStatuses()
		if err != nil {
			return errMsg{fmt.Errorf("failed to load statuses: %w", err)}
		}
		priorities, err := a.client.ListPriorities()
		if err != nil {
			return errMsg{fmt.Errorf("failed to load priorities: %w", err)}
		}
		me, err := a.client.CurrentUser()
		if err != nil {
			me = nil
		}
		return metadataLoadedMsg{trackers: trackers, statuses: statuses, priorities: priorities, me: me}
	}
}

// loadProjectMetaCmd fetches the categories and membership users of a
// project for the create/update forms. Best effort: either list may come
// back empty when the endpoint fails.
func (a *App) loadProjectMetaCmd(projectID int64) tea.Cmd {
	return func() tea.Msg {
		msg := projectMetaMsg{projectID: projectID}
		if detail, err := a.client.GetProjectDetail(projectID); err == nil {
			msg.categories = detail.IssueCategories
		}
		if memberships, err := a.client.ListMemberships(projectID); err == nil {
			for _, m := range memberships {
				if m.User == nil {
					continue
				}
				// Memberships carry a pre-formatted display name, not the
				// first/last split of the users endpoint. Firstname alone
				// is what DisplayName renders when Lastname is empty.
				msg.members = append(msg.members, redmine.User{ID: m.User.ID, Firstname: m.User.Name})
			}
		}
		return msg
	}
}

func (a *App) refreshIssueCmd(issueID int64) tea.Cmd {
	return func() tea.Msg {
		issue, err := a.ctrl.RefreshIssue(issueID)
		if err != nil {
			return errMsg{fmt.Errorf("failed to load issue #%d: %w", issueID, err)}
		}
		return issueLoadedMsg{issue: issue}
	}
}

func (a *App) createIssueCmd(payload redmine.CreateIssue) tea.Cmd {
	return func() tea.Msg {
		created, err := a.client.CreateIssue(payload)
		if err != nil {
			return errMsg{fmt.Errorf("failed to create issue: %w", err)}
		}
		return issueSavedMsg{id: created.ID, text: fmt.Sprintf("Created issue #%d", created.ID)}
	}
}

func (a *App) updateIssueCmd(issueID int64, payload redmine.UpdateIssue) tea.Cmd {
	return func() tea.Msg {
		if err := a.client.UpdateIssue(issueID, payload); err != nil {
			return errMsg{fmt.Errorf("failed to update issue #%d: %w", issueID, err)}
		}
		if _, err := a.ctrl.RefreshIssue(issueID); err != nil {
			return errMsg{fmt.Errorf("updated issue #%d but refresh failed: %w", issueID, err)}
		}
		return issueSavedMsg{id: issueID, text: fmt.Sprintf("Updated issue #%d", issueID)}
	}
}

// bulkUpdateCmd applies one payload to every selected issue, counting
// failures instead of aborting, then refreshes what it touched.
func (a *App) bulkUpdateCmd(ids []int64, payload redmine.UpdateIssue) tea.Cmd {
	return func() tea.Msg {
		msg := bulkDoneMsg{}
		for _, id := range ids {
			if err := a.client.UpdateIssue(id, payload); err != nil {
				msg.failed++
				if msg.firstErr == nil {
					msg.firstErr = err
				}
				continue
			}
			msg.updated++
			if _, err := a.ctrl.RefreshIssue(id); err != nil && msg.firstErr == nil {
				msg.firstErr = err
			}
		}
		return msg
	}
}

func expireStatusCmd(seq int) tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}
