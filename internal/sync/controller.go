// Package sync moves data between the remote tracker and the local cache.
package sync

import (
	"fmt"
	gosync "sync"

	"github.com/ecugol/minecli/internal/cache"
	"github.com/ecugol/minecli/internal/logger"
	"github.com/ecugol/minecli/internal/redmine"
)

// pageSize is how many items each remote request asks for.
const pageSize = 100

// State describes what the incremental issue loader is doing.
type State int

const (
	// Idle means no issue sync is running.
	Idle State = iota
	// InProgress means pages are still being fetched for a project.
	InProgress
)

// Controller coordinates all remote fetches. Project and user syncs run to
// completion in one call; issue syncs for a project are incremental, one page
// per AdvanceOnePage call, so the UI stays responsive between pages. Fetched
// issue pages are buffered and only flushed to the cache when the last page
// arrives, so a failed sync never leaves a half-replaced project behind.
type Controller struct {
	client *redmine.Client
	store  *cache.Store

	mu          gosync.Mutex
	state       State
	projectID   int64
	buffer      []redmine.Issue
	total       int
	subprojects bool
}

// NewController creates a sync controller over a client and cache store.
// Issue syncs exclude subproject issues unless IncludeSubprojects is set.
func NewController(client *redmine.Client, store *cache.Store) *Controller {
	return &Controller{client: client, store: store}
}

// IncludeSubprojects makes issue syncs also fetch issues of a project's
// subprojects.
func (c *Controller) IncludeSubprojects(include bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subprojects = include
}

// Begin starts an incremental issue sync for a project. Calling it while a
// sync for the same project is running is a no-op; a different project
// abandons the old buffer and starts over.
func (c *Controller) Begin(projectID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == InProgress && c.projectID == projectID {
		return
	}

	logger.Debug("sync: begin issue sync for project %d", projectID)
	c.state = InProgress
	c.projectID = projectID
	c.buffer = nil
	c.total = 0
}

// Active reports whether an issue sync is running and for which project.
func (c *Controller) Active() (bool, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == InProgress, c.projectID
}

// Progress returns how many issues are buffered and the server-reported
// total. The total is zero until the first page has arrived.
func (c *Controller) Progress() (loaded, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer), c.total
}

// AdvanceOnePage fetches the next page of the running issue sync. It returns
// true when the sync completed and the cache was updated. On completion the
// project's issue set is reconciled with the buffered pages in a single
// cache transaction. On any error the buffer is discarded and the controller
// goes back to Idle. The mutex is not held across the network round-trip, so
// Active and Progress stay responsive while a page is in flight.
func (c *Controller) AdvanceOnePage() (bool, error) {
	c.mu.Lock()
	if c.state != InProgress {
		c.mu.Unlock()
		return true, nil
	}
	projectID := c.projectID
	offset := len(c.buffer)
	subprojects := c.subprojects
	c.mu.Unlock()

	page, err := c.client.ListIssues(redmine.IssueQuery{
		ProjectID:          projectID,
		StatusID:           "*",
		ExcludeSubprojects: !subprojects,
		Sort:               "updated_on:desc",
		Limit:              pageSize,
		Offset:             offset,
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	// A Begin for another project may have raced the fetch; the page belongs
	// to the abandoned sync and is dropped.
	if c.state != InProgress || c.projectID != projectID || len(c.buffer) != offset {
		return true, nil
	}

	if err != nil {
		c.reset()
		return false, fmt.Errorf("failed to fetch issues page: %w", err)
	}

	c.buffer = append(c.buffer, page.Issues...)
	c.total = page.TotalCount

	if len(page.Issues) == pageSize && len(c.buffer) < c.total {
		logger.Debug("sync: project %d at %d/%d issues", c.projectID, len(c.buffer), c.total)
		return false, nil
	}

	logger.Debug("sync: project %d complete with %d issues", c.projectID, len(c.buffer))

	if err := c.store.ReplaceProjectIssues(c.projectID, c.buffer); err != nil {
		c.reset()
		return false, err
	}

	c.reset()
	return true, nil
}

// reset must be called with the mutex held.
func (c *Controller) reset() {
	c.state = Idle
	c.projectID = 0
	c.buffer = nil
	c.total = 0
}

// SyncAllProjects fetches the full project list page by page and upserts it.
// Afterwards it opportunistically seeds project activity from the most
// recently updated issues across all projects and refreshes the user list;
// failures in those follow-ups are logged and swallowed, since the project
// list itself already landed.
func (c *Controller) SyncAllProjects() error {
	offset := 0
	var all []redmine.Project
	for {
		page, err := c.client.ListProjects(pageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to fetch projects page: %w", err)
		}
		all = append(all, page.Projects...)
		offset += len(page.Projects)
		if len(page.Projects) < pageSize || offset >= page.TotalCount {
			break
		}
	}

	logger.Info("sync: fetched %d projects", len(all))

	if err := c.store.UpsertProjects(all); err != nil {
		return err
	}

	if err := c.seedActivity(); err != nil {
		logger.Warn("sync: activity seeding failed: %v", err)
	}
	if err := c.SyncUsers(); err != nil {
		logger.Warn("sync: user sync failed: %v", err)
	}

	return nil
}

// seedActivity caches the site-wide recent issue feed and bumps
// last_issue_activity for the projects it mentions. This gives a fresh
// install warm issues and sensible project ordering before any project has
// been synced individually.
func (c *Controller) seedActivity() error {
	page, err := c.client.RecentIssues(pageSize)
	if err != nil {
		return err
	}
	if len(page.Issues) == 0 {
		return nil
	}

	if err := c.store.UpsertIssues(page.Issues); err != nil {
		return err
	}

	latest := make(map[int64]redmine.Issue)
	for _, issue := range page.Issues {
		cur, ok := latest[issue.Project.ID]
		if !ok || issue.UpdatedOn.After(cur.UpdatedOn) {
			latest[issue.Project.ID] = issue
		}
	}
	for projectID, issue := range latest {
		if err := c.store.TouchProjectActivity(projectID, issue.UpdatedOn); err != nil {
			return err
		}
	}
	return nil
}

// SyncUsers fetches the full user list page by page and upserts it. The users
// endpoint requires admin rights on most servers; callers treat failure as
// non-fatal and fall back to assignee names already present on issues.
func (c *Controller) SyncUsers() error {
	offset := 0
	var all []redmine.User
	for {
		page, err := c.client.ListUsers(pageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to fetch users page: %w", err)
		}
		all = append(all, page.Users...)
		offset += len(page.Users)
		if len(page.Users) < pageSize || offset >= page.TotalCount {
			break
		}
	}

	logger.Debug("sync: fetched %d users", len(all))
	return c.store.UpsertUsers(all)
}

// RefreshIssue fetches one issue with its journals and attachments, replaces
// the cached copy, and returns the cached form.
func (c *Controller) RefreshIssue(issueID int64) (*redmine.Issue, error) {
	issue, err := c.client.GetIssue(issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch issue %d: %w", issueID, err)
	}

	if err := c.store.UpsertIssueWithJournals(issue); err != nil {
		return nil, err
	}

	return c.store.GetIssueWithJournals(issueID)
}
