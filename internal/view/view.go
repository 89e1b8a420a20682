// Package view translates UI filter and sort state into cache queries and
// owns the derived orderings the rendering layer depends on: status grouping,
// the project tree, cursor positioning and "what's new" markers.
package view

import (
	"sort"
	"strings"
	"time"

	"github.com/ecugol/minecli/internal/cache"
	"github.com/ecugol/minecli/internal/redmine"
)

// State is the UI-owned filter/sort/navigation state a Refresh call reads.
type State struct {
	ProjectFilter     string
	IssueFilter       string
	Sort              cache.SortOrder
	AssigneeID        int64 // 0 = everyone
	SelectedProjectID int64 // 0 = all projects
	GroupByStatus     bool

	ProjectCursor int
	IssueCursor   int

	// CollapsedGroups holds lowercased status names of collapsed issue
	// groups; CollapsedProjects holds ids of collapsed tree nodes.
	CollapsedGroups   map[string]bool
	CollapsedProjects map[int64]bool
}

// Result is the materialized view slice the UI renders from. The cursors are
// the caller's cursors clamped against the new result lengths.
type Result struct {
	Projects    []redmine.Project
	ProjectRows []ProjectNode
	Issues      []redmine.Issue
	Groups      []Group

	ProjectsLastSynced *time.Time

	ProjectCursor int
	IssueCursor   int
}

// View is the single translation point between UI state and cache queries.
type View struct {
	store *cache.Store
}

// New creates a view facade over a cache store.
func New(store *cache.Store) *View {
	return &View{store: store}
}

// Refresh re-queries projects and issues with the given filters, rebuilds the
// project tree and status groups, and clamps both cursors. It is the only
// path by which the visible lists change; callers invoke it after every
// filter, sort, sync or mutation that could affect membership or order.
func (v *View) Refresh(st State) (*Result, error) {
	projects, err := v.store.QueryProjects(st.ProjectFilter)
	if err != nil {
		return nil, err
	}

	issues, err := v.store.QueryIssues(st.SelectedProjectID, st.Sort, st.IssueFilter, st.AssigneeID)
	if err != nil {
		return nil, err
	}

	lastSynced, err := v.store.SyncTimestamp(cache.MetaProjectsLastSynced)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Projects:           projects,
		ProjectRows:        ProjectTree(projects, st.CollapsedProjects),
		Issues:             issues,
		ProjectsLastSynced: lastSynced,
	}

	if st.GroupByStatus {
		res.Groups = GroupByStatus(issues)
	}

	res.ProjectCursor = clamp(st.ProjectCursor, len(res.ProjectRows))
	issueRows := len(issues)
	if st.GroupByStatus {
		issueRows = VisibleItemCount(res.Groups, st.CollapsedGroups)
	}
	res.IssueCursor = clamp(st.IssueCursor, issueRows)

	return res, nil
}

func clamp(cursor, length int) int {
	if length == 0 {
		return 0
	}
	if cursor >= length {
		return length - 1
	}
	if cursor < 0 {
		return 0
	}
	return cursor
}

// ProjectNode is one visible row of the project tree.
type ProjectNode struct {
	Project     redmine.Project
	Depth       int
	HasChildren bool
}

// ProjectTree arranges projects into parent/child display order, keeping the
// query's recency order among siblings. Children of a collapsed node are
// hidden. A project whose parent is filtered out renders as a root.
func ProjectTree(projects []redmine.Project, collapsed map[int64]bool) []ProjectNode {
	present := make(map[int64]bool, len(projects))
	for _, p := range projects {
		present[p.ID] = true
	}

	children := make(map[int64][]redmine.Project)
	var roots []redmine.Project
	for _, p := range projects {
		if p.Parent != nil && present[p.Parent.ID] {
			children[p.Parent.ID] = append(children[p.Parent.ID], p)
		} else {
			roots = append(roots, p)
		}
	}

	var rows []ProjectNode
	var walk func(p redmine.Project, depth int)
	walk = func(p redmine.Project, depth int) {
		kids := children[p.ID]
		rows = append(rows, ProjectNode{Project: p, Depth: depth, HasChildren: len(kids) > 0})
		if collapsed[p.ID] {
			return
		}
		for _, kid := range kids {
			walk(kid, depth+1)
		}
	}
	for _, root := range roots {
		walk(root, 0)
	}
	return rows
}

// ProjectAtCursor returns the project on the given visible tree row, or nil
// when the cursor is out of bounds.
func ProjectAtCursor(rows []ProjectNode, cursor int) *redmine.Project {
	if cursor < 0 || cursor >= len(rows) {
		return nil
	}
	return &rows[cursor].Project
}

// Group is a status-named run of issues in the grouped issue view.
type Group struct {
	Name   string
	Issues []redmine.Issue
}

// statusRank maps a status name onto the fixed header priority: work in
// progress surfaces first, terminal states last, anything unrecognized after
// that. Matching is a case-insensitive substring check, so localized variants
// like "In Progress" and "Progressing" land in the same band.
func statusRank(name string) int {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "progress"):
		return 1
	case strings.Contains(lower, "feedback"):
		return 2
	case strings.Contains(lower, "new"):
		return 3
	case strings.Contains(lower, "resolved"):
		return 4
	case strings.Contains(lower, "closed"):
		return 5
	default:
		return 99
	}
}

// GroupByStatus buckets issues by status name and orders the buckets by the
// semantic status priority, not alphabetically. Issues keep their incoming
// order within each bucket. This ordering is deliberately independent of the
// flat status-name sort the cache offers; the UI exposes both.
func GroupByStatus(issues []redmine.Issue) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, issue := range issues {
		i, ok := index[issue.Status.Name]
		if !ok {
			i = len(groups)
			index[issue.Status.Name] = i
			groups = append(groups, Group{Name: issue.Status.Name})
		}
		groups[i].Issues = append(groups[i].Issues, issue)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		ri, rj := statusRank(groups[i].Name), statusRank(groups[j].Name)
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(groups[i].Name) < strings.ToLower(groups[j].Name)
	})
	return groups
}

// The cursor helpers below all iterate the grouped view the same way: each
// group contributes one header row, then its issues unless the group is
// collapsed. Keyboard navigation relies on them agreeing on positions.

// VisibleItemCount returns how many rows the grouped view occupies.
func VisibleItemCount(groups []Group, collapsed map[string]bool) int {
	count := 0
	for _, g := range groups {
		count++
		if !collapsed[strings.ToLower(g.Name)] {
			count += len(g.Issues)
		}
	}
	return count
}

// IssueAtCursor returns the issue on the given visible row, or nil when the
// row is a group header or out of bounds.
func IssueAtCursor(groups []Group, collapsed map[string]bool, cursor int) *redmine.Issue {
	row := 0
	for gi := range groups {
		if row == cursor {
			return nil // header
		}
		row++
		if collapsed[strings.ToLower(groups[gi].Name)] {
			continue
		}
		for ii := range groups[gi].Issues {
			if row == cursor {
				return &groups[gi].Issues[ii]
			}
			row++
		}
	}
	return nil
}

// GroupAtCursor returns the name of the group containing the given visible
// row (header or member), and whether the cursor was in bounds.
func GroupAtCursor(groups []Group, collapsed map[string]bool, cursor int) (string, bool) {
	row := 0
	for _, g := range groups {
		span := 1
		if !collapsed[strings.ToLower(g.Name)] {
			span += len(g.Issues)
		}
		if cursor < row+span {
			return g.Name, true
		}
		row += span
	}
	return "", false
}

// HeaderPosition returns the visible row of a group's header, or -1 when the
// group is not present.
func HeaderPosition(groups []Group, collapsed map[string]bool, name string) int {
	row := 0
	for _, g := range groups {
		if g.Name == name {
			return row
		}
		row++
		if !collapsed[strings.ToLower(g.Name)] {
			row += len(g.Issues)
		}
	}
	return -1
}

// IssueIsNew reports whether an issue changed since its project's issues were
// last synced. An unsynced project's cached issues all count as new; they can
// only have arrived through the recent-activity feed.
func IssueIsNew(issue *redmine.Issue, project *redmine.Project) bool {
	if project == nil {
		return false
	}
	if project.LastIssuesSync == nil {
		return true
	}
	return issue.UpdatedOn.After(*project.LastIssuesSync)
}

// ProjectHasNews reports whether a project saw issue activity after its last
// issue sync.
func ProjectHasNews(project *redmine.Project) bool {
	if project.LastIssueActivity == nil {
		return false
	}
	if project.LastIssuesSync == nil {
		return true
	}
	return project.LastIssueActivity.After(*project.LastIssuesSync)
}
