package view

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ecugol/minecli/internal/cache"
	"github.com/ecugol/minecli/internal/redmine"
)

func newTestView(t *testing.T) (*View, *cache.Store) {
	t.Helper()

	store, err := cache.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return New(store), store
}

func project(id int64, name string) redmine.Project {
	return redmine.Project{ID: id, Name: name, Identifier: name + "-ident", Status: 1}
}

func issueWithStatus(id int64, status string, updated time.Time) redmine.Issue {
	return redmine.Issue{
		ID:        id,
		Project:   redmine.IDName{ID: 1},
		Tracker:   redmine.IDName{ID: 1, Name: "Bug"},
		Status:    redmine.IDName{ID: 1, Name: status},
		Priority:  redmine.IDName{ID: 2, Name: "Normal"},
		Author:    redmine.IDName{ID: 5, Name: "Alice Smith"},
		Subject:   "issue",
		CreatedOn: updated.Add(-time.Hour),
		UpdatedOn: updated,
	}
}

func TestRefresh_AppliesFiltersAndClampsCursors(t *testing.T) {
	v, store := newTestView(t)

	if err := store.UpsertProjects([]redmine.Project{project(1, "Alpha"), project(2, "Beta")}); err != nil {
		t.Fatalf("UpsertProjects failed: %v", err)
	}
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := store.UpsertIssues([]redmine.Issue{
		issueWithStatus(10, "New", base),
		issueWithStatus(11, "New", base.Add(time.Hour)),
	}); err != nil {
		t.Fatalf("UpsertIssues failed: %v", err)
	}

	res, err := v.Refresh(State{
		ProjectFilter:     "alp",
		SelectedProjectID: 1,
		ProjectCursor:     10,
		IssueCursor:       10,
	})
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if len(res.Projects) != 1 || res.Projects[0].Name != "Alpha" {
		t.Errorf("project filter not applied: %+v", res.Projects)
	}
	if len(res.Issues) != 2 {
		t.Errorf("expected 2 issues, got %d", len(res.Issues))
	}
	if res.ProjectCursor != 0 {
		t.Errorf("project cursor not clamped, got %d", res.ProjectCursor)
	}
	if res.IssueCursor != 1 {
		t.Errorf("issue cursor should clamp to last row, got %d", res.IssueCursor)
	}
	if res.ProjectsLastSynced == nil {
		t.Error("expected projects-last-synced timestamp after upsert")
	}
}

func TestRefresh_EmptyCacheZeroCursors(t *testing.T) {
	v, _ := newTestView(t)

	res, err := v.Refresh(State{ProjectCursor: 5, IssueCursor: 5})
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if res.ProjectCursor != 0 || res.IssueCursor != 0 {
		t.Errorf("cursors should clamp to 0 on empty results, got %d/%d", res.ProjectCursor, res.IssueCursor)
	}
	if res.ProjectsLastSynced != nil {
		t.Errorf("expected nil sync timestamp on fresh cache, got %v", res.ProjectsLastSynced)
	}
}

func TestProjectTree(t *testing.T) {
	root := project(1, "Root")
	childA := project(2, "ChildA")
	childA.Parent = &redmine.IDName{ID: 1, Name: "Root"}
	grand := project(3, "Grand")
	grand.Parent = &redmine.IDName{ID: 2, Name: "ChildA"}
	orphan := project(4, "Orphan")
	orphan.Parent = &redmine.IDName{ID: 42, Name: "Elsewhere"}

	rows := ProjectTree([]redmine.Project{root, childA, grand, orphan}, nil)

	wantOrder := []int64{1, 2, 3, 4}
	wantDepth := []int{0, 1, 2, 0}
	if len(rows) != len(wantOrder) {
		t.Fatalf("expected %d rows, got %d", len(wantOrder), len(rows))
	}
	for i := range rows {
		if rows[i].Project.ID != wantOrder[i] || rows[i].Depth != wantDepth[i] {
			t.Errorf("row %d: got project %d depth %d", i, rows[i].Project.ID, rows[i].Depth)
		}
	}
	if !rows[0].HasChildren || rows[3].HasChildren {
		t.Errorf("HasChildren flags wrong: %+v", rows)
	}

	// Collapsing Root hides its whole subtree; the orphan root stays.
	rows = ProjectTree([]redmine.Project{root, childA, grand, orphan}, map[int64]bool{1: true})
	if len(rows) != 2 || rows[0].Project.ID != 1 || rows[1].Project.ID != 4 {
		t.Errorf("collapse did not hide subtree: %+v", rows)
	}

	if got := ProjectAtCursor(rows, 1); got == nil || got.ID != 4 {
		t.Errorf("ProjectAtCursor(1) = %+v", got)
	}
	if got := ProjectAtCursor(rows, 99); got != nil {
		t.Errorf("out-of-bounds cursor should return nil, got %+v", got)
	}
}

func TestGroupByStatus_SemanticOrder(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	issues := []redmine.Issue{
		issueWithStatus(1, "Closed", base),
		issueWithStatus(2, "New", base),
		issueWithStatus(3, "In Progress", base),
		issueWithStatus(4, "Waiting on vendor", base),
		issueWithStatus(5, "Resolved", base),
		issueWithStatus(6, "Feedback", base),
		issueWithStatus(7, "New", base),
	}

	groups := GroupByStatus(issues)

	want := []string{"In Progress", "Feedback", "New", "Resolved", "Closed", "Waiting on vendor"}
	if len(groups) != len(want) {
		t.Fatalf("expected %d groups, got %d", len(want), len(groups))
	}
	for i, name := range want {
		if groups[i].Name != name {
			t.Errorf("group %d: expected %q, got %q", i, name, groups[i].Name)
		}
	}
	if len(groups[2].Issues) != 2 {
		t.Errorf("expected 2 issues in New, got %d", len(groups[2].Issues))
	}
}

func TestCursorHelpersAgree(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	groups := GroupByStatus([]redmine.Issue{
		issueWithStatus(1, "In Progress", base),
		issueWithStatus(2, "In Progress", base),
		issueWithStatus(3, "New", base),
	})
	collapsed := map[string]bool{}

	// Layout: [header In Progress, #1, #2, header New, #3]
	if n := VisibleItemCount(groups, collapsed); n != 5 {
		t.Fatalf("expected 5 visible rows, got %d", n)
	}
	if got := IssueAtCursor(groups, collapsed, 0); got != nil {
		t.Errorf("row 0 is a header, got issue %+v", got)
	}
	if got := IssueAtCursor(groups, collapsed, 2); got == nil || got.ID != 2 {
		t.Errorf("row 2 should be issue 2, got %+v", got)
	}
	if got := IssueAtCursor(groups, collapsed, 4); got == nil || got.ID != 3 {
		t.Errorf("row 4 should be issue 3, got %+v", got)
	}
	if name, ok := GroupAtCursor(groups, collapsed, 2); !ok || name != "In Progress" {
		t.Errorf("row 2 group = %q, %v", name, ok)
	}
	if name, ok := GroupAtCursor(groups, collapsed, 3); !ok || name != "New" {
		t.Errorf("row 3 group = %q, %v", name, ok)
	}
	if pos := HeaderPosition(groups, collapsed, "New"); pos != 3 {
		t.Errorf("New header at %d, want 3", pos)
	}

	// Collapse In Progress: [header In Progress, header New, #3]
	collapsed["in progress"] = true
	if n := VisibleItemCount(groups, collapsed); n != 3 {
		t.Fatalf("expected 3 visible rows collapsed, got %d", n)
	}
	if got := IssueAtCursor(groups, collapsed, 2); got == nil || got.ID != 3 {
		t.Errorf("collapsed row 2 should be issue 3, got %+v", got)
	}
	if name, ok := GroupAtCursor(groups, collapsed, 0); !ok || name != "In Progress" {
		t.Errorf("collapsed row 0 group = %q, %v", name, ok)
	}
	if pos := HeaderPosition(groups, collapsed, "New"); pos != 1 {
		t.Errorf("collapsed New header at %d, want 1", pos)
	}
	if _, ok := GroupAtCursor(groups, collapsed, 9); ok {
		t.Error("out-of-bounds cursor should not resolve a group")
	}
	if pos := HeaderPosition(groups, collapsed, "Missing"); pos != -1 {
		t.Errorf("missing header position = %d, want -1", pos)
	}
}

func TestWhatsNewPredicates(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	syncAt := now.Add(-time.Hour)

	fresh := issueWithStatus(1, "New", now)
	stale := issueWithStatus(2, "New", now.Add(-2*time.Hour))

	synced := project(1, "Synced")
	synced.LastIssuesSync = &syncAt

	if !IssueIsNew(&fresh, &synced) {
		t.Error("issue updated after last sync should be new")
	}
	if IssueIsNew(&stale, &synced) {
		t.Error("issue updated before last sync should not be new")
	}

	unsynced := project(2, "Unsynced")
	if !IssueIsNew(&fresh, &unsynced) {
		t.Error("issues of a never-synced project count as new")
	}
	if IssueIsNew(&fresh, nil) {
		t.Error("nil project should never mark issues new")
	}

	active := project(3, "Active")
	active.LastIssueActivity = &now
	active.LastIssuesSync = &syncAt
	if !ProjectHasNews(&active) {
		t.Error("activity after sync should flag the project")
	}

	quiet := project(4, "Quiet")
	quiet.LastIssueActivity = &syncAt
	quiet.LastIssuesSync = &now
	if ProjectHasNews(&quiet) {
		t.Error("activity before sync should not flag the project")
	}
	if ProjectHasNews(&redmine.Project{}) {
		t.Error("no activity means nothing new")
	}

	neverSynced := project(5, "NeverSynced")
	neverSynced.LastIssueActivity = &now
	if !ProjectHasNews(&neverSynced) {
		t.Error("activity on a never-synced project should flag it")
	}
}
