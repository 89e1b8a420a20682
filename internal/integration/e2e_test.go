//go:build integration

// Package integration contains end-to-end tests that drive the full
// pipeline: mock server → client → sync controller → cache → view facade.
// Run with: go test -tags=integration ./internal/integration/...
package integration

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ecugol/minecli/internal/cache"
	"github.com/ecugol/minecli/internal/redmine"
	syncpkg "github.com/ecugol/minecli/internal/sync"
	"github.com/ecugol/minecli/internal/view"
)

func TestE2E_SyncBrowseEdit(t *testing.T) {
	server := redmine.NewMockServer()
	defer server.Close()

	now := time.Now().UTC()
	server.AddProject(redmine.Project{ID: 1, Name: "Waterworks", Identifier: "waterworks", Status: 1})
	server.AddProject(redmine.Project{ID: 2, Name: "Archive", Identifier: "archive", Status: 1})
	for i := int64(1); i <= 120; i++ {
		status := "New"
		if i%3 == 0 {
			status = "In Progress"
		}
		server.AddIssue(redmine.Issue{
			ID:        i,
			Project:   redmine.IDName{ID: 1, Name: "Waterworks"},
			Tracker:   redmine.IDName{ID: 3, Name: "Task"},
			Status:    redmine.IDName{ID: 1, Name: status},
			Priority:  redmine.IDName{ID: 2, Name: "Normal"},
			Author:    redmine.IDName{ID: 1, Name: "Current User"},
			Subject:   "Pump inspection",
			CreatedOn: now.Add(-time.Duration(i) * time.Hour),
			UpdatedOn: now.Add(-time.Duration(i) * time.Minute),
		})
	}

	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	defer store.Close()

	client := redmine.New(server.URL, "test-key")
	ctrl := syncpkg.NewController(client, store)
	views := view.New(store)

	// Project sync seeds the list and activity ordering.
	if err := ctrl.SyncAllProjects(); err != nil {
		t.Fatalf("SyncAllProjects: %v", err)
	}

	st := view.State{GroupByStatus: true}
	res, err := views.Refresh(st)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(res.Projects) != 2 {
		t.Fatalf("projects = %d, want 2", len(res.Projects))
	}
	if res.ProjectsLastSynced == nil {
		t.Error("expected a projects sync timestamp")
	}

	// Incremental issue sync; 120 issues means two pages.
	ctrl.Begin(1)
	pages := 0
	for {
		done, err := ctrl.AdvanceOnePage()
		if err != nil {
			t.Fatalf("AdvanceOnePage: %v", err)
		}
		pages++
		if done {
			break
		}
		if pages > 10 {
			t.Fatal("sync did not terminate")
		}
	}
	if pages != 2 {
		t.Errorf("pages = %d, want 2", pages)
	}

	st.SelectedProjectID = 1
	res, err = views.Refresh(st)
	if err != nil {
		t.Fatalf("Refresh after sync: %v", err)
	}
	if len(res.Issues) != 120 {
		t.Fatalf("issues = %d, want 120", len(res.Issues))
	}
	if len(res.Groups) == 0 || res.Groups[0].Name != "In Progress" {
		t.Error("expected In Progress grouped first")
	}

	// Edit through the client, refresh the single issue, observe the
	// journal through the cache.
	notes := "flushed the line"
	if err := client.UpdateIssue(7, redmine.UpdateIssue{Notes: &notes}); err != nil {
		t.Fatalf("UpdateIssue: %v", err)
	}
	if _, err := ctrl.RefreshIssue(7); err != nil {
		t.Fatalf("RefreshIssue: %v", err)
	}
	issue, err := store.GetIssueWithJournals(7)
	if err != nil {
		t.Fatalf("GetIssueWithJournals: %v", err)
	}
	if issue == nil || len(issue.Journals) != 1 || issue.Journals[0].Notes != notes {
		t.Error("cached issue should carry the new journal entry")
	}

	// Offline reads keep working once the server is gone.
	server.Close()
	res, err = views.Refresh(st)
	if err != nil {
		t.Fatalf("offline Refresh: %v", err)
	}
	if len(res.Issues) != 120 {
		t.Errorf("offline issues = %d, want 120", len(res.Issues))
	}
}
