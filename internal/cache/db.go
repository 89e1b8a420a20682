// Package cache provides the SQLite-backed local mirror of remote projects,
// issues, users and issue journals.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ecugol/minecli/internal/redmine"
)

// Store is the durable cache. It is the sole writer of all cached rows; the
// sync layer and the UI only go through its operations.
type Store struct {
	path string
	conn *sql.DB
}

// SortOrder selects the ordering of QueryIssues results.
type SortOrder int

const (
	SortUpdatedDesc SortOrder = iota // most recently updated first (default)
	SortStatusAsc
	SortStatusDesc
	SortPriorityAsc
	SortPriorityDesc
)

// Next cycles to the following sort order.
func (s SortOrder) Next() SortOrder {
	if s == SortPriorityDesc {
		return SortUpdatedDesc
	}
	return s + 1
}

func (s SortOrder) String() string {
	switch s {
	case SortStatusAsc:
		return "Status ↑"
	case SortStatusDesc:
		return "Status ↓"
	case SortPriorityAsc:
		return "Priority ↑"
	case SortPriorityDesc:
		return "Priority ↓"
	default:
		return "Recent"
	}
}

// MetaProjectsLastSynced is the metadata key stamped by UpsertProjects.
const MetaProjectsLastSynced = "projects_last_synced"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    identifier TEXT NOT NULL,
    description TEXT,
    status INTEGER,
    parent_id INTEGER,
    parent_name TEXT,
    created_on TEXT,
    updated_on TEXT,
    last_issue_activity TEXT,
    last_issues_sync TEXT
);

CREATE TABLE IF NOT EXISTS issues (
    id INTEGER PRIMARY KEY,
    project_id INTEGER NOT NULL,
    tracker_id INTEGER NOT NULL,
    tracker_name TEXT NOT NULL,
    status_id INTEGER NOT NULL,
    status_name TEXT NOT NULL,
    priority_id INTEGER NOT NULL,
    priority_name TEXT NOT NULL,
    author_id INTEGER NOT NULL,
    author_name TEXT NOT NULL,
    assigned_to_id INTEGER,
    assigned_to_name TEXT,
    subject TEXT NOT NULL,
    description TEXT,
    created_on TEXT NOT NULL,
    updated_on TEXT NOT NULL,
    due_date TEXT,
    done_ratio INTEGER
);

CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY,
    login TEXT NOT NULL,
    firstname TEXT NOT NULL,
    lastname TEXT NOT NULL,
    mail TEXT,
    cached_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS journals (
    id INTEGER PRIMARY KEY,
    issue_id INTEGER NOT NULL,
    user_id INTEGER NOT NULL,
    user_name TEXT NOT NULL,
    notes TEXT,
    created_on TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS journal_details (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    journal_id INTEGER NOT NULL,
    property TEXT NOT NULL,
    name TEXT NOT NULL,
    old_value TEXT,
    new_value TEXT
);

CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

var indexSQL = []string{
	"CREATE INDEX IF NOT EXISTS idx_projects_updated ON projects(updated_on DESC)",
	"CREATE INDEX IF NOT EXISTS idx_projects_name ON projects(name)",
	"CREATE INDEX IF NOT EXISTS idx_issues_project ON issues(project_id)",
	"CREATE INDEX IF NOT EXISTS idx_issues_updated ON issues(updated_on DESC)",
	"CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status_name)",
	"CREATE INDEX IF NOT EXISTS idx_issues_priority ON issues(priority_id)",
	"CREATE INDEX IF NOT EXISTS idx_issues_assigned ON issues(assigned_to_id)",
	"CREATE INDEX IF NOT EXISTS idx_issues_subject ON issues(subject)",
	"CREATE INDEX IF NOT EXISTS idx_issues_created ON issues(created_on DESC)",
	"CREATE INDEX IF NOT EXISTS idx_issues_project_updated ON issues(project_id, updated_on DESC)",
	"CREATE INDEX IF NOT EXISTS idx_issues_project_assigned ON issues(project_id, assigned_to_id)",
	"CREATE INDEX IF NOT EXISTS idx_journals_issue ON journals(issue_id)",
	"CREATE INDEX IF NOT EXISTS idx_journal_details_journal ON journal_details(journal_id)",
	"CREATE INDEX IF NOT EXISTS idx_users_login ON users(login)",
}

// Open creates or opens the cache database at the given path and initializes
// the schema. Migrations are additive-only and safe to re-apply.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer; one connection avoids
	// "database is locked" errors.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	for _, stmt := range indexSQL {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
	}

	// Migrate older databases: each ALTER TABLE is run separately and
	// errors are ignored (the column may already exist).
	conn.Exec("ALTER TABLE projects ADD COLUMN parent_id INTEGER")
	conn.Exec("ALTER TABLE projects ADD COLUMN parent_name TEXT")
	conn.Exec("ALTER TABLE projects ADD COLUMN last_issue_activity TEXT")
	conn.Exec("ALTER TABLE projects ADD COLUMN last_issues_sync TEXT")

	return &Store{path: path, conn: conn}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullStr(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed stored timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// UpsertProjects inserts or replaces each project by id. Pre-existing
// last_issue_activity / last_issues_sync values are preserved, the batch is
// stamped into the projects_last_synced metadata key, and last_issue_activity
// is recomputed for every project from the cached issue set. All-or-nothing.
func (s *Store) UpsertProjects(projects []redmine.Project) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range projects {
		var activity, lastSync sql.NullString
		err := tx.QueryRow(
			"SELECT last_issue_activity, last_issues_sync FROM projects WHERE id = ?", p.ID,
		).Scan(&activity, &lastSync)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to read existing project %d: %w", p.ID, err)
		}

		var parentID sql.NullInt64
		var parentName sql.NullString
		if p.Parent != nil {
			parentID = sql.NullInt64{Int64: p.Parent.ID, Valid: true}
			parentName = sql.NullString{String: p.Parent.Name, Valid: true}
		}

		_, err = tx.Exec(`
			INSERT OR REPLACE INTO projects
			(id, name, identifier, description, status, parent_id, parent_name,
			 created_on, updated_on, last_issue_activity, last_issues_sync)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Identifier, nullStr(p.Description), p.Status,
			parentID, parentName, nullTime(p.CreatedOn), nullTime(p.UpdatedOn),
			activity, lastSync,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert project %d: %w", p.ID, err)
		}
	}

	now := formatTime(time.Now())
	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)",
		MetaProjectsLastSynced, now,
	); err != nil {
		return fmt.Errorf("failed to record sync timestamp: %w", err)
	}

	// Recompute activity for every project so ordering stays correct even
	// when issues landed before the project rows did.
	if _, err := tx.Exec(`
		UPDATE projects SET last_issue_activity = (
			SELECT MAX(updated_on) FROM issues WHERE issues.project_id = projects.id
		)`); err != nil {
		return fmt.Errorf("failed to recompute project activity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// QueryProjects returns projects whose name, identifier or description
// contains the filter text (case-insensitive; empty filter matches all),
// ordered most recently active first with fallback through updated_on,
// created_on and the epoch.
func (s *Store) QueryProjects(filter string) ([]redmine.Project, error) {
	query := `
		SELECT id, name, identifier, description, status, parent_id, parent_name,
		       created_on, updated_on, last_issue_activity, last_issues_sync
		FROM projects`
	var args []interface{}

	if filter != "" {
		query += " WHERE (name LIKE ? OR identifier LIKE ? OR description LIKE ?)"
		like := "%" + filter + "%"
		args = append(args, like, like, like)
	}

	query += " ORDER BY COALESCE(last_issue_activity, updated_on, created_on, '1970-01-01T00:00:00Z') DESC"

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	projects := []redmine.Project{}
	for rows.Next() {
		var p redmine.Project
		var description, parentName, createdOn, updatedOn, activity, lastSync sql.NullString
		var status, parentID sql.NullInt64

		err := rows.Scan(&p.ID, &p.Name, &p.Identifier, &description, &status,
			&parentID, &parentName, &createdOn, &updatedOn, &activity, &lastSync)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}

		p.Description = description.String
		p.Status = int(status.Int64)
		if parentID.Valid && parentName.Valid {
			p.Parent = &redmine.IDName{ID: parentID.Int64, Name: parentName.String}
		}
		p.CreatedOn = parseNullTime(createdOn)
		p.UpdatedOn = parseNullTime(updatedOn)
		p.LastIssueActivity = parseNullTime(activity)
		p.LastIssuesSync = parseNullTime(lastSync)

		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}
	return projects, nil
}

const issueInsertSQL = `
	INSERT OR REPLACE INTO issues
	(id, project_id, tracker_id, tracker_name, status_id, status_name,
	 priority_id, priority_name, author_id, author_name,
	 assigned_to_id, assigned_to_name, subject, description,
	 created_on, updated_on, due_date, done_ratio)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func insertIssueRow(e execer, issue *redmine.Issue) error {
	var assignedID sql.NullInt64
	var assignedName sql.NullString
	if issue.AssignedTo != nil {
		assignedID = sql.NullInt64{Int64: issue.AssignedTo.ID, Valid: true}
		assignedName = sql.NullString{String: issue.AssignedTo.Name, Valid: true}
	}

	var doneRatio sql.NullInt64
	if issue.DoneRatio != nil {
		doneRatio = sql.NullInt64{Int64: int64(*issue.DoneRatio), Valid: true}
	}

	_, err := e.Exec(issueInsertSQL,
		issue.ID, issue.Project.ID,
		issue.Tracker.ID, issue.Tracker.Name,
		issue.Status.ID, issue.Status.Name,
		issue.Priority.ID, issue.Priority.Name,
		issue.Author.ID, issue.Author.Name,
		assignedID, assignedName,
		issue.Subject, nullStr(issue.Description),
		formatTime(issue.CreatedOn), formatTime(issue.UpdatedOn),
		nullStr(issue.DueDate), doneRatio,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert issue %d: %w", issue.ID, err)
	}
	return nil
}

// UpsertIssues inserts or replaces each issue by id (journals untouched).
// For every project touched by the batch, last_issue_activity is recomputed
// from the full cached issue set and last_issues_sync is stamped with the
// current time. All-or-nothing.
func (s *Store) UpsertIssues(issues []redmine.Issue) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	touched := make(map[int64]bool)
	for i := range issues {
		if err := insertIssueRow(tx, &issues[i]); err != nil {
			return err
		}
		touched[issues[i].Project.ID] = true
	}

	now := formatTime(time.Now())
	for projectID := range touched {
		var maxUpdated sql.NullString
		err := tx.QueryRow(
			"SELECT MAX(updated_on) FROM issues WHERE project_id = ?", projectID,
		).Scan(&maxUpdated)
		if err != nil {
			return fmt.Errorf("failed to compute activity for project %d: %w", projectID, err)
		}
		if maxUpdated.Valid {
			if _, err := tx.Exec(
				"UPDATE projects SET last_issue_activity = ? WHERE id = ?",
				maxUpdated.String, projectID,
			); err != nil {
				return fmt.Errorf("failed to update activity for project %d: %w", projectID, err)
			}
		}
		if _, err := tx.Exec(
			"UPDATE projects SET last_issues_sync = ? WHERE id = ?", now, projectID,
		); err != nil {
			return fmt.Errorf("failed to stamp sync time for project %d: %w", projectID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const issueSelectSQL = `
	SELECT id, project_id, tracker_id, tracker_name, status_id, status_name,
	       priority_id, priority_name, author_id, author_name,
	       assigned_to_id, assigned_to_name, subject, description,
	       created_on, updated_on, due_date, done_ratio
	FROM issues`

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanIssueFrom(sc scanner) (*redmine.Issue, error) {
	var issue redmine.Issue
	var assignedID, doneRatio sql.NullInt64
	var assignedName, description, dueDate sql.NullString
	var createdOn, updatedOn string

	err := sc.Scan(
		&issue.ID, &issue.Project.ID,
		&issue.Tracker.ID, &issue.Tracker.Name,
		&issue.Status.ID, &issue.Status.Name,
		&issue.Priority.ID, &issue.Priority.Name,
		&issue.Author.ID, &issue.Author.Name,
		&assignedID, &assignedName,
		&issue.Subject, &description,
		&createdOn, &updatedOn, &dueDate, &doneRatio,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan issue: %w", err)
	}

	if assignedID.Valid && assignedName.Valid {
		issue.AssignedTo = &redmine.IDName{ID: assignedID.Int64, Name: assignedName.String}
	}
	issue.Description = description.String
	issue.DueDate = dueDate.String
	if doneRatio.Valid {
		ratio := int(doneRatio.Int64)
		issue.DoneRatio = &ratio
	}
	if issue.CreatedOn, err = parseTime(createdOn); err != nil {
		return nil, err
	}
	if issue.UpdatedOn, err = parseTime(updatedOn); err != nil {
		return nil, err
	}

	return &issue, nil
}

// QueryIssues returns cached issues filtered by project (0 = all), assignee
// (0 = any) and free text, in the requested sort order. Text matches the
// subject, description or the decimal representation of the issue id,
// case-insensitively. Returned issues carry no journals and no project
// display name; those are only loaded through the single-issue path.
func (s *Store) QueryIssues(projectID int64, sort SortOrder, filter string, assigneeID int64) ([]redmine.Issue, error) {
	var conds []string
	var args []interface{}

	if projectID != 0 {
		conds = append(conds, "project_id = ?")
		args = append(args, projectID)
	}
	if assigneeID != 0 {
		conds = append(conds, "assigned_to_id = ?")
		args = append(args, assigneeID)
	}
	if filter != "" {
		conds = append(conds, "(subject LIKE ? OR description LIKE ? OR CAST(id AS TEXT) LIKE ?)")
		like := "%" + filter + "%"
		args = append(args, like, like, like)
	}

	query := issueSelectSQL
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	switch sort {
	case SortStatusAsc:
		query += " ORDER BY status_name ASC"
	case SortStatusDesc:
		query += " ORDER BY status_name DESC"
	case SortPriorityAsc:
		query += " ORDER BY priority_id ASC"
	case SortPriorityDesc:
		query += " ORDER BY priority_id DESC"
	default:
		query += " ORDER BY updated_on DESC"
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()

	issues := []redmine.Issue{}
	for rows.Next() {
		issue, err := scanIssueFrom(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, *issue)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating issue rows: %w", err)
	}
	return issues, nil
}

// ClearProjectIssues deletes all journal details, journals and issues for a
// project. Detail rows are keyed through journal ids and journal rows through
// issue ids, so deletion runs in dependency order.
func (s *Store) ClearProjectIssues(projectID int64) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM journal_details WHERE journal_id IN (
			SELECT j.id FROM journals j
			JOIN issues i ON j.issue_id = i.id
			WHERE i.project_id = ?
		)`, projectID); err != nil {
		return fmt.Errorf("failed to delete journal details: %w", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM journals WHERE issue_id IN (
			SELECT id FROM issues WHERE project_id = ?
		)`, projectID); err != nil {
		return fmt.Errorf("failed to delete journals: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM issues WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("failed to delete issues: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReplaceProjectIssues reconciles a project's cached issues with a freshly
// synced batch in one transaction. Issues the batch no longer mentions are
// deleted together with their journals; everything else is upserted, leaving
// cached journals of surviving issues intact since list data never carries
// them. Activity and sync stamps are updated as in UpsertIssues.
// All-or-nothing: a failure leaves the previous issue set in place.
func (s *Store) ReplaceProjectIssues(projectID int64, issues []redmine.Issue) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	present := make(map[int64]bool, len(issues))
	for i := range issues {
		present[issues[i].ID] = true
	}

	rows, err := tx.Query("SELECT id FROM issues WHERE project_id = ?", projectID)
	if err != nil {
		return fmt.Errorf("failed to query cached issue ids: %w", err)
	}
	var vanished []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan issue id: %w", err)
		}
		if !present[id] {
			vanished = append(vanished, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("error iterating issue ids: %w", err)
	}
	rows.Close()

	for _, id := range vanished {
		if _, err := tx.Exec(`
			DELETE FROM journal_details WHERE journal_id IN (
				SELECT id FROM journals WHERE issue_id = ?
			)`, id); err != nil {
			return fmt.Errorf("failed to delete journal details for issue %d: %w", id, err)
		}
		if _, err := tx.Exec("DELETE FROM journals WHERE issue_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete journals for issue %d: %w", id, err)
		}
		if _, err := tx.Exec("DELETE FROM issues WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete issue %d: %w", id, err)
		}
	}

	// With subprojects included the batch can touch more projects than the
	// one being reconciled; all of them get fresh stamps.
	touched := map[int64]bool{projectID: true}
	for i := range issues {
		if err := insertIssueRow(tx, &issues[i]); err != nil {
			return err
		}
		touched[issues[i].Project.ID] = true
	}

	now := formatTime(time.Now())
	for id := range touched {
		var maxUpdated sql.NullString
		err := tx.QueryRow(
			"SELECT MAX(updated_on) FROM issues WHERE project_id = ?", id,
		).Scan(&maxUpdated)
		if err != nil {
			return fmt.Errorf("failed to compute activity for project %d: %w", id, err)
		}
		if _, err := tx.Exec(
			"UPDATE projects SET last_issue_activity = ?, last_issues_sync = ? WHERE id = ?",
			maxUpdated, now, id,
		); err != nil {
			return fmt.Errorf("failed to stamp project %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpsertIssueWithJournals upserts the issue row, replaces its journal and
// detail set wholesale, stamps the project's last_issue_activity with the
// issue's own updated_on and last_issues_sync with the current time. This is
// the only path that writes journal data.
func (s *Store) UpsertIssueWithJournals(issue *redmine.Issue) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertIssueRow(tx, issue); err != nil {
		return err
	}

	if _, err := tx.Exec(`
		DELETE FROM journal_details WHERE journal_id IN (
			SELECT id FROM journals WHERE issue_id = ?
		)`, issue.ID); err != nil {
		return fmt.Errorf("failed to delete old journal details: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM journals WHERE issue_id = ?", issue.ID); err != nil {
		return fmt.Errorf("failed to delete old journals: %w", err)
	}

	for _, j := range issue.Journals {
		if _, err := tx.Exec(`
			INSERT INTO journals (id, issue_id, user_id, user_name, notes, created_on)
			VALUES (?, ?, ?, ?, ?, ?)`,
			j.ID, issue.ID, j.User.ID, j.User.Name, nullStr(j.Notes), formatTime(j.CreatedOn),
		); err != nil {
			return fmt.Errorf("failed to insert journal %d: %w", j.ID, err)
		}

		for _, d := range j.Details {
			if _, err := tx.Exec(`
				INSERT INTO journal_details (journal_id, property, name, old_value, new_value)
				VALUES (?, ?, ?, ?, ?)`,
				j.ID, d.Property, d.Name, d.OldValue, d.NewValue,
			); err != nil {
				return fmt.Errorf("failed to insert journal detail: %w", err)
			}
		}
	}

	now := formatTime(time.Now())
	if _, err := tx.Exec(
		"UPDATE projects SET last_issue_activity = ?, last_issues_sync = ? WHERE id = ?",
		formatTime(issue.UpdatedOn), now, issue.Project.ID,
	); err != nil {
		return fmt.Errorf("failed to update project activity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetIssueWithJournals returns a cached issue with its journals attached in
// creation-time ascending order, each with its ordered detail list. Returns
// (nil, nil) when the issue is not cached.
func (s *Store) GetIssueWithJournals(issueID int64) (*redmine.Issue, error) {
	row := s.conn.QueryRow(issueSelectSQL+" WHERE id = ?", issueID)
	issue, err := scanIssueFrom(row)
	if err != nil || issue == nil {
		return issue, err
	}

	rows, err := s.conn.Query(`
		SELECT id, user_id, user_name, notes, created_on
		FROM journals WHERE issue_id = ?
		ORDER BY created_on ASC`, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to query journals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var j redmine.Journal
		var notes sql.NullString
		var createdOn string
		if err := rows.Scan(&j.ID, &j.User.ID, &j.User.Name, &notes, &createdOn); err != nil {
			return nil, fmt.Errorf("failed to scan journal: %w", err)
		}
		j.Notes = notes.String
		if j.CreatedOn, err = parseTime(createdOn); err != nil {
			return nil, err
		}
		issue.Journals = append(issue.Journals, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal rows: %w", err)
	}

	for i := range issue.Journals {
		j := &issue.Journals[i]
		detailRows, err := s.conn.Query(`
			SELECT property, name, old_value, new_value
			FROM journal_details WHERE journal_id = ?
			ORDER BY id ASC`, j.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to query journal details: %w", err)
		}
		for detailRows.Next() {
			var d redmine.JournalDetail
			if err := detailRows.Scan(&d.Property, &d.Name, &d.OldValue, &d.NewValue); err != nil {
				detailRows.Close()
				return nil, fmt.Errorf("failed to scan journal detail: %w", err)
			}
			j.Details = append(j.Details, d)
		}
		if err := detailRows.Err(); err != nil {
			detailRows.Close()
			return nil, fmt.Errorf("error iterating journal detail rows: %w", err)
		}
		detailRows.Close()
	}

	return issue, nil
}

// UpsertUsers replaces user rows by id, recording when each row was written.
func (s *Store) UpsertUsers(users []redmine.User) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	for _, u := range users {
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO users (id, login, firstname, lastname, mail, cached_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			u.ID, u.Login, u.Firstname, u.Lastname, nullStr(u.Mail), now,
		); err != nil {
			return fmt.Errorf("failed to upsert user %d: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// QueryUsers returns all cached users ordered by last name then first name.
func (s *Store) QueryUsers() ([]redmine.User, error) {
	rows, err := s.conn.Query(
		"SELECT id, login, firstname, lastname, mail FROM users ORDER BY lastname, firstname")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []redmine.User{}
	for rows.Next() {
		var u redmine.User
		var mail sql.NullString
		if err := rows.Scan(&u.ID, &u.Login, &u.Firstname, &u.Lastname, &mail); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Mail = mail.String
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

// SyncTimestamp returns the timestamp stored under a metadata key, or nil
// when the key has never been stamped.
func (s *Store) SyncTimestamp(key string) (*time.Time, error) {
	var value string
	err := s.conn.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata key %q: %w", key, err)
	}

	t, err := parseTime(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TouchProjectActivity sets a project's last_issue_activity directly. Used
// when a recent-issues feed reveals fresher activity than the cache holds.
func (s *Store) TouchProjectActivity(projectID int64, activity time.Time) error {
	_, err := s.conn.Exec(
		"UPDATE projects SET last_issue_activity = ? WHERE id = ?",
		formatTime(activity), projectID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch project activity: %w", err)
	}
	return nil
}

// ProjectName returns a cached project's display name, or "" when unknown.
func (s *Store) ProjectName(projectID int64) (string, error) {
	var name string
	err := s.conn.QueryRow("SELECT name FROM projects WHERE id = ?", projectID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read project name: %w", err)
	}
	return name, nil
}
