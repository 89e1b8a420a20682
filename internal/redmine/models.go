package redmine

import "time"

// IDName is the id + display-name pair Redmine uses for most references
// (tracker, status, priority, author, assignee, project).
type IDName struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Project represents a Redmine project.
// LastIssueActivity and LastIssuesSync are maintained by the local cache,
// never by the remote service.
type Project struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Identifier  string     `json:"identifier"`
	Description string     `json:"description"`
	Status      int        `json:"status"`
	Parent      *IDName    `json:"parent,omitempty"`
	CreatedOn   *time.Time `json:"created_on"`
	UpdatedOn   *time.Time `json:"updated_on"`

	LastIssueActivity *time.Time `json:"-"`
	LastIssuesSync    *time.Time `json:"-"`
}

// Issue represents a Redmine issue. Journals and attachments are only
// populated by the single-issue endpoint (include=journals,attachments).
type Issue struct {
	ID          int64     `json:"id"`
	Project     IDName    `json:"project"`
	Tracker     IDName    `json:"tracker"`
	Status      IDName    `json:"status"`
	Priority    IDName    `json:"priority"`
	Author      IDName    `json:"author"`
	AssignedTo  *IDName   `json:"assigned_to,omitempty"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	StartDate   string    `json:"start_date,omitempty"`
	DueDate     string    `json:"due_date,omitempty"`
	DoneRatio   *int      `json:"done_ratio,omitempty"`
	CreatedOn   time.Time `json:"created_on"`
	UpdatedOn   time.Time `json:"updated_on"`

	Journals    []Journal    `json:"journals,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Journal is one comment/change event on an issue.
type Journal struct {
	ID        int64           `json:"id"`
	User      IDName          `json:"user"`
	Notes     string          `json:"notes"`
	CreatedOn time.Time       `json:"created_on"`
	Details   []JournalDetail `json:"details,omitempty"`
}

// JournalDetail is a single field change within a journal entry. Property
// distinguishes standard attributes ("attr") from custom fields ("cf") and
// attachments ("attachment"). Values are opaque strings; decoding them (e.g.
// status id to status name) is a presentation concern.
type JournalDetail struct {
	Property string  `json:"property"`
	Name     string  `json:"name"`
	OldValue *string `json:"old_value"`
	NewValue *string `json:"new_value"`
}

// Attachment metadata as returned by the single-issue endpoint.
type Attachment struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	Filesize    int64     `json:"filesize"`
	ContentType string    `json:"content_type"`
	ContentURL  string    `json:"content_url"`
	Author      IDName    `json:"author"`
	CreatedOn   time.Time `json:"created_on"`
}

// User represents a Redmine user account.
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Mail      string `json:"mail,omitempty"`
}

// DisplayName returns "Firstname Lastname" with empty parts trimmed,
// falling back to the login for accounts without names.
func (u User) DisplayName() string {
	switch {
	case u.Firstname == "" && u.Lastname == "":
		return u.Login
	case u.Firstname == "":
		return u.Lastname
	case u.Lastname == "":
		return u.Firstname
	default:
		return u.Firstname + " " + u.Lastname
	}
}

// Tracker, IssueStatus and Priority are global enumerations.
type Tracker struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type IssueStatus struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Priority struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// IssueCategory is a project-local issue category.
type IssueCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Membership links a user (or group) to a project with roles.
type Membership struct {
	ID      int64    `json:"id"`
	Project IDName   `json:"project"`
	User    *IDName  `json:"user,omitempty"`
	Roles   []IDName `json:"roles"`
}

// ProjectDetail is the single-project endpoint shape with the optional
// includes the client requests (trackers, issue categories).
type ProjectDetail struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Identifier      string          `json:"identifier"`
	Trackers        []Tracker       `json:"trackers"`
	IssueCategories []IssueCategory `json:"issue_categories"`
}

// Paginated response envelopes. TotalCount is authoritative once reported.
type ProjectsPage struct {
	Projects   []Project `json:"projects"`
	TotalCount int       `json:"total_count"`
	Offset     int       `json:"offset"`
	Limit      int       `json:"limit"`
}

type IssuesPage struct {
	Issues     []Issue `json:"issues"`
	TotalCount int     `json:"total_count"`
	Offset     int     `json:"offset"`
	Limit      int     `json:"limit"`
}

type UsersPage struct {
	Users      []User `json:"users"`
	TotalCount int    `json:"total_count"`
	Offset     int    `json:"offset"`
	Limit      int    `json:"limit"`
}

type MembershipsPage struct {
	Memberships []Membership `json:"memberships"`
	TotalCount  int          `json:"total_count"`
	Offset      int          `json:"offset"`
	Limit       int          `json:"limit"`
}

// CreateIssue is the payload for POST /issues.json. Pointer fields are
// omitted when nil so the server applies its own defaults.
type CreateIssue struct {
	ProjectID      int64    `json:"project_id"`
	TrackerID      int64    `json:"tracker_id"`
	StatusID       int64    `json:"status_id"`
	PriorityID     int64    `json:"priority_id"`
	Subject        string   `json:"subject"`
	Description    *string  `json:"description,omitempty"`
	AssignedToID   *int64   `json:"assigned_to_id,omitempty"`
	CategoryID     *int64   `json:"category_id,omitempty"`
	StartDate      *string  `json:"start_date,omitempty"`
	DueDate        *string  `json:"due_date,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	DoneRatio      *int     `json:"done_ratio,omitempty"`
}

// UpdateIssue is the payload for PUT /issues/{id}.json. Notes becomes a new
// journal entry on the server. Every field is optional.
type UpdateIssue struct {
	Subject        *string  `json:"subject,omitempty"`
	Description    *string  `json:"description,omitempty"`
	StatusID       *int64   `json:"status_id,omitempty"`
	PriorityID     *int64   `json:"priority_id,omitempty"`
	AssignedToID   *int64   `json:"assigned_to_id,omitempty"`
	CategoryID     *int64   `json:"category_id,omitempty"`
	DoneRatio      *int     `json:"done_ratio,omitempty"`
	StartDate      *string  `json:"start_date,omitempty"`
	DueDate        *string  `json:"due_date,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
	PrivateNotes   *bool    `json:"private_notes,omitempty"`
}
