package redmine

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockServer provides a fake Redmine API for testing. It implements the
// paginated list endpoints, the single-issue endpoint with journals, and the
// create/update mutations.
type MockServer struct {
	*httptest.Server
	mu          sync.RWMutex
	projects    map[int64]*Project
	issues      map[int64]*Issue
	users       map[int64]*User
	categories  map[int64][]IssueCategory
	memberships map[int64][]Membership
	current     User
	nextID      int64

	// FailRequests makes every request return 500, for error-path tests.
	FailRequests bool

	// Gate, when set, makes every request announce itself on the channel and
	// wait for a reply before being served. Lets a test hold a request in
	// flight. Set it before the first request is issued.
	Gate chan struct{}
}

// NewMockServer creates a mock Redmine API server with no data.
func NewMockServer() *MockServer {
	m := &MockServer{
		projects:    make(map[int64]*Project),
		issues:      make(map[int64]*Issue),
		users:       make(map[int64]*User),
		categories:  make(map[int64][]IssueCategory),
		memberships: make(map[int64][]Membership),
		current:     User{ID: 1, Login: "me", Firstname: "Current", Lastname: "User"},
		nextID:      10000,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/projects.json", m.wrap(m.handleListProjects))
	mux.HandleFunc("/projects/", m.wrap(m.handleProject))
	mux.HandleFunc("/issues.json", m.wrap(m.handleIssues))
	mux.HandleFunc("/issues/", m.wrap(m.handleIssue))
	mux.HandleFunc("/users.json", m.wrap(m.handleListUsers))
	mux.HandleFunc("/users/current.json", m.wrap(m.handleCurrentUser))
	mux.HandleFunc("/trackers.json", m.wrap(m.handleTrackers))
	mux.HandleFunc("/issue_statuses.json", m.wrap(m.handleStatuses))
	mux.HandleFunc("/enumerations/issue_priorities.json", m.wrap(m.handlePriorities))

	m.Server = httptest.NewServer(mux)
	return m
}

func (m *MockServer) wrap(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		fail := m.FailRequests
		gate := m.Gate
		m.mu.RUnlock()
		if fail {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if gate != nil {
			gate <- struct{}{}
			<-gate
		}
		h(w, r)
	}
}

// AddProject adds a project to the mock server.
func (m *MockServer) AddProject(p Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := p
	m.projects[p.ID] = &cp
}

// AddIssue adds an issue to the mock server.
func (m *MockServer) AddIssue(i Issue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := i
	m.issues[i.ID] = &cp
}

// AddUser adds a user account to the mock server.
func (m *MockServer) AddUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := u
	m.users[u.ID] = &cp
}

// AddCategory adds an issue category to a project.
func (m *MockServer) AddCategory(projectID int64, c IssueCategory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[projectID] = append(m.categories[projectID], c)
}

// AddMembership adds a membership to a project.
func (m *MockServer) AddMembership(projectID int64, mb Membership) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memberships[projectID] = append(m.memberships[projectID], mb)
}

// Issue returns an issue by id for test assertions.
func (m *MockServer) Issue(id int64) *Issue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.issues[id]
}

func paging(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 25
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (m *MockServer) handleListProjects(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]Project, 0, len(m.projects))
	for _, p := range m.projects {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	limit, offset := paging(r)
	page := slicePage(all, limit, offset)
	writeJSON(w, ProjectsPage{Projects: page, TotalCount: len(all), Offset: offset, Limit: limit})
}

// handleProject serves /projects/{id}.json and /projects/{id}/memberships.json.
func (m *MockServer) handleProject(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/projects/")

	if idStr, ok := strings.CutSuffix(rest, "/memberships.json"); ok {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "invalid project id", http.StatusBadRequest)
			return
		}
		m.handleMemberships(w, r, id)
		return
	}

	id, err := strconv.ParseInt(strings.TrimSuffix(rest, ".json"), 10, 64)
	if err != nil {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	detail := ProjectDetail{
		ID:              p.ID,
		Name:            p.Name,
		Identifier:      p.Identifier,
		Trackers:        []Tracker{{ID: 1, Name: "Bug"}, {ID: 2, Name: "Feature"}, {ID: 3, Name: "Task"}},
		IssueCategories: m.categories[id],
	}
	writeJSON(w, struct {
		Project ProjectDetail `json:"project"`
	}{detail})
}

func (m *MockServer) handleMemberships(w http.ResponseWriter, r *http.Request, projectID int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.memberships[projectID]
	limit, offset := paging(r)
	page := slicePage(all, limit, offset)
	writeJSON(w, MembershipsPage{Memberships: page, TotalCount: len(all), Offset: offset, Limit: limit})
}

func (m *MockServer) handleIssues(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		m.handleListIssues(w, r)
	case http.MethodPost:
		m.handleCreateIssue(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (m *MockServer) handleListIssues(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []Issue
	projectFilter, _ := strconv.ParseInt(r.URL.Query().Get("project_id"), 10, 64)
	for _, i := range m.issues {
		if projectFilter != 0 && i.Project.ID != projectFilter {
			continue
		}
		// list responses never carry journals or attachments
		cp := *i
		cp.Journals = nil
		cp.Attachments = nil
		all = append(all, cp)
	}

	if r.URL.Query().Get("sort") == "updated_on:desc" {
		sort.Slice(all, func(i, j int) bool { return all[i].UpdatedOn.After(all[j].UpdatedOn) })
	} else {
		sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	}

	limit, offset := paging(r)
	page := slicePage(all, limit, offset)
	writeJSON(w, IssuesPage{Issues: page, TotalCount: len(all), Offset: offset, Limit: limit})
}

func (m *MockServer) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Issue CreateIssue `json:"issue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusUnprocessableEntity)
		return
	}
	if payload.Issue.Subject == "" {
		http.Error(w, `{"errors":["Subject cannot be blank"]}`, http.StatusUnprocessableEntity)
		return
	}

	m.mu.Lock()
	m.nextID++
	now := time.Now().UTC()
	issue := Issue{
		ID:        m.nextID,
		Project:   IDName{ID: payload.Issue.ProjectID},
		Tracker:   IDName{ID: payload.Issue.TrackerID},
		Status:    IDName{ID: payload.Issue.StatusID, Name: "New"},
		Priority:  IDName{ID: payload.Issue.PriorityID, Name: "Normal"},
		Author:    IDName{ID: m.current.ID, Name: m.current.DisplayName()},
		Subject:   payload.Issue.Subject,
		CreatedOn: now,
		UpdatedOn: now,
	}
	if payload.Issue.Description != nil {
		issue.Description = *payload.Issue.Description
	}
	if payload.Issue.AssignedToID != nil {
		issue.AssignedTo = &IDName{ID: *payload.Issue.AssignedToID}
	}
	m.issues[issue.ID] = &issue
	m.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, struct {
		Issue Issue `json:"issue"`
	}{issue})
}

func (m *MockServer) handleIssue(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/issues/"), ".json")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid issue id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		m.mu.RLock()
		issue, ok := m.issues[id]
		m.mu.RUnlock()
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, struct {
			Issue Issue `json:"issue"`
		}{*issue})

	case http.MethodPut:
		var payload struct {
			Issue UpdateIssue `json:"issue"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid json", http.StatusUnprocessableEntity)
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		issue, ok := m.issues[id]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		u := payload.Issue
		if u.Subject != nil {
			issue.Subject = *u.Subject
		}
		if u.Description != nil {
			issue.Description = *u.Description
		}
		if u.StatusID != nil {
			issue.Status = IDName{ID: *u.StatusID}
		}
		if u.PriorityID != nil {
			issue.Priority = IDName{ID: *u.PriorityID}
		}
		if u.AssignedToID != nil {
			issue.AssignedTo = &IDName{ID: *u.AssignedToID}
		}
		if u.DoneRatio != nil {
			issue.DoneRatio = u.DoneRatio
		}
		if u.Notes != nil && *u.Notes != "" {
			issue.Journals = append(issue.Journals, Journal{
				ID:        int64(len(issue.Journals)) + id*100,
				User:      IDName{ID: m.current.ID, Name: m.current.DisplayName()},
				Notes:     *u.Notes,
				CreatedOn: time.Now().UTC(),
			})
		}
		issue.UpdatedOn = time.Now().UTC()
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (m *MockServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	limit, offset := paging(r)
	page := slicePage(all, limit, offset)
	writeJSON(w, UsersPage{Users: page, TotalCount: len(all), Offset: offset, Limit: limit})
}

func (m *MockServer) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	writeJSON(w, struct {
		User User `json:"user"`
	}{m.current})
}

func (m *MockServer) handleTrackers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		Trackers []Tracker `json:"trackers"`
	}{[]Tracker{{ID: 1, Name: "Bug"}, {ID: 2, Name: "Feature"}, {ID: 3, Name: "Task"}}})
}

func (m *MockServer) handleStatuses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		IssueStatuses []IssueStatus `json:"issue_statuses"`
	}{[]IssueStatus{{ID: 1, Name: "New"}, {ID: 2, Name: "In Progress"}, {ID: 3, Name: "Resolved"}, {ID: 5, Name: "Closed"}}})
}

func (m *MockServer) handlePriorities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		IssuePriorities []Priority `json:"issue_priorities"`
	}{[]Priority{{ID: 1, Name: "Low"}, {ID: 2, Name: "Normal"}, {ID: 3, Name: "High"}}})
}

func slicePage[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
