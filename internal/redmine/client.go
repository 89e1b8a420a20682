// Package redmine provides a typed client for the Redmine REST API.
package redmine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a Redmine API client. All list endpoints are paginated with
// offset/limit and report a total_count that becomes authoritative once seen.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a client for the service at baseURL authenticating with apiKey.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-success HTTP response from the service.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.Status, e.Body)
}

// doRequest performs an HTTP request with authentication headers.
func (c *Client) doRequest(method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, c.baseURL+"/"+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Redmine-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// get issues a GET request and decodes the JSON response into out.
func (c *Client) get(path string, out interface{}) error {
	resp, err := c.doRequest("GET", path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	return nil
}

// send issues a POST or PUT with a JSON body. When out is non-nil the
// response body is decoded into it.
func (c *Client) send(method, path string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := c.doRequest(method, path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}

	return nil
}

// ListProjects fetches one page of projects.
func (c *Client) ListProjects(limit, offset int) (*ProjectsPage, error) {
	var page ProjectsPage
	path := fmt.Sprintf("projects.json?limit=%d&offset=%d", limit, offset)
	if err := c.get(path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// IssueQuery selects which issues ListIssues returns.
type IssueQuery struct {
	ProjectID          int64  // 0 = all projects
	StatusID           string // "*" for any status; empty = server default (open)
	ExcludeSubprojects bool
	Sort               string // e.g. "updated_on:desc"
	Limit              int
	Offset             int
}

// ListIssues fetches one page of issues matching the query.
func (c *Client) ListIssues(q IssueQuery) (*IssuesPage, error) {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("offset", strconv.Itoa(q.Offset))
	if q.ProjectID != 0 {
		v.Set("project_id", strconv.FormatInt(q.ProjectID, 10))
		if q.ExcludeSubprojects {
			v.Set("subproject_id", "!*")
		}
	}
	if q.StatusID != "" {
		v.Set("status_id", q.StatusID)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}

	var page IssuesPage
	if err := c.get("issues.json?"+v.Encode(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// RecentIssues fetches the most recently updated issues across all projects.
func (c *Client) RecentIssues(limit int) (*IssuesPage, error) {
	return c.ListIssues(IssueQuery{StatusID: "*", Sort: "updated_on:desc", Limit: limit})
}

// GetIssue fetches a single issue with its full journal and attachment set.
func (c *Client) GetIssue(id int64) (*Issue, error) {
	var wrapper struct {
		Issue Issue `json:"issue"`
	}
	path := fmt.Sprintf("issues/%d.json?include=journals,attachments", id)
	if err := c.get(path, &wrapper); err != nil {
		return nil, err
	}
	return &wrapper.Issue, nil
}

// CreateIssue creates a new issue and returns the created resource.
func (c *Client) CreateIssue(issue CreateIssue) (*Issue, error) {
	payload := struct {
		Issue CreateIssue `json:"issue"`
	}{issue}
	var wrapper struct {
		Issue Issue `json:"issue"`
	}
	if err := c.send("POST", "issues.json", payload, &wrapper); err != nil {
		return nil, err
	}
	return &wrapper.Issue, nil
}

// UpdateIssue applies a partial update to an issue. A non-nil Notes field
// adds a comment as part of the same update.
func (c *Client) UpdateIssue(id int64, update UpdateIssue) error {
	payload := struct {
		Issue UpdateIssue `json:"issue"`
	}{update}
	return c.send("PUT", fmt.Sprintf("issues/%d.json", id), payload, nil)
}

// ListUsers fetches one page of user accounts.
func (c *Client) ListUsers(limit, offset int) (*UsersPage, error) {
	var page UsersPage
	path := fmt.Sprintf("users.json?limit=%d&offset=%d", limit, offset)
	if err := c.get(path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CurrentUser fetches the account the API key belongs to.
func (c *Client) CurrentUser() (*User, error) {
	var wrapper struct {
		User User `json:"user"`
	}
	if err := c.get("users/current.json", &wrapper); err != nil {
		return nil, err
	}
	return &wrapper.User, nil
}

// ListTrackers fetches the global tracker enumeration.
func (c *Client) ListTrackers() ([]Tracker, error) {
	var out struct {
		Trackers []Tracker `json:"trackers"`
	}
	if err := c.get("trackers.json", &out); err != nil {
		return nil, err
	}
	return out.Trackers, nil
}

// ListStatuses fetches the global issue status enumeration.
func (c *Client) ListStatuses() ([]IssueStatus, error) {
	var out struct {
		IssueStatuses []IssueStatus `json:"issue_statuses"`
	}
	if err := c.get("issue_statuses.json", &out); err != nil {
		return nil, err
	}
	return out.IssueStatuses, nil
}

// ListPriorities fetches the global priority enumeration.
func (c *Client) ListPriorities() ([]Priority, error) {
	var out struct {
		IssuePriorities []Priority `json:"issue_priorities"`
	}
	if err := c.get("enumerations/issue_priorities.json", &out); err != nil {
		return nil, err
	}
	return out.IssuePriorities, nil
}

// GetProjectDetail fetches a project with its trackers and issue categories.
func (c *Client) GetProjectDetail(id int64) (*ProjectDetail, error) {
	var wrapper struct {
		Project ProjectDetail `json:"project"`
	}
	path := fmt.Sprintf("projects/%d.json?include=trackers,issue_categories", id)
	if err := c.get(path, &wrapper); err != nil {
		return nil, err
	}
	return &wrapper.Project, nil
}

// ListMemberships fetches every membership of a project, following
// pagination until the full set has been seen.
func (c *Client) ListMemberships(projectID int64) ([]Membership, error) {
	const limit = 100
	var all []Membership

	for offset := 0; ; offset += limit {
		var page MembershipsPage
		path := fmt.Sprintf("projects/%d/memberships.json?limit=%d&offset=%d", projectID, limit, offset)
		if err := c.get(path, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Memberships...)
		if len(page.Memberships) < limit {
			break
		}
	}

	return all, nil
}

// TestConnection verifies the URL and API key by requesting a single project.
func (c *Client) TestConnection() error {
	_, err := c.ListProjects(1, 0)
	return err
}
