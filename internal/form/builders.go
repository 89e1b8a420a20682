package form

import (
	"sort"
	"strings"

	"github.com/ecugol/minecli/internal/redmine"
)

func trackerOptions(trackers []redmine.Tracker) []Option {
	opts := make([]Option, len(trackers))
	for i, t := range trackers {
		opts[i] = Option{ID: t.ID, Name: t.Name}
	}
	return opts
}

func statusOptions(statuses []redmine.IssueStatus) []Option {
	opts := make([]Option, len(statuses))
	for i, s := range statuses {
		opts[i] = Option{ID: s.ID, Name: s.Name}
	}
	return opts
}

func priorityOptions(priorities []redmine.Priority) []Option {
	opts := make([]Option, len(priorities))
	for i, p := range priorities {
		opts[i] = Option{ID: p.ID, Name: p.Name}
	}
	return opts
}

// assigneeOptions sorts users alphabetically by display name and prepends an
// "(Unassigned)" entry with id 0.
func assigneeOptions(users []redmine.User) []Option {
	var opts []Option
	for _, u := range users {
		if u.ID == 0 {
			continue
		}
		opts = append(opts, Option{ID: u.ID, Name: u.DisplayName()})
	}
	sort.Slice(opts, func(i, j int) bool {
		return strings.ToLower(opts[i].Name) < strings.ToLower(opts[j].Name)
	})
	return append([]Option{{ID: 0, Name: "(Unassigned)"}}, opts...)
}

func categoryOptions(categories []redmine.IssueCategory) []Option {
	opts := []Option{{ID: 0, Name: "(None)"}}
	for _, c := range categories {
		opts = append(opts, Option{ID: c.ID, Name: c.Name})
	}
	return opts
}

// findDefault picks the option whose name matches preferred
// (case-insensitive), falling back to the first option.
func findDefault(opts []Option, preferred string) *int64 {
	for _, o := range opts {
		if strings.EqualFold(o.Name, preferred) {
			id := o.ID
			return &id
		}
	}
	if len(opts) > 0 {
		id := opts[0].ID
		return &id
	}
	return nil
}

// NewIssueForm builds the create-issue form: tracker first (defaulting to
// "Task"), then subject, description, status (default "New"), priority
// (default "Normal"), assignee, category when the project has any, dates,
// estimate and progress.
func NewIssueForm(trackers []redmine.Tracker, statuses []redmine.IssueStatus, priorities []redmine.Priority, users []redmine.User, categories []redmine.IssueCategory) *Form {
	f := NewForm()

	tOpts := trackerOptions(trackers)
	f.AddField(NewSearchableDropdown("tracker_id", "Tracker", tOpts, true).
		WithDefault(OptionValue(findDefault(tOpts, "task"))))

	f.AddField(NewText("subject", "Subject", true))
	f.AddField(NewTextArea("description", "Description", false))

	sOpts := statusOptions(statuses)
	f.AddField(NewSearchableDropdown("status_id", "Status", sOpts, true).
		WithDefault(OptionValue(findDefault(sOpts, "new"))))

	pOpts := priorityOptions(priorities)
	f.AddField(NewSearchableDropdown("priority_id", "Priority", pOpts, true).
		WithDefault(OptionValue(findDefault(pOpts, "normal"))))

	f.AddField(NewSearchableDropdown("assigned_to_id", "Assignee", assigneeOptions(users), false))

	if len(categories) > 0 {
		f.AddField(NewDropdown("category_id", "Category", categoryOptions(categories), false))
	}

	f.AddField(NewDate("start_date", "Start Date", false))
	f.AddField(NewDate("due_date", "Due Date", false))
	f.AddField(NewFloat("estimated_hours", "Estimated Hours", false))
	f.AddField(NewProgress("done_ratio", "% Done"))

	return f
}

// UpdateIssueForm builds the reply/update form, seeding the dropdowns with
// the issue's current values.
func UpdateIssueForm(statuses []redmine.IssueStatus, users []redmine.User, categories []redmine.IssueCategory, issue *redmine.Issue) *Form {
	f := NewForm()

	f.AddField(NewTextArea("notes", "Notes (comment)", false))

	sOpts := statusOptions(statuses)
	statusID := issue.Status.ID
	f.AddField(NewSearchableDropdown("status_id", "Status", sOpts, false).
		WithDefault(OptionValue(&statusID)))

	assigneeField := NewSearchableDropdown("assigned_to_id", "Assignee", assigneeOptions(users), false)
	if issue.AssignedTo != nil {
		id := issue.AssignedTo.ID
		assigneeField = assigneeField.WithDefault(OptionValue(&id))
	}
	f.AddField(assigneeField)

	progress := NewProgress("done_ratio", "% Done")
	if issue.DoneRatio != nil {
		progress = progress.WithDefault(NumberValue(issue.DoneRatio))
	}
	f.AddField(progress)

	if len(categories) > 0 {
		f.AddField(NewSearchableDropdown("category_id", "Category", categoryOptions(categories), false))
	}

	f.AddField(NewDate("due_date", "Due Date", false).
		WithDefault(TextValue(issue.DueDate)))
	f.AddField(NewFloat("estimated_hours", "Estimated Hours", false))
	f.AddField(NewCheckbox("private_notes", "Private Notes"))

	return f
}

// BulkEditForm builds the form applied to every selected issue: status,
// priority and assignee only.
func BulkEditForm(statuses []redmine.IssueStatus, priorities []redmine.Priority, users []redmine.User) *Form {
	f := NewForm()

	sOpts := statusOptions(statuses)
	f.AddField(NewSearchableDropdown("status_id", "Status", sOpts, false).
		WithDefault(OptionValue(firstOptionID(sOpts))))

	pOpts := priorityOptions(priorities)
	f.AddField(NewSearchableDropdown("priority_id", "Priority", pOpts, false).
		WithDefault(OptionValue(firstOptionID(pOpts))))

	unassigned := int64(0)
	f.AddField(NewSearchableDropdown("assigned_to_id", "Assignee", assigneeOptions(users), false).
		WithDefault(OptionValue(&unassigned)))

	return f
}

func firstOptionID(opts []Option) *int64 {
	if len(opts) == 0 {
		return nil
	}
	id := opts[0].ID
	return &id
}

// optionOrNil reads a dropdown value, mapping the sentinel id 0 ("(Unassigned)"
// / "(None)") to nil.
func optionOrNil(f *Form, key string) *int64 {
	v, ok := f.Value(key)
	if !ok {
		return nil
	}
	id, set := v.AsOption()
	if !set || id == 0 {
		return nil
	}
	return &id
}

func textOrNil(f *Form, key string) *string {
	v, ok := f.Value(key)
	if !ok {
		return nil
	}
	s := v.AsText()
	if s == "" {
		return nil
	}
	return &s
}

// CreateIssuePayload converts validated create-form values into the create
// request for a project. Call Validate first; missing required dropdowns
// yield zero ids here.
func CreateIssuePayload(f *Form, projectID int64) redmine.CreateIssue {
	create := redmine.CreateIssue{ProjectID: projectID}

	if id, ok := mustOption(f, "tracker_id"); ok {
		create.TrackerID = id
	}
	if id, ok := mustOption(f, "status_id"); ok {
		create.StatusID = id
	}
	if id, ok := mustOption(f, "priority_id"); ok {
		create.PriorityID = id
	}
	if v, ok := f.Value("subject"); ok {
		create.Subject = v.AsText()
	}
	create.Description = textOrNil(f, "description")
	create.AssignedToID = optionOrNil(f, "assigned_to_id")
	create.CategoryID = optionOrNil(f, "category_id")
	create.StartDate = textOrNil(f, "start_date")
	create.DueDate = textOrNil(f, "due_date")

	if v, ok := f.Value("estimated_hours"); ok {
		if hours, set := v.AsFloat(); set {
			create.EstimatedHours = &hours
		}
	}
	if v, ok := f.Value("done_ratio"); ok {
		if ratio, set := v.AsNumber(); set && ratio > 0 {
			create.DoneRatio = &ratio
		}
	}

	return create
}

func mustOption(f *Form, key string) (int64, bool) {
	v, ok := f.Value(key)
	if !ok {
		return 0, false
	}
	return v.AsOption()
}

// UpdateIssuePayload converts update-form values into the update request.
// Unset dropdowns and empty texts are omitted so the server leaves those
// attributes untouched.
func UpdateIssuePayload(f *Form) redmine.UpdateIssue {
	update := redmine.UpdateIssue{
		Notes:        textOrNil(f, "notes"),
		StatusID:     optionOrNil(f, "status_id"),
		AssignedToID: optionOrNil(f, "assigned_to_id"),
		CategoryID:   optionOrNil(f, "category_id"),
		DueDate:      textOrNil(f, "due_date"),
	}

	if v, ok := f.Value("done_ratio"); ok {
		if ratio, set := v.AsNumber(); set {
			update.DoneRatio = &ratio
		}
	}
	if v, ok := f.Value("estimated_hours"); ok {
		if hours, set := v.AsFloat(); set {
			update.EstimatedHours = &hours
		}
	}
	if v, ok := f.Value("private_notes"); ok && v.AsBool() {
		private := true
		update.PrivateNotes = &private
	}

	return update
}

// BulkUpdatePayload converts bulk-form values into the update applied to each
// selected issue. Only status, priority and assignee travel; the
// "(Unassigned)" sentinel is omitted rather than sent.
func BulkUpdatePayload(f *Form) redmine.UpdateIssue {
	return redmine.UpdateIssue{
		StatusID:     optionOrNil(f, "status_id"),
		PriorityID:   optionOrNil(f, "priority_id"),
		AssignedToID: optionOrNil(f, "assigned_to_id"),
	}
}
