package form

import (
	"strings"
	"testing"

	"github.com/ecugol/minecli/internal/redmine"
)

func TestValidate_RequiredFields(t *testing.T) {
	f := NewForm()
	field := NewText("subject", "Subject", true)
	field.Default = nil
	f.AddField(field)

	if err := f.Validate(); err == nil {
		t.Error("expected error for missing required field")
	} else if !strings.Contains(err.Error(), "Subject") {
		t.Errorf("error should name the field label, got %q", err)
	}

	f.SetValue("subject", TextValue("Test"))
	if err := f.Validate(); err != nil {
		t.Errorf("expected valid form, got %v", err)
	}
}

func TestValidate_EmptyRequiredDropdown(t *testing.T) {
	f := NewForm()
	f.AddField(NewSearchableDropdown("tracker_id", "Tracker", []Option{{ID: 1, Name: "Bug"}}, true))

	if err := f.Validate(); err == nil {
		t.Error("expected error for unselected required dropdown")
	}

	id := int64(1)
	f.SetValue("tracker_id", OptionValue(&id))
	if err := f.Validate(); err != nil {
		t.Errorf("expected valid form, got %v", err)
	}
}

func TestValidate_OptionalFields(t *testing.T) {
	f := NewForm()
	f.AddField(NewText("description", "Description", false))

	if err := f.Validate(); err != nil {
		t.Errorf("optional empty field should validate, got %v", err)
	}
}

func TestNavigationWraps(t *testing.T) {
	f := NewForm()
	f.AddField(NewText("a", "A", false))
	f.AddField(NewText("b", "B", false))
	f.AddField(NewText("c", "C", false))

	if f.CurrentIndex() != 0 {
		t.Fatalf("expected focus 0, got %d", f.CurrentIndex())
	}
	f.Next()
	f.Next()
	if f.CurrentIndex() != 2 {
		t.Fatalf("expected focus 2, got %d", f.CurrentIndex())
	}
	f.Next()
	if f.CurrentIndex() != 0 {
		t.Errorf("Next should wrap to 0, got %d", f.CurrentIndex())
	}
	f.Prev()
	if f.CurrentIndex() != 2 {
		t.Errorf("Prev should wrap to last, got %d", f.CurrentIndex())
	}
}

func TestUpdateScroll(t *testing.T) {
	f := NewForm()
	for _, key := range []string{"a", "b", "c", "d", "e"} {
		f.AddField(NewText(key, key, false))
	}

	// Move focus to the last field with 2 visible rows.
	for i := 0; i < 4; i++ {
		f.Next()
	}
	f.UpdateScroll(2)
	if f.ScrollOffset() != 3 {
		t.Errorf("expected scroll 3, got %d", f.ScrollOffset())
	}

	// Move back to the top.
	for i := 0; i < 4; i++ {
		f.Prev()
	}
	f.UpdateScroll(2)
	if f.ScrollOffset() != 0 {
		t.Errorf("expected scroll 0, got %d", f.ScrollOffset())
	}
}

func TestFilteredOptions_ExactBeatsPartial(t *testing.T) {
	f := NewForm()
	f.AddField(NewSearchableDropdown("user", "User", []Option{
		{ID: 1, Name: "Alice"},
		{ID: 2, Name: "Bob"},
		{ID: 3, Name: "Charlie"},
		{ID: 4, Name: "Alice Johnson"},
	}, false))

	if got := f.FilteredOptions("user"); len(got) != 4 {
		t.Errorf("empty search should return all, got %d", len(got))
	}

	f.SetSearchText("user", "ali")
	if got := f.FilteredOptions("user"); len(got) != 2 {
		t.Errorf("partial search should return 2, got %d", len(got))
	}

	f.SetSearchText("user", "alice")
	got := f.FilteredOptions("user")
	if len(got) != 1 || got[0].Name != "Alice" {
		t.Errorf("exact match should win, got %+v", got)
	}

	if got := f.FilteredOptions("missing"); got != nil {
		t.Errorf("unknown key should return nil, got %+v", got)
	}
}

func TestSearchStateLifecycle(t *testing.T) {
	f := NewForm()
	f.AddField(NewSearchableDropdown("user", "User", nil, false))

	f.SetSearchMode("user", true)
	f.SetSearchText("user", "ali")
	if !f.InSearchMode("user") || f.SearchText("user") != "ali" {
		t.Error("search state not stored")
	}

	f.ClearSearch("user")
	if f.InSearchMode("user") || f.SearchText("user") != "" {
		t.Error("search state not cleared")
	}
}

func TestValueVariants(t *testing.T) {
	if TextValue("x").AsText() != "x" {
		t.Error("text round-trip failed")
	}
	if _, ok := TextValue("x").AsNumber(); ok {
		t.Error("text value should not read as number")
	}

	n := 42
	if got, ok := NumberValue(&n).AsNumber(); !ok || got != 42 {
		t.Error("number round-trip failed")
	}
	if _, ok := NumberValue(nil).AsNumber(); ok {
		t.Error("unset number should not be readable")
	}

	h := 2.5
	if got, ok := FloatValue(&h).AsFloat(); !ok || got != 2.5 {
		t.Error("float round-trip failed")
	}

	if !BoolValue(true).AsBool() || BoolValue(false).AsBool() {
		t.Error("bool round-trip failed")
	}

	id := int64(7)
	if got, ok := OptionValue(&id).AsOption(); !ok || got != 7 {
		t.Error("option round-trip failed")
	}
	if _, ok := OptionValue(nil).AsOption(); ok {
		t.Error("unset option should not be readable")
	}
}

func numberIs(v Value, want int) bool {
	n, ok := v.AsNumber()
	return ok && n == want
}

func optionID(t *testing.T, f *Form, key string) int64 {
	t.Helper()
	v, ok := f.Value(key)
	if !ok {
		t.Fatalf("no value for %s", key)
	}
	id, _ := v.AsOption()
	return id
}

func testMetadata() ([]redmine.Tracker, []redmine.IssueStatus, []redmine.Priority, []redmine.User) {
	trackers := []redmine.Tracker{{ID: 1, Name: "Bug"}, {ID: 3, Name: "Task"}}
	statuses := []redmine.IssueStatus{{ID: 1, Name: "New"}, {ID: 2, Name: "In Progress"}}
	priorities := []redmine.Priority{{ID: 1, Name: "Low"}, {ID: 2, Name: "Normal"}}
	users := []redmine.User{
		{ID: 9, Firstname: "Zoe", Lastname: "Smith"},
		{ID: 5, Firstname: "Alice", Lastname: "Brown"},
	}
	return trackers, statuses, priorities, users
}

func TestNewIssueForm_Defaults(t *testing.T) {
	trackers, statuses, priorities, users := testMetadata()

	f := NewIssueForm(trackers, statuses, priorities, users, nil)

	if f.Fields[0].Key != "tracker_id" {
		t.Errorf("tracker must be the first field, got %s", f.Fields[0].Key)
	}
	if optionID(t, f, "tracker_id") != 3 {
		t.Error(`tracker should default to "Task"`)
	}
	if optionID(t, f, "status_id") != 1 {
		t.Error(`status should default to "New"`)
	}
	if optionID(t, f, "priority_id") != 2 {
		t.Error(`priority should default to "Normal"`)
	}

	// No categories given, so no category field.
	for _, field := range f.Fields {
		if field.Key == "category_id" {
			t.Error("category field should be absent without categories")
		}
	}

	// Assignee options are sorted with "(Unassigned)" first.
	var assignee *Field
	for i := range f.Fields {
		if f.Fields[i].Key == "assigned_to_id" {
			assignee = &f.Fields[i]
		}
	}
	if assignee == nil {
		t.Fatal("assignee field missing")
	}
	if assignee.Options[0].Name != "(Unassigned)" || assignee.Options[0].ID != 0 {
		t.Errorf("first assignee option should be (Unassigned), got %+v", assignee.Options[0])
	}
	if assignee.Options[1].Name != "Alice Brown" || assignee.Options[2].Name != "Zoe Smith" {
		t.Errorf("assignee options not sorted: %+v", assignee.Options)
	}
}

func TestNewIssueForm_WithCategories(t *testing.T) {
	trackers, statuses, priorities, users := testMetadata()
	categories := []redmine.IssueCategory{{ID: 4, Name: "Backend"}}

	f := NewIssueForm(trackers, statuses, priorities, users, categories)

	var category *Field
	for i := range f.Fields {
		if f.Fields[i].Key == "category_id" {
			category = &f.Fields[i]
		}
	}
	if category == nil {
		t.Fatal("category field missing")
	}
	if category.Options[0].Name != "(None)" || category.Options[1].Name != "Backend" {
		t.Errorf("category options wrong: %+v", category.Options)
	}
}

func TestUpdateIssueForm_SeedsCurrentValues(t *testing.T) {
	_, statuses, _, users := testMetadata()
	ratio := 40
	issue := &redmine.Issue{
		ID:         10,
		Status:     redmine.IDName{ID: 2, Name: "In Progress"},
		AssignedTo: &redmine.IDName{ID: 5, Name: "Alice Brown"},
		DoneRatio:  &ratio,
		DueDate:    "2024-07-01",
	}

	f := UpdateIssueForm(statuses, users, nil, issue)

	if f.Fields[0].Key != "notes" {
		t.Errorf("notes must be the first field, got %s", f.Fields[0].Key)
	}
	if optionID(t, f, "status_id") != 2 {
		t.Error("status should seed from the issue")
	}
	if optionID(t, f, "assigned_to_id") != 5 {
		t.Error("assignee should seed from the issue")
	}
	if v, _ := f.Value("done_ratio"); !numberIs(v, 40) {
		t.Error("done ratio should seed from the issue")
	}
	if v, _ := f.Value("due_date"); v.AsText() != "2024-07-01" {
		t.Error("due date should seed from the issue")
	}
}

func TestCreateIssuePayload(t *testing.T) {
	trackers, statuses, priorities, users := testMetadata()
	f := NewIssueForm(trackers, statuses, priorities, users, nil)

	f.SetValue("subject", TextValue("Broken login"))
	f.SetValue("description", TextValue("500 on submit"))
	assignee := int64(5)
	f.SetValue("assigned_to_id", OptionValue(&assignee))
	f.SetValue("due_date", TextValue("2024-08-01"))
	hours := 3.5
	f.SetValue("estimated_hours", FloatValue(&hours))

	if err := f.Validate(); err != nil {
		t.Fatalf("form should validate: %v", err)
	}

	create := CreateIssuePayload(f, 7)
	if create.ProjectID != 7 || create.Subject != "Broken login" {
		t.Errorf("payload basics wrong: %+v", create)
	}
	if create.TrackerID != 3 || create.StatusID != 1 || create.PriorityID != 2 {
		t.Errorf("payload ids wrong: %+v", create)
	}
	if create.Description == nil || *create.Description != "500 on submit" {
		t.Errorf("description missing: %+v", create.Description)
	}
	if create.AssignedToID == nil || *create.AssignedToID != 5 {
		t.Errorf("assignee missing: %+v", create.AssignedToID)
	}
	if create.DueDate == nil || *create.DueDate != "2024-08-01" {
		t.Errorf("due date missing: %+v", create.DueDate)
	}
	if create.EstimatedHours == nil || *create.EstimatedHours != 3.5 {
		t.Errorf("estimate missing: %+v", create.EstimatedHours)
	}
	// Done ratio defaults to 0 and is omitted.
	if create.DoneRatio != nil {
		t.Errorf("zero done ratio should be omitted, got %v", *create.DoneRatio)
	}
	if create.StartDate != nil {
		t.Errorf("empty start date should be omitted, got %v", *create.StartDate)
	}
}

func TestUpdateIssuePayload(t *testing.T) {
	_, statuses, _, users := testMetadata()
	issue := &redmine.Issue{ID: 10, Status: redmine.IDName{ID: 1, Name: "New"}}
	f := UpdateIssueForm(statuses, users, nil, issue)

	f.SetValue("notes", TextValue("tested on staging"))
	status := int64(2)
	f.SetValue("status_id", OptionValue(&status))
	f.SetValue("private_notes", BoolValue(true))

	update := UpdateIssuePayload(f)
	if update.Notes == nil || *update.Notes != "tested on staging" {
		t.Errorf("notes missing: %+v", update.Notes)
	}
	if update.StatusID == nil || *update.StatusID != 2 {
		t.Errorf("status missing: %+v", update.StatusID)
	}
	if update.PrivateNotes == nil || !*update.PrivateNotes {
		t.Error("private notes flag missing")
	}
	// Unassigned stays omitted so the server leaves the assignee alone.
	if update.AssignedToID != nil {
		t.Errorf("unset assignee should be omitted, got %v", *update.AssignedToID)
	}
}

func TestBulkUpdatePayload(t *testing.T) {
	_, statuses, priorities, users := testMetadata()
	f := BulkEditForm(statuses, priorities, users)

	status := int64(2)
	f.SetValue("status_id", OptionValue(&status))

	update := BulkUpdatePayload(f)
	if update.StatusID == nil || *update.StatusID != 2 {
		t.Errorf("status missing: %+v", update.StatusID)
	}
	// Priority keeps its default (first option).
	if update.PriorityID == nil || *update.PriorityID != 1 {
		t.Errorf("priority default missing: %+v", update.PriorityID)
	}
	// Default assignee is the "(Unassigned)" sentinel, which is omitted.
	if update.AssignedToID != nil {
		t.Errorf("sentinel assignee should be omitted, got %v", *update.AssignedToID)
	}
	if update.Subject != nil || update.Notes != nil {
		t.Error("bulk payload must carry only status/priority/assignee")
	}
}

func TestCarryValues(t *testing.T) {
	trackers, statuses, priorities, users := testMetadata()
	old := NewIssueForm(trackers, statuses, priorities, users, nil)
	old.SetValue("subject", TextValue("typed already"))
	old.SetValue("description", TextValue("half-written"))

	rebuilt := NewIssueForm(trackers, statuses, priorities, users,
		[]redmine.IssueCategory{{ID: 4, Name: "Backend"}})
	rebuilt.CarryValues(old)

	if v, _ := rebuilt.Value("subject"); v.AsText() != "typed already" {
		t.Error("subject should survive the rebuild")
	}
	if v, _ := rebuilt.Value("description"); v.AsText() != "half-written" {
		t.Error("description should survive the rebuild")
	}
	// The new category field keeps its own default.
	if v, ok := rebuilt.Value("category_id"); ok {
		if _, set := v.AsOption(); set {
			t.Error("new field should keep its unset default")
		}
	}
}
