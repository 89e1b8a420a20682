package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ecugol/minecli/internal/redmine"
	"github.com/ecugol/minecli/internal/view"
)

// View renders the active screen.
func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}
	if a.screen == screenConfig {
		return a.renderSettings()
	}
	if a.form != nil {
		return a.renderForm()
	}
	if a.showDetail {
		return a.renderDetail()
	}
	if a.showHelp {
		return a.renderHelp()
	}
	return a.renderMain()
}

func (a *App) renderMain() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("minecli"))
	if a.result != nil && a.result.ProjectsLastSynced != nil {
		b.WriteString(mutedStyle.Render("  synced " + a.result.ProjectsLastSynced.Format("2006-01-02 15:04")))
	}
	b.WriteString("\n")

	contentHeight := a.height - 4
	if contentHeight < 3 {
		contentHeight = 3
	}
	projectWidth := a.width / 3
	if projectWidth < 24 {
		projectWidth = 24
	}
	if projectWidth > 44 {
		projectWidth = 44
	}
	issueWidth := a.width - projectWidth - 6

	left := a.renderProjectPane(projectWidth, contentHeight)
	right := a.renderIssuePane(issueWidth, contentHeight)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	b.WriteString("\n")
	b.WriteString(a.renderStatusBar())

	return b.String()
}

func (a *App) renderProjectPane(width, height int) string {
	style := paneStyle
	if a.pane == paneProjects {
		style = paneFocusedStyle
	}

	var lines []string
	if a.result != nil {
		rows := a.result.ProjectRows
		start, end := scrollWindow(a.state.ProjectCursor, len(rows), height-1)
		for i := start; i < end; i++ {
			lines = append(lines, a.renderProjectRow(rows[i], i == a.state.ProjectCursor, width-2))
		}
	}
	header := headerStyle.Render(fmt.Sprintf("Projects (%d)", a.projectCount()))
	if a.state.ProjectFilter != "" {
		header += mutedStyle.Render(" /" + a.state.ProjectFilter)
	}
	body := header + "\n" + strings.Join(lines, "\n")

	return style.Width(width).Height(height).Render(body)
}

func (a *App) projectCount() int {
	if a.result == nil {
		return 0
	}
	return len(a.result.Projects)
}

func (a *App) renderProjectRow(node view.ProjectNode, selected bool, width int) string {
	indent := strings.Repeat("  ", node.Depth)

	var marker string
	switch {
	case !node.HasChildren:
		marker = "  "
	case a.state.CollapsedProjects[node.Project.ID]:
		marker = "▶ "
	default:
		marker = "▼ "
	}

	text := truncate(indent+marker+node.Project.Name, width-2)
	if selected {
		return selectedStyle.Render(text)
	}
	line := text
	if view.ProjectHasNews(&node.Project) {
		line += " " + newMarkStyle.Render("●")
	}
	return line
}

func (a *App) renderIssuePane(width, height int) string {
	style := paneStyle
	if a.pane == paneIssues {
		style = paneFocusedStyle
	}

	header := headerStyle.Render(fmt.Sprintf("Issues (%d)", a.issueCount()))
	header += mutedStyle.Render("  sort: " + a.state.Sort.String())
	if a.state.IssueFilter != "" {
		header += mutedStyle.Render(" /" + a.state.IssueFilter)
	}
	if a.state.AssigneeID != 0 {
		header += mutedStyle.Render("  [mine]")
	}
	if a.bulkMode {
		header += selectMarkStyle.Render(fmt.Sprintf("  bulk: %d selected", len(a.selected)))
	}

	lines := a.issueLines(width - 2)
	start, end := scrollWindow(a.state.IssueCursor, len(lines), height-1)
	body := header + "\n" + strings.Join(lines[start:end], "\n")

	return style.Width(width).Height(height).Render(body)
}

func (a *App) issueCount() int {
	if a.result == nil {
		return 0
	}
	return len(a.result.Issues)
}

// issueLines renders exactly the rows the cursor helpers count, so the
// cursor index addresses the same line the user sees.
func (a *App) issueLines(width int) []string {
	if a.result == nil {
		return nil
	}

	projects := make(map[int64]*redmine.Project, len(a.result.Projects))
	for i := range a.result.Projects {
		projects[a.result.Projects[i].ID] = &a.result.Projects[i]
	}

	var lines []string
	row := 0
	if a.state.GroupByStatus {
		for _, group := range a.result.Groups {
			collapsed := a.state.CollapsedGroups[strings.ToLower(group.Name)]
			lines = append(lines, a.renderGroupHeader(group, collapsed, row == a.state.IssueCursor, width))
			row++
			if collapsed {
				continue
			}
			for i := range group.Issues {
				lines = append(lines, a.renderIssueRow(&group.Issues[i], projects, row == a.state.IssueCursor, width))
				row++
			}
		}
		return lines
	}

	for i := range a.result.Issues {
		lines = append(lines, a.renderIssueRow(&a.result.Issues[i], projects, row == a.state.IssueCursor, width))
		row++
	}
	return lines
}

func (a *App) renderGroupHeader(group view.Group, collapsed, selected bool, width int) string {
	marker := "▼ "
	if collapsed {
		marker = "▶ "
	}
	text := truncate(fmt.Sprintf("%s%s (%d)", marker, group.Name, len(group.Issues)), width)
	if selected {
		return selectedStyle.Render(text)
	}
	return headerStyle.Render(text)
}

func (a *App) renderIssueRow(issue *redmine.Issue, projects map[int64]*redmine.Project, selected bool, width int) string {
	var prefix string
	if a.bulkMode {
		if a.selected[issue.ID] {
			prefix = "[x] "
		} else {
			prefix = "[ ] "
		}
	}

	id := fmt.Sprintf("#%d", issue.ID)
	meta := issue.Status.Name
	if issue.AssignedTo != nil {
		meta += " · " + issue.AssignedTo.Name
	}
	text := truncate(fmt.Sprintf("  %s%s %s (%s)", prefix, id, issue.Subject, meta), width)

	if selected {
		return selectedStyle.Render(text)
	}
	line := text
	if view.IssueIsNew(issue, projects[issue.Project.ID]) {
		line += " " + newMarkStyle.Render("●")
	}
	return line
}

func (a *App) renderStatusBar() string {
	var parts []string

	if a.ctrl != nil {
		if active, projectID := a.ctrl.Active(); active {
			loaded, total := a.ctrl.Progress()
			name, err := a.store.ProjectName(projectID)
			if err != nil || name == "" {
				name = fmt.Sprintf("project %d", projectID)
			}
			parts = append(parts, fmt.Sprintf("syncing %s: %d/%d", name, loaded, total))
		}
	}

	if a.status != "" {
		if a.statusErr {
			parts = append(parts, statusErrStyle.Render(a.status))
		} else {
			parts = append(parts, statusOkStyle.Render(a.status))
		}
	}

	if a.searching {
		parts = append(parts, a.searchInput.View())
	}

	if len(parts) == 0 {
		parts = append(parts, helpKeyStyle.Render("?")+helpDescStyle.Render(" help")+
			helpKeyStyle.Render("  q")+helpDescStyle.Render(" quit"))
	}

	return statusBarStyle.Width(a.width).Render(strings.Join(parts, "  •  "))
}

func (a *App) renderDetail() string {
	if a.detail == nil {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(detailTitleStyle.Render(fmt.Sprintf("#%d  %s", a.detail.ID, a.detail.Subject)))
	b.WriteString("\n\n")
	b.WriteString(a.detailPort.View())
	b.WriteString("\n")
	b.WriteString(statusBarStyle.Width(a.width).Render("j/k scroll  •  e edit/comment  •  esc close"))
	return b.String()
}

// renderIssueDetail formats the full issue body for the viewport: the
// attribute block, description, attachments, then the journal history.
func renderIssueDetail(issue *redmine.Issue, width int) string {
	var b strings.Builder

	write := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(formLabelStyle.Render(label+": ") + value + "\n")
	}

	write("Project", issue.Project.Name)
	write("Tracker", issue.Tracker.Name)
	write("Status", issue.Status.Name)
	write("Priority", issue.Priority.Name)
	write("Author", issue.Author.Name)
	if issue.AssignedTo != nil {
		write("Assignee", issue.AssignedTo.Name)
	}
	write("Start", issue.StartDate)
	write("Due", issue.DueDate)
	if issue.DoneRatio != nil {
		write("Done", fmt.Sprintf("%d%%", *issue.DoneRatio))
	}
	write("Updated", issue.UpdatedOn.Format("2006-01-02 15:04"))

	if issue.Description != "" {
		b.WriteString("\n")
		b.WriteString(wrap(issue.Description, width))
		b.WriteString("\n")
	}

	if len(issue.Attachments) > 0 {
		b.WriteString("\n" + headerStyle.Render("Attachments") + "\n")
		for _, att := range issue.Attachments {
			b.WriteString(fmt.Sprintf("  %s (%d bytes)\n", att.Filename, att.Filesize))
		}
	}

	if len(issue.Journals) > 0 {
		b.WriteString("\n" + headerStyle.Render(fmt.Sprintf("History (%d)", len(issue.Journals))) + "\n")
		for _, j := range issue.Journals {
			b.WriteString("\n")
			b.WriteString(journalHeadStyle.Render(
				fmt.Sprintf("%s · %s", j.User.Name, j.CreatedOn.Format("2006-01-02 15:04"))) + "\n")
			for _, d := range j.Details {
				b.WriteString(mutedStyle.Render("  "+formatDetail(d)) + "\n")
			}
			if j.Notes != "" {
				b.WriteString(wrap(j.Notes, width) + "\n")
			}
		}
	}

	return b.String()
}

func formatDetail(d redmine.JournalDetail) string {
	oldV, newV := "-", "-"
	if d.OldValue != nil && *d.OldValue != "" {
		oldV = *d.OldValue
	}
	if d.NewValue != nil && *d.NewValue != "" {
		newV = *d.NewValue
	}
	switch d.Property {
	case "attachment":
		return fmt.Sprintf("attached %s", newV)
	default:
		return fmt.Sprintf("%s: %s → %s", d.Name, oldV, newV)
	}
}

func (a *App) renderHelp() string {
	rows := [][2]string{
		{"j/k ↑/↓", "move cursor"},
		{"h/l tab", "switch pane"},
		{"enter", "open project / issue"},
		{"/", "filter focused pane"},
		{"s", "cycle sort order"},
		{"m", "toggle my issues"},
		{"g", "toggle status grouping"},
		{"z", "fold group / project subtree"},
		{"r", "refresh from server"},
		{"n", "new issue"},
		{"e", "edit / comment"},
		{"b", "bulk select mode"},
		{"space a x", "select / all / clear (bulk)"},
		{"B", "bulk edit selection"},
		{"c", "settings"},
		{"q", "quit"},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Keys") + "\n\n")
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("  %s %s\n",
			helpKeyStyle.Render(fmt.Sprintf("%-10s", row[0])),
			helpDescStyle.Render(row[1])))
	}
	b.WriteString("\n" + mutedStyle.Render("press any key to close"))
	return b.String()
}

func (a *App) renderSettings() string {
	s := &a.settings

	field := func(label, body string, focused bool) string {
		style := formFieldStyle
		if focused {
			style = formFocusedStyle
		}
		return formLabelStyle.Render(label) + "\n" + style.Width(min(a.width-6, 60)).Render(body)
	}

	check := "[ ]"
	if s.exclude {
		check = "[x]"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Settings") + "\n\n")
	b.WriteString(field("Service URL", s.urlInput.View(), s.focus == settingsFieldURL) + "\n")
	b.WriteString(field("API Key", s.keyInput.View(), s.focus == settingsFieldKey) + "\n")
	b.WriteString(formLabelStyle.Render("Exclude subprojects") + "  ")
	if s.focus == settingsFieldSubprojects {
		b.WriteString(selectedStyle.Render(check))
	} else {
		b.WriteString(check)
	}
	b.WriteString("\n\n")
	b.WriteString(statusBarStyle.Width(a.width).Render("tab next field  •  space toggle  •  ctrl+s save  •  esc back"))
	if a.status != "" && a.statusErr {
		b.WriteString("\n" + statusErrStyle.Render(a.status))
	}
	return b.String()
}

func scrollWindow(cursor, length, visible int) (start, end int) {
	if visible <= 0 {
		visible = 1
	}
	if length <= visible {
		return 0, length
	}
	start = cursor - visible/2
	if start < 0 {
		start = 0
	}
	if start+visible > length {
		start = length - visible
	}
	return start, start + visible
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}

func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	var b strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString("\n")
		}
		for len([]rune(line)) > width {
			runes := []rune(line)
			cut := width
			for j := width; j > 0; j-- {
				if runes[j-1] == ' ' {
					cut = j
					break
				}
			}
			b.WriteString(strings.TrimRight(string(runes[:cut]), " "))
			b.WriteString("\n")
			line = string(runes[cut:])
		}
		b.WriteString(line)
	}
	return b.String()
}
