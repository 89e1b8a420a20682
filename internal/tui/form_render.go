package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ecugol/minecli/internal/form"
)

const dropdownVisibleOptions = 6

func (a *App) renderForm() string {
	var title string
	switch a.formKind {
	case formCreate:
		name, err := a.store.ProjectName(a.state.SelectedProjectID)
		if err != nil || name == "" {
			name = "project"
		}
		title = "New Issue · " + name
	case formUpdate:
		title = fmt.Sprintf("Update Issue #%d", a.formIssueID)
	case formBulk:
		title = fmt.Sprintf("Bulk Edit · %s", pluralize(len(a.selected), "issue"))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title) + "\n\n")

	start := a.form.ScrollOffset()
	end := start + formVisibleFields
	if end > len(a.form.Fields) {
		end = len(a.form.Fields)
	}
	for i := start; i < end; i++ {
		b.WriteString(a.renderField(&a.form.Fields[i], i == a.form.CurrentIndex()))
		b.WriteString("\n")
	}

	if a.status != "" && a.statusErr {
		b.WriteString(statusErrStyle.Render(a.status) + "\n")
	}
	b.WriteString(statusBarStyle.Width(a.width).Render(
		"tab next field  •  / search options  •  ctrl+s submit  •  esc cancel"))
	return b.String()
}

func (a *App) renderField(field *form.Field, focused bool) string {
	label := field.Label
	if field.Required {
		label += " *"
	}

	body := a.fieldDisplay(field)
	style := formFieldStyle
	if focused {
		style = formFocusedStyle
	}
	width := min(a.width-6, 70)

	out := formLabelStyle.Render(label) + "\n" + style.Width(width).Render(body)
	if focused && field.Help != "" {
		out += "\n" + mutedStyle.Render("  "+field.Help)
	}
	if focused && (field.Kind == form.KindDropdown || field.Kind == form.KindSearchableDropdown) {
		out += a.renderOptions(field)
	}
	return out
}

// fieldDisplay is the one-line summary inside the field border.
func (a *App) fieldDisplay(field *form.Field) string {
	v, ok := a.form.Value(field.Key)
	if !ok {
		return ""
	}

	switch field.Kind {
	case form.KindDropdown, form.KindSearchableDropdown:
		if id, set := v.AsOption(); set {
			return optionName(field.Options, id)
		}
		return mutedStyle.Render("(none)")

	case form.KindCheckbox:
		if v.AsBool() {
			return "[x]"
		}
		return "[ ]"

	case form.KindProgress:
		n, _ := v.AsNumber()
		return renderProgressBar(n)

	case form.KindFloat:
		if buf, ok := a.floatBuf[field.Key]; ok && buf != "" {
			return buf
		}
		if f, set := v.AsFloat(); set {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return ""

	default:
		return v.AsText()
	}
}

// renderOptions lists the filtered options below a focused dropdown, the
// current pick highlighted. Searchable dropdowns show the search prompt
// while search mode is active.
func (a *App) renderOptions(field *form.Field) string {
	var b strings.Builder

	if a.form.InSearchMode(field.Key) {
		b.WriteString("\n  " + helpKeyStyle.Render("/") + a.form.SearchText(field.Key) + "▏")
	}

	opts := a.form.FilteredOptions(field.Key)
	var currentID int64
	var set bool
	if v, ok := a.form.Value(field.Key); ok {
		currentID, set = v.AsOption()
	}

	shown := 0
	for _, opt := range opts {
		if shown >= dropdownVisibleOptions {
			b.WriteString("\n  " + mutedStyle.Render(fmt.Sprintf("… %d more", len(opts)-shown)))
			break
		}
		line := "  " + opt.Name
		if set && opt.ID == currentID {
			line = selectedStyle.Render("▸ " + opt.Name)
		}
		b.WriteString("\n" + line)
		shown++
	}
	return b.String()
}

func optionName(opts []form.Option, id int64) string {
	for _, o := range opts {
		if o.ID == id {
			return o.Name
		}
	}
	return fmt.Sprintf("#%d", id)
}

func renderProgressBar(n int) string {
	filled := n / 10
	return fmt.Sprintf("%s%s %d%%",
		strings.Repeat("█", filled),
		strings.Repeat("░", 10-filled),
		n)
}
