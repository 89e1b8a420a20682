package tui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ecugol/minecli/internal/form"
)

const formVisibleFields = 8

func (a *App) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	field := a.form.Current()
	if field == nil {
		a.closeForm()
		return a, nil
	}

	searchable := field.Kind == form.KindSearchableDropdown
	inSearch := searchable && a.form.InSearchMode(field.Key)

	switch {
	case key.Matches(msg, FormKeys.Cancel):
		if inSearch {
			a.form.ClearSearch(field.Key)
			return a, nil
		}
		a.closeForm()
		return a, nil

	case key.Matches(msg, FormKeys.Submit):
		return a.submitForm()

	case key.Matches(msg, FormKeys.Next):
		if inSearch {
			a.form.SetSearchMode(field.Key, false)
		}
		a.form.Next()
		a.form.UpdateScroll(formVisibleFields)
		return a, nil

	case key.Matches(msg, FormKeys.Prev):
		if inSearch {
			a.form.SetSearchMode(field.Key, false)
		}
		a.form.Prev()
		a.form.UpdateScroll(formVisibleFields)
		return a, nil
	}

	switch field.Kind {
	case form.KindDropdown, form.KindSearchableDropdown:
		return a.editDropdown(msg, field, inSearch)
	case form.KindCheckbox:
		if msg.Type == tea.KeySpace || msg.Type == tea.KeyEnter {
			a.form.SetValue(field.Key, form.BoolValue(!a.currentBool(field.Key)))
		}
		return a, nil
	case form.KindProgress:
		a.editProgress(msg, field)
		return a, nil
	case form.KindFloat:
		a.editFloat(msg, field)
		return a, nil
	default:
		a.editText(msg, field)
		return a, nil
	}
}

func (a *App) currentBool(fieldKey string) bool {
	v, ok := a.form.Value(fieldKey)
	return ok && v.AsBool()
}

func (a *App) editText(msg tea.KeyMsg, field *form.Field) {
	v, _ := a.form.Value(field.Key)
	text := v.AsText()

	switch msg.Type {
	case tea.KeyRunes:
		text += string(msg.Runes)
	case tea.KeySpace:
		text += " "
	case tea.KeyBackspace:
		if len(text) > 0 {
			runes := []rune(text)
			text = string(runes[:len(runes)-1])
		}
	case tea.KeyEnter:
		if field.Kind == form.KindTextArea {
			text += "\n"
		}
	default:
		return
	}
	a.form.SetValue(field.Key, form.TextValue(text))
}

// editDropdown moves the selected option with up/down over the filtered
// list; "/" opens incremental search on searchable dropdowns, enter leaves
// search keeping the pick.
func (a *App) editDropdown(msg tea.KeyMsg, field *form.Field, inSearch bool) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, FormKeys.Up):
		a.moveOption(field, -1)
		return a, nil

	case key.Matches(msg, FormKeys.Down):
		a.moveOption(field, 1)
		return a, nil

	case key.Matches(msg, FormKeys.Pick):
		if inSearch {
			a.pickFiltered(field)
			a.form.SetSearchMode(field.Key, false)
		}
		return a, nil

	case !inSearch && field.Kind == form.KindSearchableDropdown && msg.String() == "/":
		a.form.SetSearchMode(field.Key, true)
		return a, nil
	}

	if inSearch {
		switch msg.Type {
		case tea.KeyRunes:
			a.form.SetSearchText(field.Key, a.form.SearchText(field.Key)+string(msg.Runes))
			a.pickFiltered(field)
		case tea.KeySpace:
			a.form.SetSearchText(field.Key, a.form.SearchText(field.Key)+" ")
			a.pickFiltered(field)
		case tea.KeyBackspace:
			text := a.form.SearchText(field.Key)
			if len(text) > 0 {
				runes := []rune(text)
				a.form.SetSearchText(field.Key, string(runes[:len(runes)-1]))
			}
			a.pickFiltered(field)
		}
	}
	return a, nil
}

// moveOption steps the selection through the filtered option list, wrapping
// at either end.
func (a *App) moveOption(field *form.Field, delta int) {
	opts := a.form.FilteredOptions(field.Key)
	if len(opts) == 0 {
		return
	}
	idx := -1
	if v, ok := a.form.Value(field.Key); ok {
		if id, set := v.AsOption(); set {
			for i, o := range opts {
				if o.ID == id {
					idx = i
					break
				}
			}
		}
	}
	idx = (idx + delta + len(opts)) % len(opts)
	id := opts[idx].ID
	a.form.SetValue(field.Key, form.OptionValue(&id))
}

// pickFiltered keeps the current pick if it survives the filter, otherwise
// snaps to the first filtered option.
func (a *App) pickFiltered(field *form.Field) {
	opts := a.form.FilteredOptions(field.Key)
	if len(opts) == 0 {
		return
	}
	if v, ok := a.form.Value(field.Key); ok {
		if id, set := v.AsOption(); set {
			for _, o := range opts {
				if o.ID == id {
					return
				}
			}
		}
	}
	id := opts[0].ID
	a.form.SetValue(field.Key, form.OptionValue(&id))
}

func (a *App) editProgress(msg tea.KeyMsg, field *form.Field) {
	v, _ := a.form.Value(field.Key)
	n, _ := v.AsNumber()

	switch msg.Type {
	case tea.KeyUp:
		n += 10
	case tea.KeyDown:
		n -= 10
	case tea.KeyBackspace:
		n /= 10
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if r < '0' || r > '9' {
				return
			}
			n = n*10 + int(r-'0')
		}
	default:
		return
	}
	if n < 0 {
		n = 0
	}
	if n > 100 {
		n = 100
	}
	a.form.SetValue(field.Key, form.NumberValue(&n))
}

// editFloat edits through a string buffer so partial input like "1." is
// representable; the parsed value lands in the form on every change.
func (a *App) editFloat(msg tea.KeyMsg, field *form.Field) {
	buf := a.floatBuf[field.Key]

	switch msg.Type {
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if (r < '0' || r > '9') && r != '.' {
				return
			}
		}
		buf += string(msg.Runes)
	case tea.KeyBackspace:
		if len(buf) > 0 {
			buf = buf[:len(buf)-1]
		}
	default:
		return
	}

	a.floatBuf[field.Key] = buf
	if buf == "" {
		a.form.SetValue(field.Key, form.FloatValue(nil))
		return
	}
	if parsed, err := strconv.ParseFloat(buf, 64); err == nil {
		a.form.SetValue(field.Key, form.FloatValue(&parsed))
	}
}

func (a *App) submitForm() (tea.Model, tea.Cmd) {
	if err := a.form.Validate(); err != nil {
		return a, a.setStatus(err.Error(), true)
	}
	if a.client == nil {
		return a, a.setStatus("Not configured", true)
	}

	switch a.formKind {
	case formCreate:
		payload := form.CreateIssuePayload(a.form, a.state.SelectedProjectID)
		return a, a.createIssueCmd(payload)

	case formUpdate:
		payload := form.UpdateIssuePayload(a.form)
		return a, a.updateIssueCmd(a.formIssueID, payload)

	case formBulk:
		ids := make([]int64, 0, len(a.selected))
		if a.result != nil {
			for _, issue := range a.result.Issues {
				if a.selected[issue.ID] {
					ids = append(ids, issue.ID)
				}
			}
		}
		payload := form.BulkUpdatePayload(a.form)
		return a, a.bulkUpdateCmd(ids, payload)
	}

	a.closeForm()
	return a, nil
}
