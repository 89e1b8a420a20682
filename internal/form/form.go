// Package form implements the dynamic field system behind the create, update
// and bulk-edit dialogs: typed field definitions, a tagged value variant, and
// a form holding the current value per field key.
package form

import (
	"fmt"
	"strings"
)

// Kind discriminates how a field is edited and rendered.
type Kind int

const (
	KindText Kind = iota
	KindTextArea
	KindDropdown
	KindSearchableDropdown
	KindDate
	KindNumber
	KindFloat
	KindCheckbox
	KindProgress
)

// Option is one selectable entry of a dropdown field.
type Option struct {
	ID   int64
	Name string
}

// ValueKind discriminates the variant held by a Value.
type ValueKind int

const (
	ValueText ValueKind = iota
	ValueNumber
	ValueFloat
	ValueBool
	ValueOption
)

// Value is a tagged variant holding one field's current value. The zero Value
// is an empty text.
type Value struct {
	kind   ValueKind
	text   string
	number *int
	float  *float64
	flag   bool
	option *int64
}

// TextValue holds free text (also used for dates, format YYYY-MM-DD).
func TextValue(s string) Value { return Value{kind: ValueText, text: s} }

// NumberValue holds an optional integer; nil means unset.
func NumberValue(n *int) Value { return Value{kind: ValueNumber, number: n} }

// FloatValue holds an optional decimal; nil means unset.
func FloatValue(f *float64) Value { return Value{kind: ValueFloat, float: f} }

// BoolValue holds a checkbox state.
func BoolValue(b bool) Value { return Value{kind: ValueBool, flag: b} }

// OptionValue holds an optional selected dropdown id; nil means no selection.
func OptionValue(id *int64) Value { return Value{kind: ValueOption, option: id} }

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// AsText returns the text content, or "" for non-text variants.
func (v Value) AsText() string {
	if v.kind != ValueText {
		return ""
	}
	return v.text
}

// AsNumber returns the integer content if set.
func (v Value) AsNumber() (int, bool) {
	if v.kind != ValueNumber || v.number == nil {
		return 0, false
	}
	return *v.number, true
}

// AsFloat returns the decimal content if set.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != ValueFloat || v.float == nil {
		return 0, false
	}
	return *v.float, true
}

// AsBool returns the checkbox state, false for non-bool variants.
func (v Value) AsBool() bool {
	return v.kind == ValueBool && v.flag
}

// AsOption returns the selected dropdown id if any.
func (v Value) AsOption() (int64, bool) {
	if v.kind != ValueOption || v.option == nil {
		return 0, false
	}
	return *v.option, true
}

// Field is one entry of a form.
type Field struct {
	Key      string // identifier, e.g. "subject", "tracker_id"
	Label    string
	Kind     Kind
	Required bool
	Options  []Option
	Default  *Value
	Help     string
}

func defaultValue(v Value) *Value { return &v }

// NewText creates a single-line text field.
func NewText(key, label string, required bool) Field {
	return Field{Key: key, Label: label, Kind: KindText, Required: required,
		Default: defaultValue(TextValue(""))}
}

// NewTextArea creates a multi-line text field.
func NewTextArea(key, label string, required bool) Field {
	return Field{Key: key, Label: label, Kind: KindTextArea, Required: required,
		Default: defaultValue(TextValue(""))}
}

// NewDropdown creates a fixed-list select field.
func NewDropdown(key, label string, options []Option, required bool) Field {
	return Field{Key: key, Label: label, Kind: KindDropdown, Required: required,
		Options: options, Default: defaultValue(OptionValue(nil))}
}

// NewSearchableDropdown creates a select field with incremental search.
func NewSearchableDropdown(key, label string, options []Option, required bool) Field {
	return Field{Key: key, Label: label, Kind: KindSearchableDropdown, Required: required,
		Options: options, Default: defaultValue(OptionValue(nil))}
}

// NewDate creates a date field.
func NewDate(key, label string, required bool) Field {
	return Field{Key: key, Label: label, Kind: KindDate, Required: required,
		Default: defaultValue(TextValue("")), Help: "Format: YYYY-MM-DD"}
}

// NewFloat creates a decimal field.
func NewFloat(key, label string, required bool) Field {
	return Field{Key: key, Label: label, Kind: KindFloat, Required: required,
		Default: defaultValue(FloatValue(nil))}
}

// NewCheckbox creates a boolean toggle.
func NewCheckbox(key, label string) Field {
	return Field{Key: key, Label: label, Kind: KindCheckbox,
		Default: defaultValue(BoolValue(false))}
}

// NewProgress creates a 0-100 percentage field.
func NewProgress(key, label string) Field {
	zero := 0
	return Field{Key: key, Label: label, Kind: KindProgress,
		Default: defaultValue(NumberValue(&zero)), Help: "0-100%"}
}

// WithDefault overrides the field's initial value.
func (f Field) WithDefault(v Value) Field {
	f.Default = &v
	return f
}

// WithHelp attaches a help line to the field.
func (f Field) WithHelp(help string) Field {
	f.Help = help
	return f
}

// Form holds an ordered field list, the current value per field key, and the
// transient editing state of searchable dropdowns.
type Form struct {
	Fields []Field

	values     map[string]Value
	current    int
	scroll     int
	searchText map[string]string
	searchMode map[string]bool
}

// NewForm creates an empty form.
func NewForm() *Form {
	return &Form{
		values:     make(map[string]Value),
		searchText: make(map[string]string),
		searchMode: make(map[string]bool),
	}
}

// AddField appends a field and seeds its value from the field default.
func (f *Form) AddField(field Field) {
	if field.Default != nil {
		f.values[field.Key] = *field.Default
	}
	f.Fields = append(f.Fields, field)
}

// Current returns the focused field, or nil for an empty form.
func (f *Form) Current() *Field {
	if f.current < 0 || f.current >= len(f.Fields) {
		return nil
	}
	return &f.Fields[f.current]
}

// CurrentIndex returns the focused field index.
func (f *Form) CurrentIndex() int { return f.current }

// Next moves focus to the following field, wrapping at the end.
func (f *Form) Next() {
	if f.current < len(f.Fields)-1 {
		f.current++
	} else {
		f.current = 0
	}
}

// Prev moves focus to the preceding field, wrapping at the start.
func (f *Form) Prev() {
	if f.current > 0 {
		f.current--
	} else if len(f.Fields) > 0 {
		f.current = len(f.Fields) - 1
	}
}

// ScrollOffset returns the first visible field index.
func (f *Form) ScrollOffset() int { return f.scroll }

// UpdateScroll adjusts the scroll offset so the focused field stays within
// the given number of visible rows.
func (f *Form) UpdateScroll(visible int) {
	if visible <= 0 {
		return
	}
	if f.current < f.scroll {
		f.scroll = f.current
	} else if f.current >= f.scroll+visible {
		f.scroll = f.current - visible + 1
	}
}

// Value returns the current value for a field key.
func (f *Form) Value(key string) (Value, bool) {
	v, ok := f.values[key]
	return v, ok
}

// SetValue stores a value under a field key.
func (f *Form) SetValue(key string, v Value) {
	f.values[key] = v
}

// SearchText returns the live search text of a searchable dropdown.
func (f *Form) SearchText(key string) string { return f.searchText[key] }

// SetSearchText stores the live search text of a searchable dropdown.
func (f *Form) SetSearchText(key, text string) { f.searchText[key] = text }

// InSearchMode reports whether a field is being searched.
func (f *Form) InSearchMode(key string) bool { return f.searchMode[key] }

// SetSearchMode toggles search mode for a field.
func (f *Form) SetSearchMode(key string, mode bool) { f.searchMode[key] = mode }

// ClearSearch drops a field's search state.
func (f *Form) ClearSearch(key string) {
	delete(f.searchText, key)
	delete(f.searchMode, key)
}

// Validate checks that every required field carries a usable value. The first
// violation is returned as an error naming the field label.
func (f *Form) Validate() error {
	for _, field := range f.Fields {
		if !field.Required {
			continue
		}
		v, ok := f.values[field.Key]
		if !ok {
			return fmt.Errorf("%s is required", field.Label)
		}
		switch v.kind {
		case ValueText:
			if v.text == "" {
				return fmt.Errorf("%s is required", field.Label)
			}
		case ValueOption:
			if v.option == nil {
				return fmt.Errorf("%s is required", field.Label)
			}
		}
	}
	return nil
}

// FilteredOptions returns a searchable dropdown's options narrowed by its
// live search text. An exact name match wins over partial matches so typing a
// full name selects exactly one entry.
func (f *Form) FilteredOptions(key string) []Option {
	var field *Field
	for i := range f.Fields {
		if f.Fields[i].Key == key {
			field = &f.Fields[i]
			break
		}
	}
	if field == nil {
		return nil
	}

	search := strings.ToLower(f.SearchText(key))
	if search == "" {
		return field.Options
	}

	var exact, partial []Option
	for _, opt := range field.Options {
		lower := strings.ToLower(opt.Name)
		if lower == search {
			exact = append(exact, opt)
		} else if strings.Contains(lower, search) {
			partial = append(partial, opt)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return partial
}

// CarryValues copies values from a previous form for every key both forms
// share. Used when a form is rebuilt (e.g. after a tracker change adds or
// removes fields) so the user's input survives.
func (f *Form) CarryValues(old *Form) {
	if old == nil {
		return
	}
	for _, field := range f.Fields {
		if v, ok := old.values[field.Key]; ok {
			f.values[field.Key] = v
		}
	}
}
