package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// InputKind is the kind of form input a value came from.
type InputKind string

const (
	InputText     InputKind = "text"
	InputTextArea InputKind = "textarea"
	InputNumber   InputKind = "number"
	InputCheckbox InputKind = "checkbox"
	InputDate     InputKind = "date"
	InputSelect   InputKind = "select"
	InputPicker   InputKind = "picker"
)

// FieldEdit is one focus-to-blur interaction on a single input.
type FieldEdit struct {
	Field string
	Old   any
	New   any
}

// FieldTracker remembers the value of the most recently focused input. It
// holds a single slot: focusing another input replaces it.
type FieldTracker struct {
	mu      sync.Mutex
	focused bool
	value   any
}

// Focus captures the value an input had when it gained focus.
func (t *FieldTracker) Focus(value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.focused = true
	t.value = value
}

// Blur compares the captured value with the value at blur time and clears
// the slot. It reports whether the field really changed.
func (t *FieldTracker) Blur(field string, value any) (FieldEdit, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.focused {
		return FieldEdit{}, false
	}
	old := t.value
	t.focused = false
	t.value = nil
	if Stringify(old) == Stringify(value) {
		return FieldEdit{}, false
	}
	return FieldEdit{Field: field, Old: old, New: value}, true
}

// Stringify renders v the way the change check compares it. The comparison
// is deliberately coarse: 0, "0" and 0.0 are equal, while nil ("null") and
// "" are not.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	case *string:
		if x == nil {
			return "null"
		}
		return *x
	default:
		return fmt.Sprint(x)
	}
}

// InputValue converts a raw form value into the value the record receives.
// Number inputs turn "" into nil; checkboxes use checked instead of raw.
func InputValue(kind InputKind, raw string, checked bool) any {
	switch kind {
	case InputCheckbox:
		return checked
	case InputNumber, InputPicker:
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil
		}
		return f
	default:
		return raw
	}
}
