package web

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/erazemk/pekarna/internal/forms"
	"github.com/erazemk/pekarna/internal/picker"
)

type listPage struct {
	PageData
	Meta forms.Meta
	View *picker.View
}

type formPage struct {
	PageData
	Meta forms.Meta
	// Action is the form's route prefix, e.g. "/buyable/brand".
	Action   string
	ID       int64
	IsNew    bool
	Image    string
	Fields   []fieldView
	Children []*picker.View
	Modal    *modalView
	Return   string
	Pick     *pickTarget
}

type fieldView struct {
	forms.Field
	Value   string
	Checked bool
	// Display is the title of the record a picker field points at.
	Display string
	Related forms.Meta
	Choices []picker.Element
}

type modalView struct {
	Field   string
	Label   string
	Old     string
	Mode    string
	Related forms.Meta
	// Self is the route of the record that launched the picker.
	Self   string
	List   *picker.View
	Create []fieldView
}

// pickTarget is the launching record of a form created inside a picker.
type pickTarget struct {
	For   string
	ID    int64
	Field string
	Old   string
}

func pickTargetFrom(form url.Values) *pickTarget {
	endpoint := form.Get("pick_for")
	if endpoint == "" {
		return nil
	}
	id, err := strconv.ParseInt(form.Get("pick_id"), 10, 64)
	if err != nil || id <= 0 || form.Get("pick_field") == "" {
		return nil
	}
	return &pickTarget{For: endpoint, ID: id, Field: form.Get("pick_field"), Old: form.Get("pick_old")}
}

func decodeBody(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(target)
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case float64:
		return int64(x)
	default:
		return 0
	}
}

// formatValue renders a field value for an input.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
