package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/erazemk/pekarna/internal/catalog"
	"github.com/erazemk/pekarna/internal/client"
	"github.com/erazemk/pekarna/internal/entity"
	"github.com/erazemk/pekarna/internal/forms"
	"github.com/erazemk/pekarna/internal/picker"
)

// editor commits one field of a record of any type. It lets a form created
// inside a picker write its identity back into the launching record.
type editor interface {
	commit(r *http.Request, u *ui, id int64, field string, newValue, oldValue any) (map[string]any, bool)
}

// formHandler serves the pages and actions of one form. Every request gets
// its own controller, closed when the request ends.
type formHandler[T entity.Record] struct {
	s    *Server
	form *forms.Form[T]
}

func (h *formHandler[T]) controller(r *http.Request, u *ui, onSuccess func(int64)) (*entity.Controller[T], *catalog.Context) {
	dc := h.s.dataContext(r)
	cfg := h.form.Config(dc.Client())
	cfg.OnSuccess = onSuccess
	return entity.NewController(cfg, entity.Env{
		Auth:       dc,
		Notify:     u,
		Navigate:   u,
		Invalidate: dc,
		Queue:      h.s.Queue,
	}), dc
}

// stub returns a record that carries only its identity.
func (h *formHandler[T]) stub(id int64) (T, error) {
	var rec T
	err := entity.SetField(&rec, h.form.Meta().PrimaryKey, id)
	return rec, err
}

func (h *formHandler[T]) detailPath(id int64) string {
	return "/" + h.form.Meta().Endpoint + "/" + strconv.FormatInt(id, 10)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

// parentQuery keeps the query parameters that select lines of one parent.
func parentQuery(meta forms.Meta, q url.Values) url.Values {
	out := url.Values{}
	for _, f := range meta.Fields {
		if v := q.Get(f.Name); f.Hidden && v != "" {
			out.Set(f.Name, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// List handles GET /{endpoint}.
func (h *formHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	meta := h.form.Meta()
	u := &ui{}
	dc := h.s.dataContext(r)

	view := h.form.List(u, parentQuery(meta, r.URL.Query())).View(r.Context(), dc, picker.Props{
		Search: r.URL.Query().Get("q"),
	})
	if view.Err != nil {
		slog.Error("failed to list records", "endpoint", meta.Endpoint, "error", view.Err)
	}
	for i := range view.Items {
		view.Items[i].ImageURL = h.s.imageURL(view.Items[i].ImageURL)
	}

	h.s.Templates.Render(w, "list.html", &listPage{
		PageData: h.s.pageData(w, r, meta.Title),
		Meta:     meta,
		View:     view,
	})
}

// Detail handles GET /{endpoint}/{id}, including the creation form at
// /{endpoint}/new and the picker modal opened with ?picker=<field>.
func (h *formHandler[T]) Detail(w http.ResponseWriter, r *http.Request) {
	meta := h.form.Meta()
	q := r.URL.Query()
	idOrNew := r.PathValue("id")

	u := &ui{}
	ctrl, dc := h.controller(r, u, nil)
	defer ctrl.Close()

	ctrl.Initialize(r.Context(), idOrNew)

	if idOrNew == entity.NewID {
		for _, f := range meta.Fields {
			if v := q.Get(f.Name); f.Hidden && v != "" {
				if err := ctrl.ChangeField(f.Name, entity.InputValue(entity.InputNumber, v, false)); err != nil {
					slog.Warn("ignoring parent reference", "field", f.Name, "error", err)
				}
			}
		}
	}

	data := h.s.pageData(w, r, meta.Name)
	data.Flash = append(data.Flash, u.notes...)

	switch ctrl.State() {
	case entity.StateNotFound:
		data.Error = ctrl.Err().Error()
		h.s.Templates.RenderStatus(w, http.StatusNotFound, "error.html", &data)
		return
	case entity.StateErrored:
		if errors.Is(ctrl.Err(), client.ErrNotAuthenticated) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		data.Error = ctrl.Err().Error()
		h.s.Templates.RenderStatus(w, http.StatusBadGateway, "error.html", &data)
		return
	}

	p := h.formPage(r.Context(), dc, u, data, ctrl.Record())
	p.Return = safeReturn(q.Get("return"))
	if !p.IsNew {
		p.Modal = h.modal(r.Context(), dc, u, p, q)
	}
	h.s.Templates.Render(w, "form.html", p)
}

// formPage builds the view of rec.
func (h *formHandler[T]) formPage(ctx context.Context, dc *catalog.Context, u *ui, data PageData, rec T) *formPage {
	meta := h.form.Meta()
	id := rec.Identity()
	p := &formPage{
		PageData: data,
		Meta:     meta,
		Action:   "/" + meta.Endpoint,
		ID:       id,
		IsNew:    id == 0,
	}
	if !p.IsNew {
		p.Title = h.form.Element(ctx, dc, rec).Title
		if p.Title == "" {
			p.Title = meta.Name
		}
	} else {
		p.Title = "New " + meta.Name
	}

	values, err := entity.Fields(rec)
	if err != nil {
		slog.Error("failed to read record fields", "endpoint", meta.Endpoint, "error", err)
	}
	if img, ok := values["image_url"].(string); ok && img != "" {
		p.Image = h.s.imageURL(img)
	}
	p.Fields = h.s.fieldViews(ctx, dc, meta, values, p.IsNew)

	if p.IsNew {
		return p
	}
	back := h.detailPath(id)
	for _, child := range meta.Children {
		d, ok := h.s.Forms.Registry.Get(child.Endpoint)
		if !ok {
			continue
		}
		lines := url.Values{child.ParentField: {strconv.FormatInt(id, 10)}}
		add := url.Values{child.ParentField: {strconv.FormatInt(id, 10)}, "return": {back}}
		view := d.List(u, lines).View(ctx, dc, picker.Props{
			Title:  child.Title,
			AddNew: "/" + child.Endpoint + "/" + entity.NewID + "?" + add.Encode(),
			Link: func(lineID int64) string {
				return "/" + child.Endpoint + "/" + strconv.FormatInt(lineID, 10) + "?" + url.Values{"return": {back}}.Encode()
			},
		})
		p.Children = append(p.Children, view)
	}
	return p
}

// fieldViews renders values for meta's fields. Creation forms get the
// choices of every picker field inline.
func (s *Server) fieldViews(ctx context.Context, dc *catalog.Context, meta forms.Meta, values map[string]any, withChoices bool) []fieldView {
	names := s.Forms.Registry.Names(ctx, dc)
	out := make([]fieldView, 0, len(meta.Fields))
	for _, f := range meta.Fields {
		fv := fieldView{Field: f}
		v := values[f.Name]
		switch f.Kind {
		case entity.InputCheckbox:
			fv.Checked, _ = v.(bool)
		case entity.InputPicker:
			if id := toInt64(v); id != 0 {
				fv.Value = strconv.FormatInt(id, 10)
				fv.Display = names.Of(f.Picker, id)
			}
			if related, ok := s.Forms.Registry.Get(f.Picker); ok {
				fv.Related = related.Meta()
				if withChoices {
					fv.Choices = related.Elements(ctx, dc, nil).Data
				}
			}
		default:
			fv.Value = formatValue(v)
		}
		out = append(out, fv)
	}
	return out
}

// modal resolves the picker requested by ?picker=<field>&mode=list|create.
func (h *formHandler[T]) modal(ctx context.Context, dc *catalog.Context, u *ui, p *formPage, q url.Values) *modalView {
	name := q.Get("picker")
	if name == "" {
		return nil
	}
	var field *fieldView
	for i := range p.Fields {
		if p.Fields[i].Name == name && p.Fields[i].Kind == entity.InputPicker {
			field = &p.Fields[i]
		}
	}
	if field == nil {
		return nil
	}
	related, ok := h.s.Forms.Registry.Get(field.Picker)
	if !ok {
		return nil
	}

	var m picker.Modal
	if err := m.Open(picker.Launch{Field: field.Name, List: related.List(u, nil)}); err != nil {
		slog.Warn("picker not opened", "field", field.Name, "error", err)
		return nil
	}
	if q.Get("mode") == picker.OpenCreate.String() && !related.Meta().ReadOnly {
		if err := m.ToggleCreate(); err != nil {
			slog.Warn("picker create not opened", "field", field.Name, "error", err)
		}
	}

	mode, launch := m.State()
	mv := &modalView{
		Field:   field.Name,
		Label:   field.Label,
		Old:     field.Value,
		Mode:    mode.String(),
		Related: related.Meta(),
		Self:    p.Action + "/" + strconv.FormatInt(p.ID, 10),
	}
	switch mode {
	case picker.OpenList:
		mv.List = launch.List.View(ctx, dc, picker.Props{
			Title:  "Choose " + field.Label,
			Search: q.Get("q"),
		})
		for i := range mv.List.Items {
			mv.List.Items[i].ImageURL = h.s.imageURL(mv.List.Items[i].ImageURL)
		}
	case picker.OpenCreate:
		mv.Create = h.s.fieldViews(ctx, dc, related.Meta(), nil, true)
	}
	return mv
}

// decodeForm applies the posted values of meta's fields to rec.
func decodeForm[T any](meta forms.Meta, form url.Values, rec *T) error {
	for _, f := range meta.Fields {
		raw := form.Get(f.Name)
		if f.Kind != entity.InputCheckbox && !form.Has(f.Name) {
			continue
		}
		v := entity.InputValue(f.Kind, raw, raw != "")
		if v == nil {
			continue
		}
		if err := entity.SetField(rec, f.Name, f.Clean(v)); err != nil {
			return err
		}
	}
	return nil
}

// Create handles POST /{endpoint}/new.
func (h *formHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	meta := h.form.Meta()
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	rec := h.form.Empty()
	if err := decodeForm(meta, r.PostForm, &rec); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u := &ui{}
	ret := safeReturn(r.PostForm.Get("return"))
	target := pickTargetFrom(r.PostForm)

	var onSuccess func(int64)
	switch {
	case target != nil:
		parent, ok := h.s.editors[target.For]
		if !ok {
			http.Error(w, "unknown parent form", http.StatusBadRequest)
			return
		}
		onSuccess = func(newID int64) {
			old := entity.InputValue(entity.InputPicker, target.Old, false)
			parent.commit(r, u, target.ID, target.Field, float64(newID), old)
			u.Navigate("/" + target.For + "/" + strconv.FormatInt(target.ID, 10))
		}
	case ret != "":
		onSuccess = func(int64) { u.Navigate(ret) }
	}

	ctrl, dc := h.controller(r, u, onSuccess)
	defer ctrl.Close()

	err := ctrl.SaveNew(r.Context(), rec)
	switch {
	case err == nil:
		u.redirect(w, r, u.target, h.s.SecureCookies)
		return
	case errors.Is(err, client.ErrNotAuthenticated):
		u.redirect(w, r, "/login", h.s.SecureCookies)
		return
	}

	// The form stays populated for a retry.
	data := h.s.pageData(w, r, meta.Name)
	data.Flash = append(data.Flash, u.notes...)
	p := h.formPage(r.Context(), dc, u, data, ctrl.Record())
	p.Return = ret
	p.Pick = target
	h.s.Templates.RenderStatus(w, http.StatusUnprocessableEntity, "form.html", p)
}

// fieldRequest is one blur event reported by the browser.
type fieldRequest struct {
	Field      string `json:"field"`
	Old        string `json:"old"`
	New        string `json:"new"`
	OldChecked bool   `json:"old_checked"`
	Checked    bool   `json:"checked"`
}

type fieldResponse struct {
	Data          map[string]any        `json:"data"`
	Notifications []entity.Notification `json:"notifications"`
}

// CommitField handles POST /{endpoint}/{id}/field. The browser reports the
// value an input had on focus and on blur; a real change is sent to the API
// as a single-field patch.
func (h *formHandler[T]) CommitField(w http.ResponseWriter, r *http.Request) {
	meta := h.form.Meta()
	u := &ui{}

	id, err := pathID(r)
	if err != nil {
		u.Notify(entity.Notification{Level: entity.LevelError, Message: err.Error()})
		writeJSON(w, http.StatusBadRequest, fieldResponse{Notifications: u.notifications()})
		return
	}

	var req fieldRequest
	if err := decodeBody(r, &req); err != nil {
		u.Notify(entity.Notification{Level: entity.LevelError, Message: "invalid request body"})
		writeJSON(w, http.StatusBadRequest, fieldResponse{Notifications: u.notifications()})
		return
	}

	f, ok := meta.Field(req.Field)
	if !ok || f.Hidden {
		u.Notify(entity.Notification{Level: entity.LevelError, Message: fmt.Sprintf("unknown field %q", req.Field)})
		writeJSON(w, http.StatusBadRequest, fieldResponse{Notifications: u.notifications()})
		return
	}

	var tracker entity.FieldTracker
	tracker.Focus(entity.InputValue(f.Kind, req.Old, req.OldChecked))
	edit, changed := tracker.Blur(f.Name, entity.InputValue(f.Kind, req.New, req.Checked))
	if !changed {
		h.s.Metrics.commit(meta.Endpoint, commitSkipped)
		writeJSON(w, http.StatusOK, fieldResponse{Notifications: u.notifications()})
		return
	}

	data, _ := h.commit(r, u, id, edit.Field, edit.New, edit.Old)
	writeJSON(w, http.StatusOK, fieldResponse{Data: data, Notifications: u.notifications()})
}

func (h *formHandler[T]) commit(r *http.Request, u *ui, id int64, field string, newValue, oldValue any) (map[string]any, bool) {
	meta := h.form.Meta()
	f, ok := meta.Field(field)
	if !ok {
		u.Notify(entity.Notification{Level: entity.LevelError, Message: fmt.Sprintf("unknown field %q", field)})
		return nil, false
	}
	rec, err := h.stub(id)
	if err != nil {
		u.Notify(entity.Notification{Level: entity.LevelError, Message: err.Error()})
		return nil, false
	}

	// A private collector tells this commit's outcome apart from earlier
	// notifications of the same request.
	own := &ui{}
	ctrl, _ := h.controller(r, own, nil)
	defer ctrl.Close()
	ctrl.Adopt(rec)

	sent := ctrl.CommitFieldEdit(r.Context(), field, f.Clean(newValue), oldValue)
	for _, n := range own.notes {
		u.Notify(n)
	}

	switch {
	case !sent:
		h.s.Metrics.commit(meta.Endpoint, commitSkipped)
		return nil, false
	case !own.has(entity.LevelSuccess):
		h.s.Metrics.commit(meta.Endpoint, commitFailed)
		return nil, false
	}
	h.s.Metrics.commit(meta.Endpoint, commitSaved)

	values, err := entity.Fields(ctrl.Record())
	if err != nil {
		slog.Error("failed to read record fields", "endpoint", meta.Endpoint, "error", err)
		return nil, true
	}
	return values, true
}

// Pick handles POST /{endpoint}/{id}/pick, the selection made in a picker
// modal.
func (h *formHandler[T]) Pick(w http.ResponseWriter, r *http.Request) {
	meta := h.form.Meta()
	id, err := pathID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f, ok := meta.Field(r.FormValue("field"))
	if !ok || f.Kind != entity.InputPicker {
		http.Error(w, "invalid field", http.StatusBadRequest)
		return
	}
	selected, err := strconv.ParseInt(r.FormValue("value"), 10, 64)
	if err != nil || selected <= 0 {
		http.Error(w, "invalid selection", http.StatusBadRequest)
		return
	}
	related, ok := h.s.Forms.Registry.Get(f.Picker)
	if !ok {
		http.Error(w, "invalid field", http.StatusBadRequest)
		return
	}

	u := &ui{}
	old := entity.InputValue(entity.InputPicker, r.FormValue("old"), false)

	var m picker.Modal
	err = m.Open(picker.Launch{
		Field: f.Name,
		List:  related.List(u, nil),
		OnSelect: func(value int64) {
			h.commit(r, u, id, f.Name, float64(value), old)
		},
	})
	if err == nil {
		err = m.Select(selected)
	}
	if err != nil {
		slog.Error("failed to apply picker selection", "field", f.Name, "error", err)
	}

	u.redirect(w, r, h.detailPath(id), h.s.SecureCookies)
}

// Delete handles POST /{endpoint}/{id}/delete. The user stays on the record
// when the API refuses.
func (h *formHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec, err := h.stub(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u := &ui{}
	ctrl, _ := h.controller(r, u, nil)
	defer ctrl.Close()
	ctrl.Adopt(rec)

	switch err := ctrl.Delete(r.Context()); {
	case errors.Is(err, client.ErrNotAuthenticated):
		u.redirect(w, r, "/login", h.s.SecureCookies)
	case err != nil:
		u.redirect(w, r, h.detailPath(id), h.s.SecureCookies)
	default:
		target := u.target
		if ret := safeReturn(r.FormValue("return")); ret != "" {
			target = ret
		}
		u.redirect(w, r, target, h.s.SecureCookies)
	}
}

// Cancel handles POST /{endpoint}/cancel.
func (h *formHandler[T]) Cancel(w http.ResponseWriter, r *http.Request) {
	u := &ui{}
	ctrl, _ := h.controller(r, u, nil)
	defer ctrl.Close()
	ctrl.Cancel()

	target := u.target
	if ret := safeReturn(r.FormValue("return")); ret != "" {
		target = ret
	}
	u.redirect(w, r, target, h.s.SecureCookies)
}
