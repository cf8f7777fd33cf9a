// Package forms declares every record type the back-office edits: which
// endpoint it lives at, which fields the form shows and how a record is
// shown in lists and pickers.
package forms

import (
	"context"
	"net/url"
	"strconv"

	"github.com/microcosm-cc/bluemonday"

	"github.com/erazemk/pekarna/internal/catalog"
	"github.com/erazemk/pekarna/internal/client"
	"github.com/erazemk/pekarna/internal/entity"
	"github.com/erazemk/pekarna/internal/picker"
)

// Field is one input of a form.
type Field struct {
	Name  string
	Label string
	Kind  entity.InputKind
	// Picker is the endpoint of the form whose list fills the field.
	Picker  string
	Options []Option
	// Sanitize marks rich-text fields whose HTML is cleaned before it is
	// sent to the API.
	Sanitize bool
	// Hidden fields reference the parent record of a line and are set from
	// the URL rather than typed.
	Hidden   bool
	Required bool
}

// Option is a choice of a select field.
type Option struct {
	Value string
	Label string
}

var ugc = bluemonday.UGCPolicy()

// Sanitize strips markup that is unsafe to show from rich text.
func Sanitize(html string) string {
	return ugc.Sanitize(html)
}

// Clean prepares a typed value for the API.
func (f Field) Clean(v any) any {
	if s, ok := v.(string); ok && f.Sanitize {
		return Sanitize(s)
	}
	return v
}

// Child is a list of line records shown on a parent's page.
type Child struct {
	Title    string
	Endpoint string
	// ParentField is the line's reference to the parent's identity.
	ParentField string
}

// Meta is the type-independent part of a form.
type Meta struct {
	// Name is the singular entity name used in messages.
	Name string
	// Title heads the list page.
	Title      string
	Endpoint   string
	PrimaryKey string
	// Collection is the data-context collection the form invalidates.
	Collection string
	Fields     []Field
	Children   []Child
	Searchable bool
	// ReadOnly forms have a list page only.
	ReadOnly bool
}

// Field returns the field called name.
func (m Meta) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Descriptor is a form seen without its record type.
type Descriptor interface {
	Meta() Meta
	// Elements returns the records matching query as picker elements.
	Elements(ctx context.Context, dc *catalog.Context, query url.Values) catalog.Snapshot[picker.Element]
	// List returns the form's list restricted to query.
	List(nav entity.Navigator, query url.Values) *picker.List

	bind(r *Registry)
}

// Form describes one record type.
type Form[T entity.Record] struct {
	meta     Meta
	empty    func() T
	source   func(*catalog.Context) *catalog.Collection[T]
	element  func(rec T, names *Names) picker.Element
	registry *Registry
}

func (f *Form[T]) Meta() Meta { return f.meta }

func (f *Form[T]) bind(r *Registry) { f.registry = r }

// Empty returns a new, unsaved record.
func (f *Form[T]) Empty() T {
	if f.empty != nil {
		return f.empty()
	}
	var zero T
	return zero
}

// Config binds the form to the API.
func (f *Form[T]) Config(c *client.Client) entity.Config[T] {
	return entity.Remote(c, entity.Config[T]{
		Name:       f.meta.Name,
		Endpoint:   f.meta.Endpoint,
		PrimaryKey: f.meta.PrimaryKey,
		Collection: f.meta.Collection,
		Empty:      f.Empty,
	})
}

// Collection returns the collection holding the records matching query.
// Unfiltered lists of cached types come from the data context; everything
// else gets a fresh collection.
func (f *Form[T]) Collection(dc *catalog.Context, query url.Values) *catalog.Collection[T] {
	if f.source != nil && len(query) == 0 {
		return f.source(dc)
	}
	return catalog.NewCollection(f.meta.Collection, f.meta.Endpoint, query, catalog.Remote[T](dc, f.meta.Name), dc)
}

// Element projects rec for lists.
func (f *Form[T]) Element(ctx context.Context, dc *catalog.Context, rec T) picker.Element {
	return f.element(rec, f.names(ctx, dc))
}

func (f *Form[T]) names(ctx context.Context, dc *catalog.Context) *Names {
	return f.registry.Names(ctx, dc)
}

func (f *Form[T]) Elements(ctx context.Context, dc *catalog.Context, query url.Values) catalog.Snapshot[picker.Element] {
	coll := f.Collection(dc, query)
	names := f.names(ctx, dc)
	sel := picker.From(
		func(*catalog.Context) *catalog.Collection[T] { return coll },
		func(rec T) picker.Element { return f.element(rec, names) },
	)
	return sel(ctx, dc)
}

func (f *Form[T]) List(nav entity.Navigator, query url.Values) *picker.List {
	return picker.New(picker.Config{
		Title:      f.meta.Title,
		Endpoint:   f.meta.Endpoint,
		Searchable: f.meta.Searchable,
		Select: func(ctx context.Context, dc *catalog.Context) catalog.Snapshot[picker.Element] {
			return f.Elements(ctx, dc, query)
		},
	}, nav)
}

// Names resolves record identities to display titles within one request.
type Names struct {
	ctx      context.Context
	dc       *catalog.Context
	registry *Registry
	cache    map[string]map[int64]string
}

// Of returns the title of the record id at endpoint. Zero ids have no title;
// unknown ones are shown by number.
func (n *Names) Of(endpoint string, id int64) string {
	if id == 0 {
		return ""
	}
	if n.cache == nil {
		n.cache = make(map[string]map[int64]string)
	}
	titles, ok := n.cache[endpoint]
	if !ok {
		titles = make(map[int64]string)
		if n.registry != nil {
			if d, found := n.registry.Get(endpoint); found {
				for _, el := range d.Elements(n.ctx, n.dc, nil).Data {
					titles[el.ID] = el.Title
				}
			}
		}
		n.cache[endpoint] = titles
	}
	if title, ok := titles[id]; ok {
		return title
	}
	return "#" + strconv.FormatInt(id, 10)
}

// Registry holds every form by endpoint.
type Registry struct {
	byEndpoint map[string]Descriptor
	order      []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byEndpoint: make(map[string]Descriptor)}
}

// Register adds d. Registering an endpoint twice replaces the first form.
func (r *Registry) Register(d Descriptor) {
	endpoint := d.Meta().Endpoint
	if _, ok := r.byEndpoint[endpoint]; !ok {
		r.order = append(r.order, endpoint)
	}
	r.byEndpoint[endpoint] = d
	d.bind(r)
}

// Get returns the form at endpoint.
func (r *Registry) Get(endpoint string) (Descriptor, bool) {
	d, ok := r.byEndpoint[endpoint]
	return d, ok
}

// Names returns a resolver for one request. A nil registry resolves every
// identity by number.
func (r *Registry) Names(ctx context.Context, dc *catalog.Context) *Names {
	return &Names{ctx: ctx, dc: dc, registry: r}
}

// All returns the forms in registration order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, e := range r.order {
		out = append(out, r.byEndpoint[e])
	}
	return out
}
