// Package picker renders searchable selection lists. The same list serves as
// a collection's "all" page and as the body of the picker modal that fills a
// related-record field.
package picker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/erazemk/pekarna/internal/catalog"
	"github.com/erazemk/pekarna/internal/entity"
)

// Empty-state messages.
const (
	MsgNothingFound = "nothing found"
	msgNoMatches    = "no matches for '%s'"
)

// Element is the display projection of one record.
type Element struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Selector returns the elements of a list from the data context.
type Selector func(ctx context.Context, dc *catalog.Context) catalog.Snapshot[Element]

// From builds a Selector that loads a data-context collection and projects
// every record through project.
func From[T any](coll func(*catalog.Context) *catalog.Collection[T], project func(T) Element) Selector {
	return func(ctx context.Context, dc *catalog.Context) catalog.Snapshot[Element] {
		snap := coll(dc).Load(ctx)
		out := catalog.Snapshot[Element]{Loading: snap.Loading, Err: snap.Err}
		if snap.Data == nil {
			return out
		}
		out.Data = make([]Element, 0, len(snap.Data))
		for _, rec := range snap.Data {
			out.Data = append(out.Data, project(rec))
		}
		return out
	}
}

// Config is the static part of a list, fixed when the list is created.
type Config struct {
	Title      string
	Subtitle   string
	Endpoint   string
	Select     Selector
	Searchable bool
	OnSelect   func(id int64)
}

// Props are the per-render overrides. Set values win over Config.
type Props struct {
	Title    string
	Subtitle string
	OnSelect func(id int64)
	// Link overrides the target of each element's link.
	Link func(id int64) string
	// AddNew overrides the target of the add-new action.
	AddNew string
	Search string
}

// List is a reusable list bound to one endpoint.
type List struct {
	cfg      Config
	navigate entity.Navigator
}

// New creates a list. nav receives the default navigations.
func New(cfg Config, nav entity.Navigator) *List {
	return &List{cfg: cfg, navigate: nav}
}

// Endpoint returns the API path segment the list is bound to.
func (l *List) Endpoint() string {
	return l.cfg.Endpoint
}

// Searchable reports whether the list shows a search box.
func (l *List) Searchable() bool {
	return l.cfg.Searchable
}

// Item is one rendered element.
type Item struct {
	Element
	Href string
}

// View is a list resolved against props and the data context.
type View struct {
	Title      string
	Subtitle   string
	Search     string
	Searchable bool
	Items      []Item
	Loading    bool
	Err        error
	// Message is set when Items is empty.
	Message    string
	AddNewHref string

	onSelect func(id int64)
}

// View resolves the list for one render.
func (l *List) View(ctx context.Context, dc *catalog.Context, props Props) *View {
	v := &View{
		Title:      first(props.Title, l.cfg.Title),
		Subtitle:   first(props.Subtitle, l.cfg.Subtitle),
		Searchable: l.cfg.Searchable,
		AddNewHref: first(props.AddNew, "/"+l.cfg.Endpoint+"/"+entity.NewID),
	}

	switch {
	case props.OnSelect != nil:
		v.onSelect = props.OnSelect
	case l.cfg.OnSelect != nil:
		v.onSelect = l.cfg.OnSelect
	default:
		v.onSelect = func(id int64) {
			if l.navigate != nil {
				l.navigate.Navigate(l.detailPath(id))
			}
		}
	}

	link := props.Link
	if link == nil {
		link = l.detailPath
	}

	var elements []Element
	if l.cfg.Select != nil {
		snap := l.cfg.Select(ctx, dc)
		elements, v.Loading, v.Err = snap.Data, snap.Loading, snap.Err
	}

	if l.cfg.Searchable {
		v.Search = props.Search
	}
	matches := Filter(elements, v.Search)
	for _, el := range matches {
		v.Items = append(v.Items, Item{Element: el, Href: link(el.ID)})
	}
	if len(v.Items) == 0 {
		v.Message = EmptyMessage(len(elements), v.Search)
	}
	return v
}

// Select hands id to the resolved on-select callback.
func (v *View) Select(id int64) {
	v.onSelect(id)
}

func (l *List) detailPath(id int64) string {
	return "/" + l.cfg.Endpoint + "/" + strconv.FormatInt(id, 10)
}

// Filter keeps the elements whose title or subtitle contains term, ignoring
// case. An empty term keeps everything.
func Filter(elements []Element, term string) []Element {
	term = strings.TrimSpace(term)
	if term == "" {
		return elements
	}
	needle := strings.ToLower(term)
	var out []Element
	for _, el := range elements {
		if strings.Contains(strings.ToLower(el.Title), needle) ||
			strings.Contains(strings.ToLower(el.Subtitle), needle) {
			out = append(out, el)
		}
	}
	return out
}

// EmptyMessage is the text shown for an empty result. A search that matched
// nothing is reported differently from an empty collection.
func EmptyMessage(total int, term string) string {
	term = strings.TrimSpace(term)
	if total > 0 && term != "" {
		return fmt.Sprintf(msgNoMatches, term)
	}
	return MsgNothingFound
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
