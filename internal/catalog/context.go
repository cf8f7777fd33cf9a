// Package catalog is the shared data context: cached reference collections
// that many unrelated forms read. Forms never write into it; they publish an
// invalidation after create or delete and the affected collection is
// replaced on its next load.
package catalog

import (
	"context"
	"net/url"
	"sync"

	"github.com/erazemk/pekarna/internal/client"
	"github.com/erazemk/pekarna/internal/entity"
	"github.com/erazemk/pekarna/internal/model"
)

// Collection names.
const (
	Brands          = "brands"
	Suppliers       = "suppliers"
	Buyables        = "buyables"
	Ingredients     = "ingredients"
	Recipes         = "recipes"
	Labourers       = "labourers"
	ProductionLogs  = "production_logs"
	Invoices        = "invoices"
	Currencies      = "currencies"
	Units           = "units"
	ProductionTypes = "production_types"
)

// Session is the signed-in state a data context fetches with.
type Session interface {
	entity.AuthState
	client.TokenSource
}

// Context holds the collections of one signed-in user.
type Context struct {
	api    *client.Client
	broker *Broker

	mu      sync.RWMutex
	session Session

	Brands          *Collection[model.Brand]
	Suppliers       *Collection[model.Supplier]
	Buyables        *Collection[model.Buyable]
	Ingredients     *Collection[model.Ingredient]
	Recipes         *Collection[model.Recipe]
	Labourers       *Collection[model.Labourer]
	ProductionLogs  *Collection[model.ProductionLog]
	Invoices        *Collection[model.Invoice]
	Currencies      *Collection[model.Currency]
	Units           *Collection[model.Unit]
	ProductionTypes *Collection[model.ProductionType]

	unsubscribe []func()
}

// NewContext creates a data context whose collections subscribe to broker.
func NewContext(api *client.Client, broker *Broker) *Context {
	dc := &Context{api: api, broker: broker}

	dc.Brands = register[model.Brand](dc, Brands, "Brand", "buyable/brand")
	dc.Suppliers = register[model.Supplier](dc, Suppliers, "Supplier", "buyable/supplier")
	dc.Buyables = register[model.Buyable](dc, Buyables, "Buyable", "buyable/buyable")
	dc.Ingredients = register[model.Ingredient](dc, Ingredients, "Ingredient", "recipe/ingredient")
	dc.Recipes = register[model.Recipe](dc, Recipes, "Recipe", "recipe/recipe")
	dc.Labourers = register[model.Labourer](dc, Labourers, "Labourer", "labour/labourer")
	dc.ProductionLogs = register[model.ProductionLog](dc, ProductionLogs, "Production log", "production/log")
	dc.Invoices = register[model.Invoice](dc, Invoices, "Invoice", "invoice/invoice")
	dc.Currencies = register[model.Currency](dc, Currencies, "Currency", "buyable/currency")
	dc.Units = register[model.Unit](dc, Units, "Unit", "buyable/unit")
	dc.ProductionTypes = register[model.ProductionType](dc, ProductionTypes, "Production type", "production/type")

	return dc
}

func register[T any](dc *Context, name, entityName, endpoint string) *Collection[T] {
	coll := NewCollection(name, endpoint, nil, Remote[T](dc, entityName), dc)
	dc.unsubscribe = append(dc.unsubscribe, dc.broker.Subscribe(name, func(Message) {
		coll.Invalidate()
	}))
	return coll
}

// Remote returns a Fetcher that lists records through the context's client
// with the bound session's token.
func Remote[T any](dc *Context, entityName string) Fetcher[T] {
	return func(ctx context.Context, endpoint string, query url.Values) ([]T, error) {
		return client.List[T](ctx, dc.Client(), entityName, endpoint, query)
	}
}

// Bind makes s the session used for fetching.
func (dc *Context) Bind(s Session) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.session = s
}

// Client returns an API client authenticated as the bound session.
func (dc *Context) Client() *client.Client {
	return dc.api.WithTokens(dc)
}

// Token implements client.TokenSource.
func (dc *Context) Token(ctx context.Context) (string, error) {
	dc.mu.RLock()
	s := dc.session
	dc.mu.RUnlock()
	if s == nil {
		return "", nil
	}
	return s.Token(ctx)
}

// Loading implements entity.AuthState.
func (dc *Context) Loading() bool {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.session != nil && dc.session.Loading()
}

// Authenticated implements entity.AuthState.
func (dc *Context) Authenticated() bool {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.session != nil && dc.session.Authenticated()
}

// Invalidate announces that collection is stale. It implements
// entity.Invalidator.
func (dc *Context) Invalidate(collection string) {
	dc.broker.Publish(Message{Collection: collection})
}

// Close removes the context's subscriptions.
func (dc *Context) Close() {
	for _, unsub := range dc.unsubscribe {
		unsub()
	}
	dc.unsubscribe = nil
}
