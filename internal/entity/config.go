// Package entity implements the lifecycle shared by every editable record in
// the back-office: load or start empty, edit fields in memory, persist one
// field on blur for existing records and the whole record on submit for new
// ones.
package entity

import (
	"context"
	"net/url"

	"github.com/erazemk/pekarna/internal/client"
)

// NewID is the reserved identifier that asks for an empty creation form.
const NewID = "new"

// Record is any type with exactly one identity field. A zero identity means
// the record has not been persisted yet.
type Record interface {
	Identity() int64
}

// Config binds a record type to its API endpoint and behaviour. A Config is
// built per request and never persisted.
type Config[T Record] struct {
	// Name is the human readable entity name used in messages.
	Name string
	// Endpoint is the API path segment, e.g. "buyable/brand".
	Endpoint string
	// PrimaryKey is the JSON name of the identity field.
	PrimaryKey string
	// Collection names the data-context collection to invalidate after
	// create and delete. Empty disables invalidation.
	Collection string

	Empty  func() T
	Fetch  func(ctx context.Context, id int64) (*T, error)
	Create func(ctx context.Context, record T) (*T, error)
	Patch  func(ctx context.Context, id int64, field string, value any) (*T, error)
	Delete func(ctx context.Context, id int64) error

	// OnSuccess, when set, replaces the navigation that follows a
	// successful SaveNew.
	OnSuccess func(id int64)
}

// Remote fills the network operations of cfg from c.
func Remote[T Record](c *client.Client, cfg Config[T]) Config[T] {
	if cfg.Fetch == nil {
		cfg.Fetch = func(ctx context.Context, id int64) (*T, error) {
			return client.Get[T](ctx, c, cfg.Name, cfg.Endpoint, id)
		}
	}
	if cfg.Create == nil {
		cfg.Create = func(ctx context.Context, record T) (*T, error) {
			return client.Create(ctx, c, cfg.Name, cfg.Endpoint, record)
		}
	}
	if cfg.Patch == nil {
		cfg.Patch = func(ctx context.Context, id int64, field string, value any) (*T, error) {
			return client.Patch[T](ctx, c, cfg.Name, cfg.Endpoint, id, field, value)
		}
	}
	if cfg.Delete == nil {
		cfg.Delete = func(ctx context.Context, id int64) error {
			return client.Delete(ctx, c, cfg.Name, cfg.Endpoint, id)
		}
	}
	return cfg
}

// ListPath is the route of the collection's "all" page.
func (cfg Config[T]) ListPath() string {
	return "/" + cfg.Endpoint
}

// DetailPath is the route of one record's page.
func (cfg Config[T]) DetailPath(id string) string {
	return "/" + cfg.Endpoint + "/" + url.PathEscape(id)
}
