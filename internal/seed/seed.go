// Package seed loads development data from YAML into the API database.
//
// A seed file lists users and, per endpoint, the rows to insert:
//
//	users:
//	  - username: admin
//	    password: change-me
//	    role: admin
//	records:
//	  - endpoint: buyable/brand
//	    rows:
//	      - brand_name: Mlinotest
//
// Users are upserted on every run. Rows are only inserted into tables that
// are still empty, so re-running a seed never duplicates data. Rows get
// identities 1, 2, ... in file order, which later rows may reference.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/erazemk/pekarna/internal/model"
	"github.com/erazemk/pekarna/internal/store"
)

// File is a parsed seed file.
type File struct {
	Users   []User  `yaml:"users"`
	Records []Batch `yaml:"records"`
}

// User is one account to create.
type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// Batch is the rows of one endpoint.
type Batch struct {
	Endpoint string           `yaml:"endpoint"`
	Rows     []map[string]any `yaml:"rows"`
}

// Result counts what Apply changed.
type Result struct {
	Users    int
	Inserted int
	Skipped  []string
}

// Parse decodes and validates a seed file.
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding seed: %w", err)
	}

	for _, u := range f.Users {
		if u.Username == "" {
			return nil, fmt.Errorf("seed user without username")
		}
		if err := model.ValidatePassword(u.Password); err != nil {
			return nil, fmt.Errorf("seed user %s: %w", u.Username, err)
		}
		if !model.RoleAtLeast(u.Role, model.RoleBaker) {
			return nil, fmt.Errorf("seed user %s: unknown role %q", u.Username, u.Role)
		}
	}
	for _, b := range f.Records {
		if _, ok := store.Lookup(b.Endpoint); !ok {
			return nil, fmt.Errorf("seed records: unknown endpoint %q", b.Endpoint)
		}
	}
	return &f, nil
}

// Load parses the seed file at path.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Apply writes f into db.
func Apply(ctx context.Context, db *sql.DB, f *File) (Result, error) {
	var res Result

	for _, u := range f.Users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return res, fmt.Errorf("hashing password for %s: %w", u.Username, err)
		}
		if _, err := store.UpsertUser(ctx, db, u.Username, string(hash), u.Role); err != nil {
			return res, err
		}
		res.Users++
	}

	for _, b := range f.Records {
		table, _ := store.Lookup(b.Endpoint)

		existing, err := store.ListRecords(ctx, db, table, nil)
		if err != nil {
			return res, err
		}
		if len(existing) > 0 {
			res.Skipped = append(res.Skipped, b.Endpoint)
			continue
		}

		for i, row := range b.Rows {
			if _, err := store.CreateRecord(ctx, db, table, normalize(row)); err != nil {
				return res, fmt.Errorf("seeding %s row %d: %w", b.Endpoint, i+1, err)
			}
			res.Inserted++
		}
	}

	slog.Info("seed applied", "users", res.Users, "rows", res.Inserted, "skipped", res.Skipped)
	return res, nil
}

// normalize turns YAML integers into the float64 JSON decoding would produce.
func normalize(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		switch n := v.(type) {
		case int:
			out[k] = float64(n)
		case int64:
			out[k] = float64(n)
		case uint64:
			out[k] = float64(n)
		default:
			out[k] = v
		}
	}
	return out
}
