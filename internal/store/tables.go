package store

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the storage type of a column.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindReal
	KindBool
)

// Column is one API-visible column of a table.
type Column struct {
	Name     string
	Kind     Kind
	Required bool
}

// Table describes one API endpoint backed by one SQL table.
type Table struct {
	// Endpoint is the API path segment, e.g. "buyable/brand".
	Endpoint   string
	PrimaryKey string
	Columns    []Column
}

// Name is the SQL table name.
func (t Table) Name() string {
	return strings.ReplaceAll(t.Endpoint, "/", "_")
}

// Column returns the column called name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (t Table) selectList() string {
	names := make([]string, 0, len(t.Columns)+1)
	names = append(names, t.PrimaryKey)
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}

func text(name string) Column    { return Column{Name: name, Kind: KindText} }
func integer(name string) Column { return Column{Name: name, Kind: KindInt} }
func number(name string) Column  { return Column{Name: name, Kind: KindReal} }
func boolean(name string) Column { return Column{Name: name, Kind: KindBool} }

func required(c Column) Column {
	c.Required = true
	return c
}

// Tables lists every endpoint the development API serves.
var Tables = []Table{
	{Endpoint: "buyable/currency", PrimaryKey: "currency_id", Columns: []Column{
		required(text("code")), text("name"),
	}},
	{Endpoint: "buyable/unit", PrimaryKey: "unit_id", Columns: []Column{
		required(text("unit_name")), text("abbreviation"),
	}},
	{Endpoint: "production/type", PrimaryKey: "production_type_id", Columns: []Column{
		required(text("type_name")),
	}},
	{Endpoint: "buyable/brand", PrimaryKey: "brand_id", Columns: []Column{
		required(text("brand_name")), text("website"),
	}},
	{Endpoint: "buyable/supplier", PrimaryKey: "supplier_id", Columns: []Column{
		required(text("supplier_name")), text("account_number"), text("contact_email"),
		text("phone"), text("notes"),
	}},
	{Endpoint: "buyable/buyable", PrimaryKey: "buyable_id", Columns: []Column{
		required(text("buyable_name")), integer("brand_id"), integer("supplier_id"),
		integer("unit_id"), number("pack_size"), number("price"), integer("currency_id"),
		text("barcode"), text("image_url"), boolean("active"),
	}},
	{Endpoint: "recipe/ingredient", PrimaryKey: "ingredient_id", Columns: []Column{
		required(text("ingredient_name")), integer("buyable_id"), integer("unit_id"),
		number("cost_per_unit"), boolean("allergen"),
	}},
	{Endpoint: "recipe/recipe", PrimaryKey: "recipe_id", Columns: []Column{
		required(text("recipe_name")), number("yield_quantity"), integer("yield_unit_id"),
		integer("production_type_id"), text("method"), boolean("active"),
	}},
	{Endpoint: "recipe/recipe_ingredient", PrimaryKey: "id", Columns: []Column{
		required(integer("recipe_id")), integer("ingredient_id"), number("quantity"), integer("unit_id"),
	}},
	{Endpoint: "recipe/recipe_labour", PrimaryKey: "id", Columns: []Column{
		required(integer("recipe_id")), integer("labourer_id"), number("minutes"),
	}},
	{Endpoint: "recipe/sub_recipe", PrimaryKey: "id", Columns: []Column{
		required(integer("recipe_id")), integer("sub_recipe_id"), number("quantity"),
	}},
	{Endpoint: "labour/labourer", PrimaryKey: "labourer_id", Columns: []Column{
		required(text("labourer_name")), number("hourly_rate"), integer("currency_id"),
	}},
	{Endpoint: "production/log", PrimaryKey: "id", Columns: []Column{
		integer("recipe_id"), integer("production_type_id"), number("quantity"),
		text("produced_on"), text("notes"),
	}},
	{Endpoint: "invoice/invoice", PrimaryKey: "invoice_id", Columns: []Column{
		integer("supplier_id"), required(text("invoice_number")), text("invoice_date"),
		number("total"), integer("currency_id"), text("status"),
	}},
	{Endpoint: "invoice/invoice_line", PrimaryKey: "id", Columns: []Column{
		required(integer("invoice_id")), integer("buyable_id"), text("description"),
		number("quantity"), number("unit_price"),
	}},
}

// Lookup returns the table served at endpoint.
func Lookup(endpoint string) (Table, bool) {
	for _, t := range Tables {
		if t.Endpoint == endpoint {
			return t, true
		}
	}
	return Table{}, false
}

// ValidationError reports a request value that does not fit the table.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// normalize checks values against t and converts them to the Go types the
// SQLite driver stores. Primary key values are ignored.
func (t Table) normalize(values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for name, v := range values {
		if name == t.PrimaryKey {
			continue
		}
		col, ok := t.Column(name)
		if !ok {
			return nil, &ValidationError{Field: name, Reason: "unknown field"}
		}
		converted, err := convert(col, v)
		if err != nil {
			return nil, err
		}
		out[name] = converted
	}
	return out, nil
}

func convert(col Column, v any) (any, error) {
	if v == nil {
		if col.Required {
			return nil, &ValidationError{Field: col.Name, Reason: "required"}
		}
		return nil, nil
	}
	switch col.Kind {
	case KindText:
		s, ok := v.(string)
		if !ok {
			return nil, &ValidationError{Field: col.Name, Reason: "must be a string"}
		}
		if col.Required && strings.TrimSpace(s) == "" {
			return nil, &ValidationError{Field: col.Name, Reason: "required"}
		}
		return s, nil
	case KindInt:
		f, ok := v.(float64)
		if !ok || f != float64(int64(f)) {
			return nil, &ValidationError{Field: col.Name, Reason: "must be an integer"}
		}
		if f == 0 {
			if col.Required {
				return nil, &ValidationError{Field: col.Name, Reason: "required"}
			}
			// Zero references nothing.
			return nil, nil
		}
		return int64(f), nil
	case KindReal:
		f, ok := v.(float64)
		if !ok {
			return nil, &ValidationError{Field: col.Name, Reason: "must be a number"}
		}
		return f, nil
	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, &ValidationError{Field: col.Name, Reason: "must be a boolean"}
		}
		return b, nil
	}
	return nil, &ValidationError{Field: col.Name, Reason: "unsupported column"}
}

// sortedKeys returns the keys of m in a stable order so generated SQL is
// deterministic.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
