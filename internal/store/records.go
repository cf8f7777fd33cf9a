package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Row is one record keyed by column name. NULL columns are nil.
type Row map[string]any

// ListRecords returns the rows of t whose columns equal filter, ordered by
// primary key.
func ListRecords(ctx context.Context, db *sql.DB, t Table, filter map[string]string) ([]Row, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s`, t.selectList(), t.Name())

	var (
		where []string
		args  []any
	)
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, name := range keys {
		v, err := t.parseFilter(name, filter[name])
		if err != nil {
			return nil, err
		}
		where = append(where, name+" = ?")
		args = append(args, v)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + t.PrimaryKey

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", t.Endpoint, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", t.Endpoint, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetRecord returns one row of t by primary key, or nil if it does not exist.
func GetRecord(ctx context.Context, db *sql.DB, t Table, id int64) (Row, error) {
	row, err := t.scan(db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`, t.selectList(), t.Name(), t.PrimaryKey), id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", t.Endpoint, err)
	}
	return row, nil
}

// CreateRecord inserts values into t and returns the stored row.
func CreateRecord(ctx context.Context, db *sql.DB, t Table, values map[string]any) (Row, error) {
	clean, err := t.normalize(values)
	if err != nil {
		return nil, err
	}
	for _, c := range t.Columns {
		if _, ok := clean[c.Name]; c.Required && !ok {
			return nil, &ValidationError{Field: c.Name, Reason: "required"}
		}
	}

	var result sql.Result
	if len(clean) == 0 {
		result, err = db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s DEFAULT VALUES`, t.Name()))
	} else {
		names := sortedKeys(clean)
		args := make([]any, len(names))
		for i, n := range names {
			args[i] = clean[n]
		}
		result, err = db.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
				t.Name(), strings.Join(names, ", "), placeholders(len(names))),
			args...,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", t.Endpoint, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting %s id: %w", t.Endpoint, err)
	}

	return GetRecord(ctx, db, t, id)
}

// UpdateRecord sets values on one row of t and returns the stored row, or nil
// if the row does not exist.
func UpdateRecord(ctx context.Context, db *sql.DB, t Table, id int64, values map[string]any) (Row, error) {
	clean, err := t.normalize(values)
	if err != nil {
		return nil, err
	}

	if len(clean) > 0 {
		names := sortedKeys(clean)
		sets := make([]string, len(names))
		args := make([]any, 0, len(names)+1)
		for i, n := range names {
			sets[i] = n + " = ?"
			args = append(args, clean[n])
		}
		args = append(args, id)

		_, err := db.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET %s WHERE %s = ?`, t.Name(), strings.Join(sets, ", "), t.PrimaryKey),
			args...,
		)
		if err != nil {
			return nil, fmt.Errorf("updating %s: %w", t.Endpoint, err)
		}
	}

	return GetRecord(ctx, db, t, id)
}

// DeleteRecord removes one row of t. It reports whether a row was removed.
func DeleteRecord(ctx context.Context, db *sql.DB, t Table, id int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, t.Name(), t.PrimaryKey), id,
	)
	if err != nil {
		return false, fmt.Errorf("deleting %s: %w", t.Endpoint, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting %s: %w", t.Endpoint, err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (t Table) scan(s scanner) (Row, error) {
	var id int64
	dest := make([]any, 0, len(t.Columns)+1)
	dest = append(dest, &id)
	for _, c := range t.Columns {
		switch c.Kind {
		case KindInt:
			dest = append(dest, new(sql.NullInt64))
		case KindReal:
			dest = append(dest, new(sql.NullFloat64))
		case KindBool:
			dest = append(dest, new(sql.NullBool))
		default:
			dest = append(dest, new(sql.NullString))
		}
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	row := Row{t.PrimaryKey: id}
	for i, c := range t.Columns {
		var v any
		switch d := dest[i+1].(type) {
		case *sql.NullInt64:
			if d.Valid {
				v = d.Int64
			}
		case *sql.NullFloat64:
			if d.Valid {
				v = d.Float64
			}
		case *sql.NullBool:
			if d.Valid {
				v = d.Bool
			}
		case *sql.NullString:
			if d.Valid {
				v = d.String
			}
		}
		row[c.Name] = v
	}
	return row, nil
}

func (t Table) parseFilter(name, raw string) (any, error) {
	if name == t.PrimaryKey {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &ValidationError{Field: name, Reason: "must be an integer"}
		}
		return id, nil
	}
	col, ok := t.Column(name)
	if !ok {
		return nil, &ValidationError{Field: name, Reason: "unknown field"}
	}
	switch col.Kind {
	case KindInt:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &ValidationError{Field: name, Reason: "must be an integer"}
		}
		return v, nil
	case KindReal:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &ValidationError{Field: name, Reason: "must be a number"}
		}
		return v, nil
	case KindBool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, &ValidationError{Field: name, Reason: "must be a boolean"}
		}
		return v, nil
	}
	return raw, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
