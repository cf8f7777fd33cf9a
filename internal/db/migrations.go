package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: usernames are unique among active users only, so a
	// removed account's name can be reused.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
	     ON users(username) WHERE deleted_at IS NULL`,
	// Migration 2: recipe and invoice lines are always listed by parent.
	`CREATE INDEX IF NOT EXISTS idx_recipe_ingredient_recipe ON recipe_recipe_ingredient(recipe_id)`,
	`CREATE INDEX IF NOT EXISTS idx_recipe_labour_recipe ON recipe_recipe_labour(recipe_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sub_recipe_recipe ON recipe_sub_recipe(recipe_id)`,
	`CREATE INDEX IF NOT EXISTS idx_invoice_line_invoice ON invoice_invoice_line(invoice_id)`,
}

// Migrate creates the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
