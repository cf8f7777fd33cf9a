package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Table names are the API endpoint with
// the slash replaced by an underscore.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'baker' CHECK (role IN ('admin', 'manager', 'baker')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS buyable_currency (
    currency_id INTEGER PRIMARY KEY,
    code        TEXT NOT NULL,
    name        TEXT
);

CREATE TABLE IF NOT EXISTS buyable_unit (
    unit_id      INTEGER PRIMARY KEY,
    unit_name    TEXT NOT NULL,
    abbreviation TEXT
);

CREATE TABLE IF NOT EXISTS production_type (
    production_type_id INTEGER PRIMARY KEY,
    type_name          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS buyable_brand (
    brand_id   INTEGER PRIMARY KEY,
    brand_name TEXT NOT NULL,
    website    TEXT
);

CREATE TABLE IF NOT EXISTS buyable_supplier (
    supplier_id    INTEGER PRIMARY KEY,
    supplier_name  TEXT NOT NULL,
    account_number TEXT,
    contact_email  TEXT,
    phone          TEXT,
    notes          TEXT
);

CREATE TABLE IF NOT EXISTS buyable_buyable (
    buyable_id   INTEGER PRIMARY KEY,
    buyable_name TEXT NOT NULL,
    brand_id     INTEGER,
    supplier_id  INTEGER,
    unit_id      INTEGER,
    pack_size    REAL,
    price        REAL,
    currency_id  INTEGER,
    barcode      TEXT,
    image_url    TEXT,
    active       INTEGER NOT NULL DEFAULT 1,
    image        BLOB,
    image_mime   TEXT
);

CREATE TABLE IF NOT EXISTS recipe_ingredient (
    ingredient_id   INTEGER PRIMARY KEY,
    ingredient_name TEXT NOT NULL,
    buyable_id      INTEGER,
    unit_id         INTEGER,
    cost_per_unit   REAL,
    allergen        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS recipe_recipe (
    recipe_id          INTEGER PRIMARY KEY,
    recipe_name        TEXT NOT NULL,
    yield_quantity     REAL,
    yield_unit_id      INTEGER,
    production_type_id INTEGER,
    method             TEXT,
    active             INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS recipe_recipe_ingredient (
    id            INTEGER PRIMARY KEY,
    recipe_id     INTEGER NOT NULL,
    ingredient_id INTEGER,
    quantity      REAL,
    unit_id       INTEGER
);

CREATE TABLE IF NOT EXISTS recipe_recipe_labour (
    id          INTEGER PRIMARY KEY,
    recipe_id   INTEGER NOT NULL,
    labourer_id INTEGER,
    minutes     REAL
);

CREATE TABLE IF NOT EXISTS recipe_sub_recipe (
    id            INTEGER PRIMARY KEY,
    recipe_id     INTEGER NOT NULL,
    sub_recipe_id INTEGER,
    quantity      REAL
);

CREATE TABLE IF NOT EXISTS labour_labourer (
    labourer_id   INTEGER PRIMARY KEY,
    labourer_name TEXT NOT NULL,
    hourly_rate   REAL,
    currency_id   INTEGER
);

CREATE TABLE IF NOT EXISTS production_log (
    id                 INTEGER PRIMARY KEY,
    recipe_id          INTEGER,
    production_type_id INTEGER,
    quantity           REAL,
    produced_on        TEXT,
    notes              TEXT
);

CREATE TABLE IF NOT EXISTS invoice_invoice (
    invoice_id     INTEGER PRIMARY KEY,
    supplier_id    INTEGER,
    invoice_number TEXT NOT NULL,
    invoice_date   TEXT,
    total          REAL,
    currency_id    INTEGER,
    status         TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'reviewed', 'approved'))
);

CREATE TABLE IF NOT EXISTS invoice_invoice_line (
    id          INTEGER PRIMARY KEY,
    invoice_id  INTEGER NOT NULL,
    buyable_id  INTEGER,
    description TEXT,
    quantity    REAL,
    unit_price  REAL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
