package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS tag_types (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS tags (
    id      INTEGER PRIMARY KEY,
    name    TEXT NOT NULL UNIQUE,
    type_id INTEGER REFERENCES tag_types(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS storage_locations (
    id        INTEGER PRIMARY KEY,
    name      TEXT NOT NULL,
    parent_id INTEGER REFERENCES storage_locations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_storage_locations_parent
    ON storage_locations(parent_id, name);

CREATE TABLE IF NOT EXISTS overviews (
    id                  INTEGER PRIMARY KEY,
    name                TEXT NOT NULL UNIQUE,
    slug                TEXT NOT NULL UNIQUE,
    description         TEXT NOT NULL DEFAULT '',
    icon                TEXT NOT NULL DEFAULT '',
    ord                 INTEGER NOT NULL DEFAULT 0,
    is_active           INTEGER NOT NULL DEFAULT 1,
    show_quantity       INTEGER NOT NULL DEFAULT 1,
    has_locations       INTEGER NOT NULL DEFAULT 1,
    has_min_stock       INTEGER NOT NULL DEFAULT 0,
    enable_borrow       INTEGER NOT NULL DEFAULT 0,
    is_consumable_mode  INTEGER NOT NULL DEFAULT 0,
    require_qr          INTEGER NOT NULL DEFAULT 0,
    enable_quick_adjust INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_overviews_active_ord
    ON overviews(is_active, ord);

CREATE TABLE IF NOT EXISTS overview_categories (
    overview_id INTEGER NOT NULL REFERENCES overviews(id) ON DELETE CASCADE,
    category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
    PRIMARY KEY (overview_id, category_id)
);

CREATE TABLE IF NOT EXISTS user_overviews (
    user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    overview_id INTEGER NOT NULL REFERENCES overviews(id) ON DELETE CASCADE,
    PRIMARY KEY (user_id, overview_id)
);

CREATE TABLE IF NOT EXISTS items (
    id                  INTEGER PRIMARY KEY,
    name                TEXT NOT NULL,
    description         TEXT NOT NULL DEFAULT '',
    quantity            INTEGER NOT NULL DEFAULT 0,
    item_type           TEXT NOT NULL DEFAULT 'equipment' CHECK (item_type IN ('equipment', 'consumable')),
    category_id         INTEGER REFERENCES categories(id) ON DELETE SET NULL,
    overview_id         INTEGER REFERENCES overviews(id),
    storage_location_id INTEGER REFERENCES storage_locations(id) ON DELETE SET NULL,
    location_letter     TEXT NOT NULL DEFAULT '',
    location_number     TEXT NOT NULL DEFAULT '',
    location_shelf      TEXT NOT NULL DEFAULT '',
    low_quantity        INTEGER NOT NULL DEFAULT 3,
    order_link          TEXT NOT NULL DEFAULT '',
    maintenance_date    TEXT NOT NULL DEFAULT '',
    barcode             TEXT NOT NULL UNIQUE,
    nfc_token           TEXT NOT NULL UNIQUE,
    is_active           INTEGER NOT NULL DEFAULT 1,
    created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_overview ON items(overview_id, is_active);
CREATE INDEX IF NOT EXISTS idx_items_name ON items(name);

CREATE TABLE IF NOT EXISTS item_tags (
    item_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    tag_id  INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    PRIMARY KEY (item_id, tag_id)
);

CREATE TABLE IF NOT EXISTS borrow_records (
    id          INTEGER PRIMARY KEY,
    item_id     INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    borrower    TEXT NOT NULL,
    quantity    INTEGER NOT NULL CHECK (quantity > 0),
    returned    INTEGER NOT NULL DEFAULT 0,
    borrowed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    returned_at DATETIME,
    return_date TEXT NOT NULL DEFAULT '',
    comment     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_borrow_records_item
    ON borrow_records(item_id, returned);

CREATE TABLE IF NOT EXISTS history (
    id          INTEGER PRIMARY KEY,
    item_id     INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    user_id     INTEGER REFERENCES users(id) ON DELETE SET NULL,
    action      TEXT NOT NULL CHECK (action IN
        ('created', 'updated', 'movement', 'quantity_adjusted', 'borrowed', 'returned', 'rollback')),
    changes     TEXT NOT NULL DEFAULT '[]',
    data_before TEXT,
    data_after  TEXT,
    meta        TEXT NOT NULL DEFAULT '{}',
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_history_item ON history(item_id, created_at);
CREATE INDEX IF NOT EXISTS idx_history_action ON history(action, created_at);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
