package migrations

import (
	"log"

	"github.com/jmoiron/sqlx"
)

// Run creates the database schema required for the inventory backend.
func Run(db *sqlx.DB) {
	if err := Apply(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
}

// Apply executes the schema statements and returns the first error.
func Apply(db *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			supplier TEXT NOT NULL DEFAULT '',
			price REAL NOT NULL,
			initial_quantity INTEGER NOT NULL DEFAULT 0,
			sold_quantity INTEGER NOT NULL DEFAULT 0,
			reorder_threshold INTEGER NOT NULL DEFAULT 2,
			barcode TEXT,
			colors TEXT NOT NULL DEFAULT '[]',
			sizes TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_items_barcode ON items(barcode) WHERE barcode IS NOT NULL;`,
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			total_purchases REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS bills (
			id TEXT PRIMARY KEY,
			customer_id TEXT REFERENCES customers(id),
			total_amount REAL NOT NULL,
			discount REAL NOT NULL DEFAULT 0,
			gst REAL NOT NULL DEFAULT 0,
			final_amount REAL NOT NULL,
			payment_method TEXT NOT NULL DEFAULT 'cash',
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS bill_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bill_id TEXT NOT NULL REFERENCES bills(id),
			item_id TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			price REAL NOT NULL
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
