package seed

import (
	"encoding/csv"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// LoadItems ingests a product catalog CSV into the items table, ignoring
// rows whose barcode is already present. Expected columns:
// name, description, category, supplier, price, initial_quantity, barcode.
func LoadItems(db *sqlx.DB, csvPath string) {
	file, err := os.Open(csvPath)
	if err != nil {
		log.Printf("unable to load item catalog %s: %v", csvPath, err)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Skip header
	if _, err := reader.Read(); err != nil {
		log.Printf("unable to read item catalog header: %v", err)
		return
	}

	tx, err := db.Beginx()
	if err != nil {
		log.Printf("unable to start item seed transaction: %v", err)
		return
	}
	stmt, err := tx.Preparex(`INSERT OR IGNORE INTO items
		(id, name, description, category, supplier, price, initial_quantity, sold_quantity, barcode)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`)
	if err != nil {
		log.Printf("unable to prepare item insert: %v", err)
		_ = tx.Rollback()
		return
	}
	defer stmt.Close()

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("unable to read item row: %v", err)
			continue
		}
		if len(record) < 7 {
			continue
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
		if err != nil || price < 0 {
			log.Printf("skipping item %s: bad price %q", name, record[4])
			continue
		}
		qty, err := strconv.ParseInt(strings.TrimSpace(record[5]), 10, 64)
		if err != nil || qty < 0 {
			qty = 0
		}
		var barcode *string
		if b := strings.TrimSpace(record[6]); b != "" {
			barcode = &b
		}

		if _, err := stmt.Exec(uuid.NewString(), name, strings.TrimSpace(record[1]),
			strings.TrimSpace(record[2]), strings.TrimSpace(record[3]), price, qty, barcode); err != nil {
			log.Printf("unable to insert item %s: %v", name, err)
		} else {
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("unable to commit item seed: %v", err)
	} else {
		log.Printf("seeded item catalog with %d rows", rows)
	}
}
