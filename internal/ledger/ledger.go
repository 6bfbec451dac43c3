// Package ledger owns item records and the quantity-adjustment protocol.
// Remaining stock is always derived as initial_quantity - sold_quantity and
// must never go negative after an accepted operation.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"smartstock/m/domain"
	"smartstock/m/internal/servererrors"
)

const itemColumns = `id, name, description, category, supplier, price,
	initial_quantity, sold_quantity, reorder_threshold, barcode, colors, sizes,
	created_at, updated_at`

// Ledger is the item store plus its quantity-mutation operations.
type Ledger struct {
	db *sqlx.DB
}

// New constructs a Ledger over an open database handle.
func New(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

// CreateItemParams carries the fields accepted when adding an item. Price is
// a pointer so a missing price can be told apart from a free item.
type CreateItemParams struct {
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	Category         string            `json:"category"`
	Supplier         string            `json:"supplier"`
	Price            *float64          `json:"price"`
	InitialQuantity  int64             `json:"initialQuantity"`
	SoldQuantity     int64             `json:"soldQuantity"`
	ReorderThreshold *int64            `json:"reorderThreshold"`
	Barcode          *string           `json:"barcode"`
	Colors           domain.StringList `json:"colors"`
	Sizes            domain.StringList `json:"sizes"`
}

// CreateItem validates and persists a new item, returning it with its
// assigned identifier.
func (l *Ledger) CreateItem(ctx context.Context, p CreateItemParams) (domain.Item, error) {
	if strings.TrimSpace(p.Name) == "" {
		return domain.Item{}, servererrors.NewValidation("name is required")
	}
	if p.Price == nil {
		return domain.Item{}, servererrors.NewValidation("price is required")
	}
	if *p.Price < 0 {
		return domain.Item{}, servererrors.NewValidation("price must not be negative")
	}
	if p.InitialQuantity < 0 || p.SoldQuantity < 0 {
		return domain.Item{}, servererrors.NewValidation("quantities must not be negative")
	}
	if p.SoldQuantity > p.InitialQuantity {
		return domain.Item{}, servererrors.NewValidation("soldQuantity must not exceed initialQuantity")
	}

	barcode := normalizeBarcode(p.Barcode)
	if barcode != nil {
		taken, err := l.barcodeTaken(ctx, *barcode, "")
		if err != nil {
			return domain.Item{}, err
		}
		if taken {
			return domain.Item{}, servererrors.NewValidation("barcode %q already exists", *barcode)
		}
	}

	threshold := int64(2)
	if p.ReorderThreshold != nil {
		threshold = *p.ReorderThreshold
	}

	item := domain.Item{
		ID:               uuid.NewString(),
		Name:             p.Name,
		Description:      p.Description,
		Category:         p.Category,
		Supplier:         p.Supplier,
		Price:            *p.Price,
		InitialQuantity:  p.InitialQuantity,
		SoldQuantity:     p.SoldQuantity,
		ReorderThreshold: threshold,
		Barcode:          barcode,
		Colors:           p.Colors,
		Sizes:            p.Sizes,
		CreatedAt:        now(),
		UpdatedAt:        now(),
	}

	_, err := l.db.ExecContext(ctx, `INSERT INTO items
		(id, name, description, category, supplier, price, initial_quantity, sold_quantity, reorder_threshold, barcode, colors, sizes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Description, item.Category, item.Supplier, item.Price,
		item.InitialQuantity, item.SoldQuantity, item.ReorderThreshold, item.Barcode,
		item.Colors, item.Sizes, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return domain.Item{}, servererrors.NewValidation("barcode already exists")
		}
		return domain.Item{}, fmt.Errorf("insert item: %w", err)
	}
	return item, nil
}

// ItemUpdate carries a partial update. Nil fields are left untouched, which
// also covers explicit JSON nulls.
type ItemUpdate struct {
	Name             *string            `json:"name"`
	Description      *string            `json:"description"`
	Category         *string            `json:"category"`
	Supplier         *string            `json:"supplier"`
	Price            *float64           `json:"price"`
	InitialQuantity  *int64             `json:"initialQuantity"`
	SoldQuantity     *int64             `json:"soldQuantity"`
	ReorderThreshold *int64             `json:"reorderThreshold"`
	Barcode          *string            `json:"barcode"`
	Colors           *domain.StringList `json:"colors"`
	Sizes            *domain.StringList `json:"sizes"`
}

// UpdateItem applies only the fields present in upd and returns the updated
// item. Edits that would leave remaining quantity negative are rejected.
func (l *Ledger) UpdateItem(ctx context.Context, id string, upd ItemUpdate) (domain.Item, error) {
	item, err := l.GetItem(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}

	if upd.Name != nil {
		if strings.TrimSpace(*upd.Name) == "" {
			return domain.Item{}, servererrors.NewValidation("name must not be empty")
		}
		item.Name = *upd.Name
	}
	if upd.Description != nil {
		item.Description = *upd.Description
	}
	if upd.Category != nil {
		item.Category = *upd.Category
	}
	if upd.Supplier != nil {
		item.Supplier = *upd.Supplier
	}
	if upd.Price != nil {
		if *upd.Price < 0 {
			return domain.Item{}, servererrors.NewValidation("price must not be negative")
		}
		item.Price = *upd.Price
	}
	if upd.InitialQuantity != nil {
		item.InitialQuantity = *upd.InitialQuantity
	}
	if upd.SoldQuantity != nil {
		item.SoldQuantity = *upd.SoldQuantity
	}
	if item.InitialQuantity < 0 || item.SoldQuantity < 0 || item.RemainingQuantity() < 0 {
		return domain.Item{}, servererrors.NewValidation("quantities would leave remaining stock negative")
	}
	if upd.ReorderThreshold != nil {
		item.ReorderThreshold = *upd.ReorderThreshold
	}
	if upd.Barcode != nil {
		barcode := normalizeBarcode(upd.Barcode)
		if barcode != nil {
			taken, err := l.barcodeTaken(ctx, *barcode, id)
			if err != nil {
				return domain.Item{}, err
			}
			if taken {
				return domain.Item{}, servererrors.NewValidation("barcode %q already exists", *barcode)
			}
		}
		item.Barcode = barcode
	}
	if upd.Colors != nil {
		item.Colors = *upd.Colors
	}
	if upd.Sizes != nil {
		item.Sizes = *upd.Sizes
	}
	item.UpdatedAt = now()

	_, err = l.db.ExecContext(ctx, `UPDATE items SET
		name = ?, description = ?, category = ?, supplier = ?, price = ?,
		initial_quantity = ?, sold_quantity = ?, reorder_threshold = ?,
		barcode = ?, colors = ?, sizes = ?, updated_at = ?
		WHERE id = ?`,
		item.Name, item.Description, item.Category, item.Supplier, item.Price,
		item.InitialQuantity, item.SoldQuantity, item.ReorderThreshold,
		item.Barcode, item.Colors, item.Sizes, item.UpdatedAt, id)
	if err != nil {
		return domain.Item{}, fmt.Errorf("update item: %w", err)
	}
	return item, nil
}

// Receive adds amount to the cumulative stocked quantity. No upper bound.
func (l *Ledger) Receive(ctx context.Context, id string, amount int64) (domain.Item, error) {
	if amount <= 0 {
		return domain.Item{}, servererrors.NewValidation("Amount must be positive")
	}
	res, err := l.db.ExecContext(ctx,
		`UPDATE items SET initial_quantity = initial_quantity + ?, updated_at = ? WHERE id = ?`,
		amount, now(), id)
	if err != nil {
		return domain.Item{}, fmt.Errorf("receive stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Item{}, err
	}
	if affected == 0 {
		return domain.Item{}, &servererrors.NotFoundError{Resource: "item"}
	}
	return l.GetItem(ctx, id)
}

// Sell adds amount to the cumulative sold quantity. The stock guard and the
// increment are a single statement inside one transaction, so concurrent
// sells against the same item cannot oversell.
func (l *Ledger) Sell(ctx context.Context, id string, amount int64) (domain.Item, error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Item{}, fmt.Errorf("begin sell: %w", err)
	}
	defer tx.Rollback()

	item, err := l.SellInTx(ctx, tx, id, amount)
	if err != nil {
		return domain.Item{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Item{}, fmt.Errorf("commit sell: %w", err)
	}
	return item, nil
}

// SellInTx runs the guarded sell update inside the caller's transaction. The
// billing store uses this to reserve stock atomically with bill creation.
func (l *Ledger) SellInTx(ctx context.Context, tx *sqlx.Tx, id string, amount int64) (domain.Item, error) {
	if amount <= 0 {
		return domain.Item{}, servererrors.NewValidation("Amount must be positive")
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE items SET sold_quantity = sold_quantity + ?, updated_at = ?
		 WHERE id = ? AND initial_quantity - sold_quantity >= ?`,
		amount, now(), id, amount)
	if err != nil {
		return domain.Item{}, fmt.Errorf("sell stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Item{}, err
	}
	if affected == 0 {
		// Either the item is missing or the guard refused the sale.
		var item domain.Item
		err := tx.GetContext(ctx, &item, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, &servererrors.NotFoundError{Resource: "item"}
		}
		if err != nil {
			return domain.Item{}, fmt.Errorf("load item: %w", err)
		}
		return domain.Item{}, &servererrors.InsufficientStockError{
			ItemID:    id,
			Requested: amount,
			Remaining: item.RemainingQuantity(),
		}
	}

	var item domain.Item
	if err := tx.GetContext(ctx, &item, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id); err != nil {
		return domain.Item{}, fmt.Errorf("load item: %w", err)
	}
	return item, nil
}

// DeleteItem removes an item unconditionally. Bills referencing it are left
// alone.
func (l *Ledger) DeleteItem(ctx context.Context, id string) error {
	res, err := l.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &servererrors.NotFoundError{Resource: "item"}
	}
	return nil
}

// GetItem loads one item by id.
func (l *Ledger) GetItem(ctx context.Context, id string) (domain.Item, error) {
	var item domain.Item
	err := l.db.GetContext(ctx, &item, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, &servererrors.NotFoundError{Resource: "item"}
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("load item: %w", err)
	}
	return item, nil
}

// GetItemByBarcode loads one item by its barcode.
func (l *Ledger) GetItemByBarcode(ctx context.Context, barcode string) (domain.Item, error) {
	var item domain.Item
	err := l.db.GetContext(ctx, &item, `SELECT `+itemColumns+` FROM items WHERE barcode = ?`, barcode)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, &servererrors.NotFoundError{Resource: "item"}
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("load item by barcode: %w", err)
	}
	return item, nil
}

// ListItems returns all items. Filtering is a presentation concern.
func (l *Ledger) ListItems(ctx context.Context) ([]domain.Item, error) {
	items := []domain.Item{}
	if err := l.db.SelectContext(ctx, &items, `SELECT `+itemColumns+` FROM items ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (l *Ledger) barcodeTaken(ctx context.Context, barcode, excludeID string) (bool, error) {
	var exists bool
	err := l.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM items WHERE barcode = ? AND id != ?)`, barcode, excludeID)
	if err != nil {
		return false, fmt.Errorf("check barcode: %w", err)
	}
	return exists, nil
}

func normalizeBarcode(b *string) *string {
	if b == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*b)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func now() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}
