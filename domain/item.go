package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// StringList stores a list of descriptive tags as a JSON text column.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringList) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("unsupported type for StringList")
	}
}

// Item is the ledger's unit of account. RemainingQuantity is always derived,
// never stored.
type Item struct {
	ID               string     `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	Description      string     `db:"description" json:"description"`
	Category         string     `db:"category" json:"category"`
	Supplier         string     `db:"supplier" json:"supplier"`
	Price            float64    `db:"price" json:"price"`
	InitialQuantity  int64      `db:"initial_quantity" json:"initialQuantity"`
	SoldQuantity     int64      `db:"sold_quantity" json:"soldQuantity"`
	ReorderThreshold int64      `db:"reorder_threshold" json:"reorderThreshold"`
	Barcode          *string    `db:"barcode" json:"barcode,omitempty"`
	Colors           StringList `db:"colors" json:"colors"`
	Sizes            StringList `db:"sizes" json:"sizes"`
	CreatedAt        string     `db:"created_at" json:"createdAt"`
	UpdatedAt        string     `db:"updated_at" json:"updatedAt"`
}

// RemainingQuantity is the live sellable stock.
func (i Item) RemainingQuantity() int64 {
	return i.InitialQuantity - i.SoldQuantity
}

// MarshalJSON includes the derived remainingQuantity field so clients never
// compute it themselves.
func (i Item) MarshalJSON() ([]byte, error) {
	type alias Item
	return json.Marshal(struct {
		alias
		RemainingQuantity int64 `json:"remainingQuantity"`
	}{alias(i), i.RemainingQuantity()})
}
