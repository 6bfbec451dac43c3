// Package billing owns customer and bill records. Bill creation is a single
// transactional command: every line reserves stock through the ledger's
// guarded sell update, so a bill either records the whole sale or nothing.
package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"smartstock/m/domain"
	"smartstock/m/internal/ledger"
	"smartstock/m/internal/servererrors"
)

const customerColumns = `id, name, email, phone, address, total_purchases, created_at`

// Store provides customer and bill persistence.
type Store struct {
	db     *sqlx.DB
	ledger *ledger.Ledger
}

// New constructs a Store. The ledger handle is used to reserve stock when
// bills are created.
func New(db *sqlx.DB, l *ledger.Ledger) *Store {
	return &Store{db: db, ledger: l}
}

// Customers

// CustomerParams carries the fields accepted when creating a customer.
type CustomerParams struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// CreateCustomer validates and persists a new customer.
func (s *Store) CreateCustomer(ctx context.Context, p CustomerParams) (domain.Customer, error) {
	if strings.TrimSpace(p.Name) == "" {
		return domain.Customer{}, servererrors.NewValidation("name is required")
	}
	c := domain.Customer{
		ID:        uuid.NewString(),
		Name:      p.Name,
		Email:     p.Email,
		Phone:     p.Phone,
		Address:   p.Address,
		CreatedAt: now(),
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO customers
		(id, name, email, phone, address, total_purchases, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.CreatedAt)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	return c, nil
}

// CustomerUpdate carries a partial customer update. Nil fields are left
// untouched. TotalPurchases is settable here because no ledger operation
// maintains it automatically.
type CustomerUpdate struct {
	Name           *string  `json:"name"`
	Email          *string  `json:"email"`
	Phone          *string  `json:"phone"`
	Address        *string  `json:"address"`
	TotalPurchases *float64 `json:"totalPurchases"`
}

// UpdateCustomer applies only the fields present in upd.
func (s *Store) UpdateCustomer(ctx context.Context, id string, upd CustomerUpdate) (domain.Customer, error) {
	c, err := s.GetCustomer(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if upd.Name != nil {
		if strings.TrimSpace(*upd.Name) == "" {
			return domain.Customer{}, servererrors.NewValidation("name must not be empty")
		}
		c.Name = *upd.Name
	}
	if upd.Email != nil {
		c.Email = *upd.Email
	}
	if upd.Phone != nil {
		c.Phone = *upd.Phone
	}
	if upd.Address != nil {
		c.Address = *upd.Address
	}
	if upd.TotalPurchases != nil {
		if *upd.TotalPurchases < 0 {
			return domain.Customer{}, servererrors.NewValidation("totalPurchases must not be negative")
		}
		c.TotalPurchases = *upd.TotalPurchases
	}
	_, err = s.db.ExecContext(ctx, `UPDATE customers SET
		name = ?, email = ?, phone = ?, address = ?, total_purchases = ? WHERE id = ?`,
		c.Name, c.Email, c.Phone, c.Address, c.TotalPurchases, id)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	return c, nil
}

// DeleteCustomer removes a customer. Bills keep their customer reference.
func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &servererrors.NotFoundError{Resource: "customer"}
	}
	return nil
}

// GetCustomer loads one customer by id.
func (s *Store) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	var c domain.Customer
	err := s.db.GetContext(ctx, &c, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, &servererrors.NotFoundError{Resource: "customer"}
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("load customer: %w", err)
	}
	return c, nil
}

// ListCustomers returns all customers.
func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	customers := []domain.Customer{}
	if err := s.db.SelectContext(ctx, &customers, `SELECT `+customerColumns+` FROM customers ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

// Bills

// BillLineParams is one requested line. Price is optional; when omitted the
// item's current price is recorded as the price at sale.
type BillLineParams struct {
	ItemID   string   `json:"itemId"`
	Quantity int64    `json:"quantity"`
	Price    *float64 `json:"price"`
}

// CreateBillParams carries a bill creation request. FinalAmount, when
// present, is checked against total - discount + gst.
type CreateBillParams struct {
	CustomerID    *string          `json:"customerId"`
	Items         []BillLineParams `json:"items"`
	Discount      float64          `json:"discount"`
	GST           float64          `json:"gst"`
	FinalAmount   *float64         `json:"finalAmount"`
	PaymentMethod string           `json:"paymentMethod"`
}

// CreateBill records a sale. Stock for every line is reserved through the
// ledger inside one transaction; any line with an unknown item or
// insufficient stock fails the whole bill.
func (s *Store) CreateBill(ctx context.Context, p CreateBillParams) (domain.Bill, error) {
	if len(p.Items) == 0 {
		return domain.Bill{}, servererrors.NewValidation("no items in bill")
	}
	method := p.PaymentMethod
	if method == "" {
		method = domain.PaymentCash
	}
	if !domain.ValidPaymentMethod(method) {
		return domain.Bill{}, servererrors.NewValidation("paymentMethod must be cash, card or upi")
	}
	if p.Discount < 0 || p.GST < 0 {
		return domain.Bill{}, servererrors.NewValidation("discount and gst must not be negative")
	}
	if p.CustomerID != nil {
		if _, err := s.GetCustomer(ctx, *p.CustomerID); err != nil {
			return domain.Bill{}, err
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Bill{}, fmt.Errorf("begin bill: %w", err)
	}
	defer tx.Rollback()

	bill := domain.Bill{
		ID:            uuid.NewString(),
		CustomerID:    p.CustomerID,
		Discount:      p.Discount,
		GST:           p.GST,
		PaymentMethod: method,
		CreatedAt:     now(),
	}

	for _, line := range p.Items {
		if line.ItemID == "" {
			return domain.Bill{}, servererrors.NewValidation("item reference is required on every line")
		}
		var item domain.Item
		err := tx.GetContext(ctx, &item, `SELECT id, price FROM items WHERE id = ?`, line.ItemID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Bill{}, &servererrors.NotFoundError{Resource: "item"}
		}
		if err != nil {
			return domain.Bill{}, fmt.Errorf("load bill item: %w", err)
		}

		if _, err := s.ledger.SellInTx(ctx, tx, line.ItemID, line.Quantity); err != nil {
			return domain.Bill{}, err
		}

		price := item.Price
		if line.Price != nil {
			if *line.Price < 0 {
				return domain.Bill{}, servererrors.NewValidation("price must not be negative")
			}
			price = *line.Price
		}
		bill.Items = append(bill.Items, domain.BillItem{
			BillID:   bill.ID,
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
			Price:    price,
		})
		bill.TotalAmount += price * float64(line.Quantity)
	}

	bill.FinalAmount = bill.TotalAmount - bill.Discount + bill.GST
	if p.FinalAmount != nil && math.Abs(*p.FinalAmount-bill.FinalAmount) > 0.01 {
		return domain.Bill{}, servererrors.NewValidation(
			"finalAmount must equal totalAmount - discount + gst (expected %.2f)", bill.FinalAmount)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO bills
		(id, customer_id, total_amount, discount, gst, final_amount, payment_method, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.ID, bill.CustomerID, bill.TotalAmount, bill.Discount, bill.GST,
		bill.FinalAmount, bill.PaymentMethod, bill.CreatedAt)
	if err != nil {
		return domain.Bill{}, fmt.Errorf("insert bill: %w", err)
	}
	for _, line := range bill.Items {
		_, err = tx.ExecContext(ctx, `INSERT INTO bill_items (bill_id, item_id, quantity, price) VALUES (?, ?, ?, ?)`,
			line.BillID, line.ItemID, line.Quantity, line.Price)
		if err != nil {
			return domain.Bill{}, fmt.Errorf("insert bill line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Bill{}, fmt.Errorf("commit bill: %w", err)
	}
	return bill, nil
}

// GetBill loads one bill with its lines.
func (s *Store) GetBill(ctx context.Context, id string) (domain.Bill, error) {
	var bill domain.Bill
	err := s.db.GetContext(ctx, &bill,
		`SELECT id, customer_id, total_amount, discount, gst, final_amount, payment_method, created_at FROM bills WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bill{}, &servererrors.NotFoundError{Resource: "bill"}
	}
	if err != nil {
		return domain.Bill{}, fmt.Errorf("load bill: %w", err)
	}
	bill.Items = []domain.BillItem{}
	if err := s.db.SelectContext(ctx, &bill.Items,
		`SELECT id, bill_id, item_id, quantity, price FROM bill_items WHERE bill_id = ? ORDER BY id`, id); err != nil {
		return domain.Bill{}, fmt.Errorf("load bill lines: %w", err)
	}
	return bill, nil
}

// ListBills returns all bills, newest first, with their lines attached.
func (s *Store) ListBills(ctx context.Context) ([]domain.Bill, error) {
	bills := []domain.Bill{}
	err := s.db.SelectContext(ctx, &bills,
		`SELECT id, customer_id, total_amount, discount, gst, final_amount, payment_method, created_at FROM bills ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	if len(bills) == 0 {
		return bills, nil
	}

	ids := make([]string, len(bills))
	for i, b := range bills {
		ids[i] = b.ID
	}
	query, args, err := sqlx.In(`SELECT id, bill_id, item_id, quantity, price FROM bill_items WHERE bill_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("prepare bill lines query: %w", err)
	}
	query = s.db.Rebind(query)

	var lines []domain.BillItem
	if err := s.db.SelectContext(ctx, &lines, query, args...); err != nil {
		return nil, fmt.Errorf("load bill lines: %w", err)
	}
	linesByBill := make(map[string][]domain.BillItem)
	for _, line := range lines {
		linesByBill[line.BillID] = append(linesByBill[line.BillID], line)
	}
	for i := range bills {
		items := linesByBill[bills[i].ID]
		if items == nil {
			items = []domain.BillItem{}
		}
		bills[i].Items = items
	}
	return bills, nil
}

func now() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}
