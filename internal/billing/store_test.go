package billing

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/jmoiron/sqlx"

	"smartstock/m/domain"
	"smartstock/m/internal/database"
	"smartstock/m/internal/ledger"
	"smartstock/m/internal/migrations"
	"smartstock/m/internal/servererrors"
)

func newTestStore(t *testing.T) (*Store, *ledger.Ledger, *sqlx.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Apply(db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	l := ledger.New(db)
	return New(db, l), l, db
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string { return &v }

func createStockedItem(t *testing.T, l *ledger.Ledger, name string, price float64, initial int64) domain.Item {
	t.Helper()
	item, err := l.CreateItem(context.Background(), ledger.CreateItemParams{
		Name:            name,
		Price:           floatPtr(price),
		InitialQuantity: initial,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	return item
}

func TestCustomerLifecycle(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateCustomer(ctx, CustomerParams{Name: "  "})
	var validation *servererrors.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("blank name: want ValidationError, got %v", err)
	}

	c, err := s.CreateCustomer(ctx, CustomerParams{Name: "Asha", Email: "asha@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == "" || c.TotalPurchases != 0 {
		t.Fatalf("unexpected customer: %+v", c)
	}

	got, err := s.UpdateCustomer(ctx, c.ID, CustomerUpdate{Phone: strPtr("12345")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Phone != "12345" || got.Email != "asha@example.com" {
		t.Fatalf("partial update broke fields: %+v", got)
	}

	if err := s.DeleteCustomer(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var notFound *servererrors.NotFoundError
	if err := s.DeleteCustomer(ctx, c.ID); !errors.As(err, &notFound) {
		t.Fatalf("repeat delete: want NotFoundError, got %v", err)
	}
	if _, err := s.GetCustomer(ctx, c.ID); !errors.As(err, &notFound) {
		t.Fatalf("get after delete: want NotFoundError, got %v", err)
	}
}

func TestCreateBillReservesStock(t *testing.T) {
	s, l, _ := newTestStore(t)
	ctx := context.Background()

	shirt := createStockedItem(t, l, "Shirt", 20, 10)
	capItem := createStockedItem(t, l, "Cap", 5, 4)

	bill, err := s.CreateBill(ctx, CreateBillParams{
		Items: []BillLineParams{
			{ItemID: shirt.ID, Quantity: 2},
			{ItemID: capItem.ID, Quantity: 1, Price: floatPtr(4.5)},
		},
		Discount: 3,
		GST:      2,
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}

	if bill.TotalAmount != 2*20+4.5 {
		t.Fatalf("total: %.2f", bill.TotalAmount)
	}
	want := bill.TotalAmount - 3 + 2
	if math.Abs(bill.FinalAmount-want) > 1e-9 {
		t.Fatalf("final: %.2f, want %.2f", bill.FinalAmount, want)
	}
	if bill.PaymentMethod != domain.PaymentCash {
		t.Fatalf("default payment method: %s", bill.PaymentMethod)
	}

	gotShirt, _ := l.GetItem(ctx, shirt.ID)
	gotCap, _ := l.GetItem(ctx, capItem.ID)
	if gotShirt.SoldQuantity != 2 || gotCap.SoldQuantity != 1 {
		t.Fatalf("stock not reserved: shirt sold=%d cap sold=%d", gotShirt.SoldQuantity, gotCap.SoldQuantity)
	}
}

func TestCreateBillInsufficientStockRollsBack(t *testing.T) {
	s, l, db := newTestStore(t)
	ctx := context.Background()

	shirt := createStockedItem(t, l, "Shirt", 20, 10)
	capItem := createStockedItem(t, l, "Cap", 5, 1)

	_, err := s.CreateBill(ctx, CreateBillParams{
		Items: []BillLineParams{
			{ItemID: shirt.ID, Quantity: 2},
			{ItemID: capItem.ID, Quantity: 5},
		},
	})
	var insufficient *servererrors.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}

	// The shirt line ran first inside the transaction; it must be undone.
	gotShirt, _ := l.GetItem(ctx, shirt.ID)
	if gotShirt.SoldQuantity != 0 {
		t.Fatalf("rolled-back bill changed stock: sold=%d", gotShirt.SoldQuantity)
	}
	var count int
	if err := db.Get(&count, `SELECT COUNT(*) FROM bills`); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("bill persisted despite rollback: %d rows", count)
	}
}

func TestCreateBillUnknownItem(t *testing.T) {
	s, _, _ := newTestStore(t)
	_, err := s.CreateBill(context.Background(), CreateBillParams{
		Items: []BillLineParams{{ItemID: "ghost", Quantity: 1}},
	})
	var notFound *servererrors.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
}

func TestCreateBillValidation(t *testing.T) {
	s, l, _ := newTestStore(t)
	ctx := context.Background()
	item := createStockedItem(t, l, "Shirt", 20, 10)

	var validation *servererrors.ValidationError

	if _, err := s.CreateBill(ctx, CreateBillParams{}); !errors.As(err, &validation) {
		t.Fatalf("empty items: want ValidationError, got %v", err)
	}
	_, err := s.CreateBill(ctx, CreateBillParams{
		Items:         []BillLineParams{{ItemID: item.ID, Quantity: 1}},
		PaymentMethod: "cheque",
	})
	if !errors.As(err, &validation) {
		t.Fatalf("bad payment method: want ValidationError, got %v", err)
	}
	_, err = s.CreateBill(ctx, CreateBillParams{
		Items:       []BillLineParams{{ItemID: item.ID, Quantity: 1}},
		FinalAmount: floatPtr(999),
	})
	if !errors.As(err, &validation) {
		t.Fatalf("final amount mismatch: want ValidationError, got %v", err)
	}

	// Rejected bills must not reserve stock.
	got, _ := l.GetItem(ctx, item.ID)
	if got.SoldQuantity != 0 {
		t.Fatalf("rejected bills changed stock: sold=%d", got.SoldQuantity)
	}
}

func TestCreateBillAcceptsMatchingFinalAmount(t *testing.T) {
	s, l, _ := newTestStore(t)
	item := createStockedItem(t, l, "Shirt", 10, 5)

	bill, err := s.CreateBill(context.Background(), CreateBillParams{
		Items:       []BillLineParams{{ItemID: item.ID, Quantity: 2}},
		Discount:    5,
		GST:         1,
		FinalAmount: floatPtr(16), // 20 - 5 + 1
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	if bill.FinalAmount != 16 {
		t.Fatalf("final: %.2f", bill.FinalAmount)
	}
}

func TestCreateBillUnknownCustomer(t *testing.T) {
	s, l, _ := newTestStore(t)
	item := createStockedItem(t, l, "Shirt", 10, 5)

	_, err := s.CreateBill(context.Background(), CreateBillParams{
		CustomerID: strPtr("ghost"),
		Items:      []BillLineParams{{ItemID: item.ID, Quantity: 1}},
	})
	var notFound *servererrors.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
}

func TestGetAndListBills(t *testing.T) {
	s, l, _ := newTestStore(t)
	ctx := context.Background()
	item := createStockedItem(t, l, "Shirt", 10, 20)

	first, err := s.CreateBill(ctx, CreateBillParams{
		Items: []BillLineParams{{ItemID: item.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.CreateBill(ctx, CreateBillParams{
		Items: []BillLineParams{{ItemID: item.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.GetBill(ctx, first.ID)
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].ItemID != item.ID {
		t.Fatalf("bill lines: %+v", got.Items)
	}

	bills, err := s.ListBills(ctx)
	if err != nil {
		t.Fatalf("list bills: %v", err)
	}
	if len(bills) != 2 {
		t.Fatalf("want 2 bills, got %d", len(bills))
	}
	for _, b := range bills {
		if len(b.Items) == 0 {
			t.Fatalf("bill %s listed without lines", b.ID)
		}
	}

	var notFound *servererrors.NotFoundError
	if _, err := s.GetBill(ctx, "ghost"); !errors.As(err, &notFound) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
}
