package domain

// Payment methods accepted on a bill.
const (
	PaymentCash = "cash"
	PaymentCard = "card"
	PaymentUPI  = "upi"
)

// ValidPaymentMethod reports whether m is one of the accepted methods.
func ValidPaymentMethod(m string) bool {
	return m == PaymentCash || m == PaymentCard || m == PaymentUPI
}

type Bill struct {
	ID            string     `db:"id" json:"id"`
	CustomerID    *string    `db:"customer_id" json:"customerId,omitempty"`
	TotalAmount   float64    `db:"total_amount" json:"totalAmount"`
	Discount      float64    `db:"discount" json:"discount"`
	GST           float64    `db:"gst" json:"gst"`
	FinalAmount   float64    `db:"final_amount" json:"finalAmount"`
	PaymentMethod string     `db:"payment_method" json:"paymentMethod"`
	CreatedAt     string     `db:"created_at" json:"createdAt"`
	Items         []BillItem `json:"items"`
}

// BillItem is one line of a bill. Price is the unit price at the time of sale.
type BillItem struct {
	ID       int64   `db:"id" json:"-"`
	BillID   string  `db:"bill_id" json:"-"`
	ItemID   string  `db:"item_id" json:"itemId"`
	Quantity int64   `db:"quantity" json:"quantity"`
	Price    float64 `db:"price" json:"price"`
}
