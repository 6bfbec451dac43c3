package domain

type Customer struct {
	ID             string  `db:"id" json:"id"`
	Name           string  `db:"name" json:"name"`
	Email          string  `db:"email" json:"email,omitempty"`
	Phone          string  `db:"phone" json:"phone,omitempty"`
	Address        string  `db:"address" json:"address,omitempty"`
	TotalPurchases float64 `db:"total_purchases" json:"totalPurchases"`
	CreatedAt      string  `db:"created_at" json:"createdAt"`
}
