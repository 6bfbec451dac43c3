package domain

// ReorderAlert is derived from live stock levels on demand and never
// persisted.
type ReorderAlert struct {
	ItemID                   string `json:"item_id"`
	ProductName              string `json:"product_name"`
	CurrentStock             int64  `json:"current_stock"`
	Threshold                int64  `json:"threshold"`
	DaysUntilReorder         int64  `json:"days_until_reorder"`
	RecommendedOrderQuantity int64  `json:"recommended_order_quantity"`
	RiskLevel                string `json:"risk_level"`
	AlertMessage             string `json:"alert_message"`
}
