package models

// CartItem is a single purchasable line in a cart. Price is in whole rupees;
// paise only appear once an amount is handed to the payment gateway.
type CartItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Price     int    `json:"price" validate:"gte=0"`
	Image     string `json:"image"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

// CartSnapshot is a read-only view of a cart handed to subscribers and HTTP
// responses. Totals are computed from the items at snapshot time, never
// stored alongside them.
type CartSnapshot struct {
	Items      []CartItem `json:"items"`
	TotalItems int        `json:"total_items"`
	TotalPrice int        `json:"total_price"`
}

// CartRecord is the durable form of a cart: one row per namespace key,
// items serialized as JSON.
type CartRecord struct {
	Key   string `gorm:"primaryKey;type:varchar(128)"`
	Value string `gorm:"type:text"`
}
