package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a catalog entry. OwnerID is nil for system items. Hidden items stay
// out of listings but keep their row so order history stays intact.
type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	ItemCode    string          `json:"item_code"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	ImageURL    string          `json:"image_url,omitempty"`
	Rarity      string          `json:"rarity"`
	Category    string          `json:"category"`
	OwnerID     *string         `json:"owner_id,omitempty"`
	Hidden      bool            `json:"hidden"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// OwnerStats summarizes one owner's items.
type OwnerStats struct {
	TotalItems    int             `json:"total_items"`
	TotalQuantity int             `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
	OutOfStock    int             `json:"out_of_stock"`
}

// SalesStats summarizes an item's order history for the admin detail view.
type SalesStats struct {
	InCartsCount  int             `json:"in_carts_count"`
	InOrdersCount int             `json:"in_orders_count"`
	TotalSold     int             `json:"total_sold"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}
