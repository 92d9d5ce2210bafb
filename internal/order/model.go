package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

type Order struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Total       decimal.Decimal `json:"total"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Line is one order line. Price is captured at commit time, so later catalog
// price changes never touch history.
type Line struct {
	ID       string          `json:"id"`
	OrderID  string          `json:"order_id"`
	ItemID   string          `json:"item_id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// LineRequest is one (item, quantity) pair submitted for commit.
type LineRequest struct {
	ItemID   string
	Quantity int
}

// Receipt reports a successful commit back to the caller.
type Receipt struct {
	OrderID   string          `json:"order_id"`
	Total     decimal.Decimal `json:"total"`
	Status    Status          `json:"status"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	LineCount int             `json:"line_count"`
}

// HistoryLine is an order line joined with catalog display fields.
type HistoryLine struct {
	ItemID   string          `json:"item_id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Rarity   string          `json:"rarity"`
}

// Summary is one order in a user's history listing.
type Summary struct {
	ID         string          `json:"id"`
	Total      decimal.Decimal `json:"total"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	ItemsCount int             `json:"items_count"`
	Items      []HistoryLine   `json:"items"`
}

// DetailLine extends HistoryLine with the remaining catalog fields and the
// per-line total.
type DetailLine struct {
	HistoryLine
	Description string          `json:"description,omitempty"`
	ItemCode    string          `json:"item_code"`
	ImageURL    string          `json:"image_url,omitempty"`
	Total       decimal.Decimal `json:"total"`
}

// Detail is the full view of one order.
type Detail struct {
	ID          string          `json:"id"`
	Total       decimal.Decimal `json:"total"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	ItemsCount  int             `json:"items_count"`
	Items       []DetailLine    `json:"items"`
}

// AdminSummary is one order in the admin dashboard feed.
type AdminSummary struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	Total     decimal.Decimal `json:"total"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}
