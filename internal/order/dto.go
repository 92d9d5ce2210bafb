package order

// CreateOrderLine is one cart line in a commit request.
// swagger:model CreateOrderLine
type CreateOrderLine struct {
	ItemID   string `json:"item_id" binding:"required" example:"4e7d4e5c-5cb9-4a3f-9f21-7e1a4f9f2b2a"`
	Quantity int    `json:"quantity" binding:"required,gt=0" example:"2"`
}

// CreateOrderRequest is the commit payload. The account comes from the
// session, never from the body.
// swagger:model CreateOrderRequest
type CreateOrderRequest struct {
	Items []CreateOrderLine `json:"items"`
}
