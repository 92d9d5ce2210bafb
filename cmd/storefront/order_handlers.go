package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abbashop/storefront/internal/httpx"
	"github.com/abbashop/storefront/internal/order"
	"github.com/abbashop/storefront/internal/session"
)

// orderError maps the commit taxonomy onto HTTP. Stock, funds and retry
// exhaustion are all 409: the request was well-formed but the shared state
// would not allow it.
func orderError(c *gin.Context, err error) {
	var (
		itemNotFound *order.ItemNotFoundError
		noStock      *order.InsufficientStockError
		noFunds      *order.InsufficientFundsError
	)
	switch {
	case errors.Is(err, order.ErrEmptyCart), errors.Is(err, order.ErrInvalidLine):
		httpx.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrAccountNotFound):
		httpx.Error(c, http.StatusUnauthorized, "account not found")
	case errors.As(err, &itemNotFound):
		httpx.Error(c, http.StatusBadRequest, itemNotFound.Error())
	case errors.As(err, &noStock):
		httpx.Error(c, http.StatusConflict, noStock.Error())
	case errors.As(err, &noFunds):
		httpx.Error(c, http.StatusConflict, noFunds.Error())
	case errors.Is(err, order.ErrConflict):
		httpx.Error(c, http.StatusConflict, err.Error())
	default:
		httpx.Error(c, http.StatusInternalServerError, "order could not be processed")
	}
}

// createOrderHandler commits the submitted cart as one atomic unit and clears
// the stored cart on success.
func createOrderHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "items must carry an item_id and a positive quantity")
			return
		}
		reqs := make([]order.LineRequest, 0, len(req.Items))
		for _, it := range req.Items {
			reqs = append(reqs, order.LineRequest{ItemID: it.ItemID, Quantity: it.Quantity})
		}

		userID := session.UserID(c)
		receipt, err := d.engine.Commit(c.Request.Context(), userID, reqs)
		if err != nil {
			orderError(c, err)
			return
		}
		// Best effort: the order is durable either way.
		_ = d.carts.Clear(c.Request.Context(), userID)

		c.JSON(http.StatusCreated, gin.H{
			"message": "order placed",
			"balance": receipt.Balance,
			"order": gin.H{
				"id":          receipt.OrderID,
				"total":       receipt.Total,
				"status":      receipt.Status,
				"created_at":  receipt.CreatedAt,
				"items_count": receipt.LineCount,
			},
		})
	}
}

func listOrdersHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := d.orders.History(c.Request.Context(), session.UserID(c))
		if err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not list orders")
			return
		}
		if orders == nil {
			orders = []order.Summary{}
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}

func getOrderHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		detail, err := d.orders.Detail(c.Request.Context(), session.UserID(c), c.Param("id"))
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				httpx.Error(c, http.StatusNotFound, "order not found")
				return
			}
			httpx.Error(c, http.StatusInternalServerError, "could not load order")
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}
