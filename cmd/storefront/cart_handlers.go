package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abbashop/storefront/internal/cart"
	"github.com/abbashop/storefront/internal/catalog"
	"github.com/abbashop/storefront/internal/httpx"
	"github.com/abbashop/storefront/internal/session"
)

// AddToCartRequest adds quantity of one item to the caller's cart.
// swagger:model AddToCartRequest
type AddToCartRequest struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// SetCartQuantityRequest replaces the stored quantity for one cart line.
// swagger:model SetCartQuantityRequest
type SetCartQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

func listCartHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := d.carts.List(c.Request.Context(), session.UserID(c))
		if err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not list cart")
			return
		}
		if entries == nil {
			entries = []cart.Entry{}
		}
		c.JSON(http.StatusOK, gin.H{"items": entries})
	}
}

func addToCartHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddToCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "item_id and a positive quantity are required")
			return
		}
		it, err := d.items.GetByID(c.Request.Context(), req.ItemID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				httpx.Error(c, http.StatusNotFound, "item not found")
				return
			}
			httpx.Error(c, http.StatusInternalServerError, "could not add to cart")
			return
		}
		if it.Hidden {
			httpx.Error(c, http.StatusNotFound, "item not found")
			return
		}
		if err := d.carts.Add(c.Request.Context(), session.UserID(c), req.ItemID, req.Quantity); err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not add to cart")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "added to cart"})
	}
}

func setCartQuantityHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SetCartQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "a positive quantity is required")
			return
		}
		err := d.carts.SetQuantity(c.Request.Context(), session.UserID(c), c.Param("itemId"), req.Quantity)
		if err != nil {
			if errors.Is(err, cart.ErrNotFound) {
				httpx.Error(c, http.StatusNotFound, "cart entry not found")
				return
			}
			httpx.Error(c, http.StatusInternalServerError, "could not update cart")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "cart updated"})
	}
}

func removeFromCartHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := d.carts.Remove(c.Request.Context(), session.UserID(c), c.Param("itemId"))
		if err != nil {
			if errors.Is(err, cart.ErrNotFound) {
				httpx.Error(c, http.StatusNotFound, "cart entry not found")
				return
			}
			httpx.Error(c, http.StatusInternalServerError, "could not update cart")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "removed from cart"})
	}
}

func clearCartHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := d.carts.Clear(c.Request.Context(), session.UserID(c)); err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not clear cart")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
	}
}
