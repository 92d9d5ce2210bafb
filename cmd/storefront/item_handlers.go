package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/abbashop/storefront/internal/catalog"
	"github.com/abbashop/storefront/internal/httpx"
	"github.com/abbashop/storefront/internal/session"
)

// CreateItemRequest is the seller item payload. Price travels as a decimal
// string to keep exact cents.
// swagger:model CreateItemRequest
type CreateItemRequest struct {
	Name        string `json:"name" binding:"required" example:"Mechanical Keyboard"`
	Description string `json:"description" example:"RGB 60%"`
	ItemCode    string `json:"item_code" binding:"required" example:"KB-RGB-60"`
	Price       string `json:"price" binding:"required" example:"199.90"`
	Quantity    int    `json:"quantity" binding:"gte=0" example:"10"`
	ImageURL    string `json:"image_url"`
	Rarity      string `json:"rarity" example:"Rare"`
	Category    string `json:"category" example:"Peripherals"`
}

// UpdateItemRequest carries the partial update; absent fields stay unchanged.
// swagger:model UpdateItemRequest
type UpdateItemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ItemCode    *string `json:"item_code"`
	Price       *string `json:"price"`
	Quantity    *int    `json:"quantity"`
	ImageURL    *string `json:"image_url"`
	Rarity      *string `json:"rarity"`
	Category    *string `json:"category"`
	Hidden      *bool   `json:"hidden"`
}

func (r *UpdateItemRequest) toInput() (catalog.UpdateInput, error) {
	in := catalog.UpdateInput{
		Name:        r.Name,
		Description: r.Description,
		ItemCode:    r.ItemCode,
		Quantity:    r.Quantity,
		ImageURL:    r.ImageURL,
		Rarity:      r.Rarity,
		Category:    r.Category,
		Hidden:      r.Hidden,
	}
	if r.Price != nil {
		p, err := decimal.NewFromString(*r.Price)
		if err != nil {
			return in, err
		}
		in.Price = &p
	}
	return in, nil
}

func catalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		httpx.Error(c, http.StatusNotFound, "item not found")
	case errors.Is(err, catalog.ErrCodeTaken):
		httpx.Error(c, http.StatusBadRequest, "item code already exists")
	case errors.Is(err, catalog.ErrInvalid):
		httpx.Error(c, http.StatusBadRequest, err.Error())
	default:
		httpx.Error(c, http.StatusInternalServerError, "catalog operation failed")
	}
}

func listMyItemsHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := d.items.ListByOwner(c.Request.Context(), session.UserID(c))
		if err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not list items")
			return
		}
		if items == nil {
			items = []catalog.Item{}
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func createMyItemHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "name, item code and price are required")
			return
		}
		price, err := decimal.NewFromString(req.Price)
		if err != nil {
			httpx.Error(c, http.StatusBadRequest, "price must be a decimal amount")
			return
		}
		owner := session.UserID(c)
		it, err := d.lifecycle.Create(c.Request.Context(), &owner, catalog.CreateInput{
			Name:        req.Name,
			Description: req.Description,
			ItemCode:    req.ItemCode,
			Price:       price,
			Quantity:    req.Quantity,
			ImageURL:    req.ImageURL,
			Rarity:      req.Rarity,
			Category:    req.Category,
		})
		if err != nil {
			catalogError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"item": it})
	}
}

func updateMyItemHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "invalid payload")
			return
		}
		in, err := req.toInput()
		if err != nil {
			httpx.Error(c, http.StatusBadRequest, "price must be a decimal amount")
			return
		}
		it, err := d.lifecycle.Update(c.Request.Context(), session.UserID(c), false, c.Param("id"), in)
		if err != nil {
			catalogError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"item": it})
	}
}

// deleteMyItemHandler reports whether the item was hidden (still referenced by
// order history) or fully removed.
func deleteMyItemHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		outcome, err := d.lifecycle.Delete(c.Request.Context(), session.UserID(c), false, c.Param("id"))
		if err != nil {
			catalogError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"outcome": outcome.String()})
	}
}

func myItemStatsHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := d.items.OwnerStats(c.Request.Context(), session.UserID(c))
		if err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not compute stats")
			return
		}
		c.JSON(http.StatusOK, gin.H{"stats": stats})
	}
}
