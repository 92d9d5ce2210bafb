package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/abbashop/storefront/internal/account"
	"github.com/abbashop/storefront/internal/catalog"
	"github.com/abbashop/storefront/internal/httpx"
	"github.com/abbashop/storefront/internal/session"
)

// CreditBalanceRequest credits a user's balance with a decimal amount.
// swagger:model CreditBalanceRequest
type CreditBalanceRequest struct {
	Amount string `json:"amount" binding:"required" example:"50.00"`
}

// ResetPasswordRequest sets a new password for a user.
// swagger:model ResetPasswordRequest
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

func adminListUsersHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := d.accounts.List(c.Request.Context())
		if err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not list users")
			return
		}
		if users == nil {
			users = []account.User{}
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	}
}

func adminUserDetailHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		u, err := d.accounts.GetByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, account.ErrNotFound) {
				httpx.Error(c, http.StatusNotFound, "user not found")
				return
			}
			httpx.Error(c, http.StatusInternalServerError, "could not load user")
			return
		}
		stats, err := d.accounts.GetStats(c.Request.Context(), id)
		if err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not load user stats")
			return
		}
		recent, err := d.orders.History(c.Request.Context(), id)
		if err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not load user orders")
			return
		}
		if len(recent) > 5 {
			recent = recent[:5]
		}
		c.JSON(http.StatusOK, gin.H{"user": u, "stats": stats, "recent_orders": recent})
	}
}

func adminCreditBalanceHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreditBalanceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "amount is required")
			return
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil || !amount.IsPositive() {
			httpx.Error(c, http.StatusBadRequest, "amount must be a positive decimal")
			return
		}
		newBalance, err := d.accounts.CreditBalance(c.Request.Context(), c.Param("id"), amount)
		if err != nil {
			if errors.Is(err, account.ErrNotFound) {
				httpx.Error(c, http.StatusNotFound, "user not found")
				return
			}
			httpx.Error(c, http.StatusInternalServerError, "could not credit balance")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":     "balance credited",
			"new_balance": newBalance,
			"operation": gin.H{
				"admin_id": session.UserID(c),
				"amount":   amount,
			},
		})
	}
}

func adminMakeAdminHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := d.accounts.SetAdmin(c.Request.Context(), c.Param("id"), true)
		if err != nil {
			if errors.Is(err, account.ErrNotFound) {
				httpx.Error(c, http.StatusNotFound, "user not found")
				return
			}
			httpx.Error(c, http.StatusInternalServerError, "could not update role")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "user promoted to admin"})
	}
}

func adminResetPasswordHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "new_password of at least 6 characters is required")
			return
		}
		hash, err := account.HashPassword(req.NewPassword)
		if err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not reset password")
			return
		}
		if err := d.accounts.UpdatePasswordHash(c.Request.Context(), c.Param("id"), hash); err != nil {
			if errors.Is(err, account.ErrNotFound) {
				httpx.Error(c, http.StatusNotFound, "user not found")
				return
			}
			httpx.Error(c, http.StatusInternalServerError, "could not reset password")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "password reset"})
	}
}

// adminListItemsHandler includes hidden items, unlike the public catalog.
func adminListItemsHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := d.items.ListAll(c.Request.Context())
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

func adminItemDetailHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		it, err := d.items.GetByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				httpx.Error(c, http.StatusNotFound, "item not found")
				return
			}
			httpx.Error(c, http.StatusInternalServerError, "could not load item")
			return
		}
		stats, err := d.items.SalesStats(c.Request.Context(), id)
		if err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not load item stats")
			return
		}
		c.JSON(http.StatusOK, gin.H{"item": it, "stats": stats})
	}
}

// adminCreateItemHandler creates a system item (no owner).
func adminCreateItemHandler(d *deps) gin.HandlerFunc {
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
		it, err := d.lifecycle.Create(c.Request.Context(), nil, catalog.CreateInput{
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

func adminUpdateItemHandler(d *deps) gin.HandlerFunc {
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
		it, err := d.lifecycle.Update(c.Request.Context(), session.UserID(c), true, c.Param("id"), in)
		if err != nil {
			catalogError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"item": it})
	}
}

// adminDeleteItemHandler follows the same soft-hide rule as seller deletes:
// items referenced by order history are hidden, never destroyed.
func adminDeleteItemHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		outcome, err := d.lifecycle.Delete(c.Request.Context(), session.UserID(c), true, c.Param("id"))
		if err != nil {
			catalogError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"outcome": outcome.String()})
	}
}

func adminStatsHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		users, err := d.accounts.List(ctx)
		if err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not compute stats")
			return
		}
		items, err := d.items.ListAll(ctx)
		if err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not compute stats")
			return
		}
		orderCount, revenue, err := d.orders.Totals(ctx)
		if err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not compute stats")
			return
		}
		recentOrders, err := d.orders.Recent(ctx, 5)
		if err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not compute stats")
			return
		}

		admins := 0
		for _, u := range users {
			if u.IsAdmin {
				admins++
			}
		}
		avg := decimal.Zero
		if orderCount > 0 {
			avg = revenue.DivRound(decimal.NewFromInt(int64(orderCount)), 2)
		}
		recentUsers := users
		if len(recentUsers) > 5 {
			recentUsers = recentUsers[:5]
		}

		c.JSON(http.StatusOK, gin.H{
			"stats": gin.H{
				"total_users":         len(users),
				"total_items":         len(items),
				"total_orders":        orderCount,
				"total_revenue":       revenue,
				"active_admins":       admins,
				"average_order_value": avg,
			},
			"recent_users":  recentUsers,
			"recent_orders": recentOrders,
		})
	}
}
