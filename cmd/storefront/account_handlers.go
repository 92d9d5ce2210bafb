package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abbashop/storefront/internal/account"
	"github.com/abbashop/storefront/internal/httpx"
	"github.com/abbashop/storefront/internal/session"
)

// RegisterRequest is the signup payload.
// swagger:model RegisterRequest
type RegisterRequest struct {
	Username string `json:"username" binding:"required" example:"ada"`
	Email    string `json:"email" binding:"required,email" example:"ada@example.com"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest is the login payload.
// swagger:model LoginRequest
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest carries the editable profile fields.
// swagger:model UpdateProfileRequest
type UpdateProfileRequest struct {
	AvatarURL string `json:"avatar_url" binding:"required,url"`
}

// registerHandler creates the account with the signup bonus and opens a session.
func registerHandler(d *deps) gin.HandlerFunc {
	bonus, err := decimal.NewFromString(d.cfg.SignupBonus)
	if err != nil {
		bonus = decimal.Zero
	}
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "username, email and password are required")
			return
		}
		hash, err := account.HashPassword(req.Password)
		if err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not create account")
			return
		}
		u := &account.User{
			ID:           uuid.NewString(),
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: hash,
			Balance:      bonus,
		}
		if err := d.accounts.Create(c.Request.Context(), u); err != nil {
			if errors.Is(err, account.ErrAlreadyExists) {
				httpx.Error(c, http.StatusBadRequest, "username or email already taken")
				return
			}
			httpx.Error(c, http.StatusInternalServerError, "could not create account")
			return
		}
		token, err := d.sessions.Create(c.Request.Context(), u.ID)
		if err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not open session")
			return
		}
		d.sessions.SetCookie(c, token)
		c.JSON(http.StatusCreated, gin.H{"user": u})
	}
}

func loginHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "username and password are required")
			return
		}
		u, err := d.accounts.GetByUsername(c.Request.Context(), req.Username)
		if err != nil || !account.CheckPassword(u.PasswordHash, req.Password) {
			httpx.Error(c, http.StatusUnauthorized, "invalid username or password")
			return
		}
		_ = d.accounts.TouchLastLogin(c.Request.Context(), u.ID)
		token, err := d.sessions.Create(c.Request.Context(), u.ID)
		if err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not open session")
			return
		}
		d.sessions.SetCookie(c, token)
		c.JSON(http.StatusOK, gin.H{"user": u})
	}
}

// meHandler always reflects the durable account row, never session state.
func meHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := d.accounts.GetByID(c.Request.Context(), session.UserID(c))
		if err != nil {
			d.sessions.ClearCookie(c)
			httpx.Error(c, http.StatusUnauthorized, "account no longer exists")
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": u})
	}
}

func updateMeHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Error(c, http.StatusBadRequest, "avatar_url must be a valid URL")
			return
		}
		userID := session.UserID(c)
		if err := d.accounts.UpdateAvatar(c.Request.Context(), userID, req.AvatarURL); err != nil {
			if errors.Is(err, account.ErrNotFound) {
				httpx.Error(c, http.StatusUnauthorized, "account no longer exists")
				return
			}
			httpx.Error(c, http.StatusInternalServerError, "could not update profile")
			return
		}
		u, err := d.accounts.GetByID(c.Request.Context(), userID)
		if err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not load account")
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": u})
	}
}

func logoutHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(d.sessions.CookieName()); err == nil && token != "" {
			_ = d.sessions.Destroy(c.Request.Context(), token)
		}
		d.sessions.ClearCookie(c)
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}
