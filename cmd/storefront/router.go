package main

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/abbashop/storefront/internal/account"
	"github.com/abbashop/storefront/internal/cart"
	"github.com/abbashop/storefront/internal/catalog"
	"github.com/abbashop/storefront/internal/config"
	"github.com/abbashop/storefront/internal/httpx"
	"github.com/abbashop/storefront/internal/order"
	"github.com/abbashop/storefront/internal/session"
)

type deps struct {
	log      *slog.Logger
	cfg      *config.Config
	sessions *session.Store
	accounts account.Repository
	items    catalog.Repository
	carts    cart.Repository
	orders   order.Repository
	lifecycle *catalog.Service
	engine    *order.Engine
}

func newRouter(d *deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(d.log))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")

	acct := api.Group("/account")
	{
		acct.POST("/register", registerHandler(d))
		acct.POST("/login", loginHandler(d))
		acct.POST("/logout", logoutHandler(d))
		acct.GET("/me", d.sessions.RequireUser(), meHandler(d))
		acct.PUT("/me", d.sessions.RequireUser(), updateMeHandler(d))
	}

	api.GET("/catalog", listCatalogHandler(d))
	api.GET("/catalog/:id", getCatalogItemHandler(d))

	my := api.Group("/my/items", d.sessions.RequireUser())
	{
		my.GET("", listMyItemsHandler(d))
		my.POST("", createMyItemHandler(d))
		my.GET("/stats", myItemStatsHandler(d))
		my.PUT("/:id", updateMyItemHandler(d))
		my.DELETE("/:id", deleteMyItemHandler(d))
	}

	ct := api.Group("/cart", d.sessions.RequireUser())
	{
		ct.GET("", listCartHandler(d))
		ct.POST("", addToCartHandler(d))
		ct.PUT("/:itemId", setCartQuantityHandler(d))
		ct.DELETE("/:itemId", removeFromCartHandler(d))
		ct.DELETE("", clearCartHandler(d))
	}

	ord := api.Group("/orders", d.sessions.RequireUser())
	{
		ord.POST("", createOrderHandler(d))
		ord.GET("", listOrdersHandler(d))
		ord.GET("/:id", getOrderHandler(d))
	}

	admin := api.Group("/admin", d.sessions.RequireAdmin(d.accounts))
	{
		admin.GET("/users", adminListUsersHandler(d))
		admin.GET("/users/:id", adminUserDetailHandler(d))
		admin.POST("/users/:id/balance", adminCreditBalanceHandler(d))
		admin.POST("/users/:id/make-admin", adminMakeAdminHandler(d))
		admin.POST("/users/:id/reset-password", adminResetPasswordHandler(d))
		admin.GET("/items", adminListItemsHandler(d))
		admin.GET("/items/:id", adminItemDetailHandler(d))
		admin.POST("/items", adminCreateItemHandler(d))
		admin.PUT("/items/:id", adminUpdateItemHandler(d))
		admin.DELETE("/items/:id", adminDeleteItemHandler(d))
		admin.GET("/stats", adminStatsHandler(d))
	}

	return r
}
