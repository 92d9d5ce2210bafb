package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/abbashop/storefront/internal/catalog"
	"github.com/abbashop/storefront/internal/httpx"
)

// listCatalogHandler serves the public catalog: hidden items excluded,
// optional search, paginated.
func listCatalogHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		q := catalog.Query{Q: c.Query("q"), Limit: limit, Offset: offset}

		items, err := d.items.List(c.Request.Context(), q)
		if err != nil {
			httpx.Error(c, http.StatusInternalServerError, "could not list catalog")
			return
		}
		if items == nil {
			items = []catalog.Item{}
		}
		c.JSON(http.StatusOK, gin.H{"q": q.Q, "limit": q.Limit, "offset": q.Offset, "items": items})
	}
}

func getCatalogItemHandler(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		it, err := d.items.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				httpx.Error(c, http.StatusNotFound, "item not found")
				return
			}
			httpx.Error(c, http.StatusInternalServerError, "could not load item")
			return
		}
		if it.Hidden {
			httpx.Error(c, http.StatusNotFound, "item not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"item": it})
	}
}
