package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vitrineshop/storefront/internal/handlers"
	"github.com/vitrineshop/storefront/internal/metrics"
	"github.com/vitrineshop/storefront/internal/middleware"
)

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/v1")
	v1.Use(middleware.OptionalAuth())
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Product Routes ---
		v1.GET("/products", h.ListProducts)
		v1.POST("/products/filter", h.UpdateFilters)
		v1.GET("/products/:id", h.ShowProduct)
		v1.POST("/products/:id", h.ShowProduct)

		// --- Admin Routes (Login Required) ---
		admin := v1.Group("/")
		admin.Use(middleware.RequireAuth())
		{
			admin.DELETE("/cache", h.PurgeCache)
		}
	}

	return router
}
