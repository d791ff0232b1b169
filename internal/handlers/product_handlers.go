package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vitrineshop/storefront/internal/catalog"
	"github.com/vitrineshop/storefront/internal/metrics"
	"github.com/vitrineshop/storefront/internal/middleware"
	"github.com/vitrineshop/storefront/internal/render"
)

// ShowProduct renders a product detail. Variant preselection comes from the
// query string (e.g. ?color=blue) or from a collection item being edited.
// The same handler serves POST submissions of the product form; validation
// errors are attached per widget and the submission is flagged rejected.
func (h *Handlers) ShowProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	product, err := h.Products.FindProduct(id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		log.Printf("Failed to load product %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load product"})
		return
	}

	result, err := h.Render.Generate(product, middleware.Viewer(c), ginRequest{c}, h.renderConfig(c))
	if err != nil {
		log.Printf("Failed to render product %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render product"})
		return
	}

	metrics.RecordRender(result.MatchKind, result.Rejected)

	status := http.StatusOK
	if result.Rejected {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

// renderConfig builds the per-module render configuration from the request.
func (h *Handlers) renderConfig(c *gin.Context) render.Config {
	moduleID, _ := strconv.ParseInt(c.DefaultQuery("module", "1"), 10, 64)
	if moduleID <= 0 {
		moduleID = 1
	}

	return render.Config{
		ModuleID:    moduleID,
		ModuleType:  "fmd",
		Template:    c.DefaultQuery("template", "product_detail"),
		Buttons:     h.Buttons,
		UseQuantity: true,
		JumpTo:      "/product",
	}
}
