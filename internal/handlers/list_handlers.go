package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vitrineshop/storefront/internal/metrics"
	"github.com/vitrineshop/storefront/internal/middleware"
	"github.com/vitrineshop/storefront/internal/requestcache"
)

const (
	sessionCookie = "storefront_session"
	cacheCookie   = "storefront_cache"
	cookieMaxAge  = 60 * 60 * 24 * 7
)

// ListProducts returns the published base products, restricted and ordered
// by the session's cached filter/sorting/limit configuration for the
// requested module.
func (h *Handlers) ListProducts(c *gin.Context) {
	h.ensureSession(c)

	moduleID, _ := strconv.ParseInt(c.DefaultQuery("module", "1"), 10, 64)
	cache, err := h.loadCache(c)
	if err != nil {
		log.Printf("Failed to load request cache: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cache"})
		return
	}

	moduleIDs := []int64{moduleID}
	products, err := h.Products.List(
		middleware.Viewer(c),
		cache.FiltersForModules(moduleIDs),
		cache.SortingsForModules(moduleIDs),
		cache.FirstLimitForModules(moduleIDs, 0),
	)
	if err != nil {
		log.Printf("Product listing failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cacheId":  cache.ID,
		"products": products,
	})
}

// FilterInput updates the listing configuration of one module.
type FilterInput struct {
	Module   int64                          `json:"module" binding:"required,gt=0"`
	Filters  map[string]requestcache.Filter `json:"filters"`
	Sortings requestcache.SortingList       `json:"sortings"`
	Limit    int                            `json:"limit" binding:"gte=0"`
}

// UpdateFilters stores a module's filter/sorting/limit configuration in the
// request cache. The cache never updates in place: the new configuration is
// interned, so a row shared with other sessions keeps its history and
// identical configurations share one row.
func (h *Handlers) UpdateFilters(c *gin.Context) {
	h.ensureSession(c)

	var input FilterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cache, err := h.loadCache(c)
	if err != nil {
		log.Printf("Failed to load request cache: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cache"})
		return
	}

	if len(input.Filters) > 0 {
		cache.SetFiltersForModule(input.Filters, input.Module)
	} else {
		cache.UnsetFiltersForModule(input.Module)
	}
	if len(input.Sortings) > 0 {
		cache.SetSortingsForModule(input.Sortings, input.Module)
	} else {
		cache.UnsetSortingsForModule(input.Module)
	}
	if input.Limit > 0 {
		cache.SetLimitForModule(requestcache.LimitTo(input.Limit), input.Module)
	} else {
		cache.UnsetLimitForModule(input.Module)
	}

	previousID := cache.ID
	saved, err := requestcache.SaveNewConfiguration(h.Cache, cache)
	if err != nil {
		log.Printf("Failed to intern request cache: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save cache"})
		return
	}

	if saved.ID == previousID {
		metrics.RecordCacheIntern("reused")
	} else {
		metrics.RecordCacheIntern("created")
	}

	c.SetCookie(cacheCookie, strconv.FormatInt(saved.ID, 10), cookieMaxAge, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"cacheId": saved.ID})
}

// PurgeCache truncates the request cache table.
func (h *Handlers) PurgeCache(c *gin.Context) {
	if err := h.Cache.Purge(); err != nil {
		log.Printf("Failed to purge request cache: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to purge cache"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Request cache purged"})
}

// ensureSession gives every visitor a stable session cookie.
func (h *Handlers) ensureSession(c *gin.Context) {
	if _, err := c.Cookie(sessionCookie); err == nil {
		return
	}
	c.SetCookie(sessionCookie, uuid.NewString(), cookieMaxAge, "/", "", false, true)
}

func (h *Handlers) loadCache(c *gin.Context) (*requestcache.Cache, error) {
	var cacheID int64
	if raw, err := c.Cookie(cacheCookie); err == nil {
		cacheID, _ = strconv.ParseInt(raw, 10, 64)
	}
	return requestcache.Load(h.Cache, cacheID, h.StoreID)
}
