package handlers

import (
	"database/sql"

	"github.com/gin-gonic/gin"

	"github.com/vitrineshop/storefront/internal/catalog"
	"github.com/vitrineshop/storefront/internal/render"
	"github.com/vitrineshop/storefront/internal/requestcache"
)

// Handlers holds all dependencies for the HTTP layer.
type Handlers struct {
	DB       *sql.DB
	Products *catalog.Store
	Render   *render.Orchestrator
	Cache    requestcache.Repository
	StoreID  int64
	Buttons  []string
}

// ginRequest adapts a gin context to the form/request accessor contract
// consumed by the render core.
type ginRequest struct {
	c *gin.Context
}

func (r ginRequest) PostedValue(name string) string { return r.c.PostForm(name) }
func (r ginRequest) Query(name string) string       { return r.c.Query(name) }

func (r ginRequest) QueryParams() map[string]string {
	params := make(map[string]string)
	for k, vs := range r.c.Request.URL.Query() {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	return params
}

// SubmittedForm returns the posted form identifier; widgets are only
// validated when it matches the product's own form ID.
func (r ginRequest) SubmittedForm() string { return r.c.PostForm("FORM_SUBMIT") }
