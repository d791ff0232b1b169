// Package render assembles the full output of a purchasable product:
// variant resolution, option widgets, action buttons and template bindings.
package render

import (
	"github.com/vitrineshop/storefront/internal/catalog"
	"github.com/vitrineshop/storefront/internal/models"
)

// ProductSource is the persistence contract the orchestrator needs.
// catalog.Store satisfies it.
type ProductSource interface {
	FindProduct(id int64) (*models.Product, error)
	VisibleSiblings(p *models.Product, viewer models.Viewer) ([]models.VariantRow, error)
	DefaultVariantID(pid int64) (int64, error)
	PriceTiers(productID int64) ([]catalog.PriceTier, error)
}

// Collections resolves a saved order line being edited, so its options can
// preselect the variant and customer fields.
type Collections interface {
	// ItemOptions returns the stored options of a collection item if it
	// exists and belongs to the given product.
	ItemOptions(itemID, productID int64) (map[string]string, bool)
}

// Engine is the template-rendering collaborator. It receives a flat binding
// set and a template identifier and returns the rendered output.
type Engine interface {
	Render(template string, bindings map[string]interface{}) (string, error)
}
