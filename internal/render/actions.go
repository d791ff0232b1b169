package render

import (
	"github.com/vitrineshop/storefront/internal/forms"
	"github.com/vitrineshop/storefront/internal/models"
)

// Action is a product button such as "add to cart". Actions are registered
// once and filtered per render against the module's configured button set.
type Action interface {
	Name() string
	Label() string
	// Available reports whether the button applies to this product in this
	// context.
	Available(p *models.Product, cfg Config) bool
	// HandleSubmit consumes a clean form submission. Returning true claims
	// the submission; later actions are not asked.
	HandleSubmit(p *models.Product, req forms.RequestReader) bool
}

// ActionRegistry holds the known product actions.
type ActionRegistry struct {
	actions []Action
}

func NewActionRegistry(actions ...Action) *ActionRegistry {
	return &ActionRegistry{actions: actions}
}

func (r *ActionRegistry) Register(a Action) {
	r.actions = append(r.actions, a)
}

// ForConfig returns the available actions restricted to the configured
// visible set, in configured button order.
func (r *ActionRegistry) ForConfig(p *models.Product, cfg Config) []Action {
	order := make(map[string]int, len(cfg.Buttons))
	for i, name := range cfg.Buttons {
		order[name] = i
	}

	var filtered []Action
	for _, a := range r.actions {
		if _, ok := order[a.Name()]; !ok {
			continue
		}
		if !a.Available(p, cfg) {
			continue
		}
		filtered = append(filtered, a)
	}

	// Insertion sort by configured button order; the set is tiny.
	for i := 1; i < len(filtered); i++ {
		for j := i; j > 0 && order[filtered[j].Name()] < order[filtered[j-1].Name()]; j-- {
			filtered[j], filtered[j-1] = filtered[j-1], filtered[j]
		}
	}
	return filtered
}

// AddToCartAction is the baseline purchase button. The actual cart write
// happens in the submit callback wired at startup.
type AddToCartAction struct {
	OnSubmit func(p *models.Product, quantity string) bool
}

func (a *AddToCartAction) Name() string  { return "add_to_cart" }
func (a *AddToCartAction) Label() string { return "Add to cart" }

func (a *AddToCartAction) Available(p *models.Product, cfg Config) bool {
	// A base product with unresolved variants cannot be purchased directly.
	return !p.HasVariants()
}

func (a *AddToCartAction) HandleSubmit(p *models.Product, req forms.RequestReader) bool {
	if req.PostedValue(a.Name()) == "" {
		return false
	}
	if a.OnSubmit == nil {
		return true
	}
	return a.OnSubmit(p, req.PostedValue("quantity"))
}
