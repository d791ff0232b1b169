package render

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/gosimple/slug"

	"github.com/vitrineshop/storefront/internal/catalog"
	"github.com/vitrineshop/storefront/internal/config"
	"github.com/vitrineshop/storefront/internal/forms"
	"github.com/vitrineshop/storefront/internal/models"
	"github.com/vitrineshop/storefront/internal/variants"
)

// Config is the per-module render configuration.
type Config struct {
	ModuleID    int64
	ModuleType  string // "fmd" for a frontend module, "cte" for a content element
	Template    string
	Buttons     []string
	UseQuantity bool
	JumpTo      string // base path of the product detail page
}

// Result is everything one product render produced. AjaxAttributes lists
// the attribute names the client may refresh without a full reload; the
// caller aggregates them per request, there is no process-wide registry.
type Result struct {
	ProductID       int64                  `json:"productId"`
	FormID          string                 `json:"formId"`
	HTML            string                 `json:"html,omitempty"`
	Bindings        map[string]interface{} `json:"bindings,omitempty"`
	Widgets         []forms.Rendered       `json:"widgets"`
	Actions         []string               `json:"actions"`
	AjaxAttributes  []string               `json:"ajaxAttributes"`
	Options         map[string]string      `json:"options"`
	MinimumQuantity int                    `json:"minimumQuantity"`
	URL             string                 `json:"url"`
	MatchKind       string                 `json:"matchKind"`
	Updating        bool                   `json:"updating"`
	Rejected        bool                   `json:"rejected"`
	Enctype         string                 `json:"enctype"`
	UseQuantity     bool                   `json:"useQuantity"`
}

// Orchestrator is the top-level product render entry point.
type Orchestrator struct {
	Products    ProductSource
	Actions     *ActionRegistry
	Engine      Engine
	Collections Collections
	Layouts     config.DateLayouts
}

// FormID builds the unique form identifier of a product within a module.
func FormID(moduleType string, moduleID, productID int64) string {
	if moduleType == "" {
		moduleType = "fmd"
	}
	return fmt.Sprintf("%s%d_product_%d", moduleType, moduleID, productID)
}

// Generate renders a product. When the submitted or defaulted options
// resolve to a different variant record, the render is delegated entirely
// to that variant; recursion terminates because a variant has no further
// variants of its own.
func (o *Orchestrator) Generate(p *models.Product, viewer models.Viewer, req forms.RequestReader, cfg Config) (*Result, error) {
	// The form identifier is fixed to the product the render started on, so
	// a submission still targets the same form after a variant switch.
	return o.generate(p, viewer, req, cfg, FormID(cfg.ModuleType, cfg.ModuleID, p.ID))
}

func (o *Orchestrator) generate(p *models.Product, viewer models.Viewer, req forms.RequestReader, cfg Config, formID string) (*Result, error) {
	if p.Type == nil {
		return nil, fmt.Errorf("%w: product %d", catalog.ErrTypeNotFound, p.ID)
	}

	defaults, updating := o.loadDefaults(req, p)
	matchKind := variants.NoMatch

	// A variant needs the sibling rows of its whole group so the option
	// selectors stay complete after a variant switch.
	var siblings []models.VariantRow
	if p.HasVariants() || p.IsVariant() {
		var err error
		siblings, err = o.Products.VisibleSiblings(p, viewer)
		if err != nil {
			return nil, err
		}
	}

	if p.HasVariants() {
		var submitted map[string]string
		if req != nil && req.SubmittedForm() == formID {
			submitted = make(map[string]string)
			for _, name := range p.Type.VariantOptionFields() {
				submitted[name] = req.PostedValue(name)
			}
		}

		// Preselections only pick a variant when no form was posted at all.
		// A submission of some other form on the page falls through to
		// auto-selection instead of reviving stale URL defaults.
		resolveDefaults := defaults
		if req != nil && req.SubmittedForm() != "" {
			resolveDefaults = nil
		}

		defaultID, err := o.Products.DefaultVariantID(p.ID)
		if err != nil {
			return nil, err
		}

		match := variants.Resolve(p.Type, variants.Input{
			Submitted:        submitted,
			Defaults:         resolveDefaults,
			Siblings:         siblings,
			DefaultVariantID: defaultID,
		})
		matchKind = match.Kind

		if match.VariantID > 0 && match.VariantID != p.ID {
			variant, err := o.Products.FindProduct(match.VariantID)
			if err != nil {
				return nil, err
			}
			result, err := o.generate(variant, viewer, req, cfg, formID)
			if err != nil {
				return nil, err
			}
			result.MatchKind = match.Kind.String()
			return result, nil
		}
	}

	builder := &forms.Builder{
		Product:  p,
		Type:     p.Type,
		Siblings: siblings,
		Defaults: defaults,
		FormID:   formID,
		Request:  req,
		Layouts:  o.Layouts,
	}
	widgets := builder.BuildAll()

	actions := o.actionsFor(p, cfg)
	if req != nil && req.SubmittedForm() == formID && !builder.DoNotSubmit {
		for _, action := range actions {
			if action.HandleSubmit(p, req) {
				break
			}
		}
	}

	minQuantity := 1
	if p.Type.HasAdvancedPrices {
		tiers, err := o.Products.PriceTiers(p.ID)
		if err != nil {
			return nil, err
		}
		minQuantity = catalog.MinimumQuantity(tiers)
	}

	options := mergeOptions(variantConfig(p), builder.VariantSelection, builder.CustomerConfig)

	result := &Result{
		ProductID:       p.ID,
		FormID:          formID,
		Widgets:         widgets,
		Actions:         actionNames(actions),
		AjaxAttributes:  builder.AjaxAttributes,
		Options:         options,
		MinimumQuantity: minQuantity,
		URL:             DetailURL(cfg.JumpTo, p, options),
		MatchKind:       matchKind.String(),
		Updating:        updating,
		Rejected:        builder.DoNotSubmit,
		Enctype:         enctype(builder.HasUpload),
		UseQuantity:     cfg.UseQuantity && !updating,
	}

	result.Bindings = o.bindings(p, cfg, result)

	if o.Engine != nil {
		html, err := o.Engine.Render(cfg.Template, result.Bindings)
		if err != nil {
			return nil, err
		}
		result.HTML = html
	}

	return result, nil
}

// loadDefaults collects option preselections: a saved collection item being
// edited wins over plain query parameters.
func (o *Orchestrator) loadDefaults(req forms.RequestReader, p *models.Product) (map[string]string, bool) {
	defaults := make(map[string]string)
	if req == nil {
		return defaults, false
	}

	if itemParam := req.Query("collection_item"); itemParam != "" && o.Collections != nil {
		if itemID, err := strconv.ParseInt(itemParam, 10, 64); err == nil && itemID > 0 {
			if options, ok := o.Collections.ItemOptions(itemID, p.ID); ok {
				for k, v := range options {
					defaults[k] = v
				}
				return defaults, true
			}
		}
	}

	for k, v := range req.QueryParams() {
		defaults[k] = v
	}
	return defaults, false
}

func (o *Orchestrator) actionsFor(p *models.Product, cfg Config) []Action {
	if o.Actions == nil {
		return nil
	}
	return o.Actions.ForConfig(p, cfg)
}

func (o *Orchestrator) bindings(p *models.Product, cfg Config, r *Result) map[string]interface{} {
	return map[string]interface{}{
		"product_id":       p.ID,
		"name":             p.Name,
		"description":      p.Description,
		"price":            p.Price,
		"raw":              p.Values,
		"options":          r.Widgets,
		"hasOptions":       len(r.Widgets) > 0,
		"configuration":    r.Options,
		"actions":          r.Actions,
		"useQuantity":      r.UseQuantity,
		"minimum_quantity": r.MinimumQuantity,
		"href":             r.URL,
		"formId":           r.FormID,
		"formSubmit":       r.FormID,
		"enctype":          r.Enctype,
		"module_id":        cfg.ModuleID,
	}
}

// DetailURL builds the product detail link annotated with the current
// option assignment as a query string.
func DetailURL(base string, p *models.Product, options map[string]string) string {
	if base == "" {
		base = "/product"
	}

	alias := p.Alias
	if alias == "" {
		alias = slug.Make(p.Name)
	}
	if alias == "" {
		alias = strconv.FormatInt(p.ID, 10)
	}

	u := base + "/" + alias
	if len(options) == 0 {
		return u
	}

	query := url.Values{}
	for k, v := range options {
		query.Set(k, v)
	}
	return u + "?" + query.Encode()
}

// variantConfig extracts the variant option values stored on a variant
// record. A base product has none.
func variantConfig(p *models.Product) map[string]string {
	if !p.IsVariant() || p.Type == nil {
		return nil
	}
	config := make(map[string]string)
	for _, name := range p.Type.VariantOptionFields() {
		config[name] = p.Value(name)
	}
	return config
}

func mergeOptions(maps ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			if v != "" {
				merged[k] = v
			}
		}
	}
	return merged
}

func actionNames(actions []Action) []string {
	names := make([]string, 0, len(actions))
	for _, a := range actions {
		names = append(names, a.Name())
	}
	return names
}

func enctype(hasUpload bool) string {
	if hasUpload {
		return "multipart/form-data"
	}
	return "application/x-www-form-urlencoded"
}
