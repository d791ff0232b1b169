package forms

import (
	"fmt"
	"strconv"
	"time"

	"github.com/vitrineshop/storefront/internal/config"
	"github.com/vitrineshop/storefront/internal/models"
	"github.com/vitrineshop/storefront/internal/variants"
)

// RequestReader is the session/request accessor contract. It reads submitted
// form fields and query parameters and identifies whether the current
// submission targets a given form.
type RequestReader interface {
	PostedValue(name string) string
	Query(name string) string
	QueryParams() map[string]string
	// SubmittedForm returns the form identifier of the current submission,
	// empty when nothing was posted.
	SubmittedForm() string
}

// Builder drives widget construction for one product render pass. Widgets
// for variant attributes are built in declared order because each
// attribute's available values depend on values pinned by earlier ones.
//
// The builder never touches the product record; everything a submission
// produces lands in VariantSelection and CustomerConfig until an explicit
// save step persists it.
type Builder struct {
	Product  *models.Product
	Type     *models.ProductType
	Siblings []models.VariantRow
	Defaults map[string]string
	FormID   string
	Request  RequestReader
	Layouts  config.DateLayouts

	VariantSelection map[string]string
	CustomerConfig   map[string]string
	AjaxAttributes   []string
	DoNotSubmit      bool
	HasUpload        bool
}

// BuildAll walks the type's attributes (product attributes first, then
// variant attributes, de-duplicated) and returns the widgets to render.
func (b *Builder) BuildAll() []Rendered {
	if b.VariantSelection == nil {
		b.VariantSelection = make(map[string]string)
	}
	if b.CustomerConfig == nil {
		b.CustomerConfig = make(map[string]string)
	}

	var rendered []Rendered
	for _, name := range b.Type.AllAttributes() {
		attr, ok := b.Type.Attribute(name)
		if !ok {
			continue
		}
		if !attr.CustomerDefined && !attr.VariantOption {
			continue
		}
		if widget, ok := b.buildWidget(attr); ok {
			rendered = append(rendered, widget)
		}
	}
	return rendered
}

// buildWidget produces the widget for a single attribute. The second return
// is false when the attribute must not be rendered (auto-selected single
// variant value, or an option attribute without options).
func (b *Builder) buildWidget(attr *models.Attribute) (Rendered, bool) {
	d := Descriptor{
		Name:      attr.Name,
		Label:     attr.Label,
		Kind:      attr.Widget,
		Mandatory: attr.Mandatory,
		Rgxp:      attr.Rgxp,
		Options:   attr.Options,
		FormID:    b.FormID,
		Default:   attr.DefaultValue(),
	}

	// Value can be predefined by the caller, e.g. to preselect a variant
	// from the URL.
	if v := b.Defaults[attr.Name]; v != "" {
		d.Default = v
	}

	if attr.VariantOption {
		legal := variants.OptionsFor(attr, b.Siblings, b.VariantSelection)

		// Hide the selection if only one option is available, unless the
		// product type forces option display.
		if len(legal) == 1 && !b.Type.ForceVariantOptions {
			b.VariantSelection[attr.Name] = legal[0]
			return Rendered{}, false
		}
		if len(legal) == 0 {
			return Rendered{}, false
		}

		// The value stored on the product wins over the caller default, so a
		// variant preselects its own options.
		if v := b.Product.Value(attr.Name); v != "" {
			d.Default = v
		}
		if d.Default != "" && containsValue(legal, d.Default) {
			b.VariantSelection[attr.Name] = d.Default
		}

		d.Options = pruneOptions(d.Options, legal)
		if len(d.Options) == 0 {
			for _, v := range legal {
				d.Options = append(d.Options, models.AttributeOption{Value: v, Label: v})
			}
		}
	} else if attr.HasOptionList() && len(d.Options) == 0 {
		return Rendered{}, false
	}

	if attr.VariantOption || (attr.HasOptionList() && attr.CanHavePrices) || attr.AjaxOption {
		b.AjaxAttributes = append(b.AjaxAttributes, attr.Name)
	}

	widget := NewWidget(d)
	if IsUpload(widget) {
		b.HasUpload = true
	}

	if b.Request != nil && b.Request.SubmittedForm() == b.FormID {
		b.handleSubmission(attr, widget)
	}

	return widget.Render(), true
}

// handleSubmission validates and stores the posted value of one widget.
// Failures flag the whole submission as rejected but building continues so
// the visitor sees every error at once.
func (b *Builder) handleSubmission(attr *models.Attribute, widget Widget) {
	widget.Validate(b.Request.PostedValue(attr.Name))

	if widget.HasErrors() {
		b.DoNotSubmit = true
		return
	}
	if !widget.SubmitInput() && !IsUpload(widget) {
		return
	}

	value := widget.Value()

	// Convert date formats into timestamps. A parse failure is a
	// recoverable error attached to the widget.
	if value != "" && isDateRgxp(attr.Rgxp) {
		ts, err := b.parseDate(attr.Rgxp, value)
		if err != nil {
			widget.AddError(fmt.Sprintf("Please enter a valid %s (%s).", attr.Rgxp, b.layoutFor(attr.Rgxp)))
		} else {
			value = strconv.FormatInt(ts, 10)
		}
	}

	for _, callback := range attr.SaveCallbacks {
		v, err := callback(value, b.Product, widget)
		if err != nil {
			widget.AddError(err.Error())
			b.DoNotSubmit = true
			continue
		}
		value = v
	}

	if widget.HasErrors() || value == "" {
		return
	}

	if attr.VariantOption {
		b.VariantSelection[attr.Name] = value
	} else {
		b.CustomerConfig[attr.Name] = value
	}
}

func (b *Builder) parseDate(rgxp, value string) (int64, error) {
	t, err := time.Parse(b.layoutFor(rgxp), value)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

func (b *Builder) layoutFor(rgxp string) string {
	switch rgxp {
	case models.RgxpTime:
		return b.Layouts.Time
	case models.RgxpDatim:
		return b.Layouts.Datim
	default:
		return b.Layouts.Date
	}
}

func isDateRgxp(rgxp string) bool {
	return rgxp == models.RgxpDate || rgxp == models.RgxpTime || rgxp == models.RgxpDatim
}

// pruneOptions removes option values no live variant can reach while always
// keeping group headers and blank placeholder options. When duplicate blank
// options exist, the last one wins and replaces the earlier in place.
func pruneOptions(options []models.AttributeOption, legal []string) []models.AttributeOption {
	var pruned []models.AttributeOption
	blankIdx := -1

	for _, opt := range options {
		switch {
		case opt.Group:
			pruned = append(pruned, opt)
		case opt.Value == "":
			if blankIdx >= 0 {
				pruned[blankIdx] = opt
				continue
			}
			pruned = append(pruned, opt)
			blankIdx = len(pruned) - 1
		case containsValue(legal, opt.Value):
			pruned = append(pruned, opt)
		}
	}
	return pruned
}

func containsValue(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
