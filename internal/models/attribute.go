package models

// Widget kinds understood by the form builder.
const (
	WidgetText     = "text"
	WidgetTextarea = "textarea"
	WidgetSelect   = "select"
	WidgetRadio    = "radio"
	WidgetUpload   = "upload"
)

// Rgxp values that trigger timestamp conversion of submitted input.
const (
	RgxpDate  = "date"
	RgxpTime  = "time"
	RgxpDatim = "datim"
)

// AttributeOption is a single presentable option of an attribute.
// Group marks a group header pseudo-option, an empty Value marks a
// blank/placeholder pseudo-option. Both survive option pruning.
type AttributeOption struct {
	Value   string `json:"value"`
	Label   string `json:"label"`
	Group   bool   `json:"group,omitempty"`
	Default bool   `json:"default,omitempty"`
}

// ErrorSink receives user-visible validation messages. Widgets satisfy it.
type ErrorSink interface {
	AddError(message string)
}

// SaveCallback can transform a submitted value before it is stored, or
// reject it with an error. Callbacks run in the order they are configured.
type SaveCallback func(value string, product *Product, sink ErrorSink) (string, error)

// Attribute describes a single product field and its capabilities.
type Attribute struct {
	Name            string
	Label           string
	Widget          string
	Mandatory       bool
	VariantOption   bool // participates in variant selection
	CustomerDefined bool // buyer enters a free value at purchase time
	CanHavePrices   bool // value affects the price
	AjaxOption      bool // client-refreshable without a full reload
	Rgxp            string
	Options         []AttributeOption
	SaveCallbacks   []SaveCallback

	// OptionSource overrides the static option list as the set of candidate
	// values, e.g. to restrict options to those with a price for the current
	// collection. Fixed holds values already pinned for other attributes.
	OptionSource func(siblings []VariantRow, fixed map[string]string) []string
}

// HasOptionList reports whether the attribute presents a fixed option set.
func (a *Attribute) HasOptionList() bool {
	return a.Widget == WidgetSelect || a.Widget == WidgetRadio
}

// CandidateValues returns the candidate option values for variant matching,
// before intersecting with the values live siblings actually use.
func (a *Attribute) CandidateValues(siblings []VariantRow, fixed map[string]string) []string {
	if a.OptionSource != nil {
		return a.OptionSource(siblings, fixed)
	}

	var values []string
	for _, opt := range a.Options {
		if opt.Group || opt.Value == "" {
			continue
		}
		values = append(values, opt.Value)
	}
	return values
}

// DefaultValue returns the option flagged as default, if any.
func (a *Attribute) DefaultValue() string {
	for _, opt := range a.Options {
		if opt.Default && !opt.Group {
			return opt.Value
		}
	}
	return ""
}
