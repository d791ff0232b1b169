// Package forms builds the per-attribute option widgets of a product form.
package forms

import (
	"fmt"

	"github.com/vitrineshop/storefront/internal/models"
)

// Descriptor carries everything needed to construct a widget for one
// attribute, merged from the attribute metadata and caller defaults.
type Descriptor struct {
	Name      string
	Label     string
	Kind      string
	Mandatory bool
	Default   string
	Rgxp      string
	Options   []models.AttributeOption
	FormID    string
}

// Widget is the form-control contract the builder drives. Validation errors
// accumulate on the widget and never abort building.
type Widget interface {
	Name() string
	// Validate converts and checks the submitted raw value.
	Validate(raw string)
	HasErrors() bool
	Errors() []string
	AddError(message string)
	// SubmitInput reports whether a validated value should be persisted.
	SubmitInput() bool
	Value() string
	SetValue(value string)
	Render() Rendered
}

// Rendered is the presentation-agnostic output of a widget, handed to the
// template collaborator.
type Rendered struct {
	Name      string                   `json:"name"`
	Label     string                   `json:"label"`
	Kind      string                   `json:"kind"`
	Value     string                   `json:"value"`
	Mandatory bool                     `json:"mandatory"`
	ID        string                   `json:"id"`
	Options   []models.AttributeOption `json:"options,omitempty"`
	Errors    []string                 `json:"errors,omitempty"`
}

// NewWidget constructs the concrete widget for a descriptor.
func NewWidget(d Descriptor) Widget {
	switch d.Kind {
	case models.WidgetSelect, models.WidgetRadio:
		return &SelectWidget{baseWidget: newBase(d)}
	case models.WidgetUpload:
		return &UploadWidget{baseWidget: newBase(d)}
	default:
		return &TextWidget{baseWidget: newBase(d)}
	}
}

type baseWidget struct {
	desc   Descriptor
	value  string
	errors []string
}

func newBase(d Descriptor) baseWidget {
	return baseWidget{desc: d, value: d.Default}
}

func (w *baseWidget) Name() string    { return w.desc.Name }
func (w *baseWidget) HasErrors() bool { return len(w.errors) > 0 }
func (w *baseWidget) Errors() []string {
	return w.errors
}
func (w *baseWidget) AddError(message string) { w.errors = append(w.errors, message) }
func (w *baseWidget) Value() string           { return w.value }
func (w *baseWidget) SetValue(value string)   { w.value = value }

func (w *baseWidget) render() Rendered {
	return Rendered{
		Name:      w.desc.Name,
		Label:     w.desc.Label,
		Kind:      w.desc.Kind,
		Value:     w.value,
		Mandatory: w.desc.Mandatory,
		ID:        w.desc.Name + "_" + w.desc.FormID,
		Options:   w.desc.Options,
		Errors:    w.errors,
	}
}

// TextWidget accepts free text, optionally constrained by a rgxp that the
// builder post-processes into a timestamp.
type TextWidget struct {
	baseWidget
}

func (w *TextWidget) Validate(raw string) {
	w.value = raw
	if w.desc.Mandatory && raw == "" {
		w.AddError(fmt.Sprintf("Please enter a value for %s.", w.desc.Label))
	}
}

func (w *TextWidget) SubmitInput() bool { return true }
func (w *TextWidget) Render() Rendered  { return w.render() }

// SelectWidget only accepts values present in its option list.
type SelectWidget struct {
	baseWidget
}

func (w *SelectWidget) Validate(raw string) {
	w.value = raw
	if raw == "" {
		if w.desc.Mandatory {
			w.AddError(fmt.Sprintf("Please choose an option for %s.", w.desc.Label))
		}
		return
	}
	for _, opt := range w.desc.Options {
		if !opt.Group && opt.Value == raw {
			return
		}
	}
	w.AddError(fmt.Sprintf("%q is not a valid option for %s.", raw, w.desc.Label))
}

func (w *SelectWidget) SubmitInput() bool { return true }
func (w *SelectWidget) Render() Rendered  { return w.render() }

// UploadWidget stores a file reference. Its value is persisted even though
// it is not regular form input.
type UploadWidget struct {
	baseWidget
}

func (w *UploadWidget) Validate(raw string) {
	w.value = raw
	if w.desc.Mandatory && raw == "" {
		w.AddError(fmt.Sprintf("Please upload a file for %s.", w.desc.Label))
	}
}

// SubmitInput is false for uploads; the builder persists them anyway, the
// same way uploadable widgets are special-cased in form handling.
func (w *UploadWidget) SubmitInput() bool { return false }
func (w *UploadWidget) Render() Rendered  { return w.render() }

// IsUpload reports whether the widget requires multipart encoding.
func IsUpload(w Widget) bool {
	_, ok := w.(*UploadWidget)
	return ok
}
