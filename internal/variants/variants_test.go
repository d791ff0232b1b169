package variants

import (
	"reflect"
	"testing"

	"github.com/vitrineshop/storefront/internal/models"
)

func shirtType(t *testing.T, force bool) *models.ProductType {
	t.Helper()

	defs := []*models.Attribute{
		{
			Name: "color", Label: "Color", Widget: models.WidgetSelect, VariantOption: true,
			Options: []models.AttributeOption{
				{Value: "red", Label: "Red"},
				{Value: "blue", Label: "Blue"},
				{Value: "green", Label: "Green"},
			},
		},
		{
			Name: "size", Label: "Size", Widget: models.WidgetSelect, VariantOption: true,
			Options: []models.AttributeOption{
				{Value: "S", Label: "Small"},
				{Value: "M", Label: "Medium"},
			},
		},
		{Name: "engraving", Label: "Engraving", Widget: models.WidgetText, CustomerDefined: true},
	}

	pt, err := models.NewProductType(1, "shirt", []string{"engraving"}, []string{"color", "size"}, defs)
	if err != nil {
		t.Fatalf("NewProductType: %v", err)
	}
	pt.ForceVariantOptions = force
	return pt
}

// The sibling set from the classic scenario: (red,S), (red,M), (blue,M).
func shirtSiblings() []models.VariantRow {
	return []models.VariantRow{
		{ID: 11, Values: map[string]string{"color": "red", "size": "S"}},
		{ID: 12, Values: map[string]string{"color": "red", "size": "M"}},
		{ID: 13, Values: map[string]string{"color": "blue", "size": "M"}},
	}
}

func TestOptionsForUnconstrained(t *testing.T) {
	pt := shirtType(t, false)
	color, _ := pt.Attribute("color")
	size, _ := pt.Attribute("size")

	// Without constraints the legal set is the union across all siblings.
	if got := OptionsFor(color, shirtSiblings(), nil); !reflect.DeepEqual(got, []string{"red", "blue"}) {
		t.Errorf("color options = %v, want [red blue]", got)
	}
	if got := OptionsFor(size, shirtSiblings(), nil); !reflect.DeepEqual(got, []string{"S", "M"}) {
		t.Errorf("size options = %v, want [S M]", got)
	}
}

func TestOptionsForConstrained(t *testing.T) {
	pt := shirtType(t, false)
	size, _ := pt.Attribute("size")

	got := OptionsFor(size, shirtSiblings(), map[string]string{"color": "blue"})
	if !reflect.DeepEqual(got, []string{"M"}) {
		t.Errorf("size options with color=blue = %v, want [M]", got)
	}
}

func TestOptionsForImpossibleConstraint(t *testing.T) {
	pt := shirtType(t, false)
	size, _ := pt.Attribute("size")

	if got := OptionsFor(size, shirtSiblings(), map[string]string{"color": "green"}); len(got) != 0 {
		t.Errorf("size options with color=green = %v, want empty", got)
	}
}

func TestOptionsForWithoutDeclaredOptions(t *testing.T) {
	attr := &models.Attribute{Name: "size", VariantOption: true}

	// No option source: siblings define the values, first appearance order.
	got := OptionsFor(attr, shirtSiblings(), nil)
	if !reflect.DeepEqual(got, []string{"S", "M"}) {
		t.Errorf("options = %v, want [S M]", got)
	}
}

func TestOptionsForCustomSource(t *testing.T) {
	attr := &models.Attribute{
		Name:          "size",
		VariantOption: true,
		OptionSource: func(siblings []models.VariantRow, fixed map[string]string) []string {
			return []string{"M"} // e.g. only M has a price tier
		},
	}

	got := OptionsFor(attr, shirtSiblings(), nil)
	if !reflect.DeepEqual(got, []string{"M"}) {
		t.Errorf("options = %v, want [M]", got)
	}
}

func TestResolveSubmittedWithAutoSelect(t *testing.T) {
	pt := shirtType(t, false)

	m := Resolve(pt, Input{
		Submitted: map[string]string{"color": "blue"},
		Siblings:  shirtSiblings(),
	})

	if m.Kind != UniqueMatch {
		t.Fatalf("kind = %v, want UniqueMatch", m.Kind)
	}
	if m.VariantID != 13 {
		t.Errorf("variant = %d, want 13", m.VariantID)
	}
	if m.Assignment["size"] != "M" {
		t.Errorf("size = %q, want auto-selected M", m.Assignment["size"])
	}
}

func TestResolveDefaultsFromURL(t *testing.T) {
	pt := shirtType(t, false)

	m := Resolve(pt, Input{
		Defaults: map[string]string{"color": "red", "size": "S"},
		Siblings: shirtSiblings(),
	})

	if m.Kind != UniqueMatch || m.VariantID != 11 {
		t.Fatalf("match = %v/%d, want UniqueMatch/11", m.Kind, m.VariantID)
	}
}

func TestResolveDefaultsIgnoredOnSubmission(t *testing.T) {
	pt := shirtType(t, false)

	// A submission supersedes URL defaults entirely.
	m := Resolve(pt, Input{
		Submitted: map[string]string{"color": "red", "size": "M"},
		Defaults:  map[string]string{"color": "blue"},
		Siblings:  shirtSiblings(),
	})

	if m.Kind != UniqueMatch || m.VariantID != 12 {
		t.Fatalf("match = %v/%d, want UniqueMatch/12", m.Kind, m.VariantID)
	}
}

func TestResolveUnknownValueIsNoMatch(t *testing.T) {
	pt := shirtType(t, false)

	m := Resolve(pt, Input{
		Submitted: map[string]string{"color": "green"},
		Siblings:  shirtSiblings(),
	})

	if m.Kind != NoMatch {
		t.Fatalf("kind = %v, want NoMatch", m.Kind)
	}
	if m.Unresolved != "color" {
		t.Errorf("unresolved = %q, want color", m.Unresolved)
	}
}

func TestResolveIncompleteFallsBackToDefaultVariant(t *testing.T) {
	pt := shirtType(t, false)

	m := Resolve(pt, Input{
		Siblings:         shirtSiblings(),
		DefaultVariantID: 12,
	})

	if m.Kind != DefaultMatch || m.VariantID != 12 {
		t.Fatalf("match = %v/%d, want DefaultMatch/12", m.Kind, m.VariantID)
	}
}

func TestResolveNoVariantAttributes(t *testing.T) {
	defs := []*models.Attribute{
		{Name: "engraving", Widget: models.WidgetText, CustomerDefined: true},
	}
	pt, err := models.NewProductType(2, "simple", []string{"engraving"}, nil, defs)
	if err != nil {
		t.Fatalf("NewProductType: %v", err)
	}

	m := Resolve(pt, Input{})
	if m.Kind != NoMatch || m.VariantID != 0 {
		t.Fatalf("match = %v/%d, want NoMatch/0", m.Kind, m.VariantID)
	}
}

func TestResolveNoSiblings(t *testing.T) {
	pt := shirtType(t, false)

	// All variants expired or unpublished: nothing can match.
	m := Resolve(pt, Input{Submitted: map[string]string{"color": "red"}})
	if m.Kind != NoMatch {
		t.Fatalf("kind = %v, want NoMatch", m.Kind)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	pt := shirtType(t, false)
	in := Input{
		Submitted: map[string]string{"color": "blue"},
		Siblings:  shirtSiblings(),
	}

	first := Resolve(pt, in)
	for i := 0; i < 3; i++ {
		again := Resolve(pt, in)
		if again.Kind != first.Kind || again.VariantID != first.VariantID ||
			!reflect.DeepEqual(again.Assignment, first.Assignment) {
			t.Fatalf("call %d diverged: %+v vs %+v", i+2, again, first)
		}
	}
}
