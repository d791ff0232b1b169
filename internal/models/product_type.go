package models

import "fmt"

// ProductType describes which attributes a product carries and how they are
// split between shared product attributes and per-variant attributes. The
// two name lists are disjoint and keep their configured order.
type ProductType struct {
	ID                  int64
	Name                string
	Attributes          []string // shared across all variants
	VariantAttributes   []string // may differ per variant
	HasAdvancedPrices   bool
	ShowPriceTiers      bool
	ForceVariantOptions bool // render option widgets even with one legal value

	registry map[string]*Attribute
}

// NewProductType resolves the attribute registry once at load time. Every
// name in the attribute lists must have a definition.
func NewProductType(id int64, name string, attrs, variantAttrs []string, defs []*Attribute) (*ProductType, error) {
	pt := &ProductType{
		ID:                id,
		Name:              name,
		Attributes:        attrs,
		VariantAttributes: variantAttrs,
		registry:          make(map[string]*Attribute, len(defs)),
	}

	for _, def := range defs {
		pt.registry[def.Name] = def
	}

	for _, name := range append(append([]string{}, attrs...), variantAttrs...) {
		if _, ok := pt.registry[name]; !ok {
			return nil, fmt.Errorf("product type %d: no definition for attribute %q", id, name)
		}
	}

	return pt, nil
}

// Attribute returns the resolved definition for an attribute name.
func (pt *ProductType) Attribute(name string) (*Attribute, bool) {
	attr, ok := pt.registry[name]
	return attr, ok
}

// VariantOptionFields returns the variant attributes that participate in
// variant selection, in declared order.
func (pt *ProductType) VariantOptionFields() []string {
	var fields []string
	for _, name := range pt.VariantAttributes {
		if attr, ok := pt.registry[name]; ok && attr.VariantOption {
			fields = append(fields, name)
		}
	}
	return fields
}

// CustomerDefinedFields returns all attributes the buyer fills in at
// purchase time.
func (pt *ProductType) CustomerDefinedFields() []string {
	var fields []string
	for _, name := range pt.AllAttributes() {
		if attr, ok := pt.registry[name]; ok && attr.CustomerDefined {
			fields = append(fields, name)
		}
	}
	return fields
}

// AllAttributes returns product attributes followed by variant attributes,
// de-duplicated, keeping declared order.
func (pt *ProductType) AllAttributes() []string {
	seen := make(map[string]bool, len(pt.Attributes)+len(pt.VariantAttributes))
	var all []string
	for _, name := range append(append([]string{}, pt.Attributes...), pt.VariantAttributes...) {
		if seen[name] {
			continue
		}
		seen[name] = true
		all = append(all, name)
	}
	return all
}

// HasVariantOptions reports whether any attribute drives variant selection.
func (pt *ProductType) HasVariantOptions() bool {
	return len(pt.VariantOptionFields()) > 0
}

// TypeRegistry maps type IDs to resolved product types. It is built once at
// startup and injected wherever types are needed.
type TypeRegistry struct {
	types map[int64]*ProductType
}

func NewTypeRegistry(types ...*ProductType) *TypeRegistry {
	r := &TypeRegistry{types: make(map[int64]*ProductType, len(types))}
	for _, pt := range types {
		r.types[pt.ID] = pt
	}
	return r
}

func (r *TypeRegistry) Get(id int64) (*ProductType, bool) {
	pt, ok := r.types[id]
	return pt, ok
}
