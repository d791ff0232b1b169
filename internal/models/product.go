package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog record. A record with PID == 0 is a base product;
// PID > 0 marks a variant whose attribute values are seeded from the parent
// and overwritten only by non-inherited variant attributes
// (see MaterializeVariant).
type Product struct {
	ID          int64           `json:"id" db:"id"`
	PID         int64           `json:"pid" db:"pid"`
	TypeID      int64           `json:"typeId" db:"type_id"`
	SKU         *string         `json:"sku,omitempty" db:"sku"`
	Name        string          `json:"name" db:"name"`
	Alias       string          `json:"alias" db:"alias"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Fallback    bool            `json:"fallback" db:"fallback"` // designated default variant
	Inherit     []string        `json:"inherit" db:"-"`         // attribute names taken verbatim from the parent
	Values      map[string]string `json:"values" db:"-"`        // attribute name -> raw stored value

	Published bool       `json:"published" db:"published"`
	Start     *time.Time `json:"start,omitempty" db:"start"`
	Stop      *time.Time `json:"stop,omitempty" db:"stop"`
	Protected bool       `json:"protected" db:"protected"`
	Guests    bool       `json:"guests" db:"guests"` // visible to guests only
	Groups    []int64    `json:"groups,omitempty" db:"-"`

	Type *ProductType `json:"-" db:"-"`
}

// VariantRow is the in-memory projection of a visible sibling variant used
// during option resolution.
type VariantRow struct {
	ID     int64
	Values map[string]string
}

// Viewer identifies the requesting visitor for visibility checks.
type Viewer struct {
	Member bool
	Groups []int64
}

// IsVariant reports whether this record is a variant of a base product.
func (p *Product) IsVariant() bool {
	return p.PID > 0
}

// HasVariants reports whether this record can resolve to variants. Variants
// themselves never have further variants, which terminates render recursion.
func (p *Product) HasVariants() bool {
	return !p.IsVariant() && p.Type != nil && p.Type.HasVariantOptions()
}

// Value returns the raw stored value for an attribute.
func (p *Product) Value(attribute string) string {
	return p.Values[attribute]
}

// IsVisibleTo applies the publish window and access rules for a visitor.
func (p *Product) IsVisibleTo(v Viewer, now time.Time) bool {
	if !p.Published {
		return false
	}
	if p.Start != nil && now.Before(*p.Start) {
		return false
	}
	if p.Stop != nil && !now.Before(*p.Stop) {
		return false
	}
	if p.Guests && v.Member {
		return false
	}
	if p.Protected {
		if !v.Member {
			return false
		}
		if !groupsIntersect(p.Groups, v.Groups) {
			return false
		}
	}
	return true
}

// InheritedFields returns the attribute names a variant takes from its
// parent. A base product inherits nothing.
func (p *Product) InheritedFields() []string {
	if !p.IsVariant() {
		return nil
	}
	return p.Inherit
}

// MaterializeVariant builds the effective record for a variant row: the
// parent's data overlaid with the variant's non-inherited variant
// attributes. It never mutates its inputs. The publishing settings of
// parent and variant are combined so a variant can only narrow, not widen,
// the parent's publish window.
func MaterializeVariant(parent *Product, row *Product, pt *ProductType) (*Product, error) {
	if parent == nil {
		return nil, fmt.Errorf("variant %d: parent record not found", row.ID)
	}
	if row.PID != parent.ID {
		return nil, fmt.Errorf("variant %d: parent mismatch (pid=%d, parent=%d)", row.ID, row.PID, parent.ID)
	}

	variant := *parent
	variant.ID = row.ID
	variant.PID = row.PID
	variant.Inherit = row.Inherit
	variant.SKU = row.SKU
	variant.Price = row.Price
	variant.Fallback = row.Fallback
	variant.Groups = row.Groups
	variant.Type = pt

	inherited := make(map[string]bool, len(row.Inherit))
	for _, name := range row.Inherit {
		inherited[name] = true
	}

	variant.Values = make(map[string]string, len(parent.Values))
	for k, v := range parent.Values {
		variant.Values[k] = v
	}
	for _, name := range pt.VariantAttributes {
		if inherited[name] {
			continue
		}
		if v, ok := row.Values[name]; ok {
			variant.Values[name] = v
		}
	}

	// A variant is only published if the parent is, within the narrower of
	// both publish windows.
	variant.Published = parent.Published && row.Published
	variant.Start = laterOf(parent.Start, row.Start)
	variant.Stop = earlierOf(parent.Stop, row.Stop)
	variant.Protected = parent.Protected || row.Protected
	variant.Guests = parent.Guests || row.Guests

	return &variant, nil
}

func laterOf(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || a.After(*b) {
		return a
	}
	return b
}

func earlierOf(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || a.Before(*b) {
		return a
	}
	return b
}

func groupsIntersect(a, b []int64) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
