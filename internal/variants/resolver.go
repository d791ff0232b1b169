// Package variants implements option availability resolution and variant
// matching for products whose type declares variant-defining attributes.
package variants

import "github.com/vitrineshop/storefront/internal/models"

// OptionsFor computes the legal values of attr given the currently-visible
// sibling variants and the values already fixed for other attributes.
//
// A value is legal when the attribute's own option source offers it (static
// option list unless the attribute overrides it) and at least one sibling
// matching the fixed values actually uses it. Order follows the option
// source; values only present on siblings keep first-appearance order.
func OptionsFor(attr *models.Attribute, siblings []models.VariantRow, fixed map[string]string) []string {
	live := make(map[string]bool)
	var liveOrder []string

	for _, row := range siblings {
		if !matchesFixed(row, fixed, attr.Name) {
			continue
		}
		v := row.Values[attr.Name]
		if v == "" || live[v] {
			continue
		}
		live[v] = true
		liveOrder = append(liveOrder, v)
	}

	candidates := attr.CandidateValues(siblings, fixed)
	if len(candidates) == 0 {
		// No declared option source, the siblings define the value set.
		return liveOrder
	}

	var legal []string
	for _, v := range candidates {
		if live[v] {
			legal = append(legal, v)
		}
	}
	return legal
}

// matchesFixed reports whether a sibling row is consistent with the partial
// assignment, ignoring the attribute currently being resolved.
func matchesFixed(row models.VariantRow, fixed map[string]string, except string) bool {
	for name, value := range fixed {
		if name == except {
			continue
		}
		if row.Values[name] != value {
			return false
		}
	}
	return true
}
