// Package requestcache persists per-session filter, sorting and limit
// configuration for listing modules, de-duplicated by configuration so
// identical setups share one row.
package requestcache

import (
	"fmt"
	"sort"
	"strings"
)

// Filter operators.
const (
	OpEqual        = "eq"
	OpNotEqual     = "neq"
	OpLike         = "like"
	OpGreater      = "gt"
	OpGreaterEqual = "gte"
	OpLess         = "lt"
	OpLessEqual    = "lte"
)

// Filter restricts a product listing on one attribute. Filters sharing a
// non-empty Group are combined with OR, everything else with AND.
type Filter struct {
	Attribute string `json:"attribute"`
	Operator  string `json:"operator"`
	Value     string `json:"value"`
	Group     string `json:"group,omitempty"`
}

// SQLWhere renders the filter as a single SQL condition with a placeholder.
func (f Filter) SQLWhere(column string) (string, interface{}) {
	switch f.Operator {
	case OpLike:
		return column + " LIKE ?", "%" + f.Value + "%"
	case OpGreater:
		return column + " > ?", f.Value
	case OpGreaterEqual:
		return column + " >= ?", f.Value
	case OpLess:
		return column + " < ?", f.Value
	case OpLessEqual:
		return column + " <= ?", f.Value
	case OpNotEqual:
		return column + " != ?", f.Value
	default:
		return column + " = ?", f.Value
	}
}

// Sort is a sort direction for one field.
type Sort struct {
	Descending bool `json:"descending"`
}

func SortAsc() Sort  { return Sort{} }
func SortDesc() Sort { return Sort{Descending: true} }

func (s Sort) SQLDirection() string {
	if s.Descending {
		return "DESC"
	}
	return "ASC"
}

// Sorting is one named entry of an ordered sorting configuration.
type Sorting struct {
	Name string `json:"name"`
	Sort Sort   `json:"sort"`
}

// SortingList keeps sorting entries in priority order. The zero value is
// usable.
type SortingList []Sorting

// Limit caps the number of listed products.
type Limit struct {
	Offset int `json:"offset"`
	Size   int `json:"size"`
}

// LimitTo returns a limit of n rows from the start.
func LimitTo(n int) Limit {
	return Limit{Size: n}
}

// SQLClause renders the limit, empty when unbounded.
func (l Limit) SQLClause() string {
	if l.Size <= 0 {
		return ""
	}
	if l.Offset > 0 {
		return fmt.Sprintf(" LIMIT %d,%d", l.Offset, l.Size)
	}
	return fmt.Sprintf(" LIMIT %d", l.Size)
}

// BuildWhere combines named filters into a WHERE fragment. The resolve
// function maps attribute names to SQL columns; filters on unknown
// attributes are skipped. Filters with the same group are OR-ed together.
func BuildWhere(filters map[string]Filter, resolve func(attribute string) (string, bool)) (string, []interface{}) {
	type condition struct {
		clause string
		arg    interface{}
	}

	var plain []condition
	grouped := make(map[string][]condition)

	// Deterministic iteration keeps query plans and tests stable.
	for _, name := range sortedKeys(filters) {
		f := filters[name]
		column, ok := resolve(f.Attribute)
		if !ok {
			continue
		}
		clause, arg := f.SQLWhere(column)
		if f.Group != "" {
			grouped[f.Group] = append(grouped[f.Group], condition{clause, arg})
		} else {
			plain = append(plain, condition{clause, arg})
		}
	}

	var (
		clauses []string
		args    []interface{}
	)
	for _, c := range plain {
		clauses = append(clauses, c.clause)
		args = append(args, c.arg)
	}
	for _, group := range sortedKeys(grouped) {
		var parts []string
		for _, c := range grouped[group] {
			parts = append(parts, c.clause)
			args = append(args, c.arg)
		}
		clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
	}

	return strings.Join(clauses, " AND "), args
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
