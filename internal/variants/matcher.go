package variants

import "github.com/vitrineshop/storefront/internal/models"

// MatchKind is the terminal outcome of variant resolution.
type MatchKind int

const (
	// NoMatch means no variant could be located; the caller renders the
	// base product as-is. This is a defined outcome, not an error.
	NoMatch MatchKind = iota
	// DefaultMatch means the assignment was incomplete but the base product
	// designates a default variant.
	DefaultMatch
	// UniqueMatch means a single existing variant satisfies the assignment.
	UniqueMatch
)

func (k MatchKind) String() string {
	switch k {
	case UniqueMatch:
		return "unique"
	case DefaultMatch:
		return "default"
	default:
		return "none"
	}
}

// Match is the result of Resolve.
type Match struct {
	Kind       MatchKind
	VariantID  int64             // matched sibling, 0 for NoMatch
	Assignment map[string]string // option values pinned during resolution
	Unresolved string            // first attribute without a resolvable value
}

// Input carries the request state variant resolution depends on.
type Input struct {
	// Submitted holds the posted option values when this product's own form
	// was submitted in the current request. Nil otherwise so stale data from
	// unrelated submissions never influences resolution.
	Submitted map[string]string
	// Defaults are caller-provided preselections, e.g. from the URL or a
	// saved order line being edited.
	Defaults map[string]string
	// Siblings are the variant rows currently visible to the requester.
	Siblings []models.VariantRow
	// DefaultVariantID is the designated fallback variant, 0 if none.
	DefaultVariantID int64
}

// Resolve walks the type's variant attributes in declared order and picks a
// value for each by priority: submitted value if legal, caller default if
// legal, auto-select when exactly one legal value remains. The first
// attribute that cannot be resolved stops the walk and is recorded for
// diagnostics.
//
// Resolve is a pure function of its inputs: repeated calls with the same
// submitted data, defaults and sibling set yield the same outcome.
func Resolve(pt *models.ProductType, in Input) Match {
	m := Match{Assignment: make(map[string]string)}

	for _, name := range pt.VariantOptionFields() {
		attr, ok := pt.Attribute(name)
		if !ok {
			continue
		}

		values := OptionsFor(attr, in.Siblings, m.Assignment)

		switch {
		case in.Submitted != nil && contains(values, in.Submitted[name]):
			m.Assignment[name] = in.Submitted[name]
		case in.Submitted == nil && contains(values, in.Defaults[name]):
			m.Assignment[name] = in.Defaults[name]
		case len(values) == 1:
			m.Assignment[name] = values[0]
		default:
			m.Unresolved = name
		}

		if m.Unresolved != "" {
			break
		}
	}

	complete := m.Unresolved == "" && len(m.Assignment) > 0

	if complete {
		if id, ok := findExact(in.Siblings, m.Assignment); ok {
			m.Kind = UniqueMatch
			m.VariantID = id
		}
		return m
	}

	if in.DefaultVariantID > 0 {
		m.Kind = DefaultMatch
		m.VariantID = in.DefaultVariantID
	}
	return m
}

// findExact locates the unique sibling whose stored values equal the
// assignment exactly.
func findExact(siblings []models.VariantRow, assignment map[string]string) (int64, bool) {
	for _, row := range siblings {
		match := true
		for name, value := range assignment {
			if row.Values[name] != value {
				match = false
				break
			}
		}
		if match {
			return row.ID, true
		}
	}
	return 0, false
}

func contains(values []string, v string) bool {
	if v == "" {
		return false
	}
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
