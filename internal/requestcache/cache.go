package requestcache

import (
	"encoding/json"
	"errors"
)

// ErrModifiedCache signals a collaborator misuse: a cache row that is
// already persisted must never be saved in place once modified, because
// other sessions may reference it. Use SaveNewConfiguration instead.
var ErrModifiedCache = errors.New("requestcache: cannot save a modified, already-persisted cache")

// Cache holds the filter/sort/limit configuration of one request, split
// into three independent sub-maps keyed by the originating module ID.
//
// A cache row is immutable once persisted: every mutating operation only
// changes the in-memory state and flips the modified flag.
type Cache struct {
	ID      int64
	StoreID int64
	Tstamp  int64

	filters  map[int64]map[string]Filter
	sortings map[int64]SortingList
	limits   map[int64]Limit
	modified bool
}

// New returns an empty, unpersisted cache for a store.
func New(storeID int64) *Cache {
	return &Cache{StoreID: storeID}
}

// IsEmpty reports whether no configuration is present at all.
func (c *Cache) IsEmpty() bool {
	return len(c.filters) == 0 && len(c.sortings) == 0 && len(c.limits) == 0
}

// IsModified reports whether the in-memory state diverged from the
// persisted row.
func (c *Cache) IsModified() bool {
	return c.modified
}

// --- Filters ---

// Filters returns the complete filter configuration, nil when unset.
func (c *Cache) Filters() map[int64]map[string]Filter {
	return c.filters
}

// FiltersForModules merges the filter configs of several modules. Earlier
// module IDs take precedence on name collisions.
func (c *Cache) FiltersForModules(moduleIDs []int64) map[string]Filter {
	merged := make(map[string]Filter)
	for i := len(moduleIDs) - 1; i >= 0; i-- {
		for name, f := range c.filters[moduleIDs[i]] {
			merged[name] = f
		}
	}
	return merged
}

// SetFiltersForModule replaces the filter config of a module.
func (c *Cache) SetFiltersForModule(filters map[string]Filter, moduleID int64) {
	if c.filters == nil {
		c.filters = make(map[int64]map[string]Filter)
	}
	c.filters[moduleID] = filters
	c.modified = true
}

// UnsetFiltersForModule removes all filters of a module.
func (c *Cache) UnsetFiltersForModule(moduleID int64) {
	if _, ok := c.filters[moduleID]; ok {
		delete(c.filters, moduleID)
		c.modified = true
	}
}

// FilterForModule returns a named filter of a module.
func (c *Cache) FilterForModule(name string, moduleID int64) (Filter, bool) {
	f, ok := c.filters[moduleID][name]
	return f, ok
}

// SetFilterForModule sets one named filter of a module.
func (c *Cache) SetFilterForModule(name string, filter Filter, moduleID int64) {
	if c.filters == nil {
		c.filters = make(map[int64]map[string]Filter)
	}
	if c.filters[moduleID] == nil {
		c.filters[moduleID] = make(map[string]Filter)
	}
	c.filters[moduleID][name] = filter
	c.modified = true
}

// RemoveFilterForModule removes one named filter of a module.
func (c *Cache) RemoveFilterForModule(name string, moduleID int64) {
	if _, ok := c.filters[moduleID][name]; !ok {
		return
	}
	c.modified = true
	delete(c.filters[moduleID], name)
	if len(c.filters[moduleID]) == 0 {
		delete(c.filters, moduleID)
	}
}

// --- Sortings ---

// Sortings returns the complete sorting configuration, nil when unset.
func (c *Cache) Sortings() map[int64]SortingList {
	return c.sortings
}

// SortingsForModules merges the sorting configs of several modules. Earlier
// module IDs take precedence on name collisions.
func (c *Cache) SortingsForModules(moduleIDs []int64) SortingList {
	var merged SortingList
	seen := make(map[string]bool)
	for _, id := range moduleIDs {
		for _, s := range c.sortings[id] {
			if seen[s.Name] {
				continue
			}
			seen[s.Name] = true
			merged = append(merged, s)
		}
	}
	return merged
}

// SetSortingsForModule replaces the sorting config of a module.
func (c *Cache) SetSortingsForModule(sortings SortingList, moduleID int64) {
	if c.sortings == nil {
		c.sortings = make(map[int64]SortingList)
	}
	c.sortings[moduleID] = sortings
	c.modified = true
}

// UnsetSortingsForModule removes the sorting config of a module.
func (c *Cache) UnsetSortingsForModule(moduleID int64) {
	if _, ok := c.sortings[moduleID]; ok {
		delete(c.sortings, moduleID)
		c.modified = true
	}
}

// FirstSortingFieldForModule returns the highest-priority sorting field
// name of a module, empty when none is configured.
func (c *Cache) FirstSortingFieldForModule(moduleID int64) string {
	list := c.sortings[moduleID]
	if len(list) == 0 {
		return ""
	}
	return list[0].Name
}

// SortingForModule returns a named sorting of a module.
func (c *Cache) SortingForModule(name string, moduleID int64) (Sort, bool) {
	for _, s := range c.sortings[moduleID] {
		if s.Name == name {
			return s.Sort, true
		}
	}
	return Sort{}, false
}

// SetSortingForModule puts a named sorting at the highest priority of a
// module, removing any previous entry of the same name.
func (c *Cache) SetSortingForModule(name string, sort Sort, moduleID int64) {
	if c.sortings == nil {
		c.sortings = make(map[int64]SortingList)
	}
	list := SortingList{{Name: name, Sort: sort}}
	for _, s := range c.sortings[moduleID] {
		if s.Name != name {
			list = append(list, s)
		}
	}
	c.sortings[moduleID] = list
	c.modified = true
}

// RemoveSortingForModule removes a named sorting of a module.
func (c *Cache) RemoveSortingForModule(name string, moduleID int64) {
	list, ok := c.sortings[moduleID]
	if !ok {
		return
	}
	var kept SortingList
	for _, s := range list {
		if s.Name != name {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(list) {
		return
	}
	c.modified = true
	if len(kept) == 0 {
		delete(c.sortings, moduleID)
		return
	}
	c.sortings[moduleID] = kept
}

// --- Limits ---

// Limits returns the complete limit configuration, nil when unset.
func (c *Cache) Limits() map[int64]Limit {
	return c.limits
}

// SetLimitForModule sets the limit of a module.
func (c *Cache) SetLimitForModule(limit Limit, moduleID int64) {
	if c.limits == nil {
		c.limits = make(map[int64]Limit)
	}
	c.limits[moduleID] = limit
	c.modified = true
}

// UnsetLimitForModule removes the limit of a module.
func (c *Cache) UnsetLimitForModule(moduleID int64) {
	if _, ok := c.limits[moduleID]; ok {
		delete(c.limits, moduleID)
		c.modified = true
	}
}

// FirstLimitForModules returns the first configured limit among the given
// modules, or a limit of fallback rows.
func (c *Cache) FirstLimitForModules(moduleIDs []int64, fallback int) Limit {
	for _, id := range moduleIDs {
		if l, ok := c.limits[id]; ok {
			return l
		}
	}
	return LimitTo(fallback)
}

// --- Serialization ---

// configPayload is the persisted shape: three named top-level keys, each
// nullable when empty.
type configPayload struct {
	Filters  map[int64]map[string]Filter `json:"filters"`
	Sortings map[int64]SortingList       `json:"sortings"`
	Limits   map[int64]Limit             `json:"limits"`
}

// MarshalConfig serializes the current configuration.
func (c *Cache) MarshalConfig() ([]byte, error) {
	payload := configPayload{}
	if len(c.filters) > 0 {
		payload.Filters = c.filters
	}
	if len(c.sortings) > 0 {
		payload.Sortings = c.sortings
	}
	if len(c.limits) > 0 {
		payload.Limits = c.limits
	}
	return json.Marshal(payload)
}

// FromRow rebuilds a cache from a persisted row.
func FromRow(id, storeID, tstamp int64, configJSON []byte) (*Cache, error) {
	c := &Cache{ID: id, StoreID: storeID, Tstamp: tstamp}
	if len(configJSON) == 0 {
		return c, nil
	}
	var payload configPayload
	if err := json.Unmarshal(configJSON, &payload); err != nil {
		return nil, err
	}
	c.filters = payload.Filters
	c.sortings = payload.Sortings
	c.limits = payload.Limits
	return c, nil
}

// clone copies the in-memory configuration into a fresh unpersisted cache.
func (c *Cache) clone() *Cache {
	dup := &Cache{StoreID: c.StoreID, Tstamp: c.Tstamp}
	if c.filters != nil {
		dup.filters = make(map[int64]map[string]Filter, len(c.filters))
		for id, m := range c.filters {
			inner := make(map[string]Filter, len(m))
			for k, v := range m {
				inner[k] = v
			}
			dup.filters[id] = inner
		}
	}
	if c.sortings != nil {
		dup.sortings = make(map[int64]SortingList, len(c.sortings))
		for id, list := range c.sortings {
			dup.sortings[id] = append(SortingList{}, list...)
		}
	}
	if c.limits != nil {
		dup.limits = make(map[int64]Limit, len(c.limits))
		for id, l := range c.limits {
			dup.limits[id] = l
		}
	}
	return dup
}
