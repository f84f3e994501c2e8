package workload

import (
	"fmt"
	"sort"
	"strconv"
)

// Item describes one submittable unit of work: either an index evaluated
// over a year range or a single year.
type Item struct {
	// The spectral index or variable name. Empty for per-year items.
	Name string `json:"name,omitempty"`

	StartYear int `json:"start_year"`
	EndYear   int `json:"end_year"`
}

// Key returns a stable identifier for the item. Indexed items render as
// NAME_START_END while per-year items render as the year.
func (it Item) Key() string {
	if it.Name == "" {
		return strconv.Itoa(it.StartYear)
	}
	return fmt.Sprintf("%s_%d_%d", it.Name, it.StartYear, it.EndYear)
}

// String implements fmt.Stringer.
func (it Item) String() string { return it.Key() }

// IndexItems returns one item per index, each spanning [start, end].
func IndexItems(indices []string, start, end int) []Item {
	items := make([]Item, 0, len(indices))
	for _, index := range indices {
		items = append(items, Item{Name: index, StartYear: start, EndYear: end})
	}
	return items
}

// YearItems returns one item per year in [start, end].
func YearItems(start, end int) []Item {
	if end < start {
		return []Item{}
	}
	items := make([]Item, 0, end-start+1)
	for year := start; year <= end; year++ {
		items = append(items, Item{StartYear: year, EndYear: year})
	}
	return items
}

// Keys returns the sorted keys of items.
func Keys(items []Item) []string {
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.Key()
	}
	sort.Strings(keys)
	return keys
}
