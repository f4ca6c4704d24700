package search

import (
	"slices"
	"time"
)

func filterItems(items []indexedItem, filters Filters) []indexedItem {
	dateRange := newDateRange(filters.DateFrom, filters.DateTo)
	statusFilter := filters.Status
	if len(statusFilter) == 1 && statusFilter[0] == StatusAll {
		statusFilter = nil
	}

	filtered := make([]indexedItem, 0, len(items))
	for _, item := range items {
		if len(filters.Types) > 0 && !slices.Contains(filters.Types, item.Type) {
			continue
		}
		if len(filters.Categories) > 0 && !slices.Contains(filters.Categories, item.Category) {
			continue
		}
		if len(filters.Tags) > 0 && !hasAnyTag(item.Tags, filters.Tags) {
			continue
		}
		if len(statusFilter) > 0 && !slices.Contains(statusFilter, item.Status) {
			continue
		}
		if dateRange.active() && !dateRange.contains(item) {
			continue
		}
		filtered = append(filtered, item)
	}

	return filtered
}

func hasAnyTag(itemTags []string, wanted []string) bool {
	for _, tag := range wanted {
		if slices.Contains(itemTags, tag) {
			return true
		}
	}
	return false
}

// dateRange is inclusive at both ends. A date-only upper bound covers the whole day.
type dateRange struct {
	fromSet, toSet     bool
	fromValid, toValid bool
	from, to           time.Time
}

func newDateRange(from string, to string) dateRange {
	r := dateRange{fromSet: from != "", toSet: to != ""}

	if r.fromSet {
		r.from, _, r.fromValid = parseDate(from)
	}
	if r.toSet {
		var dateOnly bool
		r.to, dateOnly, r.toValid = parseDate(to)
		if r.toValid && dateOnly {
			r.to = r.to.Add(24*time.Hour - time.Nanosecond)
		}
	}

	return r
}

func (r dateRange) active() bool {
	return r.fromSet || r.toSet
}

func (r dateRange) contains(item indexedItem) bool {
	if !item.hasDate {
		return false
	}
	if r.fromSet && (!r.fromValid || item.date.Before(r.from)) {
		return false
	}
	if r.toSet && (!r.toValid || item.date.After(r.to)) {
		return false
	}
	return true
}
