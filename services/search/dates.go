package search

import (
	"strings"
	"time"
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

var dateOnlyLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// parseDate accepts ISO-like dates and a few written forms. Values without a
// zone are read as UTC.
func parseDate(value string) (date time.Time, dateOnly bool, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false, false
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), false, true
		}
	}
	for _, layout := range dateOnlyLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true, true
		}
	}

	return time.Time{}, false, false
}
