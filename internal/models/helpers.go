package models

import "time"

// DateLayout is the cached display format for a record's creation date.
const DateLayout = "2006.01.02"

// FormatDate renders a millisecond timestamp as YYYY.MM.DD in loc.
// A nil loc means local time.
func FormatDate(ms int64, loc *time.Location) string {
	t := time.UnixMilli(ms)
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(DateLayout)
}

// DisplayDate returns the cached date or a placeholder for old records
// that were saved without one.
func (r Recipe) DisplayDate() string {
	if r.FormattedDate == "" {
		return "unknown"
	}
	return r.FormattedDate
}
