package domain

import "time"

const displayDateLayout = "January 2, 2006 15:04"

// FormatDate renders a message date for display in local time
func FormatDate(ms int64) string {
	return FormatDateIn(ms, time.Local)
}

// FormatDateIn renders a message date in loc
func FormatDateIn(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format(displayDateLayout)
}
