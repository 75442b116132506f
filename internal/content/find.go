package content

import "github.com/adventquiz/calendar-platform/internal/datetime"

// FindYear returns the year whose label matches target, tolerating the
// date-form labels some documents carry.
func FindYear(years []Year, target string) *Year {
	for i := range years {
		if datetime.SameYear(years[i].Year, target) {
			return &years[i]
		}
	}
	return nil
}
