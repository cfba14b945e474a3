// Package dateutils parses the calendar dates found in bank exports.
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Date layouts accepted in bank exports. Slash and dash forms are day-first.
const (
	DateLayoutISO      = "2006-01-02"
	DateLayoutASN      = "02-01-2006"
	DateLayoutEuropean = "02.01.2006"
	DateLayoutSlash    = "02/01/2006"
	DateLayoutISOSlash = "2006/01/02"
)

// CommonFormats is the ordered list of layouts ParseDate tries.
var CommonFormats = []string{
	DateLayoutASN,
	DateLayoutISO,
	DateLayoutEuropean,
	DateLayoutSlash,
	DateLayoutISOSlash,
}

var whitespace = regexp.MustCompile(`\s+`)

// ParseDate parses dateStr with the first matching layout and returns the
// date at UTC midnight together with the layout used.
func ParseDate(dateStr string) (time.Time, string, error) {
	dateStr = CleanDateString(dateStr)
	if dateStr == "" {
		return time.Time{}, "", fmt.Errorf("empty date")
	}

	for _, format := range CommonFormats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return Midnight(t), format, nil
		}
	}

	return time.Time{}, "", fmt.Errorf("unable to parse date: %s", dateStr)
}

// LooksLikeDate reports whether s parses with one of CommonFormats.
func LooksLikeDate(s string) bool {
	_, _, err := ParseDate(s)
	return err == nil
}

// Midnight truncates t to its calendar date in UTC.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD)
func ToISODate(date time.Time) string {
	return date.Format(DateLayoutISO)
}

// CleanDateString trims the string and collapses inner whitespace.
func CleanDateString(dateStr string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}
