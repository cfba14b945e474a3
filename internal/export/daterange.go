package export

import (
	"fmt"
	"time"

	"fjacquet/txsort/internal/models"
)

// dateRange is the span of booking dates covered by an export.
type dateRange struct {
	Start time.Time
	End   time.Time
}

// String returns the range as "YYYY-MM-DD_YYYY-MM-DD", or "" when empty.
func (dr dateRange) String() string {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s_%s", dr.Start.Format(models.DateLayoutISO), dr.End.Format(models.DateLayoutISO))
}

// Merge combines this range with another, returning the overall range.
func (dr dateRange) Merge(other dateRange) dateRange {
	start, end := dr.Start, dr.End
	if start.IsZero() || (!other.Start.IsZero() && other.Start.Before(start)) {
		start = other.Start
	}
	if end.IsZero() || (!other.End.IsZero() && other.End.After(end)) {
		end = other.End
	}
	return dateRange{Start: start, End: end}
}

func rangeOf(lists ...[]models.Categorized) dateRange {
	var dr dateRange
	for _, list := range lists {
		for _, c := range list {
			d := c.Transaction.Date
			dr = dr.Merge(dateRange{Start: d, End: d})
		}
	}
	return dr
}
