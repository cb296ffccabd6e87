// Package daterange computes local calendar-day and hour buckets.
//
// Every function works in the *time.Location carried by its input, so the
// caller decides what "local" means. Days are always rebuilt from their
// year/month/day components; adding 24h would drift across DST changes.
package daterange

import (
	"fmt"
	"time"

	"github.com/vcscsvcscs/healthlayer/pkg/model"
)

const endOfSecond = 999 * int(time.Millisecond)

// LocalDateKey returns t's calendar date as YYYY-MM-DD
func LocalDateKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

// StartOfDay returns 00:00:00.000 of t's calendar day
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's calendar day
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, endOfSecond, t.Location())
}

// LocalDayRanges enumerates every calendar day from start's day to end's day inclusive.
// The result is empty when start's day falls after end's day.
func LocalDayRanges(start, end time.Time) []model.LocalDayRange {
	end = EndOfDay(end.In(start.Location()))

	var ranges []model.LocalDayRange
	for cursor := StartOfDay(start); !cursor.After(end); {
		y, m, d := cursor.Date()
		ranges = append(ranges, model.LocalDayRange{
			Date:  LocalDateKey(cursor),
			Start: cursor,
			End:   EndOfDay(cursor),
		})
		cursor = time.Date(y, m, d+1, 0, 0, 0, 0, cursor.Location())
	}

	return ranges
}

// LocalHourRanges returns the 24 hour slices of day's calendar day
func LocalHourRanges(day time.Time) []model.LocalHourRange {
	y, m, d := day.Date()
	loc := day.Location()
	date := LocalDateKey(day)

	ranges := make([]model.LocalHourRange, 24)
	for hour := 0; hour < 24; hour++ {
		ranges[hour] = model.LocalHourRange{
			Date:  date,
			Hour:  hour,
			Start: time.Date(y, m, d, hour, 0, 0, 0, loc),
			End:   time.Date(y, m, d, hour, 59, 59, endOfSecond, loc),
		}
	}

	return ranges
}

// DateRangeForLastDays spans the last max(1, days) calendar days ending with end's day
func DateRangeForLastDays(days int, end time.Time) model.DateRange {
	if days < 1 {
		days = 1
	}
	last := EndOfDay(end)
	y, m, d := last.Date()

	return model.DateRange{
		StartDate: time.Date(y, m, d-(days-1), 0, 0, 0, 0, last.Location()),
		EndDate:   last,
	}
}

// Normalize clamps r to whole days in loc and rejects inverted ranges
func Normalize(r model.DateRange, loc *time.Location) (model.DateRange, error) {
	normalized := model.DateRange{
		StartDate: StartOfDay(r.StartDate.In(loc)),
		EndDate:   EndOfDay(r.EndDate.In(loc)),
	}
	if normalized.StartDate.After(normalized.EndDate) {
		return model.DateRange{}, model.NewHealthError(model.ErrCodeUnknown,
			fmt.Sprintf("invalid date range: %s is after %s",
				LocalDateKey(normalized.StartDate), LocalDateKey(normalized.EndDate)))
	}
	return normalized, nil
}
