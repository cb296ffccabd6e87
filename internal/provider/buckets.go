package provider

import (
	"fmt"
	"math"
	"time"

	"github.com/vcscsvcscs/healthlayer/internal/daterange"
	"github.com/vcscsvcscs/healthlayer/pkg/model"
)

// Bucket accumulates raw record values for one local day or hour
type Bucket struct {
	Date     string
	Hour     int
	Start    time.Time
	End      time.Time
	Steps    float64
	Calories float64
	Distance float64
}

// Buckets is a fixed, ordered set of local time buckets. Each read call
// allocates its own; nothing is shared across calls.
type Buckets struct {
	loc     *time.Location
	buckets []Bucket
	index   map[string]int
	keyOf   func(t time.Time) string
}

// DayBuckets normalizes r in loc and creates one bucket per calendar day.
// The normalized range is returned for use as the vendor query window.
func DayBuckets(r model.DateRange, loc *time.Location) (*Buckets, model.DateRange, error) {
	normalized, err := daterange.Normalize(r, loc)
	if err != nil {
		return nil, model.DateRange{}, err
	}

	days := daterange.LocalDayRanges(normalized.StartDate, normalized.EndDate)
	b := &Buckets{
		loc:     loc,
		buckets: make([]Bucket, len(days)),
		index:   make(map[string]int, len(days)),
		keyOf:   daterange.LocalDateKey,
	}
	for i, day := range days {
		b.buckets[i] = Bucket{Date: day.Date, Start: day.Start, End: day.End}
		b.index[day.Date] = i
	}
	return b, normalized, nil
}

// HourBuckets creates the 24 hour buckets of day's calendar day in loc
func HourBuckets(day time.Time, loc *time.Location) (*Buckets, model.DateRange) {
	hours := daterange.LocalHourRanges(day.In(loc))
	b := &Buckets{
		loc:     loc,
		buckets: make([]Bucket, len(hours)),
		index:   make(map[string]int, len(hours)),
		keyOf:   hourKey,
	}
	for i, h := range hours {
		b.buckets[i] = Bucket{Date: h.Date, Hour: h.Hour, Start: h.Start, End: h.End}
		// Keyed by the declared hour: on a spring-forward day the skipped
		// hour starts at the same instant as the next one.
		b.index[fmt.Sprintf("%s#%02d", h.Date, h.Hour)] = i
	}

	window := model.DateRange{StartDate: hours[0].Start, EndDate: hours[len(hours)-1].End}
	return b, window
}

func hourKey(t time.Time) string {
	return fmt.Sprintf("%s#%02d", daterange.LocalDateKey(t), t.Hour())
}

// Add applies fn to the bucket containing at. Instants outside every bucket
// are dropped and reported as false.
func (b *Buckets) Add(at time.Time, fn func(*Bucket)) bool {
	i, ok := b.index[b.keyOf(at.In(b.loc))]
	if !ok {
		return false
	}
	fn(&b.buckets[i])
	return true
}

// Len returns the number of buckets
func (b *Buckets) Len() int {
	return len(b.buckets)
}

// DailySteps renders the buckets as daily step totals
func (b *Buckets) DailySteps() []model.DailySteps {
	out := make([]model.DailySteps, len(b.buckets))
	for i, bk := range b.buckets {
		out[i] = model.DailySteps{
			Date:     bk.Date,
			Steps:    int(math.Round(bk.Steps)),
			StartISO: model.FormatISO(bk.Start),
			EndISO:   model.FormatISO(bk.End),
		}
	}
	return out
}

// HourlySteps renders the buckets as hourly step totals
func (b *Buckets) HourlySteps() []model.HourlySteps {
	out := make([]model.HourlySteps, len(b.buckets))
	for i, bk := range b.buckets {
		out[i] = model.HourlySteps{
			Date:     bk.Date,
			Hour:     bk.Hour,
			Steps:    int(math.Round(bk.Steps)),
			StartISO: model.FormatISO(bk.Start),
			EndISO:   model.FormatISO(bk.End),
		}
	}
	return out
}

// DailyActivity renders the buckets as daily activity summaries
func (b *Buckets) DailyActivity() []model.DailyActivitySummary {
	out := make([]model.DailyActivitySummary, len(b.buckets))
	for i, bk := range b.buckets {
		out[i] = model.DailyActivitySummary{
			Date:                 bk.Date,
			ActiveCaloriesBurned: math.Round(bk.Calories),
			Distance:             math.Round(bk.Distance),
			StartISO:             model.FormatISO(bk.Start),
			EndISO:               model.FormatISO(bk.End),
		}
	}
	return out
}

// HourlyActivity renders the buckets as hourly activity summaries
func (b *Buckets) HourlyActivity() []model.HourlyActivitySummary {
	out := make([]model.HourlyActivitySummary, len(b.buckets))
	for i, bk := range b.buckets {
		out[i] = model.HourlyActivitySummary{
			Date:                 bk.Date,
			Hour:                 bk.Hour,
			ActiveCaloriesBurned: math.Round(bk.Calories),
			Distance:             math.Round(bk.Distance),
			StartISO:             model.FormatISO(bk.Start),
			EndISO:               model.FormatISO(bk.End),
		}
	}
	return out
}
