package provider

import (
	"fmt"
	"sort"
	"time"

	"github.com/vcscsvcscs/healthlayer/pkg/model"
)

// GlucoseSamples collects point-in-time glucose readings. Readings are not
// bucketed; each raw sample becomes one output sample.
type GlucoseSamples struct {
	samples []model.GlucoseSample
	at      []time.Time
}

// Add records one reading. A missing id is synthesized from the measurement
// time and the sample's index in the raw result.
func (g *GlucoseSamples) Add(index int, id string, at time.Time, value float64, unit model.GlucoseUnit, source string) {
	measuredAt := model.FormatISO(at)
	if id == "" {
		id = fmt.Sprintf("%s-%d", measuredAt, index)
	}

	sample := model.GlucoseSample{
		ID:            id,
		ValueMgdl:     model.ToMgdl(value, unit),
		OriginalValue: value,
		OriginalUnit:  unit,
		MeasuredAtISO: measuredAt,
	}
	if source != "" {
		sample.Source = &source
	}

	g.samples = append(g.samples, sample)
	g.at = append(g.at, at)
}

// Sorted returns the readings ordered by measurement time, ties kept in arrival order
func (g *GlucoseSamples) Sorted() []model.GlucoseSample {
	sort.Stable(g)
	if g.samples == nil {
		return []model.GlucoseSample{}
	}
	return g.samples
}

func (g *GlucoseSamples) Len() int           { return len(g.samples) }
func (g *GlucoseSamples) Less(i, j int) bool { return g.at[i].Before(g.at[j]) }
func (g *GlucoseSamples) Swap(i, j int) {
	g.samples[i], g.samples[j] = g.samples[j], g.samples[i]
	g.at[i], g.at[j] = g.at[j], g.at[i]
}
