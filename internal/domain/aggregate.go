package domain

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// AggregateConfig carries the thresholds the temporal reducers use.
type AggregateConfig struct {
	// GrowingSeasonMinC is the growth-temperature threshold in degC a month
	// must exceed to count toward the growing season.
	GrowingSeasonMinC float64
}

// DefaultAggregateConfig uses the 0 degC growing-season threshold.
func DefaultAggregateConfig() AggregateConfig {
	return AggregateConfig{GrowingSeasonMinC: 0}
}

// GrowingSeasonMeans reduces monthly derived records to one value per
// (site, column): the mean over the months whose growth temperature exceeds
// the threshold. Months with a missing growth temperature cannot be gated
// and are excluded. A site with no qualifying month gets NaN, never a mean
// of zero elements. Output order is (site first-appearance, column order).
func GrowingSeasonMeans(records []DerivedRecord, columns []string, cfg AggregateConfig) []AggregatedRecord {
	siteOrder, bySite := groupDerivedBySite(records)

	out := make([]AggregatedRecord, 0, len(siteOrder)*len(columns))
	for _, id := range siteOrder {
		var kept []DerivedRecord
		for _, d := range bySite[id] {
			tg, ok := d.Fields["tgrowth"]
			if !ok || IsMissing(tg) || tg <= cfg.GrowingSeasonMinC {
				continue
			}
			kept = append(kept, d)
		}

		for _, col := range columns {
			field := derivedFieldFor(col)
			var vals []float64
			for _, d := range kept {
				if v, ok := d.Fields[field]; ok && !IsMissing(v) {
					vals = append(vals, v)
				}
			}
			out = append(out, AggregatedRecord{SiteID: id, Variable: col, Value: meanOrMissing(vals)})
		}
	}
	return out
}

// derivedFieldFor maps an output column to the monthly field it averages.
// The model contract calls the growing-season growth temperature "tc"; every
// other column shares its field's name.
func derivedFieldFor(column string) string {
	if column == "tc" {
		return "tgrowth"
	}
	return column
}

// MultiYearMeans reduces yearly raw records to one value per (site,
// variable): the mean over the years in [yearStart, yearEnd], excluding
// missing years. Units pass through unchanged; yearly sources store model
// units already. Output order is (site first-appearance, variable
// first-appearance within site).
func MultiYearMeans(records []RawRecord, yearStart, yearEnd int) []AggregatedRecord {
	type key struct{ site, variable string }

	var siteOrder []string
	varOrder := make(map[string][]string)
	seen := make(map[key]bool)
	values := make(map[key][]float64)

	for _, r := range records {
		if r.Year < yearStart || r.Year > yearEnd {
			continue
		}
		k := key{r.SiteID, r.Variable}
		if !seen[k] {
			seen[k] = true
			if len(varOrder[r.SiteID]) == 0 {
				siteOrder = append(siteOrder, r.SiteID)
			}
			varOrder[r.SiteID] = append(varOrder[r.SiteID], r.Variable)
		}
		if !IsMissing(r.Value) {
			values[k] = append(values[k], r.Value)
		}
	}

	var out []AggregatedRecord
	for _, id := range siteOrder {
		for _, v := range varOrder[id] {
			out = append(out, AggregatedRecord{
				SiteID:   id,
				Variable: v,
				Value:    meanOrMissing(values[key{id, v}]),
			})
		}
	}
	return out
}

// ApplyComposites appends summed columns to multi-year aggregates, e.g.
// ndep = noy + nhx. A composite is NaN for a site when any component is
// missing. Composite names are emitted in sorted order after the base
// variables so output stays deterministic.
func ApplyComposites(aggs []AggregatedRecord, composites map[string][]string) []AggregatedRecord {
	if len(composites) == 0 {
		return aggs
	}

	var siteOrder []string
	byKey := make(map[string]float64)
	seenSite := make(map[string]bool)
	for _, a := range aggs {
		if !seenSite[a.SiteID] {
			seenSite[a.SiteID] = true
			siteOrder = append(siteOrder, a.SiteID)
		}
		byKey[a.SiteID+"\x00"+a.Variable] = a.Value
	}

	names := make([]string, 0, len(composites))
	for name := range composites {
		names = append(names, name)
	}
	sort.Strings(names)

	out := aggs
	for _, name := range names {
		for _, id := range siteOrder {
			sum := 0.0
			for _, component := range composites[name] {
				v, ok := byKey[id+"\x00"+component]
				if !ok || IsMissing(v) {
					sum = Missing()
					break
				}
				sum += v
			}
			out = append(out, AggregatedRecord{SiteID: id, Variable: name, Value: sum})
		}
	}
	return out
}

// PerLayerValues passes layered soil records through unaggregated, one
// column per (variable, layer) named <variable>_l<layer>.
func PerLayerValues(records []RawRecord) []AggregatedRecord {
	out := make([]AggregatedRecord, 0, len(records))
	for _, r := range records {
		name := r.Variable
		if r.Layer > 0 {
			name = fmt.Sprintf("%s_l%d", r.Variable, r.Layer)
		}
		out = append(out, AggregatedRecord{SiteID: r.SiteID, Variable: name, Value: r.Value})
	}
	return out
}

// LayerMeans reduces layered soil records to one column per variable, the
// mean over the requested layers with missing layers excluded. Output order
// is (site first-appearance, variable first-appearance within site).
func LayerMeans(records []RawRecord) []AggregatedRecord {
	type key struct{ site, variable string }

	var siteOrder []string
	varOrder := make(map[string][]string)
	seen := make(map[key]bool)
	values := make(map[key][]float64)

	for _, r := range records {
		k := key{r.SiteID, r.Variable}
		if !seen[k] {
			seen[k] = true
			if len(varOrder[r.SiteID]) == 0 {
				siteOrder = append(siteOrder, r.SiteID)
			}
			varOrder[r.SiteID] = append(varOrder[r.SiteID], r.Variable)
		}
		if !IsMissing(r.Value) {
			values[k] = append(values[k], r.Value)
		}
	}

	var out []AggregatedRecord
	for _, id := range siteOrder {
		for _, v := range varOrder[id] {
			out = append(out, AggregatedRecord{
				SiteID:   id,
				Variable: v,
				Value:    meanOrMissing(values[key{id, v}]),
			})
		}
	}
	return out
}

// PointValues passes single-value records (point rasters) through
// unaggregated.
func PointValues(records []RawRecord) []AggregatedRecord {
	out := make([]AggregatedRecord, 0, len(records))
	for _, r := range records {
		out = append(out, AggregatedRecord{SiteID: r.SiteID, Variable: r.Variable, Value: r.Value})
	}
	return out
}

// groupDerivedBySite splits derived records by site, preserving
// first-appearance order.
func groupDerivedBySite(records []DerivedRecord) ([]string, map[string][]DerivedRecord) {
	var order []string
	bySite := make(map[string][]DerivedRecord)
	for _, d := range records {
		if _, ok := bySite[d.SiteID]; !ok {
			order = append(order, d.SiteID)
		}
		bySite[d.SiteID] = append(bySite[d.SiteID], d)
	}
	return order, bySite
}

// meanOrMissing is the arithmetic mean of vals, or NaN when nothing
// survived exclusion.
func meanOrMissing(vals []float64) float64 {
	if len(vals) == 0 {
		return Missing()
	}
	return stat.Mean(vals, nil)
}
