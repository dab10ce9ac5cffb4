package domain

import (
	"math"
	"time"
)

// Missing returns the missing-value marker. Sites outside coverage, gap
// years, and underivable fields all carry it; means exclude it.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v is the missing-value marker.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// RawRecord is one extracted value, exactly as a source adapter produced it:
// native unit, no derivation. Layer, Month, and Year are zero when the
// dimension does not apply to the source family.
type RawRecord struct {
	SiteID   string
	Variable string
	Layer    int // 1-based soil layer, 0 = no layer dimension
	Month    int // 1–12, 0 = no month dimension
	Year     int // calendar year, 0 = no year dimension
	Value    float64
	Unit     string
}

// DerivedRecord carries the model-unit fields computed for one (site, month)
// from that month's raw values: "tgrowth", "vpd", "ppfd", and normalized
// requested raws such as "tavg" or "prec". A field that could not be derived
// for this month is present with a NaN value.
type DerivedRecord struct {
	SiteID string
	Month  int
	Fields map[string]float64
}

// AggregatedRecord is one (site, variable) value after temporal or layer
// reduction, in model units.
type AggregatedRecord struct {
	SiteID   string
	Variable string
	Value    float64
}

// ForcingRecord is the per-site message shape published to the optional
// sink: the assembled row of the final table plus an ingestion timestamp.
type ForcingRecord struct {
	SiteID     string             `json:"site_id"`
	Values     map[string]float64 `json:"values"`
	IngestedAt time.Time          `json:"ingested_at"`
}

// ForcingRecords flattens a site table into per-site sink messages, one per
// site in table order. NaN cells are omitted from Values because JSON has no
// NaN; consumers treat absent keys as missing.
func ForcingRecords(table *SiteTable) []ForcingRecord {
	now := clock.Now().UTC()
	recs := make([]ForcingRecord, 0, len(table.SiteIDs()))
	for _, id := range table.SiteIDs() {
		values := make(map[string]float64, len(table.Columns()))
		for _, col := range table.Columns() {
			if v := table.Value(id, col); !IsMissing(v) {
				values[col] = v
			}
		}
		recs = append(recs, ForcingRecord{SiteID: id, Values: values, IngestedAt: now})
	}
	return recs
}
