package domain

import (
	"context"
	"fmt"
)

// Site is a point location observations are extracted for. ID is the join
// key of every downstream table. Elevation is metadata supplied by the
// caller; nil means unknown (a point-raster source may fill the output
// column instead, see FillElevationColumn).
//
// Sites are immutable once constructed: no component mutates one, and
// enrichment steps return new slices or write to tables instead.
type Site struct {
	ID        string   `json:"site_id"`
	Lon       float64  `json:"lon"`
	Lat       float64  `json:"lat"`
	Elevation *float64 `json:"elv,omitempty"`
}

// SiteIDs returns the identifiers of sites in input order.
func SiteIDs(sites []Site) []string {
	ids := make([]string, len(sites))
	for i, s := range sites {
		ids[i] = s.ID
	}
	return ids
}

// ValidateSites rejects site lists that would make the join key ambiguous:
// empty IDs, duplicate IDs, or coordinates off the globe.
func ValidateSites(sites []Site) error {
	seen := make(map[string]struct{}, len(sites))
	for i, s := range sites {
		if s.ID == "" {
			return fmt.Errorf("site %d: empty id", i)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("duplicate site id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
		if s.Lat < -90 || s.Lat > 90 {
			return fmt.Errorf("site %q: latitude %g out of range", s.ID, s.Lat)
		}
		if s.Lon < -180 || s.Lon > 360 {
			return fmt.Errorf("site %q: longitude %g out of range", s.ID, s.Lon)
		}
	}
	return nil
}

// Source is the extraction contract one data-source family implements.
// Implementations live in internal/source; the extractor dispatches to them
// through a kind-keyed registry.
type Source interface {
	// Kind identifies the source family this adapter serves.
	Kind() SourceKind

	// Vocabulary maps the variable names this source knows to their
	// native storage units.
	Vocabulary() map[string]string

	// Extract reads one value per requested (site, variable, time-or-layer)
	// combination. Sites outside the source's coverage yield NaN records
	// rather than failing the batch. It fails with ErrSourceUnavailable when
	// the storage location cannot be read and ErrVariableNotFound when a
	// requested variable is missing from storage.
	Extract(ctx context.Context, sites []Site, spec SourceSpec) ([]RawRecord, error)
}
