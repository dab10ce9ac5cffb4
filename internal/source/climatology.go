package source

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pepaaran/ingestr/internal/adapter/netcdf"
	"github.com/pepaaran/ingestr/internal/domain"
)

// monthsPerYear is the frame count a climatology stack must carry.
const monthsPerYear = 12

// Climatology extracts monthly climate normals from 12-slice raster stacks,
// one file per variable: <dir>/<var>.nc with dimensions (month, y, x).
// Values stay in native units; the transformer harmonizes them.
type Climatology struct {
	grids *netcdf.Cache
}

// NewClimatology creates the adapter over the shared grid cache.
func NewClimatology(grids *netcdf.Cache) *Climatology {
	return &Climatology{grids: grids}
}

func (s *Climatology) Kind() domain.SourceKind { return domain.KindMonthlyStack }

func (s *Climatology) Vocabulary() map[string]string {
	return map[string]string{
		"tmin": "0.1 degC",
		"tmax": "0.1 degC",
		"tavg": "0.1 degC",
		"vapr": "kPa",
		"srad": "kJ m-2 day-1",
		"prec": "mm",
	}
}

// Extract reads one value per (site, variable, month), months 1..12
// ascending inside each variable.
func (s *Climatology) Extract(ctx context.Context, sites []domain.Site, spec domain.SourceSpec) ([]domain.RawRecord, error) {
	if err := requireDir(spec.Dir); err != nil {
		return nil, err
	}

	vocab := s.Vocabulary()
	grids := make(map[string]*netcdf.Grid, len(spec.Variables))
	for _, v := range spec.Variables {
		g, err := openGrid(s.grids, filepath.Join(spec.Dir, v+".nc"), v)
		if err != nil {
			return nil, err
		}
		if g.Frames() != monthsPerYear {
			return nil, fmt.Errorf("%w: climatology %s has %d month slices, want %d",
				domain.ErrSourceUnavailable, v, g.Frames(), monthsPerYear)
		}
		grids[v] = g
	}

	records := make([]domain.RawRecord, 0, len(sites)*len(spec.Variables)*monthsPerYear)
	for _, site := range sites {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, v := range spec.Variables {
			for m := 1; m <= monthsPerYear; m++ {
				records = append(records, domain.RawRecord{
					SiteID:   site.ID,
					Variable: v,
					Month:    m,
					Value:    grids[v].ValueAt(m-1, site.Lon, site.Lat),
					Unit:     vocab[v],
				})
			}
		}
	}
	return records, nil
}
