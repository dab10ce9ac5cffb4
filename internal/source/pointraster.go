package source

import (
	"context"
	"path/filepath"

	"github.com/pepaaran/ingestr/internal/adapter/netcdf"
	"github.com/pepaaran/ingestr/internal/domain"
)

// PointRaster extracts single global rasters holding one value per location:
// elevation and fAPAR. Files are <dir>/<var>.nc with dimensions (y, x).
type PointRaster struct {
	grids *netcdf.Cache
}

// NewPointRaster creates the adapter over the shared grid cache.
func NewPointRaster(grids *netcdf.Cache) *PointRaster {
	return &PointRaster{grids: grids}
}

func (s *PointRaster) Kind() domain.SourceKind { return domain.KindPointRaster }

func (s *PointRaster) Vocabulary() map[string]string {
	return map[string]string{
		"elv":   "m",
		"fapar": "1",
	}
}

// Extract reads one value per (site, variable). Records follow site input
// order with variables in request order inside each site.
func (s *PointRaster) Extract(ctx context.Context, sites []domain.Site, spec domain.SourceSpec) ([]domain.RawRecord, error) {
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
		grids[v] = g
	}

	records := make([]domain.RawRecord, 0, len(sites)*len(spec.Variables))
	for _, site := range sites {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, v := range spec.Variables {
			records = append(records, domain.RawRecord{
				SiteID:   site.ID,
				Variable: v,
				Value:    grids[v].ValueAt(0, site.Lon, site.Lat),
				Unit:     vocab[v],
			})
		}
	}
	return records, nil
}
