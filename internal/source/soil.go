package source

import (
	"context"
	"math"
	"path/filepath"
	"sort"

	"github.com/pepaaran/ingestr/internal/adapter/netcdf"
	"github.com/pepaaran/ingestr/internal/domain"
)

// Soil extracts depth-layered soil property rasters, one file per variable:
// <dir>/<var>.nc with dimensions (layer, y, x). Layers are numbered from 1.
type Soil struct {
	grids *netcdf.Cache
}

// NewSoil creates the adapter over the shared grid cache.
func NewSoil(grids *netcdf.Cache) *Soil {
	return &Soil{grids: grids}
}

func (s *Soil) Kind() domain.SourceKind { return domain.KindSoilLayers }

func (s *Soil) Vocabulary() map[string]string {
	return map[string]string{
		"sand": "%",
		"silt": "%",
		"clay": "%",
		"bdod": "g cm-3",
		"soc":  "g kg-1",
	}
}

// Extract reads one value per (site, variable, requested layer), layers
// ascending inside each variable. A requested layer beyond the file's depth
// axis yields a missing value, not an error: profiles differ in depth.
func (s *Soil) Extract(ctx context.Context, sites []domain.Site, spec domain.SourceSpec) ([]domain.RawRecord, error) {
	if err := requireDir(spec.Dir); err != nil {
		return nil, err
	}

	layers := append([]int(nil), spec.Layers...)
	sort.Ints(layers)

	vocab := s.Vocabulary()
	grids := make(map[string]*netcdf.Grid, len(spec.Variables))
	for _, v := range spec.Variables {
		g, err := openGrid(s.grids, filepath.Join(spec.Dir, v+".nc"), v)
		if err != nil {
			return nil, err
		}
		grids[v] = g
	}

	records := make([]domain.RawRecord, 0, len(sites)*len(spec.Variables)*len(layers))
	for _, site := range sites {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, v := range spec.Variables {
			g := grids[v]
			for _, layer := range layers {
				value := math.NaN()
				if layer <= g.Frames() {
					value = g.ValueAt(layer-1, site.Lon, site.Lat)
				}
				records = append(records, domain.RawRecord{
					SiteID:   site.ID,
					Variable: v,
					Layer:    layer,
					Value:    value,
					Unit:     vocab[v],
				})
			}
		}
	}
	return records, nil
}
