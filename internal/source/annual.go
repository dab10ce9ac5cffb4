package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pepaaran/ingestr/internal/adapter/netcdf"
	"github.com/pepaaran/ingestr/internal/domain"
)

// yearWildcard is the filename placeholder replaced by the four-digit year.
const yearWildcard = "[YEAR]"

// AnnualSeries extracts gridded per-year archives, one raster file per year
// named <dir>/<var>_<YEAR>.nc with dimensions (y, x). Nitrogen deposition
// ships this way.
type AnnualSeries struct {
	grids *netcdf.Cache
}

// NewAnnualSeries creates the adapter over the shared grid cache.
func NewAnnualSeries(grids *netcdf.Cache) *AnnualSeries {
	return &AnnualSeries{grids: grids}
}

func (s *AnnualSeries) Kind() domain.SourceKind { return domain.KindAnnualSeries }

func (s *AnnualSeries) Vocabulary() map[string]string {
	return map[string]string{
		"noy": "gN m-2 yr-1",
		"nhx": "gN m-2 yr-1",
	}
}

// Extract reads one value per (site, variable, year), years ascending inside
// each variable. An archive with a gap year yields missing values for that
// year; only an unreadable directory or a corrupt present file fails the
// extraction.
func (s *AnnualSeries) Extract(ctx context.Context, sites []domain.Site, spec domain.SourceSpec) ([]domain.RawRecord, error) {
	if err := requireDir(spec.Dir); err != nil {
		return nil, err
	}

	years := spec.Years()

	type frame struct {
		variable string
		year     int
	}
	grids := make(map[frame]*netcdf.Grid, len(spec.Variables)*len(years))
	for _, v := range spec.Variables {
		template := filepath.Join(spec.Dir, v+"_"+yearWildcard+".nc")
		for _, y := range years {
			path := strings.ReplaceAll(template, yearWildcard, strconv.Itoa(y))
			if _, err := os.Stat(path); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return nil, fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, path, err)
			}
			g, err := openGrid(s.grids, path, v)
			if err != nil {
				return nil, err
			}
			grids[frame{v, y}] = g
		}
	}

	vocab := s.Vocabulary()
	records := make([]domain.RawRecord, 0, len(sites)*len(spec.Variables)*len(years))
	for _, site := range sites {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, v := range spec.Variables {
			for _, y := range years {
				value := domain.Missing()
				if g := grids[frame{v, y}]; g != nil {
					value = g.ValueAt(0, site.Lon, site.Lat)
				}
				records = append(records, domain.RawRecord{
					SiteID:   site.ID,
					Variable: v,
					Year:     y,
					Value:    value,
					Unit:     vocab[v],
				})
			}
		}
	}
	return records, nil
}
