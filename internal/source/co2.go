package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pepaaran/ingestr/internal/domain"
)

// co2FileName is the fixed archive filename inside the source directory.
const co2FileName = "co2_annual.csv"

// CO2Archive extracts the global atmospheric CO2 record: a non-spatial CSV
// of yearly means, <dir>/co2_annual.csv with header year,co2. Every site
// receives the same global value for a given year.
type CO2Archive struct{}

// NewCO2Archive creates the adapter.
func NewCO2Archive() *CO2Archive {
	return &CO2Archive{}
}

func (s *CO2Archive) Kind() domain.SourceKind { return domain.KindCO2Archive }

func (s *CO2Archive) Vocabulary() map[string]string {
	return map[string]string{
		"co2": "ppm",
	}
}

// Extract reads one value per (site, year), years ascending. Years absent
// from the archive yield missing values.
func (s *CO2Archive) Extract(ctx context.Context, sites []domain.Site, spec domain.SourceSpec) ([]domain.RawRecord, error) {
	if err := requireDir(spec.Dir); err != nil {
		return nil, err
	}

	byYear, err := s.readArchive(filepath.Join(spec.Dir, co2FileName))
	if err != nil {
		return nil, err
	}

	years := spec.Years()
	records := make([]domain.RawRecord, 0, len(sites)*len(years))
	for _, site := range sites {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, y := range years {
			value, ok := byYear[y]
			if !ok {
				value = domain.Missing()
			}
			records = append(records, domain.RawRecord{
				SiteID:   site.ID,
				Variable: "co2",
				Year:     y,
				Value:    value,
				Unit:     "ppm",
			})
		}
	}
	return records, nil
}

func (s *CO2Archive) readArchive(path string) (map[int]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", domain.ErrSourceUnavailable, path, err)
	}
	if len(rows) == 0 || len(rows[0]) < 2 || rows[0][0] != "year" || rows[0][1] != "co2" {
		return nil, fmt.Errorf("%w: %s: want header year,co2", domain.ErrSourceUnavailable, path)
	}

	byYear := make(map[int]float64, len(rows)-1)
	for i, row := range rows[1:] {
		year, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: bad year %q", domain.ErrSourceUnavailable, path, i+2, row[0])
		}
		value, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: bad co2 %q", domain.ErrSourceUnavailable, path, i+2, row[1])
		}
		byYear[year] = value
	}
	return byYear, nil
}
