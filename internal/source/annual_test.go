package source

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepaaran/ingestr/internal/adapter/netcdf"
	"github.com/pepaaran/ingestr/internal/domain"
)

// writeYearGrid writes <dir>/<variable>_<year>.nc over the two-cell mesh.
func writeYearGrid(t *testing.T, dir, variable string, year int, west, east float32) {
	t.Helper()
	name := variable + "_" + strconv.Itoa(year) + ".nc"
	err := netcdf.WriteFile(filepath.Join(dir, name), netcdf.FileSpec{
		Variable: variable,
		DimNames: []string{"y", "x"},
		DimSizes: []int{1, 2},
		X0:       0, Y0: 0, Dx: 10, Dy: 10,
		Unit:   "gN m-2 yr-1",
		Values: []float32{west, east},
	})
	require.NoError(t, err)
}

func TestAnnualSeriesExtract(t *testing.T) {
	dir := t.TempDir()
	writeYearGrid(t, dir, "noy", 1990, 1.0, 2.0)
	writeYearGrid(t, dir, "noy", 1991, 1.5, 2.5)
	writeYearGrid(t, dir, "nhx", 1990, 0.5, 1.0)
	writeYearGrid(t, dir, "nhx", 1991, 0.75, 1.25)

	s := NewAnnualSeries(newTestCache())
	spec := domain.SourceSpec{
		Kind:      domain.KindAnnualSeries,
		Variables: []string{"noy", "nhx"},
		TimeScale: domain.TimeScaleYearly,
		YearStart: 1990,
		YearEnd:   1991,
		Dir:       dir,
	}

	records, err := s.Extract(context.Background(), []domain.Site{siteWest, siteEast}, spec)
	require.NoError(t, err)
	require.Len(t, records, 2*2*2)

	assert.Equal(t, domain.RawRecord{SiteID: "west", Variable: "noy", Year: 1990, Value: 1.0, Unit: "gN m-2 yr-1"}, records[0])
	assert.Equal(t, domain.RawRecord{SiteID: "west", Variable: "noy", Year: 1991, Value: 1.5, Unit: "gN m-2 yr-1"}, records[1])
	assert.Equal(t, domain.RawRecord{SiteID: "west", Variable: "nhx", Year: 1990, Value: 0.5, Unit: "gN m-2 yr-1"}, records[2])
	assert.Equal(t, domain.RawRecord{SiteID: "east", Variable: "nhx", Year: 1991, Value: 1.25, Unit: "gN m-2 yr-1"}, records[7])
}

func TestAnnualSeriesGapYear(t *testing.T) {
	dir := t.TempDir()
	writeYearGrid(t, dir, "noy", 1990, 1.0, 2.0)
	// 1991 is missing from the archive.
	writeYearGrid(t, dir, "noy", 1992, 3.0, 4.0)

	s := NewAnnualSeries(newTestCache())
	spec := domain.SourceSpec{
		Kind:      domain.KindAnnualSeries,
		Variables: []string{"noy"},
		TimeScale: domain.TimeScaleYearly,
		YearStart: 1990,
		YearEnd:   1992,
		Dir:       dir,
	}

	records, err := s.Extract(context.Background(), []domain.Site{siteWest}, spec)
	require.NoError(t, err, "an archive gap must not fail the extraction")
	require.Len(t, records, 3)

	assert.Equal(t, 1.0, records[0].Value)
	assert.True(t, domain.IsMissing(records[1].Value))
	assert.Equal(t, 1991, records[1].Year)
	assert.Equal(t, 3.0, records[2].Value)
}

func TestAnnualSeriesUnavailable(t *testing.T) {
	s := NewAnnualSeries(newTestCache())
	spec := domain.SourceSpec{
		Kind:      domain.KindAnnualSeries,
		Variables: []string{"noy"},
		TimeScale: domain.TimeScaleYearly,
		YearStart: 1990,
		YearEnd:   1991,
		Dir:       filepath.Join(t.TempDir(), "nope"),
	}

	_, err := s.Extract(context.Background(), []domain.Site{siteWest}, spec)
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))
}
