package pipeline_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepaaran/ingestr/internal/adapter/netcdf"
	"github.com/pepaaran/ingestr/internal/domain"
	"github.com/pepaaran/ingestr/internal/extract"
	"github.com/pepaaran/ingestr/internal/pipeline"
	"github.com/pepaaran/ingestr/internal/source"
)

// --- fixture helpers ---

// The fixture mesh is a single row of two 10-degree cells starting at the
// antimeridian-free origin: cell 0 covers lon [0,10), cell 1 covers [10,20),
// both spanning lat [-5,5).
func mustWriteGrid(t *testing.T, path, variable, unit string, dimNames []string, dimSizes []int, values []float32) {
	t.Helper()
	err := netcdf.WriteFile(path, netcdf.FileSpec{
		Variable: variable,
		DimNames: dimNames,
		DimSizes: dimSizes,
		X0:       0,
		Y0:       -5,
		Dx:       10,
		Dy:       10,
		Unit:     unit,
		Values:   values,
	})
	require.NoError(t, err)
}

// monthly repeats a (west, east) cell pair across all twelve month slices.
func monthly(west, east float32) []float32 {
	vals := make([]float32, 0, 2*12)
	for m := 0; m < 12; m++ {
		vals = append(vals, west, east)
	}
	return vals
}

func writeFixtureTree(t *testing.T) map[string]string {
	t.Helper()
	root := t.TempDir()
	dirs := map[string]string{
		"climate": filepath.Join(root, "climate"),
		"topo":    filepath.Join(root, "topo"),
		"soil":    filepath.Join(root, "soil"),
		"ndep":    filepath.Join(root, "ndep"),
		"co2":     filepath.Join(root, "co2"),
	}
	for _, dir := range dirs {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}

	stack := []string{"month", "y", "x"}
	stackSize := []int{12, 1, 2}
	mustWriteGrid(t, filepath.Join(dirs["climate"], "tmin.nc"), "tmin", "0.1 degC", stack, stackSize, monthly(100, 120))
	mustWriteGrid(t, filepath.Join(dirs["climate"], "tmax.nc"), "tmax", "0.1 degC", stack, stackSize, monthly(200, 220))
	mustWriteGrid(t, filepath.Join(dirs["climate"], "tavg.nc"), "tavg", "0.1 degC", stack, stackSize, monthly(150, 170))
	mustWriteGrid(t, filepath.Join(dirs["climate"], "vapr.nc"), "vapr", "kPa", stack, stackSize, monthly(1.0, 1.2))
	mustWriteGrid(t, filepath.Join(dirs["climate"], "srad.nc"), "srad", "kJ m-2 day-1", stack, stackSize, monthly(15000, 12000))
	mustWriteGrid(t, filepath.Join(dirs["climate"], "prec.nc"), "prec", "mm", stack, stackSize, monthly(42, 50))

	flat := []string{"y", "x"}
	flatSize := []int{1, 2}
	mustWriteGrid(t, filepath.Join(dirs["topo"], "elv.nc"), "elv", "m", flat, flatSize, []float32{500, 80})
	mustWriteGrid(t, filepath.Join(dirs["topo"], "fapar.nc"), "fapar", "1", flat, flatSize, []float32{0.7, 0.5})

	mustWriteGrid(t, filepath.Join(dirs["soil"], "sand.nc"), "sand", "%",
		[]string{"layer", "y", "x"}, []int{2, 1, 2}, []float32{40, 35, 30, 25})

	mustWriteGrid(t, filepath.Join(dirs["ndep"], "noy_1990.nc"), "noy", "gN m-2 yr-1", flat, flatSize, []float32{1.0, 2.0})
	mustWriteGrid(t, filepath.Join(dirs["ndep"], "noy_1991.nc"), "noy", "gN m-2 yr-1", flat, flatSize, []float32{1.5, 2.5})
	mustWriteGrid(t, filepath.Join(dirs["ndep"], "nhx_1990.nc"), "nhx", "gN m-2 yr-1", flat, flatSize, []float32{0.5, 1.0})
	mustWriteGrid(t, filepath.Join(dirs["ndep"], "nhx_1991.nc"), "nhx", "gN m-2 yr-1", flat, flatSize, []float32{0.75, 1.25})

	csv := "year,co2\n1990,354.39\n1991,355.61\n"
	require.NoError(t, os.WriteFile(filepath.Join(dirs["co2"], "co2_annual.csv"), []byte(csv), 0o644))

	return dirs
}

// TestPipeline_Run_FixtureEndToEnd drives the real extractor stack over
// NetCDF and CSV fixture files. Both sites sit on the equator, where the
// daylight fraction is exactly one half, so the growth temperature is the
// plain (tmin+tmax)/2 midpoint and the expected values are computable by
// hand.
func TestPipeline_Run_FixtureEndToEnd(t *testing.T) {
	dirs := writeFixtureTree(t)

	cache := netcdf.NewCache(16, nil)
	registry := extract.NewRegistry(
		source.NewPointRaster(cache),
		source.NewClimatology(cache),
		source.NewSoil(cache),
		source.NewAnnualSeries(cache),
		source.NewCO2Archive(),
	)
	p := pipeline.New(
		extract.NewExtractor(registry),
		domain.DefaultDeriveConfig(),
		domain.DefaultAggregateConfig(),
		slog.Default(),
		newTestMetrics(),
	)

	sites := []domain.Site{
		{ID: "EQ-1", Lon: 5, Lat: 0},
		{ID: "EQ-2", Lon: 15, Lat: 0},
	}
	jobs := []pipeline.SourceJob{
		{Name: "climate", SourceSpec: domain.SourceSpec{
			Kind:      domain.KindMonthlyStack,
			Variables: []string{"tmin", "tmax", "vapr", "srad", "tavg", "prec"},
			TimeScale: domain.TimeScaleMonthly,
			Dir:       dirs["climate"],
		}},
		{Name: "topo", SourceSpec: domain.SourceSpec{
			Kind:      domain.KindPointRaster,
			Variables: []string{"elv", "fapar"},
			Dir:       dirs["topo"],
		}},
		{Name: "soil", SourceSpec: domain.SourceSpec{
			Kind:      domain.KindSoilLayers,
			Variables: []string{"sand"},
			Layers:    []int{1, 2},
			Dir:       dirs["soil"],
		}},
		{Name: "ndep", SourceSpec: domain.SourceSpec{
			Kind:       domain.KindAnnualSeries,
			Variables:  []string{"noy", "nhx"},
			TimeScale:  domain.TimeScaleYearly,
			YearStart:  1990,
			YearEnd:    1991,
			Composites: map[string][]string{"ndep": {"noy", "nhx"}},
			Dir:        dirs["ndep"],
		}},
		{Name: "co2", SourceSpec: domain.SourceSpec{
			Kind:      domain.KindCO2Archive,
			Variables: []string{"co2"},
			TimeScale: domain.TimeScaleYearly,
			YearStart: 1990,
			YearEnd:   1991,
			Dir:       dirs["co2"],
		}},
	}

	table, err := p.Run(context.Background(), sites, jobs)
	require.NoError(t, err)
	require.NoError(t, p.CheckReadiness(context.Background()))

	for _, s := range p.Status() {
		assert.True(t, s.OK, "source %s failed: %s", s.Name, s.Error)
	}

	assert.Equal(t, []string{"EQ-1", "EQ-2"}, table.SiteIDs())
	assert.Equal(t,
		[]string{"tc", "vpd", "ppfd", "tavg", "prec", "elv", "fapar", "sand_l1", "sand_l2", "noy", "nhx", "ndep", "co2"},
		table.Columns())

	// delta 0 marks values that survive the fixture arithmetic exactly.
	expected := []struct {
		site, column string
		want         float64
		delta        float64
	}{
		{"EQ-1", "tc", 15.0, 0},
		{"EQ-1", "vpd", 783.12, 0.5},
		{"EQ-1", "ppfd", 3.5417e-4, 1e-8},
		{"EQ-1", "tavg", 15.0, 0},
		{"EQ-1", "prec", 42.0, 0},
		{"EQ-1", "elv", 500.0, 0},
		{"EQ-1", "fapar", 0.7, 1e-6},
		{"EQ-1", "sand_l1", 40.0, 0},
		{"EQ-1", "sand_l2", 30.0, 0},
		{"EQ-1", "noy", 1.25, 0},
		{"EQ-1", "nhx", 0.625, 0},
		{"EQ-1", "ndep", 1.875, 0},
		{"EQ-1", "co2", 355.0, 1e-9},

		{"EQ-2", "tc", 17.0, 0},
		{"EQ-2", "vpd", 823.25, 0.5},
		{"EQ-2", "ppfd", 2.8333e-4, 1e-8},
		{"EQ-2", "tavg", 17.0, 0},
		{"EQ-2", "prec", 50.0, 0},
		{"EQ-2", "elv", 80.0, 0},
		{"EQ-2", "fapar", 0.5, 0},
		{"EQ-2", "sand_l1", 35.0, 0},
		{"EQ-2", "sand_l2", 25.0, 0},
		{"EQ-2", "noy", 2.25, 0},
		{"EQ-2", "nhx", 1.125, 0},
		{"EQ-2", "ndep", 3.375, 0},
		{"EQ-2", "co2", 355.0, 1e-9},
	}
	for _, e := range expected {
		got := table.Value(e.site, e.column)
		if e.delta == 0 {
			assert.Equal(t, e.want, got, "%s %s", e.site, e.column)
		} else {
			assert.InDelta(t, e.want, got, e.delta, "%s %s", e.site, e.column)
		}
	}
}
