// Command genfixture generates a complete synthetic source tree for local
// runs and integration testing: a global two-degree grid for every source
// family, a site list, and a job file wired to the generated directories. It
// then runs the actual extraction pipeline over the tree and prints the
// resulting forcing table, so test assertions can be copied from known-good
// output.
//
// Usage:
//
//	go run ./cmd/genfixture -out testdata/fixture
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pepaaran/ingestr/internal/adapter/netcdf"
	"github.com/pepaaran/ingestr/internal/domain"
	"github.com/pepaaran/ingestr/internal/extract"
	"github.com/pepaaran/ingestr/internal/observability"
	"github.com/pepaaran/ingestr/internal/pipeline"
	"github.com/pepaaran/ingestr/internal/sitefile"
	"github.com/pepaaran/ingestr/internal/source"
)

const (
	gridX0 = -180.0
	gridY0 = -90.0
	gridDx = 2.0
	gridDy = 2.0
	gridNx = 180
	gridNy = 90

	ndepYearStart = 1990
	ndepYearEnd   = 2009
	ndepGapYear   = 1997

	co2YearStart = 1980
	co2YearEnd   = 2020

	// Latitude above which the elevation raster reports missing, so polar
	// sites fall back to the elevation column of the site list.
	polarCutoffDeg = 70.0
)

const missingElv float32 = -9999

const degToRad = math.Pi / 180

// jobFile is the on-disk run description: the named sources to extract.
type jobFile struct {
	Sources []pipeline.SourceJob `json:"sources"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "", "output directory for the fixture tree")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	for _, sub := range []string{"climate", "topo", "soil", "ndep", "co2"} {
		if err := os.MkdirAll(filepath.Join(*outDir, sub), 0o755); err != nil {
			return err
		}
	}

	if err := writeClimate(filepath.Join(*outDir, "climate")); err != nil {
		return fmt.Errorf("writing climate: %w", err)
	}
	if err := writeTopo(filepath.Join(*outDir, "topo")); err != nil {
		return fmt.Errorf("writing topo: %w", err)
	}
	if err := writeSoil(filepath.Join(*outDir, "soil")); err != nil {
		return fmt.Errorf("writing soil: %w", err)
	}
	if err := writeNdep(filepath.Join(*outDir, "ndep")); err != nil {
		return fmt.Errorf("writing ndep: %w", err)
	}
	if err := writeCO2(filepath.Join(*outDir, "co2")); err != nil {
		return fmt.Errorf("writing co2: %w", err)
	}

	sitesPath := filepath.Join(*outDir, "sites.csv")
	if err := writeSites(sitesPath); err != nil {
		return fmt.Errorf("writing sites: %w", err)
	}

	jobs, err := writeJob(*outDir)
	if err != nil {
		return fmt.Errorf("writing job: %w", err)
	}
	log.Printf("wrote fixture tree: %s", *outDir)

	// Round-trip the site list through the real reader so the printed table
	// reflects exactly what an ingestion run would produce.
	sites, err := sitefile.ReadSites(sitesPath)
	if err != nil {
		return err
	}

	table, statuses, err := runPipeline(sites, jobs)
	if err != nil {
		return fmt.Errorf("running pipeline over fixture: %w", err)
	}
	for _, st := range statuses {
		if st.OK {
			log.Printf("%s: %d records -> %v", st.Name, st.Records, st.Columns)
		} else {
			log.Printf("%s: FAILED: %s", st.Name, st.Error)
		}
	}

	printTable(table)
	return nil
}

// gridValues fills frames*ny*nx cells, x fastest, calling at with the cell
// centre and the zero-based frame index.
func gridValues(frames int, at func(frame int, lon, lat float64) float64) []float32 {
	values := make([]float32, frames*gridNy*gridNx)
	idx := 0
	for f := 0; f < frames; f++ {
		for j := 0; j < gridNy; j++ {
			lat := gridY0 + (float64(j)+0.5)*gridDy
			for i := 0; i < gridNx; i++ {
				lon := gridX0 + (float64(i)+0.5)*gridDx
				values[idx] = float32(at(f, lon, lat))
				idx++
			}
		}
	}
	return values
}

func writeGrid(path, variable, unit string, dimNames []string, dimSizes []int, missing *float32, values []float32) error {
	return netcdf.WriteFile(path, netcdf.FileSpec{
		Variable:     variable,
		DimNames:     dimNames,
		DimSizes:     dimSizes,
		X0:           gridX0,
		Y0:           gridY0,
		Dx:           gridDx,
		Dy:           gridDy,
		Unit:         unit,
		MissingValue: missing,
		Values:       values,
	})
}

// meanTemp is the monthly mean air temperature in degC: warm at the equator,
// with a seasonal cycle that peaks in July north of the equator and in
// January south of it.
func meanTemp(lat float64, month int) float64 {
	base := 28*math.Cos(lat*degToRad) - 8
	seasonal := 12 * (lat / 90) * math.Cos(2*math.Pi*float64(month-7)/12)
	return base + seasonal
}

// esat is saturation vapour pressure in kPa (Magnus form).
func esat(tempC float64) float64 {
	return 0.6108 * math.Exp(17.27*tempC/(tempC+237.3))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func sq(x float64) float64 { return x * x }

func writeClimate(dir string) error {
	fields := []struct {
		name string
		unit string
		at   func(lon, lat float64, month int) float64
	}{
		{"tmin", "0.1 degC", func(lon, lat float64, m int) float64 {
			return 10 * (meanTemp(lat, m) - 5)
		}},
		{"tmax", "0.1 degC", func(lon, lat float64, m int) float64 {
			return 10 * (meanTemp(lat, m) + 5)
		}},
		{"tavg", "0.1 degC", func(lon, lat float64, m int) float64 {
			return 10 * meanTemp(lat, m)
		}},
		{"vapr", "kPa", func(lon, lat float64, m int) float64 {
			return 0.7 * esat(meanTemp(lat, m)-5)
		}},
		{"srad", "kJ m-2 day-1", func(lon, lat float64, m int) float64 {
			phase := math.Cos(2 * math.Pi * float64(m-7) / 12)
			return clamp(8000+11000*math.Cos(lat*degToRad)+6500*(lat/90)*phase, 500, 30000)
		}},
		{"prec", "mm", func(lon, lat float64, m int) float64 {
			wet := 0.6 + 0.4*math.Sin(2*math.Pi*float64(m-1)/12+lon*degToRad)
			return clamp(30+130*sq(math.Cos(lat*degToRad))*wet, 0, 400)
		}},
	}

	for _, f := range fields {
		values := gridValues(12, func(frame int, lon, lat float64) float64 {
			return f.at(lon, lat, frame+1)
		})
		path := filepath.Join(dir, f.name+".nc")
		if err := writeGrid(path, f.name, f.unit, []string{"month", "y", "x"}, []int{12, gridNy, gridNx}, nil, values); err != nil {
			return err
		}
		log.Printf("climate/%s.nc: 12 months", f.name)
	}
	return nil
}

func writeTopo(dir string) error {
	elv := gridValues(1, func(_ int, lon, lat float64) float64 {
		if math.Abs(lat) > polarCutoffDeg {
			return float64(missingElv)
		}
		terrain := 420 + 380*math.Sin(lon*math.Pi/60)*math.Cos(lat*math.Pi/45) + 260*math.Sin(lat*math.Pi/30)
		return clamp(terrain, 0, 4000)
	})
	mv := missingElv
	if err := writeGrid(filepath.Join(dir, "elv.nc"), "elv", "m", []string{"y", "x"}, []int{gridNy, gridNx}, &mv, elv); err != nil {
		return err
	}
	log.Printf("topo/elv.nc: missing above |lat| %g", polarCutoffDeg)

	fapar := gridValues(1, func(_ int, lon, lat float64) float64 {
		return clamp(0.85*sq(math.Cos(lat*degToRad))+0.1*math.Sin(lon*math.Pi/40), 0, 0.98)
	})
	if err := writeGrid(filepath.Join(dir, "fapar.nc"), "fapar", "1", []string{"y", "x"}, []int{gridNy, gridNx}, nil, fapar); err != nil {
		return err
	}
	log.Printf("topo/fapar.nc")
	return nil
}

func writeSoil(dir string) error {
	const layers = 6
	fields := []struct {
		name string
		at   func(lon, lat float64, layer int) float64
	}{
		{"sand", func(lon, lat float64, l int) float64 {
			return clamp(42-2.5*float64(l)+18*math.Sin(lon*math.Pi/70)*math.Cos(lat*math.Pi/50), 2, 95)
		}},
		{"silt", func(lon, lat float64, l int) float64 {
			return clamp(34+0.8*float64(l)+12*math.Cos(lon*math.Pi/70), 2, 70)
		}},
		{"clay", func(lon, lat float64, l int) float64 {
			return clamp(22+1.8*float64(l)-10*math.Sin(lon*math.Pi/70), 2, 60)
		}},
	}

	for _, f := range fields {
		values := gridValues(layers, func(frame int, lon, lat float64) float64 {
			return f.at(lon, lat, frame+1)
		})
		path := filepath.Join(dir, f.name+".nc")
		if err := writeGrid(path, f.name, "%", []string{"layer", "y", "x"}, []int{layers, gridNy, gridNx}, nil, values); err != nil {
			return err
		}
		log.Printf("soil/%s.nc: %d layers", f.name, layers)
	}
	return nil
}

func writeNdep(dir string) error {
	fields := []struct {
		name string
		at   func(lon, lat float64, year int) float64
	}{
		{"noy", func(lon, lat float64, y int) float64 {
			base := 0.08 + 0.9*math.Exp(-sq((lat-40)/25))*(0.5+0.5*math.Cos(2*lon*degToRad))
			return base * (1 + 0.012*float64(y-ndepYearStart))
		}},
		{"nhx", func(lon, lat float64, y int) float64 {
			base := 0.06 + 0.8*math.Exp(-sq((lat-30)/20))*(0.5+0.5*math.Sin(2*lon*degToRad+1))
			return base * (1 + 0.015*float64(y-ndepYearStart))
		}},
	}

	written := 0
	for y := ndepYearStart; y <= ndepYearEnd; y++ {
		if y == ndepGapYear {
			log.Printf("ndep: skipping %d (archive gap year)", y)
			continue
		}
		for _, f := range fields {
			values := gridValues(1, func(_ int, lon, lat float64) float64 {
				return f.at(lon, lat, y)
			})
			path := filepath.Join(dir, fmt.Sprintf("%s_%d.nc", f.name, y))
			if err := writeGrid(path, f.name, "gN m-2 yr-1", []string{"y", "x"}, []int{gridNy, gridNx}, nil, values); err != nil {
				return err
			}
			written++
		}
	}
	log.Printf("ndep: wrote %d year files", written)
	return nil
}

func writeCO2(dir string) error {
	var b strings.Builder
	b.WriteString("year,co2\n")
	for y := co2YearStart; y <= co2YearEnd; y++ {
		t := float64(y - co2YearStart)
		fmt.Fprintf(&b, "%d,%.2f\n", y, 338.8+1.55*t+0.0062*t*t)
	}
	if err := os.WriteFile(filepath.Join(dir, "co2_annual.csv"), []byte(b.String()), 0o600); err != nil {
		return err
	}
	log.Printf("co2/co2_annual.csv: %d..%d", co2YearStart, co2YearEnd)
	return nil
}

// writeSites writes the fixture site list. SJ-Adv sits in the polar band
// where the elevation raster is missing, so its table elevation comes from
// this file instead.
func writeSites(path string) error {
	const sites = `site_id,lon,lat,elv
CH-Lae,8.365,47.478,689
FI-Hyy,24.295,61.847,181
US-Ha1,-72.171,42.538,340
AU-Tum,148.152,-35.657,1200
BR-Sa3,-54.971,-3.018,100
DE-Hai,10.453,51.079,NA
FR-Pue,3.596,43.741,270
GF-Guy,-52.925,5.279,NA
US-SRM,-110.866,31.821,1120
ZA-Kru,31.497,-25.020,359
SJ-Adv,15.923,78.186,17
SE-Svb,19.775,64.256,NA
`
	return os.WriteFile(path, []byte(sites), 0o600)
}

func writeJob(outDir string) ([]pipeline.SourceJob, error) {
	jobs := []pipeline.SourceJob{
		{Name: "climate", SourceSpec: domain.SourceSpec{
			Kind:      domain.KindMonthlyStack,
			Variables: []string{"tmin", "tmax", "tavg", "vapr", "srad", "prec"},
			TimeScale: domain.TimeScaleMonthly,
			Dir:       filepath.Join(outDir, "climate"),
		}},
		{Name: "topo", SourceSpec: domain.SourceSpec{
			Kind:      domain.KindPointRaster,
			Variables: []string{"elv", "fapar"},
			Dir:       filepath.Join(outDir, "topo"),
		}},
		{Name: "soil", SourceSpec: domain.SourceSpec{
			Kind:      domain.KindSoilLayers,
			Variables: []string{"sand", "clay"},
			Layers:    []int{1, 2, 3},
			Dir:       filepath.Join(outDir, "soil"),
		}},
		{Name: "ndep", SourceSpec: domain.SourceSpec{
			Kind:       domain.KindAnnualSeries,
			Variables:  []string{"noy", "nhx"},
			TimeScale:  domain.TimeScaleYearly,
			YearStart:  ndepYearStart,
			YearEnd:    ndepYearEnd,
			Composites: map[string][]string{"ndep": {"noy", "nhx"}},
			Dir:        filepath.Join(outDir, "ndep"),
		}},
		{Name: "co2", SourceSpec: domain.SourceSpec{
			Kind:      domain.KindCO2Archive,
			Variables: []string{"co2"},
			TimeScale: domain.TimeScaleYearly,
			YearStart: ndepYearStart,
			YearEnd:   ndepYearEnd,
			Dir:       filepath.Join(outDir, "co2"),
		}},
	}

	data, err := json.MarshalIndent(jobFile{Sources: jobs}, "", "  ")
	if err != nil {
		return nil, err
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(outDir, "job.json"), data, 0o600); err != nil {
		return nil, err
	}
	return jobs, nil
}

func runPipeline(sites []domain.Site, jobs []pipeline.SourceJob) (*domain.SiteTable, []pipeline.SourceStatus, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := netcdf.NewCache(32, nil)
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
		logger,
		observability.NewMetricsForTesting(),
	)
	table, err := p.Run(context.Background(), sites, jobs)
	if err != nil {
		return nil, nil, err
	}
	return table, p.Status(), nil
}

func printTable(table *domain.SiteTable) {
	fmt.Println("\n=== Forcing table (for updating test assertions) ===")
	cols := table.Columns()
	fmt.Printf("%-8s", "site_id")
	for _, c := range cols {
		fmt.Printf(" %10s", c)
	}
	fmt.Println()
	for _, id := range table.SiteIDs() {
		fmt.Printf("%-8s", id)
		for _, c := range cols {
			v := table.Value(id, c)
			if math.IsNaN(v) {
				fmt.Printf(" %10s", "NA")
			} else {
				fmt.Printf(" %10.4g", v)
			}
		}
		fmt.Println()
	}
}
