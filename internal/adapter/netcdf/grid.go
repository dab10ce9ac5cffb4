// Package netcdf reads and writes the NetCDF classic-format grids the
// ingestion sources extract from. A Grid is one variable of one file loaded
// whole into memory; georeferencing comes from the global attributes
// x0, y0, dx, dy, nx, ny describing a regular lon/lat mesh.
package netcdf

import (
	"fmt"
	"math"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"

	"github.com/pepaaran/ingestr/internal/domain"
)

// Grid is a single gridded variable with a regular lon/lat mesh. The last
// two dimensions are (y, x); any leading dimension (month, soil layer) is
// addressed as a frame.
type Grid struct {
	path     string
	variable string
	unit     string

	x0, y0 float64 // outer edge of cell (0, 0)
	dx, dy float64
	nx, ny int

	frames  int
	data    *sparse.DenseArray // shaped (frames, ny, nx)
	missing float64            // NaN when the file declares no missing_value
}

// OpenGrid loads one variable of a NetCDF file into memory. The file must
// carry the x0/y0/dx/dy/nx/ny global attributes; the variable's trailing
// dimensions must match (ny, nx).
func OpenGrid(path, variable string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open grid %s: %w", path, err)
	}
	defer f.Close()

	cf, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("parse grid %s: %w", path, err)
	}

	g := &Grid{path: path, variable: variable, missing: math.NaN()}

	if g.x0, err = globalFloat(cf, "x0"); err != nil {
		return nil, fmt.Errorf("grid %s: %w", path, err)
	}
	if g.y0, err = globalFloat(cf, "y0"); err != nil {
		return nil, fmt.Errorf("grid %s: %w", path, err)
	}
	if g.dx, err = globalFloat(cf, "dx"); err != nil {
		return nil, fmt.Errorf("grid %s: %w", path, err)
	}
	if g.dy, err = globalFloat(cf, "dy"); err != nil {
		return nil, fmt.Errorf("grid %s: %w", path, err)
	}
	nx, err := globalFloat(cf, "nx")
	if err != nil {
		return nil, fmt.Errorf("grid %s: %w", path, err)
	}
	ny, err := globalFloat(cf, "ny")
	if err != nil {
		return nil, fmt.Errorf("grid %s: %w", path, err)
	}
	g.nx, g.ny = int(nx), int(ny)
	if g.nx <= 0 || g.ny <= 0 || g.dx <= 0 || g.dy <= 0 {
		return nil, fmt.Errorf("grid %s: degenerate mesh %dx%d cells of %gx%g", path, g.nx, g.ny, g.dx, g.dy)
	}

	if !hasVariable(cf, variable) {
		return nil, fmt.Errorf("grid %s: variable %q: %w", path, variable, domain.ErrVariableNotFound)
	}

	dims := cf.Header.Lengths(variable)
	if len(dims) < 2 {
		return nil, fmt.Errorf("grid %s: variable %q has %d dimensions, need at least (y, x)", path, variable, len(dims))
	}
	if dims[len(dims)-1] != g.nx || dims[len(dims)-2] != g.ny {
		return nil, fmt.Errorf("grid %s: variable %q shaped %v does not end in (%d, %d)",
			path, variable, dims, g.ny, g.nx)
	}
	g.frames = 1
	for _, d := range dims[:len(dims)-2] {
		g.frames *= d
	}

	if u, ok := varAttrString(cf, variable, "units"); ok {
		g.unit = u
	}
	if mv, ok := varAttrFloat(cf, variable, "missing_value"); ok {
		g.missing = mv
	}

	r := cf.Reader(variable, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("grid %s: reading %q: %w", path, variable, err)
	}

	g.data = sparse.ZerosDense(g.frames, g.ny, g.nx)
	if err := fillDense(g.data, buf); err != nil {
		return nil, fmt.Errorf("grid %s: variable %q: %w", path, variable, err)
	}
	return g, nil
}

// Variable returns the loaded variable name.
func (g *Grid) Variable() string { return g.variable }

// Unit returns the variable's units attribute, empty when the file has none.
func (g *Grid) Unit() string { return g.unit }

// Frames returns the number of leading-dimension slices, 1 for a flat grid.
func (g *Grid) Frames() int { return g.frames }

// Bounds returns the grid's outer extent.
func (g *Grid) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: g.x0, Y: g.y0},
		Max: geom.Point{X: g.x0 + g.dx*float64(g.nx), Y: g.y0 + g.dy*float64(g.ny)},
	}
}

// Contains reports whether the point falls inside the grid extent, after
// longitude normalization into the grid's convention.
func (g *Grid) Contains(lon, lat float64) bool {
	p := geom.Point{X: g.normLon(lon), Y: lat}
	return g.Bounds().Overlaps(p.Bounds())
}

// CellIndex maps a point to its (ix, iy) cell, or ok=false when the point
// lies outside the grid.
func (g *Grid) CellIndex(lon, lat float64) (ix, iy int, ok bool) {
	lon = g.normLon(lon)
	ix = int(math.Floor((lon - g.x0) / g.dx))
	iy = int(math.Floor((lat - g.y0) / g.dy))
	if ix < 0 || ix >= g.nx || iy < 0 || iy >= g.ny {
		return 0, 0, false
	}
	return ix, iy, true
}

// ValueAt returns the cell value under the point for one frame. Points
// outside the grid and cells equal to the file's missing_value read as NaN.
func (g *Grid) ValueAt(frame int, lon, lat float64) float64 {
	if frame < 0 || frame >= g.frames {
		return math.NaN()
	}
	ix, iy, ok := g.CellIndex(lon, lat)
	if !ok {
		return math.NaN()
	}
	v := g.data.Get(frame, iy, ix)
	if !math.IsNaN(g.missing) && v == g.missing {
		return math.NaN()
	}
	return v
}

// normLon shifts a longitude by whole turns until it falls in the grid's
// x range when possible, so -180..180 sites hit 0..360 grids and vice versa.
func (g *Grid) normLon(lon float64) float64 {
	xMax := g.x0 + g.dx*float64(g.nx)
	for lon < g.x0 && lon+360 <= xMax {
		lon += 360
	}
	for lon >= xMax && lon-360 >= g.x0 {
		lon -= 360
	}
	return lon
}

func hasVariable(f *cdf.File, name string) bool {
	for _, v := range f.Header.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

// globalFloat reads a numeric global attribute. The writers in the wild
// disagree on attribute width, so every numeric encoding is accepted.
func globalFloat(f *cdf.File, name string) (float64, error) {
	v, ok := attrFloat(f.Header.GetAttribute("", name))
	if !ok {
		return 0, fmt.Errorf("missing or non-numeric global attribute %q", name)
	}
	return v, nil
}

func varAttrFloat(f *cdf.File, variable, name string) (float64, bool) {
	return attrFloat(f.Header.GetAttribute(variable, name))
}

func varAttrString(f *cdf.File, variable, name string) (string, bool) {
	s, ok := f.Header.GetAttribute(variable, name).(string)
	return s, ok
}

func attrFloat(attr interface{}) (float64, bool) {
	switch a := attr.(type) {
	case []float64:
		if len(a) > 0 {
			return a[0], true
		}
	case []float32:
		if len(a) > 0 {
			return float64(a[0]), true
		}
	case []int32:
		if len(a) > 0 {
			return float64(a[0]), true
		}
	case []int16:
		if len(a) > 0 {
			return float64(a[0]), true
		}
	}
	return 0, false
}

// fillDense copies a cdf read buffer into the array, widening the file's
// native value type. The buffer length must match the array shape.
func fillDense(d *sparse.DenseArray, buf interface{}) error {
	switch b := buf.(type) {
	case []float64:
		return widen(d.Elements, b)
	case []float32:
		return widen(d.Elements, b)
	case []int32:
		return widen(d.Elements, b)
	case []int16:
		return widen(d.Elements, b)
	case []int8: // cdf stores bytes as int8
		return widen(d.Elements, b)
	default:
		return fmt.Errorf("unsupported value type %T", buf)
	}
}

func widen[T int8 | int16 | int32 | float32 | float64](dst []float64, src []T) error {
	if len(src) != len(dst) {
		return fmt.Errorf("holds %d values, dimensions say %d", len(src), len(dst))
	}
	for i, v := range src {
		dst[i] = float64(v)
	}
	return nil
}
