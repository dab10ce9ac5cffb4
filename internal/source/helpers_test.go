package source

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pepaaran/ingestr/internal/adapter/netcdf"
	"github.com/pepaaran/ingestr/internal/domain"
)

// Test grids cover lon [0, 20), lat [0, 10) as two 10-degree cells side by
// side. siteWest sits in cell 0, siteEast in cell 1, siteFar off-grid.
var (
	siteWest = domain.Site{ID: "west", Lon: 5, Lat: 5}
	siteEast = domain.Site{ID: "east", Lon: 15, Lat: 5}
	siteFar  = domain.Site{ID: "far", Lon: 5, Lat: 55}
)

// writeFlatGrid writes <dir>/<variable>.nc over the two-cell test mesh.
func writeFlatGrid(t *testing.T, dir, variable, unit string, west, east float32) {
	t.Helper()
	err := netcdf.WriteFile(filepath.Join(dir, variable+".nc"), netcdf.FileSpec{
		Variable: variable,
		DimNames: []string{"y", "x"},
		DimSizes: []int{1, 2},
		X0:       0, Y0: 0,
		Dx: 10, Dy: 10,
		Unit:   unit,
		Values: []float32{west, east},
	})
	require.NoError(t, err)
}

// writeStackGrid writes <dir>/<variable>.nc with the given frames over the
// two-cell mesh; frame i holds {west+i, east+i} so every slice is distinct.
func writeStackGrid(t *testing.T, dir, variable, unit string, frames int, west, east float32) {
	t.Helper()
	values := make([]float32, 0, frames*2)
	for i := 0; i < frames; i++ {
		values = append(values, west+float32(i), east+float32(i))
	}
	err := netcdf.WriteFile(filepath.Join(dir, variable+".nc"), netcdf.FileSpec{
		Variable: variable,
		DimNames: []string{"t", "y", "x"},
		DimSizes: []int{frames, 1, 2},
		X0:       0, Y0: 0,
		Dx: 10, Dy: 10,
		Unit:   unit,
		Values: values,
	})
	require.NoError(t, err)
}

func newTestCache() *netcdf.Cache {
	return netcdf.NewCache(16, nil)
}
