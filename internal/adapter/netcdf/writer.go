package netcdf

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"
)

// FileSpec describes one gridded variable to write as a NetCDF file with the
// georeferencing attributes OpenGrid expects. DimNames and DimSizes order
// leading frames first and end in the (y, x) pair; Values is row-major with
// x fastest.
type FileSpec struct {
	Variable string
	DimNames []string
	DimSizes []int

	X0, Y0 float64
	Dx, Dy float64

	Unit         string
	MissingValue *float32
	Values       []float32
}

// WriteFile creates path as a NetCDF classic file holding one variable.
func WriteFile(path string, spec FileSpec) error {
	if len(spec.DimNames) != len(spec.DimSizes) {
		return fmt.Errorf("write grid %s: %d dimension names for %d sizes", path, len(spec.DimNames), len(spec.DimSizes))
	}
	if len(spec.DimSizes) < 2 {
		return fmt.Errorf("write grid %s: need at least (y, x) dimensions", path)
	}

	n := 1
	for _, d := range spec.DimSizes {
		n *= d
	}
	if len(spec.Values) != n {
		return fmt.Errorf("write grid %s: %d values for %d cells", path, len(spec.Values), n)
	}

	nx := spec.DimSizes[len(spec.DimSizes)-1]
	ny := spec.DimSizes[len(spec.DimSizes)-2]

	h := cdf.NewHeader(spec.DimNames, spec.DimSizes)
	h.AddAttribute("", "x0", []float64{spec.X0})
	h.AddAttribute("", "y0", []float64{spec.Y0})
	h.AddAttribute("", "dx", []float64{spec.Dx})
	h.AddAttribute("", "dy", []float64{spec.Dy})
	h.AddAttribute("", "nx", []int32{int32(nx)})
	h.AddAttribute("", "ny", []int32{int32(ny)})

	h.AddVariable(spec.Variable, spec.DimNames, []float32{0})
	if spec.Unit != "" {
		h.AddAttribute(spec.Variable, "units", spec.Unit)
	}
	if spec.MissingValue != nil {
		h.AddAttribute(spec.Variable, "missing_value", []float32{*spec.MissingValue})
	}
	h.Define()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write grid %s: %w", path, err)
	}
	defer f.Close()

	cf, err := cdf.Create(f, h)
	if err != nil {
		return fmt.Errorf("write grid %s: %w", path, err)
	}

	end := cf.Header.Lengths(spec.Variable)
	start := make([]int, len(end))
	w := cf.Writer(spec.Variable, start, end)
	if _, err := w.Write(spec.Values); err != nil {
		return fmt.Errorf("write grid %s: %w", path, err)
	}
	if err := cdf.UpdateNumRecs(f); err != nil {
		return fmt.Errorf("write grid %s: %w", path, err)
	}
	return nil
}
