package domain

// SourceKind enumerates the source families the registry can dispatch to.
type SourceKind string

const (
	// KindPointRaster is a single global raster, one value per site
	// (elevation, fAPAR).
	KindPointRaster SourceKind = "point-raster"

	// KindMonthlyStack is a 12-slice climatology raster stack, one value per
	// site per month.
	KindMonthlyStack SourceKind = "monthly-stack"

	// KindSoilLayers is a depth-layered soil property raster, one value per
	// site per requested layer.
	KindSoilLayers SourceKind = "soil-layers"

	// KindAnnualSeries is a gridded yearly archive with one raster file per
	// year (nitrogen deposition).
	KindAnnualSeries SourceKind = "annual-series"

	// KindCO2Archive is a global (non-spatial) yearly CO2 record.
	KindCO2Archive SourceKind = "co2-archive"
)

// TimeScale is the temporal granularity a source is read at.
type TimeScale string

const (
	TimeScaleMonthly TimeScale = "m"
	TimeScaleYearly  TimeScale = "y"
	TimeScaleDaily   TimeScale = "d"
)

// SourceSpec configures one extraction: which source family, which of its
// variables, and where its files live. The zero values of the optional
// fields mean "not set"; which fields are required depends on Kind and is
// enforced by extract.Extractor before any I/O.
type SourceSpec struct {
	Kind      SourceKind `json:"kind" validate:"required"`
	Variables []string   `json:"variables" validate:"required,min=1,dive,required"`
	Layers    []int      `json:"layers,omitempty" validate:"omitempty,min=1,unique,dive,gte=1"`
	TimeScale TimeScale  `json:"time_scale,omitempty" validate:"omitempty,oneof=m y d"`
	YearStart int        `json:"year_start,omitempty" validate:"omitempty,gte=1500,lte=2500"`
	YearEnd   int        `json:"year_end,omitempty" validate:"omitempty,gte=1500,lte=2500"`
	Dir       string     `json:"dir" validate:"required"`

	// Composites adds summed columns after multi-year aggregation, e.g.
	// {"ndep": ["noy", "nhx"]} for total nitrogen deposition.
	Composites map[string][]string `json:"composites,omitempty" validate:"-"`

	// LayerMean collapses soil layers into one column per variable instead
	// of one column per (variable, layer).
	LayerMean bool `json:"layer_mean,omitempty"`
}

// Years lists the requested years in ascending order, empty when the spec
// has no year range.
func (s SourceSpec) Years() []int {
	if s.YearStart == 0 || s.YearEnd == 0 || s.YearEnd < s.YearStart {
		return nil
	}
	years := make([]int, 0, s.YearEnd-s.YearStart+1)
	for y := s.YearStart; y <= s.YearEnd; y++ {
		years = append(years, y)
	}
	return years
}
