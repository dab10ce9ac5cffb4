// Package domain models point-located environmental observations and their
// harmonization into per-site forcing for a photosynthesis model.
//
// # Source Data
//
// Observations come from directory-backed sources of four structural
// families, each behind the [Source] contract: single global rasters
// (topography, fAPAR), monthly climatology raster stacks, depth-layered soil
// property rasters, and yearly archives (gridded nitrogen deposition, global
// atmospheric CO2). Adapters in internal/source own the file layouts; this
// package only sees [RawRecord] values.
//
// # Unit Conventions
//
// Raw records carry source-native units that the derive step normalizes:
//
//	tmin/tmax/tavg  0.1 degC        → degC (×0.1)
//	vapr            kPa             → Pa   (×1000)
//	srad            kJ m-2 day-1    → PPFD in mol m-2 s-1
//	prec            mm              → mm (passes through)
//
// The downstream model contract fixes the output columns and units:
//
//	tc     degC          growing-season mean growth temperature
//	vpd    Pa            growing-season mean vapor pressure deficit
//	co2    ppm           multi-year mean atmospheric CO2
//	fapar  unitless 0–1  fraction of absorbed photosynthetic radiation
//	ppfd   mol m-2 s-1   growing-season mean photon flux density
//	elv    m             site elevation
//
// # Derived Quantities
//
// Saturation vapor pressure follows the Magnus form
// esat(T) = 0.6108·exp(17.27·T/(T+237.3)) kPa. VPD is the mean of the
// deficits at the daily extremes, (esat(tmin)−eact + esat(tmax)−eact)/2,
// because esat is strongly convex in temperature and a VPD computed at the
// mean temperature biases low. Growth temperature weights the extremes by the
// daylight fraction f of the mid-month day: tgrowth = f·tmax + (1−f)·tmin,
// with f from the sunset hour angle of a Cooper-declination day-length model.
// All numeric constants live in [DeriveConfig]; see [DefaultDeriveConfig].
//
// # Missing Values
//
// NaN is the missing-value marker throughout ([Missing], [IsMissing]). A site
// outside a source's coverage, a gap year in an archive, or an underivable
// field yields NaN, never an error and never a dropped record. Aggregation
// excludes NaN from means; a mean over zero retained values is itself NaN.
//
// # Ordering
//
// Record slices are ordered (site in input order, then time or layer
// ascending, then variable in request order) and every operation preserves
// that ordering, so repeated runs over the same inputs produce identical
// tables regardless of how callers parallelize extraction.
package domain
