package domain

import (
	"math"
	"sort"
)

// midMonthDay is the representative day-of-year for each month (1-based
// index), used to evaluate the day-length model against monthly
// climatologies.
var midMonthDay = [13]int{0, 15, 46, 74, 105, 135, 166, 196, 227, 258, 288, 319, 349}

// MidMonthDay returns the representative day-of-year for month (1–12).
func MidMonthDay(month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	return midMonthDay[month]
}

// DeriveConfig carries every physical constant the derive step uses. All
// fields are explicit so callers can see, and tests can pin, the exact
// formulation; DefaultDeriveConfig gives the standard values.
type DeriveConfig struct {
	// Magnus saturation vapor pressure: esat = ESatBaseKPa ·
	// exp(ESatSlope·T / (T + ESatOffsetC)) in kPa, T in degC.
	ESatBaseKPa float64
	ESatSlope   float64
	ESatOffsetC float64

	// Unit rescaling.
	PaPerKPa      float64
	JoulesPerKJ   float64
	MolPerUmol    float64
	SecondsPerDay float64

	// Energy-to-photon conversion for shortwave radiation, in µmol per J of
	// photosynthetically active radiation.
	PhotonsPerJoule float64

	// Cooper solar declination: δ = AxialTiltDeg ·
	// sin(2π·(DeclinationPhaseDay + N)/DaysPerYear) degrees on day N.
	AxialTiltDeg        float64
	DeclinationPhaseDay float64
	DaysPerYear         float64

	// Tenths-of-degree temperature scaling used by the climatology storage.
	TempScale float64

	// International standard atmosphere, for pressure from elevation.
	SeaLevelPressurePa float64
	SeaLevelTempK      float64
	LapseRateKPerM     float64
	Gravity            float64
	MolarMassAir       float64
	GasConstant        float64
}

// DefaultDeriveConfig returns the standard constants: FAO-56 Magnus
// coefficients, 2.04 µmol/J flux-to-photon conversion, the Cooper (1969)
// declination, and the international standard atmosphere.
func DefaultDeriveConfig() DeriveConfig {
	return DeriveConfig{
		ESatBaseKPa: 0.6108,
		ESatSlope:   17.27,
		ESatOffsetC: 237.3,

		PaPerKPa:      1000,
		JoulesPerKJ:   1000,
		MolPerUmol:    1e-6,
		SecondsPerDay: 86400,

		PhotonsPerJoule: 2.04,

		AxialTiltDeg:        23.45,
		DeclinationPhaseDay: 284,
		DaysPerYear:         365,

		TempScale: 0.1,

		SeaLevelPressurePa: 101325,
		SeaLevelTempK:      288.15,
		LapseRateKPerM:     0.0065,
		Gravity:            9.80665,
		MolarMassAir:       0.028963,
		GasConstant:        8.3145,
	}
}

// SaturationVaporPressure returns esat in Pa at air temperature tempC.
func (c DeriveConfig) SaturationVaporPressure(tempC float64) float64 {
	kpa := c.ESatBaseKPa * math.Exp(c.ESatSlope*tempC/(tempC+c.ESatOffsetC))
	return kpa * c.PaPerKPa
}

// VaporPressureDeficit returns VPD in Pa from the actual vapor pressure
// eactPa and the daily temperature extremes. The deficit is computed at tmin
// and tmax separately and the two are averaged: esat is convex in
// temperature, so a single deficit at the mean temperature would bias low.
// With tmin = tmax the result degenerates to esat(t) − eact.
func (c DeriveConfig) VaporPressureDeficit(eactPa, tminC, tmaxC float64) float64 {
	dmin := c.SaturationVaporPressure(tminC) - eactPa
	dmax := c.SaturationVaporPressure(tmaxC) - eactPa
	return (dmin + dmax) / 2
}

// PhotonFlux converts daily shortwave radiation in kJ m-2 day-1 to
// photosynthetic photon flux density in mol m-2 s-1.
func (c DeriveConfig) PhotonFlux(sradKJ float64) float64 {
	return sradKJ * c.JoulesPerKJ * c.PhotonsPerJoule * c.MolPerUmol / c.SecondsPerDay
}

// SolarDeclination returns the sun's declination in radians on day-of-year
// doy, using the Cooper approximation.
func (c DeriveConfig) SolarDeclination(doy int) float64 {
	deg := c.AxialTiltDeg * math.Sin(2*math.Pi*(c.DeclinationPhaseDay+float64(doy))/c.DaysPerYear)
	return deg * math.Pi / 180
}

// DaylightFraction returns the fraction of the day the sun is above the
// horizon at latitude latDeg on day-of-year doy: ωs/π with
// cos ωs = −tan φ · tan δ. The cosine is clamped so polar night yields 0 and
// polar day yields 1.
func (c DeriveConfig) DaylightFraction(latDeg float64, doy int) float64 {
	lat := latDeg * math.Pi / 180
	decl := c.SolarDeclination(doy)

	cosOmega := -math.Tan(lat) * math.Tan(decl)
	switch {
	case cosOmega <= -1:
		return 1
	case cosOmega >= 1:
		return 0
	}
	return math.Acos(cosOmega) / math.Pi
}

// GrowthTemperature returns the day-length-weighted daytime temperature in
// degC for a (tmin, tmax) pair at latitude latDeg on day-of-year doy:
// f·tmax + (1−f)·tmin with f the daylight fraction. Longer days weight the
// daily maximum more, which is what makes tgrowth a daytime-representative
// value rather than a plain midpoint.
func (c DeriveConfig) GrowthTemperature(tminC, tmaxC, latDeg float64, doy int) float64 {
	if IsMissing(tminC) || IsMissing(tmaxC) {
		return Missing()
	}
	f := c.DaylightFraction(latDeg, doy)
	return f*tmaxC + (1-f)*tminC
}

// PressureFromElevation returns barometric pressure in Pa at elevation
// elvM, from the international standard atmosphere.
func (c DeriveConfig) PressureFromElevation(elvM float64) float64 {
	if IsMissing(elvM) {
		return Missing()
	}
	exponent := c.Gravity * c.MolarMassAir / (c.GasConstant * c.LapseRateKPerM)
	return c.SeaLevelPressurePa * math.Pow(1-c.LapseRateKPerM*elvM/c.SeaLevelTempK, exponent)
}

// NormalizeTemperature converts a stored tenths-of-degree value to degC.
func (c DeriveConfig) NormalizeTemperature(raw float64) float64 {
	return raw * c.TempScale
}

// DeriveClimate computes the derived monthly fields for one site from its
// monthly-stack raw records. For every month present in recs it emits one
// DerivedRecord whose Fields hold, when derivable from the requested
// variables: "tgrowth" (needs tmin+tmax), "vpd" (needs tmin+tmax+vapr),
// "ppfd" (needs srad), plus normalized "tavg" and pass-through "prec" when
// those were requested. A missing input makes the dependent fields NaN for
// that month only.
//
// Records for other sites are ignored, keeping the function pure per site as
// the pipeline groups records before calling it.
func DeriveClimate(site Site, recs []RawRecord, cfg DeriveConfig) []DerivedRecord {
	type monthly struct {
		values map[string]float64
	}
	byMonth := make(map[int]monthly)
	for _, r := range recs {
		if r.SiteID != site.ID || r.Month < 1 || r.Month > 12 {
			continue
		}
		m, ok := byMonth[r.Month]
		if !ok {
			m = monthly{values: make(map[string]float64)}
			byMonth[r.Month] = m
		}
		m.values[r.Variable] = r.Value
	}

	months := make([]int, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Ints(months)

	derived := make([]DerivedRecord, 0, len(months))
	for _, m := range months {
		raw := byMonth[m].values
		fields := make(map[string]float64)

		tmin, hasTmin := raw["tmin"]
		tmax, hasTmax := raw["tmax"]
		if hasTmin {
			tmin = cfg.NormalizeTemperature(tmin)
		}
		if hasTmax {
			tmax = cfg.NormalizeTemperature(tmax)
		}

		if hasTmin && hasTmax {
			fields["tgrowth"] = cfg.GrowthTemperature(tmin, tmax, site.Lat, MidMonthDay(m))
		} else if hasTmin || hasTmax {
			fields["tgrowth"] = Missing()
		}

		if vapr, ok := raw["vapr"]; ok {
			if hasTmin && hasTmax && !IsMissing(vapr) && !IsMissing(tmin) && !IsMissing(tmax) {
				fields["vpd"] = cfg.VaporPressureDeficit(vapr*cfg.PaPerKPa, tmin, tmax)
			} else {
				fields["vpd"] = Missing()
			}
		}

		if srad, ok := raw["srad"]; ok {
			if IsMissing(srad) {
				fields["ppfd"] = Missing()
			} else {
				fields["ppfd"] = cfg.PhotonFlux(srad)
			}
		}

		if tavg, ok := raw["tavg"]; ok {
			fields["tavg"] = cfg.NormalizeTemperature(tavg)
		}
		if prec, ok := raw["prec"]; ok {
			fields["prec"] = prec
		}

		derived = append(derived, DerivedRecord{SiteID: site.ID, Month: m, Fields: fields})
	}
	return derived
}

// ClimateOutputFields maps the requested raw climatology variables to the
// aggregated output columns they enable, in a fixed order: "tc" from
// tmin+tmax, "vpd" from tmin+tmax+vapr, "ppfd" from srad, then "tavg" and
// "prec" pass-throughs.
func ClimateOutputFields(variables []string) []string {
	requested := make(map[string]bool, len(variables))
	for _, v := range variables {
		requested[v] = true
	}

	var fields []string
	if requested["tmin"] && requested["tmax"] {
		fields = append(fields, "tc")
	}
	if requested["tmin"] && requested["tmax"] && requested["vapr"] {
		fields = append(fields, "vpd")
	}
	if requested["srad"] {
		fields = append(fields, "ppfd")
	}
	if requested["tavg"] {
		fields = append(fields, "tavg")
	}
	if requested["prec"] {
		fields = append(fields, "prec")
	}
	return fields
}
