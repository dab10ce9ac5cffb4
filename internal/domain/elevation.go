package domain

import "log/slog"

// FillElevationColumn reconciles the assembled table's "elv" column with
// site metadata. Caller-supplied elevations are the better measurement, so
// they win over raster-extracted values and fill sites the raster missed.
// When no source contributed an elv column at all, one is created from
// whatever metadata exists; with neither, the table is left untouched.
func FillElevationColumn(table *SiteTable, sites []Site, logger *slog.Logger) {
	if !table.HasColumn("elv") {
		values := make(map[string]float64)
		for _, s := range sites {
			if s.Elevation != nil {
				values[s.ID] = *s.Elevation
			}
		}
		if len(values) == 0 {
			return
		}
		if err := table.AddColumn("elv", values); err != nil {
			// Cannot happen: HasColumn said the name is free.
			logger.Warn("elevation column not added", "error", err)
			return
		}
		logger.Info("elevation column built from site metadata", "sites", len(values))
		return
	}

	overridden := 0
	for _, s := range sites {
		if s.Elevation == nil {
			continue
		}
		table.setValue(s.ID, "elv", *s.Elevation)
		overridden++
	}
	if overridden > 0 {
		logger.Debug("site metadata elevation applied", "sites", overridden)
	}
}
