// Package source implements the extraction adapters, one per source family.
// Each adapter owns its directory layout and native-unit vocabulary and
// reduces a file collection to flat raw records; harmonization and
// aggregation happen downstream. Sites outside a grid's coverage yield
// missing-value records, never errors, so one bad site cannot sink a batch.
package source

import (
	"errors"
	"fmt"
	"os"

	"github.com/pepaaran/ingestr/internal/adapter/netcdf"
	"github.com/pepaaran/ingestr/internal/domain"
)

// openGrid loads a grid through the shared cache, classifying failures:
// a variable missing from the file keeps its identity, anything else is
// the source being unavailable.
func openGrid(cache *netcdf.Cache, path, variable string) (*netcdf.Grid, error) {
	g, err := cache.Open(path, variable)
	if err != nil {
		if errors.Is(err, domain.ErrVariableNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	return g, nil
}

// requireDir verifies the source directory exists before any per-file work.
func requireDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: source directory %s: %w", domain.ErrSourceUnavailable, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrSourceUnavailable, dir)
	}
	return nil
}
