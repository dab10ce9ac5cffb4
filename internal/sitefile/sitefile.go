// Package sitefile reads and writes the CSV files at the pipeline boundary:
// the input site list and the harmonized per-site output table. Missing cells
// are "NA" on disk and NaN in memory.
package sitefile

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pepaaran/ingestr/internal/domain"
)

// missingCell is the on-disk marker for a missing value.
const missingCell = "NA"

// ReadSites loads a site list from a CSV file with columns site_id, lon and
// lat, plus an optional elv column. An empty or NA elv cell means the
// elevation is unknown. The returned list passes domain.ValidateSites.
func ReadSites(path string) ([]domain.Site, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read sites: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read sites %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read sites %s: empty file", path)
	}

	idx := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range []string{"site_id", "lon", "lat"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("read sites %s: missing column %q", path, col)
		}
	}
	elvCol, hasElv := idx["elv"]

	sites := make([]domain.Site, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2

		lon, err := strconv.ParseFloat(strings.TrimSpace(row[idx["lon"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("read sites %s line %d: lon: %w", path, line, err)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(row[idx["lat"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("read sites %s line %d: lat: %w", path, line, err)
		}

		site := domain.Site{
			ID:  strings.TrimSpace(row[idx["site_id"]]),
			Lon: lon,
			Lat: lat,
		}

		if hasElv {
			cell := strings.TrimSpace(row[elvCol])
			if cell != "" && cell != missingCell {
				elv, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, fmt.Errorf("read sites %s line %d: elv: %w", path, line, err)
				}
				site.Elevation = &elv
			}
		}

		sites = append(sites, site)
	}

	if err := domain.ValidateSites(sites); err != nil {
		return nil, fmt.Errorf("read sites %s: %w", path, err)
	}
	return sites, nil
}

// WriteTable writes a site table as CSV: a site_id column followed by one
// column per variable, rows in table order, NaN cells as NA. Parent
// directories are created as needed.
func WriteTable(path string, table *domain.SiteTable) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write table: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	columns := table.Columns()

	header := append([]string{"site_id"}, columns...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write table %s: %w", path, err)
	}

	for _, id := range table.SiteIDs() {
		row := make([]string, 0, len(header))
		row = append(row, id)
		for _, col := range columns {
			row = append(row, formatCell(table.Value(id, col)))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write table %s: %w", path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write table %s: %w", path, err)
	}
	return nil
}

// ReadTable loads a site table written by WriteTable. NA and empty cells read
// back as NaN.
func ReadTable(path string) (*domain.SiteTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read table %s: empty file", path)
	}

	header := rows[0]
	if len(header) == 0 || header[0] != "site_id" {
		return nil, fmt.Errorf("read table %s: header must start with site_id", path)
	}
	columns := header[1:]

	siteIDs := make([]string, 0, len(rows)-1)
	values := make([]map[string]float64, len(columns))
	for i := range values {
		values[i] = make(map[string]float64)
	}

	for i, row := range rows[1:] {
		line := i + 2
		id := row[0]
		siteIDs = append(siteIDs, id)

		for j, cell := range row[1:] {
			cell = strings.TrimSpace(cell)
			if cell == "" || cell == missingCell {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("read table %s line %d: column %s: %w", path, line, columns[j], err)
			}
			values[j][id] = v
		}
	}

	table := domain.NewSiteTable(siteIDs)
	for j, col := range columns {
		if err := table.AddColumn(col, values[j]); err != nil {
			return nil, fmt.Errorf("read table %s: %w", path, err)
		}
	}
	return table, nil
}

// formatCell renders one table cell, round-trippable through ReadTable.
func formatCell(v float64) string {
	if domain.IsMissing(v) {
		return missingCell
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
