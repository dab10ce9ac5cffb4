package domain

import "fmt"

// SiteTable is a per-site table: one row per site in a fixed order, one
// column per harmonized variable. Cells default to NaN, so a site a source
// never reported still has a complete row.
type SiteTable struct {
	siteIDs []string
	columns []string
	byCol   map[string]map[string]float64
}

// NewSiteTable creates an empty table over the given site rows. Row order is
// fixed at construction and never changes.
func NewSiteTable(siteIDs []string) *SiteTable {
	ids := make([]string, len(siteIDs))
	copy(ids, siteIDs)
	return &SiteTable{
		siteIDs: ids,
		byCol:   make(map[string]map[string]float64),
	}
}

// SiteIDs returns the row keys in table order.
func (t *SiteTable) SiteIDs() []string { return t.siteIDs }

// Columns returns the column names in the order they were added.
func (t *SiteTable) Columns() []string { return t.columns }

// HasColumn reports whether the table carries the named column.
func (t *SiteTable) HasColumn(name string) bool {
	_, ok := t.byCol[name]
	return ok
}

// Value returns the cell for (siteID, column), NaN when the site was never
// assigned a value or the column does not exist.
func (t *SiteTable) Value(siteID, column string) float64 {
	col, ok := t.byCol[column]
	if !ok {
		return Missing()
	}
	v, ok := col[siteID]
	if !ok {
		return Missing()
	}
	return v
}

// AddColumn appends a column. Values are keyed by site ID; sites absent from
// values read as NaN, and values for sites outside the table's row set are
// dropped (rows are anchored to the site list, never extended by a source).
// Adding a name that already exists fails with ErrColumnCollision.
func (t *SiteTable) AddColumn(name string, values map[string]float64) error {
	if name == "" {
		return fmt.Errorf("add column: empty name")
	}
	if _, exists := t.byCol[name]; exists {
		return fmt.Errorf("add column %q: %w", name, ErrColumnCollision)
	}

	col := make(map[string]float64, len(values))
	for _, id := range t.siteIDs {
		if v, ok := values[id]; ok {
			col[id] = v
		}
	}
	t.byCol[name] = col
	t.columns = append(t.columns, name)
	return nil
}

// setValue overwrites one cell of an existing column. Unexported: general
// cell mutation would break the one-column-one-source invariant, but
// controlled enrichment (FillElevationColumn) needs it.
func (t *SiteTable) setValue(siteID, column string, v float64) {
	col, ok := t.byCol[column]
	if !ok {
		return
	}
	col[siteID] = v
}

// TableFromRecords builds a per-source table over siteIDs from aggregated
// records. Column order follows the records' variable first-appearance
// order, which the aggregators keep deterministic.
func TableFromRecords(siteIDs []string, records []AggregatedRecord) (*SiteTable, error) {
	t := NewSiteTable(siteIDs)

	var colOrder []string
	cols := make(map[string]map[string]float64)
	for _, r := range records {
		col, ok := cols[r.Variable]
		if !ok {
			col = make(map[string]float64)
			cols[r.Variable] = col
			colOrder = append(colOrder, r.Variable)
		}
		col[r.SiteID] = r.Value
	}

	for _, name := range colOrder {
		if err := t.AddColumn(name, cols[name]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Join left-joins per-source tables onto the full site list, in the order
// the tables are supplied. Every input site gets exactly one row; sites a
// source never reported read as NaN in that source's columns. Two tables
// contributing the same column name fail with ErrColumnCollision naming the
// column and the offending table position.
func Join(sites []Site, tables ...*SiteTable) (*SiteTable, error) {
	joined := NewSiteTable(SiteIDs(sites))

	for i, table := range tables {
		if table == nil {
			continue
		}
		for _, name := range table.Columns() {
			values := make(map[string]float64, len(joined.siteIDs))
			for _, id := range joined.siteIDs {
				if v := table.Value(id, name); !IsMissing(v) {
					values[id] = v
				}
			}
			if err := joined.AddColumn(name, values); err != nil {
				return nil, fmt.Errorf("join table %d: %w", i, err)
			}
		}
	}
	return joined, nil
}
