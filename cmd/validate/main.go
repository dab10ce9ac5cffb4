// Command validate checks a produced forcing table against the site list it
// was generated from: row structure, the photosynthesis-model input contract,
// physical value ranges, and missing-value accounting.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -sites testdata/fixture/sites.csv \
//	  -table out/forcing.csv
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"

	"github.com/pepaaran/ingestr/internal/domain"
	"github.com/pepaaran/ingestr/internal/sitefile"
)

// contractColumns are the inputs the photosynthesis model reads from the
// table. A table missing any of them cannot drive the model.
var contractColumns = []string{"tc", "vpd", "co2", "fapar", "ppfd", "elv"}

// rangeCheck bounds the plausible values of one column.
type rangeCheck struct {
	column    string
	lo, hi    float64
	exclusive bool
}

var rangeChecks = []rangeCheck{
	{column: "tc", lo: -90, hi: 60},
	{column: "vpd", lo: 0, hi: 12000},
	{column: "co2", lo: 150, hi: 1200, exclusive: true},
	{column: "fapar", lo: 0, hi: 1},
	{column: "ppfd", lo: 0, hi: 0.01},
	{column: "elv", lo: -430, hi: 8850},
}

func (rc rangeCheck) bounds() string {
	if rc.exclusive {
		return fmt.Sprintf("(%g, %g)", rc.lo, rc.hi)
	}
	return fmt.Sprintf("[%g, %g]", rc.lo, rc.hi)
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	sitesPath := flag.String("sites", "", "path to the input site list CSV")
	tablePath := flag.String("table", "", "path to the produced forcing table CSV")
	flag.Parse()

	if *sitesPath == "" || *tablePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*sitesPath, *tablePath); code != 0 {
		os.Exit(code)
	}
}

func run(sitesPath, tablePath string) int {
	// ── Load inputs ──
	fmt.Println("=== Forcing Table Validation ===")
	fmt.Println()

	sites, err := sitefile.ReadSites(sitesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load sites: %v\n", err)
		return 1
	}

	table, err := sitefile.ReadTable(tablePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load table: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateStructure(sites, table),
		validateContract(table),
		validateRanges(table),
		validateMissing(table),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d sites in, %d rows out, %d columns\n",
		len(sites), len(table.SiteIDs()), len(table.Columns()))

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Structure ──
// One output row per input site, in input order, with no extras.

func validateStructure(sites []domain.Site, table *domain.SiteTable) *phase {
	p := &phase{name: "Phase 1: Structure (rows vs site list)"}

	rows := table.SiteIDs()
	haveRow := make(map[string]bool, len(rows))
	for _, id := range rows {
		haveRow[id] = true
	}
	known := make(map[string]bool, len(sites))
	for _, s := range sites {
		known[s.ID] = true
		if !haveRow[s.ID] {
			p.errorf("site %s has no output row", s.ID)
		}
	}
	for _, id := range rows {
		if !known[id] {
			p.errorf("row %s does not correspond to any input site", id)
		}
	}

	if len(rows) == len(sites) {
		for i, s := range sites {
			if rows[i] != s.ID {
				p.errorf("row %d: expected %s, got %s (order differs from site list)", i, s.ID, rows[i])
				break
			}
		}
	}
	return p
}

// ── Phase 2: Model Input Contract ──
// Every column the photosynthesis model reads must be present.

func validateContract(table *domain.SiteTable) *phase {
	p := &phase{name: "Phase 2: Model Input Contract"}

	have := make(map[string]bool, len(table.Columns()))
	for _, c := range table.Columns() {
		have[c] = true
	}
	for _, c := range contractColumns {
		if !have[c] {
			p.errorf("contract column %q is missing", c)
		}
	}
	return p
}

// ── Phase 3: Value Ranges ──
// Present values must be physically plausible; NA cells are skipped here and
// accounted for in phase 4.

func validateRanges(table *domain.SiteTable) *phase {
	p := &phase{name: "Phase 3: Value Ranges"}

	have := make(map[string]bool, len(table.Columns()))
	for _, c := range table.Columns() {
		have[c] = true
	}

	for _, rc := range rangeChecks {
		if !have[rc.column] {
			continue // absence is phase 2's finding
		}
		var finite []float64
		for _, id := range table.SiteIDs() {
			v := table.Value(id, rc.column)
			if math.IsNaN(v) {
				continue
			}
			finite = append(finite, v)
			if outOfRange(v, rc) {
				p.errorf("%s: %s = %g outside %s", id, rc.column, v, rc.bounds())
			}
		}
		if len(finite) > 0 {
			fmt.Printf("  %-6s min %-12.6g max %-12.6g (%d values)\n",
				rc.column, floats.Min(finite), floats.Max(finite), len(finite))
		}
	}
	return p
}

func outOfRange(v float64, rc rangeCheck) bool {
	if rc.exclusive {
		return v <= rc.lo || v >= rc.hi
	}
	return v < rc.lo || v > rc.hi
}

// ── Phase 4: Missing Values ──
// NA is legitimate for individual cells; a column or row that is entirely NA
// means a source produced nothing and the run should not be trusted.

func validateMissing(table *domain.SiteTable) *phase {
	p := &phase{name: "Phase 4: Missing Values"}

	rows := table.SiteIDs()
	cols := table.Columns()
	if len(rows) == 0 {
		p.errorf("table has no rows")
		return p
	}

	for _, col := range cols {
		missing := 0
		for _, id := range rows {
			if math.IsNaN(table.Value(id, col)) {
				missing++
			}
		}
		if missing == len(rows) {
			p.errorf("column %s: every value is NA", col)
		} else if missing > 0 {
			fmt.Printf("  Note: column %s has %d/%d NA values\n", col, missing, len(rows))
		}
	}

	for _, id := range rows {
		missing := 0
		for _, col := range cols {
			if math.IsNaN(table.Value(id, col)) {
				missing++
			}
		}
		if len(cols) > 0 && missing == len(cols) {
			p.errorf("site %s: every value is NA", id)
		}
	}
	return p
}
