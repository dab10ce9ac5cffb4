package sitefile_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepaaran/ingestr/internal/domain"
	"github.com/pepaaran/ingestr/internal/sitefile"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadSites(t *testing.T) {
	path := writeFile(t, "sites.csv",
		"site_id,lon,lat,elv\n"+
			"CH-Lae,8.365,47.478,689\n"+
			"FI-Hyy,24.295,61.847,NA\n"+
			"AU-Tum,148.152,-35.657,\n")

	sites, err := sitefile.ReadSites(path)
	require.NoError(t, err)
	require.Len(t, sites, 3)

	assert.Equal(t, "CH-Lae", sites[0].ID)
	assert.Equal(t, 8.365, sites[0].Lon)
	assert.Equal(t, 47.478, sites[0].Lat)
	require.NotNil(t, sites[0].Elevation)
	assert.Equal(t, 689.0, *sites[0].Elevation)

	assert.Nil(t, sites[1].Elevation, "NA elevation stays unknown")
	assert.Nil(t, sites[2].Elevation, "empty elevation stays unknown")
}

func TestReadSitesWithoutElevationColumn(t *testing.T) {
	path := writeFile(t, "sites.csv", "site_id,lon,lat\nCH-Lae,8.365,47.478\n")

	sites, err := sitefile.ReadSites(path)
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Nil(t, sites[0].Elevation)
}

func TestReadSitesColumnOrderIrrelevant(t *testing.T) {
	path := writeFile(t, "sites.csv", "lat,site_id,elv,lon\n47.478,CH-Lae,689,8.365\n")

	sites, err := sitefile.ReadSites(path)
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "CH-Lae", sites[0].ID)
	assert.Equal(t, 8.365, sites[0].Lon)
	assert.Equal(t, 47.478, sites[0].Lat)
}

func TestReadSitesErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"missing lat column", "site_id,lon\nCH-Lae,8.365\n", `missing column "lat"`},
		{"bad longitude", "site_id,lon,lat\nCH-Lae,east,47.478\n", "line 2: lon"},
		{"bad elevation", "site_id,lon,lat,elv\nCH-Lae,8.365,47.478,high\n", "line 2: elv"},
		{"duplicate site id", "site_id,lon,lat\nCH-Lae,8.365,47.478\nCH-Lae,8.4,47.5\n", "duplicate site id"},
		{"latitude out of range", "site_id,lon,lat\nCH-Lae,8.365,99\n", "latitude"},
		{"empty file", "", "empty file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "sites.csv", tt.content)
			_, err := sitefile.ReadSites(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestReadSitesFileMissing(t *testing.T) {
	_, err := sitefile.ReadSites(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestWriteTableReadTableRoundTrip(t *testing.T) {
	table := domain.NewSiteTable([]string{"a", "b"})
	require.NoError(t, table.AddColumn("tc", map[string]float64{"a": 15.5, "b": 12.25}))
	require.NoError(t, table.AddColumn("elv", map[string]float64{"a": 689}))

	path := filepath.Join(t.TempDir(), "out", "forcing.csv")
	require.NoError(t, sitefile.WriteTable(path, table))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "site_id,tc,elv\na,15.5,689\nb,12.25,NA\n", string(data))

	got, err := sitefile.ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.SiteIDs())
	assert.Equal(t, []string{"tc", "elv"}, got.Columns())
	assert.Equal(t, 15.5, got.Value("a", "tc"))
	assert.Equal(t, 689.0, got.Value("a", "elv"))
	assert.True(t, math.IsNaN(got.Value("b", "elv")), "NA reads back as NaN")
}

func TestWriteTableNoColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forcing.csv")
	require.NoError(t, sitefile.WriteTable(path, domain.NewSiteTable([]string{"a"})))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "site_id\na\n", string(data))
}

func TestReadTableErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"wrong key column", "id,tc\na,1\n", "must start with site_id"},
		{"bad cell", "site_id,tc\na,warm\n", "line 2: column tc"},
		{"duplicate column", "site_id,tc,tc\na,1,2\n", "collision"},
		{"empty file", "", "empty file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "forcing.csv", tt.content)
			_, err := sitefile.ReadTable(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
