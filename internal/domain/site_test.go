package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSites(t *testing.T) {
	tests := []struct {
		name    string
		sites   []Site
		wantErr string
	}{
		{
			name: "valid",
			sites: []Site{
				{ID: "CH-Lae", Lon: 8.365, Lat: 47.478},
				{ID: "BR-Sa3", Lon: -54.971, Lat: -3.018},
			},
		},
		{
			name:  "longitude in 0..360 convention accepted",
			sites: []Site{{ID: "RU-SkP", Lon: 237.5, Lat: 62.255}},
		},
		{
			name:    "empty id",
			sites:   []Site{{ID: "", Lon: 0, Lat: 0}},
			wantErr: "empty id",
		},
		{
			name: "duplicate id",
			sites: []Site{
				{ID: "CH-Lae", Lon: 8.365, Lat: 47.478},
				{ID: "CH-Lae", Lon: 8.4, Lat: 47.5},
			},
			wantErr: `duplicate site id "CH-Lae"`,
		},
		{
			name:    "latitude out of range",
			sites:   []Site{{ID: "x", Lon: 0, Lat: 91}},
			wantErr: "latitude",
		},
		{
			name:    "longitude out of range",
			sites:   []Site{{ID: "x", Lon: -190, Lat: 0}},
			wantErr: "longitude",
		},
		{
			name:  "empty list",
			sites: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSites(tt.sites)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSiteIDs(t *testing.T) {
	sites := []Site{{ID: "b"}, {ID: "a"}, {ID: "c"}}
	assert.Equal(t, []string{"b", "a", "c"}, SiteIDs(sites))
}

func TestSourceSpecYears(t *testing.T) {
	tests := []struct {
		name string
		spec SourceSpec
		want []int
	}{
		{"range", SourceSpec{YearStart: 1998, YearEnd: 2001}, []int{1998, 1999, 2000, 2001}},
		{"single year", SourceSpec{YearStart: 2005, YearEnd: 2005}, []int{2005}},
		{"unset", SourceSpec{}, nil},
		{"inverted", SourceSpec{YearStart: 2010, YearEnd: 2000}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.spec.Years())
		})
	}
}
