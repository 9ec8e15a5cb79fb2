package yearparse

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
}

func grammar() Grammar {
	return Grammar{Prefix: "scorecard_", Now: fixedNow}
}

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"scorecard_2019.csv", 2019},
		{"scorecard_2021.csv", 2021},
		{"scorecard_2019_20.csv", 2019}, // optional academic-year fragment
		{"scorecard_2024.CSV", 2024},
		{"/data/scorecard/scorecard_2022.csv", 2022},
	}
	for _, tt := range tests {
		got, err := grammar().Parse(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name string
		want error
	}{
		{"scorecard_2021.txt", ErrExtension},
		{"scorecard_2021", ErrExtension},
		{"merged_2021.csv", ErrNoPrefix},
		{"scorecard_21.csv", ErrNoYear},
		{"scorecard_.csv", ErrNoYear},
		{"scorecard_2021_extra.csv", ErrBadSuffix},
		{"scorecard_2021x.csv", ErrBadSuffix},
		{"scorecard_1900.csv", ErrImplausibleYear}, // floor is exclusive
		{"scorecard_1823.csv", ErrImplausibleYear},
		{"scorecard_2025.csv", ErrImplausibleYear}, // beyond the clock year
	}
	for _, tt := range tests {
		_, err := grammar().Parse(tt.name)
		require.Error(t, err, tt.name)
		assert.True(t, errors.Is(err, tt.want), "%s: got %v, want %v", tt.name, err, tt.want)
	}
}

func TestParse_CurrentYearAccepted(t *testing.T) {
	got, err := grammar().Parse("scorecard_2024.csv")
	require.NoError(t, err)
	assert.Equal(t, 2024, got)
}

func TestParse_SuffixGrammar(t *testing.T) {
	g := Grammar{Prefix: "MERGED", Suffix: "_PP", Now: fixedNow}

	got, err := g.Parse("MERGED2019_20_PP.csv")
	require.NoError(t, err)
	assert.Equal(t, 2019, got)

	got, err = g.Parse("MERGED2021_PP.csv")
	require.NoError(t, err)
	assert.Equal(t, 2021, got)

	_, err = g.Parse("MERGED2021.csv")
	assert.True(t, errors.Is(err, ErrBadSuffix))
}

func TestParse_NeverDefaultsYear(t *testing.T) {
	// A non-matching filename reports rejection; there is no fallback year.
	year, err := grammar().Parse("institutions.csv")
	require.Error(t, err)
	assert.Zero(t, year)
}
