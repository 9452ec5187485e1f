package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	nz := NewCountryNormalizer(DefaultCountryOverrides)

	tests := []struct {
		name     string
		code     string
		expected CountryCode
	}{
		{"plain ISO code", "AT", "AUT"},
		{"lowercase", "de", "DEU"},
		{"mixed case", "Ch", "CHE"},
		{"surrounding whitespace", " FR ", "FRA"},
		{"eurostat greece", "EL", "GRC"},
		{"lowercase eurostat greece", "el", "GRC"},
		{"iso greece", "GR", "GRC"},
		{"eurostat united kingdom", "UK", "GBR"},
		{"iso united kingdom", "GB", "GBR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := nz.Normalize(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, code)
		})
	}
}

func TestNormalizeRejectsBadLength(t *testing.T) {
	nz := NewCountryNormalizer(DefaultCountryOverrides)

	tests := []struct {
		name string
		code string
	}{
		{"single letter", "G"},
		{"three letters", "GRC"},
		{"full name", "Greece"},
		{"empty", ""},
		{"whitespace only", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := nz.Normalize(tt.code)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCodeLength)
		})
	}
}

func TestNormalizeRejectsUnknownCode(t *testing.T) {
	nz := NewCountryNormalizer(DefaultCountryOverrides)

	for _, code := range []string{"XX", "QQ", "Z9"} {
		t.Run(code, func(t *testing.T) {
			_, err := nz.Normalize(code)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnknownCountryCode)
			assert.Contains(t, err.Error(), code)
		})
	}
}

func TestNormalizeEquivalences(t *testing.T) {
	nz := NewCountryNormalizer(DefaultCountryOverrides)

	t.Run("EL and GR agree", func(t *testing.T) {
		el, err := nz.Normalize("EL")
		require.NoError(t, err)
		gr, err := nz.Normalize("GR")
		require.NoError(t, err)
		assert.Equal(t, gr, el)
	})

	t.Run("UK and GB agree", func(t *testing.T) {
		uk, err := nz.Normalize("UK")
		require.NoError(t, err)
		gb, err := nz.Normalize("GB")
		require.NoError(t, err)
		assert.Equal(t, gb, uk)
	})

	t.Run("case does not matter", func(t *testing.T) {
		lower, err := nz.Normalize("el")
		require.NoError(t, err)
		upper, err := nz.Normalize("EL")
		require.NoError(t, err)
		assert.Equal(t, upper, lower)
	})

	t.Run("repeated calls are stable", func(t *testing.T) {
		first, err := nz.Normalize("UK")
		require.NoError(t, err)
		second, err := nz.Normalize("UK")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestNormalizeCustomOverrides(t *testing.T) {
	// The override table is injected, not hardwired: an alternate table
	// changes the rewrite without touching registry lookup.
	nz := NewCountryNormalizer(map[string]string{"EL": "DE"})

	code, err := nz.Normalize("EL")
	require.NoError(t, err)
	assert.Equal(t, CountryCode("DEU"), code)

	// Codes outside the table still resolve directly.
	code, err = nz.Normalize("GR")
	require.NoError(t, err)
	assert.Equal(t, CountryCode("GRC"), code)
}

func TestNormalizeCountryName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected CountryCode
	}{
		{"plain name", "Austria", "AUT"},
		{"aliased UK", "UK", "GBR"},
		{"aliased czech", "Czech Rep.", "CZE"},
		{"aliased bosnia", "Bosnia Herz.", "BIH"},
		{"aliased macedonia", "Macedonia", "MKD"},
		{"germany", "Germany", "DEU"},
		{"whitespace", " France ", "FRA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := NormalizeCountryName(tt.input, DefaultNameAliases)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, code)
		})
	}

	t.Run("unresolvable name", func(t *testing.T) {
		_, err := NormalizeCountryName("Atlantis", DefaultNameAliases)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownCountryCode)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := NormalizeCountryName("", DefaultNameAliases)
		assert.ErrorIs(t, err, ErrUnknownCountryCode)
	})
}
