package domain

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlantType(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected PlantType
		ok       bool
	}{
		{"run of river", "HROR", RunOfRiver, true},
		{"reservoir", "HDAM", Reservoir, true},
		{"lowercase", "hror", RunOfRiver, true},
		{"padded", " HDAM ", Reservoir, true},
		{"pumped storage", "HPHS", "", false},
		{"unknown code", "HWAT", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, ok := ParsePlantType(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, typ)
		})
	}
}

func station(id, country, typ string) StationRecord {
	return StationRecord{
		ID:          id,
		CountryCode: country,
		Type:        typ,
		Lat:         "47.25",
		Lon:         "13.10",
		CapacityMW:  "24.0",
	}
}

func TestNormalizeStations(t *testing.T) {
	nz := NewCountryNormalizer(DefaultCountryOverrides)

	t.Run("filters to retained types in source order", func(t *testing.T) {
		recs := []StationRecord{
			station("H1", "AT", "HROR"),
			station("H2", "AT", "HPHS"),
			station("H3", "CH", "HDAM"),
			station("H4", "DE", "HWAT"),
			station("H5", "DE", "solar"),
		}

		plants, err := NormalizeStations(recs, nz)

		require.NoError(t, err)
		require.Len(t, plants, 2)
		assert.Equal(t, "H1", plants[0].ID)
		assert.Equal(t, RunOfRiver, plants[0].Type)
		assert.Equal(t, "H3", plants[1].ID)
		assert.Equal(t, Reservoir, plants[1].Type)
	})

	t.Run("rewrites eurostat codes", func(t *testing.T) {
		recs := []StationRecord{
			station("H1", "EL", "HROR"),
			station("H2", "UK", "HDAM"),
		}

		plants, err := NormalizeStations(recs, nz)

		require.NoError(t, err)
		assert.Equal(t, CountryCode("GRC"), plants[0].Country)
		assert.Equal(t, CountryCode("GBR"), plants[1].Country)
	})

	t.Run("parses coordinates and capacity", func(t *testing.T) {
		recs := []StationRecord{{
			ID:          "H1",
			Name:        " Kaprun ",
			CountryCode: "AT",
			Type:        "HDAM",
			Lat:         "47.25",
			Lon:         "12.75",
			CapacityMW:  "113",
		}}

		plants, err := NormalizeStations(recs, nz)

		require.NoError(t, err)
		assert.Equal(t, orb.Point{12.75, 47.25}, plants[0].Location)
		assert.Equal(t, 113.0, plants[0].CapacityMW)
		assert.Equal(t, "Kaprun", plants[0].Name)
	})

	t.Run("unknown code fails the whole load", func(t *testing.T) {
		recs := []StationRecord{
			station("H1", "AT", "HROR"),
			station("H2", "XX", "HDAM"),
			station("H3", "CH", "HROR"),
		}

		_, err := NormalizeStations(recs, nz)

		require.Error(t, err)
		var loadErr *PlantLoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, "H2", loadErr.PlantID)
		assert.ErrorIs(t, err, ErrUnknownCountryCode)
	})

	t.Run("bad code on a filtered row still fails", func(t *testing.T) {
		// Code validation runs over every row before the type filter; a row
		// that would be dropped anyway still gates the load.
		recs := []StationRecord{
			station("H1", "AT", "HROR"),
			station("H2", "Q", "HPHS"),
		}

		_, err := NormalizeStations(recs, nz)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidCodeLength)
		var loadErr *PlantLoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, "H2", loadErr.PlantID)
	})

	t.Run("duplicate ids fail", func(t *testing.T) {
		recs := []StationRecord{
			station("H1", "AT", "HROR"),
			station("H1", "AT", "HDAM"),
		}

		_, err := NormalizeStations(recs, nz)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("missing id fails", func(t *testing.T) {
		recs := []StationRecord{station("", "AT", "HROR")}

		_, err := NormalizeStations(recs, nz)

		require.Error(t, err)
		var loadErr *PlantLoadError
		assert.ErrorAs(t, err, &loadErr)
	})

	t.Run("malformed coordinate fails with plant id", func(t *testing.T) {
		rec := station("H9", "AT", "HROR")
		rec.Lat = "north-ish"

		_, err := NormalizeStations([]StationRecord{rec}, nz)

		require.Error(t, err)
		var loadErr *PlantLoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, "H9", loadErr.PlantID)
	})

	t.Run("capacity is lenient", func(t *testing.T) {
		a := station("H1", "AT", "HROR")
		a.CapacityMW = ""
		b := station("H2", "AT", "HROR")
		b.CapacityMW = "n/a"

		plants, err := NormalizeStations([]StationRecord{a, b}, nz)

		require.NoError(t, err)
		assert.Equal(t, 0.0, plants[0].CapacityMW)
		assert.Equal(t, 0.0, plants[1].CapacityMW)
	})

	t.Run("empty input", func(t *testing.T) {
		plants, err := NormalizeStations(nil, nz)
		require.NoError(t, err)
		assert.Empty(t, plants)
	})
}

func TestPlantLoadErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &PlantLoadError{PlantID: "H1", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "H1")
}
