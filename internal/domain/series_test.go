package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInflowSeriesTotal(t *testing.T) {
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	s := InflowSeries{
		PlantID: "H1",
		Steps:   hourlySteps(start, 3),
		Volumes: []float64{36000, 18000, 0},
	}

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 54000.0, s.Total())
}

func TestInflowSeriesEmpty(t *testing.T) {
	var s InflowSeries
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0.0, s.Total())
}
