package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriodBound(t *testing.T) {
	start, err := parsePeriodBound("2026-01-01", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), start)

	end, err := parsePeriodBound("2026-03-31", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 31, 23, 59, 59, 999999999, time.UTC), end)

	exact, err := parsePeriodBound("2026-03-31T12:00:00-03:00", true)
	require.NoError(t, err)
	assert.Equal(t, 15, exact.UTC().Hour())

	_, err = parsePeriodBound("31/03/2026", false)
	assert.Error(t, err)
}
