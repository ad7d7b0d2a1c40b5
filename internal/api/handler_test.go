package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodRange(t *testing.T) {
	now := time.Date(2026, 8, 30, 15, 4, 0, 0, time.Local)
	midnight := time.Date(2026, 8, 30, 0, 0, 0, 0, time.Local)
	tomorrow := midnight.AddDate(0, 0, 1)

	from, to, err := periodRange("dia", now)
	require.NoError(t, err)
	assert.Equal(t, midnight, from)
	assert.Equal(t, tomorrow, to)

	// Empty defaults to today.
	from, to, err = periodRange("", now)
	require.NoError(t, err)
	assert.Equal(t, midnight, from)
	assert.Equal(t, tomorrow, to)

	from, to, err = periodRange("semana", now)
	require.NoError(t, err)
	assert.Equal(t, midnight.AddDate(0, 0, -6), from)
	assert.Equal(t, tomorrow, to)

	from, to, err = periodRange("mes", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.Local), from)
	assert.Equal(t, tomorrow, to)
}

func TestPeriodRangeRejectsUnknown(t *testing.T) {
	_, _, err := periodRange("trimestre", time.Now())
	assert.Error(t, err)
}
