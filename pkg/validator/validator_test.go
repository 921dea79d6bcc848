package validator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string `json:"name" validate:"required,notblank"`
	Date   string `json:"date" validate:"required,timestamp"`
	Points int    `json:"pointsValue" validate:"positive"`
}

func TestValidate_OK(t *testing.T) {
	err := Validate(context.Background(), sample{Name: "Seminar", Date: "2025-01-01T10:00", Points: 10})
	assert.NoError(t, err)
}

func TestValidate_ReportsJSONFieldName(t *testing.T) {
	err := Validate(context.Background(), sample{Date: "2025-01-01", Points: 1})
	require.Error(t, err)
	assert.Equal(t, ErrFieldRequired+": name", err.Error())

	err = Validate(context.Background(), sample{Name: "   ", Date: "2025-01-01", Points: 1})
	require.Error(t, err)
	assert.Equal(t, ErrFieldBlank+": name", err.Error())

	err = Validate(context.Background(), sample{Name: "x", Date: "yesterday", Points: 1})
	require.Error(t, err)
	assert.Equal(t, ErrInvalidTimestamp+": date", err.Error())

	err = Validate(context.Background(), sample{Name: "x", Date: "2025-01-01", Points: 0})
	require.Error(t, err)
	assert.Equal(t, ErrNotPositive+": pointsValue", err.Error())
}

func TestParseTimestamp(t *testing.T) {
	cases := map[string]time.Time{
		"2025-01-01T10:00":          time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		"2025-01-01T10:00:30":       time.Date(2025, 1, 1, 10, 0, 30, 0, time.UTC),
		"2025-01-01":                time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		"2025-01-01T10:00:00Z":      time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		"2025-01-01T12:00:00+02:00": time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: want %v got %v", in, want, got)
	}

	_, err := ParseTimestamp("01/02/2025")
	assert.Error(t, err)
}
