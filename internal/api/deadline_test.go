package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parseNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestParseDeadlineEmpty(t *testing.T) {
	deadline, err := ParseDeadline("", parseNow, time.UTC)
	require.NoError(t, err)
	assert.Nil(t, deadline)

	deadline, err = ParseDeadline("   ", parseNow, time.UTC)
	require.NoError(t, err)
	assert.Nil(t, deadline)
}

func TestParseDeadlineRelativeHours(t *testing.T) {
	deadline, err := ParseDeadline("+6h", parseNow, time.UTC)
	require.NoError(t, err)
	require.NotNil(t, deadline)
	assert.Equal(t, parseNow.Add(6*time.Hour), *deadline)
}

func TestParseDeadlineRelativeMinutes(t *testing.T) {
	deadline, err := ParseDeadline("+30m", parseNow, time.UTC)
	require.NoError(t, err)
	require.NotNil(t, deadline)
	assert.Equal(t, parseNow.Add(30*time.Minute), *deadline)
}

func TestParseDeadlineAbsoluteInDisplayZone(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)

	deadline, err := ParseDeadline("2024-08-12 15:00", parseNow, msk)
	require.NoError(t, err)
	require.NotNil(t, deadline)

	// 15:00 in the +3 zone is 12:00 UTC.
	assert.Equal(t, time.Date(2024, 8, 12, 12, 0, 0, 0, time.UTC), *deadline)
}

func TestParseDeadlineInvalid(t *testing.T) {
	for _, input := range []string{
		"+",
		"+h",
		"+6x",
		"+0h",
		"+-3h",
		"tomorrow",
		"2024-08-12",
		"2024-08-12T15:00:00Z",
	} {
		_, err := ParseDeadline(input, parseNow, time.UTC)
		assert.ErrorIs(t, err, ErrBadDeadline, "input %q", input)
	}
}
