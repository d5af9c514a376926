package timezone_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormwatch/stormwatch/internal/timezone"
)

type stubFinder map[[2]float64]string

func (s stubFinder) GetTimezoneName(lng, lat float64) string {
	return s[[2]float64{lng, lat}]
}

func TestResolver_Location(t *testing.T) {
	finder := stubFinder{
		{-0.1257, 51.5085}: "Europe/London",
		{10.0, 10.0}:       "Mars/Olympus_Mons",
	}
	r := timezone.NewResolver(finder, zerolog.Nop())

	assert.Equal(t, "Europe/London", r.Location(51.5085, -0.1257, 0).String())
	assert.Equal(t, "UTC+05:30", r.Location(0, 0, 5*time.Hour+30*time.Minute).String())
	assert.Equal(t, "UTC-03:00", r.Location(10.0, 10.0, -3*time.Hour).String())
}

func TestResolver_NilFinder(t *testing.T) {
	r := timezone.NewResolver(nil, zerolog.Nop())

	loc := r.Location(51.5, 0, time.Hour)
	_, offset := time.Date(2026, 10, 18, 12, 0, 0, 0, loc).Zone()
	assert.Equal(t, 3600, offset)
}

func TestFixedZone(t *testing.T) {
	assert.Equal(t, "UTC+00:00", timezone.FixedZone(0).String())
	assert.Equal(t, "UTC-09:30", timezone.FixedZone(-(9*time.Hour + 30*time.Minute)).String())
}

func TestNewDefaultResolver(t *testing.T) {
	if testing.Short() {
		t.Skip("loads the full zone dataset")
	}

	r, err := timezone.NewDefaultResolver(zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "Asia/Tokyo", r.Location(35.6895, 139.6917, 0).String())
}
