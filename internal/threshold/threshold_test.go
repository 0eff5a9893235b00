package threshold

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		value float64
		want  Band
	}{
		{0, BandGood},
		{160, BandGood},
		{160.0001, BandWarning},
		{199.9, BandWarning},
		{200, BandWarning},
		{200.0001, BandExceeded},
		{500, BandExceeded},
	}
	for _, tc := range cases {
		got, err := Classify(tc.value, 200)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "value %v", tc.value)
	}
}

func TestClassifyRejectsNonPositiveThreshold(t *testing.T) {
	for _, th := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := Classify(100, th)
		assert.ErrorIs(t, err, ErrInvalidThreshold)
	}
}

func TestClassifyIsMonotonic(t *testing.T) {
	rank := map[Band]int{BandGood: 0, BandWarning: 1, BandExceeded: 2}
	prev := BandGood
	for v := 0.0; v <= 400; v += 0.5 {
		got, err := Classify(v, 200)
		require.NoError(t, err)
		if rank[got] < rank[prev] {
			t.Fatalf("severity decreased at %v: %s -> %s", v, prev, got)
		}
		prev = got
	}
}

func TestClassifyAllScalesThresholds(t *testing.T) {
	bands, err := ClassifyAll(100, 1300, 6100, 200)
	require.NoError(t, err)
	assert.Equal(t, Bands{Today: BandGood, Weekly: BandWarning, Monthly: BandExceeded}, bands)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 85.0, Percent(170, 200))
	assert.Equal(t, 83.0, Percent(165, 199))
	assert.Equal(t, 0.0, Percent(10, 0))
}
