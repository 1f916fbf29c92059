package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestChangePct(t *testing.T) {
	got := ChangePct(f(210), f(150))
	require.NotNil(t, got)
	assert.InDelta(t, 40.0, *got, 1e-9)

	got = ChangePct(f(50), f(100))
	require.NotNil(t, got)
	assert.InDelta(t, -50.0, *got, 1e-9)

	assert.Nil(t, ChangePct(nil, f(1)))
	assert.Nil(t, ChangePct(f(1), nil))
	assert.Nil(t, ChangePct(f(1), f(0)))
}

func TestPctFromPeak(t *testing.T) {
	got := PctFromPeak(f(150), f(200))
	require.NotNil(t, got)
	assert.InDelta(t, 25.0, *got, 1e-9)

	got = PctFromPeak(f(200), f(200))
	require.NotNil(t, got)
	assert.Equal(t, 0.0, *got)

	assert.Nil(t, PctFromPeak(nil, f(1)))
	assert.Nil(t, PctFromPeak(f(1), nil))
	assert.Nil(t, PctFromPeak(f(1), f(0)))
}

func TestChangePct_OverflowIsNil(t *testing.T) {
	assert.Nil(t, ChangePct(f(1e10), f(1e-300)))
	assert.Nil(t, ChangePct(f(-1e308), f(1e-10)))
	assert.Nil(t, ChangePct(f(math.Inf(1)), f(1)))
}

func TestPctFromPeak_OverflowIsNil(t *testing.T) {
	assert.Nil(t, PctFromPeak(f(-1e10), f(1e-300)))
	assert.Nil(t, PctFromPeak(f(1), f(math.NaN())))
}
