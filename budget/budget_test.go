package budget

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTotalForRAMUsesTieredRatio(t *testing.T) {
	require.Equal(t, int64(float64(8*giB)*0.12), TotalForRAM(8*giB))
	require.Equal(t, int64(float64(16*giB)*0.14), TotalForRAM(16*giB))
	// 16% of 32 GiB and 18% of 64 GiB both exceed the 4 GiB ceiling.
	require.Equal(t, int64(maxTotal), TotalForRAM(32*giB))
	require.Equal(t, int64(maxTotal), TotalForRAM(64*giB))
}

func TestTotalForRAMClampsToMinAndMax(t *testing.T) {
	require.Equal(t, int64(minTotal), TotalForRAM(1*giB))
	require.Equal(t, int64(maxTotal), TotalForRAM(256*giB))
}

func TestSplitTotalProportions(t *testing.T) {
	s := SplitTotal(1000)
	require.Equal(t, int64(700), s.Viewport)
	require.Equal(t, int64(200), s.Thumbnail)
	require.Equal(t, int64(100), s.Inflight)
}

func TestDetectPhysicalRAMHonorsEnvOverride(t *testing.T) {
	t.Setenv(ramOverrideEnv, "16")
	require.Equal(t, int64(16*giB), DetectPhysicalRAM())
}

func TestDetectPhysicalRAMIgnoresInvalidOverride(t *testing.T) {
	t.Setenv(ramOverrideEnv, "not-a-number")
	// Falls through to /proc/meminfo or the fallback; either way it must
	// not panic and must return a positive value.
	require.Greater(t, DetectPhysicalRAM(), int64(0))
}

func TestMonitorTransitionsThroughPressureStates(t *testing.T) {
	split := SplitTotal(1000)
	m := NewMonitor(split)

	require.Equal(t, Normal, m.Sample(100, 0, 0))
	require.Equal(t, Warm, m.Sample(750, 0, 0))
	require.Equal(t, Hot, m.Sample(900, 0, 0))
	require.Equal(t, Critical, m.Sample(960, 0, 0))

	// Level-triggered, not hysteretic: a drop immediately returns to Normal.
	require.Equal(t, Normal, m.Sample(50, 0, 0))
}

func TestMonitorSumsAllThreeComponents(t *testing.T) {
	split := SplitTotal(1000)
	m := NewMonitor(split)
	require.Equal(t, Critical, m.Sample(400, 400, 200))
}

func TestPressureStateString(t *testing.T) {
	require.Equal(t, "Normal", Normal.String())
	require.Equal(t, "Critical", Critical.String())
}
