package pixmap

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewZeroed(t *testing.T) {
	b := New(4, 4)
	require.Equal(t, 64, b.DecodedBytes())
	for _, v := range b.Bytes() {
		require.Zero(t, v)
	}
}

func TestSetAtRoundTrip(t *testing.T) {
	b := New(2, 2)
	b.Set(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	c := b.At(1, 1).(color.NRGBA)
	require.Equal(t, uint8(10), c.R)
	require.Equal(t, uint8(20), c.G)
	require.Equal(t, uint8(30), c.B)
}

func TestSubRegionInterior(t *testing.T) {
	src := New(4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	sub := SubRegion(src, 1, 1, 2, 2)
	c := sub.At(0, 0).(color.NRGBA)
	require.Equal(t, uint8(1), c.R)
	require.Equal(t, uint8(1), c.G)
}

func TestSubRegionClipsOutOfBounds(t *testing.T) {
	src := New(2, 2)
	sub := SubRegion(src, 1, 1, 4, 4)
	require.Equal(t, 4, sub.Width())
	require.Equal(t, 4, sub.Height())
}

func TestEqual(t *testing.T) {
	a := New(2, 2)
	b := New(2, 2)
	require.True(t, Equal(a, b))
	b.Set(0, 0, color.NRGBA{R: 1, A: 255})
	require.False(t, Equal(a, b))
}
