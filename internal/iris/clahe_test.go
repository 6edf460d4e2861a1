package iris

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rampImage fills an image with a horizontal intensity ramp over [lo, hi].
func rampImage(rows, cols int, lo, hi int) *Image {
	img := NewImage(rows, cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			img.Set(y, x, uint8(lo+(hi-lo)*x/(cols-1)))
		}
	}
	return img
}

func intensityRange(img *Image) int {
	min, max := img.Pix[0], img.Pix[0]
	for _, v := range img.Pix {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return int(max) - int(min)
}

func TestEqualizeStretchesLowContrast(t *testing.T) {
	t.Parallel()

	// Low-contrast noise in [100, 140]; every tile sees the full value
	// spread, so equalization must widen it substantially.
	rng := rand.New(rand.NewSource(7))
	src := NewImage(256, 256)
	defer src.Release()
	for i := range src.Pix {
		src.Pix[i] = uint8(100 + rng.Intn(41))
	}

	eq := Equalize(src)
	defer eq.Release()

	require.Equal(t, src.Rows, eq.Rows)
	require.Equal(t, src.Cols, eq.Cols)
	assert.Greater(t, intensityRange(eq), 2*intensityRange(src),
		"equalization should widen a 40-level spread")
}

func TestEqualizeDeterministic(t *testing.T) {
	t.Parallel()

	src := rampImage(64, 96, 0, 255)
	defer src.Release()

	a := Equalize(src)
	defer a.Release()
	b := Equalize(src)
	defer b.Release()

	assert.Equal(t, a.Pix, b.Pix)
}

func TestEqualizeDoesNotConsumeInput(t *testing.T) {
	t.Parallel()

	src := rampImage(32, 32, 50, 200)
	before := append([]uint8(nil), src.Pix...)

	eq := Equalize(src)
	eq.Release()

	assert.Equal(t, before, src.Pix)
	src.Release()
}

func TestEqualizeTinyImageFallsBackToGlobal(t *testing.T) {
	t.Parallel()

	src := NewImage(4, 4)
	defer src.Release()
	for i := range src.Pix {
		src.Pix[i] = uint8(i * 16)
	}

	eq := Equalize(src)
	defer eq.Release()
	assert.Equal(t, 4, eq.Rows)
	assert.Equal(t, 4, eq.Cols)
}

func TestTileLUTMonotonic(t *testing.T) {
	t.Parallel()

	src := rampImage(32, 32, 0, 255)
	defer src.Release()

	lut := tileLUT(src, 0, 0, 32, 32, claheClipLimit)
	require.Len(t, lut, 256)
	for i := 1; i < 256; i++ {
		assert.GreaterOrEqual(t, lut[i], lut[i-1], "LUT must be non-decreasing at %d", i)
	}
}

func TestInterpWeight(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, interpWeight(5, 10, 20), "below range clamps to 0")
	assert.Equal(t, 0.5, interpWeight(15, 10, 20))
	assert.Equal(t, 1.0, interpWeight(25, 10, 20), "above range clamps to 1")
	assert.Equal(t, 0.0, interpWeight(15, 10, 10), "degenerate anchors")
}
