package iris

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedianBlurRemovesImpulseNoise(t *testing.T) {
	t.Parallel()

	src := NewImage(21, 21)
	defer src.Release()
	for i := range src.Pix {
		src.Pix[i] = 100
	}
	src.Set(10, 10, 255)

	out := MedianBlur(src, 7)
	defer out.Release()
	assert.Equal(t, uint8(100), out.At(10, 10), "a lone outlier cannot survive a 7x7 median")
}

func TestMedianBlurPreservesFlatField(t *testing.T) {
	t.Parallel()

	src := NewImage(16, 16)
	defer src.Release()
	for i := range src.Pix {
		src.Pix[i] = 42
	}

	out := MedianBlur(src, 7)
	defer out.Release()
	for _, v := range out.Pix {
		require.Equal(t, uint8(42), v)
	}
}

func TestMedianBlurEvenKernelRoundsUp(t *testing.T) {
	t.Parallel()

	src := NewImage(8, 8)
	defer src.Release()
	out := MedianBlur(src, 6)
	defer out.Release()
	assert.Equal(t, src.Rows, out.Rows)
	assert.Equal(t, src.Cols, out.Cols)
}

func TestLaplacianVarianceOrdersByTexture(t *testing.T) {
	t.Parallel()

	flat := NewImage(64, 64)
	defer flat.Release()
	for i := range flat.Pix {
		flat.Pix[i] = 128
	}

	rng := rand.New(rand.NewSource(3))
	noisy := NewImage(64, 64)
	defer noisy.Release()
	for i := range noisy.Pix {
		noisy.Pix[i] = uint8(rng.Intn(256))
	}

	roi := Rect{X0: 0, Y0: 0, X1: 64, Y1: 64}
	assert.Equal(t, 0.0, LaplacianVariance(flat, roi))
	assert.Greater(t, LaplacianVariance(noisy, roi), 100.0)
}

func TestLaplacianVarianceEmptyROI(t *testing.T) {
	t.Parallel()

	img := NewImage(8, 8)
	defer img.Release()
	assert.Equal(t, 0.0, LaplacianVariance(img, Rect{X0: 20, Y0: 20, X1: 30, Y1: 30}))
}

func TestBrightFraction(t *testing.T) {
	t.Parallel()

	img := NewImage(10, 10)
	defer img.Release()
	for i := 0; i < 25; i++ {
		img.Pix[i] = 255
	}

	roi := Rect{X0: 0, Y0: 0, X1: 10, Y1: 10}
	assert.InDelta(t, 0.25, brightFraction(img, roi, 230), 1e-9)
	assert.Equal(t, 0.0, brightFraction(img, Rect{X0: 50, Y0: 50, X1: 60, Y1: 60}, 230))
}

func TestSobelDetectsVerticalEdge(t *testing.T) {
	t.Parallel()

	img := NewImage(8, 8)
	defer img.Release()
	for y := 0; y < 8; y++ {
		for x := 4; x < 8; x++ {
			img.Set(y, x, 200)
		}
	}

	gx, gy := sobel(img)
	// Strong horizontal gradient on the edge column, none vertically.
	assert.Greater(t, gx[3*8+4], 100.0)
	assert.Equal(t, 0.0, gy[3*8+4])
}
