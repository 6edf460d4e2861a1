package iris

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessResizesToCanonicalWidth(t *testing.T) {
	t.Parallel()

	src := rampImage(960, 1280, 0, 255)
	out, scale := Preprocess(src)
	defer out.Release()

	assert.Equal(t, CanonicalWidth, out.Cols)
	assert.Equal(t, 480, out.Rows, "aspect ratio preserved")
	assert.InDelta(t, 0.5, scale, 1e-9)
}

func TestPreprocessPreviewWidth(t *testing.T) {
	t.Parallel()

	src := rampImage(480, 640, 0, 255)
	out, scale := PreprocessPreview(src)
	defer out.Release()

	assert.Equal(t, PreviewWidth, out.Cols)
	assert.Equal(t, 240, out.Rows)
	assert.InDelta(t, 0.5, scale, 1e-9)
}

func TestResizeNoopAtTargetWidth(t *testing.T) {
	t.Parallel()

	src := rampImage(100, CanonicalWidth, 0, 255)
	out, scale := resizeToWidth(src, CanonicalWidth)
	defer out.Release()

	assert.Same(t, src, out)
	assert.Equal(t, 1.0, scale)
}

func TestResizePreservesConstantRegions(t *testing.T) {
	t.Parallel()

	src := NewImage(200, 400)
	for i := range src.Pix {
		src.Pix[i] = 137
	}
	out, _ := resizeToWidth(src, 200)
	defer out.Release()

	require.Equal(t, 200, out.Cols)
	for _, v := range out.Pix {
		require.Equal(t, uint8(137), v, "bilinear resize of a flat field stays flat")
	}
}

func TestResizeUpscales(t *testing.T) {
	t.Parallel()

	src := rampImage(60, 80, 0, 255)
	out, scale := resizeToWidth(src, 160)
	defer out.Release()

	assert.Equal(t, 160, out.Cols)
	assert.Equal(t, 120, out.Rows)
	assert.InDelta(t, 2.0, scale, 1e-9)
}
