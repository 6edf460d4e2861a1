package iris

import "math"

// CanonicalWidth is the width every full-pipeline image is resized to. All
// downstream radii and thresholds are calibrated against it.
const CanonicalWidth = 640

// PreviewWidth is the reduced width used by the quick-detect preview pass.
const PreviewWidth = 320

// Preprocess resizes the input to the canonical width and equalizes it.
// It consumes src and returns a new image plus the scale factor that was
// applied to reach the canonical width.
func Preprocess(src *Image) (*Image, float64) {
	return preprocessTo(src, CanonicalWidth)
}

// PreprocessPreview is the lightweight variant used during live detection.
func PreprocessPreview(src *Image) (*Image, float64) {
	return preprocessTo(src, PreviewWidth)
}

func preprocessTo(src *Image, width int) (*Image, float64) {
	scaled, scale := resizeToWidth(src, width)
	eq := Equalize(scaled)
	scaled.Release()
	return eq, scale
}

// resizeToWidth scales src to the given width with bilinear sampling,
// preserving aspect ratio (height rounded). It consumes src.
func resizeToWidth(src *Image, width int) (*Image, float64) {
	if src.Cols == width {
		return src, 1.0
	}
	scale := float64(width) / float64(src.Cols)
	height := int(math.Round(float64(src.Rows) * scale))
	if height < 1 {
		height = 1
	}
	dst := NewImage(height, width)
	for y := 0; y < height; y++ {
		sy := (float64(y)+0.5)/scale - 0.5
		y0 := int(math.Floor(sy))
		fy := sy - float64(y0)
		for x := 0; x < width; x++ {
			sx := (float64(x)+0.5)/scale - 0.5
			x0 := int(math.Floor(sx))
			fx := sx - float64(x0)

			p00 := float64(src.AtClamped(y0, x0))
			p01 := float64(src.AtClamped(y0, x0+1))
			p10 := float64(src.AtClamped(y0+1, x0))
			p11 := float64(src.AtClamped(y0+1, x0+1))
			top := p00*(1-fx) + p01*fx
			bot := p10*(1-fx) + p11*fx
			dst.Set(y, x, uint8(top*(1-fy)+bot*fy+0.5))
		}
	}
	src.Release()
	return dst, scale
}
