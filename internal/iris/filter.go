package iris

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MedianBlur returns a new image where every pixel is the median of the
// ksize×ksize window around it (replicate borders). ksize must be odd.
// A per-window 256-bin counting sort keeps this allocation-free per pixel.
func MedianBlur(src *Image, ksize int) *Image {
	if ksize%2 == 0 {
		ksize++
	}
	half := ksize / 2
	target := (ksize*ksize)/2 + 1
	dst := NewImage(src.Rows, src.Cols)

	var hist [256]int
	for y := 0; y < src.Rows; y++ {
		for x := 0; x < src.Cols; x++ {
			for i := range hist {
				hist[i] = 0
			}
			for dy := -half; dy <= half; dy++ {
				for dx := -half; dx <= half; dx++ {
					hist[src.AtClamped(y+dy, x+dx)]++
				}
			}
			cum := 0
			for v := 0; v < 256; v++ {
				cum += hist[v]
				if cum >= target {
					dst.Set(y, x, uint8(v))
					break
				}
			}
		}
	}
	return dst
}

// LaplacianVariance measures focus over a region as the population variance
// of the 4-neighbour Laplacian response. Higher means sharper.
func LaplacianVariance(src *Image, roi Rect) float64 {
	roi = roi.Intersect(src.Rows, src.Cols)
	if roi.Empty() {
		return 0
	}
	resp := make([]float64, 0, (roi.X1-roi.X0)*(roi.Y1-roi.Y0))
	for y := roi.Y0; y < roi.Y1; y++ {
		for x := roi.X0; x < roi.X1; x++ {
			c := float64(src.At(y, x))
			v := float64(src.AtClamped(y-1, x)) +
				float64(src.AtClamped(y+1, x)) +
				float64(src.AtClamped(y, x-1)) +
				float64(src.AtClamped(y, x+1)) - 4*c
			resp = append(resp, v)
		}
	}
	mean := stat.Mean(resp, nil)
	var ss float64
	for _, v := range resp {
		d := v - mean
		ss += d * d
	}
	return ss / float64(len(resp))
}

// sobel computes 3×3 Sobel gradients for the whole image.
func sobel(src *Image) (gx, gy []float64) {
	rows, cols := src.Rows, src.Cols
	gx = make([]float64, rows*cols)
	gy = make([]float64, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			p00 := float64(src.AtClamped(y-1, x-1))
			p01 := float64(src.AtClamped(y-1, x))
			p02 := float64(src.AtClamped(y-1, x+1))
			p10 := float64(src.AtClamped(y, x-1))
			p12 := float64(src.AtClamped(y, x+1))
			p20 := float64(src.AtClamped(y+1, x-1))
			p21 := float64(src.AtClamped(y+1, x))
			p22 := float64(src.AtClamped(y+1, x+1))
			gx[y*cols+x] = (p02 + 2*p12 + p22) - (p00 + 2*p10 + p20)
			gy[y*cols+x] = (p20 + 2*p21 + p22) - (p00 + 2*p01 + p02)
		}
	}
	return gx, gy
}

// brightFraction returns the fraction of ROI pixels strictly above the
// threshold. Used for specular-glare scoring.
func brightFraction(src *Image, roi Rect, threshold uint8) float64 {
	roi = roi.Intersect(src.Rows, src.Cols)
	if roi.Empty() {
		return 0
	}
	count, total := 0, 0
	for y := roi.Y0; y < roi.Y1; y++ {
		for x := roi.X0; x < roi.X1; x++ {
			if src.At(y, x) > threshold {
				count++
			}
			total++
		}
	}
	return float64(count) / float64(total)
}

// gradMag is the gradient magnitude; math.Hypot is overkill for Sobel
// outputs that cannot overflow.
func gradMag(gx, gy float64) float64 {
	return math.Sqrt(gx*gx + gy*gy)
}
