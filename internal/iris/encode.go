package iris

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Template layout. The template is a fixed-length float vector of 0/1
// values in two contiguous halves: code bits then mask bits. Both halves
// share the same bit order: filter blocks outermost, then radial grid row,
// then angular grid column, then the contiguous (real, imag) phase pair.
const (
	// GridCols and GridRows define the coarse sampling grid over the
	// cropped strip.
	GridCols = 32
	GridRows = 8
	// angularStep/radialStep are the grid pitches in cropped-strip pixels.
	angularStep = 8
	radialStep  = 6

	// eyelidCrop rows are removed from the top and bottom of the strip
	// before filtering.
	eyelidCrop  = 8
	croppedRows = RadialSamples - 2*eyelidCrop

	phaseBits = 2

	// CodeBits is the length of each template half.
	CodeBits = FilterCount * GridRows * GridCols * phaseBits
	// TemplateLen is the full template length: code then mask.
	TemplateLen = 2 * CodeBits
)

// Noise-mask and gating thresholds.
const (
	noiseCellMinStd  = 12.0
	noiseCellMinMean = 25.0
	noiseCellMaxMean = 240.0
	deadZoneFraction = 0.12
	MinValidFraction = 0.55
)

// Template is a binary iris code plus its occlusion mask, encoded as
// 0.0/1.0 floats for storage compatibility.
type Template []float64

// Code returns the code half of the template.
func (t Template) Code() []float64 { return t[:len(t)/2] }

// Mask returns the mask half of the template.
func (t Template) Mask() []float64 { return t[len(t)/2:] }

// ValidFraction is the fraction of mask bits set.
func (t Template) ValidFraction() float64 {
	mask := t.Mask()
	if len(mask) == 0 {
		return 0
	}
	n := 0.0
	for _, v := range mask {
		n += v
	}
	return n / float64(len(mask))
}

// bitIndex maps (filter, grid row, grid col, phase bit) to a bit offset
// within one template half. Columns vary fastest inside a row so a circular
// column shift uses the same stride arithmetic for every filter.
func bitIndex(f, r, c, b int) int {
	return ((f*GridRows+r)*GridCols+c)*phaseBits + b
}

// Encode turns a normalized strip into a template. The strip is equalized,
// cropped by the eyelid zone, padded (circular in angle, replicate in
// radius), filtered by the Gabor bank at the coarse grid, and each complex
// response quantized to two phase bits. Mask bits are cleared by the
// noise-mask cells and by per-filter dead zones; if fewer than
// MinValidFraction of mask bits survive, encoding fails with
// ErrEncodingTooNoisy. The strip is not consumed.
func Encode(strip *Image) (Template, error) {
	if strip.Rows != RadialSamples || strip.Cols != AngularSamples {
		return nil, fmt.Errorf("encode: strip must be %dx%d, got %dx%d",
			RadialSamples, AngularSamples, strip.Rows, strip.Cols)
	}

	eq := Equalize(strip)
	defer eq.Release()
	cropped := cropEyelidZone(eq)
	defer cropped.Release()

	padded := padStrip(cropped)
	cellValid := noiseMask(cropped)

	tpl := make(Template, TemplateLen)
	code := tpl.Code()
	mask := tpl.Mask()

	// Every mask bit starts valid unless its noise cell is bad.
	for f := 0; f < FilterCount; f++ {
		for r := 0; r < GridRows; r++ {
			for c := 0; c < GridCols; c++ {
				v := 0.0
				if cellValid[r*GridCols+c] {
					v = 1.0
				}
				mask[bitIndex(f, r, c, 0)] = v
				mask[bitIndex(f, r, c, 1)] = v
			}
		}
	}

	bank := gaborBank()
	mags := make([]float64, GridRows*GridCols)
	for f, filt := range bank {
		maxMag := 0.0
		for r := 0; r < GridRows; r++ {
			for c := 0; c < GridCols; c++ {
				re := convolveAt(padded, filt.re, r*radialStep, c*angularStep)
				im := convolveAt(padded, filt.im, r*radialStep, c*angularStep)
				if re >= 0 {
					code[bitIndex(f, r, c, 0)] = 1.0
				}
				if im >= 0 {
					code[bitIndex(f, r, c, 1)] = 1.0
				}
				m := math.Sqrt(re*re + im*im)
				mags[r*GridCols+c] = m
				if m > maxMag {
					maxMag = m
				}
			}
		}
		// Dead-zone masking: phase is unreliable where the response
		// magnitude is near zero.
		floor := deadZoneFraction * maxMag
		for r := 0; r < GridRows; r++ {
			for c := 0; c < GridCols; c++ {
				if mags[r*GridCols+c] < floor {
					mask[bitIndex(f, r, c, 0)] = 0
					mask[bitIndex(f, r, c, 1)] = 0
				}
			}
		}
	}

	if tpl.ValidFraction() < MinValidFraction {
		return nil, fmt.Errorf("%w: valid fraction %.3f below %.2f",
			ErrEncodingTooNoisy, tpl.ValidFraction(), MinValidFraction)
	}
	return tpl, nil
}

// cropEyelidZone removes the top and bottom eyelid rows from the strip.
func cropEyelidZone(strip *Image) *Image {
	out := NewImage(croppedRows, strip.Cols)
	for r := 0; r < croppedRows; r++ {
		src := (r + eyelidCrop) * strip.Cols
		copy(out.Pix[r*out.Cols:(r+1)*out.Cols], strip.Pix[src:src+strip.Cols])
	}
	return out
}

// padStrip converts the cropped strip to double precision with circular
// padding in the angular dimension and replicate padding radially, sized by
// the kernel half extents.
func padStrip(cropped *Image) *mat.Dense {
	padR := gaborKernelRows / 2
	padC := gaborKernelCols / 2
	rows := cropped.Rows + 2*padR
	cols := cropped.Cols + 2*padC
	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		sr := clampInt(r-padR, 0, cropped.Rows-1)
		for c := 0; c < cols; c++ {
			sc := ((c-padC)%cropped.Cols + cropped.Cols) % cropped.Cols
			out.Set(r, c, float64(cropped.At(sr, sc)))
		}
	}
	return out
}

// noiseMask marks each grid cell valid or invalid from its pixel
// statistics: flat cells (eyelid skin, sensor shadow) and extreme-intensity
// cells (glare, dropout) carry no usable texture.
func noiseMask(cropped *Image) []bool {
	valid := make([]bool, GridRows*GridCols)
	cell := make([]float64, radialStep*angularStep)
	for r := 0; r < GridRows; r++ {
		for c := 0; c < GridCols; c++ {
			cell = cell[:0]
			for y := r * radialStep; y < (r+1)*radialStep; y++ {
				for x := c * angularStep; x < (c+1)*angularStep; x++ {
					cell = append(cell, float64(cropped.At(y, x)))
				}
			}
			mean := stat.Mean(cell, nil)
			sd := popStdDev(cell, mean)
			valid[r*GridCols+c] = sd >= noiseCellMinStd && mean >= noiseCellMinMean && mean <= noiseCellMaxMean
		}
	}
	return valid
}

// ValidCellFraction reports the fraction of noise-mask cells marked valid
// on a cropped strip; the quality scorer uses it as the occlusion
// sub-score.
func ValidCellFraction(cropped *Image) float64 {
	valid := noiseMask(cropped)
	n := 0
	for _, v := range valid {
		if v {
			n++
		}
	}
	return float64(n) / float64(len(valid))
}

// CropForOcclusion applies the encoder's equalize+crop preparation so the
// quality scorer measures occlusion on the same pixels the encoder will
// see. The strip is not consumed.
func CropForOcclusion(strip *Image) *Image {
	eq := Equalize(strip)
	defer eq.Release()
	return cropEyelidZone(eq)
}

func popStdDev(xs []float64, mean float64) float64 {
	var ss float64
	for _, v := range xs {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}
