package iris

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// The encoder's filter bank: eight asymmetric Gabor kernels, the cross
// product of four orientations and two wavelengths, each in a quadrature
// pair (ψ=0 real, ψ=π/2 imaginary). Kernels are 5 rows × 15 columns: narrow
// radially to avoid eyelid bleed, wide angularly to capture crypts and
// furrows.
const (
	gaborKernelRows = 5
	gaborKernelCols = 15
	gaborAspect     = 0.5
)

var (
	gaborOrientations = [4]float64{0, math.Pi / 4, math.Pi / 2, 3 * math.Pi / 4}
	gaborWavelengths  = [2]float64{6, 12}
)

// FilterCount is the number of filters in the encoder bank.
const FilterCount = len(gaborOrientations) * len(gaborWavelengths)

type gaborFilter struct {
	re *mat.Dense // ψ = 0, zero-mean
	im *mat.Dense // ψ = π/2
}

// gaborBank builds the eight-filter bank, orientation-major. The real
// kernel has its DC component removed so the response sign reflects local
// texture contrast rather than absolute brightness; the odd imaginary
// kernel is zero-mean by construction.
func gaborBank() []gaborFilter {
	bank := make([]gaborFilter, 0, FilterCount)
	for _, theta := range gaborOrientations {
		for _, lambda := range gaborWavelengths {
			bank = append(bank, gaborFilter{
				re: zeroMean(gaborKernel(theta, lambda, 0)),
				im: gaborKernel(theta, lambda, math.Pi/2),
			})
		}
	}
	return bank
}

func gaborKernel(theta, lambda, psi float64) *mat.Dense {
	sigma := lambda / 2
	k := mat.NewDense(gaborKernelRows, gaborKernelCols, nil)
	halfR := gaborKernelRows / 2
	halfC := gaborKernelCols / 2
	cosT, sinT := math.Cos(theta), math.Sin(theta)
	for y := -halfR; y <= halfR; y++ {
		for x := -halfC; x <= halfC; x++ {
			xr := float64(x)*cosT + float64(y)*sinT
			yr := -float64(x)*sinT + float64(y)*cosT
			env := math.Exp(-(xr*xr + gaborAspect*gaborAspect*yr*yr) / (2 * sigma * sigma))
			k.Set(y+halfR, x+halfC, env*math.Cos(2*math.Pi*xr/lambda+psi))
		}
	}
	return k
}

func zeroMean(k *mat.Dense) *mat.Dense {
	r, c := k.Dims()
	sum := mat.Sum(k)
	mean := sum / float64(r*c)
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 { return v - mean }, k)
	return out
}

// convolveAt computes the kernel response with the kernel's top-left corner
// at (row, col) of the padded strip. The sample grid is laid out so this
// corresponds to a centered convolution in cropped-strip coordinates.
func convolveAt(padded *mat.Dense, k *mat.Dense, row, col int) float64 {
	var sum float64
	for kr := 0; kr < gaborKernelRows; kr++ {
		for kc := 0; kc < gaborKernelCols; kc++ {
			sum += padded.At(row+kr, col+kc) * k.At(kr, kc)
		}
	}
	return sum
}
