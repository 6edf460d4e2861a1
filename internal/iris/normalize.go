package iris

import "math"

// Daugman rubber-sheet model: the annulus between the pupil and iris
// boundaries unwraps into a fixed polar strip. Row 0 lies on the pupil
// boundary, the last row on the iris boundary; columns sweep angle 0 → 2π
// anticlockwise with column 0 at angle 0.
const (
	// AngularSamples is the strip width (angle resolution).
	AngularSamples = 256
	// RadialSamples is the strip height (radius resolution).
	RadialSamples = 64
)

// Normalize unwraps the segmented annulus of a preprocessed image into a
// RadialSamples×AngularSamples strip. Nearest-neighbour sampling; points
// that fall outside the image contribute zero. The input is not consumed.
//
// The pupil and iris circles may be non-concentric: each sample linearly
// interpolates between the two boundary points at the same angle, which
// collapses pupil dilation and off-axis geometry into a fixed-size strip.
func Normalize(img *Image, seg Segmentation) *Image {
	strip := NewImage(RadialSamples, AngularSamples)
	p, ir := seg.Pupil, seg.Iris

	for theta := 0; theta < AngularSamples; theta++ {
		a := 2 * math.Pi * float64(theta) / AngularSamples
		cosA, sinA := math.Cos(a), math.Sin(a)
		px := p.X + p.R*cosA
		py := p.Y + p.R*sinA
		ix := ir.X + ir.R*cosA
		iy := ir.Y + ir.R*sinA

		for r := 0; r < RadialSamples; r++ {
			ratio := float64(r) / RadialSamples
			sx := (1-ratio)*px + ratio*ix
			sy := (1-ratio)*py + ratio*iy

			col := int(math.Round(sx))
			row := int(math.Round(sy))
			var v uint8
			if img.In(row, col) {
				v = img.At(row, col)
			}
			strip.Set(r, theta, v)
		}
	}
	return strip
}
