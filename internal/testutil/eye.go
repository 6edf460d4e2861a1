// Package testutil renders synthetic eye images for pipeline and capture
// tests. The fixtures are deterministic per seed: the same seed always
// produces the same iris texture, so tests can build genuine pairs (same
// seed, different sensor noise) and impostor pairs (different seeds)
// without shipping real biometric data.
package testutil

import (
	"math"
	"math/rand"

	"github.com/veridio/iriscore/internal/iris"
)

// EyeParams describes one synthetic eye image.
type EyeParams struct {
	Width   int
	Height  int
	CenterX int
	CenterY int
	PupilR  float64
	IrisR   float64

	// Seed selects the iris texture. Images with equal seeds belong to
	// the same synthetic identity.
	Seed int64

	// Rotation spins the iris texture around the pupil, emulating head
	// tilt between captures.
	Rotation float64

	// NoiseSigma adds per-pixel Gaussian sensor noise drawn from
	// NoiseSeed, so two captures of the same identity differ.
	NoiseSigma float64
	NoiseSeed  int64

	// Specular paints a bright glint inside the iris band.
	Specular bool

	// Occlusion covers the top fraction of the iris disc with a flat
	// eyelid tone, from 0 (none) to 1 (fully covered).
	Occlusion float64
}

// DefaultEye returns a centered, well-exposed eye for the given identity
// seed. The geometry passes the live-detection gates at both preview and
// canonical scale.
func DefaultEye(seed int64) EyeParams {
	return EyeParams{
		Width:   640,
		Height:  480,
		CenterX: 320,
		CenterY: 240,
		PupilR:  45,
		IrisR:   110,
		Seed:    seed,
	}
}

// textureComponent is one polar sinusoid of the iris pattern.
type textureComponent struct {
	angFreq float64
	radFreq float64
	phase   float64
	amp     float64
}

func textureBank(seed int64) []textureComponent {
	rng := rand.New(rand.NewSource(seed))
	comps := make([]textureComponent, 8)
	for i := range comps {
		comps[i] = textureComponent{
			// Angular frequencies chosen so the local wavelength in the
			// iris band lands in the 5 to 20 pixel range the encoder's
			// filter bank responds to.
			angFreq: float64(12 + rng.Intn(52)),
			radFreq: 1 + rng.Float64()*5,
			phase:   rng.Float64() * 2 * math.Pi,
			amp:     12 + rng.Float64()*12,
		}
	}
	return comps
}

const (
	pupilTone  = 20
	irisTone   = 128
	scleraTone = 190
	eyelidTone = 80
)

// RenderEye rasterizes the parameterized eye. The caller owns the returned
// image.
func RenderEye(p EyeParams) *iris.Image {
	comps := textureBank(p.Seed)
	img := iris.NewImage(p.Height, p.Width)

	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			dx := float64(x - p.CenterX)
			dy := float64(y - p.CenterY)
			r := math.Hypot(dx, dy)

			var v float64
			switch {
			case r < p.PupilR:
				v = pupilTone
			case r < p.IrisR:
				theta := math.Atan2(dy, dx) + p.Rotation
				rn := (r - p.PupilR) / (p.IrisR - p.PupilR)
				v = irisTone
				for _, c := range comps {
					v += c.amp * math.Sin(c.angFreq*theta+c.radFreq*rn*2*math.Pi+c.phase)
				}
			default:
				v = scleraTone
			}
			img.Set(y, x, clampTone(v))
		}
	}

	if p.Occlusion > 0 {
		cut := float64(p.CenterY) - (1-2*p.Occlusion)*p.IrisR
		for y := 0; y < p.Height && float64(y) < cut; y++ {
			for x := 0; x < p.Width; x++ {
				img.Set(y, x, eyelidTone)
			}
		}
	}

	if p.Specular {
		paintGlint(img, p.CenterX+int(p.PupilR)+12, p.CenterY-10, 5)
	}

	if p.NoiseSigma > 0 {
		rng := rand.New(rand.NewSource(p.NoiseSeed))
		for i := range img.Pix {
			v := float64(img.Pix[i]) + rng.NormFloat64()*p.NoiseSigma
			img.Pix[i] = clampTone(v)
		}
	}
	return img
}

func paintGlint(img *iris.Image, cx, cy, r int) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			if !img.In(y, x) {
				continue
			}
			if dx, dy := x-cx, y-cy; dx*dx+dy*dy <= r*r {
				img.Set(y, x, 255)
			}
		}
	}
}

func clampTone(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
