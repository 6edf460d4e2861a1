package iris

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// discImage draws a filled disc of the given tone on a background tone.
func discImage(rows, cols, cx, cy, r int, disc, bg uint8) *Image {
	img := NewImage(rows, cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				img.Set(y, x, disc)
			} else {
				img.Set(y, x, bg)
			}
		}
	}
	return img
}

func TestHoughFindsDarkDisc(t *testing.T) {
	t.Parallel()

	img := discImage(200, 200, 100, 100, 30, 20, 200)
	defer img.Release()

	circles := HoughCircles(img, HoughParams{
		DP: 1.5, MinDist: 50, EdgeThreshold: 100, AccThreshold: 40, RMin: 10, RMax: 80,
	})
	require.NotEmpty(t, circles)

	best := circles[0]
	assert.InDelta(t, 100, best.X, 4)
	assert.InDelta(t, 100, best.Y, 4)
	assert.InDelta(t, 30, best.R, 4)
}

func TestHoughFindsOffCenterDisc(t *testing.T) {
	t.Parallel()

	img := discImage(240, 320, 220, 90, 25, 230, 40)
	defer img.Release()

	circles := HoughCircles(img, HoughParams{
		DP: 1.5, MinDist: 50, EdgeThreshold: 100, AccThreshold: 40, RMin: 10, RMax: 80,
	})
	require.NotEmpty(t, circles)

	best := circles[0]
	assert.InDelta(t, 220, best.X, 4)
	assert.InDelta(t, 90, best.Y, 4)
	assert.InDelta(t, 25, best.R, 4)
}

func TestHoughEmptyOnFlatImage(t *testing.T) {
	t.Parallel()

	img := NewImage(100, 100)
	defer img.Release()
	circles := HoughCircles(img, HoughParams{
		DP: 1.5, MinDist: 50, EdgeThreshold: 100, AccThreshold: 40, RMin: 10, RMax: 80,
	})
	assert.Empty(t, circles)
}

func TestHoughMinDistSuppressesNearbyDuplicates(t *testing.T) {
	t.Parallel()

	img := discImage(200, 200, 100, 100, 30, 20, 200)
	defer img.Release()

	circles := HoughCircles(img, HoughParams{
		DP: 1.5, MinDist: 80, EdgeThreshold: 100, AccThreshold: 40, RMin: 10, RMax: 80,
	})
	for i := 0; i < len(circles); i++ {
		for j := i + 1; j < len(circles); j++ {
			d := math.Hypot(circles[i].X-circles[j].X, circles[i].Y-circles[j].Y)
			assert.GreaterOrEqual(t, d, 80.0)
		}
	}
}

// eyeDiscs draws a dark pupil disc inside a mid-tone iris disc on a bright
// ground, the two-boundary structure the segmentation passes must separate.
func eyeDiscs(rows, cols, cx, cy, pupilR, irisR int) *Image {
	img := NewImage(rows, cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			dx, dy := x-cx, y-cy
			d2 := dx*dx + dy*dy
			switch {
			case d2 <= pupilR*pupilR:
				img.Set(y, x, 20)
			case d2 <= irisR*irisR:
				img.Set(y, x, 128)
			default:
				img.Set(y, x, 190)
			}
		}
	}
	return img
}

func TestHoughSeparatesConcentricBoundaries(t *testing.T) {
	t.Parallel()

	img := eyeDiscs(480, 640, 320, 240, 45, 110)
	defer img.Release()

	pupils := HoughCircles(img, pupilHough)
	require.NotEmpty(t, pupils, "pupil pass must find the inner boundary")
	assert.InDelta(t, 320, pupils[0].X, 4)
	assert.InDelta(t, 240, pupils[0].Y, 4)
	assert.InDelta(t, 45, pupils[0].R, 4)

	irises := HoughCircles(img, irisHough)
	require.NotEmpty(t, irises, "iris pass must find the outer boundary")
	assert.InDelta(t, 320, irises[0].X, 4)
	assert.InDelta(t, 240, irises[0].Y, 4)
	assert.InDelta(t, 110, irises[0].R, 4)
}
