package iris

import (
	"math"
	"sort"
)

// Circle is a detected circle in pixel coordinates.
type Circle struct {
	X, Y  float64 // center
	R     float64 // radius
	Votes int
}

// HoughParams tunes one circular-Hough pass. The gradient-voting variant is
// used: every strong edge pixel votes along its gradient direction into a
// center accumulator binned per radius, so a vote reaches a (center, radius)
// cell only when the edge both lies on that circle and points at its center.
type HoughParams struct {
	// DP is the inverse accumulator resolution: accumulator cells span DP
	// input pixels.
	DP float64
	// MinDist is the minimum center distance between returned circles.
	MinDist float64
	// EdgeThreshold is the gradient-magnitude threshold for edge pixels
	// (the upper Canny threshold in the classic formulation).
	EdgeThreshold float64
	// AccThreshold is the minimum votes in a center's best radius band.
	AccThreshold int
	// RMin, RMax bound the radius search.
	RMin, RMax int
}

// minBoundaryFraction is the fraction of a circle's circumference that must
// be covered by radius-band votes. Iris texture throws plenty of edge pixels,
// but their gradients do not line up on any one circle, so texture bands stay
// far below this floor while a genuine boundary covers most of its arc.
const minBoundaryFraction = 0.35

// HoughCircles detects circles in a blurred grayscale image, best coverage
// first. Each returned circle's Votes is the edge-pixel count of its winning
// radius band.
func HoughCircles(src *Image, p HoughParams) []Circle {
	if p.DP < 1 {
		p.DP = 1
	}
	rows, cols := src.Rows, src.Cols
	gx, gy := sobel(src)

	type edgePx struct {
		x, y   int
		dx, dy float64
	}
	var edges []edgePx
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			m := gradMag(gx[y*cols+x], gy[y*cols+x])
			if m < p.EdgeThreshold {
				continue
			}
			edges = append(edges, edgePx{x: x, y: y, dx: gx[y*cols+x] / m, dy: gy[y*cols+x] / m})
		}
	}
	if len(edges) == 0 {
		return nil
	}

	accW := int(math.Ceil(float64(cols) / p.DP))
	accH := int(math.Ceil(float64(rows) / p.DP))
	nR := p.RMax - p.RMin + 1
	acc := make([]uint16, accW*accH*nR)

	// Vote along both gradient polarities: dark-on-bright and
	// bright-on-dark circles both occur (pupil inside iris, iris inside
	// sclera). Summing the radius axis here would let dense interior
	// texture swamp the boundary peaks; per-radius bins keep each circle's
	// votes in one thin sheet.
	for _, e := range edges {
		for _, sign := range [2]float64{1, -1} {
			for r := p.RMin; r <= p.RMax; r++ {
				cx := float64(e.x) + sign*float64(r)*e.dx
				cy := float64(e.y) + sign*float64(r)*e.dy
				if cx < 0 || cy < 0 {
					continue
				}
				ax := int(cx / p.DP)
				ay := int(cy / p.DP)
				if ax >= accW || ay >= accH {
					continue
				}
				acc[(ay*accW+ax)*nR+(r-p.RMin)]++
			}
		}
	}

	// Score every center cell by its best three-bin radius band; blurring
	// spreads a boundary ring across neighbouring integer distances, so a
	// single bin undercounts. Normalizing band votes by the circumference
	// turns them into a boundary-coverage fraction, comparable across
	// radii.
	type cand struct {
		x, y     float64
		r        float64
		votes    int
		coverage float64
	}
	var cands []cand
	for ay := 0; ay < accH; ay++ {
		for ax := 0; ax < accW; ax++ {
			bins := acc[(ay*accW+ax)*nR : (ay*accW+ax+1)*nR]
			bestIdx, bestVotes := -1, 0
			for i := 0; i < nR; i++ {
				v := int(bins[i])
				if i > 0 {
					v += int(bins[i-1])
				}
				if i+1 < nR {
					v += int(bins[i+1])
				}
				if v > bestVotes {
					bestIdx, bestVotes = i, v
				}
			}
			if bestIdx < 0 || bestVotes < p.AccThreshold {
				continue
			}
			// Radius: vote-weighted mean over the winning band.
			sumR, sumW := 0.0, 0.0
			for i := bestIdx - 1; i <= bestIdx+1; i++ {
				if i < 0 || i >= nR {
					continue
				}
				w := float64(bins[i])
				sumR += w * float64(p.RMin+i)
				sumW += w
			}
			r := sumR / sumW
			coverage := float64(bestVotes) / (2 * math.Pi * r)
			if coverage < minBoundaryFraction {
				continue
			}
			cands = append(cands, cand{
				x:        (float64(ax) + 0.5) * p.DP,
				y:        (float64(ay) + 0.5) * p.DP,
				r:        r,
				votes:    bestVotes,
				coverage: coverage,
			})
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].coverage > cands[j].coverage })

	minDist2 := p.MinDist * p.MinDist
	circles := make([]Circle, 0, len(cands))
	for _, c := range cands {
		ok := true
		for _, k := range circles {
			dx, dy := c.x-k.X, c.y-k.Y
			if dx*dx+dy*dy < minDist2 {
				ok = false
				break
			}
		}
		if ok {
			circles = append(circles, Circle{X: c.x, Y: c.y, R: c.r, Votes: c.votes})
		}
	}
	return circles
}
