package iris

// Contrast-limited adaptive histogram equalization. The image is divided into
// a tileGrid×tileGrid grid; each tile gets a clipped-histogram equalization
// LUT, and output pixels blend the four surrounding tile LUTs bilinearly.
// Parameters match the calibration the rest of the pipeline assumes:
// clip limit 2.0 on an 8×8 grid.

const (
	claheClipLimit = 2.0
	claheTileGrid  = 8
)

// Equalize applies CLAHE with the pipeline's canonical parameters and
// returns a new image. The input is not consumed.
func Equalize(src *Image) *Image {
	return equalizeWith(src, claheClipLimit, claheTileGrid)
}

func equalizeWith(src *Image, clipLimit float64, grid int) *Image {
	rows, cols := src.Rows, src.Cols
	if rows < grid || cols < grid {
		// Degenerate input; global equalization over one tile.
		grid = 1
	}

	// Per-tile LUTs.
	luts := make([][]uint8, grid*grid)
	for ty := 0; ty < grid; ty++ {
		y0, y1 := ty*rows/grid, (ty+1)*rows/grid
		for tx := 0; tx < grid; tx++ {
			x0, x1 := tx*cols/grid, (tx+1)*cols/grid
			luts[ty*grid+tx] = tileLUT(src, x0, y0, x1, y1, clipLimit)
		}
	}

	dst := NewImage(rows, cols)
	// Tile centers in pixel coordinates, used as interpolation anchors.
	centerY := func(ty int) float64 { return (float64(ty*rows/grid) + float64((ty+1)*rows/grid)) / 2 }
	centerX := func(tx int) float64 { return (float64(tx*cols/grid) + float64((tx+1)*cols/grid)) / 2 }

	for y := 0; y < rows; y++ {
		ty0 := clampInt((y*grid)/rows, 0, grid-1)
		if float64(y) < centerY(ty0) && ty0 > 0 {
			ty0--
		}
		ty1 := clampInt(ty0+1, 0, grid-1)
		fy := interpWeight(float64(y), centerY(ty0), centerY(ty1))

		for x := 0; x < cols; x++ {
			tx0 := clampInt((x*grid)/cols, 0, grid-1)
			if float64(x) < centerX(tx0) && tx0 > 0 {
				tx0--
			}
			tx1 := clampInt(tx0+1, 0, grid-1)
			fx := interpWeight(float64(x), centerX(tx0), centerX(tx1))

			v := src.At(y, x)
			v00 := float64(luts[ty0*grid+tx0][v])
			v01 := float64(luts[ty0*grid+tx1][v])
			v10 := float64(luts[ty1*grid+tx0][v])
			v11 := float64(luts[ty1*grid+tx1][v])
			top := v00*(1-fx) + v01*fx
			bot := v10*(1-fx) + v11*fx
			dst.Set(y, x, uint8(top*(1-fy)+bot*fy+0.5))
		}
	}
	return dst
}

// tileLUT builds a clipped-equalization lookup table for one tile.
func tileLUT(src *Image, x0, y0, x1, y1 int, clipLimit float64) []uint8 {
	var hist [256]int
	n := (x1 - x0) * (y1 - y0)
	if n == 0 {
		lut := make([]uint8, 256)
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}
	for y := y0; y < y1; y++ {
		base := y * src.Cols
		for x := x0; x < x1; x++ {
			hist[src.Pix[base+x]]++
		}
	}

	// Clip and redistribute the excess uniformly.
	clip := int(clipLimit * float64(n) / 256)
	if clip < 1 {
		clip = 1
	}
	excess := 0
	for i := range hist {
		if hist[i] > clip {
			excess += hist[i] - clip
			hist[i] = clip
		}
	}
	share := excess / 256
	rem := excess % 256
	for i := range hist {
		hist[i] += share
		if i < rem {
			hist[i]++
		}
	}

	lut := make([]uint8, 256)
	cum := 0
	for i := range hist {
		cum += hist[i]
		lut[i] = uint8((255*cum + n/2) / n)
	}
	return lut
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// interpWeight returns the blend fraction of the second anchor for position p
// between anchors a and b, clamped to [0,1].
func interpWeight(p, a, b float64) float64 {
	if b <= a {
		return 0
	}
	f := (p - a) / (b - a)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
