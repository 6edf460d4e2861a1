// Package iris implements the iris recognition core: preprocessing,
// segmentation, rubber-sheet normalization, quality scoring, Gabor phase
// encoding, and masked Hamming matching. All transforms are deterministic,
// CPU-bound, and pure Go.
package iris

import (
	"fmt"
	"sync"
)

// Image is an owned grayscale pixel matrix. Ownership passes explicitly into
// each transform: a transform either consumes-and-releases its input or
// returns a new matrix, never both aliasing the same buffer.
type Image struct {
	Rows int
	Cols int
	// Pix is row-major, length Rows*Cols.
	Pix []uint8

	pooled   bool
	released bool
}

var pixPool = sync.Pool{
	New: func() any { return new([]uint8) },
}

// NewImage allocates a rows×cols image, drawing the pixel buffer from a pool.
func NewImage(rows, cols int) *Image {
	n := rows * cols
	bp := pixPool.Get().(*[]uint8)
	buf := *bp
	if cap(buf) < n {
		buf = make([]uint8, n)
	} else {
		buf = buf[:n]
		clear(buf)
	}
	return &Image{Rows: rows, Cols: cols, Pix: buf, pooled: true}
}

// FromLuma builds an image from a camera luma plane. When stride equals
// width the plane is aliased without copying; otherwise each row is copied
// into a tight buffer.
func FromLuma(width, height, stride int, luma []byte) (*Image, error) {
	if width <= 0 || height <= 0 || stride < width {
		return nil, fmt.Errorf("invalid luma geometry %dx%d stride %d", width, height, stride)
	}
	if stride == width {
		if len(luma) < width*height {
			return nil, fmt.Errorf("luma plane too short: %d < %d", len(luma), width*height)
		}
		return &Image{Rows: height, Cols: width, Pix: luma[:width*height]}, nil
	}
	if len(luma) < stride*(height-1)+width {
		return nil, fmt.Errorf("luma plane too short for stride %d", stride)
	}
	img := NewImage(height, width)
	for y := 0; y < height; y++ {
		copy(img.Pix[y*width:(y+1)*width], luma[y*stride:y*stride+width])
	}
	return img, nil
}

// At returns the pixel at (row, col). Callers are responsible for bounds.
func (m *Image) At(r, c int) uint8 { return m.Pix[r*m.Cols+c] }

// Set writes the pixel at (row, col).
func (m *Image) Set(r, c int, v uint8) { m.Pix[r*m.Cols+c] = v }

// AtClamped reads with replicate-border semantics.
func (m *Image) AtClamped(r, c int) uint8 {
	if r < 0 {
		r = 0
	} else if r >= m.Rows {
		r = m.Rows - 1
	}
	if c < 0 {
		c = 0
	} else if c >= m.Cols {
		c = m.Cols - 1
	}
	return m.Pix[r*m.Cols+c]
}

// In reports whether (row, col) lies inside the image.
func (m *Image) In(r, c int) bool {
	return r >= 0 && r < m.Rows && c >= 0 && c < m.Cols
}

// Clone returns an independent copy that the caller owns.
func (m *Image) Clone() *Image {
	out := NewImage(m.Rows, m.Cols)
	copy(out.Pix, m.Pix)
	return out
}

// Release returns the pixel buffer to the pool. Each image must be released
// exactly once by its final owner; a second release is a lifecycle bug.
func (m *Image) Release() {
	if m.released {
		panic("iris: image released twice")
	}
	m.released = true
	if !m.pooled {
		m.Pix = nil
		return
	}
	buf := m.Pix
	m.Pix = nil
	pixPool.Put(&buf)
}

// Rect is a half-open pixel rectangle.
type Rect struct {
	X0, Y0 int // inclusive
	X1, Y1 int // exclusive
}

// Intersect clamps the rectangle to the image bounds.
func (r Rect) Intersect(rows, cols int) Rect {
	if r.X0 < 0 {
		r.X0 = 0
	}
	if r.Y0 < 0 {
		r.Y0 = 0
	}
	if r.X1 > cols {
		r.X1 = cols
	}
	if r.Y1 > rows {
		r.Y1 = rows
	}
	if r.X1 < r.X0 {
		r.X1 = r.X0
	}
	if r.Y1 < r.Y0 {
		r.Y1 = r.Y0
	}
	return r
}

// Empty reports whether the rectangle contains no pixels.
func (r Rect) Empty() bool { return r.X1 <= r.X0 || r.Y1 <= r.Y0 }
