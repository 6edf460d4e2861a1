package iris

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomTemplate builds a full-length template with random code bits and an
// all-valid mask.
func randomTemplate(seed int64) Template {
	rng := rand.New(rand.NewSource(seed))
	tpl := make(Template, TemplateLen)
	code, mask := tpl.Code(), tpl.Mask()
	for i := range code {
		if rng.Intn(2) == 1 {
			code[i] = 1
		}
		mask[i] = 1
	}
	return tpl
}

// shiftColumns returns a copy of tpl with code and mask circularly shifted
// by s grid columns.
func shiftColumns(tpl Template, s int) Template {
	out := make(Template, TemplateLen)
	code, mask := tpl.Code(), tpl.Mask()
	oc, om := out.Code(), out.Mask()
	for f := 0; f < FilterCount; f++ {
		for r := 0; r < GridRows; r++ {
			for c := 0; c < GridCols; c++ {
				cs := ((c+s)%GridCols + GridCols) % GridCols
				for b := 0; b < phaseBits; b++ {
					oc[bitIndex(f, r, cs, b)] = code[bitIndex(f, r, c, b)]
					om[bitIndex(f, r, cs, b)] = mask[bitIndex(f, r, c, b)]
				}
			}
		}
	}
	return out
}

func TestHammingDistanceSelf(t *testing.T) {
	t.Parallel()

	tpl := randomTemplate(1)
	assert.Equal(t, 0.0, HammingDistance(tpl, tpl))
}

func TestHammingDistanceSymmetric(t *testing.T) {
	t.Parallel()

	a, b := randomTemplate(2), randomTemplate(3)
	assert.Equal(t, HammingDistance(a, b), HammingDistance(b, a))
}

func TestHammingDistanceIndependentTemplatesNearHalf(t *testing.T) {
	t.Parallel()

	a, b := randomTemplate(4), randomTemplate(5)
	d := HammingDistance(a, b)
	// The shift search takes the minimum over nine comparisons, which pulls
	// the expectation slightly under 0.5, but never into the match zones.
	assert.Greater(t, d, SuggestThreshold)
	assert.Less(t, d, 0.55)
}

func TestMatchDistanceRecoversShift(t *testing.T) {
	t.Parallel()

	base := randomTemplate(6)
	for _, s := range []int{-4, -2, 1, 3, 4} {
		rotated := shiftColumns(base, s)
		d, got := MatchDistance(base, rotated)
		assert.Equal(t, 0.0, d, "shift %d", s)
		assert.Equal(t, s, got, "shift %d", s)
	}
}

func TestMatchDistanceBeyondShiftRangeIsFar(t *testing.T) {
	t.Parallel()

	base := randomTemplate(7)
	rotated := shiftColumns(base, MaxShift+4)
	d, _ := MatchDistance(base, rotated)
	assert.Greater(t, d, SuggestThreshold)
}

func TestHammingDistanceLengthMismatch(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, HammingDistance(randomTemplate(8), make(Template, 10)))
	assert.Equal(t, 1.0, HammingDistance(nil, nil))
}

func TestHammingDistanceInsufficientMutualMask(t *testing.T) {
	t.Parallel()

	a, b := randomTemplate(9), randomTemplate(9)
	// Invalidate most of one mask so no shift reaches the mutual floor.
	mask := b.Mask()
	for i := 0; i < len(mask)/2; i++ {
		mask[i] = 0
	}
	assert.Equal(t, 1.0, HammingDistance(a, b))
}

func TestMaskedBitsDoNotCount(t *testing.T) {
	t.Parallel()

	a := randomTemplate(10)
	b := make(Template, TemplateLen)
	copy(b, a)

	// Flip a code bit but invalidate it in b's mask: distance stays zero.
	b.Code()[5] = 1 - b.Code()[5]
	b.Mask()[5] = 0
	assert.Equal(t, 0.0, HammingDistance(a, b))
}

func TestMaskGrowthShiftsDistanceDirectionally(t *testing.T) {
	t.Parallel()

	// The fractional distance is mismatches over mutually valid bits, so
	// growing the mask moves it in a known direction per bit: masking an
	// agreeing bit never lowers it, masking a disagreeing bit never raises
	// it. Short templates (not a whole number of grid rows) compare
	// unshifted, which keeps each step exact.
	const n = 100
	rng := rand.New(rand.NewSource(15))
	a := make(Template, 2*n)
	b := make(Template, 2*n)
	for i := 0; i < n; i++ {
		a[i] = float64(rng.Intn(2))
		b[i] = float64(rng.Intn(2))
		a[n+i] = 1
		b[n+i] = 1
	}
	base := HammingDistance(a, b)
	require.Greater(t, base, 0.0)
	require.Less(t, base, 1.0)

	agree := make(Template, 2*n)
	copy(agree, b)
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			agree[n+i] = 0
			break
		}
	}
	assert.GreaterOrEqual(t, HammingDistance(a, agree), base)

	differ := make(Template, 2*n)
	copy(differ, b)
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			differ[n+i] = 0
			break
		}
	}
	assert.LessOrEqual(t, HammingDistance(a, differ), base)
}

func TestZoneFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ZoneConfirmed, ZoneFor(0.27, 0.27, 0.35))
	assert.Equal(t, ZoneSuggested, ZoneFor(0.30, 0.27, 0.35))
	assert.Equal(t, ZoneSuggested, ZoneFor(0.35, 0.27, 0.35))
	assert.Equal(t, ZoneNone, ZoneFor(0.351, 0.27, 0.35))
}

func TestSelectDiverse(t *testing.T) {
	t.Parallel()

	t.Run("small pool returned whole", func(t *testing.T) {
		t.Parallel()
		pool := []Template{randomTemplate(11), randomTemplate(12)}
		got := SelectDiverse(pool, 3)
		assert.Len(t, got, 2)
	})

	t.Run("prefers spread over near-duplicates", func(t *testing.T) {
		t.Parallel()
		base := randomTemplate(13)
		near := make(Template, TemplateLen)
		copy(near, base)
		near.Code()[0] = 1 - near.Code()[0]
		far := randomTemplate(14)

		got := SelectDiverse([]Template{base, near, far}, 2)
		require.Len(t, got, 2)
		assert.Equal(t, base, got[0], "seeding keeps the first template")
		assert.Equal(t, HammingDistance(got[0], got[1]), HammingDistance(base, far),
			"the distant template wins the second slot")
	})
}
