package iris

// Masked fractional Hamming distance with rotational compensation. A head
// tilt rotates the iris in image space, which circularly shifts the strip's
// angular axis; the matcher tries every column shift in ±MaxShift and keeps
// the best distance. Because columns vary fastest inside each (filter, row)
// group, the shift uses identical stride arithmetic for every filter.
const (
	// MaxShift is the rotational search range in grid columns.
	MaxShift = 4
	// minMutualFraction is the minimum fraction of mutually valid bits a
	// shift needs to produce a meaningful distance.
	minMutualFraction = 0.60
)

// Decision zones on the best distance.
const (
	// ConfirmThreshold bounds the confirmed-match zone.
	ConfirmThreshold = 0.27
	// SuggestThreshold bounds the suggested-match zone; beyond it there
	// is no match.
	SuggestThreshold = 0.35
)

// MatchZone classifies a comparison outcome.
type MatchZone string

const (
	ZoneConfirmed MatchZone = "confirmed"
	ZoneSuggested MatchZone = "suggested"
	ZoneNone      MatchZone = "none"
)

// ZoneFor places a distance into a decision zone given the two thresholds.
func ZoneFor(dist, confirm, suggest float64) MatchZone {
	switch {
	case dist <= confirm:
		return ZoneConfirmed
	case dist <= suggest:
		return ZoneSuggested
	default:
		return ZoneNone
	}
}

// HammingDistance returns the best masked fractional Hamming distance
// between two templates across all rotational shifts, in [0,1]. It returns
// 1.0 on length mismatch or when no shift has enough mutually valid bits.
func HammingDistance(a, b Template) float64 {
	d, _ := MatchDistance(a, b)
	return d
}

// MatchDistance is HammingDistance plus the shift that produced the best
// distance.
func MatchDistance(a, b Template) (float64, int) {
	if len(a) != len(b) || len(a) < 2 || len(a)%2 != 0 {
		return 1.0, 0
	}
	codeA, maskA := a.Code(), a.Mask()
	codeB, maskB := b.Code(), b.Mask()
	n := len(codeA)

	// Rotational search needs the row×col layout; templates whose length
	// is not a whole number of grid rows are compared unshifted.
	rowBits := GridCols * phaseBits
	shifts := []int{0}
	if n%rowBits == 0 {
		shifts = make([]int, 0, 2*MaxShift+1)
		for s := -MaxShift; s <= MaxShift; s++ {
			shifts = append(shifts, s)
		}
	}

	minRequired := int(minMutualFraction * float64(n))
	best := 1.0
	bestShift := 0
	for _, s := range shifts {
		mismatches, valid := 0, 0
		if s == 0 {
			for i := 0; i < n; i++ {
				if maskA[i] == 1 && maskB[i] == 1 {
					valid++
					if codeA[i] != codeB[i] {
						mismatches++
					}
				}
			}
		} else {
			for row := 0; row < n/rowBits; row++ {
				base := row * rowBits
				for c := 0; c < GridCols; c++ {
					cs := ((c+s)%GridCols + GridCols) % GridCols
					for bit := 0; bit < phaseBits; bit++ {
						i := base + c*phaseBits + bit
						j := base + cs*phaseBits + bit
						if maskA[i] == 1 && maskB[j] == 1 {
							valid++
							if codeA[i] != codeB[j] {
								mismatches++
							}
						}
					}
				}
			}
		}
		if valid < minRequired {
			continue
		}
		d := float64(mismatches) / float64(valid)
		if d < best {
			best = d
			bestShift = s
		}
	}
	return best, bestShift
}

// SelectDiverse greedily picks up to n templates from the pool, seeding
// with the first and then repeatedly taking the candidate that maximizes
// its minimum distance to the already-selected set. Enrollment uses this to
// store templates that cover the subject's capture variation. Returns the
// whole pool when it has no more than n entries.
func SelectDiverse(pool []Template, n int) []Template {
	if len(pool) <= n {
		return pool
	}
	selected := []Template{pool[0]}
	used := map[int]bool{0: true}
	for len(selected) < n {
		bestIdx, bestMin := -1, -1.0
		for i, cand := range pool {
			if used[i] {
				continue
			}
			minD := 2.0
			for _, s := range selected {
				if d := HammingDistance(cand, s); d < minD {
					minD = d
				}
			}
			if minD > bestMin {
				bestMin = minD
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		used[bestIdx] = true
		selected = append(selected, pool[bestIdx])
	}
	return selected
}
