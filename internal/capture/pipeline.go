package capture

import (
	"fmt"

	"github.com/veridio/iriscore/internal/iris"
	"github.com/veridio/iriscore/internal/monitoring"
)

// ScoredFrame is one burst frame that survived the full pipeline minus
// encoding: the preprocessed image, its segmentation, the normalized strip,
// and the quality score. The frame owns its image and strip; whoever holds
// it last must call Release exactly once.
type ScoredFrame struct {
	Image   *iris.Image
	Seg     iris.Segmentation
	Strip   *iris.Image
	Quality iris.QualityScore
}

// Release frees the frame's image and strip.
func (s *ScoredFrame) Release() {
	s.Image.Release()
	s.Strip.Release()
}

// runPipeline performs the per-burst-frame transform chain: preprocess,
// segment, normalize, score. It consumes the input frame. sharpnessMin is
// the hard Laplacian-variance floor below which the frame soft-fails with
// ErrSharpnessTooLow.
func runPipeline(frame *iris.Image, sharpnessMin float64) (*ScoredFrame, error) {
	pre, _ := iris.Preprocess(frame)

	seg, err := iris.Segment(pre)
	if err != nil {
		pre.Release()
		return nil, err
	}

	strip := iris.Normalize(pre, seg)
	quality := iris.ScoreFrame(pre, seg, strip)
	if quality.LaplacianVar < sharpnessMin {
		pre.Release()
		strip.Release()
		return nil, fmt.Errorf("%w: laplacian variance %.1f below %.1f",
			iris.ErrSharpnessTooLow, quality.LaplacianVar, sharpnessMin)
	}

	return &ScoredFrame{Image: pre, Seg: seg, Strip: strip, Quality: quality}, nil
}

// selectFrames keeps frames at or above minScore, best composite first, up
// to limit. The returned slice shares frames with the input; callers
// release rejected frames separately.
func selectFrames(frames []*ScoredFrame, minScore float64, limit int) []*ScoredFrame {
	var kept []*ScoredFrame
	for _, f := range frames {
		if f.Quality.Composite >= minScore {
			kept = append(kept, f)
		}
	}
	// Insertion sort: burst buffers hold at most a few dozen frames.
	for i := 1; i < len(kept); i++ {
		for j := i; j > 0 && kept[j].Quality.Composite > kept[j-1].Quality.Composite; j-- {
			kept[j], kept[j-1] = kept[j-1], kept[j]
		}
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// encodeSelected encodes the selected frames and applies the within-burst
// consistency filter: any template farther than consistencyMax from the
// first encoded template is discarded. Returns at most keep templates.
func encodeSelected(frames []*ScoredFrame, consistencyMax float64, keep int) []iris.Template {
	var templates []iris.Template
	for _, f := range frames {
		tpl, err := iris.Encode(f.Strip)
		if err != nil {
			monitoring.Debugf("capture: template discarded: %v", err)
			continue
		}
		if len(templates) > 0 {
			if d := iris.HammingDistance(templates[0], tpl); d > consistencyMax {
				monitoring.Debugf("capture: template discarded: %v (distance %.3f)", iris.ErrInconsistent, d)
				continue
			}
		}
		templates = append(templates, tpl)
		if len(templates) >= keep {
			break
		}
	}
	return templates
}
