package iris

import (
	"fmt"
	"math"
)

// Segmentation locates the pupil and iris boundaries as two circles in the
// pixel coordinates of the preprocessed image. The circles need not be
// concentric; the normalizer tolerates off-axis pupils.
type Segmentation struct {
	Pupil Circle
	Iris  Circle
}

// Geometry limits every accepted segmentation must satisfy.
const (
	minPupilIrisRatio = 0.20
	maxPupilIrisRatio = 0.70
	// MinIrisRadius is the smallest usable iris radius in the full
	// pipeline; MinPreviewIrisRadius applies to the quick-detect pass.
	MinIrisRadius        = 40.0
	MinPreviewIrisRadius = 30.0
)

const medianBlurKernel = 7

// Hough passes are calibrated for a 640 px preprocessed image.
var (
	pupilHough = HoughParams{DP: 1.5, MinDist: 50, EdgeThreshold: 100, AccThreshold: 40, RMin: 10, RMax: 80}
	irisHough  = HoughParams{DP: 1.5, MinDist: 100, EdgeThreshold: 80, AccThreshold: 35, RMin: 60, RMax: 200}

	// Preview passes run at 320 px with proportionally reduced limits.
	pupilHoughPreview = HoughParams{DP: 1.5, MinDist: 25, EdgeThreshold: 100, AccThreshold: 40, RMin: 5, RMax: 40}
	irisHoughPreview  = HoughParams{DP: 1.5, MinDist: 50, EdgeThreshold: 80, AccThreshold: 35, RMin: 30, RMax: 100}
)

// Segment locates the pupil and iris in a preprocessed (640 px, equalized)
// image. Returns ErrSegmentationFailed when either boundary is missing or
// the pair violates the geometry invariants.
func Segment(img *Image) (Segmentation, error) {
	blurred := MedianBlur(img, medianBlurKernel)
	defer blurred.Release()

	pupils := HoughCircles(blurred, pupilHough)
	if len(pupils) == 0 {
		return Segmentation{}, fmt.Errorf("%w: no pupil candidates", ErrSegmentationFailed)
	}
	irises := HoughCircles(blurred, irisHough)
	if len(irises) == 0 {
		return Segmentation{}, fmt.Errorf("%w: no iris candidates", ErrSegmentationFailed)
	}

	seg, ok := bestSegmentation(pupils, irises, img.Rows, img.Cols, MinIrisRadius)
	if !ok {
		return Segmentation{}, fmt.Errorf("%w: no consistent pupil/iris pair", ErrSegmentationFailed)
	}
	return seg, nil
}

// bestSegmentation pairs pupil and iris candidates, keeps the pairs that
// satisfy the geometry invariants, and picks the pair whose iris is most
// centered in the frame, breaking ties toward the pupil nearest the iris
// axis. Selecting the pair jointly matters: the strongest circle from either
// pass alone may have no geometrically consistent partner.
func bestSegmentation(pupils, irises []Circle, rows, cols int, minIrisR float64) (Segmentation, bool) {
	cx, cy := float64(cols)/2, float64(rows)/2
	var best Segmentation
	found := false
	bestIrisD, bestPupilD := 0.0, 0.0
	for _, ir := range irises {
		idx, idy := ir.X-cx, ir.Y-cy
		irisD := idx*idx + idy*idy
		for _, pu := range pupils {
			seg := Segmentation{Pupil: pu, Iris: ir}
			if seg.Validate(minIrisR) != nil {
				continue
			}
			pdx, pdy := pu.X-ir.X, pu.Y-ir.Y
			pupilD := pdx*pdx + pdy*pdy
			if !found || irisD < bestIrisD || (irisD == bestIrisD && pupilD < bestPupilD) {
				best = seg
				bestIrisD, bestPupilD = irisD, pupilD
				found = true
			}
		}
	}
	return best, found
}

// Validate checks the geometric invariants: the iris must be larger than the
// pupil, the pupil disk fully contained in the iris disk, the radius ratio
// inside [0.20, 0.70], and the iris radius at least minIrisR.
func (s Segmentation) Validate(minIrisR float64) error {
	p, i := s.Pupil, s.Iris
	if i.R <= p.R {
		return fmt.Errorf("%w: iris radius %.1f <= pupil radius %.1f", ErrSegmentationFailed, i.R, p.R)
	}
	if i.R < minIrisR {
		return fmt.Errorf("%w: iris radius %.1f below minimum %.1f", ErrSegmentationFailed, i.R, minIrisR)
	}
	dx := math.Abs(p.X - i.X)
	dy := math.Abs(p.Y - i.Y)
	if dx+p.R > i.R || dy+p.R > i.R {
		return fmt.Errorf("%w: pupil disk not contained in iris disk", ErrSegmentationFailed)
	}
	ratio := p.R / i.R
	if ratio < minPupilIrisRatio || ratio > maxPupilIrisRatio {
		return fmt.Errorf("%w: pupil/iris ratio %.2f outside [%.2f, %.2f]",
			ErrSegmentationFailed, ratio, minPupilIrisRatio, maxPupilIrisRatio)
	}
	return nil
}

// BoundingBox returns the iris bounding box, for ROI measurements.
func (s Segmentation) BoundingBox() Rect {
	return Rect{
		X0: int(s.Iris.X - s.Iris.R),
		Y0: int(s.Iris.Y - s.Iris.R),
		X1: int(s.Iris.X+s.Iris.R) + 1,
		Y1: int(s.Iris.Y+s.Iris.R) + 1,
	}
}

// DetectionStatus is the quick-detect outcome that drives live-preview UI
// and the controller's readiness timer.
type DetectionStatus string

const (
	DetectNotFound    DetectionStatus = "not_found"
	DetectTooFar      DetectionStatus = "too_far"
	DetectTooClose    DetectionStatus = "too_close"
	DetectNotCentered DetectionStatus = "not_centered"
	DetectTooBlurry   DetectionStatus = "too_blurry"
	DetectReady       DetectionStatus = "ready"
)

// Quick-detect thresholds, in preview (320 px) pixel units.
const (
	previewIrisTooFar    = 40.0
	previewIrisTooClose  = 90.0
	previewCenterMaxFrac = 0.30
	previewSharpnessMin  = 30.0
)

// QuickDetect runs the lightweight preview pass on a raw camera frame and
// derives a readiness status. The frame is not consumed.
func QuickDetect(frame *Image) DetectionStatus {
	preview, _ := PreprocessPreview(frame.Clone())
	defer preview.Release()

	blurred := MedianBlur(preview, medianBlurKernel)
	defer blurred.Release()

	pupils := HoughCircles(blurred, pupilHoughPreview)
	irises := HoughCircles(blurred, irisHoughPreview)
	seg, ok := bestSegmentation(pupils, irises, preview.Rows, preview.Cols, MinPreviewIrisRadius)
	if !ok {
		return DetectNotFound
	}

	switch {
	case seg.Iris.R < previewIrisTooFar:
		return DetectTooFar
	case seg.Iris.R > previewIrisTooClose:
		return DetectTooClose
	}

	cx, cy := float64(preview.Cols)/2, float64(preview.Rows)/2
	limit := previewCenterMaxFrac * float64(preview.Cols)
	if math.Abs(seg.Iris.X-cx) > limit || math.Abs(seg.Iris.Y-cy) > limit {
		return DetectNotCentered
	}

	if LaplacianVariance(preview, seg.BoundingBox()) < previewSharpnessMin {
		return DetectTooBlurry
	}
	return DetectReady
}
