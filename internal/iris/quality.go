package iris

import "math"

// QualityScore holds the five per-frame sub-scores in [0,100] and their
// weighted composite. LaplacianVar keeps the raw focus measurement so the
// pipeline can apply the hard sharpness floor separately.
type QualityScore struct {
	Sharpness    float64 `json:"sharpness"`
	Occlusion    float64 `json:"occlusion"`
	Specular     float64 `json:"specular"`
	Centering    float64 `json:"centering"`
	Resolution   float64 `json:"resolution"`
	Composite    float64 `json:"composite"`
	LaplacianVar float64 `json:"laplacian_var"`
}

// Composite weights. Sharpness dominates: a blurry frame is useless no
// matter how well framed.
const (
	weightSharpness  = 0.40
	weightOcclusion  = 0.25
	weightSpecular   = 0.15
	weightCentering  = 0.10
	weightResolution = 0.10
)

// Sub-score calibration constants.
const (
	sharpnessFloor   = 30.0  // Laplacian variance mapping to score 0
	sharpnessCeil    = 200.0 // Laplacian variance mapping to score 100
	specularMax      = 230   // pixel intensity counted as glare
	specularBudget   = 0.15  // glare fraction mapping to score 0
	centeringMaxFrac = 0.30  // center offset fraction mapping to score 0
	resolutionFloor  = 40.0  // iris radius mapping to score 0
	resolutionCeil   = 100.0 // iris radius mapping to score 100
)

// ScoreFrame computes the quality of one preprocessed frame given its
// segmentation and normalized strip. None of the inputs are consumed.
func ScoreFrame(img *Image, seg Segmentation, strip *Image) QualityScore {
	var q QualityScore
	roi := seg.BoundingBox()

	q.LaplacianVar = LaplacianVariance(img, roi)
	q.Sharpness = clamp01((q.LaplacianVar-sharpnessFloor)/(sharpnessCeil-sharpnessFloor)) * 100

	cropped := CropForOcclusion(strip)
	q.Occlusion = clamp01(ValidCellFraction(cropped)) * 100
	cropped.Release()

	bright := brightFraction(img, roi, specularMax)
	q.Specular = clamp01((specularBudget-bright)/(specularBudget-0.01)) * 100

	cx, cy := float64(img.Cols)/2, float64(img.Rows)/2
	dist := math.Hypot(seg.Iris.X-cx, seg.Iris.Y-cy)
	q.Centering = clamp01(1-dist/(centeringMaxFrac*float64(img.Cols))) * 100

	q.Resolution = clamp01((seg.Iris.R-resolutionFloor)/(resolutionCeil-resolutionFloor)) * 100

	q.Composite = weightSharpness*q.Sharpness +
		weightOcclusion*q.Occlusion +
		weightSpecular*q.Specular +
		weightCentering*q.Centering +
		weightResolution*q.Resolution
	return q
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
