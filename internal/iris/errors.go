package iris

import "errors"

// Per-frame and per-burst failure taxonomy. Per-frame errors are absorbed by
// the capture controller (logged at debug) and the live loop continues;
// burst- and session-level errors surface as a single status to the UI.
var (
	// ErrSegmentationFailed means no valid pupil/iris pair was found.
	ErrSegmentationFailed = errors.New("segmentation failed")
	// ErrSharpnessTooLow means the iris ROI was below the focus minimum.
	ErrSharpnessTooLow = errors.New("sharpness too low")
	// ErrEncodingTooNoisy means the template mask had too few valid bits.
	ErrEncodingTooNoisy = errors.New("encoding too noisy")
	// ErrQualityTooLow means an entire burst produced no usable template.
	ErrQualityTooLow = errors.New("quality too low")
	// ErrInconsistent means templates within a burst disagreed.
	ErrInconsistent = errors.New("inconsistent templates")
	// ErrRepositoryUnavailable wraps repository adapter failures.
	ErrRepositoryUnavailable = errors.New("repository unavailable")
	// ErrCameraUnavailable wraps camera/frame-source failures.
	ErrCameraUnavailable = errors.New("camera unavailable")
)
