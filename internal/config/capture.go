// Package config loads capture-session tuning from JSON files. Fields are
// pointers so partial configs inherit defaults through the Get* accessors.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Capture modes.
const (
	ModeEnrollment   = "enrollment"
	ModeVerification = "verification"
)

// CaptureConfig represents the tuning parameters for a capture session.
// The schema matches the controller's configuration input so the same JSON
// can be used for startup configuration and per-session overrides.
type CaptureConfig struct {
	Mode *string `json:"mode,omitempty"`

	// Burst acquisition
	EnrollmentBursts  *int    `json:"enrollment_bursts,omitempty"`
	BurstTargetFrames *int    `json:"burst_target_frames,omitempty"`
	BurstMax          *string `json:"burst_max,omitempty"`      // duration string like "2s"
	ReadyHold         *string `json:"ready_hold,omitempty"`     // duration string like "500ms"
	FrameInterval     *string `json:"frame_interval,omitempty"` // duration string like "400ms"
	RepositionHold    *string `json:"reposition_hold,omitempty"`

	// Frame selection
	MinScoreVerify    *float64 `json:"min_score_verify,omitempty"`
	MinScoreEnroll    *float64 `json:"min_score_enroll,omitempty"`
	SelectTopFrames   *int     `json:"select_top_frames,omitempty"`
	PipelineSharpness *float64 `json:"pipeline_sharpness_min,omitempty"`

	// Matching
	ConfirmThreshold     *float64 `json:"confirm_threshold,omitempty"`
	SuggestThreshold     *float64 `json:"suggest_threshold,omitempty"`
	ConsistencyThreshold *float64 `json:"consistency_threshold,omitempty"`
}

// EmptyCaptureConfig returns a CaptureConfig with all fields unset; every
// accessor then reports its default.
func EmptyCaptureConfig() *CaptureConfig {
	return &CaptureConfig{}
}

// LoadCaptureConfig loads a CaptureConfig from a JSON file. Fields omitted
// from the file retain their defaults, so partial configs are safe. An
// empty path yields a config where every accessor reports its default.
func LoadCaptureConfig(path string) (*CaptureConfig, error) {
	if path == "" {
		return EmptyCaptureConfig(), nil
	}
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyCaptureConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *CaptureConfig) Validate() error {
	if c.Mode != nil && *c.Mode != ModeEnrollment && *c.Mode != ModeVerification {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeEnrollment, ModeVerification, *c.Mode)
	}
	for name, v := range map[string]*string{
		"burst_max":       c.BurstMax,
		"ready_hold":      c.ReadyHold,
		"frame_interval":  c.FrameInterval,
		"reposition_hold": c.RepositionHold,
	} {
		if v != nil && *v != "" {
			if _, err := time.ParseDuration(*v); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
			}
		}
	}
	if c.EnrollmentBursts != nil && *c.EnrollmentBursts < 1 {
		return fmt.Errorf("enrollment_bursts must be positive, got %d", *c.EnrollmentBursts)
	}
	if c.BurstTargetFrames != nil && *c.BurstTargetFrames < 1 {
		return fmt.Errorf("burst_target_frames must be positive, got %d", *c.BurstTargetFrames)
	}
	for name, v := range map[string]*float64{
		"confirm_threshold":     c.ConfirmThreshold,
		"suggest_threshold":     c.SuggestThreshold,
		"consistency_threshold": c.ConsistencyThreshold,
	} {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
		}
	}
	if c.ConfirmThreshold != nil && c.SuggestThreshold != nil && *c.ConfirmThreshold > *c.SuggestThreshold {
		return fmt.Errorf("confirm_threshold %.2f exceeds suggest_threshold %.2f",
			*c.ConfirmThreshold, *c.SuggestThreshold)
	}
	return nil
}

// GetMode returns the capture mode or the default (verification).
func (c *CaptureConfig) GetMode() string {
	if c.Mode == nil {
		return ModeVerification
	}
	return *c.Mode
}

// GetEnrollmentBursts returns the number of bursts enrollment requires.
func (c *CaptureConfig) GetEnrollmentBursts() int {
	if c.EnrollmentBursts == nil {
		return 3
	}
	return *c.EnrollmentBursts
}

// GetBurstTargetFrames returns how many scored frames end a burst.
func (c *CaptureConfig) GetBurstTargetFrames() int {
	if c.BurstTargetFrames == nil {
		return 20
	}
	return *c.BurstTargetFrames
}

// GetBurstMax returns the burst time budget.
func (c *CaptureConfig) GetBurstMax() time.Duration {
	return c.duration(c.BurstMax, 2*time.Second)
}

// GetReadyHold returns how long status must stay ready before a burst.
func (c *CaptureConfig) GetReadyHold() time.Duration {
	return c.duration(c.ReadyHold, 500*time.Millisecond)
}

// GetFrameInterval returns the live-detection analysis throttle.
func (c *CaptureConfig) GetFrameInterval() time.Duration {
	return c.duration(c.FrameInterval, 400*time.Millisecond)
}

// GetRepositionHold returns the between-burst reposition hint duration.
func (c *CaptureConfig) GetRepositionHold() time.Duration {
	return c.duration(c.RepositionHold, 2*time.Second)
}

// GetMinScoreVerify returns the verification frame-selection floor.
func (c *CaptureConfig) GetMinScoreVerify() float64 {
	if c.MinScoreVerify == nil {
		return 50
	}
	return *c.MinScoreVerify
}

// GetMinScoreEnroll returns the enrollment frame-selection floor.
func (c *CaptureConfig) GetMinScoreEnroll() float64 {
	if c.MinScoreEnroll == nil {
		return 60
	}
	return *c.MinScoreEnroll
}

// GetSelectTopFrames returns how many frames survive selection per burst.
func (c *CaptureConfig) GetSelectTopFrames() int {
	if c.SelectTopFrames == nil {
		return 5
	}
	return *c.SelectTopFrames
}

// GetPipelineSharpness returns the full-pipeline Laplacian-variance floor.
func (c *CaptureConfig) GetPipelineSharpness() float64 {
	if c.PipelineSharpness == nil {
		return 50
	}
	return *c.PipelineSharpness
}

// GetConfirmThreshold returns the confirmed-match zone bound.
func (c *CaptureConfig) GetConfirmThreshold() float64 {
	if c.ConfirmThreshold == nil {
		return 0.27
	}
	return *c.ConfirmThreshold
}

// GetSuggestThreshold returns the suggested-match zone bound.
func (c *CaptureConfig) GetSuggestThreshold() float64 {
	if c.SuggestThreshold == nil {
		return 0.35
	}
	return *c.SuggestThreshold
}

// GetConsistencyThreshold returns the within-burst template agreement bound.
func (c *CaptureConfig) GetConsistencyThreshold() float64 {
	if c.ConsistencyThreshold == nil {
		return 0.30
	}
	return *c.ConsistencyThreshold
}

func (c *CaptureConfig) duration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}
