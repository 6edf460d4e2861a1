// Package capture drives the burst-capture acquisition protocol: live
// detection, gated burst collection, multi-burst enrollment, and the
// three-zone verification decision.
package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/veridio/iriscore/internal/iris"
)

// Frame is one grayscale camera frame as delivered by the frame supplier.
// Luma is the 8-bit luminance plane; rows are Stride bytes apart.
type Frame struct {
	Width  int
	Height int
	Stride int
	Luma   []byte
}

// Image converts the frame into an owned grayscale matrix. The luma plane
// is aliased when it is already tight (stride == width) and row-copied
// otherwise.
func (f Frame) Image() (*iris.Image, error) {
	return iris.FromLuma(f.Width, f.Height, f.Stride, f.Luma)
}

// FrameSource is the push-model frame supplier. Start delivers frames to
// the sink until the context is cancelled or Stop is called. Only one
// consumer owns a source at a time.
type FrameSource interface {
	Start(ctx context.Context, sink func(Frame)) error
	Stop()
}

// CameraControl exposes the focus/exposure locks taken around a burst.
// Lock failures are best-effort: the controller logs and continues.
type CameraControl interface {
	LockFocusExposure() error
	UnlockFocusExposure() error
}

// Camera is the full device contract the controller owns for a session.
type Camera interface {
	FrameSource
	CameraControl
}

// MockCamera replays a fixed set of frames at a configurable interval.
// Tests and the dev mode use it in place of device hardware.
type MockCamera struct {
	// Frames are delivered round-robin until the context ends.
	Frames []Frame
	// Interval between frames; defaults to 10ms.
	Interval time.Duration
	// FailStart makes Start return an error, for camera-unavailable
	// paths.
	FailStart bool

	mu       sync.Mutex
	stopped  bool
	locks    int
	unlocks  int
	stopOnce sync.Once
	done     chan struct{}
}

// NewMockCamera builds a mock camera over the given frames.
func NewMockCamera(frames []Frame) *MockCamera {
	return &MockCamera{Frames: frames, Interval: 10 * time.Millisecond, done: make(chan struct{})}
}

// Start begins frame delivery on a background goroutine.
func (m *MockCamera) Start(ctx context.Context, sink func(Frame)) error {
	if m.FailStart {
		return fmt.Errorf("mock camera configured to fail")
	}
	if len(m.Frames) == 0 {
		return fmt.Errorf("mock camera has no frames")
	}
	interval := m.Interval
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.done:
				return
			case <-ticker.C:
				sink(m.Frames[i%len(m.Frames)])
				i++
			}
		}
	}()
	return nil
}

// Stop halts frame delivery.
func (m *MockCamera) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.stopped = true
		m.mu.Unlock()
		close(m.done)
	})
}

// LockFocusExposure records the AF/AE lock.
func (m *MockCamera) LockFocusExposure() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks++
	return nil
}

// UnlockFocusExposure records the AF/AE unlock.
func (m *MockCamera) UnlockFocusExposure() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlocks++
	return nil
}

// LockCounts reports how many lock/unlock calls were made.
func (m *MockCamera) LockCounts() (locks, unlocks int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locks, m.unlocks
}

// Stopped reports whether Stop was called.
func (m *MockCamera) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}
