// Package controller - Motion detection implementation using adaptive median background subtraction
package controller

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-bgs/bgs"
	"github.com/nvr-ai/go-bgs/images"
	"github.com/nvr-ai/go-bgs/profiler"
)

// MotionDetectionConfig contains configuration parameters for motion detection
type MotionDetectionConfig struct {
	// Engine configures the background model
	Engine bgs.Config `json:"engine" yaml:"engine"`
	// ProcessWidth downscales frames before segmentation, 0 keeps the width or derives it from ProcessHeight
	ProcessWidth int `json:"process_width" yaml:"process_width"`
	// ProcessHeight downscales frames before segmentation, 0 keeps the height or derives it from ProcessWidth
	ProcessHeight int `json:"process_height" yaml:"process_height"`
	// Grayscale converts frames to a single luma channel before segmentation
	Grayscale bool `json:"grayscale" yaml:"grayscale"`
	// BlurRadius controls noise reduction before segmentation, 0 disables it
	BlurRadius int `json:"blur_radius" yaml:"blur_radius"`
	// MinDensity is the density filter neighbour count (1..8), 0 disables the filter
	MinDensity int `json:"min_density" yaml:"min_density"`
	// UseHighMask scores the loose high-threshold mask instead of the low mask
	UseHighMask bool `json:"use_high_mask" yaml:"use_high_mask"`
	// MotionHistoryLength is how many recent scores are kept for smoothing
	MotionHistoryLength int `json:"motion_history_length" yaml:"motion_history_length"`
}

// DefaultMotionDetectionConfig returns a default configuration for motion detection
func DefaultMotionDetectionConfig() MotionDetectionConfig {
	return MotionDetectionConfig{
		Engine:              bgs.DefaultConfig(),
		ProcessWidth:        320,
		Grayscale:           false,
		BlurRadius:          1,
		MinDensity:          5,
		UseHighMask:         true,
		MotionHistoryLength: 150, // 5 seconds at 30 FPS
	}
}

// Option configures a MedianMotionDetector.
type Option func(*MedianMotionDetector)

// WithLogger sets the logger used by the detector and its engine.
func WithLogger(logger *zap.Logger) Option {
	return func(m *MedianMotionDetector) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithProfiler records engine stage timings and "density" filter timings.
func WithProfiler(rp *profiler.RuntimeProfiler) Option {
	return func(m *MedianMotionDetector) {
		m.profiler = rp
	}
}

// MedianMotionDetector implements motion detection using an adaptive median
// background model.
//
// Each frame is optionally downscaled, converted to luma and blurred, then run
// through the engine. The resulting mask is density filtered and its foreground
// coverage becomes the raw motion score, which is smoothed over recent history.
type MedianMotionDetector struct {
	config        MotionDetectionConfig
	driver        *bgs.Driver
	logger        *zap.Logger
	profiler      *profiler.RuntimeProfiler
	motionHistory []float32
	lastMask      *images.Mask
	frameCount    int64
	mu            sync.RWMutex
}

// NewMedianMotionDetector creates a new adaptive median motion detector
//
// Arguments:
//   - config: Configuration parameters for motion detection
//   - opts: Optional logger and profiler
//
// Returns:
//   - *MedianMotionDetector: The initialized motion detector
//   - error: If the engine configuration is invalid
//
// @example
// config := DefaultMotionDetectionConfig()
// detector, err := NewMedianMotionDetector(config)
//
//	if err != nil {
//	    return err
//	}
func NewMedianMotionDetector(config MotionDetectionConfig, opts ...Option) (*MedianMotionDetector, error) {
	if config.MinDensity < 0 || config.MinDensity > 8 {
		return nil, errors.Errorf("min density must be within 0..8, got %d", config.MinDensity)
	}
	if config.MotionHistoryLength <= 0 {
		config.MotionHistoryLength = 1
	}

	detector := &MedianMotionDetector{
		config:        config,
		logger:        zap.NewNop(),
		motionHistory: make([]float32, 0, config.MotionHistoryLength),
	}
	for _, opt := range opts {
		opt(detector)
	}

	driver, err := bgs.NewDriver(config.Engine,
		bgs.WithLogger(detector.logger.Named("bgs")),
		bgs.WithProfiler(detector.profiler),
		bgs.WithProgressInterval(0),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create background subtraction engine")
	}
	detector.driver = driver

	return detector, nil
}

// DetectMotion detects motion in the given frame and returns a motion score
//
// The motion score ranges from 0.0 (no motion) to 1.0 (every pixel foreground).
// The first frame seeds the background model and always scores 0.
//
// Arguments:
//   - frame: The video frame to analyze for motion
//
// Returns:
//   - float64: Smoothed motion score between 0.0 and 1.0
//   - error: An error if the frame cannot be processed
//
// @example
// score, err := detector.DetectMotion(controller.Frame{ID: i, Pixels: frame})
//
//	if err != nil {
//	    return err
//	}
func (mmd *MedianMotionDetector) DetectMotion(frame Frame) (float64, error) {
	mmd.mu.Lock()
	defer mmd.mu.Unlock()

	pixels, err := mmd.prepare(frame.Pixels)
	if err != nil {
		return 0.0, errors.Wrapf(err, "failed to prepare frame %d", frame.ID)
	}

	result, err := mmd.driver.Apply(pixels)
	if err != nil {
		return 0.0, errors.Wrapf(err, "failed to segment frame %d", frame.ID)
	}

	mask := result.Low
	if mmd.config.UseHighMask {
		mask = result.High
	}
	if mmd.config.MinDensity > 0 {
		stop := mmd.startOperation("density")
		mask = images.DensityFilter(mask, mmd.config.MinDensity, images.Foreground)
		stop()
	}
	mmd.lastMask = mask
	mmd.frameCount++

	if result.Index == 0 {
		return 0.0, nil
	}

	score := math32.Min(math32.Max(float32(mask.Coverage()), 0), 1)
	mmd.updateMotionHistory(score)

	smoothed := mmd.getSmoothedMotionScore()
	mmd.logger.Debug("motion score",
		zap.Int("frame", frame.ID),
		zap.Float32("raw", score),
		zap.Float32("smoothed", smoothed),
	)
	return float64(smoothed), nil
}

// prepare applies the configured downscale, luma conversion and blur.
func (mmd *MedianMotionDetector) prepare(f images.Frame) (images.Frame, error) {
	if f.Empty() {
		return images.Frame{}, bgs.ErrEmptyFrame
	}
	if err := f.Validate(); err != nil {
		return images.Frame{}, err
	}
	if mmd.config.ProcessWidth > 0 || mmd.config.ProcessHeight > 0 {
		resized, err := images.DownscaleFrame(f, mmd.config.ProcessWidth, mmd.config.ProcessHeight)
		if err != nil {
			return images.Frame{}, err
		}
		f = resized
	}
	if mmd.config.Grayscale {
		f = f.Gray()
	}
	if mmd.config.BlurRadius > 0 {
		f = images.BoxBlur(f, mmd.config.BlurRadius, images.EdgeClamp)
	}
	return f, nil
}

// updateMotionHistory adds a new motion score to the history buffer
func (mmd *MedianMotionDetector) updateMotionHistory(score float32) {
	mmd.motionHistory = append(mmd.motionHistory, score)

	if len(mmd.motionHistory) > mmd.config.MotionHistoryLength {
		mmd.motionHistory = mmd.motionHistory[len(mmd.motionHistory)-mmd.config.MotionHistoryLength:]
	}
}

// getSmoothedMotionScore calculates a weighted average where recent frames weigh more
func (mmd *MedianMotionDetector) getSmoothedMotionScore() float32 {
	n := len(mmd.motionHistory)
	if n == 0 {
		return 0.0
	}

	var totalScore, totalWeight float32
	for i, score := range mmd.motionHistory {
		weight := float32(i+1) / float32(n)
		totalScore += score * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0.0
	}

	return math32.Min(totalScore/totalWeight, 1)
}

func (mmd *MedianMotionDetector) startOperation(name string) func() {
	if mmd.profiler == nil {
		return func() {}
	}
	return mmd.profiler.StartOperation(name)
}

// LastMask returns a copy of the mask that produced the latest score, or nil
// before the first frame.
func (mmd *MedianMotionDetector) LastMask() *images.Mask {
	mmd.mu.RLock()
	defer mmd.mu.RUnlock()
	return mmd.lastMask.Clone()
}

// Background returns a snapshot of the background model at processing resolution.
func (mmd *MedianMotionDetector) Background() (images.Frame, bool) {
	mmd.mu.RLock()
	defer mmd.mu.RUnlock()
	return mmd.driver.Background()
}

// GetMotionHistory returns the recent raw motion scores, oldest first.
//
// Returns:
//   - []float64: Slice of recent motion scores
func (mmd *MedianMotionDetector) GetMotionHistory() []float64 {
	mmd.mu.RLock()
	defer mmd.mu.RUnlock()

	history := make([]float64, len(mmd.motionHistory))
	for i, s := range mmd.motionHistory {
		history[i] = float64(s)
	}
	return history
}

// GetFrameCount returns the total number of frames processed
func (mmd *MedianMotionDetector) GetFrameCount() int64 {
	mmd.mu.RLock()
	defer mmd.mu.RUnlock()
	return mmd.frameCount
}

// Reset clears the background model and the motion history.
//
// Use this when switching between different video streams or after long pauses.
func (mmd *MedianMotionDetector) Reset() {
	mmd.mu.Lock()
	defer mmd.mu.Unlock()

	mmd.driver.Reset()
	mmd.motionHistory = mmd.motionHistory[:0]
	mmd.lastMask = nil
	mmd.frameCount = 0
}

// GetConfig returns the current motion detection configuration
func (mmd *MedianMotionDetector) GetConfig() MotionDetectionConfig {
	mmd.mu.RLock()
	defer mmd.mu.RUnlock()
	return mmd.config
}
