package bgs

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-bgs/images"
)

// AdaptiveMedian approximates a per-pixel running median: each model sample moves
// one intensity step toward the observed value whenever it is updated. The
// model never changes by more than 1 per channel per update.
type AdaptiveMedian struct {
	config Config
	model  images.Frame
}

// NewAdaptiveMedian creates an uninitialized adaptive median model.
//
// Arguments:
//   - config: Thresholds and update cadence.
//
// Returns:
//   - *AdaptiveMedian: The model, ready for InitModel.
//   - error: If the configuration is invalid.
func NewAdaptiveMedian(config Config) (*AdaptiveMedian, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &AdaptiveMedian{config: config}, nil
}

// InitModel copies frame into the model. Any previous model is discarded.
func (a *AdaptiveMedian) InitModel(frame images.Frame) error {
	if frame.Empty() {
		return ErrEmptyFrame
	}
	if err := frame.Validate(); err != nil {
		return errors.Wrap(err, "failed to initialize background model")
	}
	a.model = frame.Clone()
	return nil
}

// Initialized reports whether the model holds a background image.
func (a *AdaptiveMedian) Initialized() bool {
	return !a.model.Empty()
}

// Subtract labels frame against the model under the low and high thresholds.
// The model is not modified.
func (a *AdaptiveMedian) Subtract(frame images.Frame) (*images.Mask, *images.Mask, error) {
	if err := a.check(frame); err != nil {
		return nil, nil, err
	}
	low := images.NewMask(frame.Width, frame.Height)
	high := images.NewMask(frame.Width, frame.Height)
	if err := Segment(frame, a.model, a.config.LowThreshold, a.config.HighThreshold, low, high); err != nil {
		return nil, nil, err
	}
	return low, high, nil
}

// Update moves the model toward frame. Nothing happens unless frameIndex is on
// the sampling cadence (frameIndex % SamplingRate == 1) or inside the learning
// window. Within an eligible frame a pixel is updated when the low mask marks it
// as background, or unconditionally while still learning.
//
// Arguments:
//   - frameIndex: Zero-based index of frame in the stream.
//   - frame: The observed frame, same shape as the model.
//   - low: The low-threshold mask Subtract produced for frame.
//
// Returns:
//   - error: On shape mismatch or if the model is not initialized.
func (a *AdaptiveMedian) Update(frameIndex int, frame images.Frame, low *images.Mask) error {
	if err := a.check(frame); err != nil {
		return err
	}
	if !low.SameSize(frame) {
		return errors.Wrap(ErrShapeMismatch, "low mask")
	}

	learning := frameIndex < a.config.LearningFrames
	if !learning && frameIndex%a.config.SamplingRate != 1 {
		return nil
	}

	model := a.model
	ch := model.Channels
	images.Parallel(model.Height, func(start, end int) {
		for y := start; y < end; y++ {
			mrow := model.Row(y)
			frow := frame.Row(y)
			lrow := low.Row(y)
			for x, label := range lrow {
				if label != images.Background && !learning {
					continue
				}
				for c := x * ch; c < (x+1)*ch; c++ {
					mrow[c] = step(mrow[c], frow[c])
				}
			}
		}
	})
	return nil
}

// Background returns a copy of the current model, or an empty frame before
// InitModel.
func (a *AdaptiveMedian) Background() images.Frame {
	return a.model.Clone()
}

// Reset discards the model.
func (a *AdaptiveMedian) Reset() {
	a.model = images.Frame{}
}

func (a *AdaptiveMedian) check(frame images.Frame) error {
	if !a.Initialized() {
		return ErrNotInitialized
	}
	if frame.Empty() {
		return ErrEmptyFrame
	}
	if !frame.SameShape(a.model) || len(frame.Pix) != len(a.model.Pix) {
		return errors.Wrapf(ErrShapeMismatch, "frame %dx%dx%d, model %dx%dx%d",
			frame.Width, frame.Height, frame.Channels,
			a.model.Width, a.model.Height, a.model.Channels)
	}
	return nil
}

// Segment labels every pixel of frame against model. A pixel is Background in
// a mask when the absolute difference on every channel is within that mask's
// threshold, and Foreground otherwise. Both masks are written in a single pass.
//
// Arguments:
//   - frame: The observed frame.
//   - model: The background model, same shape as frame.
//   - low: Threshold for lowMask.
//   - high: Threshold for highMask.
//   - lowMask: Output mask, sized to frame.
//   - highMask: Output mask, sized to frame.
//
// Returns:
//   - error: If the inputs disagree in shape.
//
// @example
// low := images.NewMask(frame.Width, frame.Height)
// high := images.NewMask(frame.Width, frame.Height)
// err := bgs.Segment(frame, background, 40, 80, low, high)
func Segment(frame, model images.Frame, low, high uint8, lowMask, highMask *images.Mask) error {
	if !frame.SameShape(model) || len(frame.Pix) != len(model.Pix) {
		return errors.Wrap(ErrShapeMismatch, "segment")
	}
	if !lowMask.SameSize(frame) || !highMask.SameSize(frame) {
		return errors.Wrap(ErrShapeMismatch, "segment output mask")
	}

	ch := frame.Channels
	images.Parallel(frame.Height, func(start, end int) {
		for y := start; y < end; y++ {
			frow := frame.Row(y)
			mrow := model.Row(y)
			lrow := lowMask.Row(y)
			hrow := highMask.Row(y)
			for x := range lrow {
				var diff uint8
				for c := x * ch; c < (x+1)*ch; c++ {
					if d := absDiff(frow[c], mrow[c]); d > diff {
						diff = d
					}
				}
				lrow[x] = label(diff, low)
				hrow[x] = label(diff, high)
			}
		}
	})
	return nil
}

func label(diff, threshold uint8) uint8 {
	if diff <= threshold {
		return images.Background
	}
	return images.Foreground
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

// step moves m one unit toward v, saturating at the uint8 range.
func step(m, v uint8) uint8 {
	switch {
	case v > m && m < 255:
		return m + 1
	case v < m && m > 0:
		return m - 1
	}
	return m
}
