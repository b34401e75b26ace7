// Package bgs implements adaptive median background subtraction: a per-pixel
// background model that is compared against every frame under a low and a high
// tolerance and nudged toward the observed scene one intensity step at a time.
//
// Pipeline per frame:
//
//	┌──────────────┐
//	│ Input Frame  │
//	└──────┬───────┘
//	┌──────────────────────────────────────┐
//	│ InitModel (frame 0 only: copy frame) │
//	└──────┬───────────────────────────────┘
//	┌──────────────────────────────────────┐
//	│ Subtract → low mask, high mask       │
//	└──────┬───────────────────────────────┘
//	┌──────────────────────────────────────┐
//	│ Emit low mask                        │
//	└──────┬───────────────────────────────┘
//	┌──────────────────────────────────────┐
//	│ Update model (gated by low mask)     │
//	└──────────────────────────────────────┘
//
// Usage:
//
//	driver, err := bgs.NewDriver(bgs.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	for {
//	    frame := getNextFrame()
//	    result, err := driver.Apply(frame)
//	    if err != nil {
//	        return err
//	    }
//	    useMask(result.Low)
//	}
package bgs

import "github.com/nvr-ai/go-bgs/images"

// Algorithm is the lifecycle shared by background subtraction variants:
// seed the model, classify a frame against it and adapt it.
//
// Subtract must not modify the model. Update may. A Driver always completes
// Subtract before calling Update for the same frame.
type Algorithm interface {
	// InitModel seeds the model from frame, discarding any previous state.
	InitModel(frame images.Frame) error
	// Initialized reports whether InitModel has been called since the last Reset.
	Initialized() bool
	// Subtract classifies frame against the model under both tolerances.
	Subtract(frame images.Frame) (low, high *images.Mask, err error)
	// Update adapts the model toward frame, gated by the low mask.
	Update(frameIndex int, frame images.Frame, low *images.Mask) error
	// Background returns a copy of the current model.
	Background() images.Frame
	// Reset discards the model.
	Reset()
}
