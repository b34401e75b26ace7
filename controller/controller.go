// Package controller - Turns background subtraction masks into motion scores and
// debounced motion state for a video stream.
package controller

import (
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-bgs/images"
)

// Frame is a single frame of video.
type Frame struct {
	ID        int
	Pixels    images.Frame
	Timestamp time.Time
}

// MotionDetector is an interface for a motion detector.
type MotionDetector interface {
	DetectMotion(frame Frame) (float64, error)
}

// State is the debounced motion state of a stream.
type State int

const (
	// StateIdle means the scene matches its background.
	StateIdle State = iota
	// StateMotion means sustained foreground activity.
	StateMotion
)

func (s State) String() string {
	if s == StateMotion {
		return "motion"
	}
	return "idle"
}

// ThresholdConfig is a configuration for the thresholds.
type ThresholdConfig struct {
	// MotionThreshold is the score above which a frame counts as motion.
	MotionThreshold float64
	// HysteresisFrames is how many consecutive frames must disagree with the
	// current state before it flips.
	HysteresisFrames int
}

// Controller debounces motion scores into a State.
type Controller struct {
	MotionDetector  MotionDetector
	Current         State
	HysteresisCount int
	Thresholds      ThresholdConfig
}

// Decide scores the frame and returns the debounced state.
//
// Arguments:
//   - frame: The frame to score.
//
// Returns:
//   - State: The state after this frame.
//   - error: An error if motion detection fails.
func (rc *Controller) Decide(frame Frame) (State, error) {
	motionScore, err := rc.MotionDetector.DetectMotion(frame)
	if err != nil {
		return rc.Current, errors.Wrapf(err, "frame %d", frame.ID)
	}

	next := StateIdle
	if motionScore > rc.Thresholds.MotionThreshold {
		next = StateMotion
	}

	if next != rc.Current {
		rc.HysteresisCount++
		if rc.HysteresisCount >= rc.Thresholds.HysteresisFrames {
			rc.Current = next
			rc.HysteresisCount = 0
		}
	} else {
		rc.HysteresisCount = 0
	}

	return rc.Current, nil
}
