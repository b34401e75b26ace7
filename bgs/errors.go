package bgs

import "github.com/pkg/errors"

var (
	// ErrShapeMismatch is returned when a frame or mask does not match the model's
	// width, height or channel count.
	ErrShapeMismatch = errors.New("frame shape does not match background model")
	// ErrEmptyFrame is returned when an empty frame is passed to the engine.
	ErrEmptyFrame = errors.New("empty frame")
	// ErrInvalidConfig is returned for configurations the engine cannot run with.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNotInitialized is returned when the model is used before InitModel.
	ErrNotInitialized = errors.New("background model not initialized")
)
