// Package test provides deterministic synthetic video for end-to-end testing of
// the background subtraction pipeline.
package test

import (
	"io"
	"math/rand"

	"github.com/nvr-ai/go-bgs/images"
)

// MockFrameGenerator creates deterministic test frames for idempotent testing.
//
// Returns:
// - A generator for creating test frames with controlled motion patterns.
//
// @example
// gen := NewMockFrameGenerator(640, 480, 3)
// frame := gen.GenerateStaticFrame()
type MockFrameGenerator struct {
	width    int
	height   int
	channels int
	seed     int64
	rng      *rand.Rand
}

// NewMockFrameGenerator creates a new frame generator with specified dimensions.
//
// Arguments:
// - width: Frame width in pixels.
// - height: Frame height in pixels.
// - channels: Samples per pixel.
//
// Returns:
// - A configured MockFrameGenerator instance.
//
// @example
// gen := NewMockFrameGenerator(1920, 1080, 3)
func NewMockFrameGenerator(width, height, channels int) *MockFrameGenerator {
	const seed = 42 // Deterministic seed for reproducibility.
	return &MockFrameGenerator{
		width:    width,
		height:   height,
		channels: channels,
		seed:     seed,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Reseed restarts the noise sequence so that a stream can be replayed exactly.
func (g *MockFrameGenerator) Reseed() {
	g.rng = rand.New(rand.NewSource(g.seed))
}

// GenerateStaticFrame creates a mid-gray background frame.
func (g *MockFrameGenerator) GenerateStaticFrame() images.Frame {
	frame := images.NewFrame(g.width, g.height, g.channels)
	for i := range frame.Pix {
		frame.Pix[i] = 128
	}
	return frame
}

// GenerateMotionFrame creates a frame with a bright square at a specific position.
//
// Arguments:
// - x: X coordinate of motion region.
// - y: Y coordinate of motion region.
// - size: Size of the motion region in pixels.
//
// Returns:
// - A frame with the square clipped to the frame bounds.
//
// @example
// frame := gen.GenerateMotionFrame(100, 100, 50)
func (g *MockFrameGenerator) GenerateMotionFrame(x, y, size int) images.Frame {
	frame := g.GenerateStaticFrame()
	white := make([]uint8, g.channels)
	for i := range white {
		white[i] = 255
	}
	for py := max(y, 0); py < min(y+size, g.height); py++ {
		for px := max(x, 0); px < min(x+size, g.width); px++ {
			frame.Set(px, py, white...)
		}
	}
	return frame
}

// GenerateNoisyFrame creates a static frame with uniform noise of +-amplitude
// on every sample.
func (g *MockFrameGenerator) GenerateNoisyFrame(amplitude int) images.Frame {
	frame := g.GenerateStaticFrame()
	for i := range frame.Pix {
		v := int(frame.Pix[i]) + g.rng.Intn(2*amplitude+1) - amplitude
		frame.Pix[i] = uint8(min(max(v, 0), 255))
	}
	return frame
}

// MovingSquare returns a source that yields background frames for the first
// warmup frames and then a square moving right by step pixels per frame.
// It reports io.EOF after total frames.
func (g *MockFrameGenerator) MovingSquare(warmup, total, size, step int) *SliceSource {
	frames := make([]images.Frame, 0, total)
	for i := 0; i < total; i++ {
		if i < warmup {
			frames = append(frames, g.GenerateStaticFrame())
			continue
		}
		x := (i - warmup) * step
		frames = append(frames, g.GenerateMotionFrame(x, g.height/2-size/2, size))
	}
	return &SliceSource{Frames: frames}
}

// SliceSource replays a fixed list of frames.
type SliceSource struct {
	Frames []images.Frame
	pos    int
}

// Next returns the next frame, or io.EOF.
func (s *SliceSource) Next() (images.Frame, error) {
	if s.pos >= len(s.Frames) {
		return images.Frame{}, io.EOF
	}
	f := s.Frames[s.pos]
	s.pos++
	return f, nil
}

// CollectingSink keeps a copy of every mask it receives.
type CollectingSink struct {
	Indices []int
	Masks   []*images.Mask
}

// Write stores a copy of mask.
func (c *CollectingSink) Write(index int, mask *images.Mask) error {
	c.Indices = append(c.Indices, index)
	c.Masks = append(c.Masks, mask.Clone())
	return nil
}

// Checksums returns the checksum of every collected mask.
func (c *CollectingSink) Checksums() []string {
	sums := make([]string, len(c.Masks))
	for i, m := range c.Masks {
		sums[i] = images.ComputeChecksum(m.Pix)
	}
	return sums
}
