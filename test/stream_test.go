package test

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-bgs/bgs"
	"github.com/nvr-ai/go-bgs/controller"
	"github.com/nvr-ai/go-bgs/images"
)

func TestMovingSquareIsTrackedExactly(t *testing.T) {
	const (
		width, height = 64, 48
		size, step    = 8, 4
		warmup        = 10
	)
	gen := NewMockFrameGenerator(width, height, 3)
	src := gen.MovingSquare(warmup, 24, size, step)

	driver, err := bgs.NewDriver(bgs.DefaultConfig())
	require.NoError(t, err)

	sink := &CollectingSink{}
	n, err := driver.Run(context.Background(), src, sink)
	require.NoError(t, err)
	require.Equal(t, 24, n)

	for i, mask := range sink.Masks {
		if i < warmup {
			assert.Zero(t, mask.Count(images.Foreground), "frame %d", i)
			continue
		}
		x := (i - warmup) * step
		y := height/2 - size/2
		assert.Equal(t, size*size, mask.Count(images.Foreground), "frame %d", i)
		assert.Equal(t, images.Foreground, mask.At(x, y), "frame %d", i)
		assert.Equal(t, images.Foreground, mask.At(x+size-1, y+size-1), "frame %d", i)
	}
}

func TestNoiseBelowThresholdIsBackground(t *testing.T) {
	gen := NewMockFrameGenerator(32, 32, 3)
	driver, err := bgs.NewDriver(bgs.DefaultConfig())
	require.NoError(t, err)

	for i := 0; i < 60; i++ {
		res, err := driver.Apply(gen.GenerateNoisyFrame(10))
		require.NoError(t, err)
		require.Zero(t, res.Low.Count(images.Foreground), "frame %d", i)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	gen := NewMockFrameGenerator(96, 64, 3)

	run := func() []string {
		gen.Reseed()
		frames := make([]images.Frame, 0, 40)
		for i := 0; i < 40; i++ {
			f := gen.GenerateNoisyFrame(60)
			if i > 20 {
				sq := gen.GenerateMotionFrame(i, 10, 12)
				for p := range f.Pix {
					if sq.Pix[p] == 255 {
						f.Pix[p] = 255
					}
				}
			}
			frames = append(frames, f)
		}

		driver, err := bgs.NewDriver(bgs.Config{LowThreshold: 30, HighThreshold: 60, SamplingRate: 3, LearningFrames: 10})
		require.NoError(t, err)
		sink := &CollectingSink{}
		_, err = driver.Run(context.Background(), &SliceSource{Frames: frames}, sink)
		require.NoError(t, err)
		return sink.Checksums()
	}

	parallel := run()
	assert.Equal(t, parallel, run())

	prev := runtime.GOMAXPROCS(1)
	defer runtime.GOMAXPROCS(prev)
	assert.Equal(t, parallel, run(), "row partitioning must not change results")
}

func TestStationaryObjectStaysForegroundAfterLearning(t *testing.T) {
	gen := NewMockFrameGenerator(16, 16, 1)
	driver, err := bgs.NewDriver(bgs.Config{LowThreshold: 20, HighThreshold: 40, SamplingRate: 7, LearningFrames: 2})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := driver.Apply(gen.GenerateStaticFrame())
		require.NoError(t, err)
	}

	parked := gen.GenerateMotionFrame(4, 4, 6)
	var last *bgs.Result
	for i := 0; i < 100; i++ {
		last, err = driver.Apply(parked)
		require.NoError(t, err)
	}
	assert.Equal(t, 36, last.Low.Count(images.Foreground))

	bg, ok := driver.Background()
	require.True(t, ok)
	assert.Equal(t, uint8(128), bg.At(6, 6)[0], "foreground pixels are never learned after the learning window")
}

func TestControllerFlagsMotion(t *testing.T) {
	gen := NewMockFrameGenerator(64, 48, 3)
	cfg := controller.DefaultMotionDetectionConfig()
	cfg.ProcessWidth = 0
	cfg.MotionHistoryLength = 1
	detector, err := controller.NewMedianMotionDetector(cfg)
	require.NoError(t, err)

	gate := &controller.Controller{
		MotionDetector: detector,
		Thresholds:     controller.ThresholdConfig{MotionThreshold: 0.01, HysteresisFrames: 3},
	}

	src := gen.MovingSquare(10, 20, 12, 3)
	var states []controller.State
	for id := 0; ; id++ {
		f, err := src.Next()
		if err != nil {
			break
		}
		state, err := gate.Decide(controller.Frame{ID: id, Pixels: f})
		require.NoError(t, err)
		states = append(states, state)
	}

	require.Len(t, states, 20)
	for i := 0; i < 12; i++ {
		assert.Equal(t, controller.StateIdle, states[i], "frame %d", i)
	}
	assert.Equal(t, controller.StateMotion, states[12], "third consecutive motion frame")
	assert.Equal(t, controller.StateMotion, states[19])
}
