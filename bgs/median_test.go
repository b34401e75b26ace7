package bgs

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-bgs/images"
)

func uniformFrame(w, h, ch int, v uint8) images.Frame {
	f := images.NewFrame(w, h, ch)
	for i := range f.Pix {
		f.Pix[i] = v
	}
	return f
}

func randomFrame(rng *rand.Rand, w, h, ch int) images.Frame {
	f := images.NewFrame(w, h, ch)
	for i := range f.Pix {
		f.Pix[i] = uint8(rng.Intn(256))
	}
	return f
}

func newModel(t *testing.T, cfg Config, first images.Frame) *AdaptiveMedian {
	t.Helper()
	alg, err := NewAdaptiveMedian(cfg)
	require.NoError(t, err)
	require.NoError(t, alg.InitModel(first))
	return alg
}

func TestAdaptiveMedian_ColdStart(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	frame := randomFrame(rng, 17, 11, 3)

	alg := newModel(t, DefaultConfig(), frame)
	assert.Equal(t, frame.Pix, alg.Background().Pix)

	low, high, err := alg.Subtract(frame)
	require.NoError(t, err)
	assert.Equal(t, 0, low.Count(images.Foreground))
	assert.Equal(t, 0, high.Count(images.Foreground))
}

func TestAdaptiveMedian_InitCopiesFrame(t *testing.T) {
	frame := uniformFrame(4, 4, 1, 50)
	alg := newModel(t, DefaultConfig(), frame)

	frame.Pix[0] = 200
	assert.Equal(t, uint8(50), alg.Background().Pix[0])

	bg := alg.Background()
	bg.Pix[1] = 99
	assert.Equal(t, uint8(50), alg.Background().Pix[1])
}

func TestAdaptiveMedian_Convergence(t *testing.T) {
	cfg := Config{LowThreshold: 10, HighThreshold: 20, SamplingRate: 1, LearningFrames: 1000}
	alg := newModel(t, cfg, uniformFrame(6, 5, 3, 20))
	target := uniformFrame(6, 5, 3, 200)

	for idx := 1; idx <= 180; idx++ {
		low, _, err := alg.Subtract(target)
		require.NoError(t, err)
		require.NoError(t, alg.Update(idx, target, low))

		want := uint8(20 + idx)
		for _, v := range alg.Background().Pix {
			require.Equal(t, want, v, "model must move by exactly one per update")
		}
	}

	low, high, err := alg.Subtract(target)
	require.NoError(t, err)
	assert.Equal(t, 0, low.Count(images.Foreground))
	assert.Equal(t, 0, high.Count(images.Foreground))

	// Once converged the model is stable.
	require.NoError(t, alg.Update(181, target, low))
	assert.Equal(t, target.Pix, alg.Background().Pix)
}

func TestAdaptiveMedian_ThresholdOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cfg := Config{LowThreshold: 30, HighThreshold: 90, SamplingRate: 7, LearningFrames: 30}
	alg := newModel(t, cfg, randomFrame(rng, 32, 24, 3))

	for i := 0; i < 10; i++ {
		frame := randomFrame(rng, 32, 24, 3)
		low, high, err := alg.Subtract(frame)
		require.NoError(t, err)
		for p := range low.Pix {
			if high.Pix[p] == images.Foreground {
				require.Equal(t, images.Foreground, low.Pix[p], "pixel %d", p)
			}
			if low.Pix[p] == images.Background {
				require.Equal(t, images.Background, high.Pix[p], "pixel %d", p)
			}
		}
	}
}

func TestAdaptiveMedian_LearningOverride(t *testing.T) {
	cfg := Config{LowThreshold: 5, HighThreshold: 10, SamplingRate: 7, LearningFrames: 10}
	alg := newModel(t, cfg, uniformFrame(3, 3, 1, 0))
	frame := uniformFrame(3, 3, 1, 255)

	low, _, err := alg.Subtract(frame)
	require.NoError(t, err)
	require.Equal(t, 9, low.Count(images.Foreground))

	// Frame 4 is off the sampling cadence but inside the learning window.
	require.NoError(t, alg.Update(4, frame, low))
	for _, v := range alg.Background().Pix {
		assert.Equal(t, uint8(1), v)
	}
}

func TestAdaptiveMedian_ForegroundFrozenAfterLearning(t *testing.T) {
	cfg := Config{LowThreshold: 5, HighThreshold: 10, SamplingRate: 7, LearningFrames: 10}
	alg := newModel(t, cfg, uniformFrame(4, 1, 1, 100))

	frame := images.NewFrame(4, 1, 1)
	copy(frame.Pix, []uint8{100, 104, 106, 250})

	low, _, err := alg.Subtract(frame)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 0, 255, 255}, low.Pix)

	// 15 % 7 == 1, past learning.
	require.NoError(t, alg.Update(15, frame, low))
	assert.Equal(t, []uint8{100, 101, 100, 100}, alg.Background().Pix)
}

func TestAdaptiveMedian_SamplingGate(t *testing.T) {
	cfg := Config{LowThreshold: 40, HighThreshold: 80, SamplingRate: 7, LearningFrames: 30}
	alg := newModel(t, cfg, uniformFrame(8, 8, 3, 100))
	frame := uniformFrame(8, 8, 3, 110)

	for idx := 30; idx < 60; idx++ {
		before := images.ComputeChecksum(alg.Background().Pix)
		low, _, err := alg.Subtract(frame)
		require.NoError(t, err)
		require.NoError(t, alg.Update(idx, frame, low))
		after := images.ComputeChecksum(alg.Background().Pix)

		if idx%7 == 1 {
			assert.NotEqual(t, before, after, "frame %d is on the cadence", idx)
		} else {
			assert.Equal(t, before, after, "frame %d is off the cadence", idx)
		}
	}
}

func TestAdaptiveMedian_SamplingRateOneNeverUpdatesAfterLearning(t *testing.T) {
	cfg := Config{LowThreshold: 40, HighThreshold: 80, SamplingRate: 1, LearningFrames: 2}
	alg := newModel(t, cfg, uniformFrame(2, 2, 1, 100))
	frame := uniformFrame(2, 2, 1, 120)

	for idx := 2; idx < 20; idx++ {
		low, _, err := alg.Subtract(frame)
		require.NoError(t, err)
		require.NoError(t, alg.Update(idx, frame, low))
	}
	assert.Equal(t, uniformFrame(2, 2, 1, 100).Pix, alg.Background().Pix)
}

func TestAdaptiveMedian_ZeroLearningFrames(t *testing.T) {
	cfg := Config{LowThreshold: 3, HighThreshold: 10, SamplingRate: 7, LearningFrames: 0}
	alg := newModel(t, cfg, uniformFrame(2, 2, 1, 100))
	frame := uniformFrame(2, 2, 1, 150)

	low, _, err := alg.Subtract(frame)
	require.NoError(t, err)
	require.NoError(t, alg.Update(1, frame, low))
	assert.Equal(t, uniformFrame(2, 2, 1, 100).Pix, alg.Background().Pix)
}

func TestAdaptiveMedian_NumericScenario(t *testing.T) {
	cfg := Config{LowThreshold: 3, HighThreshold: 10, SamplingRate: 7, LearningFrames: 100}
	alg := newModel(t, cfg, uniformFrame(1, 1, 1, 100))
	frame := uniformFrame(1, 1, 1, 105)

	cases := []struct {
		idx       int
		wantLow   uint8
		wantHigh  uint8
		wantModel uint8
	}{
		{1, images.Foreground, images.Background, 101},
		{2, images.Foreground, images.Background, 102},
		{3, images.Background, images.Background, 103},
		{4, images.Background, images.Background, 104},
		{5, images.Background, images.Background, 105},
		{6, images.Background, images.Background, 105},
		{7, images.Background, images.Background, 105},
	}
	for _, c := range cases {
		low, high, err := alg.Subtract(frame)
		require.NoError(t, err)
		assert.Equal(t, c.wantLow, low.Pix[0], "low mask at frame %d", c.idx)
		assert.Equal(t, c.wantHigh, high.Pix[0], "high mask at frame %d", c.idx)

		require.NoError(t, alg.Update(c.idx, frame, low))
		assert.Equal(t, c.wantModel, alg.Background().Pix[0], "model after frame %d", c.idx)
	}
}

func TestAdaptiveMedian_Saturation(t *testing.T) {
	assert.Equal(t, uint8(255), step(255, 255))
	assert.Equal(t, uint8(255), step(254, 255))
	assert.Equal(t, uint8(0), step(0, 0))
	assert.Equal(t, uint8(0), step(1, 0))
	assert.Equal(t, uint8(128), step(128, 128))

	cfg := Config{LowThreshold: 0, HighThreshold: 0, SamplingRate: 7, LearningFrames: 10}
	first := images.NewFrame(2, 1, 1)
	copy(first.Pix, []uint8{255, 0})
	alg := newModel(t, cfg, first)

	for idx := 1; idx < 5; idx++ {
		low, _, err := alg.Subtract(first)
		require.NoError(t, err)
		require.NoError(t, alg.Update(idx, first, low))
	}
	assert.Equal(t, []uint8{255, 0}, alg.Background().Pix)

	flipped := images.NewFrame(2, 1, 1)
	copy(flipped.Pix, []uint8{0, 255})
	low, _, err := alg.Subtract(flipped)
	require.NoError(t, err)
	require.NoError(t, alg.Update(5, flipped, low))
	assert.Equal(t, []uint8{254, 1}, alg.Background().Pix)
}

func TestAdaptiveMedian_ShapeMismatch(t *testing.T) {
	alg := newModel(t, DefaultConfig(), uniformFrame(4, 4, 3, 10))
	before := images.ComputeChecksum(alg.Background().Pix)

	for _, frame := range []images.Frame{
		uniformFrame(5, 4, 3, 10),
		uniformFrame(4, 5, 3, 10),
		uniformFrame(4, 4, 1, 10),
	} {
		_, _, err := alg.Subtract(frame)
		assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)

		err = alg.Update(1, frame, images.NewMask(frame.Width, frame.Height))
		assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
	}

	err := alg.Update(1, uniformFrame(4, 4, 3, 10), images.NewMask(3, 3))
	assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)

	assert.Equal(t, before, images.ComputeChecksum(alg.Background().Pix))
}

func TestAdaptiveMedian_NotInitialized(t *testing.T) {
	alg, err := NewAdaptiveMedian(DefaultConfig())
	require.NoError(t, err)
	assert.False(t, alg.Initialized())
	assert.True(t, alg.Background().Empty())

	_, _, err = alg.Subtract(uniformFrame(2, 2, 1, 0))
	assert.True(t, errors.Is(err, ErrNotInitialized))

	assert.True(t, errors.Is(alg.InitModel(images.Frame{}), ErrEmptyFrame))

	require.NoError(t, alg.InitModel(uniformFrame(2, 2, 1, 0)))
	assert.True(t, alg.Initialized())
	alg.Reset()
	assert.False(t, alg.Initialized())
}

func TestSegment_MaxChannelDifference(t *testing.T) {
	model := uniformFrame(3, 1, 3, 100)
	frame := model.Clone()
	frame.Set(0, 0, 100, 100, 100)
	frame.Set(1, 0, 100, 120, 100) // one channel off by 20
	frame.Set(2, 0, 60, 100, 140)  // two channels off by 40

	low := images.NewMask(3, 1)
	high := images.NewMask(3, 1)
	require.NoError(t, Segment(frame, model, 20, 40, low, high))
	assert.Equal(t, []uint8{0, 0, 255}, low.Pix)
	assert.Equal(t, []uint8{0, 0, 0}, high.Pix)

	require.NoError(t, Segment(frame, model, 19, 39, low, high))
	assert.Equal(t, []uint8{0, 255, 255}, low.Pix)
	assert.Equal(t, []uint8{0, 0, 255}, high.Pix)
}

func TestSegment_RejectsMismatchedMasks(t *testing.T) {
	frame := uniformFrame(3, 3, 1, 0)
	err := Segment(frame, frame, 1, 2, images.NewMask(3, 3), images.NewMask(2, 3))
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}
