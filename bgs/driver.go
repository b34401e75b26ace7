package bgs

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-bgs/images"
	"github.com/nvr-ai/go-bgs/profiler"
)

// DefaultProgressInterval is how many frames pass between progress log lines.
const DefaultProgressInterval = 100

// Phase is the lifecycle stage of a Driver.
type Phase int

const (
	// PhaseUninitialized means no frame has been processed yet.
	PhaseUninitialized Phase = iota
	// PhaseLearning means every pixel is updated on every frame.
	PhaseLearning
	// PhaseSteady means only background pixels are updated, on the sampling cadence.
	PhaseSteady
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseLearning:
		return "learning"
	case PhaseSteady:
		return "steady"
	}
	return "unknown"
}

// Result is the outcome of processing one frame.
type Result struct {
	// Index is the zero-based position of the frame in the stream.
	Index int
	// Phase is the phase the frame was processed in.
	Phase Phase
	// Low is the low-threshold mask. It is the engine's output.
	Low *images.Mask
	// High is the high-threshold mask.
	High *images.Mask
}

// FrameSource yields frames in stream order. It returns io.EOF, or an empty
// frame, once the stream is exhausted.
type FrameSource interface {
	Next() (images.Frame, error)
}

// MaskSink consumes the low mask of every processed frame.
type MaskSink interface {
	Write(index int, mask *images.Mask) error
}

// FrameSourceFunc adapts a function to FrameSource.
type FrameSourceFunc func() (images.Frame, error)

// Next calls f.
func (f FrameSourceFunc) Next() (images.Frame, error) { return f() }

// MaskSinkFunc adapts a function to MaskSink.
type MaskSinkFunc func(index int, mask *images.Mask) error

// Write calls f.
func (f MaskSinkFunc) Write(index int, mask *images.Mask) error { return f(index, mask) }

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithProfiler records "segment" and "update" timings and the
// "foreground_ratio" metric on rp.
func WithProfiler(rp *profiler.RuntimeProfiler) Option {
	return func(d *Driver) {
		d.profiler = rp
	}
}

// WithProgressInterval sets how many frames pass between progress log lines.
// Zero or less disables progress logging.
func WithProgressInterval(n int) Option {
	return func(d *Driver) {
		d.progressInterval = n
	}
}

// WithAlgorithm replaces the adaptive median model.
func WithAlgorithm(alg Algorithm) Option {
	return func(d *Driver) {
		if alg != nil {
			d.algorithm = alg
		}
	}
}

// Driver feeds frames through an Algorithm in order: initialize on the first
// frame, subtract, emit the low mask, update, advance. It is not safe for
// concurrent use.
type Driver struct {
	config           Config
	algorithm        Algorithm
	logger           *zap.Logger
	profiler         *profiler.RuntimeProfiler
	progressInterval int

	index int
	phase Phase
}

// NewDriver creates a driver for an adaptive median model.
//
// An inverted threshold pair (HighThreshold < LowThreshold) is accepted and
// only logged as a warning.
//
// Arguments:
//   - config: Engine configuration. It cannot be changed afterwards.
//   - opts: Optional logger, profiler, progress interval or algorithm.
//
// Returns:
//   - *Driver: A driver in PhaseUninitialized.
//   - error: Wrapping ErrInvalidConfig if config is rejected.
//
// @example
// logger, _ := zap.NewDevelopment()
// driver, err := bgs.NewDriver(bgs.DefaultConfig(), bgs.WithLogger(logger))
//
//	if err != nil {
//	    return err
//	}
func NewDriver(config Config, opts ...Option) (*Driver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	d := &Driver{
		config:           config,
		logger:           zap.NewNop(),
		progressInterval: DefaultProgressInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.algorithm == nil {
		alg, err := NewAdaptiveMedian(config)
		if err != nil {
			return nil, err
		}
		d.algorithm = alg
	}

	if !config.Ordered() {
		d.logger.Warn("high threshold is below low threshold",
			zap.Uint8("low_threshold", config.LowThreshold),
			zap.Uint8("high_threshold", config.HighThreshold),
		)
	}
	return d, nil
}

// Apply processes one frame. On error the model and the index are unchanged.
func (d *Driver) Apply(frame images.Frame) (*Result, error) {
	return d.process(frame, nil)
}

// Run pulls frames from src until it is exhausted and writes each low mask to
// sink before the model is updated with that frame.
//
// Arguments:
//   - ctx: Checked between frames.
//   - src: Frame source. io.EOF or an empty frame ends the stream.
//   - sink: Receives every low mask.
//
// Returns:
//   - int: Number of frames processed by this call.
//   - error: ctx.Err(), or a wrapped source, sink or engine error.
func (d *Driver) Run(ctx context.Context, src FrameSource, sink MaskSink) (int, error) {
	processed := 0
	for {
		select {
		case <-ctx.Done():
			return processed, ctx.Err()
		default:
		}

		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			return processed, nil
		}
		if err != nil {
			return processed, errors.Wrapf(err, "failed to read frame %d", d.index)
		}
		if frame.Empty() {
			return processed, nil
		}

		_, err = d.process(frame, func(index int, low *images.Mask) error {
			if err := sink.Write(index, low); err != nil {
				return errors.Wrapf(err, "failed to write mask %d", index)
			}
			return nil
		})
		if err != nil {
			return processed, err
		}
		processed++
	}
}

func (d *Driver) process(frame images.Frame, emit func(int, *images.Mask) error) (*Result, error) {
	if frame.Empty() {
		return nil, ErrEmptyFrame
	}

	index := d.index
	phase := d.phaseAt(index)

	if index == 0 || !d.algorithm.Initialized() {
		if err := d.algorithm.InitModel(frame); err != nil {
			return nil, err
		}
		d.logger.Debug("background model initialized",
			zap.Int("width", frame.Width),
			zap.Int("height", frame.Height),
			zap.Int("channels", frame.Channels),
		)
		if phase == PhaseUninitialized {
			phase = d.phaseAfterInit()
		}
	}

	stop := d.startOperation("segment")
	low, high, err := d.algorithm.Subtract(frame)
	stop()
	if err != nil {
		return nil, errors.Wrapf(err, "frame %d", index)
	}

	if emit != nil {
		if err := emit(index, low); err != nil {
			return nil, err
		}
	}

	stop = d.startOperation("update")
	err = d.algorithm.Update(index, frame, low)
	stop()
	if err != nil {
		return nil, errors.Wrapf(err, "frame %d", index)
	}

	d.index++
	d.setPhase(d.phaseAt(d.index))

	if d.profiler != nil {
		d.profiler.RecordMetric("foreground_ratio", low.Coverage())
	}
	if d.progressInterval > 0 && d.index%d.progressInterval == 0 {
		d.logger.Info("processed frames",
			zap.Int("frames", d.index),
			zap.Stringer("phase", d.phase),
			zap.Float64("foreground_ratio", low.Coverage()),
		)
	}

	return &Result{Index: index, Phase: phase, Low: low, High: high}, nil
}

// phaseAt is the phase the frame at index will be processed in.
func (d *Driver) phaseAt(index int) Phase {
	if index == 0 {
		return PhaseUninitialized
	}
	if index < d.config.LearningFrames {
		return PhaseLearning
	}
	return PhaseSteady
}

// phaseAfterInit is the phase of frame 0 once the model exists.
func (d *Driver) phaseAfterInit() Phase {
	if d.config.LearningFrames > 0 {
		return PhaseLearning
	}
	return PhaseSteady
}

func (d *Driver) setPhase(p Phase) {
	if p == d.phase {
		return
	}
	d.logger.Debug("phase changed",
		zap.Stringer("from", d.phase),
		zap.Stringer("to", p),
		zap.Int("frame", d.index),
	)
	d.phase = p
}

func (d *Driver) startOperation(name string) func() {
	if d.profiler == nil {
		return func() {}
	}
	return d.profiler.StartOperation(name)
}

// Phase returns the phase the next frame will be processed in.
func (d *Driver) Phase() Phase {
	return d.phase
}

// Index returns the number of frames processed since creation or the last Reset.
func (d *Driver) Index() int {
	return d.index
}

// Config returns the configuration the driver was built with.
func (d *Driver) Config() Config {
	return d.config
}

// Background returns a snapshot of the background model. The boolean is false
// before the first frame.
func (d *Driver) Background() (images.Frame, bool) {
	if !d.algorithm.Initialized() {
		return images.Frame{}, false
	}
	return d.algorithm.Background(), true
}

// Reset drops the model and the frame index. The next frame re-initializes it.
func (d *Driver) Reset() {
	d.algorithm.Reset()
	d.index = 0
	d.setPhase(PhaseUninitialized)
}
