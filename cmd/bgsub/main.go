// Package main is the bgsub command: it runs adaptive median background
// subtraction over a video, a camera or a directory of frames and writes the
// foreground masks as PNG files or a video.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nvr-ai/go-bgs/bgs"
	"github.com/nvr-ai/go-bgs/images"
	"github.com/nvr-ai/go-bgs/profiler"
	"github.com/nvr-ai/go-bgs/util"
)

const (
	// Flags.
	flagConfig         = "config"
	flagLowThreshold   = "low-threshold"
	flagHighThreshold  = "high-threshold"
	flagSamplingRate   = "sampling-rate"
	flagLearningFrames = "learning-frames"
	flagVideo          = "video"
	flagFramesDir      = "frames-dir"
	flagDevice         = "device"
	flagOutputDir      = "output-dir"
	flagOutputVideo    = "output-video"
	flagMinDensity     = "min-density"
	flagWidth          = "width"
	flagHeight         = "height"
	flagResolution     = "resolution"
	flagGrayscale      = "grayscale"
	flagProgress       = "progress"
	flagProfile        = "profile"
	flagDebug          = "debug"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:            "bgsub",
		Usage:           "separate moving foreground from a static background",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load engine configuration from YAML `FILE`",
			},
			&cli.UintFlag{
				Name:  flagLowThreshold,
				Usage: "per-channel tolerance of the output mask (0-255)",
				Value: uint(bgs.DefaultLowThreshold),
			},
			&cli.UintFlag{
				Name:  flagHighThreshold,
				Usage: "per-channel tolerance of the loose mask (0-255)",
				Value: uint(bgs.DefaultHighThreshold),
			},
			&cli.IntFlag{
				Name:  flagSamplingRate,
				Usage: "update the model on frames where index % rate == 1",
				Value: bgs.DefaultSamplingRate,
			},
			&cli.IntFlag{
				Name:  flagLearningFrames,
				Usage: "number of initial frames that update every pixel",
				Value: bgs.DefaultLearningFrames,
			},
			&cli.StringFlag{
				Name:  flagVideo,
				Usage: "read frames from video `FILE`",
			},
			&cli.StringFlag{
				Name:  flagFramesDir,
				Usage: "read frames from the images in `DIR`, ordered by frame number",
			},
			&cli.IntFlag{
				Name:  flagDevice,
				Usage: "read frames from capture device `ID`",
				Value: -1,
			},
			&cli.StringFlag{
				Name:  flagOutputDir,
				Usage: "write one PNG mask per frame into `DIR`",
			},
			&cli.StringFlag{
				Name:  flagOutputVideo,
				Usage: "write the masks as an MJPG video `FILE`",
			},
			&cli.IntFlag{
				Name:  flagMinDensity,
				Usage: "remove foreground pixels with fewer foreground neighbours (0 disables)",
			},
			&cli.IntFlag{
				Name:  flagWidth,
				Usage: "downscale frames to this width before processing",
			},
			&cli.IntFlag{
				Name:  flagHeight,
				Usage: "downscale frames to this height before processing",
			},
			&cli.StringFlag{
				Name:  flagResolution,
				Usage: "downscale frames to a preset `NAME` (qqvga, qvga, nhd, vga, 720p, 1080p)",
			},
			&cli.BoolFlag{
				Name:  flagGrayscale,
				Usage: "process a single luma channel",
			},
			&cli.IntFlag{
				Name:  flagProgress,
				Usage: "log progress every `N` frames (0 disables)",
				Value: bgs.DefaultProgressInterval,
			},
			&cli.BoolFlag{
				Name:  flagProfile,
				Usage: "report per-stage timings",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Action: runAction,
	}
}

// newLoggerConfig is a console config without stacktraces and with colored levels.
func newLoggerConfig(debug bool) zap.Config {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

func runAction(c *cli.Context) (err error) {
	logger, err := newLoggerConfig(c.Bool(flagDebug)).Build()
	if err != nil {
		return errors.Wrap(err, "failed to build logger")
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := engineConfig(c)
	if err != nil {
		return err
	}

	src, err := openSource(c, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, src.Close())
	}()

	sink, err := openSink(c, src.FPS())
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, sink.Close())
	}()

	opts := []bgs.Option{
		bgs.WithLogger(logger.Named("bgs")),
		bgs.WithProgressInterval(c.Int(flagProgress)),
	}
	if c.Bool(flagProfile) {
		rp := profiler.NewRuntimeProfiler(profiler.ProfilingOptions{
			ReportInterval: 5 * time.Second,
			Logger:         logger.Named("profiler"),
		})
		rp.Start()
		defer rp.Stop()
		sink.profiler = rp
		opts = append(opts, bgs.WithProfiler(rp))
	}

	driver, err := bgs.NewDriver(cfg, opts...)
	if err != nil {
		return err
	}

	logger.Info("starting background subtraction",
		zap.Uint8("low_threshold", cfg.LowThreshold),
		zap.Uint8("high_threshold", cfg.HighThreshold),
		zap.Int("sampling_rate", cfg.SamplingRate),
		zap.Int("learning_frames", cfg.LearningFrames),
		zap.String("source", src.String()),
	)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	started := time.Now()
	n, err := driver.Run(ctx, src, sink)
	elapsed := time.Since(started)
	if errors.Is(err, context.Canceled) {
		logger.Info("interrupted")
		err = nil
	}
	if err != nil {
		return err
	}

	fps := 0.0
	if elapsed > 0 {
		fps = float64(n) / elapsed.Seconds()
	}
	logger.Info("finished",
		zap.Int("frames", n),
		zap.Duration("elapsed", elapsed.Truncate(time.Millisecond)),
		zap.Float64("fps", fps),
		zap.Float64("mean_foreground_ratio", sink.meanCoverage()),
	)
	return nil
}

// engineConfig loads --config, then applies the threshold and cadence flags
// that were set explicitly.
func engineConfig(c *cli.Context) (bgs.Config, error) {
	cfg := bgs.DefaultConfig()
	if path := c.String(flagConfig); path != "" {
		loaded, err := bgs.LoadConfig(path)
		if err != nil {
			return bgs.Config{}, err
		}
		cfg = loaded
	}

	for _, name := range []string{flagLowThreshold, flagHighThreshold} {
		if v := c.Uint(name); v > 255 {
			return bgs.Config{}, errors.Errorf("--%s must be within 0-255, got %d", name, v)
		}
	}
	if c.IsSet(flagLowThreshold) {
		cfg.LowThreshold = uint8(c.Uint(flagLowThreshold))
	}
	if c.IsSet(flagHighThreshold) {
		cfg.HighThreshold = uint8(c.Uint(flagHighThreshold))
	}
	if c.IsSet(flagSamplingRate) {
		cfg.SamplingRate = c.Int(flagSamplingRate)
	}
	if c.IsSet(flagLearningFrames) {
		cfg.LearningFrames = c.Int(flagLearningFrames)
	}
	if err := cfg.Validate(); err != nil {
		return bgs.Config{}, err
	}

	if d := c.Int(flagMinDensity); d < 0 || d > 8 {
		return bgs.Config{}, errors.Errorf("--%s must be within 0-8, got %d", flagMinDensity, d)
	}
	return cfg, nil
}

// frameSource is a bgs.FrameSource that holds resources.
type frameSource interface {
	bgs.FrameSource
	Close() error
	FPS() float64
	String() string
}

// openSource opens the single input named by --video, --frames-dir or --device.
func openSource(c *cli.Context, logger *zap.Logger) (frameSource, error) {
	inputs := 0
	for _, set := range []bool{c.String(flagVideo) != "", c.String(flagFramesDir) != "", c.Int(flagDevice) >= 0} {
		if set {
			inputs++
		}
	}
	if inputs != 1 {
		return nil, errors.Errorf("exactly one of --%s, --%s or --%s is required", flagVideo, flagFramesDir, flagDevice)
	}

	prep, err := newPreprocess(c)
	if err != nil {
		return nil, err
	}

	switch {
	case c.String(flagFramesDir) != "":
		dir := c.String(flagFramesDir)
		channels := 3
		if prep.grayscale {
			channels = 1
		}
		src, err := util.NewDirectorySource(dir, util.WithChannels(channels), util.WithSize(prep.width, prep.height))
		if err != nil {
			return nil, err
		}
		logger.Info("reading frames", zap.String("dir", dir), zap.Int("count", src.Len()))
		return &dirSource{DirectorySource: src, dir: dir}, nil
	case c.String(flagVideo) != "":
		src, err := openVideoSource(c.String(flagVideo), prep)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		src, err := openDeviceSource(c.Int(flagDevice), prep)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}

// dirSource adapts util.DirectorySource to frameSource.
type dirSource struct {
	*util.DirectorySource
	dir string
}

func (d *dirSource) Close() error   { return nil }
func (d *dirSource) FPS() float64   { return defaultFPS }
func (d *dirSource) String() string { return d.dir }

// newPreprocess reads the size and color flags. --width and --height take
// precedence over --resolution.
func newPreprocess(c *cli.Context) (preprocess, error) {
	prep := preprocess{
		width:     c.Int(flagWidth),
		height:    c.Int(flagHeight),
		grayscale: c.Bool(flagGrayscale),
	}
	if name := c.String(flagResolution); name != "" && prep.width == 0 && prep.height == 0 {
		res, err := images.GetResolutionByType(images.ResolutionType(name))
		if err != nil {
			return preprocess{}, err
		}
		prep.width, prep.height = res.Width, res.Height
	}
	return prep, nil
}

// preprocess is applied to every captured frame before the engine sees it.
type preprocess struct {
	width     int
	height    int
	grayscale bool
}

func (p preprocess) apply(f images.Frame) (images.Frame, error) {
	if p.grayscale {
		f = f.Gray()
	}
	if p.width > 0 || p.height > 0 {
		return images.DownscaleFrame(f, p.width, p.height)
	}
	return f, nil
}
