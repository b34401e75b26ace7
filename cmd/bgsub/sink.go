package main

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/nvr-ai/go-bgs/bgs"
	"github.com/nvr-ai/go-bgs/images"
	"github.com/nvr-ai/go-bgs/profiler"
	"github.com/nvr-ai/go-bgs/util"
)

// maskSink density filters each mask when configured and fans it out to the
// selected outputs.
type maskSink struct {
	minDensity int
	outputs    []bgs.MaskSink
	video      *videoWriter
	profiler   *profiler.RuntimeProfiler

	frames   int
	coverage float64
}

func openSink(c *cli.Context, fps float64) (*maskSink, error) {
	s := &maskSink{minDensity: c.Int(flagMinDensity)}

	if dir := c.String(flagOutputDir); dir != "" {
		d, err := util.NewDirectorySink(dir, "")
		if err != nil {
			return nil, err
		}
		s.outputs = append(s.outputs, d)
	}
	if path := c.String(flagOutputVideo); path != "" {
		s.video = &videoWriter{path: path, fps: fps}
		s.outputs = append(s.outputs, s.video)
	}
	return s, nil
}

func (s *maskSink) Write(index int, mask *images.Mask) error {
	if s.minDensity > 0 {
		stop := func() {}
		if s.profiler != nil {
			stop = s.profiler.StartOperation("density")
		}
		mask = images.DensityFilter(mask, s.minDensity, images.Foreground)
		stop()
	}

	s.frames++
	s.coverage += mask.Coverage()

	for _, out := range s.outputs {
		if err := out.Write(index, mask); err != nil {
			return err
		}
	}
	return nil
}

func (s *maskSink) meanCoverage() float64 {
	if s.frames == 0 {
		return 0
	}
	return s.coverage / float64(s.frames)
}

func (s *maskSink) Close() error {
	var err error
	if s.video != nil {
		err = multierr.Append(err, s.video.Close())
	}
	return err
}
