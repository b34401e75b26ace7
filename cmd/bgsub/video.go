package main

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgs/images"
)

const (
	// defaultFPS is used when the input does not report a frame rate.
	defaultFPS = 25.0
	// maxEmptyReads bounds how many empty frames a camera may return in a row.
	maxEmptyReads = 30
)

// videoSource reads frames from an OpenCV capture.
type videoSource struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	prep    preprocess
	name    string
	live    bool
}

func openVideoSource(path string, prep preprocess) (*videoSource, error) {
	capture, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open video %s", path)
	}
	return &videoSource{capture: capture, mat: gocv.NewMat(), prep: prep, name: path}, nil
}

func openDeviceSource(deviceID int, prep preprocess) (*videoSource, error) {
	capture, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open capture device %d", deviceID)
	}
	return &videoSource{
		capture: capture,
		mat:     gocv.NewMat(),
		prep:    prep,
		name:    fmt.Sprintf("device %d", deviceID),
		live:    true,
	}, nil
}

// Next reads the next frame. A finished file yields io.EOF. A camera may
// deliver a few empty frames while warming up, so those are skipped.
func (v *videoSource) Next() (images.Frame, error) {
	for empty := 0; ; empty++ {
		if ok := v.capture.Read(&v.mat); !ok {
			return images.Frame{}, io.EOF
		}
		if !v.mat.Empty() {
			break
		}
		if !v.live || empty >= maxEmptyReads {
			return images.Frame{}, io.EOF
		}
	}

	f, err := images.FrameFromMat(v.mat)
	if err != nil {
		return images.Frame{}, err
	}
	return v.prep.apply(f)
}

func (v *videoSource) FPS() float64 {
	if fps := v.capture.Get(gocv.VideoCaptureFPS); fps > 0 {
		return fps
	}
	return defaultFPS
}

func (v *videoSource) String() string { return v.name }

func (v *videoSource) Close() error {
	return multierr.Combine(v.mat.Close(), v.capture.Close())
}

// videoWriter encodes masks into a grayscale MJPG file. The file is opened on
// the first mask, once the frame size is known.
type videoWriter struct {
	path   string
	fps    float64
	writer *gocv.VideoWriter
}

func (w *videoWriter) Write(index int, mask *images.Mask) error {
	if w.writer == nil {
		writer, err := gocv.VideoWriterFile(w.path, "MJPG", w.fps, mask.Width, mask.Height, false)
		if err != nil {
			return errors.Wrapf(err, "failed to open video writer %s", w.path)
		}
		w.writer = writer
	}

	mat, err := mask.ToMat()
	if err != nil {
		return err
	}
	defer mat.Close()
	return errors.Wrapf(w.writer.Write(mat), "failed to write mask %d", index)
}

func (w *videoWriter) Close() error {
	if w.writer == nil {
		return nil
	}
	return w.writer.Close()
}
