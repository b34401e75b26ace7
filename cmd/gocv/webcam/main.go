package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-bgs/controller"
	"github.com/nvr-ai/go-bgs/images"
)

func main() {
	deviceID := flag.Int("device", 0, "video capture device")
	threshold := flag.Float64("motion-threshold", 0.02, "foreground ratio that counts as motion")
	hysteresis := flag.Int("hysteresis", 5, "frames needed to flip the motion state")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Println(err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	// open webcam
	webcam, err := gocv.OpenVideoCapture(*deviceID)
	if err != nil {
		logger.Error("cannot open capture device", zap.Int("device", *deviceID), zap.Error(err))
		return
	}
	defer webcam.Close()

	// open display windows
	window := gocv.NewWindow("Camera")
	defer window.Close()
	maskWindow := gocv.NewWindow("Foreground")
	defer maskWindow.Close()

	// prepare image matrix
	img := gocv.NewMat()
	defer img.Close()

	detector, err := controller.NewMedianMotionDetector(controller.DefaultMotionDetectionConfig(),
		controller.WithLogger(logger))
	if err != nil {
		logger.Error("cannot create motion detector", zap.Error(err))
		return
	}
	gate := &controller.Controller{
		MotionDetector: detector,
		Thresholds: controller.ThresholdConfig{
			MotionThreshold:  *threshold,
			HysteresisFrames: *hysteresis,
		},
	}

	red := color.RGBA{255, 0, 0, 0}
	green := color.RGBA{0, 255, 0, 0}

	// FPS tracking variables
	fps := 0.0
	frameCount := 0
	lastTime := time.Now()

	logger.Info("start reading camera device", zap.Int("device", *deviceID))
	for id := 0; ; id++ {
		if ok := webcam.Read(&img); !ok {
			logger.Info("cannot read device", zap.Int("device", *deviceID))
			return
		}
		if img.Empty() {
			continue
		}

		// Update FPS calculation
		frameCount++
		currentTime := time.Now()
		if elapsed := currentTime.Sub(lastTime).Seconds(); elapsed >= 1.0 {
			fps = float64(frameCount) / elapsed
			frameCount = 0
			lastTime = currentTime
		}

		frame, err := images.FrameFromMat(img)
		if err != nil {
			logger.Error("cannot convert frame", zap.Error(err))
			return
		}
		previous := gate.Current
		state, err := gate.Decide(controller.Frame{ID: id, Pixels: frame, Timestamp: currentTime})
		if err != nil {
			logger.Error("motion detection failed", zap.Error(err))
			return
		}
		if state != previous {
			logger.Info("motion state changed", zap.Stringer("state", state), zap.Int("frame", id))
		}

		label := green
		if state == controller.StateMotion {
			label = red
		}
		gocv.PutText(&img, fmt.Sprintf("%s | FPS: %.1f", state, fps), image.Pt(10, 30),
			gocv.FontHersheyPlain, 1.5, label, 2)
		window.IMShow(img)

		if mask := detector.LastMask(); mask != nil {
			if mat, err := mask.ToMat(); err == nil {
				maskWindow.IMShow(mat)
				mat.Close()
			}
		}
		if window.WaitKey(1) == 27 {
			return
		}
	}
}
