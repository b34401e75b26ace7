// Package images - provides the per-pixel traversal helpers and resampling used by
// the background subtraction pipeline.
package images

import (
	"image"
	"runtime"
	"sync"

	"github.com/nfnt/resize"
)

// Parallel executes fn across contiguous partitions of [0, dataSize) on
// multiple goroutines and returns once every partition has completed.
//
// Partitions never overlap, so fn may write to disjoint rows of a shared
// output without locking. Results must not depend on how the range is split.
//
// Arguments:
// - dataSize: The size of the data to process (usually the number of rows).
// - fn: Function to execute for each partition (receives start and end indices).
//
// @example
//
//	Parallel(height, func(start, end int) {
//	    for y := start; y < end; y++ {
//	        // Process row y
//	    }
//	})
func Parallel(dataSize int, fn func(partStart, partEnd int)) {
	if dataSize <= 0 {
		return
	}

	numGoroutines := runtime.GOMAXPROCS(0)

	// For small data sizes the goroutine overhead isn't worth it.
	if numGoroutines < 2 || dataSize < numGoroutines*2 {
		fn(0, dataSize)
		return
	}

	partSize := dataSize / numGoroutines

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		partStart := i * partSize
		partEnd := partStart + partSize

		// Last partition gets any remaining data.
		if i == numGoroutines-1 {
			partEnd = dataSize
		}

		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(partStart, partEnd)
	}

	wg.Wait()
}

// Downscale resamples img to width x height with bilinear interpolation.
// A zero width or height preserves the aspect ratio; both zero returns img unchanged.
//
// Arguments:
// - img: The source image.
// - width: Target width in pixels (0 to derive from height).
// - height: Target height in pixels (0 to derive from width).
//
// Returns:
// - The resampled image.
//
// @example
// small := Downscale(frameImage, 320, 0)
func Downscale(img image.Image, width, height int) image.Image {
	if width <= 0 && height <= 0 {
		return img
	}
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	if sameAspect(img.Bounds(), width, height) {
		return img
	}
	return resize.Resize(uint(width), uint(height), img, resize.Bilinear)
}

// sameAspect reports whether resizing b to width x height (with zero meaning
// "derive from the other side") would keep its exact dimensions.
func sameAspect(b image.Rectangle, width, height int) bool {
	switch {
	case width == 0:
		return height == b.Dy()
	case height == 0:
		return width == b.Dx()
	default:
		return width == b.Dx() && height == b.Dy()
	}
}

// DownscaleFrame resamples a frame to width x height, keeping its channel count.
func DownscaleFrame(f Frame, width, height int) (Frame, error) {
	if width <= 0 && height <= 0 {
		return f, nil
	}
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	channels := f.Channels
	if channels == 2 {
		channels = 1
	}
	return FromImage(Downscale(f.ToImage(), width, height), channels)
}
