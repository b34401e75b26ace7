package images

import (
	"image"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallel_CoversRangeOnce(t *testing.T) {
	for _, size := range []int{0, 1, 3, 17, 1000} {
		hits := make([]int32, size)
		Parallel(size, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		for i, h := range hits {
			require.Equal(t, int32(1), h, "size %d index %d", size, i)
		}
	}
}

func TestDownscale(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 50))

	assert.Same(t, img, Downscale(img, 0, 0).(*image.RGBA))
	assert.Same(t, img, Downscale(img, 100, 50).(*image.RGBA))
	assert.Same(t, img, Downscale(img, 100, 0).(*image.RGBA))

	out := Downscale(img, 50, 0)
	assert.Equal(t, 50, out.Bounds().Dx())
	assert.Equal(t, 25, out.Bounds().Dy())

	out = Downscale(img, 20, 20)
	assert.Equal(t, image.Rect(0, 0, 20, 20), out.Bounds())
}

func TestDownscaleFrame(t *testing.T) {
	f := NewFrame(40, 20, 3)
	f.Fill(10, 200, 30)

	small, err := DownscaleFrame(f, 20, 10)
	require.NoError(t, err)
	assert.Equal(t, 20, small.Width)
	assert.Equal(t, 10, small.Height)
	assert.Equal(t, 3, small.Channels)
	assert.InDelta(t, 200, int(small.At(5, 5)[1]), 1)

	gray := NewFrame(40, 20, 1)
	gray.Fill(90)
	small, err = DownscaleFrame(gray, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, small.Channels)
	assert.Equal(t, 5, small.Height)
	assert.InDelta(t, 90, int(small.Pix[0]), 1)

	same, err := DownscaleFrame(gray, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, gray.Width, same.Width)

	_, err = DownscaleFrame(Frame{Width: 2, Height: 2, Channels: 1}, 1, 1)
	assert.Error(t, err)
}

func TestBoxBlur(t *testing.T) {
	f := NewFrame(5, 5, 1)
	f.Set(2, 2, 225)

	out := BoxBlur(f, 1, EdgeClamp)
	assert.Equal(t, uint8(25), out.At(2, 2)[0])
	assert.Equal(t, uint8(25), out.At(1, 1)[0])
	assert.Equal(t, uint8(0), out.At(0, 0)[0])
	assert.Equal(t, uint8(225), f.At(2, 2)[0], "input must not change")

	flat := NewFrame(8, 6, 3)
	flat.Fill(10, 20, 30)
	for _, mode := range []EdgeMode{EdgeClamp, EdgeMirror, EdgeWrap} {
		out := BoxBlur(flat, 2, mode)
		assert.Equal(t, flat.Pix, out.Pix, "a flat frame is a fixed point (mode %d)", mode)
	}

	same := BoxBlur(f, 0, EdgeClamp)
	assert.Equal(t, f.Pix, same.Pix)
}

func TestMapCoord(t *testing.T) {
	assert.Equal(t, 0, mapCoord(-3, 5, EdgeClamp))
	assert.Equal(t, 4, mapCoord(9, 5, EdgeClamp))
	assert.Equal(t, 0, mapCoord(-1, 5, EdgeMirror))
	assert.Equal(t, 4, mapCoord(5, 5, EdgeMirror))
	assert.Equal(t, 4, mapCoord(-1, 5, EdgeWrap))
	assert.Equal(t, 0, mapCoord(5, 5, EdgeWrap))
}

func TestComputeChecksum(t *testing.T) {
	assert.Equal(t, "empty", ComputeChecksum(nil))
	a := ComputeChecksum([]uint8{1, 2, 3})
	assert.Len(t, a, 32)
	assert.Equal(t, a, ComputeChecksum([]uint8{1, 2, 3}))
	assert.NotEqual(t, a, ComputeChecksum([]uint8{1, 2, 4}))
}

func TestFormatFromPath(t *testing.T) {
	for path, want := range map[string]ImageFormat{
		"a/frame-1.JPG": FormatJPEG,
		"b.jpeg":        FormatJPEG,
		"c.png":         FormatPNG,
		"d.webp":        FormatWebP,
		"e.bmp":         FormatBMP,
	} {
		got, ok := FormatFromPath(path)
		assert.True(t, ok, path)
		assert.Equal(t, want, got, path)
	}
	_, ok := FormatFromPath("notes.txt")
	assert.False(t, ok)
}
