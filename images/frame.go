// Package images - Pixel grids shared by the background subtraction engine,
// frame sources and mask sinks.
package images

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// MaxChannels is the largest channel count a Frame may carry.
const MaxChannels = 4

// Frame is an 8-bit pixel grid with interleaved channels.
//
// The sample for channel c of the pixel at (x, y) lives at
// Pix[(y*Width+x)*Channels+c]. Channel order is whatever the producer used
// (RGB for image.Image sources, BGR for OpenCV captures).
type Frame struct {
	// Width is the number of pixel columns.
	Width int `json:"width" yaml:"width"`
	// Height is the number of pixel rows.
	Height int `json:"height" yaml:"height"`
	// Channels is the number of samples per pixel (1..4).
	Channels int `json:"channels" yaml:"channels"`
	// Pix holds Width*Height*Channels samples in row-major order.
	Pix []uint8 `json:"-" yaml:"-"`
}

// NewFrame allocates a zeroed frame.
//
// Arguments:
//   - width: Number of columns.
//   - height: Number of rows.
//   - channels: Samples per pixel.
//
// Returns:
//   - Frame: The allocated frame. Non-positive dimensions yield an empty frame.
//
// @example
// frame := images.NewFrame(640, 480, 3)
// frame.Fill(128, 128, 128)
func NewFrame(width, height, channels int) Frame {
	if width <= 0 || height <= 0 || channels <= 0 {
		return Frame{}
	}
	return Frame{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}
}

// Empty reports whether the frame carries no pixels. Sources use an empty
// frame as the end-of-stream sentinel.
func (f Frame) Empty() bool {
	return f.Width <= 0 || f.Height <= 0 || len(f.Pix) == 0
}

// Validate checks that the declared shape matches the pixel buffer.
func (f Frame) Validate() error {
	if f.Channels < 1 || f.Channels > MaxChannels {
		return errors.Errorf("unsupported channel count: %d", f.Channels)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return errors.Errorf("invalid frame dimensions: %dx%d", f.Width, f.Height)
	}
	if want := f.Width * f.Height * f.Channels; len(f.Pix) != want {
		return errors.Errorf("frame buffer holds %d samples, want %d", len(f.Pix), want)
	}
	return nil
}

// SameShape reports whether two frames share width, height and channel count.
func (f Frame) SameShape(o Frame) bool {
	return f.Width == o.Width && f.Height == o.Height && f.Channels == o.Channels
}

// Stride is the number of samples in one row.
func (f Frame) Stride() int {
	return f.Width * f.Channels
}

// Row returns the samples of row y as a slice aliasing Pix.
func (f Frame) Row(y int) []uint8 {
	s := f.Stride()
	return f.Pix[y*s : (y+1)*s]
}

// At returns the samples of the pixel at (x, y) as a slice aliasing Pix.
func (f Frame) At(x, y int) []uint8 {
	i := (y*f.Width + x) * f.Channels
	return f.Pix[i : i+f.Channels]
}

// Set writes the pixel at (x, y). Missing channel values are left untouched.
func (f Frame) Set(x, y int, px ...uint8) {
	copy(f.At(x, y), px)
}

// Fill writes px into every pixel of the frame.
func (f Frame) Fill(px ...uint8) {
	if f.Empty() {
		return
	}
	first := f.Pix[:f.Channels]
	copy(first, px)
	for i := f.Channels; i < len(f.Pix); i += f.Channels {
		copy(f.Pix[i:i+f.Channels], first)
	}
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	c := f
	if f.Pix != nil {
		c.Pix = make([]uint8, len(f.Pix))
		copy(c.Pix, f.Pix)
	}
	return c
}

// FromImage converts an image.Image into a Frame with the requested channel count.
//
// Single channel frames hold luma (color.GrayModel). Three channel frames hold
// R, G, B and four channel frames additionally carry alpha.
//
// Arguments:
//   - img: The source image.
//   - channels: 1, 3 or 4.
//
// Returns:
//   - Frame: A newly allocated frame whose origin is img.Bounds().Min.
//   - error: If img is nil or the channel count is unsupported.
//
// @example
// frame, err := images.FromImage(decoded, 3)
//
//	if err != nil {
//	    return err
//	}
func FromImage(img image.Image, channels int) (Frame, error) {
	if img == nil {
		return Frame{}, errors.New("input image is nil")
	}
	if channels != 1 && channels != 3 && channels != 4 {
		return Frame{}, errors.Errorf("unsupported channel count: %d", channels)
	}

	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy(), channels)
	if f.Empty() {
		return Frame{}, errors.Errorf("invalid image dimensions: %dx%d", b.Dx(), b.Dy())
	}

	switch src := img.(type) {
	case *image.Gray:
		if channels == 1 {
			for y := 0; y < f.Height; y++ {
				off := src.PixOffset(b.Min.X, b.Min.Y+y)
				copy(f.Row(y), src.Pix[off:off+f.Width])
			}
			return f, nil
		}
	case *image.RGBA:
		if channels > 1 {
			for y := 0; y < f.Height; y++ {
				off := src.PixOffset(b.Min.X, b.Min.Y+y)
				row := f.Row(y)
				for x := 0; x < f.Width; x++ {
					copy(row[x*channels:(x+1)*channels], src.Pix[off+x*4:off+x*4+channels])
				}
			}
			return f, nil
		}
	}

	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			c := img.At(b.Min.X+x, b.Min.Y+y)
			px := f.At(x, y)
			if channels == 1 {
				px[0] = color.GrayModel.Convert(c).(color.Gray).Y
				continue
			}
			r, g, bl, a := c.RGBA()
			vals := [MaxChannels]uint8{uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8), uint8(a >> 8)}
			copy(px, vals[:channels])
		}
	}
	return f, nil
}

// ToImage renders the frame as a standard library image. One and two channel
// frames become *image.Gray (first channel), wider frames become *image.RGBA.
func (f Frame) ToImage() image.Image {
	rect := image.Rect(0, 0, f.Width, f.Height)
	if f.Channels < 3 {
		dst := image.NewGray(rect)
		for i := 0; i < f.Width*f.Height; i++ {
			dst.Pix[i] = f.Pix[i*f.Channels]
		}
		return dst
	}

	dst := image.NewRGBA(rect)
	for i := 0; i < f.Width*f.Height; i++ {
		src := f.Pix[i*f.Channels : (i+1)*f.Channels]
		d := dst.Pix[i*4 : i*4+4]
		d[0], d[1], d[2], d[3] = src[0], src[1], src[2], 0xff
		if f.Channels == 4 {
			d[3] = src[3]
		}
	}
	return dst
}

// Gray converts the frame to a single luma channel using the same weights as
// color.GrayModel. A single channel frame is returned as a copy.
func (f Frame) Gray() Frame {
	if f.Channels == 1 || f.Empty() {
		return f.Clone()
	}
	dst := NewFrame(f.Width, f.Height, 1)
	if f.Channels < 3 {
		for i := range dst.Pix {
			dst.Pix[i] = f.Pix[i*f.Channels]
		}
		return dst
	}
	ch := f.Channels
	Parallel(f.Height, func(start, end int) {
		for y := start; y < end; y++ {
			src := f.Row(y)
			out := dst.Row(y)
			for x := range out {
				r := uint32(src[x*ch]) * 0x101
				g := uint32(src[x*ch+1]) * 0x101
				b := uint32(src[x*ch+2]) * 0x101
				out[x] = uint8((19595*r + 38470*g + 7471*b + 1<<15) >> 24)
			}
		}
	})
	return dst
}
