package images

import (
	"image"

	"github.com/pkg/errors"
)

// Mask labels.
const (
	// Background marks a pixel that matches the background model.
	Background uint8 = 0
	// Foreground marks a pixel that departs from the background model.
	Foreground uint8 = 255
)

// Mask is a single-channel binary grid with the same dimensions as the frame
// it was computed from.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask allocates a mask with every pixel set to Background.
func NewMask(width, height int) *Mask {
	if width <= 0 || height <= 0 {
		return &Mask{}
	}
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// MaskFromGray copies a grayscale image into a mask. Values are kept as-is.
func MaskFromGray(img *image.Gray) (*Mask, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(m.Row(y), img.Pix[off:off+m.Width])
	}
	return m, nil
}

// Empty reports whether the mask has no pixels.
func (m *Mask) Empty() bool {
	return m == nil || m.Width <= 0 || m.Height <= 0 || len(m.Pix) == 0
}

// SameSize reports whether the mask covers a frame of the given shape.
func (m *Mask) SameSize(f Frame) bool {
	return m != nil && m.Width == f.Width && m.Height == f.Height && len(m.Pix) == f.Width*f.Height
}

// Row returns row y as a slice aliasing Pix.
func (m *Mask) Row(y int) []uint8 {
	return m.Pix[y*m.Width : (y+1)*m.Width]
}

// At returns the label at (x, y).
func (m *Mask) At(x, y int) uint8 {
	return m.Pix[y*m.Width+x]
}

// Set writes the label at (x, y).
func (m *Mask) Set(x, y int, v uint8) {
	m.Pix[y*m.Width+x] = v
}

// Fill writes v into every pixel.
func (m *Mask) Fill(v uint8) {
	for i := range m.Pix {
		m.Pix[i] = v
	}
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	if m == nil {
		return nil
	}
	c := &Mask{Width: m.Width, Height: m.Height, Pix: make([]uint8, len(m.Pix))}
	copy(c.Pix, m.Pix)
	return c
}

// Count returns how many pixels carry the label v.
func (m *Mask) Count(v uint8) int {
	n := 0
	for _, p := range m.Pix {
		if p == v {
			n++
		}
	}
	return n
}

// Coverage returns the fraction of pixels labelled Foreground.
//
// Returns:
//   - float64: A value in [0, 1]; 0 for an empty mask.
//
// @example
// ratio := mask.Coverage()
// fmt.Printf("foreground: %.1f%%\n", ratio*100)
func (m *Mask) Coverage() float64 {
	if m.Empty() {
		return 0
	}
	return float64(m.Count(Foreground)) / float64(len(m.Pix))
}

// ToGray exposes the mask as an *image.Gray sharing no memory with the mask.
func (m *Mask) ToGray() *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	copy(dst.Pix, m.Pix)
	return dst
}
