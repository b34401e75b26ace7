package images

import (
	"github.com/pkg/errors"
)

// DensityFilter removes isolated foreground pixels from a binary mask.
//
// An interior pixel keeps fgValue only when it is fgValue in src and at least
// minDensity of its 8 neighbours in src are fgValue as well. All other pixels,
// the 1-pixel border included, are 0 in the output. Only src is read, so the
// result does not depend on traversal order.
//
// Arguments:
//   - src: The mask to filter. It is not modified.
//   - minDensity: Minimum number of foreground neighbours (0..8).
//   - fgValue: The label treated as foreground, usually Foreground.
//
// Returns:
//   - *Mask: A newly allocated filtered mask.
//
// @example
// clean := images.DensityFilter(result.High, 5, images.Foreground)
func DensityFilter(src *Mask, minDensity int, fgValue uint8) *Mask {
	if src.Empty() {
		return &Mask{}
	}
	dst := NewMask(src.Width, src.Height)
	densityFilter(dst, src, minDensity, fgValue)
	return dst
}

// DensityFilterInto is DensityFilter writing into a caller-provided mask.
// dst must match src in size and must not share its buffer.
func DensityFilterInto(dst, src *Mask, minDensity int, fgValue uint8) error {
	if src.Empty() || dst.Empty() {
		return errors.New("density filter requires non-empty masks")
	}
	if dst.Width != src.Width || dst.Height != src.Height {
		return errors.Errorf("density filter size mismatch: dst %dx%d, src %dx%d",
			dst.Width, dst.Height, src.Width, src.Height)
	}
	if &dst.Pix[0] == &src.Pix[0] {
		return errors.New("density filter cannot run in place")
	}
	densityFilter(dst, src, minDensity, fgValue)
	return nil
}

func densityFilter(dst, src *Mask, minDensity int, fgValue uint8) {
	w, h := src.Width, src.Height

	// Border rows and columns are always background.
	for x := 0; x < w; x++ {
		dst.Pix[x] = Background
		dst.Pix[(h-1)*w+x] = Background
	}
	for y := 0; y < h; y++ {
		dst.Pix[y*w] = Background
		dst.Pix[y*w+w-1] = Background
	}
	if w < 3 || h < 3 {
		return
	}

	Parallel(h-2, func(start, end int) {
		for y := start + 1; y < end+1; y++ {
			above := src.Row(y - 1)
			row := src.Row(y)
			below := src.Row(y + 1)
			out := dst.Row(y)
			for x := 1; x < w-1; x++ {
				if row[x] != fgValue {
					out[x] = Background
					continue
				}
				count := 0
				for dx := -1; dx <= 1; dx++ {
					if above[x+dx] == fgValue {
						count++
					}
					if below[x+dx] == fgValue {
						count++
					}
				}
				if row[x-1] == fgValue {
					count++
				}
				if row[x+1] == fgValue {
					count++
				}
				if count >= minDensity {
					out[x] = fgValue
				} else {
					out[x] = Background
				}
			}
		}
	})
}
