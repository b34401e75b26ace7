package images

// EdgeMode defines how sampling behaves outside the frame bounds.
type EdgeMode int

const (
	// EdgeClamp repeats edge pixels.
	EdgeClamp EdgeMode = iota
	// EdgeMirror reflects coordinates without repeating the edge pixel.
	EdgeMirror
	// EdgeWrap tiles the frame.
	EdgeWrap
)

// BoxBlur applies a separable box blur of the given radius to every channel.
//
// Each pass keeps a sliding window sum per channel, so the cost per pixel does
// not depend on the radius. Rows of the horizontal pass and columns of the
// vertical pass are spread across goroutines with Parallel.
//
// Arguments:
//   - f: The frame to blur. It is not modified.
//   - radius: Window half-size; the window is 2*radius+1 pixels wide. Zero or less returns a copy.
//   - edge: How samples outside the frame are mapped back inside.
//
// Returns:
//   - Frame: A newly allocated blurred frame.
//
// @example
// smooth := images.BoxBlur(frame, 2, images.EdgeClamp)
func BoxBlur(f Frame, radius int, edge EdgeMode) Frame {
	if radius <= 0 || f.Empty() {
		return f.Clone()
	}
	tmp := NewFrame(f.Width, f.Height, f.Channels)
	dst := NewFrame(f.Width, f.Height, f.Channels)
	blurHorizontal(f, tmp, radius, edge)
	blurVertical(tmp, dst, radius, edge)
	return dst
}

func blurHorizontal(src, dst Frame, r int, edge EdgeMode) {
	w, ch := src.Width, src.Channels
	window := uint32(2*r + 1)

	Parallel(src.Height, func(start, end int) {
		var sum [MaxChannels]uint32
		for y := start; y < end; y++ {
			in := src.Row(y)
			out := dst.Row(y)

			sum = [MaxChannels]uint32{}
			for dx := -r; dx <= r; dx++ {
				off := mapCoord(dx, w, edge) * ch
				for c := 0; c < ch; c++ {
					sum[c] += uint32(in[off+c])
				}
			}

			for x := 0; x < w; x++ {
				for c := 0; c < ch; c++ {
					out[x*ch+c] = uint8((sum[c] + window/2) / window)
				}
				left := mapCoord(x-r, w, edge) * ch
				right := mapCoord(x+r+1, w, edge) * ch
				for c := 0; c < ch; c++ {
					sum[c] += uint32(in[right+c]) - uint32(in[left+c])
				}
			}
		}
	})
}

func blurVertical(src, dst Frame, r int, edge EdgeMode) {
	h, ch, stride := src.Height, src.Channels, src.Stride()
	window := uint32(2*r + 1)

	Parallel(src.Width, func(start, end int) {
		var sum [MaxChannels]uint32
		for x := start; x < end; x++ {
			col := x * ch

			sum = [MaxChannels]uint32{}
			for dy := -r; dy <= r; dy++ {
				off := mapCoord(dy, h, edge)*stride + col
				for c := 0; c < ch; c++ {
					sum[c] += uint32(src.Pix[off+c])
				}
			}

			for y := 0; y < h; y++ {
				out := y*stride + col
				for c := 0; c < ch; c++ {
					dst.Pix[out+c] = uint8((sum[c] + window/2) / window)
				}
				above := mapCoord(y-r, h, edge)*stride + col
				below := mapCoord(y+r+1, h, edge)*stride + col
				for c := 0; c < ch; c++ {
					sum[c] += uint32(src.Pix[below+c]) - uint32(src.Pix[above+c])
				}
			}
		}
	})
}

// mapCoord maps i into [0, n) according to the edge mode.
func mapCoord(i, n int, mode EdgeMode) int {
	switch mode {
	case EdgeMirror:
		if n == 1 {
			return 0
		}
		for i < 0 || i >= n {
			if i < 0 {
				i = -i - 1
			} else {
				i = 2*n - i - 1
			}
		}
		return i
	case EdgeWrap:
		i %= n
		if i < 0 {
			i += n
		}
		return i
	default:
		if i < 0 {
			return 0
		}
		if i >= n {
			return n - 1
		}
		return i
	}
}
