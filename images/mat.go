package images

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// FrameFromMat copies an 8-bit OpenCV matrix into a Frame.
//
// An empty matrix yields an empty frame, which frame sources treat as end of stream.
//
// Arguments:
//   - mat: A CV_8UC1, CV_8UC3 or CV_8UC4 matrix.
//
// Returns:
//   - Frame: A frame that does not share memory with mat.
//   - error: If the matrix type is not 8-bit with 1, 3 or 4 channels.
//
// @example
// frame, err := images.FrameFromMat(img)
func FrameFromMat(mat gocv.Mat) (Frame, error) {
	if mat.Empty() {
		return Frame{}, nil
	}

	switch mat.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
	default:
		return Frame{}, errors.Errorf("unsupported mat type: %d", mat.Type())
	}

	f := Frame{
		Width:    mat.Cols(),
		Height:   mat.Rows(),
		Channels: mat.Channels(),
		Pix:      mat.ToBytes(),
	}
	if err := f.Validate(); err != nil {
		return Frame{}, errors.Wrap(err, "failed to convert mat")
	}
	return f, nil
}

// ToMat wraps the frame in a new OpenCV matrix. The matrix may reference f.Pix,
// so the frame must not change while it is in use. The caller must Close it.
func (f Frame) ToMat() (gocv.Mat, error) {
	if err := f.Validate(); err != nil {
		return gocv.NewMat(), err
	}

	var mt gocv.MatType
	switch f.Channels {
	case 1:
		mt = gocv.MatTypeCV8UC1
	case 3:
		mt = gocv.MatTypeCV8UC3
	case 4:
		mt = gocv.MatTypeCV8UC4
	default:
		return gocv.NewMat(), errors.Errorf("unsupported channel count: %d", f.Channels)
	}
	return gocv.NewMatFromBytes(f.Height, f.Width, mt, f.Pix)
}

// ToMat wraps the mask in a new single-channel OpenCV matrix under the same
// aliasing rule as Frame.ToMat. The caller must Close it.
func (m *Mask) ToMat() (gocv.Mat, error) {
	if m.Empty() {
		return gocv.NewMat(), errors.New("mask is empty")
	}
	return gocv.NewMatFromBytes(m.Height, m.Width, gocv.MatTypeCV8UC1, m.Pix)
}
