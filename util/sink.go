package util

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-bgs/images"
)

// DefaultMaskPattern names mask files by zero-padded frame index.
const DefaultMaskPattern = "mask-%06d.png"

// DirectorySink writes every mask it receives as a grayscale PNG.
type DirectorySink struct {
	dir     string
	pattern string
	written int
}

// NewDirectorySink creates dir if needed and returns a sink writing into it.
//
// Arguments:
// - dir: Output directory.
// - pattern: fmt pattern taking the frame index, DefaultMaskPattern when empty.
//
// Returns:
// - *DirectorySink: The sink.
// - error: Error if the directory cannot be created.
func NewDirectorySink(dir, pattern string) (*DirectorySink, error) {
	if pattern == "" {
		pattern = DefaultMaskPattern
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", dir)
	}
	return &DirectorySink{dir: dir, pattern: pattern}, nil
}

// Write encodes mask to the file for index.
func (s *DirectorySink) Write(index int, mask *images.Mask) error {
	if mask.Empty() {
		return errors.Errorf("mask %d is empty", index)
	}
	path := s.Path(index)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := png.Encode(f, mask.ToGray()); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to encode %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", path)
	}
	s.written++
	return nil
}

// Path returns the file the mask for index is written to.
func (s *DirectorySink) Path(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf(s.pattern, index))
}

// Written returns how many masks have been written.
func (s *DirectorySink) Written() int {
	return s.written
}
