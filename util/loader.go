// Package util provides image-sequence frame sources and mask sinks for the
// background subtraction engine.
package util

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"
	"golang.org/x/image/bmp"

	"github.com/nvr-ai/go-bgs/images"
)

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file. It is nil until loaded.
	Data []byte
	// Frame is the frame number parsed from the trailing digits of the file
	// name, or -1 when the name carries none.
	Frame int
}

// ListImageFiles lists the decodable image files of a directory in frame order.
//
// Files are ordered by the number at the end of their base name ("frame-12.png",
// "img0007.jpg"), then by path. Files without a number sort first.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: The files, without their data.
// - error: Error if the directory cannot be read.
func ListImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read directory %s", dir)
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := images.FormatFromPath(entry.Name()); !ok {
			continue
		}
		files = append(files, ImageFile{
			Path:  filepath.Join(dir, entry.Name()),
			Frame: frameNumber(entry.Name()),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Frame != files[j].Frame {
			return files[i].Frame < files[j].Frame
		}
		return files[i].Path < files[j].Path
	})

	return files, nil
}

// LoadDirectoryImageFiles reads all image files from a directory.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: Slice of ImageFile, each containing the raw bytes of an image file.
// - error: Error if loading fails.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	files, err := ListImageFiles(dir)
	if err != nil {
		return nil, err
	}
	for i := range files {
		data, err := os.ReadFile(files[i].Path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", files[i].Path)
		}
		files[i].Data = data
	}
	return files, nil
}

// frameNumber parses the trailing digits of a file's base name.
func frameNumber(name string) int {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	end := len(base)
	start := end
	for start > 0 && base[start-1] >= '0' && base[start-1] <= '9' {
		start--
	}
	if start == end {
		return -1
	}
	n, err := strconv.Atoi(base[start:end])
	if err != nil {
		return -1
	}
	return n
}

// DecodeImage decodes encoded image bytes, choosing the codec from the path's
// extension.
func DecodeImage(path string, data []byte) (image.Image, error) {
	format, ok := images.FormatFromPath(path)
	if !ok {
		return nil, errors.Errorf("unsupported image format: %s", path)
	}

	var (
		img image.Image
		err error
	)
	r := bytes.NewReader(data)
	switch format {
	case images.FormatJPEG:
		img, err = jpeg.Decode(r)
	case images.FormatPNG:
		img, err = png.Decode(r)
	case images.FormatBMP:
		img, err = bmp.Decode(r)
	case images.FormatWebP:
		img, err = webp.Decode(r)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return img, nil
}

// DecodeFrame decodes an image file into a Frame with the given channel count.
//
// Arguments:
// - path: File path, used to pick the codec.
// - data: Encoded bytes.
// - channels: 1, 3 or 4.
//
// Returns:
// - images.Frame: The decoded frame.
// - error: Error if decoding or conversion fails.
func DecodeFrame(path string, data []byte, channels int) (images.Frame, error) {
	img, err := DecodeImage(path, data)
	if err != nil {
		return images.Frame{}, err
	}
	f, err := images.FromImage(img, channels)
	if err != nil {
		return images.Frame{}, errors.Wrapf(err, "failed to convert %s", path)
	}
	return f, nil
}

// DirectorySource replays a directory of images as a frame stream. Files are
// read lazily, one per call to Next.
type DirectorySource struct {
	files    []ImageFile
	pos      int
	channels int
	width    int
	height   int
}

// SourceOption configures a DirectorySource.
type SourceOption func(*DirectorySource)

// WithChannels sets the channel count of produced frames (default 3).
func WithChannels(channels int) SourceOption {
	return func(s *DirectorySource) {
		s.channels = channels
	}
}

// WithSize downscales every frame. A zero side is derived from the aspect ratio.
func WithSize(width, height int) SourceOption {
	return func(s *DirectorySource) {
		s.width, s.height = width, height
	}
}

// NewDirectorySource lists dir and returns a source over its images.
//
// @example
// src, err := util.NewDirectorySource("frames/", util.WithChannels(3))
// n, err := driver.Run(ctx, src, sink)
func NewDirectorySource(dir string, opts ...SourceOption) (*DirectorySource, error) {
	files, err := ListImageFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no images found in %s", dir)
	}

	s := &DirectorySource{files: files, channels: 3}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Next decodes the next image. It returns io.EOF after the last one.
func (s *DirectorySource) Next() (images.Frame, error) {
	if s.pos >= len(s.files) {
		return images.Frame{}, io.EOF
	}
	file := s.files[s.pos]
	s.pos++

	data, err := os.ReadFile(file.Path)
	if err != nil {
		return images.Frame{}, errors.Wrapf(err, "failed to read %s", file.Path)
	}
	f, err := DecodeFrame(file.Path, data, s.channels)
	if err != nil {
		return images.Frame{}, err
	}
	if s.width > 0 || s.height > 0 {
		return images.DownscaleFrame(f, s.width, s.height)
	}
	return f, nil
}

// Len returns the number of images in the source.
func (s *DirectorySource) Len() int {
	return len(s.files)
}
