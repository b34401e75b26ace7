package images

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// AspectRatio represents an aspect ratio by name (e.g., "16:9").
type AspectRatio string

// Common aspect ratios of surveillance cameras.
const (
	AspectRatio169 AspectRatio = "16:9"
	AspectRatio43  AspectRatio = "4:3"
)

// ResolutionType is the short name of a processing resolution preset.
type ResolutionType string

// Processing presets. Background subtraction cost is linear in pixel count, so
// frames are usually downscaled to one of these before segmentation.
const (
	ResolutionTypeQQVGA  ResolutionType = "qqvga"
	ResolutionTypeQVGA   ResolutionType = "qvga"
	ResolutionTypeNHD    ResolutionType = "nhd"
	ResolutionTypeVGA    ResolutionType = "vga"
	ResolutionTypeHD720p ResolutionType = "720p"
	ResolutionTypeFHD    ResolutionType = "1080p"
)

// Resolution describes a processing preset.
type Resolution struct {
	Name        ResolutionType `json:"name"`
	AspectRatio AspectRatio    `json:"aspectRatio"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
}

// GetMegaPixels returns the pixel count in megapixels rounded to two decimals.
func (r Resolution) GetMegaPixels() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0.0
	}
	mp := float64(r.Width*r.Height) / 1_000_000.0
	return math.Round(mp*100) / 100
}

// String returns a human-readable summary of the resolution.
func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Width, r.Height, r.GetMegaPixels())
}

var resolutions = map[ResolutionType]Resolution{
	ResolutionTypeQQVGA:  {Name: ResolutionTypeQQVGA, AspectRatio: AspectRatio43, Width: 160, Height: 120},
	ResolutionTypeQVGA:   {Name: ResolutionTypeQVGA, AspectRatio: AspectRatio43, Width: 320, Height: 240},
	ResolutionTypeNHD:    {Name: ResolutionTypeNHD, AspectRatio: AspectRatio169, Width: 640, Height: 360},
	ResolutionTypeVGA:    {Name: ResolutionTypeVGA, AspectRatio: AspectRatio43, Width: 640, Height: 480},
	ResolutionTypeHD720p: {Name: ResolutionTypeHD720p, AspectRatio: AspectRatio169, Width: 1280, Height: 720},
	ResolutionTypeFHD:    {Name: ResolutionTypeFHD, AspectRatio: AspectRatio169, Width: 1920, Height: 1080},
}

// GetAllResolutions returns every preset ordered by pixel count.
func GetAllResolutions() []Resolution {
	all := make([]Resolution, 0, len(resolutions))
	for _, res := range resolutions {
		all = append(all, res)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Width*all[i].Height < all[j].Width*all[j].Height
	})
	return all
}

// GetResolutionByType looks a preset up by name, case-insensitively.
//
// Arguments:
//   - t: Preset name such as "vga" or "720p".
//
// Returns:
//   - Resolution: The preset.
//   - error: If no preset has that name.
func GetResolutionByType(t ResolutionType) (Resolution, error) {
	res, ok := resolutions[ResolutionType(strings.ToLower(string(t)))]
	if !ok {
		names := make([]string, 0, len(resolutions))
		for _, r := range GetAllResolutions() {
			names = append(names, string(r.Name))
		}
		return Resolution{}, errors.Errorf("unknown resolution %q, want one of %s", t, strings.Join(names, ", "))
	}
	return res, nil
}

// GetHighestResolutionUnderDimensions returns the largest preset that fits
// inside width x height.
//
// Arguments:
//   - width: The maximum width.
//   - height: The maximum height.
//
// Returns:
//   - Resolution: The largest fitting preset.
//   - bool: False if none fits.
func GetHighestResolutionUnderDimensions(width, height int) (Resolution, bool) {
	var highest Resolution
	var found bool

	for _, res := range resolutions {
		if res.Width <= width && res.Height <= height {
			if !found || res.GetMegaPixels() > highest.GetMegaPixels() {
				highest = res
				found = true
			}
		}
	}
	return highest, found
}
