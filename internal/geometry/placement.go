// Package geometry computes where a new placeholder lands on a page.
package geometry

import (
	"github.com/a3tai/mcp-pdf-signer/internal/forms"
	flowerrors "github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
)

const (
	// DefaultFieldWidth and DefaultFieldHeight are the on-screen size of a
	// new placeholder at zoom 1 and rotation 0
	DefaultFieldWidth  = 250.0
	DefaultFieldHeight = 50.0
)

// PageInfo is the size of a page in page space
type PageInfo struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ValidateRotation rejects anything but a right angle
func ValidateRotation(degrees int) error {
	switch degrees {
	case 0, 90, 180, 270:
		return nil
	}
	return flowerrors.Newf(flowerrors.ErrorTypeInvalidRotation, "rotation %d is not one of 0, 90, 180, 270", degrees)
}

// NormalizeRotation folds any multiple of 90 into [0, 360)
func NormalizeRotation(degrees int) int {
	r := degrees % 360
	if r < 0 {
		r += 360
	}
	return r
}

// Size returns the field size for the rotation and zoom. Quarter turns swap
// the base width and height; both sides are divided by zoom so the rendered
// size stays constant.
func Size(rotation int, zoom, baseWidth, baseHeight float64) (width, height float64, err error) {
	if err := ValidateRotation(rotation); err != nil {
		return 0, 0, err
	}
	if zoom <= 0 {
		return 0, 0, flowerrors.Newf(flowerrors.ErrorTypeInvalidZoom, "zoom %g must be positive", zoom)
	}
	if rotation == 90 || rotation == 270 {
		baseWidth, baseHeight = baseHeight, baseWidth
	}
	return baseWidth / zoom, baseHeight / zoom, nil
}

// ComputePlacement returns the geometry of a field centered on pointer, which
// must already be in page space. A nil pointer centers the field on the page.
// The returned geometry has Page unset; callers fill it in.
func ComputePlacement(pointer *forms.Point, page PageInfo, rotation int, zoom, baseWidth, baseHeight float64) (forms.Geometry, error) {
	width, height, err := Size(rotation, zoom, baseWidth, baseHeight)
	if err != nil {
		return forms.Geometry{}, err
	}

	center := forms.Point{X: page.Width / 2, Y: page.Height / 2}
	if pointer != nil {
		center = *pointer
	}

	return forms.Geometry{
		X:        center.X - width/2,
		Y:        center.Y - height/2,
		Width:    width,
		Height:   height,
		Rotation: rotation,
	}, nil
}
