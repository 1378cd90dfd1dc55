package geometry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-signer/internal/forms"
	flowerrors "github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
)

func TestSize_RotationAndZoom(t *testing.T) {
	bases := []struct{ w, h float64 }{{250, 50}, {100, 100}, {13.5, 7}}
	zooms := []float64{0.25, 1, 1.5, 4}

	for _, rotation := range []int{0, 90, 180, 270} {
		for _, b := range bases {
			for _, zoom := range zooms {
				w, h, err := Size(rotation, zoom, b.w, b.h)
				require.NoError(t, err)
				if rotation == 90 || rotation == 270 {
					assert.InDelta(t, b.h/zoom, w, 1e-9)
					assert.InDelta(t, b.w/zoom, h, 1e-9)
				} else {
					assert.InDelta(t, b.w/zoom, w, 1e-9)
					assert.InDelta(t, b.h/zoom, h, 1e-9)
				}
			}
		}
	}
}

func TestSize_Errors(t *testing.T) {
	tests := []struct {
		name     string
		rotation int
		zoom     float64
		want     error
	}{
		{name: "odd rotation", rotation: 45, zoom: 1, want: flowerrors.ErrInvalidRotation},
		{name: "full turn", rotation: 360, zoom: 1, want: flowerrors.ErrInvalidRotation},
		{name: "negative rotation", rotation: -90, zoom: 1, want: flowerrors.ErrInvalidRotation},
		{name: "zero zoom", rotation: 0, zoom: 0, want: flowerrors.ErrInvalidZoom},
		{name: "negative zoom", rotation: 90, zoom: -2, want: flowerrors.ErrInvalidZoom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Size(tt.rotation, tt.zoom, 250, 50)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want))
		})
	}
}

func TestComputePlacement_PointerCentersField(t *testing.T) {
	pointer := &forms.Point{X: 100, Y: 100}
	page := PageInfo{Width: 600, Height: 800}

	g, err := ComputePlacement(pointer, page, 0, 1, DefaultFieldWidth, DefaultFieldHeight)
	require.NoError(t, err)

	assert.Equal(t, 250.0, g.Width)
	assert.Equal(t, 50.0, g.Height)
	assert.Equal(t, -25.0, g.X)
	assert.Equal(t, 75.0, g.Y)
	assert.Equal(t, forms.Point{X: 100, Y: 100}, g.Center())
	assert.Equal(t, 0, g.Rotation)
}

func TestComputePlacement_NoPointerCentersOnPage(t *testing.T) {
	page := PageInfo{Width: 600, Height: 800}

	g, err := ComputePlacement(nil, page, 90, 2, DefaultFieldWidth, DefaultFieldHeight)
	require.NoError(t, err)

	assert.Equal(t, 25.0, g.Width)
	assert.Equal(t, 125.0, g.Height)
	assert.Equal(t, forms.Point{X: 300, Y: 400}, g.Center())
	assert.Equal(t, 90, g.Rotation)
}

func TestComputePlacement_InvalidRotation(t *testing.T) {
	_, err := ComputePlacement(nil, PageInfo{Width: 600, Height: 800}, 30, 1, 250, 50)
	assert.True(t, errors.Is(err, flowerrors.ErrInvalidRotation))
}

func TestNormalizeRotation(t *testing.T) {
	assert.Equal(t, 270, NormalizeRotation(-90))
	assert.Equal(t, 90, NormalizeRotation(450))
	assert.Equal(t, 0, NormalizeRotation(360))
}
