package display

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGridLayout(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		n     int
		cells []image.Rectangle
	}{
		{name: "none", w: 100, h: 100, n: 0},
		{name: "single", w: 1280, h: 720, n: 1, cells: []image.Rectangle{image.Rect(0, 0, 1280, 720)}},
		{name: "two side by side", w: 1280, h: 720, n: 2, cells: []image.Rectangle{
			image.Rect(0, 0, 640, 720), image.Rect(640, 0, 1280, 720),
		}},
		{name: "three in two rows", w: 200, h: 100, n: 3, cells: []image.Rectangle{
			image.Rect(0, 0, 100, 50), image.Rect(100, 0, 200, 50), image.Rect(0, 50, 100, 100),
		}},
		{name: "zero view", w: 0, h: 100, n: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.cells, GridLayout(tt.w, tt.h, tt.n))
		})
	}
}

func TestAspectFit(t *testing.T) {
	scale, ox, oy := AspectFit(1280, 720, 640, 480)
	assert.InDelta(t, 1.5, scale, 1e-9)
	assert.InDelta(t, 160, ox, 1e-9)
	assert.InDelta(t, 0, oy, 1e-9)

	scale, ox, oy = AspectFit(400, 400, 800, 400)
	assert.InDelta(t, 0.5, scale, 1e-9)
	assert.InDelta(t, 0, ox, 1e-9)
	assert.InDelta(t, 100, oy, 1e-9)
}

func TestPackedPix(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	assert.Equal(t, img.Pix, PackedPix(img))

	sub := img.SubImage(image.Rect(1, 1, 3, 3)).(*image.RGBA)
	got := PackedPix(sub)
	assert.Len(t, got, 16)
	assert.Equal(t, img.Pix[20:28], got[:8])
	assert.Equal(t, img.Pix[36:44], got[8:])
}
