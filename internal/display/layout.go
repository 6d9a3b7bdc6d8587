package display

import (
	"image"
	"math"
)

// GridLayout splits a view into n cells, as square as possible, filled
// row by row.
func GridLayout(viewW, viewH, n int) []image.Rectangle {
	if n <= 0 || viewW <= 0 || viewH <= 0 {
		return nil
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	cellW, cellH := viewW/cols, viewH/rows

	cells := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		c, r := i%cols, i/cols
		x, y := c*cellW, r*cellH
		cells = append(cells, image.Rect(x, y, x+cellW, y+cellH))
	}
	return cells
}

// AspectFit returns scale and offsets to fit frame into view with letterboxing.
func AspectFit(viewW, viewH, frameW, frameH float64) (scale, offsetX, offsetY float64) {
	scale = math.Min(viewW/frameW, viewH/frameH)
	offsetX = (viewW - frameW*scale) / 2
	offsetY = (viewH - frameH*scale) / 2
	return
}

// PackedPix returns img's pixels without row padding.
func PackedPix(img *image.RGBA) []byte {
	b := img.Bounds()
	rowLen := 4 * b.Dx()
	if img.Stride == rowLen && len(img.Pix) == rowLen*b.Dy() {
		return img.Pix
	}
	out := make([]byte, 0, rowLen*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		out = append(out, img.Pix[off:off+rowLen]...)
	}
	return out
}
