package decoder

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ImageDecoder decodes any registered image format into *image.RGBA.
// Converted frames are drawn into pooled buffers; hand them back with
// Recycle once they are off screen.
type ImageDecoder struct {
	pool sync.Pool
}

func NewImageDecoder() *ImageDecoder {
	return &ImageDecoder{}
}

func (d *ImageDecoder) Decode(data []byte) (*image.RGBA, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "image decode")
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("image decode: empty bounds")
	}
	rgba := d.get(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	return rgba, nil
}

// Recycle returns img to the buffer pool. img must not be used afterwards.
func (d *ImageDecoder) Recycle(img *image.RGBA) {
	if img == nil {
		return
	}
	d.pool.Put(img)
}

func (d *ImageDecoder) get(b image.Rectangle) *image.RGBA {
	if v := d.pool.Get(); v != nil {
		buf := v.(*image.RGBA)
		n := 4 * b.Dx() * b.Dy()
		if cap(buf.Pix) >= n {
			return &image.RGBA{Pix: buf.Pix[:n], Stride: 4 * b.Dx(), Rect: b}
		}
	}
	return image.NewRGBA(b)
}
