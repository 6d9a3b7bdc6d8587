package decoder

import "image"

// Decoder decodes bytes into an image.
type Decoder interface {
	Decode(data []byte) (*image.RGBA, error)
}

// Recycler takes back image buffers that are no longer displayed.
type Recycler interface {
	Recycle(img *image.RGBA)
}
