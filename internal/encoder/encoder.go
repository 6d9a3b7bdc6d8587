package encoder

import (
	"encoding/base64"
	"image"
)

// DataURIPrefix is the marker the monitoring backend put in front of frames.
const DataURIPrefix = "data:image/jpeg;base64,"

// Encoder compresses a captured frame for the push channel.
type Encoder interface {
	Encode(img *image.RGBA) ([]byte, error)
	SetQuality(quality int)
}

// EncodeText encodes img and returns it as base64 text, optionally with
// the data-URI prefix.
func EncodeText(enc Encoder, img *image.RGBA, dataURI bool) (string, error) {
	data, err := enc.Encode(img)
	if err != nil {
		return "", err
	}
	text := base64.StdEncoding.EncodeToString(data)
	if dataURI {
		return DataURIPrefix + text, nil
	}
	return text, nil
}
