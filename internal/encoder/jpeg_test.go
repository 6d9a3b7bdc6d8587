package encoder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/camfeed/internal/capture"
	"github.com/junsooki/camfeed/internal/decoder"
	"github.com/junsooki/camfeed/internal/frame"
)

func TestJPEGEncoderQuality(t *testing.T) {
	assert.Equal(t, 1, NewJPEGEncoder(-5).Quality())
	assert.Equal(t, 100, NewJPEGEncoder(250).Quality())
	e := NewJPEGEncoder(70)
	e.SetQuality(40)
	assert.Equal(t, 40, e.Quality())
}

func TestEncodeTextDecodesBack(t *testing.T) {
	img := capture.Pattern(32, 24, 3)
	enc := NewJPEGEncoder(90)

	prefixed, err := EncodeText(enc, img, true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prefixed, DataURIPrefix))
	assert.Equal(t, "image/jpeg", frame.MediaType(prefixed))

	plain, err := EncodeText(enc, img, false)
	require.NoError(t, err)
	assert.Equal(t, prefixed[len(DataURIPrefix):], plain)

	data, err := frame.Decode(prefixed)
	require.NoError(t, err)
	out, err := decoder.NewImageDecoder().Decode(data)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), out.Bounds())
}
