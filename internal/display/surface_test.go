package display

import (
	"encoding/base64"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/camfeed/internal/renderer"
)

// solidDecoder decodes a payload into a 2x2 image filled with its first byte.
type solidDecoder struct{}

func (solidDecoder) Decode(data []byte) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = data[0]
	}
	return img, nil
}

func frameOf(b byte) string { return base64.StdEncoding.EncodeToString([]byte{b}) }

var base = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func tick(n int) time.Time { return base.Add(time.Duration(n) * 100 * time.Millisecond) }

func TestTileUpload(t *testing.T) {
	r := renderer.New(renderer.Options{Decoder: solidDecoder{}})
	tile := NewTile("cam1")
	require.NoError(t, r.BindTarget("cam1", tile))

	copied := 0
	copyFn := func(img *image.RGBA) { copied++ }

	tile.Upload(copyFn)()
	assert.Equal(t, 0, copied, "nothing queued")

	r.SubmitFrame("cam1", frameOf(1), tick(0))
	r.SubmitFrame("cam1", frameOf(2), tick(1))
	var seen color.RGBA
	tile.Upload(func(img *image.RGBA) {
		copied++
		seen = img.RGBAAt(0, 0)
	})()
	assert.Equal(t, 1, copied, "superseded frame is never drawn")
	assert.Equal(t, uint8(2), seen.R)

	w, h := tile.FrameSize()
	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)

	st, ok := r.Stats("cam1")
	require.True(t, ok)
	assert.Equal(t, uint64(1), st.Displayed)
	assert.Equal(t, uint64(1), st.Superseded)
	assert.Equal(t, renderer.StateIdle, st.State)

	r.UnbindTarget("cam1")
	w, h = tile.FrameSize()
	assert.Equal(t, 0, w+h)
	tile.Upload(copyFn)()
	assert.Equal(t, 1, copied)
}

type emptyDecoder struct{}

func (emptyDecoder) Decode([]byte) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, 0, 0)), nil
}

func TestTileRejectsEmptyFrame(t *testing.T) {
	r := renderer.New(renderer.Options{Decoder: emptyDecoder{}})
	tile := NewTile("cam1")
	require.NoError(t, r.BindTarget("cam1", tile))

	r.SubmitFrame("cam1", frameOf(1), tick(0))
	tile.Upload(func(*image.RGBA) { t.Fatal("empty frame copied") })()

	st, _ := r.Stats("cam1")
	assert.Equal(t, uint64(1), st.DisplayFailures)
	assert.Equal(t, uint64(0), st.ActiveID)
}

func TestHeadless(t *testing.T) {
	r := renderer.New(renderer.Options{Decoder: solidDecoder{}})
	s := NewHeadless("cam1", time.Hour)
	require.NoError(t, r.BindTarget("cam1", s))

	assert.Nil(t, s.Snapshot())
	s.Flush()
	assert.Equal(t, uint64(0), s.Displayed())

	r.SubmitFrame("cam1", frameOf(7), tick(0))
	s.Flush()
	snap := s.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, uint8(7), snap.RGBAAt(1, 1).G)

	r.SubmitFrame("cam1", frameOf(9), tick(1))
	assert.Equal(t, uint8(7), s.Snapshot().RGBAAt(0, 0).R, "previous frame stays until the next refresh")
	s.Flush()
	assert.Equal(t, uint8(9), s.Snapshot().RGBAAt(0, 0).R)
	assert.Equal(t, uint64(2), s.Displayed())

	st, _ := r.Stats("cam1")
	assert.Equal(t, uint64(1), st.Released)

	r.UnbindTarget("cam1")
	assert.Nil(t, s.Snapshot())
}

func TestHeadlessRefreshLoop(t *testing.T) {
	r := renderer.New(renderer.Options{Decoder: solidDecoder{}})
	s := NewHeadless("cam1", 5*time.Millisecond)
	require.NoError(t, r.BindTarget("cam1", s))
	s.Start()
	defer s.Stop()

	r.SubmitFrame("cam1", frameOf(3), tick(0))
	assert.Eventually(t, func() bool { return s.Displayed() == 1 }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
}
