package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPattern(t *testing.T) {
	a := Pattern(64, 48, 1)
	b := Pattern(64, 48, 2)
	assert.Equal(t, 64, a.Bounds().Dx())
	assert.Equal(t, 48, a.Bounds().Dy())
	assert.NotEqual(t, a.Pix, b.Pix, "the sweep moves between frames")
	assert.Equal(t, a.RGBAAt(63, 0), b.RGBAAt(63, 0))

	tiny := Pattern(3, 1, 7)
	assert.Equal(t, 3, tiny.Bounds().Dx())
}

func TestNewPatternCapturerInvalid(t *testing.T) {
	_, err := NewPatternCapturer("cam0", 0, 10, 10)
	assert.Error(t, err)
	_, err = NewPatternCapturer("cam0", 10, 10, 0)
	assert.Error(t, err)
}

func TestPatternCapturer(t *testing.T) {
	c, err := NewPatternCapturer("cam0", 16, 8, 50)
	require.NoError(t, err)
	require.NoError(t, c.Start())
	assert.Error(t, c.Start())

	var last uint64
	for i := 0; i < 3; i++ {
		select {
		case f := <-c.Frames():
			assert.Equal(t, "cam0", f.Source)
			assert.Greater(t, f.Seq, last)
			last = f.Seq
		case <-time.After(2 * time.Second):
			t.Fatal("no frame")
		}
	}

	c.Stop()
	c.Stop()
	for range c.Frames() {
	}
	assert.Error(t, c.Start(), "a stopped capturer cannot restart")
}
