package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pion/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logging.LogLevel
		wantErr bool
	}{
		{in: "", want: logging.LogLevelInfo},
		{in: "INFO", want: logging.LogLevelInfo},
		{in: " warn ", want: logging.LogLevelWarn},
		{in: "warning", want: logging.LogLevelWarn},
		{in: "debug", want: logging.LogLevelDebug},
		{in: "trace", want: logging.LogLevelTrace},
		{in: "error", want: logging.LogLevelError},
		{in: "off", want: logging.LogLevelDisabled},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewFactoryWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camfeed.log")
	factory, closer, err := NewFactory("warn", path)
	require.NoError(t, err)

	log := factory.NewLogger("renderer")
	log.Info("not written")
	log.Warn("dropped frame")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dropped frame")
	assert.NotContains(t, string(data), "not written")
}

func TestNewFactoryBadLevel(t *testing.T) {
	_, _, err := NewFactory("chatty", "")
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	log := Discard("renderer")
	log.Errorf("nothing %d", 1)
}
