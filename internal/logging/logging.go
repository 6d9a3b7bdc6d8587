package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pion/logging"
	"github.com/pkg/errors"
)

// NewFactory builds the logger factory shared by every component and by
// pion's SettingEngine. Output goes to stdout and, when path is set, is
// appended to that file too. The returned closer releases the file.
func NewFactory(level, path string) (*logging.DefaultLoggerFactory, io.Closer, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_RDWR|os.O_CREATE, 0644)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "open log file %s", path)
		}
		w = io.MultiWriter(os.Stdout, f)
		closer = f
	}

	return &logging.DefaultLoggerFactory{
		Writer:          w,
		DefaultLogLevel: lvl,
		ScopeLevels:     make(map[string]logging.LogLevel),
	}, closer, nil
}

// ParseLevel maps a level name to a pion log level. Empty means info.
func ParseLevel(s string) (logging.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return logging.LogLevelInfo, nil
	case "disabled", "off", "none":
		return logging.LogLevelDisabled, nil
	case "error":
		return logging.LogLevelError, nil
	case "warn", "warning":
		return logging.LogLevelWarn, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "trace":
		return logging.LogLevelTrace, nil
	}
	return logging.LogLevelDisabled, errors.Errorf("unknown log level %q", s)
}

// Discard returns a logger that drops everything.
func Discard(scope string) logging.LeveledLogger {
	return logging.NewDefaultLeveledLoggerForScope(scope, logging.LogLevelDisabled, io.Discard)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
