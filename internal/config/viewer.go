package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Transports a viewer can receive frames over.
const (
	TransportWebSocket = "ws"
	TransportWebRTC    = "webrtc"
)

// ViewerConfig holds configuration for the viewer binary.
type ViewerConfig struct {
	URL         string
	APIURL      string
	ViewerID    string
	Sources     []string
	MinInterval time.Duration
	Transport   string
	Headless    bool
	Start       bool
	Width       int
	Height      int
	LogLevel    string
	LogFile     string
}

// LoadViewer parses viewer flags, environment and .env.
func LoadViewer(args []string) (*ViewerConfig, error) {
	fs := pflag.NewFlagSet("viewer", pflag.ContinueOnError)
	fs.String("url", "ws://localhost:8090/ws", "Feed push channel WebSocket URL")
	fs.String("api", "http://localhost:8090", "Feed HTTP API base URL")
	fs.String("id", "", "Viewer ID (auto-generated if empty)")
	fs.StringSlice("sources", []string{"cam0"}, "Camera sources to display")
	fs.Duration("min-interval", 66*time.Millisecond, "Minimum interval between rendered frames per camera")
	fs.String("transport", TransportWebSocket, "Frame transport: ws or webrtc")
	fs.Bool("headless", false, "Render without a window")
	fs.Bool("start", false, "Ask the feed to start monitoring the sources")
	fs.Int("width", 1280, "Window width")
	fs.Int("height", 720, "Window height")
	fs.String("log-level", "info", "Log level (error, warn, info, debug, trace)")
	fs.String("log-file", "", "Also append logs to this file")

	v, err := load(fs, args)
	if err != nil {
		return nil, err
	}

	cfg := &ViewerConfig{
		URL:         v.GetString("url"),
		APIURL:      v.GetString("api"),
		ViewerID:    v.GetString("id"),
		Sources:     splitList(v.GetStringSlice("sources")),
		MinInterval: v.GetDuration("min-interval"),
		Transport:   v.GetString("transport"),
		Headless:    v.GetBool("headless"),
		Start:       v.GetBool("start"),
		Width:       v.GetInt("width"),
		Height:      v.GetInt("height"),
		LogLevel:    v.GetString("log-level"),
		LogFile:     v.GetString("log-file"),
	}
	if cfg.ViewerID == "" {
		cfg.ViewerID = randomID("viewer")
	}
	return cfg, cfg.Validate()
}

// Validate checks the values a viewer cannot start without.
func (c *ViewerConfig) Validate() error {
	switch {
	case c.URL == "":
		return errors.New("url is required")
	case len(c.Sources) == 0:
		return errors.New("at least one source is required")
	case c.MinInterval <= 0:
		return errors.Errorf("min-interval must be positive, got %s", c.MinInterval)
	case c.Transport != TransportWebSocket && c.Transport != TransportWebRTC:
		return errors.Errorf("unknown transport %q", c.Transport)
	case c.Width <= 0 || c.Height <= 0:
		return errors.Errorf("invalid window size %dx%d", c.Width, c.Height)
	}
	return nil
}
