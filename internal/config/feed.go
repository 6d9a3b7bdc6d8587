package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// FeedConfig holds configuration for the feed binary.
type FeedConfig struct {
	Listen   string
	Sources  []string
	FPS      int
	Quality  int
	Width    int
	Height   int
	DataURI  bool
	AutoRun  bool
	LogLevel string
	LogFile  string
}

// LoadFeed parses feed flags, environment and .env.
func LoadFeed(args []string) (*FeedConfig, error) {
	fs := pflag.NewFlagSet("feed", pflag.ContinueOnError)
	fs.String("listen", ":8090", "HTTP listen address")
	fs.StringSlice("sources", []string{"cam0"}, "Camera sources to simulate")
	fs.Int("fps", 30, "Frames per second per source")
	fs.Int("quality", 70, "JPEG quality (1-100)")
	fs.Int("width", 640, "Frame width")
	fs.Int("height", 480, "Frame height")
	fs.Bool("data-uri", true, "Prefix frames with data:image/jpeg;base64,")
	fs.Bool("autorun", true, "Start monitoring every source at startup")
	fs.String("log-level", "info", "Log level (error, warn, info, debug, trace)")
	fs.String("log-file", "", "Also append logs to this file")

	v, err := load(fs, args)
	if err != nil {
		return nil, err
	}

	cfg := &FeedConfig{
		Listen:   v.GetString("listen"),
		Sources:  splitList(v.GetStringSlice("sources")),
		FPS:      v.GetInt("fps"),
		Quality:  v.GetInt("quality"),
		Width:    v.GetInt("width"),
		Height:   v.GetInt("height"),
		DataURI:  v.GetBool("data-uri"),
		AutoRun:  v.GetBool("autorun"),
		LogLevel: v.GetString("log-level"),
		LogFile:  v.GetString("log-file"),
	}
	return cfg, cfg.Validate()
}

// Validate checks the values a feed cannot start without.
func (c *FeedConfig) Validate() error {
	switch {
	case c.Listen == "":
		return errors.New("listen address is required")
	case len(c.Sources) == 0:
		return errors.New("at least one source is required")
	case c.FPS < 1 || c.FPS > 60:
		return errors.Errorf("fps must be between 1 and 60, got %d", c.FPS)
	case c.Width <= 0 || c.Height <= 0:
		return errors.Errorf("invalid frame size %dx%d", c.Width, c.Height)
	}
	return nil
}
