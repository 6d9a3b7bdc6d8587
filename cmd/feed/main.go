package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/junsooki/camfeed/internal/apiserver"
	"github.com/junsooki/camfeed/internal/config"
	"github.com/junsooki/camfeed/internal/encoder"
	camlog "github.com/junsooki/camfeed/internal/logging"
	"github.com/junsooki/camfeed/internal/monitor"
	"github.com/junsooki/camfeed/internal/push"
)

func main() {
	cfg, err := config.LoadFeed(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	factory, logFile, err := camlog.NewFactory(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}
	defer logFile.Close()
	log := factory.NewLogger("feed")

	log.Infof("camfeed feed starting")
	log.Infof("  Listen:   %s", cfg.Listen)
	log.Infof("  Sources:  %v", cfg.Sources)
	log.Infof("  Size:     %dx%d", cfg.Width, cfg.Height)
	log.Infof("  FPS:      %d", cfg.FPS)
	log.Infof("  Quality:  %d", cfg.Quality)

	// Frames go to websocket viewers through the hub and to WebRTC viewers
	// through their data channels.
	fan := monitor.NewFanout(factory)
	hub := push.NewHub(fan.HubHandler(), factory.NewLogger("push"))
	fan.Attach(hub)
	defer fan.Close()
	defer hub.Close()

	mon := monitor.New(monitor.Options{
		Sources:  cfg.Sources,
		Width:    cfg.Width,
		Height:   cfg.Height,
		FPS:      cfg.FPS,
		DataURI:  cfg.DataURI,
		Encoder:  encoder.NewJPEGEncoder(cfg.Quality),
		OnStatus: hub.BroadcastStatus,
		Logger:   log,
	}, fan)
	defer mon.Close()

	if cfg.AutoRun {
		if err := mon.Start(""); err != nil {
			log.Errorf("start monitoring: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := apiserver.NewWebServer(cfg.Listen, hub, mon, factory.NewLogger("api"))
	if err := srv.Start(ctx); err != nil {
		log.Errorf("web server: %v", err)
		return
	}
	log.Info("Shutting down...")
}
