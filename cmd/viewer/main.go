package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/logging"

	"github.com/junsooki/camfeed/internal/apiclient"
	"github.com/junsooki/camfeed/internal/config"
	"github.com/junsooki/camfeed/internal/display"
	"github.com/junsooki/camfeed/internal/display/window"
	"github.com/junsooki/camfeed/internal/frame"
	camlog "github.com/junsooki/camfeed/internal/logging"
	"github.com/junsooki/camfeed/internal/peer"
	"github.com/junsooki/camfeed/internal/push"
	"github.com/junsooki/camfeed/internal/renderer"
)

// headlessRefresh is the simulated display refresh in headless mode.
const headlessRefresh = 16 * time.Millisecond

func main() {
	cfg, err := config.LoadViewer(os.Args[1:])
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
	log := factory.NewLogger("viewer")

	log.Infof("camfeed viewer starting")
	log.Infof("  Viewer ID:  %s", cfg.ViewerID)
	log.Infof("  Push URL:   %s", cfg.URL)
	log.Infof("  Sources:    %v", cfg.Sources)
	log.Infof("  Transport:  %s", cfg.Transport)

	rend := renderer.New(renderer.Options{
		MinInterval: cfg.MinInterval,
		Logger:      factory.NewLogger("renderer"),
	})

	// Surfaces, one per source.
	var grid *window.Grid
	var heads []*display.Headless
	if cfg.Headless {
		for _, s := range cfg.Sources {
			h := display.NewHeadless(s, headlessRefresh)
			h.Start()
			heads = append(heads, h)
			bind(rend, s, h, log)
		}
	} else {
		grid = window.NewGrid("camfeed", cfg.Width, cfg.Height, factory.NewLogger("display"))
		for _, s := range cfg.Sources {
			bind(rend, s, grid.AddTile(s), log)
		}
	}
	defer func() {
		for _, s := range cfg.Sources {
			rend.UnbindTarget(s)
		}
		for _, h := range heads {
			h.Stop()
		}
	}()

	if cfg.Start && cfg.APIURL != "" {
		api := apiclient.New(cfg.APIURL)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		for _, s := range cfg.Sources {
			if err := api.StartMonitoring(ctx, s); err != nil {
				log.Warnf("start monitoring %s: %v", s, err)
			}
		}
		cancel()
	}

	var rtc *peer.Viewer
	var client *push.Client
	client = push.NewClient(push.ClientConfig{
		URL:       cfg.URL,
		ID:        cfg.ViewerID,
		Sources:   cfg.Sources,
		Transport: cfg.Transport,
	}, push.Handler{
		OnRegistered: func() {
			log.Info("Registered with feed")
			if cfg.Transport != config.TransportWebRTC {
				return
			}
			var err error
			rtc, err = peer.NewViewer(client, factory)
			if err != nil {
				log.Errorf("create viewer peer: %v", err)
				return
			}
			rtc.Transport().OnFrame(rend.OnFrame)
			if err := rtc.Connect(); err != nil {
				log.Errorf("viewer connect: %v", err)
			}
		},
		OnFrame: func(msg frame.Message) {
			rend.OnFrame(msg)
		},
		OnStatus: func(s push.Status) {
			if s.Status == push.StatusError {
				log.Warnf("monitoring %s: %s %s", s.SourceID, s.Status, s.Message)
				return
			}
			log.Infof("monitoring %s: %s", s.SourceID, s.Status)
		},
		OnAnswer: func(from string, payload json.RawMessage) {
			if rtc != nil {
				if err := rtc.HandleAnswer(payload); err != nil {
					log.Warnf("handle answer: %v", err)
				}
			}
		},
		OnICECandidate: func(from string, payload json.RawMessage) {
			if rtc != nil {
				if err := rtc.HandleICECandidate(payload); err != nil {
					log.Warnf("handle ICE candidate: %v", err)
				}
			}
		},
		OnError: func(msg string) {
			log.Warnf("push error: %s", msg)
		},
		OnClose: func(err error) {
			if err != nil {
				log.Warnf("push channel closed: %v", err)
			}
		},
	}, factory.NewLogger("push"))

	if err := client.Connect(); err != nil {
		log.Errorf("push connect: %v", err)
		os.Exit(1)
	}
	defer client.Close()
	defer func() {
		if rtc != nil {
			rtc.Close()
		}
	}()

	if grid != nil {
		// Ebitengine RunGame must be on the main goroutine (macOS requirement).
		if err := grid.Run(); err != nil {
			log.Errorf("display: %v", err)
		}
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-sigCh:
			log.Info("Shutting down...")
			return
		case <-client.Done():
			return
		case <-ticker.C:
			reportStats(rend, log)
		}
	}
}

func bind(rend *renderer.Renderer, source string, s renderer.Surface, log logging.LeveledLogger) {
	if err := rend.BindTarget(source, s); err != nil {
		log.Warnf("bind %s: %v", source, err)
	}
}

func reportStats(rend *renderer.Renderer, log logging.LeveledLogger) {
	for _, s := range rend.Sources() {
		st, ok := rend.Stats(s)
		if !ok {
			continue
		}
		log.Infof("%s: %s displayed=%d accepted=%d throttled=%d malformed=%d decode_failures=%d display_failures=%d",
			s, st.State, st.Displayed, st.Accepted, st.Throttled, st.Malformed, st.DecodeFailures, st.DisplayFailures)
	}
}
