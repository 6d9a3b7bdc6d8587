package apiserver

import (
	"context"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pion/logging"

	camlog "github.com/junsooki/camfeed/internal/logging"
)

// Hub is the push channel endpoint mounted at /ws.
type Hub interface {
	http.Handler
	Viewers
}

type WebServer struct {
	router *chi.Mux
	server *http.Server
	log    logging.LeveledLogger
}

// NewWebServer builds the feed's HTTP server: the push hub at /ws and the
// monitoring API under /api.
func NewWebServer(addr string, hub Hub, m Monitor, log logging.LeveledLogger) *WebServer {
	if log == nil {
		log = camlog.Discard("api")
	}
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(loggerMiddleware(log))
	router.Use(middleware.Recoverer)

	router.Handle("/ws", hub)
	newMonitoringRouter(router, m, hub, log).Routes()

	return &WebServer{
		router: router,
		server: &http.Server{Addr: addr, Handler: router},
		log:    log,
	}
}

// Handler exposes the router.
func (a *WebServer) Handler() http.Handler {
	return a.router
}

// Start serves until ctx is cancelled.
func (a *WebServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return err
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (a *WebServer) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		if err := a.Stop(); err != nil {
			a.log.Warnf("Error stopping web server: %v", err)
		}
	}()

	a.log.Infof("Starting web server on %s", ln.Addr())
	if err := a.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *WebServer) Stop() error {
	a.log.Info("Stopping web server")
	return a.server.Shutdown(context.Background())
}
