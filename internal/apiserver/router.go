package apiserver

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pion/logging"
	"github.com/pkg/errors"

	"github.com/junsooki/camfeed/internal/monitor"
)

// Monitor is the feed state the API drives.
type Monitor interface {
	Sources() []string
	Active() []string
	Monitoring() bool
	Start(source string) error
	Stop(source string)
}

// Viewers reports connected viewers.
type Viewers interface {
	Viewers() []string
}

type monitoringRouter struct {
	r       chi.Router
	monitor Monitor
	viewers Viewers
	log     logging.LeveledLogger
}

func newMonitoringRouter(router chi.Router, m Monitor, v Viewers, log logging.LeveledLogger) *monitoringRouter {
	return &monitoringRouter{
		r:       router,
		monitor: m,
		viewers: v,
		log:     log,
	}
}

func (router *monitoringRouter) Routes() {
	router.r.Route("/api", func(r chi.Router) {
		r.Use(contentTypeJSON)
		r.Get("/cameras", router.getCameras())
		r.Route("/monitoring", func(r chi.Router) {
			r.Post("/start", router.startMonitoring())
			r.Post("/stop", router.stopMonitoring())
			r.Get("/status", router.getStatus())
		})
	})
}

func (router *monitoringRouter) getCameras() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active := make(map[string]bool)
		for _, s := range router.monitor.Active() {
			active[s] = true
		}
		list := CameraList{Cameras: []Camera{}}
		for _, s := range router.monitor.Sources() {
			list.Cameras = append(list.Cameras, Camera{ID: s, Name: "Camera " + s, Active: active[s]})
		}
		router.writeJSON(w, list)
	}
}

func (router *monitoringRouter) startMonitoring() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartRequest
		if err := decodeBody(r, &req); err != nil {
			router.handleErrors(w, err)
			return
		}
		if err := router.monitor.Start(string(req.CameraID)); err != nil {
			if errors.Is(err, monitor.ErrUnknownSource) {
				router.handleErrors(w, err)
				return
			}
			router.log.Errorf("start monitoring %q: %v", req.CameraID, err)
			w.WriteHeader(http.StatusInternalServerError)
			router.writeJSON(w, Result{Success: false, Error: err.Error()})
			return
		}
		router.writeJSON(w, Result{Success: true})
	}
}

func (router *monitoringRouter) stopMonitoring() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StopRequest
		if err := decodeBody(r, &req); err != nil {
			router.handleErrors(w, err)
			return
		}
		router.monitor.Stop(string(req.CameraID))
		router.writeJSON(w, Result{Success: true})
	}
}

func (router *monitoringRouter) getStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		router.writeJSON(w, Status{
			Monitoring: router.monitor.Monitoring(),
			Sources:    router.monitor.Active(),
			Viewers:    len(router.viewers.Viewers()),
		})
	}
}

func (router *monitoringRouter) writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		router.handleErrors(w, err)
	}
}

var errBadRequest = errors.New(http.StatusText(http.StatusBadRequest))

// decodeBody decodes an optional JSON body.
func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || err == io.EOF {
		return nil
	}
	return errors.Wrap(errBadRequest, err.Error())
}

func JSONError(w http.ResponseWriter, msg string, code int) {
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{msg}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (router *monitoringRouter) handleErrors(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBadRequest):
		router.log.Warnf("bad request: %v", err)
		JSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, monitor.ErrUnknownSource):
		JSONError(w, err.Error(), http.StatusNotFound)
	default:
		router.log.Errorf("fatal: %+v", err)
		JSONError(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
