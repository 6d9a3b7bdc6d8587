package apiserver

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/pion/logging"
)

// printLogger adapts a leveled logger to chi's request logger.
type printLogger struct {
	log logging.LeveledLogger
}

func (p printLogger) Print(v ...interface{}) {
	p.log.Info(fmt.Sprint(v...))
}

func loggerMiddleware(log logging.LeveledLogger) func(next http.Handler) http.Handler {
	return middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: printLogger{log}, NoColor: true})
}
