package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pingcap/log"
	"github.com/urfave/negroni"
	"go.uber.org/zap"
)

// RequestIDHeader carries the id of a request in both directions.
const RequestIDHeader = "X-Request-Id"

// requestID tags every request with an id, reusing the caller's when given.
func requestID(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.New().String()
		r.Header.Set(RequestIDHeader, id)
	}
	w.Header().Set(RequestIDHeader, id)
	next(w, r)
}

// accessLog writes one log line per request and feeds the HTTP metrics.
type accessLog struct {
	router *mux.Router
}

func (l *accessLog) ServeHTTP(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	start := time.Now()
	route := l.routeName(r)
	next(w, r)
	res := w.(negroni.ResponseWriter)
	elapsed := time.Since(start)

	requestCounter.WithLabelValues(r.Method, route, strconv.Itoa(res.Status())).Inc()
	requestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
	log.Info("http request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", res.Status()),
		zap.Int("size", res.Size()),
		zap.Duration("duration", elapsed),
		zap.String("request-id", r.Header.Get(RequestIDHeader)))
}

// routeName keeps metric labels bounded: keys in the path are not labels.
func (l *accessLog) routeName(r *http.Request) string {
	var match mux.RouteMatch
	if l.router.Match(r, &match) && match.Route != nil {
		if tpl, err := match.Route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
