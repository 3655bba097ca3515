package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/negroni"
)

func (s *Server) createRouter() *mux.Router {
	// Keys may contain escaped slashes.
	router := mux.NewRouter().UseEncodedPath()

	router.HandleFunc("/set", s.Set).Methods("POST")
	router.HandleFunc("/get/{key}", s.Get).Methods("GET")
	router.HandleFunc("/delete/{key}", s.Delete).Methods("DELETE")
	router.HandleFunc("/snapshot", s.Snapshot).Methods("GET")
	router.HandleFunc("/scan", s.Scan).Methods("GET")

	router.HandleFunc("/begin", s.Begin).Methods("POST")
	router.HandleFunc("/commit", s.Commit).Methods("POST")
	router.HandleFunc("/rollback", s.Rollback).Methods("POST")
	router.HandleFunc("/close", s.CloseStore).Methods("POST")

	router.HandleFunc("/status", s.Status).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/admin/log", s.SetLogLevel).Methods("POST")
	return router
}

// Handler returns the full API: routes wrapped in panic recovery, request ids
// and access logging.
func (s *Server) Handler() http.Handler {
	router := s.createRouter()
	recovery := negroni.NewRecovery()
	recovery.PrintStack = false
	n := negroni.New(recovery, negroni.HandlerFunc(requestID), &accessLog{router: router})
	n.UseHandler(router)
	return n
}

// StatusHandler serves /status and /metrics for the status listener.
func (s *Server) StatusHandler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/status", s.Status).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	return router
}
