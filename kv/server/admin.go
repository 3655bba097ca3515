package server

import (
	"net/http"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pmogan77/KVStore/kv/storage"
	"github.com/pmogan77/KVStore/kv/util/logutil"
	"go.uber.org/zap"
)

type StatusResponse struct {
	Depth     int                 `json:"depth"`
	Keys      int                 `json:"keys"`
	Engine    string              `json:"engine"`
	Closed    bool                `json:"closed"`
	Persist   *storage.AsyncStats `json:"persist,omitempty"`
	DiskBytes *uint64             `json:"disk_bytes,omitempty"`
}

type CloseResponse struct {
	Status  string `json:"status"`
	Warning string `json:"warning,omitempty"`
}

// Status handles GET /status.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Depth:  s.store.Depth(),
		Keys:   s.store.Len(),
		Engine: s.engine,
		Closed: s.Closed(),
	}
	if s.async != nil {
		stats := s.async.Stats()
		resp.Persist = &stats
	}
	if s.backend != nil {
		size, ok, err := storage.DiskSize(s.backend)
		if err != nil {
			log.Warn("read storage disk size", zap.String("engine", s.engine), zap.Error(err))
		} else if ok {
			resp.DiskBytes = &size
		}
	}
	s.rd.JSON(w, http.StatusOK, resp)
}

// CloseStore handles POST /close: the store is flushed and its storage
// stopped. The process keeps serving from memory.
func (s *Server) CloseStore(w http.ResponseWriter, r *http.Request) {
	msg, err := warning(s.Close())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	log.Info("store closed by request")
	s.rd.JSON(w, http.StatusOK, CloseResponse{Status: "store closed", Warning: msg})
}

// SetLogLevel handles POST /admin/log. The body is a JSON string.
func (s *Server) SetLogLevel(w http.ResponseWriter, r *http.Request) {
	var level string
	if err := readJSON(r.Body, &level); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if !logutil.ValidLevel(level) {
		s.writeError(w, http.StatusBadRequest, errors.Errorf("unknown log level %q", level))
		return
	}
	log.SetLevel(logutil.StringToZapLogLevel(level))
	log.Info("log level changed", zap.String("level", level))
	s.rd.JSON(w, http.StatusOK, nil)
}
