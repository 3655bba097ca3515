package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pingcap/errors"
	"github.com/pmogan77/KVStore/kv/txn"
)

// SetRequest is the body of POST /set. Value may be any JSON value.
type SetRequest struct {
	Key   *string         `json:"key"`
	Value json.RawMessage `json:"value"`
}

// KeyValue is the response of /set and /get and an element of /scan.
type KeyValue struct {
	Key     string      `json:"key"`
	Value   interface{} `json:"value"`
	Warning string      `json:"warning,omitempty"`
}

type DeleteResponse struct {
	Deleted string `json:"deleted"`
	Warning string `json:"warning,omitempty"`
}

// Set handles POST /set.
func (s *Server) Set(w http.ResponseWriter, r *http.Request) {
	var req SetRequest
	if err := readJSON(r.Body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Key == nil {
		s.writeError(w, http.StatusBadRequest, errors.New("missing key"))
		return
	}
	if len(req.Value) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("missing value"))
		return
	}

	msg, err := warning(s.store.Set(*req.Key, []byte(req.Value)))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.rd.JSON(w, http.StatusOK, KeyValue{Key: *req.Key, Value: req.Value, Warning: msg})
}

// Get handles GET /get/{key}.
func (s *Server) Get(w http.ResponseWriter, r *http.Request) {
	key, err := pathKey(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	val, err := s.store.Get(key)
	if txn.IsNotFound(err) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.rd.JSON(w, http.StatusOK, KeyValue{Key: key, Value: jsonValue(val)})
}

// Delete handles DELETE /delete/{key}. Deleting an absent key succeeds.
func (s *Server) Delete(w http.ResponseWriter, r *http.Request) {
	key, err := pathKey(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	msg, err := warning(s.store.Delete(key))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.rd.JSON(w, http.StatusOK, DeleteResponse{Deleted: key, Warning: msg})
}

// Snapshot handles GET /snapshot.
func (s *Server) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	resp := make(map[string]interface{}, len(snap))
	for k, v := range snap {
		resp[k] = jsonValue(v)
	}
	s.rd.JSON(w, http.StatusOK, resp)
}

// Scan handles GET /scan?start=&limit=.
func (s *Server) Scan(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, errors.Errorf("invalid limit %q", l))
			return
		}
		limit = n
	}
	pairs := s.store.Scan(start, limit)
	resp := make([]KeyValue, 0, len(pairs))
	for _, p := range pairs {
		resp = append(resp, KeyValue{Key: p.Key, Value: jsonValue(p.Value)})
	}
	s.rd.JSON(w, http.StatusOK, resp)
}
