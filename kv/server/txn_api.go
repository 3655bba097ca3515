package server

import (
	"net/http"

	"github.com/pmogan77/KVStore/kv/txn"
)

type TxnResponse struct {
	Status  string `json:"status"`
	Depth   int    `json:"depth"`
	Warning string `json:"warning,omitempty"`
}

// Begin handles POST /begin.
func (s *Server) Begin(w http.ResponseWriter, r *http.Request) {
	depth := s.store.Begin()
	s.rd.JSON(w, http.StatusOK, TxnResponse{Status: "transaction started", Depth: depth})
}

// Commit handles POST /commit. It answers 409 when no transaction is open.
func (s *Server) Commit(w http.ResponseWriter, r *http.Request) {
	depth, err := s.store.Commit()
	if txn.IsNoActiveTransaction(err) {
		s.writeError(w, http.StatusConflict, err)
		return
	}
	msg, err := warning(err)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.rd.JSON(w, http.StatusOK, TxnResponse{Status: "committed", Depth: depth, Warning: msg})
}

// Rollback handles POST /rollback. It answers 409 when no transaction is open.
func (s *Server) Rollback(w http.ResponseWriter, r *http.Request) {
	depth, err := s.store.Rollback()
	if txn.IsNoActiveTransaction(err) {
		s.writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.rd.JSON(w, http.StatusOK, TxnResponse{Status: "rolled back", Depth: depth})
}
