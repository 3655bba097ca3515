package server

import (
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"github.com/pingcap/errors"
	"github.com/pmogan77/KVStore/kv/txn"
)

// maxBodySize bounds request bodies.
const maxBodySize = 4 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func readJSON(r io.ReadCloser, data interface{}) error {
	defer r.Close()

	b, err := ioutil.ReadAll(io.LimitReader(r, maxBodySize))
	if err != nil {
		return errors.WithStack(err)
	}
	err = json.Unmarshal(b, data)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// jsonValue turns a stored value back into something render can encode.
// Values written through the API are raw JSON and are echoed unchanged;
// anything else comes back as a string.
func jsonValue(v []byte) interface{} {
	if json.Valid(v) {
		return json.RawMessage(v)
	}
	return string(v)
}

// warning returns the text of a persistence warning, or "" when err is nil.
// Any other error is returned as is.
func warning(err error) (string, error) {
	if err == nil {
		return "", nil
	}
	if txn.IsPersistenceFailure(err) {
		return err.Error(), nil
	}
	return "", err
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.rd.JSON(w, status, errorResponse{Error: errors.Cause(err).Error()})
}

func pathKey(r *http.Request) (string, error) {
	key, err := url.PathUnescape(mux.Vars(r)["key"])
	return key, errors.WithStack(err)
}
