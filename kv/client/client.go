package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pingcap/errors"
	"github.com/pmogan77/KVStore/kv/server"
)

var (
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = errors.New("key not found")
	// ErrNoActiveTransaction is returned by Commit and Rollback when no
	// transaction is open on the server.
	ErrNoActiveTransaction = errors.New("no active transaction")
)

// StatusError is an unexpected HTTP answer.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Code, e.Message)
}

// KeyValue is a pair as returned by the server. Value holds raw JSON.
type KeyValue struct {
	Key     string          `json:"key"`
	Value   json.RawMessage `json:"value"`
	Warning string          `json:"warning,omitempty"`
}

// Client talks to a kvstore server over HTTP.
type Client struct {
	addr string
	hc   *http.Client
}

// NewClient returns a client for the server at addr. A missing scheme means http.
func NewClient(addr string) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &Client{
		addr: strings.TrimRight(addr, "/"),
		hc:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Set(ctx context.Context, key string, value json.RawMessage) (string, error) {
	body, err := json.Marshal(server.SetRequest{Key: &key, Value: value})
	if err != nil {
		return "", errors.WithStack(err)
	}
	var resp KeyValue
	if err := c.do(ctx, "POST", "/set", body, &resp); err != nil {
		return "", err
	}
	return resp.Warning, nil
}

func (c *Client) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var resp KeyValue
	if err := c.do(ctx, "GET", "/get/"+url.PathEscape(key), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func (c *Client) Delete(ctx context.Context, key string) (string, error) {
	var resp server.DeleteResponse
	if err := c.do(ctx, "DELETE", "/delete/"+url.PathEscape(key), nil, &resp); err != nil {
		return "", err
	}
	return resp.Warning, nil
}

func (c *Client) Snapshot(ctx context.Context) (map[string]json.RawMessage, error) {
	resp := make(map[string]json.RawMessage)
	if err := c.do(ctx, "GET", "/snapshot", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Scan returns up to limit pairs starting at start. A limit of 0 means all.
func (c *Client) Scan(ctx context.Context, start string, limit int) ([]KeyValue, error) {
	q := url.Values{}
	if start != "" {
		q.Set("start", start)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/scan"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp []KeyValue
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Begin(ctx context.Context) (server.TxnResponse, error) {
	var resp server.TxnResponse
	err := c.do(ctx, "POST", "/begin", nil, &resp)
	return resp, err
}

func (c *Client) Commit(ctx context.Context) (server.TxnResponse, error) {
	var resp server.TxnResponse
	err := c.do(ctx, "POST", "/commit", nil, &resp)
	return resp, err
}

func (c *Client) Rollback(ctx context.Context) (server.TxnResponse, error) {
	var resp server.TxnResponse
	err := c.do(ctx, "POST", "/rollback", nil, &resp)
	return resp, err
}

func (c *Client) Status(ctx context.Context) (server.StatusResponse, error) {
	var resp server.StatusResponse
	err := c.do(ctx, "GET", "/status", nil, &resp)
	return resp, err
}

// CloseStore asks the server to flush and close its store.
func (c *Client) CloseStore(ctx context.Context) (server.CloseResponse, error) {
	var resp server.CloseResponse
	err := c.do(ctx, "POST", "/close", nil, &resp)
	return resp, err
}

func (c *Client) SetLogLevel(ctx context.Context, level string) error {
	body, err := json.Marshal(level)
	if err != nil {
		return errors.WithStack(err)
	}
	return c.do(ctx, "POST", "/admin/log", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.addr+path, bytes.NewReader(body))
	if err != nil {
		return errors.WithStack(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return errors.Annotatef(err, "%s %s", method, path)
	}
	defer resp.Body.Close()
	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.WithStack(err)
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		json.Unmarshal(data, &e)
		switch {
		case resp.StatusCode == http.StatusNotFound && e.Error == ErrNotFound.Error():
			return ErrNotFound
		case resp.StatusCode == http.StatusConflict:
			return ErrNoActiveTransaction
		}
		msg := e.Error
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return errors.WithStack(json.Unmarshal(data, out))
}
