package main

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/pmogan77/KVStore/kv/server"
	"github.com/pmogan77/KVStore/kv/storage"
	"github.com/pmogan77/KVStore/kv/txn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAddr(t *testing.T) string {
	store, err := txn.NewStore(storage.NewMemStorage(), nil)
	require.Nil(t, err)
	ts := httptest.NewServer(server.NewServer(store, "memory", nil).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func execute(t *testing.T, addr string, args ...string) (string, error) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOutput(&out)
	root.SetArgs(append([]string{"--addr", addr}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	addr := newTestAddr(t)

	out, err := execute(t, addr, "set", "a", "hello")
	require.Nil(t, err)
	assert.Equal(t, "a = \"hello\"\n", out)

	out, err = execute(t, addr, "set", "b", `{"n":1}`)
	require.Nil(t, err)
	assert.Equal(t, "b = {\"n\":1}\n", out)

	out, err = execute(t, addr, "get", "a")
	require.Nil(t, err)
	assert.Equal(t, "\"hello\"\n", out)

	out, err = execute(t, addr, "begin")
	require.Nil(t, err)
	assert.Equal(t, "transaction started, depth 1\n", out)
	_, err = execute(t, addr, "delete", "a")
	require.Nil(t, err)
	out, err = execute(t, addr, "get", "a")
	require.Nil(t, err)
	assert.Equal(t, "a not found\n", out)
	out, err = execute(t, addr, "rollback")
	require.Nil(t, err)
	assert.Equal(t, "rolled back, depth 0\n", out)

	out, err = execute(t, addr, "scan", "a", "1")
	require.Nil(t, err)
	assert.Equal(t, "a = \"hello\"\n", out)

	out, err = execute(t, addr, "snapshot")
	require.Nil(t, err)
	assert.Contains(t, out, `"a": "hello"`)

	out, err = execute(t, addr, "status")
	require.Nil(t, err)
	assert.Contains(t, out, `"keys": 2`)

	_, err = execute(t, addr, "commit")
	require.NotNil(t, err)
	_, err = execute(t, addr, "scan", "a", "x")
	require.NotNil(t, err)
	_, err = execute(t, addr, "get")
	require.NotNil(t, err)
}

func TestShellCommand(t *testing.T) {
	c := &ctl{addr: newTestAddr(t), timeout: defaultTimeout}
	var out bytes.Buffer

	runShellCommand(c, &out, `set k '{"x": [1, 2]}'`)
	assert.Equal(t, "k = {\"x\": [1, 2]}\n", out.String())

	out.Reset()
	runShellCommand(c, &out, "get k")
	assert.Contains(t, out.String(), `"x"`)

	out.Reset()
	runShellCommand(c, &out, "commit")
	assert.Equal(t, "error: no active transaction\n", out.String())

	out.Reset()
	runShellCommand(c, &out, `set 'unterminated`)
	assert.Contains(t, out.String(), "parse")

	out.Reset()
	runShellCommand(c, &out, "frobnicate")
	assert.Contains(t, out.String(), "error:")
}

func TestParseValue(t *testing.T) {
	v, err := parseValue("42")
	require.Nil(t, err)
	assert.Equal(t, "42", string(v))
	v, err = parseValue("plain text")
	require.Nil(t, err)
	assert.Equal(t, `"plain text"`, string(v))
}
