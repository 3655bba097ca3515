package kvstore

/*
KVStore is an in-process key/value store with nested transactions, served over HTTP. Committed data is mirrored into a
durable engine so that a restarted server comes back with the same state.

Building KVStore produces two executables: kvstore-server and kvstore-ctl. The first serves the store, the second is a
command line client with an interactive shell.

The `kvstore` module is organized into the following packages:

* `kv/txn`: the store itself. Open transactions are a stack of frames layered over an ordered base state.
* `kv/storage`: the persistence bridge between the base state and an engine (badger, sqlite, DynamoDB or memory),
  optionally moved onto a background worker.
* `kv/server` and `kv/client`: the HTTP API and its client.
* `kv/config`: server configuration.
*/
