package engine_util

/*
An engine is a low-level system for storing key/value pairs locally. This package contains code for interacting with
badger, the engine behind the standalone storage.

CF means 'column family'. In short, a column family is a key namespace. Badger has no column families of its own, so
keys are prefixed with the family name. Writes can be made atomic across column families, which cannot be done for
separate databases.

engine_util includes the following files:

* util: get and scan helpers for a single column family.
* write_batch: code to batch writes into a single, atomic badger transaction. Badger bounds the size of one
  transaction, so large writes are split over several batches by the caller.
* cf_iterator: code to iterate over a whole column family in badger.
*/
