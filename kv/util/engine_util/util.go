package engine_util

import (
	"github.com/Connor1996/badger"
)

// KeyWithCF prefixes key with its column family so that several families can
// share one badger keyspace.
func KeyWithCF(cf string, key []byte) []byte {
	return append([]byte(cf+"_"), key...)
}

func GetCF(db *badger.DB, cf string, key []byte) (val []byte, err error) {
	err = db.View(func(txn *badger.Txn) error {
		val, err = GetCFFromTxn(txn, cf, key)
		return err
	})
	return
}

func GetCFFromTxn(txn *badger.Txn, cf string, key []byte) (val []byte, err error) {
	item, err := txn.Get(KeyWithCF(cf, key))
	if err != nil {
		return nil, err
	}
	val, err = item.ValueCopy(val)
	return
}

// ScanCF calls fn for every key of cf in key order until fn returns false.
// The key and value passed to fn are copies.
func ScanCF(db *badger.DB, cf string, fn func(key, val []byte) bool) error {
	return db.View(func(txn *badger.Txn) error {
		it := NewCFIterator(cf, txn)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !fn(item.KeyCopy(nil), val) {
				return nil
			}
		}
		return nil
	})
}
