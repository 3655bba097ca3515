package engine_util

import (
	"github.com/Connor1996/badger"
)

// CFItem is a badger item seen without its column family prefix.
type CFItem struct {
	item      *badger.Item
	prefixLen int
}

// KeyCopy returns a copy of the key of the item, writing it to dst slice.
// If nil is passed, or capacity of dst isn't sufficient, a new slice would be allocated and
// returned.
func (i *CFItem) KeyCopy(dst []byte) []byte {
	return i.item.KeyCopy(dst)[i.prefixLen:]
}

func (i *CFItem) ValueCopy(dst []byte) ([]byte, error) {
	return i.item.ValueCopy(dst)
}

// BadgerIterator walks the keys of one column family.
type BadgerIterator struct {
	iter   *badger.Iterator
	prefix string
}

func NewCFIterator(cf string, txn *badger.Txn) *BadgerIterator {
	return &BadgerIterator{
		iter:   txn.NewIterator(badger.DefaultIteratorOptions),
		prefix: cf + "_",
	}
}

func (it *BadgerIterator) Item() *CFItem {
	return &CFItem{
		item:      it.iter.Item(),
		prefixLen: len(it.prefix),
	}
}

// Valid returns false when iteration is done. Always check it after a Next.
func (it *BadgerIterator) Valid() bool { return it.iter.ValidForPrefix([]byte(it.prefix)) }

func (it *BadgerIterator) Close() {
	it.iter.Close()
}

func (it *BadgerIterator) Next() {
	it.iter.Next()
}

// Seek moves to key, or to the next larger key of the column family when key
// is absent.
func (it *BadgerIterator) Seek(key []byte) {
	it.iter.Seek(KeyWithCF(it.prefix[:len(it.prefix)-1], key))
}

// Rewind positions the iterator at the first key of the column family.
func (it *BadgerIterator) Rewind() {
	it.Seek(nil)
}
