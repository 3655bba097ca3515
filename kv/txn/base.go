package txn

import (
	"github.com/google/btree"
)

const baseDegree = 32

type kvItem struct {
	key   string
	value []byte
}

var _ btree.Item = kvItem{}

func (i kvItem) Less(than btree.Item) bool {
	return i.key < than.(kvItem).key
}

// KvPair is a key with its resolved value.
type KvPair struct {
	Key   string
	Value []byte
}

// baseStore is the committed state beneath the frame stack, ordered by key.
type baseStore struct {
	tree *btree.BTree
}

func newBaseStore() *baseStore {
	return &baseStore{tree: btree.New(baseDegree)}
}

func (b *baseStore) get(key string) ([]byte, bool) {
	item := b.tree.Get(kvItem{key: key})
	if item == nil {
		return nil, false
	}
	return item.(kvItem).value, true
}

func (b *baseStore) put(key string, value []byte) {
	b.tree.ReplaceOrInsert(kvItem{key: key, value: value})
}

func (b *baseStore) remove(key string) {
	b.tree.Delete(kvItem{key: key})
}

// apply folds a frame onto the store: writes overwrite, tombstones remove.
func (b *baseStore) apply(f *frame) {
	for key, m := range f.entries {
		switch m.kind {
		case written:
			b.put(key, m.value)
		case deleted:
			b.remove(key)
		}
	}
}

// clone returns a lazily copied store; later writes to either side are not
// visible to the other.
func (b *baseStore) clone() *baseStore {
	return &baseStore{tree: b.tree.Clone()}
}

func (b *baseStore) len() int {
	return b.tree.Len()
}

// toMap copies the store into a map. Values are copied too.
func (b *baseStore) toMap() map[string][]byte {
	res := make(map[string][]byte, b.tree.Len())
	b.tree.Ascend(func(i btree.Item) bool {
		item := i.(kvItem)
		res[item.key] = cloneValue(item.value)
		return true
	})
	return res
}

// scan returns up to limit pairs with key >= startKey in key order. A limit
// <= 0 returns every remaining pair.
func (b *baseStore) scan(startKey string, limit int) []KvPair {
	var pairs []KvPair
	b.tree.AscendGreaterOrEqual(kvItem{key: startKey}, func(i btree.Item) bool {
		item := i.(kvItem)
		pairs = append(pairs, KvPair{Key: item.key, Value: cloneValue(item.value)})
		return limit <= 0 || len(pairs) < limit
	})
	return pairs
}

// cloneValue copies v. Stored values never alias a caller's buffer. A nil
// value stays nil and an empty one stays empty.
func cloneValue(v []byte) []byte {
	if v == nil {
		return nil
	}
	return append(make([]byte, 0, len(v)), v...)
}
