package txn

type mutationKind uint8

const (
	// written means the key was set inside the frame.
	written mutationKind = iota + 1
	// deleted means the key was deleted inside the frame (a tombstone).
	deleted
)

// mutation is the state a frame records for one key. A key the frame has no
// mutation for is unset in that frame, and resolution falls through to the
// frame below.
type mutation struct {
	kind  mutationKind
	value []byte
}

// frame holds the pending writes and tombstones of one open transaction level.
// Because a key maps to exactly one mutation, a key can never be both written
// and deleted in the same frame.
type frame struct {
	entries map[string]mutation
}

func newFrame() *frame {
	return &frame{entries: make(map[string]mutation)}
}

func (f *frame) set(key string, value []byte) {
	f.entries[key] = mutation{kind: written, value: value}
}

func (f *frame) delete(key string) {
	f.entries[key] = mutation{kind: deleted}
}

func (f *frame) lookup(key string) (mutation, bool) {
	m, ok := f.entries[key]
	return m, ok
}

// mergeInto moves every entry of f into parent, overriding parent's entries for
// the same keys. f is empty afterwards and must not be reused.
func (f *frame) mergeInto(parent *frame) {
	for key, m := range f.entries {
		parent.entries[key] = m
	}
	f.entries = nil
}

func (f *frame) len() int {
	return len(f.entries)
}

// frameStack is the sequence of open frames: index 0 is the outermost
// transaction, the last element the innermost.
type frameStack []*frame

func (s *frameStack) push(f *frame) int {
	*s = append(*s, f)
	return len(*s)
}

func (s *frameStack) pop() *frame {
	old := *s
	n := len(old)
	if n == 0 {
		return nil
	}
	f := old[n-1]
	old[n-1] = nil
	*s = old[:n-1]
	return f
}

func (s frameStack) top() *frame {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

func (s frameStack) depth() int {
	return len(s)
}
