package txn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameSetClearsTombstone(t *testing.T) {
	f := newFrame()
	f.delete("a")
	assert.Contains(t, f.tombstones(), "a")

	f.set("a", []byte("1"))
	assert.NotContains(t, f.tombstones(), "a")
	assert.Equal(t, map[string][]byte{"a": []byte("1")}, f.writes())
}

func TestFrameDeleteClearsWrite(t *testing.T) {
	f := newFrame()
	f.set("a", []byte("1"))
	f.delete("a")

	assert.Empty(t, f.writes())
	assert.Contains(t, f.tombstones(), "a")
	assert.Equal(t, 1, f.len())
}

func TestFrameMergeOverridesParent(t *testing.T) {
	parent := newFrame()
	parent.set("a", []byte("p"))
	parent.set("b", []byte("p"))
	parent.delete("c")

	child := newFrame()
	child.delete("a")
	child.set("c", []byte("c"))
	child.set("d", []byte("c"))

	child.mergeInto(parent)

	assert.Equal(t, map[string][]byte{
		"b": []byte("p"),
		"c": []byte("c"),
		"d": []byte("c"),
	}, parent.writes())
	assert.Equal(t, map[string]struct{}{"a": {}}, parent.tombstones())
	assert.Nil(t, child.entries)
}

func TestFrameStack(t *testing.T) {
	var s frameStack
	assert.Nil(t, s.top())
	assert.Nil(t, s.pop())

	first, second := newFrame(), newFrame()
	assert.Equal(t, 1, s.push(first))
	assert.Equal(t, 2, s.push(second))
	assert.Equal(t, second, s.top())

	assert.Equal(t, second, s.pop())
	assert.Equal(t, 1, s.depth())
	assert.Equal(t, first, s.pop())
	assert.Equal(t, 0, s.depth())
}

// writes returns the keys set in this frame with their values.
func (f *frame) writes() map[string][]byte {
	res := make(map[string][]byte)
	for key, m := range f.entries {
		if m.kind == written {
			res[key] = m.value
		}
	}
	return res
}

// tombstones returns the keys deleted in this frame.
func (f *frame) tombstones() map[string]struct{} {
	res := make(map[string]struct{})
	for key, m := range f.entries {
		if m.kind == deleted {
			res[key] = struct{}{}
		}
	}
	return res
}
