package txn

// resolve returns the value visible for key. Frames are scanned from the
// innermost to the outermost and the first frame that mentions the key decides;
// when no frame mentions it the base store answers.
func resolve(stack frameStack, base *baseStore, key string) ([]byte, bool) {
	for i := len(stack) - 1; i >= 0; i-- {
		m, ok := stack[i].lookup(key)
		if !ok {
			continue
		}
		if m.kind == deleted {
			return nil, false
		}
		return m.value, true
	}
	return base.get(key)
}

// resolveAll folds every frame, outermost first, onto a copy of the base store.
// The result is the full view a reader at the innermost level sees. Neither
// the stack nor base is modified.
func resolveAll(stack frameStack, base *baseStore) *baseStore {
	view := base.clone()
	for _, f := range stack {
		view.apply(f)
	}
	return view
}
