package txn

// The txn package implements the store. A Store holds the committed base state in an ordered btree and a stack of
// open transactions above it. Each transaction is a frame: a map from key to its pending mutation, either a write
// or a tombstone. A key missing from a frame is untouched at that level.
//
// Reads resolve a key by walking the stack from the innermost frame outwards and falling through to the base state.
// The first frame that mentions the key decides: a write returns its value and a tombstone hides the key even if
// an outer level has it. Snapshot and Scan build the whole view the same way, folding frames from the outermost in
// over a copy-on-write clone of the base.
//
// Commit merges the innermost frame into its parent, overwriting the parent's entries key by key. When the frame is
// the last one, the merge goes into the base state and the base state is handed to the persistence bridge. Writes
// made with no transaction open go straight to the base state and are persisted at once. Rollback drops a frame and
// never touches storage.
//
// There is one stack per Store and no sessions. Every caller, including every HTTP client, nests into the same stack.
