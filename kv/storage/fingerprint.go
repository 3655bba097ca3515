package storage

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes a snapshot independently of map iteration order. Equal
// snapshots always share a fingerprint.
func Fingerprint(snapshot map[string][]byte) uint64 {
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := xxhash.New()
	var lenBuf [binary.MaxVarintLen64]byte
	for _, k := range keys {
		v := snapshot[k]
		// Length prefixes keep ("ab","c") and ("a","bc") apart.
		n := binary.PutUvarint(lenBuf[:], uint64(len(k)))
		d.Write(lenBuf[:n])
		d.WriteString(k)
		n = binary.PutUvarint(lenBuf[:], uint64(len(v)))
		d.Write(lenBuf[:n])
		d.Write(v)
	}
	return d.Sum64()
}
