package ranking

import (
	"encoding/binary"
	"slices"
	"strings"

	xxhash "github.com/cespare/xxhash/v2"
)

// GroupKey is the ordered tuple of dimension values identifying one partition.
// Equality is exact and value-based.
type GroupKey []string

// Equal reports whether two keys hold the same values in the same order
func (k GroupKey) Equal(other GroupKey) bool {
	return slices.Equal(k, other)
}

// Compare orders keys lexicographically, element by element
func (k GroupKey) Compare(other GroupKey) int {
	return slices.Compare(k, other)
}

// String renders the key for logs
func (k GroupKey) String() string {
	return "(" + strings.Join(k, ", ") + ")"
}

// hashKey hashes a key tuple with xxhash. Every part is length-prefixed so
// ("a|b", "c") and ("a", "b|c") never share an input stream.
func hashKey(key GroupKey) uint64 {
	d := xxhash.New()
	var lenBuf [8]byte
	for _, part := range key {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(part)))
		_, _ = d.Write(lenBuf[:])
		_, _ = d.WriteString(part)
	}
	return d.Sum64()
}

// keyIndex maps group keys to slot positions. Buckets are keyed by the xxhash
// of the tuple and resolved by exact comparison, so collisions never merge groups.
type keyIndex struct {
	buckets map[uint64][]int
	keys    []GroupKey
}

func newKeyIndex(estimatedSize int) *keyIndex {
	return &keyIndex{
		buckets: make(map[uint64][]int, estimatedSize),
		keys:    make([]GroupKey, 0, estimatedSize),
	}
}

// find returns the slot of key, if present
func (ki *keyIndex) find(key GroupKey) (int, bool) {
	for _, slot := range ki.buckets[hashKey(key)] {
		if ki.keys[slot].Equal(key) {
			return slot, true
		}
	}
	return 0, false
}

// insert returns the slot for key, allocating a new one when absent.
// The key is copied on allocation so callers may reuse their buffer.
func (ki *keyIndex) insert(key GroupKey) (slot int, created bool) {
	h := hashKey(key)
	for _, s := range ki.buckets[h] {
		if ki.keys[s].Equal(key) {
			return s, false
		}
	}
	slot = len(ki.keys)
	ki.keys = append(ki.keys, slices.Clone(key))
	ki.buckets[h] = append(ki.buckets[h], slot)
	return slot, true
}

func (ki *keyIndex) len() int {
	return len(ki.keys)
}
