package btree

import (
	"bytes"
	"encoding/binary"
)

// KeySerializer writes fixed width keys into page buffers. It is chosen once when
// the tree is constructed; every page operation of that tree uses the same one.
type KeySerializer[K any] interface {
	Serialize(dest []byte, key K)
	Deserialize(src []byte) K
	Size() int
}

// Comparator orders keys. Negative when a < b, zero when equal, positive when
// a > b.
type Comparator[K any] func(a, b K) int

type Int64KeySerializer struct{}

func (Int64KeySerializer) Serialize(dest []byte, key int64) {
	binary.BigEndian.PutUint64(dest, uint64(key))
}

func (Int64KeySerializer) Deserialize(src []byte) int64 {
	return int64(binary.BigEndian.Uint64(src))
}

func (Int64KeySerializer) Size() int {
	return 8
}

func Int64Comparator(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// StringKeySerializer stores keys as fixed width byte arrays, zero padded.
// Longer keys are truncated to Len.
type StringKeySerializer struct {
	Len int
}

func (s StringKeySerializer) Serialize(dest []byte, key string) {
	n := copy(dest[:s.Len], key)
	for i := n; i < s.Len; i++ {
		dest[i] = 0
	}
}

func (s StringKeySerializer) Deserialize(src []byte) string {
	b := src[:s.Len]
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func (s StringKeySerializer) Size() int {
	return s.Len
}

func StringComparator(a, b string) int {
	return bytes.Compare([]byte(a), []byte(b))
}
