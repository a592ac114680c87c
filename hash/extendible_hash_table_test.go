package hash

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_Table_Should_Find_What_Is_Inserted(t *testing.T) {
	h := NewExtendibleHashTable[int, string](4, IntHasher[int])

	for i := 0; i < 100; i++ {
		h.Insert(i, strconv.Itoa(i))
	}

	for i := 0; i < 100; i++ {
		v, ok := h.Find(i)
		require.True(t, ok)
		assert.Equal(t, strconv.Itoa(i), v)
	}

	_, ok := h.Find(100)
	assert.False(t, ok)
}

func TestHash_Table_Insert_Should_Overwrite_Same_Key(t *testing.T) {
	h := NewExtendibleHashTable[int, string](2, IntHasher[int])

	h.Insert(1, "a")
	h.Insert(1, "b")

	v, ok := h.Find(1)
	require.True(t, ok)
	assert.Equal(t, "b", v)
	assert.Equal(t, 1, h.GetNumBuckets())
}

func TestHash_Table_Should_Split_On_Overflow(t *testing.T) {
	h := NewExtendibleHashTable[int, string](2, IntHasher[int])

	// 0 and 4 share every low bit up to depth 2, 8 forces two consecutive splits
	h.Insert(0, "a")
	h.Insert(4, "b")
	assert.Equal(t, 0, h.GetGlobalDepth())

	h.Insert(8, "c")

	assert.Equal(t, 2, h.GetGlobalDepth())
	assert.Equal(t, 3, h.GetNumBuckets())

	for _, k := range []int{0, 4, 8} {
		_, ok := h.Find(k)
		assert.True(t, ok, "key %d should survive the split", k)
	}

	// slot 0 holds {0, 8} at local depth 2, slot 1 aliases the untouched sibling
	assert.Equal(t, 2, h.GetLocalDepth(0))
	assert.Equal(t, 1, h.GetLocalDepth(1))
	assert.Equal(t, 2, h.GetLocalDepth(2))
}

func TestHash_Table_Should_Remove(t *testing.T) {
	h := NewExtendibleHashTable[int, int](4, IntHasher[int])

	for i := 0; i < 16; i++ {
		h.Insert(i, i*10)
	}

	assert.True(t, h.Remove(7))
	assert.False(t, h.Remove(7))

	_, ok := h.Find(7)
	assert.False(t, ok)

	for i := 0; i < 16; i++ {
		if i == 7 {
			continue
		}
		v, ok := h.Find(i)
		require.True(t, ok)
		assert.Equal(t, i*10, v)
	}
}

func TestHash_Table_Directory_Slots_Should_Alias_While_Shallow(t *testing.T) {
	h := NewExtendibleHashTable[int, int](2, IntHasher[int])

	// grow the directory with keys that only differ in low bits
	for _, k := range []int{0, 1, 2, 3, 4, 5, 6, 7} {
		h.Insert(k, k)
	}

	gd := h.GetGlobalDepth()
	require.GreaterOrEqual(t, gd, 2)
	for i := 0; i < 1<<gd; i++ {
		assert.LessOrEqual(t, h.GetLocalDepth(i), gd)
	}

	for k := 0; k < 8; k++ {
		v, ok := h.Find(k)
		require.True(t, ok)
		assert.Equal(t, k, v)
	}
}
