package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIterator_Should_Visit_Keys_In_Order(t *testing.T) {
	tree, _, done := newTestTree(t, "tmp_it1.marmot", 16, 4, 4)
	defer done()

	for i := int64(99); i >= 0; i-- {
		require.True(t, tree.Insert(i, rid(i), nil))
	}

	it := tree.Begin()
	for i := int64(0); i < 100; i++ {
		require.False(t, it.IsEnd())
		assert.Equal(t, i, it.Key())
		assert.Equal(t, rid(i), it.Value())
		it.Next()
	}
	assert.True(t, it.IsEnd())
}

func TestIterator_BeginAt_Should_Seek_To_Lower_Bound(t *testing.T) {
	tree, _, done := newTestTree(t, "tmp_it2.marmot", 16, 4, 4)
	defer done()

	// even keys only
	for i := int64(0); i < 100; i += 2 {
		require.True(t, tree.Insert(i, rid(i), nil))
	}

	// exact hit
	it := tree.BeginAt(40)
	require.False(t, it.IsEnd())
	assert.Equal(t, int64(40), it.Key())
	it.Close()

	// absent key lands on the next larger one
	it = tree.BeginAt(41)
	require.False(t, it.IsEnd())
	assert.Equal(t, int64(42), it.Key())
	it.Close()

	// beyond the maximum key means end
	assert.True(t, tree.BeginAt(1000).IsEnd())
}

func TestIterator_On_Empty_Tree_Should_Be_End(t *testing.T) {
	tree, _, done := newTestTree(t, "tmp_it3.marmot", 16, 4, 4)
	defer done()

	assert.True(t, tree.Begin().IsEnd())
	assert.True(t, tree.BeginAt(5).IsEnd())
	assert.True(t, tree.End().IsEnd())
}

func TestIterator_Close_Should_Release_The_Leaf(t *testing.T) {
	tree, pool, done := newTestTree(t, "tmp_it4.marmot", 16, 4, 4)
	defer done()

	for i := int64(0); i < 10; i++ {
		require.True(t, tree.Insert(i, rid(i), nil))
	}

	it := tree.BeginAt(3)
	require.False(t, it.IsEnd())
	it.Close()

	// all pins are gone, so every resident page can be flushed and evicted
	pool.FlushAllPages()
	for i := 0; i < pool.PoolSize(); i++ {
		_, err := pool.NewPage()
		require.NoError(t, err)
	}
}
