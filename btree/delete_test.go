package btree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marmot/common"
)

func TestBtree_Delete_Absent_Key_Should_Be_Noop(t *testing.T) {
	tree, _, done := newTestTree(t, "tmp_del1.marmot", 16, 4, 4)
	defer done()

	// on an empty tree
	tree.Remove(7, nil)

	for i := int64(0); i < 20; i++ {
		require.True(t, tree.Insert(i, rid(i), nil))
	}
	tree.Remove(1000, nil)

	for i := int64(0); i < 20; i++ {
		require.True(t, tree.GetValue(i, nil, nil))
	}
}

func TestBtree_Delete_Then_Get_Should_Return_Absence(t *testing.T) {
	tree, _, done := newTestTree(t, "tmp_del2.marmot", 16, 4, 4)
	defer done()

	for i := int64(0); i < 100; i++ {
		require.True(t, tree.Insert(i, rid(i), nil))
	}

	for i := int64(0); i < 100; i += 2 {
		tree.Remove(i, nil)
	}

	for i := int64(0); i < 100; i++ {
		found := tree.GetValue(i, nil, nil)
		if i%2 == 0 {
			assert.False(t, found, "deleted key %d resurfaced", i)
		} else {
			assert.True(t, found, "key %d went missing", i)
		}
	}
}

func TestBtree_Coalesce_Should_Shrink_Tree_Height(t *testing.T) {
	tree, _, done := newTestTree(t, "tmp_del3.marmot", 16, 3, 3)
	defer done()

	for i := int64(1); i <= 7; i++ {
		require.True(t, tree.Insert(i, rid(i), nil))
	}
	require.Equal(t, 3, treeHeight(tree))

	remaining := map[int64]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true}
	for _, k := range []int64{1, 2, 3, 4} {
		tree.Remove(k, nil)
		delete(remaining, k)

		for i := int64(1); i <= 7; i++ {
			assert.Equal(t, remaining[i], tree.GetValue(i, nil, nil), "after deleting up to %d, key %d", k, i)
		}
	}

	// merging cascaded into the root, the surviving child took over
	assert.Equal(t, 2, treeHeight(tree))
	assert.Equal(t, []int64{5, 6, 7}, collectKeys(tree.Begin()))
}

func TestBtree_Deleting_Everything_Should_Empty_The_Tree(t *testing.T) {
	tree, _, done := newTestTree(t, "tmp_del4.marmot", 16, 4, 4)
	defer done()

	for i := int64(0); i < 50; i++ {
		require.True(t, tree.Insert(i, rid(i), nil))
	}

	order := rand.Perm(50)
	for _, k := range order {
		tree.Remove(int64(k), nil)
	}

	assert.True(t, tree.IsEmpty())
	assert.Equal(t, common.InvalidPageID, tree.GetRootPageId())
	assert.True(t, tree.Begin().IsEnd())

	// the tree is usable again afterwards
	require.True(t, tree.Insert(3, rid(3), nil))
	require.True(t, tree.GetValue(3, nil, nil))
}

func TestBtree_Random_Churn_Should_Keep_The_Tree_Consistent(t *testing.T) {
	tree, _, done := newTestTree(t, "tmp_del5.marmot", 32, 4, 4)
	defer done()

	alive := map[int64]bool{}
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		k := int64(r.Intn(300))
		if alive[k] {
			tree.Remove(k, nil)
			delete(alive, k)
		} else {
			require.True(t, tree.Insert(k, rid(k), nil))
			alive[k] = true
		}
	}

	count := 0
	for k := int64(0); k < 300; k++ {
		found := tree.GetValue(k, nil, nil)
		assert.Equal(t, alive[k], found, "key %d", k)
		if found {
			count++
		}
	}

	collected := collectKeys(tree.Begin())
	assert.Len(t, collected, count)
	for i := 1; i < len(collected); i++ {
		assert.Less(t, collected[i-1], collected[i])
	}
}
