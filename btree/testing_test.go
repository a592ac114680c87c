package btree

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"marmot/buffer"
	"marmot/common"
	"marmot/disk"
)

func newTestTree(t *testing.T, file string, poolSize, leafMax, internalMax int) (*BPlusTree[int64], *buffer.BufferPoolManager, func()) {
	t.Helper()
	os.Remove(file)
	dm, _, err := disk.NewDiskManager(file, nil)
	require.NoError(t, err)

	pool := buffer.NewBufferPoolManager(poolSize, dm, 2, nil)
	tree, err := NewBPlusTree[int64]("test_index", pool, Int64KeySerializer{}, Int64Comparator, leafMax, internalMax, nil)
	require.NoError(t, err)

	return tree, pool, func() {
		dm.Close()
		common.Remove(file)
	}
}

func rid(i int64) common.RID {
	return common.NewRID(common.PageID(i), uint32(i))
}

// treeHeight walks slot 0 pointers down to a leaf. Only for single threaded
// tests, it takes no latches.
func treeHeight(tree *BPlusTree[int64]) int {
	pid := tree.GetRootPageId()
	if pid == common.InvalidPageID {
		return 0
	}

	height := 0
	for {
		page, err := tree.bpm.FetchPage(pid)
		common.PanicIfErr(err)
		height++
		tp := treePage{page: page}
		if tp.IsLeafPage() {
			tree.bpm.UnpinPage(pid, false)
			return height
		}
		next := tree.asInternal(page).ValueAt(0)
		tree.bpm.UnpinPage(pid, false)
		pid = next
	}
}

// collectKeys drains an iterator.
func collectKeys(it *TreeIterator[int64]) []int64 {
	keys := make([]int64, 0)
	for ; !it.IsEnd(); it.Next() {
		keys = append(keys, it.Key())
	}
	return keys
}
