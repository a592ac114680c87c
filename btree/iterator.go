package btree

import (
	"marmot/buffer"
	"marmot/common"
)

// TreeIterator walks leaf entries in ascending key order following the leaf
// chain. It keeps the current leaf pinned and read latched; stepping off a leaf
// releases it before the next one is taken. Call Close when abandoning the
// iterator early.
type TreeIterator[K any] struct {
	tree *BPlusTree[K]
	page *buffer.Page
	idx  int
}

// Begin positions at the first entry of the leftmost leaf. An empty tree yields
// the end iterator.
func (t *BPlusTree[K]) Begin() *TreeIterator[K] {
	var zero K
	it := &TreeIterator[K]{tree: t, page: t.findLeafForRead(zero, true)}
	it.skipExhausted()
	return it
}

// BeginAt positions at the first entry whose key is not less than key.
func (t *BPlusTree[K]) BeginAt(key K) *TreeIterator[K] {
	it := &TreeIterator[K]{tree: t, page: t.findLeafForRead(key, false)}
	if it.page != nil {
		it.idx = t.asLeaf(it.page).KeyIndex(key, t.cmp)
	}
	it.skipExhausted()
	return it
}

// End is the past-the-last sentinel.
func (t *BPlusTree[K]) End() *TreeIterator[K] {
	return &TreeIterator[K]{tree: t}
}

func (it *TreeIterator[K]) IsEnd() bool {
	return it.page == nil
}

func (it *TreeIterator[K]) Key() K {
	return it.tree.asLeaf(it.page).KeyAt(it.idx)
}

func (it *TreeIterator[K]) Value() common.RID {
	return it.tree.asLeaf(it.page).ValueAt(it.idx)
}

// Next advances one entry, hopping to the next leaf over the chain when the
// current one is exhausted.
func (it *TreeIterator[K]) Next() {
	it.idx++
	it.skipExhausted()
}

// skipExhausted walks the leaf chain until an entry or the end of the chain is
// found. Leaves left empty by merges of a single child parent are skipped over.
func (it *TreeIterator[K]) skipExhausted() {
	for it.page != nil && it.idx >= (treePage{page: it.page}).GetSize() {
		leaf := it.tree.asLeaf(it.page)
		next := leaf.GetNextPageId()

		it.page.RUnLatch()
		it.tree.bpm.UnpinPage(it.page.GetPageId(), false)
		it.page = nil
		it.idx = 0

		if next == common.InvalidPageID {
			return
		}

		page, err := it.tree.bpm.FetchPage(next)
		common.PanicIfErr(err)
		page.RLatch()
		it.page = page
	}
}

// Close releases the current leaf. Safe to call on the end iterator.
func (it *TreeIterator[K]) Close() {
	if it.page == nil {
		return
	}
	it.page.RUnLatch()
	it.tree.bpm.UnpinPage(it.page.GetPageId(), false)
	it.page = nil
}
