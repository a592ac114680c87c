package btree

import (
	"marmot/buffer"
	"marmot/common"
	"marmot/transaction"
)

// Remove deletes the key from the tree. A missing key returns silently. Pages
// emptied by merges are collected on the transaction and deleted once every
// latch is dropped.
func (t *BPlusTree[K]) Remove(key K, txn *transaction.Transaction) {
	if txn == nil {
		txn = transaction.New()
	}

	t.rootLatch.Lock()
	txn.SetRootLatched(true)

	if t.rootPageID == common.InvalidPageID {
		txn.SetRootLatched(false)
		t.rootLatch.Unlock()
		return
	}

	leafPage := t.findLeafPage(key, Delete, txn)
	leaf := t.asLeaf(leafPage)

	idx := leaf.KeyIndex(key, t.cmp)
	if idx >= leaf.GetSize() || t.cmp(leaf.KeyAt(idx), key) != 0 {
		t.releaseAll(txn, false)
		return
	}
	leaf.RemoveAt(idx)

	if leaf.IsRootPage() {
		t.adjustRoot(leafPage, txn)
	} else if leaf.GetSize() < leaf.GetMinSize() {
		t.coalesceOrRedistribute(leafPage, txn)
	}

	t.releaseAll(txn, true)

	for _, pid := range txn.DeletedPageSet() {
		t.bpm.DeletePage(pid)
	}
	txn.ClearDeletedPageSet()
}

// coalesceOrRedistribute fixes an underflowing page by borrowing one entry from
// a sibling, preferring the left one, or by merging when neither sibling can
// spare anything. Merges remove the separator from the parent and recurse when
// the parent underflows in turn.
func (t *BPlusTree[K]) coalesceOrRedistribute(nodePage *buffer.Page, txn *transaction.Transaction) {
	tp := treePage{page: nodePage}
	if tp.IsRootPage() {
		t.adjustRoot(nodePage, txn)
		return
	}

	parentPage := t.pageFromSet(txn, tp.GetParentPageId())
	parent := t.asInternal(parentPage)
	idx := parent.ValueIndex(nodePage.GetPageId())

	var leftPage, rightPage *buffer.Page
	if idx > 0 {
		leftPage = t.fetchLatched(parent.ValueAt(idx - 1))
	}
	if idx+1 < parent.GetSize() {
		rightPage = t.fetchLatched(parent.ValueAt(idx + 1))
	}

	release := func(p *buffer.Page, dirty bool) {
		if p == nil {
			return
		}
		p.WUnlatch()
		t.bpm.UnpinPage(p.GetPageId(), dirty)
	}

	if leftPage != nil {
		left := treePage{page: leftPage}
		if left.GetSize() > left.GetMinSize() {
			t.redistribute(leftPage, nodePage, parent, idx, true)
			release(leftPage, true)
			release(rightPage, false)
			return
		}
	}
	if rightPage != nil {
		right := treePage{page: rightPage}
		if right.GetSize() > right.GetMinSize() {
			t.redistribute(rightPage, nodePage, parent, idx, false)
			release(leftPage, false)
			release(rightPage, true)
			return
		}
	}

	switch {
	case leftPage != nil:
		// merge the node into its left sibling
		t.merge(leftPage, nodePage, parent, idx)
		release(leftPage, true)
		release(rightPage, false)
		txn.AddIntoDeletedPageSet(nodePage.GetPageId())
	case rightPage != nil:
		// merge the right sibling into the node
		t.merge(nodePage, rightPage, parent, idx+1)
		release(rightPage, true)
		txn.AddIntoDeletedPageSet(rightPage.GetPageId())
	default:
		// the parent has a single child, nothing to borrow from or merge with
		return
	}

	if parent.IsRootPage() {
		if parent.GetSize() == 1 {
			t.adjustRoot(parentPage, txn)
		}
	} else if parent.GetSize() < parent.GetMinSize() {
		t.coalesceOrRedistribute(parentPage, txn)
	}
}

func (t *BPlusTree[K]) fetchLatched(pageID common.PageID) *buffer.Page {
	page, err := t.bpm.FetchPage(pageID)
	common.PanicIfErr(err)
	page.WLatch()
	return page
}

// redistribute moves exactly one entry from the sibling into the node and fixes
// the separator in the parent. idx is the node's slot in the parent.
func (t *BPlusTree[K]) redistribute(sibPage, nodePage *buffer.Page, parent InternalPage[K], idx int, fromLeft bool) {
	if (treePage{page: nodePage}).IsLeafPage() {
		node := t.asLeaf(nodePage)
		sib := t.asLeaf(sibPage)
		if fromLeft {
			sib.MoveLastToFrontOf(node)
			parent.SetKeyAt(idx, node.KeyAt(0))
		} else {
			sib.MoveFirstToEndOf(node)
			parent.SetKeyAt(idx+1, sib.KeyAt(0))
		}
		return
	}

	node := t.asInternal(nodePage)
	sib := t.asInternal(sibPage)
	if fromLeft {
		// the separator comes down as the node's new slot 1 key, the sibling's
		// last key goes up
		middle := parent.KeyAt(idx)
		newSeparator := sib.KeyAt(sib.GetSize() - 1)
		sib.MoveLastToFrontOf(node, middle, t.bpm)
		parent.SetKeyAt(idx, newSeparator)
	} else {
		// the separator comes down appended to the node, the sibling's slot 1
		// key goes up
		middle := parent.KeyAt(idx + 1)
		newSeparator := sib.KeyAt(1)
		sib.MoveFirstToEndOf(node, middle, t.bpm)
		parent.SetKeyAt(idx+1, newSeparator)
	}
}

// merge empties nodePage into recipientPage, its left neighbor, and drops the
// separator at sepIdx from the parent.
func (t *BPlusTree[K]) merge(recipientPage, nodePage *buffer.Page, parent InternalPage[K], sepIdx int) {
	if (treePage{page: nodePage}).IsLeafPage() {
		t.asLeaf(nodePage).MoveAllTo(t.asLeaf(recipientPage))
	} else {
		t.asInternal(nodePage).MoveAllTo(t.asInternal(recipientPage), parent.KeyAt(sepIdx), t.bpm)
	}
	parent.Remove(sepIdx)
}

// adjustRoot shrinks the tree at the top: an empty leaf root leaves the tree
// empty, an internal root with a single child hands the root over to it.
func (t *BPlusTree[K]) adjustRoot(rootPage *buffer.Page, txn *transaction.Transaction) {
	tp := treePage{page: rootPage}

	if tp.IsLeafPage() {
		if tp.GetSize() == 0 {
			t.rootPageID = common.InvalidPageID
			t.updateRootPageId()
			txn.AddIntoDeletedPageSet(rootPage.GetPageId())
		}
		return
	}

	if tp.GetSize() == 1 {
		root := t.asInternal(rootPage)
		childID := root.RemoveAndReturnOnlyChild()

		childPage, err := t.bpm.FetchPage(childID)
		common.PanicIfErr(err)
		(treePage{page: childPage}).SetParentPageId(common.InvalidPageID)
		t.bpm.UnpinPage(childID, true)

		t.rootPageID = childID
		t.updateRootPageId()
		txn.AddIntoDeletedPageSet(rootPage.GetPageId())
	}
}
