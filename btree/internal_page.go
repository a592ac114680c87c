package btree

import (
	"encoding/binary"

	"marmot/buffer"
	"marmot/common"
)

// InternalPage routes searches to children. Size counts children; the key in
// slot 0 is a dummy, so a page with n children carries n-1 separator keys in
// slots 1..n-1. All keys of child i satisfy key(i) <= k < key(i+1) with slot 0
// standing for negative infinity.
type InternalPage[K any] struct {
	treePage
	ks KeySerializer[K]
}

func (t *BPlusTree[K]) asInternal(p *buffer.Page) InternalPage[K] {
	return InternalPage[K]{treePage: treePage{page: p}, ks: t.ks}
}

func (t *BPlusTree[K]) initInternal(p *buffer.Page, parent common.PageID) InternalPage[K] {
	n := t.asInternal(p)
	n.setPageType(internalPage)
	n.SetSize(0)
	n.setMaxSize(t.internalMaxSize)
	n.SetParentPageId(parent)
	n.setPageId(p.GetPageId())
	return n
}

func (n InternalPage[K]) entrySize() int {
	return n.ks.Size() + 4
}

func (n InternalPage[K]) entryOffset(idx int) int {
	return internalHeaderSize + idx*n.entrySize()
}

func (n InternalPage[K]) KeyAt(idx int) K {
	return n.ks.Deserialize(n.data()[n.entryOffset(idx):])
}

func (n InternalPage[K]) SetKeyAt(idx int, key K) {
	n.ks.Serialize(n.data()[n.entryOffset(idx):], key)
}

func (n InternalPage[K]) ValueAt(idx int) common.PageID {
	off := n.entryOffset(idx) + n.ks.Size()
	return common.PageID(int32(binary.BigEndian.Uint32(n.data()[off:])))
}

func (n InternalPage[K]) SetValueAt(idx int, pid common.PageID) {
	off := n.entryOffset(idx) + n.ks.Size()
	binary.BigEndian.PutUint32(n.data()[off:], uint32(int32(pid)))
}

// ValueIndex returns the slot holding the given child, -1 when absent.
func (n InternalPage[K]) ValueIndex(pid common.PageID) int {
	for idx := 0; idx < n.GetSize(); idx++ {
		if n.ValueAt(idx) == pid {
			return idx
		}
	}
	return -1
}

// IndexLookup returns the largest index whose key is not greater than the given
// key, with slot 0 treated as negative infinity.
func (n InternalPage[K]) IndexLookup(key K, cmp Comparator[K]) int {
	res := 0
	lo, hi := 1, n.GetSize()-1
	for lo <= hi {
		mid := (lo + hi) / 2
		if cmp(n.KeyAt(mid), key) <= 0 {
			res = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return res
}

// Lookup returns the child whose key range contains the given key.
func (n InternalPage[K]) Lookup(key K, cmp Comparator[K]) common.PageID {
	return n.ValueAt(n.IndexLookup(key, cmp))
}

// PopulateNewRoot turns an empty page into a root with two children separated
// by newKey.
func (n InternalPage[K]) PopulateNewRoot(oldChild common.PageID, newKey K, newChild common.PageID) {
	n.SetSize(2)
	n.SetValueAt(0, oldChild)
	n.SetKeyAt(1, newKey)
	n.SetValueAt(1, newChild)
}

func (n InternalPage[K]) InsertAt(idx int, key K, pid common.PageID) {
	size := n.GetSize()
	es := n.entrySize()
	start := n.entryOffset(idx)
	end := n.entryOffset(size)
	copy(n.data()[start+es:end+es], n.data()[start:end])
	n.SetKeyAt(idx, key)
	n.SetValueAt(idx, pid)
	n.IncreaseSize(1)
}

// InsertNodeAfter places (key, newChild) right after the slot holding oldChild
// and returns the new size.
func (n InternalPage[K]) InsertNodeAfter(oldChild common.PageID, key K, newChild common.PageID) int {
	idx := n.ValueIndex(oldChild)
	n.InsertAt(idx+1, key, newChild)
	return n.GetSize()
}

func (n InternalPage[K]) Remove(idx int) {
	size := n.GetSize()
	es := n.entrySize()
	start := n.entryOffset(idx)
	end := n.entryOffset(size)
	copy(n.data()[start:end-es], n.data()[start+es:end])
	n.IncreaseSize(-1)
}

// RemoveAndReturnOnlyChild empties a one child root and hands the child back.
func (n InternalPage[K]) RemoveAndReturnOnlyChild() common.PageID {
	child := n.ValueAt(0)
	n.Remove(0)
	return child
}

// adopt rewires a child's parent pointer through the buffer pool.
func (n InternalPage[K]) adopt(child common.PageID, bpm *buffer.BufferPoolManager) {
	page, err := bpm.FetchPage(child)
	common.PanicIfErr(err)
	treePage{page: page}.SetParentPageId(n.GetPageId())
	bpm.UnpinPage(child, true)
}

// MoveHalfTo moves the upper half of the entries to an empty right sibling and
// adopts the moved children. The separator to push up is the recipient's slot 0
// key, which becomes its dummy afterwards.
func (n InternalPage[K]) MoveHalfTo(recipient InternalPage[K], bpm *buffer.BufferPoolManager) {
	size := n.GetSize()
	moveSize := size / 2
	es := n.entrySize()

	src := n.entryOffset(size - moveSize)
	copy(recipient.data()[internalHeaderSize:internalHeaderSize+moveSize*es], n.data()[src:src+moveSize*es])
	recipient.SetSize(moveSize)
	n.IncreaseSize(-moveSize)

	for i := 0; i < moveSize; i++ {
		recipient.adopt(recipient.ValueAt(i), bpm)
	}
}

// MoveAllTo appends the separator from the parent followed by every entry to the
// recipient, the left sibling during a merge.
func (n InternalPage[K]) MoveAllTo(recipient InternalPage[K], middleKey K, bpm *buffer.BufferPoolManager) {
	size := n.GetSize()

	recipient.InsertAt(recipient.GetSize(), middleKey, n.ValueAt(0))
	recipient.adopt(n.ValueAt(0), bpm)
	for i := 1; i < size; i++ {
		recipient.InsertAt(recipient.GetSize(), n.KeyAt(i), n.ValueAt(i))
		recipient.adopt(n.ValueAt(i), bpm)
	}
	n.SetSize(0)
}

// MoveFirstToEndOf shifts this page's first child to the left sibling. The
// separator from the parent becomes the appended key; the caller replaces the
// separator with this page's next slot 1 key.
func (n InternalPage[K]) MoveFirstToEndOf(recipient InternalPage[K], middleKey K, bpm *buffer.BufferPoolManager) {
	child := n.ValueAt(0)
	recipient.InsertAt(recipient.GetSize(), middleKey, child)
	recipient.adopt(child, bpm)
	n.Remove(0)
}

// MoveLastToFrontOf shifts this page's last child to the right sibling, placing
// the parent separator as the sibling's new slot 1 key.
func (n InternalPage[K]) MoveLastToFrontOf(recipient InternalPage[K], middleKey K, bpm *buffer.BufferPoolManager) {
	last := n.GetSize() - 1
	child := n.ValueAt(last)
	recipient.InsertAt(0, middleKey, child)
	recipient.SetKeyAt(1, middleKey)
	recipient.adopt(child, bpm)
	n.Remove(last)
}
