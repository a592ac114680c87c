package btree

import (
	"encoding/binary"

	"marmot/buffer"
	"marmot/common"
)

// LeafPage holds sorted (key, RID) entries plus a pointer to the next leaf. The
// next pointers form a right linked list visiting all keys in ascending order.
type LeafPage[K any] struct {
	treePage
	ks KeySerializer[K]
}

func (t *BPlusTree[K]) asLeaf(p *buffer.Page) LeafPage[K] {
	return LeafPage[K]{treePage: treePage{page: p}, ks: t.ks}
}

// initLeaf formats a freshly allocated page as an empty leaf.
func (t *BPlusTree[K]) initLeaf(p *buffer.Page, parent common.PageID) LeafPage[K] {
	l := t.asLeaf(p)
	l.setPageType(leafPage)
	l.SetSize(0)
	l.setMaxSize(t.leafMaxSize)
	l.SetParentPageId(parent)
	l.setPageId(p.GetPageId())
	l.SetNextPageId(common.InvalidPageID)
	return l
}

func (l LeafPage[K]) entrySize() int {
	return l.ks.Size() + common.RIDSize
}

func (l LeafPage[K]) entryOffset(idx int) int {
	return leafHeaderSize + idx*l.entrySize()
}

func (l LeafPage[K]) GetNextPageId() common.PageID {
	return common.PageID(int32(binary.BigEndian.Uint32(l.data()[offsetNext:])))
}

func (l LeafPage[K]) SetNextPageId(pid common.PageID) {
	binary.BigEndian.PutUint32(l.data()[offsetNext:], uint32(int32(pid)))
}

func (l LeafPage[K]) KeyAt(idx int) K {
	return l.ks.Deserialize(l.data()[l.entryOffset(idx):])
}

func (l LeafPage[K]) setKeyAt(idx int, key K) {
	l.ks.Serialize(l.data()[l.entryOffset(idx):], key)
}

func (l LeafPage[K]) ValueAt(idx int) common.RID {
	return common.ReadRID(l.data()[l.entryOffset(idx)+l.ks.Size():])
}

func (l LeafPage[K]) setValueAt(idx int, rid common.RID) {
	rid.Serialize(l.data()[l.entryOffset(idx)+l.ks.Size():])
}

// KeyIndex returns the first index whose key is not less than the given key,
// which is GetSize() when every key is smaller.
func (l LeafPage[K]) KeyIndex(key K, cmp Comparator[K]) int {
	lo, hi := 0, l.GetSize()
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp(l.KeyAt(mid), key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Lookup binary searches for the key and returns its RID.
func (l LeafPage[K]) Lookup(key K, cmp Comparator[K]) (common.RID, bool) {
	idx := l.KeyIndex(key, cmp)
	if idx < l.GetSize() && cmp(l.KeyAt(idx), key) == 0 {
		return l.ValueAt(idx), true
	}
	return common.RID{}, false
}

// InsertAt shifts entries right and writes the pair at idx.
func (l LeafPage[K]) InsertAt(idx int, key K, rid common.RID) {
	size := l.GetSize()
	es := l.entrySize()
	start := l.entryOffset(idx)
	end := l.entryOffset(size)
	copy(l.data()[start+es:end+es], l.data()[start:end])
	l.setKeyAt(idx, key)
	l.setValueAt(idx, rid)
	l.IncreaseSize(1)
}

// Insert adds the pair keeping keys sorted. A duplicate key is rejected and the
// size is returned unchanged.
func (l LeafPage[K]) Insert(key K, rid common.RID, cmp Comparator[K]) int {
	size := l.GetSize()
	idx := l.KeyIndex(key, cmp)
	if idx < size && cmp(l.KeyAt(idx), key) == 0 {
		return size
	}
	l.InsertAt(idx, key, rid)
	return size + 1
}

// RemoveAt shifts entries left over idx.
func (l LeafPage[K]) RemoveAt(idx int) {
	size := l.GetSize()
	es := l.entrySize()
	start := l.entryOffset(idx)
	end := l.entryOffset(size)
	copy(l.data()[start:end-es], l.data()[start+es:end])
	l.IncreaseSize(-1)
}

// MoveHalfTo moves the upper half of the entries to an empty recipient, the new
// right sibling during a split.
func (l LeafPage[K]) MoveHalfTo(recipient LeafPage[K]) {
	size := l.GetSize()
	moveSize := size / 2
	es := l.entrySize()

	src := l.entryOffset(size - moveSize)
	copy(recipient.data()[leafHeaderSize:leafHeaderSize+moveSize*es], l.data()[src:src+moveSize*es])
	recipient.SetSize(moveSize)
	l.IncreaseSize(-moveSize)
}

// MoveAllTo appends every entry to the recipient, the left sibling during a
// merge, and routes the leaf chain around this page.
func (l LeafPage[K]) MoveAllTo(recipient LeafPage[K]) {
	size := l.GetSize()
	rsize := recipient.GetSize()

	copy(recipient.data()[recipient.entryOffset(rsize):], l.data()[leafHeaderSize:l.entryOffset(size)])
	recipient.SetSize(rsize + size)
	recipient.SetNextPageId(l.GetNextPageId())
	l.SetSize(0)
}

// MoveFirstToEndOf shifts one entry to the left sibling during redistribution.
func (l LeafPage[K]) MoveFirstToEndOf(recipient LeafPage[K]) {
	recipient.InsertAt(recipient.GetSize(), l.KeyAt(0), l.ValueAt(0))
	l.RemoveAt(0)
}

// MoveLastToFrontOf shifts one entry to the right sibling during redistribution.
func (l LeafPage[K]) MoveLastToFrontOf(recipient LeafPage[K]) {
	last := l.GetSize() - 1
	recipient.InsertAt(0, l.KeyAt(last), l.ValueAt(last))
	l.RemoveAt(last)
}
