package btree

import (
	"encoding/binary"
	"fmt"

	"marmot/buffer"
	"marmot/common"
)

// pageType discriminates the two node layouts. Dispatch is on this header byte,
// there is no inheritance between page kinds.
type pageType uint32

const (
	invalidPage  pageType = 0
	leafPage     pageType = 1
	internalPage pageType = 2
)

// Shared header layout. Leaf pages extend it with a next page pointer.
//
//	0  page_type      u32
//	4  lsn            u32
//	8  size           i32
//	12 max_size       i32
//	16 parent_page_id i32
//	20 page_id        i32
//	24 next_page_id   i32 (leaf only)
const (
	offsetPageType   = 0
	offsetLSN        = 4
	offsetSize       = 8
	offsetMaxSize    = 12
	offsetParent     = 16
	offsetPageID     = 20
	offsetNext       = 24
	internalHeaderSize = 24
	leafHeaderSize     = 28
)

// treePage gives header access over any b+ tree page resident in a frame.
type treePage struct {
	page *buffer.Page
}

func (t treePage) data() []byte {
	return t.page.Data()
}

func (t treePage) PageType() pageType {
	return pageType(binary.BigEndian.Uint32(t.data()[offsetPageType:]))
}

func (t treePage) setPageType(pt pageType) {
	binary.BigEndian.PutUint32(t.data()[offsetPageType:], uint32(pt))
}

func (t treePage) IsLeafPage() bool {
	switch t.PageType() {
	case leafPage:
		return true
	case internalPage:
		return false
	}
	panic(fmt.Sprintf("corrupt page header, page_id: %d", t.page.GetPageId()))
}

func (t treePage) GetLSN() uint32 {
	return binary.BigEndian.Uint32(t.data()[offsetLSN:])
}

func (t treePage) SetLSN(lsn uint32) {
	binary.BigEndian.PutUint32(t.data()[offsetLSN:], lsn)
}

func (t treePage) GetSize() int {
	return int(int32(binary.BigEndian.Uint32(t.data()[offsetSize:])))
}

func (t treePage) SetSize(size int) {
	binary.BigEndian.PutUint32(t.data()[offsetSize:], uint32(int32(size)))
}

func (t treePage) IncreaseSize(d int) {
	t.SetSize(t.GetSize() + d)
}

func (t treePage) GetMaxSize() int {
	return int(int32(binary.BigEndian.Uint32(t.data()[offsetMaxSize:])))
}

func (t treePage) setMaxSize(size int) {
	binary.BigEndian.PutUint32(t.data()[offsetMaxSize:], uint32(int32(size)))
}

// GetMinSize is the underflow bound. Leaves keep at least half their maximum,
// internals half their children rounded up. The root is exempt; callers special
// case it.
func (t treePage) GetMinSize() int {
	if t.IsLeafPage() {
		return t.GetMaxSize() / 2
	}
	return (t.GetMaxSize() + 1) / 2
}

func (t treePage) GetParentPageId() common.PageID {
	return common.PageID(int32(binary.BigEndian.Uint32(t.data()[offsetParent:])))
}

func (t treePage) SetParentPageId(pid common.PageID) {
	binary.BigEndian.PutUint32(t.data()[offsetParent:], uint32(int32(pid)))
}

func (t treePage) GetPageId() common.PageID {
	return common.PageID(int32(binary.BigEndian.Uint32(t.data()[offsetPageID:])))
}

func (t treePage) setPageId(pid common.PageID) {
	binary.BigEndian.PutUint32(t.data()[offsetPageID:], uint32(int32(pid)))
}

func (t treePage) IsRootPage() bool {
	return t.GetParentPageId() == common.InvalidPageID
}
