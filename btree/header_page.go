package btree

import (
	"bytes"
	"encoding/binary"

	"marmot/buffer"
	"marmot/common"
	"marmot/disk"
)

// HeaderPage is the catalog living in page 0. It maps index names to their root
// page ids in fixed slots so trees can find their root again after a restart.
//
//	0 record_count u32
//	4 records, each: name [32]byte zero padded, root_page_id i32
const (
	headerRecordNameLen = 32
	headerRecordSize    = headerRecordNameLen + 4
	maxHeaderRecords    = (disk.PageSize - 4) / headerRecordSize
)

type HeaderPage struct {
	page *buffer.Page
}

func NewHeaderPage(page *buffer.Page) HeaderPage {
	return HeaderPage{page: page}
}

func (h HeaderPage) data() []byte {
	return h.page.Data()
}

func (h HeaderPage) GetRecordCount() int {
	return int(binary.BigEndian.Uint32(h.data()))
}

func (h HeaderPage) setRecordCount(n int) {
	binary.BigEndian.PutUint32(h.data(), uint32(n))
}

func (h HeaderPage) recordOffset(idx int) int {
	return 4 + idx*headerRecordSize
}

func (h HeaderPage) nameAt(idx int) string {
	b := h.data()[h.recordOffset(idx) : h.recordOffset(idx)+headerRecordNameLen]
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func (h HeaderPage) rootAt(idx int) common.PageID {
	off := h.recordOffset(idx) + headerRecordNameLen
	return common.PageID(int32(binary.BigEndian.Uint32(h.data()[off:])))
}

func (h HeaderPage) setRootAt(idx int, root common.PageID) {
	off := h.recordOffset(idx) + headerRecordNameLen
	binary.BigEndian.PutUint32(h.data()[off:], uint32(int32(root)))
}

func (h HeaderPage) findRecord(name string) int {
	for i := 0; i < h.GetRecordCount(); i++ {
		if h.nameAt(i) == name {
			return i
		}
	}
	return -1
}

// InsertRecord registers a new index. Fails when the name is empty, too long,
// already present or the page is full.
func (h HeaderPage) InsertRecord(name string, root common.PageID) bool {
	if len(name) == 0 || len(name) > headerRecordNameLen {
		return false
	}
	count := h.GetRecordCount()
	if count >= maxHeaderRecords || h.findRecord(name) >= 0 {
		return false
	}

	off := h.recordOffset(count)
	for i := 0; i < headerRecordNameLen; i++ {
		h.data()[off+i] = 0
	}
	copy(h.data()[off:off+headerRecordNameLen], name)
	h.setRootAt(count, root)
	h.setRecordCount(count + 1)
	return true
}

// UpdateRecord rewrites the root page id of a registered index.
func (h HeaderPage) UpdateRecord(name string, root common.PageID) bool {
	idx := h.findRecord(name)
	if idx < 0 {
		return false
	}
	h.setRootAt(idx, root)
	return true
}

// DeleteRecord unregisters an index, compacting the slots.
func (h HeaderPage) DeleteRecord(name string) bool {
	idx := h.findRecord(name)
	if idx < 0 {
		return false
	}

	count := h.GetRecordCount()
	start := h.recordOffset(idx)
	end := h.recordOffset(count)
	copy(h.data()[start:end-headerRecordSize], h.data()[start+headerRecordSize:end])
	h.setRecordCount(count - 1)
	return true
}

// GetRootId looks up the root page id registered under the name.
func (h HeaderPage) GetRootId(name string) (common.PageID, bool) {
	idx := h.findRecord(name)
	if idx < 0 {
		return common.InvalidPageID, false
	}
	return h.rootAt(idx), true
}
