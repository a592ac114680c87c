package common

import (
	"encoding/binary"
	"fmt"
)

// RIDSize is the on-disk size of a serialized RID.
const RIDSize = 8

// RID points at a tuple in a heap file. It is opaque to the index; the storage
// core only moves it around.
type RID struct {
	PageID  PageID
	SlotNum uint32
}

func NewRID(pageID PageID, slotNum uint32) RID {
	return RID{PageID: pageID, SlotNum: slotNum}
}

func (r RID) Serialize(dest []byte) {
	binary.BigEndian.PutUint32(dest, uint32(r.PageID))
	binary.BigEndian.PutUint32(dest[4:], r.SlotNum)
}

func ReadRID(data []byte) RID {
	return RID{
		PageID:  PageID(binary.BigEndian.Uint32(data)),
		SlotNum: binary.BigEndian.Uint32(data[4:]),
	}
}

func (r RID) String() string {
	return fmt.Sprintf("%d:%d", r.PageID, r.SlotNum)
}
