package buffer

import (
	"sync"

	"marmot/common"
	"marmot/disk"
)

// Page is a frame of the buffer pool. While a physical page is resident its bytes
// live here; the frame is reused for another page after eviction. The latch
// protects the page content, the pin count and dirty flag are protected by the
// pool's latch.
type Page struct {
	pageID   common.PageID
	pinCount int
	isDirty  bool
	rwLatch  sync.RWMutex
	data     []byte
}

func newPage() *Page {
	return &Page{
		pageID: common.InvalidPageID,
		data:   make([]byte, disk.PageSize),
	}
}

// Data returns the whole page content. Callers that modified it must unpin the
// page with isDirty set.
func (p *Page) Data() []byte {
	return p.data
}

func (p *Page) GetPageId() common.PageID {
	return p.pageID
}

func (p *Page) GetPinCount() int {
	return p.pinCount
}

func (p *Page) IsDirty() bool {
	return p.isDirty
}

// reset clears the frame for reuse. Pool latch must be held.
func (p *Page) reset() {
	p.pageID = common.InvalidPageID
	p.pinCount = 0
	p.isDirty = false
	for i := range p.data {
		p.data[i] = 0
	}
}

func (p *Page) WLatch() {
	p.rwLatch.Lock()
}

func (p *Page) WUnlatch() {
	p.rwLatch.Unlock()
}

func (p *Page) RLatch() {
	p.rwLatch.RLock()
}

func (p *Page) RUnLatch() {
	p.rwLatch.RUnlock()
}
