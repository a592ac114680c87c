package buffer

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"marmot/common"
	"marmot/disk"
	"marmot/hash"
)

// ErrNoAvailableFrame is returned when the free list is empty and the replacer
// has no evictable frame. Callers treat it as back pressure, not corruption.
var ErrNoAvailableFrame = errors.New("no available frame, all pages are pinned")

const pageTableBucketSize = 4

// BufferPoolManager caches disk pages in a fixed set of frames. It owns the page
// table that maps resident page ids to frames, the replacer that picks victims and
// the free list of unused frames. A single latch serializes all operations; disk
// io happens while it is held, which keeps the state machine simple at the cost of
// concurrency during faults.
type BufferPoolManager struct {
	poolSize    int
	frames      []*Page
	pageTable   *hash.ExtendibleHashTable[common.PageID, common.FrameID]
	replacer    IReplacer
	freeList    []common.FrameID
	diskManager disk.IDiskManager
	latch       sync.Mutex
	stats       *common.Stats
	log         *zap.Logger
}

func NewBufferPoolManager(poolSize int, dm disk.IDiskManager, replacerK int, log *zap.Logger) *BufferPoolManager {
	if log == nil {
		log = zap.NewNop()
	}

	frames := make([]*Page, poolSize)
	freeList := make([]common.FrameID, poolSize)
	for i := 0; i < poolSize; i++ {
		frames[i] = newPage()
		freeList[i] = common.FrameID(i)
	}

	return &BufferPoolManager{
		poolSize:    poolSize,
		frames:      frames,
		pageTable:   hash.NewExtendibleHashTable[common.PageID, common.FrameID](pageTableBucketSize, hash.IntHasher[common.PageID]),
		replacer:    NewLRUKReplacer(poolSize, replacerK),
		freeList:    freeList,
		diskManager: dm,
		stats:       common.NewStats(),
		log:         log,
	}
}

// NewPage allocates a fresh page id and binds it to a frame. The page comes back
// pinned with pin count 1 and must be unpinned by the caller.
func (b *BufferPoolManager) NewPage() (*Page, error) {
	b.latch.Lock()
	defer b.latch.Unlock()

	frameID, err := b.acquireFrame()
	if err != nil {
		return nil, err
	}

	pageID := b.diskManager.AllocatePage()
	page := b.frames[frameID]
	page.pageID = pageID
	page.pinCount = 1
	page.isDirty = false

	b.pageTable.Insert(pageID, frameID)
	b.replacer.RecordAccess(frameID)
	b.replacer.SetEvictable(frameID, false)

	b.log.Debug("new page", zap.Int32("page_id", int32(pageID)), zap.Int("frame_id", int(frameID)))
	return page, nil
}

// FetchPage returns the resident frame for the page, pinning it. On a miss the
// page is read from disk into a free or evicted frame.
func (b *BufferPoolManager) FetchPage(pageID common.PageID) (*Page, error) {
	b.latch.Lock()
	defer b.latch.Unlock()

	if frameID, ok := b.pageTable.Find(pageID); ok {
		page := b.frames[frameID]
		page.pinCount++
		b.replacer.RecordAccess(frameID)
		b.replacer.SetEvictable(frameID, false)
		b.stats.Count("pool.hit")
		return page, nil
	}

	frameID, err := b.acquireFrame()
	if err != nil {
		return nil, err
	}

	page := b.frames[frameID]
	if err := b.diskManager.ReadPage(pageID, page.data); err != nil {
		// the frame was never installed in the page table, just hand it back
		b.freeList = append(b.freeList, frameID)
		return nil, err
	}

	page.pageID = pageID
	page.pinCount = 1
	page.isDirty = false

	b.pageTable.Insert(pageID, frameID)
	b.replacer.RecordAccess(frameID)
	b.replacer.SetEvictable(frameID, false)
	b.stats.Count("pool.miss")
	return page, nil
}

// acquireFrame pops a free frame or evicts a victim, flushing it first when
// dirty. The returned frame is reset and unmapped. Pool latch must be held.
func (b *BufferPoolManager) acquireFrame() (common.FrameID, error) {
	if len(b.freeList) > 0 {
		frameID := b.freeList[0]
		b.freeList = b.freeList[1:]
		return frameID, nil
	}

	frameID, ok := b.replacer.Evict()
	if !ok {
		return 0, ErrNoAvailableFrame
	}

	victim := b.frames[frameID]
	if victim.pinCount != 0 {
		panic(fmt.Sprintf("a pinned page was chosen as victim, page_id: %d, pin count: %d", victim.pageID, victim.pinCount))
	}

	if victim.isDirty {
		if err := b.diskManager.WritePage(victim.pageID, victim.data); err != nil {
			// the replacer already forgot the frame, track it again so it stays
			// reachable for a later eviction
			b.replacer.RecordAccess(frameID)
			b.replacer.SetEvictable(frameID, true)
			return 0, err
		}
	}

	b.log.Debug("evicting page", zap.Int32("page_id", int32(victim.pageID)), zap.Int("frame_id", int(frameID)))
	b.stats.Count("pool.eviction")
	b.pageTable.Remove(victim.pageID)
	victim.reset()
	return frameID, nil
}

// UnpinPage drops one pin from the page. isDirty only ever sets the dirty flag;
// clearing it here would lose writes of concurrent unpinners. Returns false when
// the page is not resident or was not pinned.
func (b *BufferPoolManager) UnpinPage(pageID common.PageID, isDirty bool) bool {
	b.latch.Lock()
	defer b.latch.Unlock()

	frameID, ok := b.pageTable.Find(pageID)
	if !ok {
		return false
	}

	page := b.frames[frameID]
	if page.pinCount == 0 {
		return false
	}

	if isDirty {
		page.isDirty = true
	}

	page.pinCount--
	if page.pinCount == 0 {
		b.replacer.SetEvictable(frameID, true)
	}
	return true
}

// FlushPage writes the page to disk regardless of its dirty flag and clears the
// flag. Returns false when the page is not resident.
func (b *BufferPoolManager) FlushPage(pageID common.PageID) bool {
	b.latch.Lock()
	defer b.latch.Unlock()

	return b.flushFrame(pageID)
}

func (b *BufferPoolManager) flushFrame(pageID common.PageID) bool {
	frameID, ok := b.pageTable.Find(pageID)
	if !ok {
		return false
	}

	page := b.frames[frameID]
	if err := b.diskManager.WritePage(pageID, page.data); err != nil {
		b.log.Error("flush failed", zap.Int32("page_id", int32(pageID)), zap.Error(err))
		return false
	}
	page.isDirty = false
	return true
}

// FlushAllPages writes every resident page to disk.
func (b *BufferPoolManager) FlushAllPages() {
	b.latch.Lock()
	defer b.latch.Unlock()

	for _, page := range b.frames {
		if page.pageID == common.InvalidPageID {
			continue
		}
		b.flushFrame(page.pageID)
	}
}

// DeletePage drops the page from the pool and hands its id back to the disk
// manager. Deleting a page that is not resident is a successful no-op; deleting a
// pinned page fails.
func (b *BufferPoolManager) DeletePage(pageID common.PageID) bool {
	b.latch.Lock()
	defer b.latch.Unlock()

	frameID, ok := b.pageTable.Find(pageID)
	if !ok {
		return true
	}

	page := b.frames[frameID]
	if page.pinCount != 0 {
		return false
	}

	b.pageTable.Remove(pageID)
	b.replacer.Remove(frameID)
	page.reset()
	b.freeList = append(b.freeList, frameID)
	b.diskManager.DeallocatePage(pageID)
	return true
}

// EmptyFrameSize returns the number of frames that hold no page.
func (b *BufferPoolManager) EmptyFrameSize() int {
	b.latch.Lock()
	defer b.latch.Unlock()
	return len(b.freeList)
}

func (b *BufferPoolManager) PoolSize() int {
	return b.poolSize
}

func (b *BufferPoolManager) Stats() *common.Stats {
	return b.stats
}
