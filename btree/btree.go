package btree

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"marmot/buffer"
	"marmot/common"
	"marmot/disk"
	"marmot/transaction"
)

// TraverseMode picks the latching discipline of a tree descent. Read descents
// crab with read latches, write descents keep the chain of write latches up to
// the deepest unsafe ancestor.
type TraverseMode int

const (
	Read TraverseMode = iota
	Insert
	Delete
)

// BPlusTree is a unique key index over the buffer pool. Key type, serializer and
// comparator are fixed once at construction; leaf values are RIDs and internal
// values are child page ids. The tree owns its pages through the buffer pool and
// finds its root again via the header page catalog under indexName.
type BPlusTree[K any] struct {
	indexName       string
	rootPageID      common.PageID
	rootLatch       sync.RWMutex
	bpm             *buffer.BufferPoolManager
	ks              KeySerializer[K]
	cmp             Comparator[K]
	leafMaxSize     int
	internalMaxSize int
	log             *zap.Logger
}

// NewBPlusTree opens or creates the index named name. Zero max sizes derive the
// largest page filling values from the page size and key width.
func NewBPlusTree[K any](name string, bpm *buffer.BufferPoolManager, ks KeySerializer[K], cmp Comparator[K], leafMaxSize, internalMaxSize int, log *zap.Logger) (*BPlusTree[K], error) {
	if log == nil {
		log = zap.NewNop()
	}
	if leafMaxSize == 0 {
		leafMaxSize = (disk.PageSize - leafHeaderSize) / (ks.Size() + common.RIDSize)
	}
	if internalMaxSize == 0 {
		internalMaxSize = (disk.PageSize - internalHeaderSize) / (ks.Size() + 4)
	}

	t := &BPlusTree[K]{
		indexName:       name,
		rootPageID:      common.InvalidPageID,
		bpm:             bpm,
		ks:              ks,
		cmp:             cmp,
		leafMaxSize:     leafMaxSize,
		internalMaxSize: internalMaxSize,
		log:             log,
	}

	headerPage, err := bpm.FetchPage(common.HeaderPageID)
	if err != nil {
		return nil, err
	}
	headerPage.WLatch()
	hp := NewHeaderPage(headerPage)
	if root, ok := hp.GetRootId(name); ok {
		t.rootPageID = root
		headerPage.WUnlatch()
		bpm.UnpinPage(common.HeaderPageID, false)
	} else {
		hp.InsertRecord(name, common.InvalidPageID)
		headerPage.WUnlatch()
		bpm.UnpinPage(common.HeaderPageID, true)
	}

	log.Debug("opened index", zap.String("name", name), zap.Int32("root", int32(t.rootPageID)),
		zap.Int("leaf_max", leafMaxSize), zap.Int("internal_max", internalMaxSize))
	return t, nil
}

func (t *BPlusTree[K]) IsEmpty() bool {
	t.rootLatch.RLock()
	defer t.rootLatch.RUnlock()
	return t.rootPageID == common.InvalidPageID
}

func (t *BPlusTree[K]) GetRootPageId() common.PageID {
	t.rootLatch.RLock()
	defer t.rootLatch.RUnlock()
	return t.rootPageID
}

// updateRootPageId persists the root pointer into the header page catalog. The
// caller holds the root latch exclusively.
func (t *BPlusTree[K]) updateRootPageId() {
	page, err := t.bpm.FetchPage(common.HeaderPageID)
	common.PanicIfErr(err)
	page.WLatch()
	hp := NewHeaderPage(page)
	if !hp.UpdateRecord(t.indexName, t.rootPageID) {
		hp.InsertRecord(t.indexName, t.rootPageID)
	}
	page.WUnlatch()
	t.bpm.UnpinPage(common.HeaderPageID, true)
}

/*****************************************************************************
 * SEARCH
 *****************************************************************************/

// GetValue looks the key up and appends its RID to result. Every page on the
// path is unpinned before descending further; read only access never dirties.
func (t *BPlusTree[K]) GetValue(key K, result *[]common.RID, txn *transaction.Transaction) bool {
	_ = txn
	page := t.findLeafForRead(key, false)
	if page == nil {
		return false
	}

	leaf := t.asLeaf(page)
	rid, found := leaf.Lookup(key, t.cmp)
	page.RUnLatch()
	t.bpm.UnpinPage(page.GetPageId(), false)

	if found && result != nil {
		*result = append(*result, rid)
	}
	return found
}

// findLeafForRead crabs down with read latches and returns the target leaf, read
// latched and pinned, or nil when the tree is empty. leftMost short circuits the
// key and descends along slot 0 pointers.
func (t *BPlusTree[K]) findLeafForRead(key K, leftMost bool) *buffer.Page {
	t.rootLatch.RLock()
	if t.rootPageID == common.InvalidPageID {
		t.rootLatch.RUnlock()
		return nil
	}
	page, err := t.bpm.FetchPage(t.rootPageID)
	common.PanicIfErr(err)
	page.RLatch()
	t.rootLatch.RUnlock()

	for {
		tp := treePage{page: page}
		if tp.IsLeafPage() {
			return page
		}

		node := t.asInternal(page)
		var childID common.PageID
		if leftMost {
			childID = node.ValueAt(0)
		} else {
			childID = node.Lookup(key, t.cmp)
		}

		child, err := t.bpm.FetchPage(childID)
		common.PanicIfErr(err)
		child.RLatch()
		page.RUnLatch()
		t.bpm.UnpinPage(page.GetPageId(), false)
		page = child
	}
}

/*****************************************************************************
 * INSERTION
 *****************************************************************************/

// Insert adds the pair to the tree. Duplicate keys are rejected; overwriting is
// not permitted for a unique index.
func (t *BPlusTree[K]) Insert(key K, value common.RID, txn *transaction.Transaction) bool {
	if txn == nil {
		txn = transaction.New()
	}

	t.rootLatch.Lock()
	txn.SetRootLatched(true)

	if t.rootPageID == common.InvalidPageID {
		t.startNewTree(key, value)
		txn.SetRootLatched(false)
		t.rootLatch.Unlock()
		return true
	}

	leafPage := t.findLeafPage(key, Insert, txn)
	leaf := t.asLeaf(leafPage)

	size := leaf.GetSize()
	if leaf.Insert(key, value, t.cmp) == size {
		t.releaseAll(txn, false)
		return false
	}

	if leaf.GetSize() == leaf.GetMaxSize() {
		t.splitLeaf(leafPage, txn)
	}

	t.releaseAll(txn, true)
	return true
}

func (t *BPlusTree[K]) startNewTree(key K, value common.RID) {
	page, err := t.bpm.NewPage()
	common.PanicIfErr(err)
	leaf := t.initLeaf(page, common.InvalidPageID)
	leaf.InsertAt(0, key, value)

	t.rootPageID = page.GetPageId()
	t.updateRootPageId()
	t.bpm.UnpinPage(page.GetPageId(), true)
}

// findLeafPage crabs down in write mode. The caller holds the root latch and has
// marked it on the transaction; every latched page lands in the transaction's
// page set, and ancestors are released as soon as the child below them is safe.
func (t *BPlusTree[K]) findLeafPage(key K, mode TraverseMode, txn *transaction.Transaction) *buffer.Page {
	page, err := t.bpm.FetchPage(t.rootPageID)
	common.PanicIfErr(err)
	page.WLatch()
	if t.isSafe(page, mode) {
		t.releaseAll(txn, false)
	}
	txn.AddIntoPageSet(page, transaction.Exclusive)

	for {
		tp := treePage{page: page}
		if tp.IsLeafPage() {
			return page
		}

		node := t.asInternal(page)
		child, err := t.bpm.FetchPage(node.Lookup(key, t.cmp))
		common.PanicIfErr(err)
		child.WLatch()
		if t.isSafe(child, mode) {
			t.releaseAll(txn, false)
		}
		txn.AddIntoPageSet(child, transaction.Exclusive)
		page = child
	}
}

// isSafe reports whether an operation on a child cannot propagate into this
// page's ancestors, which lets the descent drop every latch above it.
func (t *BPlusTree[K]) isSafe(page *buffer.Page, mode TraverseMode) bool {
	tp := treePage{page: page}
	if mode == Insert {
		return tp.GetSize() < tp.GetMaxSize()-1
	}

	if tp.IsRootPage() {
		if tp.IsLeafPage() {
			return tp.GetSize() > 1
		}
		return tp.GetSize() > 2
	}
	return tp.GetSize() > tp.GetMinSize()
}

// releaseAll unlatches and unpins the transaction's page set in reverse order
// and drops the root latch when held.
func (t *BPlusTree[K]) releaseAll(txn *transaction.Transaction, dirty bool) {
	txn.ReleasePageSet(func(p *buffer.Page) {
		t.bpm.UnpinPage(p.GetPageId(), dirty)
	})
	if txn.RootLatched() {
		txn.SetRootLatched(false)
		t.rootLatch.Unlock()
	}
}

// pageFromSet returns the already latched page from the transaction's page set.
// Asking for a page that is not there is a programming error; the crabbing rules
// guarantee unsafe ancestors stay latched.
func (t *BPlusTree[K]) pageFromSet(txn *transaction.Transaction, pageID common.PageID) *buffer.Page {
	for _, p := range txn.PageSet() {
		if p.GetPageId() == pageID {
			return p
		}
	}
	panic(fmt.Sprintf("page is not in the latched set, page_id: %d", pageID))
}

func (t *BPlusTree[K]) splitLeaf(leafPage *buffer.Page, txn *transaction.Transaction) {
	leaf := t.asLeaf(leafPage)

	newPage, err := t.bpm.NewPage()
	common.PanicIfErr(err)
	newLeaf := t.initLeaf(newPage, leaf.GetParentPageId())

	leaf.MoveHalfTo(newLeaf)
	newLeaf.SetNextPageId(leaf.GetNextPageId())
	leaf.SetNextPageId(newLeaf.GetPageId())

	// after the move the separator is the sibling's first key
	t.insertIntoParent(leafPage, newLeaf.KeyAt(0), newPage, txn)
	t.bpm.UnpinPage(newPage.GetPageId(), true)
}

// insertIntoParent links a freshly split sibling under the parent of the page it
// came from, splitting upwards as long as parents overflow.
func (t *BPlusTree[K]) insertIntoParent(oldPage *buffer.Page, key K, newPage *buffer.Page, txn *transaction.Transaction) {
	oldTp := treePage{page: oldPage}

	if oldTp.IsRootPage() {
		rootPage, err := t.bpm.NewPage()
		common.PanicIfErr(err)
		root := t.initInternal(rootPage, common.InvalidPageID)
		root.PopulateNewRoot(oldPage.GetPageId(), key, newPage.GetPageId())
		oldTp.SetParentPageId(rootPage.GetPageId())
		(treePage{page: newPage}).SetParentPageId(rootPage.GetPageId())

		t.rootPageID = rootPage.GetPageId()
		t.updateRootPageId()
		t.bpm.UnpinPage(rootPage.GetPageId(), true)
		return
	}

	parentPage := t.pageFromSet(txn, oldTp.GetParentPageId())
	parent := t.asInternal(parentPage)

	if parent.InsertNodeAfter(oldPage.GetPageId(), key, newPage.GetPageId()) == parent.GetMaxSize() {
		sibPage, err := t.bpm.NewPage()
		common.PanicIfErr(err)
		sib := t.initInternal(sibPage, parent.GetParentPageId())
		parent.MoveHalfTo(sib, t.bpm)

		t.insertIntoParent(parentPage, sib.KeyAt(0), sibPage, txn)
		t.bpm.UnpinPage(sibPage.GetPageId(), true)
	}
}
