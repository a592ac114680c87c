package transaction

import (
	"github.com/google/uuid"

	"marmot/buffer"
	"marmot/common"
)

// LatchMode tells how a page in the page set was latched.
type LatchMode int

const (
	Shared LatchMode = iota
	Exclusive
)

type latchedPage struct {
	page *buffer.Page
	mode LatchMode
}

// Transaction is passed opaquely through index operations. It carries the pages
// latched so far during a tree descent, in acquisition order, and the pages the
// operation emptied that must be deleted once all latches are dropped. It is not
// a transaction in the ACID sense; the lock manager and recovery live elsewhere.
type Transaction struct {
	id           uuid.UUID
	pages        []latchedPage
	deletedPages []common.PageID
	rootLatched  bool
}

func New() *Transaction {
	return &Transaction{id: uuid.New()}
}

func (t *Transaction) GetID() uuid.UUID {
	return t.id
}

// AddIntoPageSet appends a latched page. Pages are released in reverse order.
func (t *Transaction) AddIntoPageSet(p *buffer.Page, mode LatchMode) {
	t.pages = append(t.pages, latchedPage{page: p, mode: mode})
}

// PageSet returns the latched pages in acquisition order.
func (t *Transaction) PageSet() []*buffer.Page {
	pages := make([]*buffer.Page, len(t.pages))
	for i, lp := range t.pages {
		pages[i] = lp.page
	}
	return pages
}

// ReleasePageSet unlatches every page in reverse acquisition order and calls
// release for each so the owner can unpin it.
func (t *Transaction) ReleasePageSet(release func(p *buffer.Page)) {
	for i := len(t.pages) - 1; i >= 0; i-- {
		lp := t.pages[i]
		if lp.mode == Exclusive {
			lp.page.WUnlatch()
		} else {
			lp.page.RUnLatch()
		}
		if release != nil {
			release(lp.page)
		}
	}
	t.pages = t.pages[:0]
}

// AddIntoDeletedPageSet remembers a page that became empty during the operation.
func (t *Transaction) AddIntoDeletedPageSet(pageID common.PageID) {
	t.deletedPages = append(t.deletedPages, pageID)
}

func (t *Transaction) DeletedPageSet() []common.PageID {
	return t.deletedPages
}

func (t *Transaction) ClearDeletedPageSet() {
	t.deletedPages = t.deletedPages[:0]
}

// SetRootLatched marks that the operation holds the tree's root pointer latch.
func (t *Transaction) SetRootLatched(v bool) {
	t.rootLatched = v
}

func (t *Transaction) RootLatched() bool {
	return t.rootLatched
}
