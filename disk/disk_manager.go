package disk

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"marmot/common"
)

// PageSize is the unit of disk io. Every read and write moves exactly one page.
const PageSize int = 4096

// FlushInstantly should normally be set to true. If it is false then data might be
// lost when power loss occurs before os flushes its io buffers, but single threaded
// tests run a lot faster thanks to io scheduling of os. Setting it to false does not
// change the validity of any test unless the test simulates a power loss.
const FlushInstantly bool = false

type IDiskManager interface {
	// ReadPage reads the page into dest which must be PageSize long. Pages that
	// were allocated but never written read back as zeroes.
	ReadPage(pageID common.PageID, dest []byte) error

	// WritePage writes a PageSize long buffer to the page's slot in the file.
	WritePage(pageID common.PageID, data []byte) error

	// AllocatePage hands out an unused page id. Freed ids are reused first.
	AllocatePage() common.PageID

	// DeallocatePage gives a page id back to the allocator.
	DeallocatePage(pageID common.PageID)

	Sync() error
	Close() error
}

var _ IDiskManager = &Manager{}

type Manager struct {
	file       *os.File
	filename   string
	nextPageID common.PageID
	freePages  []common.PageID
	mu         sync.Mutex
	log        *zap.Logger
}

// NewDiskManager opens or creates the database file. The second return value is
// true when the file was just created, in which case the reserved header page is
// already zero initialized on disk.
func NewDiskManager(file string, log *zap.Logger) (*Manager, bool, error) {
	if log == nil {
		log = zap.NewNop()
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_RDWR, os.ModePerm)
	if err != nil {
		return nil, false, errors.Wrap(err, "could not open database file")
	}

	d := &Manager{file: f, filename: file, log: log}

	stats, err := f.Stat()
	if err != nil {
		return nil, false, errors.Wrap(err, "could not stat database file")
	}

	filesize := stats.Size()
	log.Info("database file is initializing", zap.String("file", file), zap.Int64("size", filesize))

	if filesize == 0 {
		// fresh file, page 0 is reserved for the header page
		d.nextPageID = common.HeaderPageID + 1
		if err := d.WritePage(common.HeaderPageID, make([]byte, PageSize)); err != nil {
			return nil, false, err
		}
		return d, true, nil
	}

	d.nextPageID = common.PageID(filesize / int64(PageSize))
	return d, false, nil
}

func (d *Manager) ReadPage(pageID common.PageID, dest []byte) error {
	if len(dest) != PageSize {
		panic(fmt.Sprintf("destination buffer is not page sized: %d", len(dest)))
	}

	n, err := d.file.ReadAt(dest, int64(pageID)*int64(PageSize))
	if err == io.EOF {
		// the page was allocated but never flushed, its content is all zeroes
		for i := n; i < PageSize; i++ {
			dest[i] = 0
		}
		return nil
	} else if err != nil {
		return errors.Wrapf(err, "ReadPage failed, page_id: %d", pageID)
	}

	return nil
}

func (d *Manager) WritePage(pageID common.PageID, data []byte) error {
	if len(data) != PageSize {
		panic(fmt.Sprintf("written buffer is not page sized: %d", len(data)))
	}

	n, err := d.file.WriteAt(data, int64(pageID)*int64(PageSize))
	if err != nil {
		return errors.Wrapf(err, "WritePage failed, page_id: %d", pageID)
	}
	if n != PageSize {
		panic("written bytes are not equal to page size")
	}

	if FlushInstantly {
		if err := d.file.Sync(); err != nil {
			panic(err)
		}
	}

	return nil
}

func (d *Manager) AllocatePage() common.PageID {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n := len(d.freePages); n > 0 {
		pageID := d.freePages[n-1]
		d.freePages = d.freePages[:n-1]
		return pageID
	}

	pageID := d.nextPageID
	d.nextPageID++
	return pageID
}

func (d *Manager) DeallocatePage(pageID common.PageID) {
	if pageID == common.HeaderPageID {
		panic("deallocating the header page")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.freePages = append(d.freePages, pageID)
}

func (d *Manager) Sync() error {
	return d.file.Sync()
}

func (d *Manager) Close() error {
	return d.file.Close()
}
