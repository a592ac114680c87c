package common

// PageID identifies a physical page in the database file. Ids are allocated
// monotonically by the disk manager; page 0 is reserved for the header page.
type PageID int32

// FrameID identifies a slot in the buffer pool. Valid frame ids are in
// [0, poolSize).
type FrameID int

const (
	// InvalidPageID marks a missing page reference.
	InvalidPageID PageID = -1

	// HeaderPageID is the page that keeps the index name => root page id catalog.
	HeaderPageID PageID = 0
)
