package buffer

import "marmot/common"

// IReplacer picks victim frames for the buffer pool. Only frames marked evictable
// may be chosen; pinned frames stay tracked so their access history keeps
// accumulating.
type IReplacer interface {
	// RecordAccess notes an access to the frame at the current timestamp. An
	// untracked frame becomes tracked and non evictable.
	RecordAccess(frameID common.FrameID)

	// SetEvictable toggles whether the frame may be chosen as victim.
	SetEvictable(frameID common.FrameID, evictable bool)

	// Evict picks a victim among the evictable frames and forgets it. ok is
	// false when nothing is evictable, which is a recoverable condition for the
	// pool, not an error.
	Evict() (frameID common.FrameID, ok bool)

	// Remove forgets a frame. No-op when the frame is untracked or not
	// evictable.
	Remove(frameID common.FrameID)

	// Size returns the number of evictable frames.
	Size() int
}
