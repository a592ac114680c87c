package buffer

import (
	"fmt"
	"sync"

	"marmot/common"
)

var _ IReplacer = &LRUKReplacer{}

// LRUKReplacer implements the LRU-K eviction policy. A frame's backward
// K-distance is the age of its k-th most recent access; frames with fewer than k
// recorded accesses have infinite distance. The victim is the evictable frame with
// the largest distance. Ties, including between frames of infinite distance, go to
// the frame with the earliest first recorded access. The reference breaks infinite
// ties on the most recent access instead; the two agree only for single-access
// frames, and first-access is the classic LRU rule, so that is what is used here.
type LRUKReplacer struct {
	numFrames int
	k         int
	timestamp uint64
	entries   map[common.FrameID]*frameEntry
	currSize  int
	latch     sync.Mutex
}

type frameEntry struct {
	history   []uint64
	evictable bool
}

func NewLRUKReplacer(numFrames int, k int) *LRUKReplacer {
	return &LRUKReplacer{
		numFrames: numFrames,
		k:         k,
		entries:   make(map[common.FrameID]*frameEntry),
	}
}

func (l *LRUKReplacer) checkFrame(frameID common.FrameID) {
	if frameID < 0 || int(frameID) >= l.numFrames {
		panic(fmt.Sprintf("frame id is out of range: %d", frameID))
	}
}

func (l *LRUKReplacer) RecordAccess(frameID common.FrameID) {
	l.checkFrame(frameID)
	l.latch.Lock()
	defer l.latch.Unlock()

	e, ok := l.entries[frameID]
	if !ok {
		e = &frameEntry{}
		l.entries[frameID] = e
	}
	e.history = append(e.history, l.timestamp)
	l.timestamp++
}

func (l *LRUKReplacer) SetEvictable(frameID common.FrameID, evictable bool) {
	l.checkFrame(frameID)
	l.latch.Lock()
	defer l.latch.Unlock()

	e, ok := l.entries[frameID]
	if !ok || e.evictable == evictable {
		return
	}

	e.evictable = evictable
	if evictable {
		l.currSize++
	} else {
		l.currSize--
	}
}

func (l *LRUKReplacer) Evict() (common.FrameID, bool) {
	l.latch.Lock()
	defer l.latch.Unlock()

	var victim common.FrameID
	found := false

	// the best candidate so far, split into the two distance classes
	victimInf := false     // victim has fewer than k accesses
	var victimKth uint64   // timestamp of the k-th most recent access otherwise
	var victimFirst uint64 // first access, the tie break

	for frameID, e := range l.entries {
		if !e.evictable || len(e.history) == 0 {
			continue
		}

		inf := len(e.history) < l.k
		var kth uint64
		if !inf {
			kth = e.history[len(e.history)-l.k]
		}
		first := e.history[0]

		better := false
		switch {
		case !found:
			better = true
		case inf && !victimInf:
			better = true
		case inf == victimInf && inf:
			better = first < victimFirst
		case inf == victimInf:
			// both finite, the older k-th access means the larger distance
			if kth != victimKth {
				better = kth < victimKth
			} else {
				better = first < victimFirst
			}
		}

		if better {
			victim, victimInf, victimKth, victimFirst = frameID, inf, kth, first
			found = true
		}
	}

	if !found {
		return 0, false
	}

	delete(l.entries, victim)
	l.currSize--
	return victim, true
}

func (l *LRUKReplacer) Remove(frameID common.FrameID) {
	l.checkFrame(frameID)
	l.latch.Lock()
	defer l.latch.Unlock()

	e, ok := l.entries[frameID]
	if !ok || !e.evictable {
		return
	}

	delete(l.entries, frameID)
	l.currSize--
}

func (l *LRUKReplacer) Size() int {
	l.latch.Lock()
	defer l.latch.Unlock()
	return l.currSize
}
