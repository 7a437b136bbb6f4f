package fetch

import (
	"fmt"
	"sort"

	"github.com/downfa11-org/sharefetch/pkg/types"
)

type acquiredEntry struct {
	offset        int64
	deliveryCount int16
}

// acquiredCursor walks the per-offset expansion of the acquired ranges. pos
// is the index of the first entry that has not been given a disposition; it
// persists across calls, so resuming a call is just reading entries[pos].
type acquiredCursor struct {
	entries []acquiredEntry
	pos     int
}

// MaxAcquiredOffsets bounds the number of individual offsets one partition
// response may acquire.
const MaxAcquiredOffsets = 1 << 20

// countAcquired returns how many offsets ranges expand to, applying the same
// clipping as newAcquiredCursor. It fails on a negative offset or when the
// count exceeds MaxAcquiredOffsets.
func countAcquired(ranges []types.AcquiredRecords) (int, error) {
	n := int64(0)
	next := int64(-1)
	for _, r := range ranges {
		if r.LastOffset < r.BaseOffset {
			continue
		}
		if r.BaseOffset < 0 {
			return 0, fmt.Errorf("acquired range [%d, %d] has a negative offset", r.BaseOffset, r.LastOffset)
		}
		lo := max(r.BaseOffset, next)
		if r.LastOffset >= lo {
			if r.LastOffset-lo >= MaxAcquiredOffsets-n {
				return 0, fmt.Errorf("acquired ranges exceed %d offsets at [%d, %d]", MaxAcquiredOffsets, r.BaseOffset, r.LastOffset)
			}
			n += r.LastOffset - lo + 1
		}
		next = max(next, r.LastOffset+1)
	}
	return int(n), nil
}

// newAcquiredCursor expands ranges into one entry per offset. Ranges arrive
// ascending and disjoint; an overlapping range is clipped so offsets stay
// strictly increasing, and an inverted range is dropped. ranges must have
// passed countAcquired.
func newAcquiredCursor(ranges []types.AcquiredRecords) *acquiredCursor {
	n, _ := countAcquired(ranges)
	c := &acquiredCursor{entries: make([]acquiredEntry, 0, n)}
	next := int64(-1)
	for _, r := range ranges {
		if r.LastOffset < r.BaseOffset {
			continue
		}
		for off := max(r.BaseOffset, next); off <= r.LastOffset; off++ {
			c.entries = append(c.entries, acquiredEntry{offset: off, deliveryCount: r.DeliveryCount})
		}
		next = max(next, r.LastOffset+1)
	}
	return c
}

func (c *acquiredCursor) peek() (acquiredEntry, bool) {
	if c.pos >= len(c.entries) {
		return acquiredEntry{}, false
	}
	return c.entries[c.pos], true
}

func (c *acquiredCursor) advance() {
	if c.pos < len(c.entries) {
		c.pos++
	}
}

func (c *acquiredCursor) exhausted() bool { return c.pos >= len(c.entries) }

// drainRemaining returns the entries not yet given a disposition and moves the
// cursor to the end.
func (c *acquiredCursor) drainRemaining() []acquiredEntry {
	rest := c.entries[c.pos:]
	c.pos = len(c.entries)
	return rest
}

// search returns the index of the first entry with offset >= offset.
func (c *acquiredCursor) search(offset int64) int {
	return sort.Search(len(c.entries), func(i int) bool { return c.entries[i].offset >= offset })
}

// seekPast returns the entries still undecided that lie below base and those
// inside [base, last], then moves the cursor beyond last.
func (c *acquiredCursor) seekPast(base, last int64) (below, inside []acquiredEntry) {
	lo := max(c.search(base), c.pos)
	hi := max(c.search(last+1), c.pos)
	below = c.entries[c.pos:lo]
	inside = c.entries[lo:hi]
	c.pos = hi
	return below, inside
}

func (c *acquiredCursor) size() int { return len(c.entries) }
