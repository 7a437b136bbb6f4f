// Package consumer drives completed share fetches: it buffers them, collects
// records across partitions under a per-poll budget and turns the result into
// acknowledgements.
package consumer

import (
	"time"

	"github.com/downfa11-org/sharefetch/pkg/fetch"
	"github.com/downfa11-org/sharefetch/pkg/metrics"
	"github.com/downfa11-org/sharefetch/pkg/serde"
	"github.com/downfa11-org/sharefetch/util"
)

// Collector reads records out of a FetchBuffer, one partition at a time, up
// to MaxPollRecords per Collect call.
type Collector[K, V any] struct {
	log            *util.Logger
	deserializers  serde.Deserializers[K, V]
	maxPollRecords int
	checkCrcs      bool
}

func NewCollector[K, V any](log *util.Logger, d serde.Deserializers[K, V], maxPollRecords int, checkCrcs bool) *Collector[K, V] {
	if log == nil {
		log = util.NewLogger("[COLLECTOR] ")
	}
	return &Collector[K, V]{
		log:            log,
		deserializers:  d,
		maxPollRecords: maxPollRecords,
		checkCrcs:      checkCrcs,
	}
}

// Collect drains up to maxPollRecords records from buf. Fetches are read in
// arrival order; a fetch is left once it is consumed. When a partition
// reports an error the poll stops there and the error is returned together
// with everything collected so far, including that partition's
// acknowledgements. A partition-level error found after records were
// collected is held back for the next poll.
func (c *Collector[K, V]) Collect(buf *FetchBuffer) (*ShareFetch[K, V], error) {
	start := time.Now()
	sf := NewShareFetch[K, V]()
	remaining := c.maxPollRecords
	defer func() {
		metrics.ObservePoll(sf.NumRecords(), time.Since(start).Seconds())
	}()

	for remaining > 0 {
		next := buf.NextInLine()
		if next == nil || next.IsConsumed() {
			completed := buf.Peek()
			if completed == nil {
				break
			}
			if !completed.Initialized() {
				if err := c.initialize(completed); err != nil {
					if !sf.IsEmpty() {
						// reported by the next poll, which starts here
						return sf, nil
					}
					buf.Poll()
					completed.Drain()
					return sf, err
				}
			}
			buf.SetNextInLine(completed)
			buf.Poll()
			continue
		}

		tp := next.Partition()
		batch := fetch.FetchRecords(next, c.deserializers, remaining, c.checkCrcs)
		sf.Add(tp, batch)
		metrics.RecordAcknowledgements(tp.Topic, batch.Acknowledgements())
		metrics.RecordsDelivered.WithLabelValues(tp.Topic).Add(float64(batch.NumRecords()))

		if err := batch.Err(); err != nil {
			metrics.RecordError(tp.Topic, err)
			c.log.Warn("Error fetching records from %s: %v", tp, err)
			return sf, err
		}
		if batch.NumRecords() == 0 && len(batch.Acknowledgements()) == 0 {
			next.Drain()
		}
		remaining -= batch.NumRecords()
	}
	return sf, nil
}

// initialize checks the partition-level error of a fetch seen for the first
// time. A fetch with an error is not marked initialized.
func (c *Collector[K, V]) initialize(f *fetch.ShareCompletedFetch) error {
	if err := f.PartitionError(); err != nil {
		metrics.RecordError(f.Partition().Topic, err)
		c.log.Warn("Partition %s returned an error: %v", f.Partition(), err)
		return err
	}
	f.SetInitialized()
	return nil
}
