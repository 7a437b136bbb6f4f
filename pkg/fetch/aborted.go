package fetch

import (
	"slices"

	"github.com/downfa11-org/sharefetch/pkg/types"
)

// abortedTransactions tracks the aborted transactions reported with a fetch.
// Transactions are consumed in first-offset order; once passed, a producer id
// stays in the aborted set until that producer's abort marker is seen.
type abortedTransactions struct {
	pending   []types.AbortedTransaction
	producers map[int64]struct{}
}

func newAbortedTransactions(list []types.AbortedTransaction) *abortedTransactions {
	pending := slices.Clone(list)
	slices.SortStableFunc(pending, func(a, b types.AbortedTransaction) int {
		switch {
		case a.FirstOffset < b.FirstOffset:
			return -1
		case a.FirstOffset > b.FirstOffset:
			return 1
		default:
			return 0
		}
	})
	return &abortedTransactions{pending: pending, producers: make(map[int64]struct{})}
}

// consumeThrough moves every transaction starting at or before offset into
// the aborted producer set.
func (a *abortedTransactions) consumeThrough(offset int64) {
	n := 0
	for n < len(a.pending) && a.pending[n].FirstOffset <= offset {
		a.producers[a.pending[n].ProducerID] = struct{}{}
		n++
	}
	a.pending = a.pending[n:]
}

func (a *abortedTransactions) isAborted(producerID int64) bool {
	_, ok := a.producers[producerID]
	return ok
}

func (a *abortedTransactions) markerSeen(producerID int64) {
	delete(a.producers, producerID)
}
