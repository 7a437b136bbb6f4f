package fetch

import "github.com/downfa11-org/sharefetch/pkg/types"

// InFlightBatch is the result of one FetchRecords call for a partition: the
// decoded records, acknowledgements for offsets that could not be delivered,
// and at most one error. Records are implicitly accepted and do not appear in
// the acknowledgements.
type InFlightBatch[K, V any] struct {
	Partition types.TopicIDPartition

	records []*types.ConsumerRecord[K, V]
	acks    []types.Acknowledgement
	err     error
}

func newInFlightBatch[K, V any](tp types.TopicIDPartition) *InFlightBatch[K, V] {
	return &InFlightBatch[K, V]{Partition: tp}
}

func (b *InFlightBatch[K, V]) addRecord(r *types.ConsumerRecord[K, V]) {
	b.records = append(b.records, r)
}

func (b *InFlightBatch[K, V]) addAcknowledgement(offset int64, typ types.AcknowledgeType) {
	b.acks = append(b.acks, types.Acknowledgement{Offset: offset, Type: typ})
}

func (b *InFlightBatch[K, V]) addGap(offset int64) {
	b.addAcknowledgement(offset, types.AckGap)
}

func (b *InFlightBatch[K, V]) setErr(err error) { b.err = err }

func (b *InFlightBatch[K, V]) Records() []*types.ConsumerRecord[K, V] { return b.records }

// Acknowledgements are in emission order.
func (b *InFlightBatch[K, V]) Acknowledgements() []types.Acknowledgement { return b.acks }

func (b *InFlightBatch[K, V]) Err() error { return b.err }

func (b *InFlightBatch[K, V]) NumRecords() int { return len(b.records) }

// IsEmpty reports whether no records were decoded. A batch holding only
// acknowledgements or an error is still empty.
func (b *InFlightBatch[K, V]) IsEmpty() bool { return len(b.records) == 0 }
