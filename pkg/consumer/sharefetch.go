package consumer

import (
	"fmt"

	"github.com/downfa11-org/sharefetch/pkg/fetch"
	"github.com/downfa11-org/sharefetch/pkg/offset"
	"github.com/downfa11-org/sharefetch/pkg/types"
)

type partitionBatch[K, V any] struct {
	records []*types.ConsumerRecord[K, V]
	acks    []types.Acknowledgement
	// explicit acknowledgements made by the application for delivered records
	explicit map[int64]types.AcknowledgeType
	taken    bool
}

// ShareFetch is the result of one poll: records and acknowledgements grouped
// by partition, partitions in the order they were first added.
type ShareFetch[K, V any] struct {
	order   []types.TopicIDPartition
	batches map[types.TopicIDPartition]*partitionBatch[K, V]
}

func NewShareFetch[K, V any]() *ShareFetch[K, V] {
	return &ShareFetch[K, V]{batches: make(map[types.TopicIDPartition]*partitionBatch[K, V])}
}

// Add merges an in-flight batch into the fetch.
func (s *ShareFetch[K, V]) Add(tp types.TopicIDPartition, b *fetch.InFlightBatch[K, V]) {
	pb, ok := s.batches[tp]
	if !ok {
		pb = &partitionBatch[K, V]{}
		s.batches[tp] = pb
		s.order = append(s.order, tp)
	}
	pb.records = append(pb.records, b.Records()...)
	pb.acks = append(pb.acks, b.Acknowledgements()...)
}

func (s *ShareFetch[K, V]) Partitions() []types.TopicIDPartition { return s.order }

// Records returns every record, partition by partition.
func (s *ShareFetch[K, V]) Records() []*types.ConsumerRecord[K, V] {
	var out []*types.ConsumerRecord[K, V]
	for _, tp := range s.order {
		out = append(out, s.batches[tp].records...)
	}
	return out
}

func (s *ShareFetch[K, V]) RecordsFor(tp types.TopicIDPartition) []*types.ConsumerRecord[K, V] {
	if pb, ok := s.batches[tp]; ok {
		return pb.records
	}
	return nil
}

func (s *ShareFetch[K, V]) NumRecords() int {
	n := 0
	for _, pb := range s.batches {
		n += len(pb.records)
	}
	return n
}

func (s *ShareFetch[K, V]) IsEmpty() bool { return s.NumRecords() == 0 }

// Acknowledge overrides the implicit ACCEPT of a delivered record.
func (s *ShareFetch[K, V]) Acknowledge(tp types.TopicIDPartition, offset int64, typ types.AcknowledgeType) error {
	if typ == types.AckGap {
		return fmt.Errorf("records cannot be acknowledged as %s", typ)
	}
	pb, ok := s.batches[tp]
	if !ok {
		return fmt.Errorf("partition %s is not part of this fetch", tp)
	}
	if pb.taken {
		return fmt.Errorf("acknowledgements of %s were already taken", tp)
	}
	for _, r := range pb.records {
		if r.Offset == offset {
			if pb.explicit == nil {
				pb.explicit = make(map[int64]types.AcknowledgeType)
			}
			pb.explicit[offset] = typ
			return nil
		}
	}
	return fmt.Errorf("offset %d of %s was not delivered in this fetch", offset, tp)
}

// TakeAcknowledgements returns the acknowledgements of every partition:
// delivered records are ACCEPTed unless acknowledged otherwise, followed by
// the intents emitted while reconciling. Later calls return nothing for the
// same fetch.
func (s *ShareFetch[K, V]) TakeAcknowledgements() map[types.TopicIDPartition]*offset.Acknowledgements {
	out := make(map[types.TopicIDPartition]*offset.Acknowledgements, len(s.order))
	for _, tp := range s.order {
		pb := s.batches[tp]
		acks := offset.NewAcknowledgements()
		if !pb.taken {
			for _, r := range pb.records {
				typ := types.AckAccept
				if explicit, ok := pb.explicit[r.Offset]; ok {
					typ = explicit
				}
				acks.Add(r.Offset, typ)
			}
			for _, a := range pb.acks {
				acks.Add(a.Offset, a.Type)
			}
		}
		pb.taken = true
		pb.acks = nil
		pb.explicit = nil
		if !acks.IsEmpty() {
			out[tp] = acks
		}
	}
	return out
}
