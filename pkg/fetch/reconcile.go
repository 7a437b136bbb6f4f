package fetch

import (
	"errors"
	"fmt"
	"time"

	"github.com/downfa11-org/sharefetch/pkg/record"
	"github.com/downfa11-org/sharefetch/pkg/serde"
	"github.com/downfa11-org/sharefetch/pkg/types"
)

// offsetMatch is the outcome of comparing a physical record offset with the
// acquired offset under the cursor.
type offsetMatch int8

const (
	// matchAcquired: the record is at the acquired offset and is delivered.
	matchAcquired offsetMatch = iota
	// matchNotAcquired: the record precedes the acquired offset and is skipped.
	matchNotAcquired
	// matchGap: the acquired offset has no record and is acknowledged as a gap.
	matchGap
)

func compareOffsets(physical, acquired int64) offsetMatch {
	switch {
	case physical == acquired:
		return matchAcquired
	case physical < acquired:
		return matchNotAcquired
	default:
		return matchGap
	}
}

// FetchRecords decodes up to maxRecords acquired records from f.
//
// An error deferred by the previous call is reported first, alone: a
// deserialization failure releases its offset, a corrupt batch rejects the
// batch's acquired offsets. Errors found during this call are attached to the
// returned batch when nothing was decoded yet, and deferred otherwise so the
// records already decoded are not lost. Once f is consumed FetchRecords
// returns an empty batch.
func FetchRecords[K, V any](f *ShareCompletedFetch, d serde.Deserializers[K, V], maxRecords int, checkCrcs bool) *InFlightBatch[K, V] {
	batch := newInFlightBatch[K, V](f.partition)

	if f.pending.isSet() {
		p := f.pending.take()
		switch p.kind {
		case pendingBatchReject:
			f.rejectBatch(batch.addAcknowledgement, p.base, p.last)
			batch.setErr(p.err)
		case pendingRecordRelease:
			batch.addAcknowledgement(p.offset, types.AckRelease)
			batch.setErr(&types.ReleasedRecordError{Partition: f.partition, Cause: p.err})
		}
		return batch
	}

	if f.consumed {
		return batch
	}

	for batch.NumRecords() < maxRecords {
		if f.acquired.exhausted() {
			// nothing left that could be delivered
			f.Drain()
			break
		}

		rec, err := f.nextFetchedRecord(checkCrcs)
		if err != nil {
			f.handleCorruption(batch.IsEmpty(), batch.addAcknowledgement, batch.setErr, err)
			break
		}
		if rec == nil {
			for _, e := range f.acquired.drainRemaining() {
				batch.addGap(e.offset)
			}
			break
		}

		entry, ok := f.walkAcquired(rec.Offset, batch.addGap)
		if !ok {
			continue
		}
		f.acquired.advance()

		cr, err := parseRecord(f, d, rec, entry.deliveryCount)
		if err != nil {
			if batch.IsEmpty() {
				batch.addAcknowledgement(rec.Offset, types.AckRelease)
				batch.setErr(err)
			} else {
				f.pending.deferRecord(err, rec.Offset)
			}
			break
		}
		batch.addRecord(cr)
	}

	if !f.consumed && !f.pending.isSet() && f.acquired.exhausted() {
		f.Drain()
	}
	return batch
}

// walkAcquired moves the acquired cursor up to offset, emitting a gap for
// every acquired offset passed without a record. It returns the entry at
// offset when that offset is acquired.
func (f *ShareCompletedFetch) walkAcquired(offset int64, gap func(int64)) (acquiredEntry, bool) {
	for {
		entry, ok := f.acquired.peek()
		if !ok {
			return acquiredEntry{}, false
		}
		switch compareOffsets(offset, entry.offset) {
		case matchAcquired:
			return entry, true
		case matchNotAcquired:
			return acquiredEntry{}, false
		case matchGap:
			gap(entry.offset)
			f.acquired.advance()
		}
	}
}

// handleCorruption rejects the failing batch now when the result is still
// empty, or defers the rejection to the next call. The rest of the batch is
// not read.
func (f *ShareCompletedFetch) handleCorruption(empty bool, ack func(int64, types.AcknowledgeType), setErr func(error), err error) {
	f.closeRecordStream()
	base, last := f.currentBatch.BaseOffset(), f.currentBatch.LastOffset()
	if empty {
		f.rejectBatch(ack, base, last)
		setErr(err)
		return
	}
	f.pending.deferBatch(err, base, last)
}

// rejectBatch rejects every undecided acquired offset in [base, last].
// Undecided offsets below base had no record in any earlier batch and are
// acknowledged as gaps.
func (f *ShareCompletedFetch) rejectBatch(ack func(int64, types.AcknowledgeType), base, last int64) {
	below, inside := f.acquired.seekPast(base, last)
	for _, e := range below {
		ack(e.offset, types.AckGap)
	}
	for _, e := range inside {
		ack(e.offset, types.AckReject)
	}
}

func parseRecord[K, V any](f *ShareCompletedFetch, d serde.Deserializers[K, V], rec *record.Record, deliveryCount int16) (*types.ConsumerRecord[K, V], error) {
	b := f.currentBatch
	topic := f.partition.Topic

	cr := &types.ConsumerRecord[K, V]{
		Topic:               topic,
		Partition:           f.partition.Partition,
		Offset:              rec.Offset,
		TimestampType:       b.TimestampType(),
		SerializedKeySize:   types.NullSize,
		SerializedValueSize: types.NullSize,
		Headers:             rec.Headers,
		LeaderEpoch:         b.PartitionLeaderEpoch(),
		DeliveryCount:       deliveryCount,
	}
	if rec.Timestamp >= 0 {
		cr.Timestamp = time.UnixMilli(rec.Timestamp)
	}

	if rec.Key != nil {
		cr.SerializedKeySize = len(rec.Key)
		key, err := deserialize(d.Key, topic, rec.Headers, rec.Key)
		if err != nil {
			return nil, f.deserializationError(d, rec.Offset, err)
		}
		cr.Key = key
	}
	if rec.Value != nil {
		cr.SerializedValueSize = len(rec.Value)
		value, err := deserialize(d.Value, topic, rec.Headers, rec.Value)
		if err != nil {
			return nil, f.deserializationError(d, rec.Offset, err)
		}
		cr.Value = value
	}
	return cr, nil
}

var errNoDeserializer = errors.New("no deserializer configured")

func deserialize[T any](d serde.Deserializer[T], topic string, headers []types.Header, data []byte) (v T, err error) {
	if d == nil {
		return v, errNoDeserializer
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deserializer panicked: %v", r)
		}
	}()
	return d.Deserialize(topic, headers, data)
}

func (f *ShareCompletedFetch) deserializationError(d any, offset int64, cause error) error {
	f.log.Error("Deserializers with error: %+v", d)
	return &types.RecordDeserializationError{Partition: f.partition, Offset: offset, Cause: cause}
}
