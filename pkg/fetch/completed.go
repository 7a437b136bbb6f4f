// Package fetch reconciles one partition's share fetch response against the
// offsets the broker acquired for this consumer.
package fetch

import (
	"fmt"

	"github.com/downfa11-org/sharefetch/pkg/metrics"
	"github.com/downfa11-org/sharefetch/pkg/record"
	"github.com/downfa11-org/sharefetch/pkg/types"
	"github.com/downfa11-org/sharefetch/util"
)

// ShareCompletedFetch owns the data returned for one partition by a share
// fetch. Records are decoded lazily across repeated FetchRecords calls, each
// bounded by a record budget, and every acquired offset ends up either
// delivered or acknowledged as a gap, a release or a rejection.
//
// A ShareCompletedFetch is not safe for concurrent use; the consumer that
// polls it owns it.
type ShareCompletedFetch struct {
	partition      types.TopicIDPartition
	isolation      types.IsolationLevel
	requestVersion int16
	errorCode      int16
	errorMessage   string

	log     *util.Logger
	buffers record.BufferSupplier

	batches   []record.Batch
	nextBatch int
	acquired  *acquiredCursor
	aborted   *abortedTransactions

	currentBatch record.Batch
	records      record.RecordStream

	pending     pendingError
	consumed    bool
	initialized bool
}

// NewShareCompletedFetch frames the partition's record payload and expands
// its acquired ranges. A payload that cannot be framed, or acquired ranges
// with a negative offset or more than MaxAcquiredOffsets offsets, are
// returned as an error wrapping types.ErrInvalidRecords.
func NewShareCompletedFetch(
	log *util.Logger,
	buffers record.BufferSupplier,
	tp types.TopicIDPartition,
	data types.PartitionData,
	isolation types.IsolationLevel,
	requestVersion int16,
) (*ShareCompletedFetch, error) {
	batches, err := record.ReadBatches(data.Records)
	if err != nil {
		return nil, fmt.Errorf("partition %s: %w", tp, err)
	}
	if _, err := countAcquired(data.AcquiredRecords); err != nil {
		return nil, fmt.Errorf("partition %s: %w", tp, &types.InvalidRecordsError{Position: -1, Reason: err.Error()})
	}
	if log == nil {
		log = util.NewLoggerFrom(nil)
	}
	if buffers == nil {
		buffers = record.NoCaching
	}

	f := &ShareCompletedFetch{
		partition:      tp,
		isolation:      isolation,
		requestVersion: requestVersion,
		errorCode:      data.ErrorCode,
		errorMessage:   data.ErrorMessage,
		log:            log.With("partition", tp.String()),
		buffers:        buffers,
		batches:        batches,
		acquired:       newAcquiredCursor(data.AcquiredRecords),
	}
	if isolation == types.ReadCommitted {
		f.aborted = newAbortedTransactions(data.AbortedTransactions)
	}
	return f, nil
}

func (f *ShareCompletedFetch) Partition() types.TopicIDPartition     { return f.partition }
func (f *ShareCompletedFetch) IsolationLevel() types.IsolationLevel { return f.isolation }

// RequestVersion is the share fetch request version the response answers.
func (f *ShareCompletedFetch) RequestVersion() int16 { return f.requestVersion }

// AcquiredCount is the number of individual offsets acquired for this fetch.
func (f *ShareCompletedFetch) AcquiredCount() int { return f.acquired.size() }

// PartitionError returns the partition-level error carried by the response,
// or nil when the error code is zero.
func (f *ShareCompletedFetch) PartitionError() error {
	if f.errorCode == 0 {
		return nil
	}
	return &types.PartitionError{Partition: f.partition, Code: f.errorCode, Message: f.errorMessage}
}

// IsConsumed reports whether the fetch has been drained. A consumed fetch
// returns only empty batches.
func (f *ShareCompletedFetch) IsConsumed() bool { return f.consumed }

// Initialized reports whether the collector has already checked the
// partition-level error of this fetch.
func (f *ShareCompletedFetch) Initialized() bool { return f.initialized }

// SetInitialized marks the fetch as checked once its partition error code
// was found to be zero, so later polls read records without checking again.
func (f *ShareCompletedFetch) SetInitialized() { f.initialized = true }

// Drain releases the open record stream, drops any deferred error and marks
// the fetch consumed. Later FetchRecords calls return empty batches. Drain may
// be called any number of times.
func (f *ShareCompletedFetch) Drain() {
	if f.consumed {
		return
	}
	f.closeRecordStream()
	f.pending.clear()
	f.consumed = true
}

func (f *ShareCompletedFetch) closeRecordStream() {
	if f.records != nil {
		f.records.Close()
		f.records = nil
	}
}

// nextFetchedRecord returns the next data record, moving across batches as
// they are exhausted. It returns nil once every batch has been read, after
// draining the fetch. Integrity failures are returned as
// *types.CorruptRecordError.
func (f *ShareCompletedFetch) nextFetchedRecord(checkCrcs bool) (*record.Record, error) {
	for {
		if f.records == nil || !f.records.HasNext() {
			f.closeRecordStream()

			if f.nextBatch >= len(f.batches) {
				f.Drain()
				return nil, nil
			}

			b := f.batches[f.nextBatch]
			f.nextBatch++
			f.currentBatch = b

			if checkCrcs && b.Magic() >= 2 {
				if err := b.EnsureValid(); err != nil {
					return nil, f.corruptBatch(b, err)
				}
			}

			if f.isolation == types.ReadCommitted && b.HasProducerID() {
				f.aborted.consumeThrough(b.LastOffset())

				producerID := b.ProducerID()
				marker, err := f.containsAbortMarker(b)
				if err != nil {
					return nil, f.corruptBatch(b, err)
				}
				if marker {
					f.aborted.markerSeen(producerID)
				} else if b.IsTransactional() && f.aborted.isAborted(producerID) {
					f.log.Debug("Skipping aborted record batch with producerId %d and offsets %d to %d",
						producerID, b.BaseOffset(), b.LastOffset())
					metrics.AbortedBatchesSkipped.WithLabelValues(f.partition.Topic).Inc()
					continue
				}
			}

			stream, err := b.Records(f.buffers)
			if err != nil {
				return nil, f.corruptBatch(b, err)
			}
			f.records = stream
			continue
		}

		rec, err := f.records.Next()
		if err != nil {
			return nil, f.corruptBatch(f.currentBatch, err)
		}
		if checkCrcs {
			if err := rec.EnsureValid(); err != nil {
				return nil, &types.CorruptRecordError{Partition: f.partition.String(), Offset: rec.Offset, Cause: err}
			}
		}

		// control records are never returned
		if !f.currentBatch.IsControl() {
			return rec, nil
		}
	}
}

func (f *ShareCompletedFetch) corruptBatch(b record.Batch, cause error) error {
	return &types.CorruptRecordError{Partition: f.partition.String(), Offset: b.BaseOffset(), Batch: true, Cause: cause}
}

// containsAbortMarker reports whether b is a control batch whose first record
// is an abort marker.
func (f *ShareCompletedFetch) containsAbortMarker(b record.Batch) (bool, error) {
	if !b.IsControl() {
		return false, nil
	}
	stream, err := b.Records(f.buffers)
	if err != nil {
		return false, err
	}
	defer stream.Close()

	if !stream.HasNext() {
		return false, nil
	}
	first, err := stream.Next()
	if err != nil {
		return false, err
	}
	typ, err := record.ParseControlRecordType(first.Key)
	if err != nil {
		return false, err
	}
	return typ == record.ControlAbort, nil
}
