package types

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRecords marks a response payload that cannot be framed into
	// record batches.
	ErrInvalidRecords = errors.New("invalid records")
	// ErrCorruptRecord marks a batch or record that failed integrity checks.
	ErrCorruptRecord = errors.New("corrupt record")
	// ErrSerialization marks a key or value that could not be deserialized.
	ErrSerialization = errors.New("serialization error")
	// ErrPartition marks an error code returned for the partition itself.
	ErrPartition = errors.New("partition error")
)

// InvalidRecordsError is a framing failure of the raw payload, or a response
// whose acquired ranges cannot be used. Position is -1 when the failure is
// not tied to a byte of the payload.
type InvalidRecordsError struct {
	Position int
	Reason   string
}

func (e *InvalidRecordsError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("invalid records: %s", e.Reason)
	}
	return fmt.Sprintf("invalid record batch at byte %d: %s", e.Position, e.Reason)
}

func (e *InvalidRecordsError) Unwrap() error { return ErrInvalidRecords }

// CorruptRecordError is a checksum or structural failure of a batch (Batch
// set) or of a single record inside it.
type CorruptRecordError struct {
	Partition string
	Offset    int64
	Batch     bool
	Cause     error
}

func (e *CorruptRecordError) Error() string {
	what := "Record"
	if e.Batch {
		what = "Record batch"
	}
	return fmt.Sprintf("%s for partition %s at offset %d is invalid, cause: %v", what, e.Partition, e.Offset, e.Cause)
}

func (e *CorruptRecordError) Unwrap() []error { return []error{ErrCorruptRecord, e.Cause} }

// RecordDeserializationError reports a key or value decoder failure.
type RecordDeserializationError struct {
	Partition TopicIDPartition
	Offset    int64
	Cause     error
}

func (e *RecordDeserializationError) Error() string {
	return fmt.Sprintf("Error deserializing key/value for partition %s at offset %d. The record has been released.: %v",
		e.Partition, e.Offset, e.Cause)
}

func (e *RecordDeserializationError) Unwrap() []error { return []error{ErrSerialization, e.Cause} }

// ReleasedRecordError wraps a record error that was held back from an earlier
// poll and is reported once its offset has been released.
type ReleasedRecordError struct {
	Partition TopicIDPartition
	Cause     error
}

func (e *ReleasedRecordError) Error() string {
	return fmt.Sprintf("Received exception when fetching the next record from %s. The record has been released.: %v",
		e.Partition, e.Cause)
}

func (e *ReleasedRecordError) Unwrap() error { return e.Cause }

// PartitionError carries an error code the broker returned for a partition.
type PartitionError struct {
	Partition TopicIDPartition
	Code      int16
	Message   string
}

func (e *PartitionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("partition %s returned error code %d", e.Partition, e.Code)
	}
	return fmt.Sprintf("partition %s returned error code %d: %s", e.Partition, e.Code, e.Message)
}

func (e *PartitionError) Unwrap() error { return ErrPartition }

// ErrorKind returns a short label for err, used for metrics.
func ErrorKind(err error) string {
	var released *ReleasedRecordError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &released):
		return "released"
	case errors.Is(err, ErrCorruptRecord):
		return "corrupt"
	case errors.Is(err, ErrSerialization):
		return "deserialization"
	case errors.Is(err, ErrPartition):
		return "partition"
	case errors.Is(err, ErrInvalidRecords):
		return "invalid_records"
	default:
		return "unknown"
	}
}
