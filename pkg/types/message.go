package types

import (
	"fmt"
	"time"
)

// NoPartitionLeaderEpoch marks a record whose batch carried no leader epoch.
const NoPartitionLeaderEpoch int32 = -1

// NullSize is reported as the serialized size of an absent key or value.
const NullSize = -1

type TimestampType int8

const (
	NoTimestampType TimestampType = iota - 1
	CreateTime
	LogAppendTime
)

func (t TimestampType) String() string {
	switch t {
	case CreateTime:
		return "CreateTime"
	case LogAppendTime:
		return "LogAppendTime"
	default:
		return "NoTimestampType"
	}
}

// Header is a single record header. A nil Value is a null header value.
type Header struct {
	Key   string
	Value []byte
}

// ConsumerRecord is a decoded record handed to the application.
type ConsumerRecord[K, V any] struct {
	Topic         string
	Partition     int32
	Offset        int64
	Timestamp     time.Time
	TimestampType TimestampType

	SerializedKeySize   int
	SerializedValueSize int

	Key     K
	Value   V
	Headers []Header

	// LeaderEpoch is NoPartitionLeaderEpoch when unknown.
	LeaderEpoch   int32
	DeliveryCount int16
}

// LeaderEpochOK returns the leader epoch and whether it is known.
func (r *ConsumerRecord[K, V]) LeaderEpochOK() (int32, bool) {
	return r.LeaderEpoch, r.LeaderEpoch != NoPartitionLeaderEpoch
}

func (r *ConsumerRecord[K, V]) String() string {
	return fmt.Sprintf("ConsumerRecord(topic=%s, partition=%d, offset=%d, %s=%d, deliveryCount=%d, key=%v, value=%v)",
		r.Topic, r.Partition, r.Offset, r.TimestampType, r.Timestamp.UnixMilli(), r.DeliveryCount, r.Key, r.Value)
}
