package bench

import (
	"fmt"

	"github.com/downfa11-org/sharefetch/pkg/consumer"
	"github.com/downfa11-org/sharefetch/pkg/fetch"
	"github.com/downfa11-org/sharefetch/pkg/record"
	"github.com/downfa11-org/sharefetch/pkg/serde"
	"github.com/downfa11-org/sharefetch/pkg/types"
	"github.com/downfa11-org/sharefetch/util"
	"github.com/google/uuid"
)

// BenchClient reconciles synthetic share fetch responses for a set of
// partitions, the way one consumer would.
type BenchClient struct {
	Topic          string
	TopicID        uuid.UUID
	NumRecords     int
	BatchSize      int
	ValueSize      int
	GapEvery       int
	MaxPollRecords int
	Codec          util.Codec
	CheckCrcs      bool

	buffers record.BufferSupplier
}

// ClientStats counts what one client saw across all of its polls.
type ClientStats struct {
	Polls    int
	Records  int
	Accepted int
	Released int
	Rejected int
	Gaps     int
	Errors   int
}

func (s *ClientStats) merge(o ClientStats) {
	s.Polls += o.Polls
	s.Records += o.Records
	s.Accepted += o.Accepted
	s.Released += o.Released
	s.Rejected += o.Rejected
	s.Gaps += o.Gaps
	s.Errors += o.Errors
}

// BuildPartition produces one partition response covering offsets
// [0, NumRecords). Every GapEvery-th offset is missing, as after compaction,
// and the whole range is acquired.
func (c *BenchClient) BuildPartition(partition int32) (types.PartitionData, error) {
	batchSize := c.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	value := make([]byte, c.ValueSize)
	for i := range value {
		value[i] = byte('a' + i%26)
	}

	var payload []byte
	for base := 0; base < c.NumRecords; base += batchSize {
		last := min(base+batchSize, c.NumRecords) - 1
		b := record.NewBatchBuilder(int64(base)).Compression(c.Codec).LastOffset(int64(last))
		appended := 0
		for off := base; off <= last; off++ {
			if c.GapEvery > 0 && off%c.GapEvery == c.GapEvery-1 {
				continue
			}
			b.Append(int64(off), 1_700_000_000_000+int64(off), []byte(fmt.Sprintf("key-%d", off)), value)
			appended++
		}
		if appended == 0 {
			continue
		}
		raw, err := b.Build()
		if err != nil {
			return types.PartitionData{}, fmt.Errorf("[Part%d] build batch at %d: %w", partition, base, err)
		}
		payload = append(payload, raw...)
	}

	data := types.PartitionData{PartitionIndex: partition, Records: payload}
	if c.NumRecords > 0 {
		data.AcquiredRecords = []types.AcquiredRecords{
			{BaseOffset: 0, LastOffset: int64(c.NumRecords - 1), DeliveryCount: 1},
		}
	}
	return data, nil
}

// RunConsumerPhase builds a response for every partition, buffers them and
// collects until the buffer is exhausted.
func (c *BenchClient) RunConsumerPhase(partitions []int32) (ClientStats, error) {
	var stats ClientStats
	if c.buffers == nil {
		c.buffers = record.NewBufferPool(64 << 10)
	}

	buf := consumer.NewFetchBuffer()
	defer buf.Close()
	for _, p := range partitions {
		data, err := c.BuildPartition(p)
		if err != nil {
			return stats, err
		}
		tp := types.TopicIDPartition{TopicID: c.TopicID, Topic: c.Topic, Partition: p}
		f, err := fetch.NewShareCompletedFetch(nil, c.buffers, tp, data, types.ReadUncommitted, 1)
		if err != nil {
			return stats, fmt.Errorf("[Part%d] %w", p, err)
		}
		buf.Add(f)
	}

	collector := consumer.NewCollector[[]byte, []byte](nil, serde.New(serde.Bytes(), serde.Bytes()), c.MaxPollRecords, c.CheckCrcs)
	for !c.done(buf) {
		sf, err := collector.Collect(buf)
		stats.Polls++
		stats.Records += sf.NumRecords()
		if err != nil {
			stats.Errors++
			util.Debug("poll %d returned error: %v", stats.Polls, err)
		}
		for _, acks := range sf.TakeAcknowledgements() {
			for _, off := range acks.Offsets() {
				typ, _ := acks.Get(off)
				switch typ {
				case types.AckAccept:
					stats.Accepted++
				case types.AckRelease:
					stats.Released++
				case types.AckReject:
					stats.Rejected++
				case types.AckGap:
					stats.Gaps++
				}
			}
		}
	}
	return stats, nil
}

func (c *BenchClient) done(buf *consumer.FetchBuffer) bool {
	next := buf.NextInLine()
	return buf.IsEmpty() && (next == nil || next.IsConsumed())
}
