package consumer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/downfa11-org/sharefetch/pkg/consumer"
	"github.com/downfa11-org/sharefetch/pkg/fetch"
	"github.com/downfa11-org/sharefetch/pkg/record"
	"github.com/downfa11-org/sharefetch/pkg/serde"
	"github.com/downfa11-org/sharefetch/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	topicID = uuid.MustParse("0b7f7c1e-8d1e-4f4a-a3b2-6c9f2d1e5a40")
	tp0     = types.TopicIDPartition{TopicID: topicID, Topic: "payments", Partition: 0}
	tp1     = types.TopicIDPartition{TopicID: topicID, Topic: "payments", Partition: 1}
)

func completedFetch(t *testing.T, tp types.TopicIDPartition, data types.PartitionData) *fetch.ShareCompletedFetch {
	t.Helper()
	f, err := fetch.NewShareCompletedFetch(nil, nil, tp, data, types.ReadUncommitted, 1)
	require.NoError(t, err)
	return f
}

func partitionWith(values ...string) types.PartitionData {
	b := record.NewBatchBuilder(0)
	for i, v := range values {
		b.AppendValue(int64(i), v)
	}
	return types.PartitionData{
		Records:         b.MustBuild(),
		AcquiredRecords: []types.AcquiredRecords{{BaseOffset: 0, LastOffset: int64(len(values) - 1), DeliveryCount: 1}},
	}
}

func newCollector(maxPoll int) *consumer.Collector[string, string] {
	return consumer.NewCollector[string, string](nil, serde.New(serde.String(), serde.String()), maxPoll, true)
}

func TestCollectRespectsMaxPollRecords(t *testing.T) {
	buf := consumer.NewFetchBuffer()
	buf.AddAll(
		completedFetch(t, tp0, partitionWith("a", "b", "c", "d", "e")),
		completedFetch(t, tp1, partitionWith("f", "g", "h", "i", "j")),
	)
	c := newCollector(3)

	var values []string
	for i, want := range []int{3, 3, 3, 1, 0} {
		sf, err := c.Collect(buf)
		require.NoError(t, err)
		if sf.NumRecords() != want {
			t.Fatalf("poll %d: expected %d records, got %d", i, want, sf.NumRecords())
		}
		for _, r := range sf.Records() {
			values = append(values, r.Value)
		}
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}, values)
}

func TestCollectGroupsByPartition(t *testing.T) {
	buf := consumer.NewFetchBuffer()
	buf.AddAll(
		completedFetch(t, tp0, partitionWith("a", "b")),
		completedFetch(t, tp1, partitionWith("c")),
	)

	sf, err := newCollector(10).Collect(buf)
	require.NoError(t, err)
	assert.Equal(t, []types.TopicIDPartition{tp0, tp1}, sf.Partitions())
	assert.Len(t, sf.RecordsFor(tp0), 2)
	assert.Len(t, sf.RecordsFor(tp1), 1)
	assert.True(t, buf.IsEmpty())
}

func TestCollectReportsPartitionError(t *testing.T) {
	buf := consumer.NewFetchBuffer()
	failed := completedFetch(t, tp0, types.PartitionData{ErrorCode: 6, ErrorMessage: "not leader"})
	buf.AddAll(failed, completedFetch(t, tp1, partitionWith("x")))
	c := newCollector(10)

	sf, err := c.Collect(buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrPartition)
	assert.True(t, sf.IsEmpty())
	assert.True(t, failed.IsConsumed())

	sf, err = c.Collect(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, sf.NumRecords())
}

func TestCollectHoldsPartitionErrorAfterRecords(t *testing.T) {
	buf := consumer.NewFetchBuffer()
	buf.AddAll(
		completedFetch(t, tp0, partitionWith("a", "b")),
		completedFetch(t, tp1, types.PartitionData{ErrorCode: 3}),
	)
	c := newCollector(10)

	sf, err := c.Collect(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, sf.NumRecords())

	sf, err = c.Collect(buf)
	var partErr *types.PartitionError
	require.ErrorAs(t, err, &partErr)
	assert.Equal(t, tp1, partErr.Partition)
	assert.True(t, sf.IsEmpty())
	assert.True(t, buf.IsEmpty())
}

func TestCollectSurfacesRecordError(t *testing.T) {
	buf := consumer.NewFetchBuffer()
	buf.Add(completedFetch(t, tp0, partitionWith("good", "bad", "fine")))

	failing := serde.DeserializerFunc[string](func(_ string, _ []types.Header, data []byte) (string, error) {
		if string(data) == "bad" {
			return "", errors.New("bad value")
		}
		return string(data), nil
	})
	c := consumer.NewCollector[string, string](nil, serde.New(serde.String(), failing), 10, true)

	sf, err := c.Collect(buf)
	require.Error(t, err)
	var released *types.ReleasedRecordError
	require.ErrorAs(t, err, &released)
	require.Equal(t, 1, sf.NumRecords())

	acks := sf.TakeAcknowledgements()[tp0]
	require.NotNil(t, acks)
	typ, _ := acks.Get(0)
	assert.Equal(t, types.AckAccept, typ)
	typ, _ = acks.Get(1)
	assert.Equal(t, types.AckRelease, typ)

	sf, err = c.Collect(buf)
	require.NoError(t, err)
	require.Equal(t, 1, sf.NumRecords())
	assert.Equal(t, "fine", sf.Records()[0].Value)
}

func TestTakeAcknowledgements(t *testing.T) {
	buf := consumer.NewFetchBuffer()
	data := types.PartitionData{
		Records:         record.NewBatchBuilder(0).AppendValue(0, "a").AppendValue(1, "b").AppendValue(3, "d").MustBuild(),
		AcquiredRecords: []types.AcquiredRecords{{BaseOffset: 0, LastOffset: 4, DeliveryCount: 1}},
	}
	buf.Add(completedFetch(t, tp0, data))

	sf, err := newCollector(10).Collect(buf)
	require.NoError(t, err)
	require.NoError(t, sf.Acknowledge(tp0, 1, types.AckRelease))
	assert.Error(t, sf.Acknowledge(tp0, 2, types.AckAccept))
	assert.Error(t, sf.Acknowledge(tp1, 0, types.AckAccept))
	assert.Error(t, sf.Acknowledge(tp0, 0, types.AckGap))

	all := sf.TakeAcknowledgements()
	require.Len(t, all, 1)
	batches := all[tp0].Batches()
	require.Len(t, batches, 1)
	assert.Equal(t, int64(0), batches[0].FirstOffset)
	assert.Equal(t, int64(4), batches[0].LastOffset)
	assert.Equal(t, []types.AcknowledgeType{types.AckAccept, types.AckRelease, types.AckGap, types.AckAccept, types.AckGap}, batches[0].Types)

	assert.Empty(t, sf.TakeAcknowledgements())
	assert.Error(t, sf.Acknowledge(tp0, 0, types.AckReject))
}

func TestFetchBufferAwaitNotEmpty(t *testing.T) {
	buf := consumer.NewFetchBuffer()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, buf.AwaitNotEmpty(ctx), context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() {
		done <- buf.AwaitNotEmpty(context.Background())
	}()
	time.Sleep(10 * time.Millisecond)
	buf.Add(completedFetch(t, tp0, partitionWith("a")))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("AwaitNotEmpty did not return after Add")
	}
}

func TestFetchBufferClose(t *testing.T) {
	buf := consumer.NewFetchBuffer()
	first := completedFetch(t, tp0, partitionWith("a", "b"))
	second := completedFetch(t, tp1, partitionWith("c"))
	buf.AddAll(first, second)

	_, err := newCollector(1).Collect(buf)
	require.NoError(t, err)
	require.Equal(t, first, buf.NextInLine())

	buf.Close()
	assert.True(t, first.IsConsumed())
	assert.True(t, second.IsConsumed())
	assert.True(t, buf.IsEmpty())
	assert.Nil(t, buf.NextInLine())

	late := completedFetch(t, tp0, partitionWith("z"))
	buf.Add(late)
	assert.True(t, late.IsConsumed())
	assert.Equal(t, 0, buf.Len())
}
