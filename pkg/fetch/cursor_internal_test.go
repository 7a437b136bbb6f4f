package fetch

import (
	"errors"
	"math"
	"testing"

	"github.com/downfa11-org/sharefetch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offsetsOf(entries []acquiredEntry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.offset)
	}
	return out
}

func TestCompareOffsets(t *testing.T) {
	tests := []struct {
		physical, acquired int64
		want               offsetMatch
	}{
		{5, 5, matchAcquired},
		{4, 5, matchNotAcquired},
		{0, 100, matchNotAcquired},
		{6, 5, matchGap},
	}
	for _, tt := range tests {
		if got := compareOffsets(tt.physical, tt.acquired); got != tt.want {
			t.Errorf("compareOffsets(%d, %d) = %d; want %d", tt.physical, tt.acquired, got, tt.want)
		}
	}
}

func TestAcquiredCursorExpansion(t *testing.T) {
	c := newAcquiredCursor([]types.AcquiredRecords{
		{BaseOffset: 0, LastOffset: 2, DeliveryCount: 1},
		{BaseOffset: 5, LastOffset: 6, DeliveryCount: 3},
	})
	require.Equal(t, 5, c.size())
	assert.Equal(t, []int64{0, 1, 2, 5, 6}, offsetsOf(c.entries))
	assert.Equal(t, int16(1), c.entries[2].deliveryCount)
	assert.Equal(t, int16(3), c.entries[3].deliveryCount)
}

func TestAcquiredCursorKeepsOffsetsIncreasing(t *testing.T) {
	c := newAcquiredCursor([]types.AcquiredRecords{
		{BaseOffset: 0, LastOffset: 3, DeliveryCount: 1},
		{BaseOffset: 2, LastOffset: 5, DeliveryCount: 2},
		{BaseOffset: 9, LastOffset: 8, DeliveryCount: 1},
		{BaseOffset: 7, LastOffset: 7, DeliveryCount: 1},
	})
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5, 7}, offsetsOf(c.entries))
}

func TestCountAcquired(t *testing.T) {
	tests := []struct {
		name    string
		ranges  []types.AcquiredRecords
		want    int
		wantErr bool
	}{
		{name: "empty"},
		{name: "clipped overlap", ranges: []types.AcquiredRecords{{BaseOffset: 0, LastOffset: 3}, {BaseOffset: 2, LastOffset: 5}, {BaseOffset: 9, LastOffset: 8}, {BaseOffset: 7, LastOffset: 7}}, want: 7},
		{name: "covered range", ranges: []types.AcquiredRecords{{BaseOffset: 0, LastOffset: 9}, {BaseOffset: 2, LastOffset: 4}}, want: 10},
		{name: "at limit", ranges: []types.AcquiredRecords{{BaseOffset: 100, LastOffset: 100 + MaxAcquiredOffsets - 1}}, want: MaxAcquiredOffsets},
		{name: "over limit", ranges: []types.AcquiredRecords{{BaseOffset: 100, LastOffset: 100 + MaxAcquiredOffsets}}, wantErr: true},
		{name: "over limit across ranges", ranges: []types.AcquiredRecords{{BaseOffset: 0, LastOffset: MaxAcquiredOffsets/2 - 1}, {BaseOffset: MaxAcquiredOffsets, LastOffset: MaxAcquiredOffsets + MaxAcquiredOffsets/2}}, wantErr: true},
		{name: "huge range", ranges: []types.AcquiredRecords{{BaseOffset: 0, LastOffset: math.MaxInt64}}, wantErr: true},
		{name: "negative offset", ranges: []types.AcquiredRecords{{BaseOffset: -1, LastOffset: 3}}, wantErr: true},
		{name: "inverted negative range is dropped", ranges: []types.AcquiredRecords{{BaseOffset: -1, LastOffset: -5}}},
	}
	for _, tt := range tests {
		got, err := countAcquired(tt.ranges)
		if tt.wantErr {
			assert.Error(t, err, tt.name)
			continue
		}
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
		assert.Equal(t, got, newAcquiredCursor(tt.ranges).size(), tt.name)
	}
}

func TestAcquiredCursorPeekAdvance(t *testing.T) {
	c := newAcquiredCursor([]types.AcquiredRecords{{BaseOffset: 10, LastOffset: 11, DeliveryCount: 1}})

	e, ok := c.peek()
	require.True(t, ok)
	assert.Equal(t, int64(10), e.offset)

	// peeking does not move the cursor
	e, _ = c.peek()
	assert.Equal(t, int64(10), e.offset)

	c.advance()
	c.advance()
	assert.True(t, c.exhausted())
	_, ok = c.peek()
	assert.False(t, ok)

	c.advance()
	assert.True(t, c.exhausted())
}

func TestAcquiredCursorSeekPast(t *testing.T) {
	c := newAcquiredCursor([]types.AcquiredRecords{
		{BaseOffset: 15, LastOffset: 16, DeliveryCount: 1},
		{BaseOffset: 20, LastOffset: 20, DeliveryCount: 1},
		{BaseOffset: 22, LastOffset: 22, DeliveryCount: 1},
		{BaseOffset: 25, LastOffset: 27, DeliveryCount: 1},
	})
	c.advance() // 15 decided

	below, inside := c.seekPast(20, 25)
	assert.Equal(t, []int64{16}, offsetsOf(below))
	assert.Equal(t, []int64{20, 22, 25}, offsetsOf(inside))

	e, ok := c.peek()
	require.True(t, ok)
	assert.Equal(t, int64(26), e.offset)

	// a range already passed yields nothing and never moves backwards
	below, inside = c.seekPast(0, 22)
	assert.Empty(t, below)
	assert.Empty(t, inside)
	e, _ = c.peek()
	assert.Equal(t, int64(26), e.offset)

	assert.Equal(t, []int64{26, 27}, offsetsOf(c.drainRemaining()))
	assert.True(t, c.exhausted())
}

func TestAbortedTransactions(t *testing.T) {
	a := newAbortedTransactions([]types.AbortedTransaction{
		{ProducerID: 3, FirstOffset: 30},
		{ProducerID: 1, FirstOffset: 10},
		{ProducerID: 2, FirstOffset: 20},
	})

	a.consumeThrough(9)
	assert.False(t, a.isAborted(1))

	a.consumeThrough(20)
	assert.True(t, a.isAborted(1))
	assert.True(t, a.isAborted(2))
	assert.False(t, a.isAborted(3))
	assert.Len(t, a.pending, 1)

	a.markerSeen(1)
	assert.False(t, a.isAborted(1))
	assert.True(t, a.isAborted(2))

	// a producer passed once is not re-added by later consumption
	a.consumeThrough(100)
	assert.False(t, a.isAborted(1))
	assert.True(t, a.isAborted(3))
	assert.Empty(t, a.pending)
}

func TestPendingErrorHoldsOne(t *testing.T) {
	var p pendingError
	assert.False(t, p.isSet())

	p.deferRecord(errors.New("first"), 7)
	p.deferBatch(errors.New("second"), 10, 12)
	require.True(t, p.isSet())

	got := p.take()
	assert.Equal(t, pendingBatchReject, got.kind)
	assert.EqualError(t, got.err, "second")
	assert.Equal(t, int64(10), got.base)
	assert.Equal(t, int64(12), got.last)
	assert.False(t, p.isSet())

	p.deferRecord(errors.New("x"), 3)
	p.clear()
	assert.False(t, p.isSet())
}
