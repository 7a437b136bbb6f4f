package record

import (
	"fmt"
	"hash/crc32"

	"github.com/downfa11-org/sharefetch/pkg/types"
	"github.com/downfa11-org/sharefetch/util"
	"github.com/twmb/franz-go/pkg/kbin"
	"github.com/twmb/franz-go/pkg/kmsg"
)

type builderRecord struct {
	offset    int64
	timestamp int64
	key       []byte
	value     []byte
	headers   []types.Header
}

// BatchBuilder assembles a magic v2 record batch. It is used by fixtures,
// benchmarks and tests to produce the payloads a broker would return.
type BatchBuilder struct {
	baseOffset    int64
	lastOffset    int64
	codec         util.Codec
	leaderEpoch   int32
	producerID    int64
	producerEpoch int16
	baseSequence  int32
	transactional bool
	control       bool
	logAppendTime bool
	records       []builderRecord
}

// NewBatchBuilder starts an uncompressed, non-transactional batch at baseOffset.
func NewBatchBuilder(baseOffset int64) *BatchBuilder {
	return &BatchBuilder{
		baseOffset:    baseOffset,
		lastOffset:    -1,
		leaderEpoch:   types.NoPartitionLeaderEpoch,
		producerID:    NoProducerID,
		producerEpoch: -1,
		baseSequence:  -1,
	}
}

func (b *BatchBuilder) Compression(codec util.Codec) *BatchBuilder {
	b.codec = codec
	return b
}

func (b *BatchBuilder) LeaderEpoch(epoch int32) *BatchBuilder {
	b.leaderEpoch = epoch
	return b
}

// Producer sets an idempotent producer id without marking the batch
// transactional.
func (b *BatchBuilder) Producer(producerID int64, epoch int16) *BatchBuilder {
	b.producerID = producerID
	b.producerEpoch = epoch
	b.baseSequence = 0
	return b
}

func (b *BatchBuilder) Transactional(producerID int64, epoch int16) *BatchBuilder {
	b.Producer(producerID, epoch)
	b.transactional = true
	return b
}

func (b *BatchBuilder) LogAppendTime() *BatchBuilder {
	b.logAppendTime = true
	return b
}

// LastOffset overrides the batch's last offset, as after compaction removed
// trailing records.
func (b *BatchBuilder) LastOffset(offset int64) *BatchBuilder {
	b.lastOffset = offset
	return b
}

// Append adds a record. Offsets must be strictly increasing and not below the
// base offset.
func (b *BatchBuilder) Append(offset, timestampMillis int64, key, value []byte, headers ...types.Header) *BatchBuilder {
	b.records = append(b.records, builderRecord{
		offset:    offset,
		timestamp: timestampMillis,
		key:       key,
		value:     value,
		headers:   headers,
	})
	return b
}

// AppendValue adds a keyless record whose timestamp is derived from offset.
func (b *BatchBuilder) AppendValue(offset int64, value string) *BatchBuilder {
	return b.Append(offset, 1_700_000_000_000+offset, nil, []byte(value))
}

// Build encodes the batch, including its CRC.
func (b *BatchBuilder) Build() ([]byte, error) {
	var recs []byte
	var baseTs int64
	maxTs := int64(-1)
	prev := b.baseOffset - 1
	lastSeen := b.baseOffset
	if len(b.records) > 0 {
		baseTs = b.records[0].timestamp
	}
	for _, r := range b.records {
		if r.offset <= prev {
			return nil, fmt.Errorf("record offset %d is not above %d", r.offset, prev)
		}
		prev = r.offset
		lastSeen = r.offset
		if r.timestamp > maxTs {
			maxTs = r.timestamp
		}

		body := make([]byte, 0, 16+len(r.key)+len(r.value))
		body = kbin.AppendInt8(body, 0)
		body = kbin.AppendVarlong(body, r.timestamp-baseTs)
		body = kbin.AppendVarint(body, int32(r.offset-b.baseOffset))
		body = kbin.AppendVarintBytes(body, r.key)
		body = kbin.AppendVarintBytes(body, r.value)
		body = kbin.AppendVarint(body, int32(len(r.headers)))
		for _, h := range r.headers {
			body = kbin.AppendVarintString(body, h.Key)
			body = kbin.AppendVarintBytes(body, h.Value)
		}
		recs = kbin.AppendVarint(recs, int32(len(body)))
		recs = append(recs, body...)
	}

	last := lastSeen
	if b.lastOffset >= 0 {
		if b.lastOffset < lastSeen {
			return nil, fmt.Errorf("last offset %d is below record offset %d", b.lastOffset, lastSeen)
		}
		last = b.lastOffset
	}

	compressed, err := util.Compress(recs, b.codec)
	if err != nil {
		return nil, err
	}

	attrs := int16(b.codec)
	if b.logAppendTime {
		attrs |= attrLogAppendTime
	}
	if b.transactional {
		attrs |= attrTransactional
	}
	if b.control {
		attrs |= attrControl
	}
	if maxTs < 0 {
		maxTs = baseTs
	}

	batch := kmsg.RecordBatch{
		FirstOffset:          b.baseOffset,
		Length:               int32(RecordBatchOverhead - LogOverhead + len(compressed)),
		PartitionLeaderEpoch: b.leaderEpoch,
		Magic:                2,
		Attributes:           attrs,
		LastOffsetDelta:      int32(last - b.baseOffset),
		FirstTimestamp:       baseTs,
		MaxTimestamp:         maxTs,
		ProducerID:           b.producerID,
		ProducerEpoch:        b.producerEpoch,
		FirstSequence:        b.baseSequence,
		NumRecords:           int32(len(b.records)),
		Records:              compressed,
	}
	raw := batch.AppendTo(nil)
	crc := crc32.Checksum(raw[attributesOffset:], castagnoli)
	kbin.AppendUint32(raw[:crcOffset], crc)
	return raw, nil
}

// MustBuild is Build for inputs known to be valid.
func (b *BatchBuilder) MustBuild() []byte {
	raw, err := b.Build()
	if err != nil {
		panic(err)
	}
	return raw
}

// EndTxnMarker encodes a control batch holding a single commit or abort
// marker for producerID at offset.
func EndTxnMarker(offset, producerID int64, epoch int16, typ ControlRecordType) []byte {
	b := NewBatchBuilder(offset).Transactional(producerID, epoch)
	b.control = true
	b.Append(offset, 1_700_000_000_000+offset, controlRecordKey(typ), endTxnMarkerValue(0))
	return b.MustBuild()
}

// LegacyMessage encodes a single uncompressed v0 or v1 message. The timestamp
// is ignored for v0.
func LegacyMessage(magic int8, offset, timestampMillis int64, key, value []byte) []byte {
	return legacyMessage(magic, 0, offset, timestampMillis, key, value)
}

// LegacyWrapper compresses the encoded messages inner into one v0 or v1
// wrapper message at offset. For v1, inner offsets are relative and offset
// is the absolute offset of the last inner message.
func LegacyWrapper(magic int8, offset, timestampMillis int64, codec util.Codec, inner ...[]byte) ([]byte, error) {
	var set []byte
	for _, m := range inner {
		set = append(set, m...)
	}
	compressed, err := util.Compress(set, codec)
	if err != nil {
		return nil, err
	}
	return legacyMessage(magic, int8(codec), offset, timestampMillis, nil, compressed), nil
}

func legacyMessage(magic, attrs int8, offset, timestampMillis int64, key, value []byte) []byte {
	body := kbin.AppendInt8(nil, magic)
	body = kbin.AppendInt8(body, attrs)
	if magic >= 1 {
		body = kbin.AppendInt64(body, timestampMillis)
	}
	body = kbin.AppendNullableBytes(body, key)
	body = kbin.AppendNullableBytes(body, value)

	raw := kbin.AppendInt64(nil, offset)
	raw = kbin.AppendInt32(raw, int32(4+len(body)))
	raw = kbin.AppendUint32(raw, crc32.ChecksumIEEE(body))
	return append(raw, body...)
}
