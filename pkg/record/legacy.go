package record

import (
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/downfa11-org/sharefetch/pkg/types"
	"github.com/downfa11-org/sharefetch/util"
	"github.com/twmb/franz-go/pkg/kbin"
)

const (
	legacyMagicOffset = LogOverhead + 4

	legacyMinSizeV0 = 4 + 1 + 1 + 4 + 4
	legacyMinSizeV1 = legacyMinSizeV0 + 8
)

// legacyBatch is a single v0/v1 message. An uncompressed message is its own
// batch; its offset is both the base and the last offset. A compressed
// wrapper holds a message set in its value and carries the offset of the
// last inner message.
type legacyBatch struct {
	raw       []byte
	offset    int64
	magic     int8
	attrs     int8
	timestamp int64
	crc       uint32
	key       []byte
	value     []byte

	// inner messages of a compressed wrapper, decoded once
	inner    []*Record
	innerErr error
	decoded  bool
}

func readLegacyBatch(raw []byte, magic int8) (*legacyBatch, error) {
	minSize := legacyMinSizeV0
	if magic == 1 {
		minSize = legacyMinSizeV1
	}
	if len(raw)-LogOverhead < minSize {
		return nil, fmt.Errorf("message size %d is less than the minimum v%d size %d", len(raw)-LogOverhead, magic, minSize)
	}

	r := kbin.Reader{Src: raw}
	b := &legacyBatch{raw: raw, magic: magic, timestamp: -1}
	b.offset = r.Int64()
	r.Int32()
	b.crc = uint32(r.Int32())
	r.Int8()
	b.attrs = r.Int8()
	if magic == 1 {
		b.timestamp = r.Int64()
	}
	b.key = r.NullableBytes()
	b.value = r.NullableBytes()
	if !r.Ok() {
		return nil, errors.New("legacy message is truncated")
	}
	if len(r.Src) != 0 {
		return nil, fmt.Errorf("legacy message has %d trailing bytes", len(r.Src))
	}
	return b, nil
}

// BaseOffset is the offset of the first inner message for a wrapper that
// decodes, and the message's own offset otherwise.
func (b *legacyBatch) BaseOffset() int64 {
	if b.Compression() == util.CodecNone {
		return b.offset
	}
	inner, err := b.decodeInner(NoCaching)
	if err != nil || len(inner) == 0 {
		return b.offset
	}
	return inner[0].Offset
}

func (b *legacyBatch) LastOffset() int64           { return b.offset }
func (b *legacyBatch) Magic() int8                 { return b.magic }
func (b *legacyBatch) PartitionLeaderEpoch() int32 { return types.NoPartitionLeaderEpoch }
func (b *legacyBatch) Compression() util.Codec     { return util.Codec(b.attrs & attrCodecMask) }
func (b *legacyBatch) HasProducerID() bool         { return false }
func (b *legacyBatch) ProducerID() int64           { return NoProducerID }
func (b *legacyBatch) IsTransactional() bool       { return false }
func (b *legacyBatch) IsControl() bool             { return false }
func (b *legacyBatch) SizeInBytes() int            { return len(b.raw) }

func (b *legacyBatch) TimestampType() types.TimestampType {
	switch {
	case b.magic == 0:
		return types.NoTimestampType
	case b.attrs&attrLogAppendTime != 0:
		return types.LogAppendTime
	default:
		return types.CreateTime
	}
}

func (b *legacyBatch) EnsureValid() error {
	if computed := crc32.ChecksumIEEE(b.raw[legacyMagicOffset:]); computed != b.crc {
		return fmt.Errorf("record is corrupt (stored crc = %d, computed crc = %d)", b.crc, computed)
	}
	return nil
}

// Records yields the message itself, or the inner messages of a compressed
// wrapper.
func (b *legacyBatch) Records(supplier BufferSupplier) (RecordStream, error) {
	if b.Compression() != util.CodecNone {
		inner, err := b.decodeInner(supplier)
		if err != nil {
			return nil, err
		}
		return &legacyStream{records: inner}, nil
	}
	return &legacyStream{records: []*Record{{
		Offset:      b.offset,
		Timestamp:   b.timestamp,
		Key:         bytes.Clone(b.key),
		Value:       bytes.Clone(b.value),
		crc:         b.crc,
		checksummed: b.raw[legacyMagicOffset:],
	}}}, nil
}

// decodeInner decompresses the wrapper's message set. Inner messages must
// share the wrapper's magic and be uncompressed. v1 inner offsets are
// relative to the wrapper, whose offset is that of the last inner message;
// v0 inner offsets are absolute. Under log append time every inner message
// takes the wrapper's timestamp.
func (b *legacyBatch) decodeInner(supplier BufferSupplier) ([]*Record, error) {
	if b.decoded {
		return b.inner, b.innerErr
	}
	b.decoded = true

	codec := b.Compression()
	buf := supplier.Get(len(b.value) * 4)
	set, err := util.DecompressInto(buf, b.value, codec)
	if err != nil {
		supplier.Release(buf)
		b.innerErr = fmt.Errorf("failed to decompress %s v%d message set: %w", codec, b.magic, err)
		return nil, b.innerErr
	}
	defer supplier.Release(set)

	var msgs []*legacyBatch
	for pos := 0; pos < len(set); {
		if len(set)-pos < LogOverhead {
			b.innerErr = fmt.Errorf("inner message at byte %d is truncated", pos)
			return nil, b.innerErr
		}
		r := kbin.Reader{Src: set[pos+8 : pos+LogOverhead]}
		size := LogOverhead + int(r.Int32())
		if size <= legacyMagicOffset || len(set)-pos < size {
			b.innerErr = fmt.Errorf("inner message at byte %d has invalid size %d", pos, size-LogOverhead)
			return nil, b.innerErr
		}
		entry := set[pos : pos+size]
		pos += size

		if magic := int8(entry[legacyMagicOffset]); magic != b.magic {
			b.innerErr = fmt.Errorf("inner message magic %d does not match wrapper magic %d", magic, b.magic)
			return nil, b.innerErr
		}
		msg, err := readLegacyBatch(entry, b.magic)
		if err != nil {
			b.innerErr = err
			return nil, err
		}
		if msg.Compression() != util.CodecNone {
			b.innerErr = errors.New("compressed message set holds a compressed inner message")
			return nil, b.innerErr
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		b.innerErr = errors.New("compressed message set has no inner messages")
		return nil, b.innerErr
	}

	var shift int64
	if b.magic >= 1 {
		shift = b.offset - msgs[len(msgs)-1].offset
	}
	records := make([]*Record, 0, len(msgs))
	for _, m := range msgs {
		ts := m.timestamp
		if b.magic >= 1 && b.TimestampType() == types.LogAppendTime {
			ts = b.timestamp
		}
		records = append(records, &Record{
			Offset:      m.offset + shift,
			Timestamp:   ts,
			Key:         bytes.Clone(m.key),
			Value:       bytes.Clone(m.value),
			crc:         m.crc,
			checksummed: bytes.Clone(m.raw[legacyMagicOffset:]),
		})
	}
	b.inner = records
	return records, nil
}

type legacyStream struct {
	records []*Record
}

func (s *legacyStream) HasNext() bool { return len(s.records) > 0 }

func (s *legacyStream) Next() (*Record, error) {
	if len(s.records) == 0 {
		return nil, ErrNoMoreRecords
	}
	rec := s.records[0]
	s.records = s.records[1:]
	return rec, nil
}

func (s *legacyStream) Close() { s.records = nil }
