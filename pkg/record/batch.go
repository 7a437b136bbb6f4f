package record

import (
	"fmt"
	"hash/crc32"

	"github.com/downfa11-org/sharefetch/pkg/types"
	"github.com/downfa11-org/sharefetch/util"
	"github.com/twmb/franz-go/pkg/kbin"
	"github.com/twmb/franz-go/pkg/kmsg"
)

const (
	// LogOverhead is the base offset plus length prefix every batch starts with.
	LogOverhead = 12
	// HeaderSizeUpToMagic covers the prefix plus the leader epoch and magic.
	HeaderSizeUpToMagic = 17
	// RecordBatchOverhead is the size of a magic v2 batch header.
	RecordBatchOverhead = 61

	crcOffset        = 17
	attributesOffset = 21

	NoProducerID int64 = -1

	attrCodecMask     = 0x07
	attrLogAppendTime = 0x08
	attrTransactional = 0x10
	attrControl       = 0x20
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Batch is one framed record batch. Magic v2 batches carry producer and
// transaction metadata; legacy v0/v1 entries are presented through the same
// interface with that metadata absent.
type Batch interface {
	BaseOffset() int64
	LastOffset() int64
	Magic() int8
	PartitionLeaderEpoch() int32
	TimestampType() types.TimestampType
	Compression() util.Codec

	HasProducerID() bool
	ProducerID() int64
	IsTransactional() bool
	IsControl() bool

	// SizeInBytes is the framed size including the log overhead.
	SizeInBytes() int

	// EnsureValid verifies the batch checksum.
	EnsureValid() error

	// Records opens a stream over the batch's records, decompressing into a
	// buffer taken from supplier. The stream must be closed.
	Records(supplier BufferSupplier) (RecordStream, error)
}

// ReadBatches frames payload into record batches. Framing stops quietly at a
// trailing fragment too short to hold a whole batch, since a fetch may cut
// the last batch off at the size limit.
func ReadBatches(payload []byte) ([]Batch, error) {
	var batches []Batch
	for pos := 0; len(payload)-pos >= LogOverhead; {
		rem := payload[pos:]
		r := kbin.Reader{Src: rem[8:LogOverhead]}
		length := r.Int32()
		if length < HeaderSizeUpToMagic-LogOverhead {
			return batches, &types.InvalidRecordsError{
				Position: pos,
				Reason:   fmt.Sprintf("record size %d is less than the minimum record overhead (%d)", length, HeaderSizeUpToMagic-LogOverhead),
			}
		}
		size := LogOverhead + int(length)
		if len(rem) < size {
			break
		}

		raw := rem[:size]
		var (
			b   Batch
			err error
		)
		switch magic := int8(raw[16]); magic {
		case 2:
			b, err = readDefaultBatch(raw)
		case 0, 1:
			b, err = readLegacyBatch(raw, magic)
		default:
			err = fmt.Errorf("unknown magic byte %d", magic)
		}
		if err != nil {
			return batches, &types.InvalidRecordsError{Position: pos, Reason: err.Error()}
		}
		batches = append(batches, b)
		pos += size
	}
	return batches, nil
}

type defaultBatch struct {
	header kmsg.RecordBatch
	raw    []byte
}

func readDefaultBatch(raw []byte) (*defaultBatch, error) {
	if len(raw) < RecordBatchOverhead {
		return nil, fmt.Errorf("record batch size %d is smaller than the minimum allowed overhead %d", len(raw), RecordBatchOverhead)
	}
	b := &defaultBatch{raw: raw}
	if err := b.header.ReadFrom(raw); err != nil {
		return nil, fmt.Errorf("unable to read record batch header: %w", err)
	}
	b.header.Records = raw[RecordBatchOverhead:]
	return b, nil
}

func (b *defaultBatch) BaseOffset() int64 { return b.header.FirstOffset }

func (b *defaultBatch) LastOffset() int64 {
	return b.header.FirstOffset + int64(b.header.LastOffsetDelta)
}

func (b *defaultBatch) Magic() int8                 { return b.header.Magic }
func (b *defaultBatch) PartitionLeaderEpoch() int32 { return b.header.PartitionLeaderEpoch }
func (b *defaultBatch) Compression() util.Codec     { return util.Codec(b.header.Attributes & attrCodecMask) }
func (b *defaultBatch) ProducerID() int64           { return b.header.ProducerID }
func (b *defaultBatch) HasProducerID() bool         { return b.header.ProducerID > NoProducerID }
func (b *defaultBatch) IsTransactional() bool       { return b.header.Attributes&attrTransactional != 0 }
func (b *defaultBatch) IsControl() bool             { return b.header.Attributes&attrControl != 0 }
func (b *defaultBatch) SizeInBytes() int            { return len(b.raw) }

func (b *defaultBatch) TimestampType() types.TimestampType {
	if b.header.Attributes&attrLogAppendTime != 0 {
		return types.LogAppendTime
	}
	return types.CreateTime
}

func (b *defaultBatch) EnsureValid() error {
	if n := b.header.NumRecords; n < 0 {
		return fmt.Errorf("invalid negative record count %d", n)
	}
	stored := uint32(b.header.CRC)
	if computed := crc32.Checksum(b.raw[attributesOffset:], castagnoli); computed != stored {
		return fmt.Errorf("record is corrupt (stored crc = %d, computed crc = %d)", stored, computed)
	}
	return nil
}

func (b *defaultBatch) Records(supplier BufferSupplier) (RecordStream, error) {
	if b.header.NumRecords < 0 {
		return nil, fmt.Errorf("invalid negative record count %d", b.header.NumRecords)
	}
	s := &defaultStream{batch: b, remaining: int(b.header.NumRecords)}
	codec := b.Compression()
	if codec == util.CodecNone {
		s.data = b.header.Records
		return s, nil
	}

	buf := supplier.Get(len(b.header.Records) * 4)
	out, err := util.DecompressInto(buf, b.header.Records, codec)
	if err != nil {
		supplier.Release(buf)
		return nil, fmt.Errorf("failed to decompress %s record batch: %w", codec, err)
	}
	s.data = out
	s.buf = out
	s.supplier = supplier
	return s, nil
}

// recordTimestamp resolves a record's timestamp against its batch.
func (b *defaultBatch) recordTimestamp(delta int64) int64 {
	if b.TimestampType() == types.LogAppendTime {
		return b.header.MaxTimestamp
	}
	return b.header.FirstTimestamp + delta
}
