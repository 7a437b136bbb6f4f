package record

import (
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/downfa11-org/sharefetch/pkg/types"
	"github.com/twmb/franz-go/pkg/kbin"
)

// ErrNoMoreRecords is returned by Next once a stream is exhausted.
var ErrNoMoreRecords = errors.New("no more records in batch")

// Record is a single decoded record. Key, Value and header values are owned
// by the record and stay valid after the stream that produced it is closed.
// A nil Key or Value is a null one.
type Record struct {
	Offset int64
	// Timestamp is in milliseconds since the epoch; -1 when the format has none.
	Timestamp int64
	Key       []byte
	Value     []byte
	Headers   []types.Header

	// legacy entries carry their own checksum
	crc         uint32
	checksummed []byte
}

// EnsureValid verifies the per-record checksum of legacy entries. Magic v2
// records are covered by the batch checksum and always pass.
func (r *Record) EnsureValid() error {
	if r.checksummed == nil {
		return nil
	}
	if computed := crc32.ChecksumIEEE(r.checksummed); computed != r.crc {
		return fmt.Errorf("record is corrupt (stored crc = %d, computed crc = %d)", r.crc, computed)
	}
	return nil
}

// HasKey reports whether the key is non-null.
func (r *Record) HasKey() bool { return r.Key != nil }

// RecordStream iterates the records of one batch. Close releases any buffer
// held for decompression and may be called more than once.
type RecordStream interface {
	HasNext() bool
	Next() (*Record, error)
	Close()
}

type defaultStream struct {
	batch     *defaultBatch
	data      []byte
	remaining int

	buf      []byte
	supplier BufferSupplier
}

func (s *defaultStream) HasNext() bool { return s.remaining > 0 }

func (s *defaultStream) Next() (*Record, error) {
	if s.remaining <= 0 {
		return nil, ErrNoMoreRecords
	}
	length, n := kbin.Varint(s.data)
	if n <= 0 || length < 0 || len(s.data)-n < int(length) {
		s.remaining = 0
		return nil, fmt.Errorf("found invalid record structure: length %d with %d bytes remaining", length, len(s.data))
	}
	body := s.data[n : n+int(length)]
	s.data = s.data[n+int(length):]
	s.remaining--

	rec, err := s.readRecord(body)
	if err != nil {
		s.remaining = 0
		return nil, err
	}
	if s.remaining == 0 && len(s.data) > 0 {
		return nil, fmt.Errorf("incorrect declared batch size, %d bytes of records still remaining", len(s.data))
	}
	return rec, nil
}

func (s *defaultStream) readRecord(body []byte) (*Record, error) {
	r := kbin.Reader{Src: body}
	r.Int8() // attributes, unused
	tsDelta := r.Varlong()
	offsetDelta := r.Varint()
	key := r.VarintBytes()
	value := r.VarintBytes()
	numHeaders := r.Varint()
	if numHeaders < 0 {
		return nil, fmt.Errorf("found invalid number of record headers %d", numHeaders)
	}

	var headers []types.Header
	if numHeaders > 0 {
		headers = make([]types.Header, 0, min(int(numHeaders), len(r.Src)))
		for i := int32(0); i < numHeaders && r.Ok(); i++ {
			hk := r.VarintString()
			hv := r.VarintBytes()
			headers = append(headers, types.Header{Key: hk, Value: bytes.Clone(hv)})
		}
	}
	if !r.Ok() {
		return nil, errors.New("record is truncated")
	}
	if len(r.Src) != 0 {
		return nil, fmt.Errorf("invalid record size: %d bytes left unread", len(r.Src))
	}

	return &Record{
		Offset:    s.batch.BaseOffset() + int64(offsetDelta),
		Timestamp: s.batch.recordTimestamp(tsDelta),
		Key:       bytes.Clone(key),
		Value:     bytes.Clone(value),
		Headers:   headers,
	}, nil
}

func (s *defaultStream) Close() {
	s.remaining = 0
	s.data = nil
	if s.supplier != nil {
		s.supplier.Release(s.buf)
		s.supplier = nil
		s.buf = nil
	}
}
