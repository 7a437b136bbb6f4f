package record

import "sync"

// BufferSupplier hands out scratch buffers that compressed batches are
// decompressed into. A buffer is held by an open RecordStream and returned
// when the stream is closed, so a supplier may be shared by many partitions.
type BufferSupplier interface {
	// Get returns an empty slice, ideally with at least size capacity.
	Get(size int) []byte
	// Release returns a slice obtained from Get (possibly grown).
	Release(buf []byte)
}

// BufferPool is a BufferSupplier backed by a sync.Pool. It is safe for
// concurrent use.
type BufferPool struct {
	pool        sync.Pool
	initialSize int
}

// NewBufferPool returns a pool whose fresh buffers start with initialSize
// capacity.
func NewBufferPool(initialSize int) *BufferPool {
	if initialSize <= 0 {
		initialSize = 64 << 10
	}
	return &BufferPool{initialSize: initialSize}
}

func (p *BufferPool) Get(size int) []byte {
	if v := p.pool.Get(); v != nil {
		buf := *(v.(*[]byte))
		if cap(buf) >= size {
			return buf[:0]
		}
	}
	if size < p.initialSize {
		size = p.initialSize
	}
	return make([]byte, 0, size)
}

func (p *BufferPool) Release(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	buf = buf[:0]
	p.pool.Put(&buf)
}

type noCaching struct{}

func (noCaching) Get(size int) []byte { return make([]byte, 0, size) }
func (noCaching) Release([]byte)      {}

// NoCaching allocates a new buffer for every batch.
var NoCaching BufferSupplier = noCaching{}
