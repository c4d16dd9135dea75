package buffers

import (
	"sync"
)

const (
	// DatagramSize bounds one received datagram: a full Ethernet frame
	// plus headroom for jumbo-ish guests.
	DatagramSize = 2048
)

// BufferPool maintains a pool of byte slices to reduce GC pressure
type BufferPool struct {
	pool sync.Pool
	size int
}

// NewBufferPool creates a new buffer pool with the specified buffer size
func NewBufferPool(size int) *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() interface{} {
				buf := make([]byte, size)
				return &buf
			},
		},
		size: size,
	}
}

// Size is the length of slices returned by Get.
func (p *BufferPool) Size() int { return p.size }

// Get retrieves a full-length buffer. Contents are not cleared.
func (p *BufferPool) Get() []byte {
	buffer := *(p.pool.Get().(*[]byte))
	if cap(buffer) < p.size {
		buffer = make([]byte, p.size)
	}
	return buffer[:p.size]
}

// Put returns a buffer to the pool
func (p *BufferPool) Put(buffer []byte) {
	if cap(buffer) < p.size {
		return // Don't keep undersized buffers
	}
	buffer = buffer[:p.size]
	p.pool.Put(&buffer)
}

// DatagramPool is shared by every receive loop in the process.
var DatagramPool = NewBufferPool(DatagramSize)
