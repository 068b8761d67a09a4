package bnet

import "sync"

// BytePool recycles the buffers frames are serialized into, so the
// steady-state write path performs no per-frame allocations. Buffers are
// handed out empty; callers append the frame and return the buffer once
// the write completes.
type BytePool struct {
	pool sync.Pool
}

// NewBytePool creates a pool whose buffers start at the given capacity.
// A frame larger than that grows its buffer once and the grown buffer is
// simply not recycled.
func NewBytePool(capacity int) *BytePool {
	if capacity <= 0 {
		capacity = 4096
	}
	p := &BytePool{}
	p.pool.New = func() any {
		return make([]byte, 0, capacity)
	}
	return p
}

// Get returns an empty slice backed by pooled capacity.
func (p *BytePool) Get() []byte {
	return p.pool.Get().([]byte)[:0]
}

// Put recycles a buffer obtained from Get.
func (p *BytePool) Put(b []byte) {
	if b == nil {
		return
	}
	p.pool.Put(b[:0])
}
