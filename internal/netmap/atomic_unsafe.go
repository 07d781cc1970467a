package netmap

import (
	"sync/atomic"
	"unsafe"
)

// The kernel updates ring indexes concurrently, so they are accessed with
// atomic operations on the shared memory.

func load32(mem []byte, off int) uint32 {
	_ = mem[off+3]
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&mem[off])))
}

func store32(mem []byte, off int, v uint32) {
	_ = mem[off+3]
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&mem[off])), v)
}
