// Package utils provides utility functions shared by the scan reader packages.
package utils

import "sync"

// rowBufferSize fits one row of a 2048-pixel 16-bit page.
const rowBufferSize = 4096

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, rowBufferSize)
		return &b
	},
}

// GetBuffer returns a byte slice of length size. Small buffers come from a
// pool shared by TIFF header and row reads.
func GetBuffer(size int) []byte {
	if size > rowBufferSize {
		return make([]byte, size)
	}
	bp := bufferPool.Get().(*[]byte)
	return (*bp)[:size]
}

// ReleaseBuffer returns a buffer obtained from GetBuffer to the pool.
// Oversized buffers are left to the garbage collector.
func ReleaseBuffer(buf []byte) {
	if cap(buf) != rowBufferSize {
		return
	}
	buf = buf[:0]
	bufferPool.Put(&buf)
}
