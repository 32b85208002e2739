// Package testing provides test utilities for the scan reader packages.
package testing

import (
	"errors"
	"sync"
)

// MockReaderAt is an in-memory file for testing. It counts reads and
// closes so tests can check lazy opening and handle release.
type MockReaderAt struct {
	data []byte

	mu     sync.Mutex
	reads  int
	closes int
}

// NewMockReaderAt creates a new mock reader with the given data.
func NewMockReaderAt(data []byte) *MockReaderAt {
	return &MockReaderAt{data: data}
}

// ReadAt implements io.ReaderAt interface for the mock reader.
func (m *MockReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	m.mu.Lock()
	m.reads++
	m.mu.Unlock()

	if off < 0 {
		return 0, errors.New("negative offset")
	}

	if off >= int64(len(m.data)) {
		return 0, errors.New("offset beyond EOF")
	}

	n = copy(p, m.data[off:])
	if n < len(p) {
		err = errors.New("short read")
	}
	return
}

// Close implements io.Closer.
func (m *MockReaderAt) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

// Reads returns the number of ReadAt calls so far.
func (m *MockReaderAt) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Closes returns the number of Close calls so far.
func (m *MockReaderAt) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}
