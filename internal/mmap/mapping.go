package mmap

import (
	"errors"
	"os"
	"slices"
	"sync/atomic"
)

// ErrTooLarge is returned for files that do not fit the address space.
var ErrTooLarge = errors.New("mmap: file too large to map")

// Mapping is a read-only view of a whole file.
type Mapping struct {
	data   []byte
	closed atomic.Bool
}

// Open maps the file at path. Empty files produce an empty mapping without
// calling into the OS.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		return &Mapping{}, nil
	}
	if int64(int(size)) != size {
		return nil, ErrTooLarge
	}

	data, err := mapFile(f, int(size))
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data}, nil
}

// ReadFile returns a heap copy of the file at path. Blob files are read once
// front to back, so the mapping is advised sequential and released before
// returning.
func ReadFile(path string) ([]byte, error) {
	m, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	adviseSequential(m.data)
	if out := slices.Clone(m.data); out != nil {
		return out, nil
	}
	return []byte{}, nil
}

// Bytes returns the mapped file, or nil once the mapping is closed.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Len returns the mapped size in bytes.
func (m *Mapping) Len() int { return len(m.data) }

// Close unmaps the file. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) || m.data == nil {
		return nil
	}
	return unmapFile(m.data)
}
