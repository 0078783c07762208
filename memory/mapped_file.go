// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package memory

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/bitmark-inc/logger"
	"golang.org/x/sys/unix"

	"github.com/bitmark-inc/chainstore/fault"
)

// DefaultExpansion - percentage added beyond a reservation when a file must grow
const DefaultExpansion = 50

// MappedFile - a file and its shared writable mapping
type MappedFile struct {
	sync.RWMutex // remap lock: shared for access, exclusive for remap

	log       *logger.L
	filename  string
	expansion uint64

	file        *os.File
	data        []byte
	fileSize    uint64
	logicalSize uint64
	closed      int32
}

// New - create a closed mapped file, expansion is a percentage
func New(filename string, expansion uint64) *MappedFile {
	return &MappedFile{
		log:       logger.New("memory"),
		filename:  filename,
		expansion: expansion,
		closed:    1,
	}
}

// Filename - the backing file
func (m *MappedFile) Filename() string {
	return m.filename
}

// Open - open the existing file and map its whole content
func (m *MappedFile) Open() error {
	m.Lock()
	defer m.Unlock()

	if !m.Closed() {
		return fault.ErrAlreadyInitialised
	}

	file, err := os.OpenFile(m.filename, os.O_RDWR, 0600)
	if nil != err {
		m.log.Errorf("open: %q  error: %s", m.filename, err)
		return err
	}
	info, err := file.Stat()
	if nil != err {
		file.Close()
		return err
	}

	m.file = file
	m.fileSize = uint64(info.Size())
	m.logicalSize = m.fileSize

	if err := m.mapFile(m.fileSize); nil != err {
		file.Close()
		m.file = nil
		return err
	}

	atomic.StoreInt32(&m.closed, 0)
	m.log.Debugf("mapping: %q  size: %d", m.filename, m.fileSize)
	return nil
}

// Flush - write dirty pages back to the file
func (m *MappedFile) Flush() error {
	m.RLock()
	defer m.RUnlock()

	if m.Closed() {
		return fault.ErrFileClosed
	}
	if 0 == len(m.data) {
		return nil
	}
	if err := unix.Msync(m.data, unix.MS_SYNC); nil != err {
		m.log.Errorf("flush: %q  error: %s", m.filename, err)
		return err
	}
	return nil
}

// Close - flush, unmap and truncate the file to its logical size
func (m *MappedFile) Close() error {
	m.Lock()
	defer m.Unlock()

	if m.Closed() {
		return nil
	}
	atomic.StoreInt32(&m.closed, 1)

	var firstErr error
	keep := func(err error) {
		if nil != err && nil == firstErr {
			firstErr = err
		}
	}

	if len(m.data) > 0 {
		keep(unix.Msync(m.data, unix.MS_SYNC))
	}
	keep(m.unmapFile())
	keep(m.file.Truncate(int64(m.logicalSize)))
	keep(m.file.Sync())
	keep(m.file.Close())
	m.file = nil

	if nil != firstErr {
		m.log.Errorf("close: %q  error: %s", m.filename, firstErr)
	} else {
		m.log.Debugf("unmapped: %q  size: %d", m.filename, m.logicalSize)
	}
	return firstErr
}

// Closed - true until Open succeeds and after Close
func (m *MappedFile) Closed() bool {
	return 0 != atomic.LoadInt32(&m.closed)
}

// Size - current size of the file and its mapping
func (m *MappedFile) Size() uint64 {
	m.RLock()
	defer m.RUnlock()
	return m.fileSize
}

// LogicalSize - number of bytes in use, never more than Size
func (m *MappedFile) LogicalSize() uint64 {
	m.RLock()
	defer m.RUnlock()
	return m.logicalSize
}

// Access - shared view of the whole mapping
func (m *MappedFile) Access() (*Accessor, error) {
	return m.AccessRange(0, 0)
}

// AccessRange - shared view of [offset, offset+length)
//
// a zero length extends the view to the end of the mapping
func (m *MappedFile) AccessRange(offset uint64, length uint64) (*Accessor, error) {
	m.RLock()
	view, err := m.view(offset, length)
	if nil != err {
		m.RUnlock()
		return nil, err
	}
	a := &Accessor{}
	a.data = view
	a.unlock = m.RUnlock
	return a, nil
}

// Resize - make the file exactly size bytes and return an exclusive view of it
func (m *MappedFile) Resize(size uint64) (*Allocation, error) {
	m.Lock()
	if m.Closed() {
		m.Unlock()
		return nil, fault.ErrFileClosed
	}
	if size != m.fileSize {
		if err := m.truncateMapped(size); nil != err {
			m.Unlock()
			return nil, err
		}
	}
	m.logicalSize = size

	a := &Allocation{}
	a.data = m.data
	a.unlock = m.Unlock
	return a, nil
}

// Reserve - ensure at least size bytes, growing by the default expansion
func (m *MappedFile) Reserve(size uint64) (*Accessor, error) {
	return m.ReserveWithGrowth(size, m.expansion)
}

// ReserveWithGrowth - ensure at least size bytes
//
// when the file must grow it becomes size + size*ratio/100 bytes;
// the remap is exclusive, the returned view is shared
func (m *MappedFile) ReserveWithGrowth(size uint64, ratio uint64) (*Accessor, error) {
	m.Lock()
	if m.Closed() {
		m.Unlock()
		return nil, fault.ErrFileClosed
	}
	if size > m.fileSize {
		target := size + size*ratio/100
		if err := m.truncateMapped(target); nil != err {
			m.Unlock()
			return nil, err
		}
		m.log.Debugf("resized: %q  size: %d", m.filename, target)
	}
	if size > m.logicalSize {
		m.logicalSize = size
	}
	m.Unlock()

	// downgrade: a remap between these two calls only replaces the
	// mapping, the view below is taken from the current one
	m.RLock()
	view, err := m.view(0, 0)
	if nil != err {
		m.RUnlock()
		return nil, err
	}
	a := &Accessor{}
	a.data = view
	a.unlock = m.RUnlock
	return a, nil
}

// view - must hold either lock
func (m *MappedFile) view(offset uint64, length uint64) ([]byte, error) {
	if m.Closed() {
		return nil, fault.ErrFileClosed
	}
	size := uint64(len(m.data))
	if offset > size {
		return nil, fault.ErrOutOfRange
	}
	if 0 == length {
		return m.data[offset:size:size], nil
	}
	end := offset + length
	if end < offset || end > size {
		return nil, fault.ErrOutOfRange
	}
	return m.data[offset:end:end], nil
}

// truncateMapped - must hold the exclusive lock
func (m *MappedFile) truncateMapped(size uint64) error {
	if err := m.unmapFile(); nil != err {
		return err
	}
	if err := allocate(m.file, m.fileSize, size); nil != err {
		m.log.Errorf("truncate: %q  size: %d  error: %s", m.filename, size, err)

		// restore the previous mapping so existing data stays reachable
		if mapErr := m.mapFile(m.fileSize); nil != mapErr {
			m.log.Criticalf("remap after failed truncate: %q  error: %s", m.filename, mapErr)
		}
		return err
	}
	m.fileSize = size
	return m.mapFile(size)
}

func (m *MappedFile) mapFile(size uint64) error {
	if 0 == size {
		m.data = nil
		return nil
	}
	data, err := unix.Mmap(int(m.file.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if nil != err {
		m.log.Errorf("mmap: %q  size: %d  error: %s", m.filename, size, err)
		return fault.ErrMapFailed
	}
	_ = unix.Madvise(data, unix.MADV_RANDOM)
	m.data = data
	return nil
}

func (m *MappedFile) unmapFile() error {
	if nil == m.data {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	if nil != err {
		m.log.Errorf("munmap: %q  error: %s", m.filename, err)
	}
	return err
}
