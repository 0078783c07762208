// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"bytes"
	"os"
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/natefinch/atomic"
	"golang.org/x/sys/unix"

	"github.com/bitmark-inc/chainstore/fault"
)

// initial content of a mapped file
var placeholder = []byte{'x'}

// Store - a database directory, its process locks and write sequence
type Store struct {
	SequentialLock

	sync.Mutex // lock files

	log         *logger.L
	files       Files
	flushWrites bool
	failed      bool
	exclusive   *os.File
}

// New - a closed store over directory
//
// with flushWrites every write is flushed before it ends, otherwise
// the flush lock is held for the whole time the store is open
func New(directory string, flushWrites bool) *Store {
	return &Store{
		log:         logger.New("store"),
		files:       NewFiles(directory),
		flushWrites: flushWrites,
	}
}

// Files - the paths of this store
func (s *Store) Files() Files {
	return s.files
}

// FlushWrites - true when each write is flushed
func (s *Store) FlushWrites() bool {
	return s.flushWrites
}

// Create - write the placeholder of every mapped file
//
// the directory may exist, the files must not
func (s *Store) Create() error {
	if err := os.MkdirAll(s.files.Directory, 0700); nil != err {
		s.log.Errorf("create directory: %q  error: %s", s.files.Directory, err)
		return err
	}

	for _, filename := range s.files.mapped() {
		if _, err := os.Stat(filename); nil == err {
			s.log.Errorf("create: %q already exists", filename)
			return fault.ErrAlreadyInitialised
		}
	}

	for _, filename := range s.files.mapped() {
		if err := atomic.WriteFile(filename, bytes.NewReader(placeholder)); nil != err {
			s.log.Errorf("create: %q  error: %s", filename, err)
			return err
		}
	}
	s.log.Infof("created: %q", s.files.Directory)
	return nil
}

// Open - take the process lock and check the last shutdown was clean
func (s *Store) Open() error {
	s.Lock()
	defer s.Unlock()

	if nil != s.exclusive {
		return fault.ErrAlreadyInitialised
	}

	file, err := os.OpenFile(s.files.ExclusiveLock, os.O_RDWR|os.O_CREATE, 0600)
	if nil != err {
		s.log.Errorf("open exclusive lock: %q  error: %s", s.files.ExclusiveLock, err)
		return err
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); nil != err {
		s.log.Errorf("lock: %q  error: %s", s.files.ExclusiveLock, err)
		file.Close()
		return fault.ErrCannotLockDatabase
	}

	if _, err := os.Stat(s.files.FlushLock); nil == err {
		s.log.Criticalf("flush lock present: %q", s.files.FlushLock)
		unlock(file)
		return fault.ErrFlushLockExists
	}

	if !s.flushWrites {
		if err := s.createFlushLock(); nil != err {
			unlock(file)
			return err
		}
	}

	s.exclusive = file
	return nil
}

// Close - release the locks, flush has been called if it is not nil
//
// when flush fails or a write was abandoned the flush lock stays in place
func (s *Store) Close(flush func() error) error {
	s.Lock()
	defer s.Unlock()

	if nil == s.exclusive {
		return nil
	}

	var err error
	if nil != flush {
		err = flush()
	}
	if !s.flushWrites && !s.failed && nil == err {
		err = s.removeFlushLock()
	}

	unlock(s.exclusive)
	s.exclusive = nil
	return err
}

// Fail - abandon the current write
//
// the write sequence stays odd so every later write and read handle sees
// the store as locked, and the flush lock is kept when the store closes
func (s *Store) Fail() {
	s.Lock()
	defer s.Unlock()
	s.failed = true
	s.log.Critical("write abandoned, flush lock kept")
}

// Closed - true unless open
func (s *Store) Closed() bool {
	s.Lock()
	defer s.Unlock()
	return nil == s.exclusive
}

// BeginWrite - start the write sequence, creating the flush lock when
// each write is flushed
func (s *Store) BeginWrite() error {
	if !s.SequentialLock.BeginWrite() {
		return fault.ErrWriteLocked
	}
	if s.flushWrites {
		return s.createFlushLock()
	}
	return nil
}

// EndWrite - flush if required, then end the write sequence
func (s *Store) EndWrite(flush func() error) error {
	var err error
	if s.flushWrites {
		if err = flush(); nil == err {
			err = s.removeFlushLock()
		}
	}
	if !s.SequentialLock.EndWrite() && nil == err {
		err = fault.ErrWriteLocked
	}
	return err
}

func (s *Store) createFlushLock() error {
	err := atomic.WriteFile(s.files.FlushLock, bytes.NewReader(nil))
	if nil != err {
		s.log.Errorf("create flush lock: %q  error: %s", s.files.FlushLock, err)
	}
	return err
}

func (s *Store) removeFlushLock() error {
	err := os.Remove(s.files.FlushLock)
	if nil != err && !os.IsNotExist(err) {
		s.log.Errorf("remove flush lock: %q  error: %s", s.files.FlushLock, err)
		return err
	}
	return nil
}

func unlock(file *os.File) {
	unix.Flock(int(file.Fd()), unix.LOCK_UN)
	file.Close()
}
