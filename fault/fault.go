// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

// GenericError - error base
type GenericError string

// to allow for different classes of errors
type ExistsError GenericError
type InvalidError GenericError
type LengthError GenericError
type NotFoundError GenericError
type ProcessError GenericError
type RecordError GenericError

// common errors - keep in alphabetic order
var (
	ErrAlreadyInitialised      = ExistsError("already initialised")
	ErrBucketCountMismatch     = RecordError("bucket count does not match file header")
	ErrCannotLockDatabase      = ProcessError("cannot lock database")
	ErrConfigurationNotTable   = InvalidError("configuration file must return a table")
	ErrDatabaseCorrupt         = RecordError("database is corrupt")
	ErrDatabaseIsClosed        = ProcessError("database is closed")
	ErrDiskFull                = ProcessError("insufficient disk space to grow file")
	ErrEmptyBlock              = InvalidError("block has no transactions")
	ErrFileClosed              = ProcessError("mapped file is closed")
	ErrFileTooSmall            = LengthError("file is smaller than its stored header")
	ErrFlushLockExists         = ExistsError("flush lock exists: previous shutdown was not clean")
	ErrInvalidBucketCount      = InvalidError("invalid bucket count")
	ErrInvalidCount            = InvalidError("invalid count")
	ErrInvalidEngine           = InvalidError("invalid storage engine")
	ErrInvalidGrowthRate       = InvalidError("file growth rate must be positive")
	ErrInvalidKeyLength        = LengthError("invalid key length")
	ErrInvalidLoggerChannel    = InvalidError("invalid logger channel")
	ErrInvalidValueLength      = LengthError("invalid value length")
	ErrKeyExists               = ExistsError("key already exists")
	ErrKeyNotFound             = NotFoundError("key not found")
	ErrMapFailed               = ProcessError("memory map failed")
	ErrMissingParameters       = InvalidError("missing parameters")
	ErrNotInitialised          = NotFoundError("not initialised")
	ErrOperationFailed         = ProcessError("operation failed")
	ErrOutOfRange              = LengthError("access out of range")
	ErrPopGenesis              = InvalidError("cannot pop the genesis block")
	ErrPoolTransactionNotFound = NotFoundError("pooled transaction not found")
	ErrReadOnlyTransaction     = ProcessError("write in a read only transaction")
	ErrReorgDataNotFound       = NotFoundError("reorganization data not found")
	ErrStoreBlockDuplicate     = ExistsError("block already exists at height")
	ErrStoreBlockInvalidHeight = InvalidError("block height is not the next height")
	ErrStoreBlockMissingParent = InvalidError("block parent does not match current top")
	ErrTransactionAlreadyInUse = ProcessError("transaction already in use")
	ErrTransactionIsNotInUse   = ProcessError("transaction is not in use")
	ErrTruncatedData           = LengthError("data is truncated")
	ErrUnspentDuplicate        = ExistsError("transaction has an unspent duplicate")
	ErrWriteLocked             = ProcessError("database is write locked")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e ExistsError) Error() string   { return string(e) }
func (e InvalidError) Error() string  { return string(e) }
func (e LengthError) Error() string   { return string(e) }
func (e NotFoundError) Error() string { return string(e) }
func (e ProcessError) Error() string  { return string(e) }
func (e RecordError) Error() string   { return string(e) }

// determine the class of an error
func IsErrExists(e error) bool   { _, ok := e.(ExistsError); return ok }
func IsErrInvalid(e error) bool  { _, ok := e.(InvalidError); return ok }
func IsErrLength(e error) bool   { _, ok := e.(LengthError); return ok }
func IsErrNotFound(e error) bool { _, ok := e.(NotFoundError); return ok }
func IsErrProcess(e error) bool  { _, ok := e.(ProcessError); return ok }
func IsErrRecord(e error) bool   { _, ok := e.(RecordError); return ok }
