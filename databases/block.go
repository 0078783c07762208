// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package databases

import (
	"encoding/binary"
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/memory"
	"github.com/bitmark-inc/chainstore/merkle"
	"github.com/bitmark-inc/chainstore/primitives"
)

const (
	blockHeightOffset = chain.HeaderSize
	blockSizeOffset   = blockHeightOffset + 4
	blockCountOffset  = blockSizeOffset + 8
	blockHashesOffset = blockCountOffset + 4

	// index record: slab position of the block
	positionSize = 8
	gap          = uint64(0)
)

// BlockResult - a stored block without its transactions
type BlockResult struct {
	Hash              merkle.Digest
	Header            chain.Header
	Height            uint32
	Size              uint64
	TransactionHashes []merkle.Digest
}

// BlockDatabase - blocks by hash plus a height index
type BlockDatabase struct {
	sync.RWMutex // index positions

	log *logger.L

	lookupFile *memory.MappedFile
	indexFile  *memory.MappedFile

	header        *primitives.BucketTable
	lookupManager *primitives.SlabManager
	lookup        *primitives.SlabHashTable
	index         *primitives.RecordManager
}

// NewBlockDatabase - a closed block store over two existing files
func NewBlockDatabase(lookupFilename string, indexFilename string, buckets uint32, expansion uint64) *BlockDatabase {
	lookupFile := memory.New(lookupFilename, expansion)
	indexFile := memory.New(indexFilename, expansion)
	header := primitives.NewSlabBucketTable(lookupFile, buckets)
	manager := primitives.NewSlabManager(lookupFile, header.HeaderSize())
	return &BlockDatabase{
		log:           logger.New("databases"),
		lookupFile:    lookupFile,
		indexFile:     indexFile,
		header:        header,
		lookupManager: manager,
		lookup:        primitives.NewSlabHashTable(header, manager, merkle.DigestLength),
		index:         primitives.NewRecordManager(indexFile, 0, positionSize),
	}
}

// Create - initialise both files
func (b *BlockDatabase) Create() error {
	if err := openFiles(b.lookupFile, b.indexFile); nil != err {
		return err
	}
	return firstError(
		b.header.Create,
		b.lookupManager.Create,
		b.index.Create,
		b.start,
	)
}

// Open - start from the stored headers
func (b *BlockDatabase) Open() error {
	if err := openFiles(b.lookupFile, b.indexFile); nil != err {
		return err
	}
	if err := b.start(); nil != err {
		b.log.Errorf("block open: error: %s", err)
		closeFiles(b.lookupFile, b.indexFile)
		return err
	}
	return nil
}

func (b *BlockDatabase) start() error {
	return firstError(
		b.header.Start,
		b.lookupManager.Start,
		b.index.Start,
	)
}

// Close - unmap both files
func (b *BlockDatabase) Close() error {
	return closeFiles(b.lookupFile, b.indexFile)
}

// Synchronize - persist the allocation counts
func (b *BlockDatabase) Synchronize() error {
	return firstError(
		b.lookupManager.Sync,
		b.index.Sync,
	)
}

// Flush - write mapped pages to disk
func (b *BlockDatabase) Flush() error {
	return flushFiles(b.lookupFile, b.indexFile)
}

// Store - add a block at height, heights skipped over become gaps
func (b *BlockDatabase) Store(block *chain.Block, height uint32) error {
	hash := block.Hash()
	hashes := block.TransactionHashes()
	size := blockHashesOffset + len(hashes)*merkle.DigestLength
	serialisedSize := uint64(len(block.Pack()))

	write := func(value []byte) {
		copy(value, block.Header.Pack())
		binary.LittleEndian.PutUint32(value[blockHeightOffset:], height)
		binary.LittleEndian.PutUint64(value[blockSizeOffset:], serialisedSize)
		binary.LittleEndian.PutUint32(value[blockCountOffset:], uint32(len(hashes)))
		for i, h := range hashes {
			copy(value[blockHashesOffset+i*merkle.DigestLength:], h[:])
		}
	}

	position, err := b.lookup.Store(hash[:], size, write)
	if nil != err {
		return err
	}
	return b.writePosition(position, height)
}

func (b *BlockDatabase) writePosition(position uint64, height uint32) error {
	b.Lock()
	defer b.Unlock()

	count := b.index.Count()
	if height >= count {
		if _, err := b.index.NewRecords(height + 1 - count); nil != err {
			return err
		}
		// records reused after an unlink still hold old positions
		for i := count; i < height; i += 1 {
			if err := b.putPosition(i, gap); nil != err {
				return err
			}
		}
	}
	return b.putPosition(height, position)
}

func (b *BlockDatabase) putPosition(height uint32, position uint64) error {
	a, err := b.index.Get(height)
	if nil != err {
		return err
	}
	a.PutUint64(0, position)
	a.Release()
	return nil
}

// gap when the height is beyond the top
func (b *BlockDatabase) readPosition(height uint32) (uint64, error) {
	if height >= b.index.Count() {
		return gap, nil
	}

	b.RLock()
	defer b.RUnlock()

	a, err := b.index.Get(height)
	if nil != err {
		return gap, err
	}
	defer a.Release()
	return a.Uint64(0), nil
}

// Exists - true when a block is stored at height
func (b *BlockDatabase) Exists(height uint32) bool {
	position, err := b.readPosition(height)
	return nil == err && gap != position
}

// Get - the block at height
func (b *BlockDatabase) Get(height uint32) (*BlockResult, error) {
	position, err := b.readPosition(height)
	if nil != err {
		return nil, err
	}
	if gap == position {
		return nil, fault.ErrKeyNotFound
	}
	a, err := b.lookup.Get(position)
	if nil != err {
		return nil, err
	}
	defer a.Release()
	return decodeBlock(a.Bytes())
}

// GetByHash - the block with hash, only while it is in the height index
func (b *BlockDatabase) GetByHash(hash merkle.Digest) (*BlockResult, error) {
	a, err := b.lookup.Find(hash[:])
	if nil != err {
		return nil, err
	}
	result, err := decodeBlock(a.Bytes())
	a.Release()
	if nil != err {
		return nil, err
	}

	// an unlinked block stays in the lookup table
	indexed, err := b.Get(result.Height)
	if nil != err || indexed.Hash != hash {
		return nil, fault.ErrKeyNotFound
	}
	return result, nil
}

func decodeBlock(value []byte) (*BlockResult, error) {
	if len(value) < blockHashesOffset {
		return nil, fault.ErrDatabaseCorrupt
	}
	header, err := chain.UnpackHeader(value)
	if nil != err {
		return nil, fault.ErrDatabaseCorrupt
	}
	count := int(binary.LittleEndian.Uint32(value[blockCountOffset:]))
	if count > (len(value)-blockHashesOffset)/merkle.DigestLength {
		return nil, fault.ErrDatabaseCorrupt
	}

	result := &BlockResult{
		Hash:              header.Hash(),
		Header:            *header,
		Height:            binary.LittleEndian.Uint32(value[blockHeightOffset:]),
		Size:              binary.LittleEndian.Uint64(value[blockSizeOffset:]),
		TransactionHashes: make([]merkle.Digest, count),
	}
	for i := range result.TransactionHashes {
		copy(result.TransactionHashes[i][:], value[blockHashesOffset+i*merkle.DigestLength:])
	}
	return result, nil
}

// Gaps - heights below the top with no block
func (b *BlockDatabase) Gaps() ([]uint32, error) {
	gaps := []uint32{}
	count := b.index.Count()
	for height := uint32(0); height < count; height += 1 {
		position, err := b.readPosition(height)
		if nil != err {
			return nil, err
		}
		if gap == position {
			gaps = append(gaps, height)
		}
	}
	return gaps, nil
}

// Unlink - drop every height from fromHeight up, false if there were none
func (b *BlockDatabase) Unlink(fromHeight uint32) (bool, error) {
	b.Lock()
	defer b.Unlock()

	if b.index.Count() <= fromHeight {
		return false, nil
	}
	if err := b.index.SetCount(fromHeight); nil != err {
		return false, err
	}
	return true, nil
}

// Top - the highest indexed height, false when empty
func (b *BlockDatabase) Top() (uint32, bool) {
	count := b.index.Count()
	if 0 == count {
		return 0, false
	}
	return count - 1, true
}
