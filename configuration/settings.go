// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"path/filepath"
	"strings"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/storage"
)

// basic defaults (directories are relative to the configuration file)
const (
	defaultDirectory      = "blockchain"
	defaultEngine         = storage.EngineBolt
	defaultFileGrowthRate = 50
	defaultReorgPoolLimit = 100
	defaultReorgMinimum   = 0
	defaultCacheCapacity  = 0
	defaultHeaderCache    = 1000

	defaultBlockBuckets       = 650
	defaultTransactionBuckets = 16000
	defaultUnconfirmedBuckets = 10000
	defaultSpendBuckets       = 10000
	defaultHistoryBuckets     = 10000

	defaultLogDirectory = "log"
	defaultLogFile      = "chainstore.log"
	defaultLogCount     = 10          //  number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when <logfile> exceeds this size
)

// DisabledIndexHeight - index_start_height that turns off the address indexes
const DisabledIndexHeight = uint32(0xffffffff)

// LoglevelMap - to hold log levels
type LoglevelMap map[string]string

var defaultLogLevels = LoglevelMap{
	"chainstate":      "info",
	logger.DefaultTag: "critical",
}

// Settings - everything needed to construct a chain database
type Settings struct {
	Directory         string `gluamapper:"directory" json:"directory"`
	Engine            string `gluamapper:"engine" json:"engine"`
	FlushWrites       bool   `gluamapper:"flush_writes" json:"flush_writes"`
	FileGrowthRate    uint64 `gluamapper:"file_growth_rate" json:"file_growth_rate"`
	IndexStartHeight  uint32 `gluamapper:"index_start_height" json:"index_start_height"`
	ReorgPoolLimit    uint32 `gluamapper:"reorg_pool_limit" json:"reorg_pool_limit"`
	ReorgMinimumAge   uint32 `gluamapper:"reorg_minimum_age" json:"reorg_minimum_age"` // seconds
	CacheCapacity     int    `gluamapper:"cache_capacity" json:"cache_capacity"`
	HeaderCacheSize   int    `gluamapper:"header_cache_size" json:"header_cache_size"`
	CompactPointIndex bool   `gluamapper:"compact_point_index" json:"compact_point_index"`

	BlockTableBuckets                  uint32 `gluamapper:"block_table_buckets" json:"block_table_buckets"`
	TransactionTableBuckets            uint32 `gluamapper:"transaction_table_buckets" json:"transaction_table_buckets"`
	TransactionUnconfirmedTableBuckets uint32 `gluamapper:"transaction_unconfirmed_table_buckets" json:"transaction_unconfirmed_table_buckets"`
	SpendTableBuckets                  uint32 `gluamapper:"spend_table_buckets" json:"spend_table_buckets"`
	HistoryTableBuckets                uint32 `gluamapper:"history_table_buckets" json:"history_table_buckets"`

	Logging logger.Configuration `gluamapper:"logging" json:"logging"`
}

// Default - settings for a small database in directory
func Default(directory string) Settings {
	return Settings{
		Directory:         directory,
		Engine:            defaultEngine,
		FlushWrites:       false,
		FileGrowthRate:    defaultFileGrowthRate,
		IndexStartHeight:  0,
		ReorgPoolLimit:    defaultReorgPoolLimit,
		ReorgMinimumAge:   defaultReorgMinimum,
		CacheCapacity:     defaultCacheCapacity,
		HeaderCacheSize:   defaultHeaderCache,
		CompactPointIndex: false,

		BlockTableBuckets:                  defaultBlockBuckets,
		TransactionTableBuckets:            defaultTransactionBuckets,
		TransactionUnconfirmedTableBuckets: defaultUnconfirmedBuckets,
		SpendTableBuckets:                  defaultSpendBuckets,
		HistoryTableBuckets:                defaultHistoryBuckets,

		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels,
		},
	}
}

// Mainnet - table sizes for a full chain
func Mainnet(directory string) Settings {
	s := Default(directory)
	s.BlockTableBuckets = 650000
	s.TransactionTableBuckets = 110000000
	s.TransactionUnconfirmedTableBuckets = 10000
	s.SpendTableBuckets = 250000000
	s.HistoryTableBuckets = 107000000
	s.CacheCapacity = 10000
	return s
}

// IndexesEnabled - false when the address indexes are turned off
func (s *Settings) IndexesEnabled() bool {
	return DisabledIndexHeight != s.IndexStartHeight
}

// Validate - check values that cannot be used as given
func (s *Settings) Validate() error {
	s.Engine = strings.ToLower(s.Engine)
	switch s.Engine {
	case storage.EngineBolt, storage.EngineLevelDB:
	default:
		return fault.ErrInvalidEngine
	}

	if 0 == s.FileGrowthRate {
		return fault.ErrInvalidGrowthRate
	}

	for _, buckets := range []uint32{
		s.BlockTableBuckets,
		s.TransactionTableBuckets,
		s.TransactionUnconfirmedTableBuckets,
		s.SpendTableBuckets,
		s.HistoryTableBuckets,
	} {
		if 0 == buckets {
			return fault.ErrInvalidBucketCount
		}
	}
	if s.CacheCapacity < 0 {
		s.CacheCapacity = 0
	}
	if s.HeaderCacheSize < 0 {
		s.HeaderCacheSize = 0
	}
	return nil
}

// Load - read settings from a Lua file over the defaults
//
// relative directories are taken from the file's own directory
func Load(fileName string, variables map[string]string) (*Settings, error) {
	fileName, err := filepath.Abs(filepath.Clean(fileName))
	if nil != err {
		return nil, err
	}
	base := filepath.Dir(fileName)

	settings := Default(defaultDirectory)
	if err := ParseConfigurationFile(fileName, &settings, variables); nil != err {
		return nil, err
	}
	if err := settings.Validate(); nil != err {
		return nil, err
	}

	settings.Directory = ensureAbsolute(base, settings.Directory)
	settings.Logging.Directory = ensureAbsolute(base, settings.Logging.Directory)
	return &settings, nil
}
