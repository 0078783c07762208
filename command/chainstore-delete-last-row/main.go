// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/getoptions"
	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/chainstore/chain"
	"github.com/bitmark-inc/chainstore/chainstate"
	"github.com/bitmark-inc/chainstore/configuration"
	"github.com/bitmark-inc/chainstore/fault"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

// main program
func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()

	flags := []getoptions.Option{
		{Long: "help", HasArg: getoptions.NO_ARGUMENT, Short: 'h'},
		{Long: "verbose", HasArg: getoptions.NO_ARGUMENT, Short: 'v'},
		{Long: "version", HasArg: getoptions.NO_ARGUMENT, Short: 'V'},
		{Long: "config-file", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'c'},
	}

	program, options, arguments, err := getoptions.GetOS(flags)
	if nil != err {
		exitwithstatus.Message("%s: getoptions error: %s", program, err)
	}

	if len(options["version"]) > 0 {
		exitwithstatus.Message("%s: version: %s", program, version)
	}

	if len(options["help"]) > 0 || 0 == len(arguments) || len(arguments) > 2 {
		exitwithstatus.Message("usage: %s [--help] [--verbose] [--config-file=FILE] [directory] address-hash-hex", program)
	}

	settings := configuration.Default("blockchain")
	if 1 == len(options["config-file"]) {
		configurationFile := options["config-file"][0]
		s, err := configuration.Load(configurationFile, nil)
		if nil != err {
			exitwithstatus.Message("%s: failed to read configuration from: %q  error: %s", program, configurationFile, err)
		}
		settings = *s
	}
	if 2 == len(arguments) {
		settings.Directory = arguments[0]
		arguments = arguments[1:]
	}

	b, err := hex.DecodeString(arguments[0])
	if nil != err || chain.ShortHashSize != len(b) {
		exitwithstatus.Message("%s: address hash must be %d hex bytes: %q", program, chain.ShortHashSize, arguments[0])
	}
	var address chain.ShortHash
	copy(address[:], b)

	// start logging
	settings.Logging.Console = len(options["verbose"]) > 0
	if err = logger.Initialise(settings.Logging); nil != err {
		exitwithstatus.Message("%s: logger setup failed with error: %s", program, err)
	}
	defer logger.Finalise()

	if err := fault.Initialise(); nil != err {
		exitwithstatus.Message("%s: fault setup failed with error: %s", program, err)
	}
	defer fault.Finalise()

	log := logger.New("main")
	defer log.Info("finished")
	log.Info("starting…")

	// ------------------
	// start of real main
	// ------------------

	database, err := chainstate.New(settings)
	if nil != err {
		exitwithstatus.Message("%s: settings error: %s", program, err)
	}
	if err := database.Open(); nil != err {
		log.Criticalf("open: %q  error: %s", settings.Directory, err)
		exitwithstatus.Message("%s: open: %q  error: %s", program, settings.Directory, err)
	}

	deleted, err := database.DeleteLastHistoryRow(address)
	if closeErr := database.Close(); nil == err {
		err = closeErr
	}
	if nil != err {
		log.Errorf("delete last row: %x  error: %s", address, err)
		exitwithstatus.Message("%s: delete last row: %x  error: %s", program, address, err)
	}

	if deleted {
		fmt.Printf("removed the last row of: %x\n", address)
	} else {
		fmt.Printf("no rows for: %x\n", address)
	}
}
