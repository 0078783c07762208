// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/getoptions"
	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/chainstore/chainstate"
	"github.com/bitmark-inc/chainstore/configuration"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/genesis"
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
		{Long: "clean", HasArg: getoptions.NO_ARGUMENT, Short: 'C'},
		{Long: "config-file", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'c'},
	}

	program, options, arguments, err := getoptions.GetOS(flags)
	if nil != err {
		exitwithstatus.Message("%s: getoptions error: %s", program, err)
	}

	if len(options["version"]) > 0 {
		exitwithstatus.Message("%s: version: %s", program, version)
	}

	if len(options["help"]) > 0 {
		exitwithstatus.Message("usage: %s [--help] [--verbose] [--clean] [--config-file=FILE] [directory]", program)
	}

	if len(options["config-file"]) > 1 {
		exitwithstatus.Message("%s: only one config-file option is allowed, %d were detected", program, len(options["config-file"]))
	}
	if len(arguments) > 1 {
		exitwithstatus.Message("%s: at most one directory is allowed", program)
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
	if 1 == len(arguments) {
		settings.Directory = arguments[0]
	}

	if _, err := os.Stat(settings.Directory); nil == err {
		if 0 == len(options["clean"]) {
			exitwithstatus.Message("%s: directory: %q already exists", program, settings.Directory)
		}
		if err := os.RemoveAll(settings.Directory); nil != err {
			exitwithstatus.Message("%s: remove: %q  error: %s", program, settings.Directory, err)
		}
	}

	// start logging
	settings.Logging.Console = len(options["verbose"]) > 0
	if err := os.MkdirAll(settings.Logging.Directory, 0700); nil != err {
		exitwithstatus.Message("%s: log directory: %q  error: %s", program, settings.Logging.Directory, err)
	}
	if err = logger.Initialise(settings.Logging); nil != err {
		exitwithstatus.Message("%s: logger setup failed with error: %s", program, err)
	}
	defer logger.Finalise()

	if err := fault.Initialise(); nil != err {
		exitwithstatus.Message("%s: fault setup failed with error: %s", program, err)
	}
	defer fault.Finalise()

	log := logger.New("initchain")
	defer log.Info("finished")
	log.Info("starting…")
	log.Infof("version: %s", version)

	// ------------------
	// start of real main
	// ------------------

	database, err := chainstate.New(settings)
	if nil != err {
		log.Criticalf("settings error: %s", err)
		exitwithstatus.Message("%s: settings error: %s", program, err)
	}

	block := genesis.Block()
	if err := database.Create(block); nil != err {
		log.Criticalf("create: %q  error: %s", settings.Directory, err)
		exitwithstatus.Message("%s: create: %q  error: %s", program, settings.Directory, err)
	}
	if err := database.Close(); nil != err {
		log.Criticalf("close: %q  error: %s", settings.Directory, err)
		exitwithstatus.Message("%s: close: %q  error: %s", program, settings.Directory, err)
	}

	fmt.Printf("initialised: %q  genesis: %s\n", settings.Directory, block.Hash())
}
