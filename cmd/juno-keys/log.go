package main

import (
	"github.com/btcsuite/btclog"
	"github.com/juno-cash/juno-keys/build"
	"github.com/juno-cash/juno-keys/keychain"
	"github.com/juno-cash/juno-keys/secretfile"
	"github.com/juno-cash/juno-keys/ufvk"
	"github.com/juno-cash/juno-keys/walletseed"
)

// jkeyLog is the logger of the command itself. It stays disabled until
// setupLoggers runs.
var jkeyLog = btclog.Disabled

// setupLoggers creates one logger per subsystem from the manager and hands
// them to their packages.
func setupLoggers(mgr *build.SubLoggerManager) {
	jkeyLog = build.NewSubLogger("JKEY", mgr.GenSubLogger)

	walletseed.UseLogger(
		build.NewSubLogger(walletseed.Subsystem, mgr.GenSubLogger),
	)
	keychain.UseLogger(
		build.NewSubLogger(keychain.Subsystem, mgr.GenSubLogger),
	)
	ufvk.UseLogger(build.NewSubLogger(ufvk.Subsystem, mgr.GenSubLogger))
	secretfile.UseLogger(
		build.NewSubLogger(secretfile.Subsystem, mgr.GenSubLogger),
	)
}
