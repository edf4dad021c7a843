// Command ledger-crawler drives a Speculos-emulated hardware wallet from the
// command line: it prints and navigates device screens, reads paginated
// values, checks interaction scripts, runs wallet commands while asserting
// the device prompts, and can serve a built-in emulator.
package main

import (
	"os"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
