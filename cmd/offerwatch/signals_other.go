//go:build !unix

package main

import "os"

// No user signals here; nil never matches a delivered signal.
var (
	haltSignal   os.Signal
	resumeSignal os.Signal
)
