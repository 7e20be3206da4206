//go:build unix

package main

import (
	"os"
	"syscall"
)

var (
	haltSignal   os.Signal = syscall.SIGUSR1
	resumeSignal os.Signal = syscall.SIGUSR2
)
