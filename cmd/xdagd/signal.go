package main

import (
	"os"
	"os/signal"
	"syscall"
)

// waitForShutdownSignal blocks until SIGINT or SIGTERM arrives.
func waitForShutdownSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
}
