// Command sketchtree builds and searches Sequence Bloom Trees of MinHash
// sketches.
//
// Usage:
//
//	sketchtree index genomes a.sig b.sig c.sig
//	sketchtree search genomes.sbt.json query.sig --threshold 0.2
//	sketchtree info genomes.sbt.json
//	sketchtree serve genomes.sbt.json --addr :8080
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
