package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/extsync/device"
)

func main() {
	var (
		iterations  = flag.Int("iterations", 1, "Number of producer/consumer rounds")
		fence       = flag.Bool("fence", false, "Bind imported semaphores as fences")
		noLayouts   = flag.Bool("no-layouts", false, "Backend without layout transition support")
		traceFile   = flag.String("trace", "", "Write the journal of each round to this file (msgpack frames)")
		readFile    = flag.String("read", "", "Print a journal written with -trace and exit")
		verbose     = flag.Bool("v", false, "Debug logging to stderr")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	log := zap.NewNop()
	if *verbose {
		var err error
		log, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()
	}
	device.SetLogger(log)

	opts := scenarioOptions{
		log:         log,
		iterations:  *iterations,
		fence:       *fence,
		transitions: !*noLayouts,
		traceFile:   *traceFile,
	}

	var err error
	switch {
	case *readFile != "":
		err = printTrace(os.Stdout, *readFile)
	case *interactive:
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Usage: extsync -i requires a terminal")
			os.Exit(1)
		}
		err = runInteractive(opts)
	default:
		err = runScenario(os.Stdout, opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
