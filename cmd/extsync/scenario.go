package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/extsync/backend"
	"github.com/wippyai/extsync/backend/recorder"
	"github.com/wippyai/extsync/device"
	"github.com/wippyai/extsync/oshandle"
)

type scenarioOptions struct {
	log         *zap.Logger
	traceFile   string
	iterations  int
	fence       bool
	transitions bool
}

func (o scenarioOptions) recorder() *recorder.Context {
	return recorder.New(&recorder.Options{
		Logger: o.log,
		Caps: backend.Caps{
			LayoutTransitions: o.transitions,
			FenceInterop:      o.fence,
		},
		SkipFDCheck: !exportableFDs,
	})
}

// runScenario plays a producer and a consumer sharing two semaphores: the
// producer renders into a buffer and a texture and signals "ready", the
// consumer waits on it, samples the texture and signals "done".
func runScenario(w io.Writer, opts scenarioOptions) error {
	if opts.iterations < 1 {
		return fmt.Errorf("iterations must be positive, got %d", opts.iterations)
	}

	var enc *recorder.Encoder
	if opts.traceFile != "" {
		f, err := os.Create(opts.traceFile)
		if err != nil {
			return fmt.Errorf("create trace: %w", err)
		}
		defer f.Close()
		enc = recorder.NewEncoder(f)
	}

	for i := 0; i < opts.iterations; i++ {
		rec := opts.recorder()
		if err := round(rec, opts.log); err != nil {
			return fmt.Errorf("round %d: %w", i+1, err)
		}

		journal := rec.Journal()
		fmt.Fprintf(w, "round %d: %d backend calls\n", i+1, len(journal))
		for _, c := range journal {
			fmt.Fprintf(w, "  %s\n", c)
		}
		if enc != nil {
			if err := enc.Encode(journal); err != nil {
				return fmt.Errorf("write trace: %w", err)
			}
		}
	}
	return nil
}

func round(rec *recorder.Context, log *zap.Logger) error {
	dev := device.New(rec, &device.Config{Logger: log})
	defer dev.Close()

	names, err := dev.CreateSemaphores(2)
	if err != nil {
		return err
	}
	ready, done := names[0], names[1]

	for _, name := range names {
		if err := importFD(dev, name); err != nil {
			return err
		}
	}

	vertices := recorder.Buffer(1)
	target := recorder.Texture(2)

	err = dev.ServerSignalSemaphore(ready,
		[]backend.Resource{vertices},
		[]backend.Resource{target},
		[]device.Layout{device.LayoutShaderReadOnly})
	if err != nil {
		return err
	}

	err = dev.ServerWaitSemaphore(ready,
		nil,
		[]backend.Resource{target},
		[]device.Layout{device.LayoutShaderReadOnly})
	if err != nil {
		return err
	}

	err = dev.ServerSignalSemaphore(done,
		nil,
		[]backend.Resource{target},
		[]device.Layout{device.LayoutColorAttachment})
	if err != nil {
		return err
	}

	dev.DeleteSemaphores(names)
	return nil
}

func importFD(dev *device.Device, name device.Name) error {
	fd, err := openFD()
	if err != nil {
		return fmt.Errorf("open descriptor: %w", err)
	}
	h := oshandle.New(oshandle.OpaqueFD, fd)
	err = dev.ImportSemaphoreFromHandle(name, h)
	if !h.Consumed() {
		// Rejected before the device took ownership.
		h.Release()
	}
	return err
}

func printTrace(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := recorder.NewDecoder(f)
	for i := 1; ; i++ {
		calls, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		fmt.Fprintf(w, "round %d: %d backend calls\n", i, len(calls))
		for _, c := range calls {
			fmt.Fprintf(w, "  %s\n", c)
		}
	}
}
