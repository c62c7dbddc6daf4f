// Command i2cs-sim runs the HAT firmware against a simulated bus master.
//
// Usage:
//
//	i2cs-sim [-config board.yaml] [-trace out.cap] [-v] scenario.yaml...
//	i2cs-sim [-config board.yaml] -i
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"hatfw/config"
	"hatfw/core"
	"hatfw/host/tracecap"
	"hatfw/sim"
)

var (
	configPath  = flag.String("config", "", "Board configuration file (default: ATtiny85 HAT)")
	tracePath   = flag.String("trace", "", "Write bus events to a capture file")
	interactive = flag.Bool("i", false, "Interactive console")
	verbose     = flag.Bool("v", false, "Log every bus event")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func run() error {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}

	s, err := sim.NewSystem(cfg)
	if err != nil {
		return err
	}

	var capture *tracecap.Writer
	if *tracePath != "" {
		if capture, err = tracecap.Create(*tracePath, "sim"); err != nil {
			return err
		}
		defer capture.Close()
	}

	log := newLogger(os.Stderr)
	drain := func() error {
		evs, lost := s.Events()
		for i := range evs {
			log.Debug(core.FormatBusEvent(&evs[i]))
		}
		if lost > 0 {
			log.Warn("trace overflow", "lost", lost)
		}
		if capture == nil {
			return nil
		}
		return capture.WriteEvents(evs)
	}

	if *interactive {
		console, err := NewConsole(s, drain)
		if err != nil {
			return err
		}
		log = newLogger(console.Stdout())
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return console.Run(ctx)
	}

	if flag.NArg() == 0 {
		return fmt.Errorf("no scenario given (use -i for the console)")
	}
	for _, path := range flag.Args() {
		sc, err := LoadScenario(path)
		if err != nil {
			return err
		}
		log.Info("running scenario", "file", path, "name", sc.Name, "steps", len(sc.Steps))
		if err := sc.Run(s, log, drain); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	log.Info("all scenarios passed")
	return nil
}
