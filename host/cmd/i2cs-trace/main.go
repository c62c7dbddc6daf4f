// Command i2cs-trace captures and views bus trace streams.
//
//	i2cs-trace capture [-device /dev/ttyUSB0] [-baud 115200] [-n 0] -o bus.cap
//	i2cs-trace view [-addr 0x50] [-kind ADDR_NACK] bus.cap
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"time"

	"hatfw/host/mcu"
	"hatfw/host/serial"
	"hatfw/host/tracecap"
	"hatfw/i2cs"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "capture":
		err = capture(os.Args[2:])
	case "view":
		err = view(os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  i2cs-trace capture [-device path] [-baud rate] [-n count] -o file")
	fmt.Fprintln(os.Stderr, "  i2cs-trace view [-addr a] [-kind k] file")
}

func capture(args []string) error {
	fs := flag.NewFlagSet("capture", flag.ExitOnError)
	device := fs.String("device", "/dev/ttyUSB0", "Serial device path")
	baud := fs.Int("baud", serial.DefaultBaud, "Baud rate")
	out := fs.String("o", "", "Capture file")
	count := fs.Int("n", 0, "Stop after n events (0 = until interrupted)")
	verbose := fs.Bool("v", false, "Print events while capturing")
	fs.Parse(args)

	if *out == "" {
		return errors.New("capture: -o is required")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	mon, err := mcu.ConnectWithConfig(cfg)
	if err != nil {
		return err
	}
	defer mon.Close()

	w, err := tracecap.Create(*out, *device)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info("capturing", "device", *device, "baud", *baud, "file", *out, "session", w.Header().Session)
	n := 0
	for *count == 0 || n < *count {
		ev, err := mon.Next(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		rec := tracecap.NewRecord(ev, time.Now())
		if err := w.Write(rec); err != nil {
			return err
		}
		log.Debug(rec.String())
		n++
	}

	missed, bad, dropped := mon.Stats()
	log.Info("capture done", "events", n, "missed_frames", missed, "bad_frames", bad, "dropped_bytes", dropped)
	return nil
}

func parseKind(s string) (i2cs.TraceKind, error) {
	for k := i2cs.TraceStart; k <= i2cs.TraceLost; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

func view(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	addr := fs.String("addr", "", "Only events for this address")
	kind := fs.String("kind", "", "Only events of this kind (e.g. ADDR_NACK)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("view: exactly one capture file expected")
	}

	var filter tracecap.Filter
	if *addr != "" {
		v, err := strconv.ParseUint(*addr, 0, 7)
		if err != nil {
			return fmt.Errorf("view: -addr: %w", err)
		}
		a := i2cs.Addr(v)
		filter.Addr = &a
	}
	if *kind != "" {
		k, err := parseKind(*kind)
		if err != nil {
			return err
		}
		filter.Kind = &k
	}

	r, err := tracecap.Open(fs.Arg(0), filter)
	if err != nil {
		return err
	}
	defer r.Close()

	h := r.Header()
	fmt.Fprintf(out, "# session %s source %q created %s\n", h.Session, h.Source, h.Created.Format(time.RFC3339))
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, rec.String())
	}
}
