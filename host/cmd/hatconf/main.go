// Command hatconf reads and writes the HAT configuration items over the
// Raspberry Pi I2C bus.
//
//	hatconf -all
//	hatconf -get pbtxento
//	hatconf -set eemuwe=1
//	hatconf -baud 19.2
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	_ "periph.io/x/host/v3/sysfs"

	"hatfw/config"
	"hatfw/host/hatconf"
)

type options struct {
	get   string
	set   string
	baud  float64
	all   bool
	tries int
}

func main() {
	bus := flag.String("bus", "", "I2C bus name (empty = first available)")
	addr := flag.Uint("addr", config.DefaultConfAddr, "Configuration device address")
	force := flag.Bool("force", false, "Skip the HAT presence check")
	verbose := flag.Bool("v", false, "Verbose logging")

	var opts options
	flag.StringVar(&opts.get, "get", "", "Read one item (name or number)")
	flag.StringVar(&opts.set, "set", "", "Write one item, item=value")
	flag.Float64Var(&opts.baud, "baud", 0, "Derive the transmitter timeout from a UART rate in kBaud")
	flag.BoolVar(&opts.all, "all", false, "Read every item")
	flag.IntVar(&opts.tries, "tries", hatconf.DefaultTries, "Attempts per item")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if !*force && !hatconf.HaveHAT() {
		log.Error("no HAT found, use -force to continue", "product", hatconf.ProductPath)
		os.Exit(1)
	}

	if _, err := driverreg.Init(); err != nil {
		log.Error("host init failed", "err", err)
		os.Exit(1)
	}
	b, err := i2creg.Open(*bus)
	if err != nil {
		log.Error("open bus failed", "bus", *bus, "err", err)
		os.Exit(1)
	}
	defer b.Close()
	log.Debug("bus open", "bus", b.String(), "addr", fmt.Sprintf("0x%02X", *addr))

	c := hatconf.New(b, uint16(*addr))
	c.SetTries(opts.tries)
	if err := run(c, opts, os.Stdout, log); err != nil {
		log.Error("hatconf failed", "err", err)
		os.Exit(1)
	}
}

func run(c *hatconf.Client, opts options, out io.Writer, log *slog.Logger) error {
	switch {
	case opts.set != "":
		name, val, ok := strings.Cut(opts.set, "=")
		if !ok {
			return errors.New("-set expects item=value")
		}
		item, err := hatconf.ParseItem(name)
		if err != nil {
			return err
		}
		v, err := strconv.ParseUint(val, 0, 16)
		if err != nil {
			return fmt.Errorf("%s: %w", item, err)
		}
		if err := c.Set(item, uint16(v)); err != nil {
			return err
		}
		log.Info("item written", "item", item.String(), "value", v)
		return nil

	case opts.baud != 0:
		us, err := hatconf.FrameUS(opts.baud)
		if err != nil {
			return err
		}
		if err := c.SetTxEnTimeout(us); err != nil {
			return err
		}
		log.Info("transmitter timeout written", "kbaud", opts.baud, "us", us)
		return nil

	case opts.get != "":
		item, err := hatconf.ParseItem(opts.get)
		if err != nil {
			return err
		}
		v, err := c.Get(item)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, v)
		return nil

	case opts.all:
		for _, item := range hatconf.Items {
			v, err := c.Get(item)
			if err != nil {
				return fmt.Errorf("%s: %w", item, err)
			}
			fmt.Fprintf(out, "%s=%d\n", item, v)
		}
		return nil
	}
	return errors.New("nothing to do, see -h")
}
