package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"hatfw/core"
	"hatfw/host/hatconf"
	"hatfw/sim"
)

// Console is the interactive bus console.
type Console struct {
	s     *sim.System
	rl    *readline.Instance
	out   io.Writer
	drain func() error
}

// NewConsole creates a console on the terminal.
func NewConsole(s *sim.System, drain func() error) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "i2cs> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{s: s, rl: rl, out: rl.Stdout(), drain: drain}, nil
}

// Stdout returns a writer that does not disturb the prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run reads commands until EOF, "quit" or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	defer c.rl.Close()
	c.printHelp()

	for ctx.Err() == nil {
		line, err := c.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := c.exec(fields[0], fields[1:]); err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
		if err := c.drain(); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func parseNums(args []string, bits int) ([]uint64, error) {
	vs := make([]uint64, len(args))
	for i, a := range args {
		v, err := strconv.ParseUint(a, 0, bits)
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}

func parseBytes(args []string) ([]byte, error) {
	vs, err := parseNums(args, 8)
	if err != nil {
		return nil, err
	}
	b := make([]byte, len(vs))
	for i, v := range vs {
		b[i] = byte(v)
	}
	return b, nil
}

func (c *Console) exec(cmd string, args []string) error {
	m := c.s.Master
	switch cmd {
	case "help", "?":
		c.printHelp()

	case "probe":
		if len(args) != 1 {
			return errors.New("usage: probe <addr>")
		}
		a, err := parseNums(args, 7)
		if err != nil {
			return err
		}
		if err := m.Tx(uint16(a[0]), nil, nil); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "0x%02X ACK\n", a[0])

	case "scan":
		for a := uint16(0x08); a < 0x78; a++ {
			if m.Tx(a, nil, nil) == nil {
				fmt.Fprintf(c.out, "0x%02X\n", a)
			}
		}

	case "w":
		if len(args) < 1 {
			return errors.New("usage: w <addr> [bytes...]")
		}
		a, err := parseNums(args[:1], 7)
		if err != nil {
			return err
		}
		w, err := parseBytes(args[1:])
		if err != nil {
			return err
		}
		return m.Tx(uint16(a[0]), w, nil)

	case "r":
		if len(args) < 2 {
			return errors.New("usage: r <addr> <count> [write bytes...]")
		}
		a, err := parseNums(args[:1], 7)
		if err != nil {
			return err
		}
		n, err := parseNums(args[1:2], 8)
		if err != nil {
			return err
		}
		w, err := parseBytes(args[2:])
		if err != nil {
			return err
		}
		r := make([]byte, n[0])
		if err := m.Tx(uint16(a[0]), w, r); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "% X\n", r)

	case "get", "set":
		return c.conf(cmd, args)

	case "tx":
		if len(args) != 1 {
			return errors.New("usage: tx <0|1>")
		}
		c.s.GPIO.SetInput(sim.TxPin, args[0] != "0")
		c.s.Step()
		fmt.Fprintf(c.out, "t=%dus txen=%v\n", core.TimerToUS(core.GetTime()), c.s.TxEn.Active())

	case "advance":
		if len(args) != 1 {
			return errors.New("usage: advance <us>")
		}
		us, err := parseNums(args, 32)
		if err != nil {
			return err
		}
		c.s.Advance(uint32(us[0]))
		fmt.Fprintf(c.out, "t=%dus txen=%v\n", core.TimerToUS(core.GetTime()), c.s.TxEn.Active())

	case "mem":
		if len(args) != 2 {
			return errors.New("usage: mem <offset> <count>")
		}
		v, err := parseNums(args, 16)
		if err != nil {
			return err
		}
		mem := c.s.Memory
		start, end := int(v[0]), int(v[0]+v[1])
		if end > len(mem) {
			end = len(mem)
		}
		if start >= end {
			return fmt.Errorf("range outside the %d byte image", len(mem))
		}
		fmt.Fprintf(c.out, "% X\n", []byte(mem[start:end]))

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func (c *Console) conf(cmd string, args []string) error {
	cl := hatconf.New(c.s.Master, uint16(c.s.Config.Conf.Addr))
	if len(args) == 0 {
		return fmt.Errorf("usage: %s <item> [value]", cmd)
	}
	item, err := hatconf.ParseItem(args[0])
	if err != nil {
		return err
	}
	if cmd == "get" {
		v, err := cl.Get(item)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s = %d\n", item, v)
		return nil
	}
	if len(args) != 2 {
		return errors.New("usage: set <item> <value>")
	}
	v, err := parseNums(args[1:], 16)
	if err != nil {
		return err
	}
	return cl.Set(item, uint16(v[0]))
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, "Commands:")
	fmt.Fprintln(c.out, "  probe <addr>                 address a device")
	fmt.Fprintln(c.out, "  scan                         probe all addresses")
	fmt.Fprintln(c.out, "  w <addr> [bytes...]          write transaction")
	fmt.Fprintln(c.out, "  r <addr> <n> [bytes...]      write (optional) then read n bytes")
	fmt.Fprintln(c.out, "  get <item>                   read a config item")
	fmt.Fprintln(c.out, "  set <item> <value>           write a config item")
	fmt.Fprintln(c.out, "  tx <0|1>                     drive the UART TX line")
	fmt.Fprintln(c.out, "  advance <us>                 advance time")
	fmt.Fprintln(c.out, "  mem <offset> <n>             dump the EEPROM image")
	fmt.Fprintln(c.out, "  quit                         exit")
}
