package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"hatfw/host/hatconf"
	"hatfw/sim"
)

// Scenario is a scripted sequence of bus transactions.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one scenario action. Exactly one of Addr (a transaction), Set,
// AdvanceUS or TxLine is used; the remaining fields are checks.
type Step struct {
	Name string `yaml:"name"`

	Addr  *uint8 `yaml:"addr"`
	Write []int  `yaml:"write"`
	Read  int    `yaml:"read"`

	Set       *SetItem `yaml:"set"`
	AdvanceUS uint32   `yaml:"advance_us"`
	TxLine    *bool    `yaml:"tx"`

	Expect     []int  `yaml:"expect"`
	Error      string `yaml:"error"` // "", "nack", "nodevice"
	ExpectTxEn *bool  `yaml:"expect_txen"`
}

// SetItem writes a configuration item through the conf device.
type SetItem struct {
	Item  string `yaml:"item"`
	Value uint16 `yaml:"value"`
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &sc, nil
}

func toBytes(vs []int) ([]byte, error) {
	b := make([]byte, len(vs))
	for i, v := range vs {
		if v < 0 || v > 0xFF {
			return nil, fmt.Errorf("byte %d out of range: %d", i, v)
		}
		b[i] = byte(v)
	}
	return b, nil
}

func wantError(kind string) (error, error) {
	switch kind {
	case "":
		return nil, nil
	case "nack":
		return sim.ErrNACK, nil
	case "nodevice":
		return sim.ErrNoDevice, nil
	default:
		return nil, fmt.Errorf("unknown error kind %q", kind)
	}
}

// Run executes the scenario against s. drain is called after every step.
func (sc *Scenario) Run(s *sim.System, log *slog.Logger, drain func() error) error {
	for i := range sc.Steps {
		st := &sc.Steps[i]
		name := st.Name
		if name == "" {
			name = fmt.Sprintf("step %d", i+1)
		}
		err := st.run(s, log.With("step", name))
		if derr := drain(); derr != nil {
			return derr
		}
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (st *Step) run(s *sim.System, log *slog.Logger) error {
	switch {
	case st.Addr != nil:
		if err := st.transact(s, log); err != nil {
			return err
		}
	case st.Set != nil:
		item, err := hatconf.ParseItem(st.Set.Item)
		if err != nil {
			return err
		}
		c := hatconf.New(s.Master, uint16(s.Config.Conf.Addr))
		if err := c.Set(item, st.Set.Value); err != nil {
			return err
		}
		log.Info("set", "item", item, "value", st.Set.Value)
	case st.TxLine != nil:
		s.GPIO.SetInput(sim.TxPin, *st.TxLine)
		s.Step()
	case st.AdvanceUS > 0:
		s.Advance(st.AdvanceUS)
	}

	if st.ExpectTxEn != nil && s.TxEn.Active() != *st.ExpectTxEn {
		return fmt.Errorf("tx enable active=%v, expected %v", s.TxEn.Active(), *st.ExpectTxEn)
	}
	return nil
}

func (st *Step) transact(s *sim.System, log *slog.Logger) error {
	w, err := toBytes(st.Write)
	if err != nil {
		return err
	}
	want, err := wantError(st.Error)
	if err != nil {
		return err
	}
	r := make([]byte, st.Read)

	err = s.Master.Tx(uint16(*st.Addr), w, r)
	switch {
	case want == nil && err != nil:
		return err
	case want != nil && !errors.Is(err, want):
		return fmt.Errorf("expected %v, got %v", want, err)
	case want != nil:
		log.Info("expected failure", "addr", *st.Addr, "err", err)
		return nil
	}
	log.Info("transaction", "addr", *st.Addr, "write", w, "read", r)

	if st.Expect != nil {
		exp, err := toBytes(st.Expect)
		if err != nil {
			return err
		}
		if string(exp) != string(r) {
			return fmt.Errorf("read % X, expected % X", r, exp)
		}
	}
	return nil
}
