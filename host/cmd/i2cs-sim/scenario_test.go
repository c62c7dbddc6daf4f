package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hatfw/host/tracecap"
	"hatfw/sim"
)

func runScenario(t *testing.T, file string, capture *tracecap.Writer) *sim.System {
	t.Helper()
	sc, err := LoadScenario(filepath.Join("testdata", file))
	require.NoError(t, err)

	s, err := sim.NewSystem(nil)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	drain := func() error {
		evs, _ := s.Events()
		if capture == nil {
			return nil
		}
		return capture.WriteEvents(evs)
	}
	require.NoError(t, sc.Run(s, log, drain))
	return s
}

func TestEEPROMScenario(t *testing.T) {
	var buf bytes.Buffer
	w, err := tracecap.NewWriter(&buf, "sim")
	require.NoError(t, err)

	s := runScenario(t, "eeprom.yaml", w)
	assert.Equal(t, []byte{0x42, 0x43}, []byte(s.Memory[0x10:0x12]))

	r, err := tracecap.NewReader(&buf, tracecap.Filter{})
	require.NoError(t, err)
	recs, err := r.ReadAll()
	require.NoError(t, err)
	assert.NotEmpty(t, recs)
}

func TestTxEnScenario(t *testing.T) {
	s := runScenario(t, "txen.yaml", nil)
	assert.Equal(t, uint16(1146), s.TxEn.Timeout())
}

func TestScenarioFailureNamesStep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
steps:
  - name: wrong data
    addr: 0x50
    write: [0x00, 0x00]
    read: 1
    expect: [0x00]
`), 0o644))

	sc, err := LoadScenario(path)
	require.NoError(t, err)
	s, err := sim.NewSystem(nil)
	require.NoError(t, err)

	err = sc.Run(s, slog.New(slog.NewTextHandler(io.Discard, nil)), func() error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong data")
}
