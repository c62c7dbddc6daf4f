package tracecap

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hatfw/core"
	"hatfw/i2cs"
)

var sample = []core.BusEvent{
	{Kind: i2cs.TraceStart, State: i2cs.StateAddr, Clock: 10},
	{Kind: i2cs.TraceAddrAck, State: i2cs.StatePrepRecv, Addr: 0x50, Data: 0xA0, Clock: 90},
	{Kind: i2cs.TraceReceive, State: i2cs.StatePrepRecv, Addr: 0x50, Data: 0x12, Clock: 180},
	{Kind: i2cs.TraceAddrNack, State: i2cs.StateWaitStart, Addr: 0x21, Data: 0x42, Clock: 270},
}

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, "sim")
	require.NoError(t, err)
	require.NoError(t, w.WriteEvents(sample))
	require.NoError(t, w.Close())

	r, err := NewReader(&buf, Filter{})
	require.NoError(t, err)

	h := r.Header()
	assert.Equal(t, uint8(Version), h.Version)
	assert.Equal(t, "sim", h.Source)
	assert.Equal(t, w.Header().Session, h.Session)
	_, err = uuid.Parse(h.Session)
	assert.NoError(t, err)
	assert.WithinDuration(t, time.Now(), h.Created, time.Minute)

	recs, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, len(sample))
	for i, rec := range recs {
		assert.Equal(t, sample[i], rec.Event())
	}
}

func TestFilter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, "")
	require.NoError(t, err)
	require.NoError(t, w.WriteEvents(sample))

	addr := i2cs.Addr(0x50)
	r, err := NewReader(bytes.NewReader(buf.Bytes()), Filter{Addr: &addr})
	require.NoError(t, err)
	recs, err := r.ReadAll()
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	kind := i2cs.TraceAddrNack
	r, err = NewReader(bytes.NewReader(buf.Bytes()), Filter{Kind: &kind})
	require.NoError(t, err)
	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, i2cs.Addr(0x21), rec.Addr)
	_, err = r.Next()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bus.cap")
	w, err := Create(path, "/dev/ttyUSB0")
	require.NoError(t, err)
	require.NoError(t, w.Write(NewRecord(sample[1], time.Unix(1700000000, 5000))))
	require.NoError(t, w.Close())

	r, err := Open(path, Filter{})
	require.NoError(t, err)
	defer r.Close()

	rec, err := r.Next()
	require.NoError(t, err)
	assert.True(t, rec.Received.Equal(time.Unix(1700000000, 5000)))
	assert.Contains(t, rec.String(), "[I2CS] ADDR_ACK state=PREP_RECV addr=0x50 data=0xA0 clock=90")
}

func TestRejectsForeignData(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte{0x01, 0x02}), Filter{})
	require.ErrorIs(t, err, ErrFormat)

	_, err = NewReader(bytes.NewReader(nil), Filter{})
	require.ErrorIs(t, err, ErrFormat)
}
