// Package tracecap stores bus trace captures as a stream of CBOR items: a
// Header followed by one Record per bus event.
package tracecap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"hatfw/core"
	"hatfw/i2cs"
)

// Version is the capture format version written to new files.
const Version = 1

// ErrFormat is returned for files that are not captures.
var ErrFormat = errors.New("tracecap: not a trace capture")

// Header starts every capture.
type Header struct {
	Version uint8     `cbor:"1,keyasint"`
	Session string    `cbor:"2,keyasint"`
	Created time.Time `cbor:"3,keyasint"`

	// Source names the capture origin, e.g. "sim" or a serial device.
	Source string `cbor:"4,keyasint,omitempty"`
}

// Record is one captured bus event.
type Record struct {
	// Received is the host time the event was captured.
	Received time.Time `cbor:"1,keyasint"`

	Kind  i2cs.TraceKind `cbor:"2,keyasint"`
	State i2cs.State     `cbor:"3,keyasint"`
	Addr  i2cs.Addr      `cbor:"4,keyasint"`
	Data  byte           `cbor:"5,keyasint"`

	// Clock is the target timestamp in target timer ticks.
	Clock uint32 `cbor:"6,keyasint"`
}

// NewRecord wraps a bus event received at t.
func NewRecord(ev core.BusEvent, t time.Time) Record {
	return Record{
		Received: t,
		Kind:     ev.Kind,
		State:    ev.State,
		Addr:     ev.Addr,
		Data:     ev.Data,
		Clock:    ev.Clock,
	}
}

// Event returns the bus event.
func (r Record) Event() core.BusEvent {
	return core.BusEvent{Kind: r.Kind, State: r.State, Addr: r.Addr, Data: r.Data, Clock: r.Clock}
}

// String renders the record as a trace log line.
func (r Record) String() string {
	ev := r.Event()
	return r.Received.Format("15:04:05.000000") + " " + core.FormatBusEvent(&ev)
}

// Writer appends records to a capture. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	closer io.Closer
	enc    *cbor.Encoder
	header Header
}

// NewWriter writes a new header to w with a fresh session ID.
func NewWriter(w io.Writer, source string) (*Writer, error) {
	h := Header{
		Version: Version,
		Session: uuid.New().String(),
		Created: time.Now(),
		Source:  source,
	}
	enc := newEncoder(w)
	if err := enc.Encode(h); err != nil {
		return nil, fmt.Errorf("write capture header: %w", err)
	}
	cw := &Writer{enc: enc, header: h}
	if c, ok := w.(io.Closer); ok {
		cw.closer = c
	}
	return cw, nil
}

// Create creates a capture file at path.
func Create(path, source string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, source)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// Header returns the capture header.
func (w *Writer) Header() Header {
	return w.header
}

// Write appends one record.
func (w *Writer) Write(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(r)
}

// WriteEvents stamps evs with the current time and appends them.
func (w *Writer) WriteEvents(evs []core.BusEvent) error {
	now := time.Now()
	for _, ev := range evs {
		if err := w.Write(NewRecord(ev, now)); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying file, if any.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closer == nil {
		return nil
	}
	err := w.closer.Close()
	w.closer = nil
	return err
}

// Filter selects records. Nil fields match everything.
type Filter struct {
	Addr *i2cs.Addr
	Kind *i2cs.TraceKind
}

func (f *Filter) matches(r *Record) bool {
	if f.Addr != nil && r.Addr != *f.Addr {
		return false
	}
	if f.Kind != nil && r.Kind != *f.Kind {
		return false
	}
	return true
}

// Reader iterates over the records of a capture.
type Reader struct {
	dec    *cbor.Decoder
	closer io.Closer
	header Header
	filter Filter
}

// NewReader reads the header from r.
func NewReader(r io.Reader, filter Filter) (*Reader, error) {
	dec := newDecoder(r)
	var h Header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if h.Version == 0 || h.Version > Version {
		return nil, fmt.Errorf("%w: version %d", ErrFormat, h.Version)
	}
	if _, err := uuid.Parse(h.Session); err != nil {
		return nil, fmt.Errorf("%w: session %q", ErrFormat, h.Session)
	}
	cr := &Reader{dec: dec, header: h, filter: filter}
	if c, ok := r.(io.Closer); ok {
		cr.closer = c
	}
	return cr, nil
}

// Open opens the capture file at path.
func Open(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f, filter)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Header returns the capture header.
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next matching record, or io.EOF at the end.
func (r *Reader) Next() (Record, error) {
	for {
		var rec Record
		if err := r.dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return Record{}, io.EOF
			}
			return Record{}, fmt.Errorf("read record: %w", err)
		}
		if r.filter.matches(&rec) {
			return rec, nil
		}
	}
}

// ReadAll returns the remaining matching records.
func (r *Reader) ReadAll() ([]Record, error) {
	var recs []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}

// Close closes the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
