package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	// ReadChunkSize is the size of each read from the underlying stream.
	ReadChunkSize = 8 * 1024

	// DefaultMaxMessageBytes caps a single message.
	DefaultMaxMessageBytes = 32 << 20
)

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithMaxMessageBytes sets the largest message the decoder will buffer.
// Zero or a negative value disables the limit.
func WithMaxMessageBytes(n int) DecoderOption {
	return func(d *Decoder) {
		d.max = n
	}
}

// WithReadTimeouts makes the decoder manage read deadlines on readers that
// support SetReadDeadline. While no message is in progress each read waits
// at most idle and a timeout yields ErrNoData. Once the first byte of a
// message arrives the whole message must complete within message, or
// ErrTimeout is returned.
func WithReadTimeouts(idle, message time.Duration) DecoderOption {
	return func(d *Decoder) {
		d.idle = idle
		d.message = message
	}
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// Decoder reads back-to-back JSON documents from a stream.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	r     io.Reader
	buf   []byte
	chunk []byte
	scan  scanner
	max   int

	idle    time.Duration
	message time.Duration
	started time.Time
	now     func() time.Time

	// readErr holds an error that arrived together with data.
	readErr error
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		r:     r,
		chunk: make([]byte, ReadChunkSize),
		scan:  newScanner(),
		max:   DefaultMaxMessageBytes,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the next complete JSON document. The returned slice is owned
// by the caller. Bytes received past the end of the document are kept and
// returned by later calls. A message that began in such leftover bytes gets
// its full message timeout counted from this call.
func (d *Decoder) Next() (json.RawMessage, error) {
	if len(d.buf) > 0 {
		d.started = d.now()
	}
	for {
		end, err := d.scan.advance(d.buf)
		if err != nil {
			d.discard()
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if end >= 0 {
			return d.take(end)
		}
		if !d.scan.started() {
			// Only whitespace so far.
			d.buf = d.buf[:0]
			d.scan.reset()
		}
		if d.max > 0 && len(d.buf) > d.max {
			d.discard()
			return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, d.max)
		}
		if err := d.fill(); err != nil {
			return nil, err
		}
	}
}

// Decode reads the next document and unmarshals it into v.
func (d *Decoder) Decode(v any) error {
	raw, err := d.Next()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return nil
}

// Buffered reports how many received bytes have not been returned yet.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

func (d *Decoder) take(end int) (json.RawMessage, error) {
	if d.max > 0 && end-d.scan.begin > d.max {
		d.discard()
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, end-d.scan.begin)
	}
	doc := make([]byte, end-d.scan.begin)
	copy(doc, d.buf[d.scan.begin:end])

	n := copy(d.buf, d.buf[end:])
	d.buf = d.buf[:n]
	d.scan.reset()

	if !json.Valid(doc) {
		return nil, fmt.Errorf("%w: invalid document of %d bytes", ErrMalformed, len(doc))
	}
	return doc, nil
}

func (d *Decoder) discard() {
	d.buf = d.buf[:0]
	d.scan.reset()
}

func (d *Decoder) fill() error {
	if err := d.readErr; err != nil {
		d.readErr = nil
		return d.readFailure(err)
	}

	pending := d.scan.started()
	d.armDeadline(pending)

	n, err := d.r.Read(d.chunk)
	if n > 0 {
		if !pending {
			d.started = d.now()
		}
		d.buf = append(d.buf, d.chunk[:n]...)
		d.readErr = err
		return nil
	}
	if err == nil {
		return nil
	}
	return d.readFailure(err)
}

func (d *Decoder) readFailure(err error) error {
	pending := d.scan.started()
	switch {
	case errors.Is(err, io.EOF):
		d.discard()
		if pending {
			return ErrIncomplete
		}
		return ErrClosed
	case isTimeout(err):
		if pending {
			d.discard()
			return ErrTimeout
		}
		return ErrNoData
	default:
		d.discard()
		return fmt.Errorf("wire: read: %w", err)
	}
}

func (d *Decoder) armDeadline(pending bool) {
	if d.idle <= 0 && d.message <= 0 {
		return
	}
	rd, ok := d.r.(readDeadliner)
	if !ok {
		return
	}

	var deadline time.Time
	switch {
	case pending && d.message > 0:
		deadline = d.started.Add(d.message)
	case d.idle > 0:
		deadline = d.now().Add(d.idle)
	}
	_ = rd.SetReadDeadline(deadline)
}
