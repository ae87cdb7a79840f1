package wire

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithWriteTimeout bounds each Encode call on writers that support
// SetWriteDeadline.
func WithWriteTimeout(d time.Duration) EncoderOption {
	return func(e *Encoder) {
		e.timeout = d
	}
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Encoder writes JSON documents to a stream with no framing.
type Encoder struct {
	w       io.Writer
	timeout time.Duration
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer, opts ...EncoderOption) *Encoder {
	e := &Encoder{w: w}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode serializes v and writes every byte of it.
func (e *Encoder) Encode(v any) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	return e.Write(data)
}

// Write sends an already encoded document.
func (e *Encoder) Write(data []byte) error {
	if e.timeout > 0 {
		if wd, ok := e.w.(writeDeadliner); ok {
			_ = wd.SetWriteDeadline(time.Now().Add(e.timeout))
		}
	}
	for len(data) > 0 {
		n, err := e.w.Write(data)
		if err != nil {
			return fmt.Errorf("wire: write: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("wire: write: %w", io.ErrShortWrite)
		}
		data = data[n:]
	}
	return nil
}

// Marshal encodes v as a single message. A top-level number or keyword is
// followed by a newline so the receiver can tell where it ends.
func Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: encode: %w", err)
	}
	if len(data) > 0 && data[0] != '{' && data[0] != '[' && data[0] != '"' {
		data = append(data, '\n')
	}
	return data, nil
}
