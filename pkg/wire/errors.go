package wire

import (
	"errors"
	"net"
)

// Framing errors returned by Decoder.Next.
var (
	// ErrClosed means the peer closed the stream between messages.
	ErrClosed = errors.New("wire: connection closed")

	// ErrIncomplete means the peer closed the stream in the middle of a message.
	ErrIncomplete = errors.New("wire: connection closed mid-message")

	// ErrNoData means a read deadline passed before any byte of a new
	// message arrived. The stream is still usable.
	ErrNoData = errors.New("wire: no data")

	// ErrTimeout means a read deadline passed while a message was partially
	// received. The partial bytes have been discarded.
	ErrTimeout = errors.New("wire: timed out waiting for complete message")

	// ErrTooLarge means a message exceeded the configured size limit.
	ErrTooLarge = errors.New("wire: message too large")

	// ErrMalformed means the bytes received are not a JSON document.
	ErrMalformed = errors.New("wire: malformed json")

	// ErrProtocol means a document is valid JSON but not a valid envelope.
	ErrProtocol = errors.New("wire: protocol error")
)

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
