// Package wire implements the framing used between a client and a host
// instance: one JSON document per message, written back to back on a
// stream with no length prefix and no delimiter.
//
// The receiving side cannot know the message size in advance. A Decoder
// accumulates bytes from successive reads and tracks the JSON structure
// incrementally until the top-level value closes, so a document split
// across any number of reads is reassembled, and bytes that arrive after
// a complete document are kept for the next call.
//
// # Usage
//
// Reading requests on a host connection:
//
//	dec := wire.NewDecoder(conn, wire.WithReadTimeouts(500*time.Millisecond, 15*time.Second))
//	enc := wire.NewEncoder(conn, wire.WithWriteTimeout(15*time.Second))
//	for {
//	    raw, err := dec.Next()
//	    if errors.Is(err, wire.ErrNoData) {
//	        continue // poll again
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    req, err := wire.ParseRequest(raw)
//	    ...
//	    _ = enc.Encode(resp)
//	}
//
// # Envelopes
//
// Requests are {"type": string, "params": object}. Responses are either
// {"status": "success", "result": any} or {"status": "error", "message": string}.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package wire
