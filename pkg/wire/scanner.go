package wire

import (
	"bytes"
	"fmt"
)

// scanner finds the end of the first top-level JSON value in a growing
// buffer. Its state survives between calls so every byte is examined once.
// It only tracks structure; the finished document is checked with
// json.Valid by the caller.
type scanner struct {
	off      int // next byte to examine
	begin    int // first non-space byte of the value, -1 before it is seen
	depth    int
	inString bool
	escape   bool
	literal  bool // top-level number, true, false or null
}

func newScanner() scanner {
	return scanner{begin: -1}
}

func (s *scanner) reset() {
	*s = newScanner()
}

// started reports whether any byte of a value has been seen.
func (s *scanner) started() bool {
	return s.begin >= 0
}

// advance scans buf from where the previous call stopped. It returns the
// offset just past the value once it is complete, or -1 if more bytes are
// needed.
func (s *scanner) advance(buf []byte) (int, error) {
	for ; s.off < len(buf); s.off++ {
		c := buf[s.off]

		if s.begin < 0 {
			if isSpace(c) {
				continue
			}
			s.begin = s.off
			switch c {
			case '{', '[':
				s.depth = 1
			case '"':
				s.inString = true
			case '}', ']', ',', ':':
				return -1, fmt.Errorf("unexpected %q at start of message", c)
			default:
				s.literal = true
			}
			continue
		}

		if s.inString {
			switch {
			case s.escape:
				s.escape = false
			case c == '\\':
				s.escape = true
			case c == '"':
				s.inString = false
				if s.depth == 0 {
					s.off++
					return s.off, nil
				}
			}
			continue
		}

		if s.literal {
			if isLiteralByte(c) {
				continue
			}
			// The delimiter belongs to whatever follows.
			return s.off, nil
		}

		switch c {
		case '"':
			s.inString = true
		case '{', '[':
			s.depth++
		case '}', ']':
			s.depth--
			if s.depth == 0 {
				s.off++
				return s.off, nil
			}
		}
	}

	// A keyword cannot be the prefix of another value, a number can.
	if s.literal {
		word := buf[s.begin:]
		if bytes.Equal(word, []byte("true")) || bytes.Equal(word, []byte("false")) || bytes.Equal(word, []byte("null")) {
			return len(buf), nil
		}
	}
	return -1, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isLiteralByte(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		c == '-' || c == '+' || c == '.'
}
