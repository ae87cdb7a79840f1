package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	emptyObject = json.RawMessage(`{}`)
	jsonNull    = json.RawMessage(`null`)
)

// Request asks a host to run one command.
type Request struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params"`
}

// NewRequest builds a request, encoding params. A nil params becomes {}.
func NewRequest(typ string, params any) (Request, error) {
	req := Request{Type: typ}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return Request{}, fmt.Errorf("wire: encode params for %s: %w", typ, err)
		}
		req.Params = raw
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// ParseRequest decodes and validates a request document. Missing or null
// params are normalized to {}.
func ParseRequest(raw json.RawMessage) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, fmt.Errorf("%w: request: %v", ErrProtocol, err)
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate checks that the request names a command and that params, when
// present, is an object.
func (r *Request) Validate() error {
	if r.Type == "" {
		return fmt.Errorf("%w: request has no type", ErrProtocol)
	}
	p := bytes.TrimSpace(r.Params)
	if len(p) == 0 || bytes.Equal(p, jsonNull) {
		r.Params = emptyObject
		return nil
	}
	if p[0] != '{' {
		return fmt.Errorf("%w: params of %s must be an object", ErrProtocol, r.Type)
	}
	return nil
}

// MarshalJSON always writes params, as {} when empty.
func (r Request) MarshalJSON() ([]byte, error) {
	params := r.Params
	if len(bytes.TrimSpace(params)) == 0 {
		params = emptyObject
	}
	return json.Marshal(struct {
		Type   string          `json:"type"`
		Params json.RawMessage `json:"params"`
	}{r.Type, params})
}

// Response is the single reply to a Request.
type Response struct {
	Status  string
	Result  json.RawMessage
	Message string
}

// Success builds a success response carrying result.
func Success(result any) (Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return Response{}, fmt.Errorf("wire: encode result: %w", err)
	}
	return Response{Status: StatusSuccess, Result: raw}, nil
}

// Failure builds an error response.
func Failure(message string) Response {
	return Response{Status: StatusError, Message: message}
}

// Failuref builds an error response with a formatted message.
func Failuref(format string, args ...any) Response {
	return Failure(fmt.Sprintf(format, args...))
}

// OK reports whether the response has status success.
func (r Response) OK() bool {
	return r.Status == StatusSuccess
}

// Validate checks the status field.
func (r Response) Validate() error {
	switch r.Status {
	case StatusSuccess, StatusError:
		return nil
	case "":
		return fmt.Errorf("%w: response has no status", ErrProtocol)
	default:
		return fmt.Errorf("%w: unknown response status %q", ErrProtocol, r.Status)
	}
}

type responseWire struct {
	Status  string          `json:"status"`
	Result  json.RawMessage `json:"result,omitempty"`
	Message *string         `json:"message,omitempty"`
}

// MarshalJSON writes {"status","result"} on success and
// {"status","message"} on error.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.Status == StatusError {
		msg := r.Message
		return json.Marshal(responseWire{Status: r.Status, Message: &msg})
	}
	result := r.Result
	if len(bytes.TrimSpace(result)) == 0 {
		result = jsonNull
	}
	return json.Marshal(struct {
		Status string          `json:"status"`
		Result json.RawMessage `json:"result"`
	}{r.Status, result})
}

// UnmarshalJSON reads either response shape.
func (r *Response) UnmarshalJSON(data []byte) error {
	var w responseWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Status = w.Status
	r.Result = w.Result
	r.Message = ""
	if w.Message != nil {
		r.Message = *w.Message
	}
	return nil
}

// ParseResponse decodes and validates a response document.
func ParseResponse(raw json.RawMessage) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: response: %v", ErrProtocol, err)
	}
	if err := resp.Validate(); err != nil {
		return Response{}, err
	}
	return resp, nil
}
