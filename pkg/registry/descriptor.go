package registry

import (
	"encoding/json"
	"fmt"
	"time"
)

// Descriptor advertises one running host instance.
type Descriptor struct {
	// Port is the TCP port the host listens on.
	Port int `json:"port"`

	// PID is the host process id, used only for liveness probing.
	PID int `json:"pid"`

	// StartedAt orders descriptors by recency.
	StartedAt time.Time `json:"started_at"`

	// Passthrough metadata, never interpreted by the transport.
	HipFile    string `json:"hip_file,omitempty"`
	HipName    string `json:"hip_name,omitempty"`
	AppVersion string `json:"houdini_version,omitempty"`
	Hostname   string `json:"hostname,omitempty"`
}

// Validate checks the fields the registry depends on.
func (d Descriptor) Validate() error {
	if d.Port <= 0 || d.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidDescriptor, d.Port)
	}
	return nil
}

// UnmarshalJSON accepts both started_at and startedAt. Timestamps without a
// zone offset are read as UTC. A timestamp that does not parse leaves
// StartedAt zero instead of rejecting the descriptor.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	type plain Descriptor
	aux := struct {
		*plain
		StartedAt      json.RawMessage `json:"started_at"`
		StartedAtCamel json.RawMessage `json:"startedAt"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.StartedAt = parseStartedAt(aux.StartedAt)
	if d.StartedAt.IsZero() {
		d.StartedAt = parseStartedAt(aux.StartedAtCamel)
	}
	return nil
}

var startedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseStartedAt(raw json.RawMessage) time.Time {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return time.Time{}
	}
	for _, layout := range startedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
