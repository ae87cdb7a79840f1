// Package hostcmds is the command table served by `houdinimcp serve`. The
// real scene operations live inside the host application; these commands
// exist so the transport can be exercised end to end without it.
package hostcmds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nscrdesigns/houdini-mcp/pkg/dispatch"
)

// Command names.
const (
	Ping         = "ping"
	GetSceneInfo = "get_scene_info"
	Echo         = "echo"
	Sleep        = "sleep"
	Fail         = "fail"
	ListCommands = "list_commands"
)

// MaxSleep caps the sleep command.
const MaxSleep = 5 * time.Minute

// Info describes the scene the host reports.
type Info struct {
	HipFile    string
	HipName    string
	AppVersion string
	StartedAt  time.Time
}

// SceneInfo is the get_scene_info result.
type SceneInfo struct {
	HipFile       string    `json:"hip_file"`
	HipName       string    `json:"hip_name"`
	AppVersion    string    `json:"houdini_version,omitempty"`
	PID           int       `json:"pid"`
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds float64   `json:"uptime_seconds"`
}

// PingResult is the ping result.
type PingResult struct {
	Pong bool      `json:"pong"`
	Time time.Time `json:"time"`
}

// SleepParams are the sleep params.
type SleepParams struct {
	Seconds float64 `json:"seconds"`
}

// SleepResult is the sleep result.
type SleepResult struct {
	Slept float64 `json:"slept"`
}

// FailParams are the fail params.
type FailParams struct {
	Message string `json:"message"`
}

type empty struct{}

// Register adds every command to t.
func Register(t *dispatch.Table, info Info) error {
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now().UTC()
	}
	if info.HipName == "" {
		info.HipName = "untitled.hip"
	}

	return errors.Join(
		dispatch.Register(t, Ping, func(ctx context.Context, _ empty) (PingResult, error) {
			return PingResult{Pong: true, Time: time.Now().UTC()}, nil
		}),
		dispatch.Register(t, GetSceneInfo, func(ctx context.Context, _ empty) (SceneInfo, error) {
			return SceneInfo{
				HipFile:       info.HipFile,
				HipName:       info.HipName,
				AppVersion:    info.AppVersion,
				PID:           os.Getpid(),
				StartedAt:     info.StartedAt,
				UptimeSeconds: time.Since(info.StartedAt).Seconds(),
			}, nil
		}),
		t.HandleFunc(Echo, func(ctx context.Context, params json.RawMessage) (any, error) {
			return params, nil
		}),
		dispatch.Register(t, Sleep, sleep),
		dispatch.Register(t, Fail, func(ctx context.Context, p FailParams) (any, error) {
			if p.Message == "" {
				p.Message = "requested failure"
			}
			return nil, errors.New(p.Message)
		}),
		dispatch.Register(t, ListCommands, func(ctx context.Context, _ empty) ([]string, error) {
			return t.Commands(), nil
		}),
	)
}

func sleep(ctx context.Context, p SleepParams) (SleepResult, error) {
	d := time.Duration(p.Seconds * float64(time.Second))
	if d < 0 || d > MaxSleep {
		return SleepResult{}, fmt.Errorf("seconds must be between 0 and %v", MaxSleep.Seconds())
	}

	start := time.Now()
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return SleepResult{}, ctx.Err()
	}
	return SleepResult{Slept: time.Since(start).Seconds()}, nil
}
