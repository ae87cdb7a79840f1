package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nscrdesigns/houdini-mcp/pkg/client"
	"github.com/nscrdesigns/houdini-mcp/pkg/registry"
)

func addClientFlags(cmd *cobra.Command, a *app) {
	f := cmd.Flags()
	f.IntVar(&a.cfg.DefaultPort, "default-port", a.cfg.DefaultPort, "port dialed when no live instance is registered")
	f.DurationVar(&a.cfg.CallTimeout, "call-timeout", a.cfg.CallTimeout, "time allowed for one request/response exchange")
	f.DurationVar(&a.cfg.DialTimeout, "dial-timeout", a.cfg.DialTimeout, "time allowed for one connection attempt")
	f.IntVar(&a.cfg.DialAttempts, "dial-attempts", a.cfg.DialAttempts, "connection attempts before giving up")
	f.StringVar(&a.cfg.ProbeCommand, "probe-command", a.cfg.ProbeCommand, "command used to check an instance is responsive")
}

func newManager(a *app) (*client.Manager, error) {
	store := registry.NewStore(a.cfg.RegistryDir, registry.WithLogger(a.logger))
	return client.New(a.cfg.ClientConfig(), store, client.WithLogger(a.logger))
}

func newCallCommand(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "call <type> [params-json]",
		Short: "Send one command to a host instance and print the result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params json.RawMessage
			if len(args) == 2 {
				params = json.RawMessage(args[1])
				if !json.Valid(params) {
					return fmt.Errorf("params are not valid JSON: %s", args[1])
				}
			}

			m, err := newManager(a)
			if err != nil {
				return err
			}
			defer m.Close()

			ctx, cancel := withCallTimeout(cmd.Context(), a)
			defer cancel()

			if port != 0 {
				if _, err := m.ConnectTo(ctx, port); err != nil && !isCommandError(err) {
					return err
				}
			}

			res, err := m.Call(ctx, args[0], params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "target a specific live instance")
	addClientFlags(cmd, a)
	return cmd
}

func newConnectCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect <port>",
		Short: "Connect to a live instance and print its probe response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid port %q", args[0])
			}

			m, err := newManager(a)
			if err != nil {
				return err
			}
			defer m.Close()

			ctx, cancel := withCallTimeout(cmd.Context(), a)
			defer cancel()

			res, err := m.ConnectTo(ctx, port)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "connected to %d\n", port)
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	addClientFlags(cmd, a)
	return cmd
}

// isCommandError reports whether the probe reached the host but the probe
// command itself failed; the connection is usable in that case.
func isCommandError(err error) bool {
	var ce *client.CommandError
	return errors.As(err, &ce)
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

// withCallTimeout is used by commands that talk to one instance once.
func withCallTimeout(ctx context.Context, a *app) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.cfg.CallTimeout+a.cfg.DialTimeout)
}
