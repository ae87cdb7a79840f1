package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nscrdesigns/houdini-mcp/pkg/log"
	"github.com/nscrdesigns/houdini-mcp/pkg/registry"
	"github.com/nscrdesigns/houdini-mcp/plugins/registrywatch"
)

func newInstancesCommand(a *app) *cobra.Command {
	var (
		watch  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "instances",
		Short: "List live host instances, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := registry.NewStore(a.cfg.RegistryDir, registry.WithLogger(a.logger))
			out := cmd.OutOrStdout()

			if !watch {
				live, err := store.ListLive(cmd.Context())
				if err != nil {
					return err
				}
				return printInstances(out, live, asJSON)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := registrywatch.New(registrywatch.DefaultConfig(), store, func(live []registry.Descriptor) {
				if !asJSON {
					fmt.Fprintf(out, "--- %s\n", time.Now().Format(time.TimeOnly))
				}
				if err := printInstances(out, live, asJSON); err != nil {
					a.logger.Warn("print instances failed", log.Err(err))
				}
			}, a.logger)
			return w.Run(ctx)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and print the list whenever it changes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print descriptors as JSON")
	return cmd
}

func printInstances(w io.Writer, live []registry.Descriptor, asJSON bool) error {
	if asJSON {
		if live == nil {
			live = []registry.Descriptor{}
		}
		return json.NewEncoder(w).Encode(live)
	}

	if len(live) == 0 {
		_, err := fmt.Fprintln(w, "no live instances")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PORT\tPID\tSTARTED\tSCENE\tVERSION")
	for _, d := range live {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n",
			d.Port, d.PID, d.StartedAt.Local().Format(time.DateTime), sceneName(d), d.AppVersion)
	}
	return tw.Flush()
}

func sceneName(d registry.Descriptor) string {
	if d.HipName != "" {
		return d.HipName
	}
	if d.HipFile != "" {
		return d.HipFile
	}
	return "-"
}
