package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/nscrdesigns/houdini-mcp/internal/cliconfig"
	"github.com/nscrdesigns/houdini-mcp/pkg/log"
)

const helpDescription = `
Local RPC bridge between automation clients and running Houdini sessions.

Each host instance listens on a localhost TCP port and announces itself in a
per-user registry directory. Clients find the newest live instance there and
exchange JSON request/response envelopes with it.
`

var exampleUsage = strings.TrimSpace(`
  houdinimcp serve --hip-name shot010.hip --metrics-addr :9100
  houdinimcp instances --watch
  houdinimcp call get_scene_info
  houdinimcp call echo '{"hello":"world"}' --port 9878
  houdinimcp connect 9878
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// app carries the configuration shared by every subcommand.
type app struct {
	cfg     cliconfig.Config
	cfgPath string

	zl     zerolog.Logger
	logger log.Logger
}

// load resolves configuration with precedence flags > env > file > defaults
// and builds the logger.
func (a *app) load(cmd *cobra.Command) error {
	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&a.cfg, fc, changed); err != nil {
			return err
		}
	} else if a.cfgPath != "" {
		return fmt.Errorf("config file %s not found", a.cfgPath)
	}

	if err := cliconfig.ApplyEnvConfig(&a.cfg, changed); err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	if err := a.cfg.Validate(); err != nil {
		return err
	}

	zl, err := cliconfig.NewLogger(a.cfg.LogLevel)
	if err != nil {
		return err
	}
	a.zl = zl
	a.logger = log.NewZerologAdapterWithLogger(zl)
	a.zl.Debug().Interface("config", a.cfg).Msg("configuration")
	return nil
}

func newRootCommand() *cobra.Command {
	a := &app{cfg: cliconfig.DefaultConfig()}

	root := &cobra.Command{
		Use:           "houdinimcp",
		Short:         "Local RPC bridge to running Houdini sessions",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.houdinimcp/config.toml)")
	pf.StringVar(&a.cfg.RegistryDir, "registry-dir", a.cfg.RegistryDir, "instance registry directory (default: per-user data dir)")
	pf.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&a.cfg.Host, "host", a.cfg.Host, "host address to bind or dial")
	pf.IntVar(&a.cfg.MaxMessageBytes, "max-message-bytes", a.cfg.MaxMessageBytes, "largest accepted message")

	root.AddCommand(
		newServeCommand(a),
		newInstancesCommand(a),
		newCallCommand(a),
		newConnectCommand(a),
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "houdinimcp:", err)
		os.Exit(1)
	}
}
