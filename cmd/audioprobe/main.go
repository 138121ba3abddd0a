// Command audioprobe enumerates the audio mixers of the host, checks which
// formats they can open and optionally pipes captured audio back to
// playback.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/drgolem/go-audioprobe/format"
	"github.com/drgolem/go-audioprobe/internal/app"
	"github.com/drgolem/go-audioprobe/internal/config"
	"github.com/drgolem/go-audioprobe/internal/logging"
	"github.com/drgolem/go-audioprobe/report"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "audioprobe",
		Short: "Audio subsystem diagnostics",
		Long: `audioprobe lists the audio mixers of this machine and, when enabled, runs
the format test (every format on every mixer, capture and playback) and the
loopback test (captured audio written back to playback).

Tests are enabled with --format-test / --loopback-test or by setting
` + config.EnvFormatTest + ` / ` + config.EnvLoopbackTest + ` to any value.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			a := app.New(cfg)
			a.Logger = slog.Default()
			return a.Run(cmd.Context())
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newMixersCmd(), newFormatsCmd())
	return root
}

// setup loads the configuration and installs the logger it selects.
func setup(cmd *cobra.Command) (config.Config, error) {
	bootstrap := logging.New(os.Stderr, logging.Config{})
	cfg, err := config.Load(cmd.Flags(), os.LookupEnv, bootstrap)
	if err != nil {
		return config.Config{}, err
	}
	logging.Initialize(logging.Config{Verbose: cfg.Log, Format: cfg.LogFormat})
	return cfg, nil
}

func newMixersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mixers",
		Short: "List the mixers of the selected backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}

			log := logging.GetLogger(cfg.Backend)
			p, err := app.OpenPlatform(cfg.Backend, log)
			if err != nil {
				return fmt.Errorf("open %s platform: %w", cfg.Backend, err)
			}
			defer p.Close()

			mixers, err := p.Mixers()
			if err != nil {
				return fmt.Errorf("enumerate mixers: %w", err)
			}

			out := cmd.OutOrStdout()
			rep := report.New(out)
			dump := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
			for i, m := range mixers {
				info := m.Info()
				rep.MixerInfo(i, info)
				rep.LineSummary(info)
				if cfg.Log {
					dump.Fdump(out, info)
				}
				rep.Blank()
			}
			rep.Printf("%d mixers (%s)", len(mixers), p.Name())
			return nil
		},
	}
}

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "Print the format space swept by the format test",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}

			var log *slog.Logger
			if cfg.Log {
				log = logging.GetLogger("format")
			}
			rep := report.New(cmd.OutOrStdout())
			formats := format.AllWithLogger(log)
			for i, f := range formats {
				rep.Printf("%3d %v", i, f)
			}
			rep.Printf("%d formats", len(formats))
			return nil
		},
	}
}
