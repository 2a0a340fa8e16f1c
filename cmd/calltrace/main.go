// Command calltrace runs a synthetic application on an objrt runtime under
// the call tracer and reports its slow main-goroutine calls.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/danpilch/calltrace/pkg/calltrace"
	"github.com/danpilch/calltrace/pkg/debug"
)

type rootOptions struct {
	minDurationUS uint64
	maxDepth      int
	logLevel      string
	pprofAddr     string
}

func main() {
	logger := logrus.New()
	if err := newRootCmd(logger).Execute(); err != nil {
		logger.WithError(err).Error("calltrace failed")
		os.Exit(1)
	}
}

func newRootCmd(logger *logrus.Logger) *cobra.Command {
	opts := &rootOptions{}
	var stopPprof func()

	cmd := &cobra.Command{
		Use:           "calltrace",
		Short:         "Trace slow, shallow method calls on the main goroutine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(opts.logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			logger.SetLevel(level)

			if opts.pprofAddr != "" {
				stop, err := debug.StartPprofServer(opts.pprofAddr, logger)
				if err != nil {
					return err
				}
				stopPprof = stop
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if stopPprof != nil {
				stopPprof()
			}
		},
	}

	cfg, err := calltrace.LoadConfig()
	if err != nil {
		logger.WithError(err).Warn("Ignoring calltrace environment, using defaults")
		cfg = calltrace.DefaultConfig()
	}

	flags := cmd.PersistentFlags()
	flags.Uint64Var(&opts.minDurationUS, "min-us", cfg.MinDurationUS, "record calls slower than this many microseconds")
	flags.IntVar(&opts.maxDepth, "max-depth", cfg.MaxDepth, "record calls nested less deeply than this")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.pprofAddr, "pprof", "", "serve pprof on this address while running")

	cmd.AddCommand(
		newRunCmd(opts, logger),
		newFlamegraphCmd(opts, logger),
		newOverheadCmd(opts, logger),
	)
	return cmd
}
