package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/danpilch/calltrace/pkg/calltrace"
	"github.com/danpilch/calltrace/pkg/debug"
	"github.com/danpilch/calltrace/pkg/objrt"
	"github.com/danpilch/calltrace/pkg/record"
	"github.com/danpilch/calltrace/pkg/report"
)

type workloadOptions struct {
	iterations int
	background int
	dumpStack  bool
}

func (w *workloadOptions) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&w.iterations, "iterations", "n", 3, "number of simulated launches")
	cmd.Flags().IntVar(&w.background, "background", 2, "number of background goroutines making calls concurrently")
	cmd.Flags().BoolVar(&w.dumpStack, "dump-stack", false, "print the main goroutine's open calls from inside the first image decode to stderr")
}

// trace runs the workload under a fresh probe and returns its records.
func trace(cmd *cobra.Command, opts *rootOptions, w *workloadOptions, logger *logrus.Logger) ([]record.Record, error) {
	rt := objrt.New()
	a, err := newApp(rt)
	if err != nil {
		return nil, err
	}

	p := calltrace.New(rt.Symbols(), calltrace.DefaultConfig(), calltrace.WithLogger(logger))
	p.BindMain()
	p.Configure(opts.minDurationUS, opts.maxDepth)
	p.Start()
	defer p.Stop()
	if !p.Installed() {
		return nil, fmt.Errorf("call tracing is unavailable on this platform")
	}

	if w.dumpStack {
		var once sync.Once
		a.inspect = func() {
			once.Do(func() { debug.DumpStack(cmd.ErrOrStderr(), p.Stack()) })
		}
	}

	logger.WithFields(logrus.Fields{
		"min_us":     opts.minDurationUS,
		"max_depth":  opts.maxDepth,
		"iterations": w.iterations,
		"background": w.background,
	}).Info("Running workload")

	if err := a.run(cmd.Context(), p, w.iterations, w.background, logger); err != nil {
		return nil, fmt.Errorf("workload failed: %w", err)
	}
	records, n := p.Records()
	logger.WithField("records", n).Info("Workload finished")
	return records, nil
}

func newRunCmd(opts *rootOptions, logger *logrus.Logger) *cobra.Command {
	w := &workloadOptions{}
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo workload and report slow calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			if f == report.FormatPprof && output == "" {
				return fmt.Errorf("pprof output requires --output")
			}
			records, err := trace(cmd, opts, w, logger)
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("cannot create output: %w", err)
				}
				defer file.Close()
				out = file
			}
			return report.NewFormatter(f, out).Render(records)
		},
	}
	w.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatTable), "output format (table, json, tsv, pprof)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to this file")
	return cmd
}
