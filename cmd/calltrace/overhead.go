package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/danpilch/calltrace/pkg/benchmark"
	"github.com/danpilch/calltrace/pkg/calltrace"
	"github.com/danpilch/calltrace/pkg/objrt"
)

func newOverheadCmd(opts *rootOptions, logger *logrus.Logger) *cobra.Command {
	bench := benchmark.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "overhead",
		Short: "Measure the cost the tracer adds to each dispatched call",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := objrt.New()
			cls, err := rt.DefineClass("Noop", nil)
			if err != nil {
				return err
			}
			sel := objrt.Sel("noop")
			rt.AddMethod(cls, sel, func(*objrt.Object, objrt.Selector, ...any) (any, error) {
				return nil, nil
			})
			obj := rt.NewObject(cls)

			direct, ok := rt.Symbols().Lookup(objrt.SendSymbol)
			if !ok {
				return fmt.Errorf("dispatch symbol %q not registered", objrt.SendSymbol)
			}
			send := func() error {
				_, err := rt.Send(obj, sel)
				return err
			}

			p := calltrace.New(rt.Symbols(), calltrace.DefaultConfig(), calltrace.WithLogger(logger))
			p.BindMain()
			p.Configure(opts.minDurationUS, opts.maxDepth)
			p.Start()
			if !p.Installed() {
				return fmt.Errorf("call tracing is unavailable on this platform")
			}

			results, err := benchmark.Run([]benchmark.Case{
				{Name: "direct", Call: func() error {
					_, err := direct(obj, sel)
					return err
				}},
				{Name: "traced", Call: send},
				{Name: "traced (stopped)", Setup: p.Stop, Call: send},
			}, bench)
			if err != nil {
				return fmt.Errorf("benchmark failed: %w", err)
			}
			benchmark.RenderResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
	cmd.Flags().IntVar(&bench.Batches, "batches", bench.Batches, "number of timed batches")
	cmd.Flags().IntVar(&bench.BatchSize, "batch-size", bench.BatchSize, "calls per batch")
	return cmd
}
