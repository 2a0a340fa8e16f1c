package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/danpilch/calltrace/pkg/flamegraph"
)

func newFlamegraphCmd(opts *rootOptions, logger *logrus.Logger) *cobra.Command {
	w := &workloadOptions{}
	svgOpts := flamegraph.DefaultSVGOptions()
	var output string

	cmd := &cobra.Command{
		Use:   "flamegraph",
		Short: "Run the demo workload and render slow calls as an SVG flame graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := trace(cmd, opts, w, logger)
			if err != nil {
				return err
			}

			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("cannot create output: %w", err)
			}
			defer file.Close()

			if err := flamegraph.GenerateSVG(records, file, svgOpts); err != nil {
				return fmt.Errorf("cannot render flame graph: %w", err)
			}
			logger.WithField("path", output).Info("Flame graph written")
			fmt.Fprintf(cmd.OutOrStdout(), "Flame graph written to %s\n", output)
			return nil
		},
	}
	w.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "calltrace.svg", "SVG output path")
	cmd.Flags().StringVar(&svgOpts.Title, "title", svgOpts.Title, "flame graph title")
	cmd.Flags().StringVar(&svgOpts.ColorScheme, "color", svgOpts.ColorScheme, "color scheme (hot, cold)")
	return cmd
}
