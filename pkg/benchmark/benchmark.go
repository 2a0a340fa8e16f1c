// Package benchmark measures the cost the tracer adds to every dispatched
// call.
package benchmark

import (
	"fmt"
	"io"
	"math"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Options configures a benchmark run.
type Options struct {
	// Batches is the number of timed batches; percentiles are over batches.
	Batches int
	// BatchSize is the number of calls per batch.
	BatchSize int
	Warmup    int
}

// DefaultOptions returns sensible benchmark defaults.
func DefaultOptions() Options {
	return Options{
		Batches:   50,
		BatchSize: 2000,
		Warmup:    3,
	}
}

// Case is a named call to measure. Setup, if set, runs once before the
// case is measured.
type Case struct {
	Name  string
	Setup func()
	Call  func() error
}

// Result holds per-call latencies for a single case.
type Result struct {
	Name string
	P50  time.Duration
	P95  time.Duration
	P99  time.Duration
	// AllocsPerCall is the mean heap allocation count per call.
	AllocsPerCall float64
}

var (
	bmTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	bmHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	bmDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Run measures each case in turn. The first error aborts the run.
func Run(cases []Case, opts Options) ([]Result, error) {
	if opts.Batches < 1 || opts.BatchSize < 1 {
		return nil, fmt.Errorf("batches and batch size must be positive")
	}

	var results []Result
	for _, c := range cases {
		if c.Setup != nil {
			c.Setup()
		}
		for i := 0; i < opts.Warmup; i++ {
			if err := c.Call(); err != nil {
				return nil, fmt.Errorf("%s: %w", c.Name, err)
			}
		}

		perCall := make([]time.Duration, opts.Batches)
		before := mallocs()
		for b := 0; b < opts.Batches; b++ {
			start := time.Now()
			for i := 0; i < opts.BatchSize; i++ {
				if err := c.Call(); err != nil {
					return nil, fmt.Errorf("%s: %w", c.Name, err)
				}
			}
			perCall[b] = time.Since(start) / time.Duration(opts.BatchSize)
		}
		allocs := mallocs() - before

		sort.Slice(perCall, func(i, j int) bool {
			return perCall[i] < perCall[j]
		})

		results = append(results, Result{
			Name:          c.Name,
			P50:           percentile(perCall, 0.50),
			P95:           percentile(perCall, 0.95),
			P99:           percentile(perCall, 0.99),
			AllocsPerCall: float64(allocs) / float64(opts.Batches*opts.BatchSize),
		})
	}

	return results, nil
}

func mallocs() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Mallocs
}

// Overhead returns how much slower each result is than base at the median.
func Overhead(base Result, r Result) time.Duration {
	return r.P50 - base.P50
}

// RenderResults outputs styled benchmark results. The first result is the
// baseline the others are compared with.
func RenderResults(w io.Writer, results []Result) {
	fmt.Fprintln(w, bmTitle.Render("Dispatch Overhead"))
	fmt.Fprintln(w, bmDim.Render(strings.Repeat("═", 78)))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %s %s %s %s %s\n",
		bmHeader.Render("CASE                "),
		bmHeader.Render("P50       "),
		bmHeader.Render("P95       "),
		bmHeader.Render("P99       "),
		bmHeader.Render("ALLOCS"),
		bmHeader.Render("OVERHEAD"))
	fmt.Fprintln(w, "  "+bmDim.Render(strings.Repeat("─", 78)))

	for i, r := range results {
		overhead := "-"
		if i > 0 {
			overhead = fmt.Sprintf("%+v", Overhead(results[0], r))
		}
		fmt.Fprintf(w, "  %-22s %-12v %-12v %-12v %-8.2f %s\n",
			r.Name, r.P50, r.P95, r.P99, r.AllocsPerCall, overhead)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
