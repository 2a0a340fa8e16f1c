// Package report renders recorded calls for people and tools.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-json"

	"github.com/danpilch/calltrace/pkg/record"
)

// Format represents the output format type.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatTSV   Format = "tsv"
	FormatPprof Format = "pprof"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("unknown format")

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatTSV, FormatPprof:
		return f, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownFormat, s)
}

// Entry is the serialized form of a record.
type Entry struct {
	Class      string `json:"class"`
	Method     string `json:"method"`
	Depth      int32  `json:"depth"`
	DurationUS uint64 `json:"duration_us"`
}

// Summary aggregates a set of records.
type Summary struct {
	Count     int    `json:"count"`
	Outermost int    `json:"outermost"`
	TotalUS   uint64 `json:"total_us"`
	Slowest   string `json:"slowest,omitempty"`
	SlowestUS uint64 `json:"slowest_us"`
}

// Summarize computes summary statistics. Only outermost calls contribute to
// the total so nested time is not counted twice.
func Summarize(records []record.Record) Summary {
	s := Summary{Count: len(records)}
	for _, r := range records {
		if r.Depth == 0 {
			s.Outermost++
			s.TotalUS += r.Duration
		}
		if r.Duration > s.SlowestUS {
			s.SlowestUS = r.Duration
			s.Slowest = r.Name()
		}
	}
	return s
}

// Formatter handles output formatting.
type Formatter struct {
	format Format
	writer io.Writer
}

// NewFormatter creates a new formatter.
func NewFormatter(format Format, writer io.Writer) *Formatter {
	return &Formatter{
		format: format,
		writer: writer,
	}
}

// Render outputs the records in the configured format.
func (f *Formatter) Render(records []record.Record) error {
	switch f.format {
	case FormatJSON:
		return f.renderJSON(records)
	case FormatTSV:
		return f.renderTSV(records)
	case FormatPprof:
		return WriteProfile(f.writer, records)
	default:
		return f.renderTable(records)
	}
}

func entries(records []record.Record) []Entry {
	out := make([]Entry, len(records))
	for i, r := range records {
		out[i] = Entry{
			Class:      r.Class.String(),
			Method:     r.Selector.String(),
			Depth:      r.Depth,
			DurationUS: r.Duration,
		}
	}
	return out
}

// renderJSON outputs records as JSON.
func (f *Formatter) renderJSON(records []record.Record) error {
	output := struct {
		Records []Entry `json:"records"`
		Summary Summary `json:"summary"`
	}{
		Records: entries(records),
		Summary: Summarize(records),
	}

	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

func formatUS(us uint64) string {
	return (time.Duration(us) * time.Microsecond).String()
}

// renderTable outputs records as a styled table, indented by depth.
func (f *Formatter) renderTable(records []record.Record) error {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("62")).
		Padding(0, 1)

	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	slowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	fmt.Fprintln(f.writer, titleStyle.Render("Slow Main-Goroutine Calls"))
	fmt.Fprintln(f.writer, strings.Repeat("═", 60))
	fmt.Fprintln(f.writer)

	summary := Summarize(records)
	if len(records) == 0 {
		fmt.Fprintln(f.writer, okStyle.Render("No slow calls recorded"))
		return nil
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		duration := formatUS(r.Duration)
		if r.Duration == summary.SlowestUS {
			duration = slowStyle.Render(duration)
		}
		rows[i] = []string{
			fmt.Sprintf("%d", i),
			strings.Repeat("  ", int(r.Depth)) + r.Class.String(),
			r.Selector.String(),
			fmt.Sprintf("%d", r.Depth),
			duration,
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("#", "CLASS", "METHOD", "DEPTH", "DURATION").
		Rows(rows...)

	fmt.Fprintln(f.writer, t)
	fmt.Fprintln(f.writer)
	fmt.Fprintf(f.writer, "Summary: %d calls, %d outermost, %s total, slowest %s (%s)\n",
		summary.Count, summary.Outermost, formatUS(summary.TotalUS),
		summary.Slowest, formatUS(summary.SlowestUS))

	return nil
}

// renderTSV outputs records as tab-separated values.
func (f *Formatter) renderTSV(records []record.Record) error {
	fmt.Fprintln(f.writer, "INDEX\tCLASS\tMETHOD\tDEPTH\tDURATION_US")

	for i, r := range records {
		fmt.Fprintf(f.writer, "%d\t%s\t%s\t%d\t%d\n",
			i, r.Class, r.Selector, r.Depth, r.Duration)
	}

	return nil
}
