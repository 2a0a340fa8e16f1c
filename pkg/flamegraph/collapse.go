// Package flamegraph folds recorded calls into collapsed stacks and renders
// them as SVG flame graphs.
package flamegraph

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/danpilch/calltrace/pkg/record"
)

// Collapse writes records in folded stack format, one line per distinct
// call path: "outer;inner;leaf selfMicroseconds". Paths are sorted.
func Collapse(records []record.Record, w io.Writer) {
	stacks := make(map[string]uint64)
	chains := record.Chains(records)
	self := record.SelfDurations(records, chains)
	for _, c := range chains {
		key := strings.Join(c.Path, ";")
		stacks[key] += self[c.Index]
	}
	writeCollapsed(w, stacks)
}

// ParseCollapsed reads folded stack lines back into a map of path to weight.
// Malformed lines are skipped.
func ParseCollapsed(r io.Reader) (map[string]uint64, error) {
	stacks := make(map[string]uint64)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		idx := strings.LastIndex(line, " ")
		if idx <= 0 {
			continue
		}
		var weight uint64
		if _, err := fmt.Sscanf(line[idx+1:], "%d", &weight); err != nil {
			continue
		}
		stacks[line[:idx]] += weight
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read collapsed stacks: %w", err)
	}
	return stacks, nil
}

func writeCollapsed(w io.Writer, stacks map[string]uint64) {
	// Sort for deterministic output
	keys := make([]string, 0, len(stacks))
	for k := range stacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(w, "%s %d\n", k, stacks[k])
	}
}
