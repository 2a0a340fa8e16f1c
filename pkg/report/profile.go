package report

import (
	"fmt"
	"io"
	"time"

	"github.com/google/pprof/profile"

	"github.com/danpilch/calltrace/pkg/record"
)

// BuildProfile converts records into a pprof profile. Each record becomes a
// sample whose stack is its reconstructed call path and whose value is its
// self time, so totals in pprof match the outermost durations.
func BuildProfile(records []record.Record) *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "calls", Unit: "count"},
			{Type: "duration", Unit: "microseconds"},
		},
		PeriodType:        &profile.ValueType{Type: "duration", Unit: "microseconds"},
		Period:            1,
		TimeNanos:         time.Now().UnixNano(),
		DefaultSampleType: "duration",
	}

	functions := make(map[string]*profile.Location)
	location := func(name string) *profile.Location {
		if loc, ok := functions[name]; ok {
			return loc
		}
		fn := &profile.Function{
			ID:         uint64(len(p.Function) + 1),
			Name:       name,
			SystemName: name,
		}
		p.Function = append(p.Function, fn)
		loc := &profile.Location{
			ID:   uint64(len(p.Location) + 1),
			Line: []profile.Line{{Function: fn}},
		}
		p.Location = append(p.Location, loc)
		functions[name] = loc
		return loc
	}

	chains := record.Chains(records)
	self := record.SelfDurations(records, chains)
	for _, c := range chains {
		// pprof stacks are leaf first.
		locs := make([]*profile.Location, len(c.Path))
		for i, name := range c.Path {
			locs[len(c.Path)-1-i] = location(name)
		}
		p.Sample = append(p.Sample, &profile.Sample{
			Location: locs,
			Value:    []int64{1, int64(self[c.Index])},
			NumLabel: map[string][]int64{"depth": {int64(records[c.Index].Depth)}},
		})
	}
	return p
}

// WriteProfile writes records as a gzipped pprof profile.
func WriteProfile(w io.Writer, records []record.Record) error {
	p := BuildProfile(records)
	if err := p.CheckValid(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	if err := p.Write(w); err != nil {
		return fmt.Errorf("cannot write profile: %w", err)
	}
	return nil
}
