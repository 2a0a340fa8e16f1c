package calltrace

import (
	"github.com/danpilch/calltrace/pkg/objrt"
	"github.com/danpilch/calltrace/pkg/record"
)

var std = New(objrt.Default.Symbols(), DefaultConfig())

// Default returns the probe bound to objrt.Default.
func Default() *Probe { return std }

// Start enables the default probe.
func Start() { std.Start() }

// Stop disables the default probe.
func Stop() { std.Stop() }

// Configure sets the default probe's thresholds.
func Configure(minDurationUS uint64, maxDepth int) { std.Configure(minDurationUS, maxDepth) }

// Records returns the default probe's records and their count.
func Records() ([]record.Record, int) { return std.Records() }

// Clear discards the default probe's records.
func Clear() { std.Clear() }
