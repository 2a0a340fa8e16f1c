package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/calltrace/pkg/objrt"
)

func TestFilterKeep(t *testing.T) {
	f := Filter{MinDurationUS: 1000, MaxDepth: 3}
	tests := []struct {
		name     string
		duration uint64
		depth    int
		want     bool
	}{
		{"slow and shallow", 1001, 0, true},
		{"at duration threshold", 1000, 0, false},
		{"fast", 10, 0, false},
		{"last allowed depth", 5000, 2, true},
		{"at depth threshold", 5000, 3, false},
		{"deep and slow", 1 << 40, 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Keep(tt.duration, tt.depth))
		})
	}
}

func TestBufferAppendAndClear(t *testing.T) {
	var b Buffer
	recs, n := b.Records()
	assert.Empty(t, recs)
	assert.Zero(t, n)

	for i := 0; i < initialCapacity+10; i++ {
		b.Append(Record{Depth: int32(i % 3), Duration: uint64(i)})
	}
	recs, n = b.Records()
	require.Equal(t, initialCapacity+10, n)
	require.Len(t, recs, n)
	assert.Equal(t, uint64(initialCapacity+9), recs[n-1].Duration)
	assert.Equal(t, n, b.Len())

	b.Clear()
	recs, n = b.Records()
	assert.Empty(t, recs)
	assert.Zero(t, n)
	assert.Zero(t, b.Len())
}

func TestBufferRecordsIsStableSnapshot(t *testing.T) {
	var b Buffer
	b.Append(Record{Duration: 1})
	recs, n := b.Records()

	b.Append(Record{Duration: 2})
	assert.Len(t, recs, n)
	assert.Equal(t, 2, b.Len())
}

func TestChains(t *testing.T) {
	rt := objrt.New()
	cls, err := rt.DefineClass("VC", nil)
	require.NoError(t, err)
	mk := func(sel string, depth int32, d uint64) Record {
		return Record{Class: cls, Selector: objrt.Sel(sel), Depth: depth, Duration: d}
	}

	// Completion order of:
	//   load (0) { fetch (1) { decode (2) }  layout (1) }
	//   draw (0) { <unrecorded> (1) { blit (2) } }
	records := []Record{
		mk("decode", 2, 300),
		mk("fetch", 1, 500),
		mk("layout", 1, 200),
		mk("load", 0, 1000),
		mk("blit", 2, 400),
		mk("draw", 0, 900),
	}
	chains := Chains(records)
	require.Len(t, chains, len(records))

	assert.Equal(t, []string{"VC.load", "VC.fetch", "VC.decode"}, chains[0].Path)
	assert.Equal(t, 1, chains[0].Parent)
	assert.Equal(t, []string{"VC.load", "VC.fetch"}, chains[1].Path)
	assert.Equal(t, 3, chains[1].Parent)
	assert.Equal(t, []string{"VC.load", "VC.layout"}, chains[2].Path)
	assert.Equal(t, 3, chains[2].Parent)
	assert.Equal(t, []string{"VC.load"}, chains[3].Path)
	assert.Equal(t, -1, chains[3].Parent)
	assert.Equal(t, []string{"VC.draw", Unknown, "VC.blit"}, chains[4].Path)
	assert.Equal(t, -1, chains[4].Parent)
	assert.Equal(t, []string{"VC.draw"}, chains[5].Path)

	self := SelfDurations(records, chains)
	assert.Equal(t, []uint64{300, 200, 200, 300, 400, 900}, self)
}

func TestSelfDurationsClamp(t *testing.T) {
	records := []Record{
		{Depth: 1, Duration: 700},
		{Depth: 0, Duration: 600},
	}
	self := SelfDurations(records, Chains(records))
	assert.Equal(t, []uint64{700, 0}, self)
}
