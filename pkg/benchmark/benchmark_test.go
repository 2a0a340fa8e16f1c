package benchmark

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/calltrace/pkg/calltrace"
	"github.com/danpilch/calltrace/pkg/objrt"
)

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(sorted, 0.50))
	assert.Equal(t, time.Duration(10), percentile(sorted, 0.95))
	assert.Equal(t, time.Duration(1), percentile(sorted, 0))
	assert.Zero(t, percentile(nil, 0.5))
}

func TestRunDirectAndTraced(t *testing.T) {
	rt := objrt.New()
	cls, err := rt.DefineClass("Noop", nil)
	require.NoError(t, err)
	sel := objrt.Sel("noop")
	rt.AddMethod(cls, sel, func(*objrt.Object, objrt.Selector, ...any) (any, error) { return nil, nil })
	obj := rt.NewObject(cls)

	direct, ok := rt.Symbols().Lookup(objrt.SendSymbol)
	require.True(t, ok)

	p := calltrace.New(rt.Symbols(), calltrace.DefaultConfig())
	p.BindMain()
	p.Start()

	send := func() error {
		_, err := rt.Send(obj, sel)
		return err
	}
	results, err := Run([]Case{
		{Name: "direct", Call: func() error { _, err := direct(obj, sel); return err }},
		{Name: "traced", Call: send},
	}, Options{Batches: 5, BatchSize: 100, Warmup: 1})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "direct", results[0].Name)
	assert.Positive(t, results[1].P50)
	assert.LessOrEqual(t, results[1].P50, results[1].P99)

	var buf bytes.Buffer
	RenderResults(&buf, results)
	assert.Contains(t, buf.String(), "Dispatch Overhead")
	assert.Contains(t, buf.String(), "traced")
}

func TestRunStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run([]Case{{Name: "bad", Call: func() error { return boom }}}, DefaultOptions())
	assert.ErrorIs(t, err, boom)

	_, err = Run(nil, Options{})
	assert.Error(t, err)
}
