package callstack

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"testing"

	"github.com/petermattis/goid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/calltrace/pkg/objrt"
)

func TestPushPopBalance(t *testing.T) {
	s := newStack(7, false)
	require.Equal(t, -1, s.Top())

	const n = 10
	for i := 0; i < n; i++ {
		s.Push(Frame{Receiver: objrt.ID(i), ReturnPC: uintptr(100 + i)})
		assert.Equal(t, i, s.Top())
	}
	for i := n - 1; i >= 0; i-- {
		f, depth, ok := s.Pop()
		require.True(t, ok)
		assert.Equal(t, i, depth)
		assert.Equal(t, objrt.ID(i), f.Receiver)
		assert.Equal(t, uintptr(100+i), f.ReturnPC)
	}
	assert.Equal(t, -1, s.Top())
}

func TestStackGrowth(t *testing.T) {
	s := newStack(1, true)
	const n = initialCapacity*4 + 3
	for i := 0; i < n; i++ {
		s.Push(Frame{Receiver: objrt.ID(i)})
	}
	require.Equal(t, n-1, s.Top())
	assert.GreaterOrEqual(t, cap(s.frames), n)

	frames := s.Frames()
	require.Len(t, frames, n)
	assert.Equal(t, objrt.ID(0), frames[0].Receiver)
	assert.Equal(t, objrt.ID(n-1), frames[n-1].Receiver)

	for i := 0; i < n; i++ {
		_, _, ok := s.Pop()
		require.True(t, ok)
	}
	assert.Equal(t, -1, s.Top())
}

func TestPopReusesSlots(t *testing.T) {
	s := newStack(1, false)
	s.Push(Frame{Receiver: 1})
	s.Push(Frame{Receiver: 2})
	s.Pop()
	s.Push(Frame{Receiver: 3})

	f, depth, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, depth)
	assert.Equal(t, objrt.ID(3), f.Receiver)
	assert.Len(t, s.frames, 2)
}

func TestPopEmpty(t *testing.T) {
	s := newStack(1, false)
	_, depth, ok := s.Pop()
	assert.False(t, ok)
	assert.Equal(t, -1, depth)
	assert.Equal(t, -1, s.Top())
}

func TestRegistryPerGoroutine(t *testing.T) {
	r := NewRegistry()
	r.BindMain()

	mine := r.Current()
	assert.Same(t, mine, r.Current())
	assert.True(t, mine.Main())
	assert.Equal(t, r.MainGoroutine(), mine.Goroutine())

	var wg sync.WaitGroup
	others := make([]*Stack, 4)
	for i := range others {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			others[i] = r.Current()
		}(i)
	}
	wg.Wait()

	for _, s := range others {
		assert.NotSame(t, mine, s)
		assert.False(t, s.Main())
	}
	assert.Equal(t, 1+len(others), r.Len())
}

func TestRegistryRelease(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer r.Release()
		r.Current().Push(Frame{})
	}()
	wg.Wait()
	assert.Equal(t, 0, r.Len())

	s := r.Current()
	got, ok := r.Lookup(s.Goroutine())
	require.True(t, ok)
	assert.Same(t, s, got)

	r.Release()
	_, ok = r.Lookup(s.Goroutine())
	assert.False(t, ok)
}

func TestDefaultMainGoroutine(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, int64(mainGoroutine), r.MainGoroutine())
	// Tests never run on the goroutine executing main.main.
	assert.False(t, r.Current().Main())
}

// runtimeGoroutineID parses the id from the "goroutine N [" stack header,
// or returns -1.
func runtimeGoroutineID() int64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return -1
	}
	return id
}

func TestGoroutineIDsMatchRuntime(t *testing.T) {
	r := NewRegistry()
	r.BindMain()
	mine := r.Current()
	require.Equal(t, runtimeGoroutineID(), goid.Get())
	require.Equal(t, goid.Get(), mine.Goroutine())

	type seen struct {
		id, want int64
		stack    *Stack
	}
	const n = 3
	results := make([]seen, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer r.Release()
			results[i] = seen{id: goid.Get(), want: runtimeGoroutineID(), stack: r.Current()}
		}(i)
	}
	wg.Wait()

	ids := map[int64]bool{mine.Goroutine(): true}
	for _, res := range results {
		assert.Equal(t, res.want, res.id)
		assert.NotSame(t, mine, res.stack)
		assert.False(t, res.stack.Main())
		assert.False(t, ids[res.id], "goroutine id %d reused", res.id)
		ids[res.id] = true
	}
}
