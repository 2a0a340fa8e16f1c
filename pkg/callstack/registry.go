package callstack

import (
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// mainGoroutine is the id the Go runtime gives the goroutine running main.
const mainGoroutine = 1

// Registry maps goroutines to their call stacks.
type Registry struct {
	stacks sync.Map // goroutine id -> *Stack
	main   atomic.Int64
}

// NewRegistry creates a registry whose designated main goroutine is the one
// running main.main.
func NewRegistry() *Registry {
	r := &Registry{}
	r.main.Store(mainGoroutine)
	return r
}

// BindMain designates the calling goroutine as the main goroutine. Stacks
// that already exist keep the flag they were created with.
func (r *Registry) BindMain() {
	r.main.Store(goid.Get())
}

// MainGoroutine returns the designated main goroutine id.
func (r *Registry) MainGoroutine() int64 {
	return r.main.Load()
}

// Current returns the calling goroutine's stack, creating it on first use.
// The stack lives until the goroutine calls Release; goroutines that exit
// without releasing leave their stack in the registry.
func (r *Registry) Current() *Stack {
	id := goid.Get()
	if s, ok := r.stacks.Load(id); ok {
		return s.(*Stack)
	}
	s := newStack(id, id == r.main.Load())
	r.stacks.Store(id, s)
	return s
}

// Lookup returns the stack of goroutine id without creating one.
func (r *Registry) Lookup(id int64) (*Stack, bool) {
	s, ok := r.stacks.Load(id)
	if !ok {
		return nil, false
	}
	return s.(*Stack), true
}

// Release drops the calling goroutine's stack. It must be called by the
// goroutine that owns the stack, once it makes no further intercepted calls.
func (r *Registry) Release() {
	r.stacks.Delete(goid.Get())
}

// Len returns the number of live stacks.
func (r *Registry) Len() int {
	n := 0
	r.stacks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
