package objrt

import (
	"sync"
	"sync/atomic"
)

type symbol struct {
	fn atomic.Pointer[SendFunc]
}

func (s *symbol) load() SendFunc {
	return *s.fn.Load()
}

func (s *symbol) store(fn SendFunc) {
	s.fn.Store(&fn)
}

// SymbolTable holds named dispatch entry points. Callers resolve an entry on
// every call, so a rebinding takes effect for all subsequent calls.
type SymbolTable struct {
	mu      sync.Mutex
	symbols map[string]*symbol
}

// NewSymbolTable creates an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: make(map[string]*symbol)}
}

// Register binds name to fn, replacing any previous binding.
func (t *SymbolTable) Register(name string, fn SendFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.symbols[name]
	if !ok {
		s = &symbol{}
		t.symbols[name] = s
	}
	s.store(fn)
}

func (t *SymbolTable) slot(name string) *symbol {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.symbols[name]
}

// Lookup returns the function currently bound to name.
func (t *SymbolTable) Lookup(name string) (SendFunc, bool) {
	t.mu.Lock()
	s, ok := t.symbols[name]
	t.mu.Unlock()
	if !ok {
		return nil, false
	}
	return s.load(), true
}

// Rebind replaces the function bound to name with replacement. The previous
// binding is written to *original before the replacement becomes visible,
// so the replacement may call through it from its first invocation.
// It reports false, leaving the table untouched, if name is not bound.
func (t *SymbolTable) Rebind(name string, replacement SendFunc, original *SendFunc) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.symbols[name]
	if !ok {
		return false
	}
	*original = s.load()
	s.store(replacement)
	return true
}
