// Package objrt provides a small dynamic object runtime: classes with method
// tables, objects, interned selectors, and a symbol table holding the
// process-wide message-send entry point.
//
// Every dynamic call made through Runtime.Send resolves the dispatch function
// from the symbol table, so rebinding SendSymbol redirects every call made on
// that runtime.
package objrt

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// SendSymbol is the name under which the dispatch entry point is registered.
const SendSymbol = "objrt_msgSend"

// ErrNoMethod is returned when a receiver's class chain does not implement a
// selector.
var ErrNoMethod = errors.New("unrecognized selector")

// ID is the opaque identity of an object.
type ID uint64

// IMP is a method implementation.
type IMP func(self *Object, sel Selector, args ...any) (any, error)

// SendFunc is the signature of the dispatch entry point.
type SendFunc func(recv *Object, sel Selector, args ...any) (any, error)

var (
	nextObjectID atomic.Uint64
	nextClassID  atomic.Uint64
)

// Class is a named method table with an optional superclass.
type Class struct {
	id    uint64
	Name  string
	Super *Class

	mu      sync.RWMutex
	methods map[Selector]IMP
}

func (c *Class) method(sel Selector) (IMP, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	imp, ok := c.methods[sel]
	return imp, ok
}

// String returns the class name.
func (c *Class) String() string {
	if c == nil {
		return "<nil>"
	}
	return c.Name
}

// Object is an instance of a Class.
type Object struct {
	id    ID
	class *Class

	// State is free for method implementations to use.
	State any
}

// ID returns the object's identity.
func (o *Object) ID() ID {
	if o == nil {
		return 0
	}
	return o.id
}

// Class returns the object's class, nil for a nil receiver.
func (o *Object) Class() *Class {
	if o == nil {
		return nil
	}
	return o.class
}

// Runtime owns a set of classes, the method cache and the symbol table the
// dispatch entry point is resolved from.
type Runtime struct {
	mu      sync.RWMutex
	classes map[string]*Class

	// resolve is held for reading while a cache miss walks the class chain
	// and fills the cache, and for writing while a method is installed.
	resolve sync.RWMutex
	cache   *methodCache
	symbols *SymbolTable
	send    *symbol
}

// Default is the process-wide runtime.
var Default = New()

// New creates a runtime with its own symbol table. The dispatch entry point
// is registered under SendSymbol.
func New() *Runtime {
	r := &Runtime{
		classes: make(map[string]*Class),
		cache:   newMethodCache(defaultCacheSize),
		symbols: NewSymbolTable(),
	}
	r.symbols.Register(SendSymbol, r.dispatch)
	r.send = r.symbols.slot(SendSymbol)
	return r
}

// Symbols returns the runtime's symbol table.
func (r *Runtime) Symbols() *SymbolTable {
	return r.symbols
}

// DefineClass registers a new class. Defining a name twice returns an error.
func (r *Runtime) DefineClass(name string, super *Class) (*Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.classes[name]; ok {
		return nil, fmt.Errorf("class %q already defined", name)
	}
	c := &Class{
		id:      nextClassID.Add(1),
		Name:    name,
		Super:   super,
		methods: make(map[Selector]IMP),
	}
	r.classes[name] = c
	return c, nil
}

// LookupClass returns a registered class by name, or nil if not found.
func (r *Runtime) LookupClass(name string) *Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.classes[name]
}

// AddMethod installs or replaces the implementation of sel on c.
func (r *Runtime) AddMethod(c *Class, sel Selector, imp IMP) {
	r.resolve.Lock()
	defer r.resolve.Unlock()
	c.mu.Lock()
	c.methods[sel] = imp
	c.mu.Unlock()
	// Subclasses may have cached an inherited implementation.
	r.cache.Purge()
}

// NewObject allocates an instance of c.
func (r *Runtime) NewObject(c *Class) *Object {
	return &Object{
		id:    ID(nextObjectID.Add(1)),
		class: c,
	}
}

// Send dispatches sel to recv through the current entry point bound to
// SendSymbol.
func (r *Runtime) Send(recv *Object, sel Selector, args ...any) (any, error) {
	return r.send.load()(recv, sel, args...)
}

// Lookup resolves the implementation of sel for c, walking the superclass
// chain.
func (r *Runtime) Lookup(c *Class, sel Selector) (IMP, bool) {
	if c == nil {
		return nil, false
	}
	key := cacheKey{class: c.id, sel: sel}
	if imp, ok := r.cache.Get(key); ok {
		return imp, true
	}
	r.resolve.RLock()
	defer r.resolve.RUnlock()
	for k := c; k != nil; k = k.Super {
		if imp, ok := k.method(sel); ok {
			r.cache.Add(key, imp)
			return imp, true
		}
	}
	return nil, false
}

// dispatch is the original entry point. Sending to a nil receiver is a no-op.
func (r *Runtime) dispatch(recv *Object, sel Selector, args ...any) (any, error) {
	if recv == nil {
		return nil, nil
	}
	imp, ok := r.Lookup(recv.class, sel)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoMethod, recv.class, sel)
	}
	return imp(recv, sel, args...)
}
