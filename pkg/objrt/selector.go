package objrt

import "sync"

// Selector is an interned method name. Comparing two selectors is an
// integer comparison; the name is only resolved when rendering.
type Selector uint32

var selectors struct {
	mu    sync.RWMutex
	ids   map[string]Selector
	names []string
}

// Sel interns name and returns its selector. The zero Selector is never
// returned.
func Sel(name string) Selector {
	selectors.mu.RLock()
	s, ok := selectors.ids[name]
	selectors.mu.RUnlock()
	if ok {
		return s
	}

	selectors.mu.Lock()
	defer selectors.mu.Unlock()
	if s, ok := selectors.ids[name]; ok {
		return s
	}
	if selectors.ids == nil {
		selectors.ids = make(map[string]Selector)
		selectors.names = []string{""}
	}
	s = Selector(len(selectors.names))
	selectors.names = append(selectors.names, name)
	selectors.ids[name] = s
	return s
}

// String returns the interned name.
func (s Selector) String() string {
	selectors.mu.RLock()
	defer selectors.mu.RUnlock()
	if int(s) >= len(selectors.names) || s == 0 {
		return "<nil>"
	}
	return selectors.names[s]
}
