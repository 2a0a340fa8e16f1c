// Package callstack keeps one call stack per goroutine for the dispatch
// interceptor.
package callstack

import "github.com/danpilch/calltrace/pkg/objrt"

const initialCapacity = 64

// Frame is an open intercepted call.
type Frame struct {
	Receiver objrt.ID
	Class    *objrt.Class
	Selector objrt.Selector
	// Entered is the entry timestamp; only meaningful when Timed is set.
	Entered uint64
	Timed   bool
	// ReturnPC is the program counter of the call site.
	ReturnPC uintptr
}

// Stack is a goroutine's stack of open calls. A Stack is owned by a single
// goroutine and must not be shared.
type Stack struct {
	frames []Frame
	top    int
	main   bool
	gid    int64
}

func newStack(gid int64, main bool) *Stack {
	return &Stack{
		frames: make([]Frame, 0, initialCapacity),
		top:    -1,
		main:   main,
		gid:    gid,
	}
}

// Main reports whether the stack belongs to the designated main goroutine.
func (s *Stack) Main() bool {
	return s.main
}

// Goroutine returns the id of the owning goroutine.
func (s *Stack) Goroutine() int64 {
	return s.gid
}

// Top returns the index of the innermost open call, -1 when empty.
func (s *Stack) Top() int {
	return s.top
}

// Push opens a call.
func (s *Stack) Push(f Frame) {
	s.top++
	if s.top == len(s.frames) {
		s.frames = append(s.frames, f)
		return
	}
	s.frames[s.top] = f
}

// Pop closes the innermost call, returning its frame and its depth (0 for
// the outermost call). ok is false if the stack is empty.
func (s *Stack) Pop() (f Frame, depth int, ok bool) {
	if s.top < 0 {
		return Frame{}, -1, false
	}
	depth = s.top
	f = s.frames[depth]
	s.frames[depth] = Frame{}
	s.top--
	return f, depth, true
}

// Frames returns a copy of the open calls, outermost first.
func (s *Stack) Frames() []Frame {
	out := make([]Frame, s.top+1)
	copy(out, s.frames[:s.top+1])
	return out
}
