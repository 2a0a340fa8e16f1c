// Package dispatch interposes a trampoline on a runtime's message-send entry
// point. The trampoline reports every call's entry and exit to a set of
// hooks and is otherwise transparent: arguments, results, errors and panics
// pass through unchanged.
package dispatch

import (
	"runtime"

	"github.com/danpilch/calltrace/pkg/objrt"
)

// callerSkip skips runtime.Callers, Trampoline.Send and Runtime.Send so the
// recorded PC belongs to the code that issued the send.
const callerSkip = 3

// Rebinder replaces a named dispatch entry point. The previous binding is
// stored in *original before replacement can be called. It reports false
// when the symbol does not exist.
type Rebinder interface {
	Rebind(name string, replacement objrt.SendFunc, original *objrt.SendFunc) bool
}

// Hooks observes intercepted calls. Enter and Exit are always issued in
// matching pairs on the calling goroutine. Implementations must not send
// messages through the intercepted runtime.
type Hooks interface {
	Enter(recv objrt.ID, class *objrt.Class, sel objrt.Selector, returnPC uintptr)
	// Exit closes the innermost call and returns its saved return PC.
	Exit() uintptr
}

// Trampoline forwards calls to the original entry point, bracketing each
// with the hooks.
type Trampoline struct {
	original objrt.SendFunc
	hooks    Hooks
}

// Send is the replacement entry point.
func (t *Trampoline) Send(recv *objrt.Object, sel objrt.Selector, args ...any) (any, error) {
	var pc [1]uintptr
	runtime.Callers(callerSkip, pc[:])

	t.hooks.Enter(recv.ID(), recv.Class(), sel, pc[0])
	defer t.hooks.Exit()
	return t.original(recv, sel, args...)
}

// Original returns the entry point the trampoline forwards to.
func (t *Trampoline) Original() objrt.SendFunc {
	return t.original
}

// Install binds a trampoline over symbol. It returns false, installing
// nothing, if the symbol cannot be found or the platform is unsupported.
func Install(rb Rebinder, symbol string, hooks Hooks) (*Trampoline, bool) {
	if !Supported {
		return nil, false
	}
	t := &Trampoline{hooks: hooks}
	if !rb.Rebind(symbol, t.Send, &t.original) {
		return nil, false
	}
	return t, true
}
