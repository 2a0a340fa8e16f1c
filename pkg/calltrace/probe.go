// Package calltrace records slow, shallow method calls made on the main
// goroutine of an objrt runtime.
//
// A Probe interposes a trampoline on the runtime's dispatch entry point the
// first time it is started. Every call on every goroutine is then pushed and
// popped on that goroutine's call stack; only calls on the designated main
// goroutine are timed, and only those slower than the configured minimum
// and shallower than the configured depth are kept.
package calltrace

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/calltrace/pkg/callstack"
	"github.com/danpilch/calltrace/pkg/clock"
	"github.com/danpilch/calltrace/pkg/dispatch"
	"github.com/danpilch/calltrace/pkg/objrt"
	"github.com/danpilch/calltrace/pkg/record"
)

// Probe is the control surface of a call tracer.
type Probe struct {
	rebinder dispatch.Rebinder
	symbol   string
	now      clock.Clock
	logger   *logrus.Logger

	enabled     atomic.Bool
	minDuration atomic.Uint64
	maxDepth    atomic.Int64

	stacks *callstack.Registry
	buffer record.Buffer

	installOnce sync.Once
	trampoline  atomic.Pointer[dispatch.Trampoline]
}

// Option configures a Probe.
type Option func(*Probe)

// WithLogger sets the logger. Nothing is logged per call.
func WithLogger(logger *logrus.Logger) Option {
	return func(p *Probe) { p.logger = logger }
}

// WithClock replaces the timestamp source.
func WithClock(c clock.Clock) Option {
	return func(p *Probe) { p.now = c }
}

// WithSymbol sets the name of the entry point to intercept.
func WithSymbol(name string) Option {
	return func(p *Probe) { p.symbol = name }
}

// New creates a probe that installs itself through rb on Start. Nothing is
// intercepted until then.
func New(rb dispatch.Rebinder, cfg Config, opts ...Option) *Probe {
	p := &Probe{
		rebinder: rb,
		symbol:   objrt.SendSymbol,
		now:      clock.Now,
		stacks:   callstack.NewRegistry(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logrus.New()
		p.logger.SetLevel(logrus.WarnLevel)
	}
	p.enabled.Store(cfg.Enabled)
	p.Configure(cfg.MinDurationUS, cfg.MaxDepth)
	return p
}

// Start enables recording, installing the trampoline on first use.
func (p *Probe) Start() {
	if !dispatch.Supported {
		p.logger.Warn("Call tracing is not supported on this platform")
		return
	}
	p.enabled.Store(true)
	p.installOnce.Do(p.install)
}

func (p *Probe) install() {
	t, ok := dispatch.Install(p.rebinder, p.symbol, hooks{p})
	if !ok {
		p.logger.WithField("symbol", p.symbol).Debug("Dispatch symbol not found, tracing stays inert")
		return
	}
	p.trampoline.Store(t)
	p.logger.WithField("symbol", p.symbol).Debug("Dispatch trampoline installed")
}

// Installed reports whether the trampoline is bound.
func (p *Probe) Installed() bool {
	return p.trampoline.Load() != nil
}

// Stop disables recording. Calls are still intercepted so stacks stay
// balanced, but none are timed.
func (p *Probe) Stop() {
	if !dispatch.Supported {
		return
	}
	p.enabled.Store(false)
}

// Enabled reports whether recording is enabled.
func (p *Probe) Enabled() bool {
	return dispatch.Supported && p.enabled.Load()
}

// Configure sets the thresholds for calls completing from now on.
func (p *Probe) Configure(minDurationUS uint64, maxDepth int) {
	if !dispatch.Supported {
		return
	}
	p.minDuration.Store(minDurationUS)
	p.maxDepth.Store(int64(maxDepth))
}

// Config returns the current configuration.
func (p *Probe) Config() Config {
	return Config{
		Enabled:       p.Enabled(),
		MinDurationUS: p.minDuration.Load(),
		MaxDepth:      int(p.maxDepth.Load()),
	}
}

// Records returns the recorded calls in completion order, without copying,
// and their count.
func (p *Probe) Records() ([]record.Record, int) {
	if !dispatch.Supported {
		return nil, 0
	}
	return p.buffer.Records()
}

// Clear discards all records.
func (p *Probe) Clear() {
	p.buffer.Clear()
}

// BindMain designates the calling goroutine as the one whose calls are
// timed. It only affects goroutines that have not yet made an intercepted
// call.
func (p *Probe) BindMain() {
	p.stacks.BindMain()
}

// Stack returns the calling goroutine's call stack.
func (p *Probe) Stack() *callstack.Stack {
	return p.stacks.Current()
}

// Release drops the calling goroutine's call stack. Call it from a goroutine
// that is about to exit and makes no further calls.
func (p *Probe) Release() {
	p.stacks.Release()
}

// Go runs fn on a new goroutine and releases its call stack when fn returns.
func (p *Probe) Go(fn func()) {
	go func() {
		defer p.stacks.Release()
		fn()
	}()
}

func (p *Probe) filter() record.Filter {
	return record.Filter{
		MinDurationUS: p.minDuration.Load(),
		MaxDepth:      int(p.maxDepth.Load()),
	}
}

// hooks receives the trampoline's callbacks. It must never send through the
// intercepted runtime.
type hooks struct {
	p *Probe
}

func (h hooks) Enter(recv objrt.ID, class *objrt.Class, sel objrt.Selector, returnPC uintptr) {
	s := h.p.stacks.Current()
	f := callstack.Frame{
		Receiver: recv,
		Class:    class,
		Selector: sel,
		ReturnPC: returnPC,
	}
	if s.Main() && h.p.enabled.Load() {
		f.Entered = h.p.now()
		f.Timed = true
	}
	s.Push(f)
}

func (h hooks) Exit() uintptr {
	s := h.p.stacks.Current()
	f, depth, ok := s.Pop()
	if !ok {
		return 0
	}
	if f.Timed && h.p.enabled.Load() {
		d := clock.Elapsed(f.Entered, h.p.now())
		if h.p.filter().Keep(d, depth) {
			h.p.buffer.Append(record.Record{
				Class:    f.Class,
				Selector: f.Selector,
				Depth:    int32(depth),
				Duration: d,
			})
		}
	}
	return f.ReturnPC
}
