package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/danpilch/calltrace/pkg/calltrace"
	"github.com/danpilch/calltrace/pkg/objrt"
)

var (
	selLaunch   = objrt.Sel("didFinishLaunching")
	selViewLoad = objrt.Sel("viewDidLoad")
	selLayout   = objrt.Sel("layoutSubviews")
	selDecode   = objrt.Sel("decodeImage:")
	selParse    = objrt.Sel("parseFeed:")
	selCell     = objrt.Sel("configureCell:")
	selSync     = objrt.Sel("syncInBackground")
)

// app is a small object graph whose methods sleep to simulate work.
type app struct {
	rt       *objrt.Runtime
	delegate *objrt.Object
	feed     *objrt.Object
	decoder  *objrt.Object
	parser   *objrt.Object
	sync     *objrt.Object

	// inspect, if set, runs inside every decode on the decoding goroutine.
	inspect func()
}

func sleepIMP(d time.Duration) objrt.IMP {
	return func(*objrt.Object, objrt.Selector, ...any) (any, error) {
		time.Sleep(d)
		return nil, nil
	}
}

func newApp(rt *objrt.Runtime) (*app, error) {
	a := &app{rt: rt}
	define := func(name string, super *objrt.Class) (*objrt.Class, error) {
		c, err := rt.DefineClass(name, super)
		if err != nil {
			return nil, fmt.Errorf("cannot define %s: %w", name, err)
		}
		return c, nil
	}

	responder, err := define("Responder", nil)
	if err != nil {
		return nil, err
	}
	delegate, err := define("AppDelegate", responder)
	if err != nil {
		return nil, err
	}
	controller, err := define("FeedViewController", responder)
	if err != nil {
		return nil, err
	}
	decoder, err := define("ImageDecoder", nil)
	if err != nil {
		return nil, err
	}
	parser, err := define("FeedParser", nil)
	if err != nil {
		return nil, err
	}
	syncer, err := define("SyncService", nil)
	if err != nil {
		return nil, err
	}

	rt.AddMethod(responder, selLayout, sleepIMP(200*time.Microsecond))
	decode := sleepIMP(3 * time.Millisecond)
	rt.AddMethod(decoder, selDecode, func(self *objrt.Object, sel objrt.Selector, args ...any) (any, error) {
		if a.inspect != nil {
			a.inspect()
		}
		return decode(self, sel, args...)
	})
	rt.AddMethod(parser, selParse, sleepIMP(2*time.Millisecond))
	rt.AddMethod(syncer, selSync, sleepIMP(5*time.Millisecond))

	rt.AddMethod(controller, selCell, func(self *objrt.Object, _ objrt.Selector, args ...any) (any, error) {
		// Decoding on the main goroutine is the culprit this demo surfaces.
		return rt.Send(a.decoder, selDecode, args...)
	})
	rt.AddMethod(controller, selViewLoad, func(self *objrt.Object, _ objrt.Selector, _ ...any) (any, error) {
		if _, err := rt.Send(a.parser, selParse); err != nil {
			return nil, err
		}
		for i := 0; i < 3; i++ {
			if _, err := rt.Send(self, selCell, i); err != nil {
				return nil, err
			}
		}
		return rt.Send(self, selLayout)
	})
	rt.AddMethod(delegate, selLaunch, func(self *objrt.Object, _ objrt.Selector, _ ...any) (any, error) {
		if _, err := rt.Send(a.feed, selViewLoad); err != nil {
			return nil, err
		}
		return rt.Send(self, selLayout)
	})

	a.delegate = rt.NewObject(delegate)
	a.feed = rt.NewObject(controller)
	a.decoder = rt.NewObject(decoder)
	a.parser = rt.NewObject(parser)
	a.sync = rt.NewObject(syncer)
	return a, nil
}

// run launches the app iterations times on the calling goroutine while
// background goroutines sync concurrently.
func (a *app) run(ctx context.Context, p *calltrace.Probe, iterations, background int, logger *logrus.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < background; i++ {
		worker := i
		g.Go(func() error {
			defer p.Release()
			for j := 0; j < iterations; j++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if _, err := a.rt.Send(a.sync, selSync); err != nil {
					return fmt.Errorf("worker %d: %w", worker, err)
				}
			}
			return nil
		})
	}

	for i := 0; i < iterations; i++ {
		start := time.Now()
		if _, err := a.rt.Send(a.delegate, selLaunch); err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"iteration": i,
			"elapsed":   time.Since(start),
		}).Debug("Launch finished")
	}
	return g.Wait()
}
