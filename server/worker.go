package server

import (
	"errors"
	"fmt"

	"github.com/chazu/gametags/tags"
)

// regRequest represents a unit of work to be executed on the registry goroutine.
type regRequest struct {
	fn   func(*tags.Registry) any
	done chan regResult
}

// regResult holds the return value from a registry operation.
type regResult struct {
	value any
	err   error
}

var errWorkerStopped = errors.New("registry worker stopped")

// RegistryWorker serializes all registry access through a single
// goroutine. Reads are safe to run concurrently once the tree is built,
// but a rebuild tears the tree down, so lookups and rebuilds must not
// interleave.
type RegistryWorker struct {
	reg      *tags.Registry
	requests chan regRequest
	quit     chan struct{}
}

// NewRegistryWorker creates a RegistryWorker and starts the processing goroutine.
func NewRegistryWorker(reg *tags.Registry) *RegistryWorker {
	w := &RegistryWorker{
		reg:      reg,
		requests: make(chan regRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes registry requests sequentially on a dedicated goroutine.
func (w *RegistryWorker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs a function on the registry, recovering from panics.
func (w *RegistryWorker) execute(fn func(*tags.Registry) any) regResult {
	var result regResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn(w.reg)
	}()
	return result
}

// Do submits a function for execution on the registry goroutine and
// blocks until it completes. Returns the result and any error (including
// panics).
func (w *RegistryWorker) Do(fn func(*tags.Registry) any) (any, error) {
	req := regRequest{
		fn:   fn,
		done: make(chan regResult, 1),
	}
	select {
	case <-w.quit:
		return nil, errWorkerStopped
	default:
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, errWorkerStopped
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.quit:
		return nil, errWorkerStopped
	}
}

// Stop shuts down the worker goroutine.
func (w *RegistryWorker) Stop() {
	close(w.quit)
}

// Registry returns the underlying registry.
func (w *RegistryWorker) Registry() *tags.Registry {
	return w.reg
}
