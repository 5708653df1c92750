package qrlogin

import (
	"context"
	"sync/atomic"
)

// Status is the outcome of a login attempt.
type Status int32

const (
	Pending Status = iota
	Success
	Failure
)

// String returns the projection shown to presentation surfaces.
func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is Success or Failure.
func (s Status) Terminal() bool {
	return s == Success || s == Failure
}

// StatusReport is the JSON body served to web clients.
type StatusReport struct {
	Status string `json:"status"`
}

// Publisher holds the status of the single login attempt of a process. The
// machine writes it once; any number of readers may observe it.
type Publisher struct {
	status atomic.Int32
	done   chan struct{}
}

func NewPublisher() *Publisher {
	return &Publisher{done: make(chan struct{})}
}

// Status returns the current status.
func (p *Publisher) Status() Status {
	return Status(p.status.Load())
}

// Report returns the current status in its JSON form.
func (p *Publisher) Report() StatusReport {
	return StatusReport{Status: p.Status().String()}
}

// Set moves the status from Pending to the terminal status s. It returns
// false, leaving the status untouched, if s is not terminal or a terminal
// status was already set.
func (p *Publisher) Set(s Status) bool {
	if !s.Terminal() {
		return false
	}
	if !p.status.CompareAndSwap(int32(Pending), int32(s)) {
		return false
	}
	close(p.done)
	return true
}

// Done is closed once a terminal status is set.
func (p *Publisher) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until a terminal status is set or ctx is done.
func (p *Publisher) Wait(ctx context.Context) (Status, error) {
	select {
	case <-p.done:
		return p.Status(), nil
	case <-ctx.Done():
		return p.Status(), context.Cause(ctx)
	}
}
