package testutil

import (
	"sync"

	"github.com/roach88/romtest/internal/cpu"
)

// StepHook runs on every Step call. call is 1-based. A non-nil error is
// returned from Step as the engine's crash/timeout report.
type StepHook func(call int, c *FakeCPU) error

// FakeStepper is a stepping engine that advances nothing. It records every
// request and lets a hook mutate memory, fail or panic.
//
// Thread-safety: FakeStepper is safe for concurrent use via internal mutex.
type FakeStepper struct {
	mu         sync.Mutex
	requests   []uint64
	mirrorings []cpu.Mirroring

	Hook StepHook
}

// Step implements cpu.Stepper. It panics if c is not a *FakeCPU.
func (s *FakeStepper) Step(c cpu.Testable, m cpu.Mirroring, cycles uint64) error {
	s.mu.Lock()
	s.requests = append(s.requests, cycles)
	s.mirrorings = append(s.mirrorings, m)
	call := len(s.requests)
	hook := s.Hook
	s.mu.Unlock()

	if hook == nil {
		return nil
	}
	return hook(call, c.(*FakeCPU))
}

// Calls returns the number of Step calls.
func (s *FakeStepper) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns the cycle count of every Step call in order.
func (s *FakeStepper) Requests() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.requests...)
}

// Mirrorings returns the mirroring mode of every Step call in order.
func (s *FakeStepper) Mirrorings() []cpu.Mirroring {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]cpu.Mirroring(nil), s.mirrorings...)
}

// PanicOn returns a hook that panics with v on the given call.
func PanicOn(call int, v any) StepHook {
	return func(n int, _ *FakeCPU) error {
		if n == call {
			panic(v)
		}
		return nil
	}
}

// FailOn returns a hook that reports err on the given call.
func FailOn(call int, err error) StepHook {
	return func(n int, _ *FakeCPU) error {
		if n == call {
			return err
		}
		return nil
	}
}

// Chain runs hooks in order and returns the first error.
func Chain(hooks ...StepHook) StepHook {
	return func(n int, c *FakeCPU) error {
		for _, h := range hooks {
			if err := h(n, c); err != nil {
				return err
			}
		}
		return nil
	}
}
