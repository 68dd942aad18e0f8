// Package fault provides injectable failure policies for simulated
// backends.  A policy answers one question: should this call fail?
package fault

import (
	"math/rand/v2"
	"sync"
)

type Policy interface {
	Fail(op string) bool
}

type PolicyFunc func(op string) bool

func (f PolicyFunc) Fail(op string) bool { return f(op) }

func Never() Policy  { return PolicyFunc(func(string) bool { return false }) }
func Always() Policy { return PolicyFunc(func(string) bool { return true }) }

type rate struct {
	mu  sync.Mutex
	p   float64
	rnd *rand.Rand
}

// Rate fails with probability p using a generator seeded with seed, so two
// policies built with the same arguments fail on the same calls.
func Rate(p float64, seed uint64) Policy {
	switch {
	case p <= 0:
		return Never()
	case p >= 1:
		return Always()
	}
	return &rate{
		p:   p,
		rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (r *rate) Fail(string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64() < r.p
}

type script struct {
	mu      sync.Mutex
	results []bool
}

// Script replays results in order, one per call, and never fails once the
// script is exhausted.
func Script(results ...bool) Policy {
	return &script{results: append([]bool(nil), results...)}
}

func (s *script) Fail(string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) == 0 {
		return false
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r
}
