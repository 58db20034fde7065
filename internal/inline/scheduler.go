package inline

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"vmopt/internal/ir"
)

// job is one scheduled unit of inlining work: process every call site
// within a single caller. Each job carries a uuid so the log line for
// a failed job can name a specific run even though the underlying
// method key repeats across runs of the optimizer.
type job struct {
	id     uuid.UUID
	method *ir.Method
}

// Scheduler runs a per-method work function bottom-up over a call graph with bounded
// parallelism, adapted from the priority WorkerPool
// (internal/concurrency/concurrency.go) into a wait-count dependency
// discipline: a caller's job only becomes runnable once every callee
// job it depends on has finished shrinking, so callers never inline a
// callee that is still being rewritten underneath them.
type Scheduler struct {
	cg       *CallGraph
	sem      *semaphore.Weighted
	mu       sync.Mutex
	waitCnt map[string]int      // method key -> callees not yet finished
	blocked map[string][]string // callee key -> caller keys waiting on it
	done    map[string]chan struct{}
	started map[string]bool // method key -> already dispatched, guards double-scheduling
}

// NewScheduler builds a scheduler over cg with the given worker count.
// workers<=0 means synchronous (every job runs inline on the caller's
// goroutine in bottom-up order, no pool at all).
func NewScheduler(cg *CallGraph, workers int) *Scheduler {
	s := &Scheduler{
		cg:      cg,
		waitCnt: map[string]int{},
		blocked: map[string][]string{},
		done:    map[string]chan struct{}{},
		started: map[string]bool{},
	}
	if workers > 0 {
		s.sem = semaphore.NewWeighted(int64(workers))
	}
	for _, m := range cg.methods {
		s.done[m.Key()] = make(chan struct{})
		n := 0
		for _, callee := range cg.Callees(m) {
			if cg.Depth(callee) < cg.Depth(m) {
				n++
				s.blocked[callee.Key()] = append(s.blocked[callee.Key()], m.Key())
			}
		}
		s.waitCnt[m.Key()] = n
	}
	return s
}

// Run processes every method in cg bottom-up, invoking work(method)
// once that method's callees have all signaled completion. work
// inlines and shrinks the method; Run itself marks the method finished
// after work returns, releasing the callers waiting on it.
func (s *Scheduler) Run(ctx context.Context, work func(*ir.Method) error) error {
	byKey := map[string]*ir.Method{}
	for _, m := range s.cg.methods {
		byKey[m.Key()] = m
	}

	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	var schedule func(m *ir.Method)
	schedule = func(m *ir.Method) {
		s.mu.Lock()
		ready := s.waitCnt[m.Key()] == 0 && !s.started[m.Key()]
		if ready {
			s.started[m.Key()] = true
		}
		s.mu.Unlock()
		if !ready {
			return
		}
		wg.Add(1)
		run := func() {
			defer wg.Done()
			if s.sem != nil {
				if err := s.sem.Acquire(ctx, 1); err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					errMu.Unlock()
					return
				}
				defer s.sem.Release(1)
			}
			j := job{id: newJobID(), method: m}
			if err := work(j.method); err != nil {
				log.Printf("inline: job %s (%s) failed: %v", j.id, j.method.Key(), err)
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
			}
			s.finish(m, byKey, schedule)
		}
		if s.sem == nil {
			run()
		} else {
			go run()
		}
	}

	for _, m := range s.cg.BottomUpOrder() {
		schedule(m)
	}
	wg.Wait()
	return firstErr
}

// finish decrements the wait count of every caller blocked on m and
// re-schedules any caller that has become ready.
func (s *Scheduler) finish(m *ir.Method, byKey map[string]*ir.Method, schedule func(*ir.Method)) {
	close(s.done[m.Key()])
	s.mu.Lock()
	callers := s.blocked[m.Key()]
	var readyNow []*ir.Method
	for _, ck := range callers {
		s.waitCnt[ck]--
		if s.waitCnt[ck] == 0 {
			readyNow = append(readyNow, byKey[ck])
		}
	}
	s.mu.Unlock()
	for _, c := range readyNow {
		schedule(c)
	}
}

func newJobID() uuid.UUID {
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil
	}
	return id
}
