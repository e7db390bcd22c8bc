package calltree

import (
	"slices"
	"time"

	"github.com/papercomputeco/spool/pkg/classify"
)

// Engine consumes classified signals in log order and incrementally builds
// the forest of completed call trees.
//
// The engine is a strictly sequential state machine: one caller, one signal
// at a time. Per-thread stacks model concurrency inside the traced
// application, not concurrency here, so no locking is involved. Callers that
// parallelize log ingestion must re-serialize lines into a single total
// order before calling Observe.
type Engine struct {
	// stacks holds the currently-open call path per thread, created
	// lazily on a thread's first start signal and kept for the run's
	// lifetime.
	stacks map[int64][]*Node

	forest Forest

	// discardedEnds counts end signals dropped because no matching
	// frame was at the top of the thread's stack.
	discardedEnds int

	// forcedClosures counts nodes closed with a zero-duration fallback
	// by Finalize.
	forcedClosures int
}

// NewEngine creates an engine with no open stacks and an empty forest.
func NewEngine() *Engine {
	return &Engine{
		stacks: make(map[int64][]*Node),
	}
}

// Observe processes one classified signal for the given thread at the given
// instant.
//
// A start signal always opens a new node: nested under the thread's current
// top frame when one is open, re-entrant same-named events included.
//
// An end signal closes the thread's top frame only when the frame's name
// matches the signal's event. A mismatched end, or an end with no open
// frame, is silently discarded: matching by top-of-stack identity keeps
// Observe O(1) per line and never unwinds through frames that a spurious or
// out-of-order end marker does not own.
func (e *Engine) Observe(threadID int64, at time.Time, sig classify.Signal) {
	switch sig.Kind {
	case classify.Start:
		e.push(threadID, at, sig.Event)
	case classify.End:
		e.pop(threadID, at, sig.Event)
	}
}

func (e *Engine) push(threadID int64, at time.Time, event string) {
	node := NewNode(event, at, threadID)

	stack := e.stacks[threadID]
	if len(stack) > 0 {
		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, node)
		node.parent = parent
	}

	e.stacks[threadID] = append(stack, node)
}

func (e *Engine) pop(threadID int64, at time.Time, event string) {
	stack := e.stacks[threadID]
	if len(stack) == 0 {
		e.discardedEnds++
		return
	}

	top := stack[len(stack)-1]
	if top.Name != event {
		e.discardedEnds++
		return
	}

	top.close(at)
	stack = stack[:len(stack)-1]
	e.stacks[threadID] = stack

	if len(stack) == 0 {
		e.forest = append(e.forest, top)
	}
}

// Finalize force-closes every event still open at end-of-stream and moves
// the resulting roots into the forest. A node that never saw its end marker
// gets end == start, so downstream duration math stays non-negative.
//
// Threads are drained in sorted ID order to keep output stable; the order of
// roots across threads carries no meaning. Calling Finalize again after all
// stacks have drained is a no-op.
func (e *Engine) Finalize() {
	threadIDs := make([]int64, 0, len(e.stacks))
	for id := range e.stacks {
		threadIDs = append(threadIDs, id)
	}
	slices.Sort(threadIDs)

	for _, id := range threadIDs {
		stack := e.stacks[id]
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !top.Closed() {
				top.close(top.Start)
				e.forcedClosures++
			}

			if len(stack) == 0 {
				e.forest = append(e.forest, top)
			}
		}
		e.stacks[id] = nil
	}
}

// Forest returns the roots completed so far, in close order.
func (e *Engine) Forest() Forest {
	return e.forest
}

// OpenFrames returns the number of events still open across all threads.
func (e *Engine) OpenFrames() int {
	open := 0
	for _, stack := range e.stacks {
		open += len(stack)
	}
	return open
}

// DiscardedEnds returns how many end signals were dropped for want of a
// matching top frame.
func (e *Engine) DiscardedEnds() int {
	return e.discardedEnds
}

// ForcedClosures returns how many nodes Finalize closed with the
// zero-duration fallback.
func (e *Engine) ForcedClosures() int {
	return e.forcedClosures
}
