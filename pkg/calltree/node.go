// Package calltree rebuilds nested call-tree timelines from classified
// start/end signals observed in an instrumented application's log stream.
//
// The engine maintains one call stack per thread, so interleaved events from
// concurrent threads reconstruct into independent trees. Completed top-level
// events accumulate in a Forest, the sole output of a run.
package calltree

import (
	"time"
)

// Node is a single event occurrence in a reconstructed call tree.
type Node struct {
	// Name is the configured event name this node was classified as.
	Name string

	// Start is the instant the start marker was observed.
	Start time.Time

	// End is the instant the end marker was observed. Zero while the
	// event is still open.
	End time.Time

	// ThreadID is the identifier of the thread the event ran on,
	// fixed at creation.
	ThreadID int64

	// Children are nested events in arrival order. Each child is owned
	// by exactly one parent.
	Children []*Node

	// parent is a non-owning back-reference used only for stack
	// bookkeeping while the node is open. Traversal from the forest
	// goes through Children, never through parent.
	parent *Node
}

// NewNode creates an open node for the given event at the given instant.
func NewNode(name string, start time.Time, threadID int64) *Node {
	return &Node{
		Name:     name,
		Start:    start,
		ThreadID: threadID,
	}
}

// Closed reports whether the node's end marker has been observed
// (or synthesized by forced closure).
func (n *Node) Closed() bool {
	return !n.End.IsZero()
}

// close sets the node's end instant. A node is closed exactly once,
// either by a matching end signal or by forced closure at end-of-stream.
func (n *Node) close(end time.Time) {
	n.End = end
}

// Duration returns the wall time between the node's start and end markers.
// An open node has zero duration.
func (n *Node) Duration() time.Duration {
	if n.End.IsZero() {
		return 0
	}
	return n.End.Sub(n.Start)
}

// SelfTime returns the node's duration minus the combined duration of its
// direct children: the time spent in the event itself rather than in nested
// sub-events. Never negative, even when children were force-closed.
func (n *Node) SelfTime() time.Duration {
	d := n.Duration()
	for _, child := range n.Children {
		d -= child.Duration()
	}
	if d < 0 {
		return 0
	}
	return d
}

// Walk traverses the subtree rooted at n depth-first, pre-order, calling f
// for each node with its depth relative to n. If f returns false, traversal
// stops.
func (n *Node) Walk(f func(node *Node, depth int) bool) {
	n.walk(0, f)
}

func (n *Node) walk(depth int, f func(node *Node, depth int) bool) bool {
	if !f(n, depth) {
		return false
	}

	for _, child := range n.Children {
		if !child.walk(depth+1, f) {
			return false
		}
	}

	return true
}

// Forest is the ordered sequence of root nodes produced by one run:
// every node whose thread stack became empty when it closed.
type Forest []*Node

// Walk traverses every tree in the forest depth-first, pre-order.
// If f returns false, traversal stops.
func (f Forest) Walk(fn func(node *Node, depth int) bool) {
	for _, root := range f {
		if !root.walk(0, fn) {
			return
		}
	}
}

// Size returns the total number of nodes across all trees.
func (f Forest) Size() int {
	total := 0
	f.Walk(func(*Node, int) bool {
		total++
		return true
	})
	return total
}
