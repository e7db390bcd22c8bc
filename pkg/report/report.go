// Package report renders a reconstructed call-tree forest as an indented,
// human-readable performance report. Rendering is a pure read of the forest.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/spool/pkg/calltree"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	rootStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	nameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	slowStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	timingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	branchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Thresholds supplies the configured slowness threshold for an event name.
// ok is false when the event never warns.
type Thresholds interface {
	Threshold(name string) (time.Duration, bool)
}

// Render writes the indented call-tree report for the forest. Each node
// shows its total duration, self time, owning thread, and an ok/slow marker
// derived from the event's configured threshold.
func Render(w io.Writer, forest calltree.Forest, thresholds Thresholds) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", headerStyle.Render("--- Performance Report (Call Tree) ---")); err != nil {
		return err
	}

	var werr error
	forest.Walk(func(node *calltree.Node, depth int) bool {
		werr = renderNode(w, node, depth, thresholds)
		return werr == nil
	})
	if werr != nil {
		return werr
	}

	_, err := fmt.Fprintf(w, "%s\n", headerStyle.Render("--------------------------------------"))
	return err
}

func renderNode(w io.Writer, node *calltree.Node, depth int, thresholds Thresholds) error {
	indent := strings.Repeat("  ", depth)

	branch := rootStyle.Render("ROOT:")
	if depth > 0 {
		branch = branchStyle.Render("└─")
	}

	_, err := fmt.Fprintf(w, "%s%s %s %s\n",
		indent,
		branch,
		marker(node, thresholds),
		nameStyle.Render("["+node.Name+"]"),
	)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%s   %s\n",
		indent,
		timingStyle.Render(fmt.Sprintf("Total: %dms | Self: %dms | Thread: %d",
			node.Duration().Milliseconds(),
			node.SelfTime().Milliseconds(),
			node.ThreadID,
		)),
	)
	return err
}

// marker returns the slow/ok tag for a node. A node warns only when its
// event has a configured threshold and its duration exceeds it.
func marker(node *calltree.Node, thresholds Thresholds) string {
	threshold, ok := thresholds.Threshold(node.Name)
	if ok && node.Duration() > threshold {
		return slowStyle.Render("SLOW")
	}
	return okStyle.Render("ok")
}
