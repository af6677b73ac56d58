// Package output renders hierarchies, plans, and backup tables for the
// terminal.
package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// LOCKSTEP_COLORS defines the color palette for depth-based hierarchy
// rendering, cycled by nesting level.
var LOCKSTEP_COLORS = []string{
	"#4CCBF1", // light blue
	"#4DCA7D", // green
	"#F5C800", // yellow
	"#F89048", // orange
	"#EB82BC", // pink
	"#9F83E4", // purple
}

// ColorEnabled reports whether stdout is a terminal that should get color
func ColorEnabled() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func depthStyle(depth int) lipgloss.Style {
	color := LOCKSTEP_COLORS[depth%len(LOCKSTEP_COLORS)]
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	shaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F5C800"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F46251")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4DCA7D"))
)
