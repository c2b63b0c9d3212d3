// Package style holds the colors and icons shared by the log handler and the
// progress reporter.
package style

import "github.com/charmbracelet/lipgloss"

// Colors.
var (
	Accent = lipgloss.Color("#8B5CF6")
	Muted  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Icons, one per item outcome.
const (
	Computed = "✓"
	Failed   = "✗"
	Warning  = "!"
	Cached   = "~"
	Removed  = "-"
)
