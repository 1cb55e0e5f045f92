package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/layerpress/pkg/errors"
	"github.com/matzehuels/layerpress/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleKey     = lipgloss.NewStyle().Foreground(colorGray).Width(12)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// out is where status lines go. Tests swap it for a buffer.
var out io.Writer = os.Stdout

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, styleIconSuccess.Render(iconSuccess)+" "+msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, styleIconWarning.Render(iconWarning)+" "+styleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, styleIconInfo.Render(iconInfo)+" "+msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(out, "  "+styleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Fprintln(out, "  "+styleDim.Render(iconArrow)+" "+styleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	fmt.Fprintln(out, styleKey.Render(key)+" "+styleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(out, styleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// PrintError reports a failed command on stderr. Structured errors are
// shown without their code prefix.
func PrintError(err error) {
	fmt.Fprintln(os.Stderr, styleIconError.Render(iconError)+" "+errors.UserMessage(err))
}

// =============================================================================
// Summary Display
// =============================================================================

// printCounts prints non-zero labeled counts on a single dim line.
func printCounts(counts ...count) {
	line := " "
	first := true
	for _, c := range counts {
		if c.n == 0 {
			continue
		}
		if !first {
			line += styleDim.Render(" ·")
		}
		line += " " + styleNumber.Render(fmt.Sprint(c.n)) + " " + styleDim.Render(c.label)
		first = false
	}
	if !first {
		fmt.Fprintln(out, line)
	}
}

type count struct {
	n     int
	label string
}

// printSummary prints the outcome counts of a run followed by its problem
// reasons, most frequent first.
func printSummary(s pipeline.Summary) {
	printCounts(
		count{s.Copied, "copied"},
		count{s.Resized, "resized"},
		count{s.Fallback, "copied as-is after errors"},
		count{s.Skipped, "skipped"},
	)
	printCounts(
		count{s.Converted, "converted"},
		count{s.UpToDate, "already up to date"},
		count{s.Missing, "missing artifacts"},
		count{s.Failed, "failed"},
	)

	reasons := make([]string, 0, len(s.Reasons))
	for r := range s.Reasons {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool {
		if s.Reasons[reasons[i]] != s.Reasons[reasons[j]] {
			return s.Reasons[reasons[i]] > s.Reasons[reasons[j]]
		}
		return reasons[i] < reasons[j]
	})
	for _, r := range reasons {
		printWarning("%dx %s", s.Reasons[r], r)
	}
}
