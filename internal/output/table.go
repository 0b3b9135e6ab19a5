// Package output renders launch counters for terminals and summary files.
//
// Tables use a fixed-width layout; ANSI colors are added only when stdout is a
// TTY and NO_COLOR is unset.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/apptracker/internal/store"
)

const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorGreen = "\033[32m"
	colorGray  = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code when color is true.
func colorize(color bool, code, text string) string {
	if color {
		return code + text + colorReset
	}
	return text
}

// TableOptions controls rendering.
type TableOptions struct {
	Color bool
	Now   time.Time // reference for relative times; zero means time.Now()
}

// RenderAppTable renders launch records in the order given, with rank,
// launch count, share of all listed launches and last launch time.
func RenderAppTable(apps []*store.AppRecord, opts TableOptions) string {
	if len(apps) == 0 {
		return "No launches recorded.\n"
	}
	ref := opts.Now
	if ref.IsZero() {
		ref = time.Now()
	}

	var total int64
	for _, a := range apps {
		total += a.Count
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-4s %-36s %8s %6s  %s\n", "#", "Package", "Launches", "Share", "Last Launched"))
	sb.WriteString(strings.Repeat("─", 72))
	sb.WriteString("\n")

	for i, a := range apps {
		share := 0.0
		if total > 0 {
			share = float64(a.Count) * 100 / float64(total)
		}
		name := fmt.Sprintf("%-36s", truncate(a.PackageName, 36))
		if i == 0 {
			name = colorize(opts.Color, colorGreen, name)
		}
		sb.WriteString(fmt.Sprintf("%-4d %s %8s %5.1f%%  %s\n",
			i+1,
			name,
			humanize.Comma(a.Count),
			share,
			colorize(opts.Color, colorGray, humanize.RelTime(a.LastLaunched, ref, "ago", "from now"))))
	}

	return sb.String()
}

// RenderAppDetail renders a single launch record.
func RenderAppDetail(a *store.AppRecord, opts TableOptions) string {
	ref := opts.Now
	if ref.IsZero() {
		ref = time.Now()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Package: %s\n", colorize(opts.Color, colorBold, a.PackageName))
	fmt.Fprintf(&sb, "Process: %s\n", a.ProcessName)
	fmt.Fprintf(&sb, "Launches: %s\n", humanize.Comma(a.Count))
	fmt.Fprintf(&sb, "First Launched: %s (%s)\n", formatTime(a.FirstLaunched), humanize.RelTime(a.FirstLaunched, ref, "ago", "from now"))
	fmt.Fprintf(&sb, "Last Launched: %s (%s)\n", formatTime(a.LastLaunched), humanize.RelTime(a.LastLaunched, ref, "ago", "from now"))
	return sb.String()
}

// formatTime formats a time for display.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// truncate shortens s to maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
