package stats

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

const (
	barGlyph    = "█"
	maxBarWidth = 30
	labelWidth  = 40
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	countStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// ConfigureColors picks the color profile for report output, honoring
// NO_COLOR and non-terminal stdout.
func ConfigureColors() {
	if os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).ColorProfile())
}

// Render formats a report as text with proportional bar charts.
func Render(r *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %d records, %d distinct commands\n\n",
		headingStyle.Render("History"), r.TotalRecords, r.DistinctCmds)

	renderSection(&b, "Top commands", r.TopCommands, true)
	renderSection(&b, "Top programs", r.TopPrograms, false)
	renderSection(&b, "Top directories", r.TopDirectories, false)

	return b.String()
}

func renderSection(b *strings.Builder, title string, rows []Row, showRank bool) {
	if len(rows) == 0 {
		return
	}

	b.WriteString(headingStyle.Render(title))
	b.WriteString("\n")

	max := rows[0].Count
	for _, row := range rows {
		if row.Count > max {
			max = row.Count
		}
	}

	for _, row := range rows {
		// Width-aware truncation; a byte slice could split a rune.
		label := runewidth.FillRight(runewidth.Truncate(row.Label, labelWidth, "…"), labelWidth)

		fmt.Fprintf(b, "  %s %s %s",
			label,
			barStyle.Render(bar(row.Count, max)),
			countStyle.Render(fmt.Sprintf("%d", row.Count)),
		)
		if showRank {
			fmt.Fprintf(b, " %s", countStyle.Render(fmt.Sprintf("(rank %.1f)", row.Rank)))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// bar scales count against max into a proportional bar, always at least
// one glyph for a non-zero count.
func bar(count, max int64) string {
	if max <= 0 || count <= 0 {
		return ""
	}
	n := int(count * maxBarWidth / max)
	if n < 1 {
		n = 1
	}
	return strings.Repeat(barGlyph, n)
}
