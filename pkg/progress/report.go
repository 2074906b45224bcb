package progress

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Report is a titled summary rendered in a bordered box
type Report struct {
	Title    string
	Subtitle string
	Sections []Section
	Duration time.Duration
}

// Section groups label/value rows and an optional table
type Section struct {
	Title string
	Rows  []Row
	Table *Table
}

// Row is one label/value line
type Row struct {
	Label string
	Value string
}

// Table is a small column-aligned grid
type Table struct {
	Headers []string
	Rows    [][]string
}

var printer = message.NewPrinter(language.English)

// Int formats n with thousands separators
func Int(n int) string {
	return printer.Sprint(number.Decimal(n))
}

// Amount formats a decimal string with thousands separators and two
// fraction digits. Unparseable input is returned unchanged.
func Amount(s string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return s
	}
	return printer.Sprint(number.Decimal(f, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// Percent formats f as a percentage with up to two fraction digits
func Percent(f float64) string {
	return printer.Sprint(number.Decimal(f, number.MaxFractionDigits(2))) + "%"
}

// Render writes the report to out. Colors are only emitted when out is a
// terminal that supports them.
func (r *Report) Render(out io.Writer) {
	renderer := lipgloss.NewRenderer(out)

	titleStyle := renderer.NewStyle().
		Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#F9FAFB"})

	subtleStyle := renderer.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"})

	sectionStyle := renderer.NewStyle().
		Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#6366F1", Dark: "#8B5CF6"})

	valueStyle := renderer.NewStyle().
		Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#059669", Dark: "#10B981"})

	boxStyle := renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#374151"}).
		Padding(1, 2)

	labelWidth := 0
	for _, s := range r.Sections {
		for _, row := range s.Rows {
			labelWidth = max(labelWidth, lipgloss.Width(row.Label)+1)
		}
	}
	labelStyle := subtleStyle.Width(labelWidth)

	var blocks []string
	header := titleStyle.Render(r.Title)
	if r.Subtitle != "" {
		header += "\n" + subtleStyle.Render(r.Subtitle)
	}
	blocks = append(blocks, header)

	for _, s := range r.Sections {
		var lines []string
		if s.Title != "" {
			lines = append(lines, sectionStyle.Render(s.Title))
		}
		for _, row := range s.Rows {
			lines = append(lines, labelStyle.Render(row.Label+":")+" "+valueStyle.Render(row.Value))
		}
		if s.Table != nil {
			lines = append(lines, renderTable(s.Table, subtleStyle))
		}
		if len(lines) > 0 {
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
	}

	if r.Duration > 0 {
		blocks = append(blocks, subtleStyle.Render(fmt.Sprintf("Fetched in %.2fs", r.Duration.Seconds())))
	}

	fmt.Fprintln(out, boxStyle.Render(strings.Join(blocks, "\n\n")))
}

func renderTable(t *Table, headerStyle lipgloss.Style) string {
	if len(t.Rows) == 0 {
		return headerStyle.Render("(no data)")
	}
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	format := func(cells []string) string {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if i == 0 {
				parts[i] = cell + pad
			} else {
				parts[i] = pad + cell
			}
		}
		return strings.Join(parts, "  ")
	}

	lines := make([]string, 0, len(t.Rows)+1)
	lines = append(lines, headerStyle.Render(format(t.Headers)))
	for _, row := range t.Rows {
		lines = append(lines, format(row))
	}
	return strings.Join(lines, "\n")
}
