package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the color scheme of the session screen.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
	// Alert colors the status while recording or after a failure.
	Alert lipgloss.Color
}

// DefaultTheme is green on the terminal background.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Alert:   lipgloss.Color("#ff5f87"),
}

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Border lipgloss.Style
	Help   lipgloss.Style
	Alert  lipgloss.Style
}

// NewStyles derives the styles of t.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Label:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Border: lipgloss.NewStyle().Foreground(t.Primary),
		Help:   lipgloss.NewStyle().Foreground(t.Dim),
		Alert:  lipgloss.NewStyle().Bold(true).Foreground(t.Alert),
	}
}

// Section is a labeled pane whose lines are fetched at render time. Only the
// newest lines that fit are shown.
type Section struct {
	Label   string
	Content func() []string
}

// Frame is one full screen: a bordered box with a title and status line,
// the sections stacked with equal heights, and a help line below the box.
type Frame struct {
	Styles   Styles
	Title    string
	Status   string
	Alert    bool
	Sections []Section
	Help     string
}

// Render draws the frame for a width x height terminal. Every line inside
// the box is exactly width cells wide.
func (f Frame) Render(width, height int) string {
	if width == 0 || height == 0 {
		return "Loading..."
	}
	b := frameBuilder{st: f.Styles, width: width}

	b.edge("╭", "╮")
	status := f.Styles.Help
	if f.Alert {
		status = f.Styles.Alert
	}
	b.row(f.Styles.Title.Render(f.Title) + " " + status.Render("["+f.Status+"]"))
	b.row("")

	// Chrome: two borders, title, spacer, help, plus one label per section.
	n := max(len(f.Sections), 1)
	rows := max((height-5-n)/n, 2)
	for _, sec := range f.Sections {
		b.label(sec.Label)
		lines := sec.Content()
		if len(lines) > rows {
			lines = lines[len(lines)-rows:]
		}
		for i := range rows {
			text := ""
			if i < len(lines) {
				text = lines[i]
			}
			b.row(" " + fit(text, width-4))
		}
	}

	b.edge("╰", "╯")
	b.lines = append(b.lines, f.Styles.Help.Render(f.Help))
	return strings.Join(b.lines, "\n")
}

type frameBuilder struct {
	st    Styles
	width int
	lines []string
}

func (b *frameBuilder) edge(left, right string) {
	b.lines = append(b.lines, b.st.Border.Render(left+strings.Repeat("─", b.width-2)+right))
}

// row pads content between the side borders.
func (b *frameBuilder) row(content string) {
	pad := max(0, b.width-2-lipgloss.Width(content))
	bar := b.st.Border.Render("│")
	b.lines = append(b.lines, bar+content+strings.Repeat(" ", pad)+bar)
}

// label draws a separator with the section name embedded: ├─Label───┤
func (b *frameBuilder) label(name string) {
	text := b.st.Label.Render(name)
	fill := max(0, b.width-3-lipgloss.Width(text))
	b.lines = append(b.lines, b.st.Border.Render("├─")+text+
		b.st.Border.Render(strings.Repeat("─", fill)+"┤"))
}

// fit truncates s to width cells with an ellipsis, counting wide runes.
func fit(s string, width int) string {
	if width <= 1 || lipgloss.Width(s) <= width {
		return s
	}
	used := 0
	for i, r := range s {
		w := lipgloss.Width(string(r))
		if used+w > width-1 {
			return s[:i] + "…"
		}
		used += w
	}
	return s
}
