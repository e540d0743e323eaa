package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Rounded border pieces.
const (
	borderTopLeft     = "╭"
	borderTopRight    = "╮"
	borderBottomLeft  = "╰"
	borderBottomRight = "╯"
	borderHorizontal  = "─"
	borderVertical    = "│"
)

// Frame describes a bordered panel with a title in the top edge and an
// optional note in the bottom edge: ╭─ Title ───╮ ... ╰─── note ─╯
type Frame struct {
	Title       string
	Note        string
	Width       int
	Height      int
	BorderColor lipgloss.TerminalColor
	TitleColor  lipgloss.TerminalColor
}

// Render draws content inside the frame. Content is clipped to the inner
// area; lines are padded so the right edge lines up.
func (f Frame) Render(content string) string {
	borderColor := f.BorderColor
	if borderColor == nil {
		borderColor = BorderDefaultColor
	}
	titleColor := f.TitleColor
	if titleColor == nil {
		titleColor = TextPrimaryColor
	}
	border := lipgloss.NewStyle().Foreground(borderColor)
	title := lipgloss.NewStyle().Foreground(titleColor).Bold(true)
	note := lipgloss.NewStyle().Foreground(TextMutedColor)

	inner := max(f.Width-2, 1)
	rows := max(f.Height-2, 1)

	lines := strings.Split(content, "\n")
	var b strings.Builder
	b.WriteString(edge(f.Title, inner, borderTopLeft, borderTopRight, false, border, title))
	for i := 0; i < rows; i++ {
		var line string
		if i < len(lines) {
			line = Truncate(lines[i], inner)
		}
		if w := lipgloss.Width(line); w < inner {
			line += strings.Repeat(" ", inner-w)
		}
		b.WriteString("\n")
		b.WriteString(border.Render(borderVertical) + line + border.Render(borderVertical))
	}
	b.WriteString("\n")
	b.WriteString(edge(f.Note, inner, borderBottomLeft, borderBottomRight, true, border, note))
	return b.String()
}

// edge builds a horizontal border with label embedded, left aligned for
// the top edge and right aligned for the bottom one.
func edge(label string, inner int, left, right string, alignRight bool, border, labelStyle lipgloss.Style) string {
	if label == "" || inner < 5 {
		return border.Render(left + strings.Repeat(borderHorizontal, inner) + right)
	}

	label = Truncate(label, inner-4)
	fill := max(inner-3-lipgloss.Width(label), 0)

	if alignRight {
		return border.Render(left+strings.Repeat(borderHorizontal, fill)+" ") +
			labelStyle.Render(label) +
			border.Render(" "+borderHorizontal+right)
	}
	return border.Render(left+borderHorizontal+" ") +
		labelStyle.Render(label) +
		border.Render(" "+strings.Repeat(borderHorizontal, fill)+right)
}
