package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/diaz/kanban/internal/board"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#45475a")).
			Padding(0, 1)

	priorityColors = map[board.Priority]lipgloss.Color{
		board.PriorityHigh:   lipgloss.Color("#f38ba8"),
		board.PriorityMedium: lipgloss.Color("#f9e2af"),
		board.PriorityLow:    lipgloss.Color("#a6e3a1"),
	}
)

// columnWidth is the inner width of one rendered column.
const columnWidth = 28

func priorityBadge(p board.Priority) string {
	return lipgloss.NewStyle().Foreground(priorityColors[p]).Render(strings.ToUpper(string(p)))
}

func renderTask(t board.Task) string {
	id := t.ID
	if len(id) > 8 {
		id = id[:8]
	}
	lines := []string{
		lipgloss.NewStyle().Bold(true).Width(columnWidth).Render(t.Title),
		fmt.Sprintf("%s %s %s", priorityBadge(t.Priority), mutedStyle.Render(id), progressBar(t.Progress)),
	}
	return strings.Join(lines, "\n")
}

func progressBar(progress int) string {
	const cells = 10
	filled := progress * cells / 100
	return strings.Repeat("█", filled) + mutedStyle.Render(strings.Repeat("░", cells-filled))
}

// renderBoard draws the three columns side by side.
func renderBoard(tasks []board.Task) string {
	byColumn := make(map[board.Column][]board.Task)
	for _, t := range tasks {
		byColumn[t.Column] = append(byColumn[t.Column], t)
	}

	var columns []string
	for _, c := range board.Columns {
		lines := []string{headerStyle.Render(fmt.Sprintf("%s (%d)", c.Label(), len(byColumn[c])))}
		if len(byColumn[c]) == 0 {
			lines = append(lines, mutedStyle.Render("No tasks"))
		}
		for _, t := range byColumn[c] {
			lines = append(lines, "", renderTask(t))
		}
		columns = append(columns, columnStyle.Width(columnWidth).Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

func renderStats(s board.Stats) string {
	return mutedStyle.Render(fmt.Sprintf("%d tasks · %d pending · %d in progress · %d done · %d%% overall",
		s.Total, s.Pending, s.InProgress, s.Completed, s.Progress))
}
