package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/valter-silva-au/taskgraph/internal/graph"
	"github.com/valter-silva-au/taskgraph/pkg/models"
	"golang.org/x/term"
)

const (
	defaultRenderWidth = 100
	minColumnWidth     = 12
)

var (
	levelHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))

	columnStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	flowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1)

	criticalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

	statusPending    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusCompleted  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))

	deadlockStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("196")).
			Padding(0, 1)

	deadlockDetailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// terminalWidth returns the width of stdout, or a fixed fallback when stdout
// is not a terminal.
func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return defaultRenderWidth
}

func styleForStatus(status models.TaskStatus) lipgloss.Style {
	switch status {
	case models.StatusInProgress:
		return statusInProgress
	case models.StatusCompleted:
		return statusCompleted
	default:
		return statusPending
	}
}

func statusGlyph(status models.TaskStatus) string {
	switch status {
	case models.StatusInProgress:
		return "◐"
	case models.StatusCompleted:
		return "●"
	default:
		return "○"
	}
}

// renderGraph draws the layout as one bordered column per level, wrapping
// columns onto further rows when they do not fit in width. Tasks on the
// critical path are marked with '*'.
func renderGraph(layout *graph.Layout, tasks map[string]models.Task, width int) string {
	if layout == nil || len(layout.Nodes) == 0 {
		return "No tasks."
	}
	if width <= 0 {
		width = defaultRenderWidth
	}

	var levels [][]graph.Node
	for _, n := range layout.Nodes {
		for len(levels) <= n.Level {
			levels = append(levels, nil)
		}
		levels[n.Level] = append(levels[n.Level], n)
	}
	for _, nodes := range levels {
		sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Y < nodes[j].Y })
	}

	colWidth := minColumnWidth
	for _, n := range layout.Nodes {
		if w := lipgloss.Width(n.TaskID) + 4; w > colWidth {
			colWidth = w
		}
	}

	columns := make([]string, len(levels))
	for l, nodes := range levels {
		var b strings.Builder
		b.WriteString(levelHeaderStyle.Render(fmt.Sprintf("L%d", l)))
		for _, n := range nodes {
			b.WriteString("\n")
			b.WriteString(renderNode(n.TaskID, tasks[n.TaskID].Status, layout.CriticalPath.Contains(n.TaskID)))
		}
		columns[l] = columnStyle.Width(colWidth).Render(b.String())
	}

	arrow := flowStyle.Render("→")
	perRow := (width + lipgloss.Width(arrow)) / (lipgloss.Width(columns[0]) + lipgloss.Width(arrow))
	if perRow < 1 {
		perRow = 1
	}

	var rows []string
	for start := 0; start < len(columns); start += perRow {
		end := start + perRow
		if end > len(columns) {
			end = len(columns)
		}
		parts := make([]string, 0, 2*(end-start))
		for i := start; i < end; i++ {
			if i > start {
				parts = append(parts, arrow)
			}
			parts = append(parts, columns[i])
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Center, parts...))
	}

	var b strings.Builder
	b.WriteString(lipgloss.JoinVertical(lipgloss.Left, rows...))
	b.WriteString("\n\n")
	b.WriteString(renderCriticalPath(layout.CriticalPath))
	return b.String()
}

func renderNode(id string, status models.TaskStatus, critical bool) string {
	label := statusGlyph(status) + " " + id
	if critical {
		return criticalStyle.Render("*" + label)
	}
	return " " + styleForStatus(status).Render(label)
}

func renderCriticalPath(cp graph.CriticalPath) string {
	if len(cp.TaskIDs) == 0 {
		return "Critical path: none (no blocking dependencies)"
	}
	return fmt.Sprintf("Critical path: %s (%d tasks)",
		criticalStyle.Render(strings.Join(cp.TaskIDs, " → ")), cp.Length)
}

// renderEdges lists every edge, critical ones first.
func renderEdges(layout *graph.Layout) string {
	if layout == nil || len(layout.Edges) == 0 {
		return "No dependencies."
	}
	edges := append([]graph.Edge(nil), layout.Edges...)
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].IsCritical && !edges[j].IsCritical })

	var b strings.Builder
	for i, e := range edges {
		if i > 0 {
			b.WriteString("\n")
		}
		line := fmt.Sprintf("%s → %s  %s", e.From, e.To, e.Type)
		if e.IsCritical {
			b.WriteString(criticalStyle.Render(line + "  critical"))
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}

func renderDeadlock(cycle *graph.CycleError) string {
	banner := deadlockStyle.Render("DEADLOCK")
	detail := "dependency cycle detected"
	if len(cycle.TaskIDs) > 0 {
		detail = fmt.Sprintf("tasks %s wait on each other; remove one of the dependencies between them",
			strings.Join(cycle.TaskIDs, ", "))
	}
	return banner + " " + deadlockDetailStyle.Render(detail)
}

func printDeadlockBanner(w io.Writer, cycle *graph.CycleError) {
	fmt.Fprintln(w, renderDeadlock(cycle))
}

func taskIndex(tasks []models.Task) map[string]models.Task {
	idx := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		idx[t.ID] = t
	}
	return idx
}
