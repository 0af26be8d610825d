package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskgraph/internal/core"
	"github.com/valter-silva-au/taskgraph/internal/graph"
	"github.com/valter-silva-au/taskgraph/internal/integration"
	"github.com/valter-silva-au/taskgraph/internal/storage"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// graphViewChrome is the number of lines taken by the title, status and help
// rows around the viewport.
const graphViewChrome = 5

var (
	viewTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	viewSectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	viewStatusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	viewHelpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// graphUpdatedMsg carries one recompute result into the model.
type graphUpdatedMsg struct {
	layout *graph.Layout
	tasks  []models.Task
	err    error
	at     time.Time
}

type graphViewModel struct {
	width  int
	height int
	ready  bool

	viewport  viewport.Model
	showEdges bool
	match     string
	refresh   func()

	// layout is the last good layout; it stays on screen while err reports
	// a deadlock so the user can see what to untangle.
	layout  *graph.Layout
	tasks   map[string]models.Task
	err     error
	updated time.Time
}

func newGraphViewModel(match string, refresh func()) graphViewModel {
	return graphViewModel{
		match:     match,
		refresh:   refresh,
		showEdges: true,
		tasks:     make(map[string]models.Task),
	}
}

func (m graphViewModel) Init() tea.Cmd {
	return nil
}

func (m graphViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "e":
			m.showEdges = !m.showEdges
			m.syncContent()
			return m, nil
		case "r":
			if m.refresh != nil {
				m.refresh()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h := msg.Height - graphViewChrome
		if h < 1 {
			h = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = h
		}
		m.syncContent()
		return m, nil

	case graphUpdatedMsg:
		m.updated = msg.at
		m.err = msg.err
		if msg.err == nil {
			m.layout = msg.layout
		}
		if msg.tasks != nil {
			m.tasks = taskIndex(msg.tasks)
		}
		m.syncContent()
		return m, nil
	}

	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *graphViewModel) syncContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.content())
}

// deadlocked reports whether the latest recompute hit a cycle. The last good
// layout is kept for when the cycle is broken but is not drawn meanwhile,
// since it lacks the dependency that closed the cycle.
func (m graphViewModel) deadlocked() bool {
	var cycle *graph.CycleError
	return errors.As(m.err, &cycle)
}

func (m graphViewModel) content() string {
	if m.deadlocked() {
		return viewStatusStyle.Render("Layout withheld until the cycle is broken.")
	}
	if m.layout == nil {
		if m.err != nil {
			return "No layout available."
		}
		return "Computing layout..."
	}
	var b strings.Builder
	b.WriteString(renderGraph(m.layout, m.tasks, m.width))
	if m.showEdges {
		b.WriteString("\n\n")
		b.WriteString(viewSectionStyle.Render("Dependencies"))
		b.WriteString("\n")
		b.WriteString(renderEdges(m.layout))
	}
	return b.String()
}

func (m graphViewModel) statusLine() string {
	var parts []string
	if m.match != "" {
		parts = append(parts, "match "+m.match)
	}
	switch {
	case m.deadlocked():
		parts = append(parts, "deadlocked")
	case m.layout != nil:
		parts = append(parts, fmt.Sprintf("%d tasks, %d dependencies", len(m.layout.Nodes), len(m.layout.Edges)))
	}
	if !m.updated.IsZero() {
		parts = append(parts, "updated "+m.updated.Format("15:04:05"))
	}
	return viewStatusStyle.Render(strings.Join(parts, " | "))
}

func (m graphViewModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := viewTitleStyle.Render(" tg graph ")
	help := viewHelpStyle.Render("↑/↓: scroll | e: toggle dependencies | r: recompute | q: quit")

	var alert string
	var cycle *graph.CycleError
	switch {
	case errors.As(m.err, &cycle):
		alert = renderDeadlock(cycle)
	case m.err != nil:
		alert = deadlockDetailStyle.Render("Error: " + m.err.Error())
	}

	return fmt.Sprintf("%s %s\n%s\n%s\n%s", title, m.statusLine(), alert, m.viewport.View(), help)
}

var graphViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Live terminal view of the graph",
	Long: `Open a live view of the dependency graph. The layout is recomputed
whenever tasks.yaml or dependencies.yaml change on disk, so edits made by
other tg commands or by hand show up immediately. A dependency cycle is shown
as a deadlock banner and the layout is withheld until the cycle is broken.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := graphServiceFor(graphMatch)
		if err != nil {
			return err
		}
		debounce := WatchDebounce
		if debounce <= 0 {
			debounce = integration.DefaultDebounce
		}
		watcher, err := integration.NewFileWatcher(StoreDir, debounce, Logger,
			storage.TasksFileName, storage.DependenciesFileName)
		if err != nil {
			return fmt.Errorf("watching store: %w", err)
		}
		defer func() { _ = watcher.Stop() }()

		var program *tea.Program
		sink := func(layout *graph.Layout, err error) {
			tasks, _ := listSnapshotTasks()
			program.Send(graphUpdatedMsg{layout: layout, tasks: tasks, err: err, at: time.Now()})
		}
		rec := core.NewRecomputer(svc, watcher, sink, Logger)
		program = tea.NewProgram(newGraphViewModel(graphMatch, rec.Trigger), tea.WithAltScreen())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		watcher.Start()
		go func() { _ = rec.Run(ctx) }()

		_, err = program.Run()
		return err
	},
}

func init() {
	graphCmd.AddCommand(graphViewCmd)
}
