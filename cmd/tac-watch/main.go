// Package main implements tac-watch, a live terminal tailer over the
// forensic session event log a `tac make` run writes (internal/sessionlog).
// Adapted from the teacher's src/internal/replay pager: the same
// watch-the-file-with-fsnotify-and-reload-the-viewport pattern,
// generalized from replaying a finished supervision session to tailing
// one still being written.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/vinayprograms/tac/internal/sessionlog"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	liveStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
)

func main() {
	path := "./.tac/session.jsonl"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(os.Stderr, "tac-watch: session log %s not found (has `tac make` run yet?)\n", path)
		os.Exit(1)
	}

	prog := tea.NewProgram(&model{path: path}, tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tac-watch: %v\n", err)
		os.Exit(1)
	}
}

type logChangedMsg struct{}

type model struct {
	path     string
	viewport viewport.Model
	ready    bool
	watcher  *fsnotify.Watcher
	events   []sessionlog.Event
}

func (m *model) Init() tea.Cmd {
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err := watcher.Add(m.path); err == nil {
			m.watcher = watcher
			return m.watchFile()
		}
	}
	return nil
}

func (m *model) watchFile() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case event, ok := <-m.watcher.Events:
				if !ok {
					return nil
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					time.Sleep(50 * time.Millisecond)
					return logChangedMsg{}
				}
			case _, ok := <-m.watcher.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

func (m *model) reload() {
	events, err := sessionlog.ReadAll(m.path)
	if err != nil {
		return
	}
	m.events = events
	if m.ready {
		m.viewport.SetContent(render(m.events))
		m.viewport.GotoBottom()
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case logChangedMsg:
		m.reload()
		return m, m.watchFile()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "g":
			m.viewport.GotoTop()
		case "G":
			m.viewport.GotoBottom()
		}

	case tea.WindowSizeMsg:
		headerHeight := 1
		footerHeight := 1
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
			m.reload()
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
			m.viewport.SetContent(render(m.events))
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *model) View() string {
	if !m.ready {
		return "\n  Loading..."
	}

	title := titleStyle.Render("tac-watch")
	status := liveStyle.Render("● LIVE") + infoStyle.Render(fmt.Sprintf(" %d events", len(m.events)))
	line := strings.Repeat("─", max(0, m.viewport.Width-lipgloss.Width(title)-lipgloss.Width(status)-1))
	header := lipgloss.JoinHorizontal(lipgloss.Center, title, infoStyle.Render(line), status)

	help := helpStyle.Render(" q: quit │ g/G: top/bottom ")

	return header + "\n" + m.viewport.View() + "\n" + help
}

func render(events []sessionlog.Event) string {
	if len(events) == 0 {
		return "(no events yet)"
	}
	var b strings.Builder
	for _, ev := range events {
		fmt.Fprintf(&b, "%s │ %-16s │ %s\n", ev.Timestamp.Format("15:04:05"), ev.Phase, ev.Message)
	}
	return b.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
