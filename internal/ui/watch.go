package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"vellum/internal/events"
)

// historySize bounds the compile log shown under the header.
const historySize = 8

type watchModel struct {
	title   string
	events  <-chan events.Compiled
	spinner spinner.Model
	prog    progress.Model
	history []entry
	last    *events.Compiled
	pending map[uint64]string
	width   int
	done    bool
}

type entry struct {
	id      uint64
	status  string
	summary string
}

type eventMsg events.Compiled
type doneMsg struct{}

// SubmittedMsg tells the model a compile request was queued for path.
type SubmittedMsg struct {
	ID   uint64
	Path string
}

// NewWatchModel returns a Bubble Tea model that follows compile outcomes
// until the channel is closed or the user quits.
func NewWatchModel(title string, evs <-chan events.Compiled) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	return &watchModel{
		title:   title,
		events:  evs,
		spinner: sp,
		prog:    prog,
		pending: make(map[uint64]string),
		width:   80,
	}
}

func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(events.Compiled(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case SubmittedMsg:
		m.pending[msg.ID] = msg.Path
		return m, nil
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.done = true
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *watchModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	switch {
	case m.done:
		header = fmt.Sprintf("stopped: %s", header)
	case len(m.pending) > 0:
		header = fmt.Sprintf("%s %s (compiling)", m.spinner.View(), header)
	default:
		header = fmt.Sprintf("  %s (watching)", header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 8
	lineWidth := max(m.width-statusWidth-12, 20)
	for _, e := range m.history {
		statusStyled := styleStatus(e.status).Render(fmt.Sprintf("%8s", e.status))
		fmt.Fprintf(&b, "  #%-5d %s %s\n", e.id, statusStyled, truncate(e.summary, lineWidth))
	}

	if m.last != nil && !m.last.OK() {
		b.WriteString("\n")
		for _, d := range m.last.Diagnostics {
			line := fmt.Sprintf("%s[%s] %s (chars %d..%d)", d.Severity, d.Code, d.Message, d.Range[0], d.Range[1])
			b.WriteString("  ")
			b.WriteString(styleStatus(d.Severity).Render(truncate(line, m.width-4)))
			b.WriteString("\n")
			for _, h := range d.Hints {
				b.WriteString("    ")
				b.WriteString(truncate("hint: "+h, m.width-6))
				b.WriteString("\n")
			}
		}
	}

	if m.last != nil && m.last.OK() {
		b.WriteString("\n")
		b.WriteString(m.prog.View())
		b.WriteString("\n")
	}
	return b.String()
}

func (m *watchModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *watchModel) applyEvent(ev events.Compiled) tea.Cmd {
	path := m.pending[ev.RequestID]
	// a published request supersedes everything queued before it
	for id := range m.pending {
		if id <= ev.RequestID {
			delete(m.pending, id)
		}
	}
	m.last = &ev

	e := entry{id: ev.RequestID}
	if ev.OK() {
		doc := ev.Document
		e.status = "ok"
		e.summary = fmt.Sprintf("%d %s, changed %v", doc.Pages, plural(doc.Pages, "page"), doc.ChangedPages)
	} else {
		e.status = "error"
		e.summary = fmt.Sprintf("%d %s", len(ev.Diagnostics), plural(len(ev.Diagnostics), "diagnostic"))
	}
	if path != "" {
		e.summary = path + ": " + e.summary
	}
	m.history = append(m.history, e)
	if len(m.history) > historySize {
		m.history = m.history[len(m.history)-historySize:]
	}

	if !ev.OK() || ev.Document.Pages == 0 {
		return nil
	}
	// share of pages that came back pre-rendered
	pct := float64(len(ev.Document.PageSvgs)) / float64(ev.Document.Pages)
	return m.prog.SetPercent(pct)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "ok":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "warning":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
