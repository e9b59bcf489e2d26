// Package tui renders the live auto-sync indicator shown by 'sync watch'.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	jsync "jurnalguru/internal/sync"
)

// StatusSource is the part of the sync trigger the view reads.
type StatusSource interface {
	Status() (jsync.Status, error)
	LastSync() time.Time
	OnStatusChange(fn func(jsync.Status))
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	pillStyle  = lipgloss.NewStyle().Padding(0, 1).Bold(true)

	pillColors = map[jsync.Status]lipgloss.Color{
		jsync.StatusIdle:    lipgloss.Color("241"),
		jsync.StatusSyncing: lipgloss.Color("39"),
		jsync.StatusSuccess: lipgloss.Color("42"),
		jsync.StatusError:   lipgloss.Color("196"),
	}
	pillLabels = map[jsync.Status]string{
		jsync.StatusIdle:    "Idle",
		jsync.StatusSyncing: "Syncing",
		jsync.StatusSuccess: "Synced",
		jsync.StatusError:   "Sync failed",
	}
)

// Pill renders a one-line status badge.
func Pill(s jsync.Status) string {
	return pillStyle.
		Foreground(lipgloss.Color("230")).
		Background(pillColors[s]).
		Render(pillLabels[s])
}

type statusMsg jsync.Status

// tickMsg drives the scheduled-sync check.
type tickMsg time.Time

type scheduledMsg struct {
	ran bool
	err error
}

// Scheduler runs a scheduled sync when one is due.
type Scheduler func(ctx context.Context, now time.Time) (bool, error)

// statusModel is the bubbletea model for the watch view
type statusModel struct {
	source    StatusSource
	updates   chan jsync.Status
	spinner   spinner.Model
	status    jsync.Status
	err       error
	lastSync  time.Time
	schedule  Scheduler
	interval  time.Duration
	scheduled string
	header    string
	quitting  bool
	width     int
}

func newModel(src StatusSource, header string, schedule Scheduler, interval time.Duration) statusModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(pillColors[jsync.StatusSyncing])

	m := statusModel{
		source:   src,
		updates:  make(chan jsync.Status, 8),
		spinner:  sp,
		schedule: schedule,
		interval: interval,
		header:   header,
		width:    80,
	}
	m.status, m.err = src.Status()
	m.lastSync = src.LastSync()

	updates := m.updates
	src.OnStatusChange(func(s jsync.Status) {
		select {
		case updates <- s:
		default:
			// the view re-reads the current status on the next message
		}
	})
	return m
}

func waitForStatus(ch <-chan jsync.Status) tea.Cmd {
	return func() tea.Msg {
		return statusMsg(<-ch)
	}
}

func (m statusModel) tick() tea.Cmd {
	if m.schedule == nil || m.interval <= 0 {
		return nil
	}
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m statusModel) runSchedule(now time.Time) tea.Cmd {
	schedule := m.schedule
	return func() tea.Msg {
		ran, err := schedule(context.Background(), now)
		return scheduledMsg{ran: ran, err: err}
	}
}

func (m statusModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, waitForStatus(m.updates)}
	if m.schedule != nil {
		cmds = append(cmds, m.runSchedule(time.Now()))
	}
	return tea.Batch(cmds...)
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case statusMsg:
		// the listener may have dropped intermediate states
		m.status, m.err = m.source.Status()
		m.lastSync = m.source.LastSync()
		return m, waitForStatus(m.updates)

	case tickMsg:
		return m, m.runSchedule(time.Time(msg))

	case scheduledMsg:
		switch {
		case msg.err != nil:
			m.scheduled = "Scheduled sync failed: " + msg.err.Error()
		case msg.ran:
			m.scheduled = "Scheduled sync ran at " + time.Now().Format("15:04")
		}
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m statusModel) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render(m.header))
	s.WriteString("\n\n")

	if m.status == jsync.StatusSyncing {
		s.WriteString(m.spinner.View())
		s.WriteString(" ")
	}
	s.WriteString(Pill(m.status))
	s.WriteString("\n")

	if m.err != nil && m.status == jsync.StatusError {
		s.WriteString(lipgloss.NewStyle().Width(m.width).Render(m.err.Error()))
		s.WriteString("\n")
	}
	if m.lastSync.IsZero() {
		s.WriteString(dimStyle.Render("No sync yet in this session"))
	} else {
		s.WriteString(dimStyle.Render(fmt.Sprintf("Last sync: %s", m.lastSync.Format("2006-01-02 15:04:05"))))
	}
	s.WriteString("\n")
	if m.scheduled != "" {
		s.WriteString(dimStyle.Render(m.scheduled))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(dimStyle.Render("Press q to stop watching"))
	return s.String()
}

// WatchOptions configure Watch.
type WatchOptions struct {
	Header string
	// Schedule, when set, is called at start and then every Interval.
	Schedule Scheduler
	Interval time.Duration
}

// Watch shows the live status of src until the user quits or ctx ends.
func Watch(ctx context.Context, src StatusSource, opts WatchOptions) error {
	if opts.Header == "" {
		opts.Header = "jurnalguru auto sync"
	}
	model := newModel(src, opts.Header, opts.Schedule, opts.Interval)

	p := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running status view: %w", err)
	}
	return nil
}
