package update

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"

	"github.com/sandeepkv93/cadence/internal/eventbus"
	"github.com/sandeepkv93/cadence/internal/views"
)

const detailWidth = 44

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEventCmd(m.events), refreshTickCmd(m.refresh))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			if typed.String() == m.Keys.Help {
				m.HelpVisible = !m.HelpVisible
				return m, nil
			}
			return m.handlePaletteKey(typed), nil
		}

		switch typed.String() {
		case "/":
			m.Palette.Active = true
			m.Palette.Input = ""
			m.commandInput.Focus()
			m.commandInput.SetValue("")
			m.Status = StatusBar{Text: "command palette active"}
			return m, nil
		case m.Keys.Tasks:
			m.CurrentView = ViewTasks
			return m, nil
		case m.Keys.Reminders:
			m.CurrentView = ViewReminders
			return m, nil
		case m.Keys.Patterns:
			m.CurrentView = ViewPatterns
			return m, nil
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			return m, nil
		case "r":
			m.reload()
			m.Status = StatusBar{Text: "reloaded"}
			return m, nil
		case "c":
			return m.runCommand("check"), nil
		case "ctrl+c", m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		}
		if next, handled := m.handleViewKey(typed.String()); handled {
			return next, nil
		}
		t := m.currentTable()
		var cmd tea.Cmd
		*t, cmd = t.Update(typed)
		return m, cmd
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			m.CurrentView = typed.View
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
		}
		return m, nil
	case RefreshMsg:
		m.reload()
		return m, refreshTickCmd(m.refresh)
	case EventMsg:
		m.applyEvent(typed.Event)
		return m, waitForEventCmd(m.events)
	case eventsClosedMsg:
		m.events = nil
		return m, nil
	}
	return m, nil
}

// handleViewKey runs the single-key actions of the current view against the
// selected row.
func (m Model) handleViewKey(key string) (Model, bool) {
	switch {
	case m.CurrentView == ViewTasks && key == "d":
		if t, ok := m.selectedTask(); ok {
			return m.runCommand("done " + t.ID), true
		}
	case m.CurrentView == ViewTasks && key == "s":
		if t, ok := m.selectedTask(); ok {
			return m.runCommand(fmt.Sprintf("snooze %s %s", t.ID, quickSnooze)), true
		}
	case m.CurrentView == ViewReminders && key == "s":
		if r, ok := m.selectedReminder(); ok {
			return m.runCommand(fmt.Sprintf("snooze %s %s", r.SubjectID, quickSnooze)), true
		}
	case m.CurrentView == ViewReminders && key == "x":
		if r, ok := m.selectedReminder(); ok {
			return m.runCommand("cancel " + r.ID), true
		}
	case m.CurrentView == ViewPatterns && key == "p":
		if p, ok := m.selectedPattern(); ok {
			if p.Active {
				return m.runCommand("pause " + p.ID), true
			}
			return m.runCommand("resume " + p.ID), true
		}
	}
	return m, false
}

// applyEvent keeps the lists current and records reminders that could not be
// shown on the desktop.
func (m *Model) applyEvent(ev eventbus.Event) {
	if ev.Topic == eventbus.NotificationFallback {
		if n, ok := ev.Data.(eventbus.Notice); ok {
			m.Notices = append(m.Notices, Notice{Title: n.Title, Body: n.Body, Reason: n.Reason, At: ev.Time})
			if len(m.Notices) > maxNotices {
				m.Notices = m.Notices[len(m.Notices)-maxNotices:]
			}
			m.Status = StatusBar{Text: "reminder: " + n.Title}
		}
	}
	m.reload()
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		status = "status: " + m.Status.Text
	}

	var left string
	switch m.CurrentView {
	case ViewReminders:
		left = views.RenderTablePanel(views.TablePanelData{
			Title: string(ViewReminders), Filter: m.Filter.Tag, Actions: "[s]snooze 10min [x]cancel",
			TableView: m.reminderTable.View(), Empty: len(m.Reminders) == 0,
		})
	case ViewPatterns:
		left = views.RenderTablePanel(views.TablePanelData{
			Title: string(ViewPatterns), Filter: m.Filter.Tag, Actions: "[p]pause/resume",
			TableView: m.patternTable.View(), Empty: len(m.Patterns) == 0,
		})
	default:
		left = views.RenderTablePanel(views.TablePanelData{
			Title: string(ViewTasks), Filter: m.Filter.Tag, Actions: "[d]done [s]snooze 10min",
			TableView: m.taskTable.View(), Empty: len(m.Tasks) == 0,
		})
	}

	right := []string{views.RenderDetail(m.detail(), detailWidth), views.RenderCommandPalette(m.Palette.Active, m.commandInput.View())}
	if m.HelpVisible {
		right = append(right, m.renderHelpView())
	}

	notices := lo.Map(m.Notices, func(n Notice, _ int) views.NoticeData {
		return views.NoticeData{At: n.At.In(m.loc).Format("15:04"), Title: n.Title, Body: n.Body, Reason: n.Reason}
	})

	return views.RenderApp(views.AppData{
		Header:       fmt.Sprintf("cadence | view: %s | tasks %d | reminders %d | patterns %d", m.CurrentView, len(m.Tasks), len(m.Reminders), len(m.Patterns)),
		LeftPane:     left,
		RightPane:    strings.Join(right, "\n\n"),
		StatusLine:   status,
		StatusError:  m.Status.IsError,
		Notification: views.RenderNotices(notices),
		Footer: fmt.Sprintf("keys: %s tasks | %s reminders | %s patterns | / cmd | c check | r reload | %s help | %s quit",
			m.Keys.Tasks, m.Keys.Reminders, m.Keys.Patterns, m.Keys.Help, m.Keys.Quit),
	})
}

func waitForEventCmd(ch <-chan eventbus.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return EventMsg{Event: ev}
	}
}

func refreshTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return RefreshMsg{} })
}

func isKnownView(v View) bool {
	switch v {
	case ViewTasks, ViewReminders, ViewPatterns:
		return true
	default:
		return false
	}
}
