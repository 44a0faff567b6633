package update

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/cadence/internal/commands"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.Palette.Active = false
		m.Palette.Input = ""
		m.commandInput.SetValue("")
		m.commandInput.Blur()
		m.Status = StatusBar{Text: "command palette closed"}
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		m = m.runCommand(m.Palette.Input)
		m.Palette.Active = false
		m.Palette.Input = ""
		m.commandInput.SetValue("")
		m.commandInput.Blur()
	default:
		if msg.Type == tea.KeyRunes {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			m.Palette.Input = m.commandInput.Value()
			return m
		}
		var cmd tea.Cmd
		m.commandInput, cmd = m.commandInput.Update(msg)
		_ = cmd
		m.Palette.Input = m.commandInput.Value()
	}
	return m
}

// runCommand parses and executes one palette command, then reloads the lists.
func (m Model) runCommand(raw string) Model {
	cmd, err := commands.Parse(strings.TrimSpace(raw))
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m
	}
	if m.backend == nil {
		m.Status = StatusBar{Text: "no backend attached", IsError: true}
		return m
	}

	res, err := commands.Execute(cmd, m.handlers())
	if err != nil {
		m.LastError = err
		m.Status = StatusBar{Text: err.Error(), IsError: true}
	} else {
		m.Status = StatusBar{Text: res.Message}
	}
	m.reload()
	return m
}

func (m *Model) handlers() commands.Handlers {
	return commands.Handlers{
		Snooze: func(a commands.SnoozeArgs) (commands.Result, error) {
			subject, err := commands.ResolveID(a.Subject, m.subjectIDs())
			if err != nil {
				return commands.Result{}, err
			}
			r, err := m.backend.Snooze(m.ctx, subject, a.Preset)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("snoozed %s until %s", shortID(subject), m.formatTime(r.TriggerAt))}, nil
		},
		Check: func(a commands.CheckArgs) (commands.Result, error) {
			if m.checker == nil {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeHandlerMissing, Message: "no scheduler attached"}
			}
			now := m.now()
			var parts []string
			if a.Scope == "all" || a.Scope == "reminders" {
				tick := m.checker.CheckReminders(m.ctx, now)
				parts = append(parts, fmt.Sprintf("%d reminder(s) fired, %d purged", tick.Fired, tick.Purged))
			}
			if a.Scope == "all" || a.Scope == "patterns" {
				n, err := m.checker.CheckPatterns(m.ctx, now)
				if err != nil {
					return commands.Result{}, err
				}
				parts = append(parts, fmt.Sprintf("%d task(s) generated", n))
			}
			return commands.Result{Message: "check: " + strings.Join(parts, ", ")}, nil
		},
		Pause: func(a commands.TargetArgs) (commands.Result, error) {
			id, err := commands.ResolveID(a.ID, m.patternIDs())
			if err != nil {
				return commands.Result{}, err
			}
			p, err := m.backend.PausePattern(m.ctx, id)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("paused pattern: %s", p.Text)}, nil
		},
		Resume: func(a commands.TargetArgs) (commands.Result, error) {
			id, err := commands.ResolveID(a.ID, m.patternIDs())
			if err != nil {
				return commands.Result{}, err
			}
			p, err := m.backend.ResumePattern(m.ctx, id)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("resumed pattern: %s (next %s)", p.Text, m.formatTimePtr(p.NextDue))}, nil
		},
		Done: func(a commands.TargetArgs) (commands.Result, error) {
			id, err := commands.ResolveID(a.ID, m.taskIDs())
			if err != nil {
				return commands.Result{}, err
			}
			task, next, err := m.backend.CompleteTask(m.ctx, id)
			if err != nil {
				return commands.Result{}, err
			}
			msg := fmt.Sprintf("completed: %s", task.Title)
			if next != nil {
				msg += fmt.Sprintf(" (next due %s)", m.formatTimePtr(next.DueAt))
			}
			return commands.Result{Message: msg}, nil
		},
		Cancel: func(a commands.TargetArgs) (commands.Result, error) {
			id, err := commands.ResolveID(a.ID, m.reminderIDs())
			if err != nil {
				return commands.Result{}, err
			}
			if err := m.backend.CancelReminder(m.ctx, id); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("cancelled reminder %s", shortID(id))}, nil
		},
		Show: func(a commands.ShowArgs) (commands.Result, error) {
			switch a.Subject {
			case "reminders":
				m.CurrentView = ViewReminders
			case "patterns":
				m.CurrentView = ViewPatterns
			default:
				m.CurrentView = ViewTasks
			}
			m.Filter.Tag = a.Tag
			if a.Tag != "" {
				return commands.Result{Message: fmt.Sprintf("show %s: tag=%s", a.Subject, a.Tag)}, nil
			}
			return commands.Result{Message: fmt.Sprintf("show %s", a.Subject)}, nil
		},
	}
}
