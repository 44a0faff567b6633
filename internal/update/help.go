package update

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/sandeepkv93/cadence/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpView() string {
	global := toKeyBindings(m.globalBindings())
	local := toKeyBindings(m.viewBindings())
	m.helpModel.ShowAll = true
	return views.RenderHelpPanel(views.HelpPanelData{
		CurrentView: string(m.CurrentView),
		HelpView: m.helpModel.View(helpKeyMap{
			short: append(append([]key.Binding{}, global...), local...),
			full:  [][]key.Binding{global, local},
		}),
	})
}

func (m Model) globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Tasks, Action: "tasks"},
		{Key: m.Keys.Reminders, Action: "reminders"},
		{Key: m.Keys.Patterns, Action: "patterns"},
		{Key: "/", Action: "command palette"},
		{Key: "c", Action: "check now"},
		{Key: "r", Action: "reload"},
		{Key: m.Keys.Help, Action: "toggle help"},
		{Key: m.Keys.Quit, Action: "quit"},
	}
}

func (m Model) viewBindings() []KeyBinding {
	switch m.CurrentView {
	case ViewTasks:
		return []KeyBinding{
			{Key: "j/k", Action: "move"},
			{Key: "d", Action: "mark done"},
			{Key: "s", Action: "snooze " + quickSnooze},
		}
	case ViewReminders:
		return []KeyBinding{
			{Key: "j/k", Action: "move"},
			{Key: "s", Action: "snooze subject " + quickSnooze},
			{Key: "x", Action: "cancel"},
		}
	case ViewPatterns:
		return []KeyBinding{
			{Key: "j/k", Action: "move"},
			{Key: "p", Action: "pause/resume"},
		}
	default:
		return nil
	}
}

func toKeyBindings(in []KeyBinding) []key.Binding {
	out := make([]key.Binding, 0, len(in))
	for _, kb := range in {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
