package update

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/sandeepkv93/cadence/internal/eventbus"
	"github.com/sandeepkv93/cadence/internal/model"
	"github.com/sandeepkv93/cadence/internal/scheduler"
	"github.com/sandeepkv93/cadence/internal/storage"
)

type View string

const (
	ViewTasks     View = "Tasks"
	ViewReminders View = "Reminders"
	ViewPatterns  View = "Patterns"
)

const (
	defaultRefresh = 15 * time.Second
	maxNotices     = 20
	upcomingLimit  = 100
	quickSnooze    = "10min"
)

// Backend is the slice of service.Service the watch view drives.
type Backend interface {
	ListTasks(ctx context.Context, filter storage.TaskListFilter) ([]model.Task, error)
	CompleteTask(ctx context.Context, id string) (model.Task, *model.Task, error)
	ListPatterns() []model.Pattern
	PausePattern(ctx context.Context, id string) (model.Pattern, error)
	ResumePattern(ctx context.Context, id string) (model.Pattern, error)
	UpcomingReminders(limit int) []model.Reminder
	Snooze(ctx context.Context, subjectID, preset string) (model.Reminder, error)
	CancelReminder(ctx context.Context, id string) error
}

// Checker runs an immediate poll, normally the in-process scheduler.
type Checker interface {
	CheckReminders(ctx context.Context, now time.Time) scheduler.ReminderTick
	CheckPatterns(ctx context.Context, now time.Time) (int, error)
}

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Tasks     string
	Reminders string
	Patterns  string
	Help      string
	Quit      string
}

type FilterState struct {
	Tag string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

// Notice is a reminder surfaced in-app.
type Notice struct {
	Title  string
	Body   string
	Reason string
	At     time.Time
}

type Options struct {
	Context  context.Context
	Backend  Backend
	Checker  Checker
	Events   <-chan eventbus.Event
	Location *time.Location
	Now      func() time.Time
	Refresh  time.Duration
}

type Model struct {
	CurrentView View
	Filter      FilterState
	Palette     CommandPaletteState
	HelpVisible bool
	Status      StatusBar
	Keys        GlobalKeyMap
	Quitting    bool
	LastError   error

	Tasks     []model.Task
	Reminders []model.Reminder
	Patterns  []model.Pattern
	Notices   []Notice

	ctx     context.Context
	backend Backend
	checker Checker
	events  <-chan eventbus.Event
	loc     *time.Location
	now     func() time.Time
	refresh time.Duration

	taskTable     table.Model
	reminderTable table.Model
	patternTable  table.Model
	commandInput  textinput.Model
	helpModel     help.Model
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// RefreshMsg reloads every list from the backend.
type RefreshMsg struct{}

type EventMsg struct {
	Event eventbus.Event
}

type eventsClosedMsg struct{}

func NewModel(opts Options) Model {
	m := Model{
		CurrentView: ViewTasks,
		Keys: GlobalKeyMap{
			Tasks:     "1",
			Reminders: "2",
			Patterns:  "3",
			Help:      "?",
			Quit:      "q",
		},
		ctx:     opts.Context,
		backend: opts.Backend,
		checker: opts.Checker,
		events:  opts.Events,
		loc:     opts.Location,
		now:     opts.Now,
		refresh: opts.Refresh,
	}
	if m.ctx == nil {
		m.ctx = context.Background()
	}
	if m.loc == nil {
		m.loc = time.Local
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.refresh <= 0 {
		m.refresh = defaultRefresh
	}
	m.initBubbleComponents()
	m.reload()
	return m
}

func (m *Model) initBubbleComponents() {
	m.taskTable = table.New(table.WithColumns([]table.Column{
		{Title: "ID", Width: 10},
		{Title: "Due", Width: 16},
		{Title: "Pri", Width: 8},
		{Title: "Title", Width: 30},
	}), table.WithFocused(true), table.WithHeight(14))

	m.reminderTable = table.New(table.WithColumns([]table.Column{
		{Title: "ID", Width: 10},
		{Title: "At", Width: 16},
		{Title: "Kind", Width: 8},
		{Title: "Text", Width: 30},
	}), table.WithFocused(true), table.WithHeight(14))

	m.patternTable = table.New(table.WithColumns([]table.Column{
		{Title: "ID", Width: 10},
		{Title: "Rule", Width: 12},
		{Title: "Next", Width: 16},
		{Title: "Text", Width: 26},
	}), table.WithFocused(true), table.WithHeight(14))

	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 40

	m.helpModel = help.New()
}
