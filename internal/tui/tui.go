// Package tui is the live task list: it renders whatever the cache holds
// for the current page and re-renders when that entry changes.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/NhaLeTruc/todo-sync/internal/api"
	"github.com/NhaLeTruc/todo-sync/internal/cache"
	"github.com/NhaLeTruc/todo-sync/internal/data"
	"github.com/NhaLeTruc/todo-sync/internal/model"
	"github.com/NhaLeTruc/todo-sync/internal/notify"
	"github.com/NhaLeTruc/todo-sync/internal/realtime"
)

const toastTTL = 4 * time.Second

// Conn is the push connection whose state the header shows.
type Conn interface {
	State() realtime.State
	OnStateChange(fn func(realtime.State)) (unsubscribe func())
}

type Options struct {
	Data   *data.Data
	Conn   Conn
	Toasts <-chan notify.Message
	Params api.ListParams
	Keys   KeyMap
}

type Model struct {
	ctx    context.Context
	data   *data.Data
	conn   Conn
	toasts <-chan notify.Message
	keys   KeyMap

	params api.ListParams
	page   model.Page[model.Task]
	loaded bool
	cursor int
	state  realtime.State

	adding bool
	input  textinput.Model

	toast      *notify.Message
	toastUntil time.Time
	err        error
	now        func() time.Time

	// changed is signalled when the cached page or connection state moves;
	// one pending signal covers any number of changes.
	changed chan struct{}
	stops   []func()
	// unwatch drops the subscription to the page on screen.
	unwatch func()

	width  int
	height int
}

func New(ctx context.Context, opts Options) *Model {
	if opts.Keys.Quit.Keys() == nil {
		opts.Keys = DefaultKeyMap()
	}
	in := textinput.New()
	in.Placeholder = "What needs doing?"
	in.CharLimit = 5000

	m := &Model{
		ctx:     ctx,
		data:    opts.Data,
		conn:    opts.Conn,
		toasts:  opts.Toasts,
		keys:    opts.Keys,
		params:  opts.Params.Normalize(),
		input:   in,
		now:     time.Now,
		changed: make(chan struct{}, 1),
	}
	m.watchPage()
	if m.conn != nil {
		m.state = m.conn.State()
		m.stops = append(m.stops, m.conn.OnStateChange(func(realtime.State) { m.signal() }))
	}
	return m
}

// Close detaches the model from the cache and connection.
func (m *Model) Close() {
	for _, stop := range m.stops {
		stop()
	}
	m.stops = nil
	if m.unwatch != nil {
		m.unwatch()
		m.unwatch = nil
	}
}

// watchPage moves the cache subscription to the current page, so pushed
// invalidations refetch only what is on screen.
func (m *Model) watchPage() {
	if m.unwatch != nil {
		m.unwatch()
	}
	m.unwatch = m.data.Store().Subscribe(data.TaskListKey(m.params), func(cache.Event) { m.signal() })
}

func (m *Model) signal() {
	select {
	case m.changed <- struct{}{}:
	default:
	}
}

// Run shows the list until the user quits or ctx is done.
func Run(ctx context.Context, opts Options) error {
	m := New(ctx, opts)
	defer m.Close()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

type (
	pageMsg struct {
		key  string
		page model.Page[model.Task]
		err  error
	}
	changedMsg struct{}
	toastMsg   notify.Message
	expireMsg  struct{}
	doneMsg    struct{}
)

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.waitChanged(), m.waitToast())
}

func (m *Model) load() tea.Cmd {
	p := m.params
	return func() tea.Msg {
		page, err := m.data.Tasks(m.ctx, p)
		return pageMsg{key: data.TaskListKey(p).String(), page: page, err: err}
	}
}

func (m *Model) waitChanged() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changed:
			return changedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) waitToast() tea.Cmd {
	if m.toasts == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case t, ok := <-m.toasts:
			if !ok {
				return nil
			}
			return toastMsg(t)
		case <-m.ctx.Done():
			return nil
		}
	}
}

// run performs a mutation off the update loop. Failures are reported by the
// data layer through the notifier, so the result carries nothing.
func (m *Model) run(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		_ = fn(m.ctx)
		return doneMsg{}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.adding {
			return m.updateInput(msg)
		}
		return m.handleKey(msg)

	case pageMsg:
		if msg.key != data.TaskListKey(m.params).String() {
			return m, nil
		}
		m.err = msg.err
		if msg.err == nil {
			m.setPage(msg.page)
		}
		return m, nil

	case changedMsg:
		if m.conn != nil {
			m.state = m.conn.State()
		}
		if page, ok := cache.Get[model.Page[model.Task]](m.data.Store(), data.TaskListKey(m.params)); ok {
			m.setPage(page)
		}
		return m, m.waitChanged()

	case toastMsg:
		t := notify.Message(msg)
		m.toast = &t
		m.toastUntil = m.now().Add(toastTTL)
		return m, tea.Batch(m.waitToast(), tea.Tick(toastTTL, func(time.Time) tea.Msg { return expireMsg{} }))

	case expireMsg:
		if m.toast != nil && !m.now().Before(m.toastUntil) {
			m.toast = nil
		}
		return m, nil

	case doneMsg:
		return m, nil
	}
	return m, nil
}

func (m *Model) setPage(p model.Page[model.Task]) {
	m.page = p
	m.loaded = true
	if m.cursor >= len(p.Content) {
		m.cursor = max(0, len(p.Content)-1)
	}
}

func (m *Model) selected() (model.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.page.Content) {
		return model.Task{}, false
	}
	return m.page.Content[m.cursor], true
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.page.Content)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Toggle):
		t, ok := m.selected()
		if !ok || t.ID < 0 {
			return m, nil
		}
		return m, m.run(func(ctx context.Context) error {
			_, err := m.data.ToggleComplete(ctx, t.ID, !t.IsCompleted)
			return err
		})

	case key.Matches(msg, m.keys.Delete):
		t, ok := m.selected()
		if !ok || t.ID < 0 {
			return m, nil
		}
		return m, m.run(func(ctx context.Context) error {
			return m.data.DeleteTask(ctx, t.ID)
		})

	case key.Matches(msg, m.keys.Add):
		m.adding = true
		m.input.Reset()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Refresh):
		m.data.Store().Invalidate(data.TaskListsKey())
		return m, m.load()

	case key.Matches(msg, m.keys.Next):
		if !m.page.Last {
			m.params.Page++
			m.cursor = 0
			m.watchPage()
			return m, m.load()
		}

	case key.Matches(msg, m.keys.Prev):
		if m.params.Page > 0 {
			m.params.Page--
			m.cursor = 0
			m.watchPage()
			return m, m.load()
		}
	}
	return m, nil
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.adding = false
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		desc := m.input.Value()
		m.adding = false
		m.input.Blur()
		if strings.TrimSpace(desc) == "" {
			return m, nil
		}
		return m, m.run(func(ctx context.Context) error {
			_, err := m.data.CreateTask(ctx, model.TaskCreateRequest{Description: desc})
			return err
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Tasks"))
	if m.conn != nil {
		b.WriteString("  " + stateBadge(m.state))
	}
	if m.loaded {
		fmt.Fprintf(&b, "  page %d/%d · %d total", m.page.Number+1, max(1, m.page.TotalPages), m.page.TotalElements)
	}
	b.WriteString("\n\n")

	switch {
	case m.err != nil && !m.loaded:
		b.WriteString(toastErrorStyle.Render(api.Message(m.err)) + "\n")
	case !m.loaded:
		b.WriteString(helpStyle.Render("Loading...") + "\n")
	case len(m.page.Content) == 0:
		b.WriteString(helpStyle.Render("Nothing to do. Press a to add a task.") + "\n")
	default:
		now := m.now()
		for i, t := range m.page.Content {
			line := renderRow(t, now)
			if i == m.cursor {
				line = selectedRowStyle.Render("> ") + line
			} else {
				line = "  " + line
			}
			b.WriteString(line + "\n")
		}
	}

	if m.adding {
		b.WriteString("\n" + inputStyle.Render("New task:") + " " + m.input.View() + "\n")
	}
	if m.toast != nil {
		b.WriteString("\n" + toastStyle(m.toast.Level).Render(m.toast.Text) + "\n")
	}

	help := make([]string, 0, len(m.keys.help()))
	for _, k := range m.keys.help() {
		h := k.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	b.WriteString("\n" + helpStyle.Render(strings.Join(help, " · ")))
	return b.String()
}

func renderRow(t model.Task, now time.Time) string {
	check := "[ ]"
	if t.IsCompleted {
		check = "[x]"
	}
	desc := t.Description
	if t.IsCompleted {
		desc = completedStyle.Render(desc)
	}
	parts := []string{check, priorityBadge(t.Priority), desc}
	if !t.IsCompleted && (t.IsOverdue || t.Overdue(now)) {
		parts = append(parts, overdueStyle.Render("! overdue"))
	} else if t.DueDate != nil && !t.IsCompleted {
		parts = append(parts, helpStyle.Render("due "+t.DueDate.Local().Format("Jan 2 15:04")))
	}
	if t.ID < 0 {
		parts = append(parts, pendingStyle.Render("saving..."))
	}
	return strings.Join(parts, " ")
}
