// Package tui provides the interactive brightness slider for softdim.
package tui

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/softdim/internal/brightness"
	"github.com/jmylchreest/softdim/internal/config"
	"github.com/jmylchreest/softdim/internal/settings"
)

const (
	step     = 0.05
	fineStep = 0.01
)

// EventSource reports changes that happen outside the settings file, such as
// the hardware backlight moving.
type EventSource interface {
	Subscribe(fn func()) (unsubscribe func())
}

// Model is the bubbletea model for the slider.
type Model struct {
	settings   settings.Store
	brightness *brightness.Store

	keys     KeyMap
	help     help.Model
	bar      progress.Model
	showHelp bool

	refreshCh   chan struct{}
	handlers    []settings.HandlerID
	unsubscribe []func()

	width     int
	statusMsg string
	statusErr bool
}

// New creates a TUI model. Changes to any setting, including ones made by
// other processes and picked up by a settings watcher, refresh the view, as
// do events from backlight when it is not nil.
func New(s settings.Store, b *brightness.Store, backlight EventSource) Model {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 40

	m := Model{
		settings:   s,
		brightness: b,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		bar:        bar,
		refreshCh:  make(chan struct{}, 1),
	}
	for _, k := range config.Keys() {
		m.handlers = append(m.handlers, s.Connect(k, m.notify))
	}
	if backlight != nil {
		m.unsubscribe = append(m.unsubscribe, backlight.Subscribe(m.notify))
	}
	return m
}

// Close disconnects the model's settings handlers and event subscriptions.
func (m Model) Close() {
	for _, id := range m.handlers {
		m.settings.Disconnect(id)
	}
	for _, unsubscribe := range m.unsubscribe {
		unsubscribe()
	}
}

func (m Model) notify() {
	select {
	case m.refreshCh <- struct{}{}:
	default:
	}
}

type refreshMsg struct{}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

// Init starts waiting for settings changes.
func (m Model) Init() tea.Cmd {
	return m.watchForChanges
}

func (m Model) watchForChanges() tea.Msg {
	<-m.refreshCh
	return refreshMsg{}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.bar.Width = max(10, min(60, msg.Width-12))
		return m, nil

	case refreshMsg:
		return m, m.watchForChanges

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	case key.Matches(msg, m.keys.FineUp):
		m.adjust(fineStep)
	case key.Matches(msg, m.keys.FineDown):
		m.adjust(-fineStep)
	case key.Matches(msg, m.keys.Up):
		m.adjust(step)
	case key.Matches(msg, m.keys.Down):
		m.adjust(-step)
	case key.Matches(msg, m.keys.Max):
		m.brightness.Set(1)
	case key.Matches(msg, m.keys.Min):
		m.brightness.Set(m.brightness.Minimum())
	case key.Matches(msg, m.keys.Backend):
		return m, m.toggleBackend()
	case key.Matches(msg, m.keys.Monitors):
		next := cycle(config.ValidMonitors(), config.Monitors(m.settings.String(config.KeyMonitors)))
		return m, m.setString(config.KeyMonitors, string(next))
	case key.Matches(msg, m.keys.Unredirect):
		next := cycle(config.ValidUnredirect(), config.Unredirect(m.settings.String(config.KeyPreventUnredirect)))
		return m, m.setString(config.KeyPreventUnredirect, string(next))
	case key.Matches(msg, m.keys.Enabled):
		return m, m.setBool(config.KeyEnabled, !m.settings.Bool(config.KeyEnabled))
	}
	return m, nil
}

// adjust moves brightness by delta, never below the floor.
func (m Model) adjust(delta float64) {
	m.brightness.Set(Step(m.brightness.Get(), delta, m.brightness.Minimum()))
}

func (m Model) toggleBackend() tea.Cmd {
	cmd := m.setBool(config.KeyUseBacklight, !m.settings.Bool(config.KeyUseBacklight))
	m.brightness.OnBackendToggle()
	return cmd
}

func (m Model) setString(k config.Key, v string) tea.Cmd {
	if err := m.settings.SetString(k, v); err != nil {
		return statusCmd(fmt.Sprintf("failed to set %s: %v", k, err), true)
	}
	return statusCmd(fmt.Sprintf("%s = %s", k, v), false)
}

func (m Model) setBool(k config.Key, v bool) tea.Cmd {
	if err := m.settings.SetBool(k, v); err != nil {
		return statusCmd(fmt.Sprintf("failed to set %s: %v", k, err), true)
	}
	return statusCmd(fmt.Sprintf("%s = %t", k, v), false)
}

func statusCmd(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// Step returns value moved by delta, rounded to whole percent and clamped
// to [floor, 1].
func Step(value, delta, floor float64) float64 {
	next := math.Round((value+delta)*100) / 100
	return min(1, max(floor, next))
}

// cycle returns the element after current, wrapping around. Unknown values
// start from the first element.
func cycle[T comparable](values []T, current T) T {
	i := slices.Index(values, current)
	return values[(i+1)%len(values)]
}

// View renders the TUI.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	var b strings.Builder

	state := "on"
	if !m.settings.Bool(config.KeyEnabled) {
		state = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("off")
	}
	b.WriteString(titleStyle.Render("softdim") + " " + state + "\n\n")

	current := m.brightness.Get()
	floor := m.brightness.Minimum()
	b.WriteString(" " + m.bar.ViewAs(current) + " " + valueStyle.Render(fmt.Sprintf("%3.0f%%", current*100)) + "\n")
	b.WriteString(" " + floorMarker(floor, m.bar.Width) + "\n\n")

	backend := "overlay"
	switch {
	case m.brightness.UsingHardware():
		backend = "backlight"
	case m.brightness.HardwarePending():
		backend = "backlight (not ready)"
	}
	rows := [][2]string{
		{"minimum", fmt.Sprintf("%.0f%%", floor*100)},
		{"backend", backend},
		{"monitors", m.settings.String(config.KeyMonitors)},
		{"built-in", orNone(m.settings.String(config.KeyBuiltinMonitor))},
		{"unredirect", m.settings.String(config.KeyPreventUnredirect)},
	}
	for _, row := range rows {
		b.WriteString(" " + labelStyle.Render(fmt.Sprintf("%-11s", row[0])) + valueStyle.Render(row[1]) + "\n")
	}
	b.WriteString("\n")

	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		b.WriteString(" " + statusStyle.Render(m.statusMsg) + "\n")
	}

	if m.showHelp {
		b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	} else {
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return b.String()
}

// floorMarker renders a caret under the slider at the floor position.
func floorMarker(floor float64, width int) string {
	if width <= 0 {
		return ""
	}
	pos := int(math.Round(floor * float64(width-1)))
	pos = min(width-1, max(0, pos))
	return lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(strings.Repeat(" ", pos) + "^ min")
}

func orNone(s string) string {
	if s == "" {
		return "(auto)"
	}
	return s
}
