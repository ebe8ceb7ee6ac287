package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/barbamx/tello-drone-pilot/internal/audit"
	"github.com/barbamx/tello-drone-pilot/internal/frontend"
	"github.com/barbamx/tello-drone-pilot/internal/session"
)

// refreshInterval is how often the view re-reads session status.
const refreshInterval = 200 * time.Millisecond

type refreshMsg time.Time

type sessionDoneMsg struct{}

type actionResultMsg struct {
	action session.Action
	err    error
}

// Model is the bubbletea model for the pilot console.
type Model struct {
	ctx     context.Context
	intents session.Intents
	holds   *frontend.HoldDetector

	status   session.Status
	lastMsg  string
	lastErr  bool
	quitting bool
	width    int
}

// NewModel creates a console driving intents. Key auto-repeat within
// holdRelease keeps a movement hold alive.
func NewModel(ctx context.Context, intents session.Intents, holdRelease time.Duration) Model {
	ctx = audit.WithSource(ctx, "tui")
	return Model{
		ctx:     ctx,
		intents: intents,
		holds:   frontend.NewIntentHolds(ctx, intents, holdRelease),
		status:  intents.Status(),
	}
}

// Run runs the console until the session terminates or ctx ends.
func Run(ctx context.Context, intents session.Intents, holdRelease time.Duration) error {
	model := NewModel(ctx, intents, holdRelease)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	model.holds.Close()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return tea.Batch(refresh(), waitForSessionDone(model.intents.Done()))
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

// waitForSessionDone blocks until the session terminates.
func waitForSessionDone(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return sessionDoneMsg{}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		return model.handleKey(message)

	case actionResultMsg:
		model.status = model.intents.Status()
		if message.err != nil {
			model.lastMsg = fmt.Sprintf("%s failed: %v", message.action, message.err)
			model.lastErr = true
		} else {
			model.lastMsg = fmt.Sprintf("%s sent", message.action)
			model.lastErr = false
		}
		return model, nil

	case refreshMsg:
		model.status = model.intents.Status()
		return model, refresh()

	case sessionDoneMsg:
		model.holds.Close()
		model.status = model.intents.Status()
		return model, tea.Quit

	case tea.WindowSizeMsg:
		model.width = message.Width
		return model, nil
	}
	return model, nil
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	intent, ok := frontend.Lookup(message.String())
	if !ok || model.quitting {
		return model, nil
	}

	switch intent.Kind {
	case frontend.KindAction:
		ctx, intents, action := model.ctx, model.intents, intent.Action
		return model, func() tea.Msg {
			return actionResultMsg{action: action, err: intents.OnDiscreteAction(ctx, action)}
		}
	case frontend.KindHold:
		model.holds.Press(intent.Direction)
	case frontend.KindQuit:
		model.quitting = true
		model.lastMsg = "landing and saving log..."
		model.lastErr = false
		model.holds.Close()
		model.intents.OnQuit(model.ctx)
	}
	return model, nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func stateStyle(s session.State) lipgloss.Style {
	switch s {
	case session.Flying:
		return okStyle
	case session.ShuttingDown, session.Terminated:
		return warnStyle
	}
	return lipgloss.NewStyle()
}

// View implements tea.Model.
func (model Model) View() string {
	holds := "none"
	if len(model.status.ActiveHolds) > 0 {
		names := make([]string, len(model.status.ActiveHolds))
		for i, d := range model.status.ActiveHolds {
			names[i] = d.String()
		}
		holds = strings.Join(names, ", ")
	}

	lines := []string{
		titleStyle.Render("Tello pilot"),
		labelStyle.Render("State:     ") + stateStyle(model.status.State).Render(model.status.State.String()),
		labelStyle.Render("Holds:     ") + holds,
		labelStyle.Render("Telemetry: ") + model.status.Telemetry.String(),
	}
	if model.lastMsg != "" {
		style := labelStyle
		if model.lastErr {
			style = errStyle
		}
		lines = append(lines, style.Render(model.lastMsg))
	}

	body := boxStyle.Render(strings.Join(lines, "\n"))
	return body + "\n" + labelStyle.Render(frontend.Help) + "\n"
}
