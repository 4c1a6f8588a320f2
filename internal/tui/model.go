package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/grouprk/vdl/internal/core/media"
	"github.com/grouprk/vdl/internal/delivery"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	badgeStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("57"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type phase int

const (
	phaseInput phase = iota
	phaseLoading
	phasePicking
	phaseDownloading
	phaseDone
)

// actionMsg carries the action a background command produced
type actionMsg struct {
	action delivery.Action
}

// Options tune a TUI session
type Options struct {
	URL      string // submitted immediately when set
	FormatID string // overrides the default format when present in the list
	Yes      bool   // download without waiting for a pick
}

// formatItem adapts a FormatInfo to the list component
type formatItem struct {
	format media.FormatInfo
}

func (i formatItem) Title() string       { return i.format.Label() }
func (i formatItem) Description() string { return "format " + i.format.FormatID }
func (i formatItem) FilterValue() string { return i.format.Label() }

// Model is the bubbletea model. Session data lives in state and changes only via delivery.Reduce.
type Model struct {
	ctx     context.Context
	engine  *delivery.Engine
	opts    Options
	state   delivery.State
	phase   phase
	input   textinput.Model
	formats list.Model
	spinner spinner.Model
}

// NewModel creates a TUI session around engine
func NewModel(ctx context.Context, engine *delivery.Engine, opts Options) Model {
	input := textinput.New()
	input.Placeholder = "Paste video link here..."
	input.SetValue(opts.URL)
	input.Focus()

	formats := list.New(nil, list.NewDefaultDelegate(), 72, 14)
	formats.Title = "Select Quality / Resolution"
	formats.SetShowHelp(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:     ctx,
		engine:  engine,
		opts:    opts,
		state:   delivery.State{URL: opts.URL},
		input:   input,
		formats: formats,
		spinner: sp,
	}
}

// State returns the session state
func (m Model) State() delivery.State {
	return m.state
}

func (m Model) Init() tea.Cmd {
	if m.opts.URL != "" {
		return func() tea.Msg { return submitMsg{} }
	}
	return textinput.Blink
}

type submitMsg struct{}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.phase == phasePicking {
				m.phase = phaseInput
				m.input.Focus()
				return m, nil
			}
			return m, tea.Quit
		case "enter":
			switch m.phase {
			case phaseInput:
				return m.submit()
			case phasePicking:
				if item, ok := m.formats.SelectedItem().(formatItem); ok {
					m.state = delivery.Reduce(m.state, delivery.SelectFormat{FormatID: item.format.FormatID})
				}
				return m.download()
			case phaseDone:
				return m, tea.Quit
			}
		}

	case submitMsg:
		return m.submit()

	case actionMsg:
		m.state = delivery.Reduce(m.state, msg.action)
		return m.afterAction(msg.action)

	case spinner.TickMsg:
		if m.phase != phaseLoading && m.phase != phaseDownloading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.phase {
	case phaseInput:
		m.input, cmd = m.input.Update(msg)
		m.state = delivery.Reduce(m.state, delivery.SetURL{URL: m.input.Value()})
	case phasePicking:
		m.formats, cmd = m.formats.Update(msg)
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	m.state = delivery.Reduce(m.state, delivery.SetURL{URL: m.input.Value()})
	m.state = delivery.Reduce(m.state, delivery.Submitted{})
	if err := delivery.Validate(m.state.URL); err != nil {
		m.state = delivery.Reduce(m.state, delivery.SubmitRejected{Err: err})
		m.phase = phaseInput
		return m, nil
	}

	m.state = delivery.Reduce(m.state, delivery.InfoRequested{})
	m.phase = phaseLoading

	ctx, engine, url := m.ctx, m.engine, m.state.URL
	lookup := func() tea.Msg {
		return actionMsg{action: engine.Lookup(ctx, url)}
	}
	return m, tea.Batch(m.spinner.Tick, lookup)
}

func (m Model) download() (tea.Model, tea.Cmd) {
	if !m.state.CanDownload() {
		return m, nil
	}

	snap := m.state.Snapshot()
	m.state = delivery.Reduce(m.state, delivery.DownloadStarted{})
	m.phase = phaseDownloading

	ctx, engine := m.ctx, m.engine
	deliver := func() tea.Msg {
		return actionMsg{action: engine.Deliver(ctx, snap)}
	}
	return m, tea.Batch(m.spinner.Tick, deliver)
}

func (m Model) afterAction(a delivery.Action) (tea.Model, tea.Cmd) {
	switch a.(type) {
	case delivery.InfoFailed:
		m.phase = phaseInput
	case delivery.InfoLoaded:
		if m.opts.FormatID != "" {
			m.state = delivery.Reduce(m.state, delivery.SelectFormat{FormatID: m.opts.FormatID})
		}
		items := make([]list.Item, 0, len(m.state.Info.Formats))
		selected := 0
		for i, f := range m.state.Info.Formats {
			items = append(items, formatItem{format: f})
			if f.FormatID == m.state.SelectedFormat {
				selected = i
			}
		}
		m.formats.SetItems(items)
		m.formats.Select(selected)
		m.phase = phasePicking
		if m.opts.Yes {
			return m.download()
		}
	case delivery.DownloadFinished:
		if m.state.Error != "" {
			m.phase = phasePicking
			return m, nil
		}
		m.phase = phaseDone
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Universal Video Downloader") + "\n\n")

	switch m.phase {
	case phaseInput:
		b.WriteString(m.input.View() + "\n")
	case phaseLoading:
		fmt.Fprintf(&b, "%s Processing...\n", m.spinner.View())
	case phasePicking, phaseDownloading:
		b.WriteString(m.infoView())
		if m.phase == phaseDownloading {
			fmt.Fprintf(&b, "%s Preparing Download...\n", m.spinner.View())
		} else if len(m.state.Info.Formats) == 0 {
			b.WriteString("No formats available.\n")
		} else {
			b.WriteString(m.formats.View() + "\n")
		}
	case phaseDone:
		b.WriteString(m.infoView())
		b.WriteString(DeliveryReport(m.state.LastDelivery) + "\n")
	}

	if m.state.Error != "" {
		b.WriteString("\n" + errorStyle.Render(m.state.Error) + "\n")
	}
	b.WriteString("\n" + hintStyle.Render("enter: confirm • esc: back • ctrl+c: quit") + "\n")
	return b.String()
}

func (m Model) infoView() string {
	info := m.state.Info
	if info == nil {
		return ""
	}
	line := badgeStyle.Render(string(info.Platform)) + " " + info.Title
	if d := media.FormatDuration(info.Duration); d != "" {
		line += " " + hintStyle.Render("("+d+")")
	}
	return line + "\n\n"
}

// DeliveryReport describes how a download was delivered
func DeliveryReport(o *delivery.Outcome) string {
	if o == nil {
		return ""
	}
	switch o.Method {
	case delivery.MethodForced:
		return successStyle.Render(fmt.Sprintf("Saved %s (%s)", o.Path, media.FormatFileSize(o.Bytes)))
	default:
		if o.NavigationErr != nil {
			return hintStyle.Render("Could not open a browser. Open this link to download "+o.Filename+":") + "\n" + o.URL
		}
		return successStyle.Render("Opened "+o.Filename+" in your browser.") + "\n" +
			hintStyle.Render(`If the video plays instead of downloading, right-click it and choose "Save Video As".`)
	}
}

// Run starts an interactive session and returns the final state
func Run(ctx context.Context, engine *delivery.Engine, opts Options) (delivery.State, error) {
	final, err := tea.NewProgram(NewModel(ctx, engine, opts), tea.WithContext(ctx)).Run()
	if err != nil {
		return delivery.State{}, err
	}
	return final.(Model).State(), nil
}
