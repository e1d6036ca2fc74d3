// Package tui is the interactive terminal menu: run a briefing, edit
// settings, toggle sources and read past briefings.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/mohammad-safakhou/briefer/config"
	"github.com/mohammad-safakhou/briefer/internal/agent"
	"github.com/mohammad-safakhou/briefer/internal/briefing"
	"github.com/mohammad-safakhou/briefer/internal/sources"
	"github.com/mohammad-safakhou/briefer/internal/vault"
)

const (
	headerText = "My News Agent - Terminal Interface"
	logLines   = 20
)

// Runner executes one briefing run.
type Runner interface {
	Run(ctx context.Context, extra ...agent.Listener) (briefing.Result, error)
}

type Deps struct {
	Config   *config.Config
	Registry *sources.Registry
	Vault    *vault.Writer
	Runner   Runner
}

type screen int

const (
	screenMain screen = iota
	screenSettings
	screenSources
	screenReports
	screenViewer
	screenPrompt
	screenRunning
	screenDone
)

type sourcesMsg struct {
	doc sources.Document
	err error
}

type reportsMsg struct {
	reports []vault.Report
	err     error
}

type reportMsg struct {
	name    string
	content string
	err     error
}

type settingsSavedMsg struct{ err error }

type progressMsg string

type runDoneMsg struct {
	res briefing.Result
	err error
}

type Model struct {
	ctx    context.Context
	deps   Deps
	styles Styles

	screen screen
	menu   menu
	status string

	input   textinput.Model
	editKey string

	viewport viewport.Model
	spinner  spinner.Model
	width    int
	height   int

	log        []string
	events     chan string
	lastReport string
}

func New(ctx context.Context, deps Deps) Model {
	ti := textinput.New()
	ti.CharLimit = 200
	m := Model{
		ctx:      ctx,
		deps:     deps,
		styles:   DefaultStyles(),
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		width:    80,
		height:   24,
	}
	m.showMain()
	return m
}

// Run starts the program on the alternate screen and blocks until exit.
func Run(ctx context.Context, deps Deps) error {
	p := tea.NewProgram(New(ctx, deps), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 1)
		return m, nil

	case sourcesMsg:
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		}
		m.showSources(msg.doc)
		return m, nil

	case reportsMsg:
		m.showReports(msg.reports, msg.err)
		return m, nil

	case reportMsg:
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, m.loadReports()
		}
		m.showViewer(msg.content)
		return m, nil

	case settingsSavedMsg:
		m.input.Blur()
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = "Settings saved"
		}
		m.showSettings()
		return m, nil

	case progressMsg:
		m.appendLog(string(msg))
		return m, waitForLine(m.events)

	case runDoneMsg:
		m.finishRun(msg.res, msg.err)
		return m, nil

	case spinner.TickMsg:
		if m.screen != screenRunning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.screen {
	case screenRunning:
		return m, nil

	case screenPrompt:
		switch msg.String() {
		case "enter":
			return m, m.saveSetting(m.editKey, strings.TrimSpace(m.input.Value()))
		case "esc":
			m.input.Blur()
			m.showSettings()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case screenViewer:
		switch msg.String() {
		case "q", "esc":
			return m, m.loadReports()
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if msg.String() == "esc" && m.screen != screenMain {
		m.showMain()
		return m, nil
	}
	var enter bool
	m.menu, enter = m.menu.update(msg)
	if !enter {
		return m, nil
	}
	item, ok := m.menu.selected()
	if !ok {
		return m, nil
	}
	m.status = ""
	return m.selectItem(item.key)
}

func (m Model) selectItem(key string) (tea.Model, tea.Cmd) {
	switch {
	case key == "run":
		return m.startRun()
	case key == "settings":
		m.showSettings()
		return m, nil
	case key == "sources":
		return m, m.loadSources()
	case key == "reports":
		return m, m.loadReports()
	case key == "exit":
		return m, tea.Quit
	case key == "main":
		m.showMain()
		return m, nil
	case key == "provider":
		return m, m.saveSetting("modelProvider", config.NextProvider(m.deps.Config.ModelProvider))
	case strings.HasPrefix(key, "edit:"):
		return m.showPrompt(strings.TrimPrefix(key, "edit:"))
	case strings.HasPrefix(key, "toggle:"):
		return m, m.toggleSource(strings.TrimPrefix(key, "toggle:"))
	case strings.HasPrefix(key, "open:"):
		return m, m.openReport(strings.TrimPrefix(key, "open:"))
	case key == "view":
		return m, m.openReport(m.lastReport)
	}
	return m, nil
}

func (m *Model) showMain() {
	m.screen = screenMain
	m.menu = newMenu("Main Menu",
		menuItem{label: "Run Daily Briefing", key: "run"},
		menuItem{label: "Settings", key: "settings"},
		menuItem{label: "Manage Sources", key: "sources"},
		menuItem{label: "Read Briefings", key: "reports"},
		menuItem{label: "Exit", key: "exit"},
	)
}

func (m *Model) showSettings() {
	cfg := m.deps.Config
	label := func(title, key, value string) string {
		if config.ShadowedByEnv(key) {
			return fmt.Sprintf("%s: %s (set by environment)", title, value)
		}
		return fmt.Sprintf("%s: %s", title, value)
	}
	cursor := 0
	if m.screen == screenSettings || m.screen == screenPrompt {
		cursor = m.menu.cursor
	}
	m.screen = screenSettings
	m.menu = newMenu("Settings (Enter to cycle Provider)",
		menuItem{label: label("Model Provider", "modelProvider", cfg.ModelProvider), key: "provider"},
		menuItem{label: label("OpenAI Model", "openaiModel", cfg.OpenAIModel), key: "edit:openaiModel"},
		menuItem{label: label("Anthropic Model", "anthropicModel", cfg.AnthropicModel), key: "edit:anthropicModel"},
		menuItem{label: label("Google Model", "googleModel", cfg.GoogleModel), key: "edit:googleModel"},
		menuItem{label: "Back", key: "main"},
	)
	m.menu.cursor = min(cursor, len(m.menu.items)-1)
}

var promptTitles = map[string]string{
	"openaiModel":    "Edit OpenAI Model Name",
	"anthropicModel": "Edit Anthropic Model Name",
	"googleModel":    "Edit Google Model Name",
}

func (m Model) showPrompt(key string) (tea.Model, tea.Cmd) {
	s := m.deps.Config.Settings()
	var value string
	switch key {
	case "openaiModel":
		value = s.OpenAIModel
	case "anthropicModel":
		value = s.AnthropicModel
	case "googleModel":
		value = s.GoogleModel
	}
	m.editKey = key
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.screen = screenPrompt
	cmd := m.input.Focus()
	return m, cmd
}

// saveSetting writes one setting into the settings document and applies it
// to the live config so the next run picks it up.
func (m Model) saveSetting(key, value string) tea.Cmd {
	cfg := m.deps.Config
	s := cfg.Settings()
	switch key {
	case "modelProvider":
		s.ModelProvider = value
	case "openaiModel":
		s.OpenAIModel = value
	case "anthropicModel":
		s.AnthropicModel = value
	case "googleModel":
		s.GoogleModel = value
	}
	return func() tea.Msg {
		if err := config.SaveSettings(cfg.Path, s); err != nil {
			return settingsSavedMsg{err: err}
		}
		cfg.Apply(s)
		return settingsSavedMsg{}
	}
}

func (m *Model) showSources(doc sources.Document) {
	cursor := 0
	if m.screen == screenSources {
		cursor = m.menu.cursor
	}
	items := make([]menuItem, 0, len(doc.Sources)+1)
	for _, s := range doc.Sources {
		items = append(items, menuItem{
			label:   fmt.Sprintf("%s (%s)", s.Name, s.URL),
			key:     "toggle:" + s.URL,
			checked: boolPtr(s.Active),
		})
	}
	items = append(items, menuItem{label: "Back", key: "main"})
	m.screen = screenSources
	m.menu = newMenu("Manage Sources (Enter to Toggle)", items...)
	m.menu.cursor = min(cursor, len(items)-1)
}

func (m Model) loadSources() tea.Cmd {
	reg, ctx := m.deps.Registry, m.ctx
	return func() tea.Msg {
		doc, err := reg.Document(ctx)
		return sourcesMsg{doc: doc, err: err}
	}
}

func (m Model) toggleSource(url string) tea.Cmd {
	reg, ctx := m.deps.Registry, m.ctx
	return func() tea.Msg {
		if _, err := reg.Toggle(ctx, sources.Match{URL: url}); err != nil {
			doc, _ := reg.Document(ctx)
			return sourcesMsg{doc: doc, err: err}
		}
		doc, err := reg.Document(ctx)
		return sourcesMsg{doc: doc, err: err}
	}
}

func (m *Model) showReports(reports []vault.Report, err error) {
	m.screen = screenReports
	back := menuItem{label: "Back", key: "main"}
	switch {
	case err != nil:
		m.menu = newMenu("Error: "+err.Error(), back)
	case len(reports) == 0:
		m.menu = newMenu("No briefings found.", back)
	default:
		items := make([]menuItem, 0, len(reports)+1)
		for _, r := range reports {
			items = append(items, menuItem{label: r.Name, key: "open:" + r.Name})
		}
		m.menu = newMenu("Select a Briefing to Read", append(items, back)...)
	}
}

func (m Model) loadReports() tea.Cmd {
	v, ctx := m.deps.Vault, m.ctx
	return func() tea.Msg {
		reports, err := v.List(ctx)
		return reportsMsg{reports: reports, err: err}
	}
}

func (m Model) openReport(name string) tea.Cmd {
	v, ctx := m.deps.Vault, m.ctx
	return func() tea.Msg {
		content, err := v.Read(ctx, name)
		return reportMsg{name: name, content: content, err: err}
	}
}

func (m *Model) showViewer(content string) {
	m.screen = screenViewer
	m.viewport.SetContent(renderMarkdown(content, m.width))
	m.viewport.GotoTop()
}

// renderMarkdown falls back to the raw text when glamour cannot render.
func renderMarkdown(content string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return out
}

func (m Model) startRun() (tea.Model, tea.Cmd) {
	m.screen = screenRunning
	m.log = nil
	m.lastReport = ""
	events := make(chan string, 256)
	m.events = events
	runner, ctx := m.deps.Runner, m.ctx
	run := func() tea.Msg {
		res, err := runner.Run(ctx, func(ev agent.Event) {
			if line := progressLine(ev); line != "" {
				select {
				case events <- line:
				default:
				}
			}
		})
		close(events)
		return runDoneMsg{res: res, err: err}
	}
	return m, tea.Batch(run, waitForLine(events), m.spinner.Tick)
}

// waitForLine delivers the next progress line; a closed channel ends the stream.
func waitForLine(events <-chan string) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		line, ok := <-events
		if !ok {
			return nil
		}
		return progressMsg(line)
	}
}

// progressLine renders the events the run screen shows.
func progressLine(ev agent.Event) string {
	switch ev.Type {
	case agent.EventToolExecutionStart:
		if ev.ToolCall != nil {
			return fmt.Sprintf("Calling %s...", ev.ToolCall.Name)
		}
	case agent.EventToolExecutionEnd:
		if ev.Result != nil {
			if ev.Result.IsError {
				return fmt.Sprintf("Tool %s failed: %s", ev.Result.Name, ev.Result.Content)
			}
			return fmt.Sprintf("Tool %s finished.", ev.Result.Name)
		}
	case agent.EventMessageEnd:
		if ev.Message != nil && ev.Message.Failed() {
			return "Model error: " + ev.Message.ErrorMessage
		}
	}
	return ""
}

func (m *Model) appendLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > logLines {
		m.log = m.log[len(m.log)-logLines:]
	}
}

func (m *Model) finishRun(res briefing.Result, err error) {
	m.screen = screenDone
	if err != nil {
		m.appendLog("Error: " + err.Error())
		m.menu = newMenu("Error Occurred", menuItem{label: "Back", key: "main"})
		return
	}
	m.appendLog("Completed!")
	m.lastReport = res.Filename
	m.menu = newMenu("Briefing Complete",
		menuItem{label: "View Briefing", key: "view"},
		menuItem{label: "Main Menu", key: "main"},
	)
}

func (m Model) View() string {
	s := m.styles
	var sb strings.Builder
	sb.WriteString(s.Header.Render(headerText))
	sb.WriteString("\n")

	var help string
	switch m.screen {
	case screenRunning:
		sb.WriteString(s.Title.Render(m.spinner.View() + " Running Daily Briefing..."))
		sb.WriteString("\n")
		for _, l := range m.log {
			sb.WriteString(l + "\n")
		}
		help = "Please wait..."
	case screenDone:
		for _, l := range m.log {
			sb.WriteString(l + "\n")
		}
		sb.WriteString(m.menu.view(s))
		help = "Up/Down to move, Enter to select"
	case screenPrompt:
		sb.WriteString(s.Title.Render(promptTitles[m.editKey]))
		sb.WriteString("\n")
		sb.WriteString(m.input.View())
		sb.WriteString("\n")
		help = "Enter to save, Esc to cancel"
	case screenViewer:
		sb.WriteString(m.viewport.View())
		sb.WriteString("\n")
		help = "Press (q) or (Esc) to go back. Up/Down to scroll."
	default:
		sb.WriteString(m.menu.view(s))
		help = "Up/Down to move, Enter to select, Esc to go back"
	}

	if m.status != "" {
		style := s.Success
		if strings.HasPrefix(m.status, "Error") {
			style = s.Error
		}
		sb.WriteString("\n" + style.Render(m.status) + "\n")
	}
	sb.WriteString("\n" + s.Muted.Render(help))
	return sb.String()
}
