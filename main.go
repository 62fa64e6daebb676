// tradewatch TUI - A terminal interface for the trading assistant backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mvbarbosa/tradewatch-tui/internal/api"
	"github.com/mvbarbosa/tradewatch-tui/internal/auth"
	"github.com/mvbarbosa/tradewatch-tui/internal/cli"
	"github.com/mvbarbosa/tradewatch-tui/internal/config"
	"github.com/mvbarbosa/tradewatch-tui/internal/ui/dashboard"
	"github.com/mvbarbosa/tradewatch-tui/internal/ui/login"
	"github.com/mvbarbosa/tradewatch-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global program reference for async session events
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	args, err := cli.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.HelpText())
		cli.Fatal(err)
	}

	// USABILITY: Respect --no-color and piped output before anything
	// renders.
	styles.ConfigureColor(args.NoColor, cli.IsStdoutTTY())

	switch args.Command {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdLogin:
		if err := cli.HandleLogin(args); err != nil {
			cli.Fatal(err)
		}
	case cli.CmdRegister:
		if err := cli.HandleRegister(args); err != nil {
			cli.Fatal(err)
		}
	case cli.CmdLogout:
		if err := cli.HandleLogout(args); err != nil {
			cli.Fatal(err)
		}
	case cli.CmdStatus:
		if err := cli.HandleStatus(args); err != nil {
			cli.Fatal(err)
		}
	case cli.CmdConfig:
		if err := cli.HandleConfig(args); err != nil {
			cli.Fatal(err)
		}
	case cli.CmdVersion:
		_ = cli.HandleVersion(args)
	case cli.CmdHelp:
		_ = cli.HandleHelp(args)
	default:
		runTUI(args)
	}
}

// runTUI wires the session layer and starts the interactive interface.
func runTUI(args cli.Args) {
	cfg := config.Global()
	styles.ApplyTheme(cfg.UI.Theme)

	dir, err := config.ConfigDir()
	if err != nil {
		cli.Fatal(err)
	}
	store, err := auth.OpenStore(dir)
	if err != nil {
		cli.Fatal(fmt.Errorf("opening session store: %w", err))
	}
	defer store.Close()

	state := auth.NewState()
	gateway := auth.NewGateway(cfg.API.BaseURL)
	interval := time.Duration(cfg.Session.CheckIntervalSecs) * time.Second
	session := auth.NewScheduler(state, store, gateway, interval)

	// A forced logout can come out of any validity check. Route the UI
	// back to the login screen from wherever it is.
	session.SetLoggedOutCallback(func() {
		programMu.Lock()
		p := programRef
		programMu.Unlock()
		if p != nil {
			p.Send(sessionLostMsg{})
		}
	})

	// Every protected call shares one 401 path: a rejection from any
	// endpoint tears the session down the same way a failed check does.
	client := api.NewClient(cfg.API.BaseURL, state.Token)
	client.SetUnauthorizedCallback(session.HandleUnauthorized)

	advisories := auth.NewAdvisoryTracker(cfg.Session.ExpiryWarnDays)

	// CONFIG: Hot reload keeps long-lived sessions in sync with edits to
	// the config file.
	watcher, err := config.NewWatcher(func(fresh *config.Config) {
		styles.ApplyTheme(fresh.UI.Theme)
		session.SetInterval(time.Duration(fresh.Session.CheckIntervalSecs) * time.Second)
		advisories.SetThreshold(fresh.Session.ExpiryWarnDays)
	})
	if err == nil {
		if watchErr := watcher.Watch(); watchErr == nil {
			defer watcher.Close()
		}
	}

	session.Start()
	defer session.Stop()

	m := newAppModel(cfg, state, session, client, advisories)

	p := tea.NewProgram(m, tea.WithAltScreen())
	programMu.Lock()
	programRef = p
	programMu.Unlock()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running tradewatch: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// APPLICATION MODEL
// =============================================================================

// appState represents the current screen.
type appState int

const (
	stateInitializing appState = iota
	stateLogin
	stateDashboard
)

// sessionLostMsg is sent when a validity check forces a logout.
type sessionLostMsg struct{}

// initPollMsg drives the short wait for session restore at startup.
type initPollMsg struct{}

// appModel is the root Bubble Tea model.
type appModel struct {
	state appState

	authState  *auth.State
	session    *auth.Scheduler
	client     *api.Client
	advisories *auth.AdvisoryTracker
	cfg        *config.Config

	loginModel login.Model
	dashModel  dashboard.Model

	// lastInput feeds wake detection. Input landing after a long quiet
	// gap usually means the machine slept or the terminal was hidden.
	lastInput   time.Time
	wakeIdleGap time.Duration

	width  int
	height int
}

func newAppModel(cfg *config.Config, state *auth.State, session *auth.Scheduler, client *api.Client, advisories *auth.AdvisoryTracker) *appModel {
	refresh := time.Duration(cfg.UI.RefreshSecs) * time.Second

	return &appModel{
		state:       stateInitializing,
		authState:   state,
		session:     session,
		client:      client,
		advisories:  advisories,
		cfg:         cfg,
		loginModel:  login.New(session),
		dashModel:   dashboard.New(client, session, state, advisories, cfg.API.BaseURL, refresh),
		lastInput:   time.Now(),
		wakeIdleGap: time.Duration(cfg.Session.WakeIdleGapSecs) * time.Second,
	}
}

// Init implements tea.Model.
func (m *appModel) Init() tea.Cmd {
	return tea.Batch(m.loginModel.Init(), pollInit())
}

func pollInit() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg { return initPollMsg{} })
}

// Update implements tea.Model.
func (m *appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.loginModel.SetSize(msg.Width, msg.Height)
		m.dashModel.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		m.noteActivity()
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.state == stateDashboard && msg.String() == "ctrl+d" {
			m.session.Logout()
			m.switchToLogin()
			return m, nil
		}

	case tea.MouseMsg:
		m.noteActivity()

	case initPollMsg:
		if m.authState.Initializing() {
			return m, pollInit()
		}
		if m.authState.Authenticated() {
			return m.switchToDashboard()
		}
		m.switchToLogin()
		return m, nil

	case login.SuccessMsg:
		return m.switchToDashboard()

	case sessionLostMsg:
		if m.state != stateLogin {
			m.switchToLogin()
		}
		return m, nil
	}

	return m.routeToScreen(msg)
}

// routeToScreen forwards a message to the active screen model.
func (m *appModel) routeToScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.state {
	case stateLogin:
		var cmd tea.Cmd
		m.loginModel, cmd = m.loginModel.Update(msg)
		return m, cmd
	case stateDashboard:
		var cmd tea.Cmd
		m.dashModel, cmd = m.dashModel.Update(msg)
		return m, cmd
	}
	return m, nil
}

// noteActivity feeds the wake detector. Input after a long quiet gap
// triggers an immediate, rate-limited validity check.
func (m *appModel) noteActivity() {
	now := time.Now()
	if m.wakeIdleGap > 0 && now.Sub(m.lastInput) >= m.wakeIdleGap {
		m.session.TriggerWake()
	}
	m.lastInput = now
}

func (m *appModel) switchToLogin() {
	m.state = stateLogin
	m.loginModel.Reset()
	m.loginModel.SetSize(m.width, m.height)
}

// switchToDashboard rebuilds the dashboard so a new session never sees
// data loaded under the previous one.
func (m *appModel) switchToDashboard() (tea.Model, tea.Cmd) {
	m.state = stateDashboard
	m.advisories.Reset()
	m.dashModel = dashboard.New(m.client, m.session, m.authState, m.advisories,
		m.cfg.API.BaseURL, time.Duration(m.cfg.UI.RefreshSecs)*time.Second)
	m.dashModel.SetSize(m.width, m.height)
	return m, m.dashModel.Init()
}

// View implements tea.Model.
func (m *appModel) View() string {
	switch m.state {
	case stateLogin:
		return m.loginModel.View()
	case stateDashboard:
		return m.dashModel.View()
	default:
		return styles.Hint.Render("restaurando sessão...")
	}
}
