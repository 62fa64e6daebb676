// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package login implements the authentication screen: a login form with a
// register mode, submitting against the session layer.
package login

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mvbarbosa/tradewatch-tui/internal/auth"
	"github.com/mvbarbosa/tradewatch-tui/internal/ui/styles"
)

// submitTimeout bounds one login or register attempt.
const submitTimeout = 20 * time.Second

// Mode selects between the two faces of the screen.
type Mode int

const (
	// ModeLogin asks for email and password.
	ModeLogin Mode = iota
	// ModeRegister additionally asks for a display name.
	ModeRegister
)

// field indices into Model.inputs, in focus order.
const (
	fieldName = iota
	fieldEmail
	fieldPassword
	fieldCount
)

// SuccessMsg is emitted when authentication completes.
type SuccessMsg struct {
	Profile *auth.Profile
}

// resultMsg carries the outcome of a submit attempt back into Update.
type resultMsg struct {
	profile *auth.Profile
	err     error
}

// Model is the login screen state.
type Model struct {
	session *auth.Scheduler

	mode       Mode
	inputs     [fieldCount]textinput.Model
	focus      int
	submitting bool
	errText    string

	width  int
	height int
}

// New creates the login screen over the given session layer.
func New(session *auth.Scheduler) Model {
	m := Model{session: session, mode: ModeLogin}

	name := textinput.New()
	name.Placeholder = "Nome"
	name.CharLimit = 100
	m.inputs[fieldName] = name

	email := textinput.New()
	email.Placeholder = "Email"
	email.CharLimit = 200
	m.inputs[fieldEmail] = email

	password := textinput.New()
	password.Placeholder = "Senha"
	password.CharLimit = 200
	// SECURITY: Mask the password as it is typed.
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	m.inputs[fieldPassword] = password

	m.focus = fieldEmail
	m.inputs[fieldEmail].Focus()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// SetSize updates the layout bounds.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Reset clears the form for a fresh login, keeping the mode.
func (m *Model) Reset() {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
		m.inputs[i].Blur()
	}
	m.errText = ""
	m.submitting = false
	m.focus = m.firstField()
	m.inputs[m.focus].Focus()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.submitting {
			// One attempt at a time; the form unlocks on resultMsg.
			return m, nil
		}
		switch msg.String() {
		case "tab", "down":
			m.cycleFocus(1)
			return m, nil
		case "shift+tab", "up":
			m.cycleFocus(-1)
			return m, nil
		case "enter":
			return m.submit()
		case "ctrl+r":
			m.toggleMode()
			return m, nil
		}

	case resultMsg:
		m.submitting = false
		if msg.err != nil {
			m.errText = friendlyError(msg.err)
			return m, nil
		}
		return m, func() tea.Msg { return SuccessMsg{Profile: msg.profile} }
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// submit validates the form and launches the network attempt.
func (m Model) submit() (Model, tea.Cmd) {
	name := strings.TrimSpace(m.inputs[fieldName].Value())
	email := strings.TrimSpace(m.inputs[fieldEmail].Value())
	password := m.inputs[fieldPassword].Value()

	if email == "" || password == "" {
		m.errText = "Informe email e senha"
		return m, nil
	}
	if m.mode == ModeRegister && name == "" {
		m.errText = "Informe seu nome"
		return m, nil
	}

	m.submitting = true
	m.errText = ""

	mode := m.mode
	session := m.session
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()

		var profile *auth.Profile
		var err error
		if mode == ModeRegister {
			profile, err = session.Register(ctx, name, email, password)
		} else {
			profile, err = session.Login(ctx, email, password)
		}
		return resultMsg{profile: profile, err: err}
	}
}

// toggleMode flips between login and register.
func (m *Model) toggleMode() {
	if m.mode == ModeLogin {
		m.mode = ModeRegister
	} else {
		m.mode = ModeLogin
	}
	m.errText = ""
	m.inputs[m.focus].Blur()
	m.focus = m.firstField()
	m.inputs[m.focus].Focus()
}

// firstField is the focus entry point for the current mode.
func (m *Model) firstField() int {
	if m.mode == ModeRegister {
		return fieldName
	}
	return fieldEmail
}

// cycleFocus moves focus through the visible fields.
func (m *Model) cycleFocus(delta int) {
	first := m.firstField()
	visible := fieldCount - first

	m.inputs[m.focus].Blur()
	m.focus = first + ((m.focus-first+delta)+visible)%visible
	m.inputs[m.focus].Focus()
}

// View implements tea.Model.
func (m Model) View() string {
	title := "tradewatch · entrar"
	action := "ctrl+r para criar conta"
	if m.mode == ModeRegister {
		title = "tradewatch · criar conta"
		action = "ctrl+r para voltar ao login"
	}

	var body strings.Builder
	body.WriteString(styles.Title.Render(title))
	body.WriteString("\n\n")

	if m.mode == ModeRegister {
		body.WriteString(m.inputs[fieldName].View())
		body.WriteString("\n")
	}
	body.WriteString(m.inputs[fieldEmail].View())
	body.WriteString("\n")
	body.WriteString(m.inputs[fieldPassword].View())
	body.WriteString("\n\n")

	if m.submitting {
		body.WriteString(styles.Hint.Render("autenticando..."))
	} else if m.errText != "" {
		body.WriteString(styles.ErrorLine.Render(m.errText))
	}
	body.WriteString("\n\n")
	body.WriteString(styles.Hint.Render("enter para enviar · " + action + " · ctrl+c para sair"))

	box := styles.FocusedBox.Render(body.String())
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}

// friendlyError turns session errors into form-level messages.
func friendlyError(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Email ou senha incorretos"
	case errors.Is(err, auth.ErrEmailInUse):
		return "Este email já está cadastrado"
	case errors.Is(err, auth.ErrNetwork):
		return "Não foi possível conectar ao servidor"
	case errors.Is(err, auth.ErrMalformedResponse):
		return "Resposta inesperada do servidor"
	default:
		return err.Error()
	}
}
