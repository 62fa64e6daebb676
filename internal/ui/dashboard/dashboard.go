// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dashboard implements the main screen: watchlist, portfolio and
// transaction tabs over the trading API, with the session status bar and
// the expiry banner.
package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mvbarbosa/tradewatch-tui/internal/api"
	"github.com/mvbarbosa/tradewatch-tui/internal/auth"
	"github.com/mvbarbosa/tradewatch-tui/internal/ui/components"
)

// requestTimeout bounds one API call issued from the dashboard.
const requestTimeout = 20 * time.Second

// Tab identifies one of the dashboard tabs.
type Tab int

const (
	TabWatchlist Tab = iota
	TabPortfolio
	TabTransactions
	tabCount
)

func (t Tab) String() string {
	switch t {
	case TabWatchlist:
		return "Ações"
	case TabPortfolio:
		return "Carteira"
	case TabTransactions:
		return "Transações"
	default:
		return "?"
	}
}

// overlay selects the modal drawn over the active tab.
type overlay int

const (
	overlayNone overlay = iota
	overlayAddStock
	overlayAddPosition
	overlaySell
	overlayAnalysis
)

// dataMsg carries a full refresh of all three tabs.
type dataMsg struct {
	stocks    []api.Stock
	positions []api.Position
	summary   *api.TransactionSummary
	err       error
}

// actionMsg reports a mutating API call. A successful action triggers a
// refresh so the tables reflect the backend.
type actionMsg struct {
	status string
	err    error
}

// analysisMsg carries a rendered analysis report.
type analysisMsg struct {
	content string
	err     error
}

// tickMsg drives the periodic data refresh and advisory re-evaluation.
type tickMsg time.Time

// Model is the dashboard state.
type Model struct {
	client     *api.Client
	session    *auth.Scheduler
	state      *auth.State
	advisories *auth.AdvisoryTracker

	tab     Tab
	tables  [tabCount]table.Model
	summary *api.TransactionSummary

	overlay  overlay
	form     []textinput.Model
	formIdx  int
	formCode string
	analysis string

	banner  components.ExpiryBanner
	status  components.StatusBar
	errText string
	info    string
	loading bool

	refreshEvery time.Duration
	width        int
	height       int
}

// New creates the dashboard over the trading client and session layer.
func New(client *api.Client, session *auth.Scheduler, state *auth.State, advisories *auth.AdvisoryTracker, apiHost string, refreshEvery time.Duration) Model {
	m := Model{
		client:       client,
		session:      session,
		state:        state,
		advisories:   advisories,
		banner:       components.NewExpiryBanner(),
		status:       components.NewStatusBar(apiHost),
		refreshEvery: refreshEvery,
		loading:      true,
	}
	m.tables[TabWatchlist] = newTable(watchlistColumns())
	m.tables[TabPortfolio] = newTable(portfolioColumns())
	m.tables[TabTransactions] = newTable(transactionColumns())
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadAll(), m.tick())
}

// SetSize updates the layout bounds.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.banner.SetWidth(width)
	m.status.SetWidth(width)
	// Title row, tab row, status bar and a hint line frame the table.
	body := height - 6
	if m.banner.Visible() {
		body--
	}
	if body < 3 {
		body = 3
	}
	for i := range m.tables {
		m.tables[i].SetWidth(width)
		m.tables[i].SetHeight(body)
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refreshEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// loadAll fetches all three tabs in one command.
func (m Model) loadAll() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		stocks, err := client.ListStocks(ctx)
		if err != nil {
			return dataMsg{err: err}
		}
		positions, err := client.ListPortfolio(ctx)
		if err != nil {
			return dataMsg{err: err}
		}
		summary, err := client.ListTransactions(ctx)
		if err != nil {
			return dataMsg{err: err}
		}
		return dataMsg{stocks: stocks, positions: positions, summary: summary}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.overlay != overlayNone {
			return m.updateOverlay(msg)
		}
		return m.updateKeys(msg)

	case dataMsg:
		m.loading = false
		if msg.err != nil {
			m.errText = "Falha ao atualizar: " + msg.err.Error()
			return m, nil
		}
		m.errText = ""
		m.summary = msg.summary
		m.tables[TabWatchlist].SetRows(watchlistRows(msg.stocks))
		m.tables[TabPortfolio].SetRows(portfolioRows(msg.positions))
		m.tables[TabTransactions].SetRows(transactionRows(msg.summary))
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.errText = ""
		m.info = msg.status
		return m, m.loadAll()

	case analysisMsg:
		if msg.err != nil {
			m.overlay = overlayNone
			m.errText = "Análise indisponível: " + msg.err.Error()
			return m, nil
		}
		m.analysis = msg.content
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.loadAll(), m.tick())
	}

	var cmd tea.Cmd
	m.tables[m.tab], cmd = m.tables[m.tab].Update(msg)
	return m, cmd
}

// updateKeys handles keys while no overlay is open.
func (m Model) updateKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "right":
		m.tab = (m.tab + 1) % tabCount
		return m, nil
	case "shift+tab", "left":
		m.tab = (m.tab + tabCount - 1) % tabCount
		return m, nil
	case "r":
		m.info = ""
		return m, m.loadAll()
	case "d":
		if m.banner.Visible() {
			m.advisories.Dismiss()
			m.refreshAdvisory()
		}
		return m, nil
	case "a":
		switch m.tab {
		case TabWatchlist:
			m.openAddStock()
		case TabPortfolio:
			m.openAddPosition()
		}
		return m, nil
	case "x":
		return m.removeSelected()
	case " ":
		if m.tab == TabWatchlist {
			return m.toggleSelected()
		}
		return m, nil
	case "s":
		if m.tab == TabPortfolio {
			m.openSell()
		}
		return m, nil
	case "enter":
		if m.tab == TabWatchlist {
			return m.analyzeSelected()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.tables[m.tab], cmd = m.tables[m.tab].Update(msg)
	return m, cmd
}

// selectedCode returns the stock code of the highlighted row.
func (m *Model) selectedCode() string {
	row := m.tables[m.tab].SelectedRow()
	if len(row) == 0 {
		return ""
	}
	return row[0]
}

func (m Model) removeSelected() (Model, tea.Cmd) {
	code := m.selectedCode()
	if code == "" {
		return m, nil
	}
	client := m.client
	switch m.tab {
	case TabWatchlist:
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			if err := client.RemoveStock(ctx, code); err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: code + " removida da lista"}
		}
	case TabPortfolio:
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			if err := client.RemovePosition(ctx, code); err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: code + " removida da carteira"}
		}
	}
	return m, nil
}

func (m Model) toggleSelected() (Model, tea.Cmd) {
	row := m.tables[TabWatchlist].SelectedRow()
	if len(row) < 2 {
		return m, nil
	}
	code := row[0]
	active := row[1] == activeLabel
	client := m.client
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		var err error
		if active {
			_, err = client.DeactivateStock(ctx, code)
		} else {
			_, err = client.ActivateStock(ctx, code)
		}
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: code + " atualizada"}
	}
}

func (m Model) analyzeSelected() (Model, tea.Cmd) {
	code := m.selectedCode()
	if code == "" {
		return m, nil
	}
	m.overlay = overlayAnalysis
	m.formCode = code
	m.analysis = ""
	client := m.client
	width := m.width
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		analysis, err := client.Analyze(ctx, code)
		if err != nil {
			return analysisMsg{err: err}
		}
		content, err := renderAnalysis(analysis, width)
		if err != nil {
			return analysisMsg{err: err}
		}
		return analysisMsg{content: content}
	}
}

// refreshAdvisory re-evaluates the expiry banner against the live token.
func (m *Model) refreshAdvisory() {
	advisory, visible := m.advisories.Current(m.state.Token(), time.Now())
	m.banner.SetAdvisory(advisory, visible)
}

// refreshStatus syncs the status bar with the session snapshot.
func (m *Model) refreshStatus() {
	snap := m.state.Snapshot()
	email := ""
	if snap.Profile != nil {
		email = snap.Profile.Email
	}
	expiresAt, hasExpiry := m.state.ExpiresAt()
	m.status.SetSession(email, expiresAt, hasExpiry)
	m.status.SetChecking(m.session.Phase() == auth.PhaseChecking)
}

// ==========================================================================
// Overlay forms
// ==========================================================================

func newFormInput(placeholder string, limit int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	return in
}

func (m *Model) openForm(kind overlay, inputs ...textinput.Model) {
	m.overlay = kind
	m.form = inputs
	m.formIdx = 0
	m.errText = ""
	m.info = ""
	if len(m.form) > 0 {
		m.form[0].Focus()
	}
}

func (m *Model) openAddStock() {
	m.openForm(overlayAddStock, newFormInput("Código (ex: PETR4)", 12))
}

func (m *Model) openAddPosition() {
	m.openForm(overlayAddPosition,
		newFormInput("Código (ex: PETR4)", 12),
		newFormInput("Quantidade", 10),
		newFormInput("Preço médio", 12),
		newFormInput("Stop loss", 12),
		newFormInput("Take profit", 12),
	)
}

func (m *Model) openSell() {
	code := m.selectedCode()
	if code == "" {
		return
	}
	m.formCode = code
	m.openForm(overlaySell,
		newFormInput("Quantidade vendida", 10),
		newFormInput("Preço de venda", 12),
	)
}

func (m Model) updateOverlay(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		if m.overlay == overlayAnalysis || msg.String() == "esc" {
			m.overlay = overlayNone
			m.form = nil
			return m, nil
		}
	case "tab", "down":
		if len(m.form) > 0 {
			m.form[m.formIdx].Blur()
			m.formIdx = (m.formIdx + 1) % len(m.form)
			m.form[m.formIdx].Focus()
		}
		return m, nil
	case "shift+tab", "up":
		if len(m.form) > 0 {
			m.form[m.formIdx].Blur()
			m.formIdx = (m.formIdx + len(m.form) - 1) % len(m.form)
			m.form[m.formIdx].Focus()
		}
		return m, nil
	case "enter":
		if m.overlay != overlayAnalysis {
			return m.submitOverlay()
		}
		return m, nil
	}

	if m.overlay == overlayAnalysis || len(m.form) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.form[m.formIdx], cmd = m.form[m.formIdx].Update(msg)
	return m, cmd
}

func (m Model) submitOverlay() (Model, tea.Cmd) {
	switch m.overlay {
	case overlayAddStock:
		code := strings.ToUpper(strings.TrimSpace(m.form[0].Value()))
		if code == "" {
			m.errText = "Informe o código da ação"
			return m, nil
		}
		m.overlay = overlayNone
		m.form = nil
		client := m.client
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			stock, err := client.AddStock(ctx, code)
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: stock.Code + " adicionada à lista"}
		}

	case overlayAddPosition:
		pos, err := m.parsePositionForm()
		if err != nil {
			m.errText = err.Error()
			return m, nil
		}
		m.overlay = overlayNone
		m.form = nil
		client := m.client
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			created, err := client.AddPosition(ctx, pos)
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: created.Code + " adicionada à carteira"}
		}

	case overlaySell:
		sale, err := m.parseSellForm()
		if err != nil {
			m.errText = err.Error()
			return m, nil
		}
		m.overlay = overlayNone
		m.form = nil
		client := m.client
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			result, err := client.Sell(ctx, sale)
			if err != nil {
				return actionMsg{err: err}
			}
			status := fmt.Sprintf("Venda de %s registrada", sale.Code)
			if result.PositionRemoved {
				status += " (posição encerrada)"
			}
			return actionMsg{status: status}
		}
	}
	return m, nil
}

func (m *Model) parsePositionForm() (api.NewPosition, error) {
	var pos api.NewPosition
	pos.Code = strings.ToUpper(strings.TrimSpace(m.form[0].Value()))
	if pos.Code == "" {
		return pos, fmt.Errorf("informe o código da ação")
	}
	qty, err := strconv.Atoi(strings.TrimSpace(m.form[1].Value()))
	if err != nil || qty <= 0 {
		return pos, fmt.Errorf("quantidade inválida")
	}
	pos.Quantity = qty
	if pos.AvgPrice, err = parsePrice(m.form[2].Value()); err != nil {
		return pos, fmt.Errorf("preço médio inválido")
	}
	if pos.StopLoss, err = parsePrice(m.form[3].Value()); err != nil {
		return pos, fmt.Errorf("stop loss inválido")
	}
	if pos.TakeProfit, err = parsePrice(m.form[4].Value()); err != nil {
		return pos, fmt.Errorf("take profit inválido")
	}
	return pos, nil
}

func (m *Model) parseSellForm() (api.SaleRequest, error) {
	sale := api.SaleRequest{Code: m.formCode}
	qty, err := strconv.Atoi(strings.TrimSpace(m.form[0].Value()))
	if err != nil || qty <= 0 {
		return sale, fmt.Errorf("quantidade inválida")
	}
	sale.QuantitySold = qty
	if sale.SalePrice, err = parsePrice(m.form[1].Value()); err != nil || sale.SalePrice <= 0 {
		return sale, fmt.Errorf("preço de venda inválido")
	}
	return sale, nil
}

// parsePrice accepts both "12.34" and the Brazilian "12,34".
func parsePrice(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, fmt.Errorf("vazio")
	}
	return strconv.ParseFloat(s, 64)
}
