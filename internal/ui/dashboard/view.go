// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/mvbarbosa/tradewatch-tui/internal/api"
	"github.com/mvbarbosa/tradewatch-tui/internal/ui/styles"
	"github.com/mvbarbosa/tradewatch-tui/internal/util"
)

const (
	activeLabel   = "ativa"
	inactiveLabel = "pausada"
)

// newTable builds a tab table with the shared selection styling.
func newTable(cols []table.Column) table.Model {
	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		Bold(true).
		Foreground(styles.TextSecondary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Overlay).
		BorderBottom(true)
	s.Selected = s.Selected.
		Foreground(styles.TextPrimary).
		Background(styles.SelectionBg).
		Bold(false)
	t.SetStyles(s)
	return t
}

func watchlistColumns() []table.Column {
	return []table.Column{
		{Title: "Código", Width: 12},
		{Title: "Status", Width: 10},
	}
}

func portfolioColumns() []table.Column {
	return []table.Column{
		{Title: "Código", Width: 12},
		{Title: "Qtd", Width: 8},
		{Title: "Preço médio", Width: 14},
		{Title: "Stop loss", Width: 12},
		{Title: "Take profit", Width: 12},
	}
}

func transactionColumns() []table.Column {
	return []table.Column{
		{Title: "Código", Width: 12},
		{Title: "Data", Width: 12},
		{Title: "Qtd", Width: 8},
		{Title: "Venda", Width: 12},
		{Title: "Resultado", Width: 14},
		{Title: "%", Width: 10},
	}
}

func watchlistRows(stocks []api.Stock) []table.Row {
	rows := make([]table.Row, 0, len(stocks))
	for _, s := range stocks {
		status := inactiveLabel
		if s.Active {
			status = activeLabel
		}
		rows = append(rows, table.Row{s.Code, status})
	}
	return rows
}

func portfolioRows(positions []api.Position) []table.Row {
	rows := make([]table.Row, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, table.Row{
			p.Code,
			util.FormatQuantity(p.Quantity),
			util.FormatMoney(p.AvgPrice),
			util.FormatMoney(p.StopLoss),
			util.FormatMoney(p.TakeProfit),
		})
	}
	return rows
}

func transactionRows(summary *api.TransactionSummary) []table.Row {
	if summary == nil {
		return nil
	}
	rows := make([]table.Row, 0, len(summary.Transactions))
	for _, tx := range summary.Transactions {
		rows = append(rows, table.Row{
			tx.Code,
			tx.Date,
			util.FormatQuantity(tx.QuantitySold),
			util.FormatMoney(tx.SalePrice),
			util.FormatMoney(tx.ProfitLoss),
			util.FormatPercent(tx.ResultPercent),
		})
	}
	return rows
}

// View implements tea.Model.
func (m Model) View() string {
	m.refreshStatus()
	m.refreshAdvisory()

	var b strings.Builder

	b.WriteString(styles.Title.Render("tradewatch"))
	b.WriteString("\n")
	if m.banner.Visible() {
		b.WriteString(m.banner.View())
		b.WriteString("\n")
	}
	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	switch m.overlay {
	case overlayNone:
		b.WriteString(m.tables[m.tab].View())
		b.WriteString("\n")
		if m.tab == TabTransactions && m.summary != nil {
			b.WriteString(m.renderSummary())
			b.WriteString("\n")
		}
	case overlayAnalysis:
		b.WriteString(m.renderAnalysisOverlay())
		b.WriteString("\n")
	default:
		b.WriteString(m.renderForm())
		b.WriteString("\n")
	}

	b.WriteString(m.renderFeedback())
	b.WriteString("\n")
	b.WriteString(styles.Hint.Render(m.hintLine()))
	b.WriteString("\n")
	b.WriteString(m.status.View())
	return b.String()
}

func (m Model) renderTabs() string {
	parts := make([]string, 0, tabCount)
	for i := Tab(0); i < tabCount; i++ {
		if i == m.tab {
			parts = append(parts, styles.TabActive.Render(i.String()))
		} else {
			parts = append(parts, styles.TabInactive.Render(i.String()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, parts...)
}

func (m Model) renderSummary() string {
	s := m.summary
	delta := styles.RenderMoneyDelta(util.FormatMoney(s.TotalProfitLoss), s.TotalProfitLoss > 0, s.TotalProfitLoss == 0)
	return styles.Hint.Render(fmt.Sprintf(
		"%d transações · vendido %s · resultado ", s.TotalTransactions, util.FormatMoney(s.TotalSold),
	)) + delta + styles.Hint.Render(fmt.Sprintf(" · média %s", util.FormatPercent(s.AveragePercent)))
}

func (m Model) renderFeedback() string {
	if m.loading {
		return styles.Hint.Render("carregando...")
	}
	if m.errText != "" {
		return styles.ErrorLine.Render(m.errText)
	}
	if m.info != "" {
		return styles.RenderSuccess(m.info)
	}
	return ""
}

func (m Model) hintLine() string {
	if m.overlay == overlayAnalysis {
		return "esc para fechar"
	}
	if m.overlay != overlayNone {
		return "tab para alternar campos · enter para confirmar · esc para cancelar"
	}
	switch m.tab {
	case TabWatchlist:
		return "a adicionar · x remover · espaço ativar/pausar · enter analisar · tab próxima aba · r atualizar"
	case TabPortfolio:
		return "a adicionar · s vender · x remover · tab próxima aba · r atualizar"
	default:
		return "tab próxima aba · r atualizar"
	}
}

func (m Model) renderForm() string {
	var title string
	switch m.overlay {
	case overlayAddStock:
		title = "Adicionar ação"
	case overlayAddPosition:
		title = "Adicionar posição"
	case overlaySell:
		title = "Vender " + m.formCode
	}

	var b strings.Builder
	b.WriteString(styles.Header.Render(title))
	b.WriteString("\n\n")
	for i := range m.form {
		b.WriteString(m.form[i].View())
		b.WriteString("\n")
	}
	return styles.FocusedBox.Render(b.String())
}

func (m Model) renderAnalysisOverlay() string {
	if m.analysis == "" {
		return styles.Box.Render("Analisando " + m.formCode + "...")
	}
	return styles.Box.Render(m.analysis)
}

// renderAnalysis formats an analysis report as markdown and renders it
// for the terminal.
func renderAnalysis(a *api.Analysis, width int) (string, error) {
	wrap := width - 8
	if wrap < 40 {
		wrap = 40
	}

	var md strings.Builder
	fmt.Fprintf(&md, "# Análise %s\n\n", a.Code)
	fmt.Fprintf(&md, "**Preço atual:** %s\n\n", util.FormatMoney(a.Price))
	fmt.Fprintf(&md, "| Indicador | Valor |\n|---|---|\n")
	fmt.Fprintf(&md, "| Tendência | %s |\n", a.Trend)
	fmt.Fprintf(&md, "| RSI | %.2f |\n", a.RSI)
	fmt.Fprintf(&md, "| MACD | %.4f |\n", a.MACD)
	fmt.Fprintf(&md, "| Stop loss sugerido | %s |\n", util.FormatMoney(a.StopLoss))
	fmt.Fprintf(&md, "| Take profit sugerido | %s |\n", util.FormatMoney(a.TakeProfit))
	fmt.Fprintf(&md, "| Lucro esperado | %s |\n\n", util.FormatPercent(a.ProfitPct))
	fmt.Fprintf(&md, "**Posição:** %s → %s\n\n", a.CurrentPosition, a.NewPosition)
	if len(a.Conditions) > 0 {
		md.WriteString("## Condições\n\n")
		for _, c := range a.Conditions {
			fmt.Fprintf(&md, "- %s\n", c)
		}
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(md.String())
}
