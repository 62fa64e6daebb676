// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

// Wire names follow the backend's Portuguese schema.

// Stock is a watched stock.
type Stock struct {
	ID        int64  `json:"id"`
	Code      string `json:"codigo"`
	Active    bool   `json:"ativo"`
	UserID    int64  `json:"usuario_id"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Position is a holding in the portfolio.
type Position struct {
	ID         int64   `json:"id"`
	Code       string  `json:"codigo"`
	Quantity   int     `json:"quantidade"`
	AvgPrice   float64 `json:"preco_medio"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	UserID     int64   `json:"usuario_id"`
	CreatedAt  string  `json:"created_at,omitempty"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
}

// NewPosition is the payload for adding a holding.
type NewPosition struct {
	Code       string  `json:"codigo"`
	Quantity   int     `json:"quantidade"`
	AvgPrice   float64 `json:"preco_medio"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
}

// PositionUpdate carries the fields of a partial position update. Nil
// fields are left untouched.
type PositionUpdate struct {
	Quantity   *int
	AvgPrice   *float64
	StopLoss   *float64
	TakeProfit *float64
}

// SaleRequest is the payload for selling part or all of a position.
type SaleRequest struct {
	Code         string  `json:"codigo"`
	QuantitySold int     `json:"quantidade_vendida"`
	SalePrice    float64 `json:"preco_venda"`
}

// Transaction is a completed sale.
type Transaction struct {
	ID                 int64   `json:"id"`
	Code               string  `json:"codigo"`
	Date               string  `json:"data_transacao"`
	QuantitySold       int     `json:"quantidade_vendida"`
	PurchasePrice      float64 `json:"preco_compra"`
	SalePrice          float64 `json:"preco_venda"`
	OriginalStopLoss   float64 `json:"stop_loss_original"`
	OriginalTakeProfit float64 `json:"take_profit_original"`
	TotalValue         float64 `json:"valor_total"`
	ProfitLoss         float64 `json:"lucro_prejuizo"`
	ResultPercent      float64 `json:"percentual_resultado"`
	UserID             int64   `json:"usuario_id"`
}

// TransactionSummary is the transaction history with aggregates.
type TransactionSummary struct {
	TotalTransactions int           `json:"total_transacoes"`
	TotalSold         float64       `json:"valor_total_vendido"`
	TotalProfitLoss   float64       `json:"lucro_prejuizo_total"`
	AveragePercent    float64       `json:"percentual_medio"`
	Transactions      []Transaction `json:"transacoes"`
}

// SaleResult is the outcome of a sale: the recorded transaction plus
// whether the position was fully closed.
type SaleResult struct {
	Message         string      `json:"message"`
	Transaction     Transaction `json:"transacao"`
	PositionRemoved bool        `json:"posicao_removida"`
}

// Analysis is a technical analysis snapshot for one stock.
type Analysis struct {
	Code            string   `json:"codigo"`
	CurrentPosition string   `json:"current_position"`
	NewPosition     string   `json:"new_position"`
	Price           float64  `json:"price"`
	StopLoss        float64  `json:"stop_loss"`
	TakeProfit      float64  `json:"take_profit"`
	ProfitPct       float64  `json:"profit_pct"`
	RSI             float64  `json:"rsi"`
	MACD            float64  `json:"macd"`
	Trend           string   `json:"trend"`
	Conditions      []string `json:"conditions"`
}
