// Package domain holds the market data entities and repository contracts.
package domain

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Quote is a point-in-time snapshot of the market for a symbol.
type Quote struct {
	gorm.Model
	// Symbol, e.g. AAPL or BTC/USDT.
	Symbol string `gorm:"column:symbol;type:varchar(20);index;not null" json:"symbol"`
	// Best bid.
	BidPrice decimal.Decimal `gorm:"column:bid_price;type:decimal(32,18);not null" json:"bid_price"`
	BidSize  decimal.Decimal `gorm:"column:bid_size;type:decimal(32,18);not null" json:"bid_size"`
	// Best ask.
	AskPrice decimal.Decimal `gorm:"column:ask_price;type:decimal(32,18);not null" json:"ask_price"`
	AskSize  decimal.Decimal `gorm:"column:ask_size;type:decimal(32,18);not null" json:"ask_size"`
	// Last trade.
	LastPrice decimal.Decimal `gorm:"column:last_price;type:decimal(32,18);not null" json:"last_price"`
	LastSize  decimal.Decimal `gorm:"column:last_size;type:decimal(32,18);not null" json:"last_size"`
	// Event time in epoch milliseconds.
	Timestamp int64 `gorm:"column:timestamp;type:bigint;not null" json:"timestamp"`
	// Upstream feed that produced the quote.
	Source string `gorm:"column:source;type:varchar(50)" json:"source"`
}

// Spread returns the bid/ask spread.
func (q *Quote) Spread() decimal.Decimal {
	return q.AskPrice.Sub(q.BidPrice)
}

// MidPrice returns the bid/ask midpoint.
func (q *Quote) MidPrice() decimal.Decimal {
	return q.BidPrice.Add(q.AskPrice).Div(decimal.NewFromInt(2))
}
