package domain

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Candle is one OHLCV bar for a symbol and interval.
type Candle struct {
	gorm.Model
	Symbol string `gorm:"column:symbol;type:varchar(20);index;not null" json:"symbol"`
	// Interval label, e.g. 1m, 1h, 1d.
	Interval string `gorm:"column:interval_str;type:varchar(10);not null" json:"interval"`
	// Bar open time in epoch milliseconds.
	OpenTime int64           `gorm:"column:open_time;type:bigint;not null" json:"open_time"`
	Open     decimal.Decimal `gorm:"column:open_price;type:decimal(32,18);not null" json:"open"`
	High     decimal.Decimal `gorm:"column:high_price;type:decimal(32,18);not null" json:"high"`
	Low      decimal.Decimal `gorm:"column:low_price;type:decimal(32,18);not null" json:"low"`
	Close    decimal.Decimal `gorm:"column:close_price;type:decimal(32,18);not null" json:"close"`
	Volume   decimal.Decimal `gorm:"column:volume;type:decimal(32,18);not null" json:"volume"`
	// Bar close time in epoch milliseconds.
	CloseTime int64 `gorm:"column:close_time;type:bigint;not null" json:"close_time"`
}

// Change returns the open-to-close move as a percentage.
func (c *Candle) Change() decimal.Decimal {
	if c.Open.IsZero() {
		return decimal.Zero
	}
	return c.Close.Sub(c.Open).Div(c.Open).Mul(decimal.NewFromInt(100))
}
