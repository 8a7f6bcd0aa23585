package domain

import "github.com/shopspring/decimal"

// InstantSwap is the immutable settlement record of one one-shot swap.
// ID is transaction ID + "-" + log index.
type InstantSwap struct {
	ID            string          `json:"id"`
	PoolID        string          `json:"pool"`
	UserID        string          `json:"user"`
	TransactionID string          `json:"transaction"`
	TokenInID     string          `json:"tokenIn"`
	TokenOutID    string          `json:"tokenOut"`
	AmountIn      decimal.Decimal `json:"amountIn"`
	AmountOut     decimal.Decimal `json:"amountOut"`
	Timestamp     int64           `json:"timestamp"`
}

func (s *InstantSwap) Kind() EntityKind { return KindInstantSwap }
func (s *InstantSwap) Key() string      { return s.ID }

// ContinuousSwap is the active streaming position of a
// (pool, user, tokenIn, tokenOut) tuple. A record with a zero RateIn is
// never stored: setting the rate to zero removes the position.
type ContinuousSwap struct {
	ID            string `json:"id"`
	PoolID        string `json:"pool"`
	UserID        string `json:"user"`
	TokenInID     string `json:"tokenIn"`
	TokenOutID    string `json:"tokenOut"`
	TransactionID string `json:"transaction"`

	RateIn                decimal.Decimal `json:"rateIn"`                // token-in per second
	CurrentRateOut        decimal.Decimal `json:"currentRateOut"`        // token-out per second
	TotalOutUntilLastSwap decimal.Decimal `json:"totalOutUntilLastSwap"` // integral of CurrentRateOut up to TimestampLastSwap
	Timestamp             int64           `json:"timestamp"`             // last rate-in set
	TimestampLastSwap     int64           `json:"timestampLastSwap"`     // last rate-out update

	MinOut decimal.Decimal `json:"minOut"`
	MaxOut decimal.Decimal `json:"maxOut"`
}

func (s *ContinuousSwap) Kind() EntityKind { return KindContinuousSwap }
func (s *ContinuousSwap) Key() string      { return s.ID }
