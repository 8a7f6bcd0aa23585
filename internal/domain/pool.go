package domain

import "github.com/shopspring/decimal"

// StreamSwapFactory counts the pools created by one factory contract.
type StreamSwapFactory struct {
	ID        string `json:"id"` // factory address
	PoolCount int64  `json:"poolCount"`
}

func (f *StreamSwapFactory) Kind() EntityKind { return KindFactory }
func (f *StreamSwapFactory) Key() string      { return f.ID }

// Pool is a liquidity pool contract instance.
type Pool struct {
	ID                     string   `json:"id"` // pool address
	CreatedAtTimestamp     int64    `json:"createdAtTimestamp"`
	CreatedAtBlockNumber   int64    `json:"createdAtBlockNumber"`
	InstantSwapCount       int64    `json:"instantSwapCount"`
	ContinuousSwapSetCount int64    `json:"continuousSwapSetCount"`
	TokenAddresses         []string `json:"tokenAddresses"` // bound token addresses, in binding order
}

func (p *Pool) Kind() EntityKind { return KindPool }
func (p *Pool) Key() string      { return p.ID }

// HasToken reports whether the token address is already bound to the pool.
func (p *Pool) HasToken(tokenID string) bool {
	for _, addr := range p.TokenAddresses {
		if addr == tokenID {
			return true
		}
	}
	return false
}

// PooledToken is the reserve and volume ledger of one token inside one pool.
// ID is token ID + "-" + pool ID.
type PooledToken struct {
	ID      string          `json:"id"`
	PoolID  string          `json:"pool"`
	TokenID string          `json:"token"`
	Reserve decimal.Decimal `json:"reserve"` // liquidity currently deposited
	Volume  decimal.Decimal `json:"volume"`  // cumulative amount moved through swaps
}

func (p *PooledToken) Kind() EntityKind { return KindPooledToken }
func (p *PooledToken) Key() string      { return p.ID }
