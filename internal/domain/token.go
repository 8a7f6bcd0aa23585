package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Token is a fungible asset usable in any pool. Static fields are fetched
// once, when the token is first bound to a pool.
type Token struct {
	ID                     string          `json:"id"` // token address
	Symbol                 string          `json:"symbol"`
	Name                   string          `json:"name"`
	Decimals               int32           `json:"decimals"`
	TotalSupply            *big.Int        `json:"totalSupply"`
	UnderlyingToken        string          `json:"underlyingToken"`
	InstantSwapCount       int64           `json:"instantSwapCount"`
	ContinuousSwapSetCount int64           `json:"continuousSwapSetCount"`
	TotalLiquidity         decimal.Decimal `json:"totalLiquidity"`
}

func (t *Token) Kind() EntityKind { return KindToken }
func (t *Token) Key() string      { return t.ID }

// TokenMetadata is the static token data read from the token contract.
type TokenMetadata struct {
	Symbol          string         `json:"symbol"`
	Name            string         `json:"name"`
	Decimals        int32          `json:"decimals"`
	TotalSupply     *big.Int       `json:"totalSupply"`
	UnderlyingToken common.Address `json:"underlyingToken"`
}

// UserToken links a user to a token it has interacted with.
// ID is user ID + "-" + token ID.
type UserToken struct {
	ID                   string `json:"id"`
	UserID               string `json:"user"`
	TokenID              string `json:"token"`
	CreatedAtBlockNumber int64  `json:"createdAtBlockNumber"`
	CreatedAtTimestamp   int64  `json:"createdAtTimestamp"`
}

func (u *UserToken) Kind() EntityKind { return KindUserToken }
func (u *UserToken) Key() string      { return u.ID }

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
