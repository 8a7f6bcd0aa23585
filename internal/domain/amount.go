package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ConvertTokenToDecimal scales a raw integer amount by 10^-decimals.
// A nil amount converts to zero.
func ConvertTokenToDecimal(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -decimals)
}
