package postgres

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// NUMERIC columns are written as $n::text::numeric and read as col::text
// so no precision is lost in either direction.

func numText(d decimal.Decimal) string {
	return d.String()
}

func bigText(v *big.Int) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

// numDecoder parses NUMERIC text values, keeping the first error.
type numDecoder struct {
	err error
}

func (d *numDecoder) decimal(s string) decimal.Decimal {
	if d.err != nil {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		d.err = fmt.Errorf("parse numeric %q: %w", s, err)
		return decimal.Zero
	}
	return v
}

func (d *numDecoder) bigInt(s *string) *big.Int {
	if d.err != nil || s == nil {
		return nil
	}
	v, ok := new(big.Int).SetString(*s, 10)
	if !ok {
		d.err = fmt.Errorf("parse integer %q", *s)
		return nil
	}
	return v
}
