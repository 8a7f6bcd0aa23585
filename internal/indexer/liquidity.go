package indexer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/idhash"
)

// HandleJoin adds deposited liquidity to the pooled token reserve and to the
// token's aggregate liquidity.
func (p *Processor) HandleJoin(ctx context.Context, ev domain.JoinEvent) error {
	return p.applyLiquidity(ctx, ev, ev.Caller, ev.TokenIn, ev.TokenAmountIn, decimal.Decimal.Add)
}

// HandleExit subtracts withdrawn liquidity from the pooled token reserve and
// from the token's aggregate liquidity.
func (p *Processor) HandleExit(ctx context.Context, ev domain.ExitEvent) error {
	return p.applyLiquidity(ctx, ev, ev.Caller, ev.TokenOut, ev.TokenAmountOut, decimal.Decimal.Sub)
}

func (p *Processor) applyLiquidity(
	ctx context.Context,
	ev domain.Event,
	caller, token common.Address,
	amount *big.Int,
	apply func(decimal.Decimal, decimal.Decimal) decimal.Decimal,
) error {
	s, skip, err := p.begin(ctx, ev)
	if err != nil || skip {
		return err
	}

	tokenID := idhash.AddressID(token)

	if _, err := s.ensureUser(caller); err != nil {
		return err
	}
	pooled, err := need[*domain.PooledToken](s, domain.KindPooledToken, idhash.PooledTokenID(tokenID, s.poolID()))
	if err != nil {
		return err
	}
	tok, err := need[*domain.Token](s, domain.KindToken, tokenID)
	if err != nil {
		return err
	}

	delta := domain.ConvertTokenToDecimal(amount, tok.Decimals)
	pooled.Reserve = apply(pooled.Reserve, delta)
	s.put(pooled)
	tok.TotalLiquidity = apply(tok.TotalLiquidity, delta)
	s.put(tok)

	s.notifyPool(domain.CategoryNone)
	s.notifyToken(tokenID, domain.CategoryNone)

	return s.finish()
}
