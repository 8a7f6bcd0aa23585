package indexer

import (
	"context"

	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/idhash"
)

// HandleInstantSwap records a one-shot swap and adds its amounts to the
// volume of both pooled tokens. Reserves are not touched.
func (p *Processor) HandleInstantSwap(ctx context.Context, ev domain.InstantSwapEvent) error {
	if err := distinctTokens(ev.TokenIn, ev.TokenOut); err != nil {
		return err
	}
	s, skip, err := p.begin(ctx, ev)
	if err != nil || skip {
		return err
	}

	poolID := s.poolID()
	tokenInID := idhash.AddressID(ev.TokenIn)
	tokenOutID := idhash.AddressID(ev.TokenOut)

	txID, err := s.ensureTransaction()
	if err != nil {
		return err
	}
	userID, err := s.ensureUser(ev.Caller)
	if err != nil {
		return err
	}

	tokenIn, err := need[*domain.Token](s, domain.KindToken, tokenInID)
	if err != nil {
		return err
	}
	tokenOut, err := need[*domain.Token](s, domain.KindToken, tokenOutID)
	if err != nil {
		return err
	}
	pooledIn, err := need[*domain.PooledToken](s, domain.KindPooledToken, idhash.PooledTokenID(tokenInID, poolID))
	if err != nil {
		return err
	}
	pooledOut, err := need[*domain.PooledToken](s, domain.KindPooledToken, idhash.PooledTokenID(tokenOutID, poolID))
	if err != nil {
		return err
	}

	if _, err := s.ensureUserToken(userID, tokenInID); err != nil {
		return err
	}
	if _, err := s.ensureUserToken(userID, tokenOutID); err != nil {
		return err
	}

	swap := &domain.InstantSwap{
		ID:            idhash.InstantSwapID(txID, ev.LogIndex),
		PoolID:        poolID,
		UserID:        userID,
		TransactionID: txID,
		TokenInID:     tokenInID,
		TokenOutID:    tokenOutID,
		AmountIn:      domain.ConvertTokenToDecimal(ev.TokenAmountIn, tokenIn.Decimals),
		AmountOut:     domain.ConvertTokenToDecimal(ev.TokenAmountOut, tokenOut.Decimals),
		Timestamp:     ev.Timestamp,
	}
	s.put(swap)

	pooledIn.Volume = pooledIn.Volume.Add(swap.AmountIn)
	s.put(pooledIn)
	pooledOut.Volume = pooledOut.Volume.Add(swap.AmountOut)
	s.put(pooledOut)

	s.notifyPool(domain.CategoryInstant)
	s.notifyToken(tokenInID, domain.CategoryInstant)
	s.notifyToken(tokenOutID, domain.CategoryInstant)

	return s.finish()
}
