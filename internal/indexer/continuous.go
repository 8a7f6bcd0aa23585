package indexer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/idhash"
	"streamswap-indexer/internal/observability"
)

// HandleContinuousRateSet applies a new input rate to a streaming position.
//
// Input volume streamed at the previous rate since the previous set is
// settled into the in-side pooled token first. A zero rate retires the
// position.
func (p *Processor) HandleContinuousRateSet(ctx context.Context, ev domain.ContinuousRateSetEvent) error {
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
	if _, err := s.ensureUserToken(userID, tokenInID); err != nil {
		return err
	}
	if _, err := s.ensureUserToken(userID, tokenOutID); err != nil {
		return err
	}

	pool, err := need[*domain.Pool](s, domain.KindPool, poolID)
	if err != nil {
		return err
	}
	pooledIn, err := need[*domain.PooledToken](s, domain.KindPooledToken, idhash.PooledTokenID(tokenInID, poolID))
	if err != nil {
		return err
	}

	swapID := idhash.ContinuousSwapID(ev.Address, ev.Caller, ev.TokenIn, ev.TokenOut)
	swap, found, err := lookup[*domain.ContinuousSwap](s, domain.KindContinuousSwap, swapID)
	if err != nil {
		return err
	}
	if !found {
		swap = &domain.ContinuousSwap{
			ID:                    swapID,
			PoolID:                poolID,
			UserID:                userID,
			TokenInID:             tokenInID,
			TokenOutID:            tokenOutID,
			RateIn:                decimal.Zero,
			CurrentRateOut:        decimal.Zero,
			TotalOutUntilLastSwap: decimal.Zero,
		}
	}

	pooledIn.Volume = pooledIn.Volume.Add(settle(swap.RateIn, swap.Timestamp, ev.Timestamp))
	s.put(pooledIn)

	tokenIn.InstantSwapCount++
	tokenOut.InstantSwapCount++
	pool.InstantSwapCount++
	s.put(tokenIn)
	s.put(tokenOut)
	s.put(pool)

	if ev.TokenRateIn == nil || ev.TokenRateIn.Sign() == 0 {
		s.remove(domain.KindContinuousSwap, swapID)
	} else {
		swap.Timestamp = ev.Timestamp
		swap.TransactionID = txID
		swap.MinOut = domain.ConvertTokenToDecimal(ev.MinOut, tokenOut.Decimals)
		swap.MaxOut = domain.ConvertTokenToDecimal(ev.MaxOut, tokenOut.Decimals)
		swap.RateIn = domain.ConvertTokenToDecimal(ev.TokenRateIn, tokenIn.Decimals)
		s.put(swap)
	}

	s.notifyPool(domain.CategoryContinuous)
	s.notifyToken(tokenInID, domain.CategoryContinuous)

	return s.finish()
}

// HandleContinuousRateOutUpdated applies a new realized output rate to an
// open position, settling output streamed at the previous rate first.
// Events naming the zero address as a token are ignored.
func (p *Processor) HandleContinuousRateOutUpdated(ctx context.Context, ev domain.ContinuousRateOutUpdatedEvent) error {
	if ev.TokenIn == (common.Address{}) || ev.TokenOut == (common.Address{}) {
		observability.RecordArtifactIgnored()
		p.logger.Info("ignoring rate-out update with zero token address",
			zap.String("pool", idhash.AddressID(ev.Address)),
			zap.String("tx", ev.TxHash.Hex()),
			zap.Int("log_index", ev.LogIndex),
		)
		return nil
	}
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

	pool, err := need[*domain.Pool](s, domain.KindPool, poolID)
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
	pooledOut, err := need[*domain.PooledToken](s, domain.KindPooledToken, idhash.PooledTokenID(tokenOutID, poolID))
	if err != nil {
		return err
	}
	swap, err := need[*domain.ContinuousSwap](s, domain.KindContinuousSwap,
		idhash.ContinuousSwapID(ev.Address, ev.Receiver, ev.TokenIn, ev.TokenOut))
	if err != nil {
		return err
	}

	traded := settle(swap.CurrentRateOut, swap.TimestampLastSwap, ev.Timestamp)
	swap.TotalOutUntilLastSwap = swap.TotalOutUntilLastSwap.Add(traded)
	swap.CurrentRateOut = domain.ConvertTokenToDecimal(ev.TokenRateOut, tokenOut.Decimals)
	swap.TimestampLastSwap = ev.Timestamp
	s.put(swap)

	pooledOut.Volume = pooledOut.Volume.Add(traded)
	s.put(pooledOut)

	tokenIn.ContinuousSwapSetCount++
	tokenOut.ContinuousSwapSetCount++
	pool.ContinuousSwapSetCount++
	s.put(tokenIn)
	s.put(tokenOut)
	s.put(pool)

	s.notifyPool(domain.CategoryNone)
	s.notifyToken(tokenOutID, domain.CategoryNone)

	return s.finish()
}

// settle returns the amount streamed at rate over [from, to].
func settle(rate decimal.Decimal, from, to int64) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(to - from))
}
