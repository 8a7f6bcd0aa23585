package indexer

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/idhash"
)

// HandlePoolCreated registers a new pool and counts it on its factory.
// A pool that already exists is left untouched and not counted again.
func (p *Processor) HandlePoolCreated(ctx context.Context, ev domain.PoolCreatedEvent) error {
	s, skip, err := p.begin(ctx, ev)
	if err != nil || skip {
		return err
	}

	poolID := idhash.AddressID(ev.Pool)
	_, exists, err := lookup[*domain.Pool](s, domain.KindPool, poolID)
	if err != nil {
		return err
	}
	if exists {
		p.logger.Info("pool already registered",
			zap.String("pool", poolID),
			zap.Int64("block", ev.BlockNumber),
		)
		return s.finish()
	}

	factory, err := s.ensureFactory(ev.Address)
	if err != nil {
		return err
	}

	s.put(&domain.Pool{
		ID:                   poolID,
		CreatedAtTimestamp:   ev.Timestamp,
		CreatedAtBlockNumber: ev.BlockNumber,
		TokenAddresses:       []string{},
	})
	factory.PoolCount++
	s.put(factory)
	s.watchPool(ev.Pool)

	return s.finish()
}

// HandleTokenBound binds a token to the emitting pool. The Token is created
// with fetched metadata the first time its address is seen by any pool.
func (p *Processor) HandleTokenBound(ctx context.Context, ev domain.TokenBoundEvent) error {
	s, skip, err := p.begin(ctx, ev)
	if err != nil || skip {
		return err
	}

	poolID := s.poolID()
	tokenID := idhash.AddressID(ev.Token)

	pool, err := need[*domain.Pool](s, domain.KindPool, poolID)
	if err != nil {
		return err
	}

	_, tokenExists, err := lookup[*domain.Token](s, domain.KindToken, tokenID)
	if err != nil {
		return err
	}
	if !tokenExists {
		token, err := p.newToken(ctx, ev, tokenID)
		if err != nil {
			return err
		}
		s.put(token)
		s.watchToken(ev.Token)
	}

	if !pool.HasToken(tokenID) {
		pool.TokenAddresses = append(pool.TokenAddresses, tokenID)
		s.put(pool)
	}

	pooledID := idhash.PooledTokenID(tokenID, poolID)
	_, pooledExists, err := lookup[*domain.PooledToken](s, domain.KindPooledToken, pooledID)
	if err != nil {
		return err
	}
	if !pooledExists {
		s.put(&domain.PooledToken{
			ID:      pooledID,
			PoolID:  poolID,
			TokenID: tokenID,
			Reserve: decimal.Zero,
			Volume:  decimal.Zero,
		})
	}

	return s.finish()
}

func (p *Processor) newToken(ctx context.Context, ev domain.TokenBoundEvent, tokenID string) (*domain.Token, error) {
	if p.metadata == nil {
		return nil, fmt.Errorf("%w: no metadata source for %s", ErrMetadataUnavailable, tokenID)
	}
	md, err := p.metadata.FetchTokenMetadata(ctx, ev.Token)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMetadataUnavailable, tokenID, err)
	}

	return &domain.Token{
		ID:              tokenID,
		Symbol:          md.Symbol,
		Name:            md.Name,
		Decimals:        md.Decimals,
		TotalSupply:     md.TotalSupply,
		UnderlyingToken: idhash.AddressID(md.UnderlyingToken),
		TotalLiquidity:  decimal.Zero,
	}, nil
}
