package indexer

import (
	"github.com/ethereum/go-ethereum/common"

	"streamswap-indexer/internal/domain"
	"streamswap-indexer/internal/idhash"
)

// Get-or-create accessors. Each writes at most once per key and returns the key.

func (s *session) ensureTransaction() (string, error) {
	id := idhash.TransactionID(s.meta.TxHash)
	_, found, err := lookup[*domain.Transaction](s, domain.KindTransaction, id)
	if err != nil {
		return "", err
	}
	if !found {
		s.put(&domain.Transaction{
			ID:          id,
			BlockNumber: s.meta.BlockNumber,
			Timestamp:   s.meta.Timestamp,
		})
	}
	return id, nil
}

func (s *session) ensureUser(addr common.Address) (string, error) {
	id := idhash.AddressID(addr)
	_, found, err := lookup[*domain.User](s, domain.KindUser, id)
	if err != nil {
		return "", err
	}
	if !found {
		s.put(&domain.User{ID: id})
	}
	return id, nil
}

func (s *session) ensureUserToken(userID, tokenID string) (string, error) {
	id := idhash.UserTokenID(userID, tokenID)
	_, found, err := lookup[*domain.UserToken](s, domain.KindUserToken, id)
	if err != nil {
		return "", err
	}
	if !found {
		s.put(&domain.UserToken{
			ID:                   id,
			UserID:               userID,
			TokenID:              tokenID,
			CreatedAtBlockNumber: s.meta.BlockNumber,
			CreatedAtTimestamp:   s.meta.Timestamp,
		})
	}
	return id, nil
}

func (s *session) ensureFactory(addr common.Address) (*domain.StreamSwapFactory, error) {
	id := idhash.AddressID(addr)
	f, found, err := lookup[*domain.StreamSwapFactory](s, domain.KindFactory, id)
	if err != nil {
		return nil, err
	}
	if !found {
		f = &domain.StreamSwapFactory{ID: id}
	}
	return f, nil
}
