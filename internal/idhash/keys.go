package idhash

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// separator joins the components of plain composite keys.
const separator = "-"

// AddressID returns the entity ID of an address: lowercase 0x-prefixed hex.
func AddressID(addr common.Address) string {
	return hexutil.Encode(addr.Bytes())
}

// TransactionID returns the entity ID of a transaction hash.
func TransactionID(hash common.Hash) string {
	return hash.Hex()
}

// PooledTokenID returns the key of the token's ledger inside a pool.
// Formula: token_id-pool_id
func PooledTokenID(tokenID, poolID string) string {
	return tokenID + separator + poolID
}

// UserTokenID returns the key of the user/token join record.
// Formula: user_id-token_id
func UserTokenID(userID, tokenID string) string {
	return userID + separator + tokenID
}

// InstantSwapID returns the key of a swap settlement record.
// Formula: tx_id-log_index, unique per event within a transaction.
func InstantSwapID(transactionID string, logIndex int) string {
	return transactionID + separator + strconv.Itoa(logIndex)
}

// EventID returns the key identifying one log of a transaction.
func EventID(transactionID string, logIndex int) string {
	return transactionID + separator + strconv.Itoa(logIndex)
}
