package idhash

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ContinuousSwapID computes the deterministic key of a streaming position.
// Formula: keccak256(user ‖ pool ‖ token_in ‖ token_out) over the raw
// 20-byte addresses. Returns 0x-prefixed lowercase hex (66 characters).
//
// The key is order sensitive: swapping token_in and token_out yields a
// different position.
func ContinuousSwapID(pool, user, tokenIn, tokenOut common.Address) string {
	return crypto.Keccak256Hash(
		user.Bytes(),
		pool.Bytes(),
		tokenIn.Bytes(),
		tokenOut.Bytes(),
	).Hex()
}
