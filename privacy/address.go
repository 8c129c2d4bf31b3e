package privacy

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// PrivateContractAddress derives the address of a contract created by a
// private transaction. It extends the regular creation address scheme with the
// privacy group id, so the same sender and nonce map to different addresses in
// different groups.
func PrivateContractAddress(sender common.Address, nonce uint64, privacyGroupID []byte) common.Address {
	data, _ := rlp.EncodeToBytes([]interface{}{sender, nonce, privacyGroupID})
	return common.BytesToAddress(crypto.Keccak256(data)[12:])
}
