package extstore

import "github.com/ethereum/go-ethereum/common"

// creatorSuffix tags the key holding the address that created a private
// contract. The value under the bare contract address is its private set.
var creatorSuffix = []byte("_Alice")

// creatorKey = contractAddress + creatorSuffix
func creatorKey(contract common.Address) []byte {
	return append(contract.Bytes(), creatorSuffix...)
}

// privateSetKey = contractAddress
func privateSetKey(contract common.Address) []byte {
	return contract.Bytes()
}
