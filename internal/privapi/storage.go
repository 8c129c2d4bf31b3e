package privapi

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
)

// StateReader gives access to contract storage at a given block.
type StateReader interface {
	// StorageAt returns the storage word of address at slot. The boolean is
	// false if the account or slot is unset at that block.
	StorageAt(ctx context.Context, address common.Address, slot common.Hash, blockNrOrHash rpc.BlockNumberOrHash) (common.Hash, bool, error)
}

// StorageAPI serves storage queries under the "eth" namespace.
//
// Whether an all-zero word is returned as null depends on the StateReader.
// Backed by RemoteState, zero words always read as null, including slots of
// existing accounts.
type StorageAPI struct {
	state StateReader
}

func NewStorageAPI(state StateReader) *StorageAPI {
	return &StorageAPI{state: state}
}

// GetStorageAt returns the 256 bit storage word of address at position, or
// null if it is unset at the given block.
func (api *StorageAPI) GetStorageAt(ctx context.Context, address common.Address, position hexutil.Big, blockNrOrHash rpc.BlockNumberOrHash) (*common.Hash, error) {
	slot, overflow := uint256.FromBig(position.ToInt())
	if overflow {
		return nil, invalidParams("invalid storage position", nil)
	}
	value, ok, err := api.state.StorageAt(ctx, address, slot.Bytes32(), blockNrOrHash)
	if err != nil || !ok {
		return nil, err
	}
	return &value, nil
}

// RemoteState reads contract storage from an execution node over JSON-RPC.
// The remote node does not distinguish unset slots from zero words, so a zero
// word is reported as unset.
type RemoteState struct {
	client *rpc.Client
}

// DialRemoteState connects to the execution node at rawurl.
func DialRemoteState(ctx context.Context, rawurl string) (*RemoteState, error) {
	client, err := rpc.DialContext(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	return &RemoteState{client: client}, nil
}

func (s *RemoteState) StorageAt(ctx context.Context, address common.Address, slot common.Hash, blockNrOrHash rpc.BlockNumberOrHash) (common.Hash, bool, error) {
	var block string
	if hash, ok := blockNrOrHash.Hash(); ok {
		block = hash.Hex()
	} else if number, ok := blockNrOrHash.Number(); ok {
		block = number.String()
	} else {
		block = rpc.LatestBlockNumber.String()
	}
	var result hexutil.Bytes
	if err := s.client.CallContext(ctx, &result, "eth_getStorageAt", address, slot, block); err != nil {
		return common.Hash{}, false, err
	}
	value := common.BytesToHash(result)
	return value, value != (common.Hash{}), nil
}

// Close disconnects from the execution node.
func (s *RemoteState) Close() {
	s.client.Close()
}
