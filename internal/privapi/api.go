// Package privapi implements the JSON-RPC services of the privacy node.
package privapi

import (
	"context"
	"encoding/base64"

	mapset "github.com/deckarep/golang-set"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/tos-network/gpriv/core/types"
	"github.com/tos-network/gpriv/enclave"
	"github.com/tos-network/gpriv/privacy"
	"github.com/tos-network/gpriv/privacy/extstore"
)

// PrivAPI exposes private transaction submission, privacy group administration
// and the extended privacy records under the "priv" namespace.
type PrivAPI struct {
	controller privacy.Controller
	store      *extstore.Store
	userID     string
	setLock    *AddrLocker
}

// NewPrivAPI creates the priv service acting for the enclave key userID.
func NewPrivAPI(controller privacy.Controller, store *extstore.Store, userID string, setLock *AddrLocker) *PrivAPI {
	return &PrivAPI{controller: controller, store: store, userID: userID, setLock: setLock}
}

// DistributeRawTransaction stores a signed private transaction in the enclave
// and returns the enclave key.
func (api *PrivAPI) DistributeRawTransaction(ctx context.Context, input hexutil.Bytes) (hexutil.Bytes, error) {
	tx := new(types.PrivateTransaction)
	if err := tx.UnmarshalBinary(input); err != nil {
		return nil, invalidParams("invalid private transaction", err)
	}
	if base64.StdEncoding.EncodeToString(tx.PrivateFrom()) != api.userID {
		return nil, errPrivateFromMismatch
	}

	var group *enclave.PrivacyGroup
	if id, ok := tx.PrivacyGroupID(); ok {
		groupID := base64.StdEncoding.EncodeToString(id)
		found, err := api.controller.FindPrivacyGroupByGroupID(ctx, groupID, api.userID)
		if err != nil {
			return nil, toAPIError(err)
		}
		if found == nil {
			return nil, errGroupNotFound
		}
		if err := api.controller.VerifyPrivacyGroupContainsPrivacyUserID(ctx, groupID, api.userID); err != nil {
			return nil, toAPIError(err)
		}
		group = found
	}

	if marker, ok := tx.ExtendedPrivacy(); ok && marker == privacy.ExtendedPrivacyAppendSet {
		if to := tx.To(); to != nil {
			api.setLock.LockAddr(*to)
			defer api.setLock.UnlockAddr(*to)
		}
	}
	key, err := api.controller.CreatePayload(ctx, tx, api.userID, group)
	if err != nil {
		log.Debug("Private transaction distribution failed", "hash", tx.Hash(), "err", err)
		return nil, toAPIError(err)
	}
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, &apiError{code: privErrEnclave, message: "invalid enclave key", data: map[string]interface{}{"key": key}}
	}
	log.Info("Distributed private transaction", "hash", tx.Hash(), "key", key)
	return raw, nil
}

// CreatePrivacyGroupArgs are the arguments of priv_createPrivacyGroup.
type CreatePrivacyGroupArgs struct {
	Addresses   []string `json:"addresses"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
}

// CreatePrivacyGroup creates a privacy group owned by the node and returns its id.
func (api *PrivAPI) CreatePrivacyGroup(ctx context.Context, args CreatePrivacyGroupArgs) (string, error) {
	if len(args.Addresses) == 0 {
		return "", invalidParams("missing privacy group members", nil)
	}
	// Drop repeated members, keeping the first occurrence.
	var (
		seen    = mapset.NewThreadUnsafeSet()
		members = make([]string, 0, len(args.Addresses))
	)
	for _, addr := range args.Addresses {
		if seen.Add(addr) {
			members = append(members, addr)
		}
	}
	group, err := api.controller.CreatePrivacyGroup(ctx, members, args.Name, args.Description, api.userID)
	if err != nil {
		return "", toAPIError(err)
	}
	return group.ID, nil
}

// DeletePrivacyGroup deletes a privacy group and returns its id.
func (api *PrivAPI) DeletePrivacyGroup(ctx context.Context, privacyGroupID string) (string, error) {
	id, err := api.controller.DeletePrivacyGroup(ctx, privacyGroupID, api.userID)
	return id, toAPIError(err)
}

// FindPrivacyGroup returns the privacy groups with exactly the given members.
func (api *PrivAPI) FindPrivacyGroup(ctx context.Context, addresses []string) ([]*enclave.PrivacyGroup, error) {
	groups, err := api.controller.FindPrivacyGroupByMembers(ctx, addresses, api.userID)
	if err != nil {
		return nil, toAPIError(err)
	}
	if groups == nil {
		groups = []*enclave.PrivacyGroup{}
	}
	return groups, nil
}

// GetPrivateContractAddress returns the address of the contract created by
// sender at nonce in the given privacy group.
func (api *PrivAPI) GetPrivateContractAddress(sender common.Address, nonce hexutil.Uint64, privacyGroupID string) (common.Address, error) {
	id, err := base64.StdEncoding.DecodeString(privacyGroupID)
	if err != nil {
		return common.Address{}, invalidParams("invalid privacy group id", err)
	}
	return privacy.PrivateContractAddress(sender, uint64(nonce), id), nil
}

// GetPrivateContractCreator returns the creator of an extended privacy
// contract, or null if none was recorded.
func (api *PrivAPI) GetPrivateContractCreator(contract common.Address) (*common.Address, error) {
	creator, ok, err := api.store.Creator(contract)
	if err != nil || !ok {
		return nil, err
	}
	return &creator, nil
}

// GetPrivateSet returns the accumulated private set of a contract, or null if
// none was recorded.
func (api *PrivAPI) GetPrivateSet(contract common.Address) (*hexutil.Bytes, error) {
	set, ok, err := api.store.PrivateSet(contract)
	if err != nil || !ok {
		return nil, err
	}
	res := hexutil.Bytes(set)
	return &res, nil
}

// APIs returns the RPC services of the privacy node. The eth storage service
// is only included when a state reader is configured.
func APIs(controller privacy.Controller, store *extstore.Store, state StateReader, userID string) []rpc.API {
	apis := []rpc.API{{
		Namespace: "priv",
		Service:   NewPrivAPI(controller, store, userID, new(AddrLocker)),
	}}
	if state != nil {
		apis = append(apis, rpc.API{
			Namespace: "eth",
			Service:   NewStorageAPI(state),
		})
	}
	return apis
}
