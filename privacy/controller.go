// Package privacy implements the restricted privacy controller: the pipeline
// that packages a private transaction, maintains the extended privacy records
// of private contracts and hands the payload to the enclave.
package privacy

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/tos-network/gpriv/core/types"
	"github.com/tos-network/gpriv/enclave"
	"github.com/tos-network/gpriv/privacy/extstore"
)

// ExtendedPrivacyAppendSet is the extended privacy marker of a transaction
// that appends its private set to the target contract.
const ExtendedPrivacyAppendSet byte = 0x02

// Controller submits private transactions and administers privacy groups on
// behalf of a privacy user.
type Controller interface {
	CreatePayload(ctx context.Context, tx *types.PrivateTransaction, userID string, group *enclave.PrivacyGroup) (string, error)
	CreatePrivacyGroup(ctx context.Context, addresses []string, name, description, userID string) (*enclave.PrivacyGroup, error)
	DeletePrivacyGroup(ctx context.Context, groupID, userID string) (string, error)
	FindPrivacyGroupByMembers(ctx context.Context, addresses []string, userID string) ([]*enclave.PrivacyGroup, error)
	FindPrivacyGroupByGroupID(ctx context.Context, groupID, userID string) (*enclave.PrivacyGroup, error)
	VerifyPrivacyGroupContainsPrivacyUserID(ctx context.Context, groupID, userID string) error
	VerifyPrivacyGroupContainsPrivacyUserIDAt(ctx context.Context, groupID, userID string, blockNumber *uint64) error
}

// RestrictedController is the controller for restricted (offchain) privacy
// groups. It holds no mutable state of its own and is safe for concurrent use.
//
// Concurrent appends to the private set of the same contract race on the
// read-merge-write of the stored set and must be serialized by the caller.
type RestrictedController struct {
	enclave enclave.Enclave
	store   *extstore.Store
	log     log.Logger
}

// NewRestrictedController creates a controller. A nil logger means the root
// logger.
func NewRestrictedController(e enclave.Enclave, store *extstore.Store, logger log.Logger) *RestrictedController {
	if logger == nil {
		logger = log.Root()
	}
	return &RestrictedController{
		enclave: e,
		store:   store,
		log:     logger.New("privacy", "restricted"),
	}
}

// CreatePayload records the extended privacy state of tx, stores the
// transaction in the enclave and returns the enclave key.
//
// Private arguments of an extended privacy transaction never leave the node:
// the enclave receives a copy of tx with the arguments zeroed. The store
// commits and the enclave call are not atomic together.
func (c *RestrictedController) CreatePayload(ctx context.Context, tx *types.PrivateTransaction, userID string, group *enclave.PrivacyGroup) (string, error) {
	defer payloadTimer.UpdateSince(time.Now())

	marker, extended := tx.ExtendedPrivacy()
	args, hasArgs := tx.PrivateArgs()
	c.log.Debug("Creating private transaction payload", "hash", tx.Hash(), "extended", extended, "marker", marker, "args", len(args), "grouped", group != nil)

	// Resolve everything that can fail before touching the store.
	var (
		target     common.Address
		privateSet []byte
		appendSet  = extended && hasArgs && marker == ExtendedPrivacyAppendSet
	)
	if appendSet {
		to := tx.To()
		if to == nil {
			return "", ErrMissingPrivateContract
		}
		set, err := DecodePrivateSet(args)
		if err != nil {
			return "", err
		}
		target, privateSet = *to, set
	}

	if extended && tx.IsContractCreation() {
		contract := PrivateContractAddress(tx.Sender(), tx.Nonce(), tx.DeterminePrivacyGroupID())
		if err := c.putCreator(contract, tx.Sender()); err != nil {
			return "", err
		}
	}
	toSend := tx
	if extended && hasArgs {
		toSend = tx.WithPrivateArgs(Blind(args))
		blindedCounter.Inc(1)

		if appendSet {
			if err := c.appendPrivateSet(target, privateSet); err != nil {
				return "", err
			}
		}
	}

	c.log.Trace("Storing private transaction in enclave", "hash", toSend.Hash())
	resp, err := sendToEnclave(ctx, c.enclave, toSend, userID, group)
	if err != nil {
		c.log.Debug("Failed to store private transaction in enclave", "err", err)
		return "", err
	}
	c.log.Debug("Stored private transaction in enclave", "key", resp.Key)
	return resp.Key, nil
}

func (c *RestrictedController) putCreator(contract, creator common.Address) error {
	u := c.store.Updater()
	if err := u.PutCreator(contract, creator); err != nil {
		return err
	}
	if err := u.Commit(); err != nil {
		return err
	}
	c.log.Debug("Recorded private contract creator", "contract", contract, "creator", creator)
	return nil
}

// appendPrivateSet stores existing ‖ set as the private set of contract.
func (c *RestrictedController) appendPrivateSet(contract common.Address, set []byte) error {
	existing, _, err := c.store.PrivateSet(contract)
	if err != nil {
		return err
	}
	merged := make([]byte, 0, len(existing)+len(set))
	merged = append(merged, existing...)
	merged = append(merged, set...)

	u := c.store.Updater()
	if err := u.PutPrivateSet(contract, merged); err != nil {
		return err
	}
	if err := u.Commit(); err != nil {
		return err
	}
	privateSetAppendMeter.Mark(int64(len(set)))
	c.log.Info("Saved private set to extended storage", "contract", contract, "appended", len(set), "size", len(merged))
	return nil
}

func (c *RestrictedController) CreatePrivacyGroup(ctx context.Context, addresses []string, name, description, userID string) (*enclave.PrivacyGroup, error) {
	return c.enclave.CreatePrivacyGroup(ctx, addresses, userID, name, description)
}

func (c *RestrictedController) DeletePrivacyGroup(ctx context.Context, groupID, userID string) (string, error) {
	return c.enclave.DeletePrivacyGroup(ctx, groupID, userID)
}

func (c *RestrictedController) FindPrivacyGroupByMembers(ctx context.Context, addresses []string, userID string) ([]*enclave.PrivacyGroup, error) {
	return c.enclave.FindPrivacyGroup(ctx, addresses)
}

// FindPrivacyGroupByGroupID returns the group with the given id, or nil if the
// enclave does not know it.
func (c *RestrictedController) FindPrivacyGroupByGroupID(ctx context.Context, groupID, userID string) (*enclave.PrivacyGroup, error) {
	group, err := c.enclave.RetrievePrivacyGroup(ctx, groupID)
	if errors.Is(err, enclave.ErrPrivacyGroupNotFound) {
		return nil, nil
	}
	return group, err
}

// VerifyPrivacyGroupContainsPrivacyUserID fails with
// ErrPrivacyGroupMembershipViolation unless userID is a member of the group.
func (c *RestrictedController) VerifyPrivacyGroupContainsPrivacyUserID(ctx context.Context, groupID, userID string) error {
	group, err := c.enclave.RetrievePrivacyGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.Contains(userID) {
		return ErrPrivacyGroupMembershipViolation
	}
	return nil
}

// VerifyPrivacyGroupContainsPrivacyUserIDAt is the block scoped membership
// check. Restricted groups are not block scoped, so the block is ignored.
func (c *RestrictedController) VerifyPrivacyGroupContainsPrivacyUserIDAt(ctx context.Context, groupID, userID string, blockNumber *uint64) error {
	return c.VerifyPrivacyGroupContainsPrivacyUserID(ctx, groupID, userID)
}
