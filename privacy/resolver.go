package privacy

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/tos-network/gpriv/core/types"
	"github.com/tos-network/gpriv/enclave"
)

// EncodePayload returns the enclave payload of tx: the base64 form of its
// canonical encoding.
func EncodePayload(tx *types.PrivateTransaction) (string, error) {
	enc, err := tx.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(enc), nil
}

// LegacyRecipients returns the enclave recipients of a legacy transaction. An
// absent or empty privateFor list addresses the sender's own key.
func LegacyRecipients(tx *types.PrivateTransaction) []string {
	privateFor, _ := tx.PrivateFor()
	if len(privateFor) == 0 {
		return []string{base64.StdEncoding.EncodeToString(tx.PrivateFrom())}
	}
	recipients := make([]string, len(privateFor))
	for i, key := range privateFor {
		recipients[i] = base64.StdEncoding.EncodeToString(key)
	}
	return recipients
}

// sendToEnclave stores tx in the enclave. With a resolved group the payload is
// sent to the group on behalf of userID, otherwise it is sent from privateFrom
// to the legacy recipient list.
func sendToEnclave(ctx context.Context, e enclave.Enclave, tx *types.PrivateTransaction, userID string, group *enclave.PrivacyGroup) (*enclave.SendResponse, error) {
	if group != nil {
		if group.Type != enclave.GroupTypeOnchainGrouped {
			return nil, fmt.Errorf("%w: %q, want %q", ErrIllegalPrivacyGroupType, group.Type, enclave.GroupTypeOnchainGrouped)
		}
		groupID, ok := tx.PrivacyGroupID()
		if !ok {
			return nil, ErrMissingPrivacyGroupID
		}
		payload, err := EncodePayload(tx)
		if err != nil {
			return nil, err
		}
		return e.SendToGroup(ctx, payload, userID, base64.StdEncoding.EncodeToString(groupID))
	}
	payload, err := EncodePayload(tx)
	if err != nil {
		return nil, err
	}
	return e.Send(ctx, payload, base64.StdEncoding.EncodeToString(tx.PrivateFrom()), LegacyRecipients(tx))
}
