// Package enclave implements the client side of the off-chain privacy
// manager (the "enclave") that stores and distributes private payloads.
package enclave

import (
	"encoding/json"
	"fmt"
)

// GroupType is the kind of a privacy group as reported by the enclave.
type GroupType string

const (
	// GroupTypeOnchainGrouped is the client managed group representation.
	// Transactions addressed to it carry an explicit privacy group id.
	GroupTypeOnchainGrouped GroupType = "ONCHAIN_GROUPED"
	// GroupTypeLegacy is the implicit group of a privateFrom/privateFor pair.
	GroupTypeLegacy GroupType = "LEGACY"
)

// UnmarshalText implements encoding.TextUnmarshaler and rejects unknown types.
func (t *GroupType) UnmarshalText(input []byte) error {
	switch GroupType(input) {
	case GroupTypeOnchainGrouped, GroupTypeLegacy:
		*t = GroupType(input)
		return nil
	}
	return fmt.Errorf("enclave: unknown privacy group type %q", input)
}

// PrivacyGroup is a named set of participants allowed to see a payload.
type PrivacyGroup struct {
	ID          string    `json:"privacyGroupId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        GroupType `json:"type"`
	Members     []string  `json:"members"`
}

// Contains reports whether member belongs to the group.
func (g *PrivacyGroup) Contains(member string) bool {
	for _, m := range g.Members {
		if m == member {
			return true
		}
	}
	return false
}

// SendRequest stores a payload for a list of recipients.
type SendRequest struct {
	Payload string   `json:"payload"`
	From    string   `json:"from"`
	To      []string `json:"to"`
}

// SendToGroupRequest stores a payload for the members of a privacy group.
type SendToGroupRequest struct {
	Payload        string `json:"payload"`
	From           string `json:"from"`
	PrivacyGroupID string `json:"privacyGroupId"`
}

// SendResponse carries the key under which the payload was stored.
type SendResponse struct {
	Key string `json:"key"`
}

// ReceiveRequest fetches a stored payload on behalf of a recipient.
type ReceiveRequest struct {
	Key string `json:"key"`
	To  string `json:"to,omitempty"`
}

// ReceiveResponse is the decrypted payload and the group it was sent to.
type ReceiveResponse struct {
	Payload        string `json:"payload"`
	PrivacyGroupID string `json:"privacyGroupId"`
	SenderKey      string `json:"senderKey"`
}

type createPrivacyGroupRequest struct {
	Addresses   []string `json:"addresses"`
	From        string   `json:"from"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
}

type deletePrivacyGroupRequest struct {
	PrivacyGroupID string `json:"privacyGroupId"`
	From           string `json:"from"`
}

type findPrivacyGroupRequest struct {
	Addresses []string `json:"addresses"`
}

type retrievePrivacyGroupRequest struct {
	PrivacyGroupID string `json:"privacyGroupId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// decodeErrorMessage extracts a readable message from an enclave error body.
func decodeErrorMessage(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		return resp.Error
	}
	return string(body)
}
