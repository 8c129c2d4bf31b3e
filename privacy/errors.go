package privacy

import "errors"

var (
	// ErrMalformedPrivateArgs is returned when the private set cannot be
	// decoded from a transaction's private arguments.
	ErrMalformedPrivateArgs = errors.New("malformed private args")

	// ErrIllegalPrivacyGroupType means a group of the wrong type reached the
	// grouped submission path. It indicates a group resolution bug upstream.
	ErrIllegalPrivacyGroupType = errors.New("illegal privacy group type")

	// ErrPrivacyGroupMembershipViolation is returned when the privacy user is
	// not a member of the addressed group.
	ErrPrivacyGroupMembershipViolation = errors.New("privacy group must contain the enclave public key")

	ErrMissingPrivateContract = errors.New("private set append without a target contract")
	ErrMissingPrivacyGroupID  = errors.New("grouped submission without a privacy group id")
)
