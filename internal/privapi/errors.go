package privapi

import (
	"errors"

	"github.com/tos-network/gpriv/enclave"
	"github.com/tos-network/gpriv/privacy"
)

const (
	errInvalidParams = -32602

	privErrPrivateFromMismatch  = -50100
	privErrGroupNotFound        = -50101
	privErrGroupMembership      = -50102
	privErrMalformedPrivateArgs = -50103
	privErrIllegalGroupType     = -50104
	privErrEnclave              = -50200
)

var (
	errPrivateFromMismatch = &apiError{code: privErrPrivateFromMismatch, message: "private from does not match enclave public key"}
	errGroupNotFound       = &apiError{code: privErrGroupNotFound, message: "privacy group does not exist"}
)

// apiError is a JSON-RPC error with stable application code and optional data payload.
type apiError struct {
	code    int
	message string
	data    interface{}
}

func (e *apiError) Error() string          { return e.message }
func (e *apiError) ErrorCode() int         { return e.code }
func (e *apiError) ErrorData() interface{} { return e.data }

func invalidParams(message string, err error) error {
	e := &apiError{code: errInvalidParams, message: message}
	if err != nil {
		e.data = map[string]interface{}{"reason": err.Error()}
	}
	return e
}

// toAPIError maps controller and enclave failures to RPC errors.
func toAPIError(err error) error {
	var encErr *enclave.Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, privacy.ErrPrivacyGroupMembershipViolation):
		return &apiError{code: privErrGroupMembership, message: err.Error()}
	case errors.Is(err, enclave.ErrPrivacyGroupNotFound):
		return &apiError{code: privErrGroupNotFound, message: errGroupNotFound.message}
	case errors.Is(err, privacy.ErrMalformedPrivateArgs), errors.Is(err, privacy.ErrMissingPrivateContract):
		return &apiError{code: privErrMalformedPrivateArgs, message: err.Error()}
	case errors.Is(err, privacy.ErrIllegalPrivacyGroupType), errors.Is(err, privacy.ErrMissingPrivacyGroupID):
		return &apiError{code: privErrIllegalGroupType, message: err.Error()}
	case errors.As(err, &encErr):
		return &apiError{
			code:    privErrEnclave,
			message: "enclave error",
			data:    map[string]interface{}{"status": encErr.Status, "reason": encErr.Message},
		}
	}
	return err
}
