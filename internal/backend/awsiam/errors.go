package awsiam

import (
	"errors"

	"github.com/aws/smithy-go"

	"osbridge/internal/apperr"
)

// classify maps backend API error codes onto the bridge taxonomy, once, at
// the transport boundary.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "NoSuchEntity", "NoSuchBucket":
			return apperr.Wrap(apperr.ClassNotFound, err, op)
		case "EntityAlreadyExists":
			return apperr.Wrap(apperr.ClassConflict, err, op)
		case "AccessDenied", "AccessDeniedException", "UnauthorizedAccess", "InvalidClientTokenId":
			return apperr.Wrap(apperr.ClassAuthorizationDenied, err, op)
		case "MalformedPolicyDocument", "ValidationError", "InvalidInput":
			return apperr.Wrap(apperr.ClassBadRequest, err, op)
		}
	}
	return apperr.Wrap(apperr.ClassUnavailable, err, op)
}

// classifyStatus maps admin REST channel HTTP statuses.
func classifyStatus(status int, err error, op string) error {
	switch status {
	case 400:
		return apperr.Wrap(apperr.ClassBadRequest, err, op)
	case 403:
		return apperr.Wrap(apperr.ClassAuthorizationDenied, err, op)
	case 404:
		return apperr.Wrap(apperr.ClassNotFound, err, op)
	case 409:
		return apperr.Wrap(apperr.ClassConflict, err, op)
	default:
		return apperr.Wrap(apperr.ClassUnavailable, err, op)
	}
}
