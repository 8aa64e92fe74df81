package console

import (
	"errors"

	"github.com/sparknexora/backoffice/internal/domain/shared"
	"github.com/sparknexora/backoffice/internal/infrastructure/apiclient"
)

var (
	// ErrConfirmationAborted is returned for a cancelled destructive action.
	// It is never shown to the operator.
	ErrConfirmationAborted = errors.New("confirmation aborted")

	// ErrSignedOut is returned by every console operation without a session
	ErrSignedOut = shared.NewDomainError("SIGNED_OUT", "Please log in to continue")

	ErrUnknownConfirmation = shared.NewDomainError("CONFIRMATION_NOT_FOUND", "This action is no longer pending")
	ErrUnknownTab          = shared.NewDomainError("TAB_NOT_FOUND", "Unknown console tab")
	ErrInvalidPage         = shared.NewDomainError("INVALID_PAGE", "Page is out of range")
)

// operatorMessage turns a backend failure into text fit for a notification
func operatorMessage(err error, fallback string) string {
	var rejected *apiclient.ServerRejectedError
	switch {
	case errors.As(err, &rejected):
		return rejected.UserMessage(fallback)
	case errors.Is(err, apiclient.ErrNetworkUnreachable):
		return "Unable to reach the server. Please try again."
	case errors.Is(err, apiclient.ErrMalformedResponse):
		return "Unexpected response from server"
	default:
		return fallback
	}
}
