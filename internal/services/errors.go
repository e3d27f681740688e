package services

import (
	"errors"

	"github.com/ajramos/mailflow/internal/api"
)

// Standard service errors
var (
	// Collection errors
	ErrNothingPending = errors.New("no delete pending")
	ErrSuperseded     = errors.New("load superseded by a newer request")
	ErrNotLoaded      = errors.New("item not in the loaded collection")

	// Edit buffer errors
	ErrEditInProgress = errors.New("save in progress")
	ErrNotEditing     = errors.New("not in edit mode")

	// Chat errors
	ErrChatBusy     = errors.New("waiting for the assistant")
	ErrEmptyMessage = errors.New("message is empty")

	// Inbox errors
	ErrDraftInFlight = errors.New("draft generation already running for this email")

	// Preference store errors
	ErrStoreUnavailable = errors.New("preference store not available")
)

// IsValidationError reports whether err was raised before any network I/O
func IsValidationError(err error) bool {
	return errors.Is(err, api.ErrInvalidRequest) ||
		errors.Is(err, ErrEmptyMessage)
}

// IsRemoteError reports whether the backend answered with a non-2xx status
func IsRemoteError(err error) bool {
	return errors.Is(err, api.ErrRequestFailed)
}
