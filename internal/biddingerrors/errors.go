package biddingerrors

import "errors"

// Repository-level errors
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrProjectExists   = errors.New("project already exists")
	ErrBidNotFound     = errors.New("bid not found")
	ErrHandleTaken     = errors.New("handle already allocated")
)

// validation errors, client-correctable and free of side effects
var (
	ErrInvalidBid            = errors.New("invalid bid")
	ErrInvalidProject        = errors.New("invalid project")
	ErrAmountOutOfRange      = errors.New("bid amount outside project budget")
	ErrRateLimited           = errors.New("bid updated too frequently")
	ErrParticipantCapReached = errors.New("participant cap reached")
	ErrInvalidSelection      = errors.New("selected handle is not in the final ranking")
	ErrNoActiveBid           = errors.New("participant has no active bid")
)

// state errors, a timing mismatch between caller and server
var (
	ErrAuctionNotOpen = errors.New("auction is not open for bidding")
	ErrInvalidState   = errors.New("action not allowed in current auction state")
)

// IsValidation reports whether err is a client-correctable validation error
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidBid, ErrInvalidProject, ErrAmountOutOfRange, ErrRateLimited,
		ErrParticipantCapReached, ErrInvalidSelection, ErrNoActiveBid,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsStateError reports whether err reflects the auction lifecycle
func IsStateError(err error) bool {
	return errors.Is(err, ErrAuctionNotOpen) || errors.Is(err, ErrInvalidState)
}
