package auction

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is wrapped by every error reporting that a command's
// precondition did not hold. Such rejections leave the room untouched.
var ErrInvalidTransition = errors.New("invalid transition")

// Errors returned by room commands.
var (
	ErrNotStarted      = fmt.Errorf("%w: auction has not started", ErrInvalidTransition)
	ErrAuctionFinished = fmt.Errorf("%w: auction is finished", ErrInvalidTransition)
	ErrNoLeadingBid    = fmt.Errorf("%w: no leading bid on the lot", ErrInvalidTransition)
	ErrLotContested    = fmt.Errorf("%w: lot has a standing bid", ErrInvalidTransition)
	ErrAtFirstLot      = fmt.Errorf("%w: already at the first lot", ErrInvalidTransition)
	ErrNothingToUndo   = fmt.Errorf("%w: no bid to undo", ErrInvalidTransition)

	ErrInsufficientBudget = errors.New("insufficient budget")
	ErrUnknownTeam        = errors.New("unknown team")
	ErrUnknownPlayer      = errors.New("unknown player")
)

// ErrNotPersisted is returned when a command's events could not be
// journaled. The command is not applied.
var ErrNotPersisted = errors.New("room events not persisted")
