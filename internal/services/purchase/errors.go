package purchase

import (
	"errors"
	"fmt"
)

type Stage string

const (
	StageValidating Stage = "VALIDATING"
	StagePricing    Stage = "PRICING"
	StageSettling   Stage = "SETTLING"
	StageRecording  Stage = "RECORDING"
	StageCompleted  Stage = "COMPLETED"
)

var (
	ErrEmptyCheckout      = errors.New("checkout requires at least one game")
	ErrGameNotFound       = errors.New("game not found")
	ErrGameAlreadyOwned   = errors.New("game already owned")
	ErrSelfPurchase       = errors.New("cannot purchase your own game")
	ErrInvalidPrice       = errors.New("game has an invalid price")
	ErrCheckoutInProgress = errors.New("another checkout is in progress for this user")
)

// AbortError reports the stage a checkout stopped at. The checkout's
// transaction has been rolled back when this is returned.
type AbortError struct {
	Stage  Stage
	GameID int64 // zero when the failure is not item-specific
	Err    error
}

func (e *AbortError) Error() string {
	if e.GameID != 0 {
		return fmt.Sprintf("checkout aborted at %s (game %d): %v", e.Stage, e.GameID, e.Err)
	}

	return fmt.Sprintf("checkout aborted at %s: %v", e.Stage, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

func abort(stage Stage, gameID int64, err error) *AbortError {
	return &AbortError{Stage: stage, GameID: gameID, Err: err}
}
