package repository

import "errors"

var (
	// ErrAlreadyProcessed reports that a conditional transition matched no row because
	// the row already left the expected source state.
	ErrAlreadyProcessed = errors.New("row already processed")
	// ErrOutOfScope reports that the row exists but lies outside the actor's location.
	ErrOutOfScope = errors.New("row outside actor scope")
	// ErrWorkOrderClosed reports a reassignment attempted on a completed work order.
	ErrWorkOrderClosed = errors.New("work order closed")
)
