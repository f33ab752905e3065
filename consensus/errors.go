package consensus

import "errors"

var (
	// ErrInvalidConfig means the requiredSignatures/nodeCount constraint
	// does not hold.
	ErrInvalidConfig = errors.New("consensus config invalid")

	// ErrAlreadyInitialized means Initialize was called on a session that
	// already left the uninitialized state.
	ErrAlreadyInitialized = errors.New("consensus session already initialized")

	// ErrNotRunning means an operation needs a running session.
	ErrNotRunning = errors.New("consensus session not running")

	// ErrConsensusInit means the engine or its signing subsystem failed to
	// start.
	ErrConsensusInit = errors.New("consensus engine failed to initialize")
)
