package consensus

import "fmt"

// ProposedFn observes a block accepted into the engine's agreement
// pipeline. It is invoked from an engine-managed goroutine.
type ProposedFn func(blockHash string)

// FinalizedFn observes an irrevocably agreed block. The engine delivers it
// exactly once per height, in strictly increasing height order.
type FinalizedFn func(blockNumber uint64, blockHash string)

// Config carries the agreement parameters for one consensus run. It is
// immutable after Initialize.
type Config struct {
	NodeCount          uint64
	RequiredSignatures uint64
}

// Validate checks 1 <= RequiredSignatures <= NodeCount.
func (c Config) Validate() error {
	if c.NodeCount < 1 {
		return fmt.Errorf("%w: node count %d must be at least 1", ErrInvalidConfig, c.NodeCount)
	}
	if c.RequiredSignatures < 1 || c.RequiredSignatures > c.NodeCount {
		return fmt.Errorf("%w: required signatures %d must be between 1 and node count %d",
			ErrInvalidConfig, c.RequiredSignatures, c.NodeCount)
	}
	return nil
}

// Engine is the capability surface of the external BFT engine. It is
// injected into a Session at construction so tests can substitute a
// deterministic double. The engine owns its own goroutines; Start and Stop
// bracket them.
type Engine interface {
	// InitSigning performs the one-time signing subsystem setup. It runs
	// before the engine is constructed and is idempotent per engine.
	InitSigning() error

	// ParseNetworkConfig loads the network topology (per-node host, port
	// and identity) from the given source.
	ParseNetworkConfig(path string) error

	// CreateSession builds a session handle for one consensus run.
	CreateSession(cfg Config) (SessionHandle, error)

	// Start launches the engine's agreement pipeline.
	Start() error

	// Stop releases the engine. It is idempotent.
	Stop()

	// IsWorking reports whether the engine is live.
	IsWorking() bool
}

// SessionHandle accepts proposals and delivers engine events for one
// consensus run.
type SessionHandle interface {
	// ProposeBlock submits opaque block data to the agreement pipeline.
	// It returns once the submission is accepted and never waits for
	// finalization.
	ProposeBlock(data []byte) error

	// OnBlockProposed registers the proposal callback. Must be called
	// before Engine.Start.
	OnBlockProposed(fn ProposedFn)

	// OnBlockFinalized registers the finalization callback. Must be
	// called before Engine.Start.
	OnBlockFinalized(fn FinalizedFn)
}
