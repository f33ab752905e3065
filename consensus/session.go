package consensus

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dream-mind/dreamchain/core"
)

// State is the lifecycle of a session. Stopped is terminal.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Session manages one consensus run over an injected Engine: configuration,
// start, proposal submission and delivery of the proposed/finalized
// callbacks. Lifecycle transitions (Initialize, Stop) must be serialized by
// the caller; proposals and state queries may run concurrently with engine
// callbacks.
type Session struct {
	mu     sync.Mutex
	state  State
	engine Engine
	handle SessionHandle

	cbMu      sync.RWMutex
	proposed  ProposedFn
	finalized FinalizedFn

	log zerolog.Logger
}

// NewSession wraps the given engine. The session starts uninitialized.
func NewSession(engine Engine, log zerolog.Logger) *Session {
	return &Session{
		state:  StateUninitialized,
		engine: engine,
		log:    log,
	}
}

// OnBlockProposed registers the callback forwarded from the engine when a
// block enters the agreement pipeline. Register before Initialize.
func (s *Session) OnBlockProposed(fn ProposedFn) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.proposed = fn
}

// OnBlockFinalized registers the callback forwarded from the engine when a
// block is finalized. Register before Initialize.
func (s *Session) OnBlockFinalized(fn FinalizedFn) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.finalized = fn
}

// Initialize validates the agreement parameters, sets up the signing
// subsystem, constructs and starts the engine. Any failure rolls the
// session back to uninitialized and surfaces ErrConsensusInit (or
// ErrInvalidConfig for bad parameters). A second call fails with
// ErrAlreadyInitialized.
func (s *Session) Initialize(nodeCount, requiredSignatures uint64, networkConfigPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUninitialized {
		return fmt.Errorf("%w: session is %s", ErrAlreadyInitialized, s.state)
	}

	cfg := Config{NodeCount: nodeCount, RequiredSignatures: requiredSignatures}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.state = StateInitializing
	if err := s.startEngine(cfg, networkConfigPath); err != nil {
		s.state = StateUninitialized
		s.handle = nil
		s.engine.Stop()
		return err
	}

	s.state = StateRunning
	s.log.Info().
		Uint64("node_count", nodeCount).
		Uint64("required_signatures", requiredSignatures).
		Msg("consensus session running")
	return nil
}

func (s *Session) startEngine(cfg Config, networkConfigPath string) error {
	if err := s.engine.InitSigning(); err != nil {
		return fmt.Errorf("%w: signing subsystem: %v", ErrConsensusInit, err)
	}

	if err := s.engine.ParseNetworkConfig(networkConfigPath); err != nil {
		return fmt.Errorf("%w: network config: %v", ErrConsensusInit, err)
	}

	handle, err := s.engine.CreateSession(cfg)
	if err != nil {
		return fmt.Errorf("%w: create session: %v", ErrConsensusInit, err)
	}

	// Callbacks must be in place before the engine starts delivering.
	handle.OnBlockProposed(s.forwardProposed)
	handle.OnBlockFinalized(s.forwardFinalized)

	if err := s.engine.Start(); err != nil {
		return fmt.Errorf("%w: start: %v", ErrConsensusInit, err)
	}

	s.handle = handle
	return nil
}

// ProposeBlock encodes the proposer id and dream payload into a tagged
// envelope and submits it to the engine. It fails with ErrNotRunning unless
// the session is running, and never blocks on finalization.
func (s *Session) ProposeBlock(proposerID, payload string) error {
	s.mu.Lock()
	handle := s.handle
	state := s.state
	s.mu.Unlock()

	if state != StateRunning {
		return fmt.Errorf("%w: session is %s", ErrNotRunning, state)
	}

	tx := core.NewDreamTx(proposerID, payload)
	data, err := tx.Encode()
	if err != nil {
		return err
	}

	s.log.Debug().Str("proposal", tx.ID).Str("proposer", proposerID).Msg("submitting dream block")
	return handle.ProposeBlock(data)
}

// IsRunning reports whether the session is running and the engine is live.
func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state == StateRunning && s.engine.IsWorking()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Stop releases the engine and moves the session to its terminal state. It
// is idempotent and safe to call before Initialize.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped {
		return
	}
	if s.state == StateRunning {
		s.engine.Stop()
	}
	s.state = StateStopped
	s.log.Info().Msg("consensus session stopped")
}

func (s *Session) forwardProposed(blockHash string) {
	s.cbMu.RLock()
	fn := s.proposed
	s.cbMu.RUnlock()

	if fn != nil {
		fn(blockHash)
	}
}

func (s *Session) forwardFinalized(blockNumber uint64, blockHash string) {
	s.cbMu.RLock()
	fn := s.finalized
	s.cbMu.RUnlock()

	if fn != nil {
		fn(blockNumber, blockHash)
	}
}
