// Package consensustest provides a deterministic in-memory consensus engine
// for tests. It implements both the engine capability and its session
// handle, invoking callbacks synchronously so tests do not need to wait.
package consensustest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/dream-mind/dreamchain/consensus"
)

// Engine is a fake BFT engine. Submitted blocks are recorded; with
// AutoFinalize set, every submission is immediately reported as proposed
// and then finalized at the next height, on the caller's goroutine.
type Engine struct {
	// Failure switches, set before use.
	FailSigning       bool
	FailNetworkConfig bool
	FailCreateSession bool
	FailStart         bool

	// AutoFinalize finalizes every submission synchronously.
	AutoFinalize bool

	mu          sync.Mutex
	working     bool
	signingInit bool
	networkPath string
	cfg         consensus.Config
	submissions [][]byte
	height      uint64

	proposed  consensus.ProposedFn
	finalized consensus.FinalizedFn
}

var _ consensus.Engine = (*Engine)(nil)
var _ consensus.SessionHandle = (*Engine)(nil)

// New returns a fake engine that finalizes submissions synchronously.
func New() *Engine {
	return &Engine{AutoFinalize: true}
}

func (e *Engine) InitSigning() error {
	if e.FailSigning {
		return errors.New("signing init refused")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.signingInit = true
	return nil
}

func (e *Engine) ParseNetworkConfig(path string) error {
	if e.FailNetworkConfig {
		return errors.New("network config refused")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.networkPath = path
	return nil
}

func (e *Engine) CreateSession(cfg consensus.Config) (consensus.SessionHandle, error) {
	if e.FailCreateSession {
		return nil, errors.New("create session refused")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	return e, nil
}

func (e *Engine) Start() error {
	if e.FailStart {
		return errors.New("start refused")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.working = true
	return nil
}

func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.working = false
}

func (e *Engine) IsWorking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.working
}

func (e *Engine) ProposeBlock(data []byte) error {
	e.mu.Lock()
	if !e.working {
		e.mu.Unlock()
		return errors.New("engine not working")
	}
	e.submissions = append(e.submissions, data)
	auto := e.AutoFinalize
	e.mu.Unlock()

	if auto {
		e.FinalizeNext(data)
	}
	return nil
}

func (e *Engine) OnBlockProposed(fn consensus.ProposedFn) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.proposed = fn
}

func (e *Engine) OnBlockFinalized(fn consensus.FinalizedFn) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finalized = fn
}

// FinalizeNext reports data as proposed and finalized at the next height.
func (e *Engine) FinalizeNext(data []byte) {
	hash := BlockHash(data)

	e.mu.Lock()
	e.height++
	height := e.height
	proposed := e.proposed
	finalized := e.finalized
	e.mu.Unlock()

	if proposed != nil {
		proposed(hash)
	}
	if finalized != nil {
		finalized(height, hash)
	}
}

// Submissions returns a copy of everything submitted so far.
func (e *Engine) Submissions() [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([][]byte, len(e.submissions))
	copy(out, e.submissions)
	return out
}

// SigningInitialized reports whether InitSigning ran.
func (e *Engine) SigningInitialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.signingInit
}

// NetworkConfigPath returns the path passed to ParseNetworkConfig.
func (e *Engine) NetworkConfigPath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.networkPath
}

// Config returns the agreement parameters of the created session.
func (e *Engine) Config() consensus.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// BlockHash is the fake engine's block hash: hex of sha256 over the data.
func BlockHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
