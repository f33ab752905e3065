// Package dream composes the agent registry and the consensus session into
// the dream block proposal workflow: authorization first, then agreement,
// then finalized chain state.
package dream

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dream-mind/dreamchain/communication"
	"github.com/dream-mind/dreamchain/consensus"
	"github.com/dream-mind/dreamchain/registry"
)

// ErrUnauthorized means the proposer lacks the propose permission.
var ErrUnauthorized = errors.New("proposer not authorized")

// PermissionPropose is the permission an agent needs to propose dream
// blocks.
const PermissionPropose = "propose"

// chainState is the finalized view: height and latest block hash move as
// one snapshot, so readers never see a torn pair.
type chainState struct {
	height     uint64
	latestHash string
}

// Controller is the public façade over registry and consensus. No
// unauthorized payload ever reaches the consensus engine: the permission
// check strictly precedes submission.
type Controller struct {
	registry *registry.Registry
	session  *consensus.Session

	networkConfigPath string

	mu    sync.RWMutex
	state chainState

	journal *communication.Journal

	log zerolog.Logger
}

// NewController wires a controller over the given registry and engine. The
// network config path is handed to the session on Initialize. journal may
// be nil.
func NewController(reg *registry.Registry, engine consensus.Engine, networkConfigPath string, journal *communication.Journal, log zerolog.Logger) *Controller {
	c := &Controller{
		registry:          reg,
		networkConfigPath: networkConfigPath,
		journal:           journal,
		log:               log,
	}

	c.session = consensus.NewSession(engine, log)
	c.session.OnBlockProposed(c.onBlockProposed)
	c.session.OnBlockFinalized(c.onBlockFinalized)

	return c
}

// Initialize starts the consensus session with the given agreement
// parameters.
func (c *Controller) Initialize(nodeCount, requiredSignatures uint64) error {
	return c.session.Initialize(nodeCount, requiredSignatures, c.networkConfigPath)
}

// ProposeDreamBlock submits dreamData on behalf of the named proposer. The
// proposer's registered address must hold the propose permission, otherwise
// ErrUnauthorized; the session must be running, otherwise ErrNotRunning.
func (c *Controller) ProposeDreamBlock(proposerID, dreamData string) error {
	addr := c.registry.GetAgentAddress(proposerID)
	if addr == "" || !c.registry.HasPermission(addr, PermissionPropose) {
		c.log.Warn().Str("proposer", proposerID).Msg("rejected unauthorized dream block proposal")
		return fmt.Errorf("%w: agent %q", ErrUnauthorized, proposerID)
	}

	return c.session.ProposeBlock(proposerID, dreamData)
}

// GetLatestDreamBlock returns the hash of the most recently finalized dream
// block, or "" before the first finalization.
func (c *Controller) GetLatestDreamBlock() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state.latestHash
}

// GetBlockHeight returns the latest finalized height, zero before the first
// finalization.
func (c *Controller) GetBlockHeight() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state.height
}

// Status returns the finalized height and hash as one consistent snapshot.
func (c *Controller) Status() (uint64, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state.height, c.state.latestHash
}

// IsConsensusRunning reports whether the session is live.
func (c *Controller) IsConsensusRunning() bool {
	return c.session.IsRunning()
}

// Stop tears the session down. Safe to call more than once.
func (c *Controller) Stop() {
	c.session.Stop()
}

func (c *Controller) onBlockProposed(blockHash string) {
	c.log.Debug().Str("hash", blockHash).Msg("dream block entered agreement")
	communication.PublishBlockEvent(communication.EventBlockProposed, 0, blockHash)
}

func (c *Controller) onBlockFinalized(blockNumber uint64, blockHash string) {
	c.mu.Lock()
	c.state = chainState{height: blockNumber, latestHash: blockHash}
	c.mu.Unlock()

	c.log.Info().Uint64("height", blockNumber).Str("hash", blockHash).Msg("dream block finalized")

	if c.journal != nil {
		if err := c.journal.Append(blockNumber, blockHash); err != nil {
			c.log.Error().Err(err).Msg("failed to journal finalized block")
		}
	}
	communication.PublishBlockEvent(communication.EventBlockFinalized, blockNumber, blockHash)
}
