// Package cometbft implements the consensus engine capability over an
// embedded CometBFT node. The node owns networking, BFT agreement and
// threshold signing; this package owns its lifecycle and translates its
// events into the session callbacks.
package cometbft

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	cfg "github.com/cometbft/cometbft/config"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"
	rpclocal "github.com/cometbft/cometbft/rpc/client/local"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/rs/zerolog"

	"github.com/dream-mind/dreamchain/consensus"
	"github.com/dream-mind/dreamchain/utils"
)

type eventKind int

const (
	eventProposed eventKind = iota
	eventFinalized
)

type engineEvent struct {
	kind   eventKind
	height uint64
	hash   string
}

// Engine drives one embedded CometBFT node. It implements both the engine
// capability and the session handle: CometBFT has no separate per-session
// object, one node is one consensus run.
type Engine struct {
	home string
	log  zerolog.Logger

	mu      sync.Mutex
	conf    *cfg.Config
	network *NetworkConfig
	pv      *privval.FilePV
	nodeKey *p2p.NodeKey
	app     *Application
	node    *node.Node
	client  *rpclocal.Local

	events   chan engineEvent
	quit     chan struct{}
	stopOnce sync.Once

	cbMu      sync.RWMutex
	proposed  consensus.ProposedFn
	finalized consensus.FinalizedFn
}

var _ consensus.Engine = (*Engine)(nil)
var _ consensus.SessionHandle = (*Engine)(nil)

// New builds an engine rooted at home (key material, genesis, databases).
func New(home string, log zerolog.Logger) *Engine {
	return &Engine{
		home:   home,
		log:    log,
		events: make(chan engineEvent, 1024),
		quit:   make(chan struct{}),
	}
}

// InitSigning loads or generates the node's signing key material: the
// validator key used for block signatures and the p2p node key.
func (e *Engine) InitSigning() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pv != nil {
		return nil
	}

	conf := cfg.DefaultConfig()
	conf.SetRoot(e.home)
	cfg.EnsureRoot(e.home)

	e.pv = privval.LoadOrGenFilePV(conf.PrivValidatorKeyFile(), conf.PrivValidatorStateFile())

	nodeKey, err := p2p.LoadOrGenNodeKey(conf.NodeKeyFile())
	if err != nil {
		return fmt.Errorf("load node key: %w", err)
	}
	e.nodeKey = nodeKey
	e.conf = conf

	e.log.Info().Str("home", e.home).Msg("signing subsystem initialized")
	return nil
}

// ParseNetworkConfig loads the topology document and maps it onto the
// CometBFT node configuration.
func (e *Engine) ParseNetworkConfig(path string) error {
	network, err := ParseNetworkFile(path)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conf == nil {
		return fmt.Errorf("signing subsystem not initialized")
	}

	self := network.selfNode()
	e.conf.Moniker = self.Name
	e.conf.P2P.ListenAddress = fmt.Sprintf("tcp://%s:%d", self.Host, self.P2PPort)
	e.conf.P2P.PersistentPeers = network.persistentPeers()
	e.conf.RPC.ListenAddress = fmt.Sprintf("tcp://%s:%d", self.Host, self.RPCPort)
	e.network = network

	return nil
}

// CreateSession builds the ABCI application for one consensus run. The
// topology must cover the requested committee size.
func (e *Engine) CreateSession(c consensus.Config) (consensus.SessionHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.network == nil {
		return nil, fmt.Errorf("network config not parsed")
	}
	if uint64(len(e.network.Nodes)) < c.NodeCount {
		return nil, fmt.Errorf("network config lists %d nodes, need %d", len(e.network.Nodes), c.NodeCount)
	}

	e.app = NewApplication(e.network.ChainID, e.events, e.log)
	return e, nil
}

// Start writes the genesis document if missing, boots the node and begins
// dispatching engine events to the registered callbacks.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.app == nil {
		return fmt.Errorf("no session created")
	}

	if err := e.ensureGenesis(); err != nil {
		return err
	}

	n, err := node.NewNode(
		e.conf,
		e.pv,
		e.nodeKey,
		proxy.NewLocalClientCreator(e.app),
		node.DefaultGenesisDocProviderFunc(e.conf),
		cfg.DefaultDBProvider,
		node.DefaultMetricsProvider(e.conf.Instrumentation),
		cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout)),
	)
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}

	if err := n.Start(); err != nil {
		return fmt.Errorf("start node: %w", err)
	}

	e.node = n
	e.client = rpclocal.New(n)
	go e.dispatch()

	e.log.Info().Str("chain", e.network.ChainID).Msg("consensus node started")
	return nil
}

// Stop halts the node and the event dispatcher. Idempotent.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		n := e.node
		e.mu.Unlock()

		if n != nil && n.IsRunning() {
			if err := n.Stop(); err != nil {
				e.log.Error().Err(err).Msg("failed to stop consensus node")
			}
		}
		close(e.quit)
	})
}

// IsWorking reports whether the node is live.
func (e *Engine) IsWorking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.node != nil && e.node.IsRunning()
}

// ProposeBlock submits block data to the mempool without waiting for
// agreement.
func (e *Engine) ProposeBlock(data []byte) error {
	e.mu.Lock()
	client := e.client
	e.mu.Unlock()

	if client == nil {
		return fmt.Errorf("node not started")
	}

	if _, err := client.BroadcastTxAsync(context.Background(), data); err != nil {
		return fmt.Errorf("broadcast tx: %w", err)
	}
	return nil
}

// OnBlockProposed registers the proposal callback.
func (e *Engine) OnBlockProposed(fn consensus.ProposedFn) {
	e.cbMu.Lock()
	defer e.cbMu.Unlock()
	e.proposed = fn
}

// OnBlockFinalized registers the finalization callback.
func (e *Engine) OnBlockFinalized(fn consensus.FinalizedFn) {
	e.cbMu.Lock()
	defer e.cbMu.Unlock()
	e.finalized = fn
}

// dispatch delivers engine events on a single goroutine, preserving the
// height order CometBFT produced them in.
func (e *Engine) dispatch() {
	for {
		select {
		case ev := <-e.events:
			e.cbMu.RLock()
			proposed := e.proposed
			finalized := e.finalized
			e.cbMu.RUnlock()

			switch ev.kind {
			case eventProposed:
				if proposed != nil {
					proposed(ev.hash)
				}
			case eventFinalized:
				if finalized != nil {
					finalized(ev.height, ev.hash)
				}
			}
		case <-e.quit:
			return
		}
	}
}

// ensureGenesis writes a single-validator genesis document on first run,
// signed for by this node's validator key.
func (e *Engine) ensureGenesis() error {
	genFile := e.conf.GenesisFile()
	if utils.FileExists(genFile) {
		return nil
	}

	pubKey, err := e.pv.GetPubKey()
	if err != nil {
		return fmt.Errorf("get validator pubkey: %w", err)
	}

	genDoc := cmttypes.GenesisDoc{
		ChainID:         e.network.ChainID,
		GenesisTime:     time.Now(),
		ConsensusParams: cmttypes.DefaultConsensusParams(),
		Validators: []cmttypes.GenesisValidator{{
			Address: pubKey.Address(),
			PubKey:  pubKey,
			Power:   1,
			Name:    e.conf.Moniker,
		}},
	}
	if err := genDoc.SaveAs(genFile); err != nil {
		return fmt.Errorf("write genesis: %w", err)
	}
	return nil
}
