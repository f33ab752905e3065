package cometbft

import (
	"context"
	"encoding/hex"
	"fmt"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/rs/zerolog"

	"github.com/dream-mind/dreamchain/core"
)

// Application is the ABCI program backing the dream chain. Transactions are
// tagged dream envelopes; anything that does not decode is rejected before
// it can enter a block. Proposal and finalization events are emitted into
// the engine's dispatch channel, never blocking CometBFT's callback
// goroutines on user code directly.
type Application struct {
	*abcitypes.BaseApplication

	chainID string
	events  chan<- engineEvent
	log     zerolog.Logger
}

// NewApplication builds the ABCI app, emitting consensus events into events.
func NewApplication(chainID string, events chan<- engineEvent, log zerolog.Logger) *Application {
	return &Application{
		BaseApplication: abcitypes.NewBaseApplication(),
		chainID:         chainID,
		events:          events,
		log:             log,
	}
}

// Info reports the application identity to the node on handshake.
func (app *Application) Info(_ context.Context, req *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	return &abcitypes.ResponseInfo{
		Data:       "DreamChain",
		Version:    "1.0.0",
		AppVersion: 1,
	}, nil
}

// CheckTx admits only well-formed dream envelopes into the mempool.
func (app *Application) CheckTx(_ context.Context, req *abcitypes.RequestCheckTx) (*abcitypes.ResponseCheckTx, error) {
	if _, err := core.DecodeDreamTx(req.Tx); err != nil {
		return &abcitypes.ResponseCheckTx{
			Code: 1,
			Log:  fmt.Sprintf("invalid dream tx: %v", err),
		}, nil
	}
	return &abcitypes.ResponseCheckTx{Code: 0}, nil
}

// PrepareProposal is called when this node is the proposer. Malformed
// transactions are filtered out of the block.
func (app *Application) PrepareProposal(_ context.Context, req *abcitypes.RequestPrepareProposal) (*abcitypes.ResponsePrepareProposal, error) {
	var validTxs [][]byte
	for _, tx := range req.Txs {
		dream, err := core.DecodeDreamTx(tx)
		if err != nil {
			app.log.Warn().Err(err).Msg("dropping malformed tx from proposal")
			continue
		}
		app.log.Debug().Str("proposal", dream.ID).Str("proposer", dream.Proposer).Msg("including dream tx in block")
		validTxs = append(validTxs, tx)
	}
	return &abcitypes.ResponsePrepareProposal{Txs: validTxs}, nil
}

// ProcessProposal validates a proposed block and reports it as entered into
// the agreement pipeline.
func (app *Application) ProcessProposal(_ context.Context, req *abcitypes.RequestProcessProposal) (*abcitypes.ResponseProcessProposal, error) {
	for _, tx := range req.Txs {
		if _, err := core.DecodeDreamTx(tx); err != nil {
			app.log.Warn().Err(err).Int64("height", req.Height).Msg("rejecting block with malformed tx")
			return &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}, nil
		}
	}

	app.events <- engineEvent{
		kind: eventProposed,
		hash: hex.EncodeToString(req.Hash),
	}

	return &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_ACCEPT}, nil
}

// FinalizeBlock executes an agreed block and reports its finalization.
// CometBFT calls it exactly once per height, in height order.
func (app *Application) FinalizeBlock(_ context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	results := make([]*abcitypes.ExecTxResult, len(req.Txs))
	for i, tx := range req.Txs {
		if _, err := core.DecodeDreamTx(tx); err != nil {
			results[i] = &abcitypes.ExecTxResult{Code: 1, Log: err.Error()}
			continue
		}
		results[i] = &abcitypes.ExecTxResult{Code: 0}
	}

	app.events <- engineEvent{
		kind:   eventFinalized,
		height: uint64(req.Height),
		hash:   hex.EncodeToString(req.Hash),
	}

	return &abcitypes.ResponseFinalizeBlock{TxResults: results}, nil
}

// Commit acknowledges block persistence.
func (app *Application) Commit(_ context.Context, _ *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	return &abcitypes.ResponseCommit{}, nil
}
