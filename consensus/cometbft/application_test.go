package cometbft

import (
	"context"
	"encoding/hex"
	"testing"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dream-mind/dreamchain/core"
)

func encodedTx(t *testing.T, proposer, dreamData string) []byte {
	t.Helper()
	data, err := core.NewDreamTx(proposer, dreamData).Encode()
	require.NoError(t, err)
	return data
}

func TestCheckTx(t *testing.T) {
	app := NewApplication("test", make(chan engineEvent, 8), zerolog.Nop())

	resp, err := app.CheckTx(context.Background(), &abcitypes.RequestCheckTx{Tx: encodedTx(t, "alice", "a dream")})
	require.NoError(t, err)
	assert.Zero(t, resp.Code)

	resp, err = app.CheckTx(context.Background(), &abcitypes.RequestCheckTx{Tx: []byte("alice:raw")})
	require.NoError(t, err)
	assert.NotZero(t, resp.Code)
}

func TestPrepareProposalFiltersMalformed(t *testing.T) {
	app := NewApplication("test", make(chan engineEvent, 8), zerolog.Nop())

	good := encodedTx(t, "alice", "keep me")
	resp, err := app.PrepareProposal(context.Background(), &abcitypes.RequestPrepareProposal{
		Txs: [][]byte{good, []byte("garbage")},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{good}, resp.Txs)
}

func TestProcessProposal(t *testing.T) {
	events := make(chan engineEvent, 8)
	app := NewApplication("test", events, zerolog.Nop())

	hash := []byte{0xde, 0xad, 0xbe, 0xef}
	resp, err := app.ProcessProposal(context.Background(), &abcitypes.RequestProcessProposal{
		Height: 1,
		Hash:   hash,
		Txs:    [][]byte{encodedTx(t, "alice", "a dream")},
	})
	require.NoError(t, err)
	assert.Equal(t, abcitypes.ResponseProcessProposal_ACCEPT, resp.Status)

	ev := <-events
	assert.Equal(t, eventProposed, ev.kind)
	assert.Equal(t, hex.EncodeToString(hash), ev.hash)
}

func TestProcessProposalRejectsMalformed(t *testing.T) {
	events := make(chan engineEvent, 8)
	app := NewApplication("test", events, zerolog.Nop())

	resp, err := app.ProcessProposal(context.Background(), &abcitypes.RequestProcessProposal{
		Height: 1,
		Txs:    [][]byte{[]byte("garbage")},
	})
	require.NoError(t, err)
	assert.Equal(t, abcitypes.ResponseProcessProposal_REJECT, resp.Status)
	assert.Empty(t, events)
}

func TestFinalizeBlock(t *testing.T) {
	events := make(chan engineEvent, 8)
	app := NewApplication("test", events, zerolog.Nop())

	hash := []byte{0xca, 0xfe}
	resp, err := app.FinalizeBlock(context.Background(), &abcitypes.RequestFinalizeBlock{
		Height: 42,
		Hash:   hash,
		Txs:    [][]byte{encodedTx(t, "alice", "a dream"), []byte("garbage")},
	})
	require.NoError(t, err)
	require.Len(t, resp.TxResults, 2)
	assert.Zero(t, resp.TxResults[0].Code)
	assert.NotZero(t, resp.TxResults[1].Code)

	ev := <-events
	assert.Equal(t, eventFinalized, ev.kind)
	assert.Equal(t, uint64(42), ev.height)
	assert.Equal(t, hex.EncodeToString(hash), ev.hash)
}
