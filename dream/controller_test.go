package dream_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dream-mind/dreamchain/communication"
	"github.com/dream-mind/dreamchain/consensus"
	"github.com/dream-mind/dreamchain/consensus/consensustest"
	"github.com/dream-mind/dreamchain/core"
	"github.com/dream-mind/dreamchain/dream"
	"github.com/dream-mind/dreamchain/registry"
)

var aliceAddr = "0x" + strings.Repeat("a", 40)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dreamchain.json")
	config := `{
		"agents": {
			"alice": {"address": "` + aliceAddr + `", "role": "dreamer", "permissions": ["propose"]},
			"watcher": {"address": "0x` + strings.Repeat("b", 40) + `", "role": "observer", "permissions": ["observe"]}
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(config), 0644))

	reg, err := registry.New(path, zerolog.Nop())
	require.NoError(t, err)
	return reg
}

func newController(t *testing.T, engine *consensustest.Engine) *dream.Controller {
	t.Helper()
	return dream.NewController(testRegistry(t), engine, "network.json", nil, zerolog.Nop())
}

func TestProposeBeforeInitialize(t *testing.T) {
	c := newController(t, consensustest.New())
	err := c.ProposeDreamBlock("alice", "a dream")
	assert.ErrorIs(t, err, consensus.ErrNotRunning)
}

func TestProposeUnauthorized(t *testing.T) {
	engine := consensustest.New()
	c := newController(t, engine)
	require.NoError(t, c.Initialize(1, 1))

	// unknown agent
	err := c.ProposeDreamBlock("nobody", "a dream")
	assert.ErrorIs(t, err, dream.ErrUnauthorized)

	// known agent without the propose permission
	err = c.ProposeDreamBlock("watcher", "a dream")
	assert.ErrorIs(t, err, dream.ErrUnauthorized)

	// nothing reached the engine
	assert.Empty(t, engine.Submissions())
	assert.Zero(t, c.GetBlockHeight())
}

func TestProposeAuthorized(t *testing.T) {
	engine := consensustest.New()
	c := newController(t, engine)
	require.NoError(t, c.Initialize(1, 1))

	require.NoError(t, c.ProposeDreamBlock("alice", "a city folded into a tide"))

	subs := engine.Submissions()
	require.Len(t, subs, 1)
	tx, err := core.DecodeDreamTx(subs[0])
	require.NoError(t, err)
	assert.Equal(t, "alice", tx.Proposer)

	assert.Equal(t, uint64(1), c.GetBlockHeight())
	assert.Equal(t, consensustest.BlockHash(subs[0]), c.GetLatestDreamBlock())
}

func TestInitializeInvalidConfig(t *testing.T) {
	c := newController(t, consensustest.New())
	err := c.Initialize(1, 2)
	assert.ErrorIs(t, err, consensus.ErrInvalidConfig)
	assert.False(t, c.IsConsensusRunning())
}

func TestFinalizationOrdering(t *testing.T) {
	engine := consensustest.New()
	engine.AutoFinalize = false
	c := newController(t, engine)
	require.NoError(t, c.Initialize(1, 1))

	blocks := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	var lastHeight uint64
	for _, b := range blocks {
		engine.FinalizeNext(b)

		height, hash := c.Status()
		assert.GreaterOrEqual(t, height, lastHeight)
		lastHeight = height

		// the pair is never torn: hash always matches the height's block
		assert.Equal(t, consensustest.BlockHash(b), hash)
		assert.Equal(t, height, c.GetBlockHeight())
		assert.Equal(t, hash, c.GetLatestDreamBlock())
	}
	assert.Equal(t, uint64(3), lastHeight)
}

func TestDefaultsBeforeFirstFinalization(t *testing.T) {
	c := newController(t, consensustest.New())

	assert.Zero(t, c.GetBlockHeight())
	assert.Empty(t, c.GetLatestDreamBlock())
	assert.False(t, c.IsConsensusRunning())
}

func TestStopIsIdempotent(t *testing.T) {
	c := newController(t, consensustest.New())
	require.NoError(t, c.Initialize(1, 1))
	require.True(t, c.IsConsensusRunning())

	c.Stop()
	c.Stop()
	assert.False(t, c.IsConsensusRunning())
}

func TestFinalizationJournaled(t *testing.T) {
	dir := t.TempDir()
	journal, err := communication.NewJournal(dir, "test")
	require.NoError(t, err)

	engine := consensustest.New()
	c := dream.NewController(testRegistry(t), engine, "network.json", journal, zerolog.Nop())
	require.NoError(t, c.Initialize(1, 1))
	require.NoError(t, c.ProposeDreamBlock("alice", "a dream"))

	content, err := os.ReadFile(journal.Path())
	require.NoError(t, err)
	assert.Contains(t, string(content), "#1 ")
}
