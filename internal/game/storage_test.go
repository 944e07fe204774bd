package game

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/blueprint-strategy/internal/types"
)

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	storage := NewSnapshotStorage(path)

	state := NewGameState()
	state.GamePhase = types.PhasePlay
	state.Turn = 7
	state.CurrentPlayerID = "p1"
	state.Players = append(state.Players, &types.Player{
		ID:            "p1",
		Name:          "Player A",
		Money:         250000,
		TimeSpent:     12,
		Hand:          []string{"W001", "B002"},
		CurrentSpace:  "PERMIT-REVIEW",
		VisitType:     types.VisitSubsequent,
		VisitedSpaces: []string{"OWNER-SCOPE-INITIATION"},
	})
	state.Decks[types.CardTypeE] = []string{"E001", "E002"}
	state.DiscardPiles[types.CardTypeW] = []string{"W099"}

	require.NoError(t, storage.SaveGameState(state))

	loaded, err := storage.LoadGameState()
	require.NoError(t, err)

	assert.Equal(t, types.PhasePlay, loaded.GamePhase)
	assert.Equal(t, 7, loaded.Turn)
	assert.Equal(t, "p1", loaded.CurrentPlayerID)
	require.Len(t, loaded.Players, 1)
	assert.Equal(t, 250000, loaded.Players[0].Money)
	assert.Equal(t, []string{"W001", "B002"}, loaded.Players[0].Hand)
	assert.Equal(t, []string{"E001", "E002"}, loaded.Decks[types.CardTypeE])
	assert.Equal(t, []string{"W099"}, loaded.DiscardPiles[types.CardTypeW])

	// Containers are always usable after a load
	assert.NotNil(t, loaded.CompletedManualActions)
	assert.NotNil(t, loaded.TurnState.Snapshots)
	assert.NotNil(t, loaded.TurnState.TryAgainCounts)
}

func TestLoadMissingSnapshotYieldsFreshState(t *testing.T) {
	storage := NewSnapshotStorage(filepath.Join(t.TempDir(), "nope.json"))

	state, err := storage.LoadGameState()
	require.NoError(t, err)
	assert.Equal(t, types.PhaseSetup, state.GamePhase)
	assert.Empty(t, state.Players)
	for _, ct := range types.AllCardTypes {
		assert.NotNil(t, state.Decks[ct])
	}
}
