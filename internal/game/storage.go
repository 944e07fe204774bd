package game

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/blueprint-strategy/internal/types"
)

// SnapshotStorage persists full game states as JSON snapshots. The store
// itself is memory-only; snapshots are an explicit save/load feature.
type SnapshotStorage struct {
	savePath  string
	stateLock sync.Mutex
}

// NewSnapshotStorage creates a snapshot storage
func NewSnapshotStorage(savePath string) *SnapshotStorage {
	// Create data directory if it doesn't exist
	dir := filepath.Dir(savePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		savePath = "./data/game_state.json"
	}

	return &SnapshotStorage{
		savePath: savePath,
	}
}

// SaveGameState saves the game state to disk
func (ss *SnapshotStorage) SaveGameState(state *types.GameState) error {
	ss.stateLock.Lock()
	defer ss.stateLock.Unlock()

	// Create directory if it doesn't exist
	dir := filepath.Dir(ss.savePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal game state: %w", err)
	}

	if err := os.WriteFile(ss.savePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write game state: %w", err)
	}

	return nil
}

// LoadGameState loads a game state snapshot from disk. A missing file
// yields a fresh empty state rather than an error.
func (ss *SnapshotStorage) LoadGameState() (*types.GameState, error) {
	ss.stateLock.Lock()
	defer ss.stateLock.Unlock()

	if _, err := os.Stat(ss.savePath); os.IsNotExist(err) {
		return NewGameState(), nil
	}

	data, err := os.ReadFile(ss.savePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read game state file: %w", err)
	}

	var state types.GameState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse game state: %w", err)
	}

	// Ensure all containers survive round-trips through older snapshots
	if state.Players == nil {
		state.Players = make([]*types.Player, 0)
	}
	if state.Decks == nil {
		state.Decks = make(map[types.CardType][]string)
	}
	if state.DiscardPiles == nil {
		state.DiscardPiles = make(map[types.CardType][]string)
	}
	for _, ct := range types.AllCardTypes {
		if state.Decks[ct] == nil {
			state.Decks[ct] = make([]string, 0)
		}
		if state.DiscardPiles[ct] == nil {
			state.DiscardPiles[ct] = make([]string, 0)
		}
	}
	if state.CompletedManualActions == nil {
		state.CompletedManualActions = make(map[string]bool)
	}
	if state.TurnState.Snapshots == nil {
		state.TurnState.Snapshots = make(map[string]*types.TurnSnapshot)
	}
	if state.TurnState.TryAgainCounts == nil {
		state.TurnState.TryAgainCounts = make(map[string]int)
	}

	return &state, nil
}
