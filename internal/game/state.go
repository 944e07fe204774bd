package game

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/blueprint-strategy/internal/interfaces"
	"github.com/user/blueprint-strategy/internal/types"
)

// ErrPlayerNotFound is returned for lookups of unknown player ids
var ErrPlayerNotFound = errors.New("player not found")

// GameStore is the in-memory single source of truth for game state.
// Only the engine writes through it; the UI layer reads and subscribes.
// Subscribers run synchronously after each mutation completes, outside
// the write lock.
type GameStore struct {
	mu        sync.RWMutex
	state     *types.GameState
	subs      map[int]func(*types.GameState)
	nextSubID int
	logger    *zap.Logger
}

// Ensure GameStore satisfies the state service contract
var _ interfaces.StateService = (*GameStore)(nil)

// NewGameStore creates a store holding a fresh game in the setup phase
func NewGameStore(logger *zap.Logger) *GameStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameStore{
		state:  NewGameState(),
		subs:   make(map[int]func(*types.GameState)),
		logger: logger,
	}
}

// NewGameState returns an empty game state with all containers initialized
func NewGameState() *types.GameState {
	state := &types.GameState{
		GamePhase:              types.PhaseSetup,
		Players:                make([]*types.Player, 0),
		Decks:                  make(map[types.CardType][]string),
		DiscardPiles:           make(map[types.CardType][]string),
		CompletedManualActions: make(map[string]bool),
		TurnState: types.TurnStateModel{
			Snapshots:      make(map[string]*types.TurnSnapshot),
			TryAgainCounts: make(map[string]int),
		},
		GameStartTime: time.Now(),
	}
	for _, ct := range types.AllCardTypes {
		state.Decks[ct] = make([]string, 0)
		state.DiscardPiles[ct] = make([]string, 0)
	}
	return state
}

// GetGameState returns the current state. Callers must treat it as
// read-only; all writes go through Mutate or the typed setters.
func (gs *GameStore) GetGameState() *types.GameState {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.state
}

// GetPlayer resolves a player id to its working state: the TEMP snapshot
// while one exists for this player, otherwise the committed roster entry.
func (gs *GameStore) GetPlayer(id string) (*types.Player, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.lookupPlayer(id)
}

func (gs *GameStore) lookupPlayer(id string) (*types.Player, error) {
	if snap, ok := gs.state.TurnState.Snapshots[id]; ok {
		return snap.Player, nil
	}
	for _, p := range gs.state.Players {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrPlayerNotFound
}

// RealPlayer returns the committed roster entry, bypassing any TEMP
// snapshot. Turn-boundary operations (try-again penalty, commit) use it.
func (gs *GameStore) RealPlayer(id string) (*types.Player, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	for _, p := range gs.state.Players {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrPlayerNotFound
}

// UpdatePlayer replaces the working state for player.ID: the TEMP
// snapshot while one exists, otherwise the roster entry.
func (gs *GameStore) UpdatePlayer(player *types.Player) error {
	err := func() error {
		gs.mu.Lock()
		defer gs.mu.Unlock()
		if snap, ok := gs.state.TurnState.Snapshots[player.ID]; ok {
			snap.Player = player
			return nil
		}
		for i, p := range gs.state.Players {
			if p.ID == player.ID {
				gs.state.Players[i] = player
				return nil
			}
		}
		return ErrPlayerNotFound
	}()
	if err != nil {
		return err
	}
	gs.notify()
	return nil
}

// Subscribe registers a synchronous callback fired after every mutation.
// The returned function removes the subscription.
func (gs *GameStore) Subscribe(fn func(*types.GameState)) func() {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	id := gs.nextSubID
	gs.nextSubID++
	gs.subs[id] = fn
	return func() {
		gs.mu.Lock()
		defer gs.mu.Unlock()
		delete(gs.subs, id)
	}
}

// SetAwaitingChoice records a pending choice on game state
func (gs *GameStore) SetAwaitingChoice(choice *types.AwaitingChoice) {
	gs.Mutate(func(state *types.GameState) {
		state.AwaitingChoice = choice
	})
}

// ClearAwaitingChoice removes any pending choice
func (gs *GameStore) ClearAwaitingChoice() {
	gs.Mutate(func(state *types.GameState) {
		state.AwaitingChoice = nil
	})
}

// SetCurrentPlayer changes whose turn it is
func (gs *GameStore) SetCurrentPlayer(id string) {
	gs.Mutate(func(state *types.GameState) {
		state.CurrentPlayerID = id
	})
}

// Mutate runs fn under the write lock and notifies subscribers afterwards
func (gs *GameStore) Mutate(fn func(*types.GameState)) {
	gs.mu.Lock()
	fn(gs.state)
	gs.mu.Unlock()
	gs.notify()
}

// ReplaceState swaps in a loaded snapshot wholesale (save/load support)
func (gs *GameStore) ReplaceState(state *types.GameState) {
	gs.mu.Lock()
	gs.state = state
	gs.mu.Unlock()
	gs.notify()
}

func (gs *GameStore) notify() {
	gs.mu.RLock()
	fns := make([]func(*types.GameState), 0, len(gs.subs))
	for _, fn := range gs.subs {
		fns = append(fns, fn)
	}
	state := gs.state
	gs.mu.RUnlock()

	for _, fn := range fns {
		fn(state)
	}
}
