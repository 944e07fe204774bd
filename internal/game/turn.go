package game

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/blueprint-strategy/config"
	"github.com/user/blueprint-strategy/internal/interfaces"
	"github.com/user/blueprint-strategy/internal/types"
)

// Caller-contract violations. These indicate a bug in the caller, not in
// game content, and are always fatal to the call.
var (
	ErrNotInPlayPhase  = errors.New("game is not in play phase")
	ErrNoCurrentPlayer = errors.New("no current player")
	ErrNoPlayers       = errors.New("no players in game")
	ErrGameStarted     = errors.New("game has already started")
)

// maxTryAgainPerTurn bounds retries on one space before the caller is
// told to advance the turn.
const maxTryAgainPerTurn = 3

// TurnService drives the turn lifecycle: dice rolling, manual effects,
// try-again re-entry, end-of-turn advancement, and win-condition checks.
// It owns the REAL/TEMP duplication model: a TEMP snapshot is created
// when a turn begins, all effect processing mutates TEMP, "Try Again"
// discards TEMP after penalizing REAL, and "End Turn" commits TEMP.
//
// Methods are not safe for concurrent calls against the same player;
// the host serializes turn mutations (single-writer contract).
type TurnService struct {
	cfg     config.GameConfig
	data    interfaces.DataService
	state   interfaces.StateService
	rules   interfaces.RulesService
	dice    *DiceRoller
	factory *EffectFactory
	engine  *EffectEngine
	logger  *zap.Logger
}

// NewTurnService creates the turn orchestrator with explicit collaborators
func NewTurnService(
	cfg config.GameConfig,
	data interfaces.DataService,
	state interfaces.StateService,
	rules interfaces.RulesService,
	dice *DiceRoller,
	factory *EffectFactory,
	engine *EffectEngine,
	logger *zap.Logger,
) *TurnService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TurnService{
		cfg:     cfg,
		data:    data,
		state:   state,
		rules:   rules,
		dice:    dice,
		factory: factory,
		engine:  engine,
		logger:  logger,
	}
}

// AddPlayer registers a participant during setup
func (ts *TurnService) AddPlayer(name, color string) (*types.Player, error) {
	var player *types.Player
	var addErr error

	ts.state.Mutate(func(state *types.GameState) {
		if state.GamePhase != types.PhaseSetup {
			addErr = ErrGameStarted
			return
		}
		if len(state.Players) >= ts.cfg.MaxPlayers {
			addErr = fmt.Errorf("player limit of %d reached", ts.cfg.MaxPlayers)
			return
		}
		player = &types.Player{
			ID:            uuid.New().String(),
			Name:          name,
			Color:         color,
			CreatedAt:     time.Now(),
			Money:         ts.cfg.StartingMoney,
			TimeSpent:     ts.cfg.StartingTime,
			Hand:          make([]string, 0),
			ActiveCards:   make([]types.ActiveCard, 0),
			Loans:         make([]types.Loan, 0),
			ActiveEffects: make([]types.ActiveEffect, 0),
			CurrentSpace:  ts.cfg.StartingSpace,
			VisitType:     types.VisitFirst,
			VisitedSpaces: make([]string, 0),
		}
		state.Players = append(state.Players, player)
	})

	if addErr != nil {
		return nil, addErr
	}
	ts.logger.Info("player added", zap.String("player_id", player.ID), zap.String("name", name))
	return player, nil
}

// StartGame shuffles the decks, flips the phase to PLAY, and opens the
// first player's turn.
func (ts *TurnService) StartGame() error {
	var startErr error

	ts.state.Mutate(func(state *types.GameState) {
		if state.GamePhase != types.PhaseSetup {
			startErr = ErrGameStarted
			return
		}
		if len(state.Players) == 0 {
			startErr = ErrNoPlayers
			return
		}

		for _, ct := range types.AllCardTypes {
			deck := make([]string, 0)
			for _, card := range ts.data.GetCardsByType(ct) {
				deck = append(deck, card.ID)
			}
			rand.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
			state.Decks[ct] = deck
		}

		state.GamePhase = types.PhasePlay
		state.Turn = 1
		state.CurrentPlayerID = state.Players[0].ID
		state.GameStartTime = time.Now()
		ts.openTurn(state, state.Players[0].ID)
	})

	if startErr != nil {
		return startErr
	}
	ts.logger.Info("game started")
	return nil
}

// RollDiceWithFeedback rolls once for the player, resolves the space and
// dice effects for their current space, and returns a structured summary.
func (ts *TurnService) RollDiceWithFeedback(playerID string) (*types.TurnEffectResult, error) {
	if err := ts.guardTurn(playerID); err != nil {
		return nil, err
	}
	if ts.state.GetGameState().HasPlayerRolledThisTurn {
		return nil, fmt.Errorf("player %s has already rolled this turn", playerID)
	}

	roll := ts.dice.Roll()
	ts.state.Mutate(func(state *types.GameState) {
		state.HasPlayerRolledThisTurn = true
		state.LastDiceRoll = roll
		ts.ensureSnapshot(state, playerID)
	})

	player, err := ts.state.GetPlayer(playerID)
	if err != nil {
		return nil, err
	}
	space := player.CurrentSpace
	visit := player.VisitType

	var rows []types.SpaceEffect
	for _, row := range ts.data.GetSpaceEffects(space, visit) {
		if row.TriggerType == "manual" {
			continue
		}
		if !ts.rules.EvaluateCondition(playerID, row.Condition, &roll) {
			continue
		}
		rows = append(rows, row)
	}

	spaceCfg, _ := ts.data.GetSpaceConfig(space)
	effects := ts.factory.FromSpaceEntry(playerID, space, visit, rows, spaceCfg)
	effects = append(effects, ts.factory.FromDiceRoll(playerID, space, roll, ts.data.GetDiceEffects(space, visit), ts.dice)...)

	batch := ts.engine.ProcessEffects(effects, EffectContext{PlayerID: playerID, Roll: &roll, Source: "roll"})
	ts.checkGameEnd()

	return ts.buildResult(playerID, space, roll, batch), nil
}

// RerollDice consumes the player's single-use re-roll and re-resolves the
// dice effects with a fresh roll. The grant is consumed even if the
// caller never inspects the result.
func (ts *TurnService) RerollDice(playerID string) (*types.TurnEffectResult, error) {
	if err := ts.guardTurn(playerID); err != nil {
		return nil, err
	}

	player, err := ts.state.GetPlayer(playerID)
	if err != nil {
		return nil, err
	}
	if !player.TurnModifiers.CanReRoll {
		return nil, fmt.Errorf("player %s does not have re-roll ability", playerID)
	}

	// Single use: consumed up front, before any outcome is visible.
	player.TurnModifiers.CanReRoll = false
	if err := ts.state.UpdatePlayer(player); err != nil {
		return nil, err
	}

	roll := ts.dice.Roll()
	ts.state.Mutate(func(state *types.GameState) {
		state.LastDiceRoll = roll
	})

	space := player.CurrentSpace
	effects := ts.factory.FromDiceRoll(playerID, space, roll, ts.data.GetDiceEffects(space, player.VisitType), ts.dice)
	batch := ts.engine.ProcessEffects(effects, EffectContext{PlayerID: playerID, Roll: &roll, Source: "reroll"})
	ts.checkGameEnd()

	return ts.buildResult(playerID, space, roll, batch), nil
}

// TriggerManualEffectWithFeedback applies the manual-trigger effect rows
// of the given type for the player's space. Already-completed manual
// actions this turn are not reapplied.
func (ts *TurnService) TriggerManualEffectWithFeedback(playerID, effectType string) (*types.TurnEffectResult, error) {
	if err := ts.guardTurn(playerID); err != nil {
		return nil, err
	}

	gameState := ts.state.GetGameState()
	if gameState.CompletedManualActions[effectType] {
		return &types.TurnEffectResult{
			SpaceName: ts.currentSpace(playerID),
			Summary:   fmt.Sprintf("manual action %s already completed this turn", effectType),
		}, nil
	}

	var roll *int
	if gameState.HasPlayerRolledThisTurn {
		r := gameState.LastDiceRoll
		roll = &r
	}

	player, err := ts.state.GetPlayer(playerID)
	if err != nil {
		return nil, err
	}
	space := player.CurrentSpace

	var rows []types.SpaceEffect
	for _, row := range ts.data.GetSpaceEffects(space, player.VisitType) {
		if row.TriggerType != "manual" || row.EffectType != effectType {
			continue
		}
		if !ts.rules.EvaluateCondition(playerID, row.Condition, roll) {
			continue
		}
		rows = append(rows, row)
	}

	effects := ts.factory.FromEffectRows(playerID, space, rows)
	batch := ts.engine.ProcessEffects(effects, EffectContext{PlayerID: playerID, Roll: roll, Source: "manual:" + effectType})

	ts.state.Mutate(func(state *types.GameState) {
		state.CompletedManualActions[effectType] = true
	})
	ts.checkGameEnd()

	result := ts.buildResult(playerID, space, 0, batch)
	if roll != nil {
		result.DiceValue = *roll
	}
	return result, nil
}

// PlayCard plays a card from the player's hand: its effects run as a
// batch, loans are recorded, and the card leaves the hand.
func (ts *TurnService) PlayCard(playerID, cardID string) (*BatchResult, error) {
	if err := ts.guardTurn(playerID); err != nil {
		return nil, err
	}

	card, ok := ts.data.GetCardByID(cardID)
	if !ok {
		return nil, fmt.Errorf("card not found: %s", cardID)
	}

	player, err := ts.state.GetPlayer(playerID)
	if err != nil {
		return nil, err
	}
	inHand := false
	for _, id := range player.Hand {
		if id == cardID {
			inHand = true
			break
		}
	}
	if !inHand {
		return nil, fmt.Errorf("card %s is not in player's hand", cardID)
	}

	var roll *int
	if gameState := ts.state.GetGameState(); gameState.HasPlayerRolledThisTurn {
		r := gameState.LastDiceRoll
		roll = &r
	}

	effects := ts.factory.FromCard(card, playerID)
	batch := ts.engine.ProcessEffects(effects, EffectContext{PlayerID: playerID, Roll: roll, Source: "card:" + cardID})

	// A failed cost debit means the card was never paid for: it stays in
	// the player's hand.
	for _, r := range batch.Results {
		if rc, isCost := r.Effect.(types.ResourceChange); isCost && rc.Enforce && !r.Success {
			return &batch, nil
		}
	}

	ts.state.Mutate(func(state *types.GameState) {
		working := findPlayerWorking(state, playerID)
		if working == nil {
			return
		}
		if !removeFromHand(working, cardID) {
			return
		}
		if card.LoanAmount > 0 {
			working.Loans = append(working.Loans, types.Loan{
				ID:        uuid.New().String(),
				Amount:    card.LoanAmount,
				Rate:      card.LoanRate,
				TakenAt:   time.Now(),
				TakenTurn: state.Turn,
			})
		}
		// Duration cards live in ActiveCards until they expire; everything
		// else goes straight to the discard pile.
		if card.Duration != "Turns" || card.DurationCount == 0 {
			state.DiscardPiles[card.Type] = append(state.DiscardPiles[card.Type], cardID)
		}
	})

	ts.checkGameEnd()
	return &batch, nil
}

// ResolveChoice applies the selected branch of the pending choice
func (ts *TurnService) ResolveChoice(playerID, optionID string) (*BatchResult, error) {
	batch, err := ts.engine.ResolveChoice(playerID, optionID)
	if err != nil {
		return nil, err
	}
	ts.checkGameEnd()
	return &batch, nil
}

// TryAgainOnSpace discards the player's TEMP state, applies the time
// penalty to REAL, and reopens the turn from the penalized REAL state.
// The returned bool tells the caller to auto-advance the turn once the
// retry budget for this space is used up.
func (ts *TurnService) TryAgainOnSpace(playerID string) (bool, error) {
	var tryErr error
	shouldAdvance := false

	ts.state.Mutate(func(state *types.GameState) {
		snap, ok := state.TurnState.Snapshots[playerID]
		if !ok {
			tryErr = fmt.Errorf("no turn snapshot for player %s", playerID)
			return
		}

		real := findPlayerReal(state, playerID)
		if real == nil {
			tryErr = fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
			return
		}

		// Penalty lands on committed state so it survives the retry.
		real.TimeSpent += ts.cfg.TryAgainTimePenalty

		delete(state.TurnState.Snapshots, playerID)
		state.TurnState.TryAgainCounts[playerID]++
		state.HasPlayerRolledThisTurn = false
		state.HasPlayerMovedThisTurn = false
		state.LastDiceRoll = 0
		state.CompletedManualActions = make(map[string]bool)
		state.AwaitingChoice = nil

		fresh := clonePlayer(real)
		state.TurnState.Snapshots[playerID] = &types.TurnSnapshot{
			Player:     fresh,
			Space:      snap.Space,
			VisitType:  snap.VisitType,
			TurnNumber: state.Turn,
			CreatedAt:  time.Now(),
		}

		shouldAdvance = state.TurnState.TryAgainCounts[playerID] >= maxTryAgainPerTurn
	})

	if tryErr != nil {
		return false, tryErr
	}
	ts.logger.Info("try again",
		zap.String("player_id", playerID),
		zap.Int("penalty_days", ts.cfg.TryAgainTimePenalty),
		zap.Bool("should_advance", shouldAdvance))
	return shouldAdvance, nil
}

// EndTurn commits the current player's TEMP state onto REAL and advances
// to the next player in roster order, wrapping to the first. A
// single-player game wraps to the same player.
func (ts *TurnService) EndTurn() (string, error) {
	var endErr error
	var nextID string
	gameOver := false

	ts.state.Mutate(func(state *types.GameState) {
		if state.GamePhase != types.PhasePlay {
			endErr = ErrNotInPlayPhase
			return
		}
		if state.CurrentPlayerID == "" {
			endErr = ErrNoCurrentPlayer
			return
		}
		if len(state.Players) == 0 {
			endErr = ErrNoPlayers
			return
		}

		currentIdx := -1
		for i, p := range state.Players {
			if p.ID == state.CurrentPlayerID {
				currentIdx = i
				break
			}
		}
		if currentIdx == -1 {
			endErr = fmt.Errorf("%w: %s", ErrPlayerNotFound, state.CurrentPlayerID)
			return
		}

		ts.commitSnapshot(state, state.CurrentPlayerID, currentIdx)

		state.Turn++
		state.HasPlayerRolledThisTurn = false
		state.HasPlayerMovedThisTurn = false
		state.LastDiceRoll = 0
		state.CompletedManualActions = make(map[string]bool)
		delete(state.TurnState.TryAgainCounts, state.CurrentPlayerID)

		nextIdx := ts.advanceIndex(state, currentIdx)
		nextID = state.Players[nextIdx].ID
		state.CurrentPlayerID = nextID
		state.TurnWithinRound = nextIdx
	})

	if endErr != nil {
		return "", endErr
	}

	ts.checkGameEnd()
	if ts.state.GetGameState().GamePhase == types.PhaseEnd {
		gameOver = true
	}

	if !gameOver {
		ts.state.Mutate(func(state *types.GameState) {
			ts.openTurn(state, nextID)
		})
	}

	ts.logger.Info("turn ended", zap.String("next_player_id", nextID))
	return nextID, nil
}

// advanceIndex picks the next roster index, consuming skip-turn charges
// along the way. If every player is skipping, the charges burn down and
// the nearest player plays anyway.
func (ts *TurnService) advanceIndex(state *types.GameState, currentIdx int) int {
	n := len(state.Players)
	idx := (currentIdx + 1) % n
	for hops := 0; hops < n*2; hops++ {
		p := state.Players[idx]
		if p.TurnModifiers.SkipTurns > 0 {
			p.TurnModifiers.SkipTurns--
			ts.logger.Info("player skips a turn",
				zap.String("player_id", p.ID),
				zap.Int("remaining_skips", p.TurnModifiers.SkipTurns))
			idx = (idx + 1) % n
			continue
		}
		return idx
	}
	return idx
}

// commitSnapshot folds the TEMP snapshot back onto the roster entry and
// clears the slot. The committed player starts the next turn without a
// re-roll grant.
func (ts *TurnService) commitSnapshot(state *types.GameState, playerID string, rosterIdx int) {
	snap, ok := state.TurnState.Snapshots[playerID]
	if !ok {
		return
	}

	committed := clonePlayer(snap.Player)
	committed.TurnModifiers.CanReRoll = false
	if !containsString(committed.VisitedSpaces, snap.Space) {
		committed.VisitedSpaces = append(committed.VisitedSpaces, snap.Space)
	}
	state.Players[rosterIdx] = committed
	delete(state.TurnState.Snapshots, playerID)
}

// openTurn sweeps expired cards on REAL and creates the TEMP snapshot for
// the player's turn on their current space.
func (ts *TurnService) openTurn(state *types.GameState, playerID string) {
	real := findPlayerReal(state, playerID)
	if real == nil {
		return
	}

	ts.sweepExpiredCards(state, real)

	visit := types.VisitFirst
	if containsString(real.VisitedSpaces, real.CurrentSpace) {
		visit = types.VisitSubsequent
	}
	real.VisitType = visit

	working := clonePlayer(real)
	state.TurnState.Snapshots[playerID] = &types.TurnSnapshot{
		Player:     working,
		Space:      real.CurrentSpace,
		VisitType:  visit,
		TurnNumber: state.Turn,
		CreatedAt:  time.Now(),
	}
}

// ensureSnapshot covers defensive re-entry: a roll against a missing
// snapshot opens the turn on the spot.
func (ts *TurnService) ensureSnapshot(state *types.GameState, playerID string) {
	if _, ok := state.TurnState.Snapshots[playerID]; !ok {
		ts.openTurn(state, playerID)
	}
}

func (ts *TurnService) sweepExpiredCards(state *types.GameState, player *types.Player) {
	kept := player.ActiveCards[:0]
	for _, ac := range player.ActiveCards {
		if ac.ExpirationTurn > state.Turn {
			kept = append(kept, ac)
			continue
		}
		ct := cardIDType(ac.CardID)
		state.DiscardPiles[ct] = append(state.DiscardPiles[ct], ac.CardID)
	}
	player.ActiveCards = kept
}

// guardTurn validates the caller-contract preconditions shared by every
// turn-mutating method.
func (ts *TurnService) guardTurn(playerID string) error {
	state := ts.state.GetGameState()
	if state.GamePhase != types.PhasePlay {
		return ErrNotInPlayPhase
	}
	if state.CurrentPlayerID == "" {
		return ErrNoCurrentPlayer
	}
	if state.CurrentPlayerID != playerID {
		return fmt.Errorf("it is not player %s's turn", playerID)
	}
	if _, err := ts.state.GetPlayer(playerID); err != nil {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	return nil
}

// checkGameEnd asks the rules collaborator whether the game is over and
// reacts by flipping the phase and recording the winner.
func (ts *TurnService) checkGameEnd() {
	check := ts.rules.CheckGameEndConditions()
	if !check.ShouldEnd {
		return
	}

	ts.state.Mutate(func(state *types.GameState) {
		if state.GamePhase == types.PhaseEnd {
			return
		}
		state.GamePhase = types.PhaseEnd
		state.Winner = check.WinnerID
		state.GameEndReason = check.Reason
		state.GameEndTime = time.Now()
	})
	ts.logger.Info("game ended",
		zap.String("winner_id", check.WinnerID),
		zap.String("reason", check.Reason))
}

func (ts *TurnService) currentSpace(playerID string) string {
	player, err := ts.state.GetPlayer(playerID)
	if err != nil {
		return ""
	}
	return player.CurrentSpace
}

// buildResult assembles the structured summary callers and the UI rely
// on. CanReRoll mirrors the player's modifier at call time, not a cached
// value.
func (ts *TurnService) buildResult(playerID, space string, roll int, batch BatchResult) *types.TurnEffectResult {
	result := &types.TurnEffectResult{
		DiceValue:  roll,
		SpaceName:  space,
		Effects:    summarizeBatch(batch),
		HasChoices: batch.HasPendingChoice,
	}

	if roll > 0 {
		result.Summary = fmt.Sprintf("%s: %d effects applied, %d failed",
			FormatRoll(space, roll), batch.SuccessCount, batch.FailureCount)
	} else {
		result.Summary = fmt.Sprintf("%s: %d effects applied, %d failed",
			space, batch.SuccessCount, batch.FailureCount)
	}

	if player, err := ts.state.GetPlayer(playerID); err == nil {
		result.CanReRoll = player.TurnModifiers.CanReRoll
	}
	return result
}

// summarizeBatch maps engine results onto the wire-level effect lines
func summarizeBatch(batch BatchResult) []types.DiceResultEffect {
	var out []types.DiceResultEffect
	for _, r := range batch.Results {
		switch e := r.Effect.(type) {
		case types.ResourceChange:
			if e.Resource == types.ResourceMoney {
				out = append(out, types.DiceResultEffect{Type: "money", Value: e.Amount})
			} else {
				out = append(out, types.DiceResultEffect{Type: "time", Value: e.Amount})
			}
		case types.CardDraw:
			out = append(out, types.DiceResultEffect{Type: "cards", CardType: string(e.CardType), CardCount: e.Count, CardAction: "draw"})
		case types.CardDiscard:
			out = append(out, types.DiceResultEffect{Type: "cards", CardType: string(e.CardType), CardCount: e.Count, CardAction: "discard"})
		case types.ChoiceOfEffects:
			out = append(out, types.DiceResultEffect{Type: "choice"})
		}
	}
	return out
}

func findPlayerReal(state *types.GameState, playerID string) *types.Player {
	for _, p := range state.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func clonePlayer(p *types.Player) *types.Player {
	clone := *p
	clone.Hand = append([]string(nil), p.Hand...)
	clone.ActiveCards = append([]types.ActiveCard(nil), p.ActiveCards...)
	clone.Loans = append([]types.Loan(nil), p.Loans...)
	clone.ActiveEffects = append([]types.ActiveEffect(nil), p.ActiveEffects...)
	clone.VisitedSpaces = append([]string(nil), p.VisitedSpaces...)
	return &clone
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
