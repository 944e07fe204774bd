package game

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/blueprint-strategy/internal/interfaces"
	"github.com/user/blueprint-strategy/internal/types"
)

// EffectContext carries the ambient facts an effect batch is processed
// under: whose turn state to mutate and, when known, the dice roll.
type EffectContext struct {
	PlayerID string
	Roll     *int
	Source   string
}

// EffectResult records the outcome of applying a single effect
type EffectResult struct {
	Effect  types.Effect
	Success bool
	Message string
}

// BatchResult aggregates per-effect outcomes for one batch
type BatchResult struct {
	Results          []EffectResult
	SuccessCount     int
	FailureCount     int
	HasPendingChoice bool
}

// EffectEngine interprets canonical effects against live game state. It
// processes batches sequentially and keeps going past individual
// failures: one bad data-driven effect must not block the unrelated
// changes behind it.
type EffectEngine struct {
	state     interfaces.StateService
	resources interfaces.ResourceService
	rules     interfaces.RulesService
	logger    *zap.Logger
}

// NewEffectEngine creates an effect engine
func NewEffectEngine(state interfaces.StateService, resources interfaces.ResourceService, rules interfaces.RulesService, logger *zap.Logger) *EffectEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EffectEngine{
		state:     state,
		resources: resources,
		rules:     rules,
		logger:    logger,
	}
}

// ProcessEffects applies effects in order, recording each outcome
func (ee *EffectEngine) ProcessEffects(effects []types.Effect, ctx EffectContext) BatchResult {
	var batch BatchResult
	for _, effect := range effects {
		result := ee.ProcessEffect(effect, ctx)
		batch.Results = append(batch.Results, result)
		if result.Success {
			batch.SuccessCount++
		} else {
			batch.FailureCount++
		}
		if _, isChoice := effect.(types.ChoiceOfEffects); isChoice && result.Success {
			batch.HasPendingChoice = true
		}
		if _, isCond := effect.(types.ConditionalEffect); isCond && result.Success {
			// The matched branch already ran; pick up any choice it parked.
			if ee.state.GetGameState().AwaitingChoice != nil {
				batch.HasPendingChoice = true
			}
		}
	}
	return batch
}

// ProcessEffect applies one effect against the state collaborator
func (ee *EffectEngine) ProcessEffect(effect types.Effect, ctx EffectContext) EffectResult {
	playerID := effect.Meta().PlayerID
	if playerID == "" {
		playerID = ctx.PlayerID
	}

	switch e := effect.(type) {
	case types.ResourceChange:
		return ee.applyResourceChange(e, playerID)
	case types.CardDraw:
		return ee.applyCardDraw(e, playerID)
	case types.CardDiscard:
		return ee.applyCardDiscard(e, playerID)
	case types.CardActivation:
		return ee.applyCardActivation(e, playerID)
	case types.TurnControl:
		return ee.applyTurnControl(e, playerID)
	case types.ChoiceOfEffects:
		return ee.registerChoice(e, playerID)
	case types.ConditionalEffect:
		return ee.expandConditional(e, playerID, ctx)
	case types.RecalculateScope:
		scope := ee.rules.CalculateProjectScope(playerID)
		ee.logger.Info("project scope recalculated",
			zap.String("player_id", playerID),
			zap.Int("scope", scope),
			zap.String("source", e.Source))
		return EffectResult{Effect: effect, Success: true}
	case types.LogEffect:
		ee.logger.Info("game event",
			zap.String("player_id", playerID),
			zap.String("source", e.Source),
			zap.String("message", e.Message))
		return EffectResult{Effect: effect, Success: true}
	default:
		// Unreachable for effects built by this module; guards against a
		// future union member the switch does not handle yet.
		ee.logger.Warn("unhandled effect kind", zap.String("source", effect.Meta().Source))
		return EffectResult{Effect: effect, Success: false, Message: "unhandled effect kind"}
	}
}

func (ee *EffectEngine) applyResourceChange(e types.ResourceChange, playerID string) EffectResult {
	var result interfaces.Result
	switch e.Resource {
	case types.ResourceMoney:
		if e.Amount < 0 && e.Enforce {
			result = ee.resources.SpendMoney(playerID, -e.Amount, e.Source, e.Reason)
		} else {
			result = ee.resources.AddMoney(playerID, e.Amount, e.Source, e.Reason)
		}
	case types.ResourceTime:
		result = ee.resources.AddTime(playerID, e.Amount, e.Source, e.Reason)
	default:
		return EffectResult{Effect: e, Success: false, Message: fmt.Sprintf("unknown resource kind %q", e.Resource)}
	}
	return EffectResult{Effect: e, Success: result.Success, Message: result.Message}
}

func (ee *EffectEngine) applyCardDraw(e types.CardDraw, playerID string) EffectResult {
	var message string
	success := true

	ee.state.Mutate(func(state *types.GameState) {
		player := findPlayerWorking(state, playerID)
		if player == nil {
			success = false
			message = ErrPlayerNotFound.Error()
			return
		}

		drawn := 0
		for i := 0; i < e.Count; i++ {
			cardID, ok := drawFromDeck(state, e.CardType)
			if !ok {
				break
			}
			player.Hand = append(player.Hand, cardID)
			drawn++
		}

		if drawn < e.Count {
			success = false
			message = fmt.Sprintf("deck %s exhausted after %d of %d draws", e.CardType, drawn, e.Count)
		}
	})

	return EffectResult{Effect: e, Success: success, Message: message}
}

// drawFromDeck pops the top card, recycling the discard pile into the
// deck when the deck runs out.
func drawFromDeck(state *types.GameState, cardType types.CardType) (string, bool) {
	if len(state.Decks[cardType]) == 0 {
		if len(state.DiscardPiles[cardType]) == 0 {
			return "", false
		}
		state.Decks[cardType] = state.DiscardPiles[cardType]
		state.DiscardPiles[cardType] = make([]string, 0)
	}
	deck := state.Decks[cardType]
	cardID := deck[0]
	state.Decks[cardType] = deck[1:]
	return cardID, true
}

func (ee *EffectEngine) applyCardDiscard(e types.CardDiscard, playerID string) EffectResult {
	var message string
	success := true

	ee.state.Mutate(func(state *types.GameState) {
		player := findPlayerWorking(state, playerID)
		if player == nil {
			success = false
			message = ErrPlayerNotFound.Error()
			return
		}

		toDiscard := e.CardIDs
		if len(toDiscard) == 0 {
			for _, cardID := range player.Hand {
				if len(toDiscard) == e.Count {
					break
				}
				if cardIDType(cardID) == e.CardType {
					toDiscard = append(toDiscard, cardID)
				}
			}
		}

		if len(toDiscard) < e.Count {
			success = false
			message = fmt.Sprintf("not enough %s cards to discard: have %d, need %d", e.CardType, len(toDiscard), e.Count)
			return
		}

		for _, cardID := range toDiscard {
			if !removeFromHand(player, cardID) {
				success = false
				message = fmt.Sprintf("card %s not in hand", cardID)
				return
			}
			state.DiscardPiles[e.CardType] = append(state.DiscardPiles[e.CardType], cardID)
		}
	})

	return EffectResult{Effect: e, Success: success, Message: message}
}

func (ee *EffectEngine) applyCardActivation(e types.CardActivation, playerID string) EffectResult {
	var message string
	success := true

	ee.state.Mutate(func(state *types.GameState) {
		player := findPlayerWorking(state, playerID)
		if player == nil {
			success = false
			message = ErrPlayerNotFound.Error()
			return
		}
		player.ActiveCards = append(player.ActiveCards, types.ActiveCard{
			CardID:         e.CardID,
			ExpirationTurn: state.Turn + e.Duration,
		})
	})

	return EffectResult{Effect: e, Success: success, Message: message}
}

func (ee *EffectEngine) applyTurnControl(e types.TurnControl, playerID string) EffectResult {
	var message string
	success := true

	ee.state.Mutate(func(state *types.GameState) {
		player := findPlayerWorking(state, playerID)
		if player == nil {
			success = false
			message = ErrPlayerNotFound.Error()
			return
		}
		switch e.Action {
		case types.GrantReRoll:
			// Idempotent: granting an already-held re-roll is a no-op.
			player.TurnModifiers.CanReRoll = true
		case types.SkipTurn:
			count := e.Count
			if count <= 0 {
				count = 1
			}
			player.TurnModifiers.SkipTurns += count
		default:
			success = false
			message = fmt.Sprintf("unknown turn control action %q", e.Action)
		}
	})

	return EffectResult{Effect: e, Success: success, Message: message}
}

// registerChoice suspends processing: the choice is parked on game state
// until ResolveChoice runs the selected branch.
func (ee *EffectEngine) registerChoice(e types.ChoiceOfEffects, playerID string) EffectResult {
	if len(e.Options) == 0 {
		return EffectResult{Effect: e, Success: false, Message: "choice effect with no options"}
	}

	ee.state.SetAwaitingChoice(&types.AwaitingChoice{
		ID:       uuid.New().String(),
		PlayerID: playerID,
		Prompt:   e.Prompt,
		Options:  e.Options,
		Source:   e.Source,
	})
	return EffectResult{Effect: e, Success: true}
}

// ResolveChoice applies exactly one branch of the pending choice and
// clears it.
func (ee *EffectEngine) ResolveChoice(playerID, optionID string) (BatchResult, error) {
	choice := ee.state.GetGameState().AwaitingChoice
	if choice == nil {
		return BatchResult{}, fmt.Errorf("no pending choice to resolve")
	}
	if choice.PlayerID != playerID {
		return BatchResult{}, fmt.Errorf("pending choice belongs to player %s", choice.PlayerID)
	}

	var selected *types.ChoiceOption
	for i := range choice.Options {
		if choice.Options[i].ID == optionID {
			selected = &choice.Options[i]
			break
		}
	}
	if selected == nil {
		return BatchResult{}, fmt.Errorf("option %s not found in pending choice", optionID)
	}

	ee.state.ClearAwaitingChoice()
	return ee.ProcessEffects(selected.Effects, EffectContext{PlayerID: playerID, Source: choice.Source}), nil
}

// expandConditional evaluates the dice-range table against the roll
// already known in context and immediately runs the matched branch.
func (ee *EffectEngine) expandConditional(e types.ConditionalEffect, playerID string, ctx EffectContext) EffectResult {
	if ctx.Roll == nil {
		return EffectResult{Effect: e, Success: false, Message: "conditional effect requires a dice roll in context"}
	}

	for _, r := range e.Ranges {
		if *ctx.Roll >= r.Min && *ctx.Roll <= r.Max {
			branch := ee.ProcessEffects(r.Effects, ctx)
			if branch.FailureCount > 0 {
				return EffectResult{
					Effect:  e,
					Success: false,
					Message: fmt.Sprintf("%d of %d branch effects failed", branch.FailureCount, len(branch.Results)),
				}
			}
			return EffectResult{Effect: e, Success: true}
		}
	}

	// No matching range for this roll: a successful no-op.
	ee.logger.Debug("conditional effect matched no range",
		zap.Int("roll", *ctx.Roll),
		zap.String("source", e.Source))
	return EffectResult{Effect: e, Success: true}
}

// findPlayerWorking resolves a player's working state inside a Mutate
// callback: the TEMP snapshot while one exists, otherwise the roster entry.
func findPlayerWorking(state *types.GameState, playerID string) *types.Player {
	if snap, ok := state.TurnState.Snapshots[playerID]; ok {
		return snap.Player
	}
	for _, p := range state.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func removeFromHand(player *types.Player, cardID string) bool {
	for i, id := range player.Hand {
		if id == cardID {
			player.Hand = append(player.Hand[:i], player.Hand[i+1:]...)
			return true
		}
	}
	return false
}

// cardIDType infers a card's type from its id prefix ("W001" is a W).
// The content pipeline guarantees this shape.
func cardIDType(cardID string) types.CardType {
	if cardID == "" {
		return ""
	}
	return types.CardType(cardID[:1])
}
