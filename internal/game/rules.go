package game

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/user/blueprint-strategy/config"
	"github.com/user/blueprint-strategy/internal/interfaces"
	"github.com/user/blueprint-strategy/internal/types"
)

// StandardRules implements the game-rule questions the turn engine does
// not own: project scope, condition evaluation, and end-of-game checks.
type StandardRules struct {
	cfg       config.GameConfig
	state     interfaces.StateService
	data      interfaces.DataService
	evaluator *ConditionEvaluator
	logger    *zap.Logger
}

// Ensure StandardRules satisfies the rules service contract
var _ interfaces.RulesService = (*StandardRules)(nil)

// NewStandardRules creates the rules service. The condition evaluator is
// constructed here with the rules object itself as its scope source.
func NewStandardRules(cfg config.GameConfig, state interfaces.StateService, data interfaces.DataService, logger *zap.Logger) *StandardRules {
	if logger == nil {
		logger = zap.NewNop()
	}
	rules := &StandardRules{
		cfg:    cfg,
		state:  state,
		data:   data,
		logger: logger,
	}
	rules.evaluator = NewConditionEvaluator(rules, logger)
	return rules
}

// CalculateProjectScope derives scope from the player's W cards: each
// contributes the configured scope value.
func (sr *StandardRules) CalculateProjectScope(playerID string) int {
	player, err := sr.state.GetPlayer(playerID)
	if err != nil {
		sr.logger.Warn("scope requested for unknown player", zap.String("player_id", playerID))
		return 0
	}

	wCount := 0
	for _, cardID := range player.Hand {
		if sr.cardTypeOf(cardID) == types.CardTypeW {
			wCount++
		}
	}
	return wCount * sr.cfg.ScopePerWCard
}

// cardTypeOf resolves a card id to its type, falling back on the id's
// leading letter for ids that predate the content catalog.
func (sr *StandardRules) cardTypeOf(cardID string) types.CardType {
	if card, ok := sr.data.GetCardByID(cardID); ok {
		return card.Type
	}
	if cardID != "" {
		return types.CardType(strings.ToUpper(cardID[:1]))
	}
	return ""
}

// EvaluateCondition reports whether a condition string holds for a player
func (sr *StandardRules) EvaluateCondition(playerID, condition string, roll *int) bool {
	player, err := sr.state.GetPlayer(playerID)
	if err != nil {
		sr.logger.Warn("condition evaluated for unknown player",
			zap.String("player_id", playerID),
			zap.String("condition", condition))
		return false
	}
	return sr.evaluator.Evaluate(player, condition, roll)
}

// CheckGameEndConditions decides whether the game should end: a player on
// the finish space, or the turn limit expiring. Winner is the player with
// the least time spent; ties break toward more money.
func (sr *StandardRules) CheckGameEndConditions() types.GameEndCheck {
	state := sr.state.GetGameState()
	if state.GamePhase != types.PhasePlay {
		return types.GameEndCheck{}
	}

	for _, p := range state.Players {
		space := p.CurrentSpace
		if snap, ok := state.TurnState.Snapshots[p.ID]; ok {
			space = snap.Player.CurrentSpace
		}
		if sr.isEndingSpace(space) {
			return types.GameEndCheck{
				ShouldEnd: true,
				Reason:    fmt.Sprintf("%s reached %s", p.Name, space),
				WinnerID:  sr.pickWinner(state),
			}
		}
	}

	if sr.cfg.MaxTurns > 0 && state.Turn >= sr.cfg.MaxTurns {
		return types.GameEndCheck{
			ShouldEnd: true,
			Reason:    fmt.Sprintf("turn limit of %d reached", sr.cfg.MaxTurns),
			WinnerID:  sr.pickWinner(state),
		}
	}

	return types.GameEndCheck{}
}

func (sr *StandardRules) isEndingSpace(space string) bool {
	if cfg, ok := sr.data.GetSpaceConfig(space); ok && cfg.IsEndingSpace {
		return true
	}
	return strings.EqualFold(space, sr.cfg.FinishSpace)
}

func (sr *StandardRules) pickWinner(state *types.GameState) string {
	var winner *types.Player
	for _, p := range state.Players {
		candidate := p
		if snap, ok := state.TurnState.Snapshots[p.ID]; ok {
			candidate = snap.Player
		}
		if winner == nil ||
			candidate.TimeSpent < winner.TimeSpent ||
			(candidate.TimeSpent == winner.TimeSpent && candidate.Money > winner.Money) {
			winner = candidate
		}
	}
	if winner == nil {
		return ""
	}
	return winner.ID
}
