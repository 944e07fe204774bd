package game

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/user/blueprint-strategy/internal/types"
)

// ScopeCalculator computes a player's project scope from their hand.
// The evaluator has no scope formula of its own.
type ScopeCalculator interface {
	CalculateProjectScope(playerID string) int
}

// Loan-tier boundaries in currency units
const (
	loanTierLowMax = 1_400_000
	loanTierMidMin = 1_500_000
	loanTierMidMax = 2_750_000
	scopeThreshold = 4_000_000
)

// ConditionEvaluator decides whether a named condition holds for a player.
//
// Policy, preserved from the content pipeline: unknown conditions default
// open (true, with a warning) so new data rows are never blocked, while an
// internal panic during evaluation fails closed (false). Do not collapse
// the two.
type ConditionEvaluator struct {
	scope  ScopeCalculator
	logger *zap.Logger
}

// NewConditionEvaluator creates a condition evaluator
func NewConditionEvaluator(scope ScopeCalculator, logger *zap.Logger) *ConditionEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConditionEvaluator{scope: scope, logger: logger}
}

// Evaluate reports whether condition holds for player given an optional
// dice roll. Conditions are matched case-insensitively after trimming.
func (ce *ConditionEvaluator) Evaluate(player *types.Player, condition string, roll *int) (result bool) {
	defer func() {
		if r := recover(); r != nil {
			ce.logger.Error("condition evaluation panicked, failing closed",
				zap.String("condition", condition),
				zap.Any("panic", r))
			result = false
		}
	}()

	cond := strings.ToLower(strings.TrimSpace(condition))

	switch cond {
	case "", "always":
		return true
	case "scope_le_4m":
		return ce.scope.CalculateProjectScope(player.ID) <= scopeThreshold
	case "scope_gt_4m":
		return ce.scope.CalculateProjectScope(player.ID) > scopeThreshold
	case "loan_up_to_1_4m":
		return player.Money <= loanTierLowMax
	case "loan_1_5m_to_2_75m":
		return player.Money >= loanTierMidMin && player.Money <= loanTierMidMax
	case "loan_above_2_75m":
		return player.Money > loanTierMidMax
	case "high":
		return roll != nil && *roll >= 4
	case "low":
		return roll != nil && *roll <= 3
	case "to_left", "to_right":
		// Targeting directives: resolving the target is someone else's
		// job, the evaluator only must not block the effect.
		return true
	}

	if strings.HasPrefix(cond, "dice_roll_") {
		if roll != nil {
			if n, err := strconv.Atoi(strings.TrimPrefix(cond, "dice_roll_")); err == nil {
				return *roll == n
			}
		}
		// TODO: confirm with product whether dice_roll_N without a
		// supplied roll should stay permissive. Today it drops into the
		// unknown-condition branch below and evaluates true.
	}

	// Calculation modifiers parameterize magnitude elsewhere, they never gate.
	if strings.Contains(cond, "%") || strings.Contains(cond, "per_") || strings.Contains(cond, "of_borrowed_amount") {
		return true
	}

	ce.logger.Warn("unknown condition, defaulting open",
		zap.String("condition", condition),
		zap.String("player_id", player.ID))
	return true
}
