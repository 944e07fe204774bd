package game

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/user/blueprint-strategy/internal/interfaces"
)

// ResourceManager applies money and time deltas to players' working
// state. It holds no affordability rules beyond the overdraft check in
// SpendMoney: ambient fees go through AddMoney with a negative amount and
// may take a balance below zero.
type ResourceManager struct {
	state  interfaces.StateService
	logger *zap.Logger
}

// Ensure ResourceManager satisfies the resource service contract
var _ interfaces.ResourceService = (*ResourceManager)(nil)

// NewResourceManager creates a resource manager
func NewResourceManager(state interfaces.StateService, logger *zap.Logger) *ResourceManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResourceManager{state: state, logger: logger}
}

// AddMoney applies a signed money delta. Negative deltas are applied
// optimistically; the balance may go below zero.
func (rm *ResourceManager) AddMoney(playerID string, amount int, source, reason string) interfaces.Result {
	player, err := rm.state.GetPlayer(playerID)
	if err != nil {
		return interfaces.Result{Success: false, Message: err.Error()}
	}

	player.Money += amount
	if err := rm.state.UpdatePlayer(player); err != nil {
		return interfaces.Result{Success: false, Message: err.Error()}
	}

	rm.logger.Debug("money changed",
		zap.String("player_id", playerID),
		zap.Int("amount", amount),
		zap.Int("balance", player.Money),
		zap.String("source", source),
		zap.String("reason", reason))
	return interfaces.Result{Success: true}
}

// SpendMoney debits an explicit purchase. It fails without mutating when
// the player cannot cover the amount.
func (rm *ResourceManager) SpendMoney(playerID string, amount int, source, reason string) interfaces.Result {
	if amount < 0 {
		return interfaces.Result{Success: false, Message: fmt.Sprintf("invalid spend amount %d", amount)}
	}

	player, err := rm.state.GetPlayer(playerID)
	if err != nil {
		return interfaces.Result{Success: false, Message: err.Error()}
	}
	if player.Money < amount {
		return interfaces.Result{
			Success: false,
			Message: fmt.Sprintf("insufficient funds: have %d, need %d", player.Money, amount),
		}
	}

	player.Money -= amount
	if err := rm.state.UpdatePlayer(player); err != nil {
		return interfaces.Result{Success: false, Message: err.Error()}
	}

	rm.logger.Debug("money spent",
		zap.String("player_id", playerID),
		zap.Int("amount", amount),
		zap.Int("balance", player.Money),
		zap.String("source", source),
		zap.String("reason", reason))
	return interfaces.Result{Success: true}
}

// AddTime applies a signed delta to time spent. Negative deltas model
// time saved (expeditor cards).
func (rm *ResourceManager) AddTime(playerID string, days int, source, reason string) interfaces.Result {
	player, err := rm.state.GetPlayer(playerID)
	if err != nil {
		return interfaces.Result{Success: false, Message: err.Error()}
	}

	player.TimeSpent += days
	if player.TimeSpent < 0 {
		player.TimeSpent = 0
	}
	if err := rm.state.UpdatePlayer(player); err != nil {
		return interfaces.Result{Success: false, Message: err.Error()}
	}

	rm.logger.Debug("time changed",
		zap.String("player_id", playerID),
		zap.Int("days", days),
		zap.Int("time_spent", player.TimeSpent),
		zap.String("source", source),
		zap.String("reason", reason))
	return interfaces.Result{Success: true}
}

// SpendTime records days spent on an activity
func (rm *ResourceManager) SpendTime(playerID string, days int, source, reason string) interfaces.Result {
	if days < 0 {
		return interfaces.Result{Success: false, Message: fmt.Sprintf("invalid time amount %d", days)}
	}
	return rm.AddTime(playerID, days, source, reason)
}
