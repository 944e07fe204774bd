package interfaces

import "github.com/user/blueprint-strategy/internal/types"

// DataService resolves static game content by key. Implementations are
// read-only; records they return must not be mutated.
type DataService interface {
	GetSpaceEffects(space string, visitType types.VisitType) []types.SpaceEffect
	GetDiceEffects(space string, visitType types.VisitType) []types.DiceEffect
	GetCardByID(id string) (*types.Card, bool)
	GetCardsByType(cardType types.CardType) []*types.Card
	GetSpaceConfig(space string) (*types.SpaceConfig, bool)
}

// StateService holds the canonical GameState. It is the single writer
// boundary: only the engine mutates through it, the UI reads and
// subscribes. Subscribers are invoked synchronously after a mutation.
type StateService interface {
	GetGameState() *types.GameState
	GetPlayer(id string) (*types.Player, error)
	UpdatePlayer(player *types.Player) error
	Subscribe(fn func(*types.GameState)) (unsubscribe func())
	SetAwaitingChoice(choice *types.AwaitingChoice)
	ClearAwaitingChoice()
	SetCurrentPlayer(id string)
	Mutate(fn func(*types.GameState)) // run fn under the write lock, then notify
}

// RulesService answers game-rule questions the engine does not own
type RulesService interface {
	CalculateProjectScope(playerID string) int
	EvaluateCondition(playerID, condition string, roll *int) bool
	CheckGameEndConditions() types.GameEndCheck
}

// Result is the outcome of a single resource mutation
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ResourceService applies money/time deltas to players. It holds no
// affordability business rules beyond the overdraft check in SpendMoney.
type ResourceService interface {
	AddMoney(playerID string, amount int, source, reason string) Result
	SpendMoney(playerID string, amount int, source, reason string) Result
	AddTime(playerID string, days int, source, reason string) Result
	SpendTime(playerID string, days int, source, reason string) Result
}
