package types

// ResourceKind identifies which player resource an effect targets
type ResourceKind string

const (
	ResourceMoney ResourceKind = "MONEY"
	ResourceTime  ResourceKind = "TIME"
)

// TurnControlAction is the flavor of a TurnControl effect
type TurnControlAction string

const (
	GrantReRoll TurnControlAction = "GRANT_REROLL"
	SkipTurn    TurnControlAction = "SKIP_TURN"
)

// EffectMeta carries the audit fields every effect shares
type EffectMeta struct {
	PlayerID string `json:"player_id"`
	Source   string `json:"source"`
	Reason   string `json:"reason"`
}

// Effect is a canonical, typed description of a single game-state
// mutation, decoupled from the raw record that produced it. It is a
// closed union: the only implementations live in this package, and the
// effect engine dispatches over them with a type switch. Effects are
// immutable values and carry no behavior beyond Meta.
type Effect interface {
	Meta() EffectMeta
	isEffect()
}

// ResourceChange applies a signed delta to a player resource. Enforce
// marks explicit purchases: an enforced negative money delta fails on
// overdraft instead of taking the balance below zero.
type ResourceChange struct {
	EffectMeta
	Resource ResourceKind `json:"resource"`
	Amount   int          `json:"amount"`
	Enforce  bool         `json:"enforce,omitempty"`
}

// CardDraw draws count cards of a type for a player
type CardDraw struct {
	EffectMeta
	CardType CardType `json:"card_type"`
	Count    int      `json:"count"`
}

// CardDiscard discards cards of a type from a player's hand. If CardIDs
// is empty, the first Count cards of the type are discarded.
type CardDiscard struct {
	EffectMeta
	CardType CardType `json:"card_type"`
	Count    int      `json:"count"`
	CardIDs  []string `json:"card_ids,omitempty"`
}

// CardActivation puts a duration-bound card into play
type CardActivation struct {
	EffectMeta
	CardID   string `json:"card_id"`
	Duration int    `json:"duration"` // turns
}

// TurnControl grants a re-roll or imposes a turn skip
type TurnControl struct {
	EffectMeta
	Action TurnControlAction `json:"action"`
	Count  int               `json:"count,omitempty"` // turns to skip
}

// ChoiceOption is one mutually exclusive branch of a ChoiceOfEffects.
// The effect list is runtime-only: snapshots carry the id and description
// the UI shows, not the branch internals.
type ChoiceOption struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Effects     []Effect `json:"-"`
}

// ChoiceOfEffects suspends processing until the player picks an option
type ChoiceOfEffects struct {
	EffectMeta
	Prompt  string         `json:"prompt"`
	Options []ChoiceOption `json:"options"`
}

// DiceRange maps an inclusive roll interval to an effect list
type DiceRange struct {
	Min     int      `json:"min"`
	Max     int      `json:"max"`
	Effects []Effect `json:"effects"`
}

// ConditionalEffect expands into the branch matching the known roll
type ConditionalEffect struct {
	EffectMeta
	Ranges []DiceRange `json:"ranges"`
}

// RecalculateScope asks the rules collaborator to recompute project scope
type RecalculateScope struct {
	EffectMeta
}

// LogEffect records a human-readable audit entry and changes nothing
type LogEffect struct {
	EffectMeta
	Message string `json:"message"`
}

func (e ResourceChange) Meta() EffectMeta    { return e.EffectMeta }
func (e CardDraw) Meta() EffectMeta          { return e.EffectMeta }
func (e CardDiscard) Meta() EffectMeta       { return e.EffectMeta }
func (e CardActivation) Meta() EffectMeta    { return e.EffectMeta }
func (e TurnControl) Meta() EffectMeta       { return e.EffectMeta }
func (e ChoiceOfEffects) Meta() EffectMeta   { return e.EffectMeta }
func (e ConditionalEffect) Meta() EffectMeta { return e.EffectMeta }
func (e RecalculateScope) Meta() EffectMeta  { return e.EffectMeta }
func (e LogEffect) Meta() EffectMeta         { return e.EffectMeta }

func (ResourceChange) isEffect()    {}
func (CardDraw) isEffect()          {}
func (CardDiscard) isEffect()       {}
func (CardActivation) isEffect()    {}
func (TurnControl) isEffect()       {}
func (ChoiceOfEffects) isEffect()   {}
func (ConditionalEffect) isEffect() {}
func (RecalculateScope) isEffect()  {}
func (LogEffect) isEffect()         {}
