package types

import "time"

// GamePhase identifies the coarse lifecycle stage of a game
type GamePhase string

const (
	PhaseSetup GamePhase = "SETUP"
	PhasePlay  GamePhase = "PLAY"
	PhaseEnd   GamePhase = "END"
)

// VisitType distinguishes a player's first landing on a space from repeats
type VisitType string

const (
	VisitFirst      VisitType = "First"
	VisitSubsequent VisitType = "Subsequent"
)

// CardType is the single-letter card category from the content files
type CardType string

const (
	CardTypeW CardType = "W" // Work
	CardTypeB CardType = "B" // Bank loan
	CardTypeE CardType = "E" // Expeditor
	CardTypeL CardType = "L" // Life event
	CardTypeI CardType = "I" // Investment
)

// AllCardTypes lists every deck the game maintains, in display order.
var AllCardTypes = []CardType{CardTypeW, CardTypeB, CardTypeE, CardTypeL, CardTypeI}

// Player represents a game participant's committed (REAL) state
type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`

	Money     int `json:"money"`
	TimeSpent int `json:"time_spent"` // days

	Hand          []string       `json:"hand"` // ordered card ids
	ActiveCards   []ActiveCard   `json:"active_cards"`
	Loans         []Loan         `json:"loans"`
	ActiveEffects []ActiveEffect `json:"active_effects"`
	TurnModifiers TurnModifiers  `json:"turn_modifiers"`

	CurrentSpace  string    `json:"current_space"`
	VisitType     VisitType `json:"visit_type"`
	VisitedSpaces []string  `json:"visited_spaces"`
}

// ActiveCard is a duration-bound card currently in play
type ActiveCard struct {
	CardID         string `json:"card_id"`
	ExpirationTurn int    `json:"expiration_turn"`
}

// Loan is an outstanding loan taken via a B card
type Loan struct {
	ID        string    `json:"id"`
	Amount    int       `json:"amount"`
	Rate      float64   `json:"rate"` // percent per turn
	TakenAt   time.Time `json:"taken_at"`
	TakenTurn int       `json:"taken_turn"`
}

// ActiveEffect is a time-limited modifier on a player
type ActiveEffect struct {
	ID             string `json:"id"`
	Source         string `json:"source"`
	Description    string `json:"description"`
	ExpirationTurn int    `json:"expiration_turn"`
}

// TurnModifiers holds per-player turn-control flags
type TurnModifiers struct {
	SkipTurns int  `json:"skip_turns"`
	CanReRoll bool `json:"can_re_roll"`
}

// TurnSnapshot is a player's TEMP working state for the current turn,
// derived from REAL plus the turn-entry context.
type TurnSnapshot struct {
	Player     *Player   `json:"player"`
	Space      string    `json:"space"`
	VisitType  VisitType `json:"visit_type"`
	TurnNumber int       `json:"turn_number"`
	CreatedAt  time.Time `json:"created_at"`
}

// TurnStateModel separates committed (REAL) player state from the working
// (TEMP) state for the active turn. At most one snapshot exists per player;
// "Try Again" discards it, "End Turn" commits it onto REAL.
type TurnStateModel struct {
	Snapshots      map[string]*TurnSnapshot `json:"snapshots"`
	TryAgainCounts map[string]int           `json:"try_again_counts"`
}

// AwaitingChoice is a pending CHOICE_OF_EFFECTS waiting for player input
type AwaitingChoice struct {
	ID       string         `json:"id"`
	PlayerID string         `json:"player_id"`
	Prompt   string         `json:"prompt"`
	Options  []ChoiceOption `json:"options"`
	Source   string         `json:"source"`
}

// GameState represents the overall state of the game
type GameState struct {
	GameID          string    `json:"game_id"`
	Players         []*Player `json:"players"`
	CurrentPlayerID string    `json:"current_player_id"`
	GamePhase       GamePhase `json:"game_phase"`

	// Turn is the global turn counter; TurnWithinRound counts positions
	// inside the current round.
	Turn            int `json:"turn"`
	TurnWithinRound int `json:"turn_within_round"`

	AwaitingChoice    *AwaitingChoice   `json:"awaiting_choice,omitempty"`
	ActiveNegotiation *NegotiationState `json:"active_negotiation,omitempty"`

	Decks        map[CardType][]string `json:"decks"`
	DiscardPiles map[CardType][]string `json:"discard_piles"`

	TurnState TurnStateModel `json:"turn_state"`

	// Per-turn flags for the current player, reset on advancement
	HasPlayerRolledThisTurn bool `json:"has_player_rolled_this_turn"`
	HasPlayerMovedThisTurn  bool `json:"has_player_moved_this_turn"`
	LastDiceRoll            int  `json:"last_dice_roll"`

	// CompletedManualActions tracks manual effect types already applied
	// this turn, keyed by effect type.
	CompletedManualActions map[string]bool `json:"completed_manual_actions"`

	Winner        string    `json:"winner,omitempty"`
	GameEndReason string    `json:"game_end_reason,omitempty"`
	GameStartTime time.Time `json:"game_start_time"`
	GameEndTime   time.Time `json:"game_end_time,omitempty"`
}

// NegotiationStatus is the lifecycle state of a negotiation
type NegotiationStatus string

const (
	NegotiationPending    NegotiationStatus = "pending"
	NegotiationInProgress NegotiationStatus = "in_progress"
	NegotiationResolved   NegotiationStatus = "resolved"
	NegotiationCancelled  NegotiationStatus = "cancelled"
)

// NegotiationOffer is one timestamped offer within a negotiation
type NegotiationOffer struct {
	ID             string    `json:"id"`
	FromPlayerID   string    `json:"from_player_id"`
	Money          int       `json:"money"`
	CardIDs        []string  `json:"card_ids"`
	RequestedMoney int       `json:"requested_money"`
	RequestedCards []string  `json:"requested_cards"`
	Message        string    `json:"message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NegotiationState is the single active peer-to-peer exchange
type NegotiationState struct {
	ID          string             `json:"id"`
	InitiatorID string             `json:"initiator_id"`
	PartnerID   string             `json:"partner_id"`
	Status      NegotiationStatus  `json:"status"`
	Offers      []NegotiationOffer `json:"offers"`
	Snapshots   []*Player          `json:"snapshots,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	ExpiresAt   time.Time          `json:"expires_at"`
}

// SpaceEffect is a raw per-space, per-visit-type effect row from
// SPACE_EFFECTS.csv. Read-only input to the effect factory.
type SpaceEffect struct {
	SpaceName    string    `json:"space_name"`
	VisitType    VisitType `json:"visit_type"`
	EffectType   string    `json:"effect_type"`   // money, time, cards, movement
	EffectAction string    `json:"effect_action"` // e.g. draw_w, fee, add
	EffectValue  string    `json:"effect_value"`
	Condition    string    `json:"condition"`
	TriggerType  string    `json:"trigger_type"` // auto or manual
	Description  string    `json:"description"`
}

// DiceEffect is a raw dice-roll table row from DICE_EFFECTS.csv: one
// outcome string per die face.
type DiceEffect struct {
	SpaceName  string    `json:"space_name"`
	VisitType  VisitType `json:"visit_type"`
	EffectType string    `json:"effect_type"`
	Rolls      [6]string `json:"rolls"` // index 0 is a roll of 1
}

// Card is a raw card record from CARDS_EXPANDED.csv
type Card struct {
	ID          string   `json:"card_id"`
	Name        string   `json:"card_name"`
	Type        CardType `json:"card_type"`
	Description string   `json:"description"`

	Cost             int    `json:"cost"`
	Duration         string `json:"duration"` // Immediate or Turns
	DurationCount    int    `json:"duration_count"`
	PhaseRestriction string `json:"phase_restriction"`

	LoanAmount       int     `json:"loan_amount"`
	LoanRate         float64 `json:"loan_rate"`
	InvestmentAmount int     `json:"investment_amount"`
	WorkCost         int     `json:"work_cost"`

	MoneyEffect  string `json:"money_effect"`
	TickModifier int    `json:"tick_modifier"`

	DrawCards    string `json:"draw_cards"`    // e.g. "1 E"
	DiscardCards string `json:"discard_cards"` // e.g. "2 W"
	Target       string `json:"target"`
	Scope        string `json:"scope"`
}

// SpaceConfig is per-space board configuration from GAME_CONFIG.csv
type SpaceConfig struct {
	SpaceName       string `json:"space_name"`
	Phase           string `json:"phase"`
	Action          string `json:"action"`
	IsStartingSpace bool   `json:"is_starting_space"`
	IsEndingSpace   bool   `json:"is_ending_space"`
}

// GameEndCheck is the rules collaborator's verdict on whether the game
// should end.
type GameEndCheck struct {
	ShouldEnd bool   `json:"should_end"`
	Reason    string `json:"reason"`
	WinnerID  string `json:"winner_id"`
}

// TurnEffectResult is the structured summary returned to the caller after
// a dice roll. The field set is relied on by the UI; keep it stable.
type TurnEffectResult struct {
	DiceValue  int                `json:"diceValue"`
	SpaceName  string             `json:"spaceName"`
	Effects    []DiceResultEffect `json:"effects"`
	Summary    string             `json:"summary"`
	HasChoices bool               `json:"hasChoices"`
	CanReRoll  bool               `json:"canReRoll,omitempty"`
}

// DiceResultEffect is one line item within a TurnEffectResult
type DiceResultEffect struct {
	Type       string `json:"type"` // money, time, cards, movement, choice
	Value      int    `json:"value,omitempty"`
	CardType   string `json:"cardType,omitempty"`
	CardCount  int    `json:"cardCount,omitempty"`
	CardAction string `json:"cardAction,omitempty"`
}
