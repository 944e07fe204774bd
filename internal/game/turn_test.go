package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/blueprint-strategy/internal/types"
)

func TestAddPlayerLimitsAndPhase(t *testing.T) {
	tg := newTestGame(0)

	for i := 0; i < tg.cfg.Game.MaxPlayers; i++ {
		player, err := tg.turns.AddPlayer(playerName(i), "red")
		require.NoError(t, err)
		assert.Equal(t, tg.cfg.Game.StartingMoney, player.Money)
		assert.Equal(t, tg.cfg.Game.StartingSpace, player.CurrentSpace)
		assert.Equal(t, types.VisitFirst, player.VisitType)
	}

	_, err := tg.turns.AddPlayer("One Too Many", "gray")
	assert.ErrorContains(t, err, "player limit")

	require.NoError(t, tg.turns.StartGame())
	_, err = tg.turns.AddPlayer("Latecomer", "green")
	assert.ErrorIs(t, err, ErrGameStarted)
}

func TestStartGameRequiresPlayers(t *testing.T) {
	tg := newTestGame(0)
	assert.ErrorIs(t, tg.turns.StartGame(), ErrNoPlayers)
}

func TestStartGameOpensFirstTurn(t *testing.T) {
	tg := newTestGame(2)
	require.NoError(t, tg.turns.StartGame())

	state := tg.store.GetGameState()
	assert.Equal(t, types.PhasePlay, state.GamePhase)
	assert.Equal(t, 1, state.Turn)
	assert.Equal(t, tg.players[0].ID, state.CurrentPlayerID)
	assert.Contains(t, state.TurnState.Snapshots, tg.players[0].ID)
	assert.NotContains(t, state.TurnState.Snapshots, tg.players[1].ID)

	// Decks built from the catalog
	assert.Len(t, state.Decks[types.CardTypeW], 3)
	assert.Len(t, state.Decks[types.CardTypeB], 3)

	assert.ErrorIs(t, tg.turns.StartGame(), ErrGameStarted)
}

func TestRollOncePerTurn(t *testing.T) {
	tg := newTestGame(1, 3)
	require.NoError(t, tg.turns.StartGame())
	playerID := tg.players[0].ID

	result, err := tg.turns.RollDiceWithFeedback(playerID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.DiceValue)
	assert.Equal(t, tg.cfg.Game.StartingSpace, result.SpaceName)
	assert.Contains(t, result.Summary, "rolled 3 on")

	_, err = tg.turns.RollDiceWithFeedback(playerID)
	assert.ErrorContains(t, err, "has already rolled this turn")
}

func TestRollGuards(t *testing.T) {
	tg := newTestGame(2)

	// Not in play phase yet
	_, err := tg.turns.RollDiceWithFeedback(tg.players[0].ID)
	assert.ErrorIs(t, err, ErrNotInPlayPhase)

	require.NoError(t, tg.turns.StartGame())

	// Out of turn
	_, err = tg.turns.RollDiceWithFeedback(tg.players[1].ID)
	assert.ErrorContains(t, err, "turn")

	// Unknown player
	_, err = tg.turns.RollDiceWithFeedback("nobody")
	assert.Error(t, err)
}

func TestRollAppliesConditionalSpaceEffects(t *testing.T) {
	// Eight W cards at 500k each puts scope exactly on the 4M boundary,
	// which still counts as "at most 4M": the player draws from the B
	// deck, not the I deck.
	tg := newTestGame(1, 3)
	playerID := tg.players[0].ID

	player := tg.realPlayer(playerID)
	player.CurrentSpace = "OWNER-FUND-INITIATION"
	for i := 0; i < 8; i++ {
		player.Hand = append(player.Hand, "W10"+string(rune('0'+i)))
	}
	require.NoError(t, tg.store.UpdatePlayer(player))

	tg.data.addSpaceEffect(types.SpaceEffect{
		SpaceName: "OWNER-FUND-INITIATION", VisitType: types.VisitFirst,
		EffectType: "cards", EffectAction: "draw_b", EffectValue: "1",
		Condition: "scope_le_4m", TriggerType: "auto",
	})
	tg.data.addSpaceEffect(types.SpaceEffect{
		SpaceName: "OWNER-FUND-INITIATION", VisitType: types.VisitFirst,
		EffectType: "cards", EffectAction: "draw_i", EffectValue: "1",
		Condition: "scope_gt_4m", TriggerType: "auto",
	})

	require.NoError(t, tg.turns.StartGame())
	result, err := tg.turns.RollDiceWithFeedback(playerID)
	require.NoError(t, err)

	hand := tg.workingPlayer(playerID).Hand
	assert.Len(t, hand, 9)
	assert.Equal(t, 1, countByPrefix(hand, "B"))
	assert.Equal(t, 0, countByPrefix(hand, "I"))
	assert.NotEmpty(t, result.Effects)
}

func TestManualEffectRunsOnce(t *testing.T) {
	tg := newTestGame(1, 4)
	playerID := tg.players[0].ID

	tg.data.addSpaceEffect(types.SpaceEffect{
		SpaceName: tg.cfg.Game.StartingSpace, VisitType: types.VisitFirst,
		EffectType: "money", EffectAction: "add", EffectValue: "1000",
		TriggerType: "manual",
	})

	require.NoError(t, tg.turns.StartGame())

	result, err := tg.turns.TriggerManualEffectWithFeedback(playerID, "money")
	require.NoError(t, err)
	assert.Equal(t, 1000, tg.workingPlayer(playerID).Money)
	assert.NotContains(t, result.Summary, "already completed")

	// Second trigger this turn is a no-op
	result, err = tg.turns.TriggerManualEffectWithFeedback(playerID, "money")
	require.NoError(t, err)
	assert.Contains(t, result.Summary, "already completed")
	assert.Equal(t, 1000, tg.workingPlayer(playerID).Money)
}

func TestRerollRequiresGrantAndConsumesIt(t *testing.T) {
	tg := newTestGame(1, 2, 5)
	require.NoError(t, tg.turns.StartGame())
	playerID := tg.players[0].ID

	_, err := tg.turns.RerollDice(playerID)
	assert.ErrorContains(t, err, "does not have re-roll ability")

	player := tg.workingPlayer(playerID)
	player.TurnModifiers.CanReRoll = true
	require.NoError(t, tg.store.UpdatePlayer(player))

	result, err := tg.turns.RerollDice(playerID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.DiceValue)
	assert.False(t, result.CanReRoll, "the grant is single use")
	assert.False(t, tg.workingPlayer(playerID).TurnModifiers.CanReRoll)

	_, err = tg.turns.RerollDice(playerID)
	assert.ErrorContains(t, err, "does not have re-roll ability")
}

func TestPlayCard(t *testing.T) {
	tg := newTestGame(1)
	playerID := tg.players[0].ID

	tg.data.addCard(&types.Card{
		ID: "B101", Name: "Construction Loan", Type: types.CardTypeB,
		LoanAmount: 1_000_000, LoanRate: 2.5,
	})

	player := tg.realPlayer(playerID)
	player.Hand = []string{"B101"}
	require.NoError(t, tg.store.UpdatePlayer(player))

	require.NoError(t, tg.turns.StartGame())
	batch, err := tg.turns.PlayCard(playerID, "B101")
	require.NoError(t, err)
	assert.Zero(t, batch.FailureCount)

	working := tg.workingPlayer(playerID)
	assert.Equal(t, 1_000_000, working.Money)
	assert.Empty(t, working.Hand)
	require.Len(t, working.Loans, 1)
	assert.Equal(t, 1_000_000, working.Loans[0].Amount)
	assert.Contains(t, tg.store.GetGameState().DiscardPiles[types.CardTypeB], "B101")
}

func TestPlayCardRejectsUnknownAndUnheld(t *testing.T) {
	tg := newTestGame(1)
	require.NoError(t, tg.turns.StartGame())
	playerID := tg.players[0].ID

	_, err := tg.turns.PlayCard(playerID, "Z999")
	assert.ErrorContains(t, err, "card not found")

	_, err = tg.turns.PlayCard(playerID, "E901")
	assert.ErrorContains(t, err, "not in player's hand")
}

func TestPlayCardInsufficientFundsKeepsBalance(t *testing.T) {
	tg := newTestGame(1)
	playerID := tg.players[0].ID

	tg.data.addCard(&types.Card{
		ID: "E101", Name: "Premium Expeditor", Type: types.CardTypeE,
		Cost: 250_000, TickModifier: -10,
	})
	player := tg.realPlayer(playerID)
	player.Hand = []string{"E101"}
	require.NoError(t, tg.store.UpdatePlayer(player))

	require.NoError(t, tg.turns.StartGame())
	batch, err := tg.turns.PlayCard(playerID, "E101")
	require.NoError(t, err, "an unaffordable cost is a failed effect, not a call error")
	assert.Equal(t, 1, batch.FailureCount)
	assert.Equal(t, 0, tg.workingPlayer(playerID).Money)
	assert.Contains(t, tg.workingPlayer(playerID).Hand, "E101", "an unpaid card stays in hand")
}

func TestTryAgainPenalizesRealAndResetsTemp(t *testing.T) {
	tg := newTestGame(1, 3)
	require.NoError(t, tg.turns.StartGame())
	playerID := tg.players[0].ID

	// Dirty the TEMP state mid-turn
	_, err := tg.turns.RollDiceWithFeedback(playerID)
	require.NoError(t, err)
	working := tg.workingPlayer(playerID)
	working.Money = 12345
	working.TimeSpent = 40
	require.NoError(t, tg.store.UpdatePlayer(working))

	shouldAdvance, err := tg.turns.TryAgainOnSpace(playerID)
	require.NoError(t, err)
	assert.False(t, shouldAdvance)

	// REAL took only the penalty; the dirty TEMP values are gone
	real := tg.realPlayer(playerID)
	assert.Equal(t, tg.cfg.Game.TryAgainTimePenalty, real.TimeSpent)
	assert.Equal(t, 0, real.Money)

	fresh := tg.workingPlayer(playerID)
	assert.Equal(t, real.TimeSpent, fresh.TimeSpent)
	assert.Equal(t, 0, fresh.Money)

	// Per-turn flags reset so the player can roll again
	state := tg.store.GetGameState()
	assert.False(t, state.HasPlayerRolledThisTurn)
	assert.Zero(t, state.LastDiceRoll)
	_, err = tg.turns.RollDiceWithFeedback(playerID)
	assert.NoError(t, err)
}

func TestTryAgainBudgetForcesAdvance(t *testing.T) {
	tg := newTestGame(1)
	require.NoError(t, tg.turns.StartGame())
	playerID := tg.players[0].ID

	for i := 1; i < maxTryAgainPerTurn; i++ {
		shouldAdvance, err := tg.turns.TryAgainOnSpace(playerID)
		require.NoError(t, err)
		assert.False(t, shouldAdvance, "attempt %d", i)
	}

	shouldAdvance, err := tg.turns.TryAgainOnSpace(playerID)
	require.NoError(t, err)
	assert.True(t, shouldAdvance, "retry budget used up")

	// Each retry charged the committed state
	assert.Equal(t, maxTryAgainPerTurn*tg.cfg.Game.TryAgainTimePenalty, tg.realPlayer(playerID).TimeSpent)
}

func TestTryAgainWithoutSnapshot(t *testing.T) {
	tg := newTestGame(2)
	require.NoError(t, tg.turns.StartGame())

	// Only the current player has an open turn
	_, err := tg.turns.TryAgainOnSpace(tg.players[1].ID)
	assert.ErrorContains(t, err, "no turn snapshot for player")
}

func TestEndTurnCommitsTempOntoReal(t *testing.T) {
	tg := newTestGame(2)
	require.NoError(t, tg.turns.StartGame())
	playerID := tg.players[0].ID

	working := tg.workingPlayer(playerID)
	working.Money = 777
	require.NoError(t, tg.store.UpdatePlayer(working))

	nextID, err := tg.turns.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, tg.players[1].ID, nextID)

	real := tg.realPlayer(playerID)
	assert.Equal(t, 777, real.Money)
	assert.Contains(t, real.VisitedSpaces, tg.cfg.Game.StartingSpace)
	assert.NotContains(t, tg.store.GetGameState().TurnState.Snapshots, playerID)
}

func TestEndTurnWrapsAroundRoster(t *testing.T) {
	tg := newTestGame(3)
	require.NoError(t, tg.turns.StartGame())

	nextID, err := tg.turns.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, tg.players[1].ID, nextID)

	nextID, err = tg.turns.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, tg.players[2].ID, nextID)

	// The last player hands back to the first
	nextID, err = tg.turns.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, tg.players[0].ID, nextID)
}

func TestEndTurnSinglePlayerWrapsToSelf(t *testing.T) {
	tg := newTestGame(1)
	require.NoError(t, tg.turns.StartGame())

	nextID, err := tg.turns.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, tg.players[0].ID, nextID)

	// A fresh snapshot opens for the same player
	assert.Contains(t, tg.store.GetGameState().TurnState.Snapshots, tg.players[0].ID)
}

func TestEndTurnSkipsPlayersWithSkipCharges(t *testing.T) {
	tg := newTestGame(3)
	require.NoError(t, tg.turns.StartGame())

	second := tg.realPlayer(tg.players[1].ID)
	second.TurnModifiers.SkipTurns = 1
	require.NoError(t, tg.store.UpdatePlayer(second))

	nextID, err := tg.turns.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, tg.players[2].ID, nextID, "the skipping player is passed over")
	assert.Zero(t, tg.realPlayer(tg.players[1].ID).TurnModifiers.SkipTurns, "the charge is consumed")

	// Next round the skipped player plays normally
	nextID, err = tg.turns.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, tg.players[0].ID, nextID)
	nextID, err = tg.turns.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, tg.players[1].ID, nextID)
}

func TestEndTurnGuards(t *testing.T) {
	tg := newTestGame(1)
	_, err := tg.turns.EndTurn()
	assert.ErrorIs(t, err, ErrNotInPlayPhase)
}

func TestReRollGrantDoesNotSurviveCommit(t *testing.T) {
	tg := newTestGame(1)
	require.NoError(t, tg.turns.StartGame())
	playerID := tg.players[0].ID

	working := tg.workingPlayer(playerID)
	working.TurnModifiers.CanReRoll = true
	require.NoError(t, tg.store.UpdatePlayer(working))

	_, err := tg.turns.EndTurn()
	require.NoError(t, err)

	assert.False(t, tg.realPlayer(playerID).TurnModifiers.CanReRoll)
}

func TestGameEndsOnFinishSpace(t *testing.T) {
	tg := newTestGame(2)
	require.NoError(t, tg.turns.StartGame())
	playerID := tg.players[0].ID

	working := tg.workingPlayer(playerID)
	working.CurrentSpace = tg.cfg.Game.FinishSpace
	working.TimeSpent = 10
	require.NoError(t, tg.store.UpdatePlayer(working))

	_, err := tg.turns.EndTurn()
	require.NoError(t, err)

	state := tg.store.GetGameState()
	assert.Equal(t, types.PhaseEnd, state.GamePhase)
	assert.NotEmpty(t, state.Winner)
	assert.Contains(t, state.GameEndReason, tg.cfg.Game.FinishSpace)

	// No further turn actions once the game is over
	_, err = tg.turns.EndTurn()
	assert.ErrorIs(t, err, ErrNotInPlayPhase)
}

func TestWinnerLeastTimeThenMostMoney(t *testing.T) {
	tg := newTestGame(3)
	require.NoError(t, tg.turns.StartGame())

	a := tg.realPlayer(tg.players[0].ID)
	a.TimeSpent, a.Money = 30, 100
	require.NoError(t, tg.store.UpdatePlayer(a))

	b := tg.realPlayer(tg.players[1].ID)
	b.TimeSpent, b.Money = 20, 100
	require.NoError(t, tg.store.UpdatePlayer(b))

	c := tg.realPlayer(tg.players[2].ID)
	c.TimeSpent, c.Money = 20, 500
	require.NoError(t, tg.store.UpdatePlayer(c))

	// a is the working player; update the snapshot copy too so the
	// committed values survive
	working := tg.workingPlayer(tg.players[0].ID)
	working.TimeSpent, working.Money = 30, 100
	working.CurrentSpace = tg.cfg.Game.FinishSpace
	require.NoError(t, tg.store.UpdatePlayer(working))

	_, err := tg.turns.EndTurn()
	require.NoError(t, err)

	state := tg.store.GetGameState()
	assert.Equal(t, types.PhaseEnd, state.GamePhase)
	assert.Equal(t, tg.players[2].ID, state.Winner, "ties on time break toward more money")
}

func TestExpiredActiveCardsSweptAtTurnOpen(t *testing.T) {
	tg := newTestGame(1)
	playerID := tg.players[0].ID

	player := tg.realPlayer(playerID)
	player.ActiveCards = []types.ActiveCard{
		{CardID: "E901", ExpirationTurn: 1}, // expires immediately
		{CardID: "E902", ExpirationTurn: 99},
	}
	require.NoError(t, tg.store.UpdatePlayer(player))

	require.NoError(t, tg.turns.StartGame())

	real := tg.realPlayer(playerID)
	require.Len(t, real.ActiveCards, 1)
	assert.Equal(t, "E902", real.ActiveCards[0].CardID)
	assert.Contains(t, tg.store.GetGameState().DiscardPiles[types.CardTypeE], "E901")
}

func TestVisitTypeFlipsOnReturn(t *testing.T) {
	tg := newTestGame(1)
	require.NoError(t, tg.turns.StartGame())
	playerID := tg.players[0].ID

	assert.Equal(t, types.VisitFirst, tg.workingPlayer(playerID).VisitType)

	// End the turn on the same space; reopening it is a subsequent visit
	_, err := tg.turns.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, types.VisitSubsequent, tg.workingPlayer(playerID).VisitType)
}

func countByPrefix(hand []string, prefix string) int {
	n := 0
	for _, id := range hand {
		if strings.HasPrefix(id, prefix) {
			n++
		}
	}
	return n
}
