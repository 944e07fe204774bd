package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/blueprint-strategy/internal/types"
)

func TestFromCardCostComesFirst(t *testing.T) {
	factory := NewEffectFactory(zap.NewNop())
	card := &types.Card{
		ID:           "E001",
		Name:         "Fast Track Permit",
		Type:         types.CardTypeE,
		Cost:         100000,
		TickModifier: -5,
	}

	effects := factory.FromCard(card, "p1")
	require.NotEmpty(t, effects)

	cost, ok := effects[0].(types.ResourceChange)
	require.True(t, ok, "first effect must be the cost debit")
	assert.Equal(t, types.ResourceMoney, cost.Resource)
	assert.Equal(t, -100000, cost.Amount)
	assert.True(t, cost.Enforce)

	tick, ok := effects[1].(types.ResourceChange)
	require.True(t, ok)
	assert.Equal(t, types.ResourceTime, tick.Resource)
	assert.Equal(t, -5, tick.Amount)
}

func TestFromCardLoan(t *testing.T) {
	factory := NewEffectFactory(zap.NewNop())
	card := &types.Card{
		ID:         "B001",
		Name:       "Bank Loan Small",
		Type:       types.CardTypeB,
		LoanAmount: 1_000_000,
		LoanRate:   2.5,
	}

	effects := factory.FromCard(card, "p1")
	require.Len(t, effects, 1)

	credit, ok := effects[0].(types.ResourceChange)
	require.True(t, ok)
	assert.Equal(t, 1_000_000, credit.Amount)
	assert.False(t, credit.Enforce)
}

func TestFromCardWorkDrawRecalculatesScope(t *testing.T) {
	factory := NewEffectFactory(zap.NewNop())
	card := &types.Card{
		ID:        "L001",
		Name:      "Windfall",
		Type:      types.CardTypeL,
		DrawCards: "2 W",
	}

	effects := factory.FromCard(card, "p1")
	require.Len(t, effects, 2)

	draw, ok := effects[0].(types.CardDraw)
	require.True(t, ok)
	assert.Equal(t, types.CardTypeW, draw.CardType)
	assert.Equal(t, 2, draw.Count)

	_, ok = effects[1].(types.RecalculateScope)
	assert.True(t, ok, "W draws carry a scope recalculation behind them")
}

func TestFromCardDurationActivation(t *testing.T) {
	factory := NewEffectFactory(zap.NewNop())
	card := &types.Card{
		ID:            "E002",
		Name:          "Retainer",
		Type:          types.CardTypeE,
		Duration:      "Turns",
		DurationCount: 3,
	}

	effects := factory.FromCard(card, "p1")
	require.Len(t, effects, 1)

	activation, ok := effects[0].(types.CardActivation)
	require.True(t, ok)
	assert.Equal(t, "E002", activation.CardID)
	assert.Equal(t, 3, activation.Duration)
}

func TestFromCardChoiceDescription(t *testing.T) {
	factory := NewEffectFactory(zap.NewNop())
	card := &types.Card{
		ID:          "L002",
		Name:        "Opportunity",
		Type:        types.CardTypeL,
		Description: "Gain 50000 or draw 2 E.",
	}

	effects := factory.FromCard(card, "p1")
	require.Len(t, effects, 1)

	choice, ok := effects[0].(types.ChoiceOfEffects)
	require.True(t, ok)
	require.Len(t, choice.Options, 2)

	gain, ok := choice.Options[0].Effects[0].(types.ResourceChange)
	require.True(t, ok)
	assert.Equal(t, 50000, gain.Amount)

	draw, ok := choice.Options[1].Effects[0].(types.CardDraw)
	require.True(t, ok)
	assert.Equal(t, types.CardTypeE, draw.CardType)
	assert.Equal(t, 2, draw.Count)
}

func TestFromCardDiceConditionalDescription(t *testing.T) {
	factory := NewEffectFactory(zap.NewNop())
	card := &types.Card{
		ID:          "L003",
		Name:        "Inspection",
		Type:        types.CardTypeL,
		Description: "Roll a die. On 1-3, gain 50000. On 4-6, pay 25000.",
	}

	effects := factory.FromCard(card, "p1")
	require.Len(t, effects, 1)

	cond, ok := effects[0].(types.ConditionalEffect)
	require.True(t, ok)
	require.Len(t, cond.Ranges, 2)

	assert.Equal(t, 1, cond.Ranges[0].Min)
	assert.Equal(t, 3, cond.Ranges[0].Max)
	gain := cond.Ranges[0].Effects[0].(types.ResourceChange)
	assert.Equal(t, 50000, gain.Amount)

	assert.Equal(t, 4, cond.Ranges[1].Min)
	assert.Equal(t, 6, cond.Ranges[1].Max)
	pay := cond.Ranges[1].Effects[0].(types.ResourceChange)
	assert.Equal(t, -25000, pay.Amount)
}

func TestFromCardUnparseableDescriptionProducesNothing(t *testing.T) {
	factory := NewEffectFactory(zap.NewNop())
	card := &types.Card{
		ID:          "L004",
		Name:        "Flavor Text",
		Type:        types.CardTypeL,
		Description: "The zoning board reconvenes next spring.",
	}

	effects := factory.FromCard(card, "p1")
	assert.Empty(t, effects)
}

func TestFromSpaceEntryOrdering(t *testing.T) {
	factory := NewEffectFactory(zap.NewNop())
	rows := []types.SpaceEffect{
		{SpaceName: "PERMIT-REVIEW", EffectType: "money", EffectAction: "pay_fee", EffectValue: "500"},
	}
	cfg := &types.SpaceConfig{SpaceName: "PERMIT-REVIEW", Action: "submit_plans"}

	effects := factory.FromSpaceEntry("p1", "PERMIT-REVIEW", types.VisitFirst, rows, cfg)
	require.Len(t, effects, 3)

	_, ok := effects[0].(types.LogEffect)
	assert.True(t, ok, "entry log comes first")

	fee, ok := effects[1].(types.ResourceChange)
	require.True(t, ok)
	assert.Equal(t, -500, fee.Amount, "fee actions debit")
	assert.False(t, fee.Enforce, "ambient fees are not enforced purchases")

	action, ok := effects[2].(types.LogEffect)
	require.True(t, ok, "space action comes last")
	assert.Contains(t, action.Message, "submit_plans")
}

func TestFromSpaceEffectRowCardActions(t *testing.T) {
	factory := NewEffectFactory(zap.NewNop())

	// W draws carry a scope recalculation
	rows := []types.SpaceEffect{
		{SpaceName: "OWNER-SCOPE", EffectType: "cards", EffectAction: "draw_w", EffectValue: "1"},
	}
	effects := factory.FromEffectRows("p1", "OWNER-SCOPE", rows)
	require.Len(t, effects, 2)
	draw := effects[0].(types.CardDraw)
	assert.Equal(t, types.CardTypeW, draw.CardType)
	_, ok := effects[1].(types.RecalculateScope)
	assert.True(t, ok)

	// Other draws do not
	rows[0].EffectAction = "draw_e"
	effects = factory.FromEffectRows("p1", "OWNER-SCOPE", rows)
	require.Len(t, effects, 1)

	// Unknown effect types are skipped, not fatal
	rows[0].EffectType = "teleport"
	effects = factory.FromEffectRows("p1", "OWNER-SCOPE", rows)
	assert.Empty(t, effects)
}

func TestFromDiceRoll(t *testing.T) {
	factory := NewEffectFactory(zap.NewNop())
	roller := NewDiceRoller()
	rows := []types.DiceEffect{
		{
			SpaceName:  "PERMIT-REVIEW",
			EffectType: "money",
			Rolls:      [6]string{"Lose 200", "no change", "no change", "no change", "no change", "Gain 300"},
		},
		{
			SpaceName:  "PERMIT-REVIEW",
			EffectType: "time",
			Rolls:      [6]string{"5", "", "", "", "", "-2"},
		},
	}

	// Roll 1: lose money, spend time
	effects := factory.FromDiceRoll("p1", "PERMIT-REVIEW", 1, rows, roller)
	require.Len(t, effects, 2)
	money := effects[0].(types.ResourceChange)
	assert.Equal(t, -200, money.Amount)
	days := effects[1].(types.ResourceChange)
	assert.Equal(t, types.ResourceTime, days.Resource)
	assert.Equal(t, 5, days.Amount)

	// Roll 3: both rows are "no change" or empty
	effects = factory.FromDiceRoll("p1", "PERMIT-REVIEW", 3, rows, roller)
	assert.Empty(t, effects)

	// Roll 6: gain money, recover time
	effects = factory.FromDiceRoll("p1", "PERMIT-REVIEW", 6, rows, roller)
	require.Len(t, effects, 2)
	assert.Equal(t, 300, effects[0].(types.ResourceChange).Amount)
	assert.Equal(t, -2, effects[1].(types.ResourceChange).Amount)
}

func TestParseCardQuantity(t *testing.T) {
	q, ok := parseCardQuantity("1 E")
	assert.True(t, ok)
	assert.Equal(t, 1, q.count)
	assert.Equal(t, types.CardTypeE, q.cardType)

	q, ok = parseCardQuantity(" 2 w ")
	assert.True(t, ok)
	assert.Equal(t, 2, q.count)
	assert.Equal(t, types.CardTypeW, q.cardType)

	_, ok = parseCardQuantity("")
	assert.False(t, ok)
	_, ok = parseCardQuantity("two cards")
	assert.False(t, ok)
}
