package game

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/user/blueprint-strategy/internal/types"
)

// EffectFactory converts raw card/space/dice records into canonical
// effect lists. It is a pure conversion layer: no game-state mutation,
// no I/O. Ordering of the returned lists matters and is preserved by the
// engine.
type EffectFactory struct {
	logger *zap.Logger
}

// NewEffectFactory creates an effect factory
func NewEffectFactory(logger *zap.Logger) *EffectFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EffectFactory{logger: logger}
}

// FromSpaceEntry converts the space-effect rows for a space entry into an
// ordered effect list. The entry log comes first, converted rows follow,
// and the space-config action (if any) is appended last.
func (f *EffectFactory) FromSpaceEntry(playerID, space string, visitType types.VisitType, rows []types.SpaceEffect, cfg *types.SpaceConfig) []types.Effect {
	source := fmt.Sprintf("space:%s", space)
	effects := []types.Effect{
		types.LogEffect{
			EffectMeta: types.EffectMeta{PlayerID: playerID, Source: source, Reason: "space entry"},
			Message:    fmt.Sprintf("entered %s (%s visit)", space, strings.ToLower(string(visitType))),
		},
	}

	for _, row := range rows {
		effects = append(effects, f.fromSpaceEffectRow(playerID, source, row)...)
	}

	if cfg != nil && cfg.Action != "" {
		effects = append(effects, types.LogEffect{
			EffectMeta: types.EffectMeta{PlayerID: playerID, Source: source, Reason: "space action"},
			Message:    fmt.Sprintf("space action: %s", cfg.Action),
		})
	}

	return effects
}

// FromEffectRows converts already-filtered effect rows without the
// space-entry framing. Manual-trigger processing uses this path.
func (f *EffectFactory) FromEffectRows(playerID, space string, rows []types.SpaceEffect) []types.Effect {
	source := fmt.Sprintf("space:%s", space)
	var effects []types.Effect
	for _, row := range rows {
		effects = append(effects, f.fromSpaceEffectRow(playerID, source, row)...)
	}
	return effects
}

// fromSpaceEffectRow converts one SPACE_EFFECTS row. Unknown effect types
// warn and produce nothing; a bad data row must never block the batch.
func (f *EffectFactory) fromSpaceEffectRow(playerID, source string, row types.SpaceEffect) []types.Effect {
	meta := types.EffectMeta{PlayerID: playerID, Source: source, Reason: row.Description}
	if meta.Reason == "" {
		meta.Reason = fmt.Sprintf("%s %s", row.EffectAction, row.EffectValue)
	}

	switch strings.ToLower(row.EffectType) {
	case "money":
		amount := ParseNumericValue(row.EffectValue)
		if isDebitAction(row.EffectAction) && amount > 0 {
			amount = -amount
		}
		return []types.Effect{types.ResourceChange{EffectMeta: meta, Resource: types.ResourceMoney, Amount: amount}}
	case "time":
		return []types.Effect{types.ResourceChange{EffectMeta: meta, Resource: types.ResourceTime, Amount: ParseNumericValue(row.EffectValue)}}
	case "cards":
		return f.cardEffectFromAction(meta, row.EffectAction, ParseNumericValue(row.EffectValue))
	case "turn":
		switch strings.ToLower(row.EffectAction) {
		case "grant_reroll":
			return []types.Effect{types.TurnControl{EffectMeta: meta, Action: types.GrantReRoll}}
		case "skip_turn":
			count := ParseNumericValue(row.EffectValue)
			if count <= 0 {
				count = 1
			}
			return []types.Effect{types.TurnControl{EffectMeta: meta, Action: types.SkipTurn, Count: count}}
		}
	}

	f.logger.Warn("unknown space effect row, skipping",
		zap.String("space", row.SpaceName),
		zap.String("effect_type", row.EffectType),
		zap.String("effect_action", row.EffectAction))
	return nil
}

// cardEffectFromAction maps actions like draw_w / discard_e onto card
// effects. W draws always carry a scope recalculation right behind them.
func (f *EffectFactory) cardEffectFromAction(meta types.EffectMeta, action string, count int) []types.Effect {
	parts := strings.SplitN(strings.ToLower(action), "_", 2)
	if len(parts) != 2 {
		f.logger.Warn("unparseable card action", zap.String("action", action))
		return nil
	}
	cardType := types.CardType(strings.ToUpper(parts[1]))
	if count <= 0 {
		count = 1
	}

	switch parts[0] {
	case "draw":
		effects := []types.Effect{types.CardDraw{EffectMeta: meta, CardType: cardType, Count: count}}
		if cardType == types.CardTypeW {
			effects = append(effects, types.RecalculateScope{EffectMeta: meta})
		}
		return effects
	case "discard", "remove":
		return []types.Effect{types.CardDiscard{EffectMeta: meta, CardType: cardType, Count: count}}
	}

	f.logger.Warn("unknown card action", zap.String("action", action))
	return nil
}

// FromCard converts a card record into its effect list. A nonzero cost
// always prepends an enforced money debit before any other effect.
func (f *EffectFactory) FromCard(card *types.Card, playerID string) []types.Effect {
	source := fmt.Sprintf("card:%s", card.ID)
	var effects []types.Effect

	if card.Cost > 0 {
		effects = append(effects, types.ResourceChange{
			EffectMeta: types.EffectMeta{PlayerID: playerID, Source: source, Reason: fmt.Sprintf("cost of %s", card.Name)},
			Resource:   types.ResourceMoney,
			Amount:     -card.Cost,
			Enforce:    true,
		})
	}

	meta := types.EffectMeta{PlayerID: playerID, Source: source, Reason: card.Name}

	if card.LoanAmount > 0 {
		effects = append(effects, types.ResourceChange{
			EffectMeta: types.EffectMeta{PlayerID: playerID, Source: source, Reason: fmt.Sprintf("loan from %s", card.Name)},
			Resource:   types.ResourceMoney,
			Amount:     card.LoanAmount,
		})
	}

	if amount := ParseNumericValue(card.MoneyEffect); amount != 0 {
		effects = append(effects, types.ResourceChange{EffectMeta: meta, Resource: types.ResourceMoney, Amount: amount})
	}

	if card.TickModifier != 0 {
		effects = append(effects, types.ResourceChange{EffectMeta: meta, Resource: types.ResourceTime, Amount: card.TickModifier})
	}

	if draw, ok := parseCardQuantity(card.DrawCards); ok {
		effects = append(effects, types.CardDraw{EffectMeta: meta, CardType: draw.cardType, Count: draw.count})
		if draw.cardType == types.CardTypeW {
			effects = append(effects, types.RecalculateScope{EffectMeta: meta})
		}
	}

	if discard, ok := parseCardQuantity(card.DiscardCards); ok {
		effects = append(effects, types.CardDiscard{EffectMeta: meta, CardType: discard.cardType, Count: discard.count})
	}

	if strings.EqualFold(card.Duration, "Turns") && card.DurationCount > 0 {
		effects = append(effects, types.CardActivation{EffectMeta: meta, CardID: card.ID, Duration: card.DurationCount})
	}

	effects = append(effects, f.fromDescription(card, playerID, source)...)

	return effects
}

// fromDescription applies the free-text heuristics: " or " splits into a
// choice, "Roll a die" becomes a dice-range conditional. Unmatched
// patterns produce nothing for that clause and log a warning, never an
// error. This parser is a known extension point, not hardened logic.
func (f *EffectFactory) fromDescription(card *types.Card, playerID, source string) []types.Effect {
	desc := card.Description
	if desc == "" {
		return nil
	}
	meta := types.EffectMeta{PlayerID: playerID, Source: source, Reason: card.Name}

	if strings.Contains(desc, "Roll a die") {
		if cond := f.parseDiceConditional(desc, meta); cond != nil {
			return []types.Effect{*cond}
		}
		return nil
	}

	if strings.Contains(desc, " or ") {
		if choice := f.parseChoice(desc, meta); choice != nil {
			return []types.Effect{*choice}
		}
	}

	return nil
}

var diceRangeClause = regexp.MustCompile(`On (\d+)(?:-(\d+))?[,:]?\s*([^.]+)\.`)

// parseDiceConditional extracts "On X-Y <effect text>." segments from a
// "Roll a die" description into a dice-range table.
func (f *EffectFactory) parseDiceConditional(desc string, meta types.EffectMeta) *types.ConditionalEffect {
	matches := diceRangeClause.FindAllStringSubmatch(desc, -1)
	if len(matches) == 0 {
		f.logger.Warn("dice conditional without parseable ranges", zap.String("description", desc))
		return nil
	}

	var ranges []types.DiceRange
	for _, m := range matches {
		lo := ParseNumericValue(m[1])
		hi := lo
		if m[2] != "" {
			hi = ParseNumericValue(m[2])
		}
		branch := f.parseClause(m[3], meta)
		if branch == nil {
			f.logger.Warn("unparseable dice-range clause, skipping",
				zap.String("clause", m[3]))
			continue
		}
		ranges = append(ranges, types.DiceRange{Min: lo, Max: hi, Effects: []types.Effect{branch}})
	}
	if len(ranges) == 0 {
		return nil
	}
	return &types.ConditionalEffect{EffectMeta: meta, Ranges: ranges}
}

// parseChoice splits a description on " or " into mutually exclusive
// option branches.
func (f *EffectFactory) parseChoice(desc string, meta types.EffectMeta) *types.ChoiceOfEffects {
	parts := strings.Split(desc, " or ")
	var options []types.ChoiceOption
	for i, part := range parts {
		clause := strings.TrimSuffix(strings.TrimSpace(part), ".")
		effect := f.parseClause(clause, meta)
		if effect == nil {
			f.logger.Warn("unparseable choice clause, skipping", zap.String("clause", clause))
			continue
		}
		options = append(options, types.ChoiceOption{
			ID:          fmt.Sprintf("option_%c", 'a'+i),
			Description: clause,
			Effects:     []types.Effect{effect},
		})
	}
	if len(options) < 2 {
		// A choice with fewer than two live branches is not a choice.
		if len(options) == 1 {
			f.logger.Warn("choice collapsed to a single option, dropping", zap.String("description", desc))
		}
		return nil
	}
	return &types.ChoiceOfEffects{EffectMeta: meta, Prompt: desc, Options: options}
}

var (
	drawClause  = regexp.MustCompile(`(?i)draw\s+(\d+|many)\s*([WBELI])?\b`)
	gainClause  = regexp.MustCompile(`(?i)(?:gain|receive|get)\s+\$?([\d,]+)`)
	payClause   = regexp.MustCompile(`(?i)(?:pay|lose|spend)\s+\$?([\d,]+)`)
	timeClause  = regexp.MustCompile(`(?i)(-?\d+)\s+days?`)
	cleanCommas = strings.NewReplacer(",", "")
)

// parseClause maps one free-text clause onto a single effect, or nil when
// no rule matches.
func (f *EffectFactory) parseClause(clause string, meta types.EffectMeta) types.Effect {
	meta.Reason = strings.TrimSpace(clause)

	if m := drawClause.FindStringSubmatch(clause); m != nil {
		cardType := types.CardTypeE
		if m[2] != "" {
			cardType = types.CardType(strings.ToUpper(m[2]))
		}
		return types.CardDraw{EffectMeta: meta, CardType: cardType, Count: ParseNumericValue(m[1])}
	}
	if m := payClause.FindStringSubmatch(clause); m != nil {
		return types.ResourceChange{EffectMeta: meta, Resource: types.ResourceMoney, Amount: -ParseNumericValue(cleanCommas.Replace(m[1]))}
	}
	if m := gainClause.FindStringSubmatch(clause); m != nil {
		return types.ResourceChange{EffectMeta: meta, Resource: types.ResourceMoney, Amount: ParseNumericValue(cleanCommas.Replace(m[1]))}
	}
	if m := timeClause.FindStringSubmatch(clause); m != nil {
		return types.ResourceChange{EffectMeta: meta, Resource: types.ResourceTime, Amount: ParseNumericValue(m[1])}
	}
	return nil
}

// FromDiceRoll converts the dice-effect rows for a space into effects for
// the rolled value.
func (f *EffectFactory) FromDiceRoll(playerID, space string, roll int, rows []types.DiceEffect, roller *DiceRoller) []types.Effect {
	source := fmt.Sprintf("dice:%s", space)
	var effects []types.Effect

	for _, row := range rows {
		outcome, ok := roller.RollOutcome(row, roll)
		if !ok || strings.TrimSpace(outcome) == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(outcome), "no change") {
			continue
		}

		meta := types.EffectMeta{PlayerID: playerID, Source: source, Reason: outcome}

		switch strings.ToLower(row.EffectType) {
		case "money":
			amount := ParseNumericValue(outcome)
			if isDebitText(outcome) && amount > 0 {
				amount = -amount
			}
			effects = append(effects, types.ResourceChange{EffectMeta: meta, Resource: types.ResourceMoney, Amount: amount})
		case "time":
			effects = append(effects, types.ResourceChange{EffectMeta: meta, Resource: types.ResourceTime, Amount: ParseNumericValue(outcome)})
		case "cards":
			if effect := f.parseClause(outcome, meta); effect != nil {
				effects = append(effects, effect)
				if draw, isDraw := effect.(types.CardDraw); isDraw && draw.CardType == types.CardTypeW {
					effects = append(effects, types.RecalculateScope{EffectMeta: meta})
				}
			} else {
				f.logger.Warn("unparseable dice card outcome", zap.String("outcome", outcome))
			}
		case "movement":
			// Board movement is resolved by the excluded UI/board layer;
			// surface the outcome for the audit trail only.
			effects = append(effects, types.LogEffect{EffectMeta: meta, Message: outcome})
		default:
			f.logger.Warn("unknown dice effect type",
				zap.String("space", row.SpaceName),
				zap.String("effect_type", row.EffectType))
		}
	}

	return effects
}

type cardQuantity struct {
	count    int
	cardType types.CardType
}

var cardQuantityPattern = regexp.MustCompile(`^\s*(\d+)\s+([WBELI])\s*$`)

// parseCardQuantity parses the "1 E" shorthand of the card columns
func parseCardQuantity(s string) (cardQuantity, bool) {
	m := cardQuantityPattern.FindStringSubmatch(strings.ToUpper(s))
	if m == nil {
		return cardQuantity{}, false
	}
	return cardQuantity{count: ParseNumericValue(m[1]), cardType: types.CardType(m[2])}, true
}

func isDebitAction(action string) bool {
	a := strings.ToLower(action)
	return strings.Contains(a, "fee") || strings.Contains(a, "cost") || strings.Contains(a, "pay")
}

func isDebitText(text string) bool {
	t := strings.ToLower(text)
	return strings.Contains(t, "fee") || strings.Contains(t, "pay") || strings.Contains(t, "lose")
}
