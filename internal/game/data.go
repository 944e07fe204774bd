package game

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/user/blueprint-strategy/internal/interfaces"
	"github.com/user/blueprint-strategy/internal/types"
)

// DataLoader reads the static content CSVs into memory and serves them as
// the data collaborator. Records are loaded once and never mutated.
type DataLoader struct {
	basePath string
	logger   *zap.Logger

	spaceEffects map[string][]types.SpaceEffect
	diceEffects  map[string][]types.DiceEffect
	cards        map[string]*types.Card
	cardsByType  map[types.CardType][]*types.Card
	spaceConfigs map[string]*types.SpaceConfig
}

// Ensure DataLoader satisfies the data service contract
var _ interfaces.DataService = (*DataLoader)(nil)

// NewDataLoader creates a new data loader
func NewDataLoader(basePath string, logger *zap.Logger) *DataLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataLoader{
		basePath:     basePath,
		logger:       logger,
		spaceEffects: make(map[string][]types.SpaceEffect),
		diceEffects:  make(map[string][]types.DiceEffect),
		cards:        make(map[string]*types.Card),
		cardsByType:  make(map[types.CardType][]*types.Card),
		spaceConfigs: make(map[string]*types.SpaceConfig),
	}
}

// Load reads all content files. Missing optional files log a warning and
// leave their section empty; a malformed file is an error.
func (dl *DataLoader) Load() error {
	if err := dl.loadSpaceEffects("SPACE_EFFECTS.csv"); err != nil {
		return err
	}
	if err := dl.loadDiceEffects("DICE_EFFECTS.csv"); err != nil {
		return err
	}
	if err := dl.loadCards("CARDS_EXPANDED.csv"); err != nil {
		return err
	}
	if err := dl.loadSpaceConfigs("GAME_CONFIG.csv"); err != nil {
		return err
	}
	dl.logger.Info("content loaded",
		zap.Int("space_effect_keys", len(dl.spaceEffects)),
		zap.Int("dice_effect_keys", len(dl.diceEffects)),
		zap.Int("cards", len(dl.cards)),
		zap.Int("space_configs", len(dl.spaceConfigs)))
	return nil
}

// readRows reads one CSV into header-keyed row maps
func (dl *DataLoader) readRows(name string) ([]map[string]string, error) {
	path := filepath.Join(dl.basePath, name)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			dl.logger.Warn("content file missing, section left empty", zap.String("file", name))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[strings.TrimSpace(col)] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (dl *DataLoader) loadSpaceEffects(name string) error {
	rows, err := dl.readRows(name)
	if err != nil {
		return err
	}
	for _, row := range rows {
		effect := types.SpaceEffect{
			SpaceName:    row["space_name"],
			VisitType:    types.VisitType(row["visit_type"]),
			EffectType:   row["effect_type"],
			EffectAction: row["effect_action"],
			EffectValue:  row["effect_value"],
			Condition:    row["condition"],
			TriggerType:  row["trigger_type"],
			Description:  row["description"],
		}
		if effect.TriggerType == "" {
			effect.TriggerType = "auto"
		}
		key := spaceKey(effect.SpaceName, effect.VisitType)
		dl.spaceEffects[key] = append(dl.spaceEffects[key], effect)
	}
	return nil
}

func (dl *DataLoader) loadDiceEffects(name string) error {
	rows, err := dl.readRows(name)
	if err != nil {
		return err
	}
	for _, row := range rows {
		effect := types.DiceEffect{
			SpaceName:  row["space_name"],
			VisitType:  types.VisitType(row["visit_type"]),
			EffectType: row["effect_type"],
		}
		for i := 0; i < 6; i++ {
			effect.Rolls[i] = row[fmt.Sprintf("roll_%d", i+1)]
		}
		key := spaceKey(effect.SpaceName, effect.VisitType)
		dl.diceEffects[key] = append(dl.diceEffects[key], effect)
	}
	return nil
}

func (dl *DataLoader) loadCards(name string) error {
	rows, err := dl.readRows(name)
	if err != nil {
		return err
	}
	for _, row := range rows {
		card := &types.Card{
			ID:               row["card_id"],
			Name:             row["card_name"],
			Type:             types.CardType(strings.ToUpper(row["card_type"])),
			Description:      row["description"],
			Cost:             atoiOrZero(row["cost"]),
			Duration:         row["duration"],
			DurationCount:    atoiOrZero(row["duration_count"]),
			PhaseRestriction: row["phase_restriction"],
			LoanAmount:       atoiOrZero(row["loan_amount"]),
			LoanRate:         atofOrZero(row["loan_rate"]),
			InvestmentAmount: atoiOrZero(row["investment_amount"]),
			WorkCost:         atoiOrZero(row["work_cost"]),
			MoneyEffect:      row["money_effect"],
			TickModifier:     atoiOrZero(row["tick_modifier"]),
			DrawCards:        row["draw_cards"],
			DiscardCards:     row["discard_cards"],
			Target:           row["target"],
			Scope:            row["scope"],
		}
		if card.ID == "" {
			dl.logger.Warn("card row without id, skipping", zap.String("name", card.Name))
			continue
		}
		dl.cards[card.ID] = card
		dl.cardsByType[card.Type] = append(dl.cardsByType[card.Type], card)
	}
	return nil
}

func (dl *DataLoader) loadSpaceConfigs(name string) error {
	rows, err := dl.readRows(name)
	if err != nil {
		return err
	}
	for _, row := range rows {
		cfg := &types.SpaceConfig{
			SpaceName:       row["space_name"],
			Phase:           row["phase"],
			Action:          row["action"],
			IsStartingSpace: strings.EqualFold(row["is_starting_space"], "yes") || strings.EqualFold(row["is_starting_space"], "true"),
			IsEndingSpace:   strings.EqualFold(row["is_ending_space"], "yes") || strings.EqualFold(row["is_ending_space"], "true"),
		}
		if cfg.SpaceName == "" {
			continue
		}
		dl.spaceConfigs[strings.ToUpper(cfg.SpaceName)] = cfg
	}
	return nil
}

// GetSpaceEffects returns the effect rows for a space and visit type
func (dl *DataLoader) GetSpaceEffects(space string, visitType types.VisitType) []types.SpaceEffect {
	return dl.spaceEffects[spaceKey(space, visitType)]
}

// GetDiceEffects returns the dice-roll rows for a space and visit type
func (dl *DataLoader) GetDiceEffects(space string, visitType types.VisitType) []types.DiceEffect {
	return dl.diceEffects[spaceKey(space, visitType)]
}

// GetCardByID resolves a card id
func (dl *DataLoader) GetCardByID(id string) (*types.Card, bool) {
	card, ok := dl.cards[id]
	return card, ok
}

// GetCardsByType returns the full catalog for one card type
func (dl *DataLoader) GetCardsByType(cardType types.CardType) []*types.Card {
	return dl.cardsByType[cardType]
}

// GetSpaceConfig returns per-space board configuration
func (dl *DataLoader) GetSpaceConfig(space string) (*types.SpaceConfig, bool) {
	cfg, ok := dl.spaceConfigs[strings.ToUpper(space)]
	return cfg, ok
}

func spaceKey(space string, visitType types.VisitType) string {
	return strings.ToUpper(space) + "|" + string(visitType)
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func atofOrZero(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
