package game

import (
	"strings"

	"go.uber.org/zap"

	"github.com/user/blueprint-strategy/config"
	"github.com/user/blueprint-strategy/internal/types"
)

// fixedSource feeds predetermined values to the dice roller. Values are
// what Intn should return, consumed in order and repeating the last one.
type fixedSource struct {
	values []int
	next   int
}

func (s *fixedSource) Intn(n int) int {
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next]
	if s.next < len(s.values)-1 {
		s.next++
	}
	return v
}

// rollsOf converts desired die faces into the Intn values producing them
func rollsOf(faces ...int) *fixedSource {
	values := make([]int, len(faces))
	for i, f := range faces {
		values[i] = f - 1
	}
	return &fixedSource{values: values}
}

// fakeData is an in-memory data collaborator for tests
type fakeData struct {
	spaceEffects map[string][]types.SpaceEffect
	diceEffects  map[string][]types.DiceEffect
	cards        map[string]*types.Card
	spaceConfigs map[string]*types.SpaceConfig
}

func newFakeData() *fakeData {
	return &fakeData{
		spaceEffects: make(map[string][]types.SpaceEffect),
		diceEffects:  make(map[string][]types.DiceEffect),
		cards:        make(map[string]*types.Card),
		spaceConfigs: make(map[string]*types.SpaceConfig),
	}
}

func (f *fakeData) addCard(card *types.Card) {
	f.cards[card.ID] = card
}

func (f *fakeData) addSpaceEffect(effect types.SpaceEffect) {
	key := spaceKey(effect.SpaceName, effect.VisitType)
	f.spaceEffects[key] = append(f.spaceEffects[key], effect)
}

func (f *fakeData) addDiceEffect(effect types.DiceEffect) {
	key := spaceKey(effect.SpaceName, effect.VisitType)
	f.diceEffects[key] = append(f.diceEffects[key], effect)
}

func (f *fakeData) GetSpaceEffects(space string, visitType types.VisitType) []types.SpaceEffect {
	return f.spaceEffects[spaceKey(space, visitType)]
}

func (f *fakeData) GetDiceEffects(space string, visitType types.VisitType) []types.DiceEffect {
	return f.diceEffects[spaceKey(space, visitType)]
}

func (f *fakeData) GetCardByID(id string) (*types.Card, bool) {
	card, ok := f.cards[id]
	return card, ok
}

func (f *fakeData) GetCardsByType(cardType types.CardType) []*types.Card {
	var out []*types.Card
	for _, id := range sortedCardIDs(f.cards) {
		if f.cards[id].Type == cardType {
			out = append(out, f.cards[id])
		}
	}
	return out
}

func (f *fakeData) GetSpaceConfig(space string) (*types.SpaceConfig, bool) {
	cfg, ok := f.spaceConfigs[strings.ToUpper(space)]
	return cfg, ok
}

func sortedCardIDs(cards map[string]*types.Card) []string {
	ids := make([]string, 0, len(cards))
	for id := range cards {
		ids = append(ids, id)
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j] < ids[i] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}
	return ids
}

// testGame bundles a fully wired engine over fake content
type testGame struct {
	cfg     config.Config
	data    *fakeData
	store   *GameStore
	rules   *StandardRules
	engine  *EffectEngine
	turns   *TurnService
	players []*types.Player
}

// newTestGame wires the engine with deterministic dice and n players,
// already started unless n is 0.
func newTestGame(n int, faces ...int) *testGame {
	cfg := config.DefaultConfig()
	data := newFakeData()
	// A small catalog so decks are never empty
	for _, id := range []string{"W901", "W902", "W903"} {
		data.addCard(&types.Card{ID: id, Name: "Work " + id, Type: types.CardTypeW})
	}
	for _, id := range []string{"B901", "B902", "B903"} {
		data.addCard(&types.Card{ID: id, Name: "Loan " + id, Type: types.CardTypeB})
	}
	for _, id := range []string{"E901", "E902", "E903"} {
		data.addCard(&types.Card{ID: id, Name: "Expeditor " + id, Type: types.CardTypeE})
	}

	logger := zap.NewNop()
	store := NewGameStore(logger)
	resources := NewResourceManager(store, logger)
	rules := NewStandardRules(cfg.Game, store, data, logger)
	factory := NewEffectFactory(logger)
	engine := NewEffectEngine(store, resources, rules, logger)

	if len(faces) == 0 {
		faces = []int{3}
	}
	dice := NewDiceRollerWithSource(rollsOf(faces...))
	turns := NewTurnService(cfg.Game, data, store, rules, dice, factory, engine, logger)

	tg := &testGame{
		cfg:    cfg,
		data:   data,
		store:  store,
		rules:  rules,
		engine: engine,
		turns:  turns,
	}
	for i := 0; i < n; i++ {
		player, err := turns.AddPlayer(playerName(i), "blue")
		if err != nil {
			panic(err)
		}
		tg.players = append(tg.players, player)
	}
	return tg
}

func playerName(i int) string {
	return "Player " + string(rune('A'+i))
}

// realPlayer fetches the committed roster entry for assertions
func (tg *testGame) realPlayer(id string) *types.Player {
	player, err := tg.store.RealPlayer(id)
	if err != nil {
		panic(err)
	}
	return player
}

// workingPlayer fetches the TEMP-aware view
func (tg *testGame) workingPlayer(id string) *types.Player {
	player, err := tg.store.GetPlayer(id)
	if err != nil {
		panic(err)
	}
	return player
}
