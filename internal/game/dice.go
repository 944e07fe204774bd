package game

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/user/blueprint-strategy/internal/types"
)

// Source is the randomness provider for dice rolls
type Source interface {
	// Intn returns a non-negative random int in [0, n)
	Intn(n int) int
}

// DiceRoller handles dice rolling for the game
type DiceRoller struct {
	rng Source
}

// NewDiceRoller creates a new dice roller with a seeded random number generator
func NewDiceRoller() *DiceRoller {
	return &DiceRoller{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewDiceRollerWithSource creates a dice roller backed by the given source.
// Tests inject a deterministic source here instead of sampling.
func NewDiceRollerWithSource(src Source) *DiceRoller {
	return &DiceRoller{rng: src}
}

// Roll returns a uniformly distributed integer in [1,6]. Out-of-range
// values from the source are rejected and the roll retried; a source that
// keeps misbehaving indicates a broken implementation, not bad luck.
func (dr *DiceRoller) Roll() int {
	for attempt := 0; attempt < 100; attempt++ {
		v := dr.rng.Intn(6) + 1
		if v >= 1 && v <= 6 {
			return v
		}
	}
	panic("dice: randomness source kept producing out-of-range values")
}

// RollOutcome indexes the per-face outcome text of a dice effect row.
// The second return is false for roll values outside [1,6].
func (dr *DiceRoller) RollOutcome(effect types.DiceEffect, roll int) (string, bool) {
	if roll < 1 || roll > 6 {
		return "", false
	}
	return effect.Rolls[roll-1], true
}

var firstSignedInt = regexp.MustCompile(`-?\d+`)

// ParseNumericValue extracts the first signed integer substring from
// outcome text. The literal word "many" counts as 3; anything else yields
// 0. This is a deliberately lossy heuristic over free-text content rows,
// not a general number parser.
func ParseNumericValue(text string) int {
	if m := firstSignedInt.FindString(text); m != "" {
		n, err := strconv.Atoi(m)
		if err == nil {
			return n
		}
	}
	if strings.Contains(strings.ToLower(text), "many") {
		return 3
	}
	return 0
}

// FormatRoll renders a roll for log/audit output
func FormatRoll(space string, roll int) string {
	return fmt.Sprintf("rolled %d on %s", roll, space)
}
