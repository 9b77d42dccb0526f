// Package seeding orders a roster into dense seeds from a weighted composite score.
package seeding

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Dosada05/bracket-engine/models"
)

type Factor string

const (
	FactorRating      Factor = "rating"
	FactorPerformance Factor = "performance"
	FactorHistory     Factor = "history"
	FactorRegional    Factor = "regional"
	FactorConsistency Factor = "consistency"
)

// WeightTolerance is the allowed distance of the active weight sum from 1.0.
const WeightTolerance = 1e-6

// ratingScale maps a rating onto the 0..100 range used by the sub-scores.
const ratingScale = 30.0

var factorOrder = []Factor{FactorRating, FactorPerformance, FactorHistory, FactorRegional, FactorConsistency}

var (
	ErrInvalidWeights = errors.New("seeding weights are invalid")
	ErrInvalidRoster  = errors.New("seeding roster is invalid")
)

// Config lists the active factors with their weights. A factor absent from
// Weights is inactive.
type Config struct {
	Weights map[Factor]float64 `json:"weights"`
}

func DefaultConfig() Config {
	return Config{Weights: map[Factor]float64{FactorRating: 1.0}}
}

func (c Config) Validate() error {
	if len(c.Weights) == 0 {
		return fmt.Errorf("%w: no active factors", ErrInvalidWeights)
	}
	sum := 0.0
	for f, w := range c.Weights {
		switch f {
		case FactorRating, FactorPerformance, FactorHistory, FactorRegional, FactorConsistency:
		default:
			return fmt.Errorf("%w: unknown factor %q", ErrInvalidWeights, f)
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weight for %s must be a non-negative number", ErrInvalidWeights, f)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > WeightTolerance {
		return fmt.Errorf("%w: active weights sum to %.6f, expected 1.0", ErrInvalidWeights, sum)
	}
	return nil
}

// ParseWeights reads a "rating=0.7,performance=0.3" list.
func ParseWeights(s string) (Config, error) {
	cfg := Config{Weights: make(map[Factor]float64)}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return Config{}, fmt.Errorf("%w: malformed entry %q", ErrInvalidWeights, part)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return Config{}, fmt.Errorf("%w: weight %q: %v", ErrInvalidWeights, value, err)
		}
		cfg.Weights[Factor(strings.ToLower(strings.TrimSpace(name)))] = w
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Composite returns the weighted score of a single player.
func (c Config) Composite(s models.SkillSnapshot) float64 {
	normRating := math.Max(0, math.Min(100, s.Rating/ratingScale))
	value := func(v *float64) float64 {
		if v == nil {
			return normRating
		}
		return *v
	}
	score := 0.0
	for _, f := range factorOrder {
		w, ok := c.Weights[f]
		if !ok {
			continue
		}
		switch f {
		case FactorRating:
			score += w * normRating
		case FactorPerformance:
			score += w * value(s.Performance)
		case FactorHistory:
			score += w * value(s.History)
		case FactorRegional:
			score += w * value(s.Regional)
		case FactorConsistency:
			score += w * value(s.Consistency)
		}
	}
	return score
}

// Calculate returns a copy of the roster ordered by composite score with
// seeds 1..N. Ties break on rating, then earlier registration, then player id.
func Calculate(roster []models.PlayerEntry, cfg Config) ([]models.PlayerEntry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(roster))
	for _, p := range roster {
		if p.PlayerID == "" {
			return nil, fmt.Errorf("%w: empty player id", ErrInvalidRoster)
		}
		if _, dup := seen[p.PlayerID]; dup {
			return nil, fmt.Errorf("%w: duplicate player %s", ErrInvalidRoster, p.PlayerID)
		}
		seen[p.PlayerID] = struct{}{}
	}

	type scored struct {
		entry     models.PlayerEntry
		composite float64
	}
	list := make([]scored, len(roster))
	for i, p := range roster {
		list[i] = scored{entry: p, composite: cfg.Composite(p.Skill)}
	}

	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.composite != b.composite {
			return a.composite > b.composite
		}
		if a.entry.Skill.Rating != b.entry.Skill.Rating {
			return a.entry.Skill.Rating > b.entry.Skill.Rating
		}
		if !a.entry.RegisteredAt.Equal(b.entry.RegisteredAt) {
			return a.entry.RegisteredAt.Before(b.entry.RegisteredAt)
		}
		return a.entry.PlayerID < b.entry.PlayerID
	})

	seeded := make([]models.PlayerEntry, len(list))
	for i, s := range list {
		s.entry.Seed = i + 1
		seeded[i] = s.entry
	}
	return seeded, nil
}
