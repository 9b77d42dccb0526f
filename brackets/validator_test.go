package brackets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/models"
)

func hasError(res ValidationResult, fragment string) bool {
	for _, e := range res.Errors {
		if strings.Contains(e, fragment) {
			return true
		}
	}
	return false
}

func TestValidate_AllFormatsValid(t *testing.T) {
	formats := []models.Format{
		models.FormatSingleElimination,
		models.FormatDoubleElimination,
		models.FormatRoundRobin,
		models.FormatSwiss,
	}
	for _, f := range formats {
		for n := 2; n <= 17; n++ {
			b := generate(t, f, n, true)
			res := Validate(b)
			assert.True(t, res.Valid, "%s n=%d: %v", f, n, res.Errors)
			assert.Equal(t, res.Details["expected_total_matches"], res.Details["actual_total_matches"])
		}
	}
}

func TestValidate_DetectsCountMismatch(t *testing.T) {
	b := generate(t, models.FormatSingleElimination, 8, false)
	b.TotalMatches = 8

	res := Validate(b)
	assert.False(t, res.Valid)
	assert.True(t, hasError(res, "totalMatches is 8, expected 7"))
	assert.Equal(t, 8, res.Details["declared_total_matches"])
	assert.Equal(t, 7, res.Details["actual_total_matches"])
}

func TestValidate_DetectsDuplicatePairing(t *testing.T) {
	b := generate(t, models.FormatRoundRobin, 4, false)
	dup := b.Rounds[0].Matches[0]
	b.Rounds[1].Matches[0].Slots = dup.Slots

	res := Validate(b)
	assert.False(t, res.Valid)
	assert.True(t, hasError(res, "meet twice"))
}

func TestValidate_DetectsByeImbalance(t *testing.T) {
	b := generate(t, models.FormatRoundRobin, 5, false)
	// Give the same player both byes of rounds 1 and 2.
	var byes []*models.Match
	for _, r := range b.Rounds[:2] {
		for _, m := range r.Matches {
			if m.IsBye {
				byes = append(byes, m)
			}
		}
	}
	require.Len(t, byes, 2)
	byes[1].Slots[0] = byes[0].Slots[0]

	res := Validate(b)
	assert.False(t, res.Valid)
	assert.True(t, hasError(res, "byes, expected 1"))
}

func TestValidate_DetectsSelfPairingAndBrokenPointers(t *testing.T) {
	b := generate(t, models.FormatSingleElimination, 4, false)
	b.Rounds[0].Matches[0].Slots[1] = b.Rounds[0].Matches[0].Slots[0]
	b.Rounds[0].Matches[1].WinnerTo = &models.SlotRef{MatchID: b.Rounds[1].Matches[0].ID, Slot: 1}

	res := Validate(b)
	assert.False(t, res.Valid)
	assert.True(t, hasError(res, "with themselves"))
	assert.True(t, hasError(res, "is fed by both"))
}

func TestValidate_Nil(t *testing.T) {
	res := Validate(nil)
	assert.False(t, res.Valid)
}
