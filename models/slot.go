package models

import "fmt"

type SlotKind string

const (
	SlotSeed       SlotKind = "seed"
	SlotResolved   SlotKind = "player"
	SlotBye        SlotKind = "bye"
	SlotUnresolved SlotKind = "tbd"
)

// Slot is one participant position of a match. Seed slots are filled at
// generation time, resolved slots by advancement.
type Slot struct {
	Kind     SlotKind `json:"kind"`
	Seed     int      `json:"seed,omitempty"`
	PlayerID string   `json:"player_id,omitempty"`
}

func SeedSlot(seed int, playerID string) Slot {
	return Slot{Kind: SlotSeed, Seed: seed, PlayerID: playerID}
}

func ResolvedSlot(playerID string) Slot {
	return Slot{Kind: SlotResolved, PlayerID: playerID}
}

func ByeSlot() Slot {
	return Slot{Kind: SlotBye}
}

func UnresolvedSlot() Slot {
	return Slot{Kind: SlotUnresolved}
}

// HasPlayer is true for seed and resolved slots.
func (s Slot) HasPlayer() bool {
	return (s.Kind == SlotSeed || s.Kind == SlotResolved) && s.PlayerID != ""
}

func (s Slot) IsBye() bool { return s.Kind == SlotBye }

func (s Slot) IsUnresolved() bool { return s.Kind == SlotUnresolved || s.Kind == "" }

func (s Slot) String() string {
	switch s.Kind {
	case SlotSeed:
		return fmt.Sprintf("Seed(%d:%s)", s.Seed, s.PlayerID)
	case SlotResolved:
		return fmt.Sprintf("Resolved(%s)", s.PlayerID)
	case SlotBye:
		return "BYE"
	default:
		return "TBD"
	}
}
