package brackets

import (
	"fmt"
	"time"

	"github.com/Dosada05/bracket-engine/models"
)

// Result is a reported match outcome. LoserID is optional and checked when set.
type Result struct {
	MatchID  string
	WinnerID string
	LoserID  string
	Draw     bool
	At       time.Time
}

// Step is one slot fill or automatic resolution performed by the cascade.
type Step struct {
	MatchID string             `json:"match_id"`
	Slot    int                `json:"slot,omitempty"`
	Filled  models.Slot        `json:"filled"`
	Status  models.MatchStatus `json:"status"`
}

// Outcome describes everything a progression step changed. Changed holds the
// source match first, followed by every touched match in processing order;
// together they form one atomic write.
type Outcome struct {
	Applied  bool
	Source   *models.Match
	Changed  []*models.Match
	Cascaded []string
	Steps    []Step
	// Paired is set when a finished Swiss round produced the next pairing.
	Paired int
}

type ProgressOptions struct {
	Swiss SwissPolicy
}

type fill struct {
	ref  models.SlotRef
	slot models.Slot
}

type cascade struct {
	b       *models.Bracket
	at      time.Time
	index   map[string]*models.Match
	out     *Outcome
	changed map[string]bool
	queue   []fill
}

func newCascade(b *models.Bracket, at time.Time) *cascade {
	c := &cascade{
		b:       b,
		at:      at,
		index:   make(map[string]*models.Match),
		out:     &Outcome{},
		changed: make(map[string]bool),
	}
	for _, m := range b.Matches() {
		c.index[m.ID] = m
	}
	return c
}

// Progress applies a result to b in place. A match that is already COMPLETED
// or CANCELLED yields Applied=false and no changes.
func Progress(b *models.Bracket, res Result, opts ProgressOptions) (*Outcome, error) {
	c := newCascade(b, res.At)
	m, ok := c.index[res.MatchID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, res.MatchID)
	}
	if m.IsTerminal() {
		return &Outcome{Applied: false, Source: m}, nil
	}
	if !m.Slots[0].HasPlayer() || !m.Slots[1].HasPlayer() {
		if m.Slots[0].IsUnresolved() || m.Slots[1].IsUnresolved() {
			return nil, fmt.Errorf("%w: %s has %s vs %s", ErrUnresolvedSlots, m.ID, m.Slots[0], m.Slots[1])
		}
		return nil, fmt.Errorf("%w: bye match %s resolves automatically", ErrInvalidResult, m.ID)
	}
	if m.Status != models.MatchStatusPending && m.Status != models.MatchStatusActive {
		return nil, fmt.Errorf("%w: match %s is %s", ErrInvalidResult, m.ID, m.Status)
	}

	winner, loser := res.WinnerID, res.LoserID
	if res.Draw {
		if b.Format.IsElimination() {
			return nil, fmt.Errorf("%w: draws are not allowed in %s", ErrInvalidResult, b.Format)
		}
		winner, loser = "", ""
	} else {
		if !m.HasParticipant(winner) {
			return nil, fmt.Errorf("%w: %q is not a participant of %s", ErrInvalidResult, winner, m.ID)
		}
		opponent := m.Opponent(winner)
		if loser != "" && loser != opponent {
			return nil, fmt.Errorf("%w: loser %q does not match opponent %q", ErrInvalidResult, loser, opponent)
		}
		loser = opponent
	}

	c.out.Applied = true
	c.out.Source = m
	c.complete(m, winner, loser, res.Draw)

	if reset := ResetMatch(b); reset != nil && m.WinnerTo != nil && m.WinnerTo.MatchID == reset.ID {
		if winner == m.Slots[0].PlayerID {
			// Winners bracket champion took the first final: no reset.
			reset.Status = models.MatchStatusCancelled
			c.touch(reset)
			c.out.Steps = append(c.out.Steps, Step{MatchID: reset.ID, Status: reset.Status})
		} else {
			c.route(m)
		}
	} else {
		c.route(m)
	}
	c.drain()

	if b.Format == models.FormatSwiss {
		if err := c.pairIfRoundFinished(m.Round, opts.Swiss); err != nil {
			return nil, err
		}
	}
	return c.out, nil
}

// resolveInitialByes settles every match of a freshly generated bracket so
// bye matches complete and their winners move on before anyone plays.
func resolveInitialByes(b *models.Bracket, at time.Time) *Outcome {
	c := newCascade(b, at)
	for _, m := range b.Matches() {
		c.settle(m)
		c.drain()
	}
	return c.out
}

func (c *cascade) touch(m *models.Match) {
	if c.changed[m.ID] {
		return
	}
	c.changed[m.ID] = true
	c.out.Changed = append(c.out.Changed, m)
}

func (c *cascade) complete(m *models.Match, winner, loser string, draw bool) {
	at := c.at
	m.Status = models.MatchStatusCompleted
	m.WinnerID = winner
	m.LoserID = loser
	m.IsDraw = draw
	m.CompletedAt = &at
	c.touch(m)
}

// route queues the winner and loser of a completed match for their downstream
// slots. A match without a real winner sends BYE onward.
func (c *cascade) route(m *models.Match) {
	if m.WinnerTo != nil {
		next := models.ByeSlot()
		if m.WinnerID != "" {
			next = models.ResolvedSlot(m.WinnerID)
		}
		c.queue = append(c.queue, fill{ref: *m.WinnerTo, slot: next})
	}
	if m.LoserTo != nil {
		next := models.ByeSlot()
		if m.LoserID != "" {
			next = models.ResolvedSlot(m.LoserID)
		}
		c.queue = append(c.queue, fill{ref: *m.LoserTo, slot: next})
	}
}

func (c *cascade) drain() {
	for len(c.queue) > 0 {
		f := c.queue[0]
		c.queue = c.queue[1:]

		target, ok := c.index[f.ref.MatchID]
		if !ok || target.IsTerminal() {
			continue
		}
		target.Slots[f.ref.Slot-1] = f.slot
		if f.slot.IsBye() {
			target.IsBye = true
		}
		c.touch(target)
		c.settle(target)
		c.out.Steps = append(c.out.Steps, Step{MatchID: target.ID, Slot: f.ref.Slot, Filled: f.slot, Status: target.Status})
	}
}

// settle moves a non-terminal match to the status its slots imply, resolving
// byes automatically.
func (c *cascade) settle(m *models.Match) {
	if m.IsTerminal() || m.Status == models.MatchStatusActive {
		return
	}
	a, b := m.Slots[0], m.Slots[1]
	if a.IsBye() || b.IsBye() {
		m.IsBye = true
	}
	switch {
	case a.HasPlayer() && b.HasPlayer():
		if m.Status != models.MatchStatusPending {
			m.Status = models.MatchStatusPending
			c.touch(m)
		}
	case a.HasPlayer() && b.IsBye(), a.IsBye() && b.HasPlayer():
		winner := a.PlayerID
		if b.HasPlayer() {
			winner = b.PlayerID
		}
		c.complete(m, winner, "", false)
		c.out.Cascaded = append(c.out.Cascaded, m.ID)
		c.route(m)
	case a.IsBye() && b.IsBye():
		c.complete(m, "", "", false)
		c.out.Cascaded = append(c.out.Cascaded, m.ID)
		c.route(m)
	default:
		if m.Status != models.MatchStatusWaiting {
			m.Status = models.MatchStatusWaiting
			c.touch(m)
		}
	}
}

func (c *cascade) pairIfRoundFinished(round int, policy SwissPolicy) error {
	if round >= len(c.b.Rounds) {
		return nil
	}
	for _, m := range c.b.Rounds[round-1].Matches {
		if !m.IsTerminal() {
			return nil
		}
	}
	filled, err := PairNextRound(c.b, round+1, policy)
	if err != nil {
		return err
	}
	for _, m := range filled {
		c.touch(m)
		c.settle(m)
	}
	c.out.Paired = round + 1
	return nil
}
