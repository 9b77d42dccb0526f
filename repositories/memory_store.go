package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/bracket-engine/models"
)

// MemoryStore keeps tournaments, brackets and ratings in process memory. It
// implements TournamentRepository, MatchRepository and RatingRepository with
// the same version and status checks as the Postgres repositories, and is
// used when no DATABASE_URL is configured and in tests.
type MemoryStore struct {
	mu          sync.Mutex
	nextID      int
	tournaments map[int]*models.Tournament
	rosters     map[int][]models.PlayerEntry
	brackets    map[int]*models.Bracket
	matchIndex  map[string]int
	ratings     map[string]*models.RatingRecord
	changes     map[string][]models.RatingChange
	now         func() time.Time
}

var (
	_ TournamentRepository = (*MemoryStore)(nil)
	_ MatchRepository      = (*MemoryStore)(nil)
	_ RatingRepository     = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tournaments: make(map[int]*models.Tournament),
		rosters:     make(map[int][]models.PlayerEntry),
		brackets:    make(map[int]*models.Bracket),
		matchIndex:  make(map[string]int),
		ratings:     make(map[string]*models.RatingRecord),
		changes:     make(map[string][]models.RatingChange),
		now:         time.Now,
	}
}

func ratingKey(playerID, gameID string) string {
	return playerID + "|" + gameID
}

func copyTournament(t *models.Tournament) *models.Tournament {
	c := *t
	c.Placements = append([]models.Placement(nil), t.Placements...)
	c.Roster = nil
	c.Bracket = nil
	return &c
}

func (s *MemoryStore) Create(ctx context.Context, t *models.Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := s.now()
	t.ID = s.nextID
	if t.Status == "" {
		t.Status = models.StatusOpen
	}
	t.Version = 1
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tournaments[t.ID] = copyTournament(t)
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	return copyTournament(t), nil
}

func (s *MemoryStore) AddPlayer(ctx context.Context, tournamentID int, p models.PlayerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[tournamentID]
	if !ok {
		return ErrTournamentNotFound
	}
	if t.Status != models.StatusOpen {
		return ErrRegistrationClosed
	}
	roster := s.rosters[tournamentID]
	for _, existing := range roster {
		if existing.PlayerID == p.PlayerID {
			return ErrPlayerAlreadyEntered
		}
	}
	if len(roster) >= t.Capacity {
		return ErrCapacityReached
	}
	p.Seed = 0
	s.rosters[tournamentID] = append(roster, p)
	return nil
}

func (s *MemoryStore) ListPlayers(ctx context.Context, tournamentID int) ([]models.PlayerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	players := append([]models.PlayerEntry{}, s.rosters[tournamentID]...)
	sort.SliceStable(players, func(i, j int) bool {
		if !players[i].RegisteredAt.Equal(players[j].RegisteredAt) {
			return players[i].RegisteredAt.Before(players[j].RegisteredAt)
		}
		return players[i].PlayerID < players[j].PlayerID
	})
	return players, nil
}

func (s *MemoryStore) ListIDsByStatus(ctx context.Context, status models.TournamentStatus) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, 0)
	for id, t := range s.tournaments {
		if t.Status == status {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id int, from, to models.TournamentStatus, placements []models.Placement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[id]
	if !ok {
		return ErrTournamentNotFound
	}
	if t.Status != from {
		return ErrConcurrentUpdate
	}
	t.Status = to
	if placements != nil {
		t.Placements = append([]models.Placement(nil), placements...)
	}
	t.Version++
	t.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) SaveBracket(ctx context.Context, b *models.Bracket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[b.TournamentID]
	if !ok {
		return ErrTournamentNotFound
	}
	if _, exists := s.brackets[b.TournamentID]; exists {
		return ErrBracketExists
	}
	if t.Status != models.StatusOpen {
		return ErrConcurrentUpdate
	}

	stored := b.Clone()
	for _, m := range stored.Matches() {
		s.matchIndex[m.ID] = b.TournamentID
	}
	s.brackets[b.TournamentID] = stored
	t.Status = models.StatusActive
	t.Version++
	t.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) GetBracket(ctx context.Context, tournamentID int) (*models.Bracket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.brackets[tournamentID]
	if !ok {
		return nil, ErrBracketNotFound
	}
	return b.Clone(), nil
}

func (s *MemoryStore) TournamentIDForMatch(ctx context.Context, matchID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.matchIndex[matchID]
	if !ok {
		return 0, ErrMatchNotFound
	}
	return id, nil
}

func (s *MemoryStore) UpdateMatches(ctx context.Context, matches []*models.Match) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]*models.Match, len(matches))
	for i, m := range matches {
		tournamentID, ok := s.matchIndex[m.ID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMatchNotFound, m.ID)
		}
		current := s.brackets[tournamentID].MatchByID(m.ID)
		if current.Version != m.Version {
			return fmt.Errorf("match %s: %w", m.ID, ErrConcurrentUpdate)
		}
		stored[i] = current
	}
	for i, m := range matches {
		m.Version++
		*stored[i] = *m.Clone()
	}
	return nil
}

func (s *MemoryStore) CancelTournament(ctx context.Context, tournamentID int, at time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[tournamentID]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	if t.Status.Terminal() {
		return nil, ErrConcurrentUpdate
	}
	t.Status = models.StatusCancelled
	t.Version++
	t.UpdatedAt = at

	var cancelled []string
	if b, ok := s.brackets[tournamentID]; ok {
		for _, m := range b.Matches() {
			if m.IsTerminal() {
				continue
			}
			m.Status = models.MatchStatusCancelled
			completedAt := at
			m.CompletedAt = &completedAt
			m.Version++
			cancelled = append(cancelled, m.ID)
		}
	}
	return cancelled, nil
}

func (s *MemoryStore) Get(ctx context.Context, playerID, gameID string) (*models.RatingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.ratings[ratingKey(playerID, gameID)]
	if !ok {
		return nil, ErrRatingNotFound
	}
	c := *rec
	return &c, nil
}

func (s *MemoryStore) SavePair(ctx context.Context, records []*models.RatingRecord, changes []models.RatingChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range changes {
		for _, existing := range s.changes[c.MatchID] {
			if existing.PlayerID == c.PlayerID {
				return ErrRatingAlreadyApplied
			}
		}
	}
	for _, rec := range records {
		current, ok := s.ratings[ratingKey(rec.PlayerID, rec.GameID)]
		switch {
		case rec.Version == 0 && ok:
			return fmt.Errorf("%w: rating record created concurrently", ErrConcurrentUpdate)
		case rec.Version != 0 && (!ok || current.Version != rec.Version):
			return fmt.Errorf("rating of %s: %w", rec.PlayerID, ErrConcurrentUpdate)
		}
	}

	for _, c := range changes {
		s.changes[c.MatchID] = append(s.changes[c.MatchID], c)
	}
	for _, rec := range records {
		rec.Version++
		c := *rec
		s.ratings[ratingKey(rec.PlayerID, rec.GameID)] = &c
	}
	return nil
}

func (s *MemoryStore) ChangesForMatch(ctx context.Context, matchID string) ([]models.RatingChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changes := append([]models.RatingChange{}, s.changes[matchID]...)
	sort.Slice(changes, func(i, j int) bool { return changes[i].PlayerID < changes[j].PlayerID })
	return changes, nil
}
