package player

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore keeps player rows in memory for unit tests. Writes replace whole
// arrays, like the real store.
type memStore struct {
	players map[uuid.UUID]*Player
	fail    error
}

func newMemStore(players ...*Player) *memStore {
	s := &memStore{players: make(map[uuid.UUID]*Player)}
	for _, p := range players {
		s.players[p.ID] = p
	}
	return s
}

func (s *memStore) Create(ctx context.Context, p *Player) error {
	s.players[p.ID] = p
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id uuid.UUID) (*Player, error) {
	p, ok := s.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	snapshot := *p
	snapshot.Scores = append([]Score(nil), p.Scores...)
	snapshot.DoorsOpened = append([]DoorRecord(nil), p.DoorsOpened...)
	return &snapshot, nil
}

func (s *memStore) GetByEmail(ctx context.Context, email string) (*Player, error) {
	for _, p := range s.players {
		if p.Email != nil && *p.Email == email {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) List(ctx context.Context) ([]Player, error) {
	out := make([]Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, *p)
	}
	return out, nil
}

func (s *memStore) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	if p, ok := s.players[id]; ok {
		p.Name = name
	}
	return nil
}

func (s *memStore) ReplaceScores(ctx context.Context, id uuid.UUID, scores []Score) error {
	if s.fail != nil {
		return s.fail
	}
	if p, ok := s.players[id]; ok {
		p.Scores = append([]Score(nil), scores...)
	}
	return nil
}

func (s *memStore) ReplaceDoorsOpened(ctx context.Context, id uuid.UUID, doors []DoorRecord) error {
	if s.fail != nil {
		return s.fail
	}
	if p, ok := s.players[id]; ok {
		p.DoorsOpened = append([]DoorRecord(nil), doors...)
	}
	return nil
}

func (s *memStore) UpdateLogin(ctx context.Context, id uuid.UUID) error { return nil }

func TestApplyRewardAppendsFirstEntry(t *testing.T) {
	p := &Player{ID: uuid.New()}
	store := newMemStore(p)
	acc := NewAccounting(store, zerolog.Nop())

	entry, err := acc.ApplyReward(context.Background(), p, "2025", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, entry.Score)
	require.Len(t, p.Scores, 1)
	assert.Equal(t, "2025", p.Scores[0].Year)
}

func TestApplyRewardAccumulatesWithoutDuplicates(t *testing.T) {
	p := &Player{ID: uuid.New()}
	store := newMemStore(p)
	acc := NewAccounting(store, zerolog.Nop())
	ctx := context.Background()

	_, err := acc.ApplyReward(ctx, p, "2025", 3)
	require.NoError(t, err)
	entry, err := acc.ApplyReward(ctx, p, "2025", 5)
	require.NoError(t, err)

	assert.Equal(t, 8, entry.Score)
	assert.Len(t, p.Scores, 1)
}

func TestApplyRewardNormalizesYearRepresentation(t *testing.T) {
	// Existing entry stored as an ISO date must not produce a duplicate when
	// the update uses the bare year.
	p := &Player{
		ID:     uuid.New(),
		Scores: []Score{{Year: "2025-01-01", Score: 6}},
	}
	store := newMemStore(p)
	acc := NewAccounting(store, zerolog.Nop())

	entry, err := acc.ApplyReward(context.Background(), p, "2025", 3)
	require.NoError(t, err)
	assert.Equal(t, 9, entry.Score)
	assert.Len(t, p.Scores, 1)
}

func TestApplyRewardKeepsOtherYears(t *testing.T) {
	p := &Player{
		ID:     uuid.New(),
		Scores: []Score{{Year: "2024", Score: 12}},
	}
	store := newMemStore(p)
	acc := NewAccounting(store, zerolog.Nop())

	_, err := acc.ApplyReward(context.Background(), p, "2025", 3)
	require.NoError(t, err)
	require.Len(t, p.Scores, 2)
	assert.Equal(t, 12, p.Scores[0].Score)
}

func TestApplyRewardLeavesSnapshotOnStoreError(t *testing.T) {
	p := &Player{ID: uuid.New(), Scores: []Score{{Year: "2025", Score: 3}}}
	store := newMemStore(p)
	store.fail = errors.New("connection reset")
	acc := NewAccounting(store, zerolog.Nop())

	_, err := acc.ApplyReward(context.Background(), p, "2025", 3)
	assert.Error(t, err)
	assert.Equal(t, 3, p.Scores[0].Score)
}

func TestApplyRewardRejectsMissingPlayer(t *testing.T) {
	acc := NewAccounting(newMemStore(), zerolog.Nop())
	_, err := acc.ApplyReward(context.Background(), nil, "2025", 3)
	assert.Error(t, err)
}

func TestFindDoorMatchesMixedYearForms(t *testing.T) {
	p := &Player{
		DoorsOpened: []DoorRecord{
			{Year: "2025-12-01", DoorNumber: 5},
			{Year: "2024", DoorNumber: 5, IsAnswered: true},
		},
	}

	d := p.FindDoor("2025", 5)
	require.NotNil(t, d)
	assert.False(t, d.IsAnswered)
	assert.Nil(t, p.FindDoor("2025", 6))
}
