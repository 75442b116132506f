package quiz

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adventquiz/calendar-platform/internal/calendar"
	"github.com/adventquiz/calendar-platform/internal/content"
	"github.com/adventquiz/calendar-platform/internal/datetime"
	"github.com/adventquiz/calendar-platform/internal/kv"
	"github.com/adventquiz/calendar-platform/internal/player"
)

type stubStore struct {
	mu     sync.Mutex
	doors  map[uuid.UUID][]player.DoorRecord
	scores map[uuid.UUID][]player.Score
}

func newStubStore() *stubStore {
	return &stubStore{
		doors:  make(map[uuid.UUID][]player.DoorRecord),
		scores: make(map[uuid.UUID][]player.Score),
	}
}

func (s *stubStore) Create(ctx context.Context, p *player.Player) error { return nil }
func (s *stubStore) GetByID(ctx context.Context, id uuid.UUID) (*player.Player, error) {
	return nil, player.ErrNotFound
}
func (s *stubStore) GetByEmail(ctx context.Context, email string) (*player.Player, error) {
	return nil, player.ErrNotFound
}
func (s *stubStore) List(ctx context.Context) ([]player.Player, error)              { return nil, nil }
func (s *stubStore) UpdateName(ctx context.Context, id uuid.UUID, name string) error { return nil }
func (s *stubStore) UpdateLogin(ctx context.Context, id uuid.UUID) error             { return nil }

func (s *stubStore) ReplaceScores(ctx context.Context, id uuid.UUID, scores []player.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[id] = append([]player.Score(nil), scores...)
	return nil
}

func (s *stubStore) ReplaceDoorsOpened(ctx context.Context, id uuid.UUID, doors []player.DoorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doors[id] = append([]player.DoorRecord(nil), doors...)
	return nil
}

type recorderStub struct {
	mu    sync.Mutex
	calls int
}

func (r *recorderStub) RecordScore(ctx context.Context, year string, p *player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return nil
}

func (r *recorderStub) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fixture struct {
	svc      *Service
	store    *stubStore
	recorder *recorderStub
	player   *player.Player
	year     *content.Year
	question *content.Question
}

func newFixture(t *testing.T, opts ServiceOptions) *fixture {
	t.Helper()
	store := newStubStore()
	clock := datetime.FixedClock{T: time.Date(2025, time.December, 10, 9, 0, 0, 0, time.UTC)}
	doors := calendar.NewService(store, clock, zerolog.Nop())
	accounting := player.NewAccounting(store, zerolog.Nop())
	recorder := &recorderStub{}

	if opts.TickInterval == 0 {
		opts.TickInterval = time.Millisecond
	}
	svc := NewService(kv.NewMemoryStore(), doors, accounting, recorder, opts, zerolog.Nop())

	return &fixture{
		svc:      svc,
		store:    store,
		recorder: recorder,
		player:   &player.Player{ID: uuid.New()},
		year:     &content.Year{Year: "2025"},
		question: &content.Question{
			DoorNumber:    5,
			Question:      "In which month is the calendar set?",
			Answer:        "December",
			AnswerOptions: []string{"November", "December", "January"},
			Reward:        3,
		},
	}
}

func TestLoadDefaultsToIntro(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionSeconds: 60})

	session, err := f.svc.Load(context.Background(), f.player, f.year, 5, calendar.GatePolicy{})
	require.NoError(t, err)
	assert.Equal(t, StepIntro, session.Step)
}

func TestLoadAnsweredDoorYieldsAlreadyAnswered(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionSeconds: 60})
	f.player.DoorsOpened = []player.DoorRecord{{Year: "2025", DoorNumber: 5, IsAnswered: true}}
	ctx := context.Background()

	session, err := f.svc.Load(ctx, f.player, f.year, 5, calendar.GatePolicy{})
	require.NoError(t, err)
	assert.Equal(t, StepAlreadyAnswered, session.Step)

	// Test mode always forces the flow back to intro.
	session, err = f.svc.Load(ctx, f.player, f.year, 5, calendar.GatePolicy{BypassDateGate: true})
	require.NoError(t, err)
	assert.Equal(t, StepIntro, session.Step)
}

func TestLoadCorruptStoredStepDefaultsToIntro(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionSeconds: 60})
	ctx := context.Background()

	key := sessionKey(f.player.ID, "2025", 5)
	require.NoError(t, f.svc.steps.Set(ctx, key, Session{Step: "definitely-not-a-step"}, 0))

	session, err := f.svc.Load(ctx, f.player, f.year, 5, calendar.GatePolicy{})
	require.NoError(t, err)
	assert.Equal(t, StepIntro, session.Step)
}

func TestReadyTransitionsAndResumes(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionSeconds: 60})
	ctx := context.Background()

	session, err := f.svc.Ready(ctx, f.player, f.year, f.question, 5, calendar.GatePolicy{})
	require.NoError(t, err)
	assert.Equal(t, StepQuestion, session.Step)
	require.NotNil(t, session.Deadline)

	// A reload lands back on the question step.
	session, err = f.svc.Load(ctx, f.player, f.year, 5, calendar.GatePolicy{})
	require.NoError(t, err)
	assert.Equal(t, StepQuestion, session.Step)

	// Ready again resumes instead of resetting the deadline.
	again, err := f.svc.Ready(ctx, f.player, f.year, f.question, 5, calendar.GatePolicy{})
	require.NoError(t, err)
	assert.Equal(t, StepQuestion, again.Step)
}

func TestReadyRejectsFutureDoor(t *testing.T) {
	// The flow re-checks the date gate, so a direct ready request cannot
	// pull a future door's question past the grid.
	f := newFixture(t, ServiceOptions{QuestionSeconds: 60})
	futureQuestion := &content.Question{
		DoorNumber: 20,
		Question:   "What waits behind door twenty?",
		Answer:     "December",
		Reward:     5,
	}
	ctx := context.Background()

	_, err := f.svc.Ready(ctx, f.player, f.year, futureQuestion, 20, calendar.GatePolicy{})
	assert.ErrorIs(t, err, calendar.ErrDoorLocked)

	session, err := f.svc.Ready(ctx, f.player, f.year, futureQuestion, 20, calendar.GatePolicy{BypassDateGate: true})
	require.NoError(t, err)
	assert.Equal(t, StepQuestion, session.Step)
}

func TestSubmitRejectsFutureDoor(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionSeconds: 60})
	futureQuestion := &content.Question{
		DoorNumber: 20,
		Question:   "What waits behind door twenty?",
		Answer:     "December",
		Reward:     5,
	}

	_, err := f.svc.Submit(context.Background(), f.player, f.year, futureQuestion, 20, "December", calendar.GatePolicy{})
	assert.ErrorIs(t, err, calendar.ErrDoorLocked)

	// The locked door stays untouched: no answered record, no reward.
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	assert.Empty(t, f.store.doors[f.player.ID])
	assert.Empty(t, f.store.scores[f.player.ID])
	assert.Zero(t, f.recorder.count())
}

func TestConcurrentReadyKeepsOneDeadline(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionSeconds: 60})
	ctx := context.Background()

	var wg sync.WaitGroup
	sessions := make([]Session, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session, err := f.svc.Ready(ctx, f.player, f.year, f.question, 5, calendar.GatePolicy{})
			assert.NoError(t, err)
			sessions[i] = session
		}(i)
	}
	wg.Wait()

	require.NotNil(t, sessions[0].Deadline)
	require.NotNil(t, sessions[1].Deadline)
	assert.True(t, sessions[0].Deadline.Equal(*sessions[1].Deadline),
		"second ready must resume the first deadline, not reset it")
}

func TestSubmitCorrectAnswerScoresAndFinalizes(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionSeconds: 60})
	ctx := context.Background()

	_, err := f.svc.Ready(ctx, f.player, f.year, f.question, 5, calendar.GatePolicy{})
	require.NoError(t, err)

	result, err := f.svc.Submit(ctx, f.player, f.year, f.question, 5, "December", calendar.GatePolicy{})
	require.NoError(t, err)
	assert.True(t, result.Correct)
	assert.Equal(t, 3, result.Reward)
	require.NotNil(t, result.TotalScore)
	assert.Equal(t, 3, *result.TotalScore)
	assert.Empty(t, result.CorrectAnswer)

	// Door record is locked and the score persisted.
	require.Len(t, f.store.doors[f.player.ID], 1)
	assert.True(t, f.store.doors[f.player.ID][0].IsAnswered)
	require.Len(t, f.store.scores[f.player.ID], 1)
	assert.Equal(t, 3, f.store.scores[f.player.ID][0].Score)
	assert.Equal(t, 1, f.recorder.count())

	session, err := f.svc.Load(ctx, f.player, f.year, 5, calendar.GatePolicy{BypassDateGate: true})
	require.NoError(t, err)
	assert.Equal(t, StepOutro, session.Step)
}

func TestSubmitWrongAnswerLocksWithoutScore(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionSeconds: 60})
	ctx := context.Background()

	_, err := f.svc.Ready(ctx, f.player, f.year, f.question, 5, calendar.GatePolicy{})
	require.NoError(t, err)

	result, err := f.svc.Submit(ctx, f.player, f.year, f.question, 5, "January", calendar.GatePolicy{})
	require.NoError(t, err)
	assert.False(t, result.Correct)
	assert.Equal(t, "December", result.CorrectAnswer)
	assert.Nil(t, result.TotalScore)

	// The door still gets locked: a wrong answer consumes the question.
	require.Len(t, f.store.doors[f.player.ID], 1)
	assert.True(t, f.store.doors[f.player.ID][0].IsAnswered)
	assert.Empty(t, f.store.scores[f.player.ID])
	assert.Equal(t, 0, f.recorder.count())
}

func TestSubmitTwiceIsNoOp(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionSeconds: 60})
	ctx := context.Background()

	_, err := f.svc.Ready(ctx, f.player, f.year, f.question, 5, calendar.GatePolicy{})
	require.NoError(t, err)
	first, err := f.svc.Submit(ctx, f.player, f.year, f.question, 5, "December", calendar.GatePolicy{})
	require.NoError(t, err)
	require.True(t, first.Correct)

	second, err := f.svc.Submit(ctx, f.player, f.year, f.question, 5, "December", calendar.GatePolicy{})
	require.NoError(t, err)
	assert.True(t, second.Resubmitted)

	// Score accumulated exactly once.
	require.Len(t, f.store.scores[f.player.ID], 1)
	assert.Equal(t, 3, f.store.scores[f.player.ID][0].Score)
}

func TestSubmitBeforeReadyIsRejected(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionSeconds: 60})

	_, err := f.svc.Submit(context.Background(), f.player, f.year, f.question, 5, "December", calendar.GatePolicy{})
	assert.ErrorIs(t, err, ErrStepInvalid)
}

func TestSubmitAlreadyAnsweredDoor(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionSeconds: 60})
	f.player.DoorsOpened = []player.DoorRecord{{Year: "2025", DoorNumber: 5, IsAnswered: true}}

	_, err := f.svc.Submit(context.Background(), f.player, f.year, f.question, 5, "December", calendar.GatePolicy{})
	assert.ErrorIs(t, err, ErrAlreadyAnswered)
}

func TestCountdownExpiryAutoSubmits(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionSeconds: 2, TickInterval: time.Millisecond})
	ctx := context.Background()

	_, err := f.svc.Ready(ctx, f.player, f.year, f.question, 5, calendar.GatePolicy{})
	require.NoError(t, err)

	// The countdown fires with no selected option: the door locks and the
	// outcome is incorrect, with no score granted.
	key := sessionKey(f.player.ID, "2025", 5)
	require.Eventually(t, func() bool {
		var stored Session
		ok, err := f.svc.steps.Get(ctx, key, &stored)
		return err == nil && ok && stored.Step == StepOutro
	}, time.Second, 5*time.Millisecond)

	session, err := f.svc.Load(ctx, f.player, f.year, 5, calendar.GatePolicy{BypassDateGate: true})
	require.NoError(t, err)
	assert.False(t, session.Correct)

	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	require.Len(t, f.store.doors[f.player.ID], 1)
	assert.True(t, f.store.doors[f.player.ID][0].IsAnswered)
	assert.Empty(t, f.store.scores[f.player.ID])
}

func TestSubmitStopsCountdown(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionSeconds: 50, TickInterval: time.Millisecond})
	ctx := context.Background()

	_, err := f.svc.Ready(ctx, f.player, f.year, f.question, 5, calendar.GatePolicy{})
	require.NoError(t, err)
	result, err := f.svc.Submit(ctx, f.player, f.year, f.question, 5, "December", calendar.GatePolicy{})
	require.NoError(t, err)
	require.True(t, result.Correct)

	// Let any stray timer fire; the submitted result must not be overwritten
	// by the auto-submit path.
	time.Sleep(100 * time.Millisecond)
	session, err := f.svc.Load(ctx, f.player, f.year, 5, calendar.GatePolicy{BypassDateGate: true})
	require.NoError(t, err)
	assert.Equal(t, StepOutro, session.Step)
	assert.True(t, session.Correct)
	require.Len(t, f.store.scores[f.player.ID], 1)
	assert.Equal(t, 3, f.store.scores[f.player.ID][0].Score)
}
