package quiz

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/adventquiz/calendar-platform/internal/calendar"
	"github.com/adventquiz/calendar-platform/internal/content"
	"github.com/adventquiz/calendar-platform/internal/datetime"
	"github.com/adventquiz/calendar-platform/internal/kv"
	"github.com/adventquiz/calendar-platform/internal/player"
)

var (
	// ErrAlreadyAnswered: the door was finalized in an earlier session.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrStepInvalid: the requested transition does not apply to the
	// session's current step.
	ErrStepInvalid = errors.New("invalid form step for transition")
)

var answersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "advent_answers_total",
	Help: "Answer submissions by correctness.",
}, []string{"result"})

// ScoreRecorder mirrors a player's updated year score into the leaderboard.
// Recording is best-effort; the authoritative score lives in the player row.
type ScoreRecorder interface {
	RecordScore(ctx context.Context, year string, p *player.Player) error
}

// ServiceOptions tunes the flow.
type ServiceOptions struct {
	// QuestionSeconds is how long a player has to answer once the
	// question is shown. Defaults to 60.
	QuestionSeconds int
	// StepTTL bounds how long an unfinished session survives in storage.
	StepTTL time.Duration
	// TickInterval shrinks the countdown tick for tests. Defaults to one
	// second.
	TickInterval time.Duration
}

// Service drives the intro -> question -> outro flow: it persists each step
// durably, runs the countdown, and on submission invokes the door lock and
// score accounting in order.
type Service struct {
	steps       kv.Store
	doors       *calendar.Service
	accounting  *player.Accounting
	leaderboard ScoreRecorder
	logger      zerolog.Logger
	opts        ServiceOptions

	mu         sync.Mutex
	countdowns map[string]*Countdown
	sessions   map[string]*sync.Mutex
}

func NewService(steps kv.Store, doors *calendar.Service, accounting *player.Accounting, leaderboard ScoreRecorder, opts ServiceOptions, logger zerolog.Logger) *Service {
	if opts.QuestionSeconds <= 0 {
		opts.QuestionSeconds = 60
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	return &Service{
		steps:       steps,
		doors:       doors,
		accounting:  accounting,
		leaderboard: leaderboard,
		logger:      logger.With().Str("component", "quiz_flow").Logger(),
		opts:        opts,
		countdowns:  make(map[string]*Countdown),
		sessions:    make(map[string]*sync.Mutex),
	}
}

func (s *Service) key(p *player.Player, year *content.Year, doorNumber int) string {
	y := year.Year
	if n, ok := datetime.YearNumber(y); ok {
		y = strconv.Itoa(n)
	}
	return sessionKey(p.ID, y, doorNumber)
}

// sessionLock serializes transitions of one session, so a duplicate submit
// racing the first is a no-op instead of a double score.
func (s *Service) sessionLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.sessions[key]; ok {
		return m
	}
	m := &sync.Mutex{}
	s.sessions[key] = m
	return m
}

// Load returns the current session for (player, year, door). A door already
// answered per the player's records yields the already_answered step unless
// test mode bypasses it; otherwise the durably stored step is resumed, with
// a missing or corrupt entry defaulting to intro.
func (s *Service) Load(ctx context.Context, p *player.Player, year *content.Year, doorNumber int, policy calendar.GatePolicy) (Session, error) {
	if p == nil {
		return Session{}, calendar.ErrNoPlayer
	}
	if year == nil {
		return Session{}, calendar.ErrNoYear
	}

	if record := p.FindDoor(year.Year, doorNumber); record != nil && record.IsAnswered && !policy.BypassDateGate {
		return Session{Step: StepAlreadyAnswered}, nil
	}

	var session Session
	ok, err := s.steps.Get(ctx, s.key(p, year, doorNumber), &session)
	if err != nil {
		s.logger.Warn().Err(err).Int("door", doorNumber).Msg("failed to read stored form step, defaulting to intro")
		return Session{Step: StepIntro}, nil
	}
	if !ok || !validStep(session.Step) {
		return Session{Step: StepIntro}, nil
	}
	return session, nil
}

func (s *Service) persist(ctx context.Context, key string, session Session) error {
	if err := s.steps.Set(ctx, key, session, s.opts.StepTTL); err != nil {
		return fmt.Errorf("persist form step: %w", err)
	}
	return nil
}

// gateCheck rejects a door whose calendar date has not arrived. The grid
// derivation alone only guards rendering; ready and submit re-validate so a
// direct request cannot reach a locked door's question.
func (s *Service) gateCheck(p *player.Player, year *content.Year, doorNumber int, policy calendar.GatePolicy) error {
	states, err := s.doors.DoorStates(p, year, policy)
	if err != nil {
		return err
	}
	if states.State(doorNumber) == calendar.StateLocked {
		return fmt.Errorf("%w: door %d", calendar.ErrDoorLocked, doorNumber)
	}
	return nil
}

// Ready moves the session from intro to question, starts the countdown, and
// persists the step. Calling it while already on the question step resumes
// the running session.
func (s *Service) Ready(ctx context.Context, p *player.Player, year *content.Year, question *content.Question, doorNumber int, policy calendar.GatePolicy) (Session, error) {
	if p == nil {
		return Session{}, calendar.ErrNoPlayer
	}
	if year == nil {
		return Session{}, calendar.ErrNoYear
	}
	if err := s.gateCheck(p, year, doorNumber, policy); err != nil {
		return Session{}, err
	}

	key := s.key(p, year, doorNumber)
	lock := s.sessionLock(key)
	lock.Lock()
	defer lock.Unlock()

	// Loaded under the session lock; a racing Ready must not reset the
	// deadline a first Ready just persisted.
	session, err := s.Load(ctx, p, year, doorNumber, policy)
	if err != nil {
		return Session{}, err
	}

	switch session.Step {
	case StepQuestion:
		return session, nil
	case StepOutro:
		return session, ErrStepInvalid
	case StepAlreadyAnswered:
		return session, ErrAlreadyAnswered
	}

	deadline := time.Now().Add(time.Duration(s.opts.QuestionSeconds) * time.Second)
	session = Session{Step: StepQuestion, Deadline: &deadline}
	if err := s.persist(ctx, key, session); err != nil {
		return Session{}, err
	}

	s.startCountdown(key, p, year, question, doorNumber, policy)
	return session, nil
}

// startCountdown arms the auto-submit timer for a session. The countdown
// fires once at zero and submits with no selected option, exactly like the
// client-side timer expiring.
func (s *Service) startCountdown(key string, p *player.Player, year *content.Year, question *content.Question, doorNumber int, policy calendar.GatePolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.countdowns[key]; running {
		return
	}

	c := NewCountdown(s.opts.QuestionSeconds, s.opts.TickInterval, func() {
		// The originating request is long gone when the timer fires.
		ctx := context.Background()
		if _, err := s.Submit(ctx, p, year, question, doorNumber, "", policy); err != nil {
			s.logger.Warn().Err(err).Int("door", doorNumber).Msg("countdown auto-submit failed")
		}
	})
	s.countdowns[key] = c
	c.Start()
}

func (s *Service) stopCountdown(key string) {
	s.mu.Lock()
	c := s.countdowns[key]
	delete(s.countdowns, key)
	s.mu.Unlock()
	if c != nil {
		c.Stop()
	}
}

// Submit finalizes the question: it locks the door, then checks the answer,
// then applies the reward for a correct answer before moving the session to
// outro. A repeated submit for an already-finalized session is a no-op.
func (s *Service) Submit(ctx context.Context, p *player.Player, year *content.Year, question *content.Question, doorNumber int, selectedOption string, policy calendar.GatePolicy) (*Result, error) {
	if p == nil {
		return nil, calendar.ErrNoPlayer
	}
	if year == nil {
		return nil, calendar.ErrNoYear
	}
	if question == nil {
		return nil, fmt.Errorf("no question for door %d", doorNumber)
	}
	if err := s.gateCheck(p, year, doorNumber, policy); err != nil {
		return nil, err
	}

	key := s.key(p, year, doorNumber)
	lock := s.sessionLock(key)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.Load(ctx, p, year, doorNumber, policy)
	if err != nil {
		return nil, err
	}

	switch session.Step {
	case StepAlreadyAnswered:
		return nil, ErrAlreadyAnswered
	case StepOutro:
		return &Result{Correct: session.Correct, Resubmitted: true}, nil
	case StepIntro:
		return nil, ErrStepInvalid
	}

	s.stopCountdown(key)

	// Lock the door first; the score update only happens once the answered
	// record is durable.
	if err := s.doors.LockDoorAfterAnswer(ctx, p, year, doorNumber, policy); err != nil {
		return nil, fmt.Errorf("lock door: %w", err)
	}

	correct := selectedOption != "" && selectedOption == question.Answer
	result := &Result{Correct: correct}
	if correct {
		result.Reward = question.Reward
		entry, err := s.accounting.ApplyReward(ctx, p, year.Year, question.Reward)
		if err != nil {
			return nil, fmt.Errorf("update score: %w", err)
		}
		total := entry.Score
		result.TotalScore = &total

		if s.leaderboard != nil {
			if err := s.leaderboard.RecordScore(ctx, year.Year, p); err != nil {
				s.logger.Warn().Err(err).Msg("leaderboard record failed")
			}
		}
		answersTotal.WithLabelValues("correct").Inc()
	} else {
		result.CorrectAnswer = question.Answer
		answersTotal.WithLabelValues("incorrect").Inc()
	}

	session = Session{Step: StepOutro, Submitted: true, Correct: correct}
	if err := s.persist(ctx, key, session); err != nil {
		// The answer is already recorded; a failed step write only costs
		// resumption.
		s.logger.Warn().Err(err).Int("door", doorNumber).Msg("failed to persist outro step")
	}

	s.logger.Info().
		Str("player_id", p.ID.String()).
		Str("year", year.Year).
		Int("door", doorNumber).
		Bool("correct", correct).
		Msg("answer submitted")
	return result, nil
}
