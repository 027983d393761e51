package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quizmatch/models"
	"quizmatch/store"
	"quizmatch/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	topic   string
	id      uint
	event   string
	payload interface{}
}

// eventRecorder captures broadcasts for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) ToMatch(matchID uint, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{topic: "match", id: matchID, event: event, payload: payload})
}

func (r *eventRecorder) ToTeam(teamID uint, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{topic: "team", id: teamID, event: event, payload: payload})
}

func (r *eventRecorder) named(event string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type submissionFixture struct {
	store    *memory.Store
	service  *SubmissionService
	recorder *eventRecorder
	match    *models.Match
	team     *models.Team
	question *models.MatchQuestion
	clock    *time.Time
}

// newSubmissionFixture builds a started match with one team and one
// displayed question. The question's correct answer is in slot 2, the
// base score is 1000 and the question was displayed at the fixture
// clock's initial time.
func newSubmissionFixture(t *testing.T, timeLimitSeconds int) *submissionFixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	match := &models.Match{
		HostID:            1,
		Title:             "Pub night",
		Status:            models.MatchActive,
		MaxRounds:         1,
		QuestionsPerRound: 1,
		TimeLimitSeconds:  timeLimitSeconds,
		BasePoints:        1000,
	}
	require.NoError(t, st.Matches().Create(ctx, match))

	batch := []models.MatchQuestion{{
		MatchID:       match.ID,
		RoundNumber:   1,
		QuestionOrder: 1,
		CorrectSlot:   2,
	}}
	batch[0].SetAnswers([models.AnswerSlots]string{"red", "green", "blue", "yellow"})
	require.NoError(t, st.MatchQuestions().CreateBatch(ctx, batch))
	question := batch[0]

	team := &models.Team{MatchID: match.ID, Name: "The Regulars", JoinCode: "ABC123"}
	require.NoError(t, st.Teams().Create(ctx, team))

	displayedAt := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	stamped, err := st.MatchQuestions().MarkDisplayed(ctx, question.ID, displayedAt)
	require.NoError(t, err)
	require.True(t, stamped)

	clock := displayedAt
	recorder := &eventRecorder{}
	service := NewSubmissionServiceWithClock(st, NewRandomizerService(st.MatchQuestions()), recorder,
		func() time.Time { return clock })

	return &submissionFixture{
		store:    st,
		service:  service,
		recorder: recorder,
		match:    match,
		team:     team,
		question: &question,
		clock:    &clock,
	}
}

func (f *submissionFixture) request(slot int) *SubmitAnswerRequest {
	s := slot
	return &SubmitAnswerRequest{
		TeamID:        f.team.ID,
		RoundNumber:   1,
		QuestionOrder: 1,
		SelectedSlot:  &s,
		SubmittedBy:   99,
	}
}

func (f *submissionFixture) advanceClock(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func TestSubmitScoring(t *testing.T) {
	cases := []struct {
		name    string
		elapsed time.Duration
		slot    int
		points  int
		correct bool
	}{
		{"instant correct earns full base", 0, 2, 1000, true},
		{"halfway correct earns three quarters", 15 * time.Second, 2, 750, true},
		{"at the limit correct earns half", 30 * time.Second, 2, 500, true},
		{"incorrect earns nothing", 0, 0, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			f := newSubmissionFixture(t, 30)
			f.advanceClock(tc.elapsed)

			sub, err := f.service.Submit(ctx, f.match.ID, f.request(tc.slot))
			require.NoError(t, err)
			assert.Equal(t, tc.correct, sub.IsCorrect)
			assert.Equal(t, tc.points, sub.Points)
			assert.Equal(t, tc.elapsed.Milliseconds(), sub.ResponseTimeMs)

			team, err := f.store.Teams().ByID(ctx, f.team.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.points, team.Score, "score delta must match points earned")
		})
	}
}

func TestSubmitWithoutTimeLimit(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, 0)
	f.advanceClock(48 * time.Hour)

	sub, err := f.service.Submit(ctx, f.match.ID, f.request(2))
	require.NoError(t, err)
	assert.Equal(t, 1000, sub.Points, "no limit means no decay")
}

func TestSubmitRejectsInvalidSlot(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, 30)

	_, err := f.service.Submit(ctx, f.match.ID, f.request(4))
	assert.True(t, models.IsCode(err, models.ErrValidation))

	_, err = f.service.Submit(ctx, f.match.ID, f.request(-1))
	assert.True(t, models.IsCode(err, models.ErrValidation))
}

func TestSubmitBeforeDisplayIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, 30)

	// A second, never-displayed question in the same match.
	hidden := models.MatchQuestion{MatchID: f.match.ID, RoundNumber: 1, QuestionOrder: 2, CorrectSlot: 0}
	require.NoError(t, f.store.MatchQuestions().CreateBatch(ctx, []models.MatchQuestion{hidden}))

	req := f.request(2)
	req.QuestionOrder = 2
	_, err := f.service.Submit(ctx, f.match.ID, req)
	require.True(t, models.IsCode(err, models.ErrTimingViolation))
	assert.Equal(t, "Question not yet displayed", models.ReasonOf(err))
}

func TestSubmitAfterTimeLimitIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, 30)
	f.advanceClock(30*time.Second + time.Millisecond)

	_, err := f.service.Submit(ctx, f.match.ID, f.request(2))
	require.True(t, models.IsCode(err, models.ErrTimingViolation))
	assert.Equal(t, "Time limit exceeded", models.ReasonOf(err))
}

func TestSubmitUnknownQuestion(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, 30)

	req := f.request(2)
	req.RoundNumber = 9
	_, err := f.service.Submit(ctx, f.match.ID, req)
	require.True(t, models.IsCode(err, models.ErrNotFound))
	assert.Equal(t, "Question not found", models.ReasonOf(err))
}

func TestSubmitTeamFromAnotherMatch(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, 30)

	other := &models.Match{HostID: 2, Title: "Other", Status: models.MatchActive, MaxRounds: 1, QuestionsPerRound: 1}
	require.NoError(t, f.store.Matches().Create(ctx, other))
	stranger := &models.Team{MatchID: other.ID, Name: "Strangers", JoinCode: "ZZZ999"}
	require.NoError(t, f.store.Teams().Create(ctx, stranger))

	req := f.request(2)
	req.TeamID = stranger.ID
	_, err := f.service.Submit(ctx, f.match.ID, req)
	assert.True(t, models.IsCode(err, models.ErrNotFound))
}

func TestSubmitTwiceIsDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, 30)

	_, err := f.service.Submit(ctx, f.match.ID, f.request(2))
	require.NoError(t, err)

	_, err = f.service.Submit(ctx, f.match.ID, f.request(1))
	require.True(t, models.IsCode(err, models.ErrDuplicateSubmission))
	assert.Equal(t, "Already answered", models.ReasonOf(err))

	// The first answer stands, unchanged.
	team, err := f.store.Teams().ByID(ctx, f.team.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000, team.Score)
}

func TestConcurrentSubmitsSingleWinner(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, 30)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Submit(ctx, f.match.ID, f.request(2))
		}(i)
	}
	wg.Wait()

	wins, duplicates := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case models.IsCode(err, models.ErrDuplicateSubmission):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins, "exactly one submission must win the race")
	assert.Equal(t, attempts-1, duplicates)

	team, err := f.store.Teams().ByID(ctx, f.team.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000, team.Score, "the score delta must apply exactly once")
}

// failingScoreStore wraps a store so AddScore always fails, simulating
// a score update dying after the submission insert committed.
type failingScoreStore struct {
	store.Store
}

func (f *failingScoreStore) Teams() store.TeamStore {
	return &failingTeamStore{f.Store.Teams()}
}

type failingTeamStore struct {
	store.TeamStore
}

func (f *failingTeamStore) AddScore(context.Context, uint, int) error {
	return errors.New("connection reset")
}

func TestSubmitSurvivesScoreUpdateFailure(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, 30)

	service := NewSubmissionServiceWithClock(
		&failingScoreStore{f.store},
		NewRandomizerService(f.store.MatchQuestions()),
		f.recorder,
		func() time.Time { return *f.clock },
	)

	sub, err := service.Submit(ctx, f.match.ID, f.request(2))
	require.NoError(t, err, "a failed score update must not fail the submission")
	require.NotZero(t, sub.ID)

	// The submission is durable even though the score never moved.
	stored, err := f.store.Submissions().ByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000, stored.Points)

	team, err := f.store.Teams().ByID(ctx, f.team.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, team.Score)
}

func TestSubmitBroadcasts(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, 30)

	sub, err := f.service.Submit(ctx, f.match.ID, f.request(2))
	require.NoError(t, err)

	answered := f.recorder.named(models.EventTeamAnswered)
	require.Len(t, answered, 1)
	assert.Equal(t, "match", answered[0].topic)
	payload := answered[0].payload.(models.TeamAnsweredEvent)
	assert.Equal(t, f.team.ID, payload.TeamID)
	assert.Equal(t, sub.MatchQuestionID, payload.GameQuestionID)

	locked := f.recorder.named(models.EventAnswerLocked)
	require.Len(t, locked, 1)
	assert.Equal(t, "team", locked[0].topic)
	assert.Equal(t, f.team.ID, locked[0].id)
	lockedPayload := locked[0].payload.(models.AnswerLockedEvent)
	assert.Equal(t, 2, lockedPayload.SelectedPosition)
}

func TestCanSubmit(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, 30)

	res, err := f.service.CanSubmit(ctx, f.team.ID, 1, 1)
	require.NoError(t, err)
	assert.True(t, res.CanSubmit)
	require.NotNil(t, res.TimeRemaining)
	assert.InDelta(t, 30, *res.TimeRemaining, 0.001)

	f.advanceClock(10 * time.Second)
	res, err = f.service.CanSubmit(ctx, f.team.ID, 1, 1)
	require.NoError(t, err)
	assert.True(t, res.CanSubmit)
	assert.InDelta(t, 20, *res.TimeRemaining, 0.001)

	_, err = f.service.Submit(ctx, f.match.ID, f.request(2))
	require.NoError(t, err)
	res, err = f.service.CanSubmit(ctx, f.team.ID, 1, 1)
	require.NoError(t, err)
	assert.False(t, res.CanSubmit)
	assert.Equal(t, "Already answered", res.Reason)

	f.advanceClock(30 * time.Second)
	res, err = f.service.CanSubmit(ctx, f.team.ID, 1, 1)
	require.NoError(t, err)
	assert.False(t, res.CanSubmit)
	assert.Equal(t, "Time limit exceeded", res.Reason)

	res, err = f.service.CanSubmit(ctx, f.team.ID, 1, 2)
	require.NoError(t, err)
	assert.False(t, res.CanSubmit)
	assert.Equal(t, "Question not found", res.Reason)
}

func TestCanSubmitBeforeDisplay(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, 30)

	hidden := models.MatchQuestion{MatchID: f.match.ID, RoundNumber: 1, QuestionOrder: 2, CorrectSlot: 0}
	require.NoError(t, f.store.MatchQuestions().CreateBatch(ctx, []models.MatchQuestion{hidden}))

	res, err := f.service.CanSubmit(ctx, f.team.ID, 1, 2)
	require.NoError(t, err)
	assert.False(t, res.CanSubmit)
	assert.Equal(t, "Question not yet displayed", res.Reason)
}

func TestUnsubmitReversesScore(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, 30)

	rival := &models.Team{MatchID: f.match.ID, Name: "Rivals", JoinCode: "XYZ789"}
	require.NoError(t, f.store.Teams().Create(ctx, rival))
	require.NoError(t, f.store.Teams().AddScore(ctx, rival.ID, 400))

	sub, err := f.service.Submit(ctx, f.match.ID, f.request(2))
	require.NoError(t, err)

	team, err := f.store.Teams().ByID(ctx, f.team.ID)
	require.NoError(t, err)
	require.Equal(t, 1000, team.Score)

	require.NoError(t, f.service.Unsubmit(ctx, f.match.ID, sub.ID, f.match.HostID))

	team, err = f.store.Teams().ByID(ctx, f.team.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, team.Score, "unsubmit must reverse exactly the points earned")

	untouched, err := f.store.Teams().ByID(ctx, rival.ID)
	require.NoError(t, err)
	assert.Equal(t, 400, untouched.Score, "other teams' scores must not move")

	_, err = f.store.Submissions().ByID(ctx, sub.ID)
	assert.True(t, models.IsCode(err, models.ErrNotFound))

	// The team may answer again afterwards.
	_, err = f.service.Submit(ctx, f.match.ID, f.request(1))
	assert.NoError(t, err)
}

func TestUnsubmitRequiresHost(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, 30)

	sub, err := f.service.Submit(ctx, f.match.ID, f.request(2))
	require.NoError(t, err)

	err = f.service.Unsubmit(ctx, f.match.ID, sub.ID, f.match.HostID+1)
	assert.True(t, models.IsCode(err, models.ErrUnauthorized))
}

func TestUnsubmitForeignSubmission(t *testing.T) {
	ctx := context.Background()

	// A submission belonging to a different match must look absent to
	// this match's host.
	other := newSubmissionFixture(t, 30)
	foreign, err := other.service.Submit(ctx, other.match.ID, other.request(2))
	require.NoError(t, err)

	mine := &models.Match{HostID: 50, Title: "Mine", Status: models.MatchActive, MaxRounds: 1, QuestionsPerRound: 1}
	require.NoError(t, other.store.Matches().Create(ctx, mine))

	service := NewSubmissionService(other.store, NewRandomizerService(other.store.MatchQuestions()), nil)
	err = service.Unsubmit(ctx, mine.ID, foreign.ID, 50)
	assert.True(t, models.IsCode(err, models.ErrNotFound))
}

func TestScorePoints(t *testing.T) {
	limit := 30 * time.Second

	assert.Equal(t, 0, scorePoints(1000, false, 0, limit))
	assert.Equal(t, 1000, scorePoints(1000, true, 0, limit))
	assert.Equal(t, 750, scorePoints(1000, true, 15*time.Second, limit))
	assert.Equal(t, 500, scorePoints(1000, true, 30*time.Second, limit))
	// The multiplier floors at one half even past the limit.
	assert.Equal(t, 500, scorePoints(1000, true, time.Minute, limit))
	// Rounding is to nearest.
	assert.Equal(t, 983, scorePoints(1000, true, time.Second, limit))
	// No limit means no decay; zero base falls back to the default.
	assert.Equal(t, 1000, scorePoints(1000, true, time.Hour, 0))
	assert.Equal(t, DefaultBasePoints, scorePoints(0, true, 0, limit))
}
