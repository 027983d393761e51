package memory

import (
	"context"
	"testing"
	"time"

	"quizmatch/models"
	"quizmatch/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinCodeUniquePerMatch(t *testing.T) {
	ctx := context.Background()
	st := New()

	require.NoError(t, st.Teams().Create(ctx, &models.Team{MatchID: 1, Name: "A", JoinCode: "AAAAAA"}))

	err := st.Teams().Create(ctx, &models.Team{MatchID: 1, Name: "B", JoinCode: "AAAAAA"})
	assert.ErrorIs(t, err, store.ErrDuplicateJoinCode)

	// The same code is free in a different match.
	assert.NoError(t, st.Teams().Create(ctx, &models.Team{MatchID: 2, Name: "C", JoinCode: "AAAAAA"}))
}

func TestSubmissionUniquePerTeamAndQuestion(t *testing.T) {
	ctx := context.Background()
	st := New()

	require.NoError(t, st.Submissions().Insert(ctx, &models.Submission{TeamID: 1, MatchQuestionID: 5}))

	err := st.Submissions().Insert(ctx, &models.Submission{TeamID: 1, MatchQuestionID: 5, SelectedSlot: 3})
	require.True(t, models.IsCode(err, models.ErrDuplicateSubmission))
	assert.Equal(t, "Already answered", models.ReasonOf(err))

	// Other teams and other questions are unaffected.
	assert.NoError(t, st.Submissions().Insert(ctx, &models.Submission{TeamID: 2, MatchQuestionID: 5}))
	assert.NoError(t, st.Submissions().Insert(ctx, &models.Submission{TeamID: 1, MatchQuestionID: 6}))
}

func TestAddScoreAccumulates(t *testing.T) {
	ctx := context.Background()
	st := New()

	team := &models.Team{MatchID: 1, Name: "Scorers", JoinCode: "AAAAAA"}
	require.NoError(t, st.Teams().Create(ctx, team))

	require.NoError(t, st.Teams().AddScore(ctx, team.ID, 750))
	require.NoError(t, st.Teams().AddScore(ctx, team.ID, 250))
	require.NoError(t, st.Teams().AddScore(ctx, team.ID, -100))

	got, err := st.Teams().ByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, 900, got.Score)

	err = st.Teams().AddScore(ctx, team.ID+1, 10)
	assert.True(t, models.IsCode(err, models.ErrNotFound))
}

func TestDeleteAndReverse(t *testing.T) {
	ctx := context.Background()
	st := New()

	team := &models.Team{MatchID: 1, Name: "Reversible", JoinCode: "AAAAAA"}
	require.NoError(t, st.Teams().Create(ctx, team))

	sub := &models.Submission{TeamID: team.ID, MatchQuestionID: 3, IsCorrect: true, Points: 800}
	require.NoError(t, st.Submissions().Insert(ctx, sub))
	require.NoError(t, st.Teams().AddScore(ctx, team.ID, sub.Points))

	deleted, err := st.Submissions().DeleteAndReverse(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 800, deleted.Points)

	got, err := st.Teams().ByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Score)

	_, err = st.Submissions().ByID(ctx, sub.ID)
	assert.True(t, models.IsCode(err, models.ErrNotFound))

	_, err = st.Submissions().DeleteAndReverse(ctx, sub.ID)
	assert.True(t, models.IsCode(err, models.ErrNotFound))
}

func TestMarkDisplayedIsSetOnce(t *testing.T) {
	ctx := context.Background()
	st := New()

	batch := []models.MatchQuestion{{MatchID: 1, RoundNumber: 1, QuestionOrder: 1}}
	require.NoError(t, st.MatchQuestions().CreateBatch(ctx, batch))
	q := batch[0]

	first := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	stamped, err := st.MatchQuestions().MarkDisplayed(ctx, q.ID, first)
	require.NoError(t, err)
	require.True(t, stamped)

	stamped, err = st.MatchQuestions().MarkDisplayed(ctx, q.ID, first.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, stamped)

	got, err := st.MatchQuestions().ByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *got.DisplayedAt)
}

func TestTransitionStatusIsConditional(t *testing.T) {
	ctx := context.Background()
	st := New()

	match := &models.Match{HostID: 1, Title: "CAS", Status: models.MatchSetup}
	require.NoError(t, st.Matches().Create(ctx, match))

	startedAt := time.Now()
	ok, err := st.Matches().TransitionStatus(ctx, match.ID,
		[]models.MatchStatus{models.MatchSetup}, models.MatchActive, &startedAt, nil)
	require.NoError(t, err)
	require.True(t, ok)

	// A replay of the same transition finds the wrong source state.
	ok, err = st.Matches().TransitionStatus(ctx, match.ID,
		[]models.MatchStatus{models.MatchSetup}, models.MatchActive, &startedAt, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := st.Matches().ByID(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchActive, got.Status)
	assert.NotNil(t, got.StartedAt)
	assert.Nil(t, got.EndedAt)
}

func TestAdvanceCursorIsConditional(t *testing.T) {
	ctx := context.Background()
	st := New()

	match := &models.Match{HostID: 1, Title: "Cursor", Status: models.MatchActive}
	require.NoError(t, st.Matches().Create(ctx, match))

	ok, err := st.Matches().AdvanceCursor(ctx, match.ID, 1, 1, 1, 2)
	require.NoError(t, err)
	require.True(t, ok)

	// The stale expected position loses.
	ok, err = st.Matches().AdvanceCursor(ctx, match.ID, 1, 1, 1, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := st.Matches().ByID(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentRound)
	assert.Equal(t, 2, got.CurrentQuestion)
}

func TestTeamDeleteRequiresNoMembers(t *testing.T) {
	ctx := context.Background()
	st := New()

	team := &models.Team{MatchID: 1, Name: "Occupied", JoinCode: "AAAAAA"}
	require.NoError(t, st.Teams().Create(ctx, team))
	member := &models.TeamMember{TeamID: team.ID, Name: "Holdout"}
	require.NoError(t, st.Teams().AddMember(ctx, member))

	deleted, err := st.Teams().Delete(ctx, team.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	// Teams returned to callers are copies; mutating them must not leak
	// into the store.
	got, err := st.Teams().ByID(ctx, team.ID)
	require.NoError(t, err)
	got.Score = 999
	again, err := st.Teams().ByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Score)
}

func TestTeamsForMatchOrderedByCreation(t *testing.T) {
	ctx := context.Background()
	st := New()

	base := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	require.NoError(t, st.Teams().Create(ctx, &models.Team{MatchID: 1, Name: "Second", JoinCode: "BBBBBB", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, st.Teams().Create(ctx, &models.Team{MatchID: 1, Name: "First", JoinCode: "AAAAAA", CreatedAt: base}))
	require.NoError(t, st.Teams().Create(ctx, &models.Team{MatchID: 2, Name: "Elsewhere", JoinCode: "CCCCCC", CreatedAt: base}))

	teams, err := st.Teams().ForMatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, "First", teams[0].Name)
	assert.Equal(t, "Second", teams[1].Name)
}
