// Package store defines the persistence contracts the engine services
// depend on. Every implementation must honor the same uniqueness
// constraints: (team_id, game_question_id) for submissions and
// (match_id, join_code) for teams, surfacing violations as
// models.ErrDuplicateSubmission so callers cannot tell a pre-checked
// duplicate from a race-lost one.
package store

import (
	"context"
	"time"

	"quizmatch/models"
)

type MatchStore interface {
	Create(ctx context.Context, match *models.Match) error
	ByID(ctx context.Context, id uint) (*models.Match, error)

	// TransitionStatus moves the match from one of the given statuses
	// to the target status as a single conditional update, optionally
	// stamping started_at/ended_at. It reports whether a row changed;
	// false means the match was not in any of the from statuses.
	TransitionStatus(ctx context.Context, id uint, from []models.MatchStatus, to models.MatchStatus, startedAt, endedAt *time.Time) (bool, error)

	// AdvanceCursor is a compare-and-swap on the round/question cursor
	// so two concurrent advances cannot both move it.
	AdvanceCursor(ctx context.Context, id uint, fromRound, fromQuestion, toRound, toQuestion int) (bool, error)
}

type MatchQuestionStore interface {
	CreateBatch(ctx context.Context, questions []models.MatchQuestion) error
	ByID(ctx context.Context, id uint) (*models.MatchQuestion, error)
	ByCursor(ctx context.Context, matchID uint, round, order int) (*models.MatchQuestion, error)
	CountForMatch(ctx context.Context, matchID uint) (int64, error)

	// MarkDisplayed sets displayed_at if and only if it is still null,
	// reporting whether this call performed the transition.
	MarkDisplayed(ctx context.Context, id uint, at time.Time) (bool, error)
	MarkCompleted(ctx context.Context, id uint, at time.Time) (bool, error)
}

type TeamStore interface {
	Create(ctx context.Context, team *models.Team) error
	ByID(ctx context.Context, id uint) (*models.Team, error)
	ByJoinCode(ctx context.Context, matchID uint, joinCode string) (*models.Team, error)

	// ForMatch returns the match's teams ordered by creation time
	// ascending, the leaderboard tie-break order.
	ForMatch(ctx context.Context, matchID uint) ([]models.Team, error)
	CountForMatch(ctx context.Context, matchID uint) (int64, error)

	// AddScore applies an atomic score delta evaluated by the store,
	// never a read-then-write-back.
	AddScore(ctx context.Context, teamID uint, delta int) error

	AddMember(ctx context.Context, member *models.TeamMember) error
	MembersForTeam(ctx context.Context, teamID uint) ([]models.TeamMember, error)

	// Delete removes the team only if it has no members, reporting
	// whether a row was deleted.
	Delete(ctx context.Context, teamID uint) (bool, error)
}

type SubmissionStore interface {
	// Insert writes the submission, returning a duplicate_submission
	// error when the (team, question) pair already has one.
	Insert(ctx context.Context, sub *models.Submission) error
	ByID(ctx context.Context, id uint) (*models.Submission, error)
	ByTeamAndQuestion(ctx context.Context, teamID, matchQuestionID uint) (*models.Submission, error)
	ForQuestion(ctx context.Context, matchQuestionID uint) ([]models.Submission, error)
	ForMatch(ctx context.Context, matchID uint) ([]models.Submission, error)

	// DeleteAndReverse removes the submission and decrements the owning
	// team's score by its points as one atomic adjustment, returning
	// the deleted row.
	DeleteAndReverse(ctx context.Context, submissionID uint) (*models.Submission, error)
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	ByID(ctx context.Context, id uint) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
}

type QuizStore interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	ByID(ctx context.Context, id uint) (*models.Quiz, error)
	ForUser(ctx context.Context, userID uint) ([]models.Quiz, error)
}

// Store bundles the repositories a fully wired service set needs.
type Store interface {
	Matches() MatchStore
	MatchQuestions() MatchQuestionStore
	Teams() TeamStore
	Submissions() SubmissionStore
	Users() UserStore
	Quizzes() QuizStore
}
