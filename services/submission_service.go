package services

import (
	"context"
	"log"
	"math"
	"time"

	"quizmatch/models"
	"quizmatch/store"
)

// DefaultBasePoints is the score for an instant correct answer when a
// match does not configure its own base value.
const DefaultBasePoints = 1000

// SubmissionService validates and records team answers for the
// currently displayed question. The duplicate pre-check is advisory:
// the (team_id, game_question_id) uniqueness constraint in the store is
// what actually breaks concurrent submission races.
type SubmissionService struct {
	store      store.Store
	randomizer *RandomizerService
	hub        Broadcaster
	now        func() time.Time
}

func NewSubmissionService(st store.Store, randomizer *RandomizerService, hub Broadcaster) *SubmissionService {
	return &SubmissionService{
		store:      st,
		randomizer: randomizer,
		hub:        hub,
		now:        time.Now,
	}
}

// NewSubmissionServiceWithClock is test-only for deterministic timing.
func NewSubmissionServiceWithClock(st store.Store, randomizer *RandomizerService, hub Broadcaster, now func() time.Time) *SubmissionService {
	s := NewSubmissionService(st, randomizer, hub)
	s.now = now
	return s
}

type SubmitAnswerRequest struct {
	TeamID        uint `json:"team_id" binding:"required"`
	RoundNumber   int  `json:"round_number" binding:"required,min=1"`
	QuestionOrder int  `json:"question_order" binding:"required,min=1"`
	SelectedSlot  *int `json:"selected_position" binding:"required"`
	SubmittedBy   uint `json:"submitted_by" binding:"required"`
}

// Submit records a team's answer to the question at (match, round,
// order), scores it, and applies the score delta to the team.
//
// A failed score update after a successful insert is logged and does
// not undo the submission: gameplay history is never un-recorded over a
// scoring-side failure.
func (s *SubmissionService) Submit(ctx context.Context, matchID uint, req *SubmitAnswerRequest) (*models.Submission, error) {
	if req.SelectedSlot == nil {
		return nil, models.Validation("Selected position is required")
	}
	slot := *req.SelectedSlot
	if slot < 0 || slot >= models.AnswerSlots {
		return nil, models.Validation("Selected position must be between 0 and 3")
	}

	match, err := s.store.Matches().ByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	team, err := s.store.Teams().ByID(ctx, req.TeamID)
	if err != nil {
		return nil, err
	}
	if team.MatchID != match.ID {
		return nil, models.NotFound("Team not found")
	}

	question, err := s.store.MatchQuestions().ByCursor(ctx, match.ID, req.RoundNumber, req.QuestionOrder)
	if err != nil {
		return nil, err
	}
	if question.DisplayedAt == nil {
		return nil, models.TimingViolation("Question not yet displayed")
	}

	now := s.now()
	elapsed := now.Sub(*question.DisplayedAt)
	limit := match.TimeLimit()
	if limit > 0 && elapsed > limit {
		return nil, models.TimingViolation("Time limit exceeded")
	}

	if _, err := s.store.Submissions().ByTeamAndQuestion(ctx, team.ID, question.ID); err == nil {
		return nil, models.DuplicateSubmission("Already answered")
	} else if !models.IsCode(err, models.ErrNotFound) {
		return nil, err
	}

	correct := s.randomizer.VerifySlot(question, slot)
	points := scorePoints(match.BasePoints, correct, elapsed, limit)

	sub := &models.Submission{
		TeamID:          team.ID,
		MatchQuestionID: question.ID,
		SelectedSlot:    slot,
		IsCorrect:       correct,
		Points:          points,
		ResponseTimeMs:  elapsed.Milliseconds(),
		SubmittedBy:     req.SubmittedBy,
		SubmittedAt:     now,
	}
	if err := s.store.Submissions().Insert(ctx, sub); err != nil {
		// A race-losing insert comes back as the same duplicate
		// rejection the pre-check produces.
		return nil, err
	}

	if points != 0 {
		if err := s.store.Teams().AddScore(ctx, team.ID, points); err != nil {
			log.Printf("score update failed for team %d after submission %d: %v", team.ID, sub.ID, err)
		}
	}

	if s.hub != nil {
		s.hub.ToMatch(match.ID, models.EventTeamAnswered, models.TeamAnsweredEvent{
			GameID:         match.ID,
			TeamID:         team.ID,
			TeamName:       team.Name,
			GameQuestionID: question.ID,
			SubmittedBy:    req.SubmittedBy,
			Timestamp:      now,
		})
		s.hub.ToTeam(team.ID, models.EventAnswerLocked, models.AnswerLockedEvent{
			TeamID:           team.ID,
			GameQuestionID:   question.ID,
			SelectedPosition: slot,
			SubmittedBy:      req.SubmittedBy,
			Timestamp:        now,
		})
	}

	return sub, nil
}

// CanSubmitResult mirrors Submit's precondition checks without
// attempting a write.
type CanSubmitResult struct {
	CanSubmit     bool     `json:"can_submit"`
	Reason        string   `json:"reason,omitempty"`
	TimeRemaining *float64 `json:"time_remaining,omitempty"`
}

// CanSubmit reports whether the team could currently answer the
// question at (round, order) in its match, and how much time remains.
func (s *SubmissionService) CanSubmit(ctx context.Context, teamID uint, round, order int) (CanSubmitResult, error) {
	team, err := s.store.Teams().ByID(ctx, teamID)
	if err != nil {
		return CanSubmitResult{}, err
	}
	match, err := s.store.Matches().ByID(ctx, team.MatchID)
	if err != nil {
		return CanSubmitResult{}, err
	}

	question, err := s.store.MatchQuestions().ByCursor(ctx, match.ID, round, order)
	if err != nil {
		if models.IsCode(err, models.ErrNotFound) {
			return CanSubmitResult{Reason: "Question not found"}, nil
		}
		return CanSubmitResult{}, err
	}
	if question.DisplayedAt == nil {
		return CanSubmitResult{Reason: "Question not yet displayed"}, nil
	}

	var remaining *float64
	elapsed := s.now().Sub(*question.DisplayedAt)
	if limit := match.TimeLimit(); limit > 0 {
		if elapsed > limit {
			return CanSubmitResult{Reason: "Time limit exceeded"}, nil
		}
		secs := (limit - elapsed).Seconds()
		remaining = &secs
	}

	if _, err := s.store.Submissions().ByTeamAndQuestion(ctx, team.ID, question.ID); err == nil {
		return CanSubmitResult{Reason: "Already answered"}, nil
	} else if !models.IsCode(err, models.ErrNotFound) {
		return CanSubmitResult{}, err
	}

	return CanSubmitResult{CanSubmit: true, TimeRemaining: remaining}, nil
}

// Unsubmit administratively deletes a submission and reverses its score
// delta on the owning team as one atomic adjustment. Host only.
func (s *SubmissionService) Unsubmit(ctx context.Context, matchID, submissionID, callerID uint) error {
	match, err := s.store.Matches().ByID(ctx, matchID)
	if err != nil {
		return err
	}
	if match.HostID != callerID {
		return models.Unauthorized("Only the host may remove submissions")
	}

	sub, err := s.store.Submissions().ByID(ctx, submissionID)
	if err != nil {
		return err
	}
	question, err := s.store.MatchQuestions().ByID(ctx, sub.MatchQuestionID)
	if err != nil {
		return err
	}
	if question.MatchID != match.ID {
		return models.NotFound("Submission not found")
	}

	_, err = s.store.Submissions().DeleteAndReverse(ctx, submissionID)
	if err != nil && models.IsCode(err, models.ErrNotFound) {
		// Deleted concurrently; the score delta went with it.
		return nil
	}
	return err
}

// scorePoints implements the time-pressure scoring curve: a correct
// answer earns the full base instantly, decaying linearly to half the
// base at the time limit, never below half. Incorrect answers earn
// nothing.
func scorePoints(base int, correct bool, elapsed, limit time.Duration) int {
	if !correct {
		return 0
	}
	if base <= 0 {
		base = DefaultBasePoints
	}
	if limit <= 0 {
		return base
	}
	fraction := elapsed.Seconds() / limit.Seconds()
	multiplier := 1 - fraction*0.5
	if multiplier < 0.5 {
		multiplier = 0.5
	}
	return int(math.Round(float64(base) * multiplier))
}
