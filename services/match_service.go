package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"quizmatch/models"
	"quizmatch/store"
)

// MatchService owns the match lifecycle state machine and the
// round/question cursor. All mutations are host-authorized; any other
// caller gets an authorization error, not a state error. Progression is
// guarded by conditional store updates so concurrent host calls cannot
// double-advance or replay a transition.
type MatchService struct {
	store       store.Store
	randomizer  *RandomizerService
	leaderboard *LeaderboardService
	hub         Broadcaster
	cache       *MatchStateCache
	now         func() time.Time
}

func NewMatchService(st store.Store, randomizer *RandomizerService, leaderboard *LeaderboardService, hub Broadcaster, cache *MatchStateCache) *MatchService {
	return &MatchService{
		store:       st,
		randomizer:  randomizer,
		leaderboard: leaderboard,
		hub:         hub,
		cache:       cache,
		now:         time.Now,
	}
}

// NewMatchServiceWithClock is test-only for deterministic timestamps.
func NewMatchServiceWithClock(st store.Store, randomizer *RandomizerService, leaderboard *LeaderboardService, hub Broadcaster, cache *MatchStateCache, now func() time.Time) *MatchService {
	s := NewMatchService(st, randomizer, leaderboard, hub, cache)
	s.now = now
	return s
}

type CreateMatchRequest struct {
	QuizID            uint   `json:"quiz_id" binding:"required"`
	Title             string `json:"title" binding:"required,max=100"`
	MaxRounds         int    `json:"max_rounds" binding:"required,min=1"`
	QuestionsPerRound int    `json:"questions_per_round" binding:"required,min=1"`
	TimeLimitSeconds  int    `json:"time_limit_seconds"`
	AllowLateJoin     *bool  `json:"allow_late_join"`
	BasePoints        int    `json:"base_points"`
}

// CreateMatch creates a match in setup and populates every
// MatchQuestion for it up front, shuffling each question's answers
// deterministically. Incomplete quiz content is padded with
// placeholders rather than blocking creation.
func (s *MatchService) CreateMatch(ctx context.Context, hostID uint, req *CreateMatchRequest) (*models.Match, error) {
	if req.TimeLimitSeconds < 0 {
		return nil, models.Validation("Time limit cannot be negative")
	}
	if req.BasePoints < 0 {
		return nil, models.Validation("Base points cannot be negative")
	}

	quiz, err := s.store.Quizzes().ByID(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}
	if quiz.UserID != hostID {
		return nil, models.NotFound("Quiz not found")
	}

	allowLateJoin := true
	if req.AllowLateJoin != nil {
		allowLateJoin = *req.AllowLateJoin
	}
	basePoints := req.BasePoints
	if basePoints == 0 {
		basePoints = DefaultBasePoints
	}

	match := &models.Match{
		HostID:            hostID,
		QuizID:            quiz.ID,
		Title:             req.Title,
		Status:            models.MatchSetup,
		CurrentRound:      1,
		CurrentQuestion:   1,
		MaxRounds:         req.MaxRounds,
		QuestionsPerRound: req.QuestionsPerRound,
		TimeLimitSeconds:  req.TimeLimitSeconds,
		AllowLateJoin:     allowLateJoin,
		BasePoints:        basePoints,
	}
	if err := s.store.Matches().Create(ctx, match); err != nil {
		return nil, err
	}

	questions := s.prepareQuestions(match, quiz)
	if err := s.store.MatchQuestions().CreateBatch(ctx, questions); err != nil {
		return nil, err
	}

	s.cacheState(ctx, match)
	return match, nil
}

// prepareQuestions lays the quiz content out over the round/question
// grid. With fewer source questions than slots, content repeats; with
// none, placeholder questions fill the grid.
func (s *MatchService) prepareQuestions(match *models.Match, quiz *models.Quiz) []models.MatchQuestion {
	total := match.MaxRounds * match.QuestionsPerRound
	questions := make([]models.MatchQuestion, 0, total)

	for idx := 0; idx < total; idx++ {
		round := idx/match.QuestionsPerRound + 1
		order := idx%match.QuestionsPerRound + 1

		var contentID uint
		var raw []string
		correctIndex := 0
		if len(quiz.Questions) > 0 {
			content := quiz.Questions[idx%len(quiz.Questions)]
			contentID = content.ID
			for i, opt := range content.Options {
				if i == models.AnswerSlots {
					break
				}
				raw = append(raw, opt.Text)
				if opt.IsCorrect {
					correctIndex = i
				}
			}
		}

		answers, correctSlot := s.randomizer.Prepare(match.ID, contentID, round, order, raw, correctIndex)
		question := models.MatchQuestion{
			MatchID:       match.ID,
			QuestionID:    contentID,
			RoundNumber:   round,
			QuestionOrder: order,
			CorrectSlot:   correctSlot,
		}
		question.SetAnswers(answers)
		questions = append(questions, question)
	}
	return questions
}

type CreateTeamRequest struct {
	Name      string `json:"name" binding:"required,max=50"`
	CaptainID *uint  `json:"captain_id"`
}

// CreateTeam creates a team with a generated join code, retrying on
// collision a bounded number of times before falling back to a
// timestamp-suffixed code.
func (s *MatchService) CreateTeam(ctx context.Context, matchID uint, req *CreateTeamRequest) (*models.Team, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, models.Validation("Team name is required")
	}

	match, err := s.store.Matches().ByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if err := s.joinableState(match); err != nil {
		return nil, err
	}

	team := &models.Team{
		MatchID:   match.ID,
		Name:      strings.TrimSpace(req.Name),
		CaptainID: req.CaptainID,
	}
	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		team.JoinCode = generateJoinCode()
		err := s.store.Teams().Create(ctx, team)
		if errors.Is(err, store.ErrDuplicateJoinCode) {
			continue
		}
		return team, err
	}

	team.JoinCode = fallbackJoinCode()
	if err := s.store.Teams().Create(ctx, team); err != nil {
		if errors.Is(err, store.ErrDuplicateJoinCode) {
			return nil, models.StoreFailure("could not allocate a join code", err)
		}
		return nil, err
	}
	return team, nil
}

type JoinTeamRequest struct {
	JoinCode string `json:"join_code" binding:"required"`
	Name     string `json:"name" binding:"required,max=50"`
}

// JoinTeam adds a member to the team matching the join code.
func (s *MatchService) JoinTeam(ctx context.Context, matchID uint, req *JoinTeamRequest) (*models.TeamMember, *models.Team, error) {
	match, err := s.store.Matches().ByID(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.joinableState(match); err != nil {
		return nil, nil, err
	}

	team, err := s.store.Teams().ByJoinCode(ctx, match.ID, strings.ToUpper(strings.TrimSpace(req.JoinCode)))
	if err != nil {
		return nil, nil, err
	}

	member := &models.TeamMember{
		TeamID:   team.ID,
		Name:     strings.TrimSpace(req.Name),
		JoinedAt: s.now(),
	}
	if err := s.store.Teams().AddMember(ctx, member); err != nil {
		return nil, nil, err
	}
	return member, team, nil
}

// joinableState enforces the late-join policy.
func (s *MatchService) joinableState(match *models.Match) error {
	switch match.Status {
	case models.MatchSetup:
		return nil
	case models.MatchActive, models.MatchPaused:
		if !match.AllowLateJoin {
			return models.InvalidState("Match does not allow late joining")
		}
		return nil
	default:
		return models.InvalidState("Match has already completed")
	}
}

// DeleteTeam removes a team, host only, and only when it has no
// members.
func (s *MatchService) DeleteTeam(ctx context.Context, matchID, teamID, callerID uint) error {
	match, err := s.authorizedMatch(ctx, matchID, callerID)
	if err != nil {
		return err
	}
	team, err := s.store.Teams().ByID(ctx, teamID)
	if err != nil {
		return err
	}
	if team.MatchID != match.ID {
		return models.NotFound("Team not found")
	}

	deleted, err := s.store.Teams().Delete(ctx, teamID)
	if err != nil {
		return err
	}
	if !deleted {
		return models.InvalidState("Team still has members")
	}
	return nil
}

// Start transitions setup -> active. It requires at least one team and
// a fully populated question grid, and records started_at.
func (s *MatchService) Start(ctx context.Context, matchID, callerID uint) (*models.Match, error) {
	match, err := s.authorizedMatch(ctx, matchID, callerID)
	if err != nil {
		return nil, err
	}

	teamCount, err := s.store.Teams().CountForMatch(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	if teamCount == 0 {
		return nil, models.InvalidState("Cannot start a match with no teams")
	}

	questionCount, err := s.store.MatchQuestions().CountForMatch(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	if questionCount < int64(match.MaxRounds*match.QuestionsPerRound) {
		return nil, models.InvalidState("Match questions have not been prepared")
	}

	now := s.now()
	ok, err := s.store.Matches().TransitionStatus(ctx, match.ID, []models.MatchStatus{models.MatchSetup}, models.MatchActive, &now, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.InvalidState("Match has already started")
	}

	return s.afterTransition(ctx, match.ID)
}

// Pause transitions active -> paused without touching the cursor.
func (s *MatchService) Pause(ctx context.Context, matchID, callerID uint) (*models.Match, error) {
	return s.simpleTransition(ctx, matchID, callerID,
		[]models.MatchStatus{models.MatchActive}, models.MatchPaused, "Match is not active")
}

// Resume transitions paused -> active.
func (s *MatchService) Resume(ctx context.Context, matchID, callerID uint) (*models.Match, error) {
	return s.simpleTransition(ctx, matchID, callerID,
		[]models.MatchStatus{models.MatchPaused}, models.MatchActive, "Match is not paused")
}

// Complete forces the match to completed from active or paused, the
// host's abandon/end action.
func (s *MatchService) Complete(ctx context.Context, matchID, callerID uint) (*models.Match, error) {
	match, err := s.authorizedMatch(ctx, matchID, callerID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	ok, err := s.store.Matches().TransitionStatus(ctx, match.ID,
		[]models.MatchStatus{models.MatchActive, models.MatchPaused}, models.MatchCompleted, nil, &now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.InvalidState("Match is not active or paused")
	}
	return s.afterTransition(ctx, match.ID)
}

// DisplayQuestion reveals the question at the current cursor. The
// displayed_at stamp is set-if-null in the store, so a repeated reveal
// cannot restart the answer window.
func (s *MatchService) DisplayQuestion(ctx context.Context, matchID, callerID uint) (*models.MatchQuestion, error) {
	match, err := s.authorizedMatch(ctx, matchID, callerID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchActive {
		return nil, models.InvalidState("Match is not active")
	}

	question, err := s.store.MatchQuestions().ByCursor(ctx, match.ID, match.CurrentRound, match.CurrentQuestion)
	if err != nil {
		return nil, err
	}

	now := s.now()
	stamped, err := s.store.MatchQuestions().MarkDisplayed(ctx, question.ID, now)
	if err != nil {
		return nil, err
	}
	if !stamped {
		return nil, models.InvalidState("Question has already been displayed")
	}
	question.DisplayedAt = &now

	if s.hub != nil {
		s.hub.ToMatch(match.ID, models.EventQuestionDisplayed, models.QuestionDisplayedEvent{
			GameID:         match.ID,
			GameQuestionID: question.ID,
			RoundNumber:    question.RoundNumber,
			QuestionOrder:  question.QuestionOrder,
			Question: models.QuestionContent{
				Text:       question.Question.Text,
				Category:   question.Question.Category,
				Difficulty: question.Question.Difficulty,
				Answers:    question.Answers(),
			},
			TimeLimit: match.TimeLimitSeconds,
			Timestamp: now,
		})
	}
	return question, nil
}

// AdvanceQuestion is the sole place round/question progress or match
// completion happens. While active it completes the current question,
// reveals its results, then either moves to the next question, the next
// round, or finishes the match.
func (s *MatchService) AdvanceQuestion(ctx context.Context, matchID, callerID uint) (*models.Match, error) {
	match, err := s.authorizedMatch(ctx, matchID, callerID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchActive {
		return nil, models.InvalidState("Match is not active")
	}

	question, err := s.store.MatchQuestions().ByCursor(ctx, match.ID, match.CurrentRound, match.CurrentQuestion)
	if err != nil {
		return nil, err
	}

	now := s.now()
	completed, err := s.store.MatchQuestions().MarkCompleted(ctx, question.ID, now)
	if err != nil {
		return nil, err
	}

	switch {
	case match.CurrentQuestion < match.QuestionsPerRound:
		ok, err := s.store.Matches().AdvanceCursor(ctx, match.ID,
			match.CurrentRound, match.CurrentQuestion,
			match.CurrentRound, match.CurrentQuestion+1)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, models.InvalidState("Match has already advanced")
		}
	case match.CurrentRound < match.MaxRounds:
		ok, err := s.store.Matches().AdvanceCursor(ctx, match.ID,
			match.CurrentRound, match.CurrentQuestion,
			match.CurrentRound+1, 1)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, models.InvalidState("Match has already advanced")
		}
	default:
		ok, err := s.store.Matches().TransitionStatus(ctx, match.ID,
			[]models.MatchStatus{models.MatchActive}, models.MatchCompleted, nil, &now)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, models.InvalidState("Match has already advanced")
		}
	}

	// Results go out only once the advance has actually taken effect; a
	// race-losing call returns before reaching this point.
	if completed {
		s.broadcastQuestionCompleted(ctx, match, question, now)
	}

	return s.afterTransition(ctx, match.ID)
}

// ValidateClient checks that a WebSocket client may attach to a match:
// either the host (teamID 0) or a member of one of its teams. It
// returns the display name for the connection.
func (s *MatchService) ValidateClient(ctx context.Context, matchID, teamID, memberID uint) (string, error) {
	match, err := s.store.Matches().ByID(ctx, matchID)
	if err != nil {
		return "", err
	}

	if teamID == 0 {
		if match.HostID != memberID {
			return "", models.Unauthorized("Only the host may connect without a team")
		}
		return "host", nil
	}

	team, err := s.store.Teams().ByID(ctx, teamID)
	if err != nil {
		return "", err
	}
	if team.MatchID != match.ID {
		return "", models.NotFound("Team not found")
	}

	members, err := s.store.Teams().MembersForTeam(ctx, team.ID)
	if err != nil {
		return "", err
	}
	for _, member := range members {
		if member.ID == memberID {
			return member.Name, nil
		}
	}
	return "", models.NotFound("Member not found")
}

// GetMatch returns the match row.
func (s *MatchService) GetMatch(ctx context.Context, matchID uint) (*models.Match, error) {
	return s.store.Matches().ByID(ctx, matchID)
}

// State returns the live match snapshot, preferring the cache and
// rebuilding it from the store when missing.
func (s *MatchService) State(ctx context.Context, matchID uint) (*MatchState, error) {
	if s.cache != nil {
		if state := s.cache.Get(ctx, matchID); state != nil {
			return state, nil
		}
	}
	match, err := s.store.Matches().ByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return s.cacheState(ctx, match), nil
}

func (s *MatchService) authorizedMatch(ctx context.Context, matchID, callerID uint) (*models.Match, error) {
	match, err := s.store.Matches().ByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.HostID != callerID {
		return nil, models.Unauthorized("Only the host may control the match")
	}
	return match, nil
}

// simpleTransition handles pause/resume: authorize, CAS the status,
// broadcast.
func (s *MatchService) simpleTransition(ctx context.Context, matchID, callerID uint, from []models.MatchStatus, to models.MatchStatus, failReason string) (*models.Match, error) {
	match, err := s.authorizedMatch(ctx, matchID, callerID)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.Matches().TransitionStatus(ctx, match.ID, from, to, nil, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.InvalidState(failReason)
	}
	return s.afterTransition(ctx, match.ID)
}

// afterTransition reloads the match, refreshes the cache and emits
// game_state_changed.
func (s *MatchService) afterTransition(ctx context.Context, matchID uint) (*models.Match, error) {
	match, err := s.store.Matches().ByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	s.cacheState(ctx, match)
	if s.hub != nil {
		s.hub.ToMatch(match.ID, models.EventGameStateChanged, models.GameStateChangedEvent{
			GameID:          match.ID,
			Status:          match.Status,
			CurrentRound:    match.CurrentRound,
			CurrentQuestion: match.CurrentQuestion,
			Timestamp:       s.now(),
			TriggeredBy:     "host",
		})
	}
	return match, nil
}

func (s *MatchService) broadcastQuestionCompleted(ctx context.Context, match *models.Match, question *models.MatchQuestion, at time.Time) {
	if s.hub == nil {
		return
	}
	subs, err := s.store.Submissions().ForQuestion(ctx, question.ID)
	if err != nil {
		log.Printf("failed to load submissions for question %d: %v", question.ID, err)
		subs = nil
	}
	results := make([]models.TeamResult, 0, len(subs))
	for _, sub := range subs {
		results = append(results, models.TeamResult{
			TeamID:           sub.TeamID,
			TeamName:         sub.Team.Name,
			SelectedPosition: sub.SelectedSlot,
			IsCorrect:        sub.IsCorrect,
			PointsEarned:     sub.Points,
			ResponseTime:     sub.ResponseTimeMs,
		})
	}
	s.hub.ToMatch(match.ID, models.EventQuestionCompleted, models.QuestionCompletedEvent{
		GameID:          match.ID,
		GameQuestionID:  question.ID,
		CorrectPosition: question.CorrectSlot,
		CorrectAnswer:   question.CorrectAnswer(),
		TeamResults:     results,
		Timestamp:       at,
	})
}

// cacheState rebuilds and stores the live snapshot, attaching the
// current standings so state sync can render a scoreboard without a
// second round trip.
func (s *MatchService) cacheState(ctx context.Context, match *models.Match) *MatchState {
	state := &MatchState{
		MatchID:           match.ID,
		Status:            match.Status,
		CurrentRound:      match.CurrentRound,
		CurrentQuestion:   match.CurrentQuestion,
		MaxRounds:         match.MaxRounds,
		QuestionsPerRound: match.QuestionsPerRound,
		TimeLimit:         match.TimeLimitSeconds,
		UpdatedAt:         s.now(),
	}
	if s.leaderboard != nil {
		entries, err := s.leaderboard.Rank(ctx, match.ID)
		if err != nil {
			log.Printf("failed to rank match %d for state cache: %v", match.ID, err)
		} else {
			state.Leaderboard = entries
		}
	}
	if s.cache != nil {
		if err := s.cache.Store(ctx, state); err != nil {
			log.Printf("failed to cache state for match %d: %v", match.ID, err)
		}
	}
	return state
}
