// Package memory is a mutex-guarded in-memory implementation of the
// store contracts. It enforces the same uniqueness constraints and
// atomic score deltas as the postgres store, which makes it a faithful
// substitute in tests, including the submission race tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quizmatch/models"
	"quizmatch/store"
)

type Store struct {
	mu sync.Mutex

	nextID uint

	matches        map[uint]*models.Match
	matchQuestions map[uint]*models.MatchQuestion
	teams          map[uint]*models.Team
	members        map[uint]*models.TeamMember
	submissions    map[uint]*models.Submission
	users          map[uint]*models.User
	quizzes        map[uint]*models.Quiz
}

func New() *Store {
	return &Store{
		matches:        make(map[uint]*models.Match),
		matchQuestions: make(map[uint]*models.MatchQuestion),
		teams:          make(map[uint]*models.Team),
		members:        make(map[uint]*models.TeamMember),
		submissions:    make(map[uint]*models.Submission),
		users:          make(map[uint]*models.User),
		quizzes:        make(map[uint]*models.Quiz),
	}
}

func (s *Store) Matches() store.MatchStore                { return &matchStore{s} }
func (s *Store) MatchQuestions() store.MatchQuestionStore { return &matchQuestionStore{s} }
func (s *Store) Teams() store.TeamStore                   { return &teamStore{s} }
func (s *Store) Submissions() store.SubmissionStore       { return &submissionStore{s} }
func (s *Store) Users() store.UserStore                   { return &userStore{s} }
func (s *Store) Quizzes() store.QuizStore                 { return &quizStore{s} }

// allocID must be called with s.mu held.
func (s *Store) allocID() uint {
	s.nextID++
	return s.nextID
}

// questionContent must be called with s.mu held.
func (s *Store) questionContent(id uint) (models.Question, bool) {
	for _, quiz := range s.quizzes {
		for _, q := range quiz.Questions {
			if q.ID == id {
				return q, true
			}
		}
	}
	return models.Question{}, false
}

type matchStore struct {
	s *Store
}

func (m *matchStore) Create(_ context.Context, match *models.Match) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	match.ID = m.s.allocID()
	if match.Status == "" {
		match.Status = models.MatchSetup
	}
	if match.CurrentRound == 0 {
		match.CurrentRound = 1
	}
	if match.CurrentQuestion == 0 {
		match.CurrentQuestion = 1
	}
	if match.CreatedAt.IsZero() {
		match.CreatedAt = time.Now()
	}
	clone := *match
	m.s.matches[match.ID] = &clone
	return nil
}

func (m *matchStore) ByID(_ context.Context, id uint) (*models.Match, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	match, ok := m.s.matches[id]
	if !ok {
		return nil, models.NotFound("Match not found")
	}
	clone := *match
	return &clone, nil
}

func (m *matchStore) TransitionStatus(_ context.Context, id uint, from []models.MatchStatus, to models.MatchStatus, startedAt, endedAt *time.Time) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	match, ok := m.s.matches[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, status := range from {
		if match.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	match.Status = to
	if startedAt != nil {
		at := *startedAt
		match.StartedAt = &at
	}
	if endedAt != nil {
		at := *endedAt
		match.EndedAt = &at
	}
	return true, nil
}

func (m *matchStore) AdvanceCursor(_ context.Context, id uint, fromRound, fromQuestion, toRound, toQuestion int) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	match, ok := m.s.matches[id]
	if !ok {
		return false, nil
	}
	if match.CurrentRound != fromRound || match.CurrentQuestion != fromQuestion {
		return false, nil
	}
	match.CurrentRound = toRound
	match.CurrentQuestion = toQuestion
	return true, nil
}

type matchQuestionStore struct {
	s *Store
}

func (m *matchQuestionStore) CreateBatch(_ context.Context, questions []models.MatchQuestion) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for i := range questions {
		questions[i].ID = m.s.allocID()
		clone := questions[i]
		m.s.matchQuestions[clone.ID] = &clone
	}
	return nil
}

func (m *matchQuestionStore) ByID(_ context.Context, id uint) (*models.MatchQuestion, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	q, ok := m.s.matchQuestions[id]
	if !ok {
		return nil, models.NotFound("Question not found")
	}
	clone := *q
	if content, ok := m.s.questionContent(q.QuestionID); ok {
		clone.Question = content
	}
	return &clone, nil
}

func (m *matchQuestionStore) ByCursor(_ context.Context, matchID uint, round, order int) (*models.MatchQuestion, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for _, q := range m.s.matchQuestions {
		if q.MatchID == matchID && q.RoundNumber == round && q.QuestionOrder == order {
			clone := *q
			if content, ok := m.s.questionContent(q.QuestionID); ok {
				clone.Question = content
			}
			return &clone, nil
		}
	}
	return nil, models.NotFound("Question not found")
}

func (m *matchQuestionStore) CountForMatch(_ context.Context, matchID uint) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var count int64
	for _, q := range m.s.matchQuestions {
		if q.MatchID == matchID {
			count++
		}
	}
	return count, nil
}

func (m *matchQuestionStore) MarkDisplayed(_ context.Context, id uint, at time.Time) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	q, ok := m.s.matchQuestions[id]
	if !ok || q.DisplayedAt != nil {
		return false, nil
	}
	stamp := at
	q.DisplayedAt = &stamp
	return true, nil
}

func (m *matchQuestionStore) MarkCompleted(_ context.Context, id uint, at time.Time) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	q, ok := m.s.matchQuestions[id]
	if !ok || q.CompletedAt != nil {
		return false, nil
	}
	stamp := at
	q.CompletedAt = &stamp
	return true, nil
}

type teamStore struct {
	s *Store
}

func (t *teamStore) Create(_ context.Context, team *models.Team) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for _, existing := range t.s.teams {
		if existing.MatchID == team.MatchID && existing.JoinCode == team.JoinCode {
			return store.ErrDuplicateJoinCode
		}
	}
	team.ID = t.s.allocID()
	if team.CreatedAt.IsZero() {
		team.CreatedAt = time.Now()
	}
	clone := *team
	t.s.teams[team.ID] = &clone
	return nil
}

func (t *teamStore) ByID(_ context.Context, id uint) (*models.Team, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	team, ok := t.s.teams[id]
	if !ok {
		return nil, models.NotFound("Team not found")
	}
	clone := *team
	return &clone, nil
}

func (t *teamStore) ByJoinCode(_ context.Context, matchID uint, joinCode string) (*models.Team, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for _, team := range t.s.teams {
		if team.MatchID == matchID && team.JoinCode == joinCode {
			clone := *team
			return &clone, nil
		}
	}
	return nil, models.NotFound("Team not found")
}

func (t *teamStore) ForMatch(_ context.Context, matchID uint) ([]models.Team, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	var teams []models.Team
	for _, team := range t.s.teams {
		if team.MatchID == matchID {
			teams = append(teams, *team)
		}
	}
	sort.Slice(teams, func(i, j int) bool {
		if !teams[i].CreatedAt.Equal(teams[j].CreatedAt) {
			return teams[i].CreatedAt.Before(teams[j].CreatedAt)
		}
		return teams[i].ID < teams[j].ID
	})
	return teams, nil
}

func (t *teamStore) CountForMatch(_ context.Context, matchID uint) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	var count int64
	for _, team := range t.s.teams {
		if team.MatchID == matchID {
			count++
		}
	}
	return count, nil
}

func (t *teamStore) AddScore(_ context.Context, teamID uint, delta int) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	team, ok := t.s.teams[teamID]
	if !ok {
		return models.NotFound("Team not found")
	}
	team.Score += delta
	return nil
}

func (t *teamStore) AddMember(_ context.Context, member *models.TeamMember) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if _, ok := t.s.teams[member.TeamID]; !ok {
		return models.NotFound("Team not found")
	}
	member.ID = t.s.allocID()
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}
	clone := *member
	t.s.members[member.ID] = &clone
	return nil
}

func (t *teamStore) MembersForTeam(_ context.Context, teamID uint) ([]models.TeamMember, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	var members []models.TeamMember
	for _, member := range t.s.members {
		if member.TeamID == teamID {
			members = append(members, *member)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

func (t *teamStore) Delete(_ context.Context, teamID uint) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if _, ok := t.s.teams[teamID]; !ok {
		return false, nil
	}
	for _, member := range t.s.members {
		if member.TeamID == teamID {
			return false, nil
		}
	}
	delete(t.s.teams, teamID)
	return true, nil
}

type submissionStore struct {
	s *Store
}

func (st *submissionStore) Insert(_ context.Context, sub *models.Submission) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	for _, existing := range st.s.submissions {
		if existing.TeamID == sub.TeamID && existing.MatchQuestionID == sub.MatchQuestionID {
			return models.DuplicateSubmission("Already answered")
		}
	}
	sub.ID = st.s.allocID()
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now()
	}
	clone := *sub
	st.s.submissions[sub.ID] = &clone
	return nil
}

func (st *submissionStore) ByID(_ context.Context, id uint) (*models.Submission, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	sub, ok := st.s.submissions[id]
	if !ok {
		return nil, models.NotFound("Submission not found")
	}
	clone := *sub
	return &clone, nil
}

func (st *submissionStore) ByTeamAndQuestion(_ context.Context, teamID, matchQuestionID uint) (*models.Submission, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	for _, sub := range st.s.submissions {
		if sub.TeamID == teamID && sub.MatchQuestionID == matchQuestionID {
			clone := *sub
			return &clone, nil
		}
	}
	return nil, models.NotFound("Submission not found")
}

func (st *submissionStore) ForQuestion(_ context.Context, matchQuestionID uint) ([]models.Submission, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	var subs []models.Submission
	for _, sub := range st.s.submissions {
		if sub.MatchQuestionID == matchQuestionID {
			clone := *sub
			if team, ok := st.s.teams[sub.TeamID]; ok {
				clone.Team = *team
			}
			subs = append(subs, clone)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].SubmittedAt.Equal(subs[j].SubmittedAt) {
			return subs[i].SubmittedAt.Before(subs[j].SubmittedAt)
		}
		return subs[i].ID < subs[j].ID
	})
	return subs, nil
}

func (st *submissionStore) ForMatch(_ context.Context, matchID uint) ([]models.Submission, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	var subs []models.Submission
	for _, sub := range st.s.submissions {
		q, ok := st.s.matchQuestions[sub.MatchQuestionID]
		if ok && q.MatchID == matchID {
			subs = append(subs, *sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs, nil
}

func (st *submissionStore) DeleteAndReverse(_ context.Context, submissionID uint) (*models.Submission, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	sub, ok := st.s.submissions[submissionID]
	if !ok {
		return nil, models.NotFound("Submission not found")
	}
	delete(st.s.submissions, submissionID)
	if team, ok := st.s.teams[sub.TeamID]; ok && sub.Points != 0 {
		team.Score -= sub.Points
	}
	clone := *sub
	return &clone, nil
}

type userStore struct {
	s *Store
}

func (u *userStore) Create(_ context.Context, user *models.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	for _, existing := range u.s.users {
		if existing.Email == user.Email {
			return models.Validation("Email already registered")
		}
	}
	user.ID = u.s.allocID()
	clone := *user
	u.s.users[user.ID] = &clone
	return nil
}

func (u *userStore) ByID(_ context.Context, id uint) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.users[id]
	if !ok {
		return nil, models.NotFound("User not found")
	}
	clone := *user
	return &clone, nil
}

func (u *userStore) ByEmail(_ context.Context, email string) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	for _, user := range u.s.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, models.NotFound("User not found")
}

type quizStore struct {
	s *Store
}

func (q *quizStore) Create(_ context.Context, quiz *models.Quiz) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()

	quiz.ID = q.s.allocID()
	for i := range quiz.Questions {
		quiz.Questions[i].ID = q.s.allocID()
		quiz.Questions[i].QuizID = quiz.ID
		for j := range quiz.Questions[i].Options {
			quiz.Questions[i].Options[j].ID = q.s.allocID()
			quiz.Questions[i].Options[j].QuestionID = quiz.Questions[i].ID
		}
	}
	clone := *quiz
	q.s.quizzes[quiz.ID] = &clone
	return nil
}

func (q *quizStore) ByID(_ context.Context, id uint) (*models.Quiz, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()

	quiz, ok := q.s.quizzes[id]
	if !ok {
		return nil, models.NotFound("Quiz not found")
	}
	clone := *quiz
	return &clone, nil
}

func (q *quizStore) ForUser(_ context.Context, userID uint) ([]models.Quiz, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()

	var quizzes []models.Quiz
	for _, quiz := range q.s.quizzes {
		if quiz.UserID == userID {
			quizzes = append(quizzes, *quiz)
		}
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].ID > quizzes[j].ID })
	return quizzes, nil
}
