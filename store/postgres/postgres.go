// Package postgres implements the store contracts on gorm. The
// database schema is the single source of truth for the engine's race
// rules: unique indexes break submission and join-code races,
// conditional updates guard lifecycle transitions, and score deltas
// are evaluated inside the database.
package postgres

import (
	"context"
	"errors"
	"time"

	"quizmatch/models"
	"quizmatch/store"

	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

// New wraps a gorm handle opened with TranslateError so unique
// violations surface as gorm.ErrDuplicatedKey.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Matches() store.MatchStore                { return &matchStore{db: s.db} }
func (s *Store) MatchQuestions() store.MatchQuestionStore { return &matchQuestionStore{db: s.db} }
func (s *Store) Teams() store.TeamStore                   { return &teamStore{db: s.db} }
func (s *Store) Submissions() store.SubmissionStore       { return &submissionStore{db: s.db} }
func (s *Store) Users() store.UserStore                   { return &userStore{db: s.db} }
func (s *Store) Quizzes() store.QuizStore                 { return &quizStore{db: s.db} }

// AutoMigrate creates the engine schema, including the unique indexes
// the concurrency model depends on.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Quiz{},
		&models.Question{},
		&models.Option{},
		&models.Match{},
		&models.MatchQuestion{},
		&models.Team{},
		&models.TeamMember{},
		&models.Submission{},
	)
}

type matchStore struct {
	db *gorm.DB
}

func (s *matchStore) Create(ctx context.Context, match *models.Match) error {
	if err := s.db.WithContext(ctx).Create(match).Error; err != nil {
		return models.StoreFailure("failed to create match", err)
	}
	return nil
}

func (s *matchStore) ByID(ctx context.Context, id uint) (*models.Match, error) {
	var match models.Match
	err := s.db.WithContext(ctx).First(&match, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NotFound("Match not found")
	}
	if err != nil {
		return nil, models.StoreFailure("failed to load match", err)
	}
	return &match, nil
}

func (s *matchStore) TransitionStatus(ctx context.Context, id uint, from []models.MatchStatus, to models.MatchStatus, startedAt, endedAt *time.Time) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if startedAt != nil {
		updates["started_at"] = *startedAt
	}
	if endedAt != nil {
		updates["ended_at"] = *endedAt
	}

	res := s.db.WithContext(ctx).Model(&models.Match{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, models.StoreFailure("failed to update match status", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *matchStore) AdvanceCursor(ctx context.Context, id uint, fromRound, fromQuestion, toRound, toQuestion int) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Match{}).
		Where("id = ? AND current_round = ? AND current_question = ?", id, fromRound, fromQuestion).
		Updates(map[string]interface{}{
			"current_round":    toRound,
			"current_question": toQuestion,
		})
	if res.Error != nil {
		return false, models.StoreFailure("failed to advance match cursor", res.Error)
	}
	return res.RowsAffected > 0, nil
}

type matchQuestionStore struct {
	db *gorm.DB
}

func (s *matchQuestionStore) CreateBatch(ctx context.Context, questions []models.MatchQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&questions).Error; err != nil {
		return models.StoreFailure("failed to create match questions", err)
	}
	return nil
}

func (s *matchQuestionStore) ByID(ctx context.Context, id uint) (*models.MatchQuestion, error) {
	var question models.MatchQuestion
	err := s.db.WithContext(ctx).Preload("Question").First(&question, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NotFound("Question not found")
	}
	if err != nil {
		return nil, models.StoreFailure("failed to load match question", err)
	}
	return &question, nil
}

func (s *matchQuestionStore) ByCursor(ctx context.Context, matchID uint, round, order int) (*models.MatchQuestion, error) {
	var question models.MatchQuestion
	err := s.db.WithContext(ctx).
		Preload("Question").
		Where("match_id = ? AND round_number = ? AND question_order = ?", matchID, round, order).
		First(&question).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NotFound("Question not found")
	}
	if err != nil {
		return nil, models.StoreFailure("failed to load match question", err)
	}
	return &question, nil
}

func (s *matchQuestionStore) CountForMatch(ctx context.Context, matchID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.MatchQuestion{}).
		Where("match_id = ?", matchID).
		Count(&count).Error
	if err != nil {
		return 0, models.StoreFailure("failed to count match questions", err)
	}
	return count, nil
}

func (s *matchQuestionStore) MarkDisplayed(ctx context.Context, id uint, at time.Time) (bool, error) {
	// Set-if-null so a concurrent display attempt cannot move an
	// already-set timestamp.
	res := s.db.WithContext(ctx).Model(&models.MatchQuestion{}).
		Where("id = ? AND displayed_at IS NULL", id).
		Update("displayed_at", at)
	if res.Error != nil {
		return false, models.StoreFailure("failed to mark question displayed", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *matchQuestionStore) MarkCompleted(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.MatchQuestion{}).
		Where("id = ? AND completed_at IS NULL", id).
		Update("completed_at", at)
	if res.Error != nil {
		return false, models.StoreFailure("failed to mark question completed", res.Error)
	}
	return res.RowsAffected > 0, nil
}

type teamStore struct {
	db *gorm.DB
}

func (s *teamStore) Create(ctx context.Context, team *models.Team) error {
	err := s.db.WithContext(ctx).Create(team).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return store.ErrDuplicateJoinCode
	}
	if err != nil {
		return models.StoreFailure("failed to create team", err)
	}
	return nil
}

func (s *teamStore) ByID(ctx context.Context, id uint) (*models.Team, error) {
	var team models.Team
	err := s.db.WithContext(ctx).First(&team, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NotFound("Team not found")
	}
	if err != nil {
		return nil, models.StoreFailure("failed to load team", err)
	}
	return &team, nil
}

func (s *teamStore) ByJoinCode(ctx context.Context, matchID uint, joinCode string) (*models.Team, error) {
	var team models.Team
	err := s.db.WithContext(ctx).
		Where("match_id = ? AND join_code = ?", matchID, joinCode).
		First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NotFound("Team not found")
	}
	if err != nil {
		return nil, models.StoreFailure("failed to load team", err)
	}
	return &team, nil
}

func (s *teamStore) ForMatch(ctx context.Context, matchID uint) ([]models.Team, error) {
	var teams []models.Team
	err := s.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at ASC, id ASC").
		Find(&teams).Error
	if err != nil {
		return nil, models.StoreFailure("failed to list teams", err)
	}
	return teams, nil
}

func (s *teamStore) CountForMatch(ctx context.Context, matchID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Team{}).
		Where("match_id = ?", matchID).
		Count(&count).Error
	if err != nil {
		return 0, models.StoreFailure("failed to count teams", err)
	}
	return count, nil
}

func (s *teamStore) AddScore(ctx context.Context, teamID uint, delta int) error {
	res := s.db.WithContext(ctx).Model(&models.Team{}).
		Where("id = ?", teamID).
		Update("score", gorm.Expr("score + ?", delta))
	if res.Error != nil {
		return models.StoreFailure("failed to update team score", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NotFound("Team not found")
	}
	return nil
}

func (s *teamStore) AddMember(ctx context.Context, member *models.TeamMember) error {
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		return models.StoreFailure("failed to add team member", err)
	}
	return nil
}

func (s *teamStore) MembersForTeam(ctx context.Context, teamID uint) ([]models.TeamMember, error) {
	var members []models.TeamMember
	err := s.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("joined_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, models.StoreFailure("failed to list team members", err)
	}
	return members, nil
}

func (s *teamStore) Delete(ctx context.Context, teamID uint) (bool, error) {
	// Conditional delete keeps "only memberless teams go away" honest
	// under a concurrent join.
	res := s.db.WithContext(ctx).
		Where("id = ? AND NOT EXISTS (SELECT 1 FROM team_members WHERE team_members.team_id = teams.id)", teamID).
		Delete(&models.Team{})
	if res.Error != nil {
		return false, models.StoreFailure("failed to delete team", res.Error)
	}
	return res.RowsAffected > 0, nil
}

type submissionStore struct {
	db *gorm.DB
}

func (s *submissionStore) Insert(ctx context.Context, sub *models.Submission) error {
	err := s.db.WithContext(ctx).Create(sub).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// The losing side of the insert race gets the same rejection a
		// pre-checked duplicate would.
		return models.DuplicateSubmission("Already answered")
	}
	if err != nil {
		return models.StoreFailure("failed to record submission", err)
	}
	return nil
}

func (s *submissionStore) ByID(ctx context.Context, id uint) (*models.Submission, error) {
	var sub models.Submission
	err := s.db.WithContext(ctx).First(&sub, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NotFound("Submission not found")
	}
	if err != nil {
		return nil, models.StoreFailure("failed to load submission", err)
	}
	return &sub, nil
}

func (s *submissionStore) ByTeamAndQuestion(ctx context.Context, teamID, matchQuestionID uint) (*models.Submission, error) {
	var sub models.Submission
	err := s.db.WithContext(ctx).
		Where("team_id = ? AND game_question_id = ?", teamID, matchQuestionID).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NotFound("Submission not found")
	}
	if err != nil {
		return nil, models.StoreFailure("failed to load submission", err)
	}
	return &sub, nil
}

func (s *submissionStore) ForQuestion(ctx context.Context, matchQuestionID uint) ([]models.Submission, error) {
	var subs []models.Submission
	err := s.db.WithContext(ctx).
		Preload("Team").
		Where("game_question_id = ?", matchQuestionID).
		Order("submitted_at ASC").
		Find(&subs).Error
	if err != nil {
		return nil, models.StoreFailure("failed to list submissions", err)
	}
	return subs, nil
}

func (s *submissionStore) ForMatch(ctx context.Context, matchID uint) ([]models.Submission, error) {
	var subs []models.Submission
	err := s.db.WithContext(ctx).
		Joins("JOIN match_questions ON match_questions.id = submissions.game_question_id").
		Where("match_questions.match_id = ?", matchID).
		Find(&subs).Error
	if err != nil {
		return nil, models.StoreFailure("failed to list match submissions", err)
	}
	return subs, nil
}

func (s *submissionStore) DeleteAndReverse(ctx context.Context, submissionID uint) (*models.Submission, error) {
	var sub models.Submission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sub, submissionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NotFound("Submission not found")
			}
			return models.StoreFailure("failed to load submission", err)
		}
		if err := tx.Delete(&models.Submission{}, submissionID).Error; err != nil {
			return models.StoreFailure("failed to delete submission", err)
		}
		if sub.Points != 0 {
			res := tx.Model(&models.Team{}).
				Where("id = ?", sub.TeamID).
				Update("score", gorm.Expr("score - ?", sub.Points))
			if res.Error != nil {
				return models.StoreFailure("failed to reverse team score", res.Error)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

type userStore struct {
	db *gorm.DB
}

func (s *userStore) Create(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.Validation("Email already registered")
	}
	if err != nil {
		return models.StoreFailure("failed to create user", err)
	}
	return nil
}

func (s *userStore) ByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NotFound("User not found")
	}
	if err != nil {
		return nil, models.StoreFailure("failed to load user", err)
	}
	return &user, nil
}

func (s *userStore) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NotFound("User not found")
	}
	if err != nil {
		return nil, models.StoreFailure("failed to load user", err)
	}
	return &user, nil
}

type quizStore struct {
	db *gorm.DB
}

func (s *quizStore) Create(ctx context.Context, quiz *models.Quiz) error {
	if err := s.db.WithContext(ctx).Create(quiz).Error; err != nil {
		return models.StoreFailure("failed to create quiz", err)
	}
	return nil
}

func (s *quizStore) ByID(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.order")
		}).
		First(&quiz, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NotFound("Quiz not found")
	}
	if err != nil {
		return nil, models.StoreFailure("failed to load quiz", err)
	}
	return &quiz, nil
}

func (s *quizStore) ForUser(ctx context.Context, userID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order")
		}).
		Order("created_at DESC").
		Find(&quizzes).Error
	if err != nil {
		return nil, models.StoreFailure("failed to list quizzes", err)
	}
	return quizzes, nil
}
