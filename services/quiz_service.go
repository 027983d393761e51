package services

import (
	"context"

	"quizmatch/models"
	"quizmatch/store"
)

// QuizService imports and reads quiz content. Content editing
// workflows are out of scope; matches only need a question bank to
// draw from.
type QuizService struct {
	quizzes store.QuizStore
}

func NewQuizService(quizzes store.QuizStore) *QuizService {
	return &QuizService{quizzes: quizzes}
}

type CreateQuizRequest struct {
	Title       string                  `json:"title" binding:"required"`
	Description string                  `json:"description"`
	Questions   []CreateQuestionRequest `json:"questions" binding:"required,min=1"`
}

type CreateQuestionRequest struct {
	Text       string                `json:"text" binding:"required"`
	Category   string                `json:"category"`
	Difficulty string                `json:"difficulty"`
	Order      int                   `json:"order" binding:"required"`
	Options    []CreateOptionRequest `json:"options" binding:"required,min=2,max=4"`
}

type CreateOptionRequest struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order" binding:"required"`
}

// CreateQuiz imports a question bank. Every question must have exactly
// one correct option.
func (s *QuizService) CreateQuiz(ctx context.Context, userID uint, req *CreateQuizRequest) (*models.Quiz, error) {
	quiz := &models.Quiz{
		Title:       req.Title,
		Description: req.Description,
		UserID:      userID,
	}

	for _, qReq := range req.Questions {
		correctCount := 0
		for _, optReq := range qReq.Options {
			if optReq.IsCorrect {
				correctCount++
			}
		}
		if correctCount != 1 {
			return nil, models.Validation("Each question must have exactly one correct answer")
		}

		question := models.Question{
			Text:       qReq.Text,
			Category:   qReq.Category,
			Difficulty: qReq.Difficulty,
			Order:      qReq.Order,
		}
		for _, optReq := range qReq.Options {
			question.Options = append(question.Options, models.Option{
				Text:      optReq.Text,
				IsCorrect: optReq.IsCorrect,
				Order:     optReq.Order,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, err
	}
	return s.quizzes.ByID(ctx, quiz.ID)
}

func (s *QuizService) GetUserQuizzes(ctx context.Context, userID uint) ([]models.Quiz, error) {
	return s.quizzes.ForUser(ctx, userID)
}

func (s *QuizService) GetQuizByID(ctx context.Context, quizID, userID uint) (*models.Quiz, error) {
	quiz, err := s.quizzes.ByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.UserID != userID {
		return nil, models.NotFound("Quiz not found")
	}
	return quiz, nil
}
