package models

import (
	"time"

	"gorm.io/gorm"
)

type Question struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	QuizID     uint           `json:"quiz_id" gorm:"not null"`
	Text       string         `json:"text" gorm:"not null"`
	Category   string         `json:"category"`
	Difficulty string         `json:"difficulty"`
	Order      int            `json:"order" gorm:"not null"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Quiz    Quiz     `json:"quiz,omitempty"`
	Options []Option `json:"options,omitempty" gorm:"foreignKey:QuestionID"`
}

// CorrectOption returns the option flagged correct, or nil if the
// question content is incomplete.
func (q *Question) CorrectOption() *Option {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}
