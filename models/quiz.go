package models

import (
	"time"

	"gorm.io/gorm"
)

// Quiz is a question bank that matches draw their content from.
type Quiz struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description"`
	UserID      uint           `json:"user_id" gorm:"not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
	Matches   []Match    `json:"matches,omitempty" gorm:"foreignKey:QuizID"`
}
