package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a host account. Only the host of a match may mutate its
// lifecycle state.
type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Email        string         `json:"email" gorm:"uniqueIndex;not null"`
	Username     string         `json:"username" gorm:"not null"`
	PasswordHash string         `json:"-" gorm:"not null"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Quizzes []Quiz  `json:"quizzes,omitempty" gorm:"foreignKey:UserID"`
	Matches []Match `json:"matches,omitempty" gorm:"foreignKey:HostID"`
}
