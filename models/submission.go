package models

import (
	"time"
)

// Submission is a team's one recorded answer to one MatchQuestion. The
// (team_id, game_question_id) uniqueness constraint is the
// authoritative guard against double answers: concurrent submits race
// on the insert, exactly one wins. Rows are immutable once written
// except for administrative deletion, which reverses the score delta.
type Submission struct {
	ID              uint `json:"id" gorm:"primaryKey"`
	TeamID          uint `json:"team_id" gorm:"not null;uniqueIndex:idx_team_question,priority:1"`
	MatchQuestionID uint `json:"game_question_id" gorm:"column:game_question_id;not null;uniqueIndex:idx_team_question,priority:2"`

	SelectedSlot   int   `json:"selected_position" gorm:"not null"`
	IsCorrect      bool  `json:"is_correct" gorm:"not null"`
	Points         int   `json:"points_earned" gorm:"not null"`
	ResponseTimeMs int64 `json:"response_time_ms" gorm:"not null"`

	// SubmittedBy references the team member who locked the answer in.
	SubmittedBy uint `json:"submitted_by" gorm:"not null"`

	SubmittedAt time.Time `json:"submitted_at"`
	CreatedAt   time.Time `json:"created_at"`

	Team Team `json:"team,omitempty"`
}
