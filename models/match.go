package models

import (
	"time"
)

// MatchStatus is the lifecycle state of a match. Transitions are
// monotonic (setup -> active -> completed) except pause/resume.
type MatchStatus string

const (
	MatchSetup     MatchStatus = "setup"
	MatchActive    MatchStatus = "active"
	MatchPaused    MatchStatus = "paused"
	MatchCompleted MatchStatus = "completed"
)

type Match struct {
	ID     uint        `json:"id" gorm:"primaryKey"`
	HostID uint        `json:"host_id" gorm:"not null;index"`
	QuizID uint        `json:"quiz_id" gorm:"not null"`
	Title  string      `json:"title" gorm:"not null"`
	Status MatchStatus `json:"status" gorm:"not null;default:'setup'"`

	// Cursor into the round/question grid, both 1-based.
	CurrentRound    int `json:"current_round" gorm:"not null;default:1"`
	CurrentQuestion int `json:"current_question" gorm:"not null;default:1"`

	MaxRounds         int `json:"max_rounds" gorm:"not null"`
	QuestionsPerRound int `json:"questions_per_round" gorm:"not null"`

	// Configuration. TimeLimitSeconds == 0 means no per-question limit.
	TimeLimitSeconds int  `json:"time_limit_seconds" gorm:"not null;default:0"`
	AllowLateJoin    bool `json:"allow_late_join" gorm:"not null;default:true"`
	BasePoints       int  `json:"base_points" gorm:"not null;default:1000"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	StartedAt *time.Time `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`

	Questions []MatchQuestion `json:"questions,omitempty" gorm:"foreignKey:MatchID"`
	Teams     []Team          `json:"teams,omitempty" gorm:"foreignKey:MatchID"`
}

// TimeLimit returns the configured per-question limit, or 0 if none.
func (m *Match) TimeLimit() time.Duration {
	return time.Duration(m.TimeLimitSeconds) * time.Second
}
