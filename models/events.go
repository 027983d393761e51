package models

import (
	"time"
)

// Broadcast event names. Match-wide events go to every client in the
// match; answer_locked is team-scoped because it contains the
// selection.
const (
	EventGameStateChanged  = "game_state_changed"
	EventQuestionDisplayed = "question_displayed"
	EventQuestionCompleted = "question_completed"
	EventTeamAnswered      = "team_answered"
	EventAnswerLocked      = "answer_locked"
)

type GameStateChangedEvent struct {
	GameID          uint        `json:"game_id"`
	Status          MatchStatus `json:"status"`
	CurrentRound    int         `json:"current_round"`
	CurrentQuestion int         `json:"current_question"`
	Timestamp       time.Time   `json:"timestamp"`
	TriggeredBy     string      `json:"triggered_by"` // "host" or "system"
}

type QuestionContent struct {
	Text       string    `json:"text"`
	Category   string    `json:"category"`
	Difficulty string    `json:"difficulty"`
	Answers    [4]string `json:"answers"`
}

type QuestionDisplayedEvent struct {
	GameID         uint            `json:"game_id"`
	GameQuestionID uint            `json:"game_question_id"`
	RoundNumber    int             `json:"round_number"`
	QuestionOrder  int             `json:"question_order"`
	Question       QuestionContent `json:"question"`
	TimeLimit      int             `json:"time_limit"`
	Timestamp      time.Time       `json:"timestamp"`
}

type TeamResult struct {
	TeamID           uint   `json:"team_id"`
	TeamName         string `json:"team_name"`
	SelectedPosition int    `json:"selected_position"`
	IsCorrect        bool   `json:"is_correct"`
	PointsEarned     int    `json:"points_earned"`
	ResponseTime     int64  `json:"response_time"`
}

type QuestionCompletedEvent struct {
	GameID          uint         `json:"game_id"`
	GameQuestionID  uint         `json:"game_question_id"`
	CorrectPosition int          `json:"correct_position"`
	CorrectAnswer   string       `json:"correct_answer"`
	TeamResults     []TeamResult `json:"team_results"`
	Timestamp       time.Time    `json:"timestamp"`
}

type TeamAnsweredEvent struct {
	GameID         uint      `json:"game_id"`
	TeamID         uint      `json:"team_id"`
	TeamName       string    `json:"team_name"`
	GameQuestionID uint      `json:"game_question_id"`
	SubmittedBy    uint      `json:"submitted_by"`
	Timestamp      time.Time `json:"timestamp"`
}

type AnswerLockedEvent struct {
	TeamID           uint      `json:"team_id"`
	GameQuestionID   uint      `json:"game_question_id"`
	SelectedPosition int       `json:"selected_position"`
	SubmittedBy      uint      `json:"submitted_by"`
	Timestamp        time.Time `json:"timestamp"`
}
