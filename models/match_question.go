package models

import (
	"time"
)

// AnswerSlots is the fixed number of answer options per question.
const AnswerSlots = 4

// MatchQuestion is one question instance scoped to a match, round and
// order, with its own shuffled answer order. The shuffle is produced
// once when the match is prepared and stored alongside the slot the
// correct answer landed on, so every client sees the same option order.
type MatchQuestion struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	MatchID    uint `json:"match_id" gorm:"not null;uniqueIndex:idx_match_round_order,priority:1"`
	QuestionID uint `json:"question_id" gorm:"not null"`

	RoundNumber   int `json:"round_number" gorm:"not null;uniqueIndex:idx_match_round_order,priority:2"`
	QuestionOrder int `json:"question_order" gorm:"not null;uniqueIndex:idx_match_round_order,priority:3"`

	// The four answers in shuffled display order, slots 0-3.
	Answer0 string `json:"-" gorm:"not null"`
	Answer1 string `json:"-" gorm:"not null"`
	Answer2 string `json:"-" gorm:"not null"`
	Answer3 string `json:"-" gorm:"not null"`

	// CorrectSlot is the slot the correct answer occupies, in [0,3].
	CorrectSlot int `json:"-" gorm:"not null"`

	// DisplayedAt moves from null to a timestamp exactly once, when the
	// host reveals the question. CompletedAt is set when the host
	// advances past it.
	DisplayedAt *time.Time `json:"displayed_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Question Question `json:"question,omitempty"`
}

// Answers returns the shuffled answers as a slice indexed by slot.
func (q *MatchQuestion) Answers() [AnswerSlots]string {
	return [AnswerSlots]string{q.Answer0, q.Answer1, q.Answer2, q.Answer3}
}

// SetAnswers stores the shuffled answers by slot.
func (q *MatchQuestion) SetAnswers(answers [AnswerSlots]string) {
	q.Answer0 = answers[0]
	q.Answer1 = answers[1]
	q.Answer2 = answers[2]
	q.Answer3 = answers[3]
}

// CorrectAnswer returns the answer text in the correct slot.
func (q *MatchQuestion) CorrectAnswer() string {
	return q.Answers()[q.CorrectSlot]
}
