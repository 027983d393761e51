package services

import (
	"context"
	"fmt"
	"hash/fnv"

	"quizmatch/models"
	"quizmatch/store"
)

// PlaceholderAnswer fills missing or empty source options so incomplete
// question content never blocks match preparation.
const PlaceholderAnswer = "Answer unavailable"

// RandomizerService produces the deterministic per-question answer
// shuffle. The same (match, question, round, order) always yields the
// same shuffle, across process restarts, so every client renders
// options in the same order without fetching a stored key.
type RandomizerService struct {
	questions store.MatchQuestionStore
}

func NewRandomizerService(questions store.MatchQuestionStore) *RandomizerService {
	return &RandomizerService{questions: questions}
}

// Prepare shuffles the raw answers, where correctIndex marks the
// correct element before shuffling, and returns the shuffled slots plus
// the slot the correct answer landed on. Short or empty raw answers are
// replaced with PlaceholderAnswer.
func (s *RandomizerService) Prepare(matchID, questionID uint, round, order int, raw []string, correctIndex int) ([models.AnswerSlots]string, int) {
	var answers [models.AnswerSlots]string
	for i := 0; i < models.AnswerSlots; i++ {
		if i < len(raw) && raw[i] != "" {
			answers[i] = raw[i]
		} else {
			answers[i] = PlaceholderAnswer
		}
	}
	if correctIndex < 0 || correctIndex >= models.AnswerSlots {
		correctIndex = 0
	}

	gen := newShuffleSource(shuffleSeed(matchID, questionID, round, order))
	correctSlot := correctIndex
	// Fisher-Yates over the four slots, tracking where the correct
	// element moves.
	for i := models.AnswerSlots - 1; i > 0; i-- {
		j := int(gen.next() % uint32(i+1))
		answers[i], answers[j] = answers[j], answers[i]
		switch correctSlot {
		case i:
			correctSlot = j
		case j:
			correctSlot = i
		}
	}
	return answers, correctSlot
}

// Verify looks up the stored correct slot for the question at
// (match, round, order) and compares it against the selected slot. It
// never re-derives the shuffle from caller-supplied answer data.
func (s *RandomizerService) Verify(ctx context.Context, matchID uint, round, order, selectedSlot int) (bool, error) {
	question, err := s.questions.ByCursor(ctx, matchID, round, order)
	if err != nil {
		return false, err
	}
	return s.VerifySlot(question, selectedSlot), nil
}

// VerifySlot compares a selected slot against an already-loaded
// question's stored correct slot.
func (s *RandomizerService) VerifySlot(question *models.MatchQuestion, selectedSlot int) bool {
	return selectedSlot == question.CorrectSlot
}

// shuffleSeed derives a 32-bit seed with FNV-1a over the canonical
// "{matchId}-{questionId}-{round}-{order}" string.
func shuffleSeed(matchID, questionID uint, round, order int) uint32 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d-%d-%d-%d", matchID, questionID, round, order)
	return h.Sum32()
}

// shuffleSource is a linear congruential generator (Numerical Recipes
// constants) driving the shuffle. A full PRNG would be overkill for
// picking two swap indexes out of four.
type shuffleSource struct {
	state uint32
}

func newShuffleSource(seed uint32) *shuffleSource {
	return &shuffleSource{state: seed}
}

func (g *shuffleSource) next() uint32 {
	g.state = g.state*1664525 + 1013904223
	return g.state
}
