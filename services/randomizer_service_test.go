package services

import (
	"context"
	"testing"

	"quizmatch/models"
	"quizmatch/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareIsDeterministic(t *testing.T) {
	r := NewRandomizerService(nil)
	raw := []string{"Paris", "London", "Berlin", "Madrid"}

	first, firstSlot := r.Prepare(7, 42, 2, 3, raw, 0)
	second, secondSlot := r.Prepare(7, 42, 2, 3, raw, 0)

	assert.Equal(t, first, second)
	assert.Equal(t, firstSlot, secondSlot)
}

func TestPrepareTracksCorrectSlot(t *testing.T) {
	r := NewRandomizerService(nil)
	raw := []string{"alpha", "beta", "gamma", "delta"}

	for correctIndex := 0; correctIndex < models.AnswerSlots; correctIndex++ {
		answers, slot := r.Prepare(1, 2, 1, 1, raw, correctIndex)
		assert.GreaterOrEqual(t, slot, 0)
		assert.Less(t, slot, models.AnswerSlots)
		assert.Equal(t, raw[correctIndex], answers[slot],
			"correct slot must hold the designated answer")
	}
}

func TestPrepareIsAPermutation(t *testing.T) {
	r := NewRandomizerService(nil)
	raw := []string{"a", "b", "c", "d"}

	answers, _ := r.Prepare(3, 9, 1, 2, raw, 1)

	seen := map[string]int{}
	for _, a := range answers {
		seen[a]++
	}
	for _, want := range raw {
		assert.Equal(t, 1, seen[want])
	}
}

func TestPrepareVariesAcrossQuestions(t *testing.T) {
	r := NewRandomizerService(nil)
	raw := []string{"a", "b", "c", "d"}

	// Not every pair of inputs can differ, but across a handful of
	// orders at least one arrangement must change.
	base, _ := r.Prepare(1, 1, 1, 1, raw, 0)
	varied := false
	for order := 2; order <= 8; order++ {
		answers, _ := r.Prepare(1, 1, 1, order, raw, 0)
		if answers != base {
			varied = true
			break
		}
	}
	assert.True(t, varied, "shuffle should depend on the question order")
}

func TestPreparePadsMissingAnswers(t *testing.T) {
	r := NewRandomizerService(nil)

	answers, slot := r.Prepare(5, 6, 1, 1, []string{"only one"}, 0)

	placeholders := 0
	found := false
	for _, a := range answers {
		if a == PlaceholderAnswer {
			placeholders++
		}
		if a == "only one" {
			found = true
		}
	}
	assert.Equal(t, 3, placeholders)
	assert.True(t, found)
	assert.Equal(t, "only one", answers[slot])

	answers, _ = r.Prepare(5, 6, 1, 2, nil, 0)
	for _, a := range answers {
		assert.Equal(t, PlaceholderAnswer, a)
	}
}

func TestVerifyAgainstStoredSlot(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	r := NewRandomizerService(st.MatchQuestions())

	question := models.MatchQuestion{
		MatchID:       9,
		QuestionID:    1,
		RoundNumber:   1,
		QuestionOrder: 1,
		CorrectSlot:   2,
	}
	question.SetAnswers([models.AnswerSlots]string{"w", "x", "y", "z"})
	require.NoError(t, st.MatchQuestions().CreateBatch(ctx, []models.MatchQuestion{question}))

	for slot := 0; slot < models.AnswerSlots; slot++ {
		correct, err := r.Verify(ctx, 9, 1, 1, slot)
		require.NoError(t, err)
		assert.Equal(t, slot == 2, correct)
	}

	_, err := r.Verify(ctx, 9, 1, 5, 0)
	assert.True(t, models.IsCode(err, models.ErrNotFound))
}
