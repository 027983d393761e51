package services

import (
	"context"
	"sort"

	"quizmatch/models"
	"quizmatch/store"
)

// LeaderboardService derives ranked standings from recorded
// submissions. Ordering is score descending with team creation time
// ascending as the deterministic tie-break; rank is the dense 1-based
// position over that final order, so tied scores still get distinct
// ranks.
type LeaderboardService struct {
	teams       store.TeamStore
	submissions store.SubmissionStore
}

func NewLeaderboardService(teams store.TeamStore, submissions store.SubmissionStore) *LeaderboardService {
	return &LeaderboardService{teams: teams, submissions: submissions}
}

// Rank returns the match standings. Teams with no submissions still
// appear with zero counts.
func (s *LeaderboardService) Rank(ctx context.Context, matchID uint) ([]models.LeaderboardEntry, error) {
	teams, err := s.teams.ForMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	subs, err := s.submissions.ForMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	type tally struct {
		correct int
		total   int
	}
	tallies := make(map[uint]tally, len(teams))
	for _, sub := range subs {
		t := tallies[sub.TeamID]
		t.total++
		if sub.IsCorrect {
			t.correct++
		}
		tallies[sub.TeamID] = t
	}

	entries := make([]models.LeaderboardEntry, 0, len(teams))
	for _, team := range teams {
		members, err := s.teams.MembersForTeam(ctx, team.ID)
		if err != nil {
			return nil, err
		}
		t := tallies[team.ID]
		entries = append(entries, models.LeaderboardEntry{
			TeamID:       team.ID,
			TeamName:     team.Name,
			Score:        team.Score,
			CorrectCount: t.correct,
			TotalCount:   t.total,
			PlayerCount:  len(members),
		})
	}

	// Teams arrive ordered by creation time ascending; a stable sort on
	// score keeps that as the tie-break rather than insertion accident.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
