package models

// LeaderboardEntry is one ranked row of match standings. Rank is a
// dense 1-based position over the final sort order.
type LeaderboardEntry struct {
	TeamID       uint   `json:"team_id"`
	TeamName     string `json:"team_name"`
	Score        int    `json:"score"`
	CorrectCount int    `json:"correct_count"`
	TotalCount   int    `json:"total_count"`
	PlayerCount  int    `json:"player_count"`
	Rank         int    `json:"rank"`
}
