package services

// Broadcaster fans engine events out to connected clients. Match-wide
// events reach every client in the match; team events only that team's
// clients. The WebSocket hub implements it; tests substitute a
// recorder.
type Broadcaster interface {
	ToMatch(matchID uint, event string, payload interface{})
	ToTeam(teamID uint, event string, payload interface{})
}
