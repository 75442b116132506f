package leaderboard

import ws "github.com/adventquiz/calendar-platform/pkg/http/ws"

func toWSEntries(entries []Entry) []ws.LeaderboardEntry {
	result := make([]ws.LeaderboardEntry, len(entries))
	for i, e := range entries {
		result[i] = ws.LeaderboardEntry{
			Rank:        i + 1,
			PlayerID:    e.PlayerID.String(),
			Name:        e.Name,
			Score:       e.Score,
			DoorsOpened: e.DoorsOpened,
		}
	}
	return result
}
