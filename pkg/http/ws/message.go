package ws

import "encoding/json"

// MessageType constants for the WebSocket protocol.
const (
	// Client -> Server
	TypePing = "ping"

	// Server -> Client
	TypePong              = "pong"
	TypeLeaderboardUpdate = "leaderboard_update"
	TypeError             = "error"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// LeaderboardUpdatePayload is pushed whenever a year's standings change.
type LeaderboardUpdatePayload struct {
	Year string             `json:"year"`
	Top  []LeaderboardEntry `json:"top"`
}

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	PlayerID    string `json:"player_id"`
	Name        string `json:"name"`
	Score       int    `json:"score"`
	DoorsOpened int    `json:"doors_opened"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
