package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/adventquiz/calendar-platform/internal/auth"
	httperrors "github.com/adventquiz/calendar-platform/pkg/http/errors"
	ws "github.com/adventquiz/calendar-platform/pkg/http/ws"
)

// WSUpgrader handles WebSocket upgrades.
var WSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Origin filtering happens in the CORS layer for REST; browsers do
		// not enforce CORS on WebSocket, so a production deployment should
		// pin origins here.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// NewLeaderboardWSHandler upgrades authenticated clients and registers
// them on the hub for leaderboard pushes. A token query parameter is
// accepted because browser WebSocket clients cannot set headers.
func NewLeaderboardWSHandler(authSvc *auth.Service, hub *ws.Hub, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())
		if claims == nil {
			if token := r.URL.Query().Get("token"); token != "" {
				var err error
				claims, err = authSvc.ValidateToken(token)
				if err != nil {
					httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid or expired token")
					return
				}
			}
		}
		if claims == nil {
			httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
			return
		}

		conn, err := WSUpgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		wsConn := ws.NewConnection(conn, logger)
		hub.RegisterConnection(claims.PlayerID, wsConn)

		go wsConn.WritePump()
		go func() {
			defer hub.UnregisterConnection(claims.PlayerID)
			wsConn.ReadPump(func(msg ws.Message) error {
				if msg.Type == ws.TypePing {
					return wsConn.Send(ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
				}

				payload, err := json.Marshal(ws.ErrorPayload{
					Code:    "unknown_message_type",
					Message: "Unsupported message type: " + msg.Type,
				})
				if err != nil {
					return err
				}
				return hub.SendToPlayer(claims.PlayerID, ws.Message{
					Type:      ws.TypeError,
					Payload:   payload,
					RequestID: msg.RequestID,
				})
			})
		}()
	}
}
