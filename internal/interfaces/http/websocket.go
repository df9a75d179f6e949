package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/seamom/ogdrop/internal/scenario"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// socketEnvelope frames every message the scenario socket sends.
type socketEnvelope struct {
	Type    string            `json:"type"`
	Context *scenario.Context `json:"context,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// ScenarioSocket streams scenario rebuilds over a websocket. Every client
// message is a scenario request and every reply the evaluated context, so
// slider drags get fresh numbers without per-request HTTP overhead.
func (h *Handlers) ScenarioSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.metrics.WSConnected()
	defer h.metrics.WSDisconnected()
	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Scenario socket connected")

	for {
		var req ScenarioRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("Scenario socket closed unexpectedly")
			}
			return
		}

		start := time.Now()
		scenarioCtx, _, err := h.buildScenario(req.Session, req.WalletTotalUSD)
		if err != nil {
			h.metrics.RecordScenarioBuild("error", time.Since(start))
			if writeErr := conn.WriteJSON(socketEnvelope{Type: "error", Error: err.Error()}); writeErr != nil {
				return
			}
			continue
		}
		h.metrics.RecordScenarioBuild("ok", time.Since(start))
		if err := conn.WriteJSON(socketEnvelope{Type: "scenario", Context: scenarioCtx}); err != nil {
			return
		}
	}
}
