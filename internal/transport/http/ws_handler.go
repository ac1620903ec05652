package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"mobigate-quiz-engine/internal/domain"
	"mobigate-quiz-engine/internal/engine"
)

type WSHandler struct {
	service  *engine.Service
	upgrader websocket.Upgrader
}

func NewWSHandler(service *engine.Service) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type startedPayload struct {
	Session domain.SessionSnapshot `json:"session"`
	Fees    domain.FeeDistribution `json:"fees"`
	Title   string                 `json:"title"`
	Stake   string                 `json:"stake"`
	Winning string                 `json:"winning"`
}

// ServeWS upgrades the request and runs one staked quiz attempt over
// the socket: commands in (select/confirm/abort), session events out.
// Closing the socket mid-game abandons the attempt (stake forfeited).
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	playerID := r.URL.Query().Get("playerId")
	if quizID == "" || playerID == "" {
		http.Error(w, "missing quizId or playerId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, fees, err := h.service.StartSession(r.Context(), quizID, playerID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	sessionID := session.ID()
	quiz := session.Quiz()

	events, cancel := session.Subscribe()
	defer cancel()
	defer h.abandon(sessionID)

	send := make(chan outboundMessage[any], 32)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case e, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: e.Kind, Payload: e}:
				case <-closeSignals:
					return
				}
				if e.Kind == engine.EventCompleted {
					// Settlement runs server-side; the payout frame
					// follows on the same stream.
					if _, err := h.service.Complete(r.Context(), sessionID); err != nil && !errors.Is(err, domain.ErrAlreadyCompleted) {
						log.Printf("ws session %s: complete: %v", sessionID, err)
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "started", Payload: startedPayload{
		Session: session.Snapshot(),
		Fees:    fees,
		Title:   quiz.Title,
		Stake:   quiz.StakeAmount.String(),
		Winning: quiz.WinningAmount.String(),
	}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid select payload"}}
				continue
			}
			if err := h.service.SelectAnswer(sessionID, payload.Index); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "confirm":
			if err := h.service.ConfirmAnswer(sessionID); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "abort":
			// The client shows its own are-you-sure dialog first; by
			// the time this arrives the forfeiture is confirmed.
			if err := h.service.Abort(sessionID); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// abandon forfeits a still-running attempt whose socket went away,
// settles it if it had already finished, and drops the session.
func (h *WSHandler) abandon(sessionID string) {
	if _, ok := h.service.Get(sessionID); !ok {
		return
	}
	_ = h.service.Abort(sessionID)
	if _, err := h.service.Complete(context.Background(), sessionID); err != nil &&
		!errors.Is(err, domain.ErrSessionNotCompleted) && !errors.Is(err, domain.ErrAlreadyCompleted) {
		log.Printf("ws session %s: settle on disconnect: %v", sessionID, err)
	}
	h.service.Remove(sessionID)
}
