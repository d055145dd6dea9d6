package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"spin-wheel-service/internal/app"
	"spin-wheel-service/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type WSHandler struct {
	service  *app.GameService
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string              `json:"type"`
	Payload jsoniter.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type spinAccepted struct {
	SpinID       string  `json:"spinId"`
	WheelID      string  `json:"wheelId"`
	StartAngle   float64 `json:"startAngle"`
	TargetAngle  float64 `json:"targetAngle"`
	DurationMs   int64   `json:"durationMs"`
	SegmentCount int     `json:"segmentCount"`
}

type rejectedPayload struct {
	Reason domain.RejectReason `json:"reason"`
}

type joinedPayload struct {
	Wheel publicWheel        `json:"wheel"`
	State domain.PlayerState `json:"state"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the game use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	wheelID := r.URL.Query().Get("wheelId")
	playerID := r.URL.Query().Get("playerId")
	if wheelID == "" || playerID == "" {
		http.Error(w, "missing wheelId or playerId", http.StatusBadRequest)
		return
	}
	logger := h.logger.With(zap.String("wheel_id", wheelID), zap.String("player_id", playerID))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Spins started on this connection settle when it closes.
	ctx, cancelCtx := context.WithCancel(r.Context())
	defer cancelCtx()

	wheel, err := h.service.Wheel(ctx, wheelID)
	if err != nil {
		_ = writeJSON(conn, outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	joined, err := h.service.Join(ctx, wheelID, playerID)
	if err != nil {
		_ = writeJSON(conn, outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.Leave(context.WithoutCancel(ctx), wheelID, playerID)

	events, cancel, err := h.service.Subscribe(ctx, wheelID, playerID)
	if err != nil {
		_ = writeJSON(conn, outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan any, 64)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// A single writer goroutine owns conn writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := writeJSON(conn, msg); err != nil {
				logger.Debug("ws write error", zap.Error(err))
				// Unblock the reader and keep draining until send is closed.
				_ = conn.Close()
				for range send {
				}
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- eventMessage(event):
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[joinedPayload]{Type: "joined", Payload: joinedPayload{Wheel: wheelView(wheel), State: joined}}

	for {
		inbound, err := readMessage(conn)
		if err != nil {
			if errors.Is(err, errMalformed) {
				send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "malformed message"}}
				continue
			}
			break
		}
		switch inbound.Type {
		case "spin":
			send <- h.spin(ctx, wheelID, playerID, logger)
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			// The result itself is delivered through the subscription.
			_, err := h.service.Answer(ctx, wheelID, playerID, domain.AnswerSubmission{
				QuestionID: payload.QuestionID,
				OptionID:   payload.OptionID,
			})
			if err != nil {
				send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "state":
			state, err := h.service.State(ctx, wheelID, playerID)
			if err != nil {
				send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[domain.PlayerState]{Type: "state", Payload: state}
		default:
			send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func (h *WSHandler) spin(ctx context.Context, wheelID, playerID string, logger *zap.Logger) any {
	ticket, err := h.service.Spin(ctx, wheelID, playerID)
	if errors.Is(err, domain.ErrSpinRejected) {
		return outboundMessage[rejectedPayload]{Type: "rejected", Payload: rejectedPayload{Reason: domain.ReasonOf(err)}}
	}
	if err != nil {
		logger.Warn("spin failed", zap.Error(err))
		return outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}
	return outboundMessage[spinAccepted]{Type: "spinAccepted", Payload: spinAccepted{
		SpinID:       ticket.SpinID,
		WheelID:      ticket.WheelID,
		StartAngle:   ticket.StartAngle,
		TargetAngle:  ticket.TargetAngle,
		DurationMs:   ticket.Duration.Milliseconds(),
		SegmentCount: ticket.SegmentCount,
	}}
}

func eventMessage(event domain.WheelEvent) any {
	switch event.Type {
	case domain.EventAngle:
		return outboundMessage[*domain.AngleFrame]{Type: "angle", Payload: event.Frame}
	case domain.EventResult:
		return outboundMessage[*domain.SpinResult]{Type: "result", Payload: event.Result}
	case domain.EventAnswer:
		return outboundMessage[*domain.AnswerResult]{Type: "answerResult", Payload: event.Answer}
	default:
		return outboundMessage[*domain.PlayerState]{Type: "state", Payload: event.State}
	}
}

var errMalformed = errors.New("malformed message")

func readMessage(conn *websocket.Conn) (inboundMessage, error) {
	var msg inboundMessage
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, errMalformed
	}
	return msg, nil
}

func writeJSON(conn *websocket.Conn, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, raw)
}
