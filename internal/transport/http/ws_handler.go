package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"typologylab/internal/app"
)

type WSHandler struct {
	service  *app.QuizService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log *zap.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
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

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades to a websocket bound to one attempt. Without attemptId a new
// attempt is started on the quiz named by the quiz parameter.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	attemptID := r.URL.Query().Get("attemptId")

	var (
		view app.AttemptView
		err  error
	)
	if attemptID == "" {
		view, err = h.service.StartAttempt(ctx, r.URL.Query().Get("quiz"))
	} else {
		view, err = h.service.Attempt(ctx, attemptID)
	}
	if err != nil {
		status, msg := errorStatus(err)
		writeJSON(w, status, errorResponse{Error: msg})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	statuses, cancel := h.service.SubscribeStatus(view.ID)
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	statusesDone := make(chan struct{})

	// Only the writer goroutine touches conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.String("attempt_id", view.ID), zap.Error(err))
				return
			}
		}
	}()

	emit := func(typ string, payload any) bool {
		select {
		case send <- outboundMessage[any]{Type: typ, Payload: payload}:
			return true
		case <-writerDone:
			return false
		}
	}

	go func() {
		defer close(statusesDone)
		for {
			select {
			case status, ok := <-statuses:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "saveStatus", Payload: status}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	h.emitView(emit, view)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		next, err := h.dispatch(ctx, view.ID, inbound)
		if err != nil {
			_, msg := errorStatus(err)
			if !emit("error", errorPayload{Message: msg}) {
				break
			}
			continue
		}
		if next != nil && !h.emitView(emit, *next) {
			break
		}
	}

	close(closeSignals)
	<-statusesDone
	close(send)
	<-writerDone
}

type wsAttributePayload struct {
	Demographic string `json:"demographic"`
}

type wsAnswerPayload struct {
	OptionIndex *int `json:"optionIndex"`
}

// dispatch applies one inbound message. A nil view means nothing changed that
// needs re-sending.
func (h *WSHandler) dispatch(ctx context.Context, id string, msg inboundMessage) (*app.AttemptView, error) {
	var (
		view app.AttemptView
		err  error
	)
	switch msg.Type {
	case "attribute":
		var payload wsAttributePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, errBadPayload
		}
		view, err = h.service.SelectAttribute(ctx, id, payload.Demographic)
	case "answer":
		var payload wsAnswerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.OptionIndex == nil {
			return nil, errBadPayload
		}
		view, err = h.service.Answer(ctx, id, *payload.OptionIndex)
	case "previous":
		view, err = h.service.Previous(ctx, id)
	case "restart":
		view, err = h.service.Restart(ctx, id)
	case "submit":
		// The outcome is already on screen; the status arrives via saveStatus.
		_, err = h.service.SubmitResult(ctx, id)
		return nil, err
	default:
		return nil, errUnsupportedMessage
	}
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (h *WSHandler) emitView(emit func(string, any) bool, view app.AttemptView) bool {
	if !emit("state", view) {
		return false
	}
	if view.Outcome != nil {
		return emit("result", view.Outcome)
	}
	return true
}
