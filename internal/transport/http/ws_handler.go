package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vibhuti45/vishwaas-academy/internal/app"
	"github.com/vibhuti45/vishwaas-academy/internal/attempt"
	"github.com/vibhuti45/vishwaas-academy/internal/domain"
)

// WSHandler drives one attempt machine per websocket connection. The
// screens hosting the quiz UI speak this protocol:
//
//	inbound:  {"type":"select","payload":{"question":0,"option":2}}
//	          {"type":"submit"}
//	outbound: quiz | tick | result | replay | error
type WSHandler struct {
	service  *app.AttemptService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AttemptService) *WSHandler {
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
	Question int `json:"question"`
	Option   int `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// quizPayload is the student-facing quiz view. Correct option indexes are
// deliberately absent until the attempt is sealed.
type quizPayload struct {
	Title            string            `json:"title"`
	DurationSeconds  int               `json:"durationSeconds"`
	RemainingSeconds int               `json:"remainingSeconds"`
	Questions        []questionPayload `json:"questions"`
}

type questionPayload struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

type tickPayload struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

type resultPayload struct {
	Result            domain.AttemptResult   `json:"result"`
	DisplayPercentage float64                `json:"displayPercentage"`
	Questions         []attempt.QuestionView `json:"questions"`
}

// ServeWS upgrades the request and runs the attempt session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	studentID := r.URL.Query().Get("studentId")
	studentName := r.URL.Query().Get("name")
	if quizID == "" || studentID == "" {
		http.Error(w, "missing quizId or studentId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Closing the page mid-attempt discards everything; nothing persists
	// until submission, so the machine lives exactly as long as the socket.
	machine, err := h.service.BeginAttempt(r.Context(), studentID, studentName, quizID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: userMessage(err)}})
		return
	}
	defer machine.Abandon()

	send := make(chan any, 16)
	done := make(chan struct{})
	writerDone := make(chan struct{})
	tickerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// trySend drops messages once the session is tearing down so the
	// ticker goroutine can never write to a closed channel.
	trySend := func(msg any) {
		select {
		case send <- msg:
		case <-done:
		}
	}

	var resultOnce sync.Once
	sendResult := func(msgType string) {
		resultOnce.Do(func() {
			result, views, err := machine.ResultView()
			if err != nil {
				trySend(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: userMessage(err)}})
				return
			}
			trySend(outboundMessage[resultPayload]{Type: msgType, Payload: resultPayload{
				Result:            result,
				DisplayPercentage: result.DisplayPercentage(),
				Questions:         views,
			}})
		})
	}

	if machine.State() == attempt.StateReplaying {
		close(tickerDone)
		sendResult("replay")
	} else {
		quiz := machine.Quiz()
		questions := make([]questionPayload, len(quiz.Questions))
		for i, q := range quiz.Questions {
			questions[i] = questionPayload{Prompt: q.Prompt, Options: q.Options}
		}
		send <- outboundMessage[quizPayload]{Type: "quiz", Payload: quizPayload{
			Title:            quiz.Title,
			DurationSeconds:  quiz.DurationMinutes * 60,
			RemainingSeconds: machine.RemainingSeconds(),
			Questions:        questions,
		}}

		// Push the countdown and catch the timeout auto-submit.
		go func() {
			defer close(tickerDone)
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					switch machine.State() {
					case attempt.StateInProgress:
						trySend(outboundMessage[tickPayload]{Type: "tick", Payload: tickPayload{RemainingSeconds: machine.RemainingSeconds()}})
					case attempt.StateSubmitted, attempt.StateReplaying:
						sendResult("result")
						return
					}
				}
			}
		}()
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "invalid select payload"}}
				continue
			}
			if err := machine.SelectOption(payload.Question, payload.Option); err != nil {
				if errors.Is(err, domain.ErrAttemptClosed) {
					continue // input after sealing is a silent no-op
				}
				send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: userMessage(err)}}
			}
		case "submit":
			if _, err := machine.Submit(context.Background()); err != nil {
				send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: userMessage(err)}}
				continue
			}
			sendResult("result")
		default:
			send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(done)
	<-tickerDone
	close(send)
	<-writerDone
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound):
		return "quiz not found"
	case errors.Is(err, domain.ErrInvalidSelection):
		return "selection out of range"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "storage temporarily unavailable, please retry"
	case errors.Is(err, domain.ErrAttemptClosed):
		return "attempt is already closed"
	default:
		// Internal detail stays in the logs, not in the browser.
		log.Printf("ws session error: %v", err)
		return "something went wrong, please retry"
	}
}
