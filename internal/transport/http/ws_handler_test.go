package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vibhuti45/vishwaas-academy/internal/app"
	"github.com/vibhuti45/vishwaas-academy/internal/domain"
	"github.com/vibhuti45/vishwaas-academy/internal/infra/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Ledger) {
	t.Helper()
	ledger := memory.NewLedger()
	content := memory.NewContentStore(map[string]domain.Quiz{"quiz-1": sampleQuiz()})
	service := app.NewAttemptService(content, ledger, memory.NewHistoryStore(), nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(service).ServeWS)
	NewRESTHandler(service).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, ledger
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNext(t *testing.T, conn *websocket.Conn, expect string) map[string]any {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json: %v", err)
		}
		if msg.Type == "tick" && expect != "tick" {
			continue
		}
		if msg.Type != expect {
			t.Fatalf("expected %s, got %s (%v)", expect, msg.Type, msg.Payload)
		}
		return msg.Payload
	}
}

func TestAttemptOverWebSocket(t *testing.T) {
	server, ledger := newTestServer(t)
	conn := dial(t, server, "quizId=quiz-1&studentId=s1&name=Asha")

	quiz := readNext(t, conn, "quiz")
	if quiz["title"] != "Mechanics Basics" {
		t.Fatalf("quiz payload: %v", quiz)
	}
	questions := quiz["questions"].([]any)
	if len(questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(questions))
	}
	if _, leaked := questions[0].(map[string]any)["correctOption"]; leaked {
		t.Fatalf("answer key leaked to the student view")
	}

	for _, sel := range []map[string]any{
		{"question": 0, "option": 1},
		{"question": 1, "option": 0},
	} {
		if err := conn.WriteJSON(map[string]any{"type": "select", "payload": sel}); err != nil {
			t.Fatalf("write select: %v", err)
		}
	}
	if err := conn.WriteJSON(map[string]any{"type": "submit"}); err != nil {
		t.Fatalf("write submit: %v", err)
	}

	payload := readNext(t, conn, "result")
	result := payload["result"].(map[string]any)
	if result["rawScore"].(float64) != 3 { // 4 - 1
		t.Fatalf("raw score = %v, want 3", result["rawScore"])
	}
	if n := ledger.CountForQuiz("quiz-1"); n != 1 {
		t.Fatalf("ledger writes = %d, want 1", n)
	}
}

func TestReplayOverWebSocket(t *testing.T) {
	server, ledger := newTestServer(t)

	first := dial(t, server, "quizId=quiz-1&studentId=s1&name=Asha")
	readNext(t, first, "quiz")
	_ = first.WriteJSON(map[string]any{"type": "select", "payload": map[string]any{"question": 0, "option": 1}})
	_ = first.WriteJSON(map[string]any{"type": "submit"})
	submitted := readNext(t, first, "result")
	first.Close()

	second := dial(t, server, "quizId=quiz-1&studentId=s1&name=Asha")
	replay := readNext(t, second, "replay")

	a, _ := json.Marshal(submitted["result"])
	b, _ := json.Marshal(replay["result"])
	if string(a) != string(b) {
		t.Fatalf("replay differs from submitted view:\n%s\n%s", a, b)
	}
	if n := ledger.CountForQuiz("quiz-1"); n != 1 {
		t.Fatalf("ledger writes = %d, want 1", n)
	}
}

func TestUnknownQuizOverWebSocket(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server, "quizId=nope&studentId=s1&name=Asha")
	payload := readNext(t, conn, "error")
	if payload["message"] != "quiz not found" {
		t.Fatalf("error payload: %v", payload)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	for _, student := range []struct {
		id, name string
		option   int
	}{
		{"s1", "Asha", 0},  // wrong pick
		{"s2", "Bilal", 1}, // correct
	} {
		conn := dial(t, server, "quizId=quiz-1&studentId="+student.id+"&name="+student.name)
		readNext(t, conn, "quiz")
		_ = conn.WriteJSON(map[string]any{"type": "select", "payload": map[string]any{"question": 0, "option": student.option}})
		_ = conn.WriteJSON(map[string]any{"type": "submit"})
		readNext(t, conn, "result")
		conn.Close()
	}

	resp, err := http.Get(server.URL + "/quizzes/quiz-1/leaderboard")
	if err != nil {
		t.Fatalf("get leaderboard: %v", err)
	}
	defer resp.Body.Close()

	var rows []app.LeaderboardRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].StudentID != "s2" {
		// s2 picked option 1 for question 0, which is correct.
		t.Fatalf("unexpected leader: %+v", rows)
	}
}

func TestUserMessageHidesInternalDetail(t *testing.T) {
	got := userMessage(errors.New(`dial tcp 10.0.0.5:5432: connect: connection refused`))
	if strings.Contains(got, "10.0.0.5") || strings.Contains(got, "dial tcp") {
		t.Fatalf("internal detail leaked to the client: %q", got)
	}
	if got != "something went wrong, please retry" {
		t.Fatalf("unexpected fallback message %q", got)
	}

	wrapped := fmt.Errorf("load quiz: %w: pool exhausted", domain.ErrStoreUnavailable)
	if got := userMessage(wrapped); got != "storage temporarily unavailable, please retry" {
		t.Fatalf("sentinel mapping lost: %q", got)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:              "quiz-1",
		Title:           "Mechanics Basics",
		DurationMinutes: 5,
		Published:       true,
		Marking:         domain.MarkingScheme{PointsForCorrect: 4, PointsForIncorrect: 1},
		Questions: []domain.Question{
			{ID: "q1", Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, CorrectOption: 1},
			{ID: "q2", Prompt: "Unit of force?", Options: []string{"joule", "newton", "watt", "pascal"}, CorrectOption: 1},
		},
	}
}
