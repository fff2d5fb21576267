package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-game/internal/domain"
	"quiz-game/internal/infra/memory"
	"quiz-game/internal/scoring"
)

func TestWebSocketGameFlow(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server, "u1")

	// A fresh user lands on the dashboard.
	waitState(t, conn, "dashboard")

	send(t, conn, "start", map[string]any{"maxRounds": 1})
	playing := waitState(t, conn, "playing")
	round, _ := playing["round"].(map[string]any)
	question, _ := round["question"].(map[string]any)
	if question["question_text"] == "" || question["correct_answer"] != nil {
		t.Fatalf("expected redacted question, got %v", question)
	}

	send(t, conn, "select", map[string]any{"answer": "Savings"})
	send(t, conn, "submit", nil)
	result := waitState(t, conn, "round_result")
	res, _ := result["result"].(map[string]any)
	if res["is_correct"] != true || res["session_complete"] != true {
		t.Fatalf("expected correct final round, got %v", res)
	}

	send(t, conn, "advance", nil)
	waitState(t, conn, "completed")

	send(t, conn, "results", nil)
	summary := waitType(t, conn, "results")
	var parsed domain.ResultsSummary
	if err := json.Unmarshal(summary, &parsed); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if parsed.TotalScore != 10 || parsed.MaxPossible != 10 || parsed.Tier != domain.TierExcellent {
		t.Fatalf("unexpected summary %+v", parsed)
	}

	send(t, conn, "leaderboard", map[string]any{"limit": 5})
	board := waitType(t, conn, "leaderboard")
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(board, &entries); err != nil || len(entries) != 1 || entries[0].UserID != "u1" {
		t.Fatalf("unexpected leaderboard %s err=%v", board, err)
	}
}

func TestWebSocketReportsErrors(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server, "u2")
	waitState(t, conn, "dashboard")

	send(t, conn, "dance", nil)
	msg := waitType(t, conn, "error")
	var payload errorPayload
	_ = json.Unmarshal(msg, &payload)
	if payload.Message != "unsupported message type" {
		t.Fatalf("unexpected error %q", payload.Message)
	}

	send(t, conn, "submit", nil)
	msg = waitType(t, conn, "error")
	_ = json.Unmarshal(msg, &payload)
	if payload.Message != domain.ErrInvalidTransition.Error() {
		t.Fatalf("unexpected error %q", payload.Message)
	}
}

func TestWebSocketFinishEndsSessionEarly(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server, "u3")
	waitState(t, conn, "dashboard")

	send(t, conn, "start", map[string]any{"maxRounds": 5})
	waitState(t, conn, "playing")
	send(t, conn, "finish", nil)
	completed := waitState(t, conn, "completed")
	session, _ := completed["session"].(map[string]any)
	if session["status"] != "completed" {
		t.Fatalf("expected completed session, got %v", session)
	}

	// A reconnect lands on the same completed session.
	other := dial(t, server, "u3")
	waitState(t, other, "completed")
}

func TestWebSocketRequiresUser(t *testing.T) {
	server := newTestServer(t)
	resp, err := http.Get(server.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestOutboxDropsOldestWhenFull(t *testing.T) {
	out := newOutbox(2)
	for i := 1; i <= 3; i++ {
		out.push(outboundMessage[any]{Type: "tick", Payload: i})
	}
	out.close()
	out.push(outboundMessage[any]{Type: "tick", Payload: 4})

	var got []any
	for msg := range out.ch {
		got = append(got, msg.Payload)
	}
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("expected [2 3], got %v", got)
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	questions := memory.NewQuestionRepository(memory.NewStaticBankLoader([]domain.Question{{
		ID:            "b1",
		Category:      "budgeting",
		Prompt:        "50/30/20: what is the 20?",
		Options:       []string{"Wants", "Savings"},
		CorrectAnswer: "Savings",
		Points:        10,
	}}), time.Minute)
	engine := scoring.NewEngine(memory.NewStore(), questions, []string{"budgeting"}, 10)
	handler := NewWSHandler(engine, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?userId=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// waitType skips messages until one of type typ arrives and returns its payload.
func waitType(t *testing.T, conn *websocket.Conn, typ string) json.RawMessage {
	t.Helper()
	for i := 0; i < 50; i++ {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", typ, err)
		}
		if msg.Type == typ {
			return msg.Payload
		}
	}
	t.Fatalf("no %s message", typ)
	return nil
}

// waitState skips messages until a state in phase arrives.
func waitState(t *testing.T, conn *websocket.Conn, phase string) map[string]any {
	t.Helper()
	for i := 0; i < 50; i++ {
		var view map[string]any
		if err := json.Unmarshal(waitType(t, conn, "state"), &view); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if view["phase"] == phase {
			return view
		}
	}
	t.Fatalf("never reached phase %s", phase)
	return nil
}
