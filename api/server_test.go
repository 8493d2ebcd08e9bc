package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"chess-perft/bitmg"
	"chess-perft/engine"
)

type rawResponse struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error"`
}

func testEngineOptions() engine.Options {
	opts := engine.DefaultOptions()
	opts.Workers = 2
	opts.ArenaBytes = 16 << 20
	opts.SerialDepth = 2
	opts.LaunchDepth = 4
	opts.Tables = engine.DefaultTables(4, 5)
	return opts
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Jobs = 2
	cfg.MaxDepth = 5
	s, err := NewServer(cfg, testEngineOptions())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("Status = %d, want %d", resp.StatusCode, http.StatusSwitchingProtocols)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, typ, id string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := ws.WriteJSON(WSMessage{Type: typ, ID: id, Payload: raw}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

func receive(t *testing.T, ws *websocket.Conn) rawResponse {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(30 * time.Second))
	var resp rawResponse
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	s, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	defer resp.Body.Close()

	var h HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.Status != "ok" {
		t.Errorf("Status = %q, want ok", h.Status)
	}
	if h.Pool.Max != 2 {
		t.Errorf("Pool.Max = %d, want 2", h.Pool.Max)
	}
	if h.CacheBytes != s.Pool().Cache().Bytes() || h.CacheBytes == 0 {
		t.Errorf("CacheBytes = %d", h.CacheBytes)
	}
}

func TestWebSocketPing(t *testing.T) {
	_, ts := newTestServer(t)
	ws := dial(t, ts)

	send(t, ws, "ping", "ping-1", nil)
	resp := receive(t, ws)
	if resp.Type != "pong" || resp.ID != "ping-1" {
		t.Errorf("got %+v, want pong ping-1", resp)
	}
}

func TestWebSocketPerft(t *testing.T) {
	s, ts := newTestServer(t)
	ws := dial(t, ts)

	send(t, ws, "perft", "p1", PerftRequest{Depth: 4})
	resp := receive(t, ws)
	if resp.Type != "result" {
		t.Fatalf("Type = %q (%s), want result", resp.Type, resp.Error)
	}
	var res PerftResult
	if err := json.Unmarshal(resp.Payload, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Nodes != 197281 {
		t.Errorf("Nodes = %d, want 197281", res.Nodes)
	}
	if res.FEN != bitmg.FENStartPos {
		t.Errorf("FEN = %q", res.FEN)
	}
	if got := s.Pool().Stats().Total; got != 1 {
		t.Errorf("pool total = %d, want 1", got)
	}
}

func TestWebSocketDivide(t *testing.T) {
	_, ts := newTestServer(t)
	ws := dial(t, ts)

	fen := "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"
	send(t, ws, "perft", "d1", PerftRequest{FEN: fen, Depth: 3, Divide: true})

	streamed := make(map[string]uint64)
	for {
		resp := receive(t, ws)
		if resp.ID != "d1" {
			t.Fatalf("ID = %q", resp.ID)
		}
		if resp.Type == "result" {
			var res PerftResult
			if err := json.Unmarshal(resp.Payload, &res); err != nil {
				t.Fatalf("decode result: %v", err)
			}
			if res.Nodes != 97862 {
				t.Errorf("Nodes = %d, want 97862", res.Nodes)
			}
			if len(res.Divide) != 48 || len(streamed) != 48 {
				t.Fatalf("divide lines: result %d streamed %d, want 48", len(res.Divide), len(streamed))
			}
			for i, d := range res.Divide {
				if i > 0 && res.Divide[i-1].Move >= d.Move {
					t.Errorf("divide not sorted at %d: %s after %s", i, d.Move, res.Divide[i-1].Move)
				}
				if streamed[d.Move] != d.Nodes {
					t.Errorf("%s: streamed %d, result %d", d.Move, streamed[d.Move], d.Nodes)
				}
			}
			return
		}
		if resp.Type != "divide" {
			t.Fatalf("Type = %q (%s), want divide", resp.Type, resp.Error)
		}
		var line DivideLine
		if err := json.Unmarshal(resp.Payload, &line); err != nil {
			t.Fatalf("decode divide: %v", err)
		}
		streamed[line.Move] = line.Nodes
	}
}

func TestWebSocketErrors(t *testing.T) {
	_, ts := newTestServer(t)
	ws := dial(t, ts)

	tests := []struct {
		name    string
		typ     string
		payload any
		want    string
	}{
		{"unknown type", "evaluate", nil, "unknown message type"},
		{"bad payload", "perft", "not an object", "invalid payload"},
		{"bad fen", "perft", PerftRequest{FEN: "8/8/8/8 w - - 0 1", Depth: 1}, "invalid FEN"},
		{"too deep", "perft", PerftRequest{Depth: 9}, "depth must be between 0 and 5"},
		{"negative", "perft", PerftRequest{Depth: -1}, "depth must be between 0 and 5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, ws, tt.typ, tt.name, tt.payload)
			resp := receive(t, ws)
			if resp.Type != "error" || resp.ID != tt.name {
				t.Fatalf("got %+v, want error", resp)
			}
			if !strings.Contains(resp.Error, tt.want) {
				t.Errorf("Error = %q, want %q", resp.Error, tt.want)
			}
		})
	}
}

func TestJobPoolBlocksWhenFull(t *testing.T) {
	pool, err := NewJobPool(1, testEngineOptions())
	if err != nil {
		t.Fatalf("NewJobPool: %v", err)
	}
	e, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if pool.Stats().Active != 1 {
		t.Errorf("Active = %d, want 1", pool.Stats().Active)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := pool.Acquire(ctx); err == nil {
		t.Fatal("second Acquire should time out")
	}

	pool.Release(e)
	again, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	if again != e {
		t.Error("expected the released engine back")
	}
	pool.Release(again)
	if st := pool.Stats(); st.Total != 2 || st.Active != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestJobPoolRejectsBadOptions(t *testing.T) {
	opts := testEngineOptions()
	opts.Workers = 0
	if _, err := NewJobPool(2, opts); err == nil {
		t.Fatal("expected an error for zero workers")
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	s, err := NewServer(cfg, testEngineOptions())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServe: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
