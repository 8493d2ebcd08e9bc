package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"chess-perft/bitmg"
	"chess-perft/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsClient struct {
	conn   *websocket.Conn
	server *Server
	send   chan WSResponse
	log    zerolog.Logger
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	c := &wsClient{
		conn:   conn,
		server: s,
		send:   make(chan WSResponse, 256),
		log:    s.log.With().Str("remote", r.RemoteAddr).Logger(),
	}
	go c.writePump()
	c.readPump(r.Context())
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			c.log.Debug().Err(err).Msg("websocket write")
			return
		}
	}
}

// readPump handles requests one at a time; a client wanting parallel jobs
// opens more connections.
func (c *wsClient) readPump(ctx context.Context) {
	defer func() {
		close(c.send)
		c.conn.Close()
	}()
	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.handleMessage(ctx, msg)
	}
}

func (c *wsClient) handleMessage(ctx context.Context, msg WSMessage) {
	switch msg.Type {
	case "perft":
		c.handlePerft(ctx, msg)
	case "ping":
		c.send <- WSResponse{Type: "pong", ID: msg.ID}
	default:
		c.fail(msg.ID, "unknown message type")
	}
}

func (c *wsClient) fail(id, reason string) {
	c.send <- WSResponse{Type: "error", ID: id, Error: reason}
}

func (c *wsClient) handlePerft(ctx context.Context, msg WSMessage) {
	var req PerftRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.fail(msg.ID, "invalid payload")
		return
	}
	if req.FEN == "" {
		req.FEN = bitmg.FENStartPos
	}
	p, err := bitmg.ParseFEN(req.FEN)
	if err != nil {
		c.fail(msg.ID, err.Error())
		return
	}
	if maxDepth := c.server.cfg.MaxDepth; req.Depth < 0 || req.Depth > maxDepth {
		c.fail(msg.ID, fmt.Sprintf("depth must be between 0 and %d", maxDepth))
		return
	}

	e, err := c.server.pool.Acquire(ctx)
	if err != nil {
		c.fail(msg.ID, "server busy")
		return
	}
	defer c.server.pool.Release(e)

	start := time.Now()
	res := PerftResult{FEN: p.FEN(), Depth: req.Depth}
	if req.Divide && req.Depth > 0 {
		res.Divide = c.divide(msg.ID, e, &p, req.Depth)
		for _, d := range res.Divide {
			res.Nodes += d.Nodes
		}
	} else {
		res.Nodes = e.Perft(&p, req.Depth)
	}
	res.Seconds = time.Since(start).Seconds()
	if res.Seconds > 0 {
		res.NPS = float64(res.Nodes) / res.Seconds
	}

	c.log.Info().
		Str("id", msg.ID).
		Str("fen", res.FEN).
		Int("depth", res.Depth).
		Uint64("nodes", res.Nodes).
		Float64("seconds", res.Seconds).
		Msg("perft job done")
	c.send <- WSResponse{Type: "result", ID: msg.ID, Payload: res}
}

// divide streams one line per root move as soon as it is counted and
// returns all lines sorted by move.
func (c *wsClient) divide(id string, e *engine.Engine, p *bitmg.Position, depth int) []DivideLine {
	counts := make(map[string]uint64)
	e.DivideFunc(p, depth, func(d bitmg.DivideEntry) {
		counts[d.Move.String()] = d.Nodes
		c.send <- WSResponse{Type: "divide", ID: id, Payload: DivideLine{Move: d.Move.String(), Nodes: d.Nodes}}
	})

	moves := maps.Keys(counts)
	slices.Sort(moves)
	lines := make([]DivideLine, len(moves))
	for i, mv := range moves {
		lines[i] = DivideLine{Move: mv, Nodes: counts[mv]}
	}
	return lines
}
