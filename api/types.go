package api

import "encoding/json"

// WSMessage is a client request.
type WSMessage struct {
	Type    string          `json:"type"` // "perft" or "ping"
	ID      string          `json:"id"`   // echoed in every response
	Payload json.RawMessage `json:"payload"`
}

// WSResponse is a server message. A perft job answers with zero or more
// "divide" messages followed by one "result" or "error".
type WSResponse struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PerftRequest asks for the leaf count of a position.
type PerftRequest struct {
	FEN    string `json:"fen"` // empty means the initial position
	Depth  int    `json:"depth"`
	Divide bool   `json:"divide"` // stream one count per root move
}

// DivideLine is the count below one root move.
type DivideLine struct {
	Move  string `json:"move"`
	Nodes uint64 `json:"nodes"`
}

// PerftResult is the final message of a job.
type PerftResult struct {
	FEN     string       `json:"fen"`
	Depth   int          `json:"depth"`
	Nodes   uint64       `json:"nodes"`
	Divide  []DivideLine `json:"divide,omitempty"` // sorted by move
	Seconds float64      `json:"seconds"`
	NPS     float64      `json:"nps"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status     string    `json:"status"`
	Version    string    `json:"version"`
	CacheBytes int64     `json:"cache_bytes"`
	Pool       PoolStats `json:"pool"`
}
