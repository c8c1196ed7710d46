package statusapi

import "time"

// StatusResponse mirrors dnapb.StatusResponse for clients that would
// rather poll a plain HTTP endpoint than open a gRPC channel.
type StatusResponse struct {
	ChainName     string `json:"chain_name"`
	CurrentHead   uint64 `json:"current_head"`
	LastIngested  uint64 `json:"last_ingested"`
	Finalized     uint64 `json:"finalized"`
	StartingBlock uint64 `json:"starting_block"`
}

// HealthResponse is the liveness body: Status is always "ok", and Head is
// the chain view's current head (it does not report whether it advances).
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	ChainName string    `json:"chain_name"`
	Head      uint64    `json:"head"`
}

// ErrorResponse is the uniform error body for every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
