package statusapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dna-engine/dna/internal/logger"
)

// ChainView is the narrow read-only surface statusapi needs from the
// ingestion engine's view. It is satisfied structurally by
// *ingestor.Ingestor and by internal/view.View without either package
// needing to import statusapi.
type ChainView interface {
	Head() uint64
	Finalized() uint64
}

// Handler serves the status/health HTTP endpoints.
type Handler struct {
	chainName     string
	startingBlock uint64
	view          ChainView
	log           *logger.Logger
}

// NewHandler constructs a Handler.
func NewHandler(chainName string, startingBlock uint64, view ChainView, log *logger.Logger) *Handler {
	return &Handler{
		chainName:     chainName,
		startingBlock: startingBlock,
		view:          view,
		log:           log,
	}
}

// Status mirrors the gRPC StreamService's unary Status RPC as plain JSON.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, StatusResponse{
		ChainName:     h.chainName,
		CurrentHead:   h.view.Head(),
		LastIngested:  h.view.Head(),
		Finalized:     h.view.Finalized(),
		StartingBlock: h.startingBlock,
	})
}

// Health reports liveness. It always answers "ok"; reading the head takes
// the view's read lock, so it waits while an ingestor tick holds the lock.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		ChainName: h.chainName,
		Head:      h.view.Head(),
	})
}

// respondJSON encodes data before writing the status line, so an encoding
// failure never leaves a response with headers sent but no body.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")

	encoded, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(encoded)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
