package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/sandeepstha184/IR-assignment123/pkg/errors"
)

const maxHistory = 100

// SnapshotLister is satisfied by the Postgres snapshot store.
type SnapshotLister interface {
	ListSnapshots(ctx context.Context, limit int) ([]AggregatedStats, error)
}

type statsResponse struct {
	Live    AggregatedStats   `json:"live"`
	History []AggregatedStats `json:"history,omitempty"`
}

type Handler struct {
	aggregator *Aggregator
	history    SnapshotLister
	logger     *slog.Logger
}

// NewHandler serves live stats; history may be nil.
func NewHandler(aggregator *Aggregator, history SnapshotLister) *Handler {
	return &Handler{
		aggregator: aggregator,
		history:    history,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// Stats serves the live aggregate. With ?history=N it also includes the
// last N persisted snapshots, newest first.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{Live: h.aggregator.Stats()}
	if v := r.URL.Query().Get("history"); v != "" {
		snaps, err := h.loadHistory(r.Context(), v)
		if err != nil {
			h.fail(w, err)
			return
		}
		resp.History = snaps
	}
	h.write(w, http.StatusOK, resp)
}

func (h *Handler) loadHistory(ctx context.Context, raw string) ([]AggregatedStats, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxHistory {
		return nil, apperrors.Invalid("history must be an integer between 1 and %d", maxHistory)
	}
	if h.history == nil {
		return nil, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "snapshot history is disabled")
	}
	snaps, err := h.history.ListSnapshots(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("listing %d snapshots: %w", n, err)
	}
	return snaps, nil
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status, body := apperrors.Response(err, "failed to load snapshot history")
	if status >= http.StatusInternalServerError {
		h.logger.Error("analytics request failed", "error", err)
	}
	h.write(w, status, body)
}

func (h *Handler) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("writing analytics response", "error", err)
	}
}
