package counters

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/esora/officine/internal/platform/httpx"
)

// SourceResolver returns the counter source bound to the caller of r.
type SourceResolver func(r *http.Request) (Source, bool)

// Handler serves counter snapshots as JSON and as an event stream.
type Handler struct {
	logger   *slog.Logger
	sources  SourceResolver
	interval time.Duration
	kinds    []Kind
}

// NewHandler constructs a Handler polling kinds every interval.
func NewHandler(logger *slog.Logger, sources SourceResolver, interval time.Duration, kinds ...Kind) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if len(kinds) == 0 {
		kinds = []Kind{PendingOrders, UnreadNotifications}
	}
	return &Handler{logger: logger, sources: sources, interval: interval, kinds: kinds}
}

// MountRoutes registers the snapshot and stream endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.snapshot)
	r.Get("/stream", h.stream)
}

// errNoSession answers counter requests made without a signed-in user.
var errNoSession = fmt.Errorf("counters: no session: %w", httpx.ErrUnauthorized)

// Current polls once for the caller of r. It returns an empty snapshot when
// no source is bound.
func (h *Handler) Current(r *http.Request) Snapshot {
	source, ok := h.sources(r)
	if !ok {
		return Snapshot{}
	}
	snap, _ := NewPoller(source, h.interval, h.logger, h.kinds...).Poll(r.Context())
	if snap == nil {
		return Snapshot{}
	}
	return snap
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sources(r); !ok {
		httpx.RespondError(w, errNoSession)
		return
	}
	httpx.JSON(w, http.StatusOK, h.Current(r))
}

// stream runs a Poller for the lifetime of the connection. Closing the
// connection cancels the request context, which stops the poller.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	source, ok := h.sources(r)
	if !ok {
		httpx.RespondError(w, errNoSession)
		return
	}
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Warn("counter stream not flushable", slog.Any("error", err))
		return
	}

	poller := NewPoller(source, h.interval, h.logger, h.kinds...)
	poller.Run(r.Context(), func(snap Snapshot) {
		payload, err := json.Marshal(snap)
		if err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "event: counters\ndata: %s\n\n", payload); err != nil {
			return
		}
		_ = rc.Flush()
	})
}
