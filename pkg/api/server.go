// Package api exposes the engine over plain HTTP and Server-Sent Events:
// submit/status/cancel/stream on individual messages, plus read-only queue
// and thread listings.
//
// Routing uses plain net/http (ServeMux + HandleFunc) rather than a gRPC
// service or a third-party router, leaning on Go 1.22's method- and
// wildcard-aware ServeMux patterns ("GET /messages/{id}/status").
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cuemby/promptrelay/pkg/apierr"
	"github.com/cuemby/promptrelay/pkg/broadcaster"
	"github.com/cuemby/promptrelay/pkg/engine"
	"github.com/cuemby/promptrelay/pkg/log"
	"github.com/cuemby/promptrelay/pkg/metrics"
	"github.com/cuemby/promptrelay/pkg/types"
	"github.com/rs/zerolog"
)

// Server is the HTTP surface in front of an *engine.Engine.
type Server struct {
	logger    zerolog.Logger
	engine    *engine.Engine
	keepalive time.Duration
	mux       *http.ServeMux
}

// NewServer builds a Server routing requests to e. keepalive is the interval
// between SSE comment-line pings on an otherwise idle stream.
func NewServer(e *engine.Engine, keepalive time.Duration) *Server {
	if keepalive <= 0 {
		keepalive = 30 * time.Second
	}
	s := &Server{
		logger:    log.WithComponent("api"),
		engine:    e,
		keepalive: keepalive,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the http.Handler to mount, e.g. in an *http.Server.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.handle("POST /messages", s.handleSubmit)
	s.handle("GET /messages/{id}/status", s.handleStatus)
	s.handle("GET /messages/{id}/stream", s.handleStream)
	s.handle("DELETE /messages/{id}", s.handleCancel)
	s.handle("GET /queue", s.handleQueue)
	s.handle("GET /threads", s.handleThreads)
	s.handle("GET /threads/{id}", s.handleThread)
	s.handle("GET /threads/{id}/messages", s.handleThreadMessages)

	s.mux.Handle("GET /healthz", metrics.HealthHandler())
	s.mux.Handle("GET /readyz", metrics.ReadyHandler())
	s.mux.Handle("GET /metrics", metrics.Handler())
}

// handle wraps fn with route-labeled request count/latency instrumentation,
// registering it under pattern exactly as ServeMux sees it.
func (s *Server) handle(pattern string, fn http.HandlerFunc) {
	_, route, _ := splitPattern(pattern)
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		metrics.APIRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		timer.ObserveDurationVec(metrics.APIRequestDuration, route)
	})
}

// splitPattern strips the method prefix ServeMux patterns carry, leaving a
// label stable across status codes for the route dimension of request metrics.
func splitPattern(pattern string) (method, route string, ok bool) {
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == ' ' {
			return pattern[:i], pattern[i+1:], true
		}
	}
	return "", pattern, false
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// --- request/response payloads ---

type submitRequest struct {
	UserMessage string `json:"user_message"`
	Priority    string `json:"priority"`
	ThreadID    string `json:"thread_id"`
}

// submitResponse is the POST /messages success body: a narrow projection
// of the newly admitted message, not the full status projection.
type submitResponse struct {
	ID            string    `json:"id"`
	State         string    `json:"state"`
	QueuePosition *int      `json:"queue_position"`
	CreatedAt     time.Time `json:"created_at"`
	ThreadID      string    `json:"thread_id,omitempty"`
}

func toSubmitResponse(m *types.Message) submitResponse {
	return submitResponse{
		ID:            m.ID,
		State:         string(m.State),
		QueuePosition: m.QueuePosition,
		CreatedAt:     m.CreatedAt,
		ThreadID:      m.ThreadID,
	}
}

// messageDTO is the full message status projection returned by
// GET /messages/{id}/status and the queue/thread listings.
type messageDTO struct {
	MessageID     string     `json:"message_id"`
	UserMessage   string     `json:"user_message"`
	Priority      string     `json:"priority"`
	ThreadID      string     `json:"thread_id,omitempty"`
	State         string     `json:"state"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Result        *string    `json:"result,omitempty"`
	Error         *string    `json:"error,omitempty"`
	QueuePosition *int       `json:"queue_position"`
}

func toMessageDTO(m *types.Message) messageDTO {
	return messageDTO{
		MessageID:     m.ID,
		UserMessage:   m.UserMessage,
		Priority:      string(m.Priority),
		ThreadID:      m.ThreadID,
		State:         string(m.State),
		CreatedAt:     m.CreatedAt,
		StartedAt:     m.StartedAt,
		CompletedAt:   m.CompletedAt,
		Result:        m.Result,
		Error:         m.Error,
		QueuePosition: m.QueuePosition,
	}
}

func toMessageDTOs(msgs []*types.Message) []messageDTO {
	out := make([]messageDTO, len(msgs))
	for i, m := range msgs {
		out[i] = toMessageDTO(m)
	}
	return out
}

type queueResponse struct {
	Queued     int          `json:"queued"`
	Processing int          `json:"processing"`
	Completed  int          `json:"completed"`
	Failed     int          `json:"failed"`
	Cancelled  int          `json:"cancelled"`
	Messages   []messageDTO `json:"messages"`
}

type threadDTO struct {
	ThreadID           string         `json:"thread_id"`
	MessageCount       int            `json:"message_count"`
	CreatedAt          time.Time      `json:"created_at"`
	LastActivity       time.Time      `json:"last_activity"`
	States             map[string]int `json:"states"`
	LastMessagePreview string         `json:"last_message_preview,omitempty"`
}

func toThreadDTO(tm *types.ThreadMetadata) threadDTO {
	states := make(map[string]int, len(tm.States))
	for state, count := range tm.States {
		states[string(state)] = count
	}
	return threadDTO{
		ThreadID:           tm.ThreadID,
		MessageCount:       tm.MessageCount,
		CreatedAt:          tm.CreatedAt,
		LastActivity:       tm.LastActivity,
		States:             states,
		LastMessagePreview: tm.LastMessagePreview,
	}
}

// --- handlers ---

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apierr.ErrInvalidInput)
		return
	}

	msg, err := s.engine.Submit(req.UserMessage, types.Priority(req.Priority), req.ThreadID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, toSubmitResponse(msg))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	msg, err := s.engine.Store.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageDTO(msg))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Cancel(r.PathValue("id")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	summary := s.engine.Store.Summary()
	writeJSON(w, http.StatusOK, queueResponse{
		Queued:     summary.Queued,
		Processing: summary.Processing,
		Completed:  summary.Completed,
		Failed:     summary.Failed,
		Cancelled:  summary.Cancelled,
		Messages:   toMessageDTOs(s.engine.Store.ListQueued()),
	})
}

func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) {
	threads := s.engine.Store.Threads()
	out := make([]threadDTO, len(threads))
	for i, tm := range threads {
		out[i] = toThreadDTO(tm)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	tm, err := s.engine.Store.ThreadMetadata(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, toThreadDTO(tm))
}

func (s *Server) handleThreadMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.engine.Store.ThreadMessages(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageDTOs(msgs))
}

// handleStream serves the SSE feed for one message: replay buffer first,
// then live events, with a comment-line keepalive on idle periods.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	replay, ch, found := s.engine.Broadcaster.Subscribe(id)
	if !found {
		writeError(w, http.StatusNotFound, apierr.ErrNotFound)
		return
	}
	defer s.engine.Broadcaster.Unsubscribe(id, ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	metrics.StreamSubscribers.Inc()
	defer metrics.StreamSubscribers.Dec()

	for _, ev := range replay {
		if err := writeSSEEvent(w, ev); err != nil {
			return
		}
	}
	flusher.Flush()

	ticker := time.NewTicker(s.keepalive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, ev); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, ev broadcaster.Event) error {
	payload, err := json.Marshal(ssePayload(ev))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
	return err
}

func ssePayload(ev broadcaster.Event) any {
	switch ev.Type {
	case broadcaster.EventWaiting:
		return map[string]any{
			"state":    "queued",
			"position": ev.Position,
			"message":  "Waiting in queue",
		}
	case broadcaster.EventChunk:
		return map[string]any{
			"type":  "content",
			"chunk": ev.ChunkText,
			"index": ev.ChunkIndex,
		}
	case broadcaster.EventDone:
		return map[string]any{
			"state":        "completed",
			"result":       ev.Result,
			"completed_at": ev.CompletedAt,
		}
	case broadcaster.EventError:
		return map[string]any{
			"state":        "failed",
			"error":        ev.ErrorMessage,
			"completed_at": ev.CompletedAt,
		}
	case broadcaster.EventCancelled:
		return map[string]any{
			"state":        "cancelled",
			"completed_at": ev.CompletedAt,
		}
	default:
		return map[string]any{}
	}
}

// --- error mapping ---

func statusFor(err error) int {
	switch {
	case errors.Is(err, apierr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apierr.ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, apierr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apierr.ErrNotCancellable):
		return http.StatusConflict
	case errors.Is(err, apierr.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, apierr.ErrShuttingDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Start runs the HTTP server on addr until ctx is cancelled, then shuts it
// down gracefully.
func Start(ctx context.Context, addr string, handler http.Handler, logger zerolog.Logger) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE streams can run indefinitely
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("api server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
