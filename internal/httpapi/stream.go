package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ace-232/day-planner-app/internal/notify"
)

// stream holds a server-sent event connection for the authenticated user
// until the client goes away or the hub shuts down. Each routed payload is
// written as one "data:" frame; comment frames keep idle proxies from
// closing the connection.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// The server-wide write timeout would cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.log.Error("streaming unsupported", "error", err)
		return
	}

	conn := s.cfg.Hub.Register(userID(r))
	defer s.cfg.Hub.Unregister(conn)
	s.log.Debug("stream opened", "user_id", conn.UserID, "conn", conn.ID)

	ticker := time.NewTicker(s.cfg.Heartbeat)
	defer ticker.Stop()
	for {
		var err error
		select {
		case <-r.Context().Done():
			s.log.Debug("stream closed by client", "user_id", conn.UserID, "conn", conn.ID)
			return
		case <-conn.Done():
			return
		case ev := <-conn.Events():
			_, err = fmt.Fprintf(w, "data: %s\n\n", ev)
		case <-ticker.C:
			_, err = io.WriteString(w, ": ping\n\n")
		}
		if err == nil {
			err = rc.Flush()
		}
		if err != nil {
			s.log.Debug("stream write failed", "user_id", conn.UserID, "conn", conn.ID, "error", err)
			return
		}
	}
}

// notify routes a notification forwarded by a worker to the user's live
// connections.
func (s *Server) notify(w http.ResponseWriter, r *http.Request) {
	var req notify.Request
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	n, err := s.cfg.Hub.Route(req.UserID, req.Message)
	if err != nil {
		s.log.Error("failed to route notification", "error", err, "user_id", req.UserID)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	s.log.Debug("notification routed",
		"user_id", req.UserID,
		"task_id", req.Message.TaskID,
		"attempt", r.Header.Get(notify.AttemptHeader),
		"connections", n,
	)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Queue       any    `json:"queue,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Connections: s.cfg.Hub.Len()}
	if s.cfg.Ping != nil {
		if err := s.cfg.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Error = err.Error()
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	if s.cfg.Stats != nil {
		if st, err := s.cfg.Stats.Stats(ctx); err == nil {
			resp.Queue = st
		} else {
			s.log.Warn("queue stats unavailable", "error", err)
		}
	}
	respondJSON(w, http.StatusOK, resp)
}
