package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	domain "github.com/bryanwahyu/geoscan/internal/domain/scans"
)

var errStreamUnsupported = errors.New("streaming unsupported")

type notFoundEvent struct {
	Error string `json:"error"`
}

// GET /v1/scans/{id}/stream
// Server-sent events, satu snapshot per poll sampai scan selesai.
func (r *Router) handleStream(w http.ResponseWriter, req *http.Request) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return errStreamUnsupported
	}
	id := domain.ScanID(strings.TrimSpace(scanParam(req)))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	ctx := req.Context()
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()
	for {
		done, v := r.poll1(req, id)
		if err := send(v); err != nil {
			r.log.Debug("stream closed", "scan_id", id, "err", err)
			return nil
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// GET /v1/scans/{id}/ws
func (r *Router) handleWebsocket(w http.ResponseWriter, req *http.Request) error {
	id := domain.ScanID(strings.TrimSpace(scanParam(req)))
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// Upgrade already answered the client.
		r.log.Warn("websocket upgrade failed", "scan_id", id, "err", err)
		return nil
	}
	defer conn.Close()

	// reader loop only detects the peer going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()
	for {
		done, v := r.poll1(req, id)
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(v); err != nil {
			r.log.Debug("websocket closed", "scan_id", id, "err", err)
			return nil
		}
		if done {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "scan finished")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return nil
		}
		select {
		case <-req.Context().Done():
			return nil
		case <-gone:
			return nil
		case <-ticker.C:
		}
	}
}

// poll1 reads one snapshot. done is true once nothing more will change.
func (r *Router) poll1(req *http.Request, id domain.ScanID) (bool, any) {
	if err := validID(id); err != nil {
		return true, notFoundEvent{Error: "Scan not found"}
	}
	snap, err := r.scansSvc.Snapshot(req.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return true, notFoundEvent{Error: "Scan not found"}
	case err != nil:
		r.log.Error("snapshot failed", "scan_id", id, "err", err)
		return true, notFoundEvent{Error: "Scan not found"}
	}
	return snap.Status.Terminal(), snap
}

// originChecker allows same-host upgrades plus the configured CORS origins.
func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(strings.ToLower(o), "/")] = true
	}
	return func(req *http.Request) bool {
		origin := req.Header.Get("Origin")
		if origin == "" || allowed["*"] || allowed[strings.ToLower(origin)] {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, req.Host)
	}
}
