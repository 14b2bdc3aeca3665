// Package net exposes the session over HTTP: join, the websocket
// event stream and the operator query surface for the combat journal.
package net

import (
	"encoding/json"
	"io"
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"duskhaven/server/internal/bestiary"
	"duskhaven/server/internal/hub"
	"duskhaven/server/internal/net/proto"
	"duskhaven/server/internal/net/ws"
	"duskhaven/server/internal/telemetry"
	"duskhaven/server/logging"
)

// HTTPHandlerConfig wires the handler's collaborators.
type HTTPHandlerConfig struct {
	Logger    telemetry.Logger
	Publisher logging.Publisher
	Catalog   *bestiary.Catalog
}

type joinRequest struct {
	ID string `json:"id,omitempty"`
}

// NewHTTPHandler builds the full route table for one session.
func NewHTTPHandler(h *hub.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	sessions := ws.NewHandler(h, cfg.Logger, cfg.Publisher)

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status         string          `json:"status"`
			ServerTime     int64           `json:"serverTime"`
			TickIntervalMS int64           `json:"tickIntervalMs"`
			Session        hub.Diagnostics `json:"session"`
		}{
			Status:         "ok",
			ServerTime:     time.Now().UnixMilli(),
			TickIntervalMS: h.TickInterval().Milliseconds(),
			Session:        h.DiagnosticsSnapshot(),
		}
		writeJSON(w, payload)
	})

	mux.HandleFunc("/join", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		var req joinRequest
		if r.Body != nil {
			defer r.Body.Close()
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
				httpError(w, "invalid payload", nethttp.StatusBadRequest)
				return
			}
		}

		join, err := h.Join(r.Context(), req.ID)
		if err != nil {
			logf(logger, "join failed: %v", err)
			httpError(w, "join failed", nethttp.StatusServiceUnavailable)
			return
		}

		writeJSON(w, proto.JoinedMessage{
			Ver:            proto.Version,
			Type:           proto.TypeJoined,
			ID:             join.ID,
			Spawn:          proto.TilePosition{X: join.Spawn.X, Z: join.Spawn.Z},
			Tick:           join.Tick,
			TickIntervalMS: h.TickInterval().Milliseconds(),
		})
	})

	mux.HandleFunc("/archetypes", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		catalog := cfg.Catalog
		if catalog == nil {
			catalog = bestiary.Builtin()
		}
		archetypes := make([]bestiary.Archetype, 0, catalog.Len())
		for _, id := range catalog.IDs() {
			if a, ok := catalog.Get(id); ok {
				archetypes = append(archetypes, a)
			}
		}
		writeJSON(w, struct {
			Archetypes []bestiary.Archetype `json:"archetypes"`
		}{Archetypes: archetypes})
	})

	mux.HandleFunc("/journal/events", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		from, ok := queryTick(r, "from", 0)
		if !ok {
			httpError(w, "invalid from", nethttp.StatusBadRequest)
			return
		}
		to, ok := queryTick(r, "to", h.Tick())
		if !ok {
			httpError(w, "invalid to", nethttp.StatusBadRequest)
			return
		}

		journal := h.Journal()
		var events any
		if entity := r.URL.Query().Get("entity"); entity != "" {
			events = journal.EventsFor(entity, from, to)
		} else {
			events = journal.EventsBetween(from, to)
		}
		writeJSON(w, struct {
			FromTick uint64 `json:"fromTick"`
			ToTick   uint64 `json:"toTick"`
			Events   any    `json:"events"`
		}{FromTick: from, ToTick: to, Events: events})
	})

	mux.HandleFunc("/journal/verify", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		from, ok := queryTick(r, "from", 0)
		if !ok {
			httpError(w, "invalid from", nethttp.StatusBadRequest)
			return
		}
		to, ok := queryTick(r, "to", h.Tick())
		if !ok {
			httpError(w, "invalid to", nethttp.StatusBadRequest)
			return
		}

		anomalies := h.VerifyRange(from, to)
		writeJSON(w, struct {
			FromTick  uint64 `json:"fromTick"`
			ToTick    uint64 `json:"toTick"`
			Anomalies any    `json:"anomalies"`
			Clean     bool   `json:"clean"`
		}{FromTick: from, ToTick: to, Anomalies: anomalies, Clean: len(anomalies) == 0})
	})

	mux.HandleFunc("/journal/replay", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		snapshotTick, ok := queryTick(r, "snapshot", 0)
		if !ok {
			httpError(w, "invalid snapshot", nethttp.StatusBadRequest)
			return
		}
		to, ok := queryTick(r, "to", h.Tick())
		if !ok {
			httpError(w, "invalid to", nethttp.StatusBadRequest)
			return
		}

		report, err := h.ReplayVerify(snapshotTick, to)
		if err != nil {
			httpError(w, err.Error(), nethttp.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, report)
	})

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	mux.HandleFunc("/ws", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		playerID := r.URL.Query().Get("id")
		if playerID == "" {
			httpError(w, "missing id", nethttp.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(logger, "upgrade failed for %s: %v", playerID, err)
			return
		}

		go sessions.Serve(playerID, conn)
	})

	return mux
}

// queryTick parses an optional tick query parameter.
func queryTick(r *nethttp.Request, name string, fallback uint64) (uint64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func writeJSON(w nethttp.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func logf(logger telemetry.Logger, format string, args ...any) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
