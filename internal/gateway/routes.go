package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ai2b/zena/internal/domain"
	"github.com/ai2b/zena/internal/graph"
	"github.com/ai2b/zena/internal/llm"
	"github.com/ai2b/zena/internal/metrics"
	"github.com/ai2b/zena/internal/version"
)

// invokeTimeout bounds one graph invocation end to end.
const invokeTimeout = 5 * time.Minute

// maxInvokeBody caps the request body size.
const maxInvokeBody = 1 << 20

// InvokeRequest is the body of POST /graphs/{name}/invoke.
type InvokeRequest struct {
	ChannelID   string `json:"channelId"`
	ChatID      string `json:"chatId"`
	Persona     string `json:"persona,omitempty"` // overrides the channel's persona
	Message     string `json:"message"`
	DialogState string `json:"dialogState,omitempty"`
}

// InvokeResponse is the result of an invocation.
type InvokeResponse struct {
	Reply       string    `json:"reply"`
	DialogState string    `json:"dialogState"`
	Persona     string    `json:"persona"`
	Usage       llm.Usage `json:"usage"`
	DurationMs  int64     `json:"durationMs"`
}

type graphInfo struct {
	Name     string   `json:"name"`
	Personas []string `json:"personas"`
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /graphs", s.requireAuth(s.handleListGraphs))
	mux.HandleFunc("POST /graphs/{name}/invoke", s.requireAuth(s.handleInvoke))
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.Version,
		"uptimeS": int(time.Since(s.startedAt).Seconds()),
		"graphs":  s.registry.Names(),
	})
}

func (s *Server) handleListGraphs(w http.ResponseWriter, _ *http.Request) {
	personas := make([]string, 0)
	for _, p := range domain.SortedPersonas(s.cfg.Personas) {
		personas = append(personas, p.Name)
	}
	infos := make([]graphInfo, 0)
	for _, name := range s.registry.Names() {
		infos = append(infos, graphInfo{Name: name, Personas: personas})
	}
	writeJSON(w, http.StatusOK, map[string]any{"graphs": infos})
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req InvokeRequest
	body := http.MaxBytesReader(w, r.Body, maxInvokeBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := s.invoke(r, name, req)
	if err != nil {
		status := http.StatusInternalServerError
		var ie *invokeError
		if errors.As(err, &ie) {
			status = ie.status
		}
		metrics.Invocations.WithLabelValues(name, "error").Inc()
		writeError(w, status, err.Error())
		return
	}
	metrics.Invocations.WithLabelValues(name, "ok").Inc()
	writeJSON(w, http.StatusOK, resp)
}

type invokeError struct {
	status int
	msg    string
}

func (e *invokeError) Error() string { return e.msg }

// invoke validates the request, resolves the persona and graph, and runs
// the invocation.
func (s *Server) invoke(r *http.Request, name string, req InvokeRequest) (*InvokeResponse, error) {
	if req.ChannelID == "" || req.ChatID == "" {
		return nil, &invokeError{http.StatusBadRequest, "channelId and chatId are required"}
	}
	if req.Message == "" && !strings.HasSuffix(name, "_redialog_graph") {
		return nil, &invokeError{http.StatusBadRequest, "message is required"}
	}

	persona, err := s.resolvePersona(r, req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(r.Context(), invokeTimeout)
	defer cancel()

	g, err := s.registry.Get(ctx, name, persona)
	if err != nil {
		return nil, &invokeError{http.StatusNotFound, err.Error()}
	}

	st := &graph.State{
		ChannelID:   req.ChannelID,
		ChatID:      req.ChatID,
		UserMessage: req.Message,
		DialogState: domain.DialogState(req.DialogState),
	}

	start := time.Now()
	if err := g.Invoke(ctx, st); err != nil {
		s.log.Error().Err(err).Str("graph", name).Str("channel_id", req.ChannelID).Msg("invocation failed")
		return nil, fmt.Errorf("invocation failed: %w", err)
	}

	return &InvokeResponse{
		Reply:       st.Reply,
		DialogState: string(st.DialogState),
		Persona:     persona.Name,
		Usage:       st.Usage,
		DurationMs:  time.Since(start).Milliseconds(),
	}, nil
}

// resolvePersona picks the persona from the request, falling back to the
// channel record.
func (s *Server) resolvePersona(r *http.Request, req InvokeRequest) (domain.Persona, error) {
	name := req.Persona
	if name == "" {
		ch, err := s.store.Channel(r.Context(), req.ChannelID)
		if err == nil {
			name = ch.Persona
		}
	}
	if name == "" {
		return domain.Persona{}, &invokeError{http.StatusBadRequest, "persona is required for an unregistered channel"}
	}
	port, ok := s.cfg.Personas[name]
	if !ok {
		return domain.Persona{}, &invokeError{http.StatusBadRequest, fmt.Sprintf("unknown persona %q", name)}
	}
	return domain.Persona{Name: name, MCPPort: port}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// wsRequest is a client frame on the dialog stream: an invocation request.
type wsRequest struct {
	ID    string `json:"id,omitempty"`
	Graph string `json:"graph"`
	InvokeRequest
}

// wsEvent is a server frame on the dialog stream.
type wsEvent struct {
	ID    string          `json:"id,omitempty"`
	Type  string          `json:"type"` // "accepted" | "reply" | "error"
	Data  *InvokeResponse `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// handleWebSocket runs a persistent dialog stream: each frame the client
// sends is one invocation, answered with an accepted event and then the
// reply (or an error) carrying the same ID.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxInvokeBody)

	s.log.Debug().Str("remote", r.RemoteAddr).Msg("dialog stream opened")

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Msg("dialog stream closed by client")
			} else {
				s.log.Warn().Err(err).Msg("dialog stream read error")
			}
			return
		}

		if err := conn.WriteJSON(wsEvent{ID: req.ID, Type: "accepted"}); err != nil {
			return
		}

		resp, err := s.invoke(r, req.Graph, req.InvokeRequest)
		if err != nil {
			metrics.Invocations.WithLabelValues(req.Graph, "error").Inc()
			if werr := conn.WriteJSON(wsEvent{ID: req.ID, Type: "error", Error: err.Error()}); werr != nil {
				return
			}
			continue
		}
		metrics.Invocations.WithLabelValues(req.Graph, "ok").Inc()
		if err := conn.WriteJSON(wsEvent{ID: req.ID, Type: "reply", Data: resp}); err != nil {
			return
		}
	}
}
