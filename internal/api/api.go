// Package api serves the guide over HTTP: channel/category reads, ingestion
// operations, and Prometheus metrics. Loads run asynchronously; clients poll
// /api/status for progress, matching the orchestrator's supersession rules.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Khaja-s/iptv-player/internal/guide"
	"github.com/Khaja-s/iptv-player/internal/ingest"
	"github.com/Khaja-s/iptv-player/internal/xtream"
)

// Server is the guide HTTP API.
type Server struct {
	Addr         string
	Orchestrator *ingest.Orchestrator
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/channels", s.handleChannels).Methods(http.MethodGet)
	r.HandleFunc("/api/categories", s.handleCategories).Methods(http.MethodGet)
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/playlist", s.handleLoadPlaylist).Methods(http.MethodPost)
	r.HandleFunc("/api/provider", s.handleLoadProvider).Methods(http.MethodPost)
	r.HandleFunc("/api/refresh", s.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/api/cancel", s.handleCancel).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("api: listening on %s", s.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

type channelsResponse struct {
	Channels []guide.Channel `json:"channels"`
	Total    int             `json:"total"`
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	channels, _ := s.Orchestrator.Guide().Snapshot()
	group := r.URL.Query().Get("group")
	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	total := len(channels)
	if group != "" || query != "" {
		filtered := channels[:0]
		for _, ch := range channels {
			if group != "" && ch.Group != group {
				continue
			}
			if query != "" && !strings.Contains(strings.ToLower(ch.Name), query) {
				continue
			}
			filtered = append(filtered, ch)
		}
		channels = filtered
	}
	writeJSON(w, http.StatusOK, channelsResponse{Channels: channels, Total: total})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	_, categories := s.Orchestrator.Guide().Snapshot()
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, categories)
}

type statusResponse struct {
	State string       `json:"state"`
	Phase string       `json:"phase,omitempty"`
	Error *errorDetail `json:"error,omitempty"`
	Count int          `json:"count"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Orchestrator.Status()
	resp := statusResponse{State: st.State.String(), Phase: st.Phase, Count: st.Count}
	if st.Err != nil {
		resp.Error = &errorDetail{Kind: st.Err.Kind.String(), Message: st.Err.Message, Status: st.Err.Status}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLoadPlaylist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "missing playlist url")
		return
	}
	go func() {
		if err := s.Orchestrator.LoadFromURL(req.URL); err != nil {
			log.Printf("api: load playlist: %v", err)
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleLoadProvider(w http.ResponseWriter, r *http.Request) {
	var creds xtream.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil ||
		creds.Server == "" || creds.Username == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "server, username and password are required")
		return
	}
	go func() {
		if err := s.Orchestrator.LoadFromProvider(creds); err != nil {
			log.Printf("api: load provider: %v", err)
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	go func() {
		if err := s.Orchestrator.Refresh(); err != nil {
			log.Printf("api: refresh: %v", err)
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.Orchestrator.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
