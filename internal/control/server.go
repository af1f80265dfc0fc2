package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openbitx/explorer/internal/explorer"
	"github.com/openbitx/explorer/internal/explorer/provider"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes health and metrics over HTTP.
type Server struct {
	explorer *explorer.BlockchainExplorer
	server   *http.Server
	log      *slog.Logger
}

// NewServer creates the HTTP surface.
func NewServer(exp *explorer.BlockchainExplorer, port int, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{
		explorer: exp,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logger,
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/providers", s.handleProviders)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"chains": s.explorer.Symbols(),
	})
}

type providerHealth struct {
	Symbol       string   `json:"symbol"`
	Provider     string   `json:"provider"`
	Status       string   `json:"status"`
	AvgLatencyMs int64    `json:"avg_latency_ms"`
	Throttled429 int      `json:"throttled_429"`
	Blocked403   int      `json:"blocked_403"`
	Operations   []string `json:"operations"`
}

// handleProviders reports the monitor state of every registered provider.
func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	var out []providerHealth
	for _, symbol := range s.explorer.Symbols() {
		iface, err := s.explorer.Interface(symbol)
		if err != nil {
			continue
		}
		seen := map[string]bool{}
		for _, op := range provider.AllOperations {
			for _, api := range iface.Candidates(r.Context(), op) {
				if seen[api.Provider.Name] {
					continue
				}
				seen[api.Provider.Name] = true
				c429, c403 := api.Monitor().ThrottleCounts()
				out = append(out, providerHealth{
					Symbol:       symbol,
					Provider:     api.Provider.Name,
					Status:       api.Monitor().Status().String(),
					AvgLatencyMs: api.Monitor().AverageLatency().Milliseconds(),
					Throttled429: c429,
					Blocked403:   c403,
					Operations:   api.Provider.Operations,
				})
			}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
