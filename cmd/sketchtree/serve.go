package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/hupe1980/sketchtree"
	"github.com/hupe1980/sketchtree/codec"
	sketchprom "github.com/hupe1980/sketchtree/metrics/prometheus"
	"github.com/hupe1980/sketchtree/sbt"
	"github.com/hupe1980/sketchtree/sketch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const maxQueryBytes = 64 << 20

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve <sbt-path>",
		Short: "Serve searches over HTTP",
		Long: `Load a tree and answer searches over HTTP.

Endpoints:
  POST /search?threshold=0.2   body: a signature file, response: JSON matches
  GET  /health
  GET  /metrics                Prometheus metrics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = a.cfg.Server.Addr
			}
			return a.runServe(cmd.Context(), args[0], addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func (a *app) runServe(ctx context.Context, path, addr string) error {
	reg := prometheus.NewRegistry()
	mc, err := sketchprom.NewCollector(reg, "sketchtree")
	if err != nil {
		return err
	}

	tree, closeStore, err := a.loadTree(ctx, path, sketchtree.WithMetricsCollector(mc))
	if err != nil {
		return err
	}
	defer closeStore()

	r := mux.NewRouter()
	newServer(tree, a.cfg.Search.Threshold, a.logger, mc).routes(r)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.InfoContext(ctx, "search server listening", "addr", addr, "tree", path, "leaves", tree.Len())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// server answers searches against one tree. Trees are not safe for
// concurrent traversal, so searches run one at a time.
type server struct {
	mu        sync.Mutex
	tree      *sbt.Tree
	threshold float64
	logger    *sketchtree.Logger
	metrics   sketchtree.MetricsCollector
}

func newServer(tree *sbt.Tree, threshold float64, logger *sketchtree.Logger, mc sketchtree.MetricsCollector) *server {
	return &server{
		tree:      tree,
		threshold: threshold,
		logger:    logger,
		metrics:   mc,
	}
}

func (s *server) routes(r *mux.Router) {
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/search", s.search).Methods(http.MethodPost)
}

type searchResponse struct {
	Query     string   `json:"query"`
	Threshold float64  `json:"threshold"`
	Results   []result `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "leaves": s.tree.Len()})
}

func (s *server) search(w http.ResponseWriter, r *http.Request) {
	threshold := s.threshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 || t > 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "threshold must be a number within [0, 1]"})
			return
		}
		threshold = t
	}

	query, err := codec.DecodeOne(http.MaxBytesReader(w, r.Body, maxQueryBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	s.mu.Lock()
	results, err := search(r.Context(), s.tree, query, threshold,
		sketchtree.WithLogger(s.logger), sketchtree.WithMetricsCollector(s.metrics))
	s.mu.Unlock()

	switch {
	case errors.Is(err, sketch.ErrIncompatible):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case err != nil:
		s.logger.ErrorContext(r.Context(), "search failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "search failed"})
	default:
		writeJSON(w, http.StatusOK, searchResponse{Query: query.Name(), Threshold: threshold, Results: results})
	}
}
