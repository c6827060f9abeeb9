package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"solana-tx-resolver/internal/domain"
	"solana-tx-resolver/internal/lookup"
	"solana-tx-resolver/internal/observability"
	"solana-tx-resolver/internal/storage"
	"solana-tx-resolver/internal/txshape"
)

func serveCmd(g *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve lookups over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.requestConfig()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			svc, st, log, err := g.setup(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			srv := &http.Server{
				Addr:    addr,
				Handler: newServer(svc, st.outcomes, cfg, log).routes(),
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()

			log.Info().Str("addr", addr).Msg("starting HTTP server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	return cmd
}

// server answers lookup requests with the flag config as defaults.
type server struct {
	svc      *lookup.Service
	outcomes storage.OutcomeStore
	defaults txshape.RequestConfig
	logger   zerolog.Logger

	mu      sync.Mutex
	started time.Time
	served  int
}

func newServer(svc *lookup.Service, outcomes storage.OutcomeStore, defaults txshape.RequestConfig, logger zerolog.Logger) *server {
	return &server{
		svc:      svc,
		outcomes: outcomes,
		defaults: defaults,
		logger:   logger,
		started:  time.Now(),
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /tx/{signature}", s.handleLookup)
	return mux
}

// statusResponse is the JSON response for /status.
type statusResponse struct {
	Status   string         `json:"status"`
	Uptime   string         `json:"uptime"`
	Served   int            `json:"served"`
	Outcomes []outcomeCount `json:"outcomes"`
}

type outcomeCount struct {
	Shape   string `json:"shape"`
	Outcome string `json:"outcome"`
	Count   uint64 `json:"count"`
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := statusResponse{
		Status: "running",
		Uptime: time.Since(s.started).Round(time.Second).String(),
		Served: s.served,
	}
	s.mu.Unlock()

	counts, err := s.outcomes.CountByOutcome(r.Context(), s.started.UnixMilli(), time.Now().UnixMilli())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp.Outcomes = make([]outcomeCount, 0, len(counts))
	for _, c := range counts {
		resp.Outcomes = append(resp.Outcomes, outcomeCount{
			Shape:   c.Shape.String(),
			Outcome: c.Outcome.String(),
			Count:   c.Count,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleLookup(w http.ResponseWriter, r *http.Request) {
	sig, err := solanago.SignatureFromBase58(r.PathValue("signature"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cfg, err := configFromQuery(r.URL.Query(), s.defaults)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.svc.Lookup(r.Context(), sig, cfg)
	if res == nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	s.served++
	s.mu.Unlock()

	status := http.StatusOK
	switch res.Outcome {
	case domain.OutcomeNotFound:
		status = http.StatusNotFound
	case domain.OutcomeDecodeError, domain.OutcomeTransportError:
		status = http.StatusBadGateway
	}
	_, withPayload := r.URL.Query()["payload"]
	writeJSON(w, status, newResultView(res, withPayload))
}

// configFromQuery overrides defaults with encoding, commitment and
// maxSupportedTransactionVersion query parameters. An empty
// maxSupportedTransactionVersion removes the bound.
func configFromQuery(q url.Values, defaults txshape.RequestConfig) (txshape.RequestConfig, error) {
	cfg := defaults
	if v := q.Get("encoding"); v != "" {
		enc, err := txshape.ParseEncoding(v)
		if err != nil {
			return cfg, err
		}
		cfg.Encoding = enc
	}
	if v := q.Get("commitment"); v != "" {
		cfg.Commitment = rpc.CommitmentType(v)
	}
	if vals, ok := q["maxSupportedTransactionVersion"]; ok {
		cfg.MaxSupportedTransactionVersion = txshape.NoVersionBound()
		if len(vals) > 0 && vals[0] != "" {
			n, err := strconv.ParseUint(vals[0], 10, 8)
			if err != nil {
				return cfg, err
			}
			cfg.MaxSupportedTransactionVersion = txshape.MaxVersion(uint8(n))
		}
	}
	return cfg, cfg.Validate()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
