package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"solana-tx-resolver/internal/logger"
	"solana-tx-resolver/internal/lookup"
	"solana-tx-resolver/internal/observability"
	"solana-tx-resolver/internal/solana"
	"solana-tx-resolver/internal/storage"
	chstore "solana-tx-resolver/internal/storage/clickhouse"
	"solana-tx-resolver/internal/storage/memory"
	"solana-tx-resolver/internal/storage/migrations"
	pgstore "solana-tx-resolver/internal/storage/postgres"
	"solana-tx-resolver/internal/txshape"
)

const (
	defaultRPCEndpoint = "https://api.mainnet-beta.solana.com"
	defaultWSEndpoint  = "wss://api.mainnet-beta.solana.com"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	rpcEndpoint   string
	wsEndpoint    string
	postgresDSN   string
	clickhouseDSN string
	logLevel      string
	logFormat     string
	metricsAddr   string

	encoding    string
	commitment  string
	maxVersion  int
	concurrency int
	timeout     time.Duration
	retries     int
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "txresolve",
		Short:         "Fetch and validate Solana getTransaction responses",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.rpcEndpoint, "rpc-endpoint", envOr("SOLANA_RPC_ENDPOINT", defaultRPCEndpoint), "Solana RPC HTTP endpoint")
	pf.StringVar(&g.wsEndpoint, "ws-endpoint", envOr("SOLANA_WS_ENDPOINT", defaultWSEndpoint), "Solana WebSocket endpoint")
	pf.StringVar(&g.postgresDSN, "postgres-dsn", envOr("POSTGRES_DSN", ""), "PostgreSQL DSN for the transaction cache (empty for in-memory)")
	pf.StringVar(&g.clickhouseDSN, "clickhouse-dsn", envOr("CLICKHOUSE_DSN", ""), "ClickHouse DSN for lookup outcomes (empty for in-memory)")
	pf.StringVar(&g.logLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level")
	pf.StringVar(&g.logFormat, "log-format", envOr("LOG_FORMAT", logger.FormatConsole), "Log format: console or json")
	pf.StringVar(&g.metricsAddr, "metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	pf.StringVar(&g.encoding, "encoding", string(txshape.DefaultEncoding), "Transaction encoding: json, jsonParsed, base64, base58")
	pf.StringVar(&g.commitment, "commitment", string(rpc.CommitmentFinalized), "Commitment level")
	pf.IntVar(&g.maxVersion, "max-version", 0, "maxSupportedTransactionVersion (-1 to omit)")
	pf.IntVar(&g.concurrency, "concurrency", lookup.DefaultConcurrency, "Concurrent lookups")
	pf.DurationVar(&g.timeout, "rpc-timeout", solana.DefaultTimeout, "RPC request timeout")
	pf.IntVar(&g.retries, "rpc-retries", solana.DefaultMaxRetries, "RPC retry attempts")

	root.AddCommand(
		getCmd(g),
		scanCmd(g),
		watchCmd(g),
		shapesCmd(g),
		serveCmd(g),
	)
	return root
}

// requestConfig builds the getTransaction config from flags.
func (g *globalFlags) requestConfig() (txshape.RequestConfig, error) {
	enc, err := txshape.ParseEncoding(g.encoding)
	if err != nil {
		return txshape.RequestConfig{}, err
	}

	cfg := txshape.RequestConfig{
		Encoding:   enc,
		Commitment: rpc.CommitmentType(g.commitment),
	}
	switch {
	case g.maxVersion < 0:
	case g.maxVersion > 255:
		return cfg, fmt.Errorf("--max-version %d out of range", g.maxVersion)
	default:
		cfg.MaxSupportedTransactionVersion = txshape.MaxVersion(uint8(g.maxVersion))
	}
	return cfg, cfg.Validate()
}

func (g *globalFlags) logger() (zerolog.Logger, error) {
	return logger.New(g.logLevel, g.logFormat)
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// serveMetrics starts the metrics server if an address is configured.
func (g *globalFlags) serveMetrics(ctx context.Context, log zerolog.Logger) {
	if g.metricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: g.metricsAddr, Handler: mux}

	go func() {
		log.Info().Str("addr", g.metricsAddr).Msg("starting metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

// stores bundles the storage backends a command runs against.
type stores struct {
	transactions storage.TransactionStore
	outcomes     storage.OutcomeStore
	progress     storage.ScanProgressStore
	closers      []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores connects the configured databases and runs their migrations.
// Unconfigured backends fall back to memory.
func (g *globalFlags) openStores(ctx context.Context, log zerolog.Logger) (*stores, error) {
	s := &stores{
		transactions: memory.NewTransactionStore(),
		outcomes:     memory.NewOutcomeStore(),
		progress:     memory.NewScanProgressStore(),
	}

	if g.postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, g.postgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		s.closers = append(s.closers, pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool, log); err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		s.transactions = pgstore.NewTransactionStore(pool)
		s.progress = pgstore.NewScanProgressStore(pool)
	}

	if g.clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, g.clickhouseDSN, log)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		s.closers = append(s.closers, func() { conn.Close() })
		s.outcomes = chstore.NewOutcomeStore(conn)
	}

	return s, nil
}

// newService wires the RPC client and stores into a lookup service.
func (g *globalFlags) newService(log zerolog.Logger, st *stores) (*lookup.Service, error) {
	client := solana.NewHTTPClient(g.rpcEndpoint,
		solana.WithTimeout(g.timeout),
		solana.WithMaxRetries(g.retries),
		solana.WithLogger(logger.Component(log, "rpc")),
	)

	return lookup.NewService(lookup.Options{
		RPC:          client,
		Transactions: st.transactions,
		Outcomes:     st.outcomes,
		Progress:     st.progress,
		Concurrency:  g.concurrency,
		Logger:       logger.Component(log, "lookup"),
	})
}

// setup is the common prologue of commands that perform lookups.
func (g *globalFlags) setup(ctx context.Context) (*lookup.Service, *stores, zerolog.Logger, error) {
	log, err := g.logger()
	if err != nil {
		return nil, nil, log, err
	}
	g.serveMetrics(ctx, log)

	st, err := g.openStores(ctx, log)
	if err != nil {
		return nil, nil, log, err
	}
	svc, err := g.newService(log, st)
	if err != nil {
		st.Close()
		return nil, nil, log, err
	}
	return svc, st, log, nil
}
