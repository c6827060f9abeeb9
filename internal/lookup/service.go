// Package lookup fetches, validates and caches getTransaction responses.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"solana-tx-resolver/internal/domain"
	"solana-tx-resolver/internal/idhash"
	"solana-tx-resolver/internal/observability"
	"solana-tx-resolver/internal/solana"
	"solana-tx-resolver/internal/storage"
	"solana-tx-resolver/internal/txshape"
)

// Default configuration values.
const (
	DefaultConcurrency = 8
	DefaultPageSize    = 1000 // getSignaturesForAddress maximum
)

// ErrNoRPC is returned by NewService when no RPC client is configured.
var ErrNoRPC = errors.New("lookup: rpc client required")

// Result is the outcome of looking up one signature.
type Result struct {
	Signature  solanago.Signature
	Descriptor txshape.ShapeDescriptor
	Outcome    domain.Outcome
	// Record is nil unless Outcome is FOUND or CACHED.
	Record   *txshape.TransactionRecord
	Err      error
	Duration time.Duration
}

// Found reports whether the lookup produced a record.
func (r *Result) Found() bool {
	return r.Record != nil
}

// Service resolves request configs, fetches transactions and validates them
// against the resolved shape. Valid responses are cached by lookup key and
// every lookup is logged as an outcome row.
type Service struct {
	rpc          solana.RPCClient
	transactions storage.TransactionStore
	outcomes     storage.OutcomeStore
	progress     storage.ScanProgressStore
	decoder      *txshape.Decoder
	concurrency  int
	pageSize     int
	now          func() time.Time
	logger       zerolog.Logger
}

// Options contains configuration for creating a Service.
// Stores are optional; a nil store disables the matching feature.
type Options struct {
	RPC          solana.RPCClient
	Transactions storage.TransactionStore
	Outcomes     storage.OutcomeStore
	Progress     storage.ScanProgressStore
	Decoder      *txshape.Decoder
	Concurrency  int
	PageSize     int
	Now          func() time.Time
	Logger       zerolog.Logger
}

// NewService creates a lookup service.
func NewService(opts Options) (*Service, error) {
	if opts.RPC == nil {
		return nil, ErrNoRPC
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	decoder := opts.Decoder
	if decoder == nil {
		decoder = txshape.NewDecoder(
			txshape.WithLogger(opts.Logger),
			txshape.WithStatusMismatchHook(observability.RecordStatusMismatch),
		)
	}

	return &Service{
		rpc:          opts.RPC,
		transactions: opts.Transactions,
		outcomes:     opts.Outcomes,
		progress:     opts.Progress,
		decoder:      decoder,
		concurrency:  concurrency,
		pageSize:     pageSize,
		now:          now,
		logger:       opts.Logger,
	}, nil
}

// Lookup fetches one transaction under cfg.
//
// An invalid cfg is rejected before any call. Otherwise the returned Result
// is always non-nil and the returned error equals Result.Err: nil for FOUND,
// CACHED and NOT_FOUND, the transport or *txshape.DecodeError otherwise.
func (s *Service) Lookup(ctx context.Context, signature solanago.Signature, cfg txshape.RequestConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("request config: %w", err)
	}

	res := s.lookup(ctx, signature, cfg)
	s.recordOutcomes(ctx, []*domain.LookupOutcome{s.outcomeRow(res)})
	return res, res.Err
}

// LookupMany looks up signatures concurrently. Results are index-aligned with
// signatures; per-signature failures are reported in Result.Err and do not
// stop the batch. The error is non-nil only for an invalid cfg or a canceled ctx.
func (s *Service) LookupMany(ctx context.Context, signatures []solanago.Signature, cfg txshape.RequestConfig) ([]*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("request config: %w", err)
	}

	results := make([]*Result, len(signatures))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, sig := range signatures {
		g.Go(func() error {
			results[i] = s.lookup(gctx, sig, cfg)
			return nil
		})
	}
	_ = g.Wait()

	rows := make([]*domain.LookupOutcome, 0, len(results))
	seen := make(map[string]bool, len(results))
	for _, res := range results {
		row := s.outcomeRow(res)
		if seen[row.OutcomeID] {
			continue
		}
		seen[row.OutcomeID] = true
		rows = append(rows, row)
	}
	s.recordOutcomes(ctx, rows)

	return results, ctx.Err()
}

func (s *Service) lookup(ctx context.Context, signature solanago.Signature, cfg txshape.RequestConfig) *Result {
	start := s.now()
	desc := txshape.Resolve(cfg)
	res := &Result{Signature: signature, Descriptor: desc}
	defer func() {
		res.Duration = s.now().Sub(start)
		observability.RecordLookup(
			string(desc.Encoding),
			desc.VersionMode.String(),
			strings.ToLower(res.Outcome.String()),
			res.Duration.Seconds(),
		)
	}()

	key := idhash.ComputeLookupKey(signature, cfg)
	if rec := s.cached(ctx, key); rec != nil {
		observability.RecordCacheHit()
		res.Outcome = domain.OutcomeCached
		res.Record = rec
		return res
	}

	raw, err := s.rpc.GetTransaction(ctx, signature, cfg)
	if err != nil {
		res.Outcome = domain.OutcomeTransportError
		res.Err = fmt.Errorf("get transaction %s: %w", signature, err)
		return res
	}

	rec, err := s.decoder.Decode(desc, raw)
	if err != nil {
		var de *txshape.DecodeError
		if errors.As(err, &de) {
			observability.RecordDecodeError(de.Kind.String())
		}
		s.logger.Warn().
			Err(err).
			Str("signature", signature.String()).
			Stringer("shape", desc.Shape).
			Msg("response rejected")
		res.Outcome = domain.OutcomeDecodeError
		res.Err = err
		return res
	}
	if rec == nil {
		res.Outcome = domain.OutcomeNotFound
		return res
	}

	res.Outcome = domain.OutcomeFound
	res.Record = rec
	s.store(ctx, key, signature, cfg, desc, rec)
	return res
}

// cached returns the stored record for key, or nil on a miss. A stored
// payload that no longer decodes is treated as a miss.
func (s *Service) cached(ctx context.Context, key string) *txshape.TransactionRecord {
	if s.transactions == nil {
		return nil
	}

	stored, err := s.transactions.GetByKey(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Str("lookup_key", key).Msg("cache read failed")
		}
		return nil
	}

	rec, err := stored.Record()
	if err != nil || rec == nil {
		s.logger.Warn().Err(err).Str("lookup_key", key).Msg("cached payload invalid, refetching")
		return nil
	}
	return rec
}

// store caches the canonical encoding of rec. Failures are logged only.
func (s *Service) store(ctx context.Context, key string, signature solanago.Signature, cfg txshape.RequestConfig, desc txshape.ShapeDescriptor, rec *txshape.TransactionRecord) {
	if s.transactions == nil {
		return
	}

	payload, err := txshape.Encode(desc, rec)
	if err != nil {
		s.logger.Error().Err(err).Str("signature", signature.String()).Msg("encode record")
		return
	}

	tx := &domain.StoredTransaction{
		LookupKey:  key,
		Signature:  signature,
		Shape:      desc.Shape,
		Encoding:   desc.Encoding,
		Commitment: string(cfg.Commitment),
		Slot:       rec.Slot,
		Payload:    payload,
		FetchedAt:  s.now().UnixMilli(),
	}
	if v, ok := cfg.MaxSupportedTransactionVersion.Get(); ok {
		tx.MaxVersion = &v
	}
	if bt, ok := rec.BlockTime.Get(); ok {
		tx.BlockTime = &bt
	}

	if err := s.transactions.Insert(ctx, tx); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		s.logger.Error().Err(err).Str("signature", signature.String()).Msg("store transaction")
	}
}

func (s *Service) outcomeRow(res *Result) *domain.LookupOutcome {
	observedAt := s.now().UnixMilli()
	row := &domain.LookupOutcome{
		OutcomeID:  idhash.ComputeOutcomeID(res.Signature, res.Descriptor.Shape, observedAt),
		Signature:  res.Signature.String(),
		Shape:      res.Descriptor.Shape,
		Outcome:    res.Outcome,
		DurationMs: res.Duration.Milliseconds(),
		ObservedAt: observedAt,
	}
	if res.Record != nil {
		row.Slot = res.Record.Slot
	}
	var de *txshape.DecodeError
	if errors.As(res.Err, &de) {
		row.ErrorKind = de.Kind.String()
		row.ErrorPath = de.Path
	}
	return row
}

func (s *Service) recordOutcomes(ctx context.Context, rows []*domain.LookupOutcome) {
	if s.outcomes == nil || len(rows) == 0 {
		return
	}

	var err error
	if len(rows) == 1 {
		err = s.outcomes.Insert(ctx, rows[0])
	} else {
		err = s.outcomes.InsertBulk(ctx, rows)
	}
	if err != nil {
		s.logger.Error().Err(err).Int("count", len(rows)).Msg("record outcomes")
	}
}
