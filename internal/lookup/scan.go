package lookup

import (
	"context"
	"errors"
	"fmt"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"solana-tx-resolver/internal/domain"
	"solana-tx-resolver/internal/observability"
	"solana-tx-resolver/internal/solana"
	"solana-tx-resolver/internal/storage"
	"solana-tx-resolver/internal/txshape"
)

// ScanResult contains statistics from a scan operation.
type ScanResult struct {
	Address    solanago.PublicKey
	Signatures int
	Found      int
	Cached     int
	NotFound   int
	Failed     int
	Results    []*Result
	Cursor     *storage.ScanCursor // nil when nothing new was seen
	Duration   time.Duration
}

// Scan looks up the transactions that mention address and are newer than
// the saved cursor, at most limit of them (0 means no limit). Signatures are
// paged newest first. The cursor advances to the newest signature seen once
// every lookup has run, so an interrupted scan is repeated in full.
func (s *Service) Scan(ctx context.Context, address solanago.PublicKey, cfg txshape.RequestConfig, limit int) (*ScanResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("request config: %w", err)
	}

	start := s.now()
	result := &ScanResult{Address: address}

	var until solanago.Signature
	if s.progress != nil {
		cursor, err := s.progress.GetCursor(ctx, address)
		switch {
		case err == nil:
			until = cursor.Signature
		case errors.Is(err, storage.ErrNotFound):
		default:
			return result, fmt.Errorf("get scan cursor: %w", err)
		}
	}

	infos, err := s.collectSignatures(ctx, address, until, cfg, limit)
	if err != nil {
		return result, err
	}
	result.Signatures = len(infos)
	observability.RecordSignaturesScanned(len(infos))

	s.logger.Info().
		Str("address", address.String()).
		Int("signatures", len(infos)).
		Msg("scanning signatures")

	if len(infos) == 0 {
		result.Duration = s.now().Sub(start)
		return result, nil
	}

	sigs := make([]solanago.Signature, len(infos))
	for i, info := range infos {
		sigs[i] = info.Signature
	}

	results, err := s.LookupMany(ctx, sigs, cfg)
	result.Results = results
	for _, res := range results {
		switch res.Outcome {
		case domain.OutcomeFound:
			result.Found++
		case domain.OutcomeCached:
			result.Cached++
		case domain.OutcomeNotFound:
			result.NotFound++
		default:
			result.Failed++
		}
	}
	if err != nil {
		result.Duration = s.now().Sub(start)
		return result, err
	}

	newest := infos[0]
	observability.UpdateHighestSlot(newest.Slot)
	result.Cursor = &storage.ScanCursor{Slot: newest.Slot, Signature: newest.Signature}
	if s.progress != nil {
		if err := s.progress.SetCursor(ctx, address, result.Cursor); err != nil {
			result.Duration = s.now().Sub(start)
			return result, fmt.Errorf("set scan cursor: %w", err)
		}
	}

	result.Duration = s.now().Sub(start)
	return result, nil
}

// collectSignatures pages backwards from the tip until until, a short page,
// or limit.
func (s *Service) collectSignatures(ctx context.Context, address solanago.PublicKey, until solanago.Signature, cfg txshape.RequestConfig, limit int) ([]solana.SignatureInfo, error) {
	var (
		out    []solana.SignatureInfo
		before solanago.Signature
	)

	for {
		pageSize := s.pageSize
		if limit > 0 && limit-len(out) < pageSize {
			pageSize = limit - len(out)
		}

		page, err := s.rpc.GetSignaturesForAddress(ctx, address, &solana.SignaturesOpts{
			Before:     before,
			Until:      until,
			Limit:      pageSize,
			Commitment: cfg.Commitment,
		})
		if err != nil {
			return out, fmt.Errorf("get signatures for %s: %w", address, err)
		}

		out = append(out, page...)
		if len(page) < pageSize || (limit > 0 && len(out) >= limit) {
			return out, nil
		}
		before = page[len(page)-1].Signature
	}
}
