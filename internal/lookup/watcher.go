package lookup

import (
	"context"
	"errors"
	"sync"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"solana-tx-resolver/internal/domain"
	"solana-tx-resolver/internal/solana"
	"solana-tx-resolver/internal/txshape"
)

const (
	defaultWatchRetries    = 3
	defaultWatchRetryDelay = 500 * time.Millisecond
	recentSignatures       = 10000
)

var (
	// ErrNoWSClient is returned by NewWatcher when no WebSocket client is configured.
	ErrNoWSClient = errors.New("lookup: websocket client required")

	// ErrSubscriptionsClosed is returned by Run when the log stream ends on its own.
	ErrSubscriptionsClosed = errors.New("lookup: log subscriptions closed")
)

// Watcher looks up transactions as their logs are streamed.
type Watcher struct {
	ws         solana.WSClient
	service    *Service
	mentions   []solanago.PublicKey
	cfg        txshape.RequestConfig
	skipFailed bool
	retries    int
	retryDelay time.Duration
	logger     zerolog.Logger
}

// WatcherOptions contains configuration for creating a Watcher.
type WatcherOptions struct {
	WS      solana.WSClient
	Service *Service
	// Mentions selects the accounts to watch, one subscription each.
	// Empty watches every transaction.
	Mentions []solanago.PublicKey
	Config   txshape.RequestConfig
	// SkipFailed drops notifications of failed transactions.
	SkipFailed bool
	// Retries bounds refetches of a signature the node does not serve yet.
	Retries    int
	RetryDelay time.Duration
	Logger     zerolog.Logger
}

// NewWatcher creates a Watcher.
func NewWatcher(opts WatcherOptions) (*Watcher, error) {
	if opts.WS == nil {
		return nil, ErrNoWSClient
	}
	if opts.Service == nil {
		return nil, errors.New("lookup: service required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	retries := opts.Retries
	if retries <= 0 {
		retries = defaultWatchRetries
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultWatchRetryDelay
	}

	return &Watcher{
		ws:         opts.WS,
		service:    opts.Service,
		mentions:   opts.Mentions,
		cfg:        opts.Config,
		skipFailed: opts.SkipFailed,
		retries:    retries,
		retryDelay: retryDelay,
		logger:     opts.Logger,
	}, nil
}

// Subscribe returns a channel of lookup results for streamed transactions.
// The channel is closed when ctx is canceled or every subscription ends.
func (w *Watcher) Subscribe(ctx context.Context) (<-chan *Result, error) {
	filters := []solana.LogsFilter{{Commitment: w.cfg.Commitment}}
	if len(w.mentions) > 0 {
		// Some providers accept a single address per subscription.
		filters = filters[:0]
		for _, m := range w.mentions {
			filters = append(filters, solana.LogsFilter{
				Mentions:   []solanago.PublicKey{m},
				Commitment: w.cfg.Commitment,
			})
		}
	}

	var logsChannels []<-chan solana.LogNotification
	for _, f := range filters {
		logsCh, err := w.ws.SubscribeLogs(ctx, f)
		if err != nil {
			return nil, err
		}
		logsChannels = append(logsChannels, logsCh)
	}
	w.logger.Info().Int("subscriptions", len(logsChannels)).Msg("watching logs")

	merged := make(chan solana.LogNotification, 1000)
	var wg sync.WaitGroup
	for _, ch := range logsChannels {
		wg.Add(1)
		go func(logsCh <-chan solana.LogNotification) {
			defer wg.Done()
			for notif := range logsCh {
				select {
				case merged <- notif:
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	results := make(chan *Result, 100)
	go func() {
		defer close(results)

		// A signature mentioning several watched accounts arrives once per subscription.
		seen := newRecentSet(recentSignatures)
		for {
			select {
			case <-ctx.Done():
				return
			case notif, ok := <-merged:
				if !ok {
					w.logger.Warn().Msg("log subscriptions closed")
					return
				}
				if !seen.add(notif.Signature) {
					continue
				}
				if w.skipFailed && notif.Failed() {
					continue
				}

				res := w.lookupWithRetry(ctx, notif.Signature)
				if res == nil {
					return
				}
				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return results, nil
}

// Run consumes Subscribe and hands every result to handle until ctx is
// canceled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context, handle func(*Result)) error {
	results, err := w.Subscribe(ctx)
	if err != nil {
		return err
	}
	for res := range results {
		handle(res)
	}
	if ctx.Err() != nil {
		return nil
	}
	return ErrSubscriptionsClosed
}

// lookupWithRetry refetches while the node answers null or the transport
// fails, with exponential backoff. Decode errors are final.
// Returns nil only when ctx is canceled.
func (w *Watcher) lookupWithRetry(ctx context.Context, signature solanago.Signature) *Result {
	delay := w.retryDelay
	for attempt := 0; ; attempt++ {
		res, _ := w.service.Lookup(ctx, signature, w.cfg)
		if ctx.Err() != nil {
			return nil
		}
		retryable := res.Outcome == domain.OutcomeNotFound || res.Outcome == domain.OutcomeTransportError
		if !retryable || attempt >= w.retries {
			return res
		}

		w.logger.Debug().
			Str("signature", signature.String()).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Str("outcome", res.Outcome.String()).
			Msg("retrying lookup")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
		delay *= 2
	}
}

// recentSet remembers the last size signatures added.
type recentSet struct {
	size  int
	order []solanago.Signature
	index map[solanago.Signature]struct{}
}

func newRecentSet(size int) *recentSet {
	return &recentSet{size: size, index: make(map[solanago.Signature]struct{}, size)}
}

// add reports whether sig was not already present.
func (r *recentSet) add(sig solanago.Signature) bool {
	if _, ok := r.index[sig]; ok {
		return false
	}
	if len(r.order) == r.size {
		delete(r.index, r.order[0])
		r.order = r.order[1:]
	}
	r.order = append(r.order, sig)
	r.index[sig] = struct{}{}
	return true
}
