package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/paperscroll/paper-scroll-service/internal/domain"
	"github.com/paperscroll/paper-scroll-service/internal/observability"
)

// Capacity is the target number of prefetched papers held by the buffer.
const Capacity = 10

// Resolver fetches the full record for a DOI.
type Resolver interface {
	Resolve(ctx context.Context, doi string) (*domain.Paper, error)
}

// Config bounds the retry policy used when drawing papers. Each attempt draws
// a fresh random DOI, so retrying is also resampling; the bound keeps a feed
// full of unresolvable DOIs from spinning forever.
type Config struct {
	// MaxAttempts is the total number of draws before giving up.
	MaxAttempts int

	// InitialBackoff is the delay after the first failed draw.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential delay between draws.
	MaxBackoff time.Duration
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 25
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 15 * time.Second
	}
}

// Buffer holds up to Capacity resolved papers ready to serve. Next pops from
// the front and arms a single background refill worker; when the buffer is
// empty a paper is resolved on the caller's request instead. The DOI index is
// swapped atomically after each sync without disturbing in-flight refills.
type Buffer struct {
	resolver Resolver
	logger   zerolog.Logger
	metrics  *observability.Metrics
	cfg      Config

	// baseCtx scopes background refill workers to the service lifetime, so
	// shutdown cancels them even though no request context is alive.
	baseCtx context.Context

	index atomic.Pointer[Index]

	mu        sync.Mutex
	papers    []*domain.Paper
	refilling bool
}

// NewBuffer creates a buffer drawing from the given index. The context bounds
// all background refill work.
func NewBuffer(ctx context.Context, resolver Resolver, index *Index, cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Buffer {
	cfg.applyDefaults()

	b := &Buffer{
		resolver: resolver,
		logger:   logger.With().Str("component", "feed_buffer").Logger(),
		metrics:  metrics,
		cfg:      cfg,
		baseCtx:  ctx,
	}
	b.index.Store(index)
	return b
}

// SetIndex swaps in a freshly built index. Papers already buffered stay
// served; only future draws use the new index.
func (b *Buffer) SetIndex(index *Index) {
	b.index.Store(index)
}

// Len returns the current number of buffered papers.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.papers)
}

// Next returns the next paper to show. The buffered path pops the oldest
// prefetched paper; the direct path resolves one on the spot when the buffer
// is empty. Both paths arm the background refill worker.
func (b *Buffer) Next(ctx context.Context) (*domain.Paper, error) {
	b.mu.Lock()
	if len(b.papers) > 0 {
		p := b.papers[0]
		b.papers = b.papers[1:]
		b.metrics.SetBufferSize(len(b.papers))
		b.maybeRefillLocked()
		b.mu.Unlock()

		b.metrics.RecordPaperServed("buffered")
		return p, nil
	}
	b.mu.Unlock()

	p, err := b.resolveOne(ctx)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.maybeRefillLocked()
	b.mu.Unlock()

	b.metrics.RecordPaperServed("direct")
	return p, nil
}

// maybeRefillLocked spawns the refill worker unless one is already running or
// the buffer is full. Callers must hold b.mu.
func (b *Buffer) maybeRefillLocked() {
	if b.refilling || len(b.papers) >= Capacity {
		return
	}
	b.refilling = true
	b.metrics.RecordRefillWorkerStarted()
	go b.refill()
}

// refill tops the buffer up to Capacity, one paper at a time. It stops early
// when a draw exhausts its retry budget or the service is shutting down; the
// next Next call arms a fresh worker.
func (b *Buffer) refill() {
	defer func() {
		b.mu.Lock()
		b.refilling = false
		b.mu.Unlock()
	}()

	for {
		b.mu.Lock()
		if len(b.papers) >= Capacity {
			b.mu.Unlock()
			return
		}
		b.mu.Unlock()

		p, err := b.resolveOne(b.baseCtx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				b.logger.Warn().Err(err).Msg("buffer refill stopped")
			}
			return
		}

		b.mu.Lock()
		b.papers = append(b.papers, p)
		b.metrics.SetBufferSize(len(b.papers))
		b.mu.Unlock()
	}
}

// resolveOne draws random DOIs until one resolves to a displayable paper,
// backing off exponentially between draws. A paper is displayable when it has
// an abstract and at least one author; anything else is discarded and the
// draw retried. Exhausting the attempt budget yields ErrResolutionExhausted.
func (b *Buffer) resolveOne(ctx context.Context) (*domain.Paper, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = b.cfg.InitialBackoff
	policy.MaxInterval = b.cfg.MaxBackoff
	policy.MaxElapsedTime = 0

	var paper *domain.Paper
	operation := func() error {
		doi := b.index.Load().Random()
		b.metrics.RecordResolutionAttempt()

		p, err := b.resolver.Resolve(ctx, doi)
		if err != nil {
			b.metrics.RecordResolutionFailure()
			b.logger.Debug().Err(err).Str("doi", doi).Msg("resolution failed")
			return err
		}
		if !p.Valid() {
			b.metrics.RecordPaperDiscarded()
			b.logger.Debug().Str("doi", doi).Msg("paper discarded as unfit for display")
			return fmt.Errorf("paper %s unfit for display", doi)
		}

		paper = p
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(b.cfg.MaxAttempts-1)), ctx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w after %d attempts: %w",
			domain.ErrResolutionExhausted, b.cfg.MaxAttempts, err)
	}
	return paper, nil
}
