// Package pagination accumulates history pages for one (chain, account,
// scope) identity and discards results that belong to an older identity.
package pagination

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mavryk-network/activity-history/internal/domain/model"
	"github.com/mavryk-network/activity-history/internal/metrics"
	"github.com/mavryk-network/activity-history/internal/pipeline/grouper"
	"github.com/mavryk-network/activity-history/internal/pipeline/loader"
	"github.com/mavryk-network/activity-history/internal/pipeline/retry"
	"github.com/mavryk-network/activity-history/internal/pipeline/strategy"
)

// ErrStale is returned by loads whose result was discarded.
var ErrStale = grouper.ErrStale

type Mode string

const (
	ModeIdle Mode = "idle"
	ModeInit Mode = "init"
	ModeMore Mode = "more"
)

// Identity is what a feed is built for. Changing any field restarts the feed.
type Identity struct {
	ChainID model.ChainID
	Account string
	Scope   model.AssetScope
}

// PageLoader loads one page of history.
type PageLoader interface {
	Supports(chainID model.ChainID) bool
	LoadPage(ctx context.Context, req loader.PageRequest) (loader.Page, error)
}

type Controller struct {
	loader   PageLoader
	logger   *slog.Logger
	pageSize int
	newID    func() string

	mu            sync.Mutex
	identity      Identity
	session       string
	generation    uint64
	items         []model.UserHistoryItem
	seen          map[string]struct{}
	cursor        *model.Cursor
	mode          Mode
	reachedTheEnd bool
	err           error
}

type Option func(*Controller)

// WithPageSize sets the pseudo-limit used when LoadMore gets no hint.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithSessionIDFunc overrides session id generation.
func WithSessionIDFunc(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

func New(pageLoader PageLoader, identity Identity, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		loader:   pageLoader,
		logger:   logger.With("component", "pagination"),
		pageSize: strategy.DefaultPseudoLimit,
		newID:    uuid.NewString,
		mode:     ModeIdle,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.mu.Lock()
	c.resetLocked(identity)
	c.mu.Unlock()
	return c
}

// LoadInitial restarts the feed and loads its first page. An unsupported
// chain ends the feed immediately without any query.
func (c *Controller) LoadInitial(ctx context.Context) error {
	c.mu.Lock()
	c.resetLocked(c.identity)
	if !c.loader.Supports(c.identity.ChainID) {
		c.reachedTheEnd = true
		c.logger.Info("chain not supported; history is empty",
			"session", c.session,
			"chain", c.identity.ChainID,
		)
		c.mu.Unlock()
		return nil
	}
	req := c.beginLocked(ModeInit, c.pageSize)
	c.mu.Unlock()

	return c.run(ctx, req)
}

// LoadMore appends the next page. It is a no-op while a load is in flight or
// once the end of history was reached.
func (c *Controller) LoadMore(ctx context.Context, pageSizeHint int) error {
	c.mu.Lock()
	if c.mode != ModeIdle || c.reachedTheEnd {
		c.mu.Unlock()
		return nil
	}
	if pageSizeHint <= 0 {
		pageSizeHint = c.pageSize
	}
	req := c.beginLocked(ModeMore, pageSizeHint)
	c.mu.Unlock()

	return c.run(ctx, req)
}

// SetIdentity switches the feed to id, discarding any in-flight load, and
// loads its first page. Setting the current identity again is a no-op.
func (c *Controller) SetIdentity(ctx context.Context, id Identity) error {
	c.mu.Lock()
	if id == c.identity {
		c.mu.Unlock()
		return nil
	}
	c.resetLocked(id)
	c.mu.Unlock()

	return c.LoadInitial(ctx)
}

// Items returns a snapshot of the accumulated feed, newest first.
func (c *Controller) Items() []model.UserHistoryItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.UserHistoryItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Controller) ReachedTheEnd() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reachedTheEnd
}

// Err returns the error of the last failed load, nil after a success.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Controller) Identity() Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

type fetch struct {
	generation uint64
	session    string
	identity   Identity
	req        loader.PageRequest
}

// resetLocked bumps the generation so any in-flight load becomes stale.
func (c *Controller) resetLocked(id Identity) {
	if id != c.identity || c.session == "" {
		c.session = c.newID()
	}
	c.identity = id
	c.generation++
	c.items = nil
	c.seen = make(map[string]struct{})
	c.cursor = nil
	c.mode = ModeIdle
	c.reachedTheEnd = false
	c.err = nil
}

func (c *Controller) beginLocked(mode Mode, limit int) fetch {
	c.mode = mode
	gen := c.generation
	return fetch{
		generation: gen,
		session:    c.session,
		identity:   c.identity,
		req: loader.PageRequest{
			ChainID:     c.identity.ChainID,
			Account:     c.identity.Account,
			Scope:       c.identity.Scope,
			PseudoLimit: limit,
			Cursor:      c.cursor,
			Seen:        c.seen,
			Stale:       func() bool { return c.isStale(gen) },
		},
	}
}

func (c *Controller) isStale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation != gen
}

func (c *Controller) run(ctx context.Context, f fetch) error {
	log := c.logger.With(
		"session", f.session,
		"chain", f.identity.ChainID,
		"account", f.identity.Account,
		"scope", f.identity.Scope.Kind,
	)
	page, err := c.loader.LoadPage(ctx, f.req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if f.generation != c.generation {
		metrics.StaleResultsDiscarded.WithLabelValues(f.identity.ChainID.String()).Inc()
		log.Debug("discarding stale page", "stale_error", errors.Is(err, ErrStale))
		return ErrStale
	}

	c.mode = ModeIdle
	if err != nil {
		c.err = err
		decision := retry.Classify(err)
		log.Warn("page load failed",
			"error", err,
			"transient", decision.IsTransient(),
			"reason", decision.Reason,
		)
		return err
	}

	c.err = nil
	// Issued requests keep the map they were given.
	seen := make(map[string]struct{}, len(c.seen)+len(page.Hashes))
	for h := range c.seen {
		seen[h] = struct{}{}
	}
	for _, h := range page.Hashes {
		seen[h] = struct{}{}
	}
	c.seen = seen
	c.items = append(c.items, page.Items...)
	if page.Cursor != nil {
		c.cursor = page.Cursor
	}
	if page.Groups == 0 {
		c.reachedTheEnd = true
	}
	log.Info("page appended",
		"items", len(page.Items),
		"groups", page.Groups,
		"total", len(c.items),
		"reached_the_end", c.reachedTheEnd,
	)
	return nil
}
