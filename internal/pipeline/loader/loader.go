// Package loader runs the history pipeline for one page: plan, fetch, merge,
// group, classify and summarize.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mavryk-network/activity-history/internal/chain"
	"github.com/mavryk-network/activity-history/internal/domain/model"
	"github.com/mavryk-network/activity-history/internal/metrics"
	"github.com/mavryk-network/activity-history/internal/pipeline/grouper"
	"github.com/mavryk-network/activity-history/internal/pipeline/strategy"
	"github.com/mavryk-network/activity-history/internal/pipeline/summarizer"
	"github.com/mavryk-network/activity-history/internal/tracing"
)

const (
	outcomeOK    = "ok"
	outcomeEmpty = "empty"
	outcomeStale = "stale"
	outcomeError = "error"
)

// Sources resolves the operation source of a chain.
type Sources interface {
	Source(chainID model.ChainID) (chain.OperationSource, error)
	Supports(chainID model.ChainID) bool
}

type PageRequest struct {
	ChainID     model.ChainID
	Account     string
	Scope       model.AssetScope
	PseudoLimit int
	Cursor      *model.Cursor
	// Seen holds hashes emitted by earlier pages of the same sequence.
	Seen map[string]struct{}
	// Stale reports that the caller no longer wants the result.
	Stale func() bool
}

type Page struct {
	// Items are entries with at least one classified operation.
	Items []model.UserHistoryItem
	// Hashes lists every group built for the page, noise-only ones included.
	Hashes []string
	// Cursor anchors the next page at the oldest operation of the last built
	// group. Nil when no group was built.
	Cursor *model.Cursor
	Groups int
}

type Loader struct {
	sources  Sources
	selector *strategy.Selector
	builder  *grouper.Builder
	logger   *slog.Logger
}

func New(sources Sources, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		sources:  sources,
		selector: strategy.NewSelector(logger),
		builder:  grouper.NewBuilder(logger),
		logger:   logger.With("component", "loader"),
	}
}

// Supports reports whether an indexer is configured for chainID.
func (l *Loader) Supports(chainID model.ChainID) bool {
	return l.sources.Supports(chainID)
}

// LoadPage loads one page of history. It returns chain.ErrUnsupportedChain
// without any query for unknown chains and grouper.ErrStale when req.Stale
// fires mid-load.
func (l *Loader) LoadPage(ctx context.Context, req PageRequest) (page Page, err error) {
	src, err := l.sources.Source(req.ChainID)
	if err != nil {
		return Page{}, err
	}

	scope := string(req.Scope.Kind)
	if scope == "" {
		scope = string(model.ScopeAny)
	}
	ctx, span := tracing.StartSpan(ctx, "loader", "loader.LoadPage",
		attribute.String("chain", req.ChainID.String()),
		attribute.String("account", req.Account),
		attribute.String("scope", scope),
	)
	start := time.Now()
	defer func() {
		tracing.EndSpan(span, err)
		metrics.PageLoadLatency.WithLabelValues(req.ChainID.String(), scope).Observe(time.Since(start).Seconds())
		metrics.PageLoadsTotal.WithLabelValues(req.ChainID.String(), scope, outcomeOf(page, err)).Inc()
	}()

	plan, err := l.selector.Plan(ctx, src, strategy.PlanRequest{
		ChainID:     req.ChainID,
		Account:     req.Account,
		Scope:       req.Scope,
		PseudoLimit: req.PseudoLimit,
		Cursor:      req.Cursor,
	})
	if err != nil {
		return Page{}, fmt.Errorf("plan page: %w", err)
	}

	raw, err := strategy.Execute(ctx, src, plan)
	if err != nil {
		return Page{}, fmt.Errorf("execute plan: %w", err)
	}
	if req.Stale != nil && req.Stale() {
		return Page{}, grouper.ErrStale
	}

	groups, err := l.builder.Build(ctx, src, raw, grouper.BuildOptions{
		ChainID: req.ChainID,
		Cursor:  req.Cursor,
		Seen:    req.Seen,
		Stale:   req.Stale,
	})
	if err != nil {
		return Page{}, err
	}

	page = Page{Groups: len(groups), Hashes: make([]string, 0, len(groups))}
	for _, group := range groups {
		page.Hashes = append(page.Hashes, group.Hash)
		entry := summarizer.Summarize(group, req.Account)
		if len(entry.Operations) == 0 {
			continue
		}
		page.Items = append(page.Items, entry)
	}
	if len(groups) > 0 {
		last := groups[len(groups)-1]
		cursor := model.CursorOf(last.Operations[len(last.Operations)-1])
		page.Cursor = &cursor
	}

	l.logger.Debug("page loaded",
		"chain", req.ChainID,
		"account", req.Account,
		"scope", scope,
		"raw", len(raw),
		"groups", page.Groups,
		"items", len(page.Items),
	)
	return page, nil
}

func outcomeOf(page Page, err error) string {
	switch {
	case errors.Is(err, grouper.ErrStale):
		return outcomeStale
	case err != nil:
		return outcomeError
	case page.Groups == 0:
		return outcomeEmpty
	default:
		return outcomeOK
	}
}
