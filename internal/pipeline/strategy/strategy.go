// Package strategy turns a history request into indexer query descriptors
// and runs them.
package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mavryk-network/activity-history/internal/chain"
	"github.com/mavryk-network/activity-history/internal/domain/model"
	"github.com/mavryk-network/activity-history/internal/pipeline/merger"
	"github.com/mavryk-network/activity-history/internal/tokenstd"
)

const (
	DefaultPseudoLimit = 20

	accountOperationTypes = "delegation,origination,transaction"
	entrypointTransfer    = "transfer"
)

// PlanRequest describes one page of history to fetch.
type PlanRequest struct {
	ChainID model.ChainID
	Account string
	Scope   model.AssetScope
	// PseudoLimit is a target page size, not a guarantee.
	PseudoLimit int
	Cursor      *model.Cursor
}

// Plan is the set of queries serving one page.
type Plan struct {
	Scope    model.AssetScope
	Standard model.TokenStandard
	Limit    int
	// Primary queries run first.
	Primary []chain.Query
	// Windowed queries run concurrently after the primary ones, bounded below
	// by the oldest primary timestamp, or by Limit when the primary result is
	// empty.
	Windowed []chain.Query
}

// Selector builds query plans.
type Selector struct {
	logger *slog.Logger
}

func NewSelector(logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{logger: logger.With("component", "strategy")}
}

// Plan returns the queries for req. The token scope asks src for the
// contract's token standard; no other scope performs I/O.
func (s *Selector) Plan(ctx context.Context, src chain.OperationSource, req PlanRequest) (Plan, error) {
	if req.Account == "" {
		return Plan{}, fmt.Errorf("plan: empty account")
	}
	limit := req.PseudoLimit
	if limit <= 0 {
		limit = DefaultPseudoLimit
	}
	plan := Plan{Scope: req.Scope, Limit: limit}

	switch req.Scope.Kind {
	case model.ScopeAny, "":
		plan.Scope = model.AnyScope()
		plan.Primary = []chain.Query{accountQuery(req.Account, limit, req.Cursor)}
		for _, st := range tokenstd.Ordered() {
			plan.Windowed = append(plan.Windowed, incomingQuery(st, req.Account, req.Cursor))
		}
	case model.ScopeNative:
		plan.Standard = model.StandardNative
		plan.Primary = []chain.Query{nativeQuery(req.Account, limit, req.Cursor)}
	case model.ScopeLiquidity:
		plan.Primary = []chain.Query{liquidityQuery(req.Account, req.Scope.Contract, limit, req.Cursor)}
	case model.ScopeToken:
		standard, err := src.ContractStandard(ctx, req.Scope.Contract)
		if err != nil {
			return Plan{}, fmt.Errorf("resolve token standard of %s: %w", req.Scope.Contract, err)
		}
		st, ok := tokenstd.Lookup(standard)
		if !ok {
			return Plan{}, fmt.Errorf("no strategy for token standard %q", standard)
		}
		plan.Standard = standard
		plan.Primary = []chain.Query{tokenQuery(st, req.Account, req.Scope, limit, req.Cursor)}
	default:
		return Plan{}, fmt.Errorf("unknown asset scope %q", req.Scope.Kind)
	}

	s.logger.Debug("query plan built",
		"chain", req.ChainID,
		"account", req.Account,
		"scope", plan.Scope.Kind,
		"primary", len(plan.Primary),
		"windowed", len(plan.Windowed),
	)
	return plan, nil
}

// Execute runs plan against src and returns the merged raw sequence.
func Execute(ctx context.Context, src chain.OperationSource, plan Plan) ([]model.RawOperation, error) {
	results := make([][]model.RawOperation, 0, len(plan.Primary)+len(plan.Windowed))
	var primary []model.RawOperation
	for _, q := range plan.Primary {
		ops, err := src.Operations(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("%s query: %w", q.Endpoint, err)
		}
		primary = append(primary, ops...)
		results = append(results, ops)
	}
	if len(plan.Windowed) == 0 {
		return merger.Merge(results...), nil
	}

	bound := windowBound(primary, plan.Limit)
	windowed := make([][]model.RawOperation, len(plan.Windowed))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range plan.Windowed {
		i, q := i, bound(q)
		g.Go(func() error {
			ops, err := src.Operations(gctx, q)
			if err != nil {
				return fmt.Errorf("%s windowed query: %w", q.Endpoint, err)
			}
			windowed[i] = ops
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return merger.Merge(append(results, windowed...)...), nil
}

func windowBound(primary []model.RawOperation, limit int) func(chain.Query) chain.Query {
	oldest, ok := merger.Oldest(primary)
	if !ok {
		return func(q chain.Query) chain.Query { return q.WithLimit(limit) }
	}
	newerThen := formatTimestamp(oldest.Timestamp)
	return func(q chain.Query) chain.Query { return q.With("timestamp.ge", newerThen) }
}

func accountQuery(account string, limit int, cursor *model.Cursor) chain.Query {
	q := chain.NewQuery(chain.EndpointAccountOperations).
		With("type", accountOperationTypes).
		With("sort", "1").
		WithLimit(limit)
	q.Account = account
	return withTimestampCursor(q, cursor)
}

func incomingQuery(st tokenstd.Strategy, account string, cursor *model.Cursor) chain.Query {
	f := st.IncomingFilter(account)
	q := chain.NewQuery(chain.EndpointTransactions).
		With(f.Key, f.Value).
		With("sender.ne", account).
		With("initiator.ne", account).
		With("entrypoint", entrypointTransfer).
		With("sort.desc", "id")
	return withTimestampCursor(q, cursor)
}

func nativeQuery(account string, limit int, cursor *model.Cursor) chain.Query {
	q := chain.NewQuery(chain.EndpointTransactions).
		With("anyof.sender.target.initiator", account).
		With("amount.ne", "0").
		With("sort.desc", "id").
		WithLimit(limit)
	return withTimestampCursor(q, cursor)
}

func liquidityQuery(account, contract string, limit int, cursor *model.Cursor) chain.Query {
	q := chain.NewQuery(chain.EndpointTransactions).
		With("initiator", account).
		With("target", contract).
		With("entrypoint", tokenstd.EntrypointMintOrBurn).
		With("sort.desc", "level").
		WithLimit(limit)
	return withLevelCursor(q, cursor)
}

func tokenQuery(st tokenstd.Strategy, account string, scope model.AssetScope, limit int, cursor *model.Cursor) chain.Query {
	f := st.TransferFilter(account, scope.TokenID)
	q := chain.NewQuery(chain.EndpointTransactions).
		With("target", scope.Contract).
		With("entrypoint", entrypointTransfer).
		With(f.Key, f.Value).
		With("sort.desc", "level").
		WithLimit(limit)
	return withLevelCursor(q, cursor)
}

func withTimestampCursor(q chain.Query, cursor *model.Cursor) chain.Query {
	if cursor == nil || cursor.Timestamp.IsZero() {
		return q
	}
	return q.With("timestamp.lt", formatTimestamp(cursor.Timestamp))
}

func withLevelCursor(q chain.Query, cursor *model.Cursor) chain.Query {
	if cursor == nil || cursor.Level <= 0 {
		return q
	}
	return q.With("level.lt", strconv.FormatInt(cursor.Level, 10))
}

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
