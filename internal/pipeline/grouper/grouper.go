// Package grouper expands a page of raw operations into complete operation
// groups keyed by hash.
package grouper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mavryk-network/activity-history/internal/chain"
	"github.com/mavryk-network/activity-history/internal/domain/model"
	"github.com/mavryk-network/activity-history/internal/metrics"
)

// ErrStale is returned when the fetch generation moved on mid-build.
var ErrStale = errors.New("stale page fetch")

type BuildOptions struct {
	// ChainID labels metrics and logs.
	ChainID model.ChainID
	// Cursor is the previous page's anchor. Its hash is not rebuilt.
	Cursor *model.Cursor
	// Seen holds hashes already emitted for this pagination sequence.
	Seen map[string]struct{}
	// Stale is checked before every per-hash fetch.
	Stale func() bool
}

type Builder struct {
	logger *slog.Logger
}

func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger.With("component", "grouper")}
}

// Build fetches the complete group of every new hash in raw, in first-seen
// order. A filtered page may hold only some operations of an atomic group,
// so each group is re-read by hash.
func (b *Builder) Build(ctx context.Context, src chain.OperationSource, raw []model.RawOperation, opts BuildOptions) ([]model.OperationsGroup, error) {
	hashes := uniqueHashes(raw)
	hashes = suppressBoundaryHash(hashes, opts.Cursor)
	hashes = suppressSeenHashes(hashes, opts.Seen)
	if len(hashes) == 0 {
		return nil, nil
	}

	groups := make([]model.OperationsGroup, 0, len(hashes))
	for _, hash := range hashes {
		if opts.Stale != nil && opts.Stale() {
			return nil, ErrStale
		}
		ops, err := src.OperationsByHash(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("build group %s: %w", hash, err)
		}
		metrics.PageGroupsFetched.WithLabelValues(opts.ChainID.String()).Inc()
		if len(ops) == 0 {
			b.logger.Debug("group vanished between page and hash lookup", "chain", opts.ChainID, "hash", hash)
			continue
		}
		groups = append(groups, model.OperationsGroup{Hash: hash, Operations: sortByIDDesc(ops)})
	}
	if opts.Stale != nil && opts.Stale() {
		return nil, ErrStale
	}
	return groups, nil
}

func uniqueHashes(raw []model.RawOperation) []string {
	seen := make(map[string]struct{}, len(raw))
	hashes := make([]string, 0, len(raw))
	for _, op := range raw {
		if op.Hash == "" {
			continue
		}
		if _, dup := seen[op.Hash]; dup {
			continue
		}
		seen[op.Hash] = struct{}{}
		hashes = append(hashes, op.Hash)
	}
	return hashes
}

// suppressBoundaryHash drops only the cursor's own hash, which inclusive
// range queries return again at the page seam.
func suppressBoundaryHash(hashes []string, cursor *model.Cursor) []string {
	if len(hashes) == 0 || cursor == nil || cursor.Hash == "" {
		return hashes
	}
	filtered := make([]string, 0, len(hashes))
	for _, h := range hashes {
		if h == cursor.Hash {
			continue
		}
		filtered = append(filtered, h)
	}
	return filtered
}

func suppressSeenHashes(hashes []string, seen map[string]struct{}) []string {
	if len(hashes) == 0 || len(seen) == 0 {
		return hashes
	}
	filtered := make([]string, 0, len(hashes))
	for _, h := range hashes {
		if _, ok := seen[h]; ok {
			continue
		}
		filtered = append(filtered, h)
	}
	return filtered
}

func sortByIDDesc(ops []model.RawOperation) []model.RawOperation {
	sorted := make([]model.RawOperation, len(ops))
	copy(sorted, ops)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID > sorted[j].ID
	})
	return sorted
}
