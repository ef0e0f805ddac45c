package chain

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"

	"github.com/mavryk-network/activity-history/internal/domain/model"
)

// ErrUnsupportedChain is returned when no indexer is registered for a chain.
var ErrUnsupportedChain = errors.New("unsupported chain")

//go:generate mockgen -destination=mocks/mock_source.go -package=mocks . OperationSource

// OperationSource abstracts the remote indexer so the history pipeline can be
// tested without HTTP.
type OperationSource interface {
	// Operations runs one filtered operation-list query.
	Operations(ctx context.Context, q Query) ([]model.RawOperation, error)

	// OperationsByHash returns every operation sharing hash, in indexer order.
	OperationsByHash(ctx context.Context, hash string) ([]model.RawOperation, error)

	// ContractStandard classifies the token standard of a contract.
	ContractStandard(ctx context.Context, address string) (model.TokenStandard, error)
}

// Endpoint names an operation-list query endpoint of the indexer.
type Endpoint string

const (
	EndpointAccountOperations Endpoint = "account_operations"
	EndpointTransactions      Endpoint = "transactions"
)

// Query is a source-agnostic operation query descriptor.
type Query struct {
	Endpoint Endpoint
	// Account is the path address of EndpointAccountOperations.
	Account string
	Params  url.Values
}

func NewQuery(endpoint Endpoint) Query {
	return Query{Endpoint: endpoint, Params: url.Values{}}
}

// With returns a copy of q with key set to value. Empty values are skipped.
func (q Query) With(key, value string) Query {
	if value == "" {
		return q
	}
	params := make(url.Values, len(q.Params)+1)
	for k, v := range q.Params {
		params[k] = append([]string(nil), v...)
	}
	params.Set(key, value)
	q.Params = params
	return q
}

// WithLimit sets a positive result limit.
func (q Query) WithLimit(limit int) Query {
	if limit <= 0 {
		return q
	}
	return q.With("limit", strconv.Itoa(limit))
}

// Registry maps chain ids to their operation source.
type Registry struct {
	mu      sync.RWMutex
	sources map[model.ChainID]OperationSource
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[model.ChainID]OperationSource)}
}

func (r *Registry) Register(chainID model.ChainID, src OperationSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[chainID] = src
}

// Source returns the source for chainID or ErrUnsupportedChain.
func (r *Registry) Source(chainID model.ChainID) (OperationSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[chainID]
	if !ok {
		return nil, ErrUnsupportedChain
	}
	return src, nil
}

func (r *Registry) Supports(chainID model.ChainID) bool {
	_, err := r.Source(chainID)
	return err == nil
}
