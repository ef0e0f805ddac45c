package tzkt

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mavryk-network/activity-history/internal/chain"
	"github.com/mavryk-network/activity-history/internal/domain/model"
	"github.com/mavryk-network/activity-history/internal/metrics"
)

var _ chain.OperationSource = (*Client)(nil)

// Operations runs a filtered operation-list query.
func (c *Client) Operations(ctx context.Context, q chain.Query) ([]model.RawOperation, error) {
	var path string
	switch q.Endpoint {
	case chain.EndpointAccountOperations:
		if q.Account == "" {
			return nil, fmt.Errorf("account operations query without account")
		}
		path = "/accounts/" + url.PathEscape(q.Account) + "/operations"
	case chain.EndpointTransactions:
		path = "/operations/transactions"
	default:
		return nil, fmt.Errorf("unknown query endpoint %q", q.Endpoint)
	}

	var ops []Operation
	if err := c.get(ctx, string(q.Endpoint), path, q.Params, &ops); err != nil {
		return nil, fmt.Errorf("fetch operations: %w", err)
	}
	return toModelOperations(ops), nil
}

// OperationsByHash returns every operation of the group identified by hash.
func (c *Client) OperationsByHash(ctx context.Context, hash string) ([]model.RawOperation, error) {
	if hash == "" {
		return nil, fmt.Errorf("empty operation hash")
	}
	var ops []Operation
	if err := c.get(ctx, "operations_by_hash", "/operations/"+url.PathEscape(hash), nil, &ops); err != nil {
		return nil, fmt.Errorf("fetch operations by hash %s: %w", hash, err)
	}
	return toModelOperations(ops), nil
}

// ContractStandard detects the token standard of a contract. Answers are cached.
func (c *Client) ContractStandard(ctx context.Context, address string) (model.TokenStandard, error) {
	if address == "" {
		return "", fmt.Errorf("empty contract address")
	}
	standard, cached, err := c.standards.GetOrLoad(address, func() (model.TokenStandard, error) {
		var contract Contract
		if err := c.get(ctx, "contract", "/contracts/"+url.PathEscape(address), nil, &contract); err != nil {
			return "", err
		}
		return contract.Standard(), nil
	})
	if err != nil {
		return "", fmt.Errorf("fetch contract %s: %w", address, err)
	}
	if cached {
		metrics.StandardCacheHits.WithLabelValues(c.chain).Inc()
	} else {
		metrics.StandardCacheMisses.WithLabelValues(c.chain).Inc()
	}
	return standard, nil
}
